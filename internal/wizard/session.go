package wizard

import (
	"fmt"

	"github.com/google/uuid"
)

// Phase is the lifecycle position of a session.
type Phase int

const (
	// PhaseEditing covers Step[0] .. Step[N-1]
	PhaseEditing Phase = iota
	PhaseSubmitting
	PhaseSucceeded
	PhaseFailed
)

// String returns a human-readable phase name
func (p Phase) String() string {
	switch p {
	case PhaseEditing:
		return "editing"
	case PhaseSubmitting:
		return "submitting"
	case PhaseSucceeded:
		return "success"
	case PhaseFailed:
		return "failed"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Session is an in-progress, not yet submitted configuration. It is owned by
// a single caller and is not safe for concurrent use.
type Session struct {
	ID string

	def       *Definition
	validator *Validator
	current   int
	fields    Fields
	phase     Phase
	lastErr   error
}

// NewSession starts a wizard at step 0 with fields seeded from the
// definition's defaults.
func NewSession(def *Definition) *Session {
	return &Session{
		ID:        uuid.NewString(),
		def:       def,
		validator: defaultValidator,
		fields:    def.Defaults(),
		phase:     PhaseEditing,
	}
}

// Definition returns the wizard the session runs.
func (s *Session) Definition() *Definition {
	return s.def
}

// Current returns the current step index.
func (s *Session) Current() int {
	return s.current
}

// Step returns the current step definition.
func (s *Session) Step() StepDefinition {
	return s.def.Steps[s.current]
}

// IsLast reports whether the current step is the final one.
func (s *Session) IsLast() bool {
	return s.current == s.def.LastStep()
}

// Phase returns the lifecycle phase.
func (s *Session) Phase() Phase {
	return s.phase
}

// Err returns the error recorded by Fail.
func (s *Session) Err() error {
	return s.lastErr
}

// Fields returns a deep copy of the accumulated values.
func (s *Session) Fields() Fields {
	return s.fields.Clone()
}

// Get returns a scalar value.
func (s *Session) Get(key FieldKey) string {
	return s.fields.String(key)
}

// Items returns a copy of a list's items.
func (s *Session) Items(list FieldKey) []Fields {
	items := s.fields.List(list)
	out := make([]Fields, len(items))
	for i, item := range items {
		out[i] = item.Clone()
	}
	return out
}

// SetField stores a value without validating it. When key is a
// discriminant, fields exclusive to the previous branch are cleared and the
// new branch's defaults are seeded.
func (s *Session) SetField(key FieldKey, value string) {
	old := s.fields.String(key)
	s.fields[key] = value
	s.def.applyDiscriminant(s.fields, key, old, value)
}

// SetItemField stores a value inside a list item, applying the item
// definition's discriminant rules.
func (s *Session) SetItemField(list FieldKey, index int, key FieldKey, value string) error {
	spec, ok := s.def.List(list)
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownField, list)
	}
	items := s.fields.List(list)
	if index < 0 || index >= len(items) {
		return fmt.Errorf("%s[%d]: %w", list, index, ErrItemRange)
	}
	item := items[index]
	old := item.String(key)
	item[key] = value
	spec.Item.applyDiscriminant(item, key, old, value)
	return nil
}

// AddItem appends an item built from the item defaults overlaid with values,
// and returns its index.
func (s *Session) AddItem(list FieldKey, values Fields) (int, error) {
	spec, ok := s.def.List(list)
	if !ok {
		return 0, fmt.Errorf("%w %q", ErrUnknownField, list)
	}
	item := spec.Item.Defaults()
	for _, k := range values.Keys() {
		v := values[k]
		if str, ok := v.(string); ok {
			old := item.String(k)
			item[k] = str
			spec.Item.applyDiscriminant(item, k, old, str)
			continue
		}
		item[k] = v
	}
	items := append(s.fields.List(list), item)
	s.fields[list] = items
	return len(items) - 1, nil
}

// RemoveItem deletes an item. It is rejected, leaving the list unchanged,
// when the list would drop below its minimum.
func (s *Session) RemoveItem(list FieldKey, index int) error {
	spec, ok := s.def.List(list)
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownField, list)
	}
	items := s.fields.List(list)
	if index < 0 || index >= len(items) {
		return fmt.Errorf("%s[%d]: %w", list, index, ErrItemRange)
	}
	if len(items)-1 < spec.Min {
		return fmt.Errorf("%s: %w (%d)", list, ErrListMinimum, spec.Min)
	}
	out := make([]Fields, 0, len(items)-1)
	out = append(out, items[:index]...)
	out = append(out, items[index+1:]...)
	s.fields[list] = out
	return nil
}

// SetItems replaces a list with items built the way AddItem builds them. It
// is rejected, leaving the list unchanged, below the list minimum.
func (s *Session) SetItems(list FieldKey, values []Fields) error {
	spec, ok := s.def.List(list)
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownField, list)
	}
	if len(values) < spec.Min {
		return fmt.Errorf("%s: %w (%d)", list, ErrListMinimum, spec.Min)
	}
	prev := s.fields[list]
	s.fields[list] = []Fields{}
	for _, v := range values {
		if _, err := s.AddItem(list, v); err != nil {
			s.fields[list] = prev
			return err
		}
	}
	return nil
}

// CanRemove reports whether RemoveItem would succeed for the list.
func (s *Session) CanRemove(list FieldKey) bool {
	spec, ok := s.def.List(list)
	return ok && len(s.fields.List(list)) > spec.Min
}

// Validate runs the step validator against the session's values.
func (s *Session) Validate(step int) Result {
	return s.validator.Validate(s.def, step, s.fields)
}

// GoToStep moves to target. Moving forward is allowed by at most one step
// and only when the current step validates; backward jumps are always
// allowed. A rejected call changes nothing.
func (s *Session) GoToStep(target int) (Result, error) {
	if s.phase != PhaseEditing {
		return Result{}, fmt.Errorf("go to step %d while %s: %w", target, s.phase, ErrPhase)
	}
	if target < 0 || target > s.def.LastStep() {
		return Result{}, &StepError{Step: target, Err: ErrStepRange}
	}
	if target > s.current+1 {
		return Result{}, &StepError{Step: target, Err: ErrStepLocked}
	}
	if target == s.current+1 {
		res := s.Validate(s.current)
		if !res.Valid() {
			return res, &StepError{Step: s.current, Result: res, Err: ErrStepInvalid}
		}
		s.current = target
		return res, nil
	}
	s.current = target
	return Result{Invalid: make(FieldSet)}, nil
}

// Next advances one step.
func (s *Session) Next() (Result, error) {
	return s.GoToStep(s.current + 1)
}

// Back moves one step back without discarding values. It is a no-op at
// step 0 and reports whether the index changed.
func (s *Session) Back() bool {
	if s.phase != PhaseEditing || s.current == 0 {
		return false
	}
	s.current--
	return true
}

// BeginSubmit enters the submitting phase. It requires the last step and a
// valid value tree on every step.
func (s *Session) BeginSubmit() (Result, error) {
	if s.phase != PhaseEditing {
		return Result{}, fmt.Errorf("submit while %s: %w", s.phase, ErrPhase)
	}
	if !s.IsLast() {
		return Result{}, &StepError{Step: s.current, Err: ErrStepLocked}
	}
	for i := range s.def.Steps {
		res := s.Validate(i)
		if !res.Valid() {
			return res, &StepError{Step: i, Result: res, Err: ErrStepInvalid}
		}
	}
	s.phase = PhaseSubmitting
	s.lastErr = nil
	return Result{Invalid: make(FieldSet)}, nil
}

// Succeed records a completed submission.
func (s *Session) Succeed() {
	if s.phase == PhaseSubmitting {
		s.phase = PhaseSucceeded
	}
}

// Fail records a failed submission. Entered values are kept.
func (s *Session) Fail(err error) {
	if s.phase == PhaseSubmitting {
		s.phase = PhaseFailed
		s.lastErr = err
	}
}

// Dismiss closes a failure and returns to the last step with all values
// retained.
func (s *Session) Dismiss() error {
	if s.phase != PhaseFailed {
		return fmt.Errorf("dismiss while %s: %w", s.phase, ErrPhase)
	}
	s.phase = PhaseEditing
	s.current = s.def.LastStep()
	return nil
}

// Reset clears all values and returns to step 0. It is used after success
// and on cancellation, and is refused while a submission is running.
func (s *Session) Reset() error {
	if s.phase == PhaseSubmitting {
		return fmt.Errorf("reset while %s: %w", s.phase, ErrPhase)
	}
	s.fields = s.def.Defaults()
	s.current = 0
	s.phase = PhaseEditing
	s.lastErr = nil
	return nil
}
