package wizard

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrStepLocked is returned when navigation skips past the next step.
	ErrStepLocked = errors.New("step is not reachable yet")

	// ErrStepInvalid is returned when the current step does not validate.
	ErrStepInvalid = errors.New("current step has invalid fields")

	// ErrStepRange is returned for a step index outside the wizard.
	ErrStepRange = errors.New("step index out of range")

	// ErrListMinimum is returned when removing an item would leave a list
	// below its declared minimum.
	ErrListMinimum = errors.New("list is at its minimum size")

	// ErrItemRange is returned for an item index outside the list.
	ErrItemRange = errors.New("item index out of range")

	// ErrPhase is returned when an operation is not allowed in the session's
	// current phase.
	ErrPhase = errors.New("operation not allowed in current phase")

	// ErrUnknownField is returned for keys the definition does not declare.
	ErrUnknownField = errors.New("unknown field")
)

// ValidationError is a field-scoped validation failure. A single error can
// cover more than one field, as the lower/upper limit check does.
type ValidationError struct {
	Fields  []FieldKey
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	keys := make([]string, len(e.Fields))
	for i, k := range e.Fields {
		keys[i] = string(k)
	}
	return fmt.Sprintf("%s: %s", strings.Join(keys, ", "), e.Message)
}

// StepError reports a rejected navigation together with the validation
// result that caused it.
type StepError struct {
	Step   int
	Result Result
	Err    error
}

// Error implements the error interface
func (e *StepError) Error() string {
	if e.Result.Valid() {
		return fmt.Sprintf("step %d: %v", e.Step, e.Err)
	}
	return fmt.Sprintf("step %d: %v (%s)", e.Step, e.Err, FormatErrors(e.Result.Errors))
}

// Unwrap returns the underlying sentinel
func (e *StepError) Unwrap() error {
	return e.Err
}

// FormatErrors joins validation errors into one line.
func FormatErrors(errs []*ValidationError) string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}
