package wizard

import (
	"errors"
	"fmt"

	"github.com/tcam/gwcfg/internal/catalog"
)

// Kind tags a wizard variant.
type Kind string

const (
	KindModel     Kind = "model"
	KindParameter Kind = "parameter"
	KindDevice    Kind = "device"
	KindRule      Kind = "rule"
)

// FieldType selects how a field is entered and checked.
type FieldType int

const (
	TextField FieldType = iota
	NumberField
	// IntegerField accepts whole numbers only
	IntegerField
	SelectField
	ListField
)

// FieldSpec declares one field of a wizard.
type FieldSpec struct {
	Key   FieldKey
	Label string
	Type  FieldType

	// Options restricts a SelectField to a catalog
	Options *catalog.Catalog

	// Default seeds the field when a session starts or resets
	Default string

	// Rules are validator tags applied to non-empty values, e.g. "max=50"
	// for text or "gte=0,lte=256" for numbers.
	Rules string

	Placeholder string
}

// ConditionalRule maps the value of a discriminant field to the fields it
// shows and the subset of those it requires.
type ConditionalRule struct {
	Discriminant FieldKey
	Shown        map[string][]FieldKey
	Required     map[string][]FieldKey

	// Defaults are seeded into newly shown, empty fields when the
	// discriminant switches to a branch.
	Defaults map[string]map[FieldKey]string
}

// FieldsFor returns the fields shown for a discriminant value.
func (r ConditionalRule) FieldsFor(value string) []FieldKey {
	return r.Shown[value]
}

// RequiredFor returns the fields required for a discriminant value.
func (r ConditionalRule) RequiredFor(value string) []FieldKey {
	return r.Required[value]
}

// Exclusive returns the fields of the old branch that the new branch does
// not show.
func (r ConditionalRule) Exclusive(oldValue, newValue string) []FieldKey {
	keep := make(FieldSet)
	keep.Add(r.Shown[newValue]...)
	var out []FieldKey
	for _, k := range r.Shown[oldValue] {
		if !keep.Has(k) {
			out = append(out, k)
		}
	}
	return out
}

// LimitRule enforces Lower < Upper when Discriminant equals When.
type LimitRule struct {
	Lower        FieldKey
	Upper        FieldKey
	Discriminant FieldKey
	When         string
	Message      string
}

// ListSpec declares a repeatable item list on a step.
type ListSpec struct {
	Key FieldKey
	Min int

	// Item describes one item. Its steps are validated for every item.
	Item *Definition

	// TitleField names the item field used in summaries and progress text.
	TitleField FieldKey
}

// StepDefinition is one page of a wizard.
type StepDefinition struct {
	Name        string
	Description string

	// Fields are shown regardless of any discriminant
	Fields   []FieldKey
	Required []FieldKey

	Conditionals []ConditionalRule
	Limit        *LimitRule
	Lists        []ListSpec

	// Review marks the read-only confirmation step
	Review bool
}

// Definition is the static description of a wizard variant.
type Definition struct {
	Kind   Kind
	Title  string
	Fields map[FieldKey]FieldSpec
	Steps  []StepDefinition
}

// NewDefinition indexes field specs by key.
func NewDefinition(kind Kind, title string, specs []FieldSpec, steps ...StepDefinition) *Definition {
	d := &Definition{
		Kind:   kind,
		Title:  title,
		Fields: make(map[FieldKey]FieldSpec, len(specs)),
		Steps:  steps,
	}
	for _, s := range specs {
		d.Fields[s.Key] = s
	}
	return d
}

// Spec returns the declaration of key.
func (d *Definition) Spec(key FieldKey) (FieldSpec, bool) {
	s, ok := d.Fields[key]
	return s, ok
}

// LastStep returns the index of the final step.
func (d *Definition) LastStep() int {
	return len(d.Steps) - 1
}

// List returns the list declaration for key.
func (d *Definition) List(key FieldKey) (ListSpec, bool) {
	for _, st := range d.Steps {
		for _, l := range st.Lists {
			if l.Key == key {
				return l, true
			}
		}
	}
	return ListSpec{}, false
}

// Defaults returns the initial value tree: declared defaults plus the branch
// defaults of every discriminant's default value. Required lists are seeded
// with Min default items.
func (d *Definition) Defaults() Fields {
	f := Fields{}
	for key, spec := range d.Fields {
		if spec.Type == ListField {
			continue
		}
		if spec.Default != "" {
			f[key] = spec.Default
		}
	}
	for _, st := range d.Steps {
		for _, r := range st.Conditionals {
			for k, v := range r.Defaults[f.String(r.Discriminant)] {
				if f.IsEmpty(k) {
					f[k] = v
				}
			}
		}
		for _, l := range st.Lists {
			items := make([]Fields, 0, l.Min)
			for i := 0; i < l.Min; i++ {
				items = append(items, l.Item.Defaults())
			}
			f[l.Key] = items
		}
	}
	return f
}

// Visible returns the fields a step shows for the current values, in
// declaration order and without duplicates.
func (d *Definition) Visible(step int, fields Fields) []FieldKey {
	if step < 0 || step >= len(d.Steps) {
		return nil
	}
	st := d.Steps[step]
	seen := make(FieldSet)
	var out []FieldKey
	add := func(keys []FieldKey) {
		for _, k := range keys {
			if !seen.Has(k) {
				seen.Add(k)
				out = append(out, k)
			}
		}
	}
	add(st.Fields)
	for _, r := range st.Conditionals {
		add(r.FieldsFor(fields.String(r.Discriminant)))
	}
	for _, l := range st.Lists {
		add([]FieldKey{l.Key})
	}
	return out
}

// RequiredFor returns the fields a step requires for the current values.
func (d *Definition) RequiredFor(step int, fields Fields) []FieldKey {
	if step < 0 || step >= len(d.Steps) {
		return nil
	}
	st := d.Steps[step]
	seen := make(FieldSet)
	var out []FieldKey
	add := func(keys []FieldKey) {
		for _, k := range keys {
			if !seen.Has(k) {
				seen.Add(k)
				out = append(out, k)
			}
		}
	}
	add(st.Required)
	for _, r := range st.Conditionals {
		add(r.RequiredFor(fields.String(r.Discriminant)))
	}
	return out
}

// rulesFor returns the conditional rules keyed on discriminant.
func (d *Definition) rulesFor(discriminant FieldKey) []ConditionalRule {
	var out []ConditionalRule
	for _, st := range d.Steps {
		for _, r := range st.Conditionals {
			if r.Discriminant == discriminant {
				out = append(out, r)
			}
		}
	}
	return out
}

// unconditional returns the fields some step shows regardless of any
// discriminant. They are never cleared by a branch switch.
func (d *Definition) unconditional() FieldSet {
	s := make(FieldSet)
	for _, st := range d.Steps {
		s.Add(st.Fields...)
	}
	return s
}

// applyDiscriminant clears the fields exclusive to the old branch and seeds
// defaults for the new one.
func (d *Definition) applyDiscriminant(f Fields, key FieldKey, oldValue, newValue string) {
	if oldValue == newValue {
		return
	}
	shared := d.unconditional()
	for _, r := range d.rulesFor(key) {
		for _, k := range r.Exclusive(oldValue, newValue) {
			if !shared.Has(k) {
				delete(f, k)
			}
		}
		for k, v := range r.Defaults[newValue] {
			if f.IsEmpty(k) {
				f[k] = v
			}
		}
	}
}

// Check reports malformed definitions: undeclared keys, lists without an
// item definition, selects without options.
func (d *Definition) Check() error {
	var errs []error
	known := func(where string, keys ...FieldKey) {
		for _, k := range keys {
			if _, ok := d.Fields[k]; !ok {
				errs = append(errs, fmt.Errorf("%s: %w %q", where, ErrUnknownField, k))
			}
		}
	}
	if len(d.Steps) == 0 {
		errs = append(errs, fmt.Errorf("%s wizard has no steps", d.Kind))
	}
	for _, spec := range d.Fields {
		if spec.Type == SelectField && spec.Options == nil {
			errs = append(errs, fmt.Errorf("field %q: select without options", spec.Key))
		}
	}
	for i, st := range d.Steps {
		where := fmt.Sprintf("%s step %d (%s)", d.Kind, i, st.Name)
		known(where, st.Fields...)
		known(where, st.Required...)
		for _, r := range st.Conditionals {
			known(where, r.Discriminant)
			for _, keys := range r.Shown {
				known(where, keys...)
			}
			for _, keys := range r.Required {
				known(where, keys...)
			}
		}
		if st.Limit != nil {
			known(where, st.Limit.Lower, st.Limit.Upper, st.Limit.Discriminant)
		}
		for _, l := range st.Lists {
			known(where, l.Key)
			if l.Item == nil {
				errs = append(errs, fmt.Errorf("%s: list %q has no item definition", where, l.Key))
				continue
			}
			if err := l.Item.Check(); err != nil {
				errs = append(errs, fmt.Errorf("%s: list %q: %w", where, l.Key, err))
			}
		}
	}
	return errors.Join(errs...)
}
