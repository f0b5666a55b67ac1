package wizard

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// identPattern matches attribute names: a letter or underscore followed by
// letters, digits or underscores.
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Result is the outcome of validating one step.
type Result struct {
	// Invalid holds every invalid field. Item fields use ItemKey form.
	Invalid FieldSet
	Errors  []*ValidationError
}

// Valid reports whether the step passed.
func (r Result) Valid() bool {
	return len(r.Invalid) == 0 && len(r.Errors) == 0
}

// Err returns nil for a valid result, otherwise all errors joined.
func (r Result) Err() error {
	if r.Valid() {
		return nil
	}
	errs := make([]error, len(r.Errors))
	for i, e := range r.Errors {
		errs[i] = e
	}
	return errors.Join(errs...)
}

func (r *Result) add(msg string, keys ...FieldKey) {
	r.Invalid.Add(keys...)
	r.Errors = append(r.Errors, &ValidationError{Fields: keys, Message: msg})
}

// Validator checks the fields of one step. It is safe for concurrent use.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a Validator with the wizard's custom tags
// registered.
func NewValidator() *Validator {
	v := validator.New()
	_ = v.RegisterValidation("ident", func(fl validator.FieldLevel) bool {
		return identPattern.MatchString(fl.Field().String())
	})
	return &Validator{validate: v}
}

var defaultValidator = NewValidator()

// Validate checks the step's required fields, the active conditional
// requirements, field rules, the limit pair and every list item. It never
// mutates fields.
func Validate(def *Definition, step int, fields Fields) Result {
	return defaultValidator.Validate(def, step, fields)
}

// Validate is the method form of the package-level Validate.
func (v *Validator) Validate(def *Definition, step int, fields Fields) Result {
	res := Result{Invalid: make(FieldSet)}
	if step < 0 || step >= len(def.Steps) {
		res.add(ErrStepRange.Error())
		return res
	}
	v.validateStep(def, step, fields, "", &res)
	return res
}

func (v *Validator) validateStep(def *Definition, step int, fields Fields, prefix string, res *Result) {
	st := def.Steps[step]
	name := func(k FieldKey) FieldKey { return FieldKey(prefix + string(k)) }

	for _, key := range def.RequiredFor(step, fields) {
		if fields.IsEmpty(key) {
			res.add(fmt.Sprintf("%s is required", label(def, key)), name(key))
		}
	}

	for _, key := range def.Visible(step, fields) {
		spec, ok := def.Spec(key)
		if !ok || spec.Type == ListField || fields.IsEmpty(key) {
			continue
		}
		if msg := v.checkValue(spec, fields.String(key)); msg != "" {
			res.add(msg, name(key))
		}
	}

	if lim := st.Limit; lim != nil && fields.String(lim.Discriminant) == lim.When {
		lo, errLo := strconv.ParseFloat(strings.TrimSpace(fields.String(lim.Lower)), 64)
		hi, errHi := strconv.ParseFloat(strings.TrimSpace(fields.String(lim.Upper)), 64)
		if errLo == nil && errHi == nil && (!finite(lo) || !finite(hi) || lo >= hi) {
			msg := lim.Message
			if msg == "" {
				msg = fmt.Sprintf("%s must be less than %s", label(def, lim.Lower), label(def, lim.Upper))
			}
			res.add(msg, name(lim.Lower), name(lim.Upper))
		}
	}

	for _, l := range st.Lists {
		items := fields.List(l.Key)
		if len(items) < l.Min {
			res.add(fmt.Sprintf("at least %d %s required", l.Min, label(def, l.Key)), name(l.Key))
		}
		for i, item := range items {
			itemPrefix := prefix + string(ItemKey(l.Key, i, ""))
			for s := range l.Item.Steps {
				v.validateStep(l.Item, s, item, itemPrefix, res)
			}
		}
	}
}

// checkValue applies the option catalog and validator tags to one value and
// returns a message, or "" when the value is acceptable.
func (v *Validator) checkValue(spec FieldSpec, value string) string {
	lbl := spec.Label
	if lbl == "" {
		lbl = string(spec.Key)
	}

	switch spec.Type {
	case SelectField:
		if spec.Options != nil && !spec.Options.Contains(value) {
			return fmt.Sprintf("%s must be one of %s", lbl, strings.Join(spec.Options.Values(), ", "))
		}
		if spec.Rules == "" {
			return ""
		}
		if err := v.validate.Var(value, spec.Rules); err != nil {
			return ruleMessage(lbl, err)
		}

	case NumberField:
		n, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil || !finite(n) {
			return fmt.Sprintf("%s must be a number", lbl)
		}
		if spec.Rules == "" {
			return ""
		}
		if err := v.validate.Var(n, spec.Rules); err != nil {
			return ruleMessage(lbl, err)
		}

	case IntegerField:
		n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return fmt.Sprintf("%s must be a whole number", lbl)
		}
		if spec.Rules == "" {
			return ""
		}
		if err := v.validate.Var(n, spec.Rules); err != nil {
			return ruleMessage(lbl, err)
		}

	default:
		if spec.Rules == "" {
			return ""
		}
		if err := v.validate.Var(value, spec.Rules); err != nil {
			return ruleMessage(lbl, err)
		}
	}
	return ""
}

// finite rejects NaN and the infinities, which ParseFloat accepts.
func finite(n float64) bool {
	return !math.IsNaN(n) && !math.IsInf(n, 0)
}

// ruleMessage turns a validator error into operator-facing text.
func ruleMessage(lbl string, err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Sprintf("%s is invalid", lbl)
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", lbl, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", lbl, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", lbl, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", lbl, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", lbl, fe.Param())
	case "ident":
		return fmt.Sprintf("%s may only contain letters, digits and underscores", lbl)
	case "numeric", "number":
		return fmt.Sprintf("%s must be numeric", lbl)
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", lbl, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", lbl, fe.Tag())
	}
}

func label(def *Definition, key FieldKey) string {
	if spec, ok := def.Spec(key); ok && spec.Label != "" {
		return spec.Label
	}
	return string(key)
}
