package flows

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/tcam/gwcfg/internal/api"
	"github.com/tcam/gwcfg/internal/wizard"
)

// LoadAnswers fills a session from a YAML answer file and walks it to the
// last step, validating each step on the way exactly as interactive entry
// does. Scalars may be strings, numbers or booleans; lists are sequences of
// mappings.
//
//	brand: Schneider
//	model: PM5350
//	devType: Power Meter
//	parameters:
//	  - name: Voltage
//	    attributeName: voltage
//	    sourceType: modbus
//	    address: 3000
//	    readFC: 3
//	    writeFC: 0
//	    modbusDataType: 3
//
// A device answer file without parameters gets the rows of its model, which
// needs r; r may be nil for the other wizards.
func LoadAnswers(ctx context.Context, in io.Reader, s *wizard.Session, r api.Reader) error {
	var answers map[string]any
	if err := yaml.NewDecoder(in).Decode(&answers); err != nil && err != io.EOF {
		return fmt.Errorf("failed to parse answers: %w", err)
	}

	def := s.Definition()
	for _, key := range answerOrder(def, answers) {
		spec, ok := def.Spec(key)
		if !ok {
			return fmt.Errorf("answers: %w %q", wizard.ErrUnknownField, key)
		}
		raw := answers[string(key)]

		if spec.Type == wizard.ListField {
			items, err := answerItems(key, raw)
			if err != nil {
				return err
			}
			if err := s.SetItems(key, items); err != nil {
				return fmt.Errorf("answers: %w", err)
			}
			continue
		}

		value, err := scalar(raw)
		if err != nil {
			return fmt.Errorf("answers: %s: %w", key, err)
		}
		s.SetField(key, value)
	}

	if def.Kind == wizard.KindDevice {
		if _, given := answers[string(FieldParameters)]; !given && s.Get(FieldModel) != "" {
			rows, err := DeviceParameters(ctx, r, s.Get(FieldModel))
			if err != nil {
				return err
			}
			if err := s.SetItems(FieldParameters, rows); err != nil {
				return err
			}
		}
	}

	for !s.IsLast() {
		if _, err := s.Next(); err != nil {
			return err
		}
	}
	return nil
}

// answerOrder puts discriminants first so that setting them never clears
// a value given in the same file.
func answerOrder(def *wizard.Definition, answers map[string]any) []wizard.FieldKey {
	disc := make(wizard.FieldSet)
	for _, st := range def.Steps {
		for _, rule := range st.Conditionals {
			disc.Add(rule.Discriminant)
		}
	}
	keys := make([]wizard.FieldKey, 0, len(answers))
	for k := range answers {
		keys = append(keys, wizard.FieldKey(k))
	}
	sort.Slice(keys, func(i, j int) bool {
		di, dj := disc.Has(keys[i]), disc.Has(keys[j])
		if di != dj {
			return di
		}
		return keys[i] < keys[j]
	})
	return keys
}

func answerItems(list wizard.FieldKey, raw any) ([]wizard.Fields, error) {
	seq, ok := raw.([]any)
	if !ok && raw != nil {
		return nil, fmt.Errorf("answers: %s must be a list", list)
	}
	items := make([]wizard.Fields, 0, len(seq))
	for i, entry := range seq {
		m, ok := entry.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("answers: %s[%d] must be a mapping", list, i)
		}
		item := wizard.Fields{}
		for k, v := range m {
			value, err := scalar(v)
			if err != nil {
				return nil, fmt.Errorf("answers: %s: %w", wizard.ItemKey(list, i, wizard.FieldKey(k)), err)
			}
			item[wizard.FieldKey(k)] = value
		}
		items = append(items, item)
	}
	return items, nil
}

func scalar(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case bool:
		if t {
			return "1", nil
		}
		return "0", nil
	case int:
		return strconv.Itoa(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case uint64:
		return strconv.FormatUint(t, 10), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("unsupported value %v", v)
	}
}
