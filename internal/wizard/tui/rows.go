package tui

import (
	"fmt"

	"github.com/tcam/gwcfg/internal/wizard"
)

type rowKind int

const (
	rowField rowKind = iota
	rowItem          // heading of a list item
	rowAdd           // "add item" action closing a list
)

// row is one selectable line of the current step.
type row struct {
	kind  rowKind
	list  wizard.FieldKey // owning list, empty for top-level fields
	index int             // item index, -1 outside items
	key   wizard.FieldKey
	spec  wizard.FieldSpec
	title string
}

// path is the key the validator reports the row's field under.
func (r row) path() wizard.FieldKey {
	if r.index < 0 {
		return r.key
	}
	return wizard.ItemKey(r.list, r.index, r.key)
}

func (r row) editable() bool {
	return r.kind == rowField && r.spec.Type != wizard.SelectField
}

func (r row) label() string {
	if r.spec.Label != "" {
		return r.spec.Label
	}
	return string(r.key)
}

// buildRows flattens the visible fields of the session's current step,
// expanding lists into item headings, item fields and an add action.
func buildRows(s *wizard.Session) []row {
	def := s.Definition()
	step := s.Current()
	if def.Steps[step].Review {
		return nil
	}
	fields := s.Fields()

	var rows []row
	for _, key := range def.Visible(step, fields) {
		spec, _ := def.Spec(key)
		if spec.Type != wizard.ListField {
			rows = append(rows, row{kind: rowField, index: -1, key: key, spec: spec})
			continue
		}
		l, ok := def.List(key)
		if !ok {
			continue
		}
		for i, item := range fields.List(key) {
			rows = append(rows, row{kind: rowItem, list: key, index: i, title: itemTitle(l, i, item)})
			seen := make(wizard.FieldSet)
			for st := range l.Item.Steps {
				for _, ik := range l.Item.Visible(st, item) {
					ispec, _ := l.Item.Spec(ik)
					if ispec.Type == wizard.ListField || seen.Has(ik) {
						continue
					}
					seen.Add(ik)
					rows = append(rows, row{kind: rowField, list: key, index: i, key: ik, spec: ispec})
				}
			}
		}
		rows = append(rows, row{kind: rowAdd, list: key, index: -1, title: "Add " + l.Item.Title})
	}
	return rows
}

func itemTitle(l wizard.ListSpec, index int, item wizard.Fields) string {
	title := item.String(l.TitleField)
	if spec, ok := l.Item.Spec(l.TitleField); ok && spec.Options != nil && title != "" {
		title = spec.Options.Label(title)
	}
	if title == "" {
		return fmt.Sprintf("%s #%d", l.Item.Title, index+1)
	}
	return fmt.Sprintf("%s #%d: %s", l.Item.Title, index+1, title)
}

// value returns the raw stored value of a field row.
func value(s *wizard.Session, r row) string {
	if r.index < 0 {
		return s.Get(r.key)
	}
	items := s.Fields().List(r.list)
	if r.index >= len(items) {
		return ""
	}
	return items[r.index].String(r.key)
}

func setValue(s *wizard.Session, r row, v string) error {
	if r.index < 0 {
		s.SetField(r.key, v)
		return nil
	}
	return s.SetItemField(r.list, r.index, r.key, v)
}

// cycle returns the option dir steps away from current, wrapping. An
// unknown current value starts from the first or last option.
func cycle(spec wizard.FieldSpec, current string, dir int) string {
	if spec.Options == nil {
		return current
	}
	if dir < 0 {
		return spec.Options.Prev(current)
	}
	return spec.Options.Next(current)
}

// display renders a field value the way an operator reads it.
func display(r row, v string) string {
	if v == "" {
		if r.spec.Placeholder != "" {
			return PlaceholderStyle.Render(r.spec.Placeholder)
		}
		return PlaceholderStyle.Render(wizard.EmptyValue)
	}
	if r.spec.Options != nil {
		return ValueStyle.Render("‹ " + r.spec.Options.Label(v) + " ›")
	}
	return ValueStyle.Render(v)
}
