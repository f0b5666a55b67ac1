package wizard

import "fmt"

// Row is one label/value pair of a summary.
type Row struct {
	Key   FieldKey
	Label string
	Value string
}

// ItemSummary is the projection of one list item.
type ItemSummary struct {
	Title string
	Rows  []Row
}

// Section groups the rows of one wizard step.
type Section struct {
	Title string
	Rows  []Row
	Lists map[FieldKey][]ItemSummary
}

// Summary is a read-only projection of a value tree for review.
type Summary struct {
	Title    string
	Sections []Section
}

// EmptyValue is shown for fields left empty.
const EmptyValue = "-"

// Summarize projects fields onto the visible fields of every non-review
// step, substituting option labels. It does not modify fields.
func Summarize(def *Definition, fields Fields) Summary {
	view := fields.Clone()
	sum := Summary{Title: def.Title}
	for i, st := range def.Steps {
		if st.Review {
			continue
		}
		sec := Section{Title: st.Name}
		for _, key := range def.Visible(i, view) {
			spec, _ := def.Spec(key)
			if spec.Type == ListField {
				continue
			}
			sec.Rows = append(sec.Rows, row(spec, key, view))
		}
		for _, l := range st.Lists {
			if sec.Lists == nil {
				sec.Lists = make(map[FieldKey][]ItemSummary)
			}
			items := view.List(l.Key)
			summaries := make([]ItemSummary, 0, len(items))
			for n, item := range items {
				summaries = append(summaries, summarizeItem(l, n, item))
			}
			sec.Lists[l.Key] = summaries
		}
		sum.Sections = append(sum.Sections, sec)
	}
	return sum
}

func summarizeItem(l ListSpec, index int, item Fields) ItemSummary {
	title := item.String(l.TitleField)
	if title == "" {
		title = fmt.Sprintf("#%d", index+1)
	}
	is := ItemSummary{Title: title}
	for s := range l.Item.Steps {
		for _, key := range l.Item.Visible(s, item) {
			spec, _ := l.Item.Spec(key)
			if spec.Type == ListField {
				continue
			}
			is.Rows = append(is.Rows, row(spec, key, item))
		}
	}
	return is
}

func row(spec FieldSpec, key FieldKey, f Fields) Row {
	lbl := spec.Label
	if lbl == "" {
		lbl = string(key)
	}
	value := f.String(key)
	switch {
	case value == "":
		value = EmptyValue
	case spec.Options != nil:
		value = spec.Options.Label(value)
	}
	return Row{Key: key, Label: lbl, Value: value}
}

// Value returns the displayed value of key in the summary, searching every
// section.
func (s Summary) Value(key FieldKey) (string, bool) {
	for _, sec := range s.Sections {
		for _, r := range sec.Rows {
			if r.Key == key {
				return r.Value, true
			}
		}
	}
	return "", false
}
