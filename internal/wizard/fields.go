package wizard

import (
	"fmt"
	"sort"
	"strings"
)

// FieldKey names a value collected by a wizard.
type FieldKey string

// Fields is the accumulated value tree of a wizard. Scalar values are
// strings, repeatable items are []Fields. A missing key and an empty string
// both mean "left empty".
type Fields map[FieldKey]any

// String returns the scalar value stored under key.
func (f Fields) String(key FieldKey) string {
	switch v := f[key].(type) {
	case string:
		return v
	case nil:
		return ""
	case []Fields:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// List returns the items stored under key. The returned slice is the live
// value, callers that hand it out must Clone first.
func (f Fields) List(key FieldKey) []Fields {
	items, _ := f[key].([]Fields)
	return items
}

// IsEmpty reports whether key holds no value.
func (f Fields) IsEmpty(key FieldKey) bool {
	switch v := f[key].(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []Fields:
		return len(v) == 0
	default:
		return false
	}
}

// Clone returns a deep copy.
func (f Fields) Clone() Fields {
	if f == nil {
		return Fields{}
	}
	out := make(Fields, len(f))
	for k, v := range f {
		if items, ok := v.([]Fields); ok {
			cp := make([]Fields, len(items))
			for i, item := range items {
				cp[i] = item.Clone()
			}
			out[k] = cp
			continue
		}
		out[k] = v
	}
	return out
}

// Keys returns the keys in sorted order.
func (f Fields) Keys() []FieldKey {
	keys := make([]FieldKey, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// ItemKey addresses a field inside a list item, e.g. parameters[1].readFC.
func ItemKey(list FieldKey, index int, key FieldKey) FieldKey {
	return FieldKey(fmt.Sprintf("%s[%d].%s", list, index, key))
}

// FieldSet is a set of field keys.
type FieldSet map[FieldKey]struct{}

// Add inserts keys into the set.
func (s FieldSet) Add(keys ...FieldKey) {
	for _, k := range keys {
		s[k] = struct{}{}
	}
}

// Has reports whether key is in the set.
func (s FieldSet) Has(key FieldKey) bool {
	_, ok := s[key]
	return ok
}

// Sorted returns the members in sorted order.
func (s FieldSet) Sorted() []FieldKey {
	keys := make([]FieldKey, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
