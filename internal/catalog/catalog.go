package catalog

import (
	"fmt"
	"strconv"
)

// Option is a single selectable value. Value is what the wizard stores and
// Label is what an operator sees.
type Option struct {
	Value string `yaml:"value" json:"value"`
	Label string `yaml:"label" json:"label"`
}

// Catalog is a named, ordered option table.
type Catalog struct {
	Name    string
	Options []Option
}

// New builds a catalog from value/label pairs.
func New(name string, pairs ...string) *Catalog {
	if len(pairs)%2 != 0 {
		panic(fmt.Sprintf("catalog %s: odd number of value/label arguments", name))
	}
	c := &Catalog{Name: name}
	for i := 0; i < len(pairs); i += 2 {
		c.Options = append(c.Options, Option{Value: pairs[i], Label: pairs[i+1]})
	}
	return c
}

// Plain builds a catalog whose labels equal its values.
func Plain(name string, values ...string) *Catalog {
	c := &Catalog{Name: name}
	for _, v := range values {
		c.Options = append(c.Options, Option{Value: v, Label: v})
	}
	return c
}

// Contains reports whether value is one of the catalog's values.
func (c *Catalog) Contains(value string) bool {
	_, ok := c.find(value)
	return ok
}

// Label returns the label for value, or value itself when it is unknown.
func (c *Catalog) Label(value string) string {
	if o, ok := c.find(value); ok {
		return o.Label
	}
	return value
}

// Values returns the catalog values in declaration order.
func (c *Catalog) Values() []string {
	values := make([]string, len(c.Options))
	for i, o := range c.Options {
		values[i] = o.Value
	}
	return values
}

// Next returns the value after current, wrapping around. An unknown current
// yields the first value.
func (c *Catalog) Next(current string) string {
	if len(c.Options) == 0 {
		return current
	}
	for i, o := range c.Options {
		if o.Value == current {
			return c.Options[(i+1)%len(c.Options)].Value
		}
	}
	return c.Options[0].Value
}

// Prev returns the value before current, wrapping around.
func (c *Catalog) Prev(current string) string {
	if len(c.Options) == 0 {
		return current
	}
	for i, o := range c.Options {
		if o.Value == current {
			return c.Options[(i-1+len(c.Options))%len(c.Options)].Value
		}
	}
	return c.Options[len(c.Options)-1].Value
}

func (c *Catalog) find(value string) (Option, bool) {
	for _, o := range c.Options {
		if o.Value == value {
			return o, true
		}
	}
	return Option{}, false
}

func numbered(from, to int) []Option {
	opts := make([]Option, 0, to-from+1)
	for i := from; i <= to; i++ {
		s := strconv.Itoa(i)
		opts = append(opts, Option{Value: s, Label: s})
	}
	return opts
}
