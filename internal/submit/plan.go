package submit

import (
	"context"
	"fmt"
	"sync"
)

// Policy decides what a step failure does to the rest of the run.
type Policy int

const (
	// Critical steps produce IDs the rest of the plan depends on. A failure
	// aborts the run.
	Critical Policy = iota

	// Required steps are the core of an item. A failure marks the item
	// failed, skips its remaining steps and moves on to the next item.
	Required

	// Optional steps enrich an item. A failure is logged and the item
	// continues.
	Optional
)

// String returns a human-readable policy name
func (p Policy) String() string {
	switch p {
	case Critical:
		return "critical"
	case Required:
		return "required"
	case Optional:
		return "optional"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// StepFunc performs one backend call. It records produced IDs in scope.
type StepFunc func(ctx context.Context, scope *Scope) error

// Step is one backend call of a plan.
type Step struct {
	Name string

	// Text is shown while the step runs, e.g. "Creating Model..."
	Text   string
	Policy Policy
	Run    StepFunc
}

// Item is an independent unit of work, such as one parameter or one
// parameter link. Items do not depend on each other.
type Item struct {
	Label string
	Steps []Step
}

// Plan is the ordered sequence of calls derived from a finished wizard.
type Plan struct {
	Name string

	// Base is the progress shown before the first root step
	Base float64

	// RootWeight is the share of progress spent on root steps
	RootWeight float64

	// ItemWeight is the share spread evenly across items
	ItemWeight float64

	Root  []Step
	Items []Item
}

// Default progress split: root steps run from 10 to 25, items share the
// remaining 75.
const (
	DefaultBase       = 10
	DefaultRootWeight = 15
	DefaultItemWeight = 75
)

// NewPlan creates a plan with the default progress split.
func NewPlan(name string) *Plan {
	return &Plan{
		Name:       name,
		Base:       DefaultBase,
		RootWeight: DefaultRootWeight,
		ItemWeight: DefaultItemWeight,
	}
}

// AddRoot appends a root step.
func (p *Plan) AddRoot(step Step) *Plan {
	p.Root = append(p.Root, step)
	return p
}

// AddItem appends an item.
func (p *Plan) AddItem(label string, steps ...Step) *Plan {
	p.Items = append(p.Items, Item{Label: label, Steps: steps})
	return p
}

// StepCount returns the number of backend calls the plan may issue.
func (p *Plan) StepCount() int {
	n := len(p.Root)
	for _, it := range p.Items {
		n += len(it.Steps)
	}
	return n
}

// Scope carries IDs produced by earlier steps to later ones. Root IDs are
// visible to every item; item IDs only inside their item.
type Scope struct {
	mu    sync.Mutex
	root  map[string]int64
	local map[string]int64
	item  string
}

// NewScope creates an empty scope.
func NewScope() *Scope {
	return &Scope{root: make(map[string]int64)}
}

// Set records an ID. Inside an item it is item-local.
func (s *Scope) Set(key string, id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.local != nil {
		s.local[key] = id
		return
	}
	s.root[key] = id
}

// ID looks up an ID, item-local first.
func (s *Scope) ID(key string) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.local != nil {
		if id, ok := s.local[key]; ok {
			return id, true
		}
	}
	id, ok := s.root[key]
	return id, ok
}

// MustID returns an ID or an error naming the missing dependency.
func (s *Scope) MustID(key string) (int64, error) {
	id, ok := s.ID(key)
	if !ok {
		return 0, fmt.Errorf("missing %s from an earlier step", key)
	}
	return id, nil
}

// Item returns the label of the running item, "" for root steps.
func (s *Scope) Item() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.item
}

func (s *Scope) enterItem(label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.item = label
	s.local = make(map[string]int64)
}

func (s *Scope) leaveItem() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.item = ""
	s.local = nil
}
