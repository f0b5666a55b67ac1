package submit

import (
	"context"
	"fmt"
	"math"

	"github.com/tcam/gwcfg/internal/logging"
)

// Status is the overall state of a run.
type Status string

const (
	StatusActive    Status = "active"
	StatusSuccess   Status = "success"
	StatusException Status = "exception"
)

// Outcome records one executed step.
type Outcome struct {
	Item   string
	Step   string
	Policy Policy
	Err    error
}

// OK reports whether the step succeeded.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Result is a snapshot of a run. Run emits one per step and returns the
// terminal one.
type Result struct {
	Plan    string
	Status  Status
	Percent int
	Text    string

	// Succeeded and Failed count items, not steps
	Succeeded int
	Failed    int

	Outcomes []Outcome

	// Err is the FatalError of an exception
	Err error
}

// Done reports whether the run reached a terminal status.
func (r Result) Done() bool {
	return r.Status != StatusActive
}

// ItemErrors returns every tolerated failure, Optional ones included.
func (r Result) ItemErrors() []error {
	var errs []error
	for _, o := range r.Outcomes {
		if o.Err != nil && o.Item != "" && o.Policy != Critical {
			errs = append(errs, &ItemFailure{Item: o.Item, Step: o.Step, Err: o.Err})
		}
	}
	return errs
}

func (r Result) clone() Result {
	r.Outcomes = append([]Outcome(nil), r.Outcomes...)
	return r
}

type runner struct {
	plan    *Plan
	observe func(Result)
	res     Result
}

// Run executes the plan's steps strictly in order, one at a time. A
// Critical failure aborts the run with StatusException; item failures are
// logged and counted and the run moves on. Nothing is rolled back.
//
// ctx is handed to every step. The runner itself never abandons a run
// between steps.
func Run(ctx context.Context, plan *Plan, observe func(Result)) Result {
	r := &runner{
		plan:    plan,
		observe: observe,
		res:     Result{Plan: plan.Name, Status: StatusActive},
	}
	scope := NewScope()
	r.emit(0, "Initializing...")

	for k, st := range plan.Root {
		r.emit(plan.Base+plan.RootWeight*float64(k)/float64(len(plan.Root)), st.Text)
		err := st.Run(ctx, scope)
		r.record("", st, err)
		if err == nil {
			logging.LogSubmissionStep(plan.Name, "", st.Name, "ok", r.res.Percent)
			continue
		}
		if st.Policy == Optional {
			logging.LogItemFailure(plan.Name, "", st.Name, err)
			continue
		}
		return r.abort(st, err)
	}
	if len(plan.Root) > 0 {
		last := plan.Root[len(plan.Root)-1]
		r.emit(plan.Base+plan.RootWeight, last.Name+" completed")
	}

	start := plan.Base + plan.RootWeight
	per := 0.0
	if len(plan.Items) > 0 {
		per = plan.ItemWeight / float64(len(plan.Items))
	}

	for i, it := range plan.Items {
		scope.enterItem(it.Label)
		failed := false

		for j, st := range it.Steps {
			pct := start + float64(i)*per + float64(j)*per/float64(len(it.Steps))
			r.emit(pct, st.Text)

			err := st.Run(ctx, scope)
			r.record(it.Label, st, err)
			if err == nil {
				logging.LogSubmissionStep(plan.Name, it.Label, st.Name, "ok", r.res.Percent)
				continue
			}

			if st.Policy == Critical {
				scope.leaveItem()
				return r.abort(st, err)
			}
			logging.LogItemFailure(plan.Name, it.Label, st.Name, err)
			if st.Policy == Required {
				failed = true
				break
			}
		}

		scope.leaveItem()
		if failed {
			r.res.Failed++
		} else {
			r.res.Succeeded++
		}
	}

	r.res.Status = StatusSuccess
	r.res.Percent = 100
	if r.res.Failed > 0 {
		r.res.Text = fmt.Sprintf("Completed: %d succeeded, %d failed", r.res.Succeeded, r.res.Failed)
	} else {
		r.res.Text = "Completed"
	}
	r.notify()
	return r.res.clone()
}

// Stream runs the plan in a goroutine and delivers every snapshot on the
// returned channel, which is closed after the terminal snapshot.
func Stream(ctx context.Context, plan *Plan) <-chan Result {
	// one snapshot per step plus initial, post-root and terminal
	ch := make(chan Result, plan.StepCount()+3)
	go func() {
		defer close(ch)
		Run(ctx, plan, func(r Result) { ch <- r })
	}()
	return ch
}

func (r *runner) emit(pct float64, text string) {
	r.res.Percent = int(math.Floor(pct))
	r.res.Text = text
	r.notify()
}

func (r *runner) record(item string, st Step, err error) {
	r.res.Outcomes = append(r.res.Outcomes, Outcome{Item: item, Step: st.Name, Policy: st.Policy, Err: err})
}

func (r *runner) abort(st Step, err error) Result {
	logging.LogFatalStep(r.plan.Name, st.Name, err)
	r.res.Status = StatusException
	r.res.Err = &FatalError{Step: st.Name, Err: err}
	r.res.Text = err.Error()
	r.notify()
	return r.res.clone()
}

func (r *runner) notify() {
	if r.observe != nil {
		r.observe(r.res.clone())
	}
}
