package flows

import (
	"context"

	"github.com/tcam/gwcfg/internal/api"
	"github.com/tcam/gwcfg/internal/submit"
	"github.com/tcam/gwcfg/internal/wizard"
)

// Prepare locks a finished session for submission and derives its plan.
// A session that does not validate stays editable; a plan that cannot be
// built fails the session.
func Prepare(s *wizard.Session, b api.Backend) (*submit.Plan, error) {
	if _, err := s.BeginSubmit(); err != nil {
		return nil, err
	}
	plan, err := PlanFor(s.Definition().Kind, b, s.Fields())
	if err != nil {
		s.Fail(err)
		return nil, err
	}
	return plan, nil
}

// Finish records a terminal result on the session: an exception fails it,
// anything else succeeds, item failures included.
func Finish(s *wizard.Session, res submit.Result) {
	if res.Status == submit.StatusException {
		s.Fail(res.Err)
		return
	}
	s.Succeed()
}

// Submit runs a finished session against the backend, reporting every
// progress snapshot to observe. The returned error is non-nil only when
// the submission could not start.
func Submit(ctx context.Context, s *wizard.Session, b api.Backend, observe func(submit.Result)) (submit.Result, error) {
	plan, err := Prepare(s, b)
	if err != nil {
		return submit.Result{}, err
	}
	res := submit.Run(ctx, plan, observe)
	Finish(s, res)
	return res, nil
}
