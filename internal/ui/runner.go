package ui

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/tcam/gwcfg/internal/submit"
)

// SubmissionRunner prints the header, progress and result of one wizard
// submission to a plain writer. Each executed step is printed once, as
// soon as its outcome is known.
type SubmissionRunner struct {
	Title  string // e.g., "Add Device"
	header *Header
	output io.Writer
	width  int

	progress  *Progress
	printed   int
	startTime time.Time
}

// NewSubmissionRunner creates a runner. A nil output writes to stdout.
func NewSubmissionRunner(header *Header, output io.Writer) *SubmissionRunner {
	if output == nil {
		output = os.Stdout
	}
	width := GetTerminalWidth()
	header.SetWidth(width)
	return &SubmissionRunner{
		Title:  header.Title,
		header: header,
		output: output,
		width:  width,
	}
}

// Run prints the header, calls submit with an observer, and prints the
// result box. The returned error is the start error, or the FatalError of
// an aborted run.
func (r *SubmissionRunner) Run(plan *submit.Plan, run func(observe func(submit.Result)) (submit.Result, error)) (submit.Result, error) {
	r.startTime = time.Now()
	_, _ = fmt.Fprintln(r.output, r.header.Render())
	_, _ = fmt.Fprintln(r.output)

	r.progress = NewProgress("", plan.StepCount())
	r.progress.SetWidth(r.width)
	r.printed = 0

	res, err := run(r.Observe)
	if err != nil {
		r.print(NewErrorResult(r.Title+" not submitted", err))
		return res, err
	}

	result := NewSubmissionResult(r.Title, res)
	result.AddDetail("Duration", time.Since(r.startTime).Round(time.Millisecond).String())
	r.print(result)
	if res.Status == submit.StatusException {
		return res, res.Err
	}
	return res, nil
}

// Observe prints steps that finished since the previous snapshot.
func (r *SubmissionRunner) Observe(res submit.Result) {
	r.progress.Apply(res)
	for ; r.printed < len(res.Outcomes); r.printed++ {
		_, _ = fmt.Fprintln(r.output, r.progress.renderStepLine(r.progress.Steps[r.printed]))
	}
}

func (r *SubmissionRunner) print(res *Result) {
	res.SetWidth(r.width)
	_, _ = fmt.Fprintln(r.output)
	_, _ = fmt.Fprintln(r.output, res.Render())
}
