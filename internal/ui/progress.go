package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/tcam/gwcfg/internal/api"
	"github.com/tcam/gwcfg/internal/submit"
)

// StepStatus represents the current state of a step
type StepStatus int

const (
	StepPending  StepStatus = iota // Not yet started
	StepRunning                    // Currently executing
	StepComplete                   // Successfully completed
	StepFailed                     // Failed
	StepSkipped                    // Skipped
)

// Step is one line of the step list
type Step struct {
	Number  int        // Step number (1-based)
	Name    string     // e.g., "Voltage: Create Parameter"
	Status  StepStatus // Current status
	Message string     // Optional note, e.g. the backend's error message
}

// Progress renders a submission as a bar and a list of executed steps.
type Progress struct {
	Label     string  // Text of the running step
	Steps     []Step  // Executed steps, in order
	Total     int     // Upper bound of steps the plan may run
	Percent   float64 // Progress (0.0 - 1.0)
	Width     int     // Terminal width
	ShowBar   bool    // Whether to show progress bar
	ShowSteps bool    // Whether to show step list
	bar       progress.Model
}

// NewProgress creates a progress display for a plan of totalSteps calls
func NewProgress(label string, totalSteps int) *Progress {
	return &Progress{
		Label:     label,
		Total:     totalSteps,
		Width:     GetTerminalWidth(),
		ShowBar:   true,
		ShowSteps: true,
		bar:       progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
	}
}

// SetWidth sets the terminal width for responsive rendering
func (p *Progress) SetWidth(width int) *Progress {
	p.Width = width
	barWidth := width - 20 // room for percentage and step count
	if barWidth < 20 {
		barWidth = 20
	}
	if barWidth > 50 {
		barWidth = 50
	}
	p.bar = progress.New(progress.WithDefaultGradient(), progress.WithWidth(barWidth))
	return p
}

// Apply replaces the display state with a submission snapshot.
func (p *Progress) Apply(res submit.Result) {
	p.Percent = float64(res.Percent) / 100
	p.Label = res.Text
	p.Steps = p.Steps[:0]
	for i, o := range res.Outcomes {
		p.Steps = append(p.Steps, outcomeStep(i+1, o))
	}
	if res.Status == submit.StatusActive && len(res.Outcomes) < p.Total && res.Percent > 0 {
		p.Steps = append(p.Steps, Step{Number: len(res.Outcomes) + 1, Name: res.Text, Status: StepRunning})
	}
}

func outcomeStep(n int, o submit.Outcome) Step {
	name := o.Step
	if o.Item != "" {
		name = o.Item + ": " + o.Step
	}
	st := Step{Number: n, Name: name, Status: StepComplete}
	if o.Err != nil {
		st.Status = StepFailed
		st.Message = api.GetShortErrorMessage(o.Err)
		if o.Policy == submit.Optional {
			st.Status = StepSkipped
			st.Message += ", continued"
		}
	}
	return st
}

// Render returns the styled progress display as a string
func (p *Progress) Render() string {
	var b strings.Builder

	if p.Label != "" {
		b.WriteString(ProgressLabelStyle.Render(p.Label))
		b.WriteString("\n\n")
	}

	if p.ShowBar {
		b.WriteString(p.renderProgressBar())
		b.WriteString("\n\n")
	}

	if p.ShowSteps {
		lines := make([]string, 0, len(p.Steps))
		for _, step := range p.Steps {
			lines = append(lines, p.renderStepLine(step))
		}
		b.WriteString(strings.Join(lines, "\n"))
	}

	return b.String()
}

func (p *Progress) renderProgressBar() string {
	barView := p.bar.ViewAs(p.Percent)
	percentStr := fmt.Sprintf("%3.0f%%", p.Percent*100)
	stepStr := fmt.Sprintf("[%d/%d]", len(p.Steps), p.Total)

	return lipgloss.NewStyle().
		PaddingLeft(2).
		Render(fmt.Sprintf("%s  %s  %s", barView, percentStr, stepStr))
}

// renderStepLine renders a single step line
func (p *Progress) renderStepLine(step Step) string {
	prefix := fmt.Sprintf("  [%d/%d]", step.Number, p.Total)

	var marker string
	var style lipgloss.Style
	switch step.Status {
	case StepComplete:
		marker, style = StepMarkerComplete, StepCompleteStyle
	case StepRunning:
		marker, style = StepMarkerRunning, StepRunningStyle
	case StepFailed:
		marker, style = FailureMarker, ErrorTitleStyle
	case StepSkipped:
		marker, style = StepMarkerSkipped, StepRunningStyle
	default:
		marker, style = StepMarkerPending, StepPendingStyle
	}

	var b strings.Builder
	b.WriteString(prefix)
	b.WriteString(" ")
	b.WriteString(style.Render(step.Name))

	// marker column
	padding := 45 - lipgloss.Width(step.Name)
	if padding < 1 {
		padding = 1
	}
	b.WriteString(strings.Repeat(" ", padding))
	b.WriteString(style.Render(marker))

	if step.Message != "" {
		b.WriteString("  ")
		b.WriteString(StepNoteStyle.Render("(" + step.Message + ")"))
	}

	return b.String()
}

// String implements fmt.Stringer
func (p *Progress) String() string {
	return p.Render()
}
