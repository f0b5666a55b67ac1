package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/tcam/gwcfg/internal/api"
	"github.com/tcam/gwcfg/internal/submit"
)

// ResultType indicates success or failure
type ResultType int

const (
	ResultSuccess ResultType = iota
	ResultFailure
	ResultWarning
)

// Result represents a result box (success, failure, or warning)
type Result struct {
	Type            ResultType // Success, failure, or warning
	Title           string     // e.g., "Device created"
	Details         []Param    // Key-value details to display
	Error           error      // Error (for failure results)
	Troubleshooting []string   // Troubleshooting tips (for failure results)
	Width           int        // Terminal width
}

// NewSuccessResult creates a success result box
func NewSuccessResult(title string, details ...Param) *Result {
	return &Result{
		Type:    ResultSuccess,
		Title:   title,
		Details: details,
		Width:   GetTerminalWidth(),
	}
}

// NewFailureResult creates a failure result box
func NewFailureResult(title string, err error, troubleshooting []string) *Result {
	return &Result{
		Type:            ResultFailure,
		Title:           title,
		Error:           err,
		Troubleshooting: troubleshooting,
		Width:           GetTerminalWidth(),
	}
}

// NewWarningResult creates a warning result box
func NewWarningResult(title string, details ...Param) *Result {
	return &Result{
		Type:    ResultWarning,
		Title:   title,
		Details: details,
		Width:   GetTerminalWidth(),
	}
}

// NewErrorResult creates a failure box with tips derived from err.
func NewErrorResult(title string, err error) *Result {
	return NewFailureResult(title, errorForDisplay(err), Troubleshooting(err))
}

// NewSubmissionResult summarises a terminal submission snapshot. Partial
// failures render as a warning listing each failed item.
func NewSubmissionResult(title string, res submit.Result) *Result {
	if res.Status == submit.StatusException {
		r := NewErrorResult(title+" failed", res.Err)
		r.Troubleshooting = append(r.Troubleshooting, "Entered values were kept; fix the problem and submit again")
		return r
	}

	details := []Param{{Key: "Status", Value: res.Text}}
	if res.Succeeded+res.Failed > 0 {
		details = append(details,
			Param{Key: "Succeeded", Value: fmt.Sprint(res.Succeeded)},
			Param{Key: "Failed", Value: fmt.Sprint(res.Failed)},
		)
	}

	failures := res.ItemErrors()
	if len(failures) == 0 {
		return NewSuccessResult(title+" complete", details...)
	}
	r := NewWarningResult(title+" completed with errors", details...)
	for _, err := range failures {
		var f *submit.ItemFailure
		if errors.As(err, &f) {
			r.AddDetail(f.Item, f.Step+": "+api.GetShortErrorMessage(f.Err))
		}
	}
	return r
}

// errorForDisplay drops the FatalError wrapper, whose step name the title
// already carries.
func errorForDisplay(err error) error {
	var f *submit.FatalError
	if errors.As(err, &f) {
		return fmt.Errorf("%s: %s", f.Step, api.GetShortErrorMessage(f.Err))
	}
	if err == nil {
		return nil
	}
	return errors.New(api.GetShortErrorMessage(err))
}

// Troubleshooting turns the client's hint text into bullet tips.
func Troubleshooting(err error) []string {
	if err == nil {
		return nil
	}
	var tips, prose []string
	for _, line := range strings.Split(api.GetTroubleshootingHint(err), "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "", line == "Troubleshooting:":
		case strings.HasPrefix(line, "•"):
			tips = append(tips, strings.TrimSpace(strings.TrimPrefix(line, "•")))
		default:
			prose = append(prose, line)
		}
	}
	return append(prose, tips...)
}

// SetWidth sets the terminal width for responsive rendering
func (r *Result) SetWidth(width int) *Result {
	r.Width = width
	return r
}

// AddDetail adds a detail key-value pair
func (r *Result) AddDetail(key, value string) *Result {
	r.Details = append(r.Details, Param{Key: key, Value: value})
	return r
}

// Render returns the styled result box as a string
func (r *Result) Render() string {
	width := r.Width
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}

	switch r.Type {
	case ResultFailure:
		return r.renderFailure(width)
	case ResultWarning:
		title := lipgloss.NewStyle().
			Foreground(WarningColor).
			Bold(true).
			Render(fmt.Sprintf("   ⚠  WARNING  ─  %s", r.Title))
		return r.box(title, WarningColor, width)
	default:
		title := SuccessTitleStyle.Render(fmt.Sprintf("   %s  SUCCESS  ─  %s", SuccessMarker, r.Title))
		return r.box(title, SuccessColor, width)
	}
}

func (r *Result) box(titleLine string, color lipgloss.Color, width int) string {
	lines := []string{"", titleLine, ""}
	for _, d := range r.Details {
		keyStyled := ResultKeyStyle.Render(fmt.Sprintf("   %s:", d.Key))
		lines = append(lines, keyStyled+" "+ResultValueStyle.Render(d.Value))
	}
	lines = append(lines, "")

	return lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(color).
		Width(width-2).
		Padding(0, 2).
		Render(strings.Join(lines, "\n"))
}

func (r *Result) renderFailure(width int) string {
	lines := []string{"", ErrorTitleStyle.Render(fmt.Sprintf("   %s  FAILED  ─  %s", FailureMarker, r.Title)), ""}

	if r.Error != nil {
		lines = append(lines, ErrorMessageStyle.Render("   Error: "+r.Error.Error()), "")
	}

	if len(r.Troubleshooting) > 0 {
		tips := []string{TroubleshootingTitleStyle.Render("Troubleshooting:"), ""}
		for _, tip := range r.Troubleshooting {
			tips = append(tips, TroubleshootingItemStyle.Render("  • "+tip))
		}

		innerWidth := width - 12 // indent within outer box
		if innerWidth < 40 {
			innerWidth = 40
		}
		box := lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(MutedColor).
			Width(innerWidth).
			Padding(0, 1).
			MarginLeft(3).
			Render(strings.Join(tips, "\n"))
		lines = append(lines, box, "")
	}

	return ErrorBoxStyle(width).
		Padding(0, 2).
		Render(strings.Join(lines, "\n"))
}

// String implements fmt.Stringer
func (r *Result) String() string {
	return r.Render()
}
