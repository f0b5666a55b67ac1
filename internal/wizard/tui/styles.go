package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/tcam/gwcfg/internal/urls"
	"github.com/tcam/gwcfg/internal/version"
)

// Application branding constants
const (
	AppName    = "GWCFG CONFIGURATION CONSOLE"
	ProjectURL = urls.Project
)

// AppVersion returns the application version from the centralized version package
func AppVersion() string {
	return version.Version
}

// Layout constants for responsive terminal width
const (
	MinTerminalWidth = 72  // Minimum supported terminal width
	MaxContentWidth  = 120 // Maximum content width before capping
	labelWidth       = 22  // Field label column
)

// Color palette
var (
	PrimaryColor   = lipgloss.Color("#7D56F4") // Purple
	SecondaryColor = lipgloss.Color("#43BF6D") // Green
	WarningColor   = lipgloss.Color("#FFA500") // Orange
	ErrorColor     = lipgloss.Color("#FF0000") // Red

	TextColor      = lipgloss.Color("#FFFFFF")
	SubtleColor    = lipgloss.Color("#626262")
	BorderColor    = lipgloss.Color("#7D56F4")
	HighlightColor = lipgloss.Color("#43BF6D")
)

var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true).
			Padding(1, 0, 0, 0)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(SubtleColor).
			Italic(true)

	// Step trail: done, current, upcoming
	StepDoneStyle    = lipgloss.NewStyle().Foreground(SecondaryColor)
	StepCurrentStyle = lipgloss.NewStyle().Foreground(PrimaryColor).Bold(true).Underline(true)
	StepTodoStyle    = lipgloss.NewStyle().Foreground(SubtleColor)

	LabelStyle         = lipgloss.NewStyle().Foreground(TextColor).Width(labelWidth)
	SelectedLabelStyle = lipgloss.NewStyle().Foreground(HighlightColor).Bold(true).Width(labelWidth)
	InvalidLabelStyle  = lipgloss.NewStyle().Foreground(ErrorColor).Bold(true).Width(labelWidth)
	ValueStyle         = lipgloss.NewStyle().Foreground(TextColor)
	PlaceholderStyle   = lipgloss.NewStyle().Foreground(SubtleColor).Italic(true)

	ItemTitleStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true)

	ActionStyle = lipgloss.NewStyle().
			Foreground(SecondaryColor)

	SpinnerStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ErrorColor)

	NoticeStyle = lipgloss.NewStyle().
			Foreground(WarningColor)

	// Gateway cards in the picker
	CardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(BorderColor).
			Padding(0, 2).
			MarginLeft(2)
)

// HeaderInfo is the session context shown on the right of the header.
type HeaderInfo struct {
	Gateway string
	Edition string
	User    string
}

// BuildHeaderContent creates header content with app name and the target
// gateway, edition and signed-in user.
func BuildHeaderContent(info HeaderInfo) string {
	left := lipgloss.NewStyle().
		Foreground(TextColor).
		Bold(true).
		Render(AppName + " v" + AppVersion())

	var parts []string
	for _, p := range []string{info.Gateway, info.Edition, info.User} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		parts = []string{ProjectURL}
	}
	right := lipgloss.NewStyle().
		Foreground(SubtleColor).
		Render(strings.Join(parts, " · "))

	return lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", right)
}

// RenderApplicationContainer wraps a screen in the full-terminal frame:
// header, content and a help footer pinned to the bottom. Every screen
// renders through it.
func RenderApplicationContainer(info HeaderInfo, content, footerText string, terminalWidth, terminalHeight int) string {
	if terminalWidth < MinTerminalWidth {
		terminalWidth = MinTerminalWidth
	}
	if terminalHeight < 10 {
		terminalHeight = 10
	}

	styledHeader := lipgloss.NewStyle().
		BorderStyle(lipgloss.Border{Bottom: "─"}).
		BorderForeground(BorderColor).
		Width(terminalWidth-4).
		Padding(0, 1).
		Render(BuildHeaderContent(info))

	styledFooter := lipgloss.NewStyle().
		BorderStyle(lipgloss.Border{Top: "─"}).
		BorderForeground(BorderColor).
		Width(terminalWidth-4).
		Padding(0, 1).
		Render(lipgloss.NewStyle().Foreground(SubtleColor).Render(footerText))

	styledContent := lipgloss.NewStyle().
		Width(terminalWidth - 4).
		Render(content)

	inner := lipgloss.JoinVertical(lipgloss.Left, styledHeader, styledContent, styledFooter)

	bordered := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(BorderColor).
		Width(terminalWidth - 2).
		Height(terminalHeight - 2).
		AlignVertical(lipgloss.Top).
		Render(inner)

	return lipgloss.Place(terminalWidth, terminalHeight, lipgloss.Left, lipgloss.Top, bordered)
}

// RenderError renders an inline error message
func RenderError(text string) string {
	return ErrorStyle.Render("✗ " + text)
}

// CalculateBoxWidth returns the usable content width for a terminal width.
func CalculateBoxWidth(terminalWidth int) int {
	w := terminalWidth - 4
	if w < MinTerminalWidth-4 {
		w = MinTerminalWidth - 4
	}
	if w > MaxContentWidth {
		w = MaxContentWidth
	}
	return w
}

// RenderModal centers a result panel over a dimmed background.
func RenderModal(modalContent string, terminalWidth, terminalHeight int) string {
	return lipgloss.Place(
		terminalWidth,
		terminalHeight,
		lipgloss.Center,
		lipgloss.Center,
		modalContent,
		lipgloss.WithWhitespaceChars("░"),
		lipgloss.WithWhitespaceForeground(lipgloss.Color("240")),
	)
}

// InlineEditorStyle frames the field being edited
func InlineEditorStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.Border{
			Top:    "━",
			Bottom: "━",
			Left:   "┃",
			Right:  "┃",
		}).
		BorderForeground(PrimaryColor).
		Padding(0, 1)
}
