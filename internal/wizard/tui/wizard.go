package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/tcam/gwcfg/internal/api"
	"github.com/tcam/gwcfg/internal/flows"
	"github.com/tcam/gwcfg/internal/logging"
	"github.com/tcam/gwcfg/internal/submit"
	"github.com/tcam/gwcfg/internal/ui"
	"github.com/tcam/gwcfg/internal/wizard"
)

// Messages for async operations
type snapshotMsg struct {
	res submit.Result
}

type streamClosedMsg struct{}

type parametersLoadedMsg struct {
	model string
	rows  []wizard.Fields
	err   error
}

// editKeyMap defines key bindings while moving through a step
type editKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Left   key.Binding
	Right  key.Binding
	Edit   key.Binding
	Add    key.Binding
	Remove key.Binding
	Next   key.Binding
	Back   key.Binding
	Submit key.Binding
	Quit   key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k editKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Edit, k.Left, k.Add, k.Remove, k.Next, k.Back, k.Submit, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k editKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Edit, k.Left, k.Right},
		{k.Add, k.Remove},
		{k.Next, k.Back, k.Submit, k.Quit},
	}
}

// inputKeyMap defines key bindings while a field is being typed into
type inputKeyMap struct {
	Confirm key.Binding
	Cancel  key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k inputKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Confirm, k.Cancel}
}

// FullHelp returns keybindings for the expanded help view
func (k inputKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Confirm, k.Cancel}}
}

// resultKeyMap defines key bindings on the success and failure panels
type resultKeyMap struct {
	Again   key.Binding
	Dismiss key.Binding
	Quit    key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k resultKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Again, k.Dismiss, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k resultKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Again, k.Dismiss, k.Quit}}
}

// WizardModel drives one wizard session in the terminal: it renders the
// current step, validates on Next, shows the review summary and runs the
// submission plan, reporting progress as it goes.
type WizardModel struct {
	Session *wizard.Session
	Backend api.Backend
	Info    HeaderInfo

	// UI state
	Width  int
	Height int

	ctx     context.Context
	cursor  int
	editing bool
	input   textinput.Model
	checked wizard.Result // last failed validation
	notice  string

	// submission state
	stream   <-chan submit.Result
	quitting bool // ctrl+c while submitting: exit once the plan ends
	total    int
	snapshot submit.Result
	started  time.Time
	elapsed  time.Duration
	final    *submit.Result

	Spinner    spinner.Model
	Help       help.Model
	Keys       editKeyMap
	InputKeys  inputKeyMap
	ResultKeys resultKeyMap
}

// NewWizardModel creates a model over s. Backend calls made while editing
// and submitting use ctx.
func NewWizardModel(ctx context.Context, s *wizard.Session, b api.Backend, info HeaderInfo) WizardModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = SpinnerStyle

	in := textinput.New()
	in.CharLimit = 200
	in.Width = 40
	in.Prompt = ""

	return WizardModel{
		Session: s,
		Backend: b,
		Info:    info,
		Width:   MinTerminalWidth,
		Height:  24,
		ctx:     ctx,
		input:   in,
		Spinner: sp,
		Help:    help.New(),
		Keys: editKeyMap{
			Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
			Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
			Left:   key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/→", "change")),
			Right:  key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "next option")),
			Edit:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "edit")),
			Add:    key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add item")),
			Remove: key.NewBinding(key.WithKeys("x", "delete"), key.WithHelp("x", "remove item")),
			Next:   key.NewBinding(key.WithKeys("tab", "n"), key.WithHelp("tab", "next")),
			Back:   key.NewBinding(key.WithKeys("shift+tab", "b", "esc"), key.WithHelp("shift+tab", "back")),
			Submit: key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "submit")),
			Quit:   key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
		},
		InputKeys: inputKeyMap{
			Confirm: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "save")),
			Cancel:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		},
		ResultKeys: resultKeyMap{
			Again:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "add another")),
			Dismiss: key.NewBinding(key.WithKeys("enter", "esc"), key.WithHelp("enter", "back to review")),
			Quit:    key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
		},
	}
}

// Outcome returns the terminal result of the last submission, if any.
func (m WizardModel) Outcome() (submit.Result, bool) {
	if m.final == nil {
		return submit.Result{}, false
	}
	return *m.final, true
}

// Init sets the window title.
func (m WizardModel) Init() tea.Cmd {
	return tea.SetWindowTitle("gwcfg: " + m.Session.Definition().Title)
}

// Update handles messages and updates the model
func (m WizardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			// a running plan is never interrupted
			if m.Session.Phase() == wizard.PhaseSubmitting {
				m.quitting = true
				return m, nil
			}
			return m, tea.Quit
		}
		switch m.Session.Phase() {
		case wizard.PhaseSubmitting:
			return m, nil
		case wizard.PhaseSucceeded, wizard.PhaseFailed:
			return m.updateResult(msg)
		}
		if m.editing {
			return m.updateInput(msg)
		}
		return m.updateStep(msg)

	case snapshotMsg:
		return m.applySnapshot(msg.res)

	case streamClosedMsg:
		m.stream = nil
		return m, nil

	case parametersLoadedMsg:
		if msg.err != nil {
			m.notice = "Could not load parameters: " + api.GetShortErrorMessage(msg.err)
			return m, nil
		}
		if msg.model != m.Session.Get(flows.FieldModel) {
			return m, nil
		}
		if err := m.Session.SetItems(flows.FieldParameters, msg.rows); err != nil {
			m.notice = err.Error()
			return m, nil
		}
		m.notice = fmt.Sprintf("Loaded %d parameters for %s", len(msg.rows), msg.model)
		return m, nil

	case spinner.TickMsg:
		if m.Session.Phase() != wizard.PhaseSubmitting {
			return m, nil
		}
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// updateStep handles keyboard input while moving through a step
func (m WizardModel) updateStep(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	rows := buildRows(m.Session)
	m.cursor = clamp(m.cursor, len(rows))
	m.notice = ""

	var cur *row
	if len(rows) > 0 {
		cur = &rows[m.cursor]
	}

	switch {
	case key.Matches(msg, m.Keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.Keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.Keys.Down):
		if m.cursor < len(rows)-1 {
			m.cursor++
		}

	case key.Matches(msg, m.Keys.Left), key.Matches(msg, m.Keys.Right):
		dir := 1
		if key.Matches(msg, m.Keys.Left) {
			dir = -1
		}
		if cur != nil && cur.kind == rowField && cur.spec.Type == wizard.SelectField {
			return m.choose(*cur, cycle(cur.spec, value(m.Session, *cur), dir))
		}

	case key.Matches(msg, m.Keys.Edit):
		if cur == nil {
			break
		}
		switch {
		case cur.kind == rowAdd:
			return m.addItem(cur.list)
		case cur.editable():
			m.editing = true
			m.input.SetValue(value(m.Session, *cur))
			m.input.Placeholder = cur.spec.Placeholder
			m.input.CursorEnd()
			return m, m.input.Focus()
		case cur.kind == rowField:
			return m.choose(*cur, cycle(cur.spec, value(m.Session, *cur), 1))
		}

	case key.Matches(msg, m.Keys.Add):
		if list, ok := m.listAt(rows); ok {
			return m.addItem(list)
		}

	case key.Matches(msg, m.Keys.Remove):
		if cur == nil || cur.list == "" || cur.index < 0 {
			break
		}
		if err := m.Session.RemoveItem(cur.list, cur.index); err != nil {
			m.notice = "Cannot remove: " + err.Error()
			break
		}
		m.checked = wizard.Result{}
		m.cursor = clamp(m.cursor, len(buildRows(m.Session)))

	case key.Matches(msg, m.Keys.Next):
		if m.Session.IsLast() {
			break
		}
		res, err := m.Session.Next()
		if err != nil {
			m.checked = res
			if res.Valid() {
				m.notice = err.Error()
			}
			logging.Debug("Step rejected",
				zap.Int("step", m.Session.Current()),
				zap.Int("errors", len(res.Errors)))
			break
		}
		m.checked = wizard.Result{}
		m.cursor = 0

	case key.Matches(msg, m.Keys.Back):
		if m.Session.Back() {
			m.checked = wizard.Result{}
			m.cursor = 0
		}

	case key.Matches(msg, m.Keys.Submit):
		if m.Session.IsLast() {
			return m.submit()
		}
	}

	return m, nil
}

// updateInput handles keyboard input while a text or number field is open
func (m WizardModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.InputKeys.Cancel):
		m.editing = false
		m.input.Blur()
		return m, nil

	case key.Matches(msg, m.InputKeys.Confirm):
		m.editing = false
		m.input.Blur()
		rows := buildRows(m.Session)
		if m.cursor >= len(rows) {
			return m, nil
		}
		r := rows[m.cursor]
		if err := setValue(m.Session, r, strings.TrimSpace(m.input.Value())); err != nil {
			m.notice = err.Error()
			return m, nil
		}
		delete(m.checked.Invalid, r.path())
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// updateResult handles keyboard input on the success and failure panels
func (m WizardModel) updateResult(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.ResultKeys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.ResultKeys.Again):
		if err := m.Session.Reset(); err != nil {
			m.notice = err.Error()
			return m, nil
		}
		m.reset()

	case key.Matches(msg, m.ResultKeys.Dismiss):
		if m.Session.Phase() == wizard.PhaseSucceeded {
			_ = m.Session.Reset()
			m.reset()
			return m, nil
		}
		if err := m.Session.Dismiss(); err != nil {
			m.notice = err.Error()
		}
	}
	return m, nil
}

func (m *WizardModel) reset() {
	m.cursor = 0
	m.checked = wizard.Result{}
	m.notice = ""
	m.snapshot = submit.Result{}
}

// choose stores a select value. Choosing a device's model also reloads the
// parameters linked to it.
func (m WizardModel) choose(r row, v string) (tea.Model, tea.Cmd) {
	old := value(m.Session, r)
	if err := setValue(m.Session, r, v); err != nil {
		m.notice = err.Error()
		return m, nil
	}
	delete(m.checked.Invalid, r.path())

	if r.index < 0 && r.key == flows.FieldModel && v != old &&
		m.Session.Definition().Kind == wizard.KindDevice {
		m.notice = "Loading parameters for " + v + "..."
		return m, loadParameters(m.ctx, m.Backend, v)
	}
	return m, nil
}

func (m WizardModel) addItem(list wizard.FieldKey) (tea.Model, tea.Cmd) {
	idx, err := m.Session.AddItem(list, nil)
	if err != nil {
		m.notice = err.Error()
		return m, nil
	}
	for i, r := range buildRows(m.Session) {
		if r.kind == rowItem && r.list == list && r.index == idx {
			m.cursor = i
			break
		}
	}
	return m, nil
}

// listAt returns the list the cursor is in, or the step's first list.
func (m WizardModel) listAt(rows []row) (wizard.FieldKey, bool) {
	if m.cursor < len(rows) && rows[m.cursor].list != "" {
		return rows[m.cursor].list, true
	}
	lists := m.Session.Step().Lists
	if len(lists) == 0 {
		return "", false
	}
	return lists[0].Key, true
}

// submit locks the session and starts streaming the plan's snapshots.
func (m WizardModel) submit() (tea.Model, tea.Cmd) {
	plan, err := flows.Prepare(m.Session, m.Backend)
	if err != nil {
		var se *wizard.StepError
		if errors.As(err, &se) && !se.Result.Valid() {
			// jump back to the first step that does not validate
			_, _ = m.Session.GoToStep(se.Step)
			m.checked = se.Result
			m.cursor = 0
			return m, nil
		}
		if m.Session.Phase() == wizard.PhaseFailed {
			m.final = &submit.Result{Status: submit.StatusException, Err: err}
			return m, nil
		}
		m.notice = err.Error()
		return m, nil
	}

	m.total = plan.StepCount()
	m.started = time.Now()
	m.elapsed = 0
	m.final = nil
	m.snapshot = submit.Result{Plan: plan.Name, Status: submit.StatusActive, Text: "Initializing..."}
	m.stream = submit.Stream(m.ctx, plan)
	logging.Info("Submitting wizard",
		zap.String("session", m.Session.ID),
		zap.String("plan", plan.Name),
		zap.Int("steps", m.total))
	return m, tea.Batch(waitForSnapshot(m.stream), m.Spinner.Tick)
}

func (m WizardModel) applySnapshot(res submit.Result) (tea.Model, tea.Cmd) {
	m.snapshot = res
	if res.Status == submit.StatusActive {
		return m, waitForSnapshot(m.stream)
	}

	flows.Finish(m.Session, res)
	m.final = &res
	m.elapsed = time.Since(m.started)
	logging.Info("Submission finished",
		zap.String("session", m.Session.ID),
		zap.String("status", string(res.Status)),
		zap.Int("succeeded", res.Succeeded),
		zap.Int("failed", res.Failed),
		zap.Duration("elapsed", m.elapsed))
	if m.quitting {
		return m, tea.Quit
	}
	return m, waitForSnapshot(m.stream)
}

// waitForSnapshot reads the next snapshot off a running submission.
func waitForSnapshot(ch <-chan submit.Result) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		res, ok := <-ch
		if !ok {
			return streamClosedMsg{}
		}
		return snapshotMsg{res: res}
	}
}

func loadParameters(ctx context.Context, r api.Reader, model string) tea.Cmd {
	return func() tea.Msg {
		rows, err := flows.DeviceParameters(ctx, r, model)
		return parametersLoadedMsg{model: model, rows: rows, err: err}
	}
}

func clamp(i, n int) int {
	if i >= n {
		i = n - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}

// View renders the current phase inside the application container
func (m WizardModel) View() string {
	width := CalculateBoxWidth(m.Width)

	var content, helpText string
	switch m.Session.Phase() {
	case wizard.PhaseSubmitting:
		content = m.renderSubmitting(width)
		helpText = "Submitting... ctrl+c exits when done"
		if m.quitting {
			helpText = "Finishing the submission, then exiting"
		}
	case wizard.PhaseSucceeded, wizard.PhaseFailed:
		content = m.renderResult(width)
		helpText = m.Help.View(m.ResultKeys)
	default:
		content = m.renderStep(width)
		if m.editing {
			helpText = m.Help.View(m.InputKeys)
		} else {
			helpText = m.Help.View(m.Keys)
		}
	}

	return RenderApplicationContainer(m.Info, content, helpText, m.Width, m.Height)
}

// renderTrail renders the step names with the current one highlighted.
func (m WizardModel) renderTrail() string {
	steps := m.Session.Definition().Steps
	parts := make([]string, len(steps))
	for i, st := range steps {
		name := fmt.Sprintf("%d %s", i+1, st.Name)
		switch {
		case i < m.Session.Current():
			parts[i] = StepDoneStyle.Render("✓ " + name)
		case i == m.Session.Current():
			parts[i] = StepCurrentStyle.Render(name)
		default:
			parts[i] = StepTodoStyle.Render(name)
		}
	}
	return strings.Join(parts, StepTodoStyle.Render("  ›  "))
}

func (m WizardModel) renderStep(width int) string {
	def := m.Session.Definition()
	step := m.Session.Step()

	var b strings.Builder
	b.WriteString(TitleStyle.Render(def.Title))
	b.WriteString("\n")
	b.WriteString(m.renderTrail())
	b.WriteString("\n")
	if step.Description != "" {
		b.WriteString(SubtitleStyle.Render(step.Description))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if step.Review {
		b.WriteString(ui.RenderSummary(wizard.Summarize(def, m.Session.Fields()), width))
		b.WriteString("\n\n")
		b.WriteString(ActionStyle.Render("Press s to submit, shift+tab to go back"))
		b.WriteString("\n")
	} else {
		b.WriteString(m.renderRows())
	}

	if len(m.checked.Errors) > 0 {
		msgs := make([]string, len(m.checked.Errors))
		for i, e := range m.checked.Errors {
			msgs[i] = e.Message
		}
		b.WriteString("\n")
		b.WriteString(RenderError(strings.Join(msgs, "\n  ")))
		b.WriteString("\n")
	}
	if m.notice != "" {
		b.WriteString("\n")
		b.WriteString(NoticeStyle.Render(m.notice))
		b.WriteString("\n")
	}
	return b.String()
}

func (m WizardModel) renderRows() string {
	rows := buildRows(m.Session)
	cursor := clamp(m.cursor, len(rows))

	var b strings.Builder
	for i, r := range rows {
		selected := i == cursor
		pointer := "  "
		if selected {
			pointer = "→ "
		}
		indent := ""
		if r.index >= 0 {
			indent = "  "
		}

		switch r.kind {
		case rowItem:
			b.WriteString(pointer + ItemTitleStyle.Render(r.title))
			if m.Session.CanRemove(r.list) {
				b.WriteString(StepTodoStyle.Render("  (x removes)"))
			}
		case rowAdd:
			b.WriteString(pointer + ActionStyle.Render("+ "+r.title))
		default:
			lbl := LabelStyle
			switch {
			case m.checked.Invalid.Has(r.path()):
				lbl = InvalidLabelStyle
			case selected:
				lbl = SelectedLabelStyle
			}
			b.WriteString(pointer + indent + lbl.Render(r.label()))
			if selected && m.editing {
				b.WriteString(InlineEditorStyle().Render(m.input.View()))
			} else {
				b.WriteString(display(r, value(m.Session, r)))
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m WizardModel) renderSubmitting(width int) string {
	p := ui.NewProgress("", m.total)
	p.SetWidth(width)
	p.Apply(m.snapshot)
	p.Label = ""

	title := fmt.Sprintf("%s SUBMITTING %s", m.Spinner.View(), strings.ToUpper(m.Session.Definition().Title))
	elapsed := time.Since(m.started).Round(time.Second)

	return lipgloss.JoinVertical(lipgloss.Left,
		TitleStyle.Render(title),
		SubtitleStyle.Render(m.snapshot.Text),
		"",
		p.Render(),
		"",
		SubtitleStyle.Render(fmt.Sprintf("Elapsed: %s", elapsed)),
	)
}

func (m WizardModel) renderResult(width int) string {
	title := m.Session.Definition().Title
	var res submit.Result
	if m.final != nil {
		res = *m.final
	}
	if m.Session.Phase() == wizard.PhaseFailed && res.Status != submit.StatusException {
		res.Status = submit.StatusException
		res.Err = m.Session.Err()
	}

	panel := ui.NewSubmissionResult(title, res)
	if m.elapsed > 0 {
		panel.AddDetail("Duration", m.elapsed.Round(time.Millisecond).String())
	}
	body := panel.SetWidth(min(width, 90)).Render()
	if m.notice != "" {
		body += "\n" + NoticeStyle.Render(m.notice)
	}
	return RenderModal(body, width, max(m.Height-6, lipgloss.Height(body)))
}
