package tui

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tcam/gwcfg/internal/discovery"
)

// Messages for async operations
type scanStartMsg struct{}
type scanCompleteMsg struct {
	gateways []*discovery.Gateway
	err      error
}

// pickerKeyMap defines key bindings for the gateway list
type pickerKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Enter  key.Binding
	Rescan key.Binding
	Manual key.Binding
	Quit   key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k pickerKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Enter, k.Rescan, k.Manual, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k pickerKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Enter},
		{k.Rescan, k.Manual, k.Quit},
	}
}

// gatewayItem wraps a Gateway for use with bubbles/list
type gatewayItem struct {
	gw *discovery.Gateway
}

func (g gatewayItem) FilterValue() string {
	return g.gw.Serial + " " + g.gw.IP + " " + g.gw.Hostname
}

func (g gatewayItem) Title() string {
	if g.gw.Serial == "" {
		return "Manual: " + g.gw.Hostname
	}
	return "T8000-" + g.gw.Serial
}

func (g gatewayItem) Description() string {
	fw := g.gw.Firmware()
	if fw == "" {
		fw = "unknown"
	}
	return fmt.Sprintf("%s • %s edition • firmware %s", g.gw.BaseURL(), g.gw.Edition(), fw)
}

// gatewayDelegate renders gateways as cards
type gatewayDelegate struct {
	width int
}

func (d gatewayDelegate) Height() int                             { return 5 }
func (d gatewayDelegate) Spacing() int                            { return 1 }
func (d gatewayDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d gatewayDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	gi, ok := item.(gatewayItem)
	if !ok {
		return
	}
	selected := index == m.Index()

	var b strings.Builder
	if selected {
		b.WriteString(SelectedLabelStyle.UnsetWidth().Render("→ " + gi.Title()))
	} else {
		b.WriteString("  " + gi.Title())
	}
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  URL:     %s\n", gi.gw.BaseURL()))
	b.WriteString(fmt.Sprintf("  Edition: %s", gi.gw.Edition()))

	style := CardStyle.Width(max(d.width-8, MinTerminalWidth-8))
	if selected {
		style = style.BorderForeground(HighlightColor)
	}
	_, _ = fmt.Fprint(w, style.Render(b.String()))
}

// GatewayPickerModel scans the local network for gateways and lets the
// operator pick one or type a URL.
type GatewayPickerModel struct {
	Scanning bool
	List     list.Model
	Err      error

	ManualMode bool
	URLInput   textinput.Model

	Width         int
	Height        int
	Spinner       spinner.Model
	ProgressBar   progress.Model
	ScanStartTime time.Time
	Timeout       time.Duration
	Help          help.Model
	Keys          pickerKeyMap
	ManualKeys    inputKeyMap

	chosen *discovery.Gateway
}

// NewGatewayPickerModel creates a picker that scans for timeout.
func NewGatewayPickerModel(timeout time.Duration) GatewayPickerModel {
	if timeout <= 0 {
		timeout = discovery.DefaultScanTimeout
	}
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	in := textinput.New()
	in.Placeholder = "http://192.168.1.50:9000"
	in.CharLimit = 120
	in.Width = 40

	l := list.New([]list.Item{}, gatewayDelegate{width: MinTerminalWidth}, 0, 0)
	l.Title = "Discovered Gateways"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.Styles.Title = TitleStyle

	return GatewayPickerModel{
		List:        l,
		URLInput:    in,
		Spinner:     s,
		ProgressBar: progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		Timeout:     timeout,
		Help:        help.New(),
		Keys: pickerKeyMap{
			Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "move up")),
			Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "move down")),
			Enter:  key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "use gateway")),
			Rescan: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "rescan")),
			Manual: key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "enter URL")),
			Quit:   key.NewBinding(key.WithKeys("q", "esc"), key.WithHelp("q", "quit")),
		},
		ManualKeys: inputKeyMap{
			Confirm: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "confirm")),
			Cancel:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		},
	}
}

// Selected returns the gateway the operator picked, if any.
func (m GatewayPickerModel) Selected() *discovery.Gateway {
	return m.chosen
}

// Init starts scanning immediately
func (m GatewayPickerModel) Init() tea.Cmd {
	return tea.Batch(
		func() tea.Msg { return scanStartMsg{} },
		scanGateways(m.Timeout),
		m.Spinner.Tick,
	)
}

// Update handles messages and updates the model
func (m GatewayPickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.ManualMode {
			return m.updateManualMode(msg)
		}
		return m.updateListMode(msg)

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.List.SetDelegate(gatewayDelegate{width: msg.Width})
		m.List.SetWidth(msg.Width - 4)
		m.List.SetHeight(msg.Height - 8)

	case scanStartMsg:
		m.Scanning = true
		m.ScanStartTime = time.Now()

	case scanCompleteMsg:
		m.Scanning = false
		m.Err = msg.err
		items := make([]list.Item, len(msg.gateways))
		for i, gw := range msg.gateways {
			items[i] = gatewayItem{gw: gw}
		}
		m.List.SetItems(items)

	case spinner.TickMsg:
		if !m.Scanning {
			return m, nil
		}
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m GatewayPickerModel) updateListMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.Keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.Keys.Enter):
		if item, ok := m.List.SelectedItem().(gatewayItem); ok {
			m.chosen = item.gw
			return m, tea.Quit
		}
		return m, nil

	case key.Matches(msg, m.Keys.Rescan):
		if m.Scanning {
			return m, nil
		}
		m.List.SetItems([]list.Item{})
		m.Err = nil
		return m, tea.Batch(
			func() tea.Msg { return scanStartMsg{} },
			scanGateways(m.Timeout),
			m.Spinner.Tick,
		)

	case key.Matches(msg, m.Keys.Manual):
		m.ManualMode = true
		m.URLInput.SetValue("")
		return m, m.URLInput.Focus()
	}

	var cmd tea.Cmd
	m.List, cmd = m.List.Update(msg)
	return m, cmd
}

func (m GatewayPickerModel) updateManualMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.ManualKeys.Cancel):
		m.ManualMode = false
		m.URLInput.Blur()
		return m, nil

	case key.Matches(msg, m.ManualKeys.Confirm):
		gw, err := manualGateway(m.URLInput.Value())
		if err != nil {
			m.Err = err
			return m, nil
		}
		m.Err = nil
		items := append([]list.Item{gatewayItem{gw: gw}}, m.List.Items()...)
		m.List.SetItems(items)
		m.List.Select(0)
		m.ManualMode = false
		m.URLInput.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.URLInput, cmd = m.URLInput.Update(msg)
	return m, cmd
}

// manualGateway builds a gateway entry from a typed URL or host[:port].
func manualGateway(raw string) (*discovery.Gateway, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("enter a gateway URL")
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return nil, fmt.Errorf("invalid gateway URL %q", raw)
	}
	port := discovery.DefaultPort
	if p := u.Port(); p != "" {
		if port, err = strconv.Atoi(p); err != nil {
			return nil, fmt.Errorf("invalid port in %q", raw)
		}
	}
	return &discovery.Gateway{
		Hostname:     u.Hostname(),
		IP:           u.Hostname(),
		Port:         port,
		DiscoveredAt: time.Now(),
	}, nil
}

// View renders the picker screen
func (m GatewayPickerModel) View() string {
	width := CalculateBoxWidth(m.Width)

	var content, helpText string
	switch {
	case m.ManualMode:
		content = m.renderManualEntry()
		helpText = m.Help.View(m.ManualKeys)
	case m.Scanning:
		content = m.renderScanning(width)
		helpText = "scanning... ctrl+c quits"
	default:
		content = m.renderResults()
		helpText = m.Help.View(m.Keys)
	}

	return RenderApplicationContainer(HeaderInfo{}, content, helpText, m.Width, m.Height)
}

func (m GatewayPickerModel) renderScanning(width int) string {
	elapsed := time.Since(m.ScanStartTime)
	pct := float64(elapsed) / float64(m.Timeout)
	if pct > 1 {
		pct = 1
	}

	content := lipgloss.JoinVertical(lipgloss.Center,
		"",
		TitleStyle.Render(m.Spinner.View()+" SEARCHING FOR GATEWAYS"),
		"",
		SubtitleStyle.Render("Browsing "+discovery.ServiceType+" on the local network..."),
		"",
		m.ProgressBar.ViewAs(pct),
		"",
		SubtitleStyle.Render(fmt.Sprintf("Elapsed: %ds", int(elapsed.Seconds()))),
	)
	return lipgloss.Place(width, 0, lipgloss.Center, lipgloss.Top, content)
}

func (m GatewayPickerModel) renderResults() string {
	var b strings.Builder
	b.WriteString("\n")

	if m.Err != nil {
		b.WriteString(RenderError(fmt.Sprintf("Scan failed: %v", m.Err)))
		b.WriteString("\n\n")
	}
	if len(m.List.Items()) == 0 {
		b.WriteString("  ")
		b.WriteString(NoticeStyle.Bold(true).Render("⚠ No gateways found on your network"))
		b.WriteString("\n\n")
		b.WriteString("  Troubleshooting:\n")
		b.WriteString("    • Ensure the gateway is powered on and connected\n")
		b.WriteString("    • Check that this machine is on the gateway's subnet\n")
		b.WriteString("    • Press m to enter the gateway URL by hand\n")
		return b.String()
	}
	b.WriteString(m.List.View())
	return b.String()
}

func (m GatewayPickerModel) renderManualEntry() string {
	var b strings.Builder
	b.WriteString(SubtitleStyle.Render("Enter gateway URL"))
	b.WriteString("\n\n  URL: ")
	b.WriteString(m.URLInput.View())
	b.WriteString("\n\n")
	if m.Err != nil {
		b.WriteString(RenderError(m.Err.Error()))
		b.WriteString("\n")
	}
	return b.String()
}

func scanGateways(timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		gws, err := discovery.Scan(context.Background(), timeout)
		return scanCompleteMsg{gateways: gws, err: err}
	}
}
