package tui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tcam/gwcfg/internal/api"
	"github.com/tcam/gwcfg/internal/catalog"
	"github.com/tcam/gwcfg/internal/flows"
	"github.com/tcam/gwcfg/internal/server"
	"github.com/tcam/gwcfg/internal/submit"
	"github.com/tcam/gwcfg/internal/wizard"
)

var specialKeys = map[string]tea.KeyType{
	"enter":     tea.KeyEnter,
	"tab":       tea.KeyTab,
	"shift+tab": tea.KeyShiftTab,
	"esc":       tea.KeyEsc,
	"up":        tea.KeyUp,
	"down":      tea.KeyDown,
	"left":      tea.KeyLeft,
	"right":     tea.KeyRight,
}

func keyMsg(k string) tea.KeyMsg {
	if t, ok := specialKeys[k]; ok {
		return tea.KeyMsg{Type: t}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func press(m WizardModel, keys ...string) WizardModel {
	for _, k := range keys {
		next, _ := m.Update(keyMsg(k))
		m = next.(WizardModel)
	}
	return m
}

func newRuleModel(b api.Backend) WizardModel {
	m := NewWizardModel(context.Background(), wizard.NewSession(flows.Rule()), b, HeaderInfo{Gateway: "http://localhost:9000"})
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return next.(WizardModel)
}

// fillRule completes both editing steps of a rule session.
func fillRule(t *testing.T, s *wizard.Session) {
	t.Helper()
	s.SetField(flows.FieldName, "Lights on")
	require.NoError(t, s.SetItemField(flows.FieldConditions, 0, flows.FieldType, catalog.TypeTimer))
	require.NoError(t, s.SetItemField(flows.FieldConditions, 0, flows.FieldTimer, "timer-001"))
	require.NoError(t, s.SetItemField(flows.FieldConditions, 0, flows.FieldTimerState, "1"))
	s.SetField(flows.FieldActionName, "Turn On Lights")
	for k, v := range map[wizard.FieldKey]string{flows.FieldDevice: "Device-003", flows.FieldParameter: "brightness", flows.FieldValue: "100"} {
		require.NoError(t, s.SetItemField(flows.FieldControls, 0, k, v))
	}
}

func TestWizardRejectsIncompleteStep(t *testing.T) {
	m := press(newRuleModel(server.NewStore()), "tab")

	assert.Equal(t, 0, m.Session.Current())
	require.NotEmpty(t, m.checked.Errors)
	assert.True(t, m.checked.Invalid.Has(flows.FieldName))
	assert.Contains(t, m.View(), "Rule Name")
}

func TestWizardTypesIntoField(t *testing.T) {
	m := press(newRuleModel(server.NewStore()), "enter")
	require.True(t, m.editing)

	m = press(m, "Lights on", "enter")
	assert.False(t, m.editing)
	assert.Equal(t, "Lights on", m.Session.Get(flows.FieldName))

	// esc abandons the edit
	m = press(m, "enter", "x", "esc")
	assert.Equal(t, "Lights on", m.Session.Get(flows.FieldName))
}

func TestWizardCyclesSelect(t *testing.T) {
	m := press(newRuleModel(server.NewStore()), "down")
	require.Equal(t, "Warning", m.Session.Get(flows.FieldSeverity))

	m = press(m, "right")
	assert.Equal(t, "Info", m.Session.Get(flows.FieldSeverity))

	m = press(m, "right")
	assert.Equal(t, "Critical", m.Session.Get(flows.FieldSeverity), "wraps around")

	m = press(m, "left")
	assert.Equal(t, "Info", m.Session.Get(flows.FieldSeverity))
}

func TestWizardItemRowsFollowDiscriminant(t *testing.T) {
	m := newRuleModel(server.NewStore())

	keys := func() []wizard.FieldKey {
		var out []wizard.FieldKey
		for _, r := range buildRows(m.Session) {
			if r.list == flows.FieldConditions && r.kind == rowField {
				out = append(out, r.key)
			}
		}
		return out
	}
	assert.Contains(t, keys(), flows.FieldDevice)
	assert.NotContains(t, keys(), flows.FieldTimer)

	// name, severity, logic, item heading, type
	m = press(m, "down", "down", "down", "down", "right")
	assert.Equal(t, catalog.TypeTimer, m.Session.Items(flows.FieldConditions)[0].String(flows.FieldType))
	assert.Contains(t, keys(), flows.FieldTimer)
	assert.NotContains(t, keys(), flows.FieldDevice)
}

func TestWizardAddAndRemoveItems(t *testing.T) {
	m := press(newRuleModel(server.NewStore()), "a")
	require.Len(t, m.Session.Items(flows.FieldConditions), 2)

	rows := buildRows(m.Session)
	require.Equal(t, rowItem, rows[m.cursor].kind, "cursor moves to the new item")
	assert.Equal(t, 1, rows[m.cursor].index)

	m = press(m, "x")
	assert.Len(t, m.Session.Items(flows.FieldConditions), 1)

	// the last condition cannot go
	m = press(m, "up", "up", "x")
	assert.Len(t, m.Session.Items(flows.FieldConditions), 1)
	assert.Contains(t, m.notice, "Cannot remove")
}

func TestWizardReviewAndSubmit(t *testing.T) {
	store := server.NewFixtureStore()
	m := newRuleModel(store)
	fillRule(t, m.Session)

	m = press(m, "tab", "tab")
	require.True(t, m.Session.IsLast())
	assert.Contains(t, m.View(), "Turn On Lights")

	m = press(m, "s")
	require.Equal(t, wizard.PhaseSubmitting, m.Session.Phase())
	require.NotNil(t, m.stream)

	// keys are ignored while the plan runs
	m = press(m, "q")
	assert.Equal(t, wizard.PhaseSubmitting, m.Session.Phase())

	for res := range m.stream {
		next, _ := m.Update(snapshotMsg{res: res})
		m = next.(WizardModel)
	}

	assert.Equal(t, wizard.PhaseSucceeded, m.Session.Phase())
	res, ok := m.Outcome()
	require.True(t, ok)
	assert.Equal(t, submit.StatusSuccess, res.Status)
	assert.Len(t, store.Rules(), 1)
	assert.Contains(t, m.View(), "Add Rule complete")

	m = press(m, "r")
	assert.Equal(t, wizard.PhaseEditing, m.Session.Phase())
	assert.Equal(t, 0, m.Session.Current())
	assert.Empty(t, m.Session.Get(flows.FieldName))
}

func TestCtrlCWaitsForSubmission(t *testing.T) {
	store := server.NewFixtureStore()
	m := newRuleModel(store)
	fillRule(t, m.Session)
	m = press(m, "tab", "tab", "s")
	require.Equal(t, wizard.PhaseSubmitting, m.Session.Phase())

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	m = next.(WizardModel)
	assert.Nil(t, cmd, "ctrl+c must not quit mid-submission")
	assert.Equal(t, wizard.PhaseSubmitting, m.Session.Phase())
	assert.Contains(t, m.View(), "then exiting")

	var last tea.Cmd
	for res := range m.stream {
		next, cmd := m.Update(snapshotMsg{res: res})
		m = next.(WizardModel)
		if res.Status != submit.StatusActive {
			last = cmd
		}
	}

	assert.Equal(t, wizard.PhaseSucceeded, m.Session.Phase())
	assert.Len(t, store.Rules(), 1)
	require.NotNil(t, last)
	assert.IsType(t, tea.QuitMsg{}, last())
}

func TestWizardFailureKeepsValues(t *testing.T) {
	store := server.NewStore()
	store.FailNext("CreateRule", api.NewHTTPError(409, "Rule already exists"))

	m := newRuleModel(store)
	fillRule(t, m.Session)
	m = press(m, "tab", "tab", "s")

	for res := range m.stream {
		next, _ := m.Update(snapshotMsg{res: res})
		m = next.(WizardModel)
	}
	require.Equal(t, wizard.PhaseFailed, m.Session.Phase())
	view := m.View()
	assert.True(t, strings.Contains(view, "Rule already exists"), view)

	m = press(m, "enter")
	assert.Equal(t, wizard.PhaseEditing, m.Session.Phase())
	assert.True(t, m.Session.IsLast())
	assert.Equal(t, "Lights on", m.Session.Get(flows.FieldName))
}

func TestWizardSubmitJumpsToInvalidStep(t *testing.T) {
	m := newRuleModel(server.NewStore())
	fillRule(t, m.Session)
	m = press(m, "tab", "tab")

	m.Session.SetField(flows.FieldName, "")
	m = press(m, "s")

	assert.Equal(t, wizard.PhaseEditing, m.Session.Phase())
	assert.Equal(t, 0, m.Session.Current())
	assert.True(t, m.checked.Invalid.Has(flows.FieldName))
}

func TestDeviceModelLoadsParameters(t *testing.T) {
	store := server.NewFixtureStore()
	m := NewWizardModel(context.Background(), wizard.NewSession(flows.Device(nil)), store, HeaderInfo{})

	next, cmd := m.choose(buildRows(m.Session)[0], "T-OCC-01")
	m = next.(WizardModel)
	require.NotNil(t, cmd)

	next, _ = m.Update(cmd())
	m = next.(WizardModel)
	assert.Len(t, m.Session.Items(flows.FieldParameters), 2)
	assert.Contains(t, m.notice, "Loaded 2 parameters")
}

func TestManualGateway(t *testing.T) {
	gw, err := manualGateway("192.168.1.50")
	require.NoError(t, err)
	assert.Equal(t, "http://192.168.1.50:9000", gw.BaseURL())

	gw, err = manualGateway("http://gw.local:8080/")
	require.NoError(t, err)
	assert.Equal(t, 8080, gw.Port)

	_, err = manualGateway("  ")
	assert.Error(t, err)
	_, err = manualGateway("http://gw:notaport")
	assert.Error(t, err)
}
