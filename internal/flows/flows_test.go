package flows

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tcam/gwcfg/internal/api"
	"github.com/tcam/gwcfg/internal/catalog"
	"github.com/tcam/gwcfg/internal/server"
	"github.com/tcam/gwcfg/internal/submit"
	"github.com/tcam/gwcfg/internal/wizard"
)

func walkToLast(t *testing.T, s *wizard.Session) {
	t.Helper()
	for !s.IsLast() {
		_, err := s.Next()
		require.NoError(t, err, "step %d", s.Current())
	}
}

func modelIDOf(t *testing.T, b api.Reader, name string) int64 {
	t.Helper()
	id, err := resolveModelID(context.Background(), b, name)
	require.NoError(t, err)
	require.NotNil(t, id, "model %s", name)
	return *id
}

func TestDefinitionsAreWellFormed(t *testing.T) {
	for _, kind := range []wizard.Kind{wizard.KindModel, wizard.KindParameter, wizard.KindDevice, wizard.KindRule} {
		def, ok := For(kind, nil)
		require.True(t, ok, kind)
		assert.NoError(t, def.Check(), kind)
	}
	_, ok := For("alarm", nil)
	assert.False(t, ok)
}

func TestDeviceSubmission(t *testing.T) {
	ctx := context.Background()
	store := server.NewFixtureStore()
	s := wizard.NewSession(Device(nil))

	require.NoError(t, SelectModel(ctx, s, store, "T-OCC-01"))
	rows := s.Items(FieldParameters)
	require.Len(t, rows, 2)
	assert.Equal(t, "occupancy", rows[0].String(FieldParamName))
	assert.NotEmpty(t, rows[0].String(FieldParamID))
	assert.Equal(t, "1", rows[0].String(FieldSensitivity))

	_, err := s.Next()
	require.NoError(t, err)
	s.SetField(FieldName, "Gateway-1")
	s.SetField(FieldPriAddr, "5")
	walkToLast(t, s)

	var snapshots []submit.Result
	res, err := Submit(ctx, s, store, func(r submit.Result) { snapshots = append(snapshots, r) })
	require.NoError(t, err)

	assert.Equal(t, submit.StatusSuccess, res.Status)
	assert.Equal(t, 100, res.Percent)
	assert.Equal(t, 2, res.Succeeded)
	assert.Equal(t, wizard.PhaseSucceeded, s.Phase())
	for i := 1; i < len(snapshots); i++ {
		assert.GreaterOrEqual(t, snapshots[i].Percent, snapshots[i-1].Percent)
	}

	devCalls := store.CallsTo("CreateDevice")
	require.Len(t, devCalls, 1)
	dev := devCalls[0].Body.(api.CreateDeviceRequest)
	assert.Equal(t, "Gateway-1", dev.DeviceID)
	require.NotNil(t, dev.PriAddr)
	assert.Equal(t, "5", *dev.PriAddr)
	assert.Nil(t, dev.SecAddr)
	require.NotNil(t, dev.ModelID)
	assert.Equal(t, modelIDOf(t, store, "T-OCC-01"), *dev.ModelID)

	links := store.CallsTo("LinkDeviceParameter")
	require.Len(t, links, 2)
	for _, c := range links {
		assert.Equal(t, 1.0, c.Body.(api.LinkParameterRequest).Sensitivity)
	}
}

func TestDeviceUnlinkedRowsAreSkipped(t *testing.T) {
	ctx := context.Background()
	store := server.NewFixtureStore()
	s := wizard.NewSession(Device(nil))
	require.NoError(t, SelectModel(ctx, s, store, "T-EMS-01"))
	require.NoError(t, s.SetItemField(FieldParameters, 1, FieldLinked, "0"))
	s.SetField(FieldName, "Meter-9")
	walkToLast(t, s)

	res, err := Submit(ctx, s, store, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Succeeded)
	assert.Len(t, store.CallsTo("LinkDeviceParameter"), 2)
}

func TestDeviceWithUnregisteredModel(t *testing.T) {
	ctx := context.Background()
	store := server.NewStore()
	s := wizard.NewSession(Device(nil))
	require.NoError(t, SelectModel(ctx, s, store, "T-TEM-01"))
	s.SetField(FieldName, "Probe-1")
	walkToLast(t, s)

	res, err := Submit(ctx, s, store, nil)
	require.NoError(t, err)

	dev := store.CallsTo("CreateDevice")[0].Body.(api.CreateDeviceRequest)
	assert.Nil(t, dev.ModelID)
	assert.Equal(t, submit.StatusSuccess, res.Status)
	assert.Equal(t, 1, res.Failed, "template parameter without a registered ID cannot be linked")
	assert.Contains(t, res.ItemErrors()[0].Error(), `parameter "temperature" is not registered on the gateway`)
}

func fillModbus(t *testing.T, s *wizard.Session, index int, name, attr string) {
	t.Helper()
	for k, v := range map[wizard.FieldKey]string{
		FieldName: name, FieldAttribute: attr,
		FieldAddress: "3000", FieldReadFC: "3", FieldWriteFC: "0", FieldModbusDataType: "3",
	} {
		require.NoError(t, s.SetItemField(FieldParameters, index, k, v))
	}
}

func newModelSession(t *testing.T) *wizard.Session {
	t.Helper()
	s := wizard.NewSession(Model())
	s.SetField(FieldBrand, "Schneider")
	s.SetField(FieldModel, "PM5350")
	s.SetField(FieldDevType, "Power Meter")
	_, err := s.Next()
	require.NoError(t, err)
	return s
}

func TestModelSubmissionPassesModbusChannel(t *testing.T) {
	ctx := context.Background()
	store := server.NewStore()
	s := newModelSession(t)

	fillModbus(t, s, 0, "Voltage", "voltage")
	_, err := s.AddItem(FieldParameters, wizard.Fields{
		FieldName: "Alarm", FieldAttribute: "alarm", FieldSourceType: catalog.SourceDI,
		FieldPin: "P8_07", FieldInvert: "0",
	})
	require.NoError(t, err)
	walkToLast(t, s)

	res, err := Submit(ctx, s, store, nil)
	require.NoError(t, err)
	require.Equal(t, submit.StatusSuccess, res.Status)
	assert.Equal(t, 2, res.Succeeded)

	var ops []string
	for _, c := range store.Calls() {
		ops = append(ops, c.Op)
	}
	assert.Equal(t, []string{"CreateModel", "CreateModbusConfig", "CreateParameter", "CreateParameter"}, ops)

	calls := store.Calls()
	mb := calls[1].Body.(api.CreateModbusConfigRequest)
	assert.Equal(t, 3000, *mb.Reg)
	assert.Equal(t, 3, *mb.ReadFC)
	assert.Equal(t, 3, *mb.DataType)
	assert.Equal(t, 1, mb.DP)
	assert.Equal(t, 0.1, mb.Scaler)
	assert.Equal(t, 200, mb.Timeout)
	assert.Equal(t, "voltage", mb.Att)

	voltage := calls[2].Body.(api.CreateParameterRequest)
	require.NotNil(t, voltage.Channel)
	_, ok := store.ModbusConfig(*voltage.Channel)
	assert.True(t, ok, "channel must reference the modbus config")
	assert.Equal(t, 3, voltage.Source)
	assert.Nil(t, voltage.Bit)
	assert.Nil(t, voltage.LowerLimit)

	alarm := calls[3].Body.(api.CreateParameterRequest)
	assert.Nil(t, alarm.Channel)
	assert.Equal(t, 0, alarm.Source)
}

func TestModelPartialFailure(t *testing.T) {
	ctx := context.Background()
	store := server.NewStore()
	s := newModelSession(t)
	require.NoError(t, s.SetItems(FieldParameters, []wizard.Fields{
		{FieldName: "A", FieldAttribute: "a", FieldSourceType: catalog.SourceDI, FieldPin: "P8_07", FieldInvert: "0"},
		{FieldName: "B", FieldAttribute: "b", FieldSourceType: catalog.SourceDI, FieldPin: "P8_08", FieldInvert: "0"},
		{FieldName: "C", FieldAttribute: "c", FieldSourceType: catalog.SourceDI, FieldPin: "P8_09", FieldInvert: "1"},
	}))
	walkToLast(t, s)

	store.FailWhen("CreateParameter", func(c server.Call) bool {
		return c.Body.(api.CreateParameterRequest).Name == "B"
	}, errors.New("register map full"))

	res, err := Submit(ctx, s, store, nil)
	require.NoError(t, err)
	assert.Equal(t, submit.StatusSuccess, res.Status)
	assert.Equal(t, 2, res.Succeeded)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, "Completed: 2 succeeded, 1 failed", res.Text)
	require.Len(t, res.ItemErrors(), 1)
	assert.True(t, submit.IsItemFailure(res.ItemErrors()[0]))
	assert.Len(t, store.CallsTo("CreateParameter"), 3)
	assert.Equal(t, wizard.PhaseSucceeded, s.Phase())
}

func TestModelFailureIsFatalAndKeepsValues(t *testing.T) {
	ctx := context.Background()
	store := server.NewStore()
	s := newModelSession(t)
	fillModbus(t, s, 0, "Voltage", "voltage")
	walkToLast(t, s)

	store.FailNext("CreateModel", api.NewHTTPError(500, "database is locked"))

	res, err := Submit(ctx, s, store, nil)
	require.NoError(t, err)
	assert.Equal(t, submit.StatusException, res.Status)
	assert.True(t, submit.IsFatal(res.Err))
	assert.True(t, api.IsHTTPError(res.Err))
	assert.Empty(t, store.CallsTo("CreateParameter"))

	assert.Equal(t, wizard.PhaseFailed, s.Phase())
	require.NoError(t, s.Dismiss())
	assert.True(t, s.IsLast())
	assert.Equal(t, "Schneider", s.Get(FieldBrand))
	assert.Equal(t, "Voltage", s.Items(FieldParameters)[0].String(FieldName))

	// Resubmitting after the fault clears works.
	res, err = Submit(ctx, s, store, nil)
	require.NoError(t, err)
	assert.Equal(t, submit.StatusSuccess, res.Status)
}

func TestModbusReadFunctionCodeRequired(t *testing.T) {
	s := newModelSession(t)
	for k, v := range map[wizard.FieldKey]string{
		FieldName: "Voltage", FieldAttribute: "voltage",
		FieldAddress: "3000", FieldWriteFC: "0", FieldModbusDataType: "3",
	} {
		require.NoError(t, s.SetItemField(FieldParameters, 0, k, v))
	}

	res, err := s.Next()
	require.Error(t, err)
	assert.ErrorIs(t, err, wizard.ErrStepInvalid)
	assert.True(t, res.Invalid.Has("parameters[0].readFC"))
	assert.Contains(t, res.Err().Error(), "Read Function Code is required")
	assert.Equal(t, 1, s.Current())

	require.NoError(t, s.SetItemField(FieldParameters, 0, FieldReadFC, "7"))
	res, err = s.Next()
	require.Error(t, err)
	assert.Contains(t, res.Err().Error(), "Read Function Code must be one of")
}

func TestWholeNumberFieldsBlockTheirStep(t *testing.T) {
	s := wizard.NewSession(Model())
	s.SetField(FieldBrand, "Schneider")
	s.SetField(FieldModel, "PM5350")
	s.SetField(FieldDevType, "Power Meter")
	s.SetField(FieldInterface, "1.5")

	res, err := s.Next()
	require.ErrorIs(t, err, wizard.ErrStepInvalid)
	assert.Equal(t, []wizard.FieldKey{FieldInterface}, res.Invalid.Sorted())
	assert.Contains(t, res.Err().Error(), "Interface must be a whole number")

	s.SetField(FieldInterface, "1")
	_, err = s.Next()
	require.NoError(t, err)

	fillModbus(t, s, 0, "Voltage", "voltage")
	require.NoError(t, s.SetItemField(FieldParameters, 0, FieldAddress, "30.5"))
	res, err = s.Next()
	require.Error(t, err)
	assert.Equal(t, []wizard.FieldKey{"parameters[0].address"}, res.Invalid.Sorted())
	assert.Equal(t, 1, s.Current())

	require.NoError(t, s.SetItemField(FieldParameters, 0, FieldAddress, "30"))
	walkToLast(t, s)
	res2, err := Submit(context.Background(), s, server.NewStore(), nil)
	require.NoError(t, err)
	assert.Equal(t, submit.StatusSuccess, res2.Status)
}

func TestNonFiniteLimitsBlockTheirStep(t *testing.T) {
	for _, limits := range [][2]string{{"NaN", "5"}, {"10", "+Inf"}} {
		s := wizard.NewSession(Parameter(nil))
		s.SetField(FieldModel, "T-EMS-01")
		_, err := s.Next()
		require.NoError(t, err)

		s.SetField(FieldName, "Setpoint")
		s.SetField(FieldAttribute, "setpoint")
		s.SetField(FieldRW, catalog.AccessReadWrite)
		s.SetField(FieldLowerLimit, limits[0])
		s.SetField(FieldUpperLimit, limits[1])

		res, err := s.Next()
		require.Error(t, err, "limits %v", limits)
		assert.True(t, res.Invalid.Has(FieldLowerLimit), "limits %v", limits)
		assert.True(t, res.Invalid.Has(FieldUpperLimit), "limits %v", limits)
		assert.Equal(t, 1, s.Current())
	}
}

func TestLimitRuleAndBranchSwitch(t *testing.T) {
	s := wizard.NewSession(Parameter(nil))
	s.SetField(FieldModel, "T-EMS-01")
	_, err := s.Next()
	require.NoError(t, err)

	s.SetField(FieldName, "Setpoint")
	s.SetField(FieldAttribute, "setpoint")
	s.SetField(FieldRW, catalog.AccessReadWrite)
	s.SetField(FieldLowerLimit, "100")
	s.SetField(FieldUpperLimit, "10")

	res, err := s.Next()
	require.Error(t, err)
	assert.Contains(t, res.Err().Error(), "Lower Limit must be less than Upper Limit")
	assert.True(t, res.Invalid.Has(FieldLowerLimit))
	assert.True(t, res.Invalid.Has(FieldUpperLimit))

	s.SetField(FieldRW, catalog.AccessRead)
	assert.Empty(t, s.Get(FieldLowerLimit))
	assert.Empty(t, s.Get(FieldUpperLimit))
	_, err = s.Next()
	assert.NoError(t, err)
}

func TestParameterPlan(t *testing.T) {
	ctx := context.Background()
	store := server.NewFixtureStore()

	s := wizard.NewSession(Parameter(nil))
	s.SetField(FieldModel, "T-EMS-01")
	s.SetField(FieldName, "Frequency")
	s.SetField(FieldAttribute, "frequency")
	s.SetField(FieldAddress, "40")
	s.SetField(FieldReadFC, "4")
	s.SetField(FieldWriteFC, "0")
	s.SetField(FieldModbusDataType, "3")
	walkToLast(t, s)

	res, err := Submit(ctx, s, store, nil)
	require.NoError(t, err)
	require.Equal(t, submit.StatusSuccess, res.Status)

	params := store.CallsTo("CreateParameter")
	require.Len(t, params, 1)
	req := params[0].Body.(api.CreateParameterRequest)
	assert.Equal(t, modelIDOf(t, store, "T-EMS-01"), req.ModelID)
	assert.NotNil(t, req.Channel)

	// The same wizard against a gateway that does not know the model.
	s = wizard.NewSession(Parameter(nil))
	s.SetField(FieldModel, "T-EMS-01")
	s.SetField(FieldName, "Frequency")
	s.SetField(FieldAttribute, "frequency")
	s.SetField(FieldSourceType, catalog.SourceZigbee)
	walkToLast(t, s)

	empty := server.NewStore()
	res, err = Submit(ctx, s, empty, nil)
	require.NoError(t, err)
	assert.Equal(t, submit.StatusException, res.Status)
	assert.Contains(t, res.Err.Error(), `model "T-EMS-01" is not registered on the gateway`)
	assert.Empty(t, empty.Calls())
}

func TestSubmitBeforeLastStep(t *testing.T) {
	s := wizard.NewSession(Model())
	_, err := Submit(context.Background(), s, server.NewStore(), nil)
	assert.ErrorIs(t, err, wizard.ErrStepLocked)
	assert.Equal(t, wizard.PhaseEditing, s.Phase())
}

func TestDeviceRequestNulls(t *testing.T) {
	req, err := DeviceRequest(nil, wizard.Fields{
		FieldName: "Device-9", FieldModel: "T-TK-01",
		FieldSecAddr: "   ", FieldLogIntvl: "0", FieldX: "", FieldY: "1.5",
	})
	require.NoError(t, err)
	assert.Nil(t, req.SecAddr)
	assert.Equal(t, 0, *req.LogIntvl)
	assert.Nil(t, req.X)
	assert.Equal(t, 1.5, *req.Y)
	assert.Equal(t, "T-TK-01", *req.NodeID)

	data, err := json.Marshal(req)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"sec_addr":null`)
	assert.Contains(t, string(data), `"model_id":null`)

	_, err = DeviceRequest(nil, wizard.Fields{FieldName: "D", FieldX: "east"})
	assert.Error(t, err)
}

func TestParameterRequestLimitsOnlyForReadWrite(t *testing.T) {
	item := wizard.Fields{
		FieldName: "Setpoint", FieldAttribute: "setpoint", FieldRW: catalog.AccessRead,
		FieldLowerLimit: "1", FieldUpperLimit: "9", FieldBit: "4", FieldSourceType: catalog.SourceAI,
	}
	req, err := ParameterRequest(7, nil, item)
	require.NoError(t, err)
	assert.Nil(t, req.LowerLimit)
	assert.Equal(t, 4, *req.Bit)
	assert.Equal(t, 1, req.Source)

	item[FieldRW] = catalog.AccessReadWrite
	req, err = ParameterRequest(7, nil, item)
	require.NoError(t, err)
	assert.Equal(t, 1.0, *req.LowerLimit)
	assert.Equal(t, 9.0, *req.UpperLimit)
	assert.Equal(t, 1, req.RW)
}

func TestRuleSubmission(t *testing.T) {
	ctx := context.Background()
	store := server.NewFixtureStore()
	s := wizard.NewSession(Rule())

	s.SetField(FieldName, "Lights on when running")
	require.NoError(t, s.SetItemField(FieldConditions, 0, FieldType, catalog.TypeTimer))
	assert.Empty(t, s.Items(FieldConditions)[0].String(FieldMode), "device-only fields are cleared")
	require.NoError(t, s.SetItemField(FieldConditions, 0, FieldTimer, "timer-001"))
	require.NoError(t, s.SetItemField(FieldConditions, 0, FieldTimerState, "1"))

	_, err := s.AddItem(FieldConditions, wizard.Fields{
		FieldDevice: "Device-005", FieldParameter: "occupancy", FieldMode: catalog.ModeRef,
		FieldRefDevice: "Device-003", FieldRefParameter: "brightness",
	})
	require.NoError(t, err)
	_, err = s.Next()
	require.NoError(t, err)

	s.SetField(FieldActionName, "Turn On Lights")
	for k, v := range map[wizard.FieldKey]string{FieldDevice: "Device-003", FieldParameter: "brightness", FieldValue: "100"} {
		require.NoError(t, s.SetItemField(FieldControls, 0, k, v))
	}
	walkToLast(t, s)

	res, err := Submit(ctx, s, store, nil)
	require.NoError(t, err)
	require.Equal(t, submit.StatusSuccess, res.Status)

	rules := store.Rules()
	require.Len(t, rules, 1)
	r := rules[0]
	assert.Equal(t, "Warning", r.Severity)
	assert.Equal(t, "AND", r.Logic)
	require.Len(t, r.Conditions, 2)

	timer := r.Conditions[0]
	assert.Equal(t, "timer", timer.Type)
	assert.Equal(t, "timer-001", *timer.Timer)
	assert.Equal(t, 1, *timer.TimerState)
	assert.Equal(t, "==", timer.Operator)
	assert.Nil(t, timer.Device)

	ref := r.Conditions[1]
	assert.Equal(t, 2, ref.Mode)
	assert.Nil(t, ref.Value)
	assert.Equal(t, "Device-003", *ref.RefDevice)

	require.Len(t, r.Action.Controls, 1)
	assert.Equal(t, 100.0, *r.Action.Controls[0].Value)
	assert.Equal(t, 1, r.Action.Report)
}

func TestLoadAnswersModel(t *testing.T) {
	ctx := context.Background()
	answers := `
brand: Schneider
model: PM5350
devType: Power Meter
parameters:
  - name: Voltage
    attributeName: voltage
    sourceType: modbus
    address: 3000
    readFC: 3
    writeFC: 0
    modbusDataType: 3
  - name: Door
    attributeName: door
    sourceType: DI
    pin: P8_07
    invert: false
`
	s := wizard.NewSession(Model())
	require.NoError(t, LoadAnswers(ctx, strings.NewReader(answers), s, nil))
	assert.True(t, s.IsLast())

	items := s.Items(FieldParameters)
	require.Len(t, items, 2)
	assert.Equal(t, "3000", items[0].String(FieldAddress))
	assert.Equal(t, "1", items[0].String(FieldLen), "branch defaults are seeded")
	assert.Equal(t, "0", items[1].String(FieldInvert))
	assert.Equal(t, "1", items[1].String(FieldEnable))

	store := server.NewStore()
	res, err := Submit(ctx, s, store, nil)
	require.NoError(t, err)
	assert.Equal(t, submit.StatusSuccess, res.Status)
	assert.Equal(t, 2, res.Succeeded)
}

func TestLoadAnswersDeviceSeedsRows(t *testing.T) {
	ctx := context.Background()
	store := server.NewFixtureStore()
	s := wizard.NewSession(Device(nil))

	answers := "model: T-OCC-01\nname: Gateway-1\npriAddr: 5\nlogIntvl: 2\n"
	require.NoError(t, LoadAnswers(ctx, strings.NewReader(answers), s, store))
	assert.Len(t, s.Items(FieldParameters), 2)
	assert.Equal(t, "5", s.Get(FieldPriAddr))
}

func TestLoadAnswersRejects(t *testing.T) {
	ctx := context.Background()

	s := wizard.NewSession(Model())
	err := LoadAnswers(ctx, strings.NewReader("colour: red\n"), s, nil)
	assert.ErrorIs(t, err, wizard.ErrUnknownField)

	s = wizard.NewSession(Model())
	err = LoadAnswers(ctx, strings.NewReader("brand: Acme\nmodel: X\ndevType: meter\n"), s, nil)
	assert.ErrorIs(t, err, wizard.ErrStepInvalid, "the default parameter row is incomplete")
	assert.Equal(t, 1, s.Current())

	s = wizard.NewSession(Model())
	err = LoadAnswers(ctx, strings.NewReader("parameters: 3\n"), s, nil)
	assert.Error(t, err)
}

func TestModelCatalogMergesRegistered(t *testing.T) {
	c := ModelCatalog([]api.Model{{ID: 40, Model: "PM5350"}, {ID: 41, Model: "T8000"}})
	assert.True(t, c.Contains("PM5350"))
	assert.True(t, c.Contains("T-OCC-01"))

	count := 0
	for _, v := range c.Values() {
		if v == "T8000" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}
