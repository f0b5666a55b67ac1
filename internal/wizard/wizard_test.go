package wizard

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tcam/gwcfg/internal/catalog"
)

func testParameterDef() *Definition {
	specs := []FieldSpec{
		{Key: "name", Label: "Parameter Name", Rules: "max=50"},
		{Key: "attributeName", Label: "Attribute Name", Rules: "ident"},
		{Key: "unit", Label: "Unit", Type: SelectField, Options: catalog.Units},
		{Key: "rw", Label: "RW", Type: SelectField, Options: catalog.Access, Default: catalog.AccessRead},
		{Key: "lowerLimit", Label: "Lower Limit", Type: NumberField},
		{Key: "upperLimit", Label: "Upper Limit", Type: NumberField},
		{Key: "sourceType", Label: "Source Interface", Type: SelectField, Options: catalog.Sources, Default: catalog.SourceModbus},
		{Key: "address", Label: "Register Address", Type: IntegerField, Rules: "gte=0,lte=65535"},
		{Key: "len", Label: "Length", Type: IntegerField},
		{Key: "readFC", Label: "Read Function Code", Type: SelectField, Options: catalog.ReadFunctionCodes},
		{Key: "writeFC", Label: "Write Function Code", Type: SelectField, Options: catalog.WriteFunctionCodes},
		{Key: "scaler", Label: "Scaler", Type: NumberField},
		{Key: "pollSpeed", Label: "Polling Speed", Type: SelectField, Options: catalog.PollSpeeds},
		{Key: "pin", Label: "Pin", Type: SelectField, Options: catalog.Pins},
		{Key: "invert", Label: "Invert", Type: SelectField, Options: catalog.Invert},
		{Key: "enable", Label: "Enable", Type: SelectField, Options: catalog.Enable},
		{Key: "sensitivity", Label: "Sensitivity", Type: NumberField},
	}
	return NewDefinition(KindParameter, "Add Parameter", specs,
		StepDefinition{
			Name:     "Basic Info",
			Fields:   []FieldKey{"name", "attributeName", "unit", "rw", "sourceType"},
			Required: []FieldKey{"name", "attributeName", "sourceType"},
			Conditionals: []ConditionalRule{{
				Discriminant: "rw",
				Shown:        map[string][]FieldKey{catalog.AccessReadWrite: {"lowerLimit", "upperLimit"}},
				Required:     map[string][]FieldKey{catalog.AccessReadWrite: {"lowerLimit", "upperLimit"}},
			}},
			Limit: &LimitRule{Lower: "lowerLimit", Upper: "upperLimit", Discriminant: "rw", When: catalog.AccessReadWrite},
		},
		StepDefinition{
			Name: "Source Config",
			Conditionals: []ConditionalRule{{
				Discriminant: "sourceType",
				Shown: map[string][]FieldKey{
					catalog.SourceModbus: {"address", "len", "readFC", "writeFC", "scaler", "pollSpeed"},
					catalog.SourceDI:     {"pin", "invert", "enable"},
					catalog.SourceAI:     {"pin", "unit", "scaler", "sensitivity", "enable"},
				},
				Required: map[string][]FieldKey{
					catalog.SourceModbus: {"address", "len", "readFC", "writeFC"},
					catalog.SourceDI:     {"pin", "invert", "enable"},
					catalog.SourceAI:     {"pin", "unit", "enable"},
				},
				Defaults: map[string]map[FieldKey]string{
					catalog.SourceModbus: {"len": "1", "scaler": "0.1", "pollSpeed": "1"},
					catalog.SourceAI:     {"scaler": "1", "sensitivity": "0.1"},
				},
			}},
		},
	)
}

func testModelDef() *Definition {
	specs := []FieldSpec{
		{Key: "brand", Label: "Brand", Rules: "max=50"},
		{Key: "interface", Label: "Interface", Type: IntegerField, Default: "1", Rules: "gte=0,lte=256"},
		{Key: "parameters", Label: "parameters", Type: ListField},
	}
	return NewDefinition(KindModel, "Add Model", specs,
		StepDefinition{Name: "Model Info", Fields: []FieldKey{"brand", "interface"}, Required: []FieldKey{"brand", "interface"}},
		StepDefinition{Name: "Parameters", Lists: []ListSpec{{Key: "parameters", Min: 1, Item: testParameterDef(), TitleField: "name"}}},
		StepDefinition{Name: "Review", Review: true},
	)
}

func fillModbusBasics(s *Session) {
	s.SetField("name", "Temperature")
	s.SetField("attributeName", "temp")
}

func TestDefinitionsAreWellFormed(t *testing.T) {
	require.NoError(t, testParameterDef().Check())
	require.NoError(t, testModelDef().Check())

	bad := NewDefinition(KindRule, "bad", nil, StepDefinition{Name: "x", Required: []FieldKey{"missing"}})
	err := bad.Check()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownField))
}

func TestNewSessionSeedsDefaults(t *testing.T) {
	s := NewSession(testParameterDef())

	assert.Equal(t, 0, s.Current())
	assert.Equal(t, PhaseEditing, s.Phase())
	assert.Equal(t, catalog.AccessRead, s.Get("rw"))
	assert.Equal(t, catalog.SourceModbus, s.Get("sourceType"))
	assert.Equal(t, "1", s.Get("pollSpeed"), "modbus branch default")
	assert.NotEmpty(t, s.ID)
}

func TestNextRequiresValidStep(t *testing.T) {
	s := NewSession(testParameterDef())
	before := s.Fields()

	res, err := s.Next()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStepInvalid))
	assert.True(t, res.Invalid.Has("name"))
	assert.True(t, res.Invalid.Has("attributeName"))
	assert.Equal(t, 0, s.Current())
	assert.Equal(t, before, s.Fields(), "rejected navigation must not mutate fields")

	fillModbusBasics(s)
	res, err = s.Next()
	require.NoError(t, err)
	assert.True(t, res.Valid())
	assert.Equal(t, 1, s.Current())
}

func TestGoToStepCannotSkip(t *testing.T) {
	s := NewSession(testModelDef())
	s.SetField("brand", "TCAM")

	_, err := s.GoToStep(2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStepLocked))
	assert.Equal(t, 0, s.Current())

	_, err = s.GoToStep(9)
	assert.True(t, errors.Is(err, ErrStepRange))
}

func TestModbusMissingReadFC(t *testing.T) {
	s := NewSession(testParameterDef())
	fillModbusBasics(s)
	_, err := s.Next()
	require.NoError(t, err)

	s.SetField("address", "40001")
	s.SetField("writeFC", "6")

	res := s.Validate(1)
	assert.False(t, res.Valid())
	assert.Equal(t, []FieldKey{"readFC"}, res.Invalid.Sorted())

	s.SetField("readFC", "3")
	assert.True(t, s.Validate(1).Valid())
}

func TestLimitOrderIsOneCombinedError(t *testing.T) {
	s := NewSession(testParameterDef())
	fillModbusBasics(s)
	s.SetField("rw", catalog.AccessReadWrite)
	s.SetField("lowerLimit", "10")
	s.SetField("upperLimit", "5")

	res := s.Validate(0)
	require.Len(t, res.Errors, 1)
	assert.ElementsMatch(t, []FieldKey{"lowerLimit", "upperLimit"}, res.Errors[0].Fields)
	assert.True(t, res.Invalid.Has("lowerLimit"))
	assert.True(t, res.Invalid.Has("upperLimit"))

	s.SetField("lowerLimit", "0")
	s.SetField("upperLimit", "100")
	assert.True(t, s.Validate(0).Valid())
}

func TestLimitsRejectNonFiniteNumbers(t *testing.T) {
	tests := []struct {
		lower, upper string
	}{
		{"NaN", "5"},
		{"10", "+Inf"},
		{"-Inf", "5"},
		{"0", "nan"},
	}
	for _, tt := range tests {
		s := NewSession(testParameterDef())
		fillModbusBasics(s)
		s.SetField("rw", catalog.AccessReadWrite)
		s.SetField("lowerLimit", tt.lower)
		s.SetField("upperLimit", tt.upper)

		res, err := s.Next()
		require.Error(t, err, "lower=%s upper=%s", tt.lower, tt.upper)
		assert.Equal(t, 0, s.Current())
		assert.True(t, res.Invalid.Has("lowerLimit"), "lower=%s upper=%s", tt.lower, tt.upper)
		assert.True(t, res.Invalid.Has("upperLimit"), "lower=%s upper=%s", tt.lower, tt.upper)
	}
}

func TestItemRejectsFractionalAddress(t *testing.T) {
	s := NewSession(testModelDef())
	s.SetField("brand", "TCAM")
	_, err := s.Next()
	require.NoError(t, err)

	for k, v := range map[FieldKey]string{"name": "Temperature", "attributeName": "temp", "address": "30.5", "readFC": "3", "writeFC": "0"} {
		require.NoError(t, s.SetItemField("parameters", 0, k, v))
	}
	res, err := s.Next()
	require.Error(t, err)
	assert.Equal(t, 1, s.Current())
	assert.Equal(t, []FieldKey{"parameters[0].address"}, res.Invalid.Sorted())

	require.NoError(t, s.SetItemField("parameters", 0, "address", "30"))
	_, err = s.Next()
	require.NoError(t, err)
}

func TestLimitsOnlyCheckedWhenWritable(t *testing.T) {
	s := NewSession(testParameterDef())
	fillModbusBasics(s)
	s.SetField("lowerLimit", "10")
	s.SetField("upperLimit", "5")

	assert.True(t, s.Validate(0).Valid(), "read-only parameters ignore limits")

	s.SetField("rw", catalog.AccessReadWrite)
	s.SetField("lowerLimit", "")
	res := s.Validate(0)
	assert.True(t, res.Invalid.Has("lowerLimit"), "limits are required when writable")
}

func TestDiscriminantClearsOnlyExclusiveFields(t *testing.T) {
	s := NewSession(testParameterDef())
	s.SetField("unit", "°C")
	s.SetField("address", "40001")
	s.SetField("readFC", "3")
	s.SetField("scaler", "0.5")

	s.SetField("sourceType", catalog.SourceAI)

	assert.Equal(t, "", s.Get("address"), "modbus-only field cleared")
	assert.Equal(t, "", s.Get("readFC"), "modbus-only field cleared")
	assert.Equal(t, "0.5", s.Get("scaler"), "shared field kept")
	assert.Equal(t, "°C", s.Get("unit"), "unconditional field kept")
	assert.Equal(t, "0.1", s.Get("sensitivity"), "AI default seeded")

	s.SetField("sourceType", catalog.SourceAI)
	assert.Equal(t, "0.5", s.Get("scaler"), "same value is not a switch")
}

func TestBackIsNonDestructive(t *testing.T) {
	s := NewSession(testParameterDef())
	fillModbusBasics(s)
	atStep0 := s.Fields()

	_, err := s.Next()
	require.NoError(t, err)
	s.SetField("address", "1")
	atStep1 := s.Fields()

	assert.True(t, s.Back())
	assert.Equal(t, atStep1, s.Fields())
	assert.Equal(t, atStep0["name"], s.Fields()["name"])

	_, err = s.Next()
	require.NoError(t, err)
	assert.Equal(t, atStep1, s.Fields())

	assert.True(t, s.Back())
	assert.False(t, s.Back(), "back at step 0 is a no-op")
	assert.Equal(t, 0, s.Current())
}

func TestRemoveItemHonoursMinimum(t *testing.T) {
	s := NewSession(testModelDef())
	require.Len(t, s.Items("parameters"), 1, "lists start at their minimum")

	err := s.RemoveItem("parameters", 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrListMinimum))
	assert.Len(t, s.Items("parameters"), 1)
	assert.False(t, s.CanRemove("parameters"))

	idx, err := s.AddItem("parameters", Fields{"name": "Humidity", "sourceType": catalog.SourceDI})
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
	assert.True(t, s.CanRemove("parameters"))
	items := s.Items("parameters")
	assert.Equal(t, "", items[1].String("pollSpeed"), "DI item does not keep modbus defaults")

	require.NoError(t, s.RemoveItem("parameters", 0))
	items = s.Items("parameters")
	require.Len(t, items, 1)
	assert.Equal(t, "Humidity", items[0].String("name"))

	assert.True(t, errors.Is(s.RemoveItem("parameters", 5), ErrItemRange))
}

func TestSetItemsReplacesList(t *testing.T) {
	s := NewSession(testModelDef())

	err := s.SetItems("parameters", nil)
	assert.True(t, errors.Is(err, ErrListMinimum))
	assert.Len(t, s.Items("parameters"), 1)

	require.NoError(t, s.SetItems("parameters", []Fields{
		{"name": "Voltage"},
		{"name": "Input", "sourceType": catalog.SourceDI},
	}))
	items := s.Items("parameters")
	require.Len(t, items, 2)
	assert.Equal(t, "1", items[0].String("len"), "items get their defaults")
	assert.Equal(t, "", items[1].String("len"))
}

func TestItemValidationUsesItemKeys(t *testing.T) {
	s := NewSession(testModelDef())
	s.SetField("brand", "TCAM")
	_, err := s.Next()
	require.NoError(t, err)

	require.NoError(t, s.SetItemField("parameters", 0, "name", "Temperature"))
	require.NoError(t, s.SetItemField("parameters", 0, "attributeName", "temp"))
	require.NoError(t, s.SetItemField("parameters", 0, "address", "1"))
	require.NoError(t, s.SetItemField("parameters", 0, "writeFC", "0"))

	res, err := s.Next()
	require.Error(t, err)
	assert.Equal(t, []FieldKey{"parameters[0].readFC"}, res.Invalid.Sorted())

	require.NoError(t, s.SetItemField("parameters", 0, "readFC", "4"))
	_, err = s.Next()
	require.NoError(t, err)
	assert.True(t, s.IsLast())
}

func TestFieldRules(t *testing.T) {
	s := NewSession(testModelDef())
	s.SetField("brand", "an extremely long brand name that goes well past fifty chars")
	s.SetField("interface", "300")

	res := s.Validate(0)
	assert.True(t, res.Invalid.Has("brand"))
	assert.True(t, res.Invalid.Has("interface"))

	s.SetField("interface", "abc")
	res = s.Validate(0)
	require.True(t, res.Invalid.Has("interface"))
	assert.Contains(t, res.Err().Error(), "must be a whole number")

	s.SetField("interface", "1.5")
	res = s.Validate(0)
	require.True(t, res.Invalid.Has("interface"))
	assert.Contains(t, res.Err().Error(), "must be a whole number")

	p := NewSession(testParameterDef())
	p.SetField("name", "x")
	p.SetField("attributeName", "9bad attr")
	p.SetField("unit", "furlongs")
	res = p.Validate(0)
	assert.True(t, res.Invalid.Has("attributeName"))
	assert.True(t, res.Invalid.Has("unit"))
}

func completeModelSession(t *testing.T) *Session {
	t.Helper()
	s := NewSession(testModelDef())
	s.SetField("brand", "TCAM")
	_, err := s.Next()
	require.NoError(t, err)
	for k, v := range map[FieldKey]string{"name": "Temperature", "attributeName": "temp", "address": "1", "readFC": "3", "writeFC": "0"} {
		require.NoError(t, s.SetItemField("parameters", 0, k, v))
	}
	_, err = s.Next()
	require.NoError(t, err)
	return s
}

func TestSubmitLifecycle(t *testing.T) {
	s := completeModelSession(t)

	_, err := s.BeginSubmit()
	require.NoError(t, err)
	assert.Equal(t, PhaseSubmitting, s.Phase())

	_, err = s.Next()
	assert.True(t, errors.Is(err, ErrPhase), "no navigation while submitting")
	assert.True(t, errors.Is(s.Reset(), ErrPhase))

	s.Fail(errors.New("model rejected"))
	assert.Equal(t, PhaseFailed, s.Phase())
	assert.EqualError(t, s.Err(), "model rejected")

	require.NoError(t, s.Dismiss())
	assert.Equal(t, PhaseEditing, s.Phase())
	assert.True(t, s.IsLast())
	assert.Equal(t, "TCAM", s.Get("brand"), "data retained after failure")

	_, err = s.BeginSubmit()
	require.NoError(t, err)
	s.Succeed()
	assert.Equal(t, PhaseSucceeded, s.Phase())

	require.NoError(t, s.Reset())
	assert.Equal(t, 0, s.Current())
	assert.Equal(t, "", s.Get("brand"), "data cleared on reset")
	assert.Equal(t, "1", s.Get("interface"), "defaults restored")
}

func TestBeginSubmitRequiresLastStep(t *testing.T) {
	s := NewSession(testModelDef())
	_, err := s.BeginSubmit()
	assert.True(t, errors.Is(err, ErrStepLocked))
	assert.True(t, errors.Is(s.Dismiss(), ErrPhase))
}

func TestSummarizeDoesNotMutate(t *testing.T) {
	s := completeModelSession(t)
	fields := s.Fields()
	before := fields.Clone()

	sum := Summarize(s.Definition(), fields)

	assert.Equal(t, before, fields)
	assert.Equal(t, "Add Model", sum.Title)
	require.Len(t, sum.Sections, 2, "review step is not projected")

	brand, ok := sum.Value("brand")
	require.True(t, ok)
	assert.Equal(t, "TCAM", brand)

	items := sum.Sections[1].Lists["parameters"]
	require.Len(t, items, 1)
	assert.Equal(t, "Temperature", items[0].Title)

	var readFC string
	for _, r := range items[0].Rows {
		if r.Key == "readFC" {
			readFC = r.Value
		}
	}
	assert.Equal(t, "3: Read Holding Registers", readFC)
}

func TestFieldsClone(t *testing.T) {
	f := Fields{"a": "1", "list": []Fields{{"x": "1"}}}
	cp := f.Clone()
	cp.List("list")[0]["x"] = "2"
	cp["a"] = "9"

	assert.Equal(t, "1", f.List("list")[0].String("x"))
	assert.Equal(t, "1", f.String("a"))
	assert.True(t, Fields{}.IsEmpty("missing"))
	assert.True(t, Fields{"s": "  "}.IsEmpty("s"))
	assert.Equal(t, FieldKey("parameters[2].pin"), ItemKey("parameters", 2, "pin"))
}
