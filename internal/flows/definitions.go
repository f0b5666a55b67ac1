package flows

import (
	"github.com/tcam/gwcfg/internal/catalog"
	"github.com/tcam/gwcfg/internal/wizard"
)

// Field keys shared by the wizards and the payload builders.
const (
	// model
	FieldBrand      wizard.FieldKey = "brand"
	FieldModel      wizard.FieldKey = "model"
	FieldDevType    wizard.FieldKey = "devType"
	FieldInterface  wizard.FieldKey = "interface"
	FieldParameters wizard.FieldKey = "parameters"

	// parameter
	FieldName        wizard.FieldKey = "name"
	FieldAttribute   wizard.FieldKey = "attributeName"
	FieldUnit        wizard.FieldKey = "unit"
	FieldBit         wizard.FieldKey = "bit"
	FieldDataType    wizard.FieldKey = "dataType"
	FieldRW          wizard.FieldKey = "rw"
	FieldLowerLimit  wizard.FieldKey = "lowerLimit"
	FieldUpperLimit  wizard.FieldKey = "upperLimit"
	FieldRuntime     wizard.FieldKey = "runtime"
	FieldDescription wizard.FieldKey = "description"
	FieldSourceType  wizard.FieldKey = "sourceType"

	// modbus branch
	FieldAddress        wizard.FieldKey = "address"
	FieldLen            wizard.FieldKey = "len"
	FieldReadFC         wizard.FieldKey = "readFC"
	FieldWriteFC        wizard.FieldKey = "writeFC"
	FieldModbusDataType wizard.FieldKey = "modbusDataType"
	FieldDP             wizard.FieldKey = "dp"
	FieldScaler         wizard.FieldKey = "scaler"
	FieldOffset         wizard.FieldKey = "offset"
	FieldTimeout        wizard.FieldKey = "timeout"
	FieldPollSpeed      wizard.FieldKey = "pollSpeed"

	// DI / DO / AI branches
	FieldPin          wizard.FieldKey = "pin"
	FieldInvert       wizard.FieldKey = "invert"
	FieldEnable       wizard.FieldKey = "enable"
	FieldDefaultValue wizard.FieldKey = "defaultValue"
	FieldSensitivity  wizard.FieldKey = "sensitivity"

	// device
	FieldPriAddr     wizard.FieldKey = "priAddr"
	FieldSecAddr     wizard.FieldKey = "secAddr"
	FieldTerAddr     wizard.FieldKey = "terAddr"
	FieldLogIntvl    wizard.FieldKey = "logIntvl"
	FieldReportIntvl wizard.FieldKey = "reportIntvl"
	FieldHealthIntvl wizard.FieldKey = "healthIntvl"
	FieldLocID       wizard.FieldKey = "locId"
	FieldLocName     wizard.FieldKey = "locName"
	FieldLocSubname  wizard.FieldKey = "locSubname"
	FieldLocBlk      wizard.FieldKey = "locBlk"
	FieldLocUnit     wizard.FieldKey = "locUnit"
	FieldPostalCode  wizard.FieldKey = "postalCode"
	FieldLocAddr     wizard.FieldKey = "locAddr"
	FieldX           wizard.FieldKey = "x"
	FieldY           wizard.FieldKey = "y"
	FieldH           wizard.FieldKey = "h"
	FieldFwVer       wizard.FieldKey = "fwVer"
	FieldEn          wizard.FieldKey = "en"
	FieldParamName   wizard.FieldKey = "paramName"
	FieldParamID     wizard.FieldKey = "paramId"
	FieldLinked      wizard.FieldKey = "linked"

	// rule
	FieldSeverity      wizard.FieldKey = "severity"
	FieldLogic         wizard.FieldKey = "conditionLogic"
	FieldConditions    wizard.FieldKey = "conditions"
	FieldType          wizard.FieldKey = "type"
	FieldDevice        wizard.FieldKey = "device"
	FieldParameter     wizard.FieldKey = "parameter"
	FieldOperator      wizard.FieldKey = "operator"
	FieldMode          wizard.FieldKey = "mode"
	FieldValue         wizard.FieldKey = "value"
	FieldRefDevice     wizard.FieldKey = "refDevice"
	FieldRefParameter  wizard.FieldKey = "refParameter"
	FieldTimer         wizard.FieldKey = "timer"
	FieldTimerState    wizard.FieldKey = "timerState"
	FieldTimerOperator wizard.FieldKey = "timerOperator"
	FieldTimerAction   wizard.FieldKey = "timerAction"
	FieldActionName    wizard.FieldKey = "actionName"
	FieldReport        wizard.FieldKey = "report"
	FieldLog           wizard.FieldKey = "log"
	FieldControls      wizard.FieldKey = "controls"
)

// Submit-time fallbacks for empty modbus entries.
const (
	DefaultDP        = 1
	DefaultScaler    = 0.1
	DefaultOffset    = 0.0
	DefaultTimeout   = 200
	DefaultPollSpeed = 0

	// DefaultSensitivity applies to device-parameter links.
	DefaultSensitivity = 1.0
)

func parameterSpecs() []wizard.FieldSpec {
	return []wizard.FieldSpec{
		{Key: FieldName, Label: "Parameter Name", Rules: "max=50", Placeholder: "e.g., Temperature"},
		{Key: FieldAttribute, Label: "Attribute Name", Rules: "ident,max=50", Placeholder: "e.g., temperature"},
		{Key: FieldUnit, Label: "Unit", Type: wizard.SelectField, Options: catalog.Units},
		{Key: FieldBit, Label: "Bit", Type: wizard.SelectField, Options: catalog.Bits, Default: catalog.BitNone},
		{Key: FieldDataType, Label: "Data Type", Type: wizard.SelectField, Options: catalog.DataTypes, Default: catalog.DataTypeInteger},
		{Key: FieldRW, Label: "RW", Type: wizard.SelectField, Options: catalog.Access, Default: catalog.AccessRead},
		{Key: FieldLowerLimit, Label: "Lower Limit", Type: wizard.NumberField},
		{Key: FieldUpperLimit, Label: "Upper Limit", Type: wizard.NumberField},
		{Key: FieldRuntime, Label: "Runtime", Type: wizard.IntegerField, Default: "1", Rules: "gte=0"},
		{Key: FieldDescription, Label: "Description", Rules: "max=200"},
		{Key: FieldSourceType, Label: "Source Interface", Type: wizard.SelectField, Options: catalog.Sources, Default: catalog.SourceModbus},

		{Key: FieldAddress, Label: "Register Address", Type: wizard.IntegerField, Rules: "gte=0,lte=65535"},
		{Key: FieldLen, Label: "Length", Type: wizard.IntegerField, Rules: "gte=1,lte=125"},
		{Key: FieldReadFC, Label: "Read Function Code", Type: wizard.SelectField, Options: catalog.ReadFunctionCodes},
		{Key: FieldWriteFC, Label: "Write Function Code", Type: wizard.SelectField, Options: catalog.WriteFunctionCodes},
		{Key: FieldModbusDataType, Label: "Data Type", Type: wizard.SelectField, Options: catalog.ModbusDataTypes},
		{Key: FieldDP, Label: "Decimal Places", Type: wizard.IntegerField, Rules: "gte=0,lte=6"},
		{Key: FieldScaler, Label: "Scaler", Type: wizard.NumberField},
		{Key: FieldOffset, Label: "Offset", Type: wizard.NumberField},
		{Key: FieldTimeout, Label: "Timeout (ms)", Type: wizard.IntegerField, Rules: "gte=0,lte=60000"},
		{Key: FieldPollSpeed, Label: "Polling Speed", Type: wizard.SelectField, Options: catalog.PollSpeeds},

		{Key: FieldPin, Label: "Pin", Type: wizard.SelectField, Options: catalog.Pins},
		{Key: FieldInvert, Label: "Invert", Type: wizard.SelectField, Options: catalog.Invert},
		{Key: FieldEnable, Label: "Enable", Type: wizard.SelectField, Options: catalog.Enable},
		{Key: FieldDefaultValue, Label: "Default Value", Type: wizard.SelectField, Options: catalog.DefaultLevel},
		{Key: FieldSensitivity, Label: "Sensitivity", Type: wizard.NumberField, Rules: "gte=0"},
	}
}

func parameterSteps() []wizard.StepDefinition {
	return []wizard.StepDefinition{
		{
			Name:        "Basic Info",
			Description: "Name, unit and access of the parameter",
			Fields:      []wizard.FieldKey{FieldName, FieldAttribute, FieldUnit, FieldBit, FieldDataType, FieldRW, FieldRuntime, FieldDescription, FieldSourceType},
			Required:    []wizard.FieldKey{FieldName, FieldAttribute, FieldSourceType},
			Conditionals: []wizard.ConditionalRule{{
				Discriminant: FieldRW,
				Shown:        map[string][]wizard.FieldKey{catalog.AccessReadWrite: {FieldLowerLimit, FieldUpperLimit}},
				Required:     map[string][]wizard.FieldKey{catalog.AccessReadWrite: {FieldLowerLimit, FieldUpperLimit}},
			}},
			Limit: &wizard.LimitRule{
				Lower:        FieldLowerLimit,
				Upper:        FieldUpperLimit,
				Discriminant: FieldRW,
				When:         catalog.AccessReadWrite,
				Message:      "Lower Limit must be less than Upper Limit",
			},
		},
		{
			Name:        "Source Config",
			Description: "Where the gateway reads the value from",
			Conditionals: []wizard.ConditionalRule{{
				Discriminant: FieldSourceType,
				Shown: map[string][]wizard.FieldKey{
					catalog.SourceModbus: {FieldAddress, FieldLen, FieldReadFC, FieldWriteFC, FieldModbusDataType, FieldDP, FieldScaler, FieldOffset, FieldTimeout, FieldPollSpeed},
					catalog.SourceDI:     {FieldPin, FieldInvert, FieldEnable},
					catalog.SourceDO:     {FieldPin, FieldDefaultValue, FieldEnable},
					catalog.SourceAI:     {FieldPin, FieldUnit, FieldScaler, FieldOffset, FieldDP, FieldSensitivity, FieldEnable},
					catalog.SourceZigbee: {},
				},
				Required: map[string][]wizard.FieldKey{
					catalog.SourceModbus: {FieldAddress, FieldLen, FieldReadFC, FieldWriteFC, FieldModbusDataType},
					catalog.SourceDI:     {FieldPin, FieldInvert, FieldEnable},
					catalog.SourceDO:     {FieldPin, FieldDefaultValue, FieldEnable},
					catalog.SourceAI:     {FieldPin, FieldUnit, FieldEnable},
				},
				Defaults: map[string]map[wizard.FieldKey]string{
					catalog.SourceModbus: {FieldLen: "1", FieldDP: "1", FieldScaler: "0.1", FieldOffset: "0", FieldTimeout: "200", FieldPollSpeed: "1"},
					catalog.SourceAI:     {FieldScaler: "1", FieldOffset: "0", FieldDP: "2", FieldSensitivity: "0.1", FieldEnable: "1"},
					catalog.SourceDI:     {FieldEnable: "1"},
					catalog.SourceDO:     {FieldEnable: "1"},
				},
			}},
		},
	}
}

// ParameterItem describes one parameter row of the model wizard.
func ParameterItem() *wizard.Definition {
	return wizard.NewDefinition(wizard.KindParameter, "Parameter", parameterSpecs(), parameterSteps()...)
}

// Model is the Add Model wizard: model identity, its parameters, review.
func Model() *wizard.Definition {
	specs := []wizard.FieldSpec{
		{Key: FieldBrand, Label: "Brand", Rules: "max=50", Placeholder: "e.g., Schneider"},
		{Key: FieldModel, Label: "Model", Rules: "max=50", Placeholder: "e.g., PM5350"},
		{Key: FieldDevType, Label: "Device Type", Rules: "max=50", Placeholder: "e.g., Power Meter"},
		{Key: FieldInterface, Label: "Interface", Type: wizard.IntegerField, Default: "1", Rules: "gte=0,lte=256"},
		{Key: FieldParameters, Label: "parameters", Type: wizard.ListField},
	}
	return wizard.NewDefinition(wizard.KindModel, "Add Model", specs,
		wizard.StepDefinition{
			Name:        "Model Info",
			Description: "Brand, model name and device type",
			Fields:      []wizard.FieldKey{FieldBrand, FieldModel, FieldDevType, FieldInterface},
			Required:    []wizard.FieldKey{FieldBrand, FieldModel, FieldDevType, FieldInterface},
		},
		wizard.StepDefinition{
			Name:        "Parameters",
			Description: "Values the model exposes",
			Lists:       []wizard.ListSpec{{Key: FieldParameters, Min: 1, Item: ParameterItem(), TitleField: FieldName}},
		},
		wizard.StepDefinition{Name: "Review", Review: true},
	)
}

// Parameter is the standalone Add Parameter wizard for an existing model.
// models lists the selectable model names; nil means the built-in
// templates.
func Parameter(models *catalog.Catalog) *wizard.Definition {
	if models == nil {
		models = catalog.Models()
	}
	specs := append(parameterSpecs(),
		wizard.FieldSpec{Key: FieldModel, Label: "Model", Type: wizard.SelectField, Options: models},
	)
	steps := []wizard.StepDefinition{{
		Name:        "Select Model",
		Description: "Model the parameter belongs to",
		Fields:      []wizard.FieldKey{FieldModel},
		Required:    []wizard.FieldKey{FieldModel},
	}}
	steps = append(steps, parameterSteps()...)
	steps = append(steps, wizard.StepDefinition{Name: "Review", Review: true})
	return wizard.NewDefinition(wizard.KindParameter, "Add Parameter", specs, steps...)
}

func deviceParameterItem() *wizard.Definition {
	return wizard.NewDefinition(wizard.KindDevice, "Linked Parameter",
		[]wizard.FieldSpec{
			{Key: FieldParamName, Label: "Parameter"},
			{Key: FieldParamID, Label: "Parameter ID", Type: wizard.IntegerField, Rules: "gt=0"},
			{Key: FieldLinked, Label: "Link", Type: wizard.SelectField, Options: catalog.Linked, Default: "1"},
			{Key: FieldSensitivity, Label: "Sensitivity", Type: wizard.NumberField, Default: "1", Rules: "gte=0"},
		},
		wizard.StepDefinition{
			Name:     "Link",
			Fields:   []wizard.FieldKey{FieldParamName, FieldParamID, FieldLinked, FieldSensitivity},
			Required: []wizard.FieldKey{FieldParamName, FieldLinked},
		},
	)
}

// Device is the Add Device wizard. models lists the selectable model
// names; nil means the built-in templates.
func Device(models *catalog.Catalog) *wizard.Definition {
	if models == nil {
		models = catalog.Models()
	}
	specs := []wizard.FieldSpec{
		{Key: FieldModel, Label: "Model", Type: wizard.SelectField, Options: models},
		{Key: FieldName, Label: "Device Name", Rules: "max=50", Placeholder: "e.g., Gateway-1"},
		{Key: FieldPriAddr, Label: "Primary Address", Rules: "max=64"},
		{Key: FieldSecAddr, Label: "Secondary Address", Rules: "max=64"},
		{Key: FieldTerAddr, Label: "Tertiary Address", Rules: "max=64"},
		{Key: FieldLogIntvl, Label: "Log Interval", Type: wizard.SelectField, Options: catalog.Intervals, Default: "0"},
		{Key: FieldReportIntvl, Label: "Report Interval", Type: wizard.SelectField, Options: catalog.Intervals, Default: "0"},
		{Key: FieldHealthIntvl, Label: "Health Interval", Type: wizard.SelectField, Options: catalog.Intervals, Default: "0"},
		{Key: FieldLocID, Label: "Location ID", Rules: "max=50"},
		{Key: FieldLocName, Label: "Location Name", Rules: "max=100"},
		{Key: FieldLocSubname, Label: "Location Subname", Rules: "max=100"},
		{Key: FieldLocBlk, Label: "Block", Rules: "max=20"},
		{Key: FieldLocUnit, Label: "Unit", Rules: "max=20"},
		{Key: FieldPostalCode, Label: "Postal Code", Rules: "max=12"},
		{Key: FieldLocAddr, Label: "Address", Rules: "max=200"},
		{Key: FieldX, Label: "X", Type: wizard.NumberField},
		{Key: FieldY, Label: "Y", Type: wizard.NumberField},
		{Key: FieldH, Label: "Height", Type: wizard.NumberField},
		{Key: FieldFwVer, Label: "Firmware Version", Rules: "max=32"},
		{Key: FieldEn, Label: "Enabled", Type: wizard.SelectField, Options: catalog.YesNo, Default: "1"},
		{Key: FieldParameters, Label: "parameters", Type: wizard.ListField},
	}
	return wizard.NewDefinition(wizard.KindDevice, "Add Device", specs,
		wizard.StepDefinition{
			Name:        "Select Model",
			Description: "Template or registered model of the device",
			Fields:      []wizard.FieldKey{FieldModel},
			Required:    []wizard.FieldKey{FieldModel},
		},
		wizard.StepDefinition{
			Name:        "Device Info",
			Description: "Identity, addressing, reporting and location",
			Fields: []wizard.FieldKey{
				FieldName, FieldPriAddr, FieldSecAddr, FieldTerAddr,
				FieldLogIntvl, FieldReportIntvl, FieldHealthIntvl,
				FieldLocID, FieldLocName, FieldLocSubname, FieldLocBlk, FieldLocUnit, FieldPostalCode, FieldLocAddr,
				FieldX, FieldY, FieldH, FieldFwVer, FieldEn,
			},
			Required: []wizard.FieldKey{FieldName},
		},
		wizard.StepDefinition{
			Name:        "Parameters",
			Description: "Parameters linked to the device after creation",
			Lists:       []wizard.ListSpec{{Key: FieldParameters, Min: 0, Item: deviceParameterItem(), TitleField: FieldParamName}},
		},
		wizard.StepDefinition{Name: "Review", Review: true},
	)
}

func conditionItem() *wizard.Definition {
	return wizard.NewDefinition(wizard.KindRule, "Condition",
		[]wizard.FieldSpec{
			{Key: FieldType, Label: "Type", Type: wizard.SelectField, Options: catalog.ConditionTypes, Default: catalog.TypeDevice},
			{Key: FieldDevice, Label: "Device", Rules: "max=50"},
			{Key: FieldParameter, Label: "Parameter", Rules: "max=50"},
			{Key: FieldOperator, Label: "Operator", Type: wizard.SelectField, Options: catalog.Operators, Default: "=="},
			{Key: FieldMode, Label: "Compare With", Type: wizard.SelectField, Options: catalog.ValueModes, Default: catalog.ModeFixed},
			{Key: FieldValue, Label: "Value", Type: wizard.NumberField},
			{Key: FieldRefDevice, Label: "Ref Device", Rules: "max=50"},
			{Key: FieldRefParameter, Label: "Ref Parameter", Rules: "max=50"},
			{Key: FieldTimer, Label: "Timer", Type: wizard.SelectField, Options: catalog.Timers},
			{Key: FieldTimerOperator, Label: "Operator", Type: wizard.SelectField, Options: catalog.TimerOperators, Default: "=="},
			{Key: FieldTimerState, Label: "Timer State", Type: wizard.SelectField, Options: catalog.TimerStates},
		},
		wizard.StepDefinition{
			Name:   "Condition",
			Fields: []wizard.FieldKey{FieldType},
			Conditionals: []wizard.ConditionalRule{
				{
					Discriminant: FieldType,
					Shown: map[string][]wizard.FieldKey{
						catalog.TypeDevice: {FieldDevice, FieldParameter, FieldOperator, FieldMode},
						catalog.TypeTimer:  {FieldTimer, FieldTimerOperator, FieldTimerState},
					},
					Required: map[string][]wizard.FieldKey{
						catalog.TypeDevice: {FieldDevice, FieldParameter, FieldOperator, FieldMode},
						catalog.TypeTimer:  {FieldTimer, FieldTimerOperator, FieldTimerState},
					},
					Defaults: map[string]map[wizard.FieldKey]string{
						catalog.TypeDevice: {FieldOperator: "==", FieldMode: catalog.ModeFixed},
						catalog.TypeTimer:  {FieldTimerOperator: "=="},
					},
				},
				{
					Discriminant: FieldMode,
					Shown: map[string][]wizard.FieldKey{
						catalog.ModeFixed: {FieldValue},
						catalog.ModeRef:   {FieldRefDevice, FieldRefParameter},
					},
					Required: map[string][]wizard.FieldKey{
						catalog.ModeFixed: {FieldValue},
						catalog.ModeRef:   {FieldRefDevice, FieldRefParameter},
					},
				},
			},
		},
	)
}

func controlItem() *wizard.Definition {
	return wizard.NewDefinition(wizard.KindRule, "Control",
		[]wizard.FieldSpec{
			{Key: FieldType, Label: "Type", Type: wizard.SelectField, Options: catalog.ControlTypes, Default: catalog.TypeDevice},
			{Key: FieldDevice, Label: "Device", Rules: "max=50"},
			{Key: FieldParameter, Label: "Parameter", Rules: "max=50"},
			{Key: FieldValue, Label: "Value", Type: wizard.NumberField},
			{Key: FieldTimer, Label: "Timer", Type: wizard.SelectField, Options: catalog.Timers},
			{Key: FieldTimerAction, Label: "Timer Action", Type: wizard.SelectField, Options: catalog.TimerActions},
		},
		wizard.StepDefinition{
			Name:   "Control",
			Fields: []wizard.FieldKey{FieldType},
			Conditionals: []wizard.ConditionalRule{{
				Discriminant: FieldType,
				Shown: map[string][]wizard.FieldKey{
					catalog.TypeDevice: {FieldDevice, FieldParameter, FieldValue},
					catalog.TypeTimer:  {FieldTimer, FieldTimerAction},
				},
				Required: map[string][]wizard.FieldKey{
					catalog.TypeDevice: {FieldDevice, FieldParameter, FieldValue},
					catalog.TypeTimer:  {FieldTimer, FieldTimerAction},
				},
			}},
		},
	)
}

// Rule is the Add Rule wizard: conditions, actions, review.
func Rule() *wizard.Definition {
	specs := []wizard.FieldSpec{
		{Key: FieldName, Label: "Rule Name", Rules: "max=50"},
		{Key: FieldSeverity, Label: "Severity", Type: wizard.SelectField, Options: catalog.Severities, Default: "Warning"},
		{Key: FieldLogic, Label: "Condition Logic", Type: wizard.SelectField, Options: catalog.Logic, Default: "AND"},
		{Key: FieldConditions, Label: "conditions", Type: wizard.ListField},
		{Key: FieldActionName, Label: "Action Name", Rules: "max=50"},
		{Key: FieldReport, Label: "Report", Type: wizard.SelectField, Options: catalog.YesNo, Default: "1"},
		{Key: FieldLog, Label: "Log", Type: wizard.SelectField, Options: catalog.YesNo, Default: "1"},
		{Key: FieldControls, Label: "controls", Type: wizard.ListField},
	}
	return wizard.NewDefinition(wizard.KindRule, "Add Rule", specs,
		wizard.StepDefinition{
			Name:        "Condition",
			Description: "When the rule fires",
			Fields:      []wizard.FieldKey{FieldName, FieldSeverity, FieldLogic},
			Required:    []wizard.FieldKey{FieldName, FieldSeverity, FieldLogic},
			Lists:       []wizard.ListSpec{{Key: FieldConditions, Min: 1, Item: conditionItem(), TitleField: FieldType}},
		},
		wizard.StepDefinition{
			Name:        "Action",
			Description: "What the rule does",
			Fields:      []wizard.FieldKey{FieldActionName, FieldReport, FieldLog},
			Required:    []wizard.FieldKey{FieldActionName},
			Lists:       []wizard.ListSpec{{Key: FieldControls, Min: 1, Item: controlItem(), TitleField: FieldType}},
		},
		wizard.StepDefinition{Name: "Review", Review: true},
	)
}

// For returns the wizard of kind. Model and device wizards use the given
// model catalog.
func For(kind wizard.Kind, models *catalog.Catalog) (*wizard.Definition, bool) {
	switch kind {
	case wizard.KindModel:
		return Model(), true
	case wizard.KindParameter:
		return Parameter(models), true
	case wizard.KindDevice:
		return Device(models), true
	case wizard.KindRule:
		return Rule(), true
	default:
		return nil, false
	}
}
