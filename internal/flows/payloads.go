package flows

import (
	"fmt"
	"strconv"

	"github.com/tcam/gwcfg/internal/api"
	"github.com/tcam/gwcfg/internal/catalog"
	"github.com/tcam/gwcfg/internal/wizard"
)

// fieldReader converts wizard values into payload members and keeps the
// first conversion error.
type fieldReader struct {
	f   wizard.Fields
	err error
}

func (r *fieldReader) fail(key wizard.FieldKey, err error) {
	if r.err == nil && err != nil {
		r.err = fmt.Errorf("%s: %w", key, err)
	}
}

func (r *fieldReader) str(key wizard.FieldKey) string {
	return r.f.String(key)
}

func (r *fieldReader) nullStr(key wizard.FieldKey) *string {
	return api.NullString(r.f.String(key))
}

func (r *fieldReader) nullInt(key wizard.FieldKey) *int {
	v, err := api.NullInt(r.f.String(key))
	r.fail(key, err)
	return v
}

func (r *fieldReader) nullFloat(key wizard.FieldKey) *float64 {
	v, err := api.NullFloat(r.f.String(key))
	r.fail(key, err)
	return v
}

func (r *fieldReader) intOr(key wizard.FieldKey, def int) int {
	v, err := api.IntOr(r.f.String(key), def)
	r.fail(key, err)
	return v
}

func (r *fieldReader) floatOr(key wizard.FieldKey, def float64) float64 {
	v, err := api.FloatOr(r.f.String(key), def)
	r.fail(key, err)
	return v
}

func (r *fieldReader) code(key wizard.FieldKey, fn func(string) (int, error)) int {
	v, err := fn(r.f.String(key))
	r.fail(key, err)
	return v
}

// ModelRequest builds the POST /api/models body.
func ModelRequest(f wizard.Fields) (*api.CreateModelRequest, error) {
	r := &fieldReader{f: f}
	req := &api.CreateModelRequest{
		Brand:     r.str(FieldBrand),
		Model:     r.str(FieldModel),
		DevType:   r.str(FieldDevType),
		Interface: r.intOr(FieldInterface, 1),
	}
	return req, r.err
}

// ModbusRequest builds the POST /api/modbus-configs body of a modbus
// parameter. Empty tuning entries fall back to the submit-time defaults.
func ModbusRequest(modelID int64, item wizard.Fields) (*api.CreateModbusConfigRequest, error) {
	r := &fieldReader{f: item}
	req := &api.CreateModbusConfigRequest{
		ModelID:   modelID,
		Att:       r.str(FieldAttribute),
		Reg:       r.nullInt(FieldAddress),
		Len:       r.nullInt(FieldLen),
		ReadFC:    r.nullInt(FieldReadFC),
		WriteFC:   r.nullInt(FieldWriteFC),
		DataType:  r.nullInt(FieldModbusDataType),
		DP:        r.intOr(FieldDP, DefaultDP),
		Scaler:    r.floatOr(FieldScaler, DefaultScaler),
		Offset:    r.floatOr(FieldOffset, DefaultOffset),
		Timeout:   r.intOr(FieldTimeout, DefaultTimeout),
		PollSpeed: r.intOr(FieldPollSpeed, DefaultPollSpeed),
	}
	return req, r.err
}

// ParameterRequest builds the POST /api/parameters body. channel is the
// modbus config ID, nil when there is none. Limits are only sent for
// read/write parameters.
func ParameterRequest(modelID int64, channel *int64, item wizard.Fields) (*api.CreateParameterRequest, error) {
	r := &fieldReader{f: item}
	req := &api.CreateParameterRequest{
		ModelID:     modelID,
		Name:        r.str(FieldName),
		Attr:        r.str(FieldAttribute),
		Unit:        r.nullStr(FieldUnit),
		DataType:    r.code(FieldDataType, catalog.DataTypeCode),
		RW:          r.code(FieldRW, catalog.AccessCode),
		Source:      r.code(FieldSourceType, catalog.SourceCode),
		Channel:     channel,
		Runtime:     r.nullInt(FieldRuntime),
		Description: r.nullStr(FieldDescription),
	}
	bit, err := catalog.BitCode(r.str(FieldBit))
	r.fail(FieldBit, err)
	req.Bit = bit
	if r.str(FieldRW) == catalog.AccessReadWrite {
		req.LowerLimit = r.nullFloat(FieldLowerLimit)
		req.UpperLimit = r.nullFloat(FieldUpperLimit)
	}
	return req, r.err
}

// DeviceRequest builds the POST /api/devices body. modelID is nil when the
// model is not registered on the gateway.
func DeviceRequest(modelID *int64, f wizard.Fields) (*api.CreateDeviceRequest, error) {
	r := &fieldReader{f: f}
	req := &api.CreateDeviceRequest{
		DeviceID:    r.str(FieldName),
		ModelID:     modelID,
		NodeID:      r.nullStr(FieldModel),
		PriAddr:     r.nullStr(FieldPriAddr),
		SecAddr:     r.nullStr(FieldSecAddr),
		TerAddr:     r.nullStr(FieldTerAddr),
		LogIntvl:    r.nullInt(FieldLogIntvl),
		ReportIntvl: r.nullInt(FieldReportIntvl),
		HealthIntvl: r.nullInt(FieldHealthIntvl),
		LocID:       r.nullStr(FieldLocID),
		LocName:     r.nullStr(FieldLocName),
		LocSubname:  r.nullStr(FieldLocSubname),
		LocBlk:      r.nullStr(FieldLocBlk),
		LocUnit:     r.nullStr(FieldLocUnit),
		PostalCode:  r.nullStr(FieldPostalCode),
		LocAddr:     r.nullStr(FieldLocAddr),
		X:           r.nullFloat(FieldX),
		Y:           r.nullFloat(FieldY),
		H:           r.nullFloat(FieldH),
		FwVer:       r.nullStr(FieldFwVer),
		En:          r.nullInt(FieldEn),
	}
	return req, r.err
}

// LinkRequest builds the POST /api/dev-param-maps body of a linked row.
func LinkRequest(deviceID int64, item wizard.Fields) (*api.LinkParameterRequest, error) {
	r := &fieldReader{f: item}
	idText := r.str(FieldParamID)
	if idText == "" {
		return nil, fmt.Errorf("parameter %q is not registered on the gateway", r.str(FieldParamName))
	}
	paramID, err := strconv.ParseInt(idText, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid parameter ID %q", FieldParamID, idText)
	}
	req := &api.LinkParameterRequest{
		DevID:       deviceID,
		ParamID:     paramID,
		Sensitivity: r.floatOr(FieldSensitivity, DefaultSensitivity),
	}
	return req, r.err
}

// RuleRequest builds the POST /api/rules body.
func RuleRequest(f wizard.Fields) (*api.CreateRuleRequest, error) {
	r := &fieldReader{f: f}
	req := &api.CreateRuleRequest{
		Name:       r.str(FieldName),
		Severity:   r.str(FieldSeverity),
		Logic:      r.str(FieldLogic),
		Conditions: []api.RuleCondition{},
		Action: api.RuleAction{
			Name:     r.str(FieldActionName),
			Report:   r.intOr(FieldReport, 0),
			Log:      r.intOr(FieldLog, 0),
			Controls: []api.RuleControl{},
		},
	}

	for i, item := range f.List(FieldConditions) {
		ir := &fieldReader{f: item}
		c := api.RuleCondition{Type: ir.str(FieldType)}
		switch c.Type {
		case catalog.TypeTimer:
			c.Timer = ir.nullStr(FieldTimer)
			c.TimerState = ir.nullInt(FieldTimerState)
			c.Operator = ir.str(FieldTimerOperator)
		default:
			c.Device = ir.nullStr(FieldDevice)
			c.Parameter = ir.nullStr(FieldParameter)
			c.Operator = ir.str(FieldOperator)
			c.Mode = ir.intOr(FieldMode, 1)
			switch ir.str(FieldMode) {
			case catalog.ModeFixed:
				c.Value = ir.nullFloat(FieldValue)
			case catalog.ModeRef:
				c.RefDevice = ir.nullStr(FieldRefDevice)
				c.RefParameter = ir.nullStr(FieldRefParameter)
			}
		}
		if ir.err != nil {
			return nil, fmt.Errorf("condition %d: %w", i+1, ir.err)
		}
		req.Conditions = append(req.Conditions, c)
	}

	for i, item := range f.List(FieldControls) {
		ir := &fieldReader{f: item}
		c := api.RuleControl{Type: ir.str(FieldType)}
		switch c.Type {
		case catalog.TypeTimer:
			c.Timer = ir.nullStr(FieldTimer)
			c.TimerAction = ir.nullStr(FieldTimerAction)
		default:
			c.Device = ir.nullStr(FieldDevice)
			c.Parameter = ir.nullStr(FieldParameter)
			c.Value = ir.nullFloat(FieldValue)
		}
		if ir.err != nil {
			return nil, fmt.Errorf("control %d: %w", i+1, ir.err)
		}
		req.Action.Controls = append(req.Action.Controls, c)
	}
	return req, r.err
}
