package catalog

import (
	"fmt"
	"strconv"
	"strings"
)

// Wire values of the parameter discriminants.
const (
	SourceDI     = "DI"
	SourceAI     = "AI"
	SourceDO     = "DO"
	SourceModbus = "modbus"
	SourceZigbee = "zigbee"

	AccessRead      = "r"
	AccessReadWrite = "rw"

	DataTypeDiscrete = "discrete"
	DataTypeInteger  = "integer"
	DataTypeFloat    = "float"

	// BitNone marks a parameter that does not map onto a single bit.
	BitNone = "99"

	TypeDevice = "device"
	TypeTimer  = "timer"

	ModeFixed    = "1"
	ModeRef      = "2"
	ModePrevious = "3"
)

// Parameter catalogs
var (
	Units = New("unit",
		"", "None",
		"°C", "°C",
		"°F", "°F",
		"%", "%",
		"V", "V",
		"A", "A",
		"W", "W",
		"kW", "kW",
		"kWh", "kWh",
		"Hz", "Hz",
		"RPM", "RPM",
		"bar", "bar",
		"psi", "psi",
		"m/s", "m/s",
	)

	DataTypes = New("data type",
		DataTypeDiscrete, "Discrete",
		DataTypeInteger, "Integer",
		DataTypeFloat, "Float",
	)

	Access = New("access",
		AccessRead, "Read Only",
		AccessReadWrite, "Read & Write",
	)

	Sources = New("source interface",
		SourceDI, "DI",
		SourceDO, "DO",
		SourceAI, "AI",
		SourceModbus, "Modbus",
		SourceZigbee, "Zigbee",
	)

	Bits = &Catalog{Name: "bit", Options: append(numbered(0, 31), Option{Value: BitNone, Label: "99 (NA)"})}

	Pins = Plain("pin",
		"P8_07", "P8_08", "P8_09", "P8_10", "P8_11", "P8_12", "P8_13", "P8_14", "P8_15", "P8_16",
		"P8_17", "P8_18", "P8_19", "P8_26",
		"P9_11", "P9_12", "P9_13", "P9_14", "P9_15", "P9_16", "P9_39", "P9_40", "P9_41", "P9_42",
	)

	Invert = New("invert",
		"0", "0: Normally Open",
		"1", "1: Normally Close",
	)

	Enable = New("enable",
		"0", "0: Disable channel",
		"1", "1: Enable channel",
	)

	DefaultLevel = New("default value",
		"0", "0: Normally Open (low)",
		"1", "1: Normally Close (high)",
	)
)

// Modbus catalogs
var (
	ReadFunctionCodes = New("read function code",
		"0", "0: NA",
		"1", "1: Read Coils",
		"2", "2: Read Discrete Inputs",
		"3", "3: Read Holding Registers",
		"4", "4: Read Input Registers",
	)

	WriteFunctionCodes = New("write function code",
		"0", "0: NA",
		"5", "5: Write Single Coil",
		"6", "6: Write Single Register",
		"15", "15: Write Multiple Coils",
		"16", "16: Write Multiple Registers",
	)

	ModbusDataTypes = New("modbus data type",
		"1", "1: Int",
		"2", "2: Discrete",
		"3", "3: Float",
	)

	PollSpeeds = New("poll speed",
		"0", "0: NA",
		"1", "1: Fast",
		"2", "2: Medium",
		"3", "3: Slow",
	)
)

// Device catalogs
var (
	Intervals = New("interval",
		"0", "Disabled",
		"1", "10 min",
		"2", "15 min",
		"3", "30 min",
		"4", "1 hour",
		"5", "6 hours",
		"6", "12 hours",
		"7", "Daily",
	)

	Linked = New("link",
		"1", "Auto-linked",
		"0", "Unlinked",
	)
)

// Rule catalogs
var (
	Severities = Plain("severity", "Critical", "Warning", "Info")

	ConditionTypes = New("condition type",
		TypeDevice, "Device",
		TypeTimer, "Timer",
	)

	ControlTypes = New("control type",
		TypeDevice, "Device",
		TypeTimer, "Timer",
	)

	Logic = Plain("logic", "AND", "OR")

	Operators = Plain("operator", "==", "!=", "<", "<=", ">", ">=")

	// TimerOperators is the subset usable against a timer state.
	TimerOperators = Plain("timer operator", "==", "!=")

	ValueModes = New("value mode",
		ModeFixed, "Fixed value",
		ModeRef, "Ref param",
		ModePrevious, "Previous",
	)

	TimerStates = New("timer state",
		"0", "Idle",
		"1", "Running",
		"2", "Expired",
	)

	TimerActions = New("timer action",
		"start", "Start",
		"stop", "Stop",
		"reset", "Reset",
	)

	Timers = Plain("timer", "timer-001", "timer-002", "timer-003")

	YesNo = New("yes/no",
		"1", "Yes",
		"0", "No",
	)
)

// DataTypeCode returns the backend data_type code: 0 Discrete, 1 Integer, 2 Float.
func DataTypeCode(value string) (int, error) {
	switch strings.ToLower(value) {
	case DataTypeDiscrete:
		return 0, nil
	case DataTypeInteger, "":
		return 1, nil
	case DataTypeFloat:
		return 2, nil
	}
	return 0, fmt.Errorf("unknown data type %q", value)
}

// AccessCode returns the backend rw code: 0 read-only, 1 read/write.
func AccessCode(value string) (int, error) {
	switch value {
	case AccessRead, "":
		return 0, nil
	case AccessReadWrite:
		return 1, nil
	}
	return 0, fmt.Errorf("unknown access %q", value)
}

// SourceCode returns the backend source code: DI 0, AI 1, DO 2, Modbus 3, Zigbee 4.
func SourceCode(value string) (int, error) {
	switch value {
	case SourceDI:
		return 0, nil
	case SourceAI:
		return 1, nil
	case SourceDO:
		return 2, nil
	case SourceModbus, "":
		return 3, nil
	case SourceZigbee:
		return 4, nil
	}
	return 0, fmt.Errorf("unknown source interface %q", value)
}

// BitCode converts a bit selection to its wire value. BitNone and empty
// selections have no wire value.
func BitCode(value string) (*int, error) {
	if value == "" || value == BitNone {
		return nil, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 || n > 31 {
		return nil, fmt.Errorf("invalid bit %q", value)
	}
	return &n, nil
}

// IntervalLabel renders a log/report/health interval code.
func IntervalLabel(code int) string {
	return Intervals.Label(strconv.Itoa(code))
}

// SourceLabel renders a backend source code.
func SourceLabel(code int) string {
	for _, v := range Sources.Values() {
		if c, _ := SourceCode(v); c == code && v != "" {
			return Sources.Label(v)
		}
	}
	return strconv.Itoa(code)
}

// DataTypeLabel renders a backend data_type code.
func DataTypeLabel(code int) string {
	switch code {
	case 0:
		return "Discrete"
	case 1:
		return "Integer"
	case 2:
		return "Float"
	}
	return strconv.Itoa(code)
}

// AccessLabel renders a backend rw code.
func AccessLabel(code int) string {
	if code == 1 {
		return "Read & Write"
	}
	return "Read Only"
}
