package api

import "github.com/tcam/gwcfg/internal/session"

// Request payloads keep every optional member as a pointer without
// omitempty: an empty entry is sent as an explicit JSON null. The validate
// tags are the checks the gateway applies on receipt.

// CreateModelRequest is the body of POST /api/models.
type CreateModelRequest struct {
	Brand     string `json:"brand" validate:"required"`
	Model     string `json:"model" validate:"required"`
	DevType   string `json:"dev_type" validate:"required"`
	Interface int    `json:"interface"`
}

// CreateModbusConfigRequest is the body of POST /api/modbus-configs.
type CreateModbusConfigRequest struct {
	ModelID   int64   `json:"model_id" validate:"gt=0"`
	Att       string  `json:"att"`
	Reg       *int    `json:"reg" validate:"required"`
	Len       *int    `json:"len"`
	ReadFC    *int    `json:"readFC"`
	WriteFC   *int    `json:"writeFC"`
	DataType  *int    `json:"datatype"`
	DP        int     `json:"dp"`
	Scaler    float64 `json:"scaler"`
	Offset    float64 `json:"offset"`
	Timeout   int     `json:"timeout"`
	PollSpeed int     `json:"poll_speed"`
}

// CreateParameterRequest is the body of POST /api/parameters. Channel is
// the ID returned by the modbus config call, when there was one.
type CreateParameterRequest struct {
	ModelID     int64    `json:"model_id" validate:"gt=0"`
	Name        string   `json:"name" validate:"required"`
	Attr        string   `json:"attr" validate:"required"`
	Unit        *string  `json:"unit"`
	DataType    int      `json:"data_type"`
	RW          int      `json:"rw"`
	Source      int      `json:"source"`
	Channel     *int64   `json:"channel"`
	Bit         *int     `json:"bit"`
	LowerLimit  *float64 `json:"lower_limit"`
	UpperLimit  *float64 `json:"upper_limit"`
	Runtime     *int     `json:"runtime"`
	Description *string  `json:"description"`
}

// CreateDeviceRequest is the body of POST /api/devices.
type CreateDeviceRequest struct {
	DeviceID    string   `json:"device_id" validate:"required"`
	ModelID     *int64   `json:"model_id"`
	NodeID      *string  `json:"node_id"`
	PriAddr     *string  `json:"pri_addr"`
	SecAddr     *string  `json:"sec_addr"`
	TerAddr     *string  `json:"ter_addr"`
	LogIntvl    *int     `json:"log_intvl"`
	ReportIntvl *int     `json:"report_intvl"`
	HealthIntvl *int     `json:"health_intvl"`
	LocID       *string  `json:"loc_id"`
	LocName     *string  `json:"loc_name"`
	LocSubname  *string  `json:"loc_subname"`
	LocBlk      *string  `json:"loc_blk"`
	LocUnit     *string  `json:"loc_unit"`
	PostalCode  *string  `json:"postal_code"`
	LocAddr     *string  `json:"loc_addr"`
	X           *float64 `json:"x"`
	Y           *float64 `json:"y"`
	H           *float64 `json:"h"`
	FwVer       *string  `json:"fw_ver"`
	En          *int     `json:"en"`
}

// LinkParameterRequest is the body of POST /api/dev-param-maps.
type LinkParameterRequest struct {
	DevID       int64   `json:"dev_id" validate:"gt=0"`
	ParamID     int64   `json:"param_id" validate:"gt=0"`
	Sensitivity float64 `json:"sensitivity"`
}

// DevicePatch holds only the members an edit changed. Values follow the
// same null rules as CreateDeviceRequest.
type DevicePatch map[string]any

// RuleCondition is one entry of a rule's condition list.
type RuleCondition struct {
	Type         string   `json:"type"`
	Device       *string  `json:"device"`
	Parameter    *string  `json:"parameter"`
	Timer        *string  `json:"timer"`
	TimerState   *int     `json:"timer_state"`
	Operator     string   `json:"operator"`
	Mode         int      `json:"mode"`
	Value        *float64 `json:"value"`
	RefDevice    *string  `json:"ref_device"`
	RefParameter *string  `json:"ref_parameter"`
}

// RuleControl is one control of a rule action.
type RuleControl struct {
	Type        string   `json:"type"`
	Device      *string  `json:"device"`
	Parameter   *string  `json:"parameter"`
	Mode        *int     `json:"mode"`
	Value       *float64 `json:"value"`
	Timer       *string  `json:"timer"`
	TimerAction *string  `json:"timer_action"`
}

// RuleAction is what a rule does once its conditions hold.
type RuleAction struct {
	Name     string        `json:"name"`
	Report   int           `json:"report"`
	Log      int           `json:"log"`
	Controls []RuleControl `json:"controls" validate:"min=1"`
}

// CreateRuleRequest is the body of POST /api/rules.
type CreateRuleRequest struct {
	Name       string          `json:"name" validate:"required"`
	Severity   string          `json:"severity"`
	Logic      string          `json:"logic"`
	Conditions []RuleCondition `json:"conditions" validate:"min=1"`
	Action     RuleAction      `json:"action"`
}

// CreateResponse is returned by every create endpoint.
type CreateResponse struct {
	ID      int64  `json:"id"`
	Success *bool  `json:"success,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Device is a row of GET /api/devices and the body of GET /api/devices/:id.
type Device struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	ModelID     *int64   `json:"model_id"`
	ModelName   string   `json:"modelName"`
	Location    string   `json:"location"`
	PriAddr     *string  `json:"priAddr"`
	SecAddr     *string  `json:"sec_addr"`
	TerAddr     *string  `json:"ter_addr"`
	LogIntvl    *int     `json:"log_intvl"`
	ReportIntvl *int     `json:"report_intvl"`
	HealthIntvl *int     `json:"health_intvl"`
	LocID       *string  `json:"loc_id"`
	LocName     *string  `json:"loc_name"`
	LocSubname  *string  `json:"loc_subname"`
	LocBlk      *string  `json:"loc_blk"`
	LocUnit     *string  `json:"loc_unit"`
	PostalCode  *string  `json:"postal_code"`
	LocAddr     *string  `json:"loc_addr"`
	X           *float64 `json:"x"`
	Y           *float64 `json:"y"`
	H           *float64 `json:"h"`
	FwVer       *string  `json:"fw_ver"`
	NwkStatus   int      `json:"nwkStatus"`
	Enabled     int      `json:"enabled"`
	LastSeen    int64    `json:"lastSeen,omitempty"`
}

// Model is a row of GET /api/models.
type Model struct {
	ID          int64  `json:"id"`
	Model       string `json:"model"`
	Type        string `json:"type"`
	Brand       string `json:"brand"`
	Usage       int    `json:"usage"`
	LastUpdated string `json:"last_updated,omitempty"`
}

// Parameter is a row of GET /api/parameters.
type Parameter struct {
	ID              int64    `json:"key"`
	Name            string   `json:"name"`
	Device          string   `json:"device"`
	DataType        string   `json:"dataType"`
	Unit            string   `json:"unit"`
	Access          string   `json:"access"`
	SourceInterface string   `json:"sourceInterface"`
	Channel         *int64   `json:"channel"`
	LowerLimit      *float64 `json:"lowerLimit"`
	UpperLimit      *float64 `json:"upperLimit"`
	Bit             *int     `json:"bit"`
	Description     string   `json:"description,omitempty"`
	CreatedAt       string   `json:"createdAt,omitempty"`
	UpdatedAt       string   `json:"updatedAt,omitempty"`
}

// DeviceParameter is a parameter linked to a device.
type DeviceParameter struct {
	ID          int64   `json:"id"`
	MapID       int64   `json:"mapId"`
	Name        string  `json:"name"`
	Sensitivity float64 `json:"sensitivity"`
	Unit        string  `json:"unit"`
	DataType    string  `json:"dataType"`
	RW          string  `json:"rw"`
}

// Overview is the body of GET /api/overview.
type Overview struct {
	DeviceCount     int     `json:"device_count"`
	SerialNumber    string  `json:"serial_number"`
	FirmwareVersion string  `json:"firmware_version"`
	HardwareVersion string  `json:"hardware_version"`
	NetworkIP       string  `json:"network_ip"`
	MACAddress      string  `json:"mac_address"`
	CPUUsage        float64 `json:"cpu_usage"`
	MemoryUsage     float64 `json:"memory_usage"`
	DiskUsage       float64 `json:"disk_usage"`
	RTC             string  `json:"rtc"`
}

// Event is one message of the /api/events feed.
type Event struct {
	Type   string `json:"type"`   // created, updated, deleted
	Entity string `json:"entity"` // model, parameter, device, rule, map
	ID     int64  `json:"id"`
	At     string `json:"at"`
}

// LoginRequest is the body of POST /api/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is returned by a successful sign-in.
type LoginResponse struct {
	Token string       `json:"token"`
	User  session.User `json:"user"`
}
