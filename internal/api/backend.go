package api

import "context"

// Writer is the set of mutating calls a submission plan makes.
type Writer interface {
	CreateModel(ctx context.Context, req *CreateModelRequest) (int64, error)
	CreateModbusConfig(ctx context.Context, req *CreateModbusConfigRequest) (int64, error)
	CreateParameter(ctx context.Context, req *CreateParameterRequest) (int64, error)
	CreateDevice(ctx context.Context, req *CreateDeviceRequest) (int64, error)
	LinkDeviceParameter(ctx context.Context, req *LinkParameterRequest) (int64, error)
	CreateRule(ctx context.Context, req *CreateRuleRequest) (int64, error)
	UnlinkDeviceParameter(ctx context.Context, mapID int64) error
	UpdateDevice(ctx context.Context, id int64, patch DevicePatch) error
	DeleteDevice(ctx context.Context, id int64) error
}

// Reader is the set of lookups the wizards and list commands use.
type Reader interface {
	ListDevices(ctx context.Context) ([]Device, error)
	GetDevice(ctx context.Context, id int64) (*Device, error)
	ListModels(ctx context.Context) ([]Model, error)
	ListParameters(ctx context.Context) ([]Parameter, error)
	ListDeviceParameters(ctx context.Context, deviceID int64) ([]DeviceParameter, error)
	Overview(ctx context.Context) (*Overview, error)
}

// Backend is the full gateway configuration service.
type Backend interface {
	Reader
	Writer
}

var _ Backend = (*Client)(nil)
