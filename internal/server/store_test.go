package server

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tcam/gwcfg/internal/api"
)

func TestFixtureStore(t *testing.T) {
	ctx := context.Background()
	s := NewFixtureStore()

	devices, err := s.ListDevices(ctx)
	require.NoError(t, err)
	require.Len(t, devices, 8)
	assert.Equal(t, "Device-001", devices[0].Name)
	assert.Equal(t, "T-DIDO-01", devices[0].ModelName)
	assert.Equal(t, "Level 1", devices[0].Location)
	assert.Equal(t, 1, devices[0].Enabled)

	params, err := s.ListDeviceParameters(ctx, devices[0].ID)
	require.NoError(t, err)
	names := []string{params[0].Name, params[1].Name}
	assert.Equal(t, []string{"input_status", "output_control"}, names)

	models, err := s.ListModels(ctx)
	require.NoError(t, err)
	usage := map[string]int{}
	for _, m := range models {
		usage[m.Model] = m.Usage
	}
	assert.Equal(t, 1, usage["T-DIDO-01"])
	assert.Equal(t, 0, usage["T8000"])

	o, err := s.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, 8, o.DeviceCount)
}

func TestCreateModelRejections(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	_, err := s.CreateModel(ctx, &api.CreateModelRequest{Brand: "Acme", Model: "X1", DevType: "meter", Interface: 1})
	require.NoError(t, err)

	_, err = s.CreateModel(ctx, &api.CreateModelRequest{Brand: "Acme", Model: "X1", DevType: "meter"})
	assert.ErrorIs(t, err, ErrConflict)
	assert.EqualError(t, err, "Model X1 already exists")

	_, err = s.CreateModel(ctx, &api.CreateModelRequest{Model: "X2", DevType: "meter"})
	assert.ErrorIs(t, err, ErrInvalid)
	assert.EqualError(t, err, "brand is required")
}

func TestParameterCopiesRequest(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	modelID, err := s.CreateModel(ctx, &api.CreateModelRequest{Brand: "Acme", Model: "X1", DevType: "meter"})
	require.NoError(t, err)

	id, err := s.CreateParameter(ctx, &api.CreateParameterRequest{
		ModelID: modelID, Name: "Voltage", Attr: "voltage", Unit: api.Ptr("V"),
		DataType: 2, RW: 1, Source: 3, Channel: api.Ptr(int64(42)),
		LowerLimit: api.Ptr(0.0), UpperLimit: api.Ptr(250.0),
	})
	require.NoError(t, err)

	params, err := s.ListParameters(ctx)
	require.NoError(t, err)
	require.Len(t, params, 1)
	p := params[0]
	assert.Equal(t, id, p.ID)
	assert.Equal(t, "X1", p.Device)
	assert.Equal(t, "V", p.Unit)
	assert.Equal(t, "Float", p.DataType)
	assert.Equal(t, "Read & Write", p.Access)
	assert.Equal(t, "Modbus", p.SourceInterface)
	require.NotNil(t, p.Channel)
	assert.Equal(t, int64(42), *p.Channel)
	assert.Equal(t, 250.0, *p.UpperLimit)

	_, err = s.CreateParameter(ctx, &api.CreateParameterRequest{ModelID: 999, Name: "x", Attr: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeviceLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewFixtureStore()

	id, err := s.CreateDevice(ctx, &api.CreateDeviceRequest{DeviceID: "Gateway-1", PriAddr: api.Ptr("5"), En: api.Ptr(1)})
	require.NoError(t, err)

	_, err = s.CreateDevice(ctx, &api.CreateDeviceRequest{DeviceID: "Gateway-1"})
	assert.EqualError(t, err, "Device ID already exists")

	require.NoError(t, s.UpdateDevice(ctx, id, api.DevicePatch{
		"loc_name": "Plant room",
		"pri_addr": nil,
		"log_intvl": float64(3),
	}))
	dev, err := s.GetDevice(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, dev.PriAddr)
	assert.Equal(t, "Plant room", dev.Location)
	require.NotNil(t, dev.LogIntvl)
	assert.Equal(t, 3, *dev.LogIntvl)

	err = s.UpdateDevice(ctx, id, api.DevicePatch{"device_id": "Device-001"})
	assert.ErrorIs(t, err, ErrConflict)
	err = s.UpdateDevice(ctx, id, api.DevicePatch{"colour": "red"})
	assert.ErrorIs(t, err, ErrInvalid)
	err = s.UpdateDevice(ctx, id, api.DevicePatch{})
	assert.ErrorIs(t, err, ErrInvalid)

	require.NoError(t, s.DeleteDevice(ctx, id))
	_, err = s.GetDevice(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLinkAndUnlink(t *testing.T) {
	ctx := context.Background()
	s := NewFixtureStore()
	devices, _ := s.ListDevices(ctx)
	dev := devices[1]

	linked, err := s.ListDeviceParameters(ctx, dev.ID)
	require.NoError(t, err)
	require.Len(t, linked, 1)

	_, err = s.LinkDeviceParameter(ctx, &api.LinkParameterRequest{DevID: dev.ID, ParamID: linked[0].ID, Sensitivity: 1})
	assert.ErrorIs(t, err, ErrConflict)

	require.NoError(t, s.UnlinkDeviceParameter(ctx, linked[0].MapID))
	linked, err = s.ListDeviceParameters(ctx, dev.ID)
	require.NoError(t, err)
	assert.Empty(t, linked)

	assert.ErrorIs(t, s.UnlinkDeviceParameter(ctx, 9999), ErrNotFound)
}

func TestFailureInjection(t *testing.T) {
	ctx := context.Background()
	s := NewFixtureStore()
	boom := errors.New("disk full")

	s.FailWhen("CreateDevice", func(c Call) bool {
		return c.Body.(api.CreateDeviceRequest).DeviceID == "bad"
	}, boom)

	_, err := s.CreateDevice(ctx, &api.CreateDeviceRequest{DeviceID: "good"})
	require.NoError(t, err)
	_, err = s.CreateDevice(ctx, &api.CreateDeviceRequest{DeviceID: "bad"})
	assert.ErrorIs(t, err, boom)
	_, err = s.CreateDevice(ctx, &api.CreateDeviceRequest{DeviceID: "bad"})
	assert.NoError(t, err, "an injected failure fires once")

	assert.Len(t, s.CallsTo("CreateDevice"), 3)
}

func TestSubscribe(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	events, cancel := s.Subscribe()

	id, err := s.CreateModel(ctx, &api.CreateModelRequest{Brand: "Acme", Model: "X1", DevType: "meter"})
	require.NoError(t, err)

	ev := <-events
	assert.Equal(t, "created", ev.Type)
	assert.Equal(t, "model", ev.Entity)
	assert.Equal(t, id, ev.ID)

	cancel()
	_, ok := <-events
	assert.False(t, ok)
}

func TestRuleValidation(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	_, err := s.CreateRule(ctx, &api.CreateRuleRequest{Name: "High temp", Severity: "Warning", Logic: "AND"})
	assert.EqualError(t, err, "conditions needs at least 1 entries")
}
