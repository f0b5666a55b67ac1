package flows

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tcam/gwcfg/internal/api"
	"github.com/tcam/gwcfg/internal/server"
)

func quickVerify() *VerifyOptions {
	return &VerifyOptions{MaxRetries: 2, RetryDelay: time.Millisecond, UseExponentialBackoff: true, MaxRetryDelay: 2 * time.Millisecond}
}

func firstDevice(t *testing.T, b api.Reader) int64 {
	t.Helper()
	devices, err := b.ListDevices(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, devices)
	return devices[0].ID
}

// staleReads keeps returning the old location after an edit.
type staleReads struct {
	api.Backend
	reads int
}

func (s *staleReads) GetDevice(ctx context.Context, id int64) (*api.Device, error) {
	s.reads++
	d, err := s.Backend.GetDevice(ctx, id)
	if err == nil {
		d.LocName = api.Ptr("Old wing")
	}
	return d, err
}

func TestUpdateDeviceVerifies(t *testing.T) {
	store := server.NewFixtureStore()
	id := firstDevice(t, store)

	v := UpdateDevice(context.Background(), store, id, api.DevicePatch{
		"loc_name":  "Block B",
		"log_intvl": float64(5),
		"node_id":   "n-1",
	}, quickVerify())

	require.True(t, v.OK(), "%v %v", v.Err, v.Mismatches)
	assert.Equal(t, 1, v.Attempts)
	assert.Equal(t, []string{"node_id"}, v.Unchecked)
	require.NotNil(t, v.Device.LocName)
	assert.Equal(t, "Block B", *v.Device.LocName)
}

func TestUpdateDeviceRetriesOnMismatch(t *testing.T) {
	b := &staleReads{Backend: server.NewFixtureStore()}
	id := firstDevice(t, b)

	v := UpdateDevice(context.Background(), b, id, api.DevicePatch{"loc_name": "Block B"}, quickVerify())

	assert.False(t, v.OK())
	assert.Equal(t, 3, v.Attempts)
	assert.Equal(t, 3, b.reads)
	require.Len(t, v.Mismatches, 1)
	assert.Contains(t, v.Mismatches[0], "expected Block B, got Old wing")
	assert.ErrorContains(t, v.Err, "after 3 attempts")
}

func TestUpdateDeviceWithoutVerify(t *testing.T) {
	store := server.NewFixtureStore()
	id := firstDevice(t, store)

	v := UpdateDevice(context.Background(), store, id, api.DevicePatch{"colour": "red"}, quickVerify())
	assert.ErrorContains(t, v.Err, "update failed")
	assert.Zero(t, v.Attempts)

	v = UpdateDevice(context.Background(), store, id, api.DevicePatch{"loc_name": "Block C"}, nil)
	assert.True(t, v.OK())
	assert.Zero(t, v.Attempts)
	assert.Nil(t, v.Device)
}

func TestComparePatchAliases(t *testing.T) {
	dev := &api.Device{Name: "Device-009", Enabled: 0, PriAddr: nil}
	mismatches, unchecked := comparePatch(api.DevicePatch{
		"device_id": "Device-009",
		"en":        float64(1),
		"pri_addr":  nil,
	}, dev)

	assert.Empty(t, unchecked)
	assert.Equal(t, []string{"en: expected 1, got 0"}, mismatches)
}
