package flows

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tcam/gwcfg/internal/api"
	"github.com/tcam/gwcfg/internal/logging"
)

// VerifyOptions controls how an edit is read back from the gateway.
type VerifyOptions struct {
	// MaxRetries is the number of read-backs after the first one.
	MaxRetries int

	// InitialDelay gives the gateway time to apply the edit.
	InitialDelay time.Duration

	RetryDelay            time.Duration
	UseExponentialBackoff bool
	MaxRetryDelay         time.Duration
}

// DefaultVerifyOptions returns the read-back schedule used by the CLI.
func DefaultVerifyOptions() *VerifyOptions {
	return &VerifyOptions{
		MaxRetries:            3,
		InitialDelay:          200 * time.Millisecond,
		RetryDelay:            500 * time.Millisecond,
		UseExponentialBackoff: true,
		MaxRetryDelay:         4 * time.Second,
	}
}

// Verification is the outcome of UpdateDevice.
type Verification struct {
	Attempts   int
	Device     *api.Device // last state read back
	Mismatches []string
	Unchecked  []string // patched fields the device listing does not expose
	Err        error
}

// OK reports whether the edit was applied and read back intact.
func (v *Verification) OK() bool {
	return v.Err == nil && len(v.Mismatches) == 0
}

// patchAliases maps request members onto the names GET /api/devices uses
// for the same value.
var patchAliases = map[string]string{
	"device_id": "name",
	"pri_addr":  "priAddr",
	"en":        "enabled",
}

// UpdateDevice sends patch and, unless opts is nil, reads the device back
// until every patched field shows the new value or the retries run out.
func UpdateDevice(ctx context.Context, b api.Backend, id int64, patch api.DevicePatch, opts *VerifyOptions) *Verification {
	v := &Verification{}
	if err := b.UpdateDevice(ctx, id, patch); err != nil {
		v.Err = fmt.Errorf("update failed: %w", err)
		return v
	}
	if opts == nil {
		return v
	}

	if err := sleep(ctx, opts.InitialDelay); err != nil {
		v.Err = err
		return v
	}
	delay := opts.RetryDelay
	for attempt := 0; attempt <= opts.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, delay); err != nil {
				v.Err = err
				return v
			}
			if opts.UseExponentialBackoff {
				delay = min(delay*2, opts.MaxRetryDelay)
			}
		}
		v.Attempts++

		dev, err := b.GetDevice(ctx, id)
		if err != nil {
			// the gateway may still be applying the edit
			v.Err = fmt.Errorf("attempt %d: failed to read device back: %w", v.Attempts, err)
			continue
		}
		v.Err = nil
		v.Device = dev
		v.Mismatches, v.Unchecked = comparePatch(patch, dev)
		if len(v.Mismatches) == 0 {
			return v
		}
		logging.Debug("Device read-back mismatch",
			zap.Int64("device", id),
			zap.Int("attempt", v.Attempts),
			zap.Strings("mismatches", v.Mismatches),
		)
	}
	if v.Err == nil {
		v.Err = fmt.Errorf("verification failed after %d attempts: %s", v.Attempts, strings.Join(v.Mismatches, "; "))
	}
	return v
}

// comparePatch checks each patched member against the device as listed.
func comparePatch(patch api.DevicePatch, dev *api.Device) (mismatches, unchecked []string) {
	listed, err := asMap(dev)
	if err != nil {
		return []string{err.Error()}, nil
	}
	keys := make([]string, 0, len(patch))
	for k := range patch {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		name := key
		if alias, ok := patchAliases[key]; ok {
			name = alias
		}
		got, ok := listed[name]
		if !ok {
			unchecked = append(unchecked, key)
			continue
		}
		want, err := normalize(patch[key])
		if err != nil {
			mismatches = append(mismatches, fmt.Sprintf("%s: %v", key, err))
			continue
		}
		if !reflect.DeepEqual(want, got) {
			mismatches = append(mismatches, fmt.Sprintf("%s: expected %v, got %v", key, show(want), show(got)))
		}
	}
	return mismatches, unchecked
}

func asMap(dev *api.Device) (map[string]any, error) {
	data, err := json.Marshal(dev)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// normalize gives v the shape it would have after a JSON round trip.
func normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	err = json.Unmarshal(data, &out)
	return out, err
}

func show(v any) string {
	if v == nil {
		return "null"
	}
	return fmt.Sprint(v)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
