package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(url string) *Client {
	return NewClient(url, WithRetry(2, time.Millisecond), WithRateLimit(0, 0))
}

func TestNewClientDefaults(t *testing.T) {
	client := NewClient("")

	if client.BaseURL != DefaultBaseURL {
		t.Errorf("BaseURL = %s, want %s", client.BaseURL, DefaultBaseURL)
	}
	if client.HTTPClient == nil {
		t.Fatal("HTTPClient should not be nil")
	}
	if client.HTTPClient.Timeout != 0 {
		t.Errorf("Timeout = %v, want no client timeout", client.HTTPClient.Timeout)
	}
	if client.Limiter == nil {
		t.Error("Limiter should be set by default")
	}
}

func TestClientOptions(t *testing.T) {
	client := NewClient("http://10.0.0.5:9000/", WithTimeout(3*time.Second), WithRetry(5, time.Second), WithRateLimit(0, 0))

	if client.BaseURL != "http://10.0.0.5:9000" {
		t.Errorf("BaseURL = %s, trailing slash should be trimmed", client.BaseURL)
	}
	if client.HTTPClient.Timeout != 3*time.Second {
		t.Errorf("Timeout = %v, want 3s", client.HTTPClient.Timeout)
	}
	if client.MaxRetries != 5 {
		t.Errorf("MaxRetries = %d, want 5", client.MaxRetries)
	}
	if client.Limiter != nil {
		t.Error("rate 0 should disable the limiter")
	}
}

func TestCreateModelSendsJSON(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/models" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("X-Request-ID header missing")
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %s", ct)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"id": 12, "success": true}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	id, err := client.CreateModel(context.Background(), &CreateModelRequest{
		Brand: "Schneider", Model: "PM5350", DevType: "Power Meter", Interface: 1,
	})
	if err != nil {
		t.Fatalf("CreateModel() error = %v", err)
	}
	if id != 12 {
		t.Errorf("id = %d, want 12", id)
	}
	if got["model"] != "PM5350" || got["dev_type"] != "Power Meter" {
		t.Errorf("unexpected body %v", got)
	}
}

func TestCreateParameterSendsNulls(t *testing.T) {
	var raw string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		raw = string(b)
		_, _ = w.Write([]byte(`{"id": 4}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.CreateParameter(context.Background(), &CreateParameterRequest{
		ModelID: 1, Name: "Voltage", Attr: "voltage", DataType: 2, RW: 1, Source: 4,
		Unit: NullString(""),
	})
	if err != nil {
		t.Fatalf("CreateParameter() error = %v", err)
	}

	for _, member := range []string{`"unit":null`, `"channel":null`, `"bit":null`, `"lower_limit":null`, `"description":null`} {
		if !strings.Contains(raw, member) {
			t.Errorf("body %s should contain %s", raw, member)
		}
	}
	if strings.Contains(raw, `"unit":""`) {
		t.Error("empty unit must not be sent as empty string")
	}
}

func TestCreateErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantType  ErrorType
		wantMsg   string
		retryable bool
	}{
		{"json error member", http.StatusConflict, `{"error":"model already exists"}`, ErrTypeHTTP, "model already exists", false},
		{"json without error", http.StatusBadRequest, `{"ok":false}`, ErrTypeHTTP, "Failed to add model", false},
		{"plain text", http.StatusInternalServerError, "database is locked", ErrTypeHTTP, "database is locked", true},
		{"empty body", http.StatusBadGateway, "", ErrTypeHTTP, "Failed to add model (HTTP 502)", true},
		{"not found", http.StatusNotFound, "", ErrTypeNotFound, "Failed to add model (HTTP 404)", false},
		{"missing id", http.StatusOK, `{}`, ErrTypeRejected, "Failed to get new model ID from server", false},
		{"reported failure", http.StatusOK, `{"success":false,"error":"name taken"}`, ErrTypeRejected, "name taken", false},
		{"bad json", http.StatusOK, `{"id":`, ErrTypeParse, "failed to parse JSON response", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := newTestClient(server.URL).CreateModel(context.Background(), &CreateModelRequest{Model: "x"})
			apiErr, ok := asAPIError(err)
			if !ok {
				t.Fatalf("error = %v, want *APIError", err)
			}
			if apiErr.Type != tt.wantType {
				t.Errorf("Type = %v, want %v", apiErr.Type, tt.wantType)
			}
			if apiErr.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", apiErr.Message, tt.wantMsg)
			}
			if apiErr.Retryable != tt.retryable {
				t.Errorf("Retryable = %v, want %v", apiErr.Retryable, tt.retryable)
			}
		})
	}
}

func TestWritesAreNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).CreateDevice(context.Background(), &CreateDeviceRequest{DeviceID: "d"})
	if err == nil {
		t.Fatal("expected error")
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("POST sent %d times, want 1", n)
	}
}

func TestReadsAreRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`[{"id":1,"name":"Meter 1","modelName":"PM5350","nwkStatus":1,"enabled":1}]`))
	}))
	defer server.Close()

	devices, err := newTestClient(server.URL).ListDevices(context.Background())
	if err != nil {
		t.Fatalf("ListDevices() error = %v", err)
	}
	if len(devices) != 1 || devices[0].Name != "Meter 1" {
		t.Errorf("devices = %+v", devices)
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Errorf("GET sent %d times, want 3", n)
	}
}

func TestModelListIsCachedUntilWrite(t *testing.T) {
	var lists int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			atomic.AddInt32(&lists, 1)
			_, _ = w.Write([]byte(`[{"id":1,"model":"PM5350","type":"Power Meter","brand":"Schneider"}]`))
		case http.MethodPost:
			_, _ = w.Write([]byte(`{"id":2}`))
		}
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := client.ListModels(ctx); err != nil {
			t.Fatalf("ListModels() error = %v", err)
		}
	}
	if n := atomic.LoadInt32(&lists); n != 1 {
		t.Errorf("list fetched %d times, want 1", n)
	}

	if _, err := client.CreateModel(ctx, &CreateModelRequest{Model: "B"}); err != nil {
		t.Fatalf("CreateModel() error = %v", err)
	}
	if _, err := client.ListModels(ctx); err != nil {
		t.Fatalf("ListModels() error = %v", err)
	}
	if n := atomic.LoadInt32(&lists); n != 2 {
		t.Errorf("list fetched %d times after write, want 2", n)
	}
}

func TestUpdateDeviceRejectsEmptyPatch(t *testing.T) {
	client := newTestClient("http://127.0.0.1:1")
	err := client.UpdateDevice(context.Background(), 1, DevicePatch{})
	if apiErr, ok := asAPIError(err); !ok || apiErr.Type != ErrTypeValidation {
		t.Errorf("error = %v, want validation error", err)
	}
}

func TestUpdateDeviceSendsPatch(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != "/api/devices/7" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	err := newTestClient(server.URL).UpdateDevice(context.Background(), 7, DevicePatch{"loc_name": nil, "log_intvl": 60})
	if err != nil {
		t.Fatalf("UpdateDevice() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("patch = %v, want only changed members", got)
	}
	if v, ok := got["loc_name"]; !ok || v != nil {
		t.Errorf("loc_name = %v, want explicit null", v)
	}
}

func TestEventsURL(t *testing.T) {
	tests := map[string]string{
		"http://10.0.0.5:9000": "ws://10.0.0.5:9000/api/events",
		"https://gw.local":     "wss://gw.local/api/events",
	}
	for base, want := range tests {
		if got := NewClient(base).EventsURL(); got != want {
			t.Errorf("EventsURL(%s) = %s, want %s", base, got, want)
		}
	}
}
