package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gavv/httpexpect/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tcam/gwcfg/internal/api"
)

func newTestServer(t *testing.T) (*Server, *httpexpect.Expect, *httptest.Server) {
	t.Helper()
	srv, err := New(&Config{}, nil)
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, httpexpect.Default(t, ts.URL), ts
}

func TestListEndpoints(t *testing.T) {
	_, e, _ := newTestServer(t)

	e.GET("/api/devices").Expect().
		Status(http.StatusOK).
		JSON().Array().Length().IsEqual(8)

	e.GET("/api/devices/1/parameters").Expect().Status(http.StatusNotFound)

	models := e.GET("/api/models").Expect().Status(http.StatusOK).JSON().Array()
	models.NotEmpty()
	models.Value(0).Object().ContainsKey("model").ContainsKey("brand")

	e.GET("/api/overview").Expect().
		Status(http.StatusOK).
		JSON().Object().HasValue("device_count", 8)
}

func TestCreateAndConflict(t *testing.T) {
	_, e, _ := newTestServer(t)

	body := map[string]any{"brand": "Schneider", "model": "PM5350", "dev_type": "Power Meter", "interface": 1}
	obj := e.POST("/api/models").WithJSON(body).Expect().
		Status(http.StatusCreated).
		JSON().Object()
	obj.HasValue("success", true)
	obj.Value("id").Number().Gt(0)

	e.POST("/api/models").WithJSON(body).Expect().
		Status(http.StatusConflict).
		JSON().Object().HasValue("error", "Model PM5350 already exists")

	e.POST("/api/models").WithText("{").Expect().
		Status(http.StatusBadRequest).
		JSON().Object().Value("error").String().Contains("Invalid JSON body")
}

func TestDevicePatchAndDelete(t *testing.T) {
	_, e, _ := newTestServer(t)

	id := e.POST("/api/devices").
		WithJSON(map[string]any{"device_id": "Gateway-1", "pri_addr": "5", "sec_addr": nil}).
		Expect().Status(http.StatusCreated).
		JSON().Object().Value("id").Number().Raw()

	e.PATCH("/api/devices/{id}", int64(id)).
		WithJSON(map[string]any{"pri_addr": nil, "log_intvl": 2}).
		Expect().Status(http.StatusOK)

	dev := e.GET("/api/devices/{id}", int64(id)).Expect().Status(http.StatusOK).JSON().Object()
	dev.HasValue("name", "Gateway-1")
	dev.Value("priAddr").IsNull()
	dev.HasValue("log_intvl", 2)

	e.PATCH("/api/devices/{id}", int64(id)).WithJSON(map[string]any{}).
		Expect().Status(http.StatusBadRequest)

	e.DELETE("/api/devices/{id}", int64(id)).Expect().Status(http.StatusOK)
	e.GET("/api/devices/{id}", int64(id)).Expect().Status(http.StatusNotFound)
	e.GET("/api/devices/abc").Expect().Status(http.StatusBadRequest)
}

func TestInjectedFailureIsServerError(t *testing.T) {
	srv, e, _ := newTestServer(t)
	srv.Store().FailNext("CreateRule", errors.New("rules table is locked"))

	e.POST("/api/rules").WithJSON(map[string]any{"name": "r"}).Expect().
		Status(http.StatusInternalServerError).
		JSON().Object().HasValue("error", "rules table is locked")
}

func TestLogin(t *testing.T) {
	_, e, _ := newTestServer(t)

	e.POST("/api/login").WithJSON(map[string]string{"username": "admin", "password": "nope"}).
		Expect().Status(http.StatusUnauthorized)

	res := e.POST("/api/login").WithJSON(map[string]string{"username": "admin", "password": "password123"}).
		Expect().Status(http.StatusOK).JSON().Object()
	res.Value("user").Object().HasValue("fullName", "System Administrator")
	token := res.Value("token").String().NotEmpty().Raw()

	e.GET("/api/me").WithHeader("Authorization", "Bearer "+token).
		Expect().Status(http.StatusOK).
		JSON().Object().HasValue("username", "admin")
	e.GET("/api/me").Expect().Status(http.StatusUnauthorized)
}

func TestClientAgainstServer(t *testing.T) {
	_, _, ts := newTestServer(t)
	ctx := context.Background()
	c := api.NewClient(ts.URL, api.WithRateLimit(0, 0))

	_, err := c.CreateDevice(ctx, &api.CreateDeviceRequest{DeviceID: "Device-001"})
	require.Error(t, err)
	assert.Equal(t, "Device ID already exists", api.GetShortErrorMessage(err))
	assert.True(t, api.IsHTTPError(err))

	login, err := c.Login(ctx, "operator1", "password123")
	require.NoError(t, err)
	me, err := api.NewClient(ts.URL, api.WithToken(login.Token)).Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Operator One", me.FullName)
}

func TestEventStream(t *testing.T) {
	srv, _, ts := newTestServer(t)
	c := api.NewClient(ts.URL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan api.Event, 1)
	done := make(chan error, 1)
	go func() {
		done <- c.WatchEvents(ctx, func(ev api.Event) { got <- ev })
	}()

	require.Eventually(t, func() bool { return srv.GetActiveConnections() == 1 }, 2*time.Second, 10*time.Millisecond)

	id, err := srv.Store().CreateModel(ctx, &api.CreateModelRequest{Brand: "Acme", Model: "X9", DevType: "sensor"})
	require.NoError(t, err)

	select {
	case ev := <-got:
		assert.Equal(t, "created", ev.Type)
		assert.Equal(t, "model", ev.Entity)
		assert.Equal(t, id, ev.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("WatchEvents did not return after cancel")
	}
}
