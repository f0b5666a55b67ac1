package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-cleanhttp"
	"golang.org/x/time/rate"

	"github.com/tcam/gwcfg/internal/logging"
	"github.com/tcam/gwcfg/internal/session"
	"github.com/tcam/gwcfg/internal/version"
)

const (
	// DefaultBaseURL is where the gateway's configuration service listens
	DefaultBaseURL = "http://localhost:9000"

	// DefaultTimeout is the default HTTP request timeout. Zero leaves
	// requests bounded only by the transport.
	DefaultTimeout time.Duration = 0

	// DefaultMaxRetries is the default number of retry attempts for failed reads
	DefaultMaxRetries = 2

	// DefaultRetryDelay is the default delay between retry attempts
	DefaultRetryDelay = 500 * time.Millisecond

	// DefaultMaxRetryDelay is the maximum delay for exponential backoff
	DefaultMaxRetryDelay = 5 * time.Second

	// DefaultCacheDuration is how long model and parameter lists are reused
	DefaultCacheDuration = 10 * time.Second

	// DefaultRateLimit is the sustained request rate per second
	DefaultRateLimit = 20
)

// Client talks to the gateway's REST configuration service.
//
// Reads (GET) are retried with backoff on retryable errors. Writes are
// sent exactly once: a retried POST could create a duplicate.
type Client struct {
	// BaseURL is the service root, e.g. "http://192.168.1.50:9000"
	BaseURL string

	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client

	// MaxRetries is the maximum number of retry attempts for failed reads
	MaxRetries int

	// RetryDelay is the initial delay between retry attempts
	RetryDelay time.Duration

	// MaxRetryDelay is the maximum delay for exponential backoff
	MaxRetryDelay time.Duration

	// UseExponentialBackoff enables exponential backoff for retries
	UseExponentialBackoff bool

	// CacheDuration is how long list responses stay valid (0 = disabled)
	CacheDuration time.Duration

	// Limiter spaces out requests; nil disables limiting
	Limiter *rate.Limiter

	// UserAgent is sent with every request
	UserAgent string

	// Token is sent as a bearer token when set
	Token string

	cache      map[string]cacheEntry
	cacheMutex sync.RWMutex
}

type cacheEntry struct {
	body []byte
	at   time.Time
}

// Option customises a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.HTTPClient.Timeout = d }
}

// WithRetry sets the retry budget for reads.
func WithRetry(maxRetries int, delay time.Duration) Option {
	return func(c *Client) {
		c.MaxRetries = maxRetries
		c.RetryDelay = delay
	}
}

// WithRateLimit limits requests to rps per second with the given burst.
// rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.Limiter = nil
			return
		}
		c.Limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithToken authenticates requests with a token from Login.
func WithToken(token string) Option {
	return func(c *Client) { c.Token = token }
}

// NewClient creates a client for the service at baseURL. An empty baseURL
// means DefaultBaseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	hc := cleanhttp.DefaultPooledClient()
	hc.Timeout = DefaultTimeout

	c := &Client{
		BaseURL:               strings.TrimRight(baseURL, "/"),
		HTTPClient:            hc,
		MaxRetries:            DefaultMaxRetries,
		RetryDelay:            DefaultRetryDelay,
		MaxRetryDelay:         DefaultMaxRetryDelay,
		UseExponentialBackoff: true,
		CacheDuration:         DefaultCacheDuration,
		Limiter:               rate.NewLimiter(DefaultRateLimit, DefaultRateLimit),
		UserAgent:             version.UserAgent(),
		cache:                 make(map[string]cacheEntry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// InvalidateCache drops every cached list response.
func (c *Client) InvalidateCache() {
	c.cacheMutex.Lock()
	defer c.cacheMutex.Unlock()
	c.cache = make(map[string]cacheEntry)
}

func (c *Client) cached(path string) ([]byte, bool) {
	if c.CacheDuration <= 0 {
		return nil, false
	}
	c.cacheMutex.RLock()
	defer c.cacheMutex.RUnlock()
	e, ok := c.cache[path]
	if !ok || time.Since(e.at) >= c.CacheDuration {
		return nil, false
	}
	return e.body, true
}

func (c *Client) store(path string, body []byte) {
	if c.CacheDuration <= 0 {
		return
	}
	c.cacheMutex.Lock()
	defer c.cacheMutex.Unlock()
	c.cache[path] = cacheEntry{body: body, at: time.Now()}
}

// do performs a single request and returns the response body of a 2xx
// reply. op names the operation in error messages ("add model").
func (c *Client) do(ctx context.Context, method, path, op string, payload any) ([]byte, error) {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return nil, NewNetworkError("request cancelled", err)
		}
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, NewValidationError(fmt.Sprintf("cannot encode %s request: %v", op, err))
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, NewNetworkError(fmt.Sprintf("failed to create %s request", method), err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		apiErr := NewNetworkError(fmt.Sprintf("%s request failed", method), err)
		apiErr.Method, apiErr.Path = method, path
		return nil, apiErr
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	logging.LogRequest(method, path, requestID, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, NewNetworkError("failed to read response body", err)
	}
	logging.LogResponseBody(path, data)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := NewHTTPError(resp.StatusCode, BackendMessage(op, resp.StatusCode, data))
		apiErr.Method, apiErr.Path = method, path
		return nil, apiErr
	}
	return data, nil
}

// get fetches path with retries and decodes the JSON reply into out.
func (c *Client) get(ctx context.Context, path, op string, useCache bool, out any) error {
	if useCache {
		if data, ok := c.cached(path); ok {
			return decode(data, out)
		}
	}

	var lastErr error
	currentDelay := c.RetryDelay

	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return NewNetworkError("request cancelled", ctx.Err())
			case <-time.After(currentDelay):
			}

			if c.UseExponentialBackoff {
				currentDelay *= 2
				if currentDelay > c.MaxRetryDelay {
					currentDelay = c.MaxRetryDelay
				}
			}
		}

		data, err := c.do(ctx, http.MethodGet, path, op, nil)
		if err == nil {
			if err := decode(data, out); err != nil {
				return err
			}
			if useCache {
				c.store(path, data)
			}
			return nil
		}

		lastErr = err

		// Don't retry non-retryable errors
		if !IsRetryable(err) {
			return err
		}
	}

	return lastErr
}

// create POSTs payload and returns the new entity's ID.
func (c *Client) create(ctx context.Context, path, op, entity string, payload any) (int64, error) {
	data, err := c.do(ctx, http.MethodPost, path, op, payload)
	if err != nil {
		return 0, err
	}
	c.InvalidateCache()

	var res CreateResponse
	if err := decode(data, &res); err != nil {
		return 0, err
	}
	if res.Success != nil && !*res.Success {
		msg := res.Error
		if msg == "" {
			msg = fmt.Sprintf("Failed to %s", op)
		}
		return 0, NewRejectedError(msg)
	}
	if res.ID == 0 {
		msg := res.Error
		if msg == "" {
			msg = fmt.Sprintf("Failed to get new %s ID from server", entity)
		}
		return 0, NewRejectedError(msg)
	}
	return res.ID, nil
}

func decode(data []byte, out any) error {
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return NewParseError("failed to parse JSON response", err)
	}
	return nil
}

// CreateModel registers a device model.
func (c *Client) CreateModel(ctx context.Context, req *CreateModelRequest) (int64, error) {
	return c.create(ctx, "/api/models", "add model", "model", req)
}

// CreateModbusConfig registers the register mapping of one modbus parameter.
func (c *Client) CreateModbusConfig(ctx context.Context, req *CreateModbusConfigRequest) (int64, error) {
	return c.create(ctx, "/api/modbus-configs", "add modbus config", "modbus config", req)
}

// CreateParameter registers a parameter of a model.
func (c *Client) CreateParameter(ctx context.Context, req *CreateParameterRequest) (int64, error) {
	return c.create(ctx, "/api/parameters", "add parameter", "parameter", req)
}

// CreateDevice registers a device instance.
func (c *Client) CreateDevice(ctx context.Context, req *CreateDeviceRequest) (int64, error) {
	return c.create(ctx, "/api/devices", "add device", "device", req)
}

// LinkDeviceParameter attaches a parameter to a device.
func (c *Client) LinkDeviceParameter(ctx context.Context, req *LinkParameterRequest) (int64, error) {
	return c.create(ctx, "/api/dev-param-maps", "link parameter", "mapping", req)
}

// CreateRule registers an automation rule.
func (c *Client) CreateRule(ctx context.Context, req *CreateRuleRequest) (int64, error) {
	return c.create(ctx, "/api/rules", "add rule", "rule", req)
}

// UnlinkDeviceParameter removes a device-parameter mapping.
func (c *Client) UnlinkDeviceParameter(ctx context.Context, mapID int64) error {
	_, err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/dev-param-maps/%d", mapID), "unlink parameter", nil)
	if err == nil {
		c.InvalidateCache()
	}
	return err
}

// UpdateDevice sends only the changed members of a device.
func (c *Client) UpdateDevice(ctx context.Context, id int64, patch DevicePatch) error {
	if len(patch) == 0 {
		return NewValidationError("no changes to save")
	}
	_, err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/api/devices/%d", id), "update device", patch)
	if err == nil {
		c.InvalidateCache()
	}
	return err
}

// DeleteDevice removes a device.
func (c *Client) DeleteDevice(ctx context.Context, id int64) error {
	_, err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/devices/%d", id), "delete device", nil)
	if err == nil {
		c.InvalidateCache()
	}
	return err
}

// ListDevices returns every registered device.
func (c *Client) ListDevices(ctx context.Context) ([]Device, error) {
	var out []Device
	err := c.get(ctx, "/api/devices", "fetch devices", false, &out)
	return out, err
}

// GetDevice returns one device.
func (c *Client) GetDevice(ctx context.Context, id int64) (*Device, error) {
	var out Device
	if err := c.get(ctx, fmt.Sprintf("/api/devices/%d", id), "fetch device", false, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListModels returns every registered model. Responses are cached for
// CacheDuration.
func (c *Client) ListModels(ctx context.Context) ([]Model, error) {
	var out []Model
	err := c.get(ctx, "/api/models", "fetch models", true, &out)
	return out, err
}

// ListParameters returns every registered parameter. Responses are cached
// for CacheDuration.
func (c *Client) ListParameters(ctx context.Context) ([]Parameter, error) {
	var out []Parameter
	err := c.get(ctx, "/api/parameters", "fetch parameters", true, &out)
	return out, err
}

// ListDeviceParameters returns the parameters linked to a device.
func (c *Client) ListDeviceParameters(ctx context.Context, deviceID int64) ([]DeviceParameter, error) {
	var out []DeviceParameter
	err := c.get(ctx, fmt.Sprintf("/api/devices/%d/parameters", deviceID), "fetch device parameters", false, &out)
	return out, err
}

// Overview returns the gateway status summary.
func (c *Client) Overview(ctx context.Context) (*Overview, error) {
	var out Overview
	if err := c.get(ctx, "/api/overview", "fetch overview", false, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login signs in to the gateway. The returned token is not stored on c.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	data, err := c.do(ctx, http.MethodPost, "/api/login", "sign in", &LoginRequest{Username: username, Password: password})
	if err != nil {
		return nil, err
	}
	var out LoginResponse
	if err := decode(data, &out); err != nil {
		return nil, err
	}
	if out.Token == "" {
		return nil, NewRejectedError("Failed to sign in")
	}
	return &out, nil
}

// Me returns the operator signed in with c.Token.
func (c *Client) Me(ctx context.Context) (*session.User, error) {
	var out session.User
	if err := c.get(ctx, "/api/me", "fetch account", false, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
