package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tcam/gwcfg/internal/logging"
)

const (
	// Time allowed to read the next message or pong from the gateway
	pongWait = 60 * time.Second

	// Send pings with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Time allowed to write a control message
	writeWait = 10 * time.Second
)

// EventsURL returns the websocket address of the change feed.
func (c *Client) EventsURL() string {
	u := c.BaseURL
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/api/events"
}

// WatchEvents streams change notifications to handle until ctx is done or
// the gateway closes the feed. A normal close or cancellation returns nil.
func (c *Client) WatchEvents(ctx context.Context, handle func(Event)) error {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: c.HTTPClient.Timeout,
	}
	header := http.Header{}
	header.Set("User-Agent", c.UserAgent)

	conn, resp, err := dialer.DialContext(ctx, c.EventsURL(), header)
	if err != nil {
		if resp != nil {
			return NewHTTPError(resp.StatusCode, "event feed unavailable")
		}
		return NewNetworkError("failed to open event feed", err)
	}
	defer func() { _ = conn.Close() }()
	logging.LogConnection(c.EventsURL(), "events_opened")

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(writeWait))
				_ = conn.Close()
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logging.LogConnection(c.EventsURL(), "events_closed")
				return nil
			}
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				return NewNetworkError("event feed closed", err)
			}
			return NewNetworkError("event feed read failed", err)
		}

		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			logging.Warn("Ignoring malformed event", zap.Error(err), zap.Int("length", len(data)))
			continue
		}
		handle(ev)
	}
}
