package server

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"

	"github.com/tcam/gwcfg/internal/api"
	"github.com/tcam/gwcfg/internal/logging"
	"github.com/tcam/gwcfg/internal/session"
)

// routes builds the REST surface of the gateway configuration service.
func (s *Server) routes() http.Handler {
	r := httprouter.New()

	r.GET("/api/models", s.listModels)
	r.POST("/api/models", s.createModel)
	r.POST("/api/modbus-configs", s.createModbusConfig)
	r.GET("/api/parameters", s.listParameters)
	r.POST("/api/parameters", s.createParameter)

	r.GET("/api/devices", s.listDevices)
	r.POST("/api/devices", s.createDevice)
	r.GET("/api/devices/:id", s.getDevice)
	r.PATCH("/api/devices/:id", s.updateDevice)
	r.DELETE("/api/devices/:id", s.deleteDevice)
	r.GET("/api/devices/:id/parameters", s.listDeviceParameters)

	r.POST("/api/dev-param-maps", s.linkParameter)
	r.DELETE("/api/dev-param-maps/:id", s.unlinkParameter)

	r.POST("/api/rules", s.createRule)
	r.GET("/api/overview", s.overview)

	r.POST("/api/login", s.login)
	r.GET("/api/me", s.me)
	r.GET("/api/events", s.handleEvents)

	r.NotFound = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	r.PanicHandler = func(w http.ResponseWriter, req *http.Request, v any) {
		logging.Error("Handler panic", zap.String("path", req.URL.Path), zap.Any("panic", v))
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}

	return logRequests(r)
}

// statusRecorder captures the response status for request logging. It
// passes Hijack through so the events feed can upgrade.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer cannot hijack")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logging.LogHTTPRequest(r.RemoteAddr, r.Method, r.URL.Path, rec.status)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn("Failed to write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"success": false, "error": message})
}

// writeStoreError maps a store error onto a status code. Errors that are
// not store errors, such as injected failures, become 500s carrying their
// message.
func writeStoreError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, ErrInvalid):
		status = http.StatusBadRequest
	}
	var apiErr *api.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode != 0 {
		status = apiErr.StatusCode
	}
	writeError(w, status, err.Error())
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid JSON body: %v", err))
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, ps httprouter.Params) (int64, bool) {
	id, err := strconv.ParseInt(ps.ByName("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid id")
		return 0, false
	}
	return id, true
}

func created(w http.ResponseWriter, id int64, err error) {
	if err != nil {
		writeStoreError(w, err)
		return
	}
	ok := true
	writeJSON(w, http.StatusCreated, api.CreateResponse{ID: id, Success: &ok})
}

func (s *Server) listModels(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	models, err := s.store.ListModels(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models)
}

func (s *Server) createModel(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req api.CreateModelRequest
	if decodeBody(w, r, &req) {
		id, err := s.store.CreateModel(r.Context(), &req)
		created(w, id, err)
	}
}

func (s *Server) createModbusConfig(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req api.CreateModbusConfigRequest
	if decodeBody(w, r, &req) {
		id, err := s.store.CreateModbusConfig(r.Context(), &req)
		created(w, id, err)
	}
}

func (s *Server) listParameters(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	params, err := s.store.ListParameters(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, params)
}

func (s *Server) createParameter(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req api.CreateParameterRequest
	if decodeBody(w, r, &req) {
		id, err := s.store.CreateParameter(r.Context(), &req)
		created(w, id, err)
	}
}

func (s *Server) listDevices(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	devices, err := s.store.ListDevices(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, devices)
}

func (s *Server) createDevice(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req api.CreateDeviceRequest
	if decodeBody(w, r, &req) {
		id, err := s.store.CreateDevice(r.Context(), &req)
		created(w, id, err)
	}
}

func (s *Server) getDevice(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := pathID(w, ps)
	if !ok {
		return
	}
	dev, err := s.store.GetDevice(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dev)
}

func (s *Server) updateDevice(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := pathID(w, ps)
	if !ok {
		return
	}
	var patch api.DevicePatch
	if !decodeBody(w, r, &patch) {
		return
	}
	if err := s.store.UpdateDevice(r.Context(), id, patch); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) deleteDevice(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := pathID(w, ps)
	if !ok {
		return
	}
	if err := s.store.DeleteDevice(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) listDeviceParameters(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := pathID(w, ps)
	if !ok {
		return
	}
	params, err := s.store.ListDeviceParameters(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if params == nil {
		params = []api.DeviceParameter{}
	}
	writeJSON(w, http.StatusOK, params)
}

func (s *Server) linkParameter(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req api.LinkParameterRequest
	if decodeBody(w, r, &req) {
		id, err := s.store.LinkDeviceParameter(r.Context(), &req)
		created(w, id, err)
	}
}

func (s *Server) unlinkParameter(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := pathID(w, ps)
	if !ok {
		return
	}
	if err := s.store.UnlinkDeviceParameter(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) createRule(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req api.CreateRuleRequest
	if decodeBody(w, r, &req) {
		id, err := s.store.CreateRule(r.Context(), &req)
		created(w, id, err)
	}
}

func (s *Server) overview(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	o, err := s.store.Overview(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req api.LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	u, err := session.Authenticate(s.users, req.Username, req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	token := uuid.NewString()
	s.mu.Lock()
	s.tokens[token] = u
	s.mu.Unlock()

	logging.Info("Operator signed in", zap.String("username", u.Username), zap.String("remote_addr", r.RemoteAddr))
	writeJSON(w, http.StatusOK, api.LoginResponse{Token: token, User: *u})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	s.mu.Lock()
	u, ok := s.tokens[token]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not signed in")
		return
	}
	writeJSON(w, http.StatusOK, u)
}
