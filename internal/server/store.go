package server

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jinzhu/copier"
	"go.uber.org/zap"

	"github.com/tcam/gwcfg/internal/api"
	"github.com/tcam/gwcfg/internal/catalog"
	"github.com/tcam/gwcfg/internal/logging"
)

// Store errors. The HTTP layer maps them onto status codes.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
	ErrInvalid  = errors.New("invalid request")
)

// StoreError carries the operator-facing message of a rejected call.
type StoreError struct {
	Kind    error
	Message string
}

func (e *StoreError) Error() string { return e.Message }
func (e *StoreError) Unwrap() error { return e.Kind }

func storeErr(kind error, format string, args ...any) error {
	return &StoreError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Call is one recorded backend call.
type Call struct {
	Op   string
	Body any
}

type modelRecord struct {
	ID        int64
	Brand     string
	Model     string
	DevType   string
	Interface int
	Updated   time.Time
}

type modbusRecord struct {
	ID int64
	api.CreateModbusConfigRequest
}

type paramRecord struct {
	ID          int64
	ModelID     int64
	Name        string
	Attr        string
	Unit        *string
	DataType    int
	RW          int
	Source      int
	Channel     *int64
	Bit         *int
	LowerLimit  *float64
	UpperLimit  *float64
	Runtime     *int
	Description *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type deviceRecord struct {
	ID int64
	api.CreateDeviceRequest
	NwkStatus int
	LastSeen  int64
}

type mapRecord struct {
	ID int64
	api.LinkParameterRequest
}

type ruleRecord struct {
	ID int64
	api.CreateRuleRequest
}

type failure struct {
	op   string
	when func(Call) bool
	err  error
}

// Store is an in-memory gateway configuration service. It implements
// api.Backend so submission plans can run against it directly, and backs
// the HTTP handlers of the mock gateway.
type Store struct {
	mu       sync.Mutex
	seq      int64
	models   []*modelRecord
	modbus   []*modbusRecord
	params   []*paramRecord
	devices  []*deviceRecord
	maps     []*mapRecord
	rules    []*ruleRecord
	calls    []Call
	failures []failure
	subs     map[int]chan api.Event
	nextSub  int
	overview api.Overview
	validate *validator.Validate

	// Now is the clock used for timestamps
	Now func() time.Time
}

var _ api.Backend = (*Store)(nil)

// NewStore creates an empty store.
func NewStore() *Store {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return &Store{
		subs:     make(map[int]chan api.Event),
		validate: v,
		Now:      time.Now,
		overview: api.Overview{
			SerialNumber:    "T8000-00000001",
			FirmwareVersion: "1.4.2",
			HardwareVersion: "T8000 rev C",
			NetworkIP:       "192.168.1.50",
			MACAddress:      "02:42:ac:11:00:02",
			CPUUsage:        12.5,
			MemoryUsage:     41.0,
			DiskUsage:       23.7,
		},
	}
}

// NewFixtureStore creates a store holding the built-in models, their
// parameters and eight devices.
func NewFixtureStore() *Store {
	s := NewStore()
	s.seed()
	return s
}

func (s *Store) seed() {
	now := s.Now()
	for _, t := range catalog.Templates() {
		m := &modelRecord{ID: s.next(), Brand: t.Brand, Model: t.Model, DevType: t.Type, Interface: 1, Updated: now}
		s.models = append(s.models, m)
		for _, name := range t.Parameters {
			s.params = append(s.params, &paramRecord{
				ID: s.next(), ModelID: m.ID, Name: name, Attr: name,
				DataType: 2, Source: 3, CreatedAt: now, UpdatedAt: now,
			})
		}
	}

	fixtures := []string{"T-DIDO-01", "T-TEM-01", "T-DIM-01", "T-ACP-01", "T-OCC-01", "T-EMS-01", "T-TK-01", "T-EMS-02"}
	for i, model := range fixtures {
		m, _ := s.modelByName(model)
		d := &deviceRecord{ID: s.next(), NwkStatus: 1, LastSeen: now.Unix()}
		d.DeviceID = fmt.Sprintf("Device-%03d", i+1)
		d.ModelID = api.Ptr(m.ID)
		d.NodeID = api.Ptr(model)
		d.PriAddr = api.Ptr(fmt.Sprint(i + 1))
		d.LocName = api.Ptr("Level 1")
		d.En = api.Ptr(1)
		s.devices = append(s.devices, d)
		for _, p := range s.params {
			if p.ModelID == m.ID {
				s.maps = append(s.maps, &mapRecord{ID: s.next(), LinkParameterRequest: api.LinkParameterRequest{DevID: d.ID, ParamID: p.ID, Sensitivity: 1}})
			}
		}
	}
}

func (s *Store) next() int64 {
	s.seq++
	return s.seq
}

// FailNext makes the next call of op fail with err. op is a method name
// such as "CreateParameter".
func (s *Store) FailNext(op string, err error) {
	s.FailWhen(op, nil, err)
}

// FailWhen makes the first call of op for which match returns true fail
// with err. A nil match matches any call.
func (s *Store) FailWhen(op string, match func(Call) bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, failure{op: op, when: match, err: err})
}

// Calls returns the recorded write calls in order.
func (s *Store) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CallsTo returns the recorded calls of op.
func (s *Store) CallsTo(op string) []Call {
	var out []Call
	for _, c := range s.Calls() {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// Subscribe registers for change events. The returned func unsubscribes.
// Slow subscribers miss events rather than block writers.
func (s *Store) Subscribe() (<-chan api.Event, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	ch := make(chan api.Event, 16)
	s.subs[id] = ch
	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
}

// begin records a write and applies injected failures. Callers hold mu.
func (s *Store) begin(op string, body any) error {
	call := Call{Op: op, Body: body}
	s.calls = append(s.calls, call)
	for i, f := range s.failures {
		if f.op == op && (f.when == nil || f.when(call)) {
			s.failures = append(s.failures[:i], s.failures[i+1:]...)
			logging.Debug("Injected failure", zap.String("op", op), zap.Error(f.err))
			return f.err
		}
	}
	return nil
}

// check runs the request's validate tags. Callers hold mu.
func (s *Store) check(req any) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return storeErr(ErrInvalid, "%v", err)
	}
	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required":
		return storeErr(ErrInvalid, "%s is required", fe.Field())
	case "min":
		return storeErr(ErrInvalid, "%s needs at least %s entries", fe.Field(), fe.Param())
	case "gt":
		return storeErr(ErrInvalid, "%s must be greater than %s", fe.Field(), fe.Param())
	default:
		return storeErr(ErrInvalid, "%s is invalid", fe.Field())
	}
}

// publish notifies subscribers. Callers hold mu.
func (s *Store) publish(typ, entity string, id int64) {
	ev := api.Event{Type: typ, Entity: entity, ID: id, At: s.Now().UTC().Format(time.RFC3339)}
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (s *Store) modelByName(name string) (*modelRecord, bool) {
	for _, m := range s.models {
		if strings.EqualFold(m.Model, name) {
			return m, true
		}
	}
	return nil, false
}

func (s *Store) modelByID(id int64) (*modelRecord, bool) {
	for _, m := range s.models {
		if m.ID == id {
			return m, true
		}
	}
	return nil, false
}

func (s *Store) deviceByID(id int64) (int, *deviceRecord, bool) {
	for i, d := range s.devices {
		if d.ID == id {
			return i, d, true
		}
	}
	return -1, nil, false
}

func (s *Store) paramByID(id int64) (*paramRecord, bool) {
	for _, p := range s.params {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}

// CreateModel registers a model. Model names are unique.
func (s *Store) CreateModel(_ context.Context, req *api.CreateModelRequest) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin("CreateModel", *req); err != nil {
		return 0, err
	}
	if err := s.check(req); err != nil {
		return 0, err
	}
	if _, ok := s.modelByName(req.Model); ok {
		return 0, storeErr(ErrConflict, "Model %s already exists", req.Model)
	}
	m := &modelRecord{
		ID: s.next(), Brand: req.Brand, Model: req.Model,
		DevType: req.DevType, Interface: req.Interface, Updated: s.Now(),
	}
	s.models = append(s.models, m)
	s.publish("created", "model", m.ID)
	return m.ID, nil
}

// CreateModbusConfig registers the register mapping of a modbus parameter.
func (s *Store) CreateModbusConfig(_ context.Context, req *api.CreateModbusConfigRequest) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin("CreateModbusConfig", *req); err != nil {
		return 0, err
	}
	if err := s.check(req); err != nil {
		return 0, err
	}
	if _, ok := s.modelByID(req.ModelID); !ok {
		return 0, storeErr(ErrNotFound, "Model %d not found", req.ModelID)
	}
	r := &modbusRecord{ID: s.next(), CreateModbusConfigRequest: *req}
	s.modbus = append(s.modbus, r)
	return r.ID, nil
}

// CreateParameter registers a parameter. Names are unique per model.
func (s *Store) CreateParameter(_ context.Context, req *api.CreateParameterRequest) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin("CreateParameter", *req); err != nil {
		return 0, err
	}
	if err := s.check(req); err != nil {
		return 0, err
	}
	if _, ok := s.modelByID(req.ModelID); !ok {
		return 0, storeErr(ErrNotFound, "Model %d not found", req.ModelID)
	}
	for _, p := range s.params {
		if p.ModelID == req.ModelID && p.Name == req.Name {
			return 0, storeErr(ErrConflict, "Parameter %s already exists", req.Name)
		}
	}

	var rec paramRecord
	if err := copier.Copy(&rec, req); err != nil {
		return 0, err
	}
	rec.ID = s.next()
	rec.CreatedAt = s.Now()
	rec.UpdatedAt = rec.CreatedAt
	s.params = append(s.params, &rec)
	s.publish("created", "parameter", rec.ID)
	return rec.ID, nil
}

// CreateDevice registers a device. Device IDs are unique; a model ID, when
// given, must exist.
func (s *Store) CreateDevice(_ context.Context, req *api.CreateDeviceRequest) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin("CreateDevice", *req); err != nil {
		return 0, err
	}
	if err := s.check(req); err != nil {
		return 0, err
	}
	for _, d := range s.devices {
		if d.DeviceID == req.DeviceID {
			return 0, storeErr(ErrConflict, "Device ID already exists")
		}
	}
	if req.ModelID != nil {
		if _, ok := s.modelByID(*req.ModelID); !ok {
			return 0, storeErr(ErrNotFound, "Model %d not found", *req.ModelID)
		}
	}
	d := &deviceRecord{ID: s.next(), CreateDeviceRequest: *req}
	s.devices = append(s.devices, d)
	s.publish("created", "device", d.ID)
	return d.ID, nil
}

// LinkDeviceParameter maps a parameter onto a device.
func (s *Store) LinkDeviceParameter(_ context.Context, req *api.LinkParameterRequest) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin("LinkDeviceParameter", *req); err != nil {
		return 0, err
	}
	if err := s.check(req); err != nil {
		return 0, err
	}
	if _, _, ok := s.deviceByID(req.DevID); !ok {
		return 0, storeErr(ErrNotFound, "Device %d not found", req.DevID)
	}
	if _, ok := s.paramByID(req.ParamID); !ok {
		return 0, storeErr(ErrNotFound, "Parameter %d not found", req.ParamID)
	}
	for _, m := range s.maps {
		if m.DevID == req.DevID && m.ParamID == req.ParamID {
			return 0, storeErr(ErrConflict, "Parameter %d is already linked", req.ParamID)
		}
	}
	m := &mapRecord{ID: s.next(), LinkParameterRequest: *req}
	s.maps = append(s.maps, m)
	s.publish("created", "map", m.ID)
	return m.ID, nil
}

// CreateRule stores a rule. Names are unique.
func (s *Store) CreateRule(_ context.Context, req *api.CreateRuleRequest) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin("CreateRule", *req); err != nil {
		return 0, err
	}
	if err := s.check(req); err != nil {
		return 0, err
	}
	for _, r := range s.rules {
		if r.Name == req.Name {
			return 0, storeErr(ErrConflict, "Rule %s already exists", req.Name)
		}
	}
	r := &ruleRecord{ID: s.next(), CreateRuleRequest: *req}
	s.rules = append(s.rules, r)
	s.publish("created", "rule", r.ID)
	return r.ID, nil
}

// UnlinkDeviceParameter removes a parameter mapping.
func (s *Store) UnlinkDeviceParameter(_ context.Context, mapID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin("UnlinkDeviceParameter", mapID); err != nil {
		return err
	}
	for i, m := range s.maps {
		if m.ID == mapID {
			s.maps = append(s.maps[:i], s.maps[i+1:]...)
			s.publish("deleted", "map", mapID)
			return nil
		}
	}
	return storeErr(ErrNotFound, "Mapping %d not found", mapID)
}

// UpdateDevice applies a partial update. Keys are the JSON member names of
// api.CreateDeviceRequest; a nil value clears the member.
func (s *Store) UpdateDevice(_ context.Context, id int64, patch api.DevicePatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin("UpdateDevice", patch); err != nil {
		return err
	}
	if len(patch) == 0 {
		return storeErr(ErrInvalid, "No changes to update")
	}
	_, d, ok := s.deviceByID(id)
	if !ok {
		return storeErr(ErrNotFound, "Device %d not found", id)
	}

	updated := d.CreateDeviceRequest
	rv := reflect.ValueOf(&updated).Elem()
	fields := jsonFields(rv.Type())
	for key, value := range patch {
		idx, ok := fields[key]
		if !ok {
			return storeErr(ErrInvalid, "unknown device field %s", key)
		}
		if err := assign(rv.Field(idx), value); err != nil {
			return storeErr(ErrInvalid, "%s: %v", key, err)
		}
	}
	if updated.DeviceID == "" {
		return storeErr(ErrInvalid, "device_id is required")
	}
	for _, other := range s.devices {
		if other.ID != id && other.DeviceID == updated.DeviceID {
			return storeErr(ErrConflict, "Device ID already exists")
		}
	}
	d.CreateDeviceRequest = updated
	s.publish("updated", "device", id)
	return nil
}

// DeleteDevice removes a device and its parameter mappings.
func (s *Store) DeleteDevice(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin("DeleteDevice", id); err != nil {
		return err
	}
	i, _, ok := s.deviceByID(id)
	if !ok {
		return storeErr(ErrNotFound, "Device %d not found", id)
	}
	s.devices = append(s.devices[:i], s.devices[i+1:]...)
	kept := s.maps[:0]
	for _, m := range s.maps {
		if m.DevID != id {
			kept = append(kept, m)
		}
	}
	s.maps = kept
	s.publish("deleted", "device", id)
	return nil
}

// ListDevices returns every device with its model name.
func (s *Store) ListDevices(_ context.Context) ([]api.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]api.Device, 0, len(s.devices))
	for _, d := range s.devices {
		dev, err := s.project(d)
		if err != nil {
			return nil, err
		}
		out = append(out, dev)
	}
	return out, nil
}

// GetDevice returns one device.
func (s *Store) GetDevice(_ context.Context, id int64) (*api.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, d, ok := s.deviceByID(id)
	if !ok {
		return nil, storeErr(ErrNotFound, "Device %d not found", id)
	}
	dev, err := s.project(d)
	if err != nil {
		return nil, err
	}
	return &dev, nil
}

// project renders a device record the way GET /api/devices does. Callers
// hold mu.
func (s *Store) project(d *deviceRecord) (api.Device, error) {
	var dev api.Device
	if err := copier.Copy(&dev, d); err != nil {
		return dev, err
	}
	dev.Name = d.DeviceID
	if d.ModelID != nil {
		if m, ok := s.modelByID(*d.ModelID); ok {
			dev.ModelName = m.Model
		}
	}
	var loc []string
	for _, p := range []*string{d.LocName, d.LocSubname, d.LocBlk, d.LocUnit} {
		if p != nil && *p != "" {
			loc = append(loc, *p)
		}
	}
	dev.Location = strings.Join(loc, ", ")
	dev.Enabled = 1
	if d.En != nil {
		dev.Enabled = *d.En
	}
	return dev, nil
}

// ListModels returns every model with the number of devices using it.
func (s *Store) ListModels(_ context.Context) ([]api.Model, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]api.Model, 0, len(s.models))
	for _, m := range s.models {
		usage := 0
		for _, d := range s.devices {
			if d.ModelID != nil && *d.ModelID == m.ID {
				usage++
			}
		}
		out = append(out, api.Model{
			ID: m.ID, Model: m.Model, Type: m.DevType, Brand: m.Brand,
			Usage: usage, LastUpdated: m.Updated.UTC().Format(time.RFC3339),
		})
	}
	return out, nil
}

// ListParameters returns every parameter, labelled for display.
func (s *Store) ListParameters(_ context.Context) ([]api.Parameter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]api.Parameter, 0, len(s.params))
	for _, p := range s.params {
		out = append(out, s.parameterRow(p))
	}
	return out, nil
}

func (s *Store) parameterRow(p *paramRecord) api.Parameter {
	row := api.Parameter{
		ID: p.ID, Name: p.Name,
		DataType:        catalog.DataTypeLabel(p.DataType),
		Access:          catalog.AccessLabel(p.RW),
		SourceInterface: catalog.SourceLabel(p.Source),
		Channel:         p.Channel, LowerLimit: p.LowerLimit, UpperLimit: p.UpperLimit, Bit: p.Bit,
		CreatedAt: p.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: p.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if m, ok := s.modelByID(p.ModelID); ok {
		row.Device = m.Model
	}
	if p.Unit != nil {
		row.Unit = *p.Unit
	}
	if p.Description != nil {
		row.Description = *p.Description
	}
	return row
}

// ListDeviceParameters returns the parameters linked to a device.
func (s *Store) ListDeviceParameters(_ context.Context, deviceID int64) ([]api.DeviceParameter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, _, ok := s.deviceByID(deviceID); !ok {
		return nil, storeErr(ErrNotFound, "Device %d not found", deviceID)
	}
	var out []api.DeviceParameter
	for _, m := range s.maps {
		if m.DevID != deviceID {
			continue
		}
		p, ok := s.paramByID(m.ParamID)
		if !ok {
			continue
		}
		row := s.parameterRow(p)
		out = append(out, api.DeviceParameter{
			ID: p.ID, MapID: m.ID, Name: p.Name, Sensitivity: m.Sensitivity,
			Unit: row.Unit, DataType: row.DataType, RW: row.Access,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Overview returns the gateway status panel.
func (s *Store) Overview(_ context.Context) (*api.Overview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.overview
	o.DeviceCount = len(s.devices)
	o.RTC = s.Now().Format("2006-01-02 15:04:05")
	return &o, nil
}

// Rules returns the stored rules.
func (s *Store) Rules() []api.CreateRuleRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]api.CreateRuleRequest, len(s.rules))
	for i, r := range s.rules {
		out[i] = r.CreateRuleRequest
	}
	return out
}

// ModbusConfig returns a stored register mapping.
func (s *Store) ModbusConfig(id int64) (api.CreateModbusConfigRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.modbus {
		if r.ID == id {
			return r.CreateModbusConfigRequest, true
		}
	}
	return api.CreateModbusConfigRequest{}, false
}

func jsonFields(t reflect.Type) map[string]int {
	out := make(map[string]int, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		name := strings.SplitN(t.Field(i).Tag.Get("json"), ",", 2)[0]
		if name != "" && name != "-" {
			out[name] = i
		}
	}
	return out
}

// assign sets a request member from a decoded JSON value.
func assign(field reflect.Value, value any) error {
	if rv := reflect.ValueOf(value); rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			value = nil
		} else {
			value = rv.Elem().Interface()
		}
	}
	if value == nil {
		if field.Kind() != reflect.Ptr {
			return errors.New("cannot be null")
		}
		field.Set(reflect.Zero(field.Type()))
		return nil
	}

	target := field.Type()
	if target.Kind() == reflect.Ptr {
		target = target.Elem()
	}
	v := reflect.ValueOf(value)
	switch {
	case v.Type().ConvertibleTo(target) && v.Kind() != reflect.String && target.Kind() != reflect.String:
		v = v.Convert(target)
	case v.Kind() == reflect.String && target.Kind() == reflect.String:
		v = v.Convert(target)
	default:
		return fmt.Errorf("expected %s, got %T", target, value)
	}

	if field.Kind() == reflect.Ptr {
		p := reflect.New(target)
		p.Elem().Set(v)
		field.Set(p)
		return nil
	}
	field.Set(v)
	return nil
}
