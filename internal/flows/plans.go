package flows

import (
	"context"
	"fmt"

	"github.com/tcam/gwcfg/internal/api"
	"github.com/tcam/gwcfg/internal/catalog"
	"github.com/tcam/gwcfg/internal/submit"
	"github.com/tcam/gwcfg/internal/wizard"
)

// Scope keys
const (
	keyModelID  = "model_id"
	keyDeviceID = "device_id"
	keyChannel  = "channel"
)

func itemLabel(item wizard.Fields, key wizard.FieldKey, index int) string {
	if s := item.String(key); s != "" {
		return s
	}
	return fmt.Sprintf("#%d", index+1)
}

// modbusStep creates the register mapping of a modbus parameter and records
// the returned ID as the parameter's channel.
func modbusStep(b api.Writer, item wizard.Fields, label string, policy submit.Policy) submit.Step {
	return submit.Step{
		Name:   "Create modbus config " + label,
		Text:   fmt.Sprintf("Creating modbus config for %s...", label),
		Policy: policy,
		Run: func(ctx context.Context, scope *submit.Scope) error {
			modelID, err := scope.MustID(keyModelID)
			if err != nil {
				return err
			}
			req, err := ModbusRequest(modelID, item)
			if err != nil {
				return err
			}
			id, err := b.CreateModbusConfig(ctx, req)
			if err != nil {
				return err
			}
			scope.Set(keyChannel, id)
			return nil
		},
	}
}

// parameterStep creates a parameter, referencing the channel recorded by a
// preceding modbus step when there is one.
func parameterStep(b api.Writer, item wizard.Fields, label string, policy submit.Policy) submit.Step {
	return submit.Step{
		Name:   "Create parameter " + label,
		Text:   fmt.Sprintf("Creating parameter %s...", label),
		Policy: policy,
		Run: func(ctx context.Context, scope *submit.Scope) error {
			modelID, err := scope.MustID(keyModelID)
			if err != nil {
				return err
			}
			var channel *int64
			if id, ok := scope.ID(keyChannel); ok {
				channel = &id
			}
			req, err := ParameterRequest(modelID, channel, item)
			if err != nil {
				return err
			}
			_, err = b.CreateParameter(ctx, req)
			return err
		},
	}
}

// ModelPlan creates the model, then each parameter. A modbus parameter's
// register mapping is created first; when that fails the parameter is
// still created, without a channel.
func ModelPlan(b api.Writer, f wizard.Fields) (*submit.Plan, error) {
	modelReq, err := ModelRequest(f)
	if err != nil {
		return nil, err
	}

	plan := submit.NewPlan(string(wizard.KindModel))
	plan.AddRoot(submit.Step{
		Name:   "Create model",
		Text:   "Creating Model...",
		Policy: submit.Critical,
		Run: func(ctx context.Context, scope *submit.Scope) error {
			id, err := b.CreateModel(ctx, modelReq)
			if err != nil {
				return err
			}
			scope.Set(keyModelID, id)
			return nil
		},
	})

	for i, item := range f.List(FieldParameters) {
		label := itemLabel(item, FieldName, i)
		var steps []submit.Step
		if item.String(FieldSourceType) == catalog.SourceModbus {
			steps = append(steps, modbusStep(b, item, label, submit.Optional))
		}
		steps = append(steps, parameterStep(b, item, label, submit.Required))
		plan.AddItem(label, steps...)
	}
	return plan, nil
}

// ParameterPlan adds one parameter to a registered model. Every call is
// critical: there is nothing independent to continue with.
func ParameterPlan(b api.Backend, f wizard.Fields) (*submit.Plan, error) {
	model := f.String(FieldModel)
	label := itemLabel(f, FieldName, 0)

	plan := submit.NewPlan(string(wizard.KindParameter))
	plan.AddRoot(submit.Step{
		Name:   "Resolve model",
		Text:   fmt.Sprintf("Looking up model %s...", model),
		Policy: submit.Critical,
		Run: func(ctx context.Context, scope *submit.Scope) error {
			id, err := resolveModelID(ctx, b, model)
			if err != nil {
				return err
			}
			if id == nil {
				return fmt.Errorf("model %q is not registered on the gateway", model)
			}
			scope.Set(keyModelID, *id)
			return nil
		},
	})
	if f.String(FieldSourceType) == catalog.SourceModbus {
		plan.AddRoot(modbusStep(b, f, label, submit.Critical))
	}
	plan.AddRoot(parameterStep(b, f, label, submit.Critical))
	return plan, nil
}

// DevicePlan creates the device, then links each parameter row marked
// linked. Unlinked rows are skipped; a failed link does not stop the
// others.
func DevicePlan(b api.Backend, f wizard.Fields) (*submit.Plan, error) {
	model := f.String(FieldModel)
	if _, err := DeviceRequest(nil, f); err != nil {
		return nil, err
	}

	plan := submit.NewPlan(string(wizard.KindDevice))
	plan.AddRoot(submit.Step{
		Name:   "Create device",
		Text:   "Creating Device...",
		Policy: submit.Critical,
		Run: func(ctx context.Context, scope *submit.Scope) error {
			modelID, err := resolveModelID(ctx, b, model)
			if err != nil {
				return err
			}
			req, err := DeviceRequest(modelID, f)
			if err != nil {
				return err
			}
			id, err := b.CreateDevice(ctx, req)
			if err != nil {
				return err
			}
			scope.Set(keyDeviceID, id)
			return nil
		},
	})

	for i, item := range f.List(FieldParameters) {
		if item.String(FieldLinked) != "1" {
			continue
		}
		label := itemLabel(item, FieldParamName, i)
		plan.AddItem(label, submit.Step{
			Name:   "Link parameter " + label,
			Text:   fmt.Sprintf("Linking parameter %s...", label),
			Policy: submit.Required,
			Run: func(ctx context.Context, scope *submit.Scope) error {
				devID, err := scope.MustID(keyDeviceID)
				if err != nil {
					return err
				}
				req, err := LinkRequest(devID, item)
				if err != nil {
					return err
				}
				_, err = b.LinkDeviceParameter(ctx, req)
				return err
			},
		})
	}
	return plan, nil
}

// RulePlan creates the rule in one call.
func RulePlan(b api.Writer, f wizard.Fields) (*submit.Plan, error) {
	req, err := RuleRequest(f)
	if err != nil {
		return nil, err
	}
	plan := submit.NewPlan(string(wizard.KindRule))
	plan.AddRoot(submit.Step{
		Name:   "Create rule",
		Text:   "Creating Rule...",
		Policy: submit.Critical,
		Run: func(ctx context.Context, scope *submit.Scope) error {
			_, err := b.CreateRule(ctx, req)
			return err
		},
	})
	return plan, nil
}

// PlanFor derives the submission plan of a finished wizard.
func PlanFor(kind wizard.Kind, b api.Backend, f wizard.Fields) (*submit.Plan, error) {
	switch kind {
	case wizard.KindModel:
		return ModelPlan(b, f)
	case wizard.KindParameter:
		return ParameterPlan(b, f)
	case wizard.KindDevice:
		return DevicePlan(b, f)
	case wizard.KindRule:
		return RulePlan(b, f)
	default:
		return nil, fmt.Errorf("no submission plan for %q", kind)
	}
}
