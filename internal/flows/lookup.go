package flows

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/tcam/gwcfg/internal/api"
	"github.com/tcam/gwcfg/internal/catalog"
	"github.com/tcam/gwcfg/internal/wizard"
)

// ModelCatalog merges the built-in templates with the models registered on
// the gateway. Values are model names.
func ModelCatalog(models []api.Model) *catalog.Catalog {
	seen := make(map[string]bool)
	var names []string
	for _, t := range catalog.Templates() {
		if !seen[t.Model] {
			seen[t.Model] = true
			names = append(names, t.Model)
		}
	}
	for _, m := range models {
		if m.Model != "" && !seen[m.Model] {
			seen[m.Model] = true
			names = append(names, m.Model)
		}
	}
	sort.Strings(names)
	return catalog.Plain("model", names...)
}

// findModel returns the registered model called name.
func findModel(models []api.Model, name string) (api.Model, bool) {
	for _, m := range models {
		if m.Model == name {
			return m, true
		}
	}
	return api.Model{}, false
}

// resolveModelID looks a model name up on the gateway. A model that is not
// registered yields nil.
func resolveModelID(ctx context.Context, r api.Reader, name string) (*int64, error) {
	models, err := r.ListModels(ctx)
	if err != nil {
		return nil, err
	}
	if m, ok := findModel(models, name); ok {
		return &m.ID, nil
	}
	return nil, nil
}

// DeviceParameters returns the parameter rows a device of model starts
// with: the template's parameters plus any registered for the model, all
// linked. Registered parameters carry their ID.
func DeviceParameters(ctx context.Context, r api.Reader, model string) ([]wizard.Fields, error) {
	var registered []api.Parameter
	if r != nil {
		params, err := r.ListParameters(ctx)
		if err != nil {
			return nil, err
		}
		for _, p := range params {
			if p.Device == model {
				registered = append(registered, p)
			}
		}
	}

	row := func(name string) wizard.Fields {
		f := wizard.Fields{FieldParamName: name, FieldLinked: "1"}
		for _, p := range registered {
			if p.Name == name {
				f[FieldParamID] = strconv.FormatInt(p.ID, 10)
				break
			}
		}
		return f
	}

	seen := make(map[string]bool)
	var rows []wizard.Fields
	if t, ok := catalog.Template(model); ok {
		for _, name := range t.Parameters {
			seen[name] = true
			rows = append(rows, row(name))
		}
	}
	for _, p := range registered {
		if !seen[p.Name] {
			seen[p.Name] = true
			rows = append(rows, row(p.Name))
		}
	}
	return rows, nil
}

// SelectModel sets the device wizard's model and re-seeds its parameter
// list for that model. Choosing the current model again keeps the list.
func SelectModel(ctx context.Context, s *wizard.Session, r api.Reader, model string) error {
	if s.Definition().Kind != wizard.KindDevice {
		return fmt.Errorf("select model: %s wizard has no parameter links", s.Definition().Kind)
	}
	if s.Get(FieldModel) == model && len(s.Items(FieldParameters)) > 0 {
		return nil
	}
	rows, err := DeviceParameters(ctx, r, model)
	if err != nil {
		return err
	}
	s.SetField(FieldModel, model)
	return s.SetItems(FieldParameters, rows)
}
