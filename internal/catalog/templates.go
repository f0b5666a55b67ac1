package catalog

import "sort"

// DeviceTemplate is a built-in model a device can be created from. Its
// parameters are linked to new devices automatically unless the operator
// unlinks them.
type DeviceTemplate struct {
	Model       string
	Type        string
	Brand       string
	Description string
	Parameters  []string
}

var templates = []DeviceTemplate{
	{Model: "T8000", Type: "gateway", Brand: "TCAM", Description: "Gateway"},
	{Model: "T-AOM-01", Type: "module", Brand: "TCAM", Description: "Analog Output Module (dimmable light control)", Parameters: []string{"dimmable_light_control"}},
	{Model: "T-DIM-01", Type: "dimmer", Brand: "TCAM", Description: "Light Dimmer", Parameters: []string{"dimming_level"}},
	{Model: "T-OCC-01", Type: "sensor", Brand: "TCAM", Description: "Occupancy-lux sensor", Parameters: []string{"occupancy", "lux"}},
	{Model: "T-FM-01", Type: "meter", Brand: "TCAM", Description: "Flow meter", Parameters: []string{"flow_rate"}},
	{Model: "T-TK-01", Type: "tank", Brand: "TCAM", Description: "Tank", Parameters: []string{"level"}},
	{Model: "T-PP-01", Type: "pump", Brand: "TCAM", Description: "Pump", Parameters: []string{"status"}},
	{Model: "T-TEM-01", Type: "sensor", Brand: "TCAM", Description: "Temperature sensor", Parameters: []string{"temperature"}},
	{Model: "T-TEM-02", Type: "sensor", Brand: "TCAM", Description: "Temperature sensor", Parameters: []string{"temperature"}},
	{Model: "T-EMS-01", Type: "meter", Brand: "TCAM", Description: "Single-phase Energy meter", Parameters: []string{"voltage", "current", "power"}},
	{Model: "T-EMS-02", Type: "meter", Brand: "TCAM", Description: "Three-phase CT Energy meter", Parameters: []string{"voltage", "current", "power"}},
	{Model: "T-EMS-03", Type: "meter", Brand: "TCAM", Description: "Three-phase Energy meter", Parameters: []string{"voltage", "current", "power"}},
	{Model: "T-ACP-01", Type: "panel", Brand: "TCAM", Description: "Aircon Panel (Existing Panel in Server/LAN room)", Parameters: []string{"status"}},
	{Model: "T-AIS-001", Type: "interface", Brand: "TCAM", Description: "Aircon Interface Card", Parameters: []string{"status"}},
	{Model: "T-FP-001", Type: "alarm", Brand: "TCAM", Description: "Fire alarm", Parameters: []string{"status"}},
	{Model: "T-DIDO-01", Type: "module", Brand: "TCAM", Description: "Digital Input/Output Module (non-dimmable light monitoring and control)", Parameters: []string{"input_status", "output_control"}},
	{Model: "T-AIR-001", Type: "module", Brand: "TCAM", Description: "Aircon Universal IR Module", Parameters: []string{"ir_command"}},
	{Model: "T-MIU-001", Type: "interface", Brand: "TCAM", Description: "Aircon Multi-Interface Unit", Parameters: []string{"status"}},
}

// Templates returns the built-in device templates in catalog order.
func Templates() []DeviceTemplate {
	out := make([]DeviceTemplate, len(templates))
	for i, t := range templates {
		t.Parameters = append([]string(nil), t.Parameters...)
		out[i] = t
	}
	return out
}

// Template looks up a built-in template by model name.
func Template(model string) (DeviceTemplate, bool) {
	for _, t := range templates {
		if t.Model == model {
			t.Parameters = append([]string(nil), t.Parameters...)
			return t, true
		}
	}
	return DeviceTemplate{}, false
}

// Models is a catalog of the built-in template model names, sorted.
func Models() *Catalog {
	names := make([]string, len(templates))
	for i, t := range templates {
		names[i] = t.Model
	}
	sort.Strings(names)
	return Plain("model", names...)
}
