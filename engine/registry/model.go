package registry

import (
	"time"

	"github.com/OpenBayHQ/openbay-mvp/engine/vhc"
)

// Vehicle is a vehicle node in the graph. Powertrain drives template item
// applicability when an inspection is started for the vehicle.
type Vehicle struct {
	ID         string         `json:"id"`
	VIN        string         `json:"vin"`
	Make       string         `json:"make"`
	Model      string         `json:"model"`
	Year       int            `json:"year"`
	Powertrain vhc.Powertrain `json:"powertrain"`
}

// InspectionRecord is one INSPECTED_BY link on a vehicle: a completed health
// check and its headline numbers.
type InspectionRecord struct {
	ResponseID      string     `json:"responseId"`
	TemplateID      string     `json:"templateId"`
	TemplateVersion int        `json:"templateVersion"`
	Status          vhc.Status `json:"status"`
	TotalScore      float64    `json:"totalScore"`
	SubmittedAt     *time.Time `json:"submittedAt,omitempty"`
}

func vehicleToMap(v Vehicle) map[string]any {
	return map[string]any{
		"id":         v.ID,
		"vin":        v.VIN,
		"make":       v.Make,
		"model":      v.Model,
		"year":       v.Year,
		"powertrain": string(v.Powertrain),
	}
}

func vehicleFromNode(val any) Vehicle {
	return Vehicle{
		ID:         strFromNode(val, "id"),
		VIN:        strFromNode(val, "vin"),
		Make:       strFromNode(val, "make"),
		Model:      strFromNode(val, "model"),
		Year:       intFromNode(val, "year"),
		Powertrain: vhc.Powertrain(strFromNode(val, "powertrain")),
	}
}

// strFromNode extracts a string property from a node-like value.
func strFromNode(val any, key string) string {
	props := nodeProps(val)
	if props == nil {
		return ""
	}
	if s, ok := props[key].(string); ok {
		return s
	}
	return ""
}

// intFromNode extracts an int property from a node-like value.
func intFromNode(val any, key string) int {
	props := nodeProps(val)
	if props == nil {
		return 0
	}
	switch v := props[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func floatFromNode(val any, key string) float64 {
	props := nodeProps(val)
	if props == nil {
		return 0
	}
	switch v := props[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	}
	return 0
}

func nodeProps(val any) map[string]any {
	type propsHolder interface {
		GetProperties() map[string]any
	}
	if ph, ok := val.(propsHolder); ok {
		return ph.GetProperties()
	}
	// Test mocks hand records plain maps.
	if m, ok := val.(map[string]any); ok {
		return m
	}
	return nil
}
