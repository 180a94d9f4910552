package forecast

import (
	"context"
	"math"
	"strings"

	"hearth/internal/types"
)

// percentFields are stored by the service as fractions and rendered as
// percentages, rescaled ×100 and rounded to one decimal place.
var percentFields = map[string]bool{
	"precip_probability": true,
	"cloud_cover":        true,
	"humidity":           true,
}

// roundedFields are rendered rounded to one decimal place without rescaling.
var roundedFields = map[string]bool{
	"dew_point":            true,
	"temperature":          true,
	"apparent_temperature": true,
	"pressure":             true,
	"ozone":                true,
}

// Sensor exposes one monitored forecast field as a hub entity. All sensors
// for the same service account share one Data cache.
type Sensor struct {
	data       *Data
	key        string
	clientName string

	displayName string
	state       any
	unit        string
}

// NewSensor creates a sensor for a field key present in SensorTypes.
func NewSensor(data *Data, key, clientName string) *Sensor {
	return &Sensor{
		data:        data,
		key:         key,
		clientName:  clientName,
		displayName: SensorTypes[key].DisplayName,
	}
}

// ID implements types.Entity.
func (s *Sensor) ID() string {
	return "sensor." + types.Slugify(s.clientName+" "+s.displayName)
}

// Name implements types.Entity.
func (s *Sensor) Name() string {
	return s.clientName + " " + s.displayName
}

// State implements types.Entity.
func (s *Sensor) State() any { return s.state }

// UnitOfMeasurement implements types.Measurement.
func (s *Sensor) UnitOfMeasurement() string { return s.unit }

// Update refreshes the shared cache (throttled) and re-extracts this
// sensor's field. Summary fields read their sub-view's summary text; all
// other fields read the camelCase attribute off "currently".
func (s *Sensor) Update(ctx context.Context) error {
	if err := s.data.Update(ctx); err != nil {
		return err
	}
	s.updateUnitOfMeasurement()

	switch s.key {
	case "minutely_summary":
		if err := s.data.UpdateMinutely(ctx); err != nil {
			return err
		}
		s.state = s.data.Minutely().Summary
	case "hourly_summary":
		if err := s.data.UpdateHourly(ctx); err != nil {
			return err
		}
		s.state = s.data.Hourly().Summary
	case "daily_summary":
		if err := s.data.UpdateDaily(ctx); err != nil {
			return err
		}
		s.state = s.data.Daily().Summary
	default:
		if err := s.data.UpdateCurrently(ctx); err != nil {
			return err
		}
		s.state = currentlyState(s.data.Currently(), s.key)
	}

	return nil
}

// updateUnitOfMeasurement re-derives the unit from the static table and the
// unit system the service reported on the last fetch.
func (s *Sensor) updateUnitOfMeasurement() {
	s.unit = SensorTypes[s.key].Units.ForSystem(s.data.UnitSystem())
}

// currentlyState extracts one field from the "currently" sub-view, applying
// the field's rescale/rounding rule. Absent fields default to 0.
func currentlyState(currently Conditions, key string) any {
	raw, ok := currently[toCamel(key)]
	if !ok {
		raw = 0
	}

	switch {
	case percentFields[key]:
		return round1(toFloat(raw) * 100)
	case roundedFields[key]:
		return round1(toFloat(raw))
	}
	return raw
}

// toCamel converts a snake_case field key to the service's camelCase
// attribute name, e.g. nearest_storm_distance -> nearestStormDistance.
// Single-word keys map to themselves.
func toCamel(key string) string {
	parts := strings.Split(key, "_")
	var b strings.Builder
	b.WriteString(parts[0])
	for _, p := range parts[1:] {
		if p == "" {
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(p[1:])
	}
	return b.String()
}

// toFloat coerces a decoded JSON value to float64, 0 for non-numbers.
func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	}
	return 0
}

// round1 rounds to one decimal place.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
