// Package forecast implements the weather platform: an HTTP client for the
// forecast service, a throttled shared data cache, and one sensor entity per
// monitored field.
package forecast

// UnitSystem values a forecast request may ask for and the service may echo.
const (
	UnitsSI  = "si"
	UnitsUS  = "us"
	UnitsCA  = "ca"
	UnitsUK  = "uk"
	UnitsUK2 = "uk2"
)

// Units holds a field's unit of measurement per unit system.
type Units struct {
	SI  string
	US  string
	CA  string
	UK  string
	UK2 string
}

// ForSystem returns the unit for the given system, defaulting to the SI
// column when the system is unrecognized.
func (u Units) ForSystem(system string) string {
	switch system {
	case UnitsSI:
		return u.SI
	case UnitsUS:
		return u.US
	case UnitsCA:
		return u.CA
	case UnitsUK:
		return u.UK
	case UnitsUK2:
		return u.UK2
	default:
		return u.SI
	}
}

// SensorType describes one monitorable forecast field.
type SensorType struct {
	DisplayName string
	Units       Units
}

// SensorTypes is the static table of monitorable fields. Fixed at process
// start, read-only thereafter.
var SensorTypes = map[string]SensorType{
	"summary":          {DisplayName: "Summary"},
	"minutely_summary": {DisplayName: "Minutely Summary"},
	"hourly_summary":   {DisplayName: "Hourly Summary"},
	"daily_summary":    {DisplayName: "Daily Summary"},
	"icon":             {DisplayName: "Icon"},
	"nearest_storm_distance": {
		DisplayName: "Nearest Storm Distance",
		Units:       Units{SI: "km", US: "m", CA: "km", UK: "km", UK2: "m"},
	},
	"nearest_storm_bearing": {
		DisplayName: "Nearest Storm Bearing",
		Units:       Units{SI: "°", US: "°", CA: "°", UK: "°", UK2: "°"},
	},
	"precip_type": {DisplayName: "Precip"},
	"precip_intensity": {
		DisplayName: "Precip Intensity",
		Units:       Units{SI: "mm", US: "in", CA: "mm", UK: "mm", UK2: "mm"},
	},
	"precip_probability": {
		DisplayName: "Precip Probability",
		Units:       Units{SI: "%", US: "%", CA: "%", UK: "%", UK2: "%"},
	},
	"temperature": {
		DisplayName: "Temperature",
		Units:       Units{SI: "°C", US: "°F", CA: "°C", UK: "°C", UK2: "°C"},
	},
	"apparent_temperature": {
		DisplayName: "Apparent Temperature",
		Units:       Units{SI: "°C", US: "°F", CA: "°C", UK: "°C", UK2: "°C"},
	},
	"dew_point": {
		DisplayName: "Dew point",
		Units:       Units{SI: "°C", US: "°F", CA: "°C", UK: "°C", UK2: "°C"},
	},
	"wind_speed": {
		DisplayName: "Wind Speed",
		Units:       Units{SI: "m/s", US: "mph", CA: "km/h", UK: "mph", UK2: "mph"},
	},
	"wind_bearing": {
		DisplayName: "Wind Bearing",
		Units:       Units{SI: "°", US: "°", CA: "°", UK: "°", UK2: "°"},
	},
	"cloud_cover": {
		DisplayName: "Cloud Coverage",
		Units:       Units{SI: "%", US: "%", CA: "%", UK: "%", UK2: "%"},
	},
	"humidity": {
		DisplayName: "Humidity",
		Units:       Units{SI: "%", US: "%", CA: "%", UK: "%", UK2: "%"},
	},
	"pressure": {
		DisplayName: "Pressure",
		Units:       Units{SI: "mbar", US: "mbar", CA: "mbar", UK: "mbar", UK2: "mbar"},
	},
	"visibility": {
		DisplayName: "Visibility",
		Units:       Units{SI: "km", US: "m", CA: "km", UK: "km", UK2: "m"},
	},
	"ozone": {
		DisplayName: "Ozone",
		Units:       Units{SI: "DU", US: "DU", CA: "DU", UK: "DU", UK2: "DU"},
	},
}

// Conditions is the raw "currently" sub-view: field values keyed by the
// service's camelCase attribute names. Keeping it untyped preserves the
// attribute-lookup-with-default read the sensors perform.
type Conditions map[string]any

// DataBlock is one time-scoped sub-view of the forecast payload.
type DataBlock struct {
	Summary string `json:"summary"`
	Icon    string `json:"icon"`
}

// Flags carries service metadata about the payload.
type Flags struct {
	// Units is the unit-system flag reported by the service. It may be a
	// normalized value independent of the requested unit system.
	Units string `json:"units"`
}

// Snapshot is one immutable full forecast payload. The cache replaces it
// wholesale on refresh, never mutates it in place.
type Snapshot struct {
	Latitude  float64    `json:"latitude"`
	Longitude float64    `json:"longitude"`
	Timezone  string     `json:"timezone"`
	Currently Conditions `json:"currently"`
	Minutely  DataBlock  `json:"minutely"`
	Hourly    DataBlock  `json:"hourly"`
	Daily     DataBlock  `json:"daily"`
	Flags     Flags      `json:"flags"`
}
