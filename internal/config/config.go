// Package config defines the global configuration for the Hearth hub.
// Configuration is loaded once at process start and is immutable thereafter.
// It follows 12-Factor principles: values come from the OS environment, with
// a .env file as fallback for local development.
//
// Any invalid value causes startup to fail fast; missing location or forecast
// credentials are tolerated here and rejected later by the platform setup
// that needs them, so a garage-door-only deployment needs no weather config.
package config

import (
	"time"

	"hearth/internal/types"
)

// SecretString is an alias for types.SecretString, the redacted secret type
// used for credentials to prevent accidental logging of sensitive values.
type SecretString = types.SecretString

// Config is the top-level configuration struct for the hub.
type Config struct {
	// System metadata
	Environment string `envconfig:"APP_ENV" default:"local" validate:"oneof=local dev prod"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	Server   ServerConfig
	Location LocationConfig
	Forecast ForecastConfig
	ZWave    ZWaveConfig
	Recorder RecorderConfig

	// PollInterval controls how often the hub refreshes polled entities.
	PollInterval time.Duration `envconfig:"POLL_INTERVAL" default:"30s"`
}

// ServerConfig holds the HTTP API settings.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8123"`

	// APIPasswordHash is an optional bcrypt hash. When set, every API request
	// must carry the matching plaintext password in the X-Hearth-Access header.
	APIPasswordHash SecretString `envconfig:"API_PASSWORD_HASH"`
}

// LocationConfig holds the hub-wide coordinates shared by location-aware
// platforms. Pointers distinguish "unset" from the valid coordinate 0.
type LocationConfig struct {
	Latitude  *float64 `envconfig:"HEARTH_LATITUDE" validate:"omitempty,gte=-90,lte=90"`
	Longitude *float64 `envconfig:"HEARTH_LONGITUDE" validate:"omitempty,gte=-180,lte=180"`
}

// Set reports whether both coordinates are configured.
func (l LocationConfig) Set() bool {
	return l.Latitude != nil && l.Longitude != nil
}

// ForecastConfig holds the weather platform settings.
type ForecastConfig struct {
	APIKey SecretString `envconfig:"FORECAST_API_KEY"`

	// Units requests a measurement system from the service. The service may
	// echo a normalized value; sensors follow the echoed one.
	Units string `envconfig:"FORECAST_UNITS" default:"si" validate:"oneof=si us ca uk uk2"`

	// Name prefixes every sensor's display name.
	Name string `envconfig:"FORECAST_NAME" default:"Forecast"`

	// MonitoredConditions selects which forecast fields become sensors.
	MonitoredConditions []string `envconfig:"FORECAST_MONITORED_CONDITIONS" default:"summary,temperature,humidity"`

	// BaseURL overrides the forecast service endpoint (tests, mirrors).
	BaseURL string `envconfig:"FORECAST_BASE_URL" default:"https://api.darksky.net" validate:"url"`
}

// ZWaveConfig holds the Z-Wave platform settings. With Simulate on, the hub
// runs an in-memory network instead of a radio, exposing one garage door.
type ZWaveConfig struct {
	Simulate    bool   `envconfig:"ZWAVE_SIMULATE" default:"true"`
	DoorNodeID  uint8  `envconfig:"ZWAVE_DOOR_NODE_ID" default:"2"`
	DoorValueID uint64 `envconfig:"ZWAVE_DOOR_VALUE_ID" default:"72057594076299264"`
}

// RecorderConfig holds state-history persistence settings. An empty URL
// disables the recorder entirely.
type RecorderConfig struct {
	DatabaseURL SecretString `envconfig:"DATABASE_URL" validate:"omitempty,url"`

	// KeepDays bounds the retained history; Purge removes older rows.
	KeepDays int `envconfig:"RECORDER_KEEP_DAYS" default:"10" validate:"gte=1"`

	// ArchiveDir receives zstd-compressed JSONL archives of purged rows.
	// Empty disables archiving.
	ArchiveDir string `envconfig:"RECORDER_ARCHIVE_DIR"`
}
