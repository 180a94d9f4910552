package forecast

import (
	"context"
	"log/slog"

	"hearth/internal/config"
	"hearth/internal/types"
)

// SetupPlatform validates the weather configuration, performs the initial
// fetch to confirm connectivity, and hands one sensor per monitored
// condition to the hub. When the location is unset, the credential is
// missing, or the initial fetch fails, it returns an error and never
// calls add.
func SetupPlatform(
	ctx context.Context,
	cfg *config.Config,
	client *Client,
	clock types.Clock,
	add types.AddEntities,
	logger *slog.Logger,
) error {
	if !cfg.Location.Set() {
		return types.NewAppError(
			types.ErrCodeSetupMissingLocation,
			"latitude or longitude not set in hub configuration",
			nil,
		)
	}
	if cfg.Forecast.APIKey.Unmask() == "" {
		return types.NewAppError(
			types.ErrCodeSetupMissingCredential,
			"forecast API key missing from configuration",
			nil,
		)
	}

	data := NewData(client, *cfg.Location.Latitude, *cfg.Location.Longitude, cfg.Forecast.Units, clock)

	// First call confirms connectivity and primes the cache before any
	// sensor is created.
	if err := data.Update(ctx); err != nil {
		return types.NewAppError(types.ErrCodeSetupInitialFetch, "initial forecast fetch failed", err)
	}
	if err := data.UpdateCurrently(ctx); err != nil {
		return types.NewAppError(types.ErrCodeSetupInitialFetch, "initial forecast fetch failed", err)
	}

	var sensors []types.Entity
	for _, key := range cfg.Forecast.MonitoredConditions {
		if _, ok := SensorTypes[key]; !ok {
			logger.Error("unknown forecast sensor type", "type", key)
			continue
		}

		sensor := NewSensor(data, key, cfg.Forecast.Name)
		if err := sensor.Update(ctx); err != nil {
			// The cache is already primed, so this only fails for a broken
			// sub-view; keep the sensor and let the next poll retry.
			logger.Warn("initial sensor update failed", "sensor", sensor.Name(), "error", err)
		}
		sensors = append(sensors, sensor)
	}

	add(sensors...)
	return nil
}
