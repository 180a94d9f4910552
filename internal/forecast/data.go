package forecast

import (
	"context"
	"time"

	"hearth/internal/throttle"
	"hearth/internal/types"
)

// MinTimeBetweenUpdates is the throttle interval shared by all cache
// operations. Every sensor read re-triggers the same fetch; caching for a
// short period keeps the hub under the service's call quota.
const MinTimeBetweenUpdates = 120 * time.Second

// Data wraps one outbound forecast call and caches its result for all
// sensors sharing the same service account. Each operation carries its own
// throttle gate, so refreshing the full payload does not reset the throttle
// on a sub-view extraction.
//
// Data is not safe for concurrent use; the hub drives all updates from a
// single goroutine.
type Data struct {
	client *Client

	latitude  float64
	longitude float64
	units     string

	snapshot   *Snapshot
	unitSystem string

	currently Conditions
	minutely  DataBlock
	hourly    DataBlock
	daily     DataBlock

	gateUpdate    *throttle.Gate
	gateCurrently *throttle.Gate
	gateMinutely  *throttle.Gate
	gateHourly    *throttle.Gate
	gateDaily     *throttle.Gate
}

// NewData creates a forecast cache for the given coordinates and requested
// unit system. A nil clock defaults to the real system clock.
func NewData(client *Client, lat, lon float64, units string, clock types.Clock) *Data {
	return &Data{
		client:        client,
		latitude:      lat,
		longitude:     lon,
		units:         units,
		gateUpdate:    throttle.NewGate(MinTimeBetweenUpdates, clock),
		gateCurrently: throttle.NewGate(MinTimeBetweenUpdates, clock),
		gateMinutely:  throttle.NewGate(MinTimeBetweenUpdates, clock),
		gateHourly:    throttle.NewGate(MinTimeBetweenUpdates, clock),
		gateDaily:     throttle.NewGate(MinTimeBetweenUpdates, clock),
	}
}

// Update fetches the full forecast payload, throttled. On success it also
// records the unit-system flag reported by the service, which may differ
// from the requested one.
func (d *Data) Update(ctx context.Context) error {
	_, err := d.gateUpdate.Do(func() error {
		snap, err := d.client.Forecast(ctx, d.latitude, d.longitude, d.units)
		if err != nil {
			return types.NewAppError(types.ErrCodeUpstreamForecast, "unable to update forecast data", err)
		}
		d.snapshot = snap
		d.unitSystem = snap.Flags.Units
		return nil
	})
	return err
}

// errNoData is returned by sub-view updates before the first full fetch.
func errNoData() error {
	return types.NewAppError(types.ErrCodeUpstreamForecast, "no forecast payload fetched yet", nil)
}

// UpdateCurrently extracts the "currently" sub-view from the last full
// fetch, throttled independently of Update.
func (d *Data) UpdateCurrently(ctx context.Context) error {
	_, err := d.gateCurrently.Do(func() error {
		if d.snapshot == nil {
			return errNoData()
		}
		d.currently = d.snapshot.Currently
		return nil
	})
	return err
}

// UpdateMinutely extracts the "minutely" sub-view, throttled independently.
func (d *Data) UpdateMinutely(ctx context.Context) error {
	_, err := d.gateMinutely.Do(func() error {
		if d.snapshot == nil {
			return errNoData()
		}
		d.minutely = d.snapshot.Minutely
		return nil
	})
	return err
}

// UpdateHourly extracts the "hourly" sub-view, throttled independently.
func (d *Data) UpdateHourly(ctx context.Context) error {
	_, err := d.gateHourly.Do(func() error {
		if d.snapshot == nil {
			return errNoData()
		}
		d.hourly = d.snapshot.Hourly
		return nil
	})
	return err
}

// UpdateDaily extracts the "daily" sub-view, throttled independently.
func (d *Data) UpdateDaily(ctx context.Context) error {
	_, err := d.gateDaily.Do(func() error {
		if d.snapshot == nil {
			return errNoData()
		}
		d.daily = d.snapshot.Daily
		return nil
	})
	return err
}

// UnitSystem returns the unit-system flag the service last reported, or ""
// before the first successful fetch.
func (d *Data) UnitSystem() string { return d.unitSystem }

// Currently returns the last extracted "currently" sub-view.
func (d *Data) Currently() Conditions { return d.currently }

// Minutely returns the last extracted "minutely" sub-view.
func (d *Data) Minutely() DataBlock { return d.minutely }

// Hourly returns the last extracted "hourly" sub-view.
func (d *Data) Hourly() DataBlock { return d.hourly }

// Daily returns the last extracted "daily" sub-view.
func (d *Data) Daily() DataBlock { return d.daily }
