package idle

import (
	"log"
	"time"

	"github.com/KayraNafi/TouchGrass/internal/domain"
)

// DefaultSampleInterval is how often the sensor is actually queried.
const DefaultSampleInterval = 20 * time.Second

// Aggregator rate-limits sensor reads. The last raw sample is returned
// between refreshes; there is no smoothing.
//
// Not safe for concurrent use; the scheduler engine owns it.
type Aggregator struct {
	sensor   Sensor
	interval time.Duration

	last       domain.IdleSample
	lastAt     time.Time
	sampled    bool
	reportedNA bool
}

// NewAggregator wraps sensor with a refresh interval (0 = default).
func NewAggregator(sensor Sensor, interval time.Duration) *Aggregator {
	if interval <= 0 {
		interval = DefaultSampleInterval
	}
	return &Aggregator{sensor: sensor, interval: interval}
}

// SensorName returns the wrapped backend's name.
func (a *Aggregator) SensorName() string { return a.sensor.Name() }

// Sample returns the latest reading, refreshing it if due.
func (a *Aggregator) Sample(now time.Time) domain.IdleSample {
	if a.sampled && now.Sub(a.lastAt) < a.interval {
		return a.last
	}
	secs, ok := a.sensor.IdleSeconds()
	a.last = domain.IdleSample{Seconds: secs, OK: ok}
	a.lastAt = now
	a.sampled = true

	switch {
	case !ok && !a.reportedNA:
		a.reportedNA = true
		log.Printf("[idle] %s: %v; reminders run on a fixed cadence until it recovers",
			a.sensor.Name(), domain.ErrSensorUnavailable)
	case ok && a.reportedNA:
		a.reportedNA = false
		log.Printf("[idle] %s: idle data available again", a.sensor.Name())
	}
	return a.last
}

// Reset forces a refresh on the next Sample call.
func (a *Aggregator) Reset() { a.sampled = false }

// SetThreshold forwards a new idle threshold to sensors that need it.
func (a *Aggregator) SetThreshold(d time.Duration) error {
	ts, ok := a.sensor.(ThresholdSetter)
	if !ok {
		return nil
	}
	return ts.SetThreshold(d)
}

// Close closes the sensor.
func (a *Aggregator) Close() error { return a.sensor.Close() }
