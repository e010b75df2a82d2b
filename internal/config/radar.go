package config

import (
	"fmt"
	"math"
)

// Defaults for the reference parking application.
const (
	DefaultStartRange      = 0.12
	DefaultLengthRange     = 0.48
	DefaultSensorID        = 1
	DefaultSweepFrequency  = 100
	DefaultCalibrationFile = "parking.cal"
)

// Radar describes the measurement window requested from the sensor. It is a
// value type: adjustments produce a modified copy.
type Radar struct {
	StartRange     float64 `json:"start_range" yaml:"start_range"`
	LengthRange    float64 `json:"length_range" yaml:"length_range"`
	SensorID       int     `json:"sensor_id" yaml:"sensor_id"`
	SweepFrequency int     `json:"sweep_frequency" yaml:"sweep_frequency"`
}

// DefaultRadar returns the reference measurement window.
func DefaultRadar() Radar {
	return Radar{
		StartRange:     DefaultStartRange,
		LengthRange:    DefaultLengthRange,
		SensorID:       DefaultSensorID,
		SweepFrequency: DefaultSweepFrequency,
	}
}

// EndRange returns the far edge of the measurement window in metres.
func (r Radar) EndRange() float64 {
	return r.StartRange + r.LengthRange
}

// WithStartRange returns a copy of r with the start range replaced.
func (r Radar) WithStartRange(start float64) Radar {
	r.StartRange = start
	return r
}

// WithLengthRange returns a copy of r with the length range replaced.
func (r Radar) WithLengthRange(length float64) Radar {
	r.LengthRange = length
	return r
}

// Validate checks that the window is usable for a sweep.
func (r Radar) Validate() error {
	if math.IsNaN(r.StartRange) || math.IsInf(r.StartRange, 0) || r.StartRange < 0 {
		return fmt.Errorf("%w: start_range must be a non-negative number, got %g", ErrConfiguration, r.StartRange)
	}
	if math.IsNaN(r.LengthRange) || math.IsInf(r.LengthRange, 0) || r.LengthRange <= 0 {
		return fmt.Errorf("%w: length_range must be positive, got %g", ErrConfiguration, r.LengthRange)
	}
	if r.SensorID < 1 {
		return fmt.Errorf("%w: sensor_id must be at least 1, got %d", ErrConfiguration, r.SensorID)
	}
	if r.SweepFrequency <= 0 {
		return fmt.Errorf("%w: sweep_frequency must be positive, got %d", ErrConfiguration, r.SweepFrequency)
	}
	return nil
}

func (r Radar) String() string {
	return fmt.Sprintf("sensor=%d start=%.3fm length=%.3fm freq=%dHz", r.SensorID, r.StartRange, r.LengthRange, r.SweepFrequency)
}
