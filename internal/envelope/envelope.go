// Package envelope maps radar envelope sweeps onto distance-tagged datapoints
// and computes the amplitude statistics used by calibration and detection.
package envelope

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// MaxSamples is the capacity of a single sweep sample vector.
const MaxSamples = 3000

var (
	// ErrEmpty is returned when an operation needs at least one sample or datapoint.
	ErrEmpty = errors.New("envelope: no samples")
	// ErrInvalidRange is returned when the distance interval is empty or not finite.
	ErrInvalidRange = errors.New("envelope: invalid distance range")
)

// Datapoint is one range bin of a sweep: the distance in metres and the
// envelope amplitude measured there.
type Datapoint struct {
	Distance  float64 `json:"distance"`
	Amplitude float64 `json:"amplitude"`
}

// Bound returns the prefix of samples that fits in MaxSamples together with
// the number of samples that were dropped. The returned slice aliases the input.
func Bound(samples []uint16) ([]uint16, int) {
	if len(samples) <= MaxSamples {
		return samples, 0
	}
	return samples[:MaxSamples], len(samples) - MaxSamples
}

// Map spreads samples evenly over [start, end): sample i lands at
// start + i*(end-start)/len(samples). Amplitudes are not scaled.
func Map(samples []uint16, start, end float64) ([]Datapoint, error) {
	if len(samples) == 0 {
		return nil, ErrEmpty
	}
	if math.IsNaN(start) || math.IsInf(start, 0) || math.IsNaN(end) || math.IsInf(end, 0) || end <= start {
		return nil, fmt.Errorf("%w: [%g, %g]", ErrInvalidRange, start, end)
	}

	step := (end - start) / float64(len(samples))
	points := make([]Datapoint, len(samples))
	for i, s := range samples {
		points[i] = Datapoint{
			Distance:  start + step*float64(i),
			Amplitude: float64(s),
		}
	}
	return points, nil
}

// Amplitudes extracts the amplitude column of points.
func Amplitudes(points []Datapoint) []float64 {
	amps := make([]float64, len(points))
	for i, p := range points {
		amps[i] = p.Amplitude
	}
	return amps
}

// MeanAmplitude returns the arithmetic mean amplitude of points.
func MeanAmplitude(points []Datapoint) (float64, error) {
	if len(points) == 0 {
		return 0, ErrEmpty
	}
	return stat.Mean(Amplitudes(points), nil), nil
}

// Peak returns the datapoint with the largest amplitude. When several
// datapoints share the maximum the one closest to the sensor wins.
func Peak(points []Datapoint) (Datapoint, error) {
	if len(points) == 0 {
		return Datapoint{}, ErrEmpty
	}
	peak := points[0]
	for _, p := range points[1:] {
		if p.Amplitude > peak.Amplitude {
			peak = p
		}
	}
	return peak, nil
}
