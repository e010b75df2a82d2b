// Package detector decides whether a parking bay is occupied by comparing
// live sweeps against an empty-bay calibration baseline.
package detector

import (
	"github.com/banshee-data/parking.report/internal/calibration"
)

// SensitivityMargin scales the calibration baseline into the presence
// threshold. A sweep peak must exceed mean * factor * SensitivityMargin.
const SensitivityMargin = 4

// Result is the occupancy state of the bay for one sweep.
type Result int

const (
	Empty Result = iota
	Present
)

func (r Result) String() string {
	switch r {
	case Empty:
		return "empty"
	case Present:
		return "present"
	default:
		return "unknown"
	}
}

// Code returns the numeric result printed per decision: 1 present, 0 empty.
func (r Result) Code() int {
	if r == Present {
		return 1
	}
	return 0
}

// Threshold returns the peak amplitude a sweep must exceed to count as Present.
func Threshold(b calibration.Baseline) float64 {
	return b.MeanAmplitude * b.AmplificationFactor * SensitivityMargin
}

// Decide applies the presence rule. The threshold itself is Empty.
func Decide(peakAmplitude float64, b calibration.Baseline) Result {
	if peakAmplitude > Threshold(b) {
		return Present
	}
	return Empty
}
