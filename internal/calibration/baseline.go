package calibration

import (
	"fmt"
	"math"

	"github.com/banshee-data/parking.report/internal/config"
	"github.com/banshee-data/parking.report/internal/envelope"
)

// Adjustment records one change Reconcile made to the measurement window.
type Adjustment struct {
	Field string
	From  float64
	To    float64
}

func (a Adjustment) String() string {
	return fmt.Sprintf("Setting %s to %1.2f due to calibration file", a.Field, a.To)
}

// Reconcile aligns cfg with the window a record was captured over. The start
// range always follows the record; the length range only shrinks to the
// record's length, never grows. cfg itself is left untouched.
func Reconcile(cfg config.Radar, rec Record) (config.Radar, []Adjustment) {
	var adjustments []Adjustment
	out := cfg
	if rec.Start != cfg.StartRange {
		adjustments = append(adjustments, Adjustment{Field: "start_range", From: cfg.StartRange, To: rec.Start})
		out = out.WithStartRange(rec.Start)
	}
	if rec.Length < cfg.LengthRange {
		adjustments = append(adjustments, Adjustment{Field: "length_range", From: cfg.LengthRange, To: rec.Length})
		out = out.WithLengthRange(rec.Length)
	}
	return out, adjustments
}

// Baseline is the empty-bay reference a live sweep is compared against.
type Baseline struct {
	MeanAmplitude       float64            `json:"mean_amplitude"`
	Peak                envelope.Datapoint `json:"peak"`
	AmplificationFactor float64            `json:"amplification_factor"`
}

// ComputeBaseline reconciles cfg with rec, maps the capture over the
// reconciled window and derives its mean, peak and peak-to-mean factor.
func ComputeBaseline(rec Record, cfg config.Radar) (Baseline, config.Radar, []Adjustment, error) {
	adjusted, adjustments := Reconcile(cfg, rec)

	samples, _ := envelope.Bound(rec.Samples)
	if len(samples) == 0 {
		return Baseline{}, adjusted, adjustments, fmt.Errorf("%w: capture has no samples", ErrDegenerate)
	}

	points, err := envelope.Map(samples, adjusted.StartRange, adjusted.EndRange())
	if err != nil {
		return Baseline{}, adjusted, adjustments, fmt.Errorf("%w: %v", ErrDegenerate, err)
	}
	mean, err := envelope.MeanAmplitude(points)
	if err != nil {
		return Baseline{}, adjusted, adjustments, fmt.Errorf("%w: %v", ErrDegenerate, err)
	}
	peak, err := envelope.Peak(points)
	if err != nil {
		return Baseline{}, adjusted, adjustments, fmt.Errorf("%w: %v", ErrDegenerate, err)
	}
	if mean <= 0 {
		return Baseline{}, adjusted, adjustments, fmt.Errorf("%w: mean amplitude is %g", ErrDegenerate, mean)
	}

	factor := peak.Amplitude / mean
	if math.IsNaN(factor) || math.IsInf(factor, 0) {
		return Baseline{}, adjusted, adjustments, fmt.Errorf("%w: amplification factor is %g", ErrDegenerate, factor)
	}

	return Baseline{
		MeanAmplitude:       mean,
		Peak:                peak,
		AmplificationFactor: factor,
	}, adjusted, adjustments, nil
}
