package detector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/parking.report/internal/calibration"
	"github.com/banshee-data/parking.report/internal/config"
	"github.com/banshee-data/parking.report/internal/envelope"
	"github.com/banshee-data/parking.report/internal/monitoring"
	"github.com/banshee-data/parking.report/internal/sensor"
	"github.com/banshee-data/parking.report/internal/timeutil"
)

// Decision is the outcome of one sweep.
type Decision struct {
	Seq       int                `json:"seq"`
	Result    Result             `json:"result"`
	Peak      envelope.Datapoint `json:"peak"`
	Threshold float64            `json:"threshold"`
	At        time.Time          `json:"at"`
}

// Observer receives every decision as it is produced.
type Observer interface {
	Observe(Decision) error
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Decision) error

func (f ObserverFunc) Observe(d Decision) error { return f(d) }

// Evaluate maps one sweep over the radar window and applies the presence
// rule to its peak.
func Evaluate(samples []uint16, radar config.Radar, b calibration.Baseline) (envelope.Datapoint, Result, error) {
	points, err := envelope.Map(samples, radar.StartRange, radar.EndRange())
	if err != nil {
		return envelope.Datapoint{}, Empty, err
	}
	peak, err := envelope.Peak(points)
	if err != nil {
		return envelope.Datapoint{}, Empty, err
	}
	return peak, Decide(peak.Amplitude, b), nil
}

// Detector runs detection against a sensor. Without Consensus it decides on
// a single sweep. With Consensus it keeps sampling, Delay apart, until two
// consecutive sweeps agree.
type Detector struct {
	Source   sensor.Source
	Radar    config.Radar
	Baseline calibration.Baseline

	Consensus bool
	// Delay between consensus sweeps; zero polls back to back.
	Delay time.Duration
	// MaxDecisions caps consensus polling; zero means unbounded.
	MaxDecisions int

	Clock     timeutil.Clock
	Observers []Observer
}

// Run opens one sensor session, produces decisions and returns the final one.
// The session is closed before Run returns.
func (d *Detector) Run(ctx context.Context) (Decision, error) {
	clock := d.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}

	sess, err := d.Source.Open(ctx, d.Radar)
	if err != nil {
		return Decision{}, acquisitionErr(err)
	}
	defer func() {
		if err := sess.Close(); err != nil {
			monitoring.Logf("detector: closing sensor session: %v", err)
		}
	}()

	threshold := Threshold(d.Baseline)
	var last Decision
	decide := func(ctx context.Context) (Result, error) {
		sweep, err := sess.Sweep(ctx)
		if err != nil {
			return Empty, acquisitionErr(err)
		}
		samples := sweep.Effective()
		if len(samples) == 0 {
			return Empty, fmt.Errorf("%w: sweep has no samples", sensor.ErrAcquisition)
		}
		peak, result, err := Evaluate(samples, d.Radar, d.Baseline)
		if err != nil {
			return Empty, err
		}

		last = Decision{
			Seq:       last.Seq + 1,
			Result:    result,
			Peak:      peak,
			Threshold: threshold,
			At:        clock.Now(),
		}
		monitoring.Debugf("detector: sweep %d peak %.1f at %.3fm threshold %.1f -> %s",
			last.Seq, peak.Amplitude, peak.Distance, threshold, result)
		d.notify(last)
		return result, nil
	}

	if !d.Consensus {
		if _, err := decide(ctx); err != nil {
			return Decision{}, err
		}
		return last, nil
	}

	wait := func(ctx context.Context) error {
		return clock.SleepContext(ctx, d.Delay)
	}
	if _, err := Stabilize(ctx, decide, wait, d.MaxDecisions, nil); err != nil {
		return last, err
	}
	return last, nil
}

func (d *Detector) notify(dec Decision) {
	for _, o := range d.Observers {
		if err := o.Observe(dec); err != nil {
			monitoring.Logf("detector: observer failed for decision %d: %v", dec.Seq, err)
		}
	}
}

// acquisitionErr ensures sensor failures carry sensor.ErrAcquisition while
// leaving context errors intact.
func acquisitionErr(err error) error {
	if errors.Is(err, sensor.ErrAcquisition) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", sensor.ErrAcquisition, err)
}
