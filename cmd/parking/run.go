package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/banshee-data/parking.report/internal/calibration"
	"github.com/banshee-data/parking.report/internal/config"
	"github.com/banshee-data/parking.report/internal/db"
	"github.com/banshee-data/parking.report/internal/detector"
	"github.com/banshee-data/parking.report/internal/envelope"
	"github.com/banshee-data/parking.report/internal/fsutil"
	"github.com/banshee-data/parking.report/internal/monitoring"
	"github.com/banshee-data/parking.report/internal/plotting"
	"github.com/banshee-data/parking.report/internal/publish"
	"github.com/banshee-data/parking.report/internal/sensor"
	"github.com/banshee-data/parking.report/internal/serialport"
	"github.com/banshee-data/parking.report/internal/timeutil"
	"github.com/banshee-data/parking.report/internal/version"
)

// app carries the process dependencies so tests can replace them.
type app struct {
	stdout io.Writer
	fs     fsutil.FileSystem
	clock  timeutil.Clock
	// source overrides sensor selection when non-nil.
	source sensor.Source
}

func (a *app) run(ctx context.Context, inv *invocation) error {
	monitoring.SetVerbose(inv.cfg.GetVerbose())

	switch inv.mode {
	case modeVersion:
		fmt.Fprintln(a.stdout, version.String())
		return nil
	case modeMigrate:
		return a.migrate(inv.cfg)
	case modePlot:
		return a.plot(inv.cfg, inv.plotPath)
	case modeCalibrate:
		return a.calibrate(ctx, inv)
	default:
		return a.detect(ctx, inv)
	}
}

func (a *app) sensorSource(inv *invocation) (sensor.Source, error) {
	if a.source != nil {
		return a.source, nil
	}
	if inv.dev {
		monitoring.Logf("dev mode: replaying sweeps from %s", inv.fixtures)
		return sensor.NewReplaySource(a.fs, inv.fixtures), nil
	}
	port := inv.cfg.GetSerialPort()
	if port == "" {
		return nil, fmt.Errorf("%w: serial port is required (use -port, or -dev with -fixtures)", config.ErrConfiguration)
	}
	return sensor.NewSerialSource(port, serialport.PortOptions{BaudRate: inv.cfg.GetBaudRate()}), nil
}

func (a *app) store() *calibration.Store {
	return &calibration.Store{FS: a.fs}
}

// openHistory opens the run database when one is configured.
func openHistory(cfg *config.AppConfig) (*db.DB, error) {
	path := cfg.GetDBPath()
	if path == "" {
		return nil, nil
	}
	history, err := db.NewDB(path)
	if err != nil {
		return nil, fmt.Errorf("history database: %w", err)
	}
	return history, nil
}

func (a *app) calibrate(ctx context.Context, inv *invocation) error {
	radar := inv.cfg.Radar()
	src, err := a.sensorSource(inv)
	if err != nil {
		return err
	}
	history, err := openHistory(inv.cfg)
	if err != nil {
		return err
	}
	var runID string
	if history != nil {
		defer history.Close()
		runID, err = history.StartRun(db.Run{
			Mode:        db.ModeCalibrate,
			SensorID:    radar.SensorID,
			StartRange:  radar.StartRange,
			LengthRange: radar.LengthRange,
			StartedAt:   a.clock.Now(),
		})
		if err != nil {
			return err
		}
	}

	err = a.captureCalibration(ctx, src, radar, inv.cfg.GetCalibrationFile())
	if history != nil {
		outcome := "saved"
		if err != nil {
			outcome = "failed"
		}
		if ferr := history.FinishRun(runID, outcome, a.clock.Now(), err); ferr != nil {
			monitoring.Logf("history: %v", ferr)
		}
	}
	return err
}

func (a *app) captureCalibration(ctx context.Context, src sensor.Source, radar config.Radar, path string) error {
	sess, err := src.Open(ctx, radar)
	if err != nil {
		return err
	}
	defer sess.Close()

	sweep, err := sess.Sweep(ctx)
	if err != nil {
		return err
	}
	samples := sweep.Effective()
	if len(samples) == 0 {
		return fmt.Errorf("%w: calibration sweep has no samples", sensor.ErrAcquisition)
	}

	// The record keeps the window it was captured with.
	rec := calibration.Record{Start: radar.StartRange, Length: radar.LengthRange, Samples: samples}
	if err := a.store().Save(path, rec); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Calibration done. Saved in file %s\n", path)
	return nil
}

// loadBaseline reads the calibration file and reconciles radar with it.
func (a *app) loadBaseline(path string, radar config.Radar) (calibration.Record, calibration.Baseline, config.Radar, error) {
	rec, err := a.store().Load(path)
	if err != nil {
		return calibration.Record{}, calibration.Baseline{}, radar, err
	}
	b, adjusted, adjustments, err := calibration.ComputeBaseline(rec, radar)
	for _, adj := range adjustments {
		fmt.Fprintln(a.stdout, adj)
	}
	if err != nil {
		return rec, calibration.Baseline{}, adjusted, err
	}
	monitoring.Debugf("calibration: mean %.2f peak %.2f at %.3fm factor %.3f",
		b.MeanAmplitude, b.Peak.Amplitude, b.Peak.Distance, b.AmplificationFactor)
	return rec, b, adjusted, nil
}

func (a *app) detect(ctx context.Context, inv *invocation) error {
	cfg := inv.cfg
	if !cfg.HasCalibrationFile() {
		fmt.Fprintln(a.stdout, "Please specify calibration file.")
		return fmt.Errorf("%w: detection requires -calibration-file", config.ErrConfiguration)
	}

	_, baseline, radar, err := a.loadBaseline(cfg.GetCalibrationFile(), cfg.Radar())
	if err != nil {
		return err
	}
	src, err := a.sensorSource(inv)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "Start range: %f\n", radar.StartRange)

	observers := []detector.Observer{detector.ObserverFunc(func(d detector.Decision) error {
		_, err := fmt.Fprintf(a.stdout, "%d\n", d.Result.Code())
		return err
	})}

	history, err := openHistory(cfg)
	if err != nil {
		return err
	}
	var runID string
	if history != nil {
		defer history.Close()
		runID, err = history.StartRun(db.Run{
			Mode:        db.ModeDetect,
			SensorID:    radar.SensorID,
			StartRange:  radar.StartRange,
			LengthRange: radar.LengthRange,
			Threshold:   detector.Threshold(baseline),
			StartedAt:   a.clock.Now(),
		})
		if err != nil {
			return err
		}
		observers = append(observers, history.Recorder(runID))
	}

	pub := publish.NewPublisher(radar.SensorID, runID)
	if url := cfg.GetNATSURL(); url != "" {
		// Publishing is best effort; detection continues without NATS.
		if err := pub.Connect(url); err != nil {
			monitoring.Logf("publish: %v", err)
		}
	}
	defer func() {
		if err := pub.Close(); err != nil {
			monitoring.Logf("publish: %v", err)
		}
	}()
	if pub.Enabled() {
		observers = append(observers, pub)
	}

	det := &detector.Detector{
		Source:       src,
		Radar:        radar,
		Baseline:     baseline,
		Consensus:    cfg.Consensus(),
		Delay:        cfg.GetDelay(),
		MaxDecisions: cfg.GetMaxDecisions(),
		Clock:        a.clock,
		Observers:    observers,
	}
	final, runErr := det.Run(ctx)

	if history != nil {
		outcome := final.Result.String()
		if runErr != nil {
			outcome = "failed"
		}
		if err := history.FinishRun(runID, outcome, a.clock.Now(), runErr); err != nil {
			monitoring.Logf("history: %v", err)
		}
	}
	if err := pub.PublishOutcome(final.Result, runErr); err != nil {
		monitoring.Logf("publish: %v", err)
	}
	if runErr != nil {
		return runErr
	}

	if final.Result == detector.Present {
		fmt.Fprintln(a.stdout, "\nCar detected.")
	} else {
		fmt.Fprintln(a.stdout, "\nNothing detected.")
	}
	return nil
}

func (a *app) plot(cfg *config.AppConfig, out string) error {
	path := cfg.GetCalibrationFile()
	rec, baseline, radar, err := a.loadBaseline(path, cfg.Radar())
	if err != nil {
		return err
	}

	samples, _ := envelope.Bound(rec.Samples)
	points, err := envelope.Map(samples, radar.StartRange, radar.EndRange())
	if err != nil {
		return err
	}
	threshold := detector.Threshold(baseline)
	chart := plotting.Chart{
		Title:     fmt.Sprintf("Sensor %d calibration capture", radar.SensorID),
		Subtitle:  fmt.Sprintf("%s: mean %.1f, factor %.2f, threshold %.1f", path, baseline.MeanAmplitude, baseline.AmplificationFactor, threshold),
		Points:    points,
		Threshold: threshold,
	}
	if err := plotting.Render(a.fs, out, chart); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Plot saved in file %s\n", out)
	return nil
}

func (a *app) migrate(cfg *config.AppConfig) error {
	path := cfg.GetDBPath()
	if path == "" {
		return fmt.Errorf("%w: -migrate requires -db", config.ErrConfiguration)
	}
	history, err := db.OpenDB(path)
	if err != nil {
		return err
	}
	defer history.Close()

	if err := history.MigrateUp(db.MigrationsFS()); err != nil {
		return err
	}
	v, dirty, err := history.MigrateVersion(db.MigrationsFS())
	if err != nil {
		return err
	}
	if dirty {
		return errors.New("database schema is dirty after migration")
	}
	fmt.Fprintf(a.stdout, "Database %s at schema version %d\n", path, v)
	return nil
}
