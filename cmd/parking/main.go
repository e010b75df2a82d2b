// Command parking decides whether a parking bay is occupied using a pulsed
// coherent radar's envelope sweeps, after calibrating against the empty bay.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/banshee-data/parking.report/internal/config"
	"github.com/banshee-data/parking.report/internal/fsutil"
	"github.com/banshee-data/parking.report/internal/timeutil"
)

type mode int

const (
	modeDetect mode = iota
	modeCalibrate
	modePlot
	modeMigrate
	modeVersion
)

// invocation is the parsed command line merged over the optional config file.
type invocation struct {
	mode     mode
	cfg      *config.AppConfig
	dev      bool
	fixtures string
	plotPath string
	usage    func()
}

func parseArgs(args []string, stderr io.Writer) (*invocation, error) {
	fs := flag.NewFlagSet("parking", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		sensorID  = fs.Int("sensor", config.DefaultSensorID, "sensor to use")
		calibrate = fs.Bool("calibrate", false, "record the empty parking bay and store the calibration file")
		calFile   = fs.String("calibration-file", config.DefaultCalibrationFile, "name of the calibration file")
		start     = fs.Float64("range-start", config.DefaultStartRange, "start measuring at this distance [m]")
		length    = fs.Float64("range-length", config.DefaultLengthRange, "length of the measured range [m]")
		delay     = fs.Float64("delay", 0, "repeat measurements this many seconds apart until two agree")
		verbose   = fs.Bool("verbose", false, "enable verbose logging")
		frequency = fs.Int("frequency", config.DefaultSweepFrequency, "sweep frequency [Hz]")
		maxDec    = fs.Int("max-decisions", 0, "give up after this many decisions without consensus (0 = never)")
		cfgPath   = fs.String("config", "", "JSON or YAML configuration file")
		port      = fs.String("port", "", "serial port of the envelope bridge")
		baud      = fs.Int("baud", config.DefaultBaudRate, "serial baud rate")
		dev       = fs.Bool("dev", false, "replay sweeps from a fixtures file instead of the sensor")
		fixtures  = fs.String("fixtures", "fixtures.txt", "fixtures file replayed in dev mode")
		dbPath    = fs.String("db", "", "record runs and decisions in this SQLite database")
		natsURL   = fs.String("nats-url", "", "publish decisions to this NATS server")
		plotPath  = fs.String("plot", "", "render the calibration capture to this .png or .html file and exit")
		migrateDB = fs.Bool("migrate", false, "apply database migrations to -db and exit")
		showVer   = fs.Bool("version", false, "print version information and exit")
	)

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	inv := &invocation{
		cfg:      &config.AppConfig{},
		dev:      *dev,
		fixtures: *fixtures,
		plotPath: *plotPath,
		usage:    fs.Usage,
	}
	if fs.NArg() > 0 {
		return inv, fmt.Errorf("%w: unexpected arguments %q", config.ErrConfiguration, fs.Args())
	}

	if *cfgPath != "" {
		cfg, err := config.Load(*cfgPath)
		if err != nil {
			return inv, err
		}
		inv.cfg = cfg
	}

	// Flags given explicitly win over the config file.
	cfg := inv.cfg
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "sensor":
			cfg.SetSensorID(*sensorID)
		case "calibration-file":
			cfg.SetCalibrationFile(*calFile)
		case "range-start":
			cfg.SetStartRange(*start)
		case "range-length":
			cfg.SetLengthRange(*length)
		case "delay":
			cfg.SetDelay(time.Duration(*delay * float64(time.Second)))
		case "verbose":
			cfg.SetVerbose(*verbose)
		case "frequency":
			cfg.SetSweepFrequency(*frequency)
		case "max-decisions":
			cfg.SetMaxDecisions(*maxDec)
		case "port":
			cfg.SetSerialPort(*port)
		case "baud":
			cfg.SetBaudRate(*baud)
		case "db":
			cfg.SetDBPath(*dbPath)
		case "nats-url":
			cfg.SetNATSURL(*natsURL)
		}
	})
	if err := cfg.Validate(); err != nil {
		return inv, err
	}

	switch {
	case *showVer:
		inv.mode = modeVersion
	case *migrateDB:
		inv.mode = modeMigrate
	case *plotPath != "":
		inv.mode = modePlot
	case *calibrate:
		inv.mode = modeCalibrate
	default:
		inv.mode = modeDetect
	}
	return inv, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	env := &app{
		stdout: os.Stdout,
		fs:     fsutil.OSFileSystem{},
		clock:  timeutil.RealClock{},
	}
	code := runMain(ctx, os.Args[1:], env, os.Stderr)
	stop()
	os.Exit(code)
}

// runMain parses args, runs the selected mode and returns the exit status.
func runMain(ctx context.Context, args []string, env *app, stderr io.Writer) int {
	inv, err := parseArgs(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err == nil {
		err = env.run(ctx, inv)
	}
	if err != nil {
		if errors.Is(err, config.ErrConfiguration) && inv != nil {
			inv.usage()
		}
		return fatal(stderr, err)
	}
	return 0
}

// fatal reports err and returns the failure exit status.
func fatal(w io.Writer, err error) int {
	if errors.Is(err, context.Canceled) {
		fmt.Fprintln(w, "Fatal error: interrupted")
		return 1
	}
	fmt.Fprintf(w, "Fatal error: %v\n", err)
	return 1
}
