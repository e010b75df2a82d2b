package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrConfiguration marks invalid or missing configuration, including a
// missing calibration reference in detect mode.
var ErrConfiguration = errors.New("configuration error")

// DefaultDelay is used when consensus polling is enabled without an explicit interval.
const DefaultDelay = 10 * time.Second

// DefaultBaudRate is the serial speed of the envelope bridge.
const DefaultBaudRate = 115200

// AppConfig is the on-disk application configuration. Every field is
// optional; the Get* accessors supply defaults for unset values, so partial
// files are safe.
type AppConfig struct {
	// Measurement window
	StartRange     *float64 `json:"start_range,omitempty" yaml:"start_range,omitempty"`
	LengthRange    *float64 `json:"length_range,omitempty" yaml:"length_range,omitempty"`
	SensorID       *int     `json:"sensor_id,omitempty" yaml:"sensor_id,omitempty"`
	SweepFrequency *int     `json:"sweep_frequency,omitempty" yaml:"sweep_frequency,omitempty"`

	// Calibration and consensus
	CalibrationFile *string `json:"calibration_file,omitempty" yaml:"calibration_file,omitempty"`
	Delay           *string `json:"delay,omitempty" yaml:"delay,omitempty"` // duration string like "10s"
	MaxDecisions    *int    `json:"max_decisions,omitempty" yaml:"max_decisions,omitempty"`

	// Sensor transport
	SerialPort *string `json:"serial_port,omitempty" yaml:"serial_port,omitempty"`
	BaudRate   *int    `json:"baud_rate,omitempty" yaml:"baud_rate,omitempty"`

	// Outputs
	DBPath  *string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	NATSURL *string `json:"nats_url,omitempty" yaml:"nats_url,omitempty"`
	Verbose *bool   `json:"verbose,omitempty" yaml:"verbose,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// Load reads an AppConfig from a .json, .yaml or .yml file. The file must be
// under 1MB and pass Validate.
func Load(path string) (*AppConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := filepath.Ext(cleanPath)
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("%w: config file must have .json, .yaml or .yml extension, got %q", ErrConfiguration, ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("%w: config file too large: %d bytes (max %d)", ErrConfiguration, fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data, ext)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes configuration bytes. ext selects the decoder.
func Parse(data []byte, ext string) (*AppConfig, error) {
	cfg := &AppConfig{}
	switch ext {
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: failed to parse config JSON: %v", ErrConfiguration, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: failed to parse config YAML: %v", ErrConfiguration, err)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported config format %q", ErrConfiguration, ext)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *AppConfig) Validate() error {
	if err := c.Radar().Validate(); err != nil {
		return err
	}

	if c.Delay != nil && *c.Delay != "" {
		d, err := time.ParseDuration(*c.Delay)
		if err != nil {
			return fmt.Errorf("%w: invalid delay '%s': %v", ErrConfiguration, *c.Delay, err)
		}
		if d < 0 {
			return fmt.Errorf("%w: delay must be non-negative, got %s", ErrConfiguration, d)
		}
	}

	if c.MaxDecisions != nil && (*c.MaxDecisions < 0 || *c.MaxDecisions == 1) {
		return fmt.Errorf("%w: max_decisions must be 0 (unbounded) or at least 2, got %d", ErrConfiguration, *c.MaxDecisions)
	}

	if c.BaudRate != nil && *c.BaudRate <= 0 {
		return fmt.Errorf("%w: baud_rate must be positive, got %d", ErrConfiguration, *c.BaudRate)
	}

	if c.CalibrationFile != nil && *c.CalibrationFile == "" {
		return fmt.Errorf("%w: calibration_file must not be empty", ErrConfiguration)
	}

	return nil
}

// Radar builds the measurement window from the configured values.
func (c *AppConfig) Radar() Radar {
	r := DefaultRadar()
	if c.StartRange != nil {
		r.StartRange = *c.StartRange
	}
	if c.LengthRange != nil {
		r.LengthRange = *c.LengthRange
	}
	if c.SensorID != nil {
		r.SensorID = *c.SensorID
	}
	if c.SweepFrequency != nil {
		r.SweepFrequency = *c.SweepFrequency
	}
	return r
}

// HasCalibrationFile reports whether a calibration file was set explicitly.
func (c *AppConfig) HasCalibrationFile() bool {
	return c.CalibrationFile != nil
}

// GetCalibrationFile returns the calibration file path or the default.
func (c *AppConfig) GetCalibrationFile() string {
	if c.CalibrationFile == nil {
		return DefaultCalibrationFile
	}
	return *c.CalibrationFile
}

// Consensus reports whether a delay is configured. Any configured delay,
// including zero, selects consensus polling; unset means single shot.
func (c *AppConfig) Consensus() bool {
	return c.Delay != nil
}

// GetDelay returns the consensus interval. An empty value (delay: "" in a
// config file) enables consensus at DefaultDelay. An unparseable value, only
// possible on a config that skipped Validate, also falls back to DefaultDelay.
func (c *AppConfig) GetDelay() time.Duration {
	if !c.Consensus() {
		return 0
	}
	if *c.Delay == "" {
		return DefaultDelay
	}
	d, err := time.ParseDuration(*c.Delay)
	if err != nil {
		return DefaultDelay
	}
	return d
}

// GetMaxDecisions returns the consensus cap. Zero means unbounded.
func (c *AppConfig) GetMaxDecisions() int {
	if c.MaxDecisions == nil {
		return 0
	}
	return *c.MaxDecisions
}

// GetSerialPort returns the serial device path, empty when unset.
func (c *AppConfig) GetSerialPort() string {
	if c.SerialPort == nil {
		return ""
	}
	return *c.SerialPort
}

// GetBaudRate returns the serial baud rate or the default.
func (c *AppConfig) GetBaudRate() int {
	if c.BaudRate == nil {
		return DefaultBaudRate
	}
	return *c.BaudRate
}

// GetDBPath returns the history database path, empty when history is disabled.
func (c *AppConfig) GetDBPath() string {
	if c.DBPath == nil {
		return ""
	}
	return *c.DBPath
}

// GetNATSURL returns the NATS server URL, empty when publishing is disabled.
func (c *AppConfig) GetNATSURL() string {
	if c.NATSURL == nil {
		return ""
	}
	return *c.NATSURL
}

// GetVerbose returns the verbose logging switch.
func (c *AppConfig) GetVerbose() bool {
	return c.Verbose != nil && *c.Verbose
}

// SetStartRange and the setters below let command-line flags override file values.
func (c *AppConfig) SetStartRange(v float64)     { c.StartRange = ptrFloat64(v) }
func (c *AppConfig) SetLengthRange(v float64)    { c.LengthRange = ptrFloat64(v) }
func (c *AppConfig) SetSensorID(v int)           { c.SensorID = ptrInt(v) }
func (c *AppConfig) SetSweepFrequency(v int)     { c.SweepFrequency = ptrInt(v) }
func (c *AppConfig) SetCalibrationFile(v string) { c.CalibrationFile = ptrString(v) }
func (c *AppConfig) SetDelay(d time.Duration)    { c.Delay = ptrString(d.String()) }
func (c *AppConfig) SetMaxDecisions(v int)       { c.MaxDecisions = ptrInt(v) }
func (c *AppConfig) SetSerialPort(v string)      { c.SerialPort = ptrString(v) }
func (c *AppConfig) SetBaudRate(v int)           { c.BaudRate = ptrInt(v) }
func (c *AppConfig) SetDBPath(v string)          { c.DBPath = ptrString(v) }
func (c *AppConfig) SetNATSURL(v string)         { c.NATSURL = ptrString(v) }
func (c *AppConfig) SetVerbose(v bool)           { c.Verbose = ptrBool(v) }
