package main

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/banshee-data/parking.report/internal/config"
)

func TestParseArgsDefaults(t *testing.T) {
	inv, err := parseArgs(nil, io.Discard)
	if err != nil {
		t.Fatalf("parseArgs() error: %v", err)
	}
	if inv.mode != modeDetect {
		t.Errorf("mode = %v, want detect", inv.mode)
	}
	if got, want := inv.cfg.Radar(), config.DefaultRadar(); got != want {
		t.Errorf("Radar() = %v, want %v", got, want)
	}
	if inv.cfg.HasCalibrationFile() {
		t.Error("calibration file should not count as given by default")
	}
	if inv.cfg.Consensus() || inv.cfg.GetDelay() != 0 {
		t.Errorf("Consensus() = %v, GetDelay() = %v, want single shot", inv.cfg.Consensus(), inv.cfg.GetDelay())
	}
	if inv.fixtures != "fixtures.txt" {
		t.Errorf("fixtures = %q", inv.fixtures)
	}
}

func TestParseArgsZeroDelayEnablesConsensus(t *testing.T) {
	inv, err := parseArgs([]string{"-delay", "0"}, io.Discard)
	if err != nil {
		t.Fatalf("parseArgs() error: %v", err)
	}
	if !inv.cfg.Consensus() {
		t.Error("-delay 0 should enable consensus")
	}
	if got := inv.cfg.GetDelay(); got != 0 {
		t.Errorf("GetDelay() = %v, want 0", got)
	}
}

func TestParseArgsModes(t *testing.T) {
	tests := []struct {
		args []string
		want mode
	}{
		{[]string{"-calibrate"}, modeCalibrate},
		{[]string{"-plot", "out.png"}, modePlot},
		{[]string{"-migrate", "-db", "x.db"}, modeMigrate},
		{[]string{"-version", "-calibrate"}, modeVersion},
	}
	for _, tt := range tests {
		inv, err := parseArgs(tt.args, io.Discard)
		if err != nil {
			t.Fatalf("parseArgs(%v) error: %v", tt.args, err)
		}
		if inv.mode != tt.want {
			t.Errorf("parseArgs(%v) mode = %v, want %v", tt.args, inv.mode, tt.want)
		}
	}
}

func TestParseArgsFlagsOverrideConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "parking.yaml")
	yaml := "start_range: 0.2\nlength_range: 0.3\nsensor_id: 3\ndelay: 2s\ncalibration_file: bay.cal\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	inv, err := parseArgs([]string{"-config", path, "-sensor", "4", "-delay", "0.5"}, io.Discard)
	if err != nil {
		t.Fatalf("parseArgs() error: %v", err)
	}
	radar := inv.cfg.Radar()
	if radar.SensorID != 4 {
		t.Errorf("SensorID = %d, want flag value 4", radar.SensorID)
	}
	if radar.StartRange != 0.2 || radar.LengthRange != 0.3 {
		t.Errorf("window = %v, want file values", radar)
	}
	if got := inv.cfg.GetDelay(); got != 500*time.Millisecond {
		t.Errorf("GetDelay() = %v, want 500ms", got)
	}
	if !inv.cfg.HasCalibrationFile() || inv.cfg.GetCalibrationFile() != "bay.cal" {
		t.Errorf("calibration file = %q", inv.cfg.GetCalibrationFile())
	}
}

func TestParseArgsRejectsInvalidValues(t *testing.T) {
	tests := [][]string{
		{"-delay", "-1"},
		{"-max-decisions", "1"},
		{"-range-length", "0"},
		{"-sensor", "0"},
		{"-calibration-file", ""},
		{"extra"},
	}
	for _, args := range tests {
		_, err := parseArgs(args, io.Discard)
		if !errors.Is(err, config.ErrConfiguration) {
			t.Errorf("parseArgs(%v) error = %v, want ErrConfiguration", args, err)
		}
	}
}

func TestParseArgsBadConfigFile(t *testing.T) {
	if _, err := parseArgs([]string{"-config", "parking.toml"}, io.Discard); !errors.Is(err, config.ErrConfiguration) {
		t.Errorf("error = %v, want ErrConfiguration", err)
	}
}
