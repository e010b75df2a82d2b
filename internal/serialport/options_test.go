package serialport

import (
	"testing"
	"time"

	"go.bug.st/serial"
)

func TestPortOptionsNormalizeDefaults(t *testing.T) {
	opts, err := PortOptions{}.Normalize()
	if err != nil {
		t.Fatalf("Normalize() unexpected error: %v", err)
	}
	if opts.BaudRate != DefaultBaudRate {
		t.Errorf("BaudRate = %d, want %d", opts.BaudRate, DefaultBaudRate)
	}
	if opts.DataBits != 8 || opts.StopBits != 1 || opts.Parity != "N" {
		t.Errorf("unexpected defaults: %+v", opts)
	}
	if opts.ReadTimeout != DefaultReadTimeout {
		t.Errorf("ReadTimeout = %v, want %v", opts.ReadTimeout, DefaultReadTimeout)
	}
}

func TestPortOptionsNormalizeErrors(t *testing.T) {
	tests := []struct {
		name string
		opts PortOptions
	}{
		{"data bits too small", PortOptions{DataBits: 4}},
		{"data bits too large", PortOptions{DataBits: 9}},
		{"stop bits", PortOptions{StopBits: 3}},
		{"parity", PortOptions{Parity: "mark"}},
		{"timeout", PortOptions{ReadTimeout: -time.Second}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.opts.Normalize(); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestPortOptionsSerialMode(t *testing.T) {
	tests := []struct {
		name string
		opts PortOptions
		want serial.Mode
	}{
		{
			name: "defaults",
			opts: PortOptions{},
			want: serial.Mode{BaudRate: DefaultBaudRate, DataBits: 8, Parity: serial.NoParity, StopBits: serial.OneStopBit},
		},
		{
			name: "even parity two stop bits",
			opts: PortOptions{BaudRate: 9600, DataBits: 7, StopBits: 2, Parity: "even"},
			want: serial.Mode{BaudRate: 9600, DataBits: 7, Parity: serial.EvenParity, StopBits: serial.TwoStopBits},
		},
		{
			name: "odd parity",
			opts: PortOptions{Parity: "O"},
			want: serial.Mode{BaudRate: DefaultBaudRate, DataBits: 8, Parity: serial.OddParity, StopBits: serial.OneStopBit},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.opts.SerialMode()
			if err != nil {
				t.Fatalf("SerialMode() error: %v", err)
			}
			if *got != tt.want {
				t.Errorf("SerialMode() = %+v, want %+v", *got, tt.want)
			}
		})
	}
}

func TestOpenRejectsInvalidOptions(t *testing.T) {
	if _, err := Open("/dev/null-does-not-exist", PortOptions{DataBits: 2}); err == nil {
		t.Error("expected error for invalid options")
	}
}
