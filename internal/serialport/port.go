// Package serialport opens the serial link to the envelope bridge and
// provides a scripted port for tests.
package serialport

import (
	"io"
	"time"
)

// Port defines the minimal interface needed for a serial port. This
// abstraction enables unit testing without real serial hardware.
type Port interface {
	io.ReadWriter
	io.Closer
}

// TimeoutPort extends Port with timeout capabilities. This is an optional
// interface that serial ports may implement.
type TimeoutPort interface {
	Port
	// SetReadTimeout sets the read timeout for the serial port.
	SetReadTimeout(timeout time.Duration) error
}

// Opener opens a port at path with the given options. Tests replace it to
// avoid touching hardware.
type Opener func(path string, opts PortOptions) (Port, error)
