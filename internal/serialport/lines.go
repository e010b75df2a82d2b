package serialport

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrTimeout is returned when the port delivers no data within its read timeout.
var ErrTimeout = errors.New("serial read timeout")

// LineConn exchanges newline-terminated text lines over a Port.
type LineConn struct {
	port Port
	r    *bufio.Reader
	mu   sync.Mutex
}

// NewLineConn wraps port for line-oriented request/response traffic.
func NewLineConn(port Port) *LineConn {
	return &LineConn{
		port: port,
		r:    bufio.NewReader(timeoutReader{port}),
	}
}

// WriteLine writes s followed by a newline.
func (c *LineConn) WriteLine(s string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.port.Write([]byte(s + "\n")); err != nil {
		return fmt.Errorf("failed to write to serial port: %w", err)
	}
	return nil
}

// ReadLine reads the next line, stripped of its terminator and surrounding
// whitespace. Blank lines are skipped.
func (c *LineConn) ReadLine() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for {
		line, err := c.r.ReadString('\n')
		if err != nil {
			return "", err
		}
		if line = strings.TrimSpace(line); line != "" {
			return line, nil
		}
	}
}

// Request writes cmd and returns the next line read back.
func (c *LineConn) Request(cmd string) (string, error) {
	if err := c.WriteLine(cmd); err != nil {
		return "", err
	}
	return c.ReadLine()
}

// Close closes the underlying port.
func (c *LineConn) Close() error {
	return c.port.Close()
}

// timeoutReader turns the (0, nil) result go.bug.st/serial returns on a read
// timeout into ErrTimeout.
type timeoutReader struct {
	port Port
}

func (t timeoutReader) Read(p []byte) (int, error) {
	n, err := t.port.Read(p)
	if n == 0 && err == nil {
		return 0, ErrTimeout
	}
	return n, err
}
