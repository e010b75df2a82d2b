package serialport

import (
	"bytes"
	"errors"
	"strings"
	"sync"
)

// ErrPortClosed is returned by ScriptedPort after Close.
var ErrPortClosed = errors.New("serial port closed")

// ScriptedPort implements Port for tests. Every complete line written to it
// is passed to Respond, and the returned lines are queued for reading. Reads
// with nothing queued behave like a read timeout.
type ScriptedPort struct {
	mu sync.Mutex

	// Respond produces the reply lines for a written command.
	Respond func(cmd string) []string

	// ReadError and WriteError are returned by Read and Write when set.
	ReadError  error
	WriteError error
	// CloseError is returned by Close if set.
	CloseError error

	written []string
	pending bytes.Buffer
	replies bytes.Buffer
	closed  bool
}

// NewScriptedPort returns a port that answers commands with respond.
func NewScriptedPort(respond func(cmd string) []string) *ScriptedPort {
	return &ScriptedPort{Respond: respond}
}

// Read returns queued reply bytes.
func (p *ScriptedPort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, ErrPortClosed
	}
	if p.ReadError != nil {
		return 0, p.ReadError
	}
	if p.replies.Len() == 0 {
		return 0, nil
	}
	return p.replies.Read(b)
}

// Write records commands and queues their replies.
func (p *ScriptedPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, ErrPortClosed
	}
	if p.WriteError != nil {
		return 0, p.WriteError
	}
	p.pending.Write(b)
	for {
		line, err := p.pending.ReadString('\n')
		if err != nil {
			// incomplete line: keep it for the next write
			p.pending.Reset()
			p.pending.WriteString(line)
			break
		}
		cmd := strings.TrimRight(line, "\r\n")
		p.written = append(p.written, cmd)
		if p.Respond != nil {
			for _, reply := range p.Respond(cmd) {
				p.replies.WriteString(reply)
				p.replies.WriteByte('\n')
			}
		}
	}
	return len(b), nil
}

// Close marks the port closed.
func (p *ScriptedPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return p.CloseError
}

// Written returns the commands written so far.
func (p *ScriptedPort) Written() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.written))
	copy(out, p.written)
	return out
}

// Closed reports whether Close was called.
func (p *ScriptedPort) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}
