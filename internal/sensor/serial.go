package sensor

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/banshee-data/parking.report/internal/config"
	"github.com/banshee-data/parking.report/internal/envelope"
	"github.com/banshee-data/parking.report/internal/monitoring"
	"github.com/banshee-data/parking.report/internal/serialport"
)

// SerialSource talks to an envelope bridge over a serial line. The bridge
// protocol is line oriented:
//
//	> CONFIG sensor=<id> start=<m> length=<m> freq=<hz>
//	< OK
//	> SWEEP
//	< ENV <n> <v1> ... <vn>
//	> STOP
//
// Any command may be answered with "ERR <message>".
type SerialSource struct {
	Path    string
	Options serialport.PortOptions
	// Opener defaults to serialport.Open.
	Opener serialport.Opener
}

// NewSerialSource returns a source for the bridge attached at path.
func NewSerialSource(path string, opts serialport.PortOptions) *SerialSource {
	return &SerialSource{Path: path, Options: opts, Opener: serialport.Open}
}

// Open opens the port and configures the measurement window.
func (s *SerialSource) Open(ctx context.Context, radar config.Radar) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	opener := s.Opener
	if opener == nil {
		opener = serialport.Open
	}
	port, err := opener(s.Path, s.Options)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAcquisition, err)
	}

	conn := serialport.NewLineConn(port)
	cmd := fmt.Sprintf("CONFIG sensor=%d start=%s length=%s freq=%d",
		radar.SensorID,
		strconv.FormatFloat(radar.StartRange, 'f', -1, 64),
		strconv.FormatFloat(radar.LengthRange, 'f', -1, 64),
		radar.SweepFrequency)
	reply, err := conn.Request(cmd)
	if err == nil {
		err = replyError(reply, "OK")
	}
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: configure %s: %v", ErrAcquisition, s.Path, err)
	}

	monitoring.Debugf("sensor: %s configured (%s)", s.Path, radar)
	return &serialSession{conn: conn}, nil
}

type serialSession struct {
	conn *serialport.LineConn
}

func (s *serialSession) Sweep(ctx context.Context) (Sweep, error) {
	if err := ctx.Err(); err != nil {
		return Sweep{}, err
	}
	reply, err := s.conn.Request("SWEEP")
	if err != nil {
		return Sweep{}, fmt.Errorf("%w: %w", ErrAcquisition, err)
	}
	if err := replyError(reply, "ENV"); err != nil {
		return Sweep{}, fmt.Errorf("%w: %v", ErrAcquisition, err)
	}
	samples, declared, err := parseEnvelope(strings.Fields(reply)[1:])
	if err != nil {
		return Sweep{}, fmt.Errorf("%w: %v", ErrAcquisition, err)
	}
	return Sweep{
		Samples:        samples,
		DeclaredLength: declared,
	}, nil
}

// Close stops streaming and closes the port. A failed STOP is logged but
// the port is still closed.
func (s *serialSession) Close() error {
	if err := s.conn.WriteLine("STOP"); err != nil {
		monitoring.Logf("sensor: stop failed: %v", err)
	}
	return s.conn.Close()
}

// replyError checks that reply starts with the expected keyword.
func replyError(reply, want string) error {
	fields := strings.Fields(reply)
	if len(fields) == 0 {
		return fmt.Errorf("empty reply")
	}
	switch fields[0] {
	case want:
		return nil
	case "ERR":
		return fmt.Errorf("sensor error: %s", strings.TrimSpace(strings.TrimPrefix(reply, "ERR")))
	default:
		return fmt.Errorf("unexpected reply %q, want %s", fields[0], want)
	}
}

// parseEnvelope parses "<n> <v1> ... <vn>". Only the first
// envelope.MaxSamples values are kept.
func parseEnvelope(fields []string) ([]uint16, int, error) {
	if len(fields) == 0 {
		return nil, 0, fmt.Errorf("envelope reply missing sample count")
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil || n < 0 {
		return nil, 0, fmt.Errorf("invalid sample count %q", fields[0])
	}
	values := fields[1:]
	if len(values) < n {
		return nil, 0, fmt.Errorf("envelope reply declared %d samples, got %d", n, len(values))
	}
	if n == 0 {
		return nil, 0, fmt.Errorf("envelope reply has no samples")
	}
	keep := min(n, envelope.MaxSamples)
	samples := make([]uint16, keep)
	for i := 0; i < keep; i++ {
		v, err := strconv.ParseUint(values[i], 10, 16)
		if err != nil {
			return nil, 0, fmt.Errorf("sample %d: invalid amplitude %q", i, values[i])
		}
		samples[i] = uint16(v)
	}
	return samples, n, nil
}
