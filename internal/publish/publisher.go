// Package publish streams occupancy decisions to NATS.
package publish

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/banshee-data/parking.report/internal/detector"
	"github.com/banshee-data/parking.report/internal/monitoring"
)

// conn is the subset of *nats.Conn the publisher uses.
type conn interface {
	Publish(subject string, data []byte) error
	Flush() error
	Close()
}

// DecisionMessage is the JSON payload published for each decision.
type DecisionMessage struct {
	RunID     string    `json:"run_id,omitempty"`
	SensorID  int       `json:"sensor_id"`
	Seq       int       `json:"seq"`
	Result    string    `json:"result"`
	Code      int       `json:"code"`
	Distance  float64   `json:"peak_distance_m"`
	Amplitude float64   `json:"peak_amplitude"`
	Threshold float64   `json:"threshold"`
	At        time.Time `json:"at"`
}

// OutcomeMessage is published once when a detection run ends.
type OutcomeMessage struct {
	RunID    string `json:"run_id,omitempty"`
	SensorID int    `json:"sensor_id"`
	Result   string `json:"result"`
	Code     int    `json:"code"`
	Error    string `json:"error,omitempty"`
}

// Publisher publishes decisions for one sensor. A Publisher that was never
// connected drops messages silently, so callers need not check whether NATS
// is configured.
type Publisher struct {
	mu       sync.Mutex
	conn     conn
	sensorID int
	runID    string
}

// NewPublisher returns a disconnected publisher for sensorID.
func NewPublisher(sensorID int, runID string) *Publisher {
	return &Publisher{sensorID: sensorID, runID: runID}
}

// Connect dials the NATS server at url.
func (p *Publisher) Connect(url string) error {
	nc, err := nats.Connect(url,
		nats.Name(fmt.Sprintf("parking-sensor-%d", p.sensorID)),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			monitoring.Logf("publish: NATS disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			monitoring.Logf("publish: NATS reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(*nats.Conn) {
			monitoring.Debugf("publish: NATS connection closed")
		}),
	)
	if err != nil {
		return fmt.Errorf("connect to NATS at %s: %w", url, err)
	}

	p.mu.Lock()
	p.conn = nc
	p.mu.Unlock()
	monitoring.Debugf("publish: connected to %s", url)
	return nil
}

// Enabled reports whether messages are being sent.
func (p *Publisher) Enabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.conn != nil
}

// DecisionSubject is the subject decisions are published on.
func (p *Publisher) DecisionSubject() string {
	return fmt.Sprintf("parking.%d.decision", p.sensorID)
}

// OutcomeSubject is the subject run outcomes are published on.
func (p *Publisher) OutcomeSubject() string {
	return fmt.Sprintf("parking.%d.outcome", p.sensorID)
}

// Observe implements detector.Observer.
func (p *Publisher) Observe(d detector.Decision) error {
	return p.publish(p.DecisionSubject(), DecisionMessage{
		RunID:     p.runID,
		SensorID:  p.sensorID,
		Seq:       d.Seq,
		Result:    d.Result.String(),
		Code:      d.Result.Code(),
		Distance:  d.Peak.Distance,
		Amplitude: d.Peak.Amplitude,
		Threshold: d.Threshold,
		At:        d.At,
	})
}

// PublishOutcome announces the final result of a run.
func (p *Publisher) PublishOutcome(result detector.Result, runErr error) error {
	msg := OutcomeMessage{
		RunID:    p.runID,
		SensorID: p.sensorID,
		Result:   result.String(),
		Code:     result.Code(),
	}
	if runErr != nil {
		msg.Error = runErr.Error()
	}
	return p.publish(p.OutcomeSubject(), msg)
}

func (p *Publisher) publish(subject string, v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode message for %s: %w", subject, err)
	}
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}
	return nil
}

// Close flushes pending messages and closes the connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return nil
	}
	err := p.conn.Flush()
	p.conn.Close()
	p.conn = nil
	if err != nil {
		return fmt.Errorf("flush NATS: %w", err)
	}
	return nil
}
