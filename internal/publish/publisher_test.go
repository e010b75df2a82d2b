package publish

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/parking.report/internal/detector"
	"github.com/banshee-data/parking.report/internal/envelope"
)

type message struct {
	subject string
	data    []byte
}

type fakeConn struct {
	published  []message
	publishErr error
	flushErr   error
	closed     bool
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, message{subject, data})
	return nil
}

func (f *fakeConn) Flush() error { return f.flushErr }
func (f *fakeConn) Close()       { f.closed = true }

var _ detector.Observer = (*Publisher)(nil)

func TestDisabledPublisherDropsMessages(t *testing.T) {
	p := NewPublisher(1, "run-1")
	assert.False(t, p.Enabled())
	assert.NoError(t, p.Observe(detector.Decision{Seq: 1}))
	assert.NoError(t, p.PublishOutcome(detector.Present, nil))
	assert.NoError(t, p.Close())
}

func TestObservePublishesDecision(t *testing.T) {
	fc := &fakeConn{}
	p := NewPublisher(3, "run-7")
	p.conn = fc
	at := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	err := p.Observe(detector.Decision{
		Seq:       2,
		Result:    detector.Present,
		Peak:      envelope.Datapoint{Distance: 0.36, Amplitude: 900},
		Threshold: 800,
		At:        at,
	})
	require.NoError(t, err)
	require.Len(t, fc.published, 1)
	assert.Equal(t, "parking.3.decision", fc.published[0].subject)

	var got DecisionMessage
	require.NoError(t, json.Unmarshal(fc.published[0].data, &got))
	assert.Equal(t, DecisionMessage{
		RunID:     "run-7",
		SensorID:  3,
		Seq:       2,
		Result:    "present",
		Code:      1,
		Distance:  0.36,
		Amplitude: 900,
		Threshold: 800,
		At:        at,
	}, got)
}

func TestPublishOutcome(t *testing.T) {
	fc := &fakeConn{}
	p := NewPublisher(1, "")
	p.conn = fc

	require.NoError(t, p.PublishOutcome(detector.Empty, errors.New("no consensus")))
	require.Len(t, fc.published, 1)
	assert.Equal(t, "parking.1.outcome", fc.published[0].subject)
	assert.JSONEq(t, `{"sensor_id":1,"result":"empty","code":0,"error":"no consensus"}`, string(fc.published[0].data))
}

func TestPublishError(t *testing.T) {
	boom := errors.New("slow consumer")
	p := NewPublisher(1, "")
	p.conn = &fakeConn{publishErr: boom}

	err := p.Observe(detector.Decision{Seq: 1})
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "parking.1.decision")
}

func TestCloseFlushes(t *testing.T) {
	fc := &fakeConn{flushErr: errors.New("timeout")}
	p := NewPublisher(1, "")
	p.conn = fc

	assert.Error(t, p.Close())
	assert.True(t, fc.closed)
	assert.False(t, p.Enabled())
	assert.NoError(t, p.Close())
}

func TestConnectFailure(t *testing.T) {
	p := NewPublisher(1, "")
	err := p.Connect("nats://127.0.0.1:1")
	assert.Error(t, err)
	assert.False(t, p.Enabled())
}
