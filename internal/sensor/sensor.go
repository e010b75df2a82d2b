// Package sensor acquires envelope sweeps from the radar.
package sensor

import (
	"context"
	"errors"

	"github.com/banshee-data/parking.report/internal/config"
	"github.com/banshee-data/parking.report/internal/envelope"
)

// ErrAcquisition marks a failure to obtain a sweep from the sensor. It is
// never retried.
var ErrAcquisition = errors.New("sweep acquisition failed")

// Source creates sensor sessions configured for a measurement window.
type Source interface {
	Open(ctx context.Context, radar config.Radar) (Session, error)
}

// Session is an activated sensor. It is used by a single goroutine and
// must be closed when the run ends.
type Session interface {
	Sweep(ctx context.Context) (Sweep, error)
	Close() error
}

// Sweep is one acquisition of envelope data. DeclaredLength is the sample
// count reported by the sensor metadata and may differ from len(Samples).
type Sweep struct {
	Samples        []uint16
	DeclaredLength int
}

// Effective returns the samples to process: at most DeclaredLength samples,
// bounded by envelope.MaxSamples.
func (s Sweep) Effective() []uint16 {
	n := len(s.Samples)
	if s.DeclaredLength >= 0 && s.DeclaredLength < n {
		n = s.DeclaredLength
	}
	samples, _ := envelope.Bound(s.Samples[:n])
	return samples
}
