package sensor

import (
	"context"
	"fmt"
	"sync"

	"github.com/banshee-data/parking.report/internal/config"
)

// ScriptedSweep is one step of a ScriptedSource: either samples or an error.
type ScriptedSweep struct {
	Samples []uint16
	Err     error
}

// ScriptedSource is a test double that replays a fixed list of sweeps and
// records how it was used.
type ScriptedSource struct {
	mu sync.Mutex

	Steps   []ScriptedSweep
	OpenErr error

	opens  int
	calls  int
	closes int
	radars []config.Radar
}

// NewScriptedSource returns a source replaying the given sample vectors.
func NewScriptedSource(sweeps ...[]uint16) *ScriptedSource {
	s := &ScriptedSource{}
	for _, samples := range sweeps {
		s.Steps = append(s.Steps, ScriptedSweep{Samples: samples})
	}
	return s
}

// Open records the requested window.
func (s *ScriptedSource) Open(ctx context.Context, radar config.Radar) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.OpenErr != nil {
		return nil, s.OpenErr
	}
	s.opens++
	s.radars = append(s.radars, radar)
	return &scriptedSession{src: s}, nil
}

// Calls returns the number of Sweep calls made across all sessions.
func (s *ScriptedSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Opens returns the number of sessions opened.
func (s *ScriptedSource) Opens() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opens
}

// Closes returns the number of sessions closed.
func (s *ScriptedSource) Closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

// Radars returns the windows sessions were opened with.
func (s *ScriptedSource) Radars() []config.Radar {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]config.Radar, len(s.radars))
	copy(out, s.radars)
	return out
}

type scriptedSession struct {
	src *ScriptedSource
}

func (s *scriptedSession) Sweep(ctx context.Context) (Sweep, error) {
	if err := ctx.Err(); err != nil {
		return Sweep{}, err
	}
	s.src.mu.Lock()
	defer s.src.mu.Unlock()

	i := s.src.calls
	s.src.calls++
	if i >= len(s.src.Steps) {
		return Sweep{}, fmt.Errorf("%w: script exhausted after %d sweeps", ErrAcquisition, len(s.src.Steps))
	}
	step := s.src.Steps[i]
	if step.Err != nil {
		return Sweep{}, step.Err
	}
	return Sweep{
		Samples:        step.Samples,
		DeclaredLength: len(step.Samples),
	}, nil
}

func (s *scriptedSession) Close() error {
	s.src.mu.Lock()
	defer s.src.mu.Unlock()
	s.src.closes++
	return nil
}
