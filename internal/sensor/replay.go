package sensor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/banshee-data/parking.report/internal/config"
	"github.com/banshee-data/parking.report/internal/envelope"
	"github.com/banshee-data/parking.report/internal/fsutil"
)

// ReplaySource serves sweeps recorded in a fixture file, for development
// without hardware. Each non-empty line not starting with '#' is one sweep
// of whitespace-separated amplitudes. Sweeps are served in file order and
// running out is an acquisition failure.
type ReplaySource struct {
	FS   fsutil.FileSystem
	Path string
}

// NewReplaySource returns a ReplaySource reading path from fsys. A nil fsys
// selects the OS filesystem.
func NewReplaySource(fsys fsutil.FileSystem, path string) *ReplaySource {
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}
	return &ReplaySource{FS: fsys, Path: path}
}

// Open loads the whole fixture file.
func (s *ReplaySource) Open(ctx context.Context, radar config.Radar) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := s.FS.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: open fixtures: %v", ErrAcquisition, err)
	}
	defer f.Close()

	sweeps, err := ParseFixtures(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrAcquisition, s.Path, err)
	}
	return &replaySession{sweeps: sweeps}, nil
}

// ParseFixtures reads sweeps from the fixture line format.
func ParseFixtures(r io.Reader) ([][]uint16, error) {
	var sweeps [][]uint16
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		samples := make([]uint16, 0, min(len(fields), envelope.MaxSamples))
		for i, f := range fields {
			v, err := strconv.ParseUint(f, 10, 16)
			if err != nil {
				return nil, fmt.Errorf("line %d: sample %d: invalid amplitude %q", line, i, f)
			}
			samples = append(samples, uint16(v))
		}
		sweeps = append(sweeps, samples)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return sweeps, nil
}

type replaySession struct {
	sweeps [][]uint16
	next   int
}

func (s *replaySession) Sweep(ctx context.Context) (Sweep, error) {
	if err := ctx.Err(); err != nil {
		return Sweep{}, err
	}
	if s.next >= len(s.sweeps) {
		return Sweep{}, fmt.Errorf("%w: fixtures exhausted after %d sweeps", ErrAcquisition, len(s.sweeps))
	}
	samples := s.sweeps[s.next]
	s.next++
	return Sweep{
		Samples:        samples,
		DeclaredLength: len(samples),
	}, nil
}

func (s *replaySession) Close() error { return nil }
