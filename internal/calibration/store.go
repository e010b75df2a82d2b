package calibration

import (
	"fmt"

	"github.com/banshee-data/parking.report/internal/fsutil"
)

// Store loads and saves records through a FileSystem.
type Store struct {
	FS fsutil.FileSystem
}

// NewStore returns a Store backed by the OS filesystem.
func NewStore() *Store {
	return &Store{FS: fsutil.OSFileSystem{}}
}

// Load reads the record at path. A missing or unreadable file is a format error.
func (s *Store) Load(path string) (Record, error) {
	f, err := s.FS.Open(path)
	if err != nil {
		return Record{}, fmt.Errorf("%w: unable to read calibration data file: %v", ErrFormat, err)
	}
	defer f.Close()

	rec, err := Read(f)
	if err != nil {
		return Record{}, fmt.Errorf("%s: %w", path, err)
	}
	return rec, nil
}

// Save writes rec to path, replacing any existing file.
func (s *Store) Save(path string, rec Record) error {
	f, err := s.FS.Create(path)
	if err != nil {
		return fmt.Errorf("unable to write calibration data to file: %w", err)
	}
	if err := Write(f, rec); err != nil {
		f.Close()
		return fmt.Errorf("unable to write calibration data to file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("unable to write calibration data to file: %w", err)
	}
	return nil
}
