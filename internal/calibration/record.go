// Package calibration reads and writes empty-bay captures and derives the
// detection baseline from them.
package calibration

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/banshee-data/parking.report/internal/envelope"
	"github.com/banshee-data/parking.report/internal/monitoring"
)

var (
	// ErrFormat marks a calibration file that is missing, truncated or
	// inconsistent with its declared sample count.
	ErrFormat = errors.New("calibration data file format error")
	// ErrDegenerate marks a capture whose baseline cannot be derived, such as
	// an empty or all-zero sweep.
	ErrDegenerate = errors.New("degenerate calibration capture")
)

// Record is one empty-bay sweep along with the window it was captured over.
type Record struct {
	Start   float64  `json:"start"`
	Length  float64  `json:"length"`
	Samples []uint16 `json:"samples"`
}

// Read parses a record in the capture file format:
//
//	start <float>
//	length <float>
//	n <uint>
//	<uint> <uint> ... (n values)
//
// All n samples must be present. Samples beyond envelope.MaxSamples are
// validated but dropped.
func Read(r io.Reader) (Record, error) {
	sc := bufio.NewScanner(r)
	sc.Split(bufio.ScanWords)

	var rec Record
	var err error
	if rec.Start, err = readHeaderFloat(sc, "start"); err != nil {
		return Record{}, err
	}
	if rec.Length, err = readHeaderFloat(sc, "length"); err != nil {
		return Record{}, err
	}
	tok, err := readHeader(sc, "n")
	if err != nil {
		return Record{}, err
	}
	n, err := strconv.ParseUint(tok, 10, 32)
	if err != nil {
		return Record{}, fmt.Errorf("%w: invalid sample count %q", ErrFormat, tok)
	}

	keep := int(min(n, envelope.MaxSamples))
	rec.Samples = make([]uint16, 0, keep)
	for i := uint64(0); i < n; i++ {
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return Record{}, fmt.Errorf("%w: %v", ErrFormat, err)
			}
			return Record{}, fmt.Errorf("%w: expected %d samples, found %d", ErrFormat, n, i)
		}
		v, err := strconv.ParseUint(sc.Text(), 10, 16)
		if err != nil {
			return Record{}, fmt.Errorf("%w: sample %d: invalid amplitude %q", ErrFormat, i, sc.Text())
		}
		if int(i) < keep {
			rec.Samples = append(rec.Samples, uint16(v))
		}
	}
	if dropped := n - uint64(keep); dropped > 0 {
		monitoring.Debugf("calibration: discarding %d samples beyond capacity %d", dropped, envelope.MaxSamples)
	}
	return rec, nil
}

func readHeader(sc *bufio.Scanner, key string) (string, error) {
	if !sc.Scan() {
		return "", headerErr(sc, key)
	}
	if sc.Text() != key {
		return "", fmt.Errorf("%w: expected %q, found %q", ErrFormat, key, sc.Text())
	}
	if !sc.Scan() {
		return "", headerErr(sc, key)
	}
	return sc.Text(), nil
}

func readHeaderFloat(sc *bufio.Scanner, key string) (float64, error) {
	tok, err := readHeader(sc, key)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s value %q", ErrFormat, key, tok)
	}
	return v, nil
}

func headerErr(sc *bufio.Scanner, key string) error {
	if err := sc.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrFormat, err)
	}
	return fmt.Errorf("%w: missing %q header", ErrFormat, key)
}

// Write serialises rec in the capture file format. Floats use the shortest
// representation that reads back to the same value.
func Write(w io.Writer, rec Record) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "start %s\n", strconv.FormatFloat(rec.Start, 'f', -1, 64))
	fmt.Fprintf(bw, "length %s\n", strconv.FormatFloat(rec.Length, 'f', -1, 64))
	fmt.Fprintf(bw, "n %d\n", len(rec.Samples))
	for _, s := range rec.Samples {
		bw.WriteString(strconv.FormatUint(uint64(s), 10))
		bw.WriteByte(' ')
	}
	bw.WriteByte('\n')
	return bw.Flush()
}
