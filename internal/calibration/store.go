// Package calibration persists the calibration record as a two-line text file:
// the focal length in pixels on line 1, the reference hand width in
// centimeters on line 2.
package calibration

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ayusman/handrange/internal/distance"
)

// DefaultFileName is the calibration file name used when only a directory is configured.
const DefaultFileName = "calibration_data.txt"

// Store reads and writes the calibration file.
type Store struct {
	path string
}

// New creates a Store for the file at path. The parent directory is created
// if it does not exist.
func New(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("calibration file path is empty")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create calibration directory: %w", err)
		}
	}

	return &Store{path: path}, nil
}

// Path returns the calibration file path.
func (s *Store) Path() string {
	return s.path
}

// Exists reports whether a calibration file is present.
func (s *Store) Exists() bool {
	info, err := os.Stat(s.path)
	return err == nil && !info.IsDir()
}

// Load reads the calibration record. A missing, unreadable or malformed file
// returns an error wrapping distance.ErrMissingCalibration.
func (s *Store) Load() (*distance.Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", distance.ErrMissingCalibration, s.path, err)
	}

	rec, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}

	return rec, nil
}

// Save overwrites the calibration file with rec. The file is written to a
// temporary sibling and renamed into place, so readers never observe a
// partial record.
func (s *Store) Save(rec distance.Record) error {
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("refusing to save: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(Format(rec)); err != nil {
		tmp.Close()
		return fmt.Errorf("write calibration: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync calibration: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close calibration: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace calibration: %w", err)
	}

	return nil
}

// Remove deletes the calibration file. Removing a missing file is not an error.
func (s *Store) Remove() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove calibration: %w", err)
	}
	return nil
}

// Format encodes rec in the two-line file format.
func Format(rec distance.Record) []byte {
	var buf bytes.Buffer
	buf.WriteString(strconv.FormatFloat(rec.FocalLength, 'g', -1, 64))
	buf.WriteByte('\n')
	buf.WriteString(strconv.FormatFloat(rec.ReferenceHandWidth, 'g', -1, 64))
	buf.WriteByte('\n')
	return buf.Bytes()
}

// Parse decodes the two-line file format. Lines after the second are ignored.
func Parse(data []byte) (*distance.Record, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))

	var values [2]float64
	for i := range values {
		if !scanner.Scan() {
			return nil, fmt.Errorf("%w: expected 2 lines, got %d", distance.ErrMissingCalibration, i)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(scanner.Text()), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", distance.ErrMissingCalibration, i+1, err)
		}
		values[i] = v
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", distance.ErrMissingCalibration, err)
	}

	rec := &distance.Record{
		FocalLength:        values[0],
		ReferenceHandWidth: values[1],
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	return rec, nil
}
