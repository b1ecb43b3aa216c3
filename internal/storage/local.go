package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidName is returned for names that would escape the storage directory.
var ErrInvalidName = errors.New("invalid file name")

// ErrNotFound is returned when a stored file does not exist.
var ErrNotFound = errors.New("file not found")

// Local stores uploads and generated PDFs in one flat directory. Stored
// names are prefixed with a random hex id so uploads never collide.
type Local struct {
	dir string
	now func() time.Time
}

// NewLocal creates the directory if needed.
func NewLocal(dir string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &Local{dir: dir, now: time.Now}, nil
}

// Dir returns the storage directory.
func (s *Local) Dir() string { return s.dir }

// NewName derives a unique stored name for original, optionally prefixed.
func NewName(prefix, original string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	name := id + "_" + SanitizeFilename(original)
	if prefix != "" {
		name = prefix + "_" + name
	}
	return name
}

// OriginalName strips the unique prefix added by NewName, along with the
// annotated marker.
func OriginalName(stored string) string {
	name := strings.TrimPrefix(stored, "annotated_")
	if i := strings.Index(name, "_"); i == 32 && isHex(name[:i]) {
		return name[i+1:]
	}
	return name
}

func isHex(s string) bool {
	for _, r := range s {
		if !strings.ContainsRune("0123456789abcdef", r) {
			return false
		}
	}
	return true
}

// Save writes r under a fresh unique name derived from original and returns
// the stored name.
func (s *Local) Save(original string, r io.Reader) (string, error) {
	name := NewName("", original)
	if err := s.write(name, r); err != nil {
		return "", err
	}
	return name, nil
}

func (s *Local) write(name string, r io.Reader) error {
	path, err := s.Path(name)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("failed to close file: %w", err)
	}
	return nil
}

// Path resolves a stored name to its location on disk.
func (s *Local) Path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(s.dir, name), nil
}

// Open opens a stored file for reading.
func (s *Local) Open(name string) (*os.File, error) {
	path, err := s.Path(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, err
	}
	return f, nil
}

// Sweep removes files last modified more than olderThan ago and returns how
// many were deleted.
func (s *Local) Sweep(olderThan time.Duration) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("read storage directory: %w", err)
	}

	cutoff := s.now().Add(-olderThan)
	removed := 0
	var errs []error
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}

// SanitizeFilename keeps the base name and replaces characters that are
// unsafe in paths or headers.
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	replacer := strings.NewReplacer(
		"..", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "_",
	)
	name = replacer.Replace(name)
	if name == "" || name == "." || name == "/" {
		return "upload"
	}
	return name
}
