// Package imagestore manages the directory of images referenced by notes.
package imagestore

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"
)

// Dir is the managed directory, relative to the data directory.
const Dir = "storage/images"

var (
	// ErrPermission is returned when the source cannot be read or the
	// managed directory cannot be written.
	ErrPermission = errors.New("permission denied")

	// ErrNoSpace is returned when the disk is full.
	ErrNoSpace = errors.New("no space left on device")
)

// Store copies images into <dataDir>/storage/images and resolves the
// relative paths stored in note content.
type Store struct {
	dataDir string
}

// New returns a Store rooted at dataDir.
func New(dataDir string) *Store {
	return &Store{dataDir: dataDir}
}

func (s *Store) dir() string {
	return filepath.Join(s.dataDir, filepath.FromSlash(Dir))
}

// Import copies src into the managed directory as <mtime>_<basename> and
// returns its path relative to the data directory, with forward slashes.
// An already imported file with the same name is reused. A missing src
// yields an error wrapping fs.ErrNotExist.
func (s *Store) Import(src string) (string, error) {
	info, err := os.Stat(src)
	if err != nil {
		return "", classify(fmt.Errorf("reading image %s: %w", src, err))
	}
	if info.IsDir() {
		return "", fmt.Errorf("reading image %s: is a directory", src)
	}

	name := fmt.Sprintf("%d_%s", info.ModTime().Unix(), filepath.Base(src))
	rel := Dir + "/" + name
	dst := filepath.Join(s.dir(), name)

	if _, err := os.Stat(dst); err == nil {
		return rel, nil
	}

	if err := os.MkdirAll(s.dir(), 0o755); err != nil {
		return "", classify(fmt.Errorf("creating image directory: %w", err))
	}
	if err := copyFile(src, dst); err != nil {
		return "", classify(err)
	}
	return rel, nil
}

// copyFile writes through a temp file in the target directory so a failed
// copy never leaves a truncated image under the final name.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening image %s: %w", src, err)
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".import-*")
	if err != nil {
		return fmt.Errorf("creating image copy: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		return fmt.Errorf("copying image %s: %w", src, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("flushing image copy: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("setting image permissions: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("storing image: %w", err)
	}
	return nil
}

// Resolve returns the absolute location of a stored image path.
func (s *Store) Resolve(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(s.dataDir, filepath.FromSlash(rel))
}

// Managed reports whether path already points inside the managed directory.
func (s *Store) Managed(path string) bool {
	if path == "" {
		return false
	}
	if !filepath.IsAbs(path) {
		clean := filepath.ToSlash(filepath.Clean(filepath.FromSlash(path)))
		return strings.HasPrefix(clean, Dir+"/")
	}
	rel, err := filepath.Rel(s.dir(), path)
	if err != nil {
		return false
	}
	return rel != "." && !strings.HasPrefix(rel, "..")
}

func classify(err error) error {
	switch {
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %v", ErrPermission, err)
	case errors.Is(err, syscall.ENOSPC):
		return fmt.Errorf("%w: %v", ErrNoSpace, err)
	}
	return err
}
