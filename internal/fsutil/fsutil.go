// Package fsutil holds the small file helpers used for agent scripts and
// transcript exports.
package fsutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ReadFileScoped reads a file through an os.Root opened at its directory,
// so a crafted base name cannot escape that directory.
func ReadFileScoped(path string) ([]byte, error) {
	dir, base, err := split(path)
	if err != nil {
		return nil, err
	}

	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, err
	}
	defer root.Close()

	f, err := root.Open(base)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return io.ReadAll(f)
}

// WriteFileAtomic replaces path with data, creating parent directories.
// Readers never observe a partially written file.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir, _, err := split(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	return atomicWriteFile(filepath.Clean(path), data, perm)
}

func split(path string) (dir, base string, err error) {
	cleaned := filepath.Clean(path)
	base = filepath.Base(cleaned)
	if path == "" || base == "." || base == string(filepath.Separator) {
		return "", "", fmt.Errorf("invalid file path: %q", path)
	}
	return filepath.Dir(cleaned), base, nil
}
