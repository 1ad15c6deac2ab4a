package ingest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileSystem is the filesystem surface the pipeline needs
type FileSystem interface {
	Stat(name string) (fs.FileInfo, error)
	MkdirAll(path string, perm fs.FileMode) error
	WriteFile(name string, data []byte, perm fs.FileMode) error
	ReadFile(name string) ([]byte, error)
}

// OSFileSystem implements FileSystem on the real OS
type OSFileSystem struct{}

func (OSFileSystem) Stat(name string) (fs.FileInfo, error) {
	return os.Stat(name)
}

func (OSFileSystem) MkdirAll(path string, perm fs.FileMode) error {
	return os.MkdirAll(path, perm)
}

func (OSFileSystem) WriteFile(name string, data []byte, perm fs.FileMode) error {
	return os.WriteFile(name, data, perm)
}

func (OSFileSystem) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(name)
}

// EnsureDirectory creates dir and its parents if missing. Losing a
// creation race to another ingestion counts as success.
func EnsureDirectory(fsys FileSystem, dir string) error {
	info, err := fsys.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("%s exists and is not a directory", dir)
		}
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to stat directory: %w", err)
	}

	if err := fsys.MkdirAll(dir, 0755); err != nil {
		if errors.Is(err, fs.ErrExist) {
			if info, statErr := fsys.Stat(dir); statErr == nil && info.IsDir() {
				return nil
			}
		}
		return fmt.Errorf("failed to create directory: %w", err)
	}

	return nil
}

// WriteAsset writes data to dir/filename, replacing any existing file
func WriteAsset(fsys FileSystem, dir, filename string, data []byte) error {
	if err := fsys.WriteFile(filepath.Join(dir, filename), data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}
