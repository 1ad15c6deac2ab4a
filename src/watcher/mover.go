package watcher

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ArchiveStatus is where an inbox file goes once handled
type ArchiveStatus string

const (
	StatusProcessed ArchiveStatus = "processed"
	StatusFailed    ArchiveStatus = "failed"
)

// Mover moves handled inbox files out of the watched folder
type Mover struct {
	inbox string
}

// NewMover creates a mover for the given inbox folder
func NewMover(inbox string) *Mover {
	return &Mover{inbox: inbox}
}

// GetFolderForStatus returns the archive folder for a status
func (m *Mover) GetFolderForStatus(status ArchiveStatus) (string, error) {
	switch status {
	case StatusProcessed, StatusFailed:
		return filepath.Join(m.inbox, string(status)), nil
	}
	return "", fmt.Errorf("no folder mapping for status '%s'", status)
}

// Archive moves filePath into the folder for status and returns its new path
func (m *Mover) Archive(filePath string, status ArchiveStatus) (string, error) {
	targetFolder, err := m.GetFolderForStatus(status)
	if err != nil {
		return "", fmt.Errorf("failed to get target folder: %w", err)
	}

	// Ensure target folder exists
	if err := os.MkdirAll(targetFolder, 0755); err != nil {
		return "", fmt.Errorf("failed to create target folder: %w", err)
	}

	targetPath := filepath.Join(targetFolder, filepath.Base(filePath))
	if filePath == targetPath {
		return targetPath, nil
	}
	targetPath = uniquePath(targetPath)

	if err := os.Rename(filePath, targetPath); err != nil {
		return "", fmt.Errorf("failed to move file: %w", err)
	}

	return targetPath, nil
}

// uniquePath appends -1, -2, ... to the stem until nothing exists at the
// path, so a second photo.jpg never replaces the first one
func uniquePath(path string) string {
	if _, err := os.Lstat(path); os.IsNotExist(err) {
		return path
	}

	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s-%d%s", stem, i, ext)
		if _, err := os.Lstat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}
