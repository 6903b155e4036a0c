// Package models locates speech model directories on disk and downloads whisper models.
package models

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultRoot returns the directory scanned for model directories.
func DefaultRoot() (string, error) {
	if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
		return filepath.Join(dataHome, "hyprscribe", "models"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", "hyprscribe", "models"), nil
}

// ExpandPath resolves a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

// ListModelDirs returns the names of the non-empty sub-directories of root, sorted.
// A missing root yields an empty list.
func ListModelDirs(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var dirs []string
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if !isEmptyDir(filepath.Join(root, entry.Name())) {
			dirs = append(dirs, entry.Name())
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}

// CheckModelDir verifies that path is an existing, non-empty directory.
func CheckModelDir(path string) error {
	if path == "" {
		return &ModelNotFoundError{Path: path, Reason: "no model directory configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		return &ModelNotFoundError{Path: path, Reason: "directory does not exist"}
	}
	if !info.IsDir() {
		return &ModelNotFoundError{Path: path, Reason: "not a directory"}
	}
	if isEmptyDir(path) {
		return &ModelNotFoundError{Path: path, Reason: "directory is empty"}
	}
	return nil
}

func isEmptyDir(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return true
	}
	defer f.Close()
	_, err = f.Readdirnames(1)
	return err != nil
}
