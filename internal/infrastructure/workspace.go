package infrastructure

import (
	"fmt"
	"os"
	"strings"
)

// LocalWorkspace stages temporary files in the incoming directory
type LocalWorkspace struct {
	dir string
}

// NewLocalWorkspace creates the staging directory if needed
func NewLocalWorkspace(dir string) (*LocalWorkspace, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create incoming directory: %w", err)
	}
	return &LocalWorkspace{dir: dir}, nil
}

// Dir returns the staging directory
func (w *LocalWorkspace) Dir() string {
	return w.dir
}

// Stage writes data to a new temporary file
func (w *LocalWorkspace) Stage(data []byte, ext string) (string, error) {
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		ext = "bin"
	}

	file, err := os.CreateTemp(w.dir, "stage-*."+ext)
	if err != nil {
		return "", fmt.Errorf("failed to create staged file: %w", err)
	}

	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(file.Name())
		return "", fmt.Errorf("failed to write staged file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(file.Name())
		return "", fmt.Errorf("failed to close staged file: %w", err)
	}

	return file.Name(), nil
}

// Release removes a staged file
func (w *LocalWorkspace) Release(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
