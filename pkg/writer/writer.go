// Package writer persists rendered scripts to disk.
package writer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/starmountain1997/vaops/pkg/script"
)

// ErrIO marks a filesystem failure while writing a script. It is surfaced to
// the caller, never retried.
var ErrIO = errors.New("io error")

// Write stores a rendered script under targetDir with the executable bit set,
// creating the directory tree first. It returns the path of the written file.
// Rewriting an existing script is allowed and replaces its content.
func Write(s script.RenderedScript, targetDir string) (string, error) {
	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return "", fmt.Errorf("%w: create directory %s: %v", ErrIO, targetDir, err)
	}

	path := filepath.Join(targetDir, s.Filename)
	if err := os.WriteFile(path, []byte(s.Content), 0755); err != nil {
		return "", fmt.Errorf("%w: write %s: %v", ErrIO, path, err)
	}
	// WriteFile keeps the old mode when the file already existed.
	if err := os.Chmod(path, 0755); err != nil {
		return "", fmt.Errorf("%w: chmod %s: %v", ErrIO, path, err)
	}
	return path, nil
}
