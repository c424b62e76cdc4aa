// Package appdir locates the per-user state directory (~/.kctlinit).
package appdir

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const Name = ".kctlinit"

var (
	once     sync.Once
	dirCache string
	dirErr   error
)

// AppDir returns the state directory, creating it on first use.
func AppDir() (string, error) {
	once.Do(func() {
		home, err := os.UserHomeDir()
		if err != nil {
			dirErr = fmt.Errorf("appdir: %w", err)
			return
		}
		dirCache = filepath.Join(home, Name)
		if err := os.MkdirAll(dirCache, 0o755); err != nil {
			dirErr = fmt.Errorf("appdir: %w", err)
		}
	})
	return dirCache, dirErr
}

// Path joins elem onto the state directory.
func Path(elem ...string) (string, error) {
	dir, err := AppDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(append([]string{dir}, elem...)...), nil
}
