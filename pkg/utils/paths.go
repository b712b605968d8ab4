package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/mitchellh/go-homedir"
)

const appName = "moodiary"

// DataDir is the per-user directory moodiary keeps its data in.
func DataDir() string {
	home, err := homedir.Dir()
	if err != nil {
		return "."
	}

	switch runtime.GOOS {
	case "windows":
		return filepath.Join(home, "AppData", "Roaming", appName)
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", appName)
	default: // Linux and other unix-likes
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, appName)
		}
		return filepath.Join(home, ".local", "share", appName)
	}
}

// DefaultDBPath is where the SQLite database lives unless configured.
func DefaultDBPath() string {
	return filepath.Join(DataDir(), appName+".db")
}

// DefaultDiskvPath is the root of the diskv store unless configured.
func DefaultDiskvPath() string {
	return filepath.Join(DataDir(), "entries")
}

// ResolveAndEnsureDBPath expands ~, makes the path absolute and creates the
// database's parent directory.
func ResolveAndEnsureDBPath(providedPath string) (string, error) {
	if providedPath == ":memory:" {
		return providedPath, nil
	}
	target, err := resolve(providedPath, DefaultDBPath())
	if err != nil {
		return "", err
	}
	if err := ensureDir(filepath.Dir(target)); err != nil {
		return "", err
	}
	return target, nil
}

// ResolveAndEnsureDir is ResolveAndEnsureDBPath for a directory-shaped store.
func ResolveAndEnsureDir(providedPath, fallback string) (string, error) {
	target, err := resolve(providedPath, fallback)
	if err != nil {
		return "", err
	}
	if err := ensureDir(target); err != nil {
		return "", err
	}
	return target, nil
}

func resolve(providedPath, fallback string) (string, error) {
	target := providedPath
	if target == "" {
		target = fallback
	}

	expanded, err := homedir.Expand(target)
	if err != nil {
		return "", fmt.Errorf("failed to expand path '%s': %w", target, err)
	}

	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path for '%s': %w", expanded, err)
	}
	return abs, nil
}

func ensureDir(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory '%s': %w", dir, err)
		}
	} else if err != nil {
		return fmt.Errorf("failed to stat directory '%s': %w", dir, err)
	}
	return nil
}
