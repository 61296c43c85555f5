// Package paths resolves where shelf keeps its configuration and data.
// Every location follows the same precedence: an explicit flag wins, then
// the environment, then the platform convention.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// appDirName names the per-user application directory on every platform.
const appDirName = "shelf"

// Project-local directory names, used when no override is active.
const (
	DefaultConfigDirName = ".shelf"
	DefaultDataDirName   = ".shelf-db"
)

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "SHELF_CONFIG_DIR"
	EnvDataDir   = "SHELF_DATA_DIR"
)

// platformDir holds platform-detection functions that can be overridden in
// tests.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// DefaultConfigDir returns the platform default configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/shelf (fallback ~/.config/shelf)
// macOS:   ~/Library/Application Support/shelf
// Windows: %APPDATA%/shelf
func DefaultConfigDir() (string, error) {
	return platformDefault("XDG_CONFIG_HOME", ".config")
}

// DefaultDataDir returns the platform default data directory.
//
// Linux:   $XDG_DATA_HOME/shelf (fallback ~/.local/share/shelf)
// macOS:   ~/Library/Application Support/shelf
// Windows: %APPDATA%/shelf
func DefaultDataDir() (string, error) {
	return platformDefault("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

// platformDefault resolves the per-user application directory. Linux honors
// the given XDG variable with a home-relative fallback; macOS and Windows go
// through os.UserConfigDir, which already encodes their conventions.
func platformDefault(xdgVar, homeRel string) (string, error) {
	switch runtime.GOOS {
	case "linux":
		if xdg := os.Getenv(xdgVar); xdg != "" {
			return filepath.Join(xdg, appDirName), nil
		}
		home, err := platformDir.homeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, homeRel, appDirName), nil
	default:
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, appDirName), nil
	}
}

// ResolveConfigDir returns the configuration directory: flag if non-empty,
// then SHELF_CONFIG_DIR, then the platform default.
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultConfigDir()
}

// ResolveDataDir returns the data directory: flag if non-empty, then the
// configured value, then SHELF_DATA_DIR, then $(CWD)/.shelf-db. The
// project-local default keeps a repository's data next to its code.
func ResolveDataDir(flag, configValue string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if configValue != "" {
		return filepath.Abs(configValue)
	}
	if env := os.Getenv(EnvDataDir); env != "" {
		return filepath.Abs(env)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, DefaultDataDirName), nil
}
