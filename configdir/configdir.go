package configdir

// Based on https://github.com/ProtonMail/go-appdir

import (
	"os"
	"path/filepath"
	"runtime"
)

// Dirs requests application directories paths.
type Dirs interface {
	// Get the user-specific config directory.
	UserConfig() string
	// Get the user-specific cache directory.
	UserCache() string
	// Get the user-specific logs directory.
	UserLogs() string
	// Get the user-specific data directory.
	UserData() string
}

// New creates a new App with the provided name.
func New(name string) Dirs {
	return &dirs{name: name}
}

type dirs struct {
	name string
}

func (d *dirs) UserConfig() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, d.name)
	}
	return filepath.Join(home(), "."+d.name)
}

func (d *dirs) UserCache() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, d.name)
	}
	return filepath.Join(home(), "."+d.name, "cache")
}

func (d *dirs) UserLogs() string {
	if runtime.GOOS == "darwin" {
		return filepath.Join(home(), "Library", "Logs", d.name)
	}
	return filepath.Join(d.UserCache(), "logs")
}

func (d *dirs) UserData() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, d.name)
	}
	if runtime.GOOS == "linux" {
		return filepath.Join(home(), ".local", "share", d.name)
	}
	return d.UserConfig()
}

func home() string {
	h, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return h
}
