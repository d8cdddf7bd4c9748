package configdir

import (
	"os"
	"path/filepath"
)

const (
	defaultConfigDir = "/etc/powermodes"
	// EnvVar overrides the system configuration directory
	EnvVar = "POWERMODES_CONFIG_DIR"
)

// ConfigDir resolves the configuration directory respecting overrides
func ConfigDir() string {
	if env := os.Getenv(EnvVar); env != "" {
		if abs, err := filepath.Abs(env); err == nil {
			return abs
		}
	}
	return defaultConfigDir
}

// Path joins name onto the configuration directory
func Path(name string) string {
	return filepath.Join(ConfigDir(), name)
}

const (
	defaultStateDir = "/var/lib/powermodes"
	// StateEnvVar overrides the state directory
	StateEnvVar = "POWERMODES_STATE_DIR"
)

// StateDir resolves the directory holding runtime state (picker memory, apply lock)
func StateDir() string {
	if env := os.Getenv(StateEnvVar); env != "" {
		if abs, err := filepath.Abs(env); err == nil {
			return abs
		}
	}
	return defaultStateDir
}
