package configdir

import (
	"path/filepath"
	"testing"
)

func TestConfigDir(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		want     string
	}{
		{name: "uses default when env not set", envValue: "", want: defaultConfigDir},
		{name: "uses environment variable", envValue: "/custom/powermodes", want: "/custom/powermodes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvVar, tt.envValue)

			if got := ConfigDir(); got != tt.want {
				t.Errorf("ConfigDir() = %v, want %v", got, tt.want)
			}
			if got := Path("modes.toml"); got != filepath.Join(tt.want, "modes.toml") {
				t.Errorf("Path() = %v", got)
			}
		})
	}
}

func TestStateDir(t *testing.T) {
	t.Setenv(StateEnvVar, "")
	if got := StateDir(); got != defaultStateDir {
		t.Errorf("StateDir() = %s, want %s", got, defaultStateDir)
	}

	t.Setenv(StateEnvVar, "/tmp/powermodes-state")
	if got := StateDir(); got != "/tmp/powermodes-state" {
		t.Errorf("StateDir() = %s, want override", got)
	}
}
