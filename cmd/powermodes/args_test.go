package main

import (
	"strings"
	"testing"
)

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		want      arguments
		wantDiags []string
	}{
		{name: "no arguments", args: nil, want: arguments{action: actionHelp}},
		{name: "help", args: []string{"--help"}, want: arguments{action: actionHelp}},
		{name: "version", args: []string{"--version"}, want: arguments{action: actionVersion}},
		{
			name: "combined short flags",
			args: []string{"-vc", "modes.toml"},
			want: arguments{action: actionValidate, config: "modes.toml"},
		},
		{
			name: "apply",
			args: []string{"-c", "modes.toml", "-m", "performance"},
			want: arguments{action: actionApply, config: "modes.toml", mode: "performance"},
		},
		{
			name: "interactive without config",
			args: []string{"--interactive"},
			want: arguments{action: actionInteractive},
		},
		{
			name:      "repeated action",
			args:      []string{"-v", "--validate", "-c", "a.toml"},
			want:      arguments{action: actionValidate, config: "a.toml"},
			wantDiags: []string{"warning: Multiple instances of -v / --validate option."},
		},
		{
			name: "repeated config and mode",
			args: []string{"-c", "a.toml", "-c", "b.toml", "-m", "x", "-m", "y"},
			want: arguments{action: actionApply, config: "b.toml", mode: "y"},
			wantDiags: []string{
				"warning: Multiple instances of -m / --mode option.",
				"warning: Multiple config files specified. Choosing the last one.",
				"warning: Multiple power modes specified. Choosing the last one.",
			},
		},
		{
			name:      "config with version",
			args:      []string{"--version", "-c", "a.toml"},
			want:      arguments{action: actionVersion, config: "a.toml"},
			wantDiags: []string{"warning: Unnecessarily specified config file."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, diags := parseArgs(tt.args)
			if got == nil {
				t.Fatalf("parseArgs() = nil, diagnostics %v", diags)
			}
			if *got != tt.want {
				t.Errorf("parseArgs() = %+v, want %+v", *got, tt.want)
			}

			var messages []string
			for _, d := range diags {
				messages = append(messages, d.String())
			}
			if strings.Join(messages, "\n") != strings.Join(tt.wantDiags, "\n") {
				t.Errorf("diagnostics = %q, want %q", messages, tt.wantDiags)
			}
		})
	}
}

func TestParseArgsFailures(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "distinct actions",
			args: []string{"-v", "-m", "powersave", "-i"},
			want: "error: Multiple actions specified in command-line arguments:\n" +
				"-i / --interactive\n-m / --mode\n-v / --validate",
		},
		{name: "unknown flag", args: []string{"--turbo"}, want: "error: unknown flag: --turbo"},
		{name: "positional", args: []string{"-v", "extra"}, want: "error: Unrecognized arguments: extra"},
		{name: "missing value", args: []string{"-m"}, want: "error: flag needs an argument"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, diags := parseArgs(tt.args)
			if got != nil {
				t.Fatalf("parseArgs() = %+v, want nil", *got)
			}
			if len(diags) != 1 || !diags.HasFatal() {
				t.Fatalf("diagnostics = %v, want one fatal", diags)
			}
			if !strings.HasPrefix(diags[0].String(), tt.want) {
				t.Errorf("diagnostic = %q, want prefix %q", diags[0].String(), tt.want)
			}
		})
	}
}
