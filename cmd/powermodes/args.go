package main

import (
	"io"
	"strings"

	"github.com/spf13/pflag"

	"powermodes/internal/diag"
)

type action int

const (
	actionHelp action = iota
	actionVersion
	actionInteractive
	actionApply
	actionValidate
)

func (a action) flags() string {
	switch a {
	case actionHelp:
		return "-h / --help"
	case actionVersion:
		return "--version"
	case actionInteractive:
		return "-i / --interactive"
	case actionApply:
		return "-m / --mode"
	default:
		return "-v / --validate"
	}
}

// needsModes reports whether the action works on a modes file
func (a action) needsModes() bool {
	return a == actionInteractive || a == actionApply || a == actionValidate
}

type arguments struct {
	action action
	// config is empty when -c was not given
	config string
	mode   string
}

const usage = `usage: powermodes [options]

options:
  -h, --help                 show this help message
  --version                  show powermodes' version

  -c CONFIG, --config CONFIG use CONFIG file

  -i, --interactive          interactively choose power mode
  -v, --validate             validate CONFIG file
  -m MODE, --mode MODE       apply power MODE from CONFIG

examples:

Interactive mode:       # powermodes -ic modes.toml
Validate configuration: # powermodes -vc modes.toml
Apply power mode:       # powermodes -c modes.toml -m performance
`

// parseArgs reads the command line. The result is nil when a Fatal diagnostic was reported.
func parseArgs(args []string) (*arguments, diag.List) {
	var diags diag.List

	fs := pflag.NewFlagSet("powermodes", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}

	help := fs.CountP("help", "h", "show this help message")
	version := fs.Count("version", "show powermodes' version")
	interactive := fs.CountP("interactive", "i", "interactively choose power mode")
	validate := fs.CountP("validate", "v", "validate CONFIG file")
	configs := fs.StringArrayP("config", "c", nil, "use CONFIG file")
	modeNames := fs.StringArrayP("mode", "m", nil, "apply power MODE from CONFIG")

	if err := fs.Parse(args); err != nil {
		diags.Append(diag.Fatal(err.Error()))
		return nil, diags
	}
	if rest := fs.Args(); len(rest) != 0 {
		diags.Append(diag.Fatalf("Unrecognized arguments: %s", strings.Join(rest, " ")))
		return nil, diags
	}

	counts := []struct {
		action action
		count  int
	}{
		{actionHelp, *help},
		{actionVersion, *version},
		{actionInteractive, *interactive},
		{actionApply, len(*modeNames)},
		{actionValidate, *validate},
	}

	var requested []action
	total := 0
	for _, c := range counts {
		if c.count > 0 {
			requested = append(requested, c.action)
			total += c.count
		}
	}

	parsed := &arguments{action: actionHelp}
	switch len(requested) {
	case 0:
	case 1:
		parsed.action = requested[0]
		if total > 1 {
			diags.Append(diag.Warningf("Multiple instances of %s option.", parsed.action.flags()))
		}
	default:
		lines := make([]string, len(requested))
		for i, a := range requested {
			lines[i] = a.flags()
		}
		diags.Append(diag.Fatal("Multiple actions specified in command-line arguments:\n" +
			strings.Join(lines, "\n")))
		return nil, diags
	}

	if n := len(*configs); n != 0 {
		if n > 1 {
			diags.Append(diag.Warning("Multiple config files specified. Choosing the last one."))
		}
		parsed.config = (*configs)[n-1]
		if !parsed.action.needsModes() {
			diags.Append(diag.Warning("Unnecessarily specified config file."))
		}
	}

	if n := len(*modeNames); n != 0 {
		if n > 1 {
			diags.Append(diag.Warning("Multiple power modes specified. Choosing the last one."))
		}
		parsed.mode = (*modeNames)[n-1]
	}

	return parsed, diags
}
