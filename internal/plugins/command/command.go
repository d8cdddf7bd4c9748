// Package command runs user-provided commands when a mode is applied. Modes configure it with a
// list of tables:
//
//	[[powersave.command]]
//	command = "echo powersave > /tmp/mode"
//	show-stdout = true
//
//	[[powersave.command]]
//	command = ["systemctl", "stop", "bluetooth"]
//
// A string is run through the shell; a list runs the executable directly.
package command

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"slices"
	"strings"

	"powermodes/internal/diag"
	"powermodes/internal/logging"
	"powermodes/internal/modes"
	"powermodes/internal/plugin"
)

const (
	// Name is the plugin's key in modes files
	Name = "command"
	// Version of the plugin
	Version = "1.0"
	// DefaultShell runs string commands
	DefaultShell = "/bin/sh"
)

// Command property names
const (
	keyCommand          = "command"
	keyAllowStdin       = "allow-stdin"
	keyShowStdout       = "show-stdout"
	keyShowStderr       = "show-stderr"
	keyWarningOnFailure = "warning-on-failure"
)

var knownKeys = []string{keyCommand, keyAllowStdin, keyShowStdout, keyShowStderr, keyWarningOnFailure}

// Command is one validated element of a command list
type Command struct {
	// Shell is set for string commands, Args for list commands
	Shell string
	Args  []string

	AllowStdin       bool
	ShowStdout       bool
	ShowStderr       bool
	WarningOnFailure bool
}

// Plugin runs commands with the streams it holds. Output that is not shown is captured.
type Plugin struct {
	Shell  string
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	logger *logging.Logger
}

// New creates the plugin attached to the process's standard streams
func New(logger *logging.Logger) *Plugin {
	return &Plugin{
		Shell:  DefaultShell,
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		logger: logger,
	}
}

// Name implements plugin.Plugin
func (p *Plugin) Name() string { return Name }

// Version implements plugin.Plugin
func (p *Plugin) Version() string { return Version }

// Judge accepts modes whose every command is valid. Invalid optional properties only warn.
func (p *Plugin) Judge(cfg modes.Config) (plugin.Judgement, error) {
	var j plugin.Judgement

	for mode, value := range modes.Iterate(cfg, Name) {
		_, diags, ok := parseList(value, mode)
		j.Diagnostics = append(j.Diagnostics, diags...)
		if ok {
			j.Accepted = append(j.Accepted, mode)
		}
	}
	return j, nil
}

// Apply runs every command in order. It fails only when no command succeeded, which includes an
// empty list.
func (p *Plugin) Apply(value any) (plugin.Outcome, error) {
	commands, _, ok := parseList(value, "")
	if !ok {
		return plugin.Outcome{}, errors.New("invalid command list")
	}

	var o plugin.Outcome
	for i, c := range commands {
		if d := p.run(c, i+1); d != nil {
			o.Diagnostics = append(o.Diagnostics, *d)
			continue
		}
		o.Success = true
	}
	return o, nil
}

// run executes one command. A failure to report is returned as a warning.
func (p *Plugin) run(c Command, number int) *diag.Diagnostic {
	var cmd *exec.Cmd
	if c.Args != nil {
		cmd = exec.Command(c.Args[0], c.Args[1:]...) // #nosec G204 -- commands come from the root-owned modes file
	} else {
		cmd = exec.Command(p.Shell, "-c", c.Shell) // #nosec G204
	}

	if c.AllowStdin {
		cmd.Stdin = p.Stdin
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	if c.ShowStdout {
		cmd.Stdout = p.Stdout
	}
	cmd.Stderr = &stderr
	if c.ShowStderr {
		cmd.Stderr = p.Stderr
	}

	err := cmd.Run()
	p.logger.Debug("command.run", "Command finished", map[string]interface{}{
		"number": number,
		"error":  fmt.Sprint(err),
	})
	if err == nil || !c.WarningOnFailure {
		return nil
	}

	var msg string
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		msg = fmt.Sprintf("Command %d left with error code %d.", number, exitErr.ExitCode())
	} else {
		msg = fmt.Sprintf("Command %d failed to start: %v.", number, err)
	}
	if !c.ShowStderr {
		msg += " Here's the program's stderr:\n" + strings.TrimSuffix(stderr.String(), "\n")
	}
	d := diag.Warning(msg)
	return &d
}

// parseList validates a mode's command list. ok is false when any command cannot be run.
func parseList(value any, mode string) ([]Command, []diag.Diagnostic, bool) {
	list, isList := value.([]any)
	if !isList {
		return nil, []diag.Diagnostic{
			diag.Warningf("config in powermode %s must be a list of commands.", mode),
		}, false
	}

	var commands []Command
	var diags []diag.Diagnostic
	ok := true
	for i, element := range list {
		c, elementDiags, valid := parseCommand(element, mode, i+1)
		diags = append(diags, elementDiags...)
		if !valid {
			ok = false
			continue
		}
		commands = append(commands, c)
	}
	return commands, diags, ok
}

func parseCommand(element any, mode string, number int) (Command, []diag.Diagnostic, bool) {
	table, isTable := element.(map[string]any)
	if !isTable {
		return Command{}, []diag.Diagnostic{
			diag.Warningf("Command number %d in powermode %s must be a table.", number, mode),
		}, false
	}

	var diags []diag.Diagnostic
	c, ok := Command{}, true

	switch run := table[keyCommand].(type) {
	case nil:
		if _, present := table[keyCommand]; !present {
			diags = append(diags, diag.Warningf("Command number %d in powermode %s must have a "+
				"value for %q. Ignoring this powermode.", number, mode, keyCommand))
			ok = false
			break
		}
		diags = append(diags, wrongCommandType(number, mode))
		ok = false
	case string:
		c.Shell = run
	case []any:
		args, valid := stringList(run)
		if !valid {
			diags = append(diags, wrongCommandType(number, mode))
			ok = false
			break
		}
		c.Args = args
	default:
		diags = append(diags, wrongCommandType(number, mode))
		ok = false
	}

	flag := func(key string, def bool) bool {
		raw, present := table[key]
		if !present {
			return def
		}
		if b, isBool := raw.(bool); isBool {
			return b
		}
		diags = append(diags, diag.Warningf("Command number %d in powermode %s: %q must be a "+
			"boolean. Choosing default: %v.", number, mode, key, def))
		return def
	}
	c.AllowStdin = flag(keyAllowStdin, false)
	c.ShowStdout = flag(keyShowStdout, false)
	c.ShowStderr = flag(keyShowStderr, true)
	c.WarningOnFailure = flag(keyWarningOnFailure, true)

	var unknown []string
	for key := range table {
		if !slices.Contains(knownKeys, key) {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) != 0 {
		slices.Sort(unknown)
		diags = append(diags, diag.Warningf("Command number %d in powermode %s has the following "+
			"unknown properties: %s.", number, mode, strings.Join(unknown, ", ")))
	}

	return c, diags, ok
}

func wrongCommandType(number int, mode string) diag.Diagnostic {
	return diag.Warningf("Command number %d in powermode %s: %q must be a string or a non-empty "+
		"list of strings. Ignoring this powermode.", number, mode, keyCommand)
}

func stringList(values []any) ([]string, bool) {
	if len(values) == 0 {
		return nil, false
	}
	out := make([]string, len(values))
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			return nil, false
		}
		out[i] = s
	}
	return out, true
}
