// Command powermodes switches a Linux machine between user-defined power modes.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"powermodes/internal/applylock"
	"powermodes/internal/config"
	"powermodes/internal/configdir"
	"powermodes/internal/diag"
	"powermodes/internal/engine"
	"powermodes/internal/logging"
	"powermodes/internal/modes"
	"powermodes/internal/plugin"
	"powermodes/internal/plugins"
	"powermodes/internal/tui"
)

const version = "1.0.0"

// pickMode is replaced in tests
var pickMode = tui.Pick

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one invocation and returns the exit status
func run(args []string, stdout, stderr io.Writer) int {
	var diags diag.List

	parsed, argDiags := parseArgs(args)
	diags.Append(argDiags...)

	settings, settingsDiags := loadSettings()
	diags.Append(settingsDiags...)

	printer := diag.NewPrinter(stderr, diag.ColorMode(settings.Color))
	if parsed == nil {
		printer.PrintAll(diags)
		return 1
	}

	logger, loggerDiags := newLogger(settings, stderr)
	diags.Append(loggerDiags...)
	defer func() {
		if err := logger.Close(); err != nil {
			fmt.Fprintf(stderr, "Failed to close log file: %v\n", err)
		}
	}()

	startTime := time.Now()
	logger.Info("app.started", "Application started", map[string]interface{}{
		"version": version,
		"action":  parsed.action.flags(),
	})

	status := dispatch(parsed, settings, logger, printer, diags, stdout)

	logger.Info("app.exited", "Application exited", map[string]interface{}{
		"status":      status,
		"duration_ms": time.Since(startTime).Milliseconds(),
	})
	return status
}

func dispatch(parsed *arguments, settings config.Config, logger *logging.Logger, printer *diag.Printer,
	diags diag.List, stdout io.Writer) int {

	switch parsed.action {
	case actionHelp:
		printer.PrintAll(diags)
		fmt.Fprint(stdout, usage)
		return 0

	case actionVersion:
		loaded, discoverDiags := discover(settings, logger)
		diags.Append(discoverDiags...)
		printer.PrintAll(diags)
		fmt.Fprint(stdout, versionText(loaded))
		return 0
	}

	if settings.RequireRoot && os.Geteuid() != 0 {
		diags.Append(diag.Fatal("powermodes must be run as root!"))
		printer.PrintAll(diags)
		return 1
	}

	path := parsed.config
	if path == "" {
		path = settings.ModesFile
	}
	if path == "" {
		diags.Append(diag.Fatal("No config file specified."))
		printer.PrintAll(diags)
		return 1
	}

	loaded, discoverDiags := discover(settings, logger)
	diags.Append(discoverDiags...)

	doc, loadDiag := modes.Load(path)
	if loadDiag != nil {
		diags.Add(loadDiag)
		printer.PrintAll(diags)
		return 1
	}

	eng := engine.New(loaded, logger)
	cfg, validateDiags := eng.Validate(doc)
	diags.Append(validateDiags...)
	if cfg == nil {
		printer.PrintAll(diags)
		return 1
	}

	var mode string
	switch parsed.action {
	case actionValidate:
		printer.PrintAll(diags)
		return 0

	case actionApply:
		mode = parsed.mode

	case actionInteractive:
		printer.PrintAll(diags)
		diags = nil

		chosen, outcome, err := pickMode(cfg.Names(), configdir.StateDir(), logger)
		if err != nil {
			printer.Print(diag.Fatal(err.Error()))
			return 1
		}
		if outcome == tui.OutcomeCancelled {
			return 0
		}
		mode = chosen
	}

	lock := applylock.NewManager(configdir.StateDir(), logger)
	if err := lock.Acquire(mode); err != nil {
		var held *applylock.HeldError
		if errors.As(err, &held) {
			diags.Append(diag.Fatalf("Another powermodes instance is running: %v.", held))
			printer.PrintAll(diags)
			return 1
		}
		diags.Append(diag.Warningf("Failed to take the apply lock. Applying anyway. Here's the cause:\n%v", err))
	} else {
		defer func() {
			if err := lock.Release(); err != nil {
				logger.Warn("apply.lock.release_failed", "Failed to release apply lock", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}()
	}

	ok, applyDiags := eng.ApplyMode(mode, cfg)
	diags.Append(applyDiags...)
	if printer.Handle(ok, diags) {
		return 1
	}
	return 0
}

// loadSettings falls back to the defaults when the settings files are unusable
func loadSettings() (config.Config, diag.List) {
	var diags diag.List

	settings, err := config.Load()
	if err != nil {
		diags.Append(diag.Warningf("Failed to load settings. Using defaults. Here's the cause:\n%v", err))
		settings = config.DefaultConfig()
	}
	return settings, diags
}

func newLogger(settings config.Config, stderr io.Writer) (*logging.Logger, diag.List) {
	var diags diag.List

	level, err := logging.ParseLevel(settings.Logging.Level)
	if err != nil {
		level = logging.LevelError
	}
	format := logging.Format(settings.Logging.Format)

	if settings.Logging.File != "" {
		logger, err := logging.NewFileLogger(level, format, settings.Logging.File)
		if err == nil {
			return logger, diags
		}
		diags.Append(diag.Warningf("Failed to open log file %q. Logging to stderr. Here's the cause:\n%v",
			settings.Logging.File, err))
	}
	return logging.NewWriterLogger(stderr, level, format), diags
}

func discover(settings config.Config, logger *logging.Logger) (plugin.Loaded, diag.List) {
	return plugin.Discover(plugins.Builtin(logger), settings.PluginDir, plugin.Options{
		Timeout: settings.PluginTimeout(),
		Logger:  logger,
	})
}

func versionText(loaded plugin.Loaded) string {
	text := fmt.Sprintf("\npowermodes %s\n", version)
	if len(loaded) != 0 {
		text += "\nVersions of installed plugins:\n"
		for _, name := range loaded.Names() {
			text += fmt.Sprintf("%s %s\n", name, loaded[name].Version)
		}
	}
	return text
}
