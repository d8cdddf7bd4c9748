package plugin

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"powermodes/internal/diag"
	"powermodes/internal/logging"
)

// Options tunes discovery
type Options struct {
	// Timeout bounds every call into an external plugin, DefaultTimeout when zero
	Timeout time.Duration
	Logger  *logging.Logger
}

// Discover builds the set of usable plugins: the built-in entries in registry order, then every
// executable in dir in file name order. Broken plugins are reported and left out. When two
// plugins report the same name, the first one wins. A missing dir is not an error.
func Discover(builtin []Entry, dir string, opts Options) (Loaded, diag.List) {
	loaded := make(Loaded)
	var diags diag.List

	for _, entry := range builtin {
		desc, entryDiags := describe(entry)
		diags.Append(entryDiags...)
		register(loaded, desc, &diags, opts.Logger)
	}

	if dir != "" {
		entries, listDiags := externalEntries(dir, opts)
		diags.Append(listDiags...)
		for _, entry := range entries {
			desc, entryDiags := describe(entry)
			diags.Append(entryDiags...)
			register(loaded, desc, &diags, opts.Logger)
		}
	}

	opts.Logger.Info("plugin.discover.done", "Plugin discovery finished", map[string]interface{}{
		"plugins":  loaded.Names(),
		"warnings": diags.Warnings(),
	})
	return loaded, diags
}

// describe fills in the defaults for a registry entry
func describe(entry Entry) (*Descriptor, diag.List) {
	var diags diag.List
	if entry.Plugin == nil {
		diags.Append(diag.Warningf("Plugin %q has no implementation. Ignoring it.", entry.ID))
		return nil, diags
	}

	name := entry.Plugin.Name()
	if name == "" {
		diags.Append(diag.Warningf("Plugin %q reported no name. Defaulting to %q.", entry.ID, entry.ID))
		name = entry.ID
	}

	version := entry.Plugin.Version()
	if version == "" {
		diags.Append(diag.Warningf("No version specified. Defaulting to %q.", UnknownVersion).From(name))
		version = UnknownVersion
	}

	return &Descriptor{ID: entry.ID, Name: name, Version: version, impl: entry.Plugin}, diags
}

func register(loaded Loaded, desc *Descriptor, diags *diag.List, logger *logging.Logger) {
	if desc == nil {
		return
	}

	if existing, ok := loaded[desc.Name]; ok {
		diags.Append(diag.Warningf("Plugins %q and %q have reported the same name, %q. Ignoring %q.",
			existing.ID, desc.ID, desc.Name, desc.ID))
		logger.Warn("plugin.discover.collision", "Duplicate plugin name", map[string]interface{}{
			"name": desc.Name, "kept": existing.ID, "dropped": desc.ID,
		})
		return
	}

	loaded.Add(desc)
	logger.Debug("plugin.discover.register", "Plugin registered", map[string]interface{}{
		"id": desc.ID, "name": desc.Name, "version": desc.Version,
	})
}

// externalEntries probes the executables in dir in file name order. Files whose name starts with
// "_" or "." are skipped, as are directories and files nobody may execute.
func externalEntries(dir string, opts Options) ([]Entry, diag.List) {
	var diags diag.List

	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			opts.Logger.Debug("plugin.discover.no_dir", "Plugin directory does not exist", map[string]interface{}{
				"dir": dir,
			})
			return nil, nil
		}
		diags.Append(diag.Warningf("Failed to list plugins in %q. Only built-in plugins are available.", dir))
		return nil, diags
	}

	var entries []Entry
	for _, de := range dirEntries {
		fileName := de.Name()
		if strings.HasPrefix(fileName, "_") || strings.HasPrefix(fileName, ".") {
			continue
		}

		path := filepath.Join(dir, fileName)
		fi, err := os.Stat(path)
		if err != nil || !fi.Mode().IsRegular() || fi.Mode().Perm()&0o111 == 0 {
			continue
		}

		entry, entryDiags := probeEntry(path, fileName, opts)
		diags.Append(entryDiags...)
		if entry != nil {
			entries = append(entries, *entry)
		}
	}

	return entries, diags
}

func probeEntry(path, id string, opts Options) (*Entry, diag.List) {
	var diags diag.List

	reply, err := probe(path, opts.Timeout)
	if err != nil {
		diags.Append(diag.Warningf("Failed to load plugin in %q. Here's the cause:\n%v", id, err))
		opts.Logger.Warn("plugin.discover.reject", "Plugin probe failed", map[string]interface{}{
			"id": id, "error": err.Error(),
		})
		return nil, diags
	}

	name := reply.Name
	if name == "" {
		name = id
	}

	for _, capability := range []string{verbJudge, verbApply} {
		if !reply.has(capability) {
			diags.Append(diag.Warningf("No %s capability declared. Ignoring this plugin.", capability).From(name))
			opts.Logger.Warn("plugin.discover.reject", "Plugin lacks a capability", map[string]interface{}{
				"id": id, "capability": capability,
			})
			return nil, diags
		}
	}

	return &Entry{
		ID: id,
		Plugin: &execPlugin{
			path:    path,
			name:    reply.Name,
			version: reply.Version,
			timeout: opts.Timeout,
		},
	}, diags
}
