package modes

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"powermodes/internal/diag"
)

// Format identifies the syntax of a modes file
type Format string

const (
	// FormatTOML is the reference format
	FormatTOML Format = "toml"
	// FormatYAML is accepted for .yaml and .yml files
	FormatYAML Format = "yaml"
	// FormatHCL is accepted for .hcl files
	FormatHCL Format = "hcl"
)

// FormatFor picks the decoder for path from its extension. Unknown extensions are read as TOML.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".hcl":
		return FormatHCL
	default:
		return FormatTOML
	}
}

// Load reads and parses the modes file at path. On failure the document is nil and the returned
// diagnostic is fatal.
func Load(path string) (Document, *diag.Diagnostic) {
	data, err := os.ReadFile(filepath.Clean(path)) // #nosec G304 -- path is chosen by the operator
	if err != nil {
		d := diag.Fatalf("Failed to read config from %q.", path)
		return nil, &d
	}

	format := FormatFor(path)
	doc, err := Parse(data, path, format)
	if err != nil {
		d := diag.Fatalf("Failed to parse config in %q. Here's the error message:\n%v", path, err)
		return nil, &d
	}

	return doc, nil
}

// Parse decodes data in the given format. name is only used in error positions.
func Parse(data []byte, name string, format Format) (Document, error) {
	switch format {
	case FormatYAML:
		return parseYAML(data)
	case FormatHCL:
		return parseHCL(data, name)
	case FormatTOML:
		return parseTOML(data)
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

func parseTOML(data []byte) (Document, error) {
	raw := make(map[string]any)
	if _, err := toml.Decode(string(data), &raw); err != nil {
		var perr toml.ParseError
		if errors.As(err, &perr) {
			return nil, errors.New(perr.ErrorWithPosition())
		}
		return nil, err
	}
	return canonicalDocument(raw), nil
}

func parseYAML(data []byte) (Document, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return canonicalDocument(raw), nil
}
