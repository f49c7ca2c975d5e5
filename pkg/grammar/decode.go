package grammar

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format identifies the serialization of a grammar file.
type Format string

// Supported grammar formats.
const (
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatPlist Format = "plist"
)

// ErrUnsupportedFormat is returned for grammar files this package cannot
// decode.
var ErrUnsupportedFormat = errors.New("unsupported grammar format")

// FormatFromPath infers the format from a file name.
func FormatFromPath(path string) (Format, error) {
	name := strings.ToLower(filepath.Base(path))
	switch {
	case strings.HasSuffix(name, ".tmlanguage.json"), strings.HasSuffix(name, ".json"):
		return FormatJSON, nil
	case strings.HasSuffix(name, ".yaml"), strings.HasSuffix(name, ".yml"):
		return FormatYAML, nil
	case strings.HasSuffix(name, ".tmlanguage"), strings.HasSuffix(name, ".plist"):
		return FormatPlist, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Base(path))
	}
}

// Decode parses data in the given format into a generic tree suitable for
// Load.
func Decode(data []byte, format Format) (map[string]any, error) {
	switch format {
	case FormatJSON:
		var tree map[string]any
		dec := json.NewDecoder(bytes.NewReader(data))
		if err := dec.Decode(&tree); err != nil {
			return nil, fmt.Errorf("decode json grammar: %w", err)
		}
		return tree, nil
	case FormatYAML:
		var tree map[string]any
		if err := yaml.Unmarshal(data, &tree); err != nil {
			return nil, fmt.Errorf("decode yaml grammar: %w", err)
		}
		return tree, nil
	case FormatPlist:
		return nil, fmt.Errorf("%w: %s (convert to JSON or YAML)", ErrUnsupportedFormat, format)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// LoadFile reads, decodes and loads the grammar at path.
func LoadFile(path string, opts LoadOptions) (*Definition, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read grammar: %w", err)
	}

	tree, err := Decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	def, err := Load(tree, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}
