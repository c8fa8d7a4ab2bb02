// Package loader reads loom graph definitions from JSON and YAML files
// and materializes them into executable graphs via the operator registry.
package loader

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/petal-labs/loom"
	"github.com/petal-labs/loom/registry"
)

// Load reads a definition file, decoding YAML or JSON by extension.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path from caller
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", path, err)
	}
	return LoadBytes(data, path)
}

// LoadBytes decodes a definition from raw bytes. The path is used only to
// detect YAML input by extension.
func LoadBytes(data []byte, path string) (*Definition, error) {
	jsonData, err := toJSON(data, path)
	if err != nil {
		return nil, err
	}

	var d Definition
	if err := json.Unmarshal(jsonData, &d); err != nil {
		return nil, fmt.Errorf("parsing definition: %w", err)
	}
	return &d, nil
}

// LoadGraph is the unified entry point: load a definition file, validate
// it, and build the graph with its start units.
func LoadGraph(path string, reg *registry.Registry) (*loom.Graph, []*loom.Unit, error) {
	d, err := Load(path)
	if err != nil {
		return nil, nil, err
	}
	return d.Build(reg)
}

// LoadStepper loads a definition file and returns a stepper prepared with
// the file's args and start nodes.
func LoadStepper(path string, reg *registry.Registry) (*loom.Stepper, error) {
	d, err := Load(path)
	if err != nil {
		return nil, err
	}
	return d.Stepper(reg)
}

// toJSON converts data to JSON bytes, handling YAML conversion if the path
// indicates a YAML file.
func toJSON(data []byte, path string) ([]byte, error) {
	if isYAML(path) {
		return yamlToJSON(data)
	}
	return data, nil
}

// isYAML returns true if the file path has a YAML extension.
func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// yamlToJSON converts raw bytes from YAML format to JSON bytes. The
// canonical strategy is YAML -> map[string]any -> JSON bytes -> typed
// struct, so one set of field tags covers both formats.
func yamlToJSON(data []byte) ([]byte, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	// yaml.v3 uses map[string]any by default, which is JSON-compatible
	return json.Marshal(raw)
}

// DiagnosticError wraps validation diagnostics as an error.
type DiagnosticError struct {
	Diagnostics []Diagnostic
}

func (e *DiagnosticError) Error() string {
	errs := Errors(e.Diagnostics)
	if len(errs) == 1 {
		return fmt.Sprintf("validation error: %s", errs[0].Message)
	}
	return fmt.Sprintf("%d validation errors (first: %s)", len(errs), errs[0].Message)
}
