// Package template loads CloudFormation template bodies. JSON templates
// pass through untouched; YAML templates are converted to JSON so the
// lifecycle core only ever handles one serialized form.
package template

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads a template body from path. Supported extensions: .json and
// .template (parsed as-is, validated), .yaml and .yml (converted to JSON).
func Load(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read template %q: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".template":
		return FromJSON(data)
	case ".yaml", ".yml":
		return FromYAML(data)
	}
	return "", fmt.Errorf("unsupported template extension %q (want .json, .template, .yaml, or .yml)", filepath.Ext(path))
}

// FromJSON validates data as JSON and returns it as a body string.
func FromJSON(data []byte) (string, error) {
	if !json.Valid(data) {
		return "", fmt.Errorf("template is not valid JSON")
	}
	return string(data), nil
}

// FromYAML parses data as YAML and re-serializes it as JSON.
func FromYAML(data []byte) (string, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("parse YAML template: %w", err)
	}
	if doc == nil {
		return "", fmt.Errorf("template is empty")
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("serialize template: %w", err)
	}
	return string(body), nil
}
