package schema

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadFile reads a schema file, choosing the format by extension:
// ".hcl" for HCL, anything else for YAML.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file %s: %w", path, err)
	}

	if strings.EqualFold(filepath.Ext(path), ".hcl") {
		return ParseHCL(data, path)
	}

	return ParseYAML(data)
}

// ParseYAML parses YAML data into a File.
func ParseYAML(data []byte) (*File, error) {
	var f File

	err := yaml.Unmarshal(data, &f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse schema YAML: %w", err)
	}

	applyDefaults(&f)

	return &f, nil
}

// MarshalYAML serializes a File to YAML.
func MarshalYAML(f *File) ([]byte, error) {
	return yaml.Marshal(f)
}

// Load reads, parses and builds a schema file into reg. Warnings are logged
// through the context logger.
func Load(ctx context.Context, path string, reg *Registry) error {
	f, err := LoadFile(path)
	if err != nil {
		return err
	}

	diags := f.Build(reg)
	diags.Log(ctx)

	if err := diags.Error(); err != nil {
		return fmt.Errorf("invalid schema %s: %w", path, err)
	}

	return nil
}

func applyDefaults(f *File) {
	if f.Version == "" {
		f.Version = "1"
	}
}
