package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads and decodes a RawConfig from a YAML file at path. It does not
// interpolate or validate; call InterpolateRaw then Validate on the result.
func Load(path string) (*RawConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	var raw RawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fail("parsing config %s: %v", path, err)
	}
	if raw.Processes == nil {
		return nil, fail("config must declare at least one process under \"processes\"")
	}
	return &raw, nil
}

// LoadResolved runs the full pipeline: load, interpolate, validate.
func LoadResolved(path string) (*ResolvedConfig, []string, error) {
	raw, err := Load(path)
	if err != nil {
		return nil, nil, err
	}
	if err := InterpolateRaw(raw); err != nil {
		return nil, nil, err
	}
	return Validate(raw)
}
