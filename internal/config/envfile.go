package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// EnvFileNotFoundError reports that a configured envFile path could not be
// opened (spec.md §7 "Env-file not found").
type EnvFileNotFoundError struct {
	Path string
	Err  error
}

func (e *EnvFileNotFoundError) Error() string {
	return fmt.Sprintf("env file not found: %s: %v", e.Path, e.Err)
}

func (e *EnvFileNotFoundError) Unwrap() error { return e.Err }

// LoadEnvFiles parses one or more KEY=VAL files in order, later files
// overriding earlier ones, and returns the merged map.
func LoadEnvFiles(paths []string) (map[string]string, error) {
	merged := make(map[string]string)
	for _, p := range paths {
		vars, err := loadEnvFile(p)
		if err != nil {
			return nil, err
		}
		for k, v := range vars {
			merged[k] = v
		}
	}
	return merged, nil
}

func loadEnvFile(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &EnvFileNotFoundError{Path: path, Err: err}
	}
	defer f.Close()

	vars := make(map[string]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		value = strings.Trim(value, `"'`)
		vars[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading env file %s: %w", path, err)
	}
	return vars, nil
}
