package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

var envRef = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads, interpolates, decodes and validates the file at path. Keys
// absent from the file keep their Default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// LoadWithDefaults is Load, except that a missing file yields Default.
func LoadWithDefaults(path string) (*Config, error) {
	if path == "" {
		return validated(Default())
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return validated(Default())
	}
	return Load(path)
}

// Parse decodes a configuration document. JSON documents parse too.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	data = interpolate(data)

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return validated(cfg)
}

func validated(cfg *Config) (*Config, error) {
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// interpolate replaces ${NAME} with the value of NAME. Unset or empty
// variables leave the reference as written.
func interpolate(data []byte) []byte {
	return envRef.ReplaceAllFunc(data, func(match []byte) []byte {
		name := envRef.FindSubmatch(match)[1]
		if v := os.Getenv(string(name)); v != "" {
			return []byte(v)
		}
		return match
	})
}
