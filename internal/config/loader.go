package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"muster/pkg/logging"
)

const configFileName = "test.config.json"

// Load reads and parses test.config.json from dir. Per spec.md §4.1/§7, a
// missing file is reported as ErrConfigMissing (the caller's job is to log +
// skip); a malformed file is an error wrapping the underlying JSON error.
func Load(dir string) (*TestConfig, error) {
	path := filepath.Join(dir, configFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrConfigMissing
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var cfg TestConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &cfg, nil
}

// LoadForKind reads dir's config and verifies its declared Type matches want.
// A mismatch is reported so Discovery can skip the directory (spec.md §4.2:
// "...whose `type` matches the directory kind").
func LoadForKind(dir string, want Kind) (*TestConfig, error) {
	cfg, err := Load(dir)
	if err != nil {
		return nil, err
	}
	if cfg.Type != want {
		return nil, fmt.Errorf("%w: %s declares %q, expected %q", ErrKindMismatch, dir, cfg.Type, want)
	}
	if cfg.Name == "" {
		cfg.Name = filepath.Base(dir)
	}
	return cfg, nil
}

// LoadLogged is LoadForKind with the spec.md §4.1 "fails softly" policy
// already applied: parse errors and mismatches are logged and reported as a
// skip (nil, nil) rather than propagated, so the caller's walk never aborts
// on one bad component.
func LoadLogged(subsystem, dir string, want Kind) *TestConfig {
	cfg, err := LoadForKind(dir, want)
	if err == nil {
		return cfg
	}
	if errors.Is(err, ErrConfigMissing) {
		logging.Debug(subsystem, "no %s in %s, skipping", configFileName, dir)
		return nil
	}
	logging.Warn(subsystem, "skipping %s: %v", dir, err)
	return nil
}
