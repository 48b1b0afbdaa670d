package config

import (
	"errors"
	"fmt"
	"os"

	"muster/pkg/logging"

	"gopkg.in/yaml.v3"
)

// Overlay is an optional operator-supplied file (x402orch.yaml) that augments
// discovered component configs without editing their test.config.json.
// Mirrors the teacher's config.yaml overlay pattern for operator overrides
// (see internal/config's original secret-file resolution).
type Overlay struct {
	// ExtraRequired maps a component name to additional required env var
	// names, merged into that component's TestConfig.Required.
	ExtraRequired map[string][]string `yaml:"extraRequired,omitempty"`

	// Exclude lists component names to drop from discovery entirely, e.g. a
	// known-broken implementation that should not enter the scenario matrix.
	Exclude []string `yaml:"exclude,omitempty"`
}

// LoadOverlay reads an Overlay from path. A missing file is not an error —
// the overlay is entirely optional — and yields a zero-value Overlay.
func LoadOverlay(path string) (*Overlay, error) {
	if path == "" {
		return &Overlay{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Overlay{}, nil
		}
		return nil, fmt.Errorf("reading overlay %s: %w", path, err)
	}
	var o Overlay
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("parsing overlay %s: %w", path, err)
	}
	logging.Info("ConfigLoader", "loaded overlay from %s (%d extra-required, %d excluded)",
		path, len(o.ExtraRequired), len(o.Exclude))
	return &o, nil
}

// Excluded reports whether name should be dropped from discovery.
func (o *Overlay) Excluded(name string) bool {
	if o == nil {
		return false
	}
	for _, n := range o.Exclude {
		if n == name {
			return true
		}
	}
	return false
}

// Apply merges the overlay's extra-required env vars into cfg in place.
func (o *Overlay) Apply(cfg *TestConfig) {
	if o == nil || cfg == nil {
		return
	}
	extra, ok := o.ExtraRequired[cfg.Name]
	if !ok {
		return
	}
	existing := make(map[string]bool, len(cfg.Required))
	for _, r := range cfg.Required {
		existing[r] = true
	}
	for _, e := range extra {
		if !existing[e] {
			cfg.Required = append(cfg.Required, e)
			existing[e] = true
		}
	}
}
