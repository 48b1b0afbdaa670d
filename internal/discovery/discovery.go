// Package discovery walks the servers/, clients/, and facilitators/ root
// directories (spec.md §4.2), reading each subdirectory's declarative
// test.config.json and building a Proxy-backed handle for it. Discovery
// failures are independent per component: a malformed config never aborts
// the walk for the rest.
package discovery

import (
	"os"
	"path/filepath"

	"muster/internal/config"
	"muster/internal/proxy"
)

const legacyPrefix = "legacy-"

// Server is a discovered server-kind component.
type Server struct {
	Name      string
	Directory string
	Config    *config.TestConfig
	Proxy     proxy.Server
}

// Client is a discovered client-kind component.
type Client struct {
	Name      string
	Directory string
	Config    *config.TestConfig
	Proxy     proxy.Client
}

// Facilitator is a discovered facilitator-kind component.
type Facilitator struct {
	Name      string
	Directory string
	Config    *config.TestConfig
	Proxy     proxy.Facilitator
}

// Options controls a discovery walk.
type Options struct {
	// BaseDir is the root containing servers/, clients/, facilitators/ (and,
	// if IncludeLegacy is set, legacy/<legacy-*>/ directories).
	BaseDir string
	// IncludeLegacy walks <BaseDir>/legacy/legacy-*/ directories in addition
	// to the standard roots, per spec.md §4.2.
	IncludeLegacy bool
	// Overlay, if non-nil, is applied to every discovered config and can
	// exclude components by name.
	Overlay *config.Overlay
}

// Result holds the three flat lists discovery produces.
type Result struct {
	Servers      []Server
	Clients      []Client
	Facilitators []Facilitator
}

// Run performs one discovery walk per spec.md §4.2.
func Run(opts Options) Result {
	var result Result

	for _, dir := range rootsFor(opts, "servers") {
		if cfg := loadComponent("Discovery", dir, config.KindServer, opts.Overlay); cfg != nil {
			result.Servers = append(result.Servers, Server{
				Name:      cfg.Name,
				Directory: dir,
				Config:    cfg,
				Proxy:     proxy.NewServer(cfg.Name, dir, cfg.Command, cfg.ProtectedPath()),
			})
		}
	}

	for _, dir := range rootsFor(opts, "clients") {
		if cfg := loadComponent("Discovery", dir, config.KindClient, opts.Overlay); cfg != nil {
			result.Clients = append(result.Clients, Client{
				Name:      cfg.Name,
				Directory: dir,
				Config:    cfg,
				Proxy:     proxy.NewClient(cfg.Name, dir, cfg.Command),
			})
		}
	}

	for _, dir := range rootsFor(opts, "facilitators") {
		if cfg := loadComponent("Discovery", dir, config.KindFacilitator, opts.Overlay); cfg != nil {
			result.Facilitators = append(result.Facilitators, Facilitator{
				Name:      cfg.Name,
				Directory: dir,
				Config:    cfg,
				Proxy:     proxy.NewFacilitator(cfg.Name, dir, cfg.Command),
			})
		}
	}

	return result
}

// rootsFor lists the immediate subdirectories under <BaseDir>/<kindDir> and,
// when IncludeLegacy is set, under <BaseDir>/legacy/ filtered to the
// "legacy-" prefix.
func rootsFor(opts Options, kindDir string) []string {
	var dirs []string
	dirs = append(dirs, subdirs(filepath.Join(opts.BaseDir, kindDir))...)

	if opts.IncludeLegacy {
		for _, d := range subdirs(filepath.Join(opts.BaseDir, "legacy")) {
			if hasLegacyPrefix(filepath.Base(d)) {
				dirs = append(dirs, d)
			}
		}
	}
	return dirs
}

func hasLegacyPrefix(name string) bool {
	return len(name) >= len(legacyPrefix) && name[:len(legacyPrefix)] == legacyPrefix
}

func subdirs(root string) []string {
	entries, err := os.ReadDir(root)
	if err != nil {
		// A missing root directory is normal (e.g. no facilitators/ at all);
		// spec.md §9 treats this as an independent, non-fatal discovery miss.
		return nil
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, filepath.Join(root, e.Name()))
		}
	}
	return dirs
}

func loadComponent(subsystem, dir string, kind config.Kind, overlay *config.Overlay) *config.TestConfig {
	cfg := config.LoadLogged(subsystem, dir, kind)
	if cfg == nil {
		return nil
	}
	if overlay.Excluded(cfg.Name) {
		return nil
	}
	overlay.Apply(cfg)
	return cfg
}
