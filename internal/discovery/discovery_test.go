package discovery

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"muster/internal/config"
)

func writeConfig(t *testing.T, dir string, cfg config.TestConfig) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	data, err := json.Marshal(cfg)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test.config.json"), data, 0o644))
}

func TestRun_DiscoversAllThreeKinds(t *testing.T) {
	base := t.TempDir()

	writeConfig(t, filepath.Join(base, "servers", "go-server"), config.TestConfig{
		Type:      config.KindServer,
		Command:   []string{"go", "run", "."},
		Endpoints: []config.Endpoint{{Path: "/paid", Method: "GET", RequiresPayment: true}},
	})
	writeConfig(t, filepath.Join(base, "clients", "go-client"), config.TestConfig{
		Type:    config.KindClient,
		Command: []string{"go", "run", "."},
	})
	writeConfig(t, filepath.Join(base, "facilitators", "go-facilitator"), config.TestConfig{
		Type:    config.KindFacilitator,
		Command: []string{"go", "run", "."},
	})

	result := Run(Options{BaseDir: base})

	require.Len(t, result.Servers, 1)
	require.Equal(t, "go-server", result.Servers[0].Name)
	require.Equal(t, "/paid", result.Servers[0].Proxy.ProtectedPath())

	require.Len(t, result.Clients, 1)
	require.Equal(t, "go-client", result.Clients[0].Name)

	require.Len(t, result.Facilitators, 1)
	require.Equal(t, "go-facilitator", result.Facilitators[0].Name)
}

func TestRun_MissingRootsAreNotFatal(t *testing.T) {
	base := t.TempDir()
	result := Run(Options{BaseDir: base})
	require.Empty(t, result.Servers)
	require.Empty(t, result.Clients)
	require.Empty(t, result.Facilitators)
}

func TestRun_SkipsMismatchedKind(t *testing.T) {
	base := t.TempDir()
	writeConfig(t, filepath.Join(base, "servers", "actually-a-client"), config.TestConfig{
		Type: config.KindClient,
	})

	result := Run(Options{BaseDir: base})
	require.Empty(t, result.Servers)
}

func TestRun_LegacyDirectoriesRequireFlagAndPrefix(t *testing.T) {
	base := t.TempDir()
	writeConfig(t, filepath.Join(base, "legacy", "legacy-old-server"), config.TestConfig{
		Type: config.KindServer,
	})
	writeConfig(t, filepath.Join(base, "legacy", "not-prefixed"), config.TestConfig{
		Type: config.KindServer,
	})

	withoutLegacy := Run(Options{BaseDir: base})
	require.Empty(t, withoutLegacy.Servers)

	withLegacy := Run(Options{BaseDir: base, IncludeLegacy: true})
	require.Len(t, withLegacy.Servers, 1)
	require.Equal(t, "legacy-old-server", withLegacy.Servers[0].Name)
}

func TestRun_OverlayExcludesByName(t *testing.T) {
	base := t.TempDir()
	writeConfig(t, filepath.Join(base, "servers", "broken-server"), config.TestConfig{
		Type: config.KindServer,
	})

	overlay := &config.Overlay{Exclude: []string{"broken-server"}}
	result := Run(Options{BaseDir: base, Overlay: overlay})
	require.Empty(t, result.Servers)
}

func TestRun_OverlayAppliesExtraRequired(t *testing.T) {
	base := t.TempDir()
	writeConfig(t, filepath.Join(base, "servers", "go-server"), config.TestConfig{
		Type:     config.KindServer,
		Required: []string{"EVM_PRIVATE_KEY"},
	})

	overlay := &config.Overlay{ExtraRequired: map[string][]string{"go-server": {"CUSTOM_TOKEN"}}}
	result := Run(Options{BaseDir: base, Overlay: overlay})

	require.Len(t, result.Servers, 1)
	require.Contains(t, result.Servers[0].Config.Required, "CUSTOM_TOKEN")
}
