package orchestrator

import (
	"fmt"
	"sort"
	"strings"

	"muster/internal/config"
	"muster/internal/discovery"
)

// EnvLookup abstracts os.LookupEnv so tests can supply a fake environment.
type EnvLookup func(key string) (string, bool)

// missingEnvError itemizes every missing variable in one message, per
// spec.md §7's "itemize all, abort before any work begins" policy.
type missingEnvError struct {
	stage   string
	missing []string
}

func (e *missingEnvError) Error() string {
	sorted := append([]string(nil), e.missing...)
	sort.Strings(sorted)
	return fmt.Sprintf("%s: missing required environment variables: %s", e.stage, strings.Join(sorted, ", "))
}

// requiredGlobalEnv returns the global env vars needed for the protocol
// families actually in play, per spec.md §4.13 step 1 / §6.
func requiredGlobalEnv(families map[config.ProtocolFamily]bool) []string {
	var req []string
	if families[config.ProtocolEVM] {
		req = append(req, "SERVER_EVM_ADDRESS", "CLIENT_EVM_PRIVATE_KEY", "FACILITATOR_EVM_PRIVATE_KEY")
	}
	if families[config.ProtocolSVM] {
		req = append(req, "SERVER_SVM_ADDRESS", "CLIENT_SVM_PRIVATE_KEY", "FACILITATOR_SVM_PRIVATE_KEY")
	}
	return req
}

// validateEnv reports a missingEnvError naming every name in required that
// lookup does not resolve to a non-empty value.
func validateEnv(stage string, required []string, lookup EnvLookup) error {
	var missing []string
	for _, name := range required {
		if v, ok := lookup(name); !ok || v == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &missingEnvError{stage: stage, missing: missing}
	}
	return nil
}

// activeFamilies unions the protocol families declared by every discovered
// server and client.
func activeFamilies(servers []discovery.Server, clients []discovery.Client) map[config.ProtocolFamily]bool {
	families := make(map[config.ProtocolFamily]bool)
	for _, s := range servers {
		for _, f := range s.Config.Families() {
			families[f] = true
		}
	}
	for _, c := range clients {
		for _, f := range c.Config.Families() {
			families[f] = true
		}
	}
	return families
}
