package proxy

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSubprocess_LastJSONLine(t *testing.T) {
	sp := newSubprocess("Test", "echoer")
	require.NoError(t, sp.start(t.TempDir(), shCommand(`echo hello; echo '{"a":1}'; echo trailer`), nil))
	require.NoError(t, sp.wait())

	line, ok := sp.lastJSONLine()
	require.True(t, ok)
	require.Equal(t, `{"a":1}`, line)
}

func TestSubprocess_LastJSONLine_NoneFound(t *testing.T) {
	sp := newSubprocess("Test", "echoer")
	require.NoError(t, sp.start(t.TempDir(), shCommand(`echo hello`), nil))
	require.NoError(t, sp.wait())

	_, ok := sp.lastJSONLine()
	require.False(t, ok)
}

func TestSubprocess_Stop_Idempotent(t *testing.T) {
	sp := newSubprocess("Test", "sleeper")
	require.NoError(t, sp.start(t.TempDir(), shCommand("sleep 30"), nil))

	require.NoError(t, sp.stop())
	require.NoError(t, sp.stop()) // idempotent: second call is a no-op
}

func TestSubprocess_Stop_EscalatesToSigkill(t *testing.T) {
	sp := newSubprocess("Test", "ignorer")
	// Ignore SIGTERM so Stop must escalate to SIGKILL within gracefulStopTimeout.
	require.NoError(t, sp.start(t.TempDir(), shCommand("trap '' TERM; sleep 30"), nil))

	start := time.Now()
	require.NoError(t, sp.stop())
	require.Less(t, time.Since(start), gracefulStopTimeout+2*time.Second)
}

func TestMergeEnv_OverlayWins(t *testing.T) {
	env := mergeEnv(map[string]string{"PORT": "4022"})
	found := false
	for _, kv := range env {
		if kv == "PORT=4022" {
			found = true
		}
	}
	require.True(t, found)
}

func TestMergeEnv_OverlayReplacesParentValueWithoutDuplicating(t *testing.T) {
	t.Setenv("X402ORCH_TEST_VAR", "stale-parent-value")

	env := mergeEnv(map[string]string{"X402ORCH_TEST_VAR": "overlay-value"})

	matches := 0
	for _, kv := range env {
		key, _, _ := strings.Cut(kv, "=")
		if key == "X402ORCH_TEST_VAR" {
			matches++
			require.Equal(t, "X402ORCH_TEST_VAR=overlay-value", kv)
		}
	}
	require.Equal(t, 1, matches)
}

func TestMergeEnv_PassesThroughUnrelatedParentVars(t *testing.T) {
	t.Setenv("X402ORCH_UNTOUCHED_VAR", "still-here")

	env := mergeEnv(map[string]string{"PORT": "4022"})
	require.Contains(t, env, "X402ORCH_UNTOUCHED_VAR=still-here")
}
