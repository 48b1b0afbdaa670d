package coverage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComponentKey(t *testing.T) {
	require.Equal(t, "go-server-evm-v2", ComponentKey("go-server", "evm", 2))
}

func TestEndpointKey_EVMIncludesTransferMethod(t *testing.T) {
	require.Equal(t, "go-server-/paid-evm-eip3009-v2", EndpointKey("go-server", "/paid", "evm", "eip3009", 2))
}

func TestEndpointKey_NonEVMOmitsTransferMethod(t *testing.T) {
	require.Equal(t, "go-server-/paid-svm-v2", EndpointKey("go-server", "/paid", "svm", "", 2))
}

func TestTracker_FirstMarkIsAlwaysNewCoverage(t *testing.T) {
	tr := NewTracker()
	k := Keys{Client: "c1", Server: "s1", Facilitator: "f1", Endpoint: "e1"}
	require.True(t, tr.IsNewCoverage(k))
	tr.MarkCovered(k)
	require.False(t, tr.IsNewCoverage(k))
}

func TestTracker_PartialOverlapIsStillNewCoverage(t *testing.T) {
	tr := NewTracker()
	tr.MarkCovered(Keys{Client: "c1", Server: "s1", Facilitator: "f1", Endpoint: "e1"})

	// Same client/server/facilitator but a new endpoint is still new coverage.
	require.True(t, tr.IsNewCoverage(Keys{Client: "c1", Server: "s1", Facilitator: "f1", Endpoint: "e2"}))
}

func TestTracker_EmptyFacilitatorNeverBlocksOrContributes(t *testing.T) {
	tr := NewTracker()
	k := Keys{Client: "c1", Server: "s1", Endpoint: "e1"}
	require.True(t, tr.IsNewCoverage(k))
	tr.MarkCovered(k)
	require.False(t, tr.IsNewCoverage(k))
}

func TestTracker_MarkCoveredIsIdempotent(t *testing.T) {
	tr := NewTracker()
	k := Keys{Client: "c1", Server: "s1", Facilitator: "f1", Endpoint: "e1"}
	tr.MarkCovered(k)
	tr.MarkCovered(k)
	require.False(t, tr.IsNewCoverage(k))
}

func TestTracker_Monotonic(t *testing.T) {
	tr := NewTracker()
	k := Keys{Client: "c1", Server: "s1", Endpoint: "e1"}
	tr.MarkCovered(k)
	require.True(t, tr.client["c1"])
	// No API exists to un-mark; covered sets only grow.
	require.False(t, tr.IsNewCoverage(k))
}
