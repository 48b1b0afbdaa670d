package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"muster/internal/combo"
)

func sampleResults() []combo.Result {
	return []combo.Result{
		{TestNumber: 1, Client: "c1", Server: "s1", Endpoint: "/paid", Facilitator: "f1", ProtocolFamily: "evm", Passed: true, Transaction: "0xabc"},
		{TestNumber: 2, Client: "c1", Server: "s1", Endpoint: "/paid", Facilitator: "f1", ProtocolFamily: "evm", Passed: false, Error: "no transaction hash"},
		{TestNumber: 3, Client: "c2", Server: "s2", Endpoint: "/paid", ProtocolFamily: "svm", Passed: true},
	}
}

func TestBuild_TotalsAndBreakdowns(t *testing.T) {
	doc := Build(sampleResults(), "testnet")
	require.Equal(t, 3, doc.Summary.Total)
	require.Equal(t, 2, doc.Summary.Passed)
	require.Equal(t, 1, doc.Summary.Failed)
	require.Equal(t, "testnet", doc.Summary.NetworkMode)

	require.Equal(t, Breakdown{Passed: 1, Failed: 1}, doc.Breakdowns.ByServer["s1"])
	require.Equal(t, Breakdown{Passed: 1}, doc.Breakdowns.ByServer["s2"])
	require.Equal(t, Breakdown{Passed: 1, Failed: 1}, doc.Breakdowns.ByFacilitator["f1"])
	require.Equal(t, Breakdown{Passed: 1}, doc.Breakdowns.ByFacilitator["none"])
}

func TestBuild_EmptyResultsYieldsZeroedSummary(t *testing.T) {
	doc := Build(nil, "testnet")
	require.Equal(t, Summary{NetworkMode: "testnet"}, doc.Summary)
	require.Empty(t, doc.Results)
}

func TestWriteJSON_RoundTrips(t *testing.T) {
	doc := Build(sampleResults(), "testnet")
	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, WriteJSON(path, doc))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded Document
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, doc.Summary, decoded.Summary)
	require.Len(t, decoded.Results, 3)
}

func TestPrintSummary_ContainsKeyFacts(t *testing.T) {
	doc := Build(sampleResults(), "testnet")
	var buf bytes.Buffer
	PrintSummary(&buf, doc)

	out := buf.String()
	require.Contains(t, out, "s1")
	require.Contains(t, out, "0xabc")
}
