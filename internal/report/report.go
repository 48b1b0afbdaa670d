// Package report builds the summary, per-dimension breakdowns, and
// optional JSON artifact described in spec.md §6.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"muster/internal/combo"
	"muster/pkg/strings"
)

// errorColumnMaxLen keeps the results table readable when a client or server
// proxy returns a long, multi-line error string.
const errorColumnMaxLen = 60

// Breakdown is a passed/failed tally for one dimension value.
type Breakdown struct {
	Passed int `json:"passed"`
	Failed int `json:"failed"`
}

// Summary is the top-level pass/fail tally.
type Summary struct {
	Total       int    `json:"total"`
	Passed      int    `json:"passed"`
	Failed      int    `json:"failed"`
	NetworkMode string `json:"networkMode"`
}

// Breakdowns groups the per-dimension tallies, per spec.md §6's JSON schema.
type Breakdowns struct {
	ByFacilitator    map[string]Breakdown `json:"byFacilitator"`
	ByServer         map[string]Breakdown `json:"byServer"`
	ByClient         map[string]Breakdown `json:"byClient"`
	ByProtocolFamily map[string]Breakdown `json:"byProtocolFamily"`
}

// Document is the full JSON report written via --output-json.
type Document struct {
	Summary    Summary        `json:"summary"`
	Results    []combo.Result `json:"results"`
	Breakdowns Breakdowns     `json:"breakdowns"`
}

// Build aggregates results into a Document.
func Build(results []combo.Result, networkMode string) Document {
	doc := Document{
		Results: results,
		Breakdowns: Breakdowns{
			ByFacilitator:    make(map[string]Breakdown),
			ByServer:         make(map[string]Breakdown),
			ByClient:         make(map[string]Breakdown),
			ByProtocolFamily: make(map[string]Breakdown),
		},
	}

	for _, r := range results {
		doc.Summary.Total++
		if r.Passed {
			doc.Summary.Passed++
		} else {
			doc.Summary.Failed++
		}

		facilitatorKey := r.Facilitator
		if facilitatorKey == "" {
			facilitatorKey = "none"
		}
		bump(doc.Breakdowns.ByFacilitator, facilitatorKey, r.Passed)
		bump(doc.Breakdowns.ByServer, r.Server, r.Passed)
		bump(doc.Breakdowns.ByClient, r.Client, r.Passed)
		bump(doc.Breakdowns.ByProtocolFamily, r.ProtocolFamily, r.Passed)
	}

	doc.Summary.NetworkMode = networkMode
	return doc
}

func bump(m map[string]Breakdown, key string, passed bool) {
	b := m[key]
	if passed {
		b.Passed++
	} else {
		b.Failed++
	}
	m[key] = b
}

// WriteJSON marshals doc to path with indentation, per spec.md §6.
func WriteJSON(path string, doc Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing report to %s: %w", path, err)
	}
	return nil
}

// PrintSummary renders the totals, a passed/failed results table, and the
// per-dimension breakdowns to w.
func PrintSummary(w io.Writer, doc Document) {
	fmt.Fprintf(w, "\n%s %d passed, %d failed, %d total (network: %s)\n\n",
		text.Colors{text.FgHiBlue, text.Bold}.Sprint("Summary:"),
		doc.Summary.Passed, doc.Summary.Failed, doc.Summary.Total, doc.Summary.NetworkMode)

	results := table.NewWriter()
	results.SetOutputMirror(w)
	results.SetStyle(table.StyleRounded)
	results.AppendHeader(table.Row{"#", "CLIENT", "SERVER", "ENDPOINT", "FACILITATOR", "FAMILY", "RESULT", "TRANSACTION", "ERROR"})
	for _, r := range doc.Results {
		status := text.FgHiGreen.Sprint("PASS")
		if !r.Passed {
			status = text.FgHiRed.Sprint("FAIL")
		}
		facilitator := r.Facilitator
		if facilitator == "" {
			facilitator = "none"
		}
		results.AppendRow(table.Row{r.TestNumber, r.Client, r.Server, r.Endpoint, facilitator, r.ProtocolFamily, status, r.Transaction, strings.TruncateDescription(r.Error, errorColumnMaxLen)})
	}
	results.Render()

	printBreakdown(w, "By facilitator", doc.Breakdowns.ByFacilitator)
	printBreakdown(w, "By server", doc.Breakdowns.ByServer)
	printBreakdown(w, "By client", doc.Breakdowns.ByClient)
	printBreakdown(w, "By protocol family", doc.Breakdowns.ByProtocolFamily)
}

func printBreakdown(w io.Writer, title string, dim map[string]Breakdown) {
	if len(dim) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s\n", text.Bold.Sprint(title))
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"NAME", "PASSED", "FAILED"})
	for name, b := range dim {
		t.AppendRow(table.Row{name, b.Passed, b.Failed})
	}
	t.Render()
}
