// Package minimize implements the balanced round-robin pre-sort plus
// greedy set-cover minimization described in spec.md §4.4. It is generic
// over any scenario-shaped item via the Item interface, so it has no
// dependency on the scenario package's concrete type.
package minimize

import (
	"sort"

	"muster/internal/coverage"
)

// Item is anything minimization can reduce: a materialized scenario with a
// combo grouping key and the four coverage keys it contributes.
type Item interface {
	ComboKey() (serverName, facilitatorName string)
	CoverageKeys() coverage.Keys
}

// Stats summarizes one minimization pass.
type Stats struct {
	Total     int
	Kept      int
	Reduction float64 // percentage, 0-100
}

// PreSort groups items by (serverName, facilitatorName), orders the groups
// by facilitator name descending then server name ascending, and
// round-robin interleaves across groups. Matches spec.md §4.4's "balanced
// pre-sort" step, whose purpose is fair distribution across combos before
// greedy selection narrows the set.
func PreSort[T Item](items []T) []T {
	if len(items) == 0 {
		return nil
	}

	type groupKey struct {
		server      string
		facilitator string
	}
	groups := make(map[groupKey][]T)
	var keys []groupKey
	for _, item := range items {
		server, facilitator := item.ComboKey()
		gk := groupKey{server: server, facilitator: facilitator}
		if _, ok := groups[gk]; !ok {
			keys = append(keys, gk)
		}
		groups[gk] = append(groups[gk], item)
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].facilitator != keys[j].facilitator {
			return keys[i].facilitator > keys[j].facilitator // descending
		}
		return keys[i].server < keys[j].server // ascending
	})

	out := make([]T, 0, len(items))
	for round := 0; ; round++ {
		added := false
		for _, k := range keys {
			g := groups[k]
			if round < len(g) {
				out = append(out, g[round])
				added = true
			}
		}
		if !added {
			break
		}
	}
	return out
}

// GreedySetCover walks the (already pre-sorted) items in order, keeping an
// item iff it adds new coverage to tracker, and marking it covered when kept.
func GreedySetCover[T Item](items []T, tracker *coverage.Tracker) []T {
	var kept []T
	for _, item := range items {
		keys := item.CoverageKeys()
		if tracker.IsNewCoverage(keys) {
			tracker.MarkCovered(keys)
			kept = append(kept, item)
		}
	}
	return kept
}

// Minimize runs PreSort followed by GreedySetCover against a fresh Tracker
// and reports reduction statistics. Empty input yields empty output.
func Minimize[T Item](items []T) ([]T, Stats) {
	if len(items) == 0 {
		return nil, Stats{}
	}
	sorted := PreSort(items)
	kept := GreedySetCover(sorted, coverage.NewTracker())

	stats := Stats{
		Total: len(items),
		Kept:  len(kept),
	}
	if stats.Total > 0 {
		stats.Reduction = 100 * (1 - float64(stats.Kept)/float64(stats.Total))
	}
	return kept, stats
}
