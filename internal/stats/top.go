// Package stats contains statistics calculations and reporting.
package stats

import (
	"sort"

	"github.com/verte-zerg/cogni/internal/model"
)

// TopSessionsByScore returns the top N history entries by final score.
func TopSessionsByScore(entries []model.HistoryEntry, n int) []model.HistoryEntry {
	if n <= 0 || len(entries) == 0 {
		return nil
	}
	sorted := make([]model.HistoryEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Score == sorted[j].Score {
			return sorted[i].PlayedAt.Before(sorted[j].PlayedAt)
		}
		return sorted[i].Score > sorted[j].Score
	})
	if n > len(sorted) {
		n = len(sorted)
	}
	return sorted[:n]
}
