// Package aggregate folds finished session summaries into persistent
// profiles. Merge is a pure function so replays are deterministic and
// independently testable; durability and at-most-once application are the
// store's concern.
package aggregate

import (
	"math"

	"github.com/verte-zerg/cogni/internal/metrics"
	"github.com/verte-zerg/cogni/internal/model"
)

// HistoryCap bounds the per-game history kept in a profile. The oldest
// entries are evicted first.
const HistoryCap = 20

// Merge folds one session summary into the per-game profile and the global
// player stats, returning fresh values. Inputs are not mutated. Calling
// Merge twice with the same summary double-counts it; callers must
// guarantee at-most-once invocation per summary.
func Merge(prev model.GameProfile, prevStats model.PlayerStats, summary model.SessionSummary) (model.GameProfile, model.PlayerStats) {
	profile := prev
	profile.Game = summary.Game
	profile.History = appendHistory(prev.History, historyEntry(summary))

	if summary.FinalScore > profile.BestScore {
		profile.BestScore = summary.FinalScore
	}
	if summary.LevelReached > profile.BestLevel {
		profile.BestLevel = summary.LevelReached
	}
	profile.TimesPlayed++
	profile.LastPlayedAt = summary.EndedAt

	if summary.Derived.AvgReactionMs > 0 {
		profile.AvgReactionMs = metrics.RunningMean(prev.AvgReactionMs, prev.ReactionCount, summary.Derived.AvgReactionMs)
		profile.ReactionCount = prev.ReactionCount + 1
	}
	if best := summary.Derived.BestReactionMs; best > 0 {
		if profile.FastestReactionMs == 0 || best < profile.FastestReactionMs {
			profile.FastestReactionMs = best
		}
	}
	if summary.Derived.AvgLevelMs > 0 {
		profile.AvgLevelMs = metrics.RunningMean(prev.AvgLevelMs, prev.LevelCount, summary.Derived.AvgLevelMs)
		profile.LevelCount = prev.LevelCount + 1
	}
	if fastest := summary.Derived.FastestLevelMs; fastest > 0 {
		if profile.FastestLevelMs == 0 || fastest < profile.FastestLevelMs {
			profile.FastestLevelMs = fastest
		}
	}

	stats := prevStats
	stats.GamesPlayedByType = make(map[model.GameID]int, len(prevStats.GamesPlayedByType)+1)
	for id, n := range prevStats.GamesPlayedByType {
		stats.GamesPlayedByType[id] = n
	}
	stats.TotalScore += summary.FinalScore
	stats.GamesPlayed++
	stats.SessionsCompleted++
	stats.GamesPlayedByType[summary.Game]++
	stats.TotalTimeMinutes += int(math.Round(float64(summary.DurationMs) / 60000))
	stats.LastActiveAt = summary.EndedAt
	if summary.Game == model.GameReaction && summary.Derived.AvgReactionMs > 0 {
		stats.AvgReactionMs = metrics.RunningMean(prevStats.AvgReactionMs, prevStats.ReactionCount, summary.Derived.AvgReactionMs)
		stats.ReactionCount = prevStats.ReactionCount + 1
	}

	return profile, stats
}

// Improvement returns how much the new reaction average improves on the
// profile's prior running average, as a percentage, and whether a prior
// average exists at all. First sessions have no baseline and report none.
func Improvement(prev model.GameProfile, newAvgMs float64) (pct float64, ok bool) {
	if prev.ReactionCount == 0 || prev.AvgReactionMs <= 0 || newAvgMs <= 0 {
		return 0, false
	}
	return (prev.AvgReactionMs - newAvgMs) / prev.AvgReactionMs * 100, true
}

func historyEntry(summary model.SessionSummary) model.HistoryEntry {
	return model.HistoryEntry{
		Game:          summary.Game,
		PlayedAt:      summary.EndedAt,
		Score:         summary.FinalScore,
		Level:         summary.LevelReached,
		Accuracy:      summary.Accuracy,
		DurationMs:    summary.DurationMs,
		AvgReactionMs: summary.Derived.AvgReactionMs,
		SwitchCost:    summary.Derived.SwitchCost,
		Consistency:   summary.Derived.Consistency,
	}
}

func appendHistory(prev []model.HistoryEntry, entry model.HistoryEntry) []model.HistoryEntry {
	history := make([]model.HistoryEntry, 0, len(prev)+1)
	history = append(history, prev...)
	history = append(history, entry)
	if len(history) > HistoryCap {
		history = history[len(history)-HistoryCap:]
	}
	return history
}
