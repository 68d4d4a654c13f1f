package stats

import (
	"sort"

	"github.com/verte-zerg/cogni/internal/model"
)

// WeakestGames returns the played games ordered by lowest recent accuracy,
// computed over each profile's bounded history. Games never played are
// excluded.
func WeakestGames(profiles []model.GameProfile, top int) []model.GameID {
	candidates := make([]model.GameProfile, 0, len(profiles))
	for _, p := range profiles {
		if p.TimesPlayed > 0 && len(p.History) > 0 {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		ai := historyAccuracy(candidates[i].History)
		aj := historyAccuracy(candidates[j].History)
		if ai == aj {
			return candidates[i].Game < candidates[j].Game
		}
		return ai < aj
	})
	if top <= 0 || top > len(candidates) {
		top = len(candidates)
	}
	out := make([]model.GameID, 0, top)
	for i := 0; i < top; i++ {
		out = append(out, candidates[i].Game)
	}
	return out
}

func historyAccuracy(entries []model.HistoryEntry) float64 {
	if len(entries) == 0 {
		return 100
	}
	var sum float64
	for _, e := range entries {
		sum += e.Accuracy
	}
	return sum / float64(len(entries))
}
