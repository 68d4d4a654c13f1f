// Package stats contains statistics calculations and reporting.
package stats

import (
	"context"

	"github.com/verte-zerg/cogni/internal/model"
	"github.com/verte-zerg/cogni/internal/store"
)

// Report contains precomputed data for stats rendering.
type Report struct {
	Player   model.PlayerStats
	Profiles []model.GameProfile
	History  []model.HistoryEntry
	Window   []model.HistoryEntry
}

// BuildReport loads and prepares data for stats rendering.
func BuildReport(ctx context.Context, st *store.Store, cfg model.StatsConfig) (Report, error) {
	player, err := st.LoadPlayerStats(ctx)
	if err != nil {
		return Report{}, err
	}

	var profiles []model.GameProfile
	if cfg.Game != "" {
		profile, err := st.LoadProfile(ctx, cfg.Game)
		if err != nil {
			return Report{}, err
		}
		profiles = []model.GameProfile{profile}
	} else {
		profiles, err = st.ListProfiles(ctx)
		if err != nil {
			return Report{}, err
		}
	}

	history, err := st.ListHistory(ctx, cfg)
	if err != nil {
		return Report{}, err
	}
	if cfg.Last > 0 && len(history) > cfg.Last {
		history = history[len(history)-cfg.Last:]
	}

	return Report{
		Player:   player,
		Profiles: profiles,
		History:  history,
		Window:   lastEntries(history, cfg.CurveWindow),
	}, nil
}

func lastEntries(entries []model.HistoryEntry, window int) []model.HistoryEntry {
	if window <= 0 || len(entries) <= window {
		return entries
	}
	return entries[len(entries)-window:]
}
