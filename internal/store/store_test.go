package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/cogni/internal/aggregate"
	"github.com/verte-zerg/cogni/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	st, err := Open(filepath.Join(dir, "cogni.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

func testSummary(game model.GameID, score int, endedAt time.Time) model.SessionSummary {
	return model.SessionSummary{
		ID:           uuid.New(),
		Game:         game,
		Reason:       model.EndCompleted,
		FinalScore:   score,
		LevelReached: 4,
		Accuracy:     85,
		StartedAt:    endedAt.Add(-time.Minute),
		EndedAt:      endedAt,
		DurationMs:   60000,
		Derived: model.Derived{
			AvgReactionMs:  380,
			BestReactionMs: 240,
			Consistency:    92,
		},
	}
}

func TestLoadProfileDefaultsWhenMissing(t *testing.T) {
	st := openTestStore(t)
	profile, err := st.LoadProfile(context.Background(), model.GameMemory)
	if err != nil {
		t.Fatalf("load profile: %v", err)
	}
	if profile.Game != model.GameMemory {
		t.Fatalf("game = %s, want memory", profile.Game)
	}
	if profile.BestScore != 0 || profile.TimesPlayed != 0 || len(profile.History) != 0 {
		t.Fatalf("missing profile should be zero-valued: %+v", profile)
	}

	stats, err := st.LoadPlayerStats(context.Background())
	if err != nil {
		t.Fatalf("load player stats: %v", err)
	}
	if stats.TotalScore != 0 || stats.GamesPlayed != 0 {
		t.Fatalf("missing stats should be zero-valued: %+v", stats)
	}
	if stats.GamesPlayedByType == nil {
		t.Fatalf("by-type map must be allocated")
	}
}

func TestCommitMergeRoundTrip(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	endedAt := time.Unix(1700000000, 0).UTC()

	profile, err := st.LoadProfile(ctx, model.GameReaction)
	if err != nil {
		t.Fatalf("load profile: %v", err)
	}
	stats, err := st.LoadPlayerStats(ctx)
	if err != nil {
		t.Fatalf("load stats: %v", err)
	}

	summary := testSummary(model.GameReaction, 750, endedAt)
	profile, stats = aggregate.Merge(profile, stats, summary)
	if err := st.CommitMerge(ctx, summary, profile, stats); err != nil {
		t.Fatalf("commit merge: %v", err)
	}

	reloaded, err := st.LoadProfile(ctx, model.GameReaction)
	if err != nil {
		t.Fatalf("reload profile: %v", err)
	}
	if reloaded.BestScore != 750 || reloaded.TimesPlayed != 1 || reloaded.BestLevel != 4 {
		t.Fatalf("unexpected reloaded profile: %+v", reloaded)
	}
	if reloaded.AvgReactionMs != 380 || reloaded.ReactionCount != 1 {
		t.Fatalf("running average not persisted: %+v", reloaded)
	}
	if !reloaded.LastPlayedAt.Equal(endedAt) {
		t.Fatalf("lastPlayedAt = %v, want %v", reloaded.LastPlayedAt, endedAt)
	}
	if len(reloaded.History) != 1 || reloaded.History[0].Score != 750 {
		t.Fatalf("history not persisted: %+v", reloaded.History)
	}

	reStats, err := st.LoadPlayerStats(ctx)
	if err != nil {
		t.Fatalf("reload stats: %v", err)
	}
	if reStats.TotalScore != 750 || reStats.GamesPlayed != 1 {
		t.Fatalf("unexpected reloaded stats: %+v", reStats)
	}
	if reStats.GamesPlayedByType[model.GameReaction] != 1 {
		t.Fatalf("by-type count not persisted: %+v", reStats.GamesPlayedByType)
	}
}

func TestCommitMergeRejectsDuplicateSummary(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	endedAt := time.Unix(1700000000, 0).UTC()

	summary := testSummary(model.GameMemory, 100, endedAt)
	profile, stats := aggregate.Merge(model.NewGameProfile(model.GameMemory), model.NewPlayerStats(), summary)
	if err := st.CommitMerge(ctx, summary, profile, stats); err != nil {
		t.Fatalf("first commit: %v", err)
	}

	profile2, stats2 := aggregate.Merge(profile, stats, summary)
	err := st.CommitMerge(ctx, summary, profile2, stats2)
	if !errors.Is(err, ErrAlreadyMerged) {
		t.Fatalf("expected ErrAlreadyMerged, got %v", err)
	}

	// The rejected commit must leave nothing behind.
	reloaded, err := st.LoadProfile(ctx, model.GameMemory)
	if err != nil {
		t.Fatalf("reload profile: %v", err)
	}
	if reloaded.TimesPlayed != 1 {
		t.Fatalf("duplicate commit leaked state: timesPlayed = %d", reloaded.TimesPlayed)
	}
	reStats, err := st.LoadPlayerStats(ctx)
	if err != nil {
		t.Fatalf("reload stats: %v", err)
	}
	if reStats.TotalScore != 100 {
		t.Fatalf("duplicate commit leaked state: totalScore = %d", reStats.TotalScore)
	}
}

func TestHistoryBoundedPerGame(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	endedAt := time.Unix(1700000000, 0).UTC()

	profile := model.NewGameProfile(model.GameMemory)
	stats := model.NewPlayerStats()
	for i := 0; i < aggregate.HistoryCap+5; i++ {
		summary := testSummary(model.GameMemory, 100+i, endedAt.Add(time.Duration(i)*time.Minute))
		profile, stats = aggregate.Merge(profile, stats, summary)
		if err := st.CommitMerge(ctx, summary, profile, stats); err != nil {
			t.Fatalf("commit %d: %v", i, err)
		}
	}

	entries, err := st.ListHistory(ctx, model.StatsConfig{Game: model.GameMemory})
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if len(entries) != aggregate.HistoryCap {
		t.Fatalf("history rows = %d, want cap %d", len(entries), aggregate.HistoryCap)
	}
	// Oldest evicted: the first surviving row is session 5.
	if entries[0].Score != 105 {
		t.Fatalf("oldest surviving score = %d, want 105", entries[0].Score)
	}
	if entries[len(entries)-1].Score != 100+aggregate.HistoryCap+4 {
		t.Fatalf("newest score = %d", entries[len(entries)-1].Score)
	}
}

func TestListHistoryFilters(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	endedAt := time.Unix(1700000000, 0).UTC()

	games := []model.GameID{model.GameMemory, model.GameReaction, model.GameMemory}
	profile := map[model.GameID]model.GameProfile{}
	stats := model.NewPlayerStats()
	for i, game := range games {
		p, ok := profile[game]
		if !ok {
			p = model.NewGameProfile(game)
		}
		summary := testSummary(game, 10*i, endedAt.Add(time.Duration(i)*time.Hour))
		p, stats = aggregate.Merge(p, stats, summary)
		profile[game] = p
		if err := st.CommitMerge(ctx, summary, p, stats); err != nil {
			t.Fatalf("commit %d: %v", i, err)
		}
	}

	memory, err := st.ListHistory(ctx, model.StatsConfig{Game: model.GameMemory})
	if err != nil {
		t.Fatalf("list memory history: %v", err)
	}
	if len(memory) != 2 {
		t.Fatalf("memory entries = %d, want 2", len(memory))
	}

	since := endedAt.Add(90 * time.Minute)
	recent, err := st.ListHistory(ctx, model.StatsConfig{Since: &since})
	if err != nil {
		t.Fatalf("list recent history: %v", err)
	}
	if len(recent) != 1 || recent[0].Score != 20 {
		t.Fatalf("since filter returned %+v", recent)
	}

	last, err := st.ListHistory(ctx, model.StatsConfig{Last: 2})
	if err != nil {
		t.Fatalf("list last history: %v", err)
	}
	if len(last) != 2 || last[1].Score != 20 {
		t.Fatalf("last filter returned %+v", last)
	}
}

func TestListProfiles(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	endedAt := time.Unix(1700000000, 0).UTC()

	for i, game := range []model.GameID{model.GameAttention, model.GameSwitcher} {
		summary := testSummary(game, 50*(i+1), endedAt)
		profile, stats := aggregate.Merge(model.NewGameProfile(game), model.NewPlayerStats(), summary)
		if err := st.CommitMerge(ctx, summary, profile, stats); err != nil {
			t.Fatalf("commit %s: %v", game, err)
		}
	}

	profiles, err := st.ListProfiles(ctx)
	if err != nil {
		t.Fatalf("list profiles: %v", err)
	}
	if len(profiles) != 2 {
		t.Fatalf("profiles = %d, want 2", len(profiles))
	}
}
