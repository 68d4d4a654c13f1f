// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/verte-zerg/cogni/internal/aggregate"
	"github.com/verte-zerg/cogni/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// ErrAlreadyMerged is returned when a session summary is committed twice.
var ErrAlreadyMerged = errors.New("session already merged")

// Store wraps SQLite access for profiles, player stats, and history.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS game_profiles (
			game_id TEXT PRIMARY KEY,
			best_score INTEGER NOT NULL,
			times_played INTEGER NOT NULL,
			best_level INTEGER NOT NULL,
			avg_reaction_ms REAL NOT NULL,
			reaction_count INTEGER NOT NULL,
			fastest_reaction_ms INTEGER NOT NULL,
			avg_level_ms REAL NOT NULL,
			level_count INTEGER NOT NULL,
			fastest_level_ms INTEGER NOT NULL,
			last_played_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS player_stats (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			total_score INTEGER NOT NULL,
			games_played INTEGER NOT NULL,
			sessions_completed INTEGER NOT NULL,
			total_time_minutes INTEGER NOT NULL,
			avg_reaction_ms REAL NOT NULL,
			reaction_count INTEGER NOT NULL,
			last_active_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS games_played_by_type (
			game_id TEXT PRIMARY KEY,
			count INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS history (
			id INTEGER PRIMARY KEY,
			game_id TEXT NOT NULL,
			played_at TEXT NOT NULL,
			score INTEGER NOT NULL,
			level INTEGER NOT NULL,
			accuracy REAL NOT NULL,
			duration_ms INTEGER NOT NULL,
			avg_reaction_ms REAL NOT NULL,
			switch_cost REAL NOT NULL,
			consistency REAL NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS merged_sessions (
			session_id TEXT PRIMARY KEY,
			merged_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_history_game_played ON history(game_id, played_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// LoadProfile returns the stored profile for a game, or a zero-valued one if
// the game has never been played.
func (s *Store) LoadProfile(ctx context.Context, game model.GameID) (model.GameProfile, error) {
	profile := model.NewGameProfile(game)
	var lastPlayed string
	err := s.db.QueryRowContext(ctx,
		`SELECT best_score, times_played, best_level, avg_reaction_ms, reaction_count,
			fastest_reaction_ms, avg_level_ms, level_count, fastest_level_ms, last_played_at
		 FROM game_profiles WHERE game_id = ?`, string(game)).
		Scan(&profile.BestScore, &profile.TimesPlayed, &profile.BestLevel,
			&profile.AvgReactionMs, &profile.ReactionCount, &profile.FastestReactionMs,
			&profile.AvgLevelMs, &profile.LevelCount, &profile.FastestLevelMs, &lastPlayed)
	if errors.Is(err, sql.ErrNoRows) {
		return profile, nil
	}
	if err != nil {
		return profile, fmt.Errorf("failed to load profile: %w", err)
	}
	profile.LastPlayedAt, err = parseTime(lastPlayed)
	if err != nil {
		return profile, err
	}
	profile.History, err = s.ListHistory(ctx, model.StatsConfig{Game: game, Last: aggregate.HistoryCap})
	if err != nil {
		return profile, err
	}
	return profile, nil
}

// LoadPlayerStats returns the stored global stats, zero-valued when nothing
// has been persisted yet.
func (s *Store) LoadPlayerStats(ctx context.Context) (model.PlayerStats, error) {
	stats := model.NewPlayerStats()
	var lastActive string
	err := s.db.QueryRowContext(ctx,
		`SELECT total_score, games_played, sessions_completed, total_time_minutes,
			avg_reaction_ms, reaction_count, last_active_at
		 FROM player_stats WHERE id = 1`).
		Scan(&stats.TotalScore, &stats.GamesPlayed, &stats.SessionsCompleted,
			&stats.TotalTimeMinutes, &stats.AvgReactionMs, &stats.ReactionCount, &lastActive)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return stats, fmt.Errorf("failed to load player stats: %w", err)
	}
	if err == nil {
		stats.LastActiveAt, err = parseTime(lastActive)
		if err != nil {
			return stats, err
		}
	}

	rows, err := s.db.QueryContext(ctx, `SELECT game_id, count FROM games_played_by_type`)
	if err != nil {
		return stats, fmt.Errorf("failed to load by-type counts: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()
	for rows.Next() {
		var game string
		var count int
		if err := rows.Scan(&game, &count); err != nil {
			return stats, err
		}
		stats.GamesPlayedByType[model.GameID(game)] = count
	}
	if err := rows.Err(); err != nil {
		return stats, err
	}
	return stats, nil
}

// CommitMerge durably applies one merged session: profile, player stats,
// by-type counts, and the bounded history row are written in a single
// transaction keyed by the summary id, so committing the same summary twice
// fails with ErrAlreadyMerged instead of double-counting.
func (s *Store) CommitMerge(ctx context.Context, summary model.SessionSummary, profile model.GameProfile, stats model.PlayerStats) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	var exists int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM merged_sessions WHERE session_id = ?`, summary.ID.String()).Scan(&exists)
	if err != nil {
		return err
	}
	if exists > 0 {
		err = ErrAlreadyMerged
		return err
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO merged_sessions (session_id, merged_at) VALUES (?, ?)`,
		summary.ID.String(), summary.EndedAt.Format(time.RFC3339Nano)); err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO game_profiles (game_id, best_score, times_played, best_level,
			avg_reaction_ms, reaction_count, fastest_reaction_ms,
			avg_level_ms, level_count, fastest_level_ms, last_played_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(game_id) DO UPDATE SET
			best_score = excluded.best_score,
			times_played = excluded.times_played,
			best_level = excluded.best_level,
			avg_reaction_ms = excluded.avg_reaction_ms,
			reaction_count = excluded.reaction_count,
			fastest_reaction_ms = excluded.fastest_reaction_ms,
			avg_level_ms = excluded.avg_level_ms,
			level_count = excluded.level_count,
			fastest_level_ms = excluded.fastest_level_ms,
			last_played_at = excluded.last_played_at`,
		string(profile.Game), profile.BestScore, profile.TimesPlayed, profile.BestLevel,
		profile.AvgReactionMs, profile.ReactionCount, profile.FastestReactionMs,
		profile.AvgLevelMs, profile.LevelCount, profile.FastestLevelMs,
		profile.LastPlayedAt.Format(time.RFC3339Nano)); err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO player_stats (id, total_score, games_played, sessions_completed,
			total_time_minutes, avg_reaction_ms, reaction_count, last_active_at)
		 VALUES (1, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			total_score = excluded.total_score,
			games_played = excluded.games_played,
			sessions_completed = excluded.sessions_completed,
			total_time_minutes = excluded.total_time_minutes,
			avg_reaction_ms = excluded.avg_reaction_ms,
			reaction_count = excluded.reaction_count,
			last_active_at = excluded.last_active_at`,
		stats.TotalScore, stats.GamesPlayed, stats.SessionsCompleted,
		stats.TotalTimeMinutes, stats.AvgReactionMs, stats.ReactionCount,
		stats.LastActiveAt.Format(time.RFC3339Nano)); err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO games_played_by_type (game_id, count) VALUES (?, ?)
		 ON CONFLICT(game_id) DO UPDATE SET count = excluded.count`,
		string(summary.Game), stats.GamesPlayedByType[summary.Game]); err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO history (game_id, played_at, score, level, accuracy, duration_ms,
			avg_reaction_ms, switch_cost, consistency)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(summary.Game), summary.EndedAt.Format(time.RFC3339Nano),
		summary.FinalScore, summary.LevelReached, summary.Accuracy, summary.DurationMs,
		summary.Derived.AvgReactionMs, summary.Derived.SwitchCost, summary.Derived.Consistency); err != nil {
		return err
	}

	// Keep history bounded per game, evicting oldest rows first.
	if _, err = tx.ExecContext(ctx,
		`DELETE FROM history WHERE game_id = ? AND id NOT IN (
			SELECT id FROM history WHERE game_id = ?
			ORDER BY played_at DESC, id DESC LIMIT ?
		)`, string(summary.Game), string(summary.Game), aggregate.HistoryCap); err != nil {
		return err
	}

	return tx.Commit()
}

// ListHistory returns history entries matching the filter, oldest first.
func (s *Store) ListHistory(ctx context.Context, cfg model.StatsConfig) ([]model.HistoryEntry, error) {
	query := `SELECT game_id, played_at, score, level, accuracy, duration_ms,
		avg_reaction_ms, switch_cost, consistency FROM history WHERE 1=1`
	args := []any{}
	if cfg.Game != "" {
		query += " AND game_id = ?"
		args = append(args, string(cfg.Game))
	}
	if cfg.Since != nil {
		query += " AND played_at >= ?"
		args = append(args, cfg.Since.Format(time.RFC3339Nano))
	}
	query += " ORDER BY played_at ASC, id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var entries []model.HistoryEntry
	for rows.Next() {
		var entry model.HistoryEntry
		var game, playedAt string
		if err := rows.Scan(&game, &playedAt, &entry.Score, &entry.Level, &entry.Accuracy,
			&entry.DurationMs, &entry.AvgReactionMs, &entry.SwitchCost, &entry.Consistency); err != nil {
			return nil, err
		}
		entry.Game = model.GameID(game)
		entry.PlayedAt, err = parseTime(playedAt)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if cfg.Last > 0 && len(entries) > cfg.Last {
		entries = entries[len(entries)-cfg.Last:]
	}
	return entries, nil
}

// ListProfiles returns the stored profile for every game that has one.
func (s *Store) ListProfiles(ctx context.Context) ([]model.GameProfile, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT game_id FROM game_profiles ORDER BY game_id`)
	if err != nil {
		return nil, err
	}
	var games []model.GameID
	for rows.Next() {
		var game string
		if err := rows.Scan(&game); err != nil {
			if cerr := rows.Close(); cerr != nil {
				// Best-effort rows close.
				_ = cerr
			}
			return nil, err
		}
		games = append(games, model.GameID(game))
	}
	if cerr := rows.Close(); cerr != nil {
		// Best-effort rows close.
		_ = cerr
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	profiles := make([]model.GameProfile, 0, len(games))
	for _, game := range games {
		profile, err := s.LoadProfile(ctx, game)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, profile)
	}
	return profiles, nil
}

func parseTime(value string) (time.Time, error) {
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse stored time: %w", err)
	}
	return parsed, nil
}
