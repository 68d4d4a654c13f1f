// Package model defines shared data structures.
package model

import (
	"time"

	"github.com/google/uuid"
)

// GameID identifies one of the built-in mini-games.
type GameID string

// Built-in game identifiers.
const (
	GameMemory    GameID = "memory"
	GameReaction  GameID = "reaction"
	GameAttention GameID = "attention"
	GameSwitcher  GameID = "switcher"
)

// EndReason explains why a session reached its terminal state.
type EndReason string

// Session end reasons.
const (
	EndCompleted EndReason = "completed"
	EndLives     EndReason = "lives"
	EndTimeUp    EndReason = "timeup"
	EndAccuracy  EndReason = "accuracy"
	EndAbandoned EndReason = "abandoned"
)

// Config defines play settings.
type Config struct {
	Game GameID
	Seed int64
}

// StatsConfig defines filters and options for stats output.
type StatsConfig struct {
	Game        GameID
	Since       *time.Time
	Last        int
	CurveWindow int
}

// Trial records one resolved stimulus-response cycle. Immutable once appended.
type Trial struct {
	Index      int
	At         time.Time
	ReactionMs int64
	Correct    bool
	Level      int
	TaskSwitch bool
}

// Derived holds the per-session statistics computed at session end.
// Fields not meaningful for a game are left zero.
type Derived struct {
	Consistency          float64
	FocusEfficiency      float64
	SwitchCost           float64
	CognitiveFlexibility float64
	AvgReactionMs        float64
	BestReactionMs       int64
	BestStreak           int
	TaskSwitches         int
	LevelsCompleted      int
	AvgLevelMs           float64
	FastestLevelMs       int64
}

// SessionSummary captures a completed play session. It is produced exactly
// once per session and consumed exactly once by the aggregator.
type SessionSummary struct {
	ID           uuid.UUID
	Game         GameID
	Reason       EndReason
	FinalScore   int
	LevelReached int
	Accuracy     float64
	StartedAt    time.Time
	EndedAt      time.Time
	DurationMs   int64
	Trials       []Trial
	Derived      Derived
}

// HistoryEntry is the compact per-session record kept in a profile.
type HistoryEntry struct {
	Game          GameID
	PlayedAt      time.Time
	Score         int
	Level         int
	Accuracy      float64
	DurationMs    int64
	AvgReactionMs float64
	SwitchCost    float64
	Consistency   float64
}

// GameProfile is the cumulative per-game record for a player.
//
// BestScore and BestLevel never decrease across merges; TimesPlayed grows by
// exactly one per merge. Averages are running means kept alongside their
// counts so no raw sample arrays are stored.
type GameProfile struct {
	Game              GameID
	BestScore         int
	TimesPlayed       int
	BestLevel         int
	History           []HistoryEntry
	AvgReactionMs     float64
	ReactionCount     int
	FastestReactionMs int64
	AvgLevelMs        float64
	LevelCount        int
	FastestLevelMs    int64
	LastPlayedAt      time.Time
}

// PlayerStats is the global cumulative record across all games.
type PlayerStats struct {
	TotalScore        int
	GamesPlayed       int
	SessionsCompleted int
	GamesPlayedByType map[GameID]int
	TotalTimeMinutes  int
	AvgReactionMs     float64
	ReactionCount     int
	LastActiveAt      time.Time
}

// NewGameProfile returns a zero-valued profile for the given game.
func NewGameProfile(game GameID) GameProfile {
	return GameProfile{Game: game}
}

// NewPlayerStats returns zero-valued player stats with an allocated type map.
func NewPlayerStats() PlayerStats {
	return PlayerStats{GamesPlayedByType: map[GameID]int{}}
}

// MemoryStimulus is one sequence-memory trial: cell indices on a 4x4 grid
// shown one after another for ShowMs each.
type MemoryStimulus struct {
	Sequence []int
	ShowMs   int64
}

// FieldItem is a positioned target or distractor for the reaction and
// attention games. X and Y are grid coordinates on the play field.
type FieldItem struct {
	X      int
	Y      int
	Target bool
}

// SwitchStimulus is the multi-attribute object shown by the task switcher.
type SwitchStimulus struct {
	Shape    string
	Color    string
	Size     string
	Number   int
	Position int
}

// AllGames lists the game ids in presentation order.
func AllGames() []GameID {
	return []GameID{GameMemory, GameReaction, GameAttention, GameSwitcher}
}
