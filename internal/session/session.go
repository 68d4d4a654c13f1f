// Package session implements the per-game state machines. Each machine
// drives one play session from instructions to a terminal result, producing
// exactly one SessionSummary.
//
// Machines are synchronous: every method takes an explicit time so tests
// never sleep. Real-time behavior (scheduling the delays the machines ask
// for via NextTimer) belongs to the caller. A timer is armed with the
// machine's current TimerTag; TimerFired ignores any tag that no longer
// matches, so a stale timer can never mutate a later trial's state.
package session

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/cogni/internal/model"
	"github.com/verte-zerg/cogni/internal/stimulus"
)

// Phase is the generic state of a session machine.
type Phase int

// Session phases.
const (
	PhaseInstructions Phase = iota
	PhaseShowing
	PhaseAwaiting
	PhaseFeedback
	PhaseDone
)

// Clock abstracts wall-clock time so sessions can be replayed in tests.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real wall clock.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time { return time.Now() }

// Machine is the game-independent surface of a session state machine.
// Game-specific input methods live on the concrete types.
type Machine interface {
	Game() model.GameID
	Phase() Phase
	Level() int
	Score() int
	Streak() int

	// Start moves the machine out of instructions. It is a no-op once the
	// session is underway.
	Start(now time.Time)

	// TimerTag identifies the currently armed timer window. It changes
	// whenever the machine enters a new timed state.
	TimerTag() int

	// NextTimer reports the delay the caller should schedule for the
	// current state, if any.
	NextTimer() (time.Duration, bool)

	// TimerFired delivers an armed timer. Tags that no longer match the
	// live window are discarded without any state change.
	TimerFired(tag int, now time.Time)

	// Summary returns the session summary once the machine is done.
	Summary() (model.SessionSummary, bool)
}

// Info describes a registered game.
type Info struct {
	ID          model.GameID
	Title       string
	Description string
	MaxLevel    int
	New         func(gen *stimulus.Generator) Machine
}

var registry = map[model.GameID]Info{}

// Register adds a game to the registry.
func Register(info Info) {
	registry[info.ID] = info
}

// Get retrieves a registered game by id.
func Get(id model.GameID) (Info, bool) {
	info, ok := registry[id]
	return info, ok
}

// List returns all registered games in presentation order.
func List() []Info {
	order := model.AllGames()
	rank := map[model.GameID]int{}
	for i, id := range order {
		rank[id] = i
	}
	infos := make([]Info, 0, len(registry))
	for _, info := range registry {
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool {
		return rank[infos[i].ID] < rank[infos[j].ID]
	})
	return infos
}

const (
	startingLives = 3
	feedbackDelay = 700 * time.Millisecond
	minBasePoints = 100
	streakBonus   = 5
)

// speedPoints scores a timed correct response: base points shrink with
// reaction time down to a floor, then scale with a level-dependent speed
// multiplier.
func speedPoints(rtMs int64, level int) int {
	base := 1000 - rtMs
	if base < minBasePoints {
		base = minBasePoints
	}
	mult := 1.0 + 0.05*float64(level)
	return int(float64(base) * mult)
}

// core carries the state every machine shares.
type core struct {
	game       model.GameID
	id         uuid.UUID
	phase      Phase
	level      int
	score      int
	streak     int
	bestStreak int
	timerTag   int
	startedAt  time.Time
	trials     []model.Trial
	summary    model.SessionSummary
}

func newCore(game model.GameID) core {
	return core{
		game:  game,
		id:    uuid.New(),
		phase: PhaseInstructions,
		level: 1,
	}
}

func (c *core) Game() model.GameID { return c.game }
func (c *core) Phase() Phase       { return c.phase }
func (c *core) Level() int         { return c.level }
func (c *core) Score() int         { return c.score }
func (c *core) Streak() int        { return c.streak }
func (c *core) TimerTag() int      { return c.timerTag }

// Summary returns the terminal summary once the session is done.
func (c *core) Summary() (model.SessionSummary, bool) {
	if c.phase != PhaseDone {
		return model.SessionSummary{}, false
	}
	return c.summary, true
}

// record appends an immutable trial to the in-session sequence.
func (c *core) record(now time.Time, rtMs int64, correct bool, taskSwitch bool) {
	c.trials = append(c.trials, model.Trial{
		Index:      len(c.trials),
		At:         now,
		ReactionMs: rtMs,
		Correct:    correct,
		Level:      c.level,
		TaskSwitch: taskSwitch,
	})
}

// markCorrect bumps the streak after a correct response and returns the
// bonus for the streak held before this response.
func (c *core) markCorrect() int {
	bonus := streakBonus * c.streak
	c.streak++
	if c.streak > c.bestStreak {
		c.bestStreak = c.streak
	}
	return bonus
}

func (c *core) markIncorrect() {
	c.streak = 0
}

// finish seals the session. The machine must fill Derived on the returned
// summary pointer before handing control back; calling finish twice is an
// invariant violation prevented by the phase check in every caller.
func (c *core) finish(reason model.EndReason, now time.Time) *model.SessionSummary {
	c.phase = PhaseDone
	c.timerTag++
	correct := 0
	for _, tr := range c.trials {
		if tr.Correct {
			correct++
		}
	}
	durationMs := now.Sub(c.startedAt).Milliseconds()
	if durationMs < 0 {
		durationMs = 0
	}
	c.summary = model.SessionSummary{
		ID:           c.id,
		Game:         c.game,
		Reason:       reason,
		FinalScore:   c.score,
		LevelReached: c.level,
		Accuracy:     accuracyPct(correct, len(c.trials)),
		StartedAt:    c.startedAt,
		EndedAt:      now,
		DurationMs:   durationMs,
		Trials:       c.trials,
	}
	return &c.summary
}

func accuracyPct(correct, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(correct) / float64(total) * 100
}

// reactionStats walks the trial log for the reaction-time aggregates shared
// by the timed games.
func reactionStats(trials []model.Trial) (avgMs float64, bestMs int64) {
	var sum int64
	var count int
	for _, tr := range trials {
		if !tr.Correct {
			continue
		}
		sum += tr.ReactionMs
		count++
		if bestMs == 0 || tr.ReactionMs < bestMs {
			bestMs = tr.ReactionMs
		}
	}
	if count == 0 {
		return 0, 0
	}
	return float64(sum) / float64(count), bestMs
}

func init() {
	Register(Info{
		ID:          model.GameMemory,
		Title:       "Sequence Memory",
		Description: "Watch the grid light up, then reproduce the sequence.",
		MaxLevel:    200,
		New: func(gen *stimulus.Generator) Machine {
			return NewMemory(gen)
		},
	})
	Register(Info{
		ID:          model.GameReaction,
		Title:       "Reflex Field",
		Description: "Clear every target before the level timer runs out.",
		MaxLevel:    100,
		New: func(gen *stimulus.Generator) Machine {
			return NewReaction(gen)
		},
	})
	Register(Info{
		ID:          model.GameAttention,
		Title:       "Focus Filter",
		Description: "Pick the targets, ignore the noise, beat the clock.",
		MaxLevel:    3,
		New: func(gen *stimulus.Generator) Machine {
			return NewAttention(gen)
		},
	})
	Register(Info{
		ID:          model.GameSwitcher,
		Title:       "Task Switcher",
		Description: "Follow the active rule; it changes when you least expect.",
		MaxLevel:    100,
		New: func(gen *stimulus.Generator) Machine {
			return NewSwitcher(gen)
		},
	})
}
