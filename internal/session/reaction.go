package session

import (
	"time"

	"github.com/verte-zerg/cogni/internal/metrics"
	"github.com/verte-zerg/cogni/internal/model"
	"github.com/verte-zerg/cogni/internal/stimulus"
)

// Reaction is the reflex state machine. Each level shows a field of targets
// and distractors; clearing every target advances the level, and the session
// ends when the level timer expires or level 100 is completed.
type Reaction struct {
	core
	gen *stimulus.Generator

	spec       stimulus.ReactionSpec
	items      []model.FieldItem
	cleared    []bool
	remaining  int
	levelStart time.Time
	trialStart time.Time
	levelTimes []float64
	completed  int
}

// NewReaction returns a reflex machine in the instructions phase.
func NewReaction(gen *stimulus.Generator) *Reaction {
	return &Reaction{core: newCore(model.GameReaction), gen: gen}
}

// Spec returns the active level spec.
func (r *Reaction) Spec() stimulus.ReactionSpec { return r.spec }

// Items returns the active field.
func (r *Reaction) Items() []model.FieldItem { return r.items }

// Cleared reports whether the item at idx has been clicked away.
func (r *Reaction) Cleared(idx int) bool {
	return idx >= 0 && idx < len(r.cleared) && r.cleared[idx]
}

// Start implements Machine.
func (r *Reaction) Start(now time.Time) {
	if r.phase != PhaseInstructions {
		return
	}
	r.startedAt = now
	r.beginLevel(now)
}

func (r *Reaction) beginLevel(now time.Time) {
	r.spec = stimulus.ReactionSpecFor(r.level)
	r.items = r.gen.ReactionField(r.spec)
	r.cleared = make([]bool, len(r.items))
	r.remaining = r.spec.Targets
	r.levelStart = now
	r.trialStart = now
	r.phase = PhaseAwaiting
	r.timerTag++
}

// NextTimer implements Machine: the active level's time limit.
func (r *Reaction) NextTimer() (time.Duration, bool) {
	if r.phase != PhaseAwaiting {
		return 0, false
	}
	return time.Duration(r.spec.TimeLimitMs) * time.Millisecond, true
}

// TimerFired implements Machine. An expired level timer ends the session;
// the unfinished level is recorded as one timed-out trial.
func (r *Reaction) TimerFired(tag int, now time.Time) {
	if tag != r.timerTag || r.phase != PhaseAwaiting {
		return
	}
	r.record(now, r.spec.TimeLimitMs, false, false)
	r.markIncorrect()
	r.seal(model.EndTimeUp, now)
}

// Click delivers one field click by item index. Clicks outside the awaiting
// window, outside the field, or on already-cleared items are no-ops.
func (r *Reaction) Click(idx int, now time.Time) {
	if r.phase != PhaseAwaiting {
		return
	}
	if idx < 0 || idx >= len(r.items) || r.cleared[idx] {
		return
	}
	rt := now.Sub(r.trialStart).Milliseconds()
	if !r.items[idx].Target {
		r.record(now, rt, false, false)
		r.markIncorrect()
		return
	}

	r.cleared[idx] = true
	r.remaining--
	r.record(now, rt, true, false)
	bonus := r.markCorrect()
	r.score += speedPoints(rt, r.level) + bonus
	r.trialStart = now

	if r.remaining > 0 {
		return
	}
	r.levelTimes = append(r.levelTimes, float64(now.Sub(r.levelStart).Milliseconds()))
	r.completed++
	if r.level >= metrics.MaxLevelDefault {
		r.seal(model.EndCompleted, now)
		return
	}
	r.level++
	r.beginLevel(now)
}

func (r *Reaction) seal(reason model.EndReason, now time.Time) {
	summary := r.finish(reason, now)
	avgRT, bestRT := reactionStats(summary.Trials)
	var fastest int64
	for _, t := range r.levelTimes {
		if fastest == 0 || int64(t) < fastest {
			fastest = int64(t)
		}
	}
	summary.Derived = model.Derived{
		Consistency:     metrics.ConsistencyScore(r.levelTimes),
		AvgReactionMs:   avgRT,
		BestReactionMs:  bestRT,
		BestStreak:      r.bestStreak,
		LevelsCompleted: r.completed,
		AvgLevelMs:      metrics.Mean(r.levelTimes),
		FastestLevelMs:  fastest,
	}
}
