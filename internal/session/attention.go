package session

import (
	"time"

	"github.com/verte-zerg/cogni/internal/metrics"
	"github.com/verte-zerg/cogni/internal/model"
	"github.com/verte-zerg/cogni/internal/stimulus"
)

// Attention is the focus-filter state machine: three rounds of eight items
// under one 30-second timer. Correct clicks score +10, wrong clicks -5 with
// the cumulative score floored at 0.
type Attention struct {
	core
	gen *stimulus.Generator

	spec      stimulus.AttentionSpec
	items     []model.FieldItem
	clicked   []bool
	remaining int
	round     int
	lastEvent time.Time
}

// NewAttention returns a focus-filter machine in the instructions phase.
func NewAttention(gen *stimulus.Generator) *Attention {
	return &Attention{core: newCore(model.GameAttention), gen: gen}
}

// Round returns the 1-based active round.
func (a *Attention) Round() int { return a.round + 1 }

// Rounds returns the total round count.
func (a *Attention) Rounds() int { return a.spec.Rounds }

// Items returns the active round's field.
func (a *Attention) Items() []model.FieldItem { return a.items }

// Clicked reports whether the item at idx has already been clicked.
func (a *Attention) Clicked(idx int) bool {
	return idx >= 0 && idx < len(a.clicked) && a.clicked[idx]
}

// Deadline returns the session's fixed end time.
func (a *Attention) Deadline() time.Time {
	return a.startedAt.Add(time.Duration(a.spec.TimeLimitMs) * time.Millisecond)
}

// Start implements Machine.
func (a *Attention) Start(now time.Time) {
	if a.phase != PhaseInstructions {
		return
	}
	a.spec = stimulus.AttentionSpecFor(1)
	a.startedAt = now
	a.lastEvent = now
	a.beginRound()
	a.timerTag++
}

func (a *Attention) beginRound() {
	a.items = a.gen.AttentionRound(a.spec)
	a.clicked = make([]bool, len(a.items))
	a.remaining = 0
	for _, item := range a.items {
		if item.Target {
			a.remaining++
		}
	}
	a.phase = PhaseAwaiting
}

// NextTimer implements Machine: the single session-wide countdown, armed
// once at start.
func (a *Attention) NextTimer() (time.Duration, bool) {
	if a.phase != PhaseAwaiting || a.round > 0 {
		return 0, false
	}
	return time.Duration(a.spec.TimeLimitMs) * time.Millisecond, true
}

// TimerFired implements Machine. The session timer ends the session wherever
// it stands.
func (a *Attention) TimerFired(tag int, now time.Time) {
	if tag != a.timerTag || a.phase != PhaseAwaiting {
		return
	}
	a.seal(model.EndTimeUp, now)
}

// Click delivers one field click by item index. Repeat clicks and clicks
// outside the field are no-ops.
func (a *Attention) Click(idx int, now time.Time) {
	if a.phase != PhaseAwaiting {
		return
	}
	if idx < 0 || idx >= len(a.items) || a.clicked[idx] {
		return
	}
	a.clicked[idx] = true
	rt := now.Sub(a.lastEvent).Milliseconds()
	a.lastEvent = now

	if !a.items[idx].Target {
		a.record(now, rt, false, false)
		a.markIncorrect()
		a.score -= 5
		if a.score < 0 {
			a.score = 0
		}
		return
	}

	a.record(now, rt, true, false)
	a.markCorrect()
	a.score += 10
	a.remaining--
	if a.remaining > 0 {
		return
	}
	a.round++
	a.level = a.round
	if a.round >= a.spec.Rounds {
		a.seal(model.EndCompleted, now)
		return
	}
	a.beginRound()
}

func (a *Attention) seal(reason model.EndReason, now time.Time) {
	summary := a.finish(reason, now)
	correct := 0
	for _, tr := range summary.Trials {
		if tr.Correct {
			correct++
		}
	}
	avgRT, bestRT := reactionStats(summary.Trials)
	summary.LevelReached = a.round
	summary.Derived = model.Derived{
		FocusEfficiency: metrics.FocusEfficiency(correct, len(summary.Trials), summary.DurationMs),
		AvgReactionMs:   avgRT,
		BestReactionMs:  bestRT,
		BestStreak:      a.bestStreak,
		LevelsCompleted: a.round,
	}
}
