package session

import (
	"time"

	"github.com/verte-zerg/cogni/internal/metrics"
	"github.com/verte-zerg/cogni/internal/model"
	"github.com/verte-zerg/cogni/internal/stimulus"
)

// blockPassAccuracy is the share of correct trials a level block needs for
// the session to advance instead of ending.
const blockPassAccuracy = 0.5

// Switcher is the task-switching state machine. Each level is a block of
// go/no-go trials under a single rule that changes mid-block with a
// level-dependent probability; responding (or deliberately holding) is
// judged against the active rule. Stimulus exposure expiring counts as a
// hold, which is correct exactly when the rule does not match.
type Switcher struct {
	core
	gen *stimulus.Generator

	spec         stimulus.SwitchSpec
	rule         int
	switched     bool
	stim         model.SwitchStimulus
	trialStart   time.Time
	trialInBlock int
	blockCorrect int
	errors       int
	switches     int
}

// NewSwitcher returns a task-switching machine in the instructions phase.
func NewSwitcher(gen *stimulus.Generator) *Switcher {
	return &Switcher{core: newCore(model.GameSwitcher), gen: gen, rule: -1}
}

// Rule returns the active task rule.
func (s *Switcher) Rule() stimulus.Rule { return stimulus.Rules[s.rule] }

// RuleSwitched reports whether the active trial changed the rule.
func (s *Switcher) RuleSwitched() bool { return s.switched }

// Stimulus returns the active trial's object.
func (s *Switcher) Stimulus() model.SwitchStimulus { return s.stim }

// TrialInBlock returns the 1-based trial position within the level block.
func (s *Switcher) TrialInBlock() int { return s.trialInBlock + 1 }

// BlockSize returns the number of trials in the active level block.
func (s *Switcher) BlockSize() int { return s.spec.TrialsPerLevel }

// Start implements Machine.
func (s *Switcher) Start(now time.Time) {
	if s.phase != PhaseInstructions {
		return
	}
	s.startedAt = now
	s.beginBlock()
	s.beginTrial(now)
}

func (s *Switcher) beginBlock() {
	s.spec = stimulus.SwitchSpecFor(s.level)
	s.trialInBlock = 0
	s.blockCorrect = 0
}

func (s *Switcher) beginTrial(now time.Time) {
	s.rule, s.switched = s.gen.NextRule(s.rule, s.spec)
	if s.switched {
		s.switches++
	}
	s.stim = s.gen.SwitchObject()
	s.trialStart = now
	s.phase = PhaseAwaiting
	s.timerTag++
}

// NextTimer implements Machine: the active trial's exposure window.
func (s *Switcher) NextTimer() (time.Duration, bool) {
	if s.phase != PhaseAwaiting {
		return 0, false
	}
	return time.Duration(s.spec.ExposureMs) * time.Millisecond, true
}

// TimerFired implements Machine. Exposure running out resolves the trial as
// a hold.
func (s *Switcher) TimerFired(tag int, now time.Time) {
	if tag != s.timerTag || s.phase != PhaseAwaiting {
		return
	}
	s.resolve(false, s.spec.ExposureMs, now)
}

// Respond delivers an explicit click (go) or hold (no-go) for the active
// trial. Responses outside the awaiting window are no-ops.
func (s *Switcher) Respond(click bool, now time.Time) {
	if s.phase != PhaseAwaiting {
		return
	}
	rt := now.Sub(s.trialStart).Milliseconds()
	if rt > s.spec.ExposureMs {
		rt = s.spec.ExposureMs
	}
	s.resolve(click, rt, now)
}

func (s *Switcher) resolve(click bool, rtMs int64, now time.Time) {
	correct := click == stimulus.Rules[s.rule].Match(s.stim)
	s.record(now, rtMs, correct, s.switched)
	if correct {
		bonus := s.markCorrect()
		s.score += speedPoints(rtMs, s.level) + bonus
		s.blockCorrect++
	} else {
		s.markIncorrect()
		s.errors++
	}

	s.trialInBlock++
	if s.trialInBlock < s.spec.TrialsPerLevel {
		s.beginTrial(now)
		return
	}

	if float64(s.blockCorrect) < blockPassAccuracy*float64(s.spec.TrialsPerLevel) {
		s.seal(model.EndAccuracy, now)
		return
	}
	if s.level >= metrics.MaxLevelDefault {
		s.seal(model.EndCompleted, now)
		return
	}
	s.level++
	s.beginBlock()
	s.beginTrial(now)
}

func (s *Switcher) seal(reason model.EndReason, now time.Time) {
	summary := s.finish(reason, now)
	rts := make([]int64, len(summary.Trials))
	flags := make([]bool, len(summary.Trials))
	for i, tr := range summary.Trials {
		rts[i] = tr.ReactionMs
		flags[i] = tr.TaskSwitch
	}
	avgRT, bestRT := reactionStats(summary.Trials)
	summary.Derived = model.Derived{
		SwitchCost:           metrics.SwitchCost(rts, flags),
		CognitiveFlexibility: metrics.CognitiveFlexibility(s.errors, avgRT),
		TaskSwitches:         s.switches,
		AvgReactionMs:        avgRT,
		BestReactionMs:       bestRT,
		BestStreak:           s.bestStreak,
	}
}
