package session

import (
	"testing"
	"time"

	"github.com/verte-zerg/cogni/internal/model"
	"github.com/verte-zerg/cogni/internal/stimulus"
)

var base = time.Unix(1700000000, 0)

func at(ms int64) time.Time {
	return base.Add(time.Duration(ms) * time.Millisecond)
}

// playSequence drives the showing phase to its end and reproduces the first
// n cells of the sequence correctly.
func playSequence(t *testing.T, m *Memory, n int, now time.Time) {
	t.Helper()
	for m.Phase() == PhaseShowing {
		m.TimerFired(m.TimerTag(), now)
	}
	if m.Phase() != PhaseAwaiting {
		t.Fatalf("expected awaiting phase after playback, got %d", m.Phase())
	}
	seq := m.Sequence()
	for i := 0; i < n && i < len(seq); i++ {
		m.Press(seq[i], now)
	}
}

func TestMemoryLevelOneAdvance(t *testing.T) {
	m := NewMemory(stimulus.NewSeeded(1))
	m.Start(at(0))

	if got := len(m.Sequence()); got != 3 {
		t.Fatalf("level 1 sequence length = %d, want 3", got)
	}
	playSequence(t, m, 3, at(2000))

	if m.Score() != 10 {
		t.Fatalf("score = %d, want 10", m.Score())
	}
	if m.Lives() != startingLives {
		t.Fatalf("lives = %d, want %d", m.Lives(), startingLives)
	}
	if m.Phase() != PhaseFeedback {
		t.Fatalf("expected feedback phase, got %d", m.Phase())
	}
	m.TimerFired(m.TimerTag(), at(3000))
	if m.Level() != 2 {
		t.Fatalf("level = %d, want 2", m.Level())
	}
	if m.Phase() != PhaseShowing {
		t.Fatalf("expected next sequence playback, got phase %d", m.Phase())
	}
}

func TestMemoryLivesTerminal(t *testing.T) {
	m := NewMemory(stimulus.NewSeeded(2))
	m.Start(at(0))

	for i := 0; i < startingLives; i++ {
		for m.Phase() == PhaseShowing {
			m.TimerFired(m.TimerTag(), at(int64(i)*1000))
		}
		seq := m.Sequence()
		wrong := (seq[0] + 1) % stimulus.GridCells
		if wrong == seq[0] {
			t.Fatalf("failed to pick a wrong cell")
		}
		m.Press(wrong, at(int64(i)*1000+500))
		if m.Phase() == PhaseFeedback {
			m.TimerFired(m.TimerTag(), at(int64(i)*1000+900))
		}
	}

	if m.Lives() != 0 {
		t.Fatalf("lives = %d, want 0", m.Lives())
	}
	summary, done := m.Summary()
	if !done {
		t.Fatalf("expected terminal session")
	}
	if summary.Reason != model.EndLives {
		t.Fatalf("reason = %s, want %s", summary.Reason, model.EndLives)
	}
	if len(summary.Trials) != startingLives {
		t.Fatalf("trials = %d, want %d", len(summary.Trials), startingLives)
	}
}

func TestMemoryMistakeStillAdvancesLevel(t *testing.T) {
	m := NewMemory(stimulus.NewSeeded(3))
	m.Start(at(0))
	for m.Phase() == PhaseShowing {
		m.TimerFired(m.TimerTag(), at(100))
	}
	seq := m.Sequence()
	m.Press((seq[0]+1)%stimulus.GridCells, at(600))

	if m.Lives() != startingLives-1 {
		t.Fatalf("lives = %d, want %d", m.Lives(), startingLives-1)
	}
	m.TimerFired(m.TimerTag(), at(1400))
	if m.Level() != 2 {
		t.Fatalf("attempted level should still advance, level = %d", m.Level())
	}
}

func TestMemoryLateAndMalformedInputIgnored(t *testing.T) {
	m := NewMemory(stimulus.NewSeeded(4))
	m.Start(at(0))

	// Input during sequence playback is outside the response window.
	m.Press(m.Sequence()[0], at(50))
	if len(m.trials) != 0 || m.Score() != 0 {
		t.Fatalf("playback-phase press mutated state")
	}

	for m.Phase() == PhaseShowing {
		m.TimerFired(m.TimerTag(), at(100))
	}
	// Clicks outside the grid are no-ops, not faults.
	m.Press(-1, at(200))
	m.Press(stimulus.GridCells, at(200))
	if len(m.trials) != 0 || m.Lives() != startingLives {
		t.Fatalf("malformed press mutated state")
	}
}

func TestMemoryStaleTimerIgnored(t *testing.T) {
	m := NewMemory(stimulus.NewSeeded(5))
	m.Start(at(0))
	stale := m.TimerTag()
	m.TimerFired(m.TimerTag(), at(100)) // legitimate advance
	before := m.ShowIndex()
	m.TimerFired(stale, at(200)) // stale tag must no-op
	if m.ShowIndex() != before {
		t.Fatalf("stale timer advanced playback")
	}
}

func TestReactionLevelClear(t *testing.T) {
	r := NewReaction(stimulus.NewSeeded(6))
	r.Start(at(0))

	spec := r.Spec()
	if spec.Targets != 1 || spec.Distractors != 0 {
		t.Fatalf("unexpected level 1 spec: %+v", spec)
	}
	r.Click(0, at(400))

	// base max(1000-400, 100)=600, multiplier 1.05, no streak bonus yet.
	if r.Score() != 630 {
		t.Fatalf("score = %d, want 630", r.Score())
	}
	if r.Level() != 2 {
		t.Fatalf("level = %d, want 2", r.Level())
	}
	if r.Streak() != 1 {
		t.Fatalf("streak = %d, want 1", r.Streak())
	}
}

func TestReactionDistractorResetsStreak(t *testing.T) {
	r := NewReaction(stimulus.NewSeeded(7))
	r.Start(at(0))
	now := int64(0)
	// Climb until the field contains a distractor.
	for {
		idx := -1
		for i, item := range r.Items() {
			if !item.Target {
				idx = i
				break
			}
		}
		if idx >= 0 {
			if r.Streak() == 0 {
				t.Fatalf("expected a running streak before the distractor")
			}
			r.Click(idx, at(now))
			if r.Streak() != 0 {
				t.Fatalf("streak = %d after distractor, want 0", r.Streak())
			}
			return
		}
		for i, item := range r.Items() {
			if item.Target && !r.Cleared(i) {
				now += 300
				r.Click(i, at(now))
			}
		}
	}
}

func TestReactionTimeoutTerminal(t *testing.T) {
	r := NewReaction(stimulus.NewSeeded(8))
	r.Start(at(0))
	r.TimerFired(r.TimerTag(), at(int64(r.Spec().TimeLimitMs)))

	summary, done := r.Summary()
	if !done {
		t.Fatalf("expected terminal session")
	}
	if summary.Reason != model.EndTimeUp {
		t.Fatalf("reason = %s, want %s", summary.Reason, model.EndTimeUp)
	}
	if len(summary.Trials) != 1 || summary.Trials[0].Correct {
		t.Fatalf("timeout must record one incorrect trial, got %+v", summary.Trials)
	}

	// The machine is not re-enterable after the terminal state.
	r.Click(0, at(99999))
	again, _ := r.Summary()
	if len(again.Trials) != 1 {
		t.Fatalf("post-terminal input mutated the summary")
	}
}

func TestAttentionScoring(t *testing.T) {
	a := NewAttention(stimulus.NewSeeded(9))
	a.Start(at(0))

	target, distractor := -1, -1
	for i, item := range a.Items() {
		if item.Target && target < 0 {
			target = i
		}
		if !item.Target && distractor < 0 {
			distractor = i
		}
	}
	if target < 0 || distractor < 0 {
		t.Fatalf("round should contain both targets and distractors")
	}

	// Wrong click first: score is clamped at 0, never negative.
	a.Click(distractor, at(500))
	if a.Score() != 0 {
		t.Fatalf("score = %d, want clamp at 0", a.Score())
	}
	if a.Streak() != 0 {
		t.Fatalf("wrong click should reset streak")
	}

	a.Click(target, at(900))
	if a.Score() != 10 {
		t.Fatalf("score = %d, want 10", a.Score())
	}
	a.Click(distractor, at(1200)) // repeat click is a no-op
	if a.Score() != 10 {
		t.Fatalf("repeat click mutated score: %d", a.Score())
	}
}

func TestAttentionTimeUp(t *testing.T) {
	a := NewAttention(stimulus.NewSeeded(10))
	a.Start(at(0))
	a.TimerFired(a.TimerTag(), at(30000))
	summary, done := a.Summary()
	if !done || summary.Reason != model.EndTimeUp {
		t.Fatalf("expected timeup terminal, got done=%v reason=%s", done, summary.Reason)
	}
}

func TestAttentionCompletesAfterThreeRounds(t *testing.T) {
	a := NewAttention(stimulus.NewSeeded(11))
	a.Start(at(0))
	now := int64(0)
	for a.Phase() == PhaseAwaiting {
		progressed := false
		for i, item := range a.Items() {
			if item.Target && !a.Clicked(i) {
				now += 200
				a.Click(i, at(now))
				progressed = true
				break
			}
		}
		if !progressed {
			t.Fatalf("no clickable target left before terminal state")
		}
	}
	summary, done := a.Summary()
	if !done || summary.Reason != model.EndCompleted {
		t.Fatalf("expected completed terminal, got done=%v reason=%s", done, summary.Reason)
	}
	if summary.LevelReached != 3 {
		t.Fatalf("rounds completed = %d, want 3", summary.LevelReached)
	}
	if summary.FinalScore != 10*len(summary.Trials) {
		t.Fatalf("score = %d for %d correct clicks", summary.FinalScore, len(summary.Trials))
	}
}

func TestSwitcherRuleJudgement(t *testing.T) {
	s := NewSwitcher(stimulus.NewSeeded(12))
	s.Start(at(0))

	// Pin the color rule and a red stimulus for a deterministic judgement.
	s.rule = 0
	s.stim = model.SwitchStimulus{Color: "red", Shape: "triangle", Size: "small", Number: 3, Position: 3}
	s.Respond(true, at(350))

	if len(s.trials) != 1 || !s.trials[0].Correct {
		t.Fatalf("click on red under the color rule must be correct")
	}
	if s.Streak() != 1 {
		t.Fatalf("streak = %d, want 1", s.Streak())
	}

	// Same setup, but holding is incorrect and resets the streak.
	s.rule = 0
	s.stim = model.SwitchStimulus{Color: "red", Shape: "triangle", Size: "small", Number: 3, Position: 3}
	s.Respond(false, at(700))
	if s.trials[1].Correct {
		t.Fatalf("hold on red under the color rule must be incorrect")
	}
	if s.Streak() != 0 {
		t.Fatalf("streak = %d after incorrect response, want 0", s.Streak())
	}
}

func TestSwitcherExposureTimeoutIsHold(t *testing.T) {
	s := NewSwitcher(stimulus.NewSeeded(13))
	s.Start(at(0))
	s.rule = 2 // size rule
	s.stim = model.SwitchStimulus{Color: "green", Shape: "circle", Size: "small", Number: 5, Position: 0}
	s.TimerFired(s.TimerTag(), at(s.spec.ExposureMs))

	// Small object, size rule says hold: the timeout hold is correct.
	if len(s.trials) != 1 || !s.trials[0].Correct {
		t.Fatalf("timeout hold on a non-matching stimulus must be correct")
	}
	if s.trials[0].ReactionMs != s.spec.ExposureMs {
		t.Fatalf("timeout trial rt = %d, want full exposure %d", s.trials[0].ReactionMs, s.spec.ExposureMs)
	}
}

func TestSwitcherSwitchCostBaseline(t *testing.T) {
	s := NewSwitcher(stimulus.NewSeeded(14))
	s.Start(at(0))
	now := int64(0)
	for s.Phase() == PhaseAwaiting {
		now += 100
		// Always answer correctly so the session survives block checks.
		s.Respond(stimulus.Rules[s.rule].Match(s.stim), at(now))
		if len(s.trials) >= 60 {
			break
		}
	}
	switches := 0
	for i, tr := range s.trials {
		if tr.TaskSwitch {
			switches++
			if i == 0 {
				t.Fatalf("first trial can never be a switch")
			}
		}
	}
	if switches == 0 {
		t.Fatalf("expected at least one switch in 60 trials")
	}
	if s.switches != switches {
		t.Fatalf("switch counter %d disagrees with trial flags %d", s.switches, switches)
	}
}

func TestSwitcherBlockFailureTerminal(t *testing.T) {
	s := NewSwitcher(stimulus.NewSeeded(15))
	s.Start(at(0))
	block := s.BlockSize()
	now := int64(0)
	for i := 0; i < block; i++ {
		now += 100
		// Always answer wrongly.
		s.Respond(!stimulus.Rules[s.rule].Match(s.stim), at(now))
	}
	summary, done := s.Summary()
	if !done || summary.Reason != model.EndAccuracy {
		t.Fatalf("expected accuracy terminal after a failed block, got done=%v reason=%s", done, summary.Reason)
	}
	if summary.LevelReached != 1 {
		t.Fatalf("level = %d, want 1", summary.LevelReached)
	}
}

func TestSummaryProducedExactlyOnce(t *testing.T) {
	r := NewReaction(stimulus.NewSeeded(16))
	if _, done := r.Summary(); done {
		t.Fatalf("summary available before terminal state")
	}
	r.Start(at(0))
	r.TimerFired(r.TimerTag(), at(5000))
	first, done := r.Summary()
	if !done {
		t.Fatalf("expected terminal session")
	}
	second, _ := r.Summary()
	if first.ID != second.ID || len(first.Trials) != len(second.Trials) {
		t.Fatalf("summary changed between reads")
	}
}

func TestRegistryListsAllGames(t *testing.T) {
	infos := List()
	if len(infos) != 4 {
		t.Fatalf("expected 4 registered games, got %d", len(infos))
	}
	want := model.AllGames()
	for i, info := range infos {
		if info.ID != want[i] {
			t.Fatalf("game %d = %s, want %s", i, info.ID, want[i])
		}
		m := info.New(stimulus.NewSeeded(int64(i)))
		if m.Phase() != PhaseInstructions {
			t.Fatalf("%s: new machine should start in instructions", info.ID)
		}
	}
}

func TestDeterministicReplay(t *testing.T) {
	run := func() model.SessionSummary {
		m := NewMemory(stimulus.NewSeeded(99))
		m.Start(at(0))
		playSequence(t, m, 3, at(1000))
		m.TimerFired(m.TimerTag(), at(1800))
		for m.Phase() == PhaseShowing {
			m.TimerFired(m.TimerTag(), at(2000))
		}
		// Fail out the remaining lives.
		for i := 0; i < startingLives; i++ {
			seq := m.Sequence()
			m.Press((seq[0]+1)%stimulus.GridCells, at(3000+int64(i)*1000))
			if m.Phase() == PhaseFeedback {
				m.TimerFired(m.TimerTag(), at(3500+int64(i)*1000))
				for m.Phase() == PhaseShowing {
					m.TimerFired(m.TimerTag(), at(3800+int64(i)*1000))
				}
			}
		}
		summary, done := m.Summary()
		if !done {
			t.Fatalf("expected terminal session")
		}
		return summary
	}
	a := run()
	b := run()
	if a.FinalScore != b.FinalScore || a.LevelReached != b.LevelReached || len(a.Trials) != len(b.Trials) {
		t.Fatalf("identical seeds diverged: %+v vs %+v", a, b)
	}
}
