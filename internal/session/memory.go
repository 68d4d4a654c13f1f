package session

import (
	"time"

	"github.com/verte-zerg/cogni/internal/metrics"
	"github.com/verte-zerg/cogni/internal/model"
	"github.com/verte-zerg/cogni/internal/stimulus"
)

// Memory is the sequence-memory state machine. The grid flashes a sequence
// cell by cell, then the player reproduces it. A mistake costs a life but
// the level still counts as attempted and the session moves on; the session
// ends when lives run out or level 200 is completed.
type Memory struct {
	core
	gen *stimulus.Generator

	lives      int
	spec       stimulus.MemorySpec
	stim       model.MemoryStimulus
	showIdx    int
	inputPos   int
	awaitStart time.Time
	levelTimes []float64
	completed  int
	mistakeAt  int // input position of the last mistake, for the result view
}

// NewMemory returns a sequence-memory machine in the instructions phase.
func NewMemory(gen *stimulus.Generator) *Memory {
	return &Memory{core: newCore(model.GameMemory), gen: gen, lives: startingLives, mistakeAt: -1}
}

// Lives returns the remaining lives.
func (m *Memory) Lives() int { return m.lives }

// Sequence returns the active stimulus sequence.
func (m *Memory) Sequence() []int { return m.stim.Sequence }

// ShowIndex returns the index of the cell currently flashed, or -1 outside
// the showing phase.
func (m *Memory) ShowIndex() int {
	if m.phase != PhaseShowing {
		return -1
	}
	return m.showIdx
}

// InputPos returns how many cells of the sequence have been reproduced.
func (m *Memory) InputPos() int { return m.inputPos }

// Start implements Machine.
func (m *Memory) Start(now time.Time) {
	if m.phase != PhaseInstructions {
		return
	}
	m.startedAt = now
	m.beginLevel()
}

func (m *Memory) beginLevel() {
	m.spec = stimulus.MemorySpecFor(m.level)
	m.stim = m.gen.MemorySequence(m.spec)
	m.showIdx = 0
	m.inputPos = 0
	m.phase = PhaseShowing
	m.timerTag++
}

// NextTimer implements Machine.
func (m *Memory) NextTimer() (time.Duration, bool) {
	switch m.phase {
	case PhaseShowing:
		return time.Duration(m.stim.ShowMs) * time.Millisecond, true
	case PhaseFeedback:
		return feedbackDelay, true
	default:
		return 0, false
	}
}

// TimerFired implements Machine. It advances sequence playback and ends the
// post-trial feedback pause.
func (m *Memory) TimerFired(tag int, now time.Time) {
	if tag != m.timerTag {
		return
	}
	switch m.phase {
	case PhaseShowing:
		m.showIdx++
		m.timerTag++
		if m.showIdx >= len(m.stim.Sequence) {
			m.phase = PhaseAwaiting
			m.awaitStart = now
		}
	case PhaseFeedback:
		m.advanceLevel(now)
	}
}

// Press delivers one grid-cell press. Input outside the awaiting window, or
// outside the grid, is a silent no-op.
func (m *Memory) Press(cell int, now time.Time) {
	if m.phase != PhaseAwaiting {
		return
	}
	if cell < 0 || cell >= stimulus.GridCells {
		return
	}
	if cell == m.stim.Sequence[m.inputPos] {
		m.inputPos++
		if m.inputPos < len(m.stim.Sequence) {
			return
		}
		rt := now.Sub(m.awaitStart).Milliseconds()
		m.record(now, rt, true, false)
		m.markCorrect()
		m.score += 10 * m.level
		m.levelTimes = append(m.levelTimes, float64(rt))
		m.completed++
		m.mistakeAt = -1
		m.phase = PhaseFeedback
		m.timerTag++
		return
	}

	// Wrong cell: lose a life, but the level still counts as attempted.
	m.lives--
	m.mistakeAt = m.inputPos
	m.record(now, now.Sub(m.awaitStart).Milliseconds(), false, false)
	m.markIncorrect()
	if m.lives <= 0 {
		m.seal(model.EndLives, now)
		return
	}
	m.phase = PhaseFeedback
	m.timerTag++
}

func (m *Memory) advanceLevel(now time.Time) {
	if m.level >= metrics.MaxLevelMemory {
		m.seal(model.EndCompleted, now)
		return
	}
	m.level++
	m.beginLevel()
}

func (m *Memory) seal(reason model.EndReason, now time.Time) {
	summary := m.finish(reason, now)
	avgLevel := metrics.Mean(m.levelTimes)
	var fastest int64
	for _, t := range m.levelTimes {
		if fastest == 0 || int64(t) < fastest {
			fastest = int64(t)
		}
	}
	summary.Derived = model.Derived{
		Consistency:     metrics.ConsistencyScore(m.levelTimes),
		LevelsCompleted: m.completed,
		AvgLevelMs:      avgLevel,
		FastestLevelMs:  fastest,
		BestStreak:      m.bestStreak,
	}
}
