// Package stimulus builds per-trial specs and stimuli from difficulty levels.
package stimulus

import (
	"math/rand"
	"time"

	"github.com/verte-zerg/cogni/internal/model"
)

// Grid and field dimensions.
const (
	GridSize    = 4 // memory board is a fixed 4x4 grid
	GridCells   = GridSize * GridSize
	FieldWidth  = 8
	FieldHeight = 4
)

// ReactionMode selects the reflex-game variant for a level band.
type ReactionMode string

// Reflex variants, ordered by the level band that unlocks them.
const (
	ModeSimple   ReactionMode = "simple"
	ModeMulti    ReactionMode = "multi"
	ModePattern  ReactionMode = "pattern"
	ModeSequence ReactionMode = "sequence"
	ModeMemory   ReactionMode = "memory"
)

// MemorySpec describes one sequence-memory level.
type MemorySpec struct {
	Level  int
	SeqLen int
	ShowMs int64
}

// ReactionSpec describes one reflex level.
type ReactionSpec struct {
	Level       int
	Targets     int
	Distractors int
	TimeLimitMs int64
	Mode        ReactionMode
}

// SwitchSpec describes one task-switching level.
type SwitchSpec struct {
	Level          int
	ExposureMs     int64
	SwitchProb     float64
	TrialsPerLevel int
	RuleCount      int
}

// AttentionSpec describes a focus-filter session. The shape is fixed; it does
// not scale with level.
type AttentionSpec struct {
	Rounds        int
	ItemsPerRound int
	TargetRate    float64
	TimeLimitMs   int64
}

func clampLevel(level int) int {
	if level < 1 {
		return 1
	}
	return level
}

// MemorySpecFor returns the sequence-memory spec for a level.
func MemorySpecFor(level int) MemorySpec {
	level = clampLevel(level)
	showMs := int64(600 - 2*level)
	if showMs < 150 {
		showMs = 150
	}
	return MemorySpec{
		Level:  level,
		SeqLen: 3 + level/8,
		ShowMs: showMs,
	}
}

// ReactionSpecFor returns the reflex spec for a level.
func ReactionSpecFor(level int) ReactionSpec {
	level = clampLevel(level)
	targets := 1 + level/10
	if targets > 8 {
		targets = 8
	}
	distractors := level / 5
	if distractors > 12 {
		distractors = 12
	}
	limit := int64(5000 - 30*level)
	if limit < 1000 {
		limit = 1000
	}
	return ReactionSpec{
		Level:       level,
		Targets:     targets,
		Distractors: distractors,
		TimeLimitMs: limit,
		Mode:        reactionMode(level),
	}
}

func reactionMode(level int) ReactionMode {
	switch {
	case level < 20:
		return ModeSimple
	case level < 40:
		return ModeMulti
	case level < 60:
		return ModePattern
	case level < 80:
		return ModeSequence
	default:
		return ModeMemory
	}
}

// SwitchSpecFor returns the task-switching spec for a level.
func SwitchSpecFor(level int) SwitchSpec {
	level = clampLevel(level)
	exposure := int64(3000 - 20*level)
	if exposure < 800 {
		exposure = 800
	}
	prob := 0.1 + 0.008*float64(level)
	if prob > 0.9 {
		prob = 0.9
	}
	trials := 10 + level/10
	if trials > 25 {
		trials = 25
	}
	rules := (level-1)/20 + 2
	if rules > len(Rules) {
		rules = len(Rules)
	}
	return SwitchSpec{
		Level:          level,
		ExposureMs:     exposure,
		SwitchProb:     prob,
		TrialsPerLevel: trials,
		RuleCount:      rules,
	}
}

// AttentionSpecFor returns the focus-filter spec. Level does not change the
// shape but is clamped for symmetry with the other games.
func AttentionSpecFor(level int) AttentionSpec {
	_ = clampLevel(level)
	return AttentionSpec{
		Rounds:        3,
		ItemsPerRound: 8,
		TargetRate:    0.4,
		TimeLimitMs:   30000,
	}
}

// Generator produces randomized stimuli.
type Generator struct {
	rnd *rand.Rand
}

// New returns a Generator seeded with the current time.
func New() *Generator {
	return NewSeeded(time.Now().UnixNano())
}

// NewSeeded returns a Generator with a fixed seed. Identical seeds reproduce
// identical sessions.
func NewSeeded(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

// MemorySequence generates cell indices on the 4x4 grid for one level.
// Consecutive cells are always distinct so every flash is visible.
func (g *Generator) MemorySequence(spec MemorySpec) model.MemoryStimulus {
	seq := make([]int, spec.SeqLen)
	prev := -1
	for i := range seq {
		cell := g.rnd.Intn(GridCells)
		for cell == prev {
			cell = g.rnd.Intn(GridCells)
		}
		seq[i] = cell
		prev = cell
	}
	return model.MemoryStimulus{Sequence: seq, ShowMs: spec.ShowMs}
}

// ReactionField places targets and distractors on distinct field cells.
func (g *Generator) ReactionField(spec ReactionSpec) []model.FieldItem {
	return g.placeItems(spec.Targets, spec.Distractors)
}

// AttentionRound places one round of items; roughly TargetRate of the items
// are targets, with at least one target guaranteed.
func (g *Generator) AttentionRound(spec AttentionSpec) []model.FieldItem {
	items := g.placeItems(0, spec.ItemsPerRound)
	targets := 0
	for i := range items {
		if g.rnd.Float64() < spec.TargetRate {
			items[i].Target = true
			targets++
		}
	}
	if targets == 0 && len(items) > 0 {
		items[g.rnd.Intn(len(items))].Target = true
	}
	return items
}

func (g *Generator) placeItems(targets, distractors int) []model.FieldItem {
	total := targets + distractors
	if total > FieldWidth*FieldHeight {
		total = FieldWidth * FieldHeight
	}
	cells := g.rnd.Perm(FieldWidth * FieldHeight)[:total]
	items := make([]model.FieldItem, total)
	for i, cell := range cells {
		items[i] = model.FieldItem{
			X:      cell % FieldWidth,
			Y:      cell / FieldWidth,
			Target: i < targets,
		}
	}
	return items
}

var (
	shapes = []string{"circle", "square", "triangle", "star"}
	colors = []string{"red", "blue", "green", "yellow"}
	sizes  = []string{"small", "large"}
)

// SwitchObject generates one multi-attribute object for the task switcher.
func (g *Generator) SwitchObject() model.SwitchStimulus {
	return model.SwitchStimulus{
		Shape:    shapes[g.rnd.Intn(len(shapes))],
		Color:    colors[g.rnd.Intn(len(colors))],
		Size:     sizes[g.rnd.Intn(len(sizes))],
		Number:   1 + g.rnd.Intn(9),
		Position: g.rnd.Intn(4),
	}
}

// NextRule picks the rule for the next trial. The rule changes with
// probability spec.SwitchProb, and a change always lands on a different rule
// among the first spec.RuleCount rules.
func (g *Generator) NextRule(prev int, spec SwitchSpec) (rule int, switched bool) {
	count := spec.RuleCount
	if count > len(Rules) {
		count = len(Rules)
	}
	if count < 2 {
		return 0, false
	}
	if prev < 0 || prev >= count {
		return g.rnd.Intn(count), false
	}
	if g.rnd.Float64() >= spec.SwitchProb {
		return prev, false
	}
	next := g.rnd.Intn(count - 1)
	if next >= prev {
		next++
	}
	return next, true
}
