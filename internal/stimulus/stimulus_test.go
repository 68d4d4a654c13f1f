package stimulus

import (
	"reflect"
	"testing"

	"github.com/verte-zerg/cogni/internal/model"
)

func TestMemorySpecCurve(t *testing.T) {
	cases := []struct {
		level  int
		seqLen int
		showMs int64
	}{
		{1, 3, 598},
		{7, 3, 586},
		{8, 4, 584},
		{16, 5, 568},
		{100, 15, 400},
		{225, 31, 150},
		{0, 3, 598}, // clamped to level 1
	}
	for _, tc := range cases {
		spec := MemorySpecFor(tc.level)
		if spec.SeqLen != tc.seqLen {
			t.Fatalf("level %d: expected seq len %d, got %d", tc.level, tc.seqLen, spec.SeqLen)
		}
		if spec.ShowMs != tc.showMs {
			t.Fatalf("level %d: expected show %dms, got %dms", tc.level, tc.showMs, spec.ShowMs)
		}
	}
}

func TestReactionSpecCurve(t *testing.T) {
	cases := []struct {
		level       int
		targets     int
		distractors int
		limit       int64
		mode        ReactionMode
	}{
		{1, 1, 0, 4970, ModeSimple},
		{10, 2, 2, 4700, ModeSimple},
		{25, 3, 5, 4250, ModeMulti},
		{50, 6, 10, 3500, ModePattern},
		{79, 8, 12, 2630, ModeSequence},
		{150, 8, 12, 1000, ModeMemory},
	}
	for _, tc := range cases {
		spec := ReactionSpecFor(tc.level)
		if spec.Targets != tc.targets || spec.Distractors != tc.distractors {
			t.Fatalf("level %d: expected %d/%d items, got %d/%d",
				tc.level, tc.targets, tc.distractors, spec.Targets, spec.Distractors)
		}
		if spec.TimeLimitMs != tc.limit {
			t.Fatalf("level %d: expected limit %dms, got %dms", tc.level, tc.limit, spec.TimeLimitMs)
		}
		if spec.Mode != tc.mode {
			t.Fatalf("level %d: expected mode %s, got %s", tc.level, tc.mode, spec.Mode)
		}
	}
}

func TestSwitchSpecCurve(t *testing.T) {
	spec := SwitchSpecFor(1)
	if spec.ExposureMs != 2980 || spec.TrialsPerLevel != 10 || spec.RuleCount != 2 {
		t.Fatalf("unexpected level 1 spec: %+v", spec)
	}
	if spec.SwitchProb < 0.107 || spec.SwitchProb > 0.109 {
		t.Fatalf("unexpected level 1 switch prob: %f", spec.SwitchProb)
	}

	spec = SwitchSpecFor(41)
	if spec.RuleCount != 4 {
		t.Fatalf("expected 4 rules at level 41, got %d", spec.RuleCount)
	}

	spec = SwitchSpecFor(200)
	if spec.ExposureMs != 800 {
		t.Fatalf("expected exposure floor 800ms, got %d", spec.ExposureMs)
	}
	if spec.SwitchProb != 0.9 {
		t.Fatalf("expected switch prob cap 0.9, got %f", spec.SwitchProb)
	}
	if spec.TrialsPerLevel != 25 {
		t.Fatalf("expected trials cap 25, got %d", spec.TrialsPerLevel)
	}
	if spec.RuleCount != len(Rules) {
		t.Fatalf("expected rule count capped at %d, got %d", len(Rules), spec.RuleCount)
	}
}

func TestAttentionSpecFixedShape(t *testing.T) {
	spec := AttentionSpecFor(37)
	if spec.Rounds != 3 || spec.ItemsPerRound != 8 {
		t.Fatalf("unexpected attention shape: %+v", spec)
	}
	if spec.TimeLimitMs != 30000 {
		t.Fatalf("expected 30s timer, got %dms", spec.TimeLimitMs)
	}
}

func TestTimingFloorsNeverZero(t *testing.T) {
	for level := 1; level <= 500; level++ {
		if ms := MemorySpecFor(level).ShowMs; ms < 150 {
			t.Fatalf("memory show time below floor at level %d: %d", level, ms)
		}
		if ms := ReactionSpecFor(level).TimeLimitMs; ms < 1000 {
			t.Fatalf("reaction limit below floor at level %d: %d", level, ms)
		}
		if ms := SwitchSpecFor(level).ExposureMs; ms < 800 {
			t.Fatalf("switch exposure below floor at level %d: %d", level, ms)
		}
	}
}

func TestMemorySequenceDeterministic(t *testing.T) {
	spec := MemorySpecFor(12)
	a := NewSeeded(42).MemorySequence(spec)
	b := NewSeeded(42).MemorySequence(spec)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("same seed produced different sequences: %v vs %v", a.Sequence, b.Sequence)
	}
	if len(a.Sequence) != spec.SeqLen {
		t.Fatalf("expected %d cells, got %d", spec.SeqLen, len(a.Sequence))
	}
	for i, cell := range a.Sequence {
		if cell < 0 || cell >= GridCells {
			t.Fatalf("cell %d out of grid: %d", i, cell)
		}
		if i > 0 && cell == a.Sequence[i-1] {
			t.Fatalf("consecutive duplicate cell at %d", i)
		}
	}
}

func TestReactionFieldPlacement(t *testing.T) {
	spec := ReactionSpecFor(55)
	items := NewSeeded(7).ReactionField(spec)
	if len(items) != spec.Targets+spec.Distractors {
		t.Fatalf("expected %d items, got %d", spec.Targets+spec.Distractors, len(items))
	}
	seen := map[[2]int]bool{}
	targets := 0
	for _, item := range items {
		if item.X < 0 || item.X >= FieldWidth || item.Y < 0 || item.Y >= FieldHeight {
			t.Fatalf("item out of field: %+v", item)
		}
		pos := [2]int{item.X, item.Y}
		if seen[pos] {
			t.Fatalf("overlapping items at %v", pos)
		}
		seen[pos] = true
		if item.Target {
			targets++
		}
	}
	if targets != spec.Targets {
		t.Fatalf("expected %d targets, got %d", spec.Targets, targets)
	}
}

func TestAttentionRoundHasTarget(t *testing.T) {
	spec := AttentionSpecFor(1)
	for seed := int64(0); seed < 50; seed++ {
		items := NewSeeded(seed).AttentionRound(spec)
		if len(items) != spec.ItemsPerRound {
			t.Fatalf("seed %d: expected %d items, got %d", seed, spec.ItemsPerRound, len(items))
		}
		targets := 0
		for _, item := range items {
			if item.Target {
				targets++
			}
		}
		if targets == 0 {
			t.Fatalf("seed %d: round without targets", seed)
		}
	}
}

func TestNextRuleStaysInUnlockedPrefix(t *testing.T) {
	spec := SwitchSpecFor(1) // 2 rules, switch prob ~0.108
	g := NewSeeded(3)
	rule, switched := g.NextRule(-1, spec)
	if switched {
		t.Fatalf("first rule must not count as a switch")
	}
	for i := 0; i < 200; i++ {
		next, switched := g.NextRule(rule, spec)
		if next < 0 || next >= spec.RuleCount {
			t.Fatalf("rule %d outside unlocked prefix", next)
		}
		if switched && next == rule {
			t.Fatalf("switch reported without rule change")
		}
		if !switched && next != rule {
			t.Fatalf("rule changed without switch flag")
		}
		rule = next
	}
}

func TestRuleMatchColor(t *testing.T) {
	red := model.SwitchStimulus{Color: "red", Shape: "triangle", Size: "small", Number: 3, Position: 3}
	green := model.SwitchStimulus{Color: "green", Shape: "circle", Size: "large", Number: 4, Position: 0}
	if !Rules[0].Match(red) {
		t.Fatalf("color rule should match red")
	}
	if Rules[0].Match(green) {
		t.Fatalf("color rule should not match green")
	}
}
