// Package tui provides the Bubble Tea play interface.
package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/cogni/internal/aggregate"
	"github.com/verte-zerg/cogni/internal/model"
	"github.com/verte-zerg/cogni/internal/session"
	"github.com/verte-zerg/cogni/internal/stimulus"
	"github.com/verte-zerg/cogni/internal/store"
)

// timerMsg delivers an armed machine timer. The generation pins it to one
// machine instance; the tag pins it to one timed window within that machine.
type timerMsg struct {
	generation int
	tag        int
}

// result holds everything the post-session screen needs.
type result struct {
	summary        model.SessionSummary
	profile        model.GameProfile
	newBest        bool
	improvementPct float64
	hasImprovement bool
	saveErr        string
}

// Model implements the Bubble Tea play UI around a session machine.
type Model struct {
	config  model.Config
	store   *store.Store
	info    session.Info
	machine session.Machine

	// generation counts machine instances; ticks from a discarded machine
	// carry an older generation and are dropped.
	generation int
	armedTag   int

	width  int
	height int

	cursorX int
	cursorY int

	result *result
}

var (
	titleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	footerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	goodStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A"))
	cellStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	flashStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#0B0B0B")).Background(lipgloss.Color("#C89A3A")).Bold(true)
	cursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Underline(true)
	targetStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A")).Bold(true)
	clearedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#3A3A3A"))
	stimulusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
)

// NewModel constructs a play TUI model for the configured game.
func NewModel(cfg model.Config, st *store.Store) (*Model, error) {
	info, ok := session.Get(cfg.Game)
	if !ok {
		return nil, fmt.Errorf("unknown game %q", cfg.Game)
	}
	m := &Model{
		config:   cfg,
		store:    st,
		info:     info,
		armedTag: -1,
	}
	m.machine = info.New(m.newGenerator())
	return m, nil
}

func (m *Model) newGenerator() *stimulus.Generator {
	if m.config.Seed != 0 {
		return stimulus.NewSeeded(m.config.Seed)
	}
	return stimulus.New()
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case timerMsg:
		if msg.generation != m.generation {
			return m, nil
		}
		m.machine.TimerFired(msg.tag, time.Now())
		return m, m.afterEvent()
	case tea.KeyMsg:
		return m.handleKey(msg)
	default:
		return m, nil
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}
	now := time.Now()

	switch m.machine.Phase() {
	case session.PhaseInstructions:
		switch msg.Type {
		case tea.KeyEnter, tea.KeySpace:
			m.machine.Start(now)
			return m, m.afterEvent()
		}
		if msg.String() == "q" {
			return m, tea.Quit
		}
		return m, nil
	case session.PhaseDone:
		switch msg.String() {
		case "r":
			m.restart()
			return m, nil
		case "q", "enter":
			return m, tea.Quit
		}
		return m, nil
	}

	m.handleGameKey(msg, now)
	return m, m.afterEvent()
}

func (m *Model) handleGameKey(msg tea.KeyMsg, now time.Time) {
	gridW, gridH := m.gridSize()
	switch msg.String() {
	case "up", "k":
		m.moveCursor(0, -1, gridW, gridH)
		return
	case "down", "j":
		m.moveCursor(0, 1, gridW, gridH)
		return
	case "left", "h":
		m.moveCursor(-1, 0, gridW, gridH)
		return
	case "right", "l":
		m.moveCursor(1, 0, gridW, gridH)
		return
	}
	if msg.Type != tea.KeyEnter && msg.Type != tea.KeySpace {
		return
	}
	switch machine := m.machine.(type) {
	case *session.Memory:
		machine.Press(m.cursorY*stimulus.GridSize+m.cursorX, now)
	case *session.Reaction:
		if idx := itemAt(machine.Items(), m.cursorX, m.cursorY); idx >= 0 {
			machine.Click(idx, now)
		}
	case *session.Attention:
		if idx := itemAt(machine.Items(), m.cursorX, m.cursorY); idx >= 0 {
			machine.Click(idx, now)
		}
	case *session.Switcher:
		machine.Respond(true, now)
	}
}

func (m *Model) gridSize() (int, int) {
	if m.config.Game == model.GameMemory {
		return stimulus.GridSize, stimulus.GridSize
	}
	return stimulus.FieldWidth, stimulus.FieldHeight
}

func (m *Model) moveCursor(dx, dy, gridW, gridH int) {
	m.cursorX = clamp(m.cursorX+dx, 0, gridW-1)
	m.cursorY = clamp(m.cursorY+dy, 0, gridH-1)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func itemAt(items []model.FieldItem, x, y int) int {
	for i, item := range items {
		if item.X == x && item.Y == y {
			return i
		}
	}
	return -1
}

// afterEvent schedules the machine's pending timer, or finalizes the session
// once it reaches its terminal phase.
func (m *Model) afterEvent() tea.Cmd {
	if m.machine.Phase() == session.PhaseDone {
		m.finalize()
		return nil
	}
	delay, ok := m.machine.NextTimer()
	if !ok {
		return nil
	}
	tag := m.machine.TimerTag()
	if tag == m.armedTag {
		return nil
	}
	m.armedTag = tag
	generation := m.generation
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return timerMsg{generation: generation, tag: tag}
	})
}

// finalize merges the session summary into the persistent profiles exactly
// once and keeps the outcome for the result screen.
func (m *Model) finalize() {
	if m.result != nil {
		return
	}
	summary, ok := m.machine.Summary()
	if !ok {
		return
	}
	res := &result{summary: summary}

	ctx := context.Background()
	prev, err := m.store.LoadProfile(ctx, summary.Game)
	if err != nil {
		res.saveErr = err.Error()
		m.result = res
		return
	}
	playerStats, err := m.store.LoadPlayerStats(ctx)
	if err != nil {
		res.saveErr = err.Error()
		m.result = res
		return
	}

	res.newBest = summary.FinalScore > prev.BestScore
	if pct, ok := aggregate.Improvement(prev, summary.Derived.AvgReactionMs); ok {
		res.improvementPct = pct
		res.hasImprovement = true
	}

	profile, playerStats := aggregate.Merge(prev, playerStats, summary)
	res.profile = profile
	if err := m.store.CommitMerge(ctx, summary, profile, playerStats); err != nil {
		if errors.Is(err, store.ErrAlreadyMerged) {
			m.result = res
			return
		}
		res.saveErr = err.Error()
		logErrf("failed to save session: %v\n", err)
	}
	m.result = res
}

func (m *Model) restart() {
	m.generation++
	m.armedTag = -1
	m.cursorX = 0
	m.cursorY = 0
	m.result = nil
	m.machine = m.info.New(m.newGenerator())
}

// View implements tea.Model.
func (m *Model) View() string {
	var content string
	switch m.machine.Phase() {
	case session.PhaseInstructions:
		content = m.viewInstructions()
	case session.PhaseDone:
		content = m.viewResult()
	default:
		content = m.viewPlay()
	}
	if m.width == 0 || m.height == 0 {
		return content
	}
	footer := m.renderFooter()
	if footer == "" || m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	body := lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return body + "\n" + footerLine
}

func (m *Model) viewInstructions() string {
	lines := []string{
		titleStyle.Render(m.info.Title),
		"",
		m.info.Description,
		"",
		dimStyle.Render("enter to start · q to quit"),
	}
	return strings.Join(lines, "\n")
}

func (m *Model) viewPlay() string {
	var board string
	switch machine := m.machine.(type) {
	case *session.Memory:
		board = m.viewMemory(machine)
	case *session.Reaction:
		board = m.viewField(machine.Items(), machine.Cleared, true)
	case *session.Attention:
		board = m.viewField(machine.Items(), machine.Clicked, false)
	case *session.Switcher:
		board = m.viewSwitcher(machine)
	}
	return titleStyle.Render(m.info.Title) + "\n\n" + board
}

func (m *Model) viewMemory(machine *session.Memory) string {
	showing := machine.Phase() == session.PhaseShowing
	flash := -1
	if showing {
		seq := machine.Sequence()
		if idx := machine.ShowIndex(); idx >= 0 && idx < len(seq) {
			flash = seq[idx]
		}
	}
	grid := renderGrid(stimulus.GridSize, stimulus.GridSize, func(x, y int) (string, lipgloss.Style) {
		cell := y*stimulus.GridSize + x
		if cell == flash {
			return "■", flashStyle
		}
		if !showing && x == m.cursorX && y == m.cursorY {
			return "□", cursorStyle
		}
		return "·", cellStyle
	})
	status := fmt.Sprintf("watch %d/%d", machine.ShowIndex()+1, len(machine.Sequence()))
	if !showing {
		status = fmt.Sprintf("repeat %d/%d", machine.InputPos(), len(machine.Sequence()))
	}
	return grid + "\n" + dimStyle.Render(status)
}

func (m *Model) viewField(items []model.FieldItem, used func(int) bool, showDistractors bool) string {
	grid := renderGrid(stimulus.FieldWidth, stimulus.FieldHeight, func(x, y int) (string, lipgloss.Style) {
		idx := itemAt(items, x, y)
		cursorHere := x == m.cursorX && y == m.cursorY
		if idx < 0 || used(idx) {
			if cursorHere {
				return "·", cursorStyle
			}
			if idx >= 0 {
				return "x", clearedStyle
			}
			return "·", cellStyle
		}
		symbol := "●"
		style := targetStyle
		if !items[idx].Target {
			symbol = "○"
			style = cellStyle
			if !showDistractors {
				// The focus filter renders targets and noise alike; telling
				// them apart is the game.
				symbol = "●"
			}
		}
		if cursorHere {
			style = style.Underline(true)
		}
		return symbol, style
	})
	return grid + "\n" + dimStyle.Render("arrows to move · enter to pick")
}

func (m *Model) viewSwitcher(machine *session.Switcher) string {
	rule := machine.Rule()
	stim := machine.Stimulus()
	lines := []string{
		fmt.Sprintf("Rule: %s", titleStyle.Render(rule.Prompt)),
	}
	if machine.RuleSwitched() {
		lines = append(lines, errorStyle.Render("rule changed!"))
	} else {
		lines = append(lines, "")
	}
	half := "bottom"
	if stim.Position < stimulus.GridSize/2 {
		half = "top"
	}
	lines = append(lines,
		"",
		stimulusStyle.Render(fmt.Sprintf("%d %s %s %s (%s half)", stim.Number, stim.Size, stim.Color, stim.Shape, half)),
		"",
		dimStyle.Render(fmt.Sprintf("trial %d/%d", machine.TrialInBlock(), machine.BlockSize())),
		dimStyle.Render("enter if the rule matches · hold back if not"),
	)
	return strings.Join(lines, "\n")
}

func (m *Model) viewResult() string {
	if m.result == nil {
		return ""
	}
	res := m.result
	lines := []string{
		titleStyle.Render(m.info.Title + ": " + endReasonLabel(res.summary.Reason)),
		"",
		fmt.Sprintf("Score     %d", res.summary.FinalScore),
		fmt.Sprintf("Level     %d", res.summary.LevelReached),
		fmt.Sprintf("Accuracy  %.1f%%", res.summary.Accuracy),
	}
	if res.summary.Derived.AvgReactionMs > 0 {
		lines = append(lines, fmt.Sprintf("Avg RT    %.0f ms", res.summary.Derived.AvgReactionMs))
	}
	if res.summary.Derived.BestStreak > 1 {
		lines = append(lines, fmt.Sprintf("Streak    %d", res.summary.Derived.BestStreak))
	}
	if res.newBest {
		lines = append(lines, "", goodStyle.Render("New best score!"))
	}
	if res.hasImprovement {
		verb := "faster"
		pct := res.improvementPct
		if pct < 0 {
			verb = "slower"
			pct = -pct
		}
		lines = append(lines, dimStyle.Render(fmt.Sprintf("%.1f%% %s than your average", pct, verb)))
	}
	if res.saveErr != "" {
		lines = append(lines, "", errorStyle.Render("not saved: "+res.saveErr))
	}
	lines = append(lines, "", dimStyle.Render("r to play again · q to quit"))
	return strings.Join(lines, "\n")
}

func endReasonLabel(reason model.EndReason) string {
	switch reason {
	case model.EndCompleted:
		return "completed"
	case model.EndLives:
		return "out of lives"
	case model.EndTimeUp:
		return "time up"
	case model.EndAccuracy:
		return "accuracy too low"
	default:
		return "over"
	}
}

func (m *Model) renderFooter() string {
	if m.machine.Phase() == session.PhaseInstructions || m.machine.Phase() == session.PhaseDone {
		return ""
	}
	segments := []string{
		fmt.Sprintf("Score %d", m.machine.Score()),
		fmt.Sprintf("Level %d", m.machine.Level()),
	}
	if streak := m.machine.Streak(); streak > 1 {
		segments = append(segments, fmt.Sprintf("Streak %d", streak))
	}
	if machine, ok := m.machine.(*session.Memory); ok {
		segments = append(segments, fmt.Sprintf("Lives %d", machine.Lives()))
	}
	if machine, ok := m.machine.(*session.Attention); ok {
		segments = append(segments, fmt.Sprintf("Round %d/%d", machine.Round(), machine.Rounds()))
	}
	return footerStyle.Render(strings.Join(segments, "  "))
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
