// Package stats contains statistics calculations and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/verte-zerg/cogni/internal/model"
)

const sparkChars = " .:-=+*#%@"

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values[1:] {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sparkChars) {
			idx = len(sparkChars) - 1
		}
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// RenderOverview prints the global player summary.
func RenderOverview(w io.Writer, player model.PlayerStats) error {
	if player.GamesPlayed == 0 {
		_, err := fmt.Fprintln(w, "No sessions found.")
		return err
	}
	if _, err := fmt.Fprintln(w, "Overview"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Total Score: %d\n", player.TotalScore); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Games Played: %d\n", player.GamesPlayed); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Sessions Completed: %d\n", player.SessionsCompleted); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Total Time: %d min\n", player.TotalTimeMinutes); err != nil {
		return err
	}
	if player.ReactionCount > 0 {
		if _, err := fmt.Fprintf(w, "Avg Reaction: %.0f ms\n", player.AvgReactionMs); err != nil {
			return err
		}
	}
	for _, game := range model.AllGames() {
		if count := player.GamesPlayedByType[game]; count > 0 {
			if _, err := fmt.Fprintf(w, "  %s: %d\n", game, count); err != nil {
				return err
			}
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderProfileTable prints one row per game profile.
func RenderProfileTable(w io.Writer, profiles []model.GameProfile) error {
	played := make([]model.GameProfile, 0, len(profiles))
	for _, p := range profiles {
		if p.TimesPlayed > 0 {
			played = append(played, p)
		}
	}
	if len(played) == 0 {
		_, err := fmt.Fprintln(w, "No game profiles found.")
		return err
	}
	if _, err := fmt.Fprintln(w, "Per-Game"); err != nil {
		return err
	}
	headers := []string{"Game", "Played", "Best Score", "Best Level", "Avg Reaction (ms)", "Fastest (ms)"}
	rows := make([][]string, 0, len(played))
	for _, p := range played {
		avgReaction := "-"
		if p.ReactionCount > 0 {
			avgReaction = fmt.Sprintf("%.0f", p.AvgReactionMs)
		}
		fastest := "-"
		if p.FastestReactionMs > 0 {
			fastest = fmt.Sprintf("%d", p.FastestReactionMs)
		}
		rows = append(rows, []string{
			string(p.Game),
			fmt.Sprintf("%d", p.TimesPlayed),
			fmt.Sprintf("%d", p.BestScore),
			fmt.Sprintf("%d", p.BestLevel),
			avgReaction,
			fastest,
		})
	}
	rightAlign := map[int]bool{1: true, 2: true, 3: true, 4: true, 5: true}
	for _, line := range formatTable(headers, rows, rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderHistoryTable prints recent sessions, oldest first.
func RenderHistoryTable(w io.Writer, entries []model.HistoryEntry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No session history found.")
		return err
	}
	if _, err := fmt.Fprintln(w, "Recent Sessions"); err != nil {
		return err
	}
	headers := []string{"Played", "Game", "Score", "Level", "Accuracy", "Duration"}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.PlayedAt.Local().Format("2006-01-02 15:04"),
			string(e.Game),
			fmt.Sprintf("%d", e.Score),
			fmt.Sprintf("%d", e.Level),
			fmt.Sprintf("%.1f%%", e.Accuracy),
			formatDuration(e.DurationMs),
		})
	}
	rightAlign := map[int]bool{2: true, 3: true, 4: true, 5: true}
	for _, line := range formatTable(headers, rows, rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderCurves prints progress curves over the session window.
func RenderCurves(w io.Writer, entries []model.HistoryEntry, window int) error {
	return RenderCurvesWithSize(w, entries, window, 0, 10, false)
}

// RenderCurvesWithSize prints progress curves sized to a given total width.
func RenderCurvesWithSize(w io.Writer, entries []model.HistoryEntry, window, totalWidth, height int, useColor bool) error {
	if len(entries) == 0 {
		return nil
	}
	scores := make([]float64, len(entries))
	accs := make([]float64, len(entries))
	for i, e := range entries {
		scores[i] = float64(e.Score)
		accs[i] = e.Accuracy
	}
	scores = MovingAverage(scores, window)
	accs = MovingAverage(accs, window)

	width := 0
	if totalWidth > 0 {
		width = PlotWidthFor(totalWidth)
	}
	return PlotSeriesWithColor(w, "Progress Curves", []Series{
		{Name: "Score", Values: scores},
		{Name: "Accuracy", Values: accs},
	}, width, height, useColor)
}

func formatDuration(ms int64) string {
	seconds := ms / 1000
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}
	return fmt.Sprintf("%dm%02ds", seconds/60, seconds%60)
}
