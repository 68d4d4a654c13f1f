// Package metrics contains the pure formulas used in session summaries and
// profile aggregation. Every formula defaults division-by-zero cases to 0 so
// no persisted field can ever hold NaN or Inf.
package metrics

import "math"

// Max levels used for progress reporting.
const (
	MaxLevelMemory  = 200
	MaxLevelDefault = 100
)

// Accuracy returns correct/total as a percentage in [0, 100].
func Accuracy(correct, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(correct) / float64(total) * 100
}

// Mean returns the arithmetic mean, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev returns the population standard deviation, or 0 for fewer than two
// samples.
func StdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := Mean(values)
	var sumSq float64
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(len(values)))
}

// ConsistencyScore rates how uniform round times are: 100 minus the
// coefficient of variation as a percentage, floored at 0. Fewer than two
// samples score a perfect 100.
func ConsistencyScore(roundTimes []float64) float64 {
	if len(roundTimes) < 2 {
		return 100
	}
	mean := Mean(roundTimes)
	if mean == 0 {
		return 100
	}
	score := 100 - (StdDev(roundTimes)/mean)*100
	if score < 0 {
		return 0
	}
	return score
}

// FocusEfficiency blends accuracy (70%) and response speed (30%) into a
// 0-100 score. Speed is responses per second of average correct-response
// latency; it is 0 when there are no correct responses or no elapsed time.
func FocusEfficiency(correct, total int, elapsedMs int64) float64 {
	if total <= 0 {
		return 0
	}
	accuracy := float64(correct) / float64(total)
	speed := 0.0
	if correct > 0 && elapsedMs > 0 {
		speed = 1000 / (float64(elapsedMs) / float64(correct))
	}
	efficiency := (accuracy*0.7 + speed*0.3) * 100
	if efficiency > 100 {
		return 100
	}
	return efficiency
}

// CognitiveFlexibility penalizes errors and slow responses, floored at 0.
func CognitiveFlexibility(errorCount int, avgReactionMs float64) float64 {
	score := 100 - float64(errorCount)*10 - avgReactionMs/50
	if score < 0 {
		return 0
	}
	return score
}

// LevelProgress returns currentLevel/maxLevel as a percentage.
func LevelProgress(currentLevel, maxLevel int) float64 {
	if maxLevel <= 0 {
		return 0
	}
	return float64(currentLevel) / float64(maxLevel) * 100
}

// RunningMean folds a new value into a mean maintained alongside its count.
func RunningMean(oldMean float64, oldCount int, newValue float64) float64 {
	if oldCount < 0 {
		oldCount = 0
	}
	return (oldMean*float64(oldCount) + newValue) / float64(oldCount+1)
}

// SwitchCost averages the reaction-time penalty of switch trials: for each
// trial flagged as a switch, the difference between its reaction time and
// the immediately preceding trial's. Returns 0 when there are no switch
// trials.
func SwitchCost(reactionMs []int64, isSwitch []bool) float64 {
	var sum float64
	var count int
	for i := 1; i < len(reactionMs) && i < len(isSwitch); i++ {
		if !isSwitch[i] {
			continue
		}
		sum += float64(reactionMs[i] - reactionMs[i-1])
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}
