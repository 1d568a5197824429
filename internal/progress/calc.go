package progress

import "math"

// Completion math over a record and the path's topic count. Pure functions;
// display rounding happens here and nowhere else.

// OverallFraction returns the exact completed fraction in [0, 1].
func OverallFraction(rec Record, topicCount int) float64 {
	if topicCount == 0 {
		return 0
	}
	return float64(rec.CompletedCount()) / float64(topicCount)
}

// OverallPercent returns the completed percentage rounded for display.
func OverallPercent(rec Record, topicCount int) float64 {
	return math.Round(OverallFraction(rec, topicCount) * 100)
}

// IsPathComplete reports whether every topic of the path is completed.
func IsPathComplete(rec Record, topicCount int) bool {
	return topicCount > 0 && rec.CompletedCount() == topicCount
}

// FinalScore returns the arithmetic mean of the passing quiz scores across
// completed topics. Topics without a recorded score are excluded from the
// mean rather than counted as zero, so a dropped sync cannot drag the score
// down. ok is false when no completed topic has a recorded score.
func FinalScore(rec Record) (score float64, ok bool) {
	sum, n := 0.0, 0
	for _, tp := range rec.Topics {
		if !tp.Completed() || tp.QuizScore <= 0 {
			continue
		}
		sum += tp.QuizScore
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}
