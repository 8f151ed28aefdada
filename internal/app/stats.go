package app

import (
	"math"
	"time"

	"scripture-quiz-service/internal/domain"
)

// DashboardStats are the headline numbers derived from quiz history.
type DashboardStats struct {
	TotalQuizzes    int  `json:"totalQuizzes"`
	LastScore       *int `json:"lastScore,omitempty"`
	WeeklyAverage   *int `json:"weeklyAverage,omitempty"`
	MonthlyAccuracy *int `json:"monthlyAccuracy,omitempty"`
}

// ComputeStats derives dashboard figures: the latest score, the mean score of the
// last 7 days and the pooled accuracy of the last 30 days, each rounded.
func ComputeStats(history []domain.QuizResult, now time.Time) DashboardStats {
	stats := DashboardStats{TotalQuizzes: len(history)}
	if len(history) == 0 {
		return stats
	}

	last := history[len(history)-1].Score
	stats.LastScore = &last

	weekAgo := now.AddDate(0, 0, -7)
	weekSum, weekCount := 0, 0
	monthAgo := now.AddDate(0, 0, -30)
	monthCorrect, monthTotal := 0, 0
	for _, r := range history {
		if !r.Date.Before(weekAgo) {
			weekSum += r.Score
			weekCount++
		}
		if !r.Date.Before(monthAgo) {
			monthCorrect += r.CorrectAnswers
			monthTotal += r.TotalQuestions
		}
	}
	if weekCount > 0 {
		avg := int(math.Round(float64(weekSum) / float64(weekCount)))
		stats.WeeklyAverage = &avg
	}
	if monthTotal > 0 {
		acc := int(math.Round(float64(monthCorrect) / float64(monthTotal) * 100))
		stats.MonthlyAccuracy = &acc
	}
	return stats
}
