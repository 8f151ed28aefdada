package app

import (
	"time"

	"scripture-quiz-service/internal/domain"
)

const (
	achievementFirstSteps   = 1
	achievementBibleScholar = 2
	achievementStreakMaster = 3
	achievementSpeedReader  = 4
)

// DefaultAchievements is the locked starter set.
func DefaultAchievements() []domain.Achievement {
	return []domain.Achievement{
		{ID: achievementFirstSteps, Name: "First Steps", Description: "Complete your first quiz", Icon: "fas fa-footsteps"},
		{ID: achievementBibleScholar, Name: "Bible Scholar", Description: "Score 90% or higher on any quiz", Icon: "fas fa-graduation-cap"},
		{ID: achievementStreakMaster, Name: "Streak Master", Description: "Maintain a 7-day streak", Icon: "fas fa-fire"},
		{ID: achievementSpeedReader, Name: "Speed Reader", Description: "Answer 10 questions in under 30 seconds", Icon: "fas fa-bolt"},
	}
}

func earned(id int, result domain.QuizResult, profile domain.UserProfile) bool {
	switch id {
	case achievementFirstSteps:
		return true
	case achievementBibleScholar:
		return result.Accuracy >= 90
	case achievementStreakMaster:
		return profile.Streak >= 7
	case achievementSpeedReader:
		return result.TotalQuestions >= 10 && result.TotalTime < 30
	}
	return false
}

// EvaluateAchievements unlocks every badge the result earns. It returns the full
// updated list and the badges unlocked by this call.
func EvaluateAchievements(list []domain.Achievement, result domain.QuizResult, profile domain.UserProfile, now time.Time) ([]domain.Achievement, []domain.Achievement) {
	out := append([]domain.Achievement(nil), list...)
	known := make(map[int]bool, len(out))
	for _, a := range out {
		known[a.ID] = true
	}
	for _, def := range DefaultAchievements() {
		if !known[def.ID] {
			out = append(out, def)
		}
	}

	var unlocked []domain.Achievement
	for i := range out {
		if out[i].Unlocked || !earned(out[i].ID, result, profile) {
			continue
		}
		date := now
		out[i].Unlocked = true
		out[i].Date = &date
		unlocked = append(unlocked, out[i])
	}
	return out, unlocked
}
