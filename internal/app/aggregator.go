package app

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/rs/zerolog"

	"scripture-quiz-service/internal/domain"
)

const dateLayout = "2006-01-02"

// Completion is handed back to the presentation layer once a session completes.
type Completion struct {
	Result   domain.QuizResult    `json:"result"`
	Profile  domain.UserProfile   `json:"profile"`
	Unlocked []domain.Achievement `json:"unlocked,omitempty"`
}

// BuildResult summarises a completed session. Accuracy and timings carry one decimal.
func BuildResult(sum Summary) domain.QuizResult {
	correct := 0
	for _, a := range sum.Answers {
		if a.IsCorrect {
			correct++
		}
	}

	elapsed := sum.CompletedAt.Sub(sum.StartedAt).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}
	var accuracy, average float64
	if sum.Total > 0 {
		accuracy = round1(float64(correct) / float64(sum.Total) * 100)
		average = round1(elapsed / float64(sum.Total))
	}

	answers := sum.Answers
	if answers == nil {
		answers = []domain.AnswerRecord{}
	}
	return domain.QuizResult{
		Score:          sum.Score,
		TotalQuestions: sum.Total,
		CorrectAnswers: correct,
		Accuracy:       accuracy,
		TotalTime:      round1(elapsed),
		AverageTime:    average,
		Date:           sum.CompletedAt,
		Settings:       sum.Config,
		Questions:      answers,
	}
}

// AppendHistory appends result and evicts the oldest entries beyond limit.
func AppendHistory(history []domain.QuizResult, result domain.QuizResult, limit int) []domain.QuizResult {
	out := append(append([]domain.QuizResult(nil), history...), result)
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// UpdateProfile folds result into profile as of the calendar day of today.
// A negative score lowers XP.
func UpdateProfile(profile domain.UserProfile, result domain.QuizResult, today time.Time) domain.UserProfile {
	todayStr := today.Format(dateLayout)
	yesterday := today.AddDate(0, 0, -1).Format(dateLayout)

	switch profile.LastActiveDate {
	case todayStr:
	case yesterday:
		profile.Streak++
	default:
		profile.Streak = 1
	}
	profile.LastActiveDate = todayStr

	profile.XP += result.Score
	profile.Level = domain.LevelFor(profile.XP)

	profile.Stats.TotalQuizzes++
	profile.Stats.QuestionsAnswered += len(result.Questions)
	profile.Stats.CorrectAnswers += result.CorrectAnswers
	return profile
}

// Aggregator folds completed sessions into history, profile and achievements.
type Aggregator struct {
	log zerolog.Logger
	now func() time.Time
}

func NewAggregator(log zerolog.Logger, now func() time.Time) *Aggregator {
	if now == nil {
		now = time.Now
	}
	return &Aggregator{log: log.With().Str("component", "aggregator").Logger(), now: now}
}

// Finalize builds the result, appends it to the bounded history and writes the
// completion hand-off key. Write failures are returned joined; the result is
// always usable.
func (a *Aggregator) Finalize(ctx context.Context, state UserState, sum Summary) (domain.QuizResult, error) {
	result := BuildResult(sum)

	history, err := state.History(ctx)
	if err != nil {
		a.log.Warn().Err(err).Msg("stored history unreadable, starting a new one")
		history = nil
	}
	history = AppendHistory(history, result, domain.HistoryLimit)

	return result, errors.Join(
		state.SaveHistory(ctx, history),
		state.SaveLastResult(ctx, result),
	)
}

// ApplyProfile runs UpdateProfile against the stored profile and persists it.
func (a *Aggregator) ApplyProfile(ctx context.Context, state UserState, result domain.QuizResult) (domain.UserProfile, error) {
	profile, err := state.Profile(ctx)
	if err != nil {
		a.log.Warn().Err(err).Msg("stored profile unreadable, using defaults")
	}
	if profile.LastActiveDate == "" {
		if date, err := state.LastQuizDate(ctx); err == nil {
			profile.LastActiveDate = date
		}
	}

	updated := UpdateProfile(profile, result, a.now())
	if result.Score < 0 {
		a.log.Warn().
			Int("score", result.Score).
			Int("xp_before", profile.XP).
			Int("xp_after", updated.XP).
			Msg("negative quiz score lowered XP")
	}

	return updated, errors.Join(
		state.SaveProfile(ctx, updated),
		state.SaveLastQuizDate(ctx, updated.LastActiveDate),
	)
}

// Complete runs the whole end-of-session fold and clears the progress snapshot.
func (a *Aggregator) Complete(ctx context.Context, state UserState, sum Summary) (Completion, error) {
	result, finalizeErr := a.Finalize(ctx, state, sum)
	profile, profileErr := a.ApplyProfile(ctx, state, result)

	achievements, err := state.Achievements(ctx)
	if err != nil {
		a.log.Warn().Err(err).Msg("stored achievements unreadable, using defaults")
	}
	achievements, unlocked := EvaluateAchievements(achievements, result, profile, a.now())

	var achievementsErr error
	if len(unlocked) > 0 {
		achievementsErr = state.SaveAchievements(ctx, achievements)
	}

	return Completion{Result: result, Profile: profile, Unlocked: unlocked}, errors.Join(
		finalizeErr,
		profileErr,
		achievementsErr,
		state.ClearProgress(ctx),
	)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
