package app

import (
	"math/rand"
	"strings"

	"scripture-quiz-service/internal/domain"
)

// IntnFunc returns a uniform int in [0, n).
type IntnFunc func(n int) int

// FilterQuestions keeps catalog entries matching the difficulty and topic filters.
// Topic matches when the question topic contains the filter or the tag set holds it.
func FilterQuestions(pool []domain.Question, cfg domain.SessionConfig) []domain.Question {
	filtered := make([]domain.Question, 0, len(pool))
	for _, q := range pool {
		if cfg.Difficulty != domain.DifficultyMixed && q.Difficulty != cfg.Difficulty {
			continue
		}
		if cfg.Topic != domain.TopicRandom && !strings.Contains(q.Topic, cfg.Topic) && !q.HasTag(cfg.Topic) {
			continue
		}
		filtered = append(filtered, q)
	}
	return filtered
}

// Shuffle permutes questions in place (Fisher-Yates).
func Shuffle(questions []domain.Question, intn IntnFunc) {
	if intn == nil {
		intn = rand.Intn
	}
	for i := len(questions) - 1; i > 0; i-- {
		j := intn(i + 1)
		questions[i], questions[j] = questions[j], questions[i]
	}
}

// SelectQuestions filters, shuffles and truncates the pool. When nothing matches it
// falls back to the built-in set and reports ErrNoQuestionsAvailable alongside the
// usable selection.
func SelectQuestions(pool []domain.Question, cfg domain.SessionConfig, intn IntnFunc) ([]domain.Question, error) {
	selected := FilterQuestions(pool, cfg)
	var notice error
	if len(selected) == 0 {
		selected = FallbackQuestions()
		notice = domain.ErrNoQuestionsAvailable
	}
	return shuffleAndTruncate(selected, cfg.QuestionCount, intn), notice
}

// SelectFallback draws from the built-in set without applying the session filters;
// used when the catalog itself could not be fetched.
func SelectFallback(cfg domain.SessionConfig, intn IntnFunc) []domain.Question {
	return shuffleAndTruncate(FallbackQuestions(), cfg.QuestionCount, intn)
}

func shuffleAndTruncate(selected []domain.Question, count int, intn IntnFunc) []domain.Question {
	Shuffle(selected, intn)
	if count > 0 && len(selected) > count {
		selected = selected[:count]
	}
	return selected
}
