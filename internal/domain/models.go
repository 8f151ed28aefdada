package domain

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Difficulty grades a question; "mixed" is only meaningful as a session filter.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
	DifficultyMixed  Difficulty = "mixed"
)

// TopicRandom disables topic filtering.
const TopicRandom = "random"

const (
	// DefaultTimeBudget applies to questions without a timer.
	DefaultTimeBudget = 30
	// MaxHints is the per-question hint allowance.
	MaxHints = 3
	// HintPenalty is deducted for every revealed hint.
	HintPenalty = 2
	// HistoryLimit bounds the stored quiz history.
	HistoryLimit = 50
)

// Question is an immutable catalog entry.
type Question struct {
	ID             int               `json:"id"`
	Prompt         string            `json:"question"`
	Choices        []string          `json:"choices"`
	CorrectAnswer  string            `json:"correctAnswer"`
	Reference      string            `json:"reference"`
	Difficulty     Difficulty        `json:"difficulty"`
	Topic          string            `json:"topic"`
	Tags           []string          `json:"tags,omitempty"`
	Points         int               `json:"points"`
	NegativePoints int               `json:"negativePoints,omitempty"`
	Timer          int               `json:"timer"` // seconds, defaults to 30 if zero
	Hints          []string          `json:"hints,omitempty"`
	Explanations   map[string]string `json:"explanations,omitempty"`
}

// TimeBudget returns the per-question countdown in seconds.
func (q Question) TimeBudget() int {
	if q.Timer <= 0 {
		return DefaultTimeBudget
	}
	return q.Timer
}

// Validate checks the catalog invariants of a question.
func (q Question) Validate() error {
	if q.Prompt == "" {
		return fmt.Errorf("question %d: %w: empty prompt", q.ID, ErrInvalidQuestion)
	}
	if len(q.Choices) < 2 {
		return fmt.Errorf("question %d: %w: needs at least two choices", q.ID, ErrInvalidQuestion)
	}
	if !q.HasChoice(q.CorrectAnswer) {
		return fmt.Errorf("question %d: %w: correct answer is not a choice", q.ID, ErrInvalidQuestion)
	}
	if len(q.Hints) > MaxHints {
		return fmt.Errorf("question %d: %w: more than %d hints", q.ID, ErrInvalidQuestion, MaxHints)
	}
	switch q.Difficulty {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
	default:
		return fmt.Errorf("question %d: %w: unknown difficulty %q", q.ID, ErrInvalidQuestion, q.Difficulty)
	}
	return nil
}

// HasChoice reports whether value is one of the question's choices.
func (q Question) HasChoice(value string) bool {
	for _, c := range q.Choices {
		if c == value {
			return true
		}
	}
	return false
}

// HasTag reports whether the tag set contains tag.
func (q Question) HasTag(tag string) bool {
	for _, t := range q.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// SessionConfig is supplied once when a session starts.
type SessionConfig struct {
	Mode          string     `json:"mode" validate:"required"`
	Difficulty    Difficulty `json:"difficulty" validate:"required,oneof=easy medium hard mixed"`
	Topic         string     `json:"topic" validate:"required"`
	QuestionCount int        `json:"questionCount" validate:"gt=0,lte=100"`
}

// DefaultSessionConfig mirrors the quick-start settings.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Mode:          "standard",
		Difficulty:    DifficultyMixed,
		Topic:         TopicRandom,
		QuestionCount: 10,
	}
}

var validate = validator.New()

// Validate checks the configuration record.
func (c SessionConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// AnswerRecord logs one scored question.
type AnswerRecord struct {
	QuestionID int    `json:"questionId"`
	UserAnswer string `json:"userAnswer"`
	IsCorrect  bool   `json:"isCorrect"`
	TimeSpent  int    `json:"timeSpent"`
}

// QuizResult is the immutable summary of a completed session.
type QuizResult struct {
	Score          int            `json:"score"`
	TotalQuestions int            `json:"totalQuestions"`
	CorrectAnswers int            `json:"correctAnswers"`
	Accuracy       float64        `json:"accuracy"`
	TotalTime      float64        `json:"totalTime"`
	AverageTime    float64        `json:"averageTime"`
	Date           time.Time      `json:"date"`
	Settings       SessionConfig  `json:"settings"`
	Questions      []AnswerRecord `json:"questions"`
}

// ProfileStats are lifetime counters folded in at session end.
type ProfileStats struct {
	TotalQuizzes      int `json:"totalQuizzes"`
	QuestionsAnswered int `json:"questionsAnswered"`
	CorrectAnswers    int `json:"correctAnswers"`
}

// UserProfile is the long-lived progression record.
type UserProfile struct {
	Name           string       `json:"name"`
	XP             int          `json:"xp"`
	Level          string       `json:"level"`
	Streak         int          `json:"streak"`
	LastActiveDate string       `json:"lastActiveDate,omitempty"` // YYYY-MM-DD
	Stats          ProfileStats `json:"stats"`
}

// DefaultProfile is used when nothing is stored yet.
func DefaultProfile() UserProfile {
	return UserProfile{Name: "Guest", Level: LevelFor(0)}
}

// Progress is the best-effort mid-session snapshot.
type Progress struct {
	Config        SessionConfig  `json:"config"`
	QuestionIDs   []int          `json:"questionIds"`
	Index         int            `json:"currentQuestionIndex"`
	Score         int            `json:"score"`
	Answers       []AnswerRecord `json:"userAnswers"`
	TimeRemaining int            `json:"timeRemaining"`
	HintsUsed     int            `json:"hintsUsed"`
	StartTime     time.Time      `json:"startTime"`
	Scored        bool           `json:"scored"`
	Fallback      bool           `json:"fallback,omitempty"` // question IDs refer to the built-in set
}

// Achievement is an unlockable badge.
type Achievement struct {
	ID          int        `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Icon        string     `json:"icon"`
	Unlocked    bool       `json:"unlocked"`
	Date        *time.Time `json:"date"`
}

// Theme is the stored UI preference.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Valid reports whether t is a known theme.
func (t Theme) Valid() bool {
	return t == ThemeLight || t == ThemeDark
}
