package app

import (
	"errors"
	"fmt"
	"testing"

	"scripture-quiz-service/internal/domain"
)

func catalogFixture() []domain.Question {
	return []domain.Question{
		{ID: 10, Difficulty: domain.DifficultyEasy, Topic: "old-testament"},
		{ID: 11, Difficulty: domain.DifficultyHard, Topic: "old-testament", Tags: []string{"prophets"}},
		{ID: 12, Difficulty: domain.DifficultyEasy, Topic: "new-testament", Tags: []string{"gospels"}},
		{ID: 13, Difficulty: domain.DifficultyMedium, Topic: "new-testament-letters"},
	}
}

func ids(qs []domain.Question) []int {
	out := make([]int, len(qs))
	for i, q := range qs {
		out[i] = q.ID
	}
	return out
}

func TestFilterQuestions(t *testing.T) {
	cases := []struct {
		name       string
		difficulty domain.Difficulty
		topic      string
		want       []int
	}{
		{"mixed random keeps all", domain.DifficultyMixed, domain.TopicRandom, []int{10, 11, 12, 13}},
		{"difficulty only", domain.DifficultyEasy, domain.TopicRandom, []int{10, 12}},
		{"topic substring", domain.DifficultyMixed, "new-testament", []int{12, 13}},
		{"topic by tag", domain.DifficultyMixed, "prophets", []int{11}},
		{"both filters", domain.DifficultyEasy, "old-testament", []int{10}},
		{"no match", domain.DifficultyHard, "gospels", []int{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := domain.SessionConfig{Mode: "standard", Difficulty: tc.difficulty, Topic: tc.topic, QuestionCount: 10}
			got := ids(FilterQuestions(catalogFixture(), cfg))
			if len(got) != len(tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("got %v, want %v", got, tc.want)
				}
			}
		})
	}
}

func TestShuffleIsAPermutation(t *testing.T) {
	qs := catalogFixture()
	// always swap with the first element
	Shuffle(qs, func(int) int { return 0 })

	got := ids(qs)
	want := []int{11, 12, 13, 10}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestSelectQuestionsTruncates(t *testing.T) {
	cfg := domain.DefaultSessionConfig()
	cfg.QuestionCount = 2

	got, notice := SelectQuestions(catalogFixture(), cfg, nil)
	if notice != nil {
		t.Fatalf("unexpected notice %v", notice)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(got))
	}
	if got[0].ID == got[1].ID {
		t.Fatalf("duplicate question selected: %v", ids(got))
	}
}

func TestSelectQuestionsFallsBackWhenNothingMatches(t *testing.T) {
	cfg := domain.SessionConfig{Mode: "standard", Difficulty: domain.DifficultyHard, Topic: "revelation", QuestionCount: 3}

	got, notice := SelectQuestions(catalogFixture(), cfg, nil)
	if !errors.Is(notice, domain.ErrNoQuestionsAvailable) {
		t.Fatalf("expected no-questions notice, got %v", notice)
	}
	if len(got) != 3 {
		t.Fatalf("expected fallback truncated to 3, got %d", len(got))
	}
	for _, q := range got {
		if q.ID < 1 || q.ID > 5 {
			t.Fatalf("expected a built-in question, got %d", q.ID)
		}
	}
}

func TestFallbackQuestionsAreValid(t *testing.T) {
	for _, q := range FallbackQuestions() {
		if err := q.Validate(); err != nil {
			t.Fatalf("built-in question invalid: %v", err)
		}
	}
}

func TestSelectQuestionsOrderVariesAcrossRuns(t *testing.T) {
	pool := make([]domain.Question, 10)
	for i := range pool {
		pool[i] = domain.Question{ID: i + 1, Difficulty: domain.DifficultyEasy, Topic: "gospels"}
	}
	cfg := domain.DefaultSessionConfig()

	// 20 draws over 10! orders collide with negligible probability
	orders := make(map[string]struct{})
	for run := 0; run < 20; run++ {
		got, _ := SelectQuestions(append([]domain.Question(nil), pool...), cfg, nil)
		if len(got) != len(pool) {
			t.Fatalf("expected %d questions, got %d", len(pool), len(got))
		}
		orders[fmt.Sprint(ids(got))] = struct{}{}
	}
	if len(orders) < 2 {
		t.Fatalf("expected the order to vary across runs, got %v", orders)
	}
}

func TestSelectFallbackIgnoresFilters(t *testing.T) {
	cfg := domain.SessionConfig{Mode: "standard", Difficulty: domain.DifficultyHard, Topic: "prophets", QuestionCount: 10}

	got := SelectFallback(cfg, nil)
	if len(got) != len(FallbackQuestions()) {
		t.Fatalf("expected the whole built-in set, got %v", ids(got))
	}

	cfg.QuestionCount = 2
	if got := SelectFallback(cfg, nil); len(got) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(got))
	}
}
