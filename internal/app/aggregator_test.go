package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"scripture-quiz-service/internal/domain"
)

type mapStore struct {
	mu   sync.Mutex
	data map[string][]byte
	fail bool
}

func newMapStore() *mapStore { return &mapStore{data: make(map[string][]byte)} }

func (m *mapStore) Get(_ context.Context, ns, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[ns+"/"+key]
	if !ok {
		return nil, domain.ErrStateNotFound
	}
	return v, nil
}

func (m *mapStore) Set(_ context.Context, ns, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("quota exceeded")
	}
	m.data[ns+"/"+key] = value
	return nil
}

func (m *mapStore) Delete(_ context.Context, ns string, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, ns+"/"+k)
	}
	return nil
}

var fixedNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func TestBuildResult(t *testing.T) {
	start := fixedNow.Add(-40 * time.Second)
	result := BuildResult(Summary{
		Score: 20,
		Total: 3,
		Answers: []domain.AnswerRecord{
			{QuestionID: 1, IsCorrect: true},
			{QuestionID: 2, IsCorrect: false},
			{QuestionID: 3, IsCorrect: false},
		},
		StartedAt:   start,
		CompletedAt: fixedNow,
	})

	if result.CorrectAnswers != 1 || result.Accuracy != 33.3 {
		t.Fatalf("unexpected accuracy %+v", result)
	}
	if result.TotalTime != 40 || result.AverageTime != 13.3 {
		t.Fatalf("unexpected timings %+v", result)
	}
	if !result.Date.Equal(fixedNow) {
		t.Fatalf("expected completion date, got %v", result.Date)
	}
}

func TestBuildResultWithoutQuestions(t *testing.T) {
	result := BuildResult(Summary{StartedAt: fixedNow, CompletedAt: fixedNow})
	if result.Accuracy != 0 || result.AverageTime != 0 || result.Questions == nil {
		t.Fatalf("unexpected empty result %+v", result)
	}
}

func TestAppendHistoryEvictsOldest(t *testing.T) {
	var history []domain.QuizResult
	for i := 0; i < domain.HistoryLimit; i++ {
		history = AppendHistory(history, domain.QuizResult{Score: i}, domain.HistoryLimit)
	}
	history = AppendHistory(history, domain.QuizResult{Score: 999}, domain.HistoryLimit)

	if len(history) != domain.HistoryLimit {
		t.Fatalf("expected %d entries, got %d", domain.HistoryLimit, len(history))
	}
	if history[0].Score != 1 || history[len(history)-1].Score != 999 {
		t.Fatalf("expected oldest evicted, got first=%d last=%d", history[0].Score, history[len(history)-1].Score)
	}
}

func TestUpdateProfileStreak(t *testing.T) {
	cases := []struct {
		name       string
		lastActive string
		streak     int
		want       int
	}{
		{"first quiz", "", 0, 1},
		{"same day", "2026-03-14", 4, 4},
		{"yesterday", "2026-03-13", 4, 5},
		{"three days ago", "2026-03-11", 4, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			profile := domain.DefaultProfile()
			profile.LastActiveDate = tc.lastActive
			profile.Streak = tc.streak

			got := UpdateProfile(profile, domain.QuizResult{Score: 10}, fixedNow)
			if got.Streak != tc.want {
				t.Fatalf("expected streak %d, got %d", tc.want, got.Streak)
			}
			if got.LastActiveDate != "2026-03-14" {
				t.Fatalf("unexpected last active date %q", got.LastActiveDate)
			}
		})
	}
}

func TestUpdateProfileXPAndLevel(t *testing.T) {
	profile := domain.DefaultProfile()
	profile.XP = 495

	got := UpdateProfile(profile, domain.QuizResult{
		Score:          10,
		CorrectAnswers: 1,
		Questions:      []domain.AnswerRecord{{IsCorrect: true}, {}},
	}, fixedNow)
	if got.XP != 505 || got.Level != "Learner" {
		t.Fatalf("unexpected progression %+v", got)
	}
	if got.Stats.TotalQuizzes != 1 || got.Stats.QuestionsAnswered != 2 || got.Stats.CorrectAnswers != 1 {
		t.Fatalf("unexpected stats %+v", got.Stats)
	}

	down := UpdateProfile(got, domain.QuizResult{Score: -10}, fixedNow)
	if down.XP != 495 || down.Level != "Beginner" {
		t.Fatalf("negative score should lower XP, got %+v", down)
	}
}

func TestAggregatorCompletesSession(t *testing.T) {
	ctx := context.Background()
	store := newMapStore()
	state := NewUserState(store, "u1")
	clock := fixedNow
	s := newTestSession(t, testQuestions(4), WithSessionClock(func() time.Time { return clock }))

	for i, choice := range []string{"A", "B", "A", "B"} {
		answer(t, s, choice)
		if i == 3 {
			clock = clock.Add(20 * time.Second)
		}
		if _, err := s.Advance(); err != nil {
			t.Fatalf("advance failed: %v", err)
		}
	}

	agg := NewAggregator(zerolog.Nop(), func() time.Time { return fixedNow })
	completion, err := agg.Complete(ctx, state, s.Summary())
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}

	if completion.Result.Score != 20 || completion.Result.Accuracy != 50.0 {
		t.Fatalf("unexpected result %+v", completion.Result)
	}
	if completion.Profile.XP != 20 || completion.Profile.Streak != 1 {
		t.Fatalf("unexpected profile %+v", completion.Profile)
	}
	if len(completion.Unlocked) != 1 || completion.Unlocked[0].Name != "First Steps" {
		t.Fatalf("expected only First Steps, got %+v", completion.Unlocked)
	}

	history, _ := state.History(ctx)
	if len(history) != 1 || history[0].Score != 20 {
		t.Fatalf("unexpected history %+v", history)
	}
	last, err := state.LastResult(ctx)
	if err != nil || last.TotalQuestions != 4 {
		t.Fatalf("unexpected last result %+v (%v)", last, err)
	}
	date, _ := state.LastQuizDate(ctx)
	if date != "2026-03-14" {
		t.Fatalf("unexpected last quiz date %q", date)
	}
	if _, err := state.Progress(ctx); !errors.Is(err, domain.ErrProgressNotFound) {
		t.Fatalf("expected progress cleared, got %v", err)
	}
}

func TestAggregatorUsesLegacyLastQuizDate(t *testing.T) {
	ctx := context.Background()
	state := NewUserState(newMapStore(), "u1")
	if err := state.SaveProfile(ctx, domain.UserProfile{Name: "Ruth", Streak: 3}); err != nil {
		t.Fatalf("seed profile: %v", err)
	}
	if err := state.SaveLastQuizDate(ctx, "2026-03-13"); err != nil {
		t.Fatalf("seed date: %v", err)
	}

	agg := NewAggregator(zerolog.Nop(), func() time.Time { return fixedNow })
	profile, err := agg.ApplyProfile(ctx, state, domain.QuizResult{Score: 5})
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if profile.Streak != 4 || profile.Name != "Ruth" {
		t.Fatalf("expected streak continued from stored date, got %+v", profile)
	}
}

func TestAggregatorReportsWriteFailures(t *testing.T) {
	ctx := context.Background()
	store := newMapStore()
	store.fail = true

	agg := NewAggregator(zerolog.Nop(), func() time.Time { return fixedNow })
	completion, err := agg.Complete(ctx, NewUserState(store, "u1"), Summary{
		Score:       10,
		Total:       1,
		Answers:     []domain.AnswerRecord{{QuestionID: 1, IsCorrect: true}},
		StartedAt:   fixedNow,
		CompletedAt: fixedNow,
	})
	if !errors.Is(err, domain.ErrPersistenceWrite) {
		t.Fatalf("expected persistence error, got %v", err)
	}
	if completion.Result.Score != 10 || completion.Profile.XP != 10 {
		t.Fatalf("result must survive write failures, got %+v", completion)
	}
}
