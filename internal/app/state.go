package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"scripture-quiz-service/internal/domain"
)

// StateStore is the host key/value capability. Values are opaque JSON blobs scoped
// by a per-user namespace. Missing keys yield domain.ErrStateNotFound.
type StateStore interface {
	Get(ctx context.Context, namespace, key string) ([]byte, error)
	Set(ctx context.Context, namespace, key string, value []byte) error
	Delete(ctx context.Context, namespace string, keys ...string) error
}

// Persisted state layout.
const (
	KeySettings     = "quizSettings"
	KeyHistory      = "quizHistory"
	KeyProfile      = "bibleQuizUser"
	KeyProgress     = "quizProgress"
	KeyLastQuizDate = "lastQuizDate"
	KeyAchievements = "achievements"
	KeyTheme        = "theme"
	KeyLastResult   = "lastQuizResults"
)

// AllKeys lists every key a user namespace may hold.
var AllKeys = []string{
	KeySettings, KeyHistory, KeyProfile, KeyProgress,
	KeyLastQuizDate, KeyAchievements, KeyTheme, KeyLastResult,
}

// UserState gives typed access to one user's blobs. Reads of missing keys return
// defaults; reads of corrupt blobs return defaults together with the decode error.
type UserState struct {
	store  StateStore
	userID string
}

func NewUserState(store StateStore, userID string) UserState {
	return UserState{store: store, userID: userID}
}

func (u UserState) Settings(ctx context.Context) (domain.SessionConfig, error) {
	return u.SettingsOr(ctx, domain.DefaultSessionConfig())
}

// SettingsOr returns the saved settings, or fallback when none are stored.
func (u UserState) SettingsOr(ctx context.Context, fallback domain.SessionConfig) (domain.SessionConfig, error) {
	cfg := fallback
	found, err := u.load(ctx, KeySettings, &cfg)
	if err != nil || !found {
		return fallback, err
	}
	return cfg, nil
}

func (u UserState) SaveSettings(ctx context.Context, cfg domain.SessionConfig) error {
	return u.save(ctx, KeySettings, cfg)
}

func (u UserState) History(ctx context.Context) ([]domain.QuizResult, error) {
	var history []domain.QuizResult
	if _, err := u.load(ctx, KeyHistory, &history); err != nil {
		return nil, err
	}
	return history, nil
}

func (u UserState) SaveHistory(ctx context.Context, history []domain.QuizResult) error {
	if history == nil {
		history = []domain.QuizResult{}
	}
	return u.save(ctx, KeyHistory, history)
}

func (u UserState) Profile(ctx context.Context) (domain.UserProfile, error) {
	profile := domain.DefaultProfile()
	found, err := u.load(ctx, KeyProfile, &profile)
	if err != nil || !found {
		return domain.DefaultProfile(), err
	}
	return profile, nil
}

func (u UserState) SaveProfile(ctx context.Context, profile domain.UserProfile) error {
	return u.save(ctx, KeyProfile, profile)
}

// Progress returns domain.ErrProgressNotFound when no snapshot is stored.
func (u UserState) Progress(ctx context.Context) (domain.Progress, error) {
	var p domain.Progress
	found, err := u.load(ctx, KeyProgress, &p)
	if err != nil {
		return domain.Progress{}, err
	}
	if !found || len(p.QuestionIDs) == 0 {
		return domain.Progress{}, domain.ErrProgressNotFound
	}
	return p, nil
}

func (u UserState) SaveProgress(ctx context.Context, p domain.Progress) error {
	return u.save(ctx, KeyProgress, p)
}

func (u UserState) ClearProgress(ctx context.Context) error {
	return u.delete(ctx, KeyProgress)
}

// LastQuizDate returns the stored ISO date, or "" if none.
func (u UserState) LastQuizDate(ctx context.Context) (string, error) {
	var date string
	if _, err := u.load(ctx, KeyLastQuizDate, &date); err != nil {
		return "", err
	}
	return date, nil
}

func (u UserState) SaveLastQuizDate(ctx context.Context, date string) error {
	return u.save(ctx, KeyLastQuizDate, date)
}

func (u UserState) Achievements(ctx context.Context) ([]domain.Achievement, error) {
	var list []domain.Achievement
	found, err := u.load(ctx, KeyAchievements, &list)
	if err != nil || !found {
		return DefaultAchievements(), err
	}
	return list, nil
}

func (u UserState) SaveAchievements(ctx context.Context, list []domain.Achievement) error {
	return u.save(ctx, KeyAchievements, list)
}

func (u UserState) Theme(ctx context.Context) (domain.Theme, error) {
	theme := domain.ThemeLight
	found, err := u.load(ctx, KeyTheme, &theme)
	if err != nil || !found || !theme.Valid() {
		return domain.ThemeLight, err
	}
	return theme, nil
}

func (u UserState) SaveTheme(ctx context.Context, theme domain.Theme) error {
	return u.save(ctx, KeyTheme, theme)
}

// LastResult returns domain.ErrStateNotFound before the first completed session.
func (u UserState) LastResult(ctx context.Context) (domain.QuizResult, error) {
	var result domain.QuizResult
	found, err := u.load(ctx, KeyLastResult, &result)
	if err != nil {
		return domain.QuizResult{}, err
	}
	if !found {
		return domain.QuizResult{}, domain.ErrStateNotFound
	}
	return result, nil
}

func (u UserState) SaveLastResult(ctx context.Context, result domain.QuizResult) error {
	return u.save(ctx, KeyLastResult, result)
}

// Clear removes every key of the user.
func (u UserState) Clear(ctx context.Context) error {
	return u.delete(ctx, AllKeys...)
}

func (u UserState) load(ctx context.Context, key string, dst any) (bool, error) {
	raw, err := u.store.Get(ctx, u.userID, key)
	if errors.Is(err, domain.ErrStateNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (u UserState) save(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := u.store.Set(ctx, u.userID, key, raw); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrPersistenceWrite, key, err)
	}
	return nil
}

func (u UserState) delete(ctx context.Context, keys ...string) error {
	if err := u.store.Delete(ctx, u.userID, keys...); err != nil {
		return fmt.Errorf("%w: delete: %v", domain.ErrPersistenceWrite, err)
	}
	return nil
}
