package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"scripture-quiz-service/internal/domain"
)

// ExportType selects what an export bundle carries.
type ExportType string

const (
	ExportProgress     ExportType = "progress"
	ExportHistory      ExportType = "quizHistory"
	ExportAchievements ExportType = "achievements"
	ExportAll          ExportType = "all"
)

// Bundle is the portable export/import document.
type Bundle struct {
	Type         ExportType           `json:"type"`
	User         *domain.UserProfile  `json:"user,omitempty"`
	QuizHistory  []domain.QuizResult  `json:"quizHistory,omitempty"`
	Achievements []domain.Achievement `json:"achievements,omitempty"`
	ExportDate   time.Time            `json:"exportDate"`
}

// Profile returns the stored profile, or defaults when it is missing or corrupt.
func (s *QuizService) Profile(ctx context.Context, userID string) domain.UserProfile {
	profile, err := NewUserState(s.store, userID).Profile(ctx)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("stored profile unreadable, using defaults")
	}
	return profile
}

// History returns the stored results, oldest first.
func (s *QuizService) History(ctx context.Context, userID string) []domain.QuizResult {
	history, err := NewUserState(s.store, userID).History(ctx)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("stored history unreadable")
	}
	if history == nil {
		history = []domain.QuizResult{}
	}
	return history
}

// Stats derives the dashboard figures from history.
func (s *QuizService) Stats(ctx context.Context, userID string) DashboardStats {
	return ComputeStats(s.History(ctx, userID), s.now())
}

// Achievements returns the user's badges.
func (s *QuizService) Achievements(ctx context.Context, userID string) []domain.Achievement {
	list, err := NewUserState(s.store, userID).Achievements(ctx)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("stored achievements unreadable, using defaults")
	}
	return list
}

// LastResult returns the completion hand-off of the most recent session.
func (s *QuizService) LastResult(ctx context.Context, userID string) (domain.QuizResult, error) {
	return NewUserState(s.store, userID).LastResult(ctx)
}

// Settings returns the saved session configuration.
func (s *QuizService) Settings(ctx context.Context, userID string) domain.SessionConfig {
	cfg, err := NewUserState(s.store, userID).SettingsOr(ctx, s.defaults)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("saved settings unreadable, using defaults")
	}
	return cfg
}

// SaveSettings validates and stores the configuration used by later sessions.
func (s *QuizService) SaveSettings(ctx context.Context, userID string, cfg domain.SessionConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	return NewUserState(s.store, userID).SaveSettings(ctx, cfg)
}

// Theme returns the stored UI theme.
func (s *QuizService) Theme(ctx context.Context, userID string) domain.Theme {
	theme, err := NewUserState(s.store, userID).Theme(ctx)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("stored theme unreadable")
	}
	return theme
}

// SetTheme stores the UI theme.
func (s *QuizService) SetTheme(ctx context.Context, userID string, theme domain.Theme) error {
	if !theme.Valid() {
		return fmt.Errorf("unknown theme %q", theme)
	}
	return NewUserState(s.store, userID).SaveTheme(ctx, theme)
}

// Export builds a bundle of the requested type.
func (s *QuizService) Export(ctx context.Context, userID string, typ ExportType) (Bundle, error) {
	bundle := Bundle{Type: typ, ExportDate: s.now()}
	switch typ {
	case ExportProgress:
		profile := s.Profile(ctx, userID)
		bundle.User = &profile
	case ExportHistory:
		bundle.QuizHistory = s.History(ctx, userID)
	case ExportAchievements:
		bundle.Achievements = s.Achievements(ctx, userID)
	case ExportAll:
		profile := s.Profile(ctx, userID)
		bundle.User = &profile
		bundle.QuizHistory = s.History(ctx, userID)
		bundle.Achievements = s.Achievements(ctx, userID)
	default:
		return Bundle{}, fmt.Errorf("%w: unknown type %q", domain.ErrInvalidImport, typ)
	}
	return bundle, nil
}

// Import overwrites the parts of the user's state the bundle carries.
func (s *QuizService) Import(ctx context.Context, userID string, bundle Bundle) error {
	state := NewUserState(s.store, userID)
	var errs []error

	switch bundle.Type {
	case ExportProgress:
		if bundle.User == nil {
			return fmt.Errorf("%w: progress bundle without user", domain.ErrInvalidImport)
		}
		errs = append(errs, state.SaveProfile(ctx, *bundle.User))
	case ExportHistory:
		errs = append(errs, state.SaveHistory(ctx, trimHistory(bundle.QuizHistory)))
	case ExportAchievements:
		errs = append(errs, state.SaveAchievements(ctx, bundle.Achievements))
	case ExportAll:
		if bundle.User != nil {
			errs = append(errs, state.SaveProfile(ctx, *bundle.User))
		}
		if bundle.QuizHistory != nil {
			errs = append(errs, state.SaveHistory(ctx, trimHistory(bundle.QuizHistory)))
		}
		if bundle.Achievements != nil {
			errs = append(errs, state.SaveAchievements(ctx, bundle.Achievements))
		}
	default:
		return fmt.Errorf("%w: unknown type %q", domain.ErrInvalidImport, bundle.Type)
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}
	s.log.Info().Str("user_id", userID).Str("type", string(bundle.Type)).Msg("user data imported")
	return nil
}

// Reset restores the profile to defaults and drops history, streak date, progress
// and the last result. Achievements are kept.
func (s *QuizService) Reset(ctx context.Context, userID string) error {
	state := NewUserState(s.store, userID)
	profile := domain.DefaultProfile()
	profile.Name = s.Profile(ctx, userID).Name

	err := errors.Join(
		state.SaveProfile(ctx, profile),
		state.delete(ctx, KeyHistory, KeyLastQuizDate, KeyProgress, KeyLastResult),
	)
	if err == nil {
		s.log.Info().Str("user_id", userID).Msg("user progress reset")
	}
	return err
}

// DeleteUser removes every stored key of the user.
func (s *QuizService) DeleteUser(ctx context.Context, userID string) error {
	if err := NewUserState(s.store, userID).Clear(ctx); err != nil {
		return err
	}
	s.log.Info().Str("user_id", userID).Msg("user data deleted")
	return nil
}

func trimHistory(history []domain.QuizResult) []domain.QuizResult {
	if len(history) > domain.HistoryLimit {
		return history[len(history)-domain.HistoryLimit:]
	}
	return history
}
