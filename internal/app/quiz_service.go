package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"scripture-quiz-service/internal/domain"
)

// SessionRepository abstracts where live sessions are kept (in-memory, Redis, etc).
type SessionRepository interface {
	Save(session *Session)
	Get(sessionID string) (*Session, bool)
	Delete(sessionID string)
}

// QuestionCatalog is the bulk question source. It is treated as remote and fallible.
type QuestionCatalog interface {
	Questions(ctx context.Context) ([]domain.Question, error)
}

// QuizService owns the session registry and the user state it folds results into.
type QuizService struct {
	sessions   SessionRepository
	catalog    QuestionCatalog
	store      StateStore
	aggregator *Aggregator
	log        zerolog.Logger

	now          func() time.Time
	newTicker    TickerFactory
	intn         IntnFunc
	newID        func() string
	defaults     domain.SessionConfig
	writeTimeout time.Duration
}

// Option customises a QuizService.
type Option func(*QuizService)

// WithClock is mainly for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(s *QuizService) { s.now = now }
}

// WithTickerFactory replaces the wall-clock countdown ticker.
func WithTickerFactory(factory TickerFactory) Option {
	return func(s *QuizService) { s.newTicker = factory }
}

// WithShuffleSource replaces the random source used for question order.
func WithShuffleSource(intn IntnFunc) Option {
	return func(s *QuizService) { s.intn = intn }
}

// WithDefaultQuestionCount sets the question count used before a user saves settings.
func WithDefaultQuestionCount(n int) Option {
	return func(s *QuizService) {
		if n > 0 {
			s.defaults.QuestionCount = n
		}
	}
}

// WithIDGenerator replaces uuid-based session IDs.
func WithIDGenerator(newID func() string) Option {
	return func(s *QuizService) { s.newID = newID }
}

func NewQuizService(sessions SessionRepository, catalog QuestionCatalog, store StateStore, log zerolog.Logger, opts ...Option) *QuizService {
	s := &QuizService{
		sessions:     sessions,
		catalog:      catalog,
		store:        store,
		log:          log.With().Str("component", "quiz_service").Logger(),
		now:          time.Now,
		newTicker:    NewWallTicker,
		newID:        uuid.NewString,
		defaults:     domain.DefaultSessionConfig(),
		writeTimeout: 3 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.aggregator = NewAggregator(log, s.now)
	return s
}

// Start selects questions for cfg and begins a session. A nil cfg uses the user's
// saved settings; a supplied cfg is validated and saved. Catalog failures and empty
// selections fall back to the built-in questions and are reported on the session.
func (s *QuizService) Start(ctx context.Context, userID string, cfg *domain.SessionConfig) (*Session, error) {
	state := NewUserState(s.store, userID)

	var settings domain.SessionConfig
	if cfg == nil {
		var err error
		settings, err = state.SettingsOr(ctx, s.defaults)
		if err != nil {
			s.log.Warn().Err(err).Str("user_id", userID).Msg("saved settings unreadable, using defaults")
		}
	} else {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		settings = *cfg
		if err := state.SaveSettings(ctx, settings); err != nil {
			s.log.Error().Err(err).Str("user_id", userID).Msg("settings not persisted")
		}
	}

	var questions []domain.Question
	pool, notice := s.loadPool(ctx)
	if notice != nil {
		questions = SelectFallback(settings, s.intn)
	} else {
		questions, notice = SelectQuestions(pool, settings, s.intn)
		if notice != nil {
			s.log.Info().
				Str("user_id", userID).
				Str("difficulty", string(settings.Difficulty)).
				Str("topic", settings.Topic).
				Msg("no questions matched, using fallback set")
		}
	}

	session := s.newSession(userID, settings, questions, notice)
	s.sessions.Save(session)
	if _, err := session.Begin(); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("session_id", session.ID()).
		Str("user_id", userID).
		Int("questions", len(questions)).
		Msg("quiz session started")
	return session, nil
}

// Resume rebuilds a session from the user's progress snapshot.
func (s *QuizService) Resume(ctx context.Context, userID string) (*Session, error) {
	state := NewUserState(s.store, userID)
	progress, err := state.Progress(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrProgressNotFound) {
			s.log.Warn().Err(err).Str("user_id", userID).Msg("progress snapshot unreadable")
		}
		return nil, domain.ErrProgressNotFound
	}

	var (
		pool   []domain.Question
		notice error
	)
	if progress.Fallback {
		pool, notice = FallbackQuestions(), domain.ErrNoQuestionsAvailable
	} else {
		pool, notice = s.loadPool(ctx)
		if notice != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrProgressNotFound, notice)
		}
	}

	byID := make(map[int]domain.Question, len(pool))
	for _, q := range pool {
		byID[q.ID] = q
	}
	questions := make([]domain.Question, 0, len(progress.QuestionIDs))
	for _, id := range progress.QuestionIDs {
		q, ok := byID[id]
		if !ok {
			s.dropStaleProgress(ctx, state, userID)
			return nil, domain.ErrProgressNotFound
		}
		questions = append(questions, q)
	}

	session := s.newSession(userID, progress.Config, questions, notice)
	if _, err := session.Restore(progress); err != nil {
		s.dropStaleProgress(ctx, state, userID)
		return nil, domain.ErrProgressNotFound
	}
	s.sessions.Save(session)

	s.log.Info().
		Str("session_id", session.ID()).
		Str("user_id", userID).
		Int("index", progress.Index).
		Msg("quiz session resumed")
	return session, nil
}

// Session looks up a live session.
func (s *QuizService) Session(sessionID string) (*Session, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// SelectChoice records a tentative answer.
func (s *QuizService) SelectChoice(_ context.Context, sessionID, value string) (Snapshot, error) {
	session, err := s.Session(sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	return session.SelectChoice(value)
}

// SubmitAnswer scores the tentative answer of the active question.
func (s *QuizService) SubmitAnswer(_ context.Context, sessionID string) (domain.AnswerRecord, Snapshot, error) {
	session, err := s.Session(sessionID)
	if err != nil {
		return domain.AnswerRecord{}, Snapshot{}, err
	}
	record, err := session.SubmitAnswer()
	return record, session.Snapshot(), err
}

// UseHint reveals the next hint of the active question.
func (s *QuizService) UseHint(_ context.Context, sessionID string) (string, Snapshot, error) {
	session, err := s.Session(sessionID)
	if err != nil {
		return "", Snapshot{}, err
	}
	hint, err := session.UseHint()
	return hint, session.Snapshot(), err
}

// Advance moves to the next question. When the session completes, the result is
// aggregated and returned, and the session leaves the registry.
func (s *QuizService) Advance(ctx context.Context, sessionID string) (Snapshot, *Completion, error) {
	session, err := s.Session(sessionID)
	if err != nil {
		return Snapshot{}, nil, err
	}
	snap, err := session.Advance()
	if err != nil || snap.State != StateCompleted {
		return snap, nil, err
	}

	completion := s.complete(ctx, session)
	s.sessions.Delete(sessionID)
	session.Close()
	return snap, &completion, nil
}

// Subscribe returns a channel of session events. The caller must invoke the
// returned cancel function to avoid leaks.
func (s *QuizService) Subscribe(_ context.Context, sessionID string) (<-chan Event, func(), error) {
	session, err := s.Session(sessionID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := session.Subscribe()
	return ch, cancel, nil
}

// Abandon stops a session's countdown and drops it from the registry. Its progress
// snapshot stays stored so the user can resume later.
func (s *QuizService) Abandon(_ context.Context, sessionID string) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return
	}
	session.Close()
	s.sessions.Delete(sessionID)
	s.log.Debug().Str("session_id", sessionID).Msg("quiz session abandoned")
}

func (s *QuizService) complete(ctx context.Context, session *Session) Completion {
	state := NewUserState(s.store, session.UserID())
	completion, err := s.aggregator.Complete(ctx, state, session.Summary())
	if err != nil {
		s.log.Error().Err(err).
			Str("session_id", session.ID()).
			Str("user_id", session.UserID()).
			Msg("quiz completion not fully persisted")
	}
	s.log.Info().
		Str("session_id", session.ID()).
		Str("user_id", session.UserID()).
		Int("score", completion.Result.Score).
		Float64("accuracy", completion.Result.Accuracy).
		Msg("quiz session completed")
	return completion
}

func (s *QuizService) newSession(userID string, cfg domain.SessionConfig, questions []domain.Question, notice error) *Session {
	return NewSession(s.newID(), userID, cfg, questions,
		WithSessionClock(s.now),
		WithTicker(s.newTicker),
		WithProgressSink(s.progressSink(userID)),
		WithFallbackNotice(notice),
	)
}

// progressSink persists snapshots best-effort; failures leave the in-memory session
// authoritative.
func (s *QuizService) progressSink(userID string) func(domain.Progress) {
	state := NewUserState(s.store, userID)
	return func(p domain.Progress) {
		ctx, cancel := context.WithTimeout(context.Background(), s.writeTimeout)
		defer cancel()
		if err := state.SaveProgress(ctx, p); err != nil {
			s.log.Error().Err(err).Str("user_id", userID).Msg("progress snapshot not persisted")
		}
	}
}

// loadPool fetches the catalog and drops invalid entries. A fetch failure is reported
// as ErrPoolUnavailable.
func (s *QuizService) loadPool(ctx context.Context) ([]domain.Question, error) {
	all, err := s.catalog.Questions(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("question catalog unavailable, using fallback set")
		return nil, domain.ErrPoolUnavailable
	}
	pool := make([]domain.Question, 0, len(all))
	for _, q := range all {
		if err := q.Validate(); err != nil {
			s.log.Warn().Err(err).Msg("skipping invalid catalog question")
			continue
		}
		pool = append(pool, q)
	}
	return pool, nil
}

func (s *QuizService) dropStaleProgress(ctx context.Context, state UserState, userID string) {
	s.log.Warn().Str("user_id", userID).Msg("progress snapshot no longer matches the catalog")
	if err := state.ClearProgress(ctx); err != nil {
		s.log.Error().Err(err).Str("user_id", userID).Msg("stale progress not cleared")
	}
}
