package cli

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"scripture-quiz-service/internal/app"
	"scripture-quiz-service/internal/config"
	"scripture-quiz-service/internal/infra/memory"
	"scripture-quiz-service/internal/infra/postgres"
	redisinfra "scripture-quiz-service/internal/infra/redis"
)

// deps holds the wired service and the connections to release on exit.
type deps struct {
	service *app.QuizService
	closers []func() error
}

func (d *deps) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		errs = append(errs, d.closers[i]())
	}
	return errors.Join(errs...)
}

// buildDeps picks the catalog source, its cache and the user state backend from config.
func buildDeps(ctx context.Context, cfg config.Config, log zerolog.Logger) (*deps, error) {
	d := &deps{}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		d.closers = append(d.closers, redisClient.Close)
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		var err error
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			_ = d.Close()
			return nil, err
		}
		d.closers = append(d.closers, func() error { pool.Close(); return nil })
	}

	var loader memory.QuestionLoader = memory.NewStaticQuestionLoader(app.FallbackQuestions())
	switch {
	case pool != nil:
		loader = postgres.NewQuestionLoader(pool)
	case cfg.Catalog.File != "":
		loader = memory.NewFileQuestionLoader(cfg.Catalog.File)
	default:
		log.Warn().Msg("no catalog source configured, serving the built-in questions")
	}

	catalogTTL := config.TTLDuration(cfg.Catalog.TTL, 10*time.Minute)
	var catalog app.QuestionCatalog
	if redisClient != nil {
		catalog = redisinfra.NewQuestionRepository(redisClient, loader, catalogTTL)
	} else {
		catalog = memory.NewQuestionRepository(loader, catalogTTL)
	}

	var sessions app.SessionRepository
	if redisClient != nil {
		sessions = redisinfra.NewSessionStore(redisClient, redisTTL)
	} else {
		sessions = memory.NewSessionStore()
	}

	var store app.StateStore
	switch cfg.Store.Backend {
	case config.BackendPostgres:
		store = postgres.NewStateStore(pool)
	case config.BackendRedis:
		store = redisinfra.NewStateStore(redisClient)
	default:
		store = memory.NewStateStore()
	}

	log.Info().
		Str("store", cfg.Store.Backend).
		Bool("redis", redisClient != nil).
		Bool("postgres", pool != nil).
		Msg("dependencies wired")

	d.service = app.NewQuizService(sessions, catalog, store, log,
		app.WithDefaultQuestionCount(cfg.Quiz.DefaultQuestionCount),
	)
	return d, nil
}
