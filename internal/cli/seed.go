package cli

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"scripture-quiz-service/internal/config"
	"scripture-quiz-service/internal/infra/memory"
	"scripture-quiz-service/internal/infra/postgres"
	redisinfra "scripture-quiz-service/internal/infra/redis"
	"scripture-quiz-service/internal/logger"
)

// NewSeedCmd loads a JSON question catalog into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Upsert the question catalog from a JSON file into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			log := logger.Setup(cfg.Log.Level, cfg.Log.Format)
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured")
			}
			if file == "" {
				file = cfg.Catalog.File
			}
			if file == "" {
				return fmt.Errorf("no catalog file: pass --file or set catalog.file")
			}

			questions, err := memory.ReadQuestionsFile(file)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if err := runMigrations(ctx, cfg, log); err != nil {
				return err
			}
			db := postgres.OpenBun(cfg.Postgres.URL)
			defer db.Close()

			n, err := postgres.SeedQuestions(ctx, db, questions)
			if err != nil {
				return err
			}
			log.Info().Int("questions", n).Str("file", file).Msg("catalog seeded")
			invalidateCatalogCache(ctx, cfg, log)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "catalog JSON file (defaults to catalog.file)")
	return cmd
}

// invalidateCatalogCache drops the Redis-cached catalog so running servers pick up the
// new questions. In-process caches expire on their own TTL.
func invalidateCatalogCache(ctx context.Context, cfg config.Config, log zerolog.Logger) {
	if cfg.Redis.Addr == "" {
		return
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer client.Close()

	if err := redisinfra.InvalidateCatalog(ctx, client); err != nil {
		log.Warn().Err(err).Msg("cached catalog not invalidated, it expires with its ttl")
		return
	}
	log.Info().Msg("cached catalog invalidated")
}
