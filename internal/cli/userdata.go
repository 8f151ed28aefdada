package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"scripture-quiz-service/internal/app"
	"scripture-quiz-service/internal/config"
	"scripture-quiz-service/internal/logger"
)

// withService loads config, wires the service and releases it after fn.
func withService(cmd *cobra.Command, configPath string, fn func(*app.QuizService) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Store.Backend == config.BackendMemory {
		return fmt.Errorf("user data commands need a persistent store backend")
	}
	log := logger.Setup(cfg.Log.Level, cfg.Log.Format)
	d, err := buildDeps(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	defer d.Close()
	return fn(d.service)
}

// NewExportCmd writes a user's export bundle as JSON.
func NewExportCmd(configPath *string) *cobra.Command {
	var user, typ, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a user's profile, history or achievements",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, *configPath, func(service *app.QuizService) error {
				bundle, err := service.Export(cmd.Context(), user, app.ExportType(typ))
				if err != nil {
					return err
				}
				var w io.Writer = cmd.OutOrStdout()
				if out != "" {
					f, err := os.Create(out)
					if err != nil {
						return err
					}
					defer f.Close()
					w = f
				}
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(bundle)
			})
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "user ID")
	cmd.Flags().StringVar(&typ, "type", string(app.ExportAll), "progress | quizHistory | achievements | all")
	cmd.Flags().StringVar(&out, "out", "", "output file (defaults to stdout)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

// NewImportCmd applies an export bundle to a user.
func NewImportCmd(configPath *string) *cobra.Command {
	var user, file string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import an export bundle into a user's state",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			var bundle app.Bundle
			if err := json.Unmarshal(raw, &bundle); err != nil {
				return fmt.Errorf("decode bundle: %w", err)
			}
			return withService(cmd, *configPath, func(service *app.QuizService) error {
				return service.Import(cmd.Context(), user, bundle)
			})
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "user ID")
	cmd.Flags().StringVar(&file, "file", "", "bundle JSON file")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// NewResetCmd resets a user's progress, or deletes all of it with --all.
func NewResetCmd(configPath *string) *cobra.Command {
	var user string
	var all bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Reset a user's progress (keeps achievements unless --all)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, *configPath, func(service *app.QuizService) error {
				if all {
					return service.DeleteUser(cmd.Context(), user)
				}
				return service.Reset(cmd.Context(), user)
			})
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "user ID")
	cmd.Flags().BoolVar(&all, "all", false, "delete every stored key of the user")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
