// Package cli implements the tables command line: the server and a terminal drill.
package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/victornm/tables/internal/config"
	"github.com/victornm/tables/internal/score"
	"github.com/victornm/tables/internal/server"
	"github.com/victornm/tables/internal/telemetry"
)

const envPrefix = "TABLES"

type app struct {
	configPath string
	config     server.Config
	logCloser  io.Closer
	// now is the drill clock, time.Now when nil.
	now func() time.Time
}

// NewRootCommand builds the tables command and its subcommands.
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "tables",
		Short: "Practice multiplication and division tables",
		Long: `Tables drills multiplication and division tables, one table of ten
shuffled questions at a time, and keeps the time of every finished table.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load()
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if a.logCloser != nil {
				return a.logCloser.Close()
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", os.Getenv("CONFIG_PATH"), "config file (env CONFIG_PATH)")

	root.AddCommand(
		a.serveCommand(),
		a.practiceCommand(),
		a.scoresCommand(),
		a.clearCommand(),
		a.tablesCommand(),
	)

	return root
}

func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// load reads .env, then the config file and the TABLES_* environment over the defaults.
func (a *app) load() error {
	if err := godotenv.Load(); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	a.config = server.DefaultConfig()
	if err := config.Load(a.configPath, &a.config, config.WithEnvPrefix(envPrefix)); err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	closer, err := telemetry.SetupLogger(a.config.Log)
	if err != nil {
		return fmt.Errorf("setup logger: %w", err)
	}
	a.logCloser = closer

	return nil
}

// openScores opens the configured score store. The caller must call the returned function.
func (a *app) openScores(ctx context.Context) (*score.Service, func() error, error) {
	repo, closeRepo, err := server.OpenScoreRepository(ctx, a.config.Store)
	if err != nil {
		return nil, nil, fmt.Errorf("open score store: %w", err)
	}

	return score.NewService(score.Config{Repository: repo}), closeRepo, nil
}
