package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/enfinlibre/formation/internal/config"
	"github.com/enfinlibre/formation/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "formation",
	Short: "Prompting course with AI feedback on the final quiz",
	Long: "Formation Prompting: a short course on writing prompts for AI assistants.\n\n" +
		"Run `formation serve` to start the API and `formation learn` to follow the course.",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLearn(cmd)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to a config file (default: formation.yaml in ., ./config or the user config dir)")
	rootCmd.PersistentFlags().String("db", "", "Path to the SQLite database file (overrides database.path and FORMATION_DB)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(learnCmd)
	rootCmd.AddCommand(submissionsCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads configuration from the file named by --config, the
// environment and .env.
func loadConfig(cmd *cobra.Command) (*config.Config, *config.Loader, error) {
	file, _ := cmd.Flags().GetString("config")
	loader := config.NewLoader(file)
	cfg, err := loader.Load()
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, loader, nil
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then database.path, then FORMATION_DB, then the default XDG path.
func resolveDBPath(cmd *cobra.Command, cfg *config.Config) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	if cfg != nil && cfg.Database.Path != "" {
		return cfg.Database.Path, store.EnsureDir(cfg.Database.Path)
	}
	return store.DefaultDBPath()
}

// openBackend opens the configured storage backend.
func openBackend(ctx context.Context, cmd *cobra.Command, cfg *config.Config) (store.Backend, error) {
	if cfg.Database.Driver == config.DriverMongo {
		b, err := store.OpenMongo(ctx, cfg.Database.MongoURI, cfg.Database.MongoDatabase)
		if err != nil {
			return nil, fmt.Errorf("open mongo store: %w", err)
		}
		return b, nil
	}

	dbPath, err := resolveDBPath(cmd, cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	s, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return s, nil
}

// withBackend loads configuration, opens the backend and runs fn.
func withBackend(cmd *cobra.Command, fn func(ctx context.Context, cfg *config.Config, b store.Backend) error) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	b, err := openBackend(ctx, cmd, cfg)
	if err != nil {
		return err
	}
	defer b.Close()
	return fn(ctx, cfg, b)
}
