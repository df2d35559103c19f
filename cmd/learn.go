package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/enfinlibre/formation/internal/app"
	"github.com/enfinlibre/formation/internal/client"
	"github.com/enfinlibre/formation/internal/config"
)

var learnCmd = &cobra.Command{
	Use:   "learn",
	Short: "Follow the course in the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLearn(cmd)
	},
}

func init() {
	learnCmd.Flags().String("server", "", "API base URL (overrides client.base_url)")
}

// runLearn checks the server and launches the TUI. An unreachable server
// is reported but does not prevent browsing the course.
func runLearn(cmd *cobra.Command) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	c, baseURL := newClient(cmd, cfg)

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	defer cancel()
	health, err := c.Health(ctx)
	switch {
	case err != nil:
		fmt.Fprintf(os.Stderr, "Server %s unreachable: %v\n", baseURL, err)
		fmt.Fprintln(os.Stderr, "Quiz submission and the dashboard will be unavailable.")
	default:
		if err := client.CheckCompatible(version, health.Version); errors.Is(err, client.ErrIncompatible) {
			return fmt.Errorf("%w\n\nUpdate formation to match the server", err)
		}
	}

	return app.Run(c, version)
}

// newClient builds an API client for --server, or client.base_url when
// the flag is absent.
func newClient(cmd *cobra.Command, cfg *config.Config) (*client.Client, string) {
	baseURL := cfg.Client.BaseURL
	if f := cmd.Flags().Lookup("server"); f != nil && f.Value.String() != "" {
		baseURL = f.Value.String()
	}
	return client.New(baseURL, cfg.Client.Timeout), baseURL
}
