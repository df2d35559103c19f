package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/enfinlibre/formation/internal/client"
)

// version is set via -ldflags at build time.
var version = "(devel)"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current version",
	Long: `Print the current version. With --check, also query the server
and report whether its major version matches.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("formation", version)

		check, _ := cmd.Flags().GetBool("check")
		if !check {
			return nil
		}

		cfg, _, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		c, baseURL := newClient(cmd, cfg)

		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
		defer cancel()
		health, err := c.Health(ctx)
		if err != nil {
			return fmt.Errorf("server %s unreachable: %w", baseURL, err)
		}
		fmt.Printf("server %s %s\n", baseURL, health.Version)
		return client.CheckCompatible(version, health.Version)
	},
}

func init() {
	versionCmd.Flags().Bool("check", false, "Check compatibility with the server")
	versionCmd.Flags().String("server", "", "API base URL (overrides client.base_url)")
}
