package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/websoft9/portd/internal/config"
	"github.com/websoft9/portd/internal/registry"
)

func newReleaseCmd(cfg *config.Config) *cobra.Command {
	var expiredOnly bool

	cmd := &cobra.Command{
		Use:   "release <pattern>",
		Short: "Release every service matching an identity pattern",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := openRegistry(cfg)
			if err != nil {
				return fmt.Errorf("release: %w", err)
			}
			defer reg.Close()

			result := reg.Release(args[0], registry.ReleaseOptions{ExpiredOnly: expiredOnly})
			if result.Error != "" {
				return fmt.Errorf("release: %s", result.Error)
			}
			return printJSON(result)
		},
	}
	cmd.Flags().BoolVar(&expiredOnly, "expired-only", false, "only release matches that have already expired")
	return cmd
}
