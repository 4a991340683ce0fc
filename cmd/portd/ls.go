package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/websoft9/portd/internal/config"
	"github.com/websoft9/portd/internal/registry"
)

func newLsCmd(cfg *config.Config) *cobra.Command {
	var (
		status  string
		port    int
		expired bool
		notExp  bool
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "ls [pattern]",
		Short: "List claimed services, optionally filtered by an identity pattern",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pattern := "*:*:*"
			if len(args) == 1 {
				pattern = args[0]
			}

			reg, err := openRegistry(cfg)
			if err != nil {
				return fmt.Errorf("ls: %w", err)
			}
			defer reg.Close()

			opts := registry.FindOptions{Status: status, Port: port, Limit: limit}
			switch {
			case expired:
				t := true
				opts.Expired = &t
			case notExp:
				f := false
				opts.Expired = &f
			}

			result := reg.Find(pattern, opts)
			if result.Error != "" {
				return fmt.Errorf("ls: %s", result.Error)
			}
			return printJSON(result)
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	cmd.Flags().IntVar(&port, "port", 0, "filter by assigned port")
	cmd.Flags().BoolVar(&expired, "expired", false, "only show expired services")
	cmd.Flags().BoolVar(&notExp, "active", false, "only show non-expired services")
	cmd.Flags().IntVar(&limit, "limit", 0, "cap the number of results; 0 means unlimited")
	return cmd
}
