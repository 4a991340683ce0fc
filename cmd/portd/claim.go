package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/websoft9/portd/internal/config"
	"github.com/websoft9/portd/internal/registry"
)

func newClaimCmd(cfg *config.Config) *cobra.Command {
	var (
		port    int
		rangeLo int
		rangeHi int
		expires string
	)

	cmd := &cobra.Command{
		Use:   "claim <id>",
		Short: "Reserve a port for a project:role:instance identity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := openRegistry(cfg)
			if err != nil {
				return fmt.Errorf("claim: %w", err)
			}
			defer reg.Close()

			lo, hi := rangeLo, rangeHi
			if lo == 0 {
				lo = cfg.DefaultRangeLo
			}
			if hi == 0 {
				hi = cfg.DefaultRangeHi
			}
			result := reg.Claim(args[0], registry.ClaimOptions{
				Port:    port,
				RangeLo: lo,
				RangeHi: hi,
				Expires: expires,
			})
			if result.Error != "" {
				return fmt.Errorf("claim: %s", result.Error)
			}
			return printJSON(result)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "preferred port; 0 lets portd pick")
	cmd.Flags().IntVar(&rangeLo, "range-lo", 0, "low end of the allocation range; 0 uses the configured default")
	cmd.Flags().IntVar(&rangeHi, "range-hi", 0, "high end of the allocation range; 0 uses the configured default")
	cmd.Flags().StringVar(&expires, "expires", "", "duration literal (e.g. 30m, 2h, 7d); empty means no expiration")
	return cmd
}
