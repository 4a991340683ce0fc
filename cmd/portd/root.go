package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/websoft9/portd/internal/audit"
	"github.com/websoft9/portd/internal/config"
	"github.com/websoft9/portd/internal/registry"
)

func newRootCmd(cfg *config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:           "portd",
		Short:         "Assign stable ports and bring up multi-service projects in dependency order",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(
		newScanCmd(),
		newBuildConfigCmd(),
		newUpCmd(),
		newClaimCmd(cfg),
		newReleaseCmd(cfg),
		newLsCmd(cfg),
		newServeCmd(cfg),
	)
	return root
}

// openRegistry opens cfg's registry database and audit log, creating
// cfg.DataDir if needed. Additional opts (e.g. WithNotifier for `serve`) are
// passed through to registry.Open.
func openRegistry(cfg *config.Config, opts ...registry.Option) (*registry.Registry, error) {
	if err := ensureDataDir(cfg.DataDir); err != nil {
		return nil, err
	}

	logFile, err := openAuditLog(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	auditLogger := audit.NewLogger(logFile, func(err error) {
		// An audit failure must never break the calling operation; the
		// registry already treats this as fire-and-forget.
	})

	dbPath := filepath.Join(cfg.DataDir, "portd.db")
	allOpts := append([]registry.Option{registry.WithAudit(auditLogger)}, opts...)
	return registry.Open(dbPath, allOpts...)
}
