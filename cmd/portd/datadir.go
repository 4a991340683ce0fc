package main

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

func ensureDataDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}

// openAuditLog opens (creating if needed) the append-only audit log under
// dataDir, matching internal/audit's append-one-JSON-line-per-entry
// contract.
func openAuditLog(dataDir string) (*os.File, error) {
	path := filepath.Join(dataDir, "audit.log")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("could not open audit log; audit entries will be dropped")
		return nil, nil
	}
	return f, nil
}
