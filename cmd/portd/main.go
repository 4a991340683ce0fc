// Command portd is the developer-workstation orchestrator CLI. It is thin
// wiring over the internal packages (registry, scanner, orchestrator,
// configbuilder) so the module is runnable; process spawning, health
// probing, log multiplexing, and tunnelling remain external collaborators.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/websoft9/portd/internal/config"
)

func main() {
	cfg := config.Load()
	setupLogger(cfg)

	root := newRootCmd(cfg)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setupLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}
