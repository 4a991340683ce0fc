package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/websoft9/portd/internal/configbuilder"
	"github.com/websoft9/portd/internal/scanner"
)

const configFileName = "portd.config.json"

func newBuildConfigCmd() *cobra.Command {
	var write bool

	cmd := &cobra.Command{
		Use:   "build-config [dir]",
		Short: "Scan a project and derive a portd.config.json from what it finds",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}

			result, err := scanner.Scan(dir)
			if err != nil {
				return fmt.Errorf("build-config: %w", err)
			}

			existingServiceCount := 0
			if existing, err := loadExistingConfig(dir); err == nil && existing != nil {
				existingServiceCount = len(existing.Services)
			}

			cfg := configbuilder.Build(result, existingServiceCount)
			if !write {
				return printJSON(cfg)
			}

			path := filepath.Join(dir, configFileName)
			data, err := json.MarshalIndent(cfg, "", "  ")
			if err != nil {
				return err
			}
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return fmt.Errorf("build-config: write %s: %w", path, err)
			}
			fmt.Printf("wrote %s (%s)\n", path, cfg.Guidance)
			return nil
		},
	}
	cmd.Flags().BoolVar(&write, "write", false, "write the derived config to portd.config.json instead of printing it")
	return cmd
}

func loadExistingConfig(dir string) (*configbuilder.Config, error) {
	data, err := os.ReadFile(filepath.Join(dir, configFileName))
	if err != nil {
		return nil, err
	}
	var cfg configbuilder.Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
