package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/websoft9/portd/internal/orchestrator"
)

// upReport is what `portd up` prints: the order services would start in and
// the environment each would see, given a port assignment. It never spawns
// anything — starting processes, probing health, and multiplexing logs are
// left to the caller, per the non-goals this command is scoped to.
type upReport struct {
	Name string            `json:"name"`
	Env  map[string]string `json:"env"`
}

func newUpCmd() *cobra.Command {
	var portFlag map[string]int

	cmd := &cobra.Command{
		Use:   "up [config]",
		Short: "Print the dependency order and resolved environment for a project config, without starting anything",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configFileName
			if len(args) == 1 {
				path = args[0]
			}

			graph, err := loadGraph(path)
			if err != nil {
				return fmt.Errorf("up: %w", err)
			}

			sorted := orchestrator.TopologicalSort(graph)
			if sorted.Error != "" {
				return fmt.Errorf("up: %s", sorted.Error)
			}

			envMap := orchestrator.BuildEnvMap(graph, portFlag)

			reports := make([]upReport, 0, len(sorted.Order))
			for _, name := range sorted.Order {
				reports = append(reports, upReport{Name: name, Env: envMap[name]})
			}
			return printJSON(struct {
				Order    []string   `json:"order"`
				Services []upReport `json:"services"`
			}{Order: sorted.Order, Services: reports})
		},
	}
	cmd.Flags().Var(newPortMapFlag(&portFlag), "port", "service=port assignment to resolve env vars against, repeatable")
	return cmd
}

// loadGraph reads an orchestrator-shaped project config file (the format
// build-config emits) and turns it into a Graph. Graph.Names is sorted by
// service name; the order of the keys in the file is not kept.
func loadGraph(path string) (orchestrator.Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return orchestrator.Graph{}, fmt.Errorf("read %s: %w", filepath.Clean(path), err)
	}

	var raw struct {
		Services map[string]orchestrator.RawServiceConfig `json:"services"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return orchestrator.Graph{}, fmt.Errorf("parse %s: %w", path, err)
	}

	names := make([]string, 0, len(raw.Services))
	for name := range raw.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	services := make(map[string]orchestrator.ServiceConfig, len(names))
	for _, name := range names {
		services[name] = orchestrator.NormalizeServiceConfig(name, raw.Services[name])
	}
	return orchestrator.Graph{Names: names, Services: services}, nil
}
