// Package configbuilder converts a scanner.Result into the orchestrator
// config a project would check in: per-service commands, health paths, and
// a project-wide port range sized to the detected services.
package configbuilder

import (
	"fmt"
	"sort"

	"github.com/websoft9/portd/internal/orchestrator"
	"github.com/websoft9/portd/internal/scanner"
)

// ServiceEntry is one service's emitted config entry.
type ServiceEntry struct {
	Cmd           string
	HealthPath    string
	PreferredPort int
	Dir           string
	Detected      string // the stack name the scanner matched, e.g. "express"
	Identity      string // the candidate project:role:instance identity
}

// Config is the orchestrator-config-shaped output of Build.
type Config struct {
	Project   string
	Services  map[string]ServiceEntry
	PortRange [2]int
	Guidance  string
	// Warnings surfaces non-fatal issues, e.g. two service names that
	// sanitize to the same environment-variable key in buildEnvMap — the
	// later one wins there, but the collision is worth flagging rather
	// than passing silently.
	Warnings []string `json:"Warnings,omitempty"`
}

// Build converts a scan result into a Config. existingServiceCount is the
// number of services in a previously-generated config, if any (0 when
// scanner.Result.ExistingConfig is false); it drives the guidance message.
func Build(result scanner.Result, existingServiceCount int) Config {
	cfg := Config{
		Project:  result.Project,
		Services: make(map[string]ServiceEntry, len(result.Services)),
	}

	names := make([]string, 0, len(result.Services))
	for name := range result.Services {
		names = append(names, name)
	}
	sort.Strings(names)

	var ports []int
	for _, name := range names {
		svc := result.Services[name]
		entry := ServiceEntry{
			Cmd:        svc.Dev,
			HealthPath: svc.Health,
			Dir:        svc.RelativePath,
			Detected:   svc.Stack,
			Identity:   fmt.Sprintf("%s:%s:main", result.Project, name),
		}
		if svc.PreferredPort != 0 {
			entry.PreferredPort = svc.PreferredPort
			ports = append(ports, svc.PreferredPort)
		}
		cfg.Services[name] = entry
	}

	cfg.PortRange = portRange(ports)
	cfg.Guidance = guidance(result, existingServiceCount)
	cfg.Warnings = sanitizerCollisionWarnings(names)
	return cfg
}

// sanitizerCollisionWarnings flags any set of service names that
// orchestrator.BuildEnvMap would sanitize to the same environment-variable
// key, since the later name (in graph order) silently wins there.
func sanitizerCollisionWarnings(names []string) []string {
	byKey := make(map[string][]string)
	for _, name := range names {
		key := orchestrator.SanitizeEnvKey(name)
		byKey[key] = append(byKey[key], name)
	}

	keys := make([]string, 0, len(byKey))
	for key, group := range byKey {
		if len(group) > 1 {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	var warnings []string
	for _, key := range keys {
		warnings = append(warnings, fmt.Sprintf(
			"services %v all sanitize to the env key %q; only the last one's PORT/URL will be visible to peers",
			byKey[key], key))
	}
	return warnings
}

// portRange computes [min(preferredPorts), max(preferredPorts)+49], falling
// back to the registry's own default range when no service declared a port.
func portRange(preferredPorts []int) [2]int {
	if len(preferredPorts) == 0 {
		return [2]int{orchestratorDefaultRangeLo, orchestratorDefaultRangeHi}
	}
	lo, hi := preferredPorts[0], preferredPorts[0]
	for _, p := range preferredPorts[1:] {
		if p < lo {
			lo = p
		}
		if p > hi {
			hi = p
		}
	}
	return [2]int{lo, hi + 49}
}

// orchestratorDefaultRangeLo/Hi mirror internal/registry's defaults so a
// project with no detected preferred ports still gets a sane range.
const (
	orchestratorDefaultRangeLo = 3100
	orchestratorDefaultRangeHi = 9999
)

func guidance(result scanner.Result, existingServiceCount int) string {
	if result.ServiceCount == 0 {
		return "no services detected; author services by hand in the project config"
	}
	if !result.ExistingConfig {
		return fmt.Sprintf("generated config for %d service(s); review and commit it", result.ServiceCount)
	}
	if result.ServiceCount == existingServiceCount {
		return "up to date"
	}
	return fmt.Sprintf("detected %d service(s), existing config has %d; review the diff before committing", result.ServiceCount, existingServiceCount)
}

// ToGraph adapts a Config into an orchestrator.Graph using each service's
// scanner-detected Cmd/HealthPath/PreferredPort as the normalized defaults,
// with no "needs"/"remote"/"env" (those are authored by hand after the
// initial scan, never inferred).
func ToGraph(cfg Config) orchestrator.Graph {
	names := make([]string, 0, len(cfg.Services))
	for name := range cfg.Services {
		names = append(names, name)
	}
	sort.Strings(names)

	services := make(map[string]orchestrator.ServiceConfig, len(names))
	for _, name := range names {
		entry := cfg.Services[name]
		cmd := entry.Cmd
		port := entry.PreferredPort
		services[name] = orchestrator.NormalizeServiceConfig(name, orchestrator.RawServiceConfig{
			Cmd:        &cmd,
			Port:       &port,
			HealthPath: &entry.HealthPath,
			Dir:        &entry.Dir,
		})
	}
	return orchestrator.Graph{Names: names, Services: services}
}
