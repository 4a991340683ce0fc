package configbuilder

import (
	"strings"
	"testing"

	"github.com/websoft9/portd/internal/scanner"
)

func TestBuild_PortRangeSpansDetectedPorts(t *testing.T) {
	result := scanner.Result{
		Project:      "myapp",
		ServiceCount: 2,
		Services: map[string]scanner.Service{
			"api":   {RelativePath: "api", Stack: "express", PreferredPort: 3001, Dev: "node index.js", Health: "/health"},
			"web":   {RelativePath: "web", Stack: "nextjs", PreferredPort: 3000, Dev: "next dev", Health: "/api/health"},
		},
	}
	cfg := Build(result, 0)

	if cfg.PortRange != [2]int{3000, 3050} {
		t.Errorf("portRange = %v, want [3000 3050]", cfg.PortRange)
	}
	if cfg.Services["api"].Identity != "myapp:api:main" {
		t.Errorf("identity = %q", cfg.Services["api"].Identity)
	}
}

func TestBuild_NoServicesGuidance(t *testing.T) {
	cfg := Build(scanner.Result{Project: "empty"}, 0)
	if !strings.Contains(cfg.Guidance, "no services detected") {
		t.Errorf("guidance = %q", cfg.Guidance)
	}
}

func TestBuild_UpToDateGuidance(t *testing.T) {
	result := scanner.Result{
		Project:        "myapp",
		ServiceCount:   1,
		ExistingConfig: true,
		Services:       map[string]scanner.Service{"api": {PreferredPort: 3001}},
	}
	cfg := Build(result, 1)
	if cfg.Guidance != "up to date" {
		t.Errorf("guidance = %q, want \"up to date\"", cfg.Guidance)
	}
}

func TestBuild_DiffGuidance(t *testing.T) {
	result := scanner.Result{
		Project:        "myapp",
		ServiceCount:   2,
		ExistingConfig: true,
		Services: map[string]scanner.Service{
			"api": {PreferredPort: 3001},
			"web": {PreferredPort: 3000},
		},
	}
	cfg := Build(result, 1)
	if !strings.Contains(cfg.Guidance, "detected 2 service(s), existing config has 1") {
		t.Errorf("guidance = %q", cfg.Guidance)
	}
}

func TestBuild_WarnsOnSanitizerCollision(t *testing.T) {
	result := scanner.Result{
		Project:      "myapp",
		ServiceCount: 2,
		Services: map[string]scanner.Service{
			"api-v2": {RelativePath: "api-v2", PreferredPort: 3001},
			"api v2": {RelativePath: "api v2", PreferredPort: 3002},
		},
	}
	cfg := Build(result, 0)

	if len(cfg.Warnings) != 1 {
		t.Fatalf("warnings = %v, want exactly one collision warning", cfg.Warnings)
	}
	if !strings.Contains(cfg.Warnings[0], "API_V2") {
		t.Errorf("warning = %q, want to mention the collided key", cfg.Warnings[0])
	}
}

func TestToGraph_OrdersServicesByName(t *testing.T) {
	cfg := Config{
		Services: map[string]ServiceEntry{
			"web": {Cmd: "next dev", HealthPath: "/"},
			"api": {Cmd: "node index.js", HealthPath: "/health"},
		},
	}
	g := ToGraph(cfg)
	if len(g.Names) != 2 || g.Names[0] != "api" || g.Names[1] != "web" {
		t.Errorf("names = %v, want sorted [api web]", g.Names)
	}
}
