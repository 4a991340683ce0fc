package orchestrator

import (
	"strings"
	"testing"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestNormalizeServiceConfig_Defaults(t *testing.T) {
	cfg := NormalizeServiceConfig("api", RawServiceConfig{})
	if cfg.Cmd != nil {
		t.Errorf("Cmd = %v, want nil", cfg.Cmd)
	}
	if cfg.Port != nil {
		t.Errorf("Port = %v, want nil", cfg.Port)
	}
	if cfg.HealthPath != "/" {
		t.Errorf("HealthPath = %q, want \"/\"", cfg.HealthPath)
	}
	if len(cfg.Needs) != 0 {
		t.Errorf("Needs = %v, want empty", cfg.Needs)
	}
	if cfg.NoPort {
		t.Error("NoPort = true, want false")
	}
}

func TestNormalizeServiceConfig_NewKeysWinOverOld(t *testing.T) {
	cfg := NormalizeServiceConfig("api", RawServiceConfig{
		Dev: strPtr("old dev cmd"),
		Cmd: strPtr("new cmd"),
		PreferredPort: intPtr(4000),
		Port:          intPtr(5000),
		Health:        strPtr("/old-health"),
		HealthPath:    strPtr("/new-health"),
	})
	if cfg.Cmd == nil || *cfg.Cmd != "new cmd" {
		t.Errorf("Cmd = %v, want \"new cmd\"", cfg.Cmd)
	}
	if cfg.Port == nil || *cfg.Port != 5000 {
		t.Errorf("Port = %v, want 5000", cfg.Port)
	}
	if cfg.HealthPath != "/new-health" {
		t.Errorf("HealthPath = %q", cfg.HealthPath)
	}
}

func TestNormalizeServiceConfig_ExplicitZeroPortPreserved(t *testing.T) {
	cfg := NormalizeServiceConfig("api", RawServiceConfig{Port: intPtr(0)})
	if cfg.Port == nil {
		t.Fatal("Port = nil, want explicit 0 preserved")
	}
	if *cfg.Port != 0 {
		t.Errorf("Port = %d, want 0", *cfg.Port)
	}
}

func TestTopologicalSort_DiamondTopology(t *testing.T) {
	g := Graph{
		Names: []string{"app", "api", "worker", "db"},
		Services: map[string]ServiceConfig{
			"app":    {Needs: []string{"api", "worker"}},
			"api":    {Needs: []string{"db"}},
			"worker": {Needs: []string{"db"}},
			"db":     {},
		},
	}
	res := TopologicalSort(g)
	if res.Error != "" {
		t.Fatalf("unexpected error: %s", res.Error)
	}
	idx := indexOf(res.Order)
	if !(idx("db") < idx("api") && idx("db") < idx("worker") && idx("api") < idx("app") && idx("worker") < idx("app")) {
		t.Errorf("order = %v does not satisfy diamond constraints", res.Order)
	}
}

func TestTopologicalSort_Cycle(t *testing.T) {
	g := Graph{
		Names: []string{"a", "b"},
		Services: map[string]ServiceConfig{
			"a": {Needs: []string{"b"}},
			"b": {Needs: []string{"a"}},
		},
	}
	res := TopologicalSort(g)
	if len(res.Order) != 0 {
		t.Errorf("order = %v, want empty", res.Order)
	}
	if !strings.Contains(res.Error, "Circular dependency") {
		t.Errorf("error = %q, want to contain \"Circular dependency\"", res.Error)
	}
	if !strings.Contains(res.Error, "a") || !strings.Contains(res.Error, "b") {
		t.Errorf("error = %q, want to mention both a and b", res.Error)
	}
}

func TestTopologicalSort_MissingDependency(t *testing.T) {
	g := Graph{
		Names: []string{"app"},
		Services: map[string]ServiceConfig{
			"app": {Needs: []string{"ghost"}},
		},
	}
	res := TopologicalSort(g)
	if !strings.Contains(res.Error, "Unknown dependency: ghost") {
		t.Errorf("error = %q", res.Error)
	}
}

func TestTopologicalSort_IndependentServicesKeepInputOrder(t *testing.T) {
	g := Graph{
		Names: []string{"c", "b", "a"},
		Services: map[string]ServiceConfig{
			"c": {}, "b": {}, "a": {},
		},
	}
	res := TopologicalSort(g)
	want := []string{"c", "b", "a"}
	for i, name := range want {
		if res.Order[i] != name {
			t.Fatalf("order = %v, want %v", res.Order, want)
		}
	}
}

func TestResolveDependencies_TransitiveClosure(t *testing.T) {
	g := Graph{
		Names: []string{"app", "api", "db"},
		Services: map[string]ServiceConfig{
			"app": {Needs: []string{"api"}},
			"api": {Needs: []string{"db"}},
			"db":  {},
		},
	}
	res := ResolveDependencies("app", g)
	if res.Error != "" {
		t.Fatalf("unexpected error: %s", res.Error)
	}
	for _, want := range []string{"app", "api", "db"} {
		if !res.Deps[want] {
			t.Errorf("deps = %v, missing %q", res.Deps, want)
		}
	}
}

func TestResolveDependencies_MissingTarget(t *testing.T) {
	g := Graph{Names: []string{}, Services: map[string]ServiceConfig{}}
	res := ResolveDependencies("ghost", g)
	if !strings.Contains(res.Error, "not found") {
		t.Errorf("error = %q", res.Error)
	}
}

func TestResolveDependencies_MissingTransitiveDep(t *testing.T) {
	g := Graph{
		Names:    []string{"app"},
		Services: map[string]ServiceConfig{"app": {Needs: []string{"ghost"}}},
	}
	res := ResolveDependencies("app", g)
	if !strings.Contains(res.Error, "not defined: ghost") {
		t.Errorf("error = %q", res.Error)
	}
}

func TestBuildEnvMap_RemoteVsLocalPeer(t *testing.T) {
	remote := "https://api.example.com"
	g := Graph{
		Names: []string{"frontend", "api"},
		Services: map[string]ServiceConfig{
			"frontend": {Env: map[string]string{}},
			"api":      {Remote: &remote, Env: map[string]string{}},
		},
	}
	envMaps := BuildEnvMap(g, map[string]int{"frontend": 3100})

	if envMaps["frontend"]["API_URL"] != remote {
		t.Errorf("API_URL = %q, want %q", envMaps["frontend"]["API_URL"], remote)
	}
	if _, has := envMaps["frontend"]["API_PORT"]; has {
		t.Error("API_PORT should be absent for a remote peer")
	}
	if envMaps["frontend"]["PORT"] != "3100" {
		t.Errorf("PORT = %q, want 3100", envMaps["frontend"]["PORT"])
	}
}

func TestBuildEnvMap_LocalPeerGetsPortAndURL(t *testing.T) {
	g := Graph{
		Names: []string{"frontend", "api"},
		Services: map[string]ServiceConfig{
			"frontend": {Env: map[string]string{}},
			"api":      {Env: map[string]string{}},
		},
	}
	envMaps := BuildEnvMap(g, map[string]int{"frontend": 3100, "api": 3101})

	if envMaps["frontend"]["API_PORT"] != "3101" {
		t.Errorf("API_PORT = %q", envMaps["frontend"]["API_PORT"])
	}
	if envMaps["frontend"]["API_URL"] != "http://localhost:3101" {
		t.Errorf("API_URL = %q", envMaps["frontend"]["API_URL"])
	}
}

func TestBuildEnvMap_UserEnvOverridesDerived(t *testing.T) {
	g := Graph{
		Names: []string{"frontend", "api"},
		Services: map[string]ServiceConfig{
			"frontend": {Env: map[string]string{"PORT": "9999"}},
			"api":      {Env: map[string]string{}},
		},
	}
	envMaps := BuildEnvMap(g, map[string]int{"frontend": 3100, "api": 3101})
	if envMaps["frontend"]["PORT"] != "9999" {
		t.Errorf("PORT = %q, want user override to win", envMaps["frontend"]["PORT"])
	}
}

func TestSanitizeEnvKey(t *testing.T) {
	cases := map[string]string{
		"api":        "API",
		"my-service": "MY_SERVICE",
		"3rd-party":  "_3RD_PARTY",
		"weird.name": "WEIRD_NAME",
	}
	for in, want := range cases {
		if got := sanitizeEnvKey(in); got != want {
			t.Errorf("sanitizeEnvKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func indexOf(order []string) func(string) int {
	pos := make(map[string]int, len(order))
	for i, n := range order {
		pos[n] = i
	}
	return func(name string) int { return pos[name] }
}
