// Package orchestrator normalizes per-service configuration, orders
// services by dependency, and derives each service's environment.
package orchestrator

// RawServiceConfig is the as-authored shape of one service entry in a
// project's config file: both the old and new key spellings are accepted,
// with new-style keys winning when both are present.
type RawServiceConfig struct {
	Cmd           *string
	Dev           *string
	Port          *int
	PreferredPort *int
	HealthPath    *string
	Health        *string
	Needs         []string
	NoPort        bool
	Remote        *string
	Dir           *string
	Env           map[string]string
}

// ServiceConfig is the fully-populated, normalized shape the rest of the
// orchestrator works with.
type ServiceConfig struct {
	Name       string
	Cmd        *string
	Port       *int // explicit nil vs 0 is preserved; 0 is a valid configured port
	HealthPath string
	Needs      []string
	NoPort     bool
	Remote     *string
	Dir        *string
	Env        map[string]string
}

// NormalizeServiceConfig fills in every ServiceConfig default and resolves
// old/new key aliases, preferring the new-style key when both are set.
func NormalizeServiceConfig(name string, raw RawServiceConfig) ServiceConfig {
	cfg := ServiceConfig{
		Name:       name,
		HealthPath: "/",
		Needs:      []string{},
		Env:        map[string]string{},
		NoPort:     raw.NoPort,
		Remote:     raw.Remote,
		Dir:        raw.Dir,
	}

	if raw.Cmd != nil {
		cfg.Cmd = raw.Cmd
	} else {
		cfg.Cmd = raw.Dev
	}

	switch {
	case raw.Port != nil:
		cfg.Port = raw.Port
	case raw.PreferredPort != nil:
		cfg.Port = raw.PreferredPort
	}

	switch {
	case raw.HealthPath != nil:
		cfg.HealthPath = *raw.HealthPath
	case raw.Health != nil:
		cfg.HealthPath = *raw.Health
	}

	if raw.Needs != nil {
		cfg.Needs = raw.Needs
	}
	if raw.Env != nil {
		cfg.Env = raw.Env
	}

	return cfg
}
