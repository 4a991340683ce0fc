package scanner

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// packageJSON is the subset of a Node manifest the scanner reads.
type packageJSON struct {
	Name            string          `json:"name"`
	Dependencies    map[string]any  `json:"dependencies"`
	DevDependencies map[string]any  `json:"devDependencies"`
	Workspaces      json.RawMessage `json:"workspaces"`
}

func readPackageJSON(dir string) *packageJSON {
	data, err := os.ReadFile(filepath.Join(dir, "package.json"))
	if err != nil {
		return nil
	}
	var pkg packageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil
	}
	return &pkg
}

func (p *packageJSON) deps() map[string]bool {
	deps := make(map[string]bool, len(p.Dependencies)+len(p.DevDependencies))
	for name := range p.Dependencies {
		deps[name] = true
	}
	for name := range p.DevDependencies {
		deps[name] = true
	}
	return deps
}

// serviceName strips an npm scope prefix from name, falling back to dir's
// basename when name is empty.
func serviceName(name, dir string) string {
	if name == "" {
		return filepath.Base(dir)
	}
	if i := strings.Index(name, "/"); strings.HasPrefix(name, "@") && i >= 0 {
		return name[i+1:]
	}
	return name
}

// workspaceGlobs normalizes the two shapes npm/yarn/pnpm use for the
// "workspaces" manifest key: a bare array of globs, or {"packages": [...]}.
func workspaceGlobs(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var asList []string
	if err := json.Unmarshal(raw, &asList); err == nil {
		return asList
	}
	var asObject struct {
		Packages []string `json:"packages"`
	}
	if err := json.Unmarshal(raw, &asObject); err == nil {
		return asObject.Packages
	}
	return nil
}
