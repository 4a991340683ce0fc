// Package scanner walks a project tree, recognizes service roots by
// framework signature, and synthesizes the Result a config builder turns
// into an orchestrator config.
package scanner

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// MaxDepth bounds the directory walk; a framework signature more than
// MaxDepth directories below root is never detected by the bounded DFS
// (workspace-expanded roots are exempt, see Scan).
const MaxDepth = 5

var skipDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
	".next":        true,
	"dist":         true,
	"build":        true,
	"coverage":     true,
	"target":       true,
	"vendor":       true,
}

// Service is one discovered or expanded service root.
type Service struct {
	RelativePath  string
	Stack         string
	PreferredPort int
	Dev           string
	Health        string
}

// Result is the scan's output, consumed by internal/configbuilder.
type Result struct {
	Project        string
	Type           string // "single" or "monorepo"
	ServiceCount   int
	Services       map[string]Service
	Suggestions    []string
	ExistingConfig bool
	Guidance       string
}

// Scan walks root (bounded DFS, MAX_DEPTH=5, with the standard skip list)
// and returns every recognized service root, deterministically: directory
// entries are visited in lexicographic order, so two identical trees
// produce byte-identical (field-for-field equal) Results.
func Scan(root string) (Result, error) {
	root = filepath.Clean(root)

	discovered := map[string]Service{} // keyed by relative path, pre-name-resolution
	var order []string                 // relative paths in discovery order

	var walk func(dir string, depth int) error
	walk = func(dir string, depth int) error {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return err
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

		signals := gatherSignals(dir, entries)
		if stack, ok := detectFramework(signals); ok {
			rel := relPath(root, dir)
			discovered[rel] = serviceFromStack(stack, signals)
			order = append(order, rel)
		}

		if depth >= MaxDepth {
			return nil
		}
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			name := e.Name()
			if name != filepath.Base(root) && strings.HasPrefix(name, ".") {
				continue
			}
			if skipDirs[name] {
				continue
			}
			if err := walk(filepath.Join(dir, name), depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(root, 0); err != nil {
		return Result{}, err
	}

	rootPkg := readPackageJSON(root)
	var suggestions []string
	if rootPkg != nil {
		for _, glob := range workspaceGlobs(rootPkg.Workspaces) {
			matches, err := filepath.Glob(filepath.Join(root, glob))
			if err != nil {
				continue
			}
			sort.Strings(matches)
			for _, dir := range matches {
				info, err := os.Stat(dir)
				if err != nil || !info.IsDir() {
					continue
				}
				rel := relPath(root, dir)
				if _, already := discovered[rel]; already {
					continue // nested duplicate under the same root: drop it
				}
				entries, err := os.ReadDir(dir)
				if err != nil {
					continue
				}
				signals := gatherSignals(dir, entries)
				stack, ok := detectFramework(signals)
				if !ok {
					continue
				}
				discovered[rel] = serviceFromStack(stack, signals)
				order = append(order, rel)
			}
		}
	}

	services := make(map[string]Service, len(discovered))
	used := map[string]string{} // name -> relative path that claimed it
	for _, rel := range order {
		svc := discovered[rel]
		svc.RelativePath = rel
		name := nameForPath(root, rel)
		if claimedBy, collide := used[name]; collide && claimedBy != rel {
			// Collision across distinct roots: disambiguate by relative path
			// rather than silently overwriting one service with another.
			disambiguated := name + "-" + sanitizePathSegment(rel)
			suggestions = append(suggestions, "service name \""+name+"\" collided between \""+claimedBy+"\" and \""+rel+"\"; the latter was renamed to \""+disambiguated+"\"")
			name = disambiguated
		}
		used[name] = rel
		services[name] = svc
	}

	hasWorkspaces := rootPkg != nil && len(workspaceGlobs(rootPkg.Workspaces)) > 0
	isMonorepo := hasWorkspaces || len(services) >= 2

	_, existingConfigErr := os.Stat(filepath.Join(root, configFileName))
	result := Result{
		Project:        filepath.Base(root),
		Type:           "single",
		ServiceCount:   len(services),
		Services:       services,
		Suggestions:    suggestions,
		ExistingConfig: existingConfigErr == nil,
	}
	if isMonorepo {
		result.Type = "monorepo"
	}
	if len(services) == 0 {
		result.Guidance = "no recognized service roots found under " + root + "; author a config by hand"
	}
	return result, nil
}

// configFileName is the conventional orchestrator config file Scan checks
// for to populate Result.ExistingConfig.
const configFileName = "portd.config.json"

func gatherSignals(dir string, entries []os.DirEntry) dirSignals {
	files := make(map[string]bool, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			files[e.Name()] = true
		}
	}
	pkg := readPackageJSON(dir)
	var deps map[string]bool
	if pkg != nil {
		deps = pkg.deps()
	}
	return dirSignals{files: files, pkg: pkg, pkgDeps: deps}
}

func serviceFromStack(stack Stack, signals dirSignals) Service {
	return Service{
		Stack:         stack.Name,
		PreferredPort: stack.DefaultPort,
		Dev:           stack.DefaultDev,
		Health:        stack.DefaultHealth,
	}
}

func relPath(root, dir string) string {
	rel, err := filepath.Rel(root, dir)
	if err != nil {
		return dir
	}
	return filepath.ToSlash(rel)
}

var cargoOrPyNameRE = regexp.MustCompile(`(?m)^\s*name\s*=\s*"([^"]+)"`)
var goModuleRE = regexp.MustCompile(`(?m)^module\s+(\S+)`)

// nameForPath derives a service name the same way for both the DFS and the
// workspace-expansion pass: the nearest manifest's declared name (Node
// package.json, then the language manifests' simple `name`/`module` line),
// with a leading npm scope stripped, falling back to the directory
// basename.
func nameForPath(root, rel string) string {
	dir := filepath.Join(root, filepath.FromSlash(rel))
	if rel == "." {
		dir = root
	}

	if pkg := readPackageJSON(dir); pkg != nil && pkg.Name != "" {
		return serviceName(pkg.Name, dir)
	}
	if data, err := os.ReadFile(filepath.Join(dir, "go.mod")); err == nil {
		if m := goModuleRE.FindSubmatch(data); m != nil {
			return serviceName(lastSegment(string(m[1])), dir)
		}
	}
	for _, manifest := range []string{"Cargo.toml", "pyproject.toml"} {
		if data, err := os.ReadFile(filepath.Join(dir, manifest)); err == nil {
			if m := cargoOrPyNameRE.FindSubmatch(data); m != nil {
				return serviceName(string(m[1]), dir)
			}
		}
	}
	return filepath.Base(dir)
}

func lastSegment(modulePath string) string {
	parts := strings.Split(modulePath, "/")
	return parts[len(parts)-1]
}

func sanitizePathSegment(rel string) string {
	return strings.NewReplacer("/", "-", "\\", "-").Replace(rel)
}
