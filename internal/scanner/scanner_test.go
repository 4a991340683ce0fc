package scanner

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestScan_SingleExpressService(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "package.json"), `{"name":"api","dependencies":{"express":"^4.0.0"}}`)

	res, err := Scan(root)
	if err != nil {
		t.Fatal(err)
	}
	if res.Type != "single" {
		t.Errorf("type = %q, want single", res.Type)
	}
	if res.ServiceCount != 1 {
		t.Fatalf("serviceCount = %d", res.ServiceCount)
	}
	svc, ok := res.Services["api"]
	if !ok {
		t.Fatalf("services = %+v, missing \"api\"", res.Services)
	}
	if svc.Stack != "express" {
		t.Errorf("stack = %q, want express", svc.Stack)
	}
}

func TestScan_ScopedPackageNameStripped(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "package.json"), `{"name":"@acme/api","dependencies":{"express":"^4.0.0"}}`)

	res, err := Scan(root)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := res.Services["api"]; !ok {
		t.Errorf("services = %+v, want key \"api\" with @acme/ stripped", res.Services)
	}
}

func TestScan_NextPrecedesGenericNode(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "package.json"), `{"name":"web"}`)
	writeFile(t, filepath.Join(root, "next.config.js"), `module.exports = {}`)

	res, err := Scan(root)
	if err != nil {
		t.Fatal(err)
	}
	if res.Services["web"].Stack != "nextjs" {
		t.Errorf("stack = %q, want nextjs", res.Services["web"].Stack)
	}
}

func TestScan_GoServiceByModuleName(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "go.mod"), "module github.com/acme/backend\n\ngo 1.23\n")

	res, err := Scan(root)
	if err != nil {
		t.Fatal(err)
	}
	svc, ok := res.Services["backend"]
	if !ok {
		t.Fatalf("services = %+v, want key \"backend\"", res.Services)
	}
	if svc.Stack != "go" {
		t.Errorf("stack = %q, want go", svc.Stack)
	}
}

func TestScan_SkipsNodeModulesAndDotDirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "package.json"), `{"name":"root","dependencies":{"express":"^4.0.0"}}`)
	writeFile(t, filepath.Join(root, "node_modules", "some-dep", "package.json"), `{"name":"some-dep","dependencies":{"express":"^4.0.0"}}`)
	writeFile(t, filepath.Join(root, ".git", "hooks", "package.json"), `{"name":"ghost","dependencies":{"express":"^4.0.0"}}`)

	res, err := Scan(root)
	if err != nil {
		t.Fatal(err)
	}
	if res.ServiceCount != 1 {
		t.Fatalf("serviceCount = %d, services = %+v", res.ServiceCount, res.Services)
	}
}

func TestScan_BoundedDepth(t *testing.T) {
	root := t.TempDir()
	// Express manifest at depth 7 must be excluded; one at depth 2 is found.
	deepPath := root
	for i := 0; i < 7; i++ {
		deepPath = filepath.Join(deepPath, "lvl")
	}
	writeFile(t, filepath.Join(deepPath, "package.json"), `{"name":"too-deep","dependencies":{"express":"^4.0.0"}}`)

	shallowPath := filepath.Join(root, "a", "b")
	writeFile(t, filepath.Join(shallowPath, "package.json"), `{"name":"shallow","dependencies":{"express":"^4.0.0"}}`)

	res, err := Scan(root)
	if err != nil {
		t.Fatal(err)
	}
	if _, found := res.Services["too-deep"]; found {
		t.Error("service at depth 7 should have been excluded by MAX_DEPTH")
	}
	if _, found := res.Services["shallow"]; !found {
		t.Errorf("service at depth 2 should have been found, got %+v", res.Services)
	}
}

func TestScan_WorkspaceExpansionBypassesDepth(t *testing.T) {
	root := t.TempDir()
	// A glob whose static prefix alone already sits past MAX_DEPTH; only
	// workspace expansion (not the bounded DFS) can reach the match.
	writeFile(t, filepath.Join(root, "package.json"), `{"name":"monorepo","workspaces":["packages/lvl/lvl/lvl/lvl/lvl/*"]}`)

	pkgDir := filepath.Join(root, "packages", "lvl", "lvl", "lvl", "lvl", "lvl", "deep-service")
	writeFile(t, filepath.Join(pkgDir, "package.json"), `{"name":"deep-service","dependencies":{"fastify":"^4.0.0"}}`)

	res, err := Scan(root)
	if err != nil {
		t.Fatal(err)
	}
	if _, found := res.Services["deep-service"]; !found {
		t.Errorf("workspace-expanded service should be found regardless of MAX_DEPTH, got %+v", res.Services)
	}
	if res.Type != "monorepo" {
		t.Errorf("type = %q, want monorepo", res.Type)
	}
}

func TestScan_NameCollisionDisambiguatedByPath(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "package.json"), `{"name":"monorepo","workspaces":["packages/*"]}`)
	writeFile(t, filepath.Join(root, "packages", "a", "package.json"), `{"name":"api","dependencies":{"express":"^4.0.0"}}`)
	writeFile(t, filepath.Join(root, "packages", "b", "package.json"), `{"name":"api","dependencies":{"fastify":"^4.0.0"}}`)

	res, err := Scan(root)
	if err != nil {
		t.Fatal(err)
	}
	if res.ServiceCount != 2 {
		t.Fatalf("serviceCount = %d, services = %+v", res.ServiceCount, res.Services)
	}
	if len(res.Suggestions) == 0 {
		t.Error("expected a collision suggestion to be recorded")
	}
	foundDisambiguated := false
	for name := range res.Services {
		if strings.HasPrefix(name, "api-") {
			foundDisambiguated = true
		}
	}
	if !foundDisambiguated {
		t.Errorf("expected one collided service to be renamed, got %+v", res.Services)
	}
}

func TestScan_NoServicesYieldsGuidance(t *testing.T) {
	root := t.TempDir()
	res, err := Scan(root)
	if err != nil {
		t.Fatal(err)
	}
	if res.ServiceCount != 0 {
		t.Fatalf("serviceCount = %d", res.ServiceCount)
	}
	if res.Guidance == "" {
		t.Error("expected guidance when no services were found")
	}
}

func TestScan_IdempotentOnUnchangedTree(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "package.json"), `{"name":"api","dependencies":{"express":"^4.0.0"}}`)
	writeFile(t, filepath.Join(root, "nested", "package.json"), `{"name":"worker","dependencies":{"fastify":"^4.0.0"}}`)

	first, err := Scan(root)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Scan(root)
	if err != nil {
		t.Fatal(err)
	}
	if first.ServiceCount != second.ServiceCount {
		t.Fatalf("first=%d second=%d", first.ServiceCount, second.ServiceCount)
	}
	for name, svc := range first.Services {
		if second.Services[name] != svc {
			t.Errorf("service %q differs between scans: %+v vs %+v", name, svc, second.Services[name])
		}
	}
}

func TestScan_ExistingConfigDetected(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "package.json"), `{"name":"api","dependencies":{"express":"^4.0.0"}}`)

	res, err := Scan(root)
	if err != nil {
		t.Fatal(err)
	}
	if res.ExistingConfig {
		t.Fatal("no config file written yet, ExistingConfig should be false")
	}

	writeFile(t, filepath.Join(root, configFileName), `{}`)
	res, err = Scan(root)
	if err != nil {
		t.Fatal(err)
	}
	if !res.ExistingConfig {
		t.Error("expected ExistingConfig=true after writing portd.config.json")
	}
}
