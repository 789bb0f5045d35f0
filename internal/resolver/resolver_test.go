package resolver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pacm-sh/pacm/internal/registry"
	"github.com/pacm-sh/pacm/internal/spec"
)

// fakeVersion describes one version inside a fake registry document.
type fakeVersion struct {
	deps     map[string]string
	optional map[string]string
	peers    map[string]string
	os       []string
}

func fakeRegistry(t *testing.T, docs map[string]map[string]fakeVersion) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Path[1:]
		versions, ok := docs[name]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		doc := map[string]any{
			"name":      name,
			"dist-tags": map[string]string{"latest": latestOf(versions)},
		}
		versionDocs := make(map[string]any, len(versions))
		for v, fv := range versions {
			versionDocs[v] = map[string]any{
				"name":                 name,
				"version":              v,
				"dependencies":         fv.deps,
				"optionalDependencies": fv.optional,
				"peerDependencies":     fv.peers,
				"os":                   fv.os,
				"dist": map[string]string{
					"tarball":   "https://tarballs.test/" + name + "-" + v + ".tgz",
					"integrity": "sha512-ZmFrZQ==",
				},
			}
		}
		doc["versions"] = versionDocs
		_ = json.NewEncoder(w).Encode(doc)
	}))
}

// latestOf picks the lexicographically greatest version, good enough for
// the fixed test fixtures.
func latestOf(versions map[string]fakeVersion) string {
	best := ""
	for v := range versions {
		if v > best {
			best = v
		}
	}
	return best
}

func plainDirect(names ...string) []Direct {
	out := make([]Direct, 0, len(names))
	for _, name := range names {
		out = append(out, Direct{Spec: spec.Spec{Name: name, Real: name, Range: "latest"}})
	}
	return out
}

func find(result *Result, name string) *Package {
	for _, pkg := range result.Packages {
		if pkg.Name == name {
			return pkg
		}
	}
	return nil
}

func TestResolveTransitiveGraph(t *testing.T) {
	server := fakeRegistry(t, map[string]map[string]fakeVersion{
		"app": {
			"1.0.0": {
				deps:     map[string]string{"lib": "^1.0.0"},
				peers:    map[string]string{"peer": "^2.0.0"},
				optional: map[string]string{"native": "^1.0.0"},
			},
		},
		"lib":    {"1.0.0": {}, "1.2.0": {deps: map[string]string{"shared": "^1.0.0"}}},
		"peer":   {"2.1.0": {deps: map[string]string{"shared": "^1.0.0"}}},
		"shared": {"1.5.0": {}},
		"native": {"1.0.0": {os: []string{"nonexistent-os"}}},
	})
	defer server.Close()

	result, err := New(registry.New(server.URL)).Resolve(context.Background(), plainDirect("app"))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	wantNames := map[string]string{
		"app":    "1.0.0",
		"lib":    "1.2.0",
		"peer":   "2.1.0",
		"shared": "1.5.0",
	}
	if len(result.Packages) != len(wantNames) {
		t.Fatalf("resolved %d packages, want %d: %+v", len(result.Packages), len(wantNames), result.Packages)
	}
	for name, version := range wantNames {
		pkg := find(result, name)
		if pkg == nil {
			t.Errorf("package %s missing from resolved set", name)
			continue
		}
		if pkg.Version != version {
			t.Errorf("%s resolved to %s, want %s", name, pkg.Version, version)
		}
	}

	app := find(result, "app")
	if !app.Direct {
		t.Error("app not marked direct")
	}
	if app.Dependencies["lib"] != "1.2.0" {
		t.Errorf("app concrete deps = %v", app.Dependencies)
	}
	if len(result.DirectProd) != 1 || result.DirectProd[0] != "app" {
		t.Errorf("DirectProd = %v", result.DirectProd)
	}

	if len(result.Skipped) != 1 || result.Skipped[0].Name != "native" {
		t.Errorf("Skipped = %+v", result.Skipped)
	}
	if find(result, "native") != nil {
		t.Error("platform-incompatible optional dependency entered the resolved set")
	}
}

func TestResolveDeduplicates(t *testing.T) {
	server := fakeRegistry(t, map[string]map[string]fakeVersion{
		"a":      {"1.0.0": {deps: map[string]string{"shared": "^1.0.0"}}},
		"b":      {"1.0.0": {deps: map[string]string{"shared": "^1.0.0"}}},
		"shared": {"1.5.0": {}},
	})
	defer server.Close()

	result, err := New(registry.New(server.URL)).Resolve(context.Background(), plainDirect("a", "b"))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	count := 0
	for _, pkg := range result.Packages {
		if pkg.Name == "shared" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("shared appears %d times, want 1", count)
	}
}

func TestResolveRequiredFailure(t *testing.T) {
	server := fakeRegistry(t, map[string]map[string]fakeVersion{
		"app": {"1.0.0": {deps: map[string]string{"missing": "^1.0.0"}}},
	})
	defer server.Close()

	_, err := New(registry.New(server.URL)).Resolve(context.Background(), plainDirect("app"))
	if err == nil {
		t.Fatal("Resolve succeeded despite missing required dependency")
	}
}

func TestResolveOptionalFetchFailure(t *testing.T) {
	server := fakeRegistry(t, map[string]map[string]fakeVersion{
		"app": {"1.0.0": {optional: map[string]string{"missing": "^1.0.0"}}},
	})
	defer server.Close()

	result, err := New(registry.New(server.URL)).Resolve(context.Background(), plainDirect("app"))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(result.Skipped) != 1 || result.Skipped[0].Name != "missing" {
		t.Errorf("Skipped = %+v", result.Skipped)
	}
}

func TestResolveDevPartition(t *testing.T) {
	server := fakeRegistry(t, map[string]map[string]fakeVersion{
		"tool": {"3.0.0": {}},
	})
	defer server.Close()

	direct := []Direct{{Spec: spec.Spec{Name: "tool", Real: "tool", Range: "latest"}, Dev: true}}
	result, err := New(registry.New(server.URL)).Resolve(context.Background(), direct)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(result.DirectDev) != 1 || result.DirectDev[0] != "tool" {
		t.Errorf("DirectDev = %v", result.DirectDev)
	}
	if len(result.DirectProd) != 0 {
		t.Errorf("DirectProd = %v", result.DirectProd)
	}
	if pkg := find(result, "tool"); pkg == nil || pkg.Category != Dev {
		t.Error("tool not in dev category")
	}
}
