package cache

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPathLayout(t *testing.T) {
	s := New("/home/u/.pacm-cache")

	want := filepath.Join("/home/u/.pacm-cache", "lodash", "4.17.21.tgz")
	if got := s.Path("lodash", "4.17.21"); got != want {
		t.Errorf("Path = %q, want %q", got, want)
	}

	want = filepath.Join("/home/u/.pacm-cache", "@types_node", "20.1.0.tgz")
	if got := s.Path("@types/node", "20.1.0"); got != want {
		t.Errorf("scoped Path = %q, want %q", got, want)
	}
}

func TestPublishAndLookup(t *testing.T) {
	s := New(t.TempDir())

	src := filepath.Join(t.TempDir(), "pkg.tgz")
	if err := os.WriteFile(src, []byte("tarball bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	published, err := s.Publish("@types/node", "20.1.0", src)
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if published != s.Path("@types/node", "20.1.0") {
		t.Errorf("Publish path = %q, want %q", published, s.Path("@types/node", "20.1.0"))
	}

	got, ok := s.Lookup("@types/node", "20.1.0")
	if !ok || got != published {
		t.Errorf("Lookup = %q, %v", got, ok)
	}

	data, err := os.ReadFile(published)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "tarball bytes" {
		t.Errorf("cached content = %q", data)
	}
}

func TestLazyIndexScan(t *testing.T) {
	root := t.TempDir()
	seed := func(dir, file string) {
		full := filepath.Join(root, dir)
		if err := os.MkdirAll(full, 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(full, file), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	seed("lodash", "4.17.21.tgz")
	seed("@types_node", "20.1.0.tgz")
	seed("string_decoder", "1.3.0.tgz")

	s := New(root)
	if _, ok := s.Lookup("lodash", "4.17.21"); !ok {
		t.Error("lodash not indexed")
	}
	if _, ok := s.Lookup("@types/node", "20.1.0"); !ok {
		t.Error("scoped name not mapped back from underscore layout")
	}
	if _, ok := s.Lookup("string_decoder", "1.3.0"); !ok {
		t.Error("unscoped name with underscore mangled by index scan")
	}
	if _, ok := s.Lookup("lodash", "1.0.0"); ok {
		t.Error("missing version reported present")
	}
}

func TestClean(t *testing.T) {
	root := filepath.Join(t.TempDir(), ".pacm-cache")
	s := New(root)

	removed, err := s.Clean()
	if err != nil {
		t.Fatalf("Clean on missing dir failed: %v", err)
	}
	if removed {
		t.Error("Clean reported removal of a missing cache")
	}

	src := filepath.Join(t.TempDir(), "pkg.tgz")
	if err := os.WriteFile(src, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Publish("lodash", "4.17.21", src); err != nil {
		t.Fatal(err)
	}

	removed, err = s.Clean()
	if err != nil {
		t.Fatalf("Clean failed: %v", err)
	}
	if !removed {
		t.Error("Clean did not report removal")
	}
	if _, err := os.Stat(root); !os.IsNotExist(err) {
		t.Error("cache root still exists after Clean")
	}
	if _, ok := s.Lookup("lodash", "4.17.21"); ok {
		t.Error("index still serves entries after Clean")
	}
}
