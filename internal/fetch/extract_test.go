package fetch

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"
)

// buildTarball produces a gzipped tar with every file under the standard
// "package/" top-level directory.
func buildTarball(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, content := range files {
		hdr := &tar.Header{
			Name: "package/" + name,
			Mode: 0o644,
			Size: int64(len(content)),
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func writeTarball(t *testing.T, files map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pkg.tgz")
	if err := os.WriteFile(path, buildTarball(t, files), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExtractStripsLeadingComponent(t *testing.T) {
	tarball := writeTarball(t, map[string]string{
		"package.json": `{"name":"demo","version":"1.0.0"}`,
		"lib/index.js": "module.exports = 1;",
	})
	dest := filepath.Join(t.TempDir(), "demo")

	if err := extractTarball(tarball, dest); err != nil {
		t.Fatalf("extractTarball failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dest, "package.json"))
	if err != nil {
		t.Fatalf("package.json missing: %v", err)
	}
	if !bytes.Contains(data, []byte("demo")) {
		t.Errorf("package.json content = %q", data)
	}
	if _, err := os.Stat(filepath.Join(dest, "lib", "index.js")); err != nil {
		t.Errorf("nested file missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dest, "package")); !os.IsNotExist(err) {
		t.Error("leading package/ component not stripped")
	}
}

func TestExtractRejectsTraversal(t *testing.T) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	content := "evil"
	if err := tw.WriteHeader(&tar.Header{
		Name: "package/../../escape.txt",
		Mode: 0o644,
		Size: int64(len(content)),
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := tw.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	_ = tw.Close()
	_ = gz.Close()

	dir := t.TempDir()
	tarball := filepath.Join(dir, "evil.tgz")
	if err := os.WriteFile(tarball, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	dest := filepath.Join(dir, "sub", "dest")
	if err := extractTarball(tarball, dest); err != nil {
		t.Fatalf("extractTarball failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "escape.txt")); !os.IsNotExist(err) {
		t.Error("traversal entry escaped the destination")
	}
}

func TestExtractPreservesExecutableBit(t *testing.T) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	content := "#!/bin/sh\n"
	if err := tw.WriteHeader(&tar.Header{
		Name: "package/bin/cli.js",
		Mode: 0o755,
		Size: int64(len(content)),
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := tw.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	_ = tw.Close()
	_ = gz.Close()

	dir := t.TempDir()
	tarball := filepath.Join(dir, "pkg.tgz")
	if err := os.WriteFile(tarball, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	dest := filepath.Join(dir, "out")
	if err := extractTarball(tarball, dest); err != nil {
		t.Fatalf("extractTarball failed: %v", err)
	}

	info, err := os.Stat(filepath.Join(dest, "bin", "cli.js"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm()&0o100 == 0 {
		t.Errorf("executable bit lost: mode %v", info.Mode())
	}
}
