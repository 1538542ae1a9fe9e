package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadManifest(t *testing.T) {
	// Create a temporary directory with a luiggi.toml
	dir := t.TempDir()
	writeManifest(t, dir, `
[project]
name = "test-app"
version = "0.1.0"

[source]
entry = "src/app.lg"

[build]
output = "out/app.lgc"
cache = ".luiggi/cache.db"
disasm = true

[run]
max-steps = 100000
max-depth = 64

[log]
verbosity = 2
file = "luiggi.log"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Project.Name != "test-app" {
		t.Errorf("project name = %q, want test-app", m.Project.Name)
	}
	if m.Project.Version != "0.1.0" {
		t.Errorf("project version = %q, want 0.1.0", m.Project.Version)
	}
	if m.EntryPath() != filepath.Join(m.Dir, "src", "app.lg") {
		t.Errorf("entry path = %q", m.EntryPath())
	}
	if m.OutputPath() != filepath.Join(m.Dir, "out", "app.lgc") {
		t.Errorf("output path = %q", m.OutputPath())
	}
	if m.CachePath() != filepath.Join(m.Dir, ".luiggi", "cache.db") {
		t.Errorf("cache path = %q", m.CachePath())
	}
	if !m.Build.Disasm {
		t.Error("build disasm = false, want true")
	}
	if m.Run.MaxSteps != 100000 || m.Run.MaxDepth != 64 {
		t.Errorf("run limits = %+v", m.Run)
	}
	if m.Log.Verbosity != 2 || m.LogPath() != filepath.Join(m.Dir, "luiggi.log") {
		t.Errorf("log = %+v (%s)", m.Log, m.LogPath())
	}
}

func TestLoadManifestDefaults(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[project]
name = "minimal"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Source.Entry != "main.lg" {
		t.Errorf("default entry = %q, want main.lg", m.Source.Entry)
	}
	if want := filepath.Join(m.Dir, "build", "minimal.lgc"); m.OutputPath() != want {
		t.Errorf("default output = %q, want %q", m.OutputPath(), want)
	}
	if m.CachePath() != "" {
		t.Errorf("cache path = %q, want caching off", m.CachePath())
	}
	if m.LogPath() != "" {
		t.Errorf("log path = %q, want stderr", m.LogPath())
	}
}

func TestLoadManifestNameFromDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "hello")
	if err := os.Mkdir(dir, 0755); err != nil {
		t.Fatal(err)
	}
	writeManifest(t, dir, "")

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if m.Project.Name != "hello" {
		t.Errorf("project name = %q, want hello", m.Project.Name)
	}
}

func TestLoadManifestErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"syntax", "[project\nname = 1", "parse error"},
		{"unknown key", "[project]\nnmae = \"typo\"", "unknown key"},
		{"negative limit", "[run]\nmax-steps = -1", "negative"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			writeManifest(t, dir, tc.content)
			_, err := Load(dir)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("Load error = %v, want %q", err, tc.want)
			}
		})
	}
}

func TestAbsolutePathsKept(t *testing.T) {
	m := &Manifest{Dir: "/app", Build: BuildConfig{Cache: "/var/cache/luiggi.db"}}
	if m.CachePath() != "/var/cache/luiggi.db" {
		t.Errorf("cache path = %q", m.CachePath())
	}
}

func TestFindAndLoad(t *testing.T) {
	// Create nested directory structure
	dir := t.TempDir()
	subDir := filepath.Join(dir, "a", "b", "c")
	if err := os.MkdirAll(subDir, 0755); err != nil {
		t.Fatal(err)
	}
	writeManifest(t, dir, `[project]
name = "found-project"
`)

	// Should find manifest when starting from a deep subdirectory
	m, err := FindAndLoad(subDir)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if m == nil {
		t.Fatal("FindAndLoad returned nil")
	}
	if m.Project.Name != "found-project" {
		t.Errorf("project name = %q, want found-project", m.Project.Name)
	}
}

func TestFindAndLoadNotFound(t *testing.T) {
	dir := t.TempDir()
	m, err := FindAndLoad(dir)
	if err != nil {
		t.Fatalf("FindAndLoad error: %v", err)
	}
	if m != nil {
		t.Error("expected nil manifest when no luiggi.toml exists")
	}
}
