package capplugin

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFakePlugin(t *testing.T, dir, name, kind string) {
	t.Helper()
	exec := filepath.Join(dir, name)
	if err := os.WriteFile(exec, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write fake executable: %v", err)
	}
	manifest := "name: " + name + "\nversion: 1.0.0\nkind: " + kind + "\n"
	if err := os.WriteFile(exec+manifestSuffix, []byte(manifest), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
}

func TestDiscover_FindsValidManifests(t *testing.T) {
	dir := t.TempDir()
	writeFakePlugin(t, dir, "scraper-bin", "scraper")

	found, err := Discover([]string{dir})
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("Discover() found %d plugins, want 1", len(found))
	}
	if found[0].Manifest.Kind != KindScraper {
		t.Errorf("Manifest.Kind = %v, want %v", found[0].Manifest.Kind, KindScraper)
	}
}

func TestDiscover_SkipsMissingDirectories(t *testing.T) {
	found, err := Discover([]string{filepath.Join(t.TempDir(), "does-not-exist")})
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(found) != 0 {
		t.Errorf("Discover() found %d plugins in a missing directory, want 0", len(found))
	}
}

func TestDiscover_RejectsUnknownKind(t *testing.T) {
	dir := t.TempDir()
	writeFakePlugin(t, dir, "mystery-bin", "mystery_kind")

	if _, err := Discover([]string{dir}); err == nil {
		t.Error("expected Discover() to reject a manifest with an unknown kind")
	}
}
