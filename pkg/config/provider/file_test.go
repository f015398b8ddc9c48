package provider

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileProvider_Load(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  listen_addr: \":8080\"\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	p, err := NewFileProvider(path)
	if err != nil {
		t.Fatalf("NewFileProvider() error = %v", err)
	}
	if p.Type() != TypeFile {
		t.Errorf("Type() = %v, want %v", p.Type(), TypeFile)
	}

	data, err := p.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(data) == 0 {
		t.Error("expected non-empty config bytes")
	}
}

func TestFileProvider_WatchSignalsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("a: 1\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	p, err := NewFileProvider(path)
	if err != nil {
		t.Fatalf("NewFileProvider() error = %v", err)
	}
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := p.Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(path, []byte("a: 2\n"), 0o644); err != nil {
		t.Fatalf("rewrite fixture: %v", err)
	}

	select {
	case <-ch:
	case <-time.After(3 * time.Second):
		t.Fatal("expected a watch signal after the file changed")
	}
}

func TestParseType(t *testing.T) {
	cases := map[string]Type{"file": TypeFile, "": TypeFile, "consul": TypeConsul, "etcd": TypeEtcd, "zookeeper": TypeZookeeper, "zk": TypeZookeeper}
	for in, want := range cases {
		got, err := ParseType(in)
		if err != nil {
			t.Errorf("ParseType(%q) error = %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseType(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := ParseType("bogus"); err == nil {
		t.Error("expected ParseType(\"bogus\") to error")
	}
}
