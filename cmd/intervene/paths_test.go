package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/samcharles93/intervene/internal/hub"
)

func TestResolveCacheDir(t *testing.T) {
	t.Run("flag wins", func(t *testing.T) {
		t.Setenv(hub.EnvCacheDir, "/env/cache")
		got, err := resolveCacheDir(" /flag/cache/ ")
		if err != nil {
			t.Fatalf("resolveCacheDir: %v", err)
		}
		if got != filepath.Clean("/flag/cache") {
			t.Fatalf("got %q", got)
		}
	})

	t.Run("hub default without flag", func(t *testing.T) {
		t.Setenv(hub.EnvCacheDir, "")
		t.Setenv("HF_HOME", "/hf")
		got, err := resolveCacheDir("")
		if err != nil {
			t.Fatalf("resolveCacheDir: %v", err)
		}
		if got != filepath.Join("/hf", "intervene") {
			t.Fatalf("HF cache must not be written into, got %q", got)
		}
	})
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg, err := LoadConfig(filepath.Join(dir, "missing.yaml"))
	if err != nil {
		t.Fatalf("missing file: %v", err)
	}
	if cfg != (Config{}) {
		t.Fatalf("expected zero config, got %+v", cfg)
	}

	path := filepath.Join(dir, "config.yaml")
	body := "cache_dir: /data/hf\nrevision: v1\nrequests_per_second: 2.5\nlog_format: console\nmirror_dir: /srv/models\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err = LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.CacheDir != "/data/hf" || cfg.Revision != "v1" || cfg.LogFormat != "console" || cfg.MirrorDir != "/srv/models" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.RequestsPerSecond == nil || *cfg.RequestsPerSecond != 2.5 {
		t.Fatalf("requests_per_second not read: %v", cfg.RequestsPerSecond)
	}

	if err := os.WriteFile(path, []byte("cache_dir: [unterminated"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for malformed yaml")
	}
}
