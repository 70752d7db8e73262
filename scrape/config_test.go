package scrape

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Listen != ":8000" {
		t.Errorf("listen: got %q", cfg.Listen)
	}
	if cfg.CacheDir != "cache" || cfg.MetadataDB != "cache/scrape_metadata.db" {
		t.Errorf("paths: got %q %q", cfg.CacheDir, cfg.MetadataDB)
	}
	if cfg.Browser.MaxSessions != 4 || cfg.Browser.NavTimeout != Duration(30*time.Second) {
		t.Errorf("browser: got %+v", cfg.Browser)
	}
	if cfg.Paging.FirstSettle != Duration(5*time.Second) || cfg.Paging.NextSettle != Duration(3*time.Second) {
		t.Errorf("settle: got %+v", cfg.Paging)
	}
	if cfg.Paging.Deadline != Duration(3*time.Minute) {
		t.Errorf("deadline: got %v", cfg.Paging.Deadline)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	err := os.WriteFile(path, []byte(`
listen: ":9100"
cache_dir: /var/lib/gazouille
browser:
  max_sessions: 2
  nav_timeout: 45s
paging:
  first_settle: 8s
  deadline: 5m
`), 0o644)
	if err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Listen != ":9100" || cfg.CacheDir != "/var/lib/gazouille" {
		t.Errorf("overrides: got %q %q", cfg.Listen, cfg.CacheDir)
	}
	if cfg.Browser.MaxSessions != 2 || cfg.Browser.NavTimeout != Duration(45*time.Second) {
		t.Errorf("browser: got %+v", cfg.Browser)
	}
	if cfg.Paging.FirstSettle != Duration(8*time.Second) || cfg.Paging.Deadline != Duration(5*time.Minute) {
		t.Errorf("paging: got %+v", cfg.Paging)
	}
	// Unset fields still get defaults.
	if cfg.Paging.NextSettle != Duration(3*time.Second) || cfg.MetadataDB == "" {
		t.Errorf("defaults: got %+v", cfg)
	}
}

func TestLoadConfigFile_Missing(t *testing.T) {
	if _, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("want error for missing file")
	}
}
