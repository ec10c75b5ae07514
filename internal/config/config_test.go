package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFrom_ValidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	yaml := `socket_path: /tmp/termhost.sock
listen: "127.0.0.1:7681"
max_sessions: 10
buffer_size_bytes: 131072
idle_timeout: 5m
reaper_interval: 30s
default_cols: 100
default_rows: 30
`
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if cfg.SocketPath != "/tmp/termhost.sock" {
		t.Errorf("socket_path = %q, want /tmp/termhost.sock", cfg.SocketPath)
	}
	if cfg.Listen != "127.0.0.1:7681" {
		t.Errorf("listen = %q, want 127.0.0.1:7681", cfg.Listen)
	}
	if cfg.MaxSessions != 10 {
		t.Errorf("max_sessions = %d, want 10", cfg.MaxSessions)
	}
	if cfg.BufferSizeBytes != 131072 {
		t.Errorf("buffer_size_bytes = %d, want 131072", cfg.BufferSizeBytes)
	}
	if cfg.IdleTimeout != 5*time.Minute {
		t.Errorf("idle_timeout = %v, want 5m", cfg.IdleTimeout)
	}
	if cfg.ReaperInterval != 30*time.Second {
		t.Errorf("reaper_interval = %v, want 30s", cfg.ReaperInterval)
	}
	if cfg.DefaultCols != 100 || cfg.DefaultRows != 30 {
		t.Errorf("default size = %dx%d, want 100x30", cfg.DefaultCols, cfg.DefaultRows)
	}
}

func TestLoadFrom_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err != nil {
		t.Fatalf("expected no error for missing file, got: %v", err)
	}
	want := Default()
	if cfg.SocketPath != want.SocketPath || cfg.MaxSessions != want.MaxSessions {
		t.Errorf("cfg = %+v, want defaults %+v", cfg, want)
	}
}

func TestLoadFrom_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	if err := os.WriteFile(path, []byte("{{invalid yaml"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFrom(path); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestLoadFrom_RejectsNoTransport(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	// Explicitly blank both transports; LoadFrom starts from Default(),
	// which always sets socket_path, so an empty config file alone
	// would never exercise this rejection.
	data := "socket_path: \"\"\nlisten: \"\"\nmax_sessions: 5\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFrom(path); err == nil {
		t.Fatal("expected error when neither socket_path nor listen is set")
	}
}

func TestLoadFrom_RejectsNegativeMaxSessions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	data := "socket_path: /tmp/termhost.sock\nmax_sessions: -1\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFrom(path); err == nil {
		t.Fatal("expected error for negative max_sessions")
	}
}
