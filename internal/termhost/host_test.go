package termhost

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeEmptyFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	return f.Close()
}

func newTestHost(t *testing.T, opts HostOptions) *Host {
	t.Helper()
	if opts.StateDir == "" {
		opts.StateDir = t.TempDir()
	}
	h := NewHost(opts)
	if err := h.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(h.Stop)
	return h
}

func TestCreateAndGet(t *testing.T) {
	h := newTestHost(t, HostOptions{})

	s, err := h.Create(Options{ID: "a", Command: "cat"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	t.Cleanup(func() { s.Kill(true) })

	got, ok := h.Get("a")
	if !ok || got != s {
		t.Fatal("Get did not return the created session")
	}
}

func TestCreateRejectsDuplicateID(t *testing.T) {
	h := newTestHost(t, HostOptions{})

	s, err := h.Create(Options{ID: "dup", Command: "cat"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	t.Cleanup(func() { s.Kill(true) })

	if _, err := h.Create(Options{ID: "dup", Command: "cat"}); err == nil {
		t.Fatal("expected duplicate id to be rejected")
	}
}

func TestCreateEnforcesMaxSessions(t *testing.T) {
	h := newTestHost(t, HostOptions{MaxSessions: 1})

	s1, err := h.Create(Options{ID: "one", Command: "cat"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	t.Cleanup(func() { s1.Kill(true) })

	if _, err := h.Create(Options{ID: "two", Command: "cat"}); err == nil {
		t.Fatal("expected MaxSessions to reject the second session")
	}
}

func TestKillSessionUnknownID(t *testing.T) {
	h := newTestHost(t, HostOptions{})
	if h.KillSession("nope", false) {
		t.Fatal("expected KillSession to return false for an unknown id")
	}
}

func TestListExcludesReservedSlots(t *testing.T) {
	h := newTestHost(t, HostOptions{})
	s, err := h.Create(Options{ID: "listed", Command: "cat"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	t.Cleanup(func() { s.Kill(true) })

	list := h.List()
	if len(list) != 1 || list[0].ID != "listed" {
		t.Fatalf("List = %+v, want exactly [listed]", list)
	}
}

func TestSecondHostRefusesSameStateDir(t *testing.T) {
	dir := t.TempDir()
	h1 := newTestHost(t, HostOptions{StateDir: dir})
	_ = h1

	h2 := NewHost(HostOptions{StateDir: dir})
	if err := h2.Start(); err == nil {
		t.Fatal("expected second host to fail acquiring the lock")
	}
}

func TestReaperKillsIdleSessions(t *testing.T) {
	h := newTestHost(t, HostOptions{ReaperInterval: 20 * time.Millisecond})

	s, err := h.Create(Options{ID: "idle", Command: "cat", IdleTimeout: 10 * time.Millisecond})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	select {
	case <-s.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("reaper did not kill the idle session in time")
	}
}

func TestProbeStaleSocketAllowsRebind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stale.sock")

	h := NewHost(HostOptions{StateDir: t.TempDir(), SocketPath: path})
	if err := h.Start(); err != nil {
		t.Fatalf("Start (first): %v", err)
	}
	h.Stop()

	// net.UnixListener.Close unlinks the socket file it created, so this
	// mainly exercises probeStaleSocket's "file absent" fast path; a
	// literally stale (leaked, unowned) file is exercised directly below.
	h2 := NewHost(HostOptions{StateDir: t.TempDir(), SocketPath: path})
	if err := h2.Start(); err != nil {
		t.Fatalf("Start (second): %v", err)
	}
	h2.Stop()
}

func TestProbeStaleSocketRemovesUnconnectableFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "leaked.sock")

	// A regular file left behind at the socket path (no listener bound
	// to it) must be removed by probeStaleSocket rather than blocking
	// Start.
	if err := writeEmptyFile(path); err != nil {
		t.Fatalf("writeEmptyFile: %v", err)
	}

	h := NewHost(HostOptions{StateDir: t.TempDir(), SocketPath: path})
	if err := h.Start(); err != nil {
		t.Fatalf("Start should recover a leaked socket path: %v", err)
	}
	h.Stop()
}
