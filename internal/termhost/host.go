package termhost

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"termhost/internal/wstransport"
)

const (
	defaultMaxSessions   = 100
	defaultReaperPeriod  = time.Minute
)

// HostOptions configures a Host.
type HostOptions struct {
	MaxSessions    int           // default 100
	ReaperInterval time.Duration // default 1 minute; values over 1 minute are capped to 1 minute
	StateDir       string        // directory for the advisory host lock file
	SocketPath     string        // Unix domain socket path; empty disables this transport
	WS             *wstransport.Listener // optional WebSocket transport; nil disables it
}

// Host is the session registry, transport listener(s), and idle
// reaper (spec.md §4.6).
type Host struct {
	opts HostOptions

	mu       sync.Mutex
	sessions map[string]*Session

	lock     *flock.Flock
	listener net.Listener
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewHost constructs a Host. Call Start to bind transports and begin
// accepting clients.
func NewHost(opts HostOptions) *Host {
	return &Host{
		opts:     opts,
		sessions: make(map[string]*Session),
		stopCh:   make(chan struct{}),
	}
}

// Start takes an exclusive lock on StateDir/host.lock (refusing to
// start a second host against the same state directory), binds the
// configured transport(s), begins accepting clients, and starts the
// idle reaper.
func (h *Host) Start() error {
	if h.opts.StateDir != "" {
		if err := os.MkdirAll(h.opts.StateDir, 0o700); err != nil {
			return fmt.Errorf("termhost: create state dir: %w", err)
		}
		lockPath := filepath.Join(h.opts.StateDir, "host.lock")
		fl := flock.New(lockPath)
		locked, err := fl.TryLock()
		if err != nil {
			return fmt.Errorf("termhost: acquire host lock: %w", err)
		}
		if !locked {
			return fmt.Errorf("termhost: another host is already running against %s", h.opts.StateDir)
		}
		h.lock = fl
	}

	if h.opts.SocketPath != "" {
		if err := probeStaleSocket(h.opts.SocketPath); err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(h.opts.SocketPath), 0o700); err != nil {
			return fmt.Errorf("termhost: create socket dir: %w", err)
		}
		ln, err := net.Listen("unix", h.opts.SocketPath)
		if err != nil {
			return fmt.Errorf("termhost: listen on socket: %w", err)
		}
		h.listener = ln
		h.wg.Add(1)
		go h.acceptLoopUnix()
	}

	if h.opts.WS != nil {
		h.wg.Add(1)
		go h.acceptLoopWS(h.opts.WS)
	}

	h.wg.Add(1)
	go h.reaperLoop()

	return nil
}

// probeStaleSocket mirrors the teacher's "dial to check liveness,
// remove stale" pattern: a socket path that already exists but refuses
// connections belongs to a crashed prior host and is safe to remove.
func probeStaleSocket(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	conn, err := net.DialTimeout("unix", path, 500*time.Millisecond)
	if err == nil {
		conn.Close()
		return fmt.Errorf("termhost: socket %s already has a live listener", path)
	}
	return os.Remove(path)
}

func (h *Host) acceptLoopUnix() {
	defer h.wg.Done()
	for {
		conn, err := h.listener.Accept()
		if err != nil {
			select {
			case <-h.stopCh:
				return
			default:
			}
			log.Printf("termhost: accept: %v", err)
			continue
		}
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			h.serveClient(conn)
		}()
	}
}

func (h *Host) acceptLoopWS(l *wstransport.Listener) {
	defer h.wg.Done()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-h.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()
	for {
		conn, err := l.Accept(ctx)
		if err != nil {
			return
		}
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			h.serveClient(conn)
		}()
	}
}

func (h *Host) reaperLoop() {
	defer h.wg.Done()
	interval := h.opts.ReaperInterval
	if interval <= 0 || interval > defaultReaperPeriod {
		interval = defaultReaperPeriod
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-h.stopCh:
			return
		case <-ticker.C:
			for _, s := range h.List() {
				if s.IsIdleTimedOut() {
					log.Printf("termhost: killing idle session %s", s.ID)
					s.Kill(false)
				}
			}
		}
	}
}

// Stop closes the transports, releases the host lock, and waits for
// in-flight client goroutines to return. Does not kill live sessions.
func (h *Host) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopCh)
		if h.listener != nil {
			h.listener.Close()
		}
		if h.opts.WS != nil {
			h.opts.WS.Close()
		}
	})
	h.wg.Wait()
	if h.lock != nil {
		h.lock.Unlock()
	}
}

func (h *Host) maxSessions() int {
	if h.opts.MaxSessions > 0 {
		return h.opts.MaxSessions
	}
	return defaultMaxSessions
}

// Create enforces MaxSessions and duplicate-id rejection, then spawns
// the session. On success the session is recorded in the registry.
func (h *Host) Create(opts Options) (*Session, error) {
	h.mu.Lock()
	if _, exists := h.sessions[opts.ID]; exists {
		h.mu.Unlock()
		return nil, newErr(KindLimitExceeded, "Create", fmt.Errorf("duplicate session id %q", opts.ID))
	}
	if len(h.sessions) >= h.maxSessions() {
		h.mu.Unlock()
		return nil, newErr(KindLimitExceeded, "Create", fmt.Errorf("max sessions (%d) reached", h.maxSessions()))
	}
	h.sessions[opts.ID] = nil // reserve the slot while the PTY spawns
	h.mu.Unlock()

	sess, err := New(opts)

	h.mu.Lock()
	if err != nil {
		delete(h.sessions, opts.ID)
	} else {
		h.sessions[opts.ID] = sess
	}
	h.mu.Unlock()

	return sess, err
}

// List returns all recorded sessions (excludes ids still spawning).
func (h *Host) List() []*Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

// Get looks up a session by id.
func (h *Host) Get(id string) (*Session, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.sessions[id]
	return s, ok && s != nil
}

// KillSession returns false if id is unknown.
func (h *Host) KillSession(id string, force bool) bool {
	s, ok := h.Get(id)
	if !ok {
		return false
	}
	s.Kill(force)
	return true
}
