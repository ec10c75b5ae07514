// Package termhost implements session lifecycle management, a bounded
// ring buffer per session, fan-out of live output to attached clients,
// and the accept/dispatch loop that drives internal/protocol over one
// or more transports (spec.md §4.4, §4.6).
package termhost

import (
	"fmt"
	"sync"
	"time"

	"github.com/muesli/termenv"

	"termhost/internal/ptycap"
	"termhost/internal/protocol"
	"termhost/internal/ring"
	"termhost/internal/screen"
	"termhost/internal/vtparser"
)

// State is a Session's lifecycle state (spec.md §3 Session).
type State int

const (
	StateStarting State = iota
	StateRunning
	StateExited
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "Starting"
	case StateRunning:
		return "Running"
	case StateExited:
		return "Exited"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

const (
	defaultBufferSize  = 64 * 1024
	subscriberCapacity = 100
	readChunkSize      = 4096
	ptyWriteTimeout    = 3 * time.Second
)

// Options configures a new Session.
type Options struct {
	ID          string
	Command     string
	Args        []string
	Cwd         string
	Env         map[string]string
	Cols, Rows  uint16
	IdleTimeout time.Duration // 0 disables idle timeout
	BufferSize  int           // ring buffer capacity in bytes; 0 uses the default
}

// Session owns one PTY, one ring buffer, one parser+screen pair, and
// the set of live subscribers fed by its read loop.
type Session struct {
	ID          string
	Command     string
	Args        []string
	Cwd         string
	IdleTimeout time.Duration
	Created     time.Time

	pty ptycap.Pty

	stateMu  sync.Mutex
	state    State
	exitCode int

	// screenLock guards the parser+screen pair only. subMu guards the
	// ring buffer and subscriber set. The two are never held
	// simultaneously (spec.md §5).
	screenLock sync.Mutex
	parser     *vtparser.Parser
	screen     *screen.Buffer

	subMu sync.Mutex
	ring  *ring.Buffer
	subs  map[*subscriber]struct{}

	activityMu sync.Mutex
	lastActive time.Time

	done chan struct{}
}

type subscriber struct {
	ch chan []byte
}

// Subscription is a live registration against a Session's fan-out.
type Subscription struct {
	ch     chan []byte
	cancel func()
}

// Chunks yields broadcast chunks until Cancel is called or the session
// terminates, at which point the channel is closed.
func (s *Subscription) Chunks() <-chan []byte { return s.ch }

// Cancel deregisters the subscription. Idempotent.
func (s *Subscription) Cancel() { s.cancel() }

// New constructs a Session and spawns its PTY immediately. On spawn
// failure the returned Session is in StateFailed and the error
// describes the construction failure (spec.md §4.4).
func New(opts Options) (*Session, error) {
	if opts.ID == "" {
		return nil, newErr(KindInvalidArgument, "New", fmt.Errorf("session id is required"))
	}
	if opts.Command == "" {
		return nil, newErr(KindInvalidArgument, "New", fmt.Errorf("command is required"))
	}

	bufSize := opts.BufferSize
	if bufSize <= 0 {
		bufSize = defaultBufferSize
	}
	cols, rows := opts.Cols, opts.Rows
	if cols == 0 {
		cols = 80
	}
	if rows == 0 {
		rows = 24
	}

	now := time.Now()
	scr := screen.New(int(cols), int(rows))
	s := &Session{
		ID:          opts.ID,
		Command:     opts.Command,
		Args:        opts.Args,
		Cwd:         opts.Cwd,
		IdleTimeout: opts.IdleTimeout,
		Created:     now,
		state:       StateStarting,
		parser:      vtparser.New(screen.NewHandler(scr)),
		screen:      scr,
		ring:        ring.New(bufSize),
		subs:        make(map[*subscriber]struct{}),
		lastActive:  now,
		done:        make(chan struct{}),
	}

	p, err := ptycap.Start(ptycap.Options{
		Command: opts.Command,
		Args:    opts.Args,
		Cwd:     opts.Cwd,
		Env:     opts.Env,
		Cols:    cols,
		Rows:    rows,
	})
	if err != nil {
		s.state = StateFailed
		close(s.done)
		return s, newErr(KindPtyError, "New", err)
	}
	s.pty = p
	s.state = StateRunning

	go s.readLoop()
	return s, nil
}

// readLoop is the sole mutator of the ring buffer, screen, subscriber
// set, and LastActivityTime. It terminates the session on PTY EOF or
// IO error.
func (s *Session) readLoop() {
	buf := make([]byte, readChunkSize)
	for {
		n, err := s.pty.Read(buf)
		if n > 0 {
			chunk := append([]byte(nil), buf[:n]...)
			s.noteActivity()

			// Ring write and subscriber-list snapshot share subMu so
			// Attach's buffered-snapshot-plus-register stays
			// consistent with exactly one point in the byte stream
			// (spec.md §4.6's attach ordering invariant): either this
			// chunk lands in an Attach snapshot taken around the same
			// lock, or the new subscriber is registered in time to
			// receive it as an Output frame below, never both.
			s.subMu.Lock()
			s.ring.Write(chunk)
			targets := make([]*subscriber, 0, len(s.subs))
			for sub := range s.subs {
				targets = append(targets, sub)
			}
			s.subMu.Unlock()

			s.screenLock.Lock()
			s.parser.Parse(chunk)
			s.screenLock.Unlock()

			for _, sub := range targets {
				sendDropOldest(sub.ch, chunk)
			}
		}
		if err != nil || n == 0 {
			break
		}
	}
	s.finish()
}

func sendDropOldest(ch chan []byte, chunk []byte) {
	select {
	case ch <- chunk:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- chunk:
	default:
	}
}

func (s *Session) finish() {
	code, err := s.pty.Wait()
	s.stateMu.Lock()
	s.exitCode = code
	if err == nil {
		s.state = StateExited
	} else {
		s.state = StateFailed
	}
	s.stateMu.Unlock()

	s.pty.Close()
	s.closeSubscribers()
	close(s.done)
}

func (s *Session) closeSubscribers() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for sub := range s.subs {
		close(sub.ch)
	}
	s.subs = make(map[*subscriber]struct{})
}

func (s *Session) noteActivity() {
	s.activityMu.Lock()
	s.lastActive = time.Now()
	s.activityMu.Unlock()
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.state
}

// ExitCode returns the exit code and whether one is available (the
// session has reached Exited or Failed).
func (s *Session) ExitCode() (int, bool) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.exitCode, s.state == StateExited || s.state == StateFailed
}

// SendInput writes to the PTY. Fails if the session isn't Running.
func (s *Session) SendInput(p []byte) error {
	if s.State() != StateRunning {
		return newErr(KindStateError, "SendInput", fmt.Errorf("session %s is not running", s.ID))
	}
	if _, err := s.pty.WriteTimeout(p, ptyWriteTimeout); err != nil {
		return newErr(KindPtyError, "SendInput", err)
	}
	s.noteActivity()
	return nil
}

// Resize resizes the PTY and the screen buffer. No-op if the session
// isn't Running.
func (s *Session) Resize(cols, rows uint16) error {
	if s.State() != StateRunning {
		return nil
	}
	s.screenLock.Lock()
	s.screen.Resize(int(cols), int(rows))
	s.screenLock.Unlock()

	if err := s.pty.Resize(cols, rows); err != nil {
		return newErr(KindPtyError, "Resize", err)
	}
	return nil
}

// GetBufferedOutput returns a snapshot of the ring buffer.
func (s *Session) GetBufferedOutput() []byte {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	return s.ring.ToArray()
}

// AttachSnapshot atomically captures the buffered output and registers
// a new subscription, so the two are consistent with exactly one point
// in time (spec.md §4.6's attach ordering invariant).
func (s *Session) AttachSnapshot() ([]byte, *Subscription) {
	s.subMu.Lock()
	buffered := s.ring.ToArray()
	sub := s.registerLocked()
	s.subMu.Unlock()
	return buffered, sub
}

// Subscribe registers a new subscription without a buffered snapshot.
func (s *Session) Subscribe() *Subscription {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	return s.registerLocked()
}

func (s *Session) registerLocked() *Subscription {
	sub := &subscriber{ch: make(chan []byte, subscriberCapacity)}
	var once sync.Once
	if st := s.State(); st == StateExited || st == StateFailed {
		// finish() has already closed every registered channel (it sets
		// the state before taking subMu), so close this one now.
		close(sub.ch)
		return &Subscription{ch: sub.ch, cancel: func() {}}
	}
	s.subs[sub] = struct{}{}
	cancel := func() {
		once.Do(func() {
			s.subMu.Lock()
			if _, ok := s.subs[sub]; ok {
				delete(s.subs, sub)
				close(sub.ch)
			}
			s.subMu.Unlock()
		})
	}
	return &Subscription{ch: sub.ch, cancel: cancel}
}

// RenderScreen renders the current screen to ANSI.
func (s *Session) RenderScreen() []byte { return s.render(0, 0) }

// RenderScreenSize resizes the screen to w×h, then renders it.
func (s *Session) RenderScreenSize(w, h int) []byte { return s.render(w, h) }

func (s *Session) render(w, h int) []byte {
	s.screenLock.Lock()
	defer s.screenLock.Unlock()
	if w > 0 && h > 0 {
		s.screen.Resize(w, h)
	}
	// The host always renders full truecolor; a narrower attach client
	// degrades it locally via screen.Color.Downsample using its own
	// detected termenv.Profile (cmd/termhostctl), since the wire
	// protocol carries no color-capability field.
	return s.screen.RenderANSI(termenv.TrueColor)
}

// WaitForExit blocks until the session terminates and returns its
// exit code.
func (s *Session) WaitForExit() int {
	<-s.done
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.exitCode
}

// Done is closed when the session terminates.
func (s *Session) Done() <-chan struct{} { return s.done }

// Kill requests PTY termination. Harmless if already exited.
func (s *Session) Kill(force bool) error {
	switch s.State() {
	case StateExited, StateFailed:
		return nil
	}
	if err := s.pty.Kill(force); err != nil {
		return newErr(KindPtyError, "Kill", err)
	}
	return nil
}

// IsIdleTimedOut reports whether IdleTimeout is set, the session is
// Running, and it has been idle longer than IdleTimeout.
func (s *Session) IsIdleTimedOut() bool {
	if s.IdleTimeout <= 0 || s.State() != StateRunning {
		return false
	}
	s.activityMu.Lock()
	last := s.lastActive
	s.activityMu.Unlock()
	return time.Since(last) > s.IdleTimeout
}

// Info returns the wire SessionInfo snapshot for this session.
func (s *Session) Info() protocol.SessionInfo {
	s.stateMu.Lock()
	st := s.state
	exit := s.exitCode
	s.stateMu.Unlock()

	s.screenLock.Lock()
	cols, rows := s.screen.Width(), s.screen.Height()
	s.screenLock.Unlock()

	return protocol.SessionInfo{
		ID:      s.ID,
		Cmd:     s.Command,
		Cwd:     s.Cwd,
		HasCwd:  s.Cwd != "",
		State:   wireState(st),
		Created: s.Created.UnixMilli(),
		Exit:    int32(exit),
		HasExit: st == StateExited || st == StateFailed,
		Cols:    uint16(cols),
		Rows:    uint16(rows),
	}
}

func wireState(s State) protocol.SessionState {
	switch s {
	case StateStarting:
		return protocol.StateStarting
	case StateRunning:
		return protocol.StateRunning
	case StateExited:
		return protocol.StateExited
	default:
		return protocol.StateFailed
	}
}
