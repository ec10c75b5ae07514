package termhost

import (
	"bytes"
	"testing"
	"time"
)

func newEchoSession(t *testing.T, id string) *Session {
	t.Helper()
	s, err := New(Options{
		ID:      id,
		Command: "cat",
		Cols:    80,
		Rows:    24,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() {
		s.Kill(true)
		<-s.Done()
	})
	return s
}

func TestNewRejectsMissingFields(t *testing.T) {
	if _, err := New(Options{Command: "cat"}); err == nil {
		t.Fatal("expected error for missing ID")
	}
	if _, err := New(Options{ID: "x"}); err == nil {
		t.Fatal("expected error for missing Command")
	}
}

func TestSendInputEchoesToSubscriber(t *testing.T) {
	s := newEchoSession(t, "echo-1")
	sub := s.Subscribe()
	defer sub.Cancel()

	if err := s.SendInput([]byte("hello\n")); err != nil {
		t.Fatalf("SendInput: %v", err)
	}

	select {
	case chunk := <-sub.Chunks():
		if !bytes.Contains(chunk, []byte("hello")) {
			t.Fatalf("chunk %q does not contain input", chunk)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for echoed output")
	}
}

func TestAttachSnapshotIncludesPriorOutput(t *testing.T) {
	s := newEchoSession(t, "echo-2")

	if err := s.SendInput([]byte("buffered\n")); err != nil {
		t.Fatalf("SendInput: %v", err)
	}
	// Give the read loop a moment to land the chunk in the ring buffer
	// before attaching (no subscriber existed yet to race against).
	time.Sleep(200 * time.Millisecond)

	buffered, sub := s.AttachSnapshot()
	defer sub.Cancel()
	if !bytes.Contains(buffered, []byte("buffered")) {
		t.Fatalf("AttachSnapshot buffered %q missing prior output", buffered)
	}
}

func TestAttachSnapshotDuringConcurrentOutput(t *testing.T) {
	s := newEchoSession(t, "echo-3")

	stop := make(chan struct{})
	go func() {
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			s.SendInput([]byte{'a' + byte(i%26), '\n'})
			time.Sleep(time.Millisecond)
		}
	}()
	time.Sleep(20 * time.Millisecond)

	buffered, sub := s.AttachSnapshot()
	defer sub.Cancel()
	close(stop)

	// Attaching while output is flowing must not panic or deadlock and
	// must return a non-nil subscription alongside a (possibly empty)
	// snapshot; the byte-level no-gap property is not checked here.
	_ = buffered
	if sub == nil {
		t.Fatal("expected non-nil subscription")
	}
}

func TestKillTransitionsToFailedOrExited(t *testing.T) {
	s, err := New(Options{ID: "kill-1", Command: "cat"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Kill(true); err != nil {
		t.Fatalf("Kill: %v", err)
	}
	code := s.WaitForExit()
	st := s.State()
	if st != StateExited && st != StateFailed {
		t.Fatalf("state = %v, want Exited or Failed", st)
	}
	if _, ok := s.ExitCode(); !ok {
		t.Fatal("ExitCode not available after exit")
	}
	_ = code
}

func TestSendInputFailsAfterExit(t *testing.T) {
	s, err := New(Options{ID: "kill-2", Command: "true"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	<-s.Done()

	if err := s.SendInput([]byte("x")); err == nil {
		t.Fatal("expected SendInput to fail once session has exited")
	}
}

func TestIsIdleTimedOut(t *testing.T) {
	s, err := New(Options{ID: "idle-1", Command: "cat", IdleTimeout: 10 * time.Millisecond})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() {
		s.Kill(true)
		<-s.Done()
	}()

	if s.IsIdleTimedOut() {
		t.Fatal("should not be idle immediately after creation")
	}
	time.Sleep(30 * time.Millisecond)
	if !s.IsIdleTimedOut() {
		t.Fatal("expected idle timeout to trip")
	}
	s.SendInput([]byte("x"))
	if s.IsIdleTimedOut() {
		t.Fatal("activity should reset idle timeout")
	}
}

func TestSubscribersClosedOnExit(t *testing.T) {
	s, err := New(Options{ID: "exit-1", Command: "true"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sub := s.Subscribe()

	select {
	case _, ok := <-sub.Chunks():
		if ok {
			t.Fatal("expected subscriber channel to be closed, got a chunk")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for subscriber channel to close")
	}
}

func TestRenderScreenReflectsOutput(t *testing.T) {
	s := newEchoSession(t, "render-1")
	if err := s.SendInput([]byte("hi")); err != nil {
		t.Fatalf("SendInput: %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	out := s.RenderScreen()
	if !bytes.Contains(out, []byte("hi")) {
		t.Fatalf("rendered screen %q missing echoed text", out)
	}
}

// TestSendDropOldestOnSlowSubscriber exercises the fan-out drop policy
// directly: 300 chunks of 10 bytes into a capacity-100 channel, no
// reader draining in between. The subscriber must end up with at most
// 100 chunks, the most recent 100, in order.
func TestSendDropOldestOnSlowSubscriber(t *testing.T) {
	ch := make(chan []byte, subscriberCapacity)
	const total = 300
	chunks := make([][]byte, total)
	for i := 0; i < total; i++ {
		chunks[i] = bytes.Repeat([]byte{byte(i)}, 10)
		sendDropOldest(ch, chunks[i])
	}

	var got [][]byte
	for {
		select {
		case chunk := <-ch:
			got = append(got, chunk)
			continue
		default:
		}
		break
	}

	if len(got) > subscriberCapacity {
		t.Fatalf("got %d chunks, want at most %d", len(got), subscriberCapacity)
	}
	wantFirst := total - len(got)
	for i, chunk := range got {
		if !bytes.Equal(chunk, chunks[wantFirst+i]) {
			t.Fatalf("chunk %d = %v, want %v (chunks not the most recent %d, in order)", i, chunk, chunks[wantFirst+i], len(got))
		}
	}
}
