package protocol

import (
	"bytes"
	"io"
	"testing"
)

// wantBytes returns a slice of n arbitrary, distinct bytes, used to
// build large payloads without a literal in the source.
func wantBytes(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i)
	}
	return b
}

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, TypeInput, []byte("hello")); err != nil {
		t.Fatal(err)
	}
	if err := WriteFrame(&buf, TypeDetach, nil); err != nil {
		t.Fatal(err)
	}

	f1, err := ReadFrame(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if f1.Type != TypeInput || string(f1.Payload) != "hello" {
		t.Fatalf("frame1 = %+v", f1)
	}

	f2, err := ReadFrame(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if f2.Type != TypeDetach || len(f2.Payload) != 0 {
		t.Fatalf("frame2 = %+v", f2)
	}

	if _, err := ReadFrame(&buf); err != io.EOF {
		t.Fatalf("expected io.EOF at end of stream, got %v", err)
	}
}

func TestReadFrameRejectsOversizedLength(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteByte(byte(TypeOutput))
	buf.Write([]byte{0xFF, 0xFF, 0xFF, 0xFF})
	if _, err := ReadFrame(&buf); err == nil {
		t.Fatalf("expected error for oversized frame length")
	}
}

func TestSessionInfoRoundTrip(t *testing.T) {
	si := SessionInfo{
		ID: "abc", Cmd: "bash", Cwd: "/home/x", HasCwd: true,
		State: StateRunning, Created: 1234567890, Cols: 80, Rows: 24,
	}
	msg := SessionCreatedMsg{Info: si}
	decoded, err := DecodeSessionCreated(msg.Encode())
	if err != nil {
		t.Fatal(err)
	}
	if decoded.Info != si {
		t.Fatalf("got %+v, want %+v", decoded.Info, si)
	}
}

func TestSessionInfoRoundTripNoCwdNoExit(t *testing.T) {
	si := SessionInfo{ID: "x", Cmd: "sh", State: StateFailed, Cols: 1, Rows: 1}
	decoded, err := DecodeSessionCreated(SessionCreatedMsg{Info: si}.Encode())
	if err != nil {
		t.Fatal(err)
	}
	if decoded.Info.HasCwd || decoded.Info.HasExit {
		t.Fatalf("expected absent cwd/exit, got %+v", decoded.Info)
	}
}

func TestSessionListRoundTrip(t *testing.T) {
	want := SessionListMsg{Sessions: []SessionInfo{
		{ID: "a", Cmd: "bash", State: StateRunning, Cols: 80, Rows: 24},
		{ID: "b", Cmd: "zsh", State: StateExited, HasExit: true, Exit: 1, Cols: 100, Rows: 40},
	}}
	got, err := DecodeSessionList(want.Encode())
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Sessions) != 2 || got.Sessions[1].Exit != 1 {
		t.Fatalf("got %+v", got)
	}
}

func TestCreateSessionRoundTrip(t *testing.T) {
	want := CreateSessionMsg{
		ID: "s1", Cmd: "bash",
		Args: []string{"-l"}, HasArgs: true,
		Cwd: "/tmp", HasCwd: true,
		Env: map[string]string{"FOO": "bar"}, HasEnv: true,
		Cols: 80, Rows: 24,
	}
	got, err := DecodeCreateSession(want.Encode())
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != want.ID || len(got.Args) != 1 || got.Args[0] != "-l" || got.Env["FOO"] != "bar" {
		t.Fatalf("got %+v", got)
	}
}

func TestAttachedRoundTrip(t *testing.T) {
	want := AttachedMsg{
		Info:     SessionInfo{ID: "s1", Cmd: "bash", State: StateRunning, Cols: 80, Rows: 24},
		Buffered: []byte("previous output"),
	}
	got, err := DecodeAttached(want.Encode())
	if err != nil {
		t.Fatal(err)
	}
	if string(got.Buffered) != "previous output" {
		t.Fatalf("buffered = %q", got.Buffered)
	}
}

func TestDecodeTruncatedPayloadErrors(t *testing.T) {
	if _, err := DecodeAttach([]byte{0, 0, 0, 5, 'a', 'b'}); err == nil {
		t.Fatalf("expected error decoding truncated Attach payload")
	}
}

func TestTypeStringKnown(t *testing.T) {
	if TypeHello.String() != "Hello" {
		t.Fatalf("got %q", TypeHello.String())
	}
	if Type(255).String() != "Unknown" {
		t.Fatalf("expected Unknown for unmapped type")
	}
}

func TestHelloRoundTrip(t *testing.T) {
	want := HelloMsg{Version: 1}
	got, err := DecodeHello(want.Encode())
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestResizeRoundTrip(t *testing.T) {
	want := ResizeMsg{Cols: 132, Rows: 43}
	got, err := DecodeResize(want.Encode())
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestKillSessionRoundTrip(t *testing.T) {
	for _, want := range []KillSessionMsg{
		{ID: "s1", Force: false},
		{ID: "s1", Force: true},
	} {
		got, err := DecodeKillSession(want.Encode())
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Fatalf("got %+v, want %+v", got, want)
		}
	}
}

func TestSessionExitedRoundTrip(t *testing.T) {
	want := SessionExitedMsg{ID: "s1", Exit: -1}
	got, err := DecodeSessionExited(want.Encode())
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestErrorRoundTrip(t *testing.T) {
	want := ErrorMsg{Message: "no such session: é日本語"}
	got, err := DecodeError(want.Encode())
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

// TestMessageRoundTripEdgeCases exercises the edge cases spec.md calls
// out by name: negative exit codes, Unicode strings, 64 KiB payloads,
// and zero-length arrays, each round-tripped through its message's
// Encode and Decode pair.
func TestMessageRoundTripEdgeCases(t *testing.T) {
	t.Run("negative exit code", func(t *testing.T) {
		want := SessionExitedMsg{ID: "s1", Exit: -128}
		got, err := DecodeSessionExited(want.Encode())
		if err != nil {
			t.Fatal(err)
		}
		if got.Exit != -128 {
			t.Fatalf("exit = %d, want -128", got.Exit)
		}
	})

	t.Run("unicode cmd and cwd", func(t *testing.T) {
		want := CreateSessionMsg{
			ID: "s1", Cmd: "日本語シェル",
			Cwd: "/home/üser/プロジェクト", HasCwd: true,
		}
		got, err := DecodeCreateSession(want.Encode())
		if err != nil {
			t.Fatal(err)
		}
		if got.Cmd != want.Cmd || got.Cwd != want.Cwd {
			t.Fatalf("got %+v, want %+v", got, want)
		}
	})

	t.Run("64 KiB buffered payload", func(t *testing.T) {
		want := AttachedMsg{
			Info:     SessionInfo{ID: "s1", Cmd: "bash", State: StateRunning},
			Buffered: wantBytes(64 << 10),
		}
		got, err := DecodeAttached(want.Encode())
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(got.Buffered, want.Buffered) {
			t.Fatalf("buffered length = %d, want %d", len(got.Buffered), len(want.Buffered))
		}
	})

	t.Run("zero-length args and session list", func(t *testing.T) {
		create := CreateSessionMsg{ID: "s1", Cmd: "bash", Args: []string{}, HasArgs: true}
		gotCreate, err := DecodeCreateSession(create.Encode())
		if err != nil {
			t.Fatal(err)
		}
		if len(gotCreate.Args) != 0 {
			t.Fatalf("args = %+v, want empty", gotCreate.Args)
		}

		list := SessionListMsg{Sessions: []SessionInfo{}}
		gotList, err := DecodeSessionList(list.Encode())
		if err != nil {
			t.Fatal(err)
		}
		if len(gotList.Sessions) != 0 {
			t.Fatalf("sessions = %+v, want empty", gotList.Sessions)
		}
	})
}
