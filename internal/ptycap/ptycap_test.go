package ptycap

import (
	"bytes"
	"testing"
	"time"
)

func TestStartEchoesInput(t *testing.T) {
	p, err := Start(Options{Command: "cat", Cols: 80, Rows: 24})
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	if _, err := p.Write([]byte("hello\n")); err != nil {
		t.Fatal(err)
	}

	buf := make([]byte, 64)
	n, err := p.Read(buf)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(buf[:n], []byte("hello")) {
		t.Fatalf("got %q, want it to contain %q", buf[:n], "hello")
	}

	p.Kill(true)
	p.Wait()
}

func TestWaitReturnsExitCode(t *testing.T) {
	p, err := Start(Options{Command: "sh", Args: []string{"-c", "exit 7"}, Cols: 80, Rows: 24})
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	code, err := p.Wait()
	if err != nil {
		t.Fatal(err)
	}
	if code != 7 {
		t.Fatalf("exit code = %d, want 7", code)
	}
}

func TestKillGraceful(t *testing.T) {
	p, err := Start(Options{Command: "sh", Args: []string{"-c", "trap 'exit 0' TERM; sleep 30"}, Cols: 80, Rows: 24})
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	if err := p.Kill(false); err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		p.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("process did not exit after graceful kill")
	}
}

func TestResizeDoesNotError(t *testing.T) {
	p, err := Start(Options{Command: "cat", Cols: 80, Rows: 24})
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		p.Kill(true)
		p.Wait()
		p.Close()
	}()

	if err := p.Resize(100, 40); err != nil {
		t.Fatalf("resize: %v", err)
	}
}

func TestWriteTimeoutCompletesUnderNormalLoad(t *testing.T) {
	p, err := Start(Options{Command: "cat", Cols: 80, Rows: 24})
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		p.Kill(true)
		p.Wait()
		p.Close()
	}()

	n, err := p.WriteTimeout([]byte("x"), time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("n = %d, want 1", n)
	}
}

func TestEnvOverride(t *testing.T) {
	p, err := Start(Options{
		Command: "sh",
		Args:    []string{"-c", "echo $FOO"},
		Env:     map[string]string{"FOO": "bar"},
		Cols:    80, Rows: 24,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	buf := make([]byte, 64)
	n, err := p.Read(buf)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(buf[:n], []byte("bar")) {
		t.Fatalf("got %q, want it to contain %q", buf[:n], "bar")
	}
}
