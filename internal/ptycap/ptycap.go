// Package ptycap implements the minimal PTY capability a session host
// consumes (spec.md §6): spawn, read, write, resize, kill, wait for
// exit, dispose. The rest of the module (internal/termhost) depends
// only on the Pty interface, not on this package's creack/pty backing,
// so a ConPTY or forkpty implementation could be swapped in later.
package ptycap

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/creack/pty"
)

// Options configures a spawned child process.
type Options struct {
	Command string
	Args    []string
	Cwd     string
	Env     map[string]string // added to/overriding the host's environment
	Cols    uint16
	Rows    uint16
}

// Pty is the capability a session needs from a spawned child.
type Pty interface {
	io.Reader
	// Write writes to the child with no deadline. Session input paths
	// should prefer WriteTimeout so a wedged child can't block forever.
	Write(p []byte) (int, error)
	WriteTimeout(p []byte, timeout time.Duration) (int, error)
	Resize(cols, rows uint16) error
	// Kill requests termination. A graceful kill sends SIGTERM; force
	// sends SIGKILL directly.
	Kill(force bool) error
	// Wait blocks until the child exits and returns its exit code.
	Wait() (exitCode int, err error)
	Close() error
}

// creackPty backs Pty with github.com/creack/pty.
type creackPty struct {
	cmd *exec.Cmd
	f   *os.File
}

// Start spawns opts.Command in a new PTY of the given size.
func Start(opts Options) (Pty, error) {
	cmd := exec.Command(opts.Command, opts.Args...)
	if opts.Cwd != "" {
		cmd.Dir = opts.Cwd
	}
	if len(opts.Env) > 0 {
		env := make([]string, 0, len(os.Environ())+len(opts.Env))
		for _, e := range os.Environ() {
			key := e
			if idx := strings.Index(e, "="); idx >= 0 {
				key = e[:idx]
			}
			if _, override := opts.Env[key]; !override {
				env = append(env, e)
			}
		}
		for k, v := range opts.Env {
			env = append(env, k+"="+v)
		}
		cmd.Env = env
	}

	f, err := pty.StartWithSize(cmd, &pty.Winsize{
		Rows: opts.Rows,
		Cols: opts.Cols,
	})
	if err != nil {
		return nil, fmt.Errorf("ptycap: start %q: %w", opts.Command, err)
	}
	return &creackPty{cmd: cmd, f: f}, nil
}

func (p *creackPty) Read(b []byte) (int, error) { return p.f.Read(b) }
func (p *creackPty) Write(b []byte) (int, error) { return p.f.Write(b) }

// WriteTimeout runs the write in a goroutine so the caller can give up
// after a deadline and release any lock it holds. If the child isn't
// reading its stdin, the kernel PTY buffer fills and Write blocks
// indefinitely; ErrWriteTimeout signals that condition to the caller.
func (p *creackPty) WriteTimeout(b []byte, timeout time.Duration) (int, error) {
	type result struct {
		n   int
		err error
	}
	ch := make(chan result, 1)
	go func() {
		n, err := p.f.Write(b)
		ch <- result{n, err}
	}()
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case r := <-ch:
		return r.n, r.err
	case <-timer.C:
		return 0, ErrWriteTimeout
	}
}

// ErrWriteTimeout is returned by WriteTimeout when the write does not
// complete within the deadline.
var ErrWriteTimeout = fmt.Errorf("ptycap: write timed out")

func (p *creackPty) Resize(cols, rows uint16) error {
	return pty.Setsize(p.f, &pty.Winsize{Rows: rows, Cols: cols})
}

func (p *creackPty) Kill(force bool) error {
	if p.cmd.Process == nil {
		return nil
	}
	if force {
		return p.cmd.Process.Kill()
	}
	return p.cmd.Process.Signal(syscall.SIGTERM)
}

func (p *creackPty) Wait() (int, error) {
	err := p.cmd.Wait()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, err
}

func (p *creackPty) Close() error { return p.f.Close() }
