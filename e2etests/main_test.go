// Package e2etests drives termhostd and termhostctl through
// testscript, exercising the daemon and its client as separate
// processes the way a real user would invoke them.
package e2etests

import (
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rogpeppe/go-internal/testscript"

	"termhost/internal/termhostctlcmd"
	"termhost/internal/termhostdcmd"
)

func TestMain(m *testing.M) {
	os.Exit(testscript.RunMain(m, map[string]func() int{
		"termhostd":   termhostdcmd.Main,
		"termhostctl": termhostctlcmd.Main,
	}))
}

func TestScripts(t *testing.T) {
	testscript.Run(t, testscript.Params{
		Dir:  "testdata",
		Cmds: scriptCmds,
		Setup: func(env *testscript.Env) error {
			// termhostd falls back to ~/.termhost for its state dir
			// when not overridden by flags; keep that hermetic.
			home := filepath.Join(env.WorkDir, "home")
			if err := os.MkdirAll(home, 0o700); err != nil {
				return err
			}
			env.Setenv("HOME", home)
			return nil
		},
	})
}

var scriptCmds = map[string]func(ts *testscript.TestScript, neg bool, args []string){
	"waitforsocket": cmdWaitForSocket,
}

// cmdWaitForSocket polls until a Unix socket is dialable, so scripts
// that start termhostd in the background don't race its listener
// setup. testscript has no builtin for this; real callers would just
// retry their first dial, but a script command keeps the .txt files
// linear.
func cmdWaitForSocket(ts *testscript.TestScript, neg bool, args []string) {
	if len(args) != 1 {
		ts.Fatalf("usage: waitforsocket path")
	}
	path := ts.MkAbs(args[0])
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		conn, err := net.Dial("unix", path)
		if err == nil {
			conn.Close()
			return
		}
		time.Sleep(25 * time.Millisecond)
	}
	ts.Fatalf("timed out waiting for socket %s", path)
}
