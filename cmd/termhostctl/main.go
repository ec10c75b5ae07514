// Command termhostctl is the attach client for a termhost session
// host: list, create, kill, and interactively attach to sessions over
// either a Unix socket or a WebSocket termhostd endpoint.
package main

import (
	"os"

	"termhost/internal/termhostctlcmd"
)

func main() {
	os.Exit(termhostctlcmd.Main())
}
