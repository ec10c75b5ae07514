// Command termhostd runs a termhost session host: it accepts attach
// clients over a Unix domain socket and/or WebSocket, multiplexing any
// number of PTY-backed sessions behind a single process (spec.md
// §4.6, §6).
package main

import (
	"os"

	"termhost/internal/termhostdcmd"
)

func main() {
	os.Exit(termhostdcmd.Main())
}
