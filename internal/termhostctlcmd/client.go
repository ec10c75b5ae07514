package termhostctlcmd

import (
	"context"
	"fmt"
	"io"
	"net"
	"strings"

	"termhost/internal/protocol"
	"termhost/internal/wstransport"
)

// dial connects to a termhost host identified by addr: a filesystem
// path dials a Unix socket, a "ws://" or "wss://" URL dials over
// WebSocket via internal/wstransport.
func dial(ctx context.Context, addr string) (io.ReadWriteCloser, error) {
	if strings.HasPrefix(addr, "ws://") || strings.HasPrefix(addr, "wss://") {
		return wstransport.Dial(ctx, addr)
	}
	conn, err := net.Dial("unix", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return conn, nil
}

// helloHandshake performs the Hello exchange every connection begins
// with (spec.md §4.5).
func helloHandshake(conn io.ReadWriteCloser) error {
	frame, err := protocol.ReadFrame(conn)
	if err != nil {
		return fmt.Errorf("read Hello: %w", err)
	}
	if frame.Type != protocol.TypeHello {
		return fmt.Errorf("expected Hello, got %v", frame.Type)
	}
	if _, err := protocol.DecodeHello(frame.Payload); err != nil {
		return fmt.Errorf("decode Hello: %w", err)
	}
	return protocol.WriteFrame(conn, protocol.TypeHello, protocol.HelloMsg{Version: 1}.Encode())
}

// connectAndHello dials addr and completes the Hello handshake,
// returning a ready-to-use connection.
func connectAndHello(ctx context.Context, addr string) (io.ReadWriteCloser, error) {
	conn, err := dial(ctx, addr)
	if err != nil {
		return nil, err
	}
	if err := helloHandshake(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}
