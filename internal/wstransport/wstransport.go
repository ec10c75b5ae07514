// Package wstransport adapts WebSocket connections to the
// io.ReadWriteCloser shape internal/termhost's per-client dispatch loop
// already expects from a Unix socket, so a host can accept attach
// clients over either transport with the same dispatch code (spec.md
// §4.6, §6: "a listening address is accepted via host options").
package wstransport

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
)

const writeTimeout = 5 * time.Second

// Conn adapts a *websocket.Conn to io.ReadWriteCloser. Incoming
// WebSocket binary messages are reassembled into a flat byte stream;
// protocol.ReadFrame only cares about byte counts, not message
// boundaries. protocol.WriteFrame issues two Write calls per frame
// (header, then payload), so each frame costs two WebSocket messages
// rather than one — a minor inefficiency, not a correctness issue,
// since Read reassembles regardless of how writes were chunked.
type Conn struct {
	ws  *websocket.Conn
	ctx context.Context

	readBuf []byte

	closeOnce sync.Once
	closeCh   chan struct{}
}

func newConn(ctx context.Context, ws *websocket.Conn) *Conn {
	return &Conn{ws: ws, ctx: ctx, closeCh: make(chan struct{})}
}

// Dial connects to a termhost WebSocket endpoint and wraps the
// resulting connection as an io.ReadWriteCloser, the client-side
// counterpart of Listener/Handler.
func Dial(ctx context.Context, url string) (*Conn, error) {
	ws, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return newConn(ctx, ws), nil
}

func (c *Conn) Read(p []byte) (int, error) {
	for len(c.readBuf) == 0 {
		_, data, err := c.ws.Read(c.ctx)
		if err != nil {
			return 0, err
		}
		c.readBuf = data
	}
	n := copy(p, c.readBuf)
	c.readBuf = c.readBuf[n:]
	return n, nil
}

func (c *Conn) Write(p []byte) (int, error) {
	ctx, cancel := context.WithTimeout(c.ctx, writeTimeout)
	defer cancel()
	if err := c.ws.Write(ctx, websocket.MessageBinary, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.ws.Close(websocket.StatusNormalClosure, "closing")
		close(c.closeCh)
	})
	return err
}

// Listener accepts WebSocket upgrades from an http.Handler and hands
// each resulting Conn to Accept, mirroring the accept-loop shape of a
// net.Listener.
type Listener struct {
	acceptCh chan *Conn

	closeOnce sync.Once
	closeCh   chan struct{}
}

func NewListener() *Listener {
	return &Listener{
		acceptCh: make(chan *Conn),
		closeCh:  make(chan struct{}),
	}
}

// Handler returns the http.HandlerFunc to mount at the host's
// configured WebSocket path. It blocks for the connection's lifetime:
// returning early would cancel r.Context(), which backs Conn's reads
// and writes.
func (l *Listener) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			return
		}
		conn := newConn(r.Context(), ws)

		select {
		case l.acceptCh <- conn:
		case <-l.closeCh:
			ws.Close(websocket.StatusGoingAway, "listener closed")
			return
		case <-r.Context().Done():
			return
		}

		select {
		case <-conn.closeCh:
		case <-r.Context().Done():
		}
	}
}

// Accept blocks until a client connects, ctx is cancelled, or the
// listener is closed.
func (l *Listener) Accept(ctx context.Context) (io.ReadWriteCloser, error) {
	select {
	case c := <-l.acceptCh:
		return c, nil
	case <-l.closeCh:
		return nil, ErrListenerClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops the listener from accepting further connections. Already
// established Conns are unaffected.
func (l *Listener) Close() error {
	l.closeOnce.Do(func() { close(l.closeCh) })
	return nil
}

// ErrListenerClosed is returned by Accept once Close has been called.
var ErrListenerClosed = io.ErrClosedPipe
