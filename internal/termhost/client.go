package termhost

import (
	"io"
	"log"
	"sync"

	"termhost/internal/protocol"
)

// protocolVersion is the wire version advertised in Hello (spec.md
// §4.5). A mismatched peer version is logged but does not close the
// connection — the wire format itself is the contract.
const protocolVersion = 1

// serveClient runs the full Hello/dispatch loop for one attach-protocol
// connection, regardless of which transport produced it (Unix socket or
// WebSocket), mirroring the teacher's single swapped-I/O attach loop
// generalized to many sessions multiplexed over one connection.
func (h *Host) serveClient(conn io.ReadWriteCloser) {
	defer conn.Close()

	var writeMu sync.Mutex
	writeFrame := func(typ protocol.Type, payload []byte) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return protocol.WriteFrame(conn, typ, payload)
	}

	if err := writeFrame(protocol.TypeHello, protocol.HelloMsg{Version: protocolVersion}.Encode()); err != nil {
		return
	}
	hello, err := protocol.ReadFrame(conn)
	if err != nil || hello.Type != protocol.TypeHello {
		return
	}
	peer, err := protocol.DecodeHello(hello.Payload)
	if err != nil {
		return
	}
	if peer.Version != protocolVersion {
		log.Printf("termhost: client protocol version %d, host speaks %d", peer.Version, protocolVersion)
	}

	var (
		attached *Session
		sub      *Subscription
		fwdDone  chan struct{}
	)
	detach := func() {
		if sub != nil {
			sub.Cancel()
			<-fwdDone
			sub = nil
			attached = nil
			fwdDone = nil
		}
	}
	defer detach()

	for {
		frame, err := protocol.ReadFrame(conn)
		if err != nil {
			return
		}

		switch frame.Type {
		case protocol.TypeListSessions:
			sessions := h.List()
			infos := make([]protocol.SessionInfo, len(sessions))
			for i, s := range sessions {
				infos[i] = s.Info()
			}
			if writeFrame(protocol.TypeSessionList, protocol.SessionListMsg{Sessions: infos}.Encode()) != nil {
				return
			}

		case protocol.TypeCreateSession:
			msg, derr := protocol.DecodeCreateSession(frame.Payload)
			if derr != nil {
				return
			}
			s, cerr := h.Create(Options{
				ID:      msg.ID,
				Command: msg.Cmd,
				Args:    msg.Args,
				Cwd:     msg.Cwd,
				Env:     msg.Env,
				Cols:    msg.Cols,
				Rows:    msg.Rows,
			})
			if cerr != nil {
				if writeFrame(protocol.TypeError, protocol.ErrorMsg{Message: cerr.Error()}.Encode()) != nil {
					return
				}
				continue
			}
			if writeFrame(protocol.TypeSessionCreated, protocol.SessionCreatedMsg{Info: s.Info()}.Encode()) != nil {
				return
			}

		case protocol.TypeAttach:
			msg, derr := protocol.DecodeAttach(frame.Payload)
			if derr != nil {
				return
			}
			s, ok := h.Get(msg.ID)
			if !ok {
				if writeFrame(protocol.TypeError, protocol.ErrorMsg{Message: "unknown session " + msg.ID}.Encode()) != nil {
					return
				}
				continue
			}
			detach() // only one attachment per connection at a time

			if msg.Cols > 0 && msg.Rows > 0 {
				s.Resize(msg.Cols, msg.Rows)
			}
			buffered, newSub := s.AttachSnapshot()
			if writeFrame(protocol.TypeAttached, protocol.AttachedMsg{Info: s.Info(), Buffered: buffered}.Encode()) != nil {
				return
			}
			attached = s
			sub = newSub
			fwdDone = make(chan struct{})
			go forwardOutput(s, sub, writeFrame, fwdDone)

		case protocol.TypeDetach:
			detach()

		case protocol.TypeInput:
			if attached == nil {
				continue
			}
			if serr := attached.SendInput(frame.Payload); serr != nil {
				writeFrame(protocol.TypeError, protocol.ErrorMsg{Message: serr.Error()}.Encode())
			}

		case protocol.TypeResize:
			if attached == nil {
				continue
			}
			msg, derr := protocol.DecodeResize(frame.Payload)
			if derr != nil {
				return
			}
			attached.Resize(msg.Cols, msg.Rows)

		case protocol.TypeRequestScreen:
			if attached == nil {
				continue
			}
			if writeFrame(protocol.TypeScreenContent, attached.RenderScreen()) != nil {
				return
			}

		case protocol.TypeKillSession:
			msg, derr := protocol.DecodeKillSession(frame.Payload)
			if derr != nil {
				return
			}
			if !h.KillSession(msg.ID, msg.Force) {
				writeFrame(protocol.TypeError, protocol.ErrorMsg{Message: "unknown session " + msg.ID}.Encode())
			}

		default:
			log.Printf("termhost: client sent unknown frame type %v", frame.Type)
			writeFrame(protocol.TypeError, protocol.ErrorMsg{Message: protocol.ErrUnknownType.Error()}.Encode())
			return
		}
	}
}

// forwardOutput relays a session's broadcast chunks as Output frames,
// and sends a single SessionExited frame when the session terminates,
// for the duration of one attachment. It exits when sub's channel is
// closed (detach or session exit) or a write fails.
func forwardOutput(s *Session, sub *Subscription, writeFrame func(protocol.Type, []byte) error, done chan struct{}) {
	defer close(done)
	for chunk := range sub.Chunks() {
		if writeFrame(protocol.TypeOutput, chunk) != nil {
			return
		}
	}
	// Chunks() closed: either Cancel() was called (plain detach, no
	// SessionExited) or the session terminated. Only the latter case
	// produces an exit code.
	if exit, ok := s.ExitCode(); ok {
		writeFrame(protocol.TypeSessionExited, protocol.SessionExitedMsg{ID: s.ID, Exit: int32(exit)}.Encode())
	}
}
