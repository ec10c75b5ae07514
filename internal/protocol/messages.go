package protocol

import "fmt"

// HelloMsg is the Hello payload exchanged by both sides on connect.
type HelloMsg struct {
	Version uint8
}

func (m HelloMsg) Encode() []byte {
	e := &encoder{}
	e.u8(m.Version)
	return e.buf
}

func DecodeHello(p []byte) (HelloMsg, error) {
	d := newDecoder(p)
	m := HelloMsg{Version: d.u8()}
	return m, d.err
}

// SessionListMsg is the SessionList payload.
type SessionListMsg struct {
	Sessions []SessionInfo
}

func (m SessionListMsg) Encode() []byte {
	e := &encoder{}
	e.u32(uint32(len(m.Sessions)))
	for _, si := range m.Sessions {
		e.sessionInfo(si)
	}
	return e.buf
}

func DecodeSessionList(p []byte) (SessionListMsg, error) {
	d := newDecoder(p)
	count := d.u32()
	m := SessionListMsg{}
	for i := uint32(0); i < count && d.err == nil; i++ {
		m.Sessions = append(m.Sessions, d.sessionInfo())
	}
	return m, d.err
}

// CreateSessionMsg is the CreateSession payload.
type CreateSessionMsg struct {
	ID      string
	Cmd     string
	Args    []string
	HasArgs bool
	Cwd     string
	HasCwd  bool
	Env     map[string]string
	HasEnv  bool
	Cols    uint16
	Rows    uint16
}

func (m CreateSessionMsg) Encode() []byte {
	e := &encoder{}
	e.str(m.ID)
	e.str(m.Cmd)
	if m.HasArgs {
		e.u8(1)
		e.u32(uint32(len(m.Args)))
		for _, a := range m.Args {
			e.str(a)
		}
	} else {
		e.u8(0)
	}
	e.optStr(m.HasCwd, m.Cwd)
	if m.HasEnv {
		e.u8(1)
		e.u32(uint32(len(m.Env)))
		for k, v := range m.Env {
			e.str(k)
			e.str(v)
		}
	} else {
		e.u8(0)
	}
	e.u16(m.Cols)
	e.u16(m.Rows)
	return e.buf
}

func DecodeCreateSession(p []byte) (CreateSessionMsg, error) {
	d := newDecoder(p)
	m := CreateSessionMsg{}
	m.ID = d.str()
	m.Cmd = d.str()
	if d.u8() == 1 {
		m.HasArgs = true
		n := d.u32()
		for i := uint32(0); i < n && d.err == nil; i++ {
			m.Args = append(m.Args, d.str())
		}
	}
	m.Cwd, m.HasCwd = d.optStr()
	if d.u8() == 1 {
		m.HasEnv = true
		n := d.u32()
		m.Env = make(map[string]string, n)
		for i := uint32(0); i < n && d.err == nil; i++ {
			k := d.str()
			v := d.str()
			m.Env[k] = v
		}
	}
	m.Cols = d.u16()
	m.Rows = d.u16()
	return m, d.err
}

// SessionCreatedMsg is the SessionCreated payload (a bare SessionInfo).
type SessionCreatedMsg struct {
	Info SessionInfo
}

func (m SessionCreatedMsg) Encode() []byte {
	e := &encoder{}
	e.sessionInfo(m.Info)
	return e.buf
}

func DecodeSessionCreated(p []byte) (SessionCreatedMsg, error) {
	d := newDecoder(p)
	m := SessionCreatedMsg{Info: d.sessionInfo()}
	return m, d.err
}

// AttachMsg is the Attach payload.
type AttachMsg struct {
	ID   string
	Cols uint16
	Rows uint16
}

func (m AttachMsg) Encode() []byte {
	e := &encoder{}
	e.str(m.ID)
	e.u16(m.Cols)
	e.u16(m.Rows)
	return e.buf
}

func DecodeAttach(p []byte) (AttachMsg, error) {
	d := newDecoder(p)
	m := AttachMsg{ID: d.str(), Cols: d.u16(), Rows: d.u16()}
	return m, d.err
}

// AttachedMsg is the Attached payload.
type AttachedMsg struct {
	Info     SessionInfo
	Buffered []byte
}

func (m AttachedMsg) Encode() []byte {
	e := &encoder{}
	e.sessionInfo(m.Info)
	e.bytes(m.Buffered)
	return e.buf
}

func DecodeAttached(p []byte) (AttachedMsg, error) {
	d := newDecoder(p)
	m := AttachedMsg{Info: d.sessionInfo()}
	m.Buffered = append([]byte(nil), d.bytes()...)
	return m, d.err
}

// ResizeMsg is the Resize payload (both directions).
type ResizeMsg struct {
	Cols uint16
	Rows uint16
}

func (m ResizeMsg) Encode() []byte {
	e := &encoder{}
	e.u16(m.Cols)
	e.u16(m.Rows)
	return e.buf
}

func DecodeResize(p []byte) (ResizeMsg, error) {
	d := newDecoder(p)
	m := ResizeMsg{Cols: d.u16(), Rows: d.u16()}
	return m, d.err
}

// KillSessionMsg is the KillSession payload.
type KillSessionMsg struct {
	ID    string
	Force bool
}

func (m KillSessionMsg) Encode() []byte {
	e := &encoder{}
	e.str(m.ID)
	if m.Force {
		e.u8(1)
	} else {
		e.u8(0)
	}
	return e.buf
}

func DecodeKillSession(p []byte) (KillSessionMsg, error) {
	d := newDecoder(p)
	m := KillSessionMsg{ID: d.str(), Force: d.u8() != 0}
	return m, d.err
}

// SessionExitedMsg is the SessionExited payload.
type SessionExitedMsg struct {
	ID   string
	Exit int32
}

func (m SessionExitedMsg) Encode() []byte {
	e := &encoder{}
	e.str(m.ID)
	e.i32(m.Exit)
	return e.buf
}

func DecodeSessionExited(p []byte) (SessionExitedMsg, error) {
	d := newDecoder(p)
	m := SessionExitedMsg{ID: d.str(), Exit: d.i32()}
	return m, d.err
}

// ErrorMsg is the Error payload.
type ErrorMsg struct {
	Message string
}

func (m ErrorMsg) Encode() []byte {
	e := &encoder{}
	e.str(m.Message)
	return e.buf
}

func DecodeError(p []byte) (ErrorMsg, error) {
	d := newDecoder(p)
	m := ErrorMsg{Message: d.str()}
	return m, d.err
}

// Input, Output, ScreenContent, ListSessions, Detach, and
// RequestScreen carry either raw bytes or an empty payload and need no
// dedicated struct: use Frame.Payload directly, or WriteFrame with nil.

// ErrUnknownType is returned by a dispatcher encountering a frame type
// outside the Type enum (spec.md §4.5: "unknown message types are an
// error and close the connection").
var ErrUnknownType = fmt.Errorf("protocol: unknown message type")
