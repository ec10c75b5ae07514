package protocol

import (
	"encoding/binary"
	"fmt"
)

// encoder accumulates a payload using the primitive encodings spec.md
// §4.5 specifies: u32_be-length-prefixed strings, u8 presence flags
// for optionals, u32_be counts for lists/maps.
type encoder struct {
	buf []byte
}

func (e *encoder) u8(v uint8)   { e.buf = append(e.buf, v) }
func (e *encoder) u16(v uint16) { var b [2]byte; binary.BigEndian.PutUint16(b[:], v); e.buf = append(e.buf, b[:]...) }
func (e *encoder) u32(v uint32) { var b [4]byte; binary.BigEndian.PutUint32(b[:], v); e.buf = append(e.buf, b[:]...) }
func (e *encoder) i32(v int32)  { e.u32(uint32(v)) }
func (e *encoder) i64(v int64)  { var b [8]byte; binary.BigEndian.PutUint64(b[:], uint64(v)); e.buf = append(e.buf, b[:]...) }
func (e *encoder) bytes(p []byte) {
	e.u32(uint32(len(p)))
	e.buf = append(e.buf, p...)
}
func (e *encoder) str(s string) { e.bytes([]byte(s)) }
func (e *encoder) optStr(present bool, s string) {
	if present {
		e.u8(1)
		e.str(s)
	} else {
		e.u8(0)
	}
}
func (e *encoder) sessionInfo(si SessionInfo) {
	e.str(si.ID)
	e.str(si.Cmd)
	e.optStr(si.HasCwd, si.Cwd)
	e.u8(uint8(si.State))
	e.i64(si.Created)
	if si.HasExit {
		e.u8(1)
		e.i32(si.Exit)
	} else {
		e.u8(0)
	}
	e.u16(si.Cols)
	e.u16(si.Rows)
}

// decoder reads sequentially from a payload, erroring on underrun.
type decoder struct {
	buf []byte
	pos int
	err error
}

func newDecoder(p []byte) *decoder { return &decoder{buf: p} }

func (d *decoder) need(n int) bool {
	if d.err != nil {
		return false
	}
	if d.pos+n > len(d.buf) {
		d.err = fmt.Errorf("protocol: unexpected end of payload (need %d, have %d)", n, len(d.buf)-d.pos)
		return false
	}
	return true
}

func (d *decoder) u8() uint8 {
	if !d.need(1) {
		return 0
	}
	v := d.buf[d.pos]
	d.pos++
	return v
}

func (d *decoder) u16() uint16 {
	if !d.need(2) {
		return 0
	}
	v := binary.BigEndian.Uint16(d.buf[d.pos:])
	d.pos += 2
	return v
}

func (d *decoder) u32() uint32 {
	if !d.need(4) {
		return 0
	}
	v := binary.BigEndian.Uint32(d.buf[d.pos:])
	d.pos += 4
	return v
}

func (d *decoder) i32() int32 { return int32(d.u32()) }

func (d *decoder) i64() int64 {
	if !d.need(8) {
		return 0
	}
	v := binary.BigEndian.Uint64(d.buf[d.pos:])
	d.pos += 8
	return int64(v)
}

func (d *decoder) bytes() []byte {
	n := int(d.u32())
	if n < 0 || !d.need(n) {
		return nil
	}
	v := d.buf[d.pos : d.pos+n]
	d.pos += n
	return v
}

func (d *decoder) str() string { return string(d.bytes()) }

func (d *decoder) optStr() (string, bool) {
	if d.u8() == 1 {
		return d.str(), true
	}
	return "", false
}

func (d *decoder) sessionInfo() SessionInfo {
	var si SessionInfo
	si.ID = d.str()
	si.Cmd = d.str()
	si.Cwd, si.HasCwd = d.optStr()
	si.State = SessionState(d.u8())
	si.Created = d.i64()
	if d.u8() == 1 {
		si.Exit = d.i32()
		si.HasExit = true
	}
	si.Cols = d.u16()
	si.Rows = d.u16()
	return si
}

// remaining returns the bytes not yet consumed (used for raw-bytes
// payloads like Input/Output/ScreenContent, which skip the encoder
// entirely).
func (d *decoder) remaining() []byte { return d.buf[d.pos:] }
