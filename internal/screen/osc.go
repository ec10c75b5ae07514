package screen

import (
	"encoding/base64"
	"strings"
)

// OscDispatch handles the OSC operations named in spec.md §4.2. Only
// window title (0/2) and clipboard (52) change buffer state; palette
// set (4), hyperlink (8), color queries/sets (10/11/12), and
// palette/cursor-color reset (104/112) are accepted and discarded.
//
// Query forms (payload == "?") would need a response written back down
// the PTY, which this buffer has no handle to; they are ignored and no
// response is sent.
func (h *Handler) OscDispatch(command int, data []byte) {
	b := h.buf
	payload := string(data)

	switch command {
	case 0, 2:
		b.title = payload
	case 4:
		// Palette index;spec pairs: accepted, not stored, since no
		// palette table exists in ScreenBuffer's data model (spec.md §3
		// only names a default-or-indexed-or-RGB Color per cell).
	case 8:
		// Hyperlink (params;uri): accepted, no per-cell storage.
	case 10, 11, 12:
		if payload == "?" {
			return
		}
	case 52:
		h.handleOSC52(payload)
	case 104, 112:
		// Reset palette / cursor color: no palette state to clear.
	}
}

func (h *Handler) handleOSC52(payload string) {
	if payload == "" {
		return
	}
	idx := strings.IndexByte(payload, ';')
	data := payload
	if idx >= 0 {
		data = payload[idx+1:]
	}
	if data == "?" || data == "" {
		return
	}
	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return
	}
	h.buf.clipboard = string(decoded)
}

// DcsHook, DcsPut, DcsUnhook: DCS frames (e.g. DECRQSS, Sixel) carry no
// required screen-buffer semantics in this spec; they are accepted and
// discarded so the parser contract is satisfied without panicking.
func (h *Handler) DcsHook(final, intermediate byte, params []int) {}
func (h *Handler) DcsPut(b byte)                                  {}
func (h *Handler) DcsUnhook()                                     {}
