package screen

import "github.com/mattn/go-runewidth"

// Handler adapts a Buffer to the vtparser.Handler interface so a
// Buffer can sit directly behind a vtparser.Parser (spec.md §4.2
// "Screen buffer (handler for the parser)").
type Handler struct {
	buf *Buffer
}

// NewHandler wraps buf as a vtparser.Handler.
func NewHandler(buf *Buffer) *Handler {
	return &Handler{buf: buf}
}

// Buffer returns the wrapped screen buffer.
func (h *Handler) Buffer() *Buffer { return h.buf }

func (h *Handler) Print(r rune) {
	b := h.buf
	w := runewidth.RuneWidth(r)
	if w <= 0 {
		w = 1
	}
	if b.wrapPending {
		b.lineFeed()
		b.cursorX = 0
		b.wrapPending = false
	}
	if b.cursorX+w > b.width {
		if b.autowrap {
			b.lineFeed()
			b.cursorX = 0
		} else {
			b.cursorX = b.width - w
			if b.cursorX < 0 {
				b.cursorX = 0
			}
		}
	}
	cell := Cell{Rune: r, Fg: b.pen.Fg, Bg: b.pen.Bg, Attrs: b.pen.Attrs}
	b.active.set(b.cursorX, b.cursorY, cell)
	for i := 1; i < w; i++ {
		if b.cursorX+i >= b.width {
			break
		}
		b.active.set(b.cursorX+i, b.cursorY, blankCell(b.pen))
	}
	b.cursorX += w
	if b.cursorX >= b.width {
		if b.autowrap {
			b.cursorX = b.width
			b.wrapPending = true
		} else {
			b.cursorX = b.width - 1
		}
	}
}

func (h *Handler) Execute(c byte) {
	b := h.buf
	switch c {
	case 0x08: // BS
		if b.cursorX > 0 {
			b.cursorX--
		}
		b.wrapPending = false
	case 0x09: // HT
		b.advanceTab()
	case 0x0A, 0x0B, 0x0C: // LF, VT, FF
		b.lineFeed()
	case 0x0D: // CR
		b.cursorX = 0
		b.wrapPending = false
	case 0x84: // IND (8-bit)
		b.lineFeed()
	case 0x85: // NEL (8-bit)
		b.cursorX = 0
		b.lineFeed()
	case 0x88: // HTS (8-bit)
		b.tabStops[b.cursorX] = true
	case 0x8D: // RI (8-bit)
		b.reverseLineFeed()
	default:
		// BEL and other controls without screen effect.
	}
}

func (h *Handler) EscDispatch(final, intermediate byte) {
	b := h.buf
	if intermediate != 0 {
		return
	}
	switch final {
	case '7': // DECSC
		b.saveCursor()
	case '8': // DECRC
		b.restoreCursor()
	case 'c': // RIS
		b.fullReset()
	case 'D': // IND
		b.lineFeed()
	case 'E': // NEL
		b.cursorX = 0
		b.lineFeed()
	case 'M': // RI
		b.reverseLineFeed()
	case 'H': // HTS
		b.tabStops[b.cursorX] = true
	}
}

func (b *Buffer) advanceTab() {
	for x := b.cursorX + 1; x < b.width; x++ {
		if b.tabStops[x] {
			b.cursorX = x
			return
		}
	}
	b.cursorX = b.width - 1
}

func (b *Buffer) reverseTab() {
	for x := b.cursorX - 1; x >= 0; x-- {
		if b.tabStops[x] {
			b.cursorX = x
			return
		}
	}
	b.cursorX = 0
}

// fullReset implements RIS: fresh grids, default pen, full reset of
// modes, tab stops reinitialized.
func (b *Buffer) fullReset() {
	*b = *New(b.width, b.height)
}
