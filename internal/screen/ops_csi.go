package screen

// CsiDispatch implements the CSI operation set described in spec.md
// §4.2: cursor movement, tabulation, erase, insert/delete, scroll,
// SGR, cursor save/restore, private modes, cursor style, and resets.
func (h *Handler) CsiDispatch(final, private, intermediate byte, params []int) {
	b := h.buf
	p := func(i, def int) int {
		if i >= len(params) || params[i] == 0 {
			return def
		}
		return params[i]
	}

	if private == '?' {
		h.dispatchPrivateMode(final, params)
		return
	}

	if intermediate == ' ' && final == 'q' { // DECSCUSR
		// Cursor style is presentational only here; no buffer state
		// currently tracks it, so this is accepted and ignored.
		return
	}
	if intermediate == '!' && final == 'p' { // DECSTR soft reset
		b.softReset()
		return
	}
	if intermediate != 0 {
		return
	}

	switch final {
	case 'A': // CUU
		b.moveCursor(b.cursorX, b.cursorY-p(0, 1))
	case 'B', 'e': // CUD, VPR
		b.moveCursor(b.cursorX, b.cursorY+p(0, 1))
	case 'C', 'a': // CUF, HPR
		b.moveCursor(b.cursorX+p(0, 1), b.cursorY)
	case 'D': // CUB
		b.moveCursor(b.cursorX-p(0, 1), b.cursorY)
	case 'E': // CNL
		b.moveCursor(0, b.cursorY+p(0, 1))
	case 'F': // CPL
		b.moveCursor(0, b.cursorY-p(0, 1))
	case 'G', '`': // CHA, HPA
		b.moveCursor(p(0, 1)-1, b.cursorY)
	case 'd': // VPA
		b.moveCursor(b.cursorX, p(0, 1)-1)
	case 'j': // HPB
		b.moveCursor(b.cursorX-p(0, 1), b.cursorY)
	case 'k': // VPB
		b.moveCursor(b.cursorX, b.cursorY-p(0, 1))
	case 'H', 'f': // CUP, HVP
		row := p(0, 1) - 1
		col := p(1, 1) - 1
		if b.originMode {
			top, _ := b.scrollRegionRows()
			row += top
		}
		b.moveCursor(col, row)
	case 'I': // CHT
		for i := 0; i < p(0, 1); i++ {
			b.advanceTab()
		}
	case 'Z': // CBT
		for i := 0; i < p(0, 1); i++ {
			b.reverseTab()
		}
	case 'g': // TBC
		switch p(0, 0) {
		case 0:
			delete(b.tabStops, b.cursorX)
		case 3:
			b.tabStops = make(map[int]bool)
		}
	case 'J': // ED
		h.eraseDisplay(p(0, 0))
	case 'K': // EL
		h.eraseLine(p(0, 0))
	case 'X': // ECH
		n := p(0, 1)
		end := b.cursorX + n
		if end > b.width {
			end = b.width
		}
		b.active.fill(b.cursorX, b.cursorY, end, b.cursorY+1, b.pen)
	case '@': // ICH
		h.insertChars(p(0, 1))
	case 'P': // DCH
		h.deleteChars(p(0, 1))
	case 'L': // IL
		h.insertLines(p(0, 1))
	case 'M': // DL
		h.deleteLines(p(0, 1))
	case 'b': // REP
		h.repeatLast(p(0, 1))
	case 'S': // SU
		b.scrollUpRegion(p(0, 1))
	case 'T': // SD
		b.scrollDownRegion(p(0, 1))
	case 'r': // DECSTBM
		top := p(0, 1) - 1
		bottom := p(1, b.height)
		if bottom > b.height {
			bottom = b.height
		}
		if top < 0 {
			top = 0
		}
		if top >= bottom {
			top, bottom = 0, b.height
		}
		b.scrollTop, b.scrollBottom = top, bottom
		b.moveCursor(0, 0)
	case 'm': // SGR
		h.applySGR(params)
	case 's': // SCO/DECSC save; DECSLRM is not implemented, and enabling it would remap 's' to set left/right margins
		b.saveCursor()
	case 'u': // SCO/DECRC restore
		b.restoreCursor()
	}
}

func (h *Handler) dispatchPrivateMode(final byte, params []int) {
	b := h.buf
	set := final == 'h'
	if final != 'h' && final != 'l' {
		return
	}
	for _, mode := range params {
		switch mode {
		case 25: // cursor visibility
			b.cursorVisible = set
		case 1049: // alternate screen + save/clear/restore cursor
			if set {
				b.enterAlternateScreen()
			} else {
				b.exitAlternateScreen()
			}
		case 47, 1047: // alternate screen without cursor save/restore
			if set {
				b.inAlt = true
				b.active = b.alternate
				b.alternate.fill(0, 0, b.width, b.height, b.pen)
			} else {
				b.inAlt = false
				b.active = b.primary
			}
		case 1048:
			if set {
				b.saveCursor()
			} else {
				b.restoreCursor()
			}
		case 7: // autowrap
			b.autowrap = set
		case 6: // origin mode
			b.originMode = set
			b.moveCursor(0, 0)
		case 2004, 1004, 1000, 1002, 1003, 1006:
			// Bracketed paste, focus events, mouse tracking: accepted
			// as transport-level client/host modes, nothing in the grid
			// to mutate.
		}
	}
}

func (h *Handler) eraseDisplay(mode int) {
	b := h.buf
	switch mode {
	case 0:
		b.active.fill(b.cursorX, b.cursorY, b.width, b.cursorY+1, b.pen)
		b.active.fill(0, b.cursorY+1, b.width, b.height, b.pen)
	case 1:
		b.active.fill(0, 0, b.width, b.cursorY, b.pen)
		b.active.fill(0, b.cursorY, b.cursorX+1, b.cursorY+1, b.pen)
	case 2, 3:
		b.active.fill(0, 0, b.width, b.height, b.pen)
	}
}

func (h *Handler) eraseLine(mode int) {
	b := h.buf
	switch mode {
	case 0:
		b.active.fill(b.cursorX, b.cursorY, b.width, b.cursorY+1, b.pen)
	case 1:
		b.active.fill(0, b.cursorY, b.cursorX+1, b.cursorY+1, b.pen)
	case 2:
		b.active.fill(0, b.cursorY, b.width, b.cursorY+1, b.pen)
	}
}

func (h *Handler) insertChars(n int) {
	b := h.buf
	y := b.cursorY
	row := y * b.width
	end := row + b.width
	src := row + b.cursorX
	shift := n
	if shift > b.width-b.cursorX {
		shift = b.width - b.cursorX
	}
	copy(b.active.cells[src+shift:end], b.active.cells[src:end-shift])
	b.active.fill(b.cursorX, y, b.cursorX+shift, y+1, b.pen)
}

func (h *Handler) deleteChars(n int) {
	b := h.buf
	y := b.cursorY
	row := y * b.width
	end := row + b.width
	src := row + b.cursorX
	shift := n
	if shift > b.width-b.cursorX {
		shift = b.width - b.cursorX
	}
	copy(b.active.cells[src:end-shift], b.active.cells[src+shift:end])
	b.active.fill(b.width-shift, y, b.width, y+1, b.pen)
}

func (h *Handler) insertLines(n int) {
	b := h.buf
	top, bottom := b.scrollRegionRows()
	if b.cursorY < top || b.cursorY >= bottom {
		return
	}
	b.active.scrollDown(b.cursorY, bottom, n, b.pen)
}

func (h *Handler) deleteLines(n int) {
	b := h.buf
	top, bottom := b.scrollRegionRows()
	if b.cursorY < top || b.cursorY >= bottom {
		return
	}
	b.active.scrollUp(b.cursorY, bottom, n, b.pen)
}

func (h *Handler) repeatLast(n int) {
	b := h.buf
	if b.cursorX == 0 {
		return
	}
	last := b.active.at(b.cursorX-1, b.cursorY)
	for i := 0; i < n; i++ {
		h.Print(last.DisplayRune())
	}
}
