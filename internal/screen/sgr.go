package screen

// applySGR applies a Select Graphic Rendition sequence. Colon-
// separated subparameters reach here already flattened into params
// (DESIGN.md open question: colon treated as ';'), so `38:2:r:g:b` and
// `38;2;r;g;b` are handled identically. The underline-style subparam
// form `4:3` is therefore indistinguishable from `4;3`: it sets
// underline and then italic, and the underline style is not recorded.
func (h *Handler) applySGR(params []int) {
	b := h.buf
	if len(params) == 0 {
		b.pen = Pen{Fg: DefaultColor, Bg: DefaultColor}
		return
	}
	for i := 0; i < len(params); i++ {
		code := params[i]
		switch {
		case code == 0:
			b.pen = Pen{Fg: DefaultColor, Bg: DefaultColor}
		case code == 1:
			b.pen.Attrs |= AttrBold
		case code == 2:
			b.pen.Attrs |= AttrDim
		case code == 3:
			b.pen.Attrs |= AttrItalic
		case code == 4:
			b.pen.Attrs |= AttrUnderline
		case code == 5 || code == 6:
			b.pen.Attrs |= AttrBlink
		case code == 7:
			b.pen.Attrs |= AttrInverse
		case code == 8:
			b.pen.Attrs |= AttrHidden
		case code == 9:
			b.pen.Attrs |= AttrStrikethrough
		case code == 21: // double underline is treated as plain underline
			b.pen.Attrs |= AttrUnderline
		case code == 22:
			b.pen.Attrs &^= AttrBold | AttrDim
		case code == 23:
			b.pen.Attrs &^= AttrItalic
		case code == 24:
			b.pen.Attrs &^= AttrUnderline
		case code == 25:
			b.pen.Attrs &^= AttrBlink
		case code == 27:
			b.pen.Attrs &^= AttrInverse
		case code == 28:
			b.pen.Attrs &^= AttrHidden
		case code == 29:
			b.pen.Attrs &^= AttrStrikethrough
		case code >= 30 && code <= 37:
			b.pen.Fg = Indexed(uint8(code - 30))
		case code == 38:
			color, consumed := parseExtendedColor(params[i+1:])
			if consumed > 0 {
				b.pen.Fg = color
				i += consumed
			}
		case code == 39:
			b.pen.Fg = DefaultColor
		case code >= 40 && code <= 47:
			b.pen.Bg = Indexed(uint8(code - 40))
		case code == 48:
			color, consumed := parseExtendedColor(params[i+1:])
			if consumed > 0 {
				b.pen.Bg = color
				i += consumed
			}
		case code == 49:
			b.pen.Bg = DefaultColor
		case code >= 90 && code <= 97:
			b.pen.Fg = Indexed(uint8(code - 90 + 8))
		case code >= 100 && code <= 107:
			b.pen.Bg = Indexed(uint8(code - 100 + 8))
		}
	}
}

// parseExtendedColor reads a `5;n` (256-color) or `2;r;g;b` (truecolor)
// sequence from rest, returning the color and how many extra params it
// consumed (0 if malformed).
func parseExtendedColor(rest []int) (Color, int) {
	if len(rest) == 0 {
		return 0, 0
	}
	switch rest[0] {
	case 5:
		if len(rest) < 2 {
			return 0, 0
		}
		return Indexed(uint8(rest[1])), 2
	case 2:
		if len(rest) < 4 {
			return 0, 0
		}
		return RGB(uint8(rest[1]), uint8(rest[2]), uint8(rest[3])), 4
	default:
		return 0, 0
	}
}
