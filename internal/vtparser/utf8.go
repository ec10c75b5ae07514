package vtparser

import "unicode/utf8"

// stepGround handles one byte while in Ground, including the inline
// incremental UTF-8 decoder side channel (active only in this state,
// per spec.md §4.1).
func (p *Parser) stepGround(b byte) {
	if p.utf8Needed > 0 {
		if b&0xC0 == 0x80 { // continuation byte
			p.utf8CP = (p.utf8CP << 6) | rune(b&0x3F)
			p.utf8Have++
			if p.utf8Have == p.utf8Needed {
				p.finishUtf8()
			}
			return
		}
		// Incompatible byte ends the sequence early: emit a
		// replacement character for the broken partial sequence, then
		// fall through to process b fresh below.
		p.utf8Needed = 0
		p.handler.Print(utf8.RuneError)
	}

	switch {
	case b == 0x00 || b == 0x7F:
		// NUL/DEL ignored in Ground.
	case b <= 0x1F:
		p.handler.Execute(b)
	case p.eightBit && b >= 0x80 && b <= 0x9F:
		p.handleC1(b)
	case b >= 0x20 && b <= 0x7E:
		p.handler.Print(rune(b))
	case b >= 0xC2 && b <= 0xDF:
		p.beginUtf8(1, rune(b&0x1F), 0x80)
	case b >= 0xE0 && b <= 0xEF:
		p.beginUtf8(2, rune(b&0x0F), 0x800)
	case b >= 0xF0 && b <= 0xF4:
		p.beginUtf8(3, rune(b&0x07), 0x10000)
	default:
		// Stray continuation byte (0x80-0xBF), overlong lead (0xC0,
		// 0xC1), invalid lead (0xF5-0xFF), or — when 8-bit controls
		// are disabled — a C1 byte (0x80-0x9F): Latin-1 fallback.
		p.handler.Print(rune(b))
	}
}

func (p *Parser) beginUtf8(needed int, firstBits rune, lower rune) {
	p.utf8Needed = needed
	p.utf8Have = 0
	p.utf8CP = firstBits
	p.utf8Lower = lower
}

func (p *Parser) finishUtf8() {
	cp := p.utf8CP
	p.utf8Needed = 0
	valid := cp >= p.utf8Lower && cp <= 0x10FFFF && !(cp >= 0xD800 && cp <= 0xDFFF)
	if !valid {
		p.handler.Print(utf8.RuneError)
		return
	}
	p.handler.Print(cp)
}

// handleC1 dispatches an 8-bit C1 control byte (0x80-0x9F) encountered
// in Ground when 8-bit control recognition is enabled.
func (p *Parser) handleC1(b byte) {
	switch b {
	case 0x90: // DCS
		p.enterDcsEntry()
	case 0x9B: // CSI
		p.enterCsiEntry()
	case 0x9D: // OSC
		p.enterOscString()
	case 0x98, 0x9E, 0x9F: // SOS, PM, APC
		p.state = SosPmApcString
	case 0x84, 0x85, 0x88, 0x8D, 0x8E, 0x8F:
		// 7-bit ESC equivalents (IND, NEL, HTS, RI, SS2, SS3): executed
		// directly rather than dispatched as EscDispatch.
		p.handler.Execute(b)
	default:
		p.handler.Execute(b)
	}
}
