package vtparser

// Shared CSI/DCS parameter, intermediate, and marker accumulation.
// CSI and DCS use an identical entry/param/intermediate grammar
// (spec.md §4.1: "same parameter/intermediate grammar as CSI"); only
// the final dispatch target (CsiDispatch vs DcsHook) and the state
// reached after the final byte (Ground vs DcsPassthrough) differ.

func (p *Parser) resetParams() {
	p.paramsLen = 0
	p.curParam = 0
	p.hasParamBytes = false
}

func (p *Parser) resetIntermediates() {
	p.intermediatesLen = 0
}

func (p *Parser) commitParam() {
	if p.paramsLen < MaxParams {
		p.params[p.paramsLen] = p.curParam
		p.paramsLen++
	}
	p.curParam = 0
}

// finalizeTrailingParam commits the field currently being typed (if
// any param byte was ever seen for this sequence), so that e.g. a
// trailing empty field after ';' still produces a zero-valued param.
func (p *Parser) finalizeTrailingParam() {
	if p.hasParamBytes {
		p.commitParam()
	}
}

func (p *Parser) enterCsiEntry() {
	p.state = CsiEntry
	p.resetParams()
	p.resetIntermediates()
	p.private = 0
}

func (p *Parser) enterDcsEntry() {
	p.state = DcsEntry
	p.resetParams()
	p.resetIntermediates()
	p.private = 0
	p.dcsHooked = false
}

// stepCsiOrDcsHeader processes one byte while in one of the CSI/DCS
// entry, param, or intermediate states.
func (p *Parser) stepCsiOrDcsHeader(b byte, isDCS bool) {
	atEntry := p.state == CsiEntry || p.state == DcsEntry
	atIntermediate := p.state == CsiIntermediate || p.state == DcsIntermediate

	if atEntry {
		if b == 0x3A { // ':' as the very first byte -> Ignore
			p.enterIgnore(isDCS)
			return
		}
		if b >= 0x3C && b <= 0x3F { // private marker
			p.private = b
			p.enterParamState(isDCS)
			return
		}
	} else if b >= 0x3C && b <= 0x3F {
		// A second private-marker byte anywhere after entry -> Ignore.
		p.enterIgnore(isDCS)
		return
	}

	if atIntermediate && b >= 0x30 && b <= 0x3F {
		// Digit, ';', ':', or a marker byte following an intermediate
		// -> Ignore (intermediates must be the last thing before the
		// final byte).
		p.enterIgnore(isDCS)
		return
	}

	switch {
	case b == 0x00 || b == 0x7F:
		// ignored
	case b <= 0x1F:
		p.handler.Execute(b)
	case b >= 0x30 && b <= 0x39: // digit
		p.hasParamBytes = true
		if p.paramsLen < MaxParams {
			p.curParam = p.curParam*10 + int(b-'0')
			if p.curParam > maxParamValue {
				p.curParam = maxParamValue
			}
		}
		p.enterParamState(isDCS)
	case b == 0x3B || b == 0x3A: // ';' or ':' (flattened, spec.md §9 open question)
		p.hasParamBytes = true
		p.commitParam()
		p.enterParamState(isDCS)
	case b >= 0x20 && b <= 0x2F: // intermediate
		if p.intermediatesLen < MaxIntermediate {
			p.intermediates[p.intermediatesLen] = b
			p.intermediatesLen++
		}
		p.enterIntermediateState(isDCS)
	case b >= 0x40 && b <= 0x7E: // final
		p.dispatchHeader(b, isDCS)
	default:
		// stray byte, stay put
	}
}

func (p *Parser) enterParamState(isDCS bool) {
	if isDCS {
		p.state = DcsParam
	} else {
		p.state = CsiParam
	}
}

func (p *Parser) enterIntermediateState(isDCS bool) {
	if isDCS {
		p.state = DcsIntermediate
	} else {
		p.state = CsiIntermediate
	}
}

func (p *Parser) enterIgnore(isDCS bool) {
	if isDCS {
		p.state = DcsIgnore
	} else {
		p.state = CsiIgnore
	}
}

func (p *Parser) dispatchHeader(final byte, isDCS bool) {
	p.finalizeTrailingParam()
	interm := byte(0)
	if p.intermediatesLen > 0 {
		interm = p.intermediates[0]
	}
	params := p.params[:p.paramsLen]
	private := p.private

	if isDCS {
		p.handler.DcsHook(final, interm, params)
		p.dcsHooked = true
		p.state = DcsPassthrough
	} else {
		p.handler.CsiDispatch(final, private, interm, params)
		p.state = Ground
	}
	p.resetParams()
	p.resetIntermediates()
	p.private = 0
}
