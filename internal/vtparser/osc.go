package vtparser

// OSC grammar: optional decimal command number, then ';', then a
// payload terminated by BEL (0x07) or ST. Bytes before the first ';'
// that are neither digits nor the terminator are tolerated and
// skipped rather than aborting the whole sequence, keeping Parse
// total over arbitrary input (spec.md §8 "parser totality").

func (p *Parser) enterOscString() {
	p.state = OscString
	p.resetOsc()
}

func (p *Parser) resetOsc() {
	p.oscCommand = 0
	p.oscHasCommand = false
	p.oscInPayload = false
	p.oscData = p.oscData[:0]
}

func (p *Parser) stepOsc(b byte) {
	if !p.oscInPayload {
		switch {
		case b >= '0' && b <= '9':
			p.oscHasCommand = true
			p.oscCommand = p.oscCommand*10 + int(b-'0')
			if p.oscCommand > maxParamValue {
				p.oscCommand = maxParamValue
			}
			return
		case b == ';':
			p.oscInPayload = true
			return
		case b == 0x07:
			p.finishOsc()
			p.state = Ground
			return
		case p.eightBit && b == 0x9C:
			p.finishOsc()
			p.state = Ground
			return
		default:
			// stray byte before ';': ignored, keep collecting
			return
		}
	}

	switch {
	case b == 0x07:
		p.finishOsc()
		p.state = Ground
	case p.eightBit && b == 0x9C:
		p.finishOsc()
		p.state = Ground
	default:
		if len(p.oscData) < MaxOscData {
			p.oscData = append(p.oscData, b)
		}
		// beyond MaxOscData: silently truncated, sequence still parses
	}
}

func (p *Parser) finishOsc() {
	cmd := 0
	if p.oscHasCommand {
		cmd = p.oscCommand
	}
	p.handler.OscDispatch(cmd, p.oscData)
	p.resetOsc()
}
