// Package vtparser implements a byte-oriented VT/ANSI escape-sequence
// parser: a DEC-like state machine over the C0/C1, CSI, OSC, DCS, and
// APC/PM/SOS grammars plus inline UTF-8 decoding. It is pure and
// single-threaded — callers serialize access to a Parser and supply a
// Handler that receives dispatch callbacks synchronously during Parse.
//
// The state set and byte classes follow the ECMA-48/DEC VT500-series
// transition tables referenced by spec.md §4.1: Ground, Escape,
// EscapeIntermediate, CsiEntry, CsiParam, CsiIntermediate, CsiIgnore,
// OscString, DcsEntry, DcsParam, DcsIntermediate, DcsPassthrough,
// DcsIgnore, SosPmApcString.
package vtparser

// State is one of the parser's DEC-like states.
type State int

const (
	Ground State = iota
	Escape
	EscapeIntermediate
	CsiEntry
	CsiParam
	CsiIntermediate
	CsiIgnore
	OscString
	DcsEntry
	DcsParam
	DcsIntermediate
	DcsPassthrough
	DcsIgnore
	SosPmApcString
)

func (s State) String() string {
	switch s {
	case Ground:
		return "Ground"
	case Escape:
		return "Escape"
	case EscapeIntermediate:
		return "EscapeIntermediate"
	case CsiEntry:
		return "CsiEntry"
	case CsiParam:
		return "CsiParam"
	case CsiIntermediate:
		return "CsiIntermediate"
	case CsiIgnore:
		return "CsiIgnore"
	case OscString:
		return "OscString"
	case DcsEntry:
		return "DcsEntry"
	case DcsParam:
		return "DcsParam"
	case DcsIntermediate:
		return "DcsIntermediate"
	case DcsPassthrough:
		return "DcsPassthrough"
	case DcsIgnore:
		return "DcsIgnore"
	case SosPmApcString:
		return "SosPmApcString"
	default:
		return "Unknown"
	}
}

// Limits on buffered sequence data (spec.md §4.1, §9): at least 16
// params, at least 2 intermediate bytes, at least 4096 bytes of OSC
// payload. Overflow is silently dropped, the sequence still dispatches.
const (
	MaxParams       = 16
	MaxIntermediate = 2
	MaxOscData      = 4096
	maxParamValue   = 1<<31 - 1
)

// Handler receives dispatch callbacks from Parse. Implementations must
// not call back into the Parser that is dispatching to them.
type Handler interface {
	// Print is called for one decoded printable character (ASCII or
	// decoded UTF-8 codepoint).
	Print(r rune)
	// Execute is called for one C0 or C1 control byte.
	Execute(b byte)
	// EscDispatch is called for a completed non-CSI/OSC/DCS escape
	// sequence. intermediate is 0 if none was present.
	EscDispatch(final byte, intermediate byte)
	// CsiDispatch is called for a completed CSI sequence. private is
	// the marker byte (one of '<','=','>','?') or 0. intermediate is
	// an accumulated intermediate byte or 0. params is a fixed-size
	// slice (len ≤ MaxParams) valid only for the duration of the call.
	CsiDispatch(final byte, private byte, intermediate byte, params []int)
	// OscDispatch is called for a completed OSC sequence. data is
	// valid only for the duration of the call.
	OscDispatch(command int, data []byte)
	// DcsHook begins a DCS frame; DcsPut streams its payload one byte
	// at a time; DcsUnhook ends it.
	DcsHook(final byte, intermediate byte, params []int)
	DcsPut(b byte)
	DcsUnhook()
}

// Parser is a DEC-like VT/ANSI escape-sequence state machine.
type Parser struct {
	handler Handler
	state   State

	// 8-bit C1 control recognition (spec.md §4.1).
	eightBit bool

	// CSI/DCS param accumulation, shared by both grammars.
	params        [MaxParams]int
	paramsLen     int
	curParam      int
	hasParamBytes bool
	private       byte

	// CSI/DCS/ESC intermediate bytes.
	intermediates    [MaxIntermediate]byte
	intermediatesLen int

	// OSC accumulation.
	oscCommand    int
	oscHasCommand bool
	oscInPayload  bool
	oscData       []byte

	// Whether DcsHook was called for the in-flight DCS (so DcsUnhook is
	// only called to match a real hook).
	dcsHooked bool

	// String-terminator handling: ESC seen while inside a string state.
	escFromString bool
	stringState   State // which string state the pending ESC interrupted

	// Incremental UTF-8 decode, active only in Ground.
	utf8Needed int
	utf8Have   int
	utf8CP     rune
	utf8Lower  rune
}

// Option configures a new Parser.
type Option func(*Parser)

// WithEightBitControls enables recognition of 0x80-0x9F as C1 control
// introducers/equivalents in Ground. Disabled by default, matching
// typical UTF-8 terminal usage (spec.md §4.1).
func WithEightBitControls(enabled bool) Option {
	return func(p *Parser) { p.eightBit = enabled }
}

// New creates a Parser dispatching into handler.
func New(handler Handler, opts ...Option) *Parser {
	p := &Parser{handler: handler, oscData: make([]byte, 0, MaxOscData)}
	for _, o := range opts {
		o(p)
	}
	return p
}

// State returns the parser's current state, mostly useful for tests.
func (p *Parser) State() State {
	return p.state
}

// Reset returns the parser to Ground, clearing all intermediate, param,
// and string buffers, as if newly constructed.
func (p *Parser) Reset() {
	p.state = Ground
	p.resetParams()
	p.resetIntermediates()
	p.private = 0
	p.resetOsc()
	p.dcsHooked = false
	p.escFromString = false
	p.utf8Needed = 0
}

// Parse advances the state machine by each byte of b in order,
// invoking handler dispatch methods synchronously. Parse never panics
// and always terminates in a legal state (spec.md §8 "parser
// totality"). The result is identical regardless of how b is chunked
// across multiple Parse calls (spec.md §8 "parser chunking").
func (p *Parser) Parse(b []byte) {
	for _, c := range b {
		p.feedByte(c)
	}
}

func (p *Parser) feedByte(b byte) {
	if p.escFromString {
		p.escFromString = false
		if b == 0x5C { // '\' — ST, terminate the string normally.
			p.terminateString()
			return
		}
		// Any other byte: abort the string without dispatch and
		// continue processing b as a fresh Escape-state byte (the
		// state is already Escape).
	} else {
		switch b {
		case 0x18, 0x1A: // CAN, SUB
			if p.state == Ground {
				p.handler.Execute(b)
			} else {
				p.abortSequence()
				p.state = Ground
			}
			return
		case 0x1B: // ESC
			switch p.state {
			case OscString, DcsPassthrough, DcsIgnore, SosPmApcString:
				p.escFromString = true
				p.stringState = p.state
				p.state = Escape
			default:
				p.abortSequence()
				p.state = Escape
				p.resetParams()
				p.resetIntermediates()
				p.private = 0
			}
			return
		}
	}

	switch p.state {
	case Ground:
		p.stepGround(b)
	case Escape, EscapeIntermediate:
		p.stepEscape(b)
	case CsiEntry, CsiParam, CsiIntermediate:
		p.stepCsi(b)
	case CsiIgnore:
		p.stepCsiIgnore(b)
	case OscString:
		p.stepOsc(b)
	case DcsEntry, DcsParam, DcsIntermediate:
		p.stepDcsHeader(b)
	case DcsPassthrough:
		p.stepDcsPassthrough(b)
	case DcsIgnore:
		p.stepDcsIgnore(b)
	case SosPmApcString:
		// Collected and discarded. The 7-bit terminator (ESC \) is
		// handled by the universal ESC check above; the 8-bit form is
		// checked here since there is no other per-byte processing.
		if p.eightBit && b == 0x9C {
			p.state = Ground
		}
	}
}

// abortSequence cleans up any in-flight DCS hook when a sequence is
// discarded by CAN/SUB or a resetting ESC. No dispatch is emitted.
func (p *Parser) abortSequence() {
	p.dcsHooked = false
}

// terminateString ends the string state that escFromString was
// remembering, by way of ST (ESC \), with the normal dispatch for that
// string kind.
func (p *Parser) terminateString() {
	switch p.stringState {
	case OscString:
		p.finishOsc()
	case DcsPassthrough:
		if p.dcsHooked {
			p.handler.DcsUnhook()
			p.dcsHooked = false
		}
	case DcsIgnore, SosPmApcString:
		// no dispatch
	}
	p.state = Ground
}
