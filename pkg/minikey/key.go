// Package minikey implements the incremental ANSI escape-sequence parser
// that turns raw bytes from a pipe into key-combo events: a byte-at-a-time
// state machine with no internal buffering, so it can sit directly on a
// shell's read loop.
package minikey

// KeyCode names either a literal byte or one of the named navigation keys
// produced by a recognized ANSI mnemonic.
type KeyCode int

const (
	KeyUp KeyCode = -(iota + 1)
	KeyDown
	KeyRight
	KeyLeft
	KeyHome
	KeyEnd
	KeyUnrecognized
)

// Modifier is a bitmask following the xterm convention after the parser's
// own "(byte - '0') & ~1" normalization: bit 1 (Alt), bit 2 (Ctrl), bit 3
// (Meta). Shift (bit 0) is always cleared by that normalization and never
// appears here.
type Modifier int

const (
	ModNone Modifier = 0
	ModAlt  Modifier = 1 << 1
	ModCtrl Modifier = 1 << 2
	ModMeta Modifier = 1 << 3
)

// Event is the parser's output unit: a byte (as a rune-sized int, so
// ordinary printable input and control bytes fit the same field as a
// KeyCode) paired with whatever modifiers applied to it.
type Event struct {
	Modifiers Modifier
	Key       int // either a plain byte value, or a negative KeyCode
}

// IsNamed reports whether Key holds one of the named KeyCode values
// (Up/Down/Left/Right/Home/End/Unrecognized) rather than a literal byte.
func (e Event) IsNamed() bool {
	return e.Key < 0
}

func keyFromMnemonic(c byte) int {
	switch c {
	case 'A':
		return int(KeyUp)
	case 'B':
		return int(KeyDown)
	case 'C':
		return int(KeyRight)
	case 'D':
		return int(KeyLeft)
	case 'F':
		return int(KeyEnd)
	case 'H':
		return int(KeyHome)
	default:
		return int(KeyUnrecognized)
	}
}

const esc byte = 0x1b

type state int

const (
	stateInitial state = iota
	stateEsc
	stateEscBracket
	stateEscBracket1
	stateEscBracket1Semi
	stateEscBracket1SemiMod
)

// Parser is a pure transducer: bytes in, key-combo events out, no buffering
// of its own. A zero-value Parser starts in the Initial state and is ready
// to use.
type Parser struct {
	state     state
	modifiers Modifier
}

// NewParser returns a parser ready to feed.
func NewParser() *Parser {
	return &Parser{}
}

// Feed advances the parser by one byte. It returns an Event and true once a
// full key combo has been recognized; otherwise it returns the zero Event
// and false, meaning the byte was consumed into the parser's internal
// state and more bytes are needed.
func (p *Parser) Feed(c byte) (Event, bool) {
	switch p.state {
	case stateInitial:
		if c != esc {
			return Event{Modifiers: ModNone, Key: int(c)}, true
		}
		p.state = stateEsc
		return Event{}, false

	case stateEsc:
		if c == esc {
			p.state = stateInitial
			return Event{Modifiers: ModNone, Key: int(c)}, true
		}
		if c != '[' {
			p.state = stateInitial
			return Event{Modifiers: ModAlt, Key: int(c)}, true
		}
		p.state = stateEscBracket
		return Event{}, false

	case stateEscBracket:
		if c != '1' {
			p.state = stateInitial
			return Event{Modifiers: ModNone, Key: keyFromMnemonic(c)}, true
		}
		p.state = stateEscBracket1
		return Event{}, false

	case stateEscBracket1:
		if c != ';' {
			p.state = stateInitial
			return Event{Key: int(KeyUnrecognized)}, true
		}
		p.state = stateEscBracket1Semi
		return Event{}, false

	case stateEscBracket1Semi:
		p.modifiers = Modifier((c - '0') &^ 1)
		p.state = stateEscBracket1SemiMod
		return Event{}, false

	case stateEscBracket1SemiMod:
		p.state = stateInitial
		return Event{Modifiers: p.modifiers, Key: keyFromMnemonic(c)}, true
	}

	p.state = stateInitial
	return Event{}, false
}

// Reset returns the parser to its Initial state, discarding any in-progress
// escape sequence. The shell loop does not call it; its parser carries any
// half-typed escape across Ctrl-C and fresh prompts.
func (p *Parser) Reset() {
	p.state = stateInitial
	p.modifiers = ModNone
}
