package minishell

import (
	"io"

	"github.com/embedded-tools/minicon/pkg/minikey"
)

// Prompt is the shell's fixed prompt literal.
const Prompt = ">: "

const (
	keyETX = 0x03 // Ctrl-C
	keyFF  = 0x0C // Ctrl-L
	keyCR  = 0x0D
	keyBS  = 0x08
	keyDEL = 0x7F
	keyETB = 0x17 // Ctrl-W
)

type charClass int

const (
	classWord charClass = iota
	classSpace
	classOther
)

func classOf(b byte) charClass {
	switch {
	case b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9'):
		return classWord
	case b == ' ':
		return classSpace
	default:
		return classOther
	}
}

// skipRun returns the index reached by moving one step in dir and
// continuing while the character crossed has the same class as the
// character at the starting side of pos, stopping at the first class
// change or at the string's bounds.
func skipRun(s string, pos, dir int) int {
	n := len(s)
	if dir < 0 {
		if pos <= 0 {
			return 0
		}
		class := classOf(s[pos-1])
		p := pos
		for p > 0 && classOf(s[p-1]) == class {
			p--
		}
		return p
	}

	if pos >= n {
		return n
	}
	class := classOf(s[pos])
	p := pos
	for p < n && classOf(s[p]) == class {
		p++
	}
	return p
}

// editor is the line editor: owns the history, the cursor column within the
// selected entry, and the ANSI output stream it redraws through.
type editor struct {
	history   *history
	linePos   int
	out       io.Writer
	promptLen int
}

func newEditor(out io.Writer) *editor {
	return &editor{
		history:   newHistory(),
		out:       out,
		promptLen: len(Prompt),
	}
}

func (e *editor) materialize() {
	e.history.materialize()
}

func (e *editor) selected() string {
	return e.history.selected()
}

// printPrompt writes the bare prompt, used both at shell startup and after
// a command finishes.
func (e *editor) printPrompt() {
	writeStr(e.out, Prompt)
}

// feed advances the editor by one key-combo event. It returns the raw
// (untrimmed) submitted line and true on CR; otherwise ("", false).
func (e *editor) feed(ev minikey.Event) (string, bool) {
	if !ev.IsNamed() {
		switch byte(ev.Key) {
		case keyETX:
			e.ctrlC()
		case keyFF:
			e.ctrlL()
		case keyCR:
			return e.submit(), true
		case keyBS, keyDEL:
			e.backspace()
		case keyETB:
			e.ctrlW()
		default:
			if ev.Key >= 0x20 && ev.Key <= 0x7E {
				e.insertPrintable(byte(ev.Key))
			}
		}
		return "", false
	}

	ctrl := ev.Modifiers&minikey.ModCtrl != 0
	switch minikey.KeyCode(ev.Key) {
	case minikey.KeyUp:
		e.history.up()
		e.redrawSelected()
	case minikey.KeyDown:
		e.history.down()
		e.redrawSelected()
	case minikey.KeyLeft:
		if ctrl {
			e.moveTo(skipRun(e.selected(), e.linePos, -1))
		} else {
			e.moveTo(clamp(e.linePos-1, 0, len(e.selected())))
		}
	case minikey.KeyRight:
		if ctrl {
			e.moveTo(skipRun(e.selected(), e.linePos, 1))
		} else {
			e.moveTo(clamp(e.linePos+1, 0, len(e.selected())))
		}
	case minikey.KeyHome:
		e.moveTo(0)
	case minikey.KeyEnd:
		e.moveTo(len(e.selected()))
	}
	return "", false
}

func (e *editor) moveTo(pos int) {
	e.linePos = pos
	cursorAbsoluteColumn(e.out, e.promptLen+e.linePos+1)
}

func (e *editor) redrawSelected() {
	s := e.selected()
	cursorAbsoluteColumn(e.out, e.promptLen+1)
	eraseToEndOfLine(e.out)
	writeStr(e.out, s)
	e.linePos = len(s)
}

func (e *editor) redrawTailFrom(pos int) {
	s := e.selected()
	cursorAbsoluteColumn(e.out, e.promptLen+pos+1)
	eraseToEndOfLine(e.out)
	writeStr(e.out, s[pos:])
	cursorAbsoluteColumn(e.out, e.promptLen+e.linePos+1)
}

func (e *editor) ctrlC() {
	e.history.pos = 0
	e.history.entries[0] = ""
	e.linePos = 0
	writeStr(e.out, "^C\r\n")
	e.printPrompt()
}

func (e *editor) ctrlL() {
	eraseDisplayAndScrollback(e.out)
	cursorHome(e.out)
	writeStr(e.out, Prompt)
	writeStr(e.out, e.selected())
	cursorAbsoluteColumn(e.out, e.promptLen+e.linePos+1)
}

func (e *editor) submit() string {
	raw := e.selected()
	e.history.submit()
	e.linePos = 0
	writeStr(e.out, "\r\n")
	return raw
}

func (e *editor) backspace() {
	e.materialize()
	if e.linePos == 0 {
		bell(e.out)
		return
	}
	s := e.selected()
	e.history.entries[0] = s[:e.linePos-1] + s[e.linePos:]
	e.linePos--
	e.redrawTailFrom(e.linePos)
}

// ctrlW deletes the word (plus any whitespace immediately preceding the
// cursor) behind the cursor: first the run of trailing whitespace, then
// the run before it, so that "foo bar " at the end deletes "bar " rather
// than just the trailing space skip_run alone would remove.
func (e *editor) ctrlW() {
	e.materialize()
	s := e.selected()
	pos := e.linePos

	newPos := pos
	for newPos > 0 && classOf(s[newPos-1]) == classSpace {
		newPos--
	}
	if newPos > 0 {
		newPos = skipRun(s, newPos, -1)
	}

	e.history.entries[0] = s[:newPos] + s[pos:]
	e.linePos = newPos
	e.redrawTailFrom(e.linePos)
}

func (e *editor) insertPrintable(c byte) {
	e.materialize()
	s := e.selected()
	if e.linePos == len(s) {
		e.history.entries[0] = s + string(c)
		writeStr(e.out, string(c))
		e.linePos++
		return
	}

	insertModeOn(e.out)
	writeStr(e.out, string(c))
	insertModeOff(e.out)
	e.history.entries[0] = s[:e.linePos] + string(c) + s[e.linePos:]
	e.linePos++
}
