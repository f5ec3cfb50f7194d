package minikey

import "testing"

func feedAll(t *testing.T, p *Parser, bytes ...byte) (Event, bool) {
	t.Helper()
	var ev Event
	var done bool
	for _, b := range bytes {
		ev, done = p.Feed(b)
	}
	return ev, done
}

func TestPlainByte(t *testing.T) {
	p := NewParser()
	ev, done := p.Feed('a')
	if !done || ev.Modifiers != ModNone || ev.Key != int('a') {
		t.Fatalf("got %+v, done=%v", ev, done)
	}
}

func TestEscAloneProducesNothing(t *testing.T) {
	p := NewParser()
	_, done := p.Feed(esc)
	if done {
		t.Fatal("single ESC should not complete an event")
	}
}

func TestEscEscIsLiteralEsc(t *testing.T) {
	p := NewParser()
	p.Feed(esc)
	ev, done := p.Feed(esc)
	if !done || ev.Modifiers != ModNone || ev.Key != int(esc) {
		t.Fatalf("got %+v, done=%v", ev, done)
	}
}

func TestEscByteIsAlt(t *testing.T) {
	p := NewParser()
	ev, done := feedAll(t, p, esc, 'x')
	if !done || ev.Modifiers != ModAlt || ev.Key != int('x') {
		t.Fatalf("got %+v, done=%v", ev, done)
	}
}

func TestArrowUp(t *testing.T) {
	p := NewParser()
	ev, done := feedAll(t, p, esc, '[', 'A')
	if !done || ev.Modifiers != ModNone || ev.Key != int(KeyUp) {
		t.Fatalf("got %+v, done=%v", ev, done)
	}
}

func TestCtrlRight(t *testing.T) {
	p := NewParser()
	ev, done := feedAll(t, p, esc, '[', '1', ';', '5', 'C')
	if !done {
		t.Fatal("not done")
	}
	if ev.Modifiers != ModCtrl || ev.Key != int(KeyRight) {
		t.Fatalf("got %+v", ev)
	}
}

func TestAltLeft(t *testing.T) {
	p := NewParser()
	ev, done := feedAll(t, p, esc, '[', '1', ';', '3', 'D')
	if !done {
		t.Fatal("not done")
	}
	if ev.Modifiers != ModAlt || ev.Key != int(KeyLeft) {
		t.Fatalf("got %+v", ev)
	}
}

func TestUnrecognizedModifiedKey(t *testing.T) {
	p := NewParser()
	ev, done := feedAll(t, p, esc, '[', '1', 'q')
	if !done || ev.Key != int(KeyUnrecognized) {
		t.Fatalf("got %+v, done=%v", ev, done)
	}
}

func TestUnrecognizedMissingSemicolon(t *testing.T) {
	p := NewParser()
	ev, done := feedAll(t, p, esc, '[', '1', 'z')
	if !done || ev.Key != int(KeyUnrecognized) {
		t.Fatalf("got %+v, done=%v", ev, done)
	}
}

func TestUnrecognizedMnemonic(t *testing.T) {
	p := NewParser()
	ev, done := feedAll(t, p, esc, '[', 'Z')
	if !done || ev.Modifiers != ModNone || ev.Key != int(KeyUnrecognized) {
		t.Fatalf("got %+v, done=%v", ev, done)
	}
}

func TestParserResumesAfterCompletedEvent(t *testing.T) {
	p := NewParser()
	feedAll(t, p, esc, '[', 'A')
	ev, done := p.Feed('q')
	if !done || ev.Key != int('q') {
		t.Fatalf("parser did not return to Initial: got %+v, done=%v", ev, done)
	}
}

func TestReset(t *testing.T) {
	p := NewParser()
	p.Feed(esc)
	p.Feed('[')
	p.Reset()
	ev, done := p.Feed('q')
	if !done || ev.Key != int('q') {
		t.Fatalf("reset did not clear in-progress escape: got %+v, done=%v", ev, done)
	}
}

func TestHomeAndEndMnemonics(t *testing.T) {
	p := NewParser()
	ev, _ := feedAll(t, p, esc, '[', 'H')
	if ev.Key != int(KeyHome) {
		t.Fatalf("H: got %+v", ev)
	}

	p2 := NewParser()
	ev2, _ := feedAll(t, p2, esc, '[', 'F')
	if ev2.Key != int(KeyEnd) {
		t.Fatalf("F: got %+v", ev2)
	}
}
