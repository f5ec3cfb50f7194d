package minilog

import (
	"bytes"
	"strings"
	"testing"
)

func TestFilter(t *testing.T) {
	sink1 := new(bytes.Buffer)

	AddLogger("sink1Level", sink1, DEBUG, false)
	defer DelLogger("sink1Level")

	testString := "test 123"
	testString2 := "test 456"

	Debugln(testString)

	if s1 := sink1.String(); !strings.Contains(s1, testString) {
		t.Fatalf("sink1 got: %q", s1)
	}

	if err := AddFilter("sink1Level", "minilog_test"); err != nil {
		t.Fatal(err)
	}

	Debugln(testString2)

	if s1 := sink1.String(); strings.Contains(s1, testString2) {
		t.Fatalf("sink1 got: %q", s1)
	}

	if err := DelFilter("sink1Level", "minilog_test"); err != nil {
		t.Fatal(err)
	}

	Debugln(testString2)

	if s1 := sink1.String(); !strings.Contains(s1, testString2) {
		t.Fatalf("sink1 got: %q", s1)
	}
}

func TestMultilog(t *testing.T) {
	sink1 := new(bytes.Buffer)
	sink2 := new(bytes.Buffer)

	AddLogger("sink1", sink1, DEBUG, false)
	AddLogger("sink2", sink2, WARN, false)
	defer DelLogger("sink1")
	defer DelLogger("sink2")

	Debugln("only sink1 should see this")
	Warnln("both should see this")

	if !strings.Contains(sink1.String(), "both should see this") {
		t.Fatal("sink1 missed warn")
	}
	if strings.Contains(sink2.String(), "only sink1 should see this") {
		t.Fatal("sink2 saw a debug message below its level")
	}
	if !strings.Contains(sink2.String(), "both should see this") {
		t.Fatal("sink2 missed warn")
	}
}

func TestWillLog(t *testing.T) {
	for _, name := range Loggers() {
		DelLogger(name)
	}

	if WillLog(ERROR) {
		t.Fatal("expected no loggers to be registered")
	}

	AddLogger("errsink", new(bytes.Buffer), ERROR, false)
	defer DelLogger("errsink")

	if WillLog(DEBUG) {
		t.Fatal("debug should be below errsink's level")
	}
	if !WillLog(ERROR) {
		t.Fatal("error should reach errsink")
	}
}
