package minishell

import (
	"strings"
	"testing"
	"time"

	"github.com/embedded-tools/minicon/pkg/minipipe"
	"github.com/embedded-tools/minicon/pkg/minireg"
)

func drain(t *testing.T, side *minipipe.PipeSide, want string, timeout time.Duration) string {
	t.Helper()
	deadline := time.Now().Add(timeout)
	var got []byte
	buf := make([]byte, 64)
	for time.Now().Before(deadline) {
		n := side.Receive(buf, 20*time.Millisecond)
		got = append(got, buf[:n]...)
		if strings.Contains(string(got), want) {
			return string(got)
		}
	}
	t.Fatalf("never saw %q in %q", want, string(got))
	return ""
}

func TestEndToEndEchoCommand(t *testing.T) {
	alice, bob := minipipe.Alloc(256, 1)
	defer alice.Free()

	reg := minireg.New()
	reg.Add("echo", 0, func(side *minipipe.PipeSide, args string, ctx interface{}) {
		side.Send([]byte(args), time.Second)
	}, nil)

	sh := New(bob, reg)
	go sh.Run("")
	defer sh.Stop()

	alice.Send([]byte("echo hello\r"), time.Second)
	drain(t, alice, "hello", 2*time.Second)
}

func TestEndToEndParallelUnsafeContention(t *testing.T) {
	appLock.Lock()
	appLock.Unlock() // ensure no leftover hold from another test before we start

	holdAlice, holdBob := minipipe.Alloc(256, 1)
	defer holdAlice.Free()
	quickAlice, quickBob := minipipe.Alloc(256, 1)
	defer quickAlice.Free()

	entered := make(chan struct{})
	release := make(chan struct{})
	reg := minireg.New()
	reg.Add("hold", minireg.ParallelUnsafe, func(side *minipipe.PipeSide, args string, ctx interface{}) {
		close(entered)
		<-release
	}, nil)
	reg.Add("quick", minireg.ParallelUnsafe, func(side *minipipe.PipeSide, args string, ctx interface{}) {
		side.Send([]byte("ran"), time.Second)
	}, nil)

	shHold := New(holdBob, reg)
	go shHold.Run("")
	defer shHold.Stop()

	shQuick := New(quickBob, reg)
	go shQuick.Run("")
	defer shQuick.Stop()

	holdAlice.Send([]byte("hold\r"), time.Second)
	select {
	case <-entered:
	case <-time.After(time.Second):
		t.Fatal("hold command never started")
	}

	quickAlice.Send([]byte("quick\r"), time.Second)
	got := drain(t, quickAlice, "another exclusive command", time.Second)
	if strings.Contains(got, "ran") {
		t.Fatal("quick command ran despite contention")
	}

	close(release)
}

func TestEndToEndHistoryRecallAcrossCommands(t *testing.T) {
	alice, bob := minipipe.Alloc(256, 1)
	defer alice.Free()

	reg := minireg.New()
	reg.Add("ls", 0, func(side *minipipe.PipeSide, args string, ctx interface{}) {}, nil)
	reg.Add("history", 0, func(side *minipipe.PipeSide, args string, ctx interface{}) {}, nil)

	sh := New(bob, reg)
	go sh.Run("")
	defer sh.Stop()

	alice.Send([]byte("ls\r"), time.Second)
	time.Sleep(50 * time.Millisecond)
	alice.Send([]byte("history\r"), time.Second)
	time.Sleep(50 * time.Millisecond)

	alice.Send([]byte("\x1b[A"), time.Second) // Up
	time.Sleep(20 * time.Millisecond)
	if got := sh.ed.selected(); got != "history" {
		t.Fatalf("first Up: got %q, want history", got)
	}

	alice.Send([]byte("\x1b[A"), time.Second) // Up
	time.Sleep(20 * time.Millisecond)
	if got := sh.ed.selected(); got != "ls" {
		t.Fatalf("second Up: got %q, want ls", got)
	}
}

func TestShouldStopOnCtrlC(t *testing.T) {
	alice, bob := minipipe.Alloc(64, 1)
	defer alice.Free()
	defer bob.Free()

	alice.Send([]byte("\x03"), time.Second)
	time.Sleep(10 * time.Millisecond)

	if !ShouldStop(bob) {
		t.Fatal("expected ShouldStop to observe ETX")
	}
}

func TestShouldStopOnBrokenPeer(t *testing.T) {
	alice, bob := minipipe.Alloc(64, 1)
	defer bob.Free()
	alice.Free()

	if !ShouldStop(bob) {
		t.Fatal("expected ShouldStop to observe broken peer")
	}
}

func TestShouldStopPushesBackNonETX(t *testing.T) {
	alice, bob := minipipe.Alloc(64, 1)
	defer alice.Free()
	defer bob.Free()

	alice.Send([]byte("x"), time.Second)
	time.Sleep(10 * time.Millisecond)

	if ShouldStop(bob) {
		t.Fatal("should not stop on a non-ETX byte")
	}

	buf := make([]byte, 1)
	if n := bob.Receive(buf, time.Second); n != 1 || buf[0] != 'x' {
		t.Fatalf("byte was consumed by should_stop's peek: got %q, n=%d", buf[:n], n)
	}
}
