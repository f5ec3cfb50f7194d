// Package minishell composes the ANSI parser, line editor, and command
// registry into the interactive shell loop: a single cooperative loop per
// pipe side that edits a line, dispatches recognized commands to worker
// goroutines, and redraws the prompt.
package minishell

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/embedded-tools/minicon/pkg/minikey"
	log "github.com/embedded-tools/minicon/pkg/minilog"
	"github.com/embedded-tools/minicon/pkg/minipipe"
	"github.com/embedded-tools/minicon/pkg/minireg"
)

// readPoll bounds how long one iteration of the loop blocks waiting for a
// byte before re-checking whether the pipe has gone Broken. It stands in
// for the reference loop's periodic ~1-tick stop-check callback.
const readPoll = 100 * time.Millisecond

// appLock is the process-wide application lock ParallelUnsafe commands
// contend for; it is a single global resource regardless of how many
// shells are running, matching the reference firmware's one-device model.
var appLock sync.Mutex

// Shell is one interactive session: a pipe side, its parser/editor state,
// and the registry it dispatches commands against.
type Shell struct {
	side *minipipe.PipeSide
	out  minipipe.WriterSide

	parser *minikey.Parser
	ed     *editor
	reg    *minireg.Registry

	stopped atomic.Bool
}

// New constructs a shell bound to side, using reg to resolve submitted
// commands. It does not start running until Run is called.
func New(side *minipipe.PipeSide, reg *minireg.Registry) *Shell {
	_, w := side.Stdio()
	return &Shell{
		side:   side,
		out:    w,
		parser: minikey.NewParser(),
		ed:     newEditor(w),
		reg:    reg,
	}
}

// Run prints the motd and prompt, then services the pipe until it goes
// Broken or Stop is called. It blocks the calling goroutine.
func (s *Shell) Run(motd string) {
	if motd != "" {
		writeStr(s.out, motd)
		writeStr(s.out, "\r\n")
	}
	s.ed.printPrompt()

	buf := make([]byte, 1)
	for !s.stopped.Load() {
		if s.side.State() == minipipe.StateBroken {
			return
		}

		n := s.side.Receive(buf, readPoll)
		if n == 0 {
			continue
		}

		ev, ok := s.parser.Feed(buf[0])
		if !ok {
			continue
		}

		raw, submitted := s.ed.feed(ev)
		if submitted {
			s.execute(raw)
			s.ed.printPrompt()
		}
	}
}

// Stop ends the loop after its current iteration.
func (s *Shell) Stop() {
	s.stopped.Store(true)
}

func parseCommand(raw string) (name, args string) {
	trimmed := strings.TrimLeft(raw, " \t")
	if trimmed == "" {
		return "", ""
	}
	idx := strings.IndexByte(trimmed, ' ')
	if idx < 0 {
		return trimmed, ""
	}
	return trimmed[:idx], trimmed[idx+1:]
}

func (s *Shell) printError(msg string) {
	sgrRed(s.out)
	writeStr(s.out, msg)
	sgrReset(s.out)
	writeStr(s.out, "\r\n")
}

// execute implements the command-execution contract of 4.5: parse, look
// up, optionally take the global application lock, spawn and join a
// worker, release the lock.
func (s *Shell) execute(raw string) {
	name, args := parseCommand(raw)
	if name == "" {
		return
	}

	entry, ok := s.reg.Get(normalizeLookup(name))
	if !ok {
		s.printError("command not found: " + name)
		return
	}

	if entry.Flags&minireg.ParallelUnsafe != 0 {
		if !appLock.TryLock() {
			s.printError("another exclusive command is already running")
			return
		}
		defer appLock.Unlock()
	}

	// Go has no per-goroutine stdio to rebind, so the pipe side is simply
	// handed to the callback directly; DetachedStdio commands are free to
	// ignore it and manage their own I/O (see minireg.DetachedStdio).
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Error("minishell: command %q panicked: %v", name, r)
			}
		}()
		entry.Callback(s.side, args, entry.Context)
	}()
	wg.Wait()
}

// normalizeLookup applies minireg's own normalization to a looked-up name
// (the registry only normalizes on Add). parseCommand has already split at
// the first space, so a command registered with interior spaces is reached
// only by typing its underscore form.
func normalizeLookup(name string) string {
	return strings.Join(strings.Fields(name), "_")
}

// ShouldStop implements the should_stop(pipe_side) cooperative
// cancellation check a running command polls: Broken peer means stop;
// otherwise peek one byte and treat ETX (Ctrl-C) as a stop request,
// pushing anything else back unread.
func ShouldStop(side *minipipe.PipeSide) bool {
	if side.State() == minipipe.StateBroken {
		return true
	}

	var b [1]byte
	if side.Peek(b[:]) == 0 {
		return false
	}
	if b[0] != keyETX {
		return false
	}

	// Consume the ETX so it isn't re-delivered as ordinary input once the
	// command returns control to the shell loop.
	side.Receive(b[:], 0)
	return true
}
