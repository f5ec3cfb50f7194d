// Package demo registers a small set of example commands used by the
// cmd/ binaries to exercise the shell end-to-end: echo, uptime, and a
// DetachedStdio "sh" command that bridges a real pty-backed subprocess
// through the pipe.
package demo

import (
	"fmt"
	"io"
	"os/exec"
	"time"

	"github.com/kr/pty"

	log "github.com/embedded-tools/minicon/pkg/minilog"
	"github.com/embedded-tools/minicon/pkg/minipipe"
	"github.com/embedded-tools/minicon/pkg/minireg"
	"github.com/embedded-tools/minicon/pkg/minishell"
)

var start = time.Now()

// Register populates reg with the demo command set.
func Register(reg *minireg.Registry) {
	reg.Add("echo", 0, cmdEcho, nil)
	reg.Add("uptime", 0, cmdUptime, nil)
	reg.Add("sh", minireg.ParallelUnsafe|minireg.DetachedStdio, cmdShell, nil)
}

func cmdEcho(side *minipipe.PipeSide, args string, ctx interface{}) {
	_, w := side.Stdio()
	io.WriteString(w, args)
	io.WriteString(w, "\r\n")
}

func cmdUptime(side *minipipe.PipeSide, args string, ctx interface{}) {
	_, w := side.Stdio()
	fmt.Fprintf(w, "up %s\r\n", time.Since(start).Round(time.Second))
}

// cmdShell spawns /bin/sh under a pty and bridges it to the pipe side
// directly, rather than through the shell's own stdio rebinding -- the
// reason it is registered DetachedStdio: it owns its own I/O loop instead
// of writing through the shell's io.Writer like the other demo commands.
func cmdShell(side *minipipe.PipeSide, args string, ctx interface{}) {
	cmd := exec.Command("/bin/sh")
	f, err := pty.Start(cmd)
	if err != nil {
		log.Error("demo: pty.Start: %v", err)
		return
	}
	defer f.Close()

	r, w := side.Stdio()

	done := make(chan struct{})
	go func() {
		io.Copy(w, f)
		close(done)
	}()

	go func() {
		buf := make([]byte, 1)
		for {
			// Wait for input before checking it, so a Ctrl-C is seen by
			// ShouldStop instead of being consumed by the Read below.
			if side.BytesAvailable() == 0 && side.State() != minipipe.StateBroken {
				time.Sleep(10 * time.Millisecond)
				continue
			}
			if minishell.ShouldStop(side) {
				cmd.Process.Kill()
				return
			}
			n, err := r.Read(buf)
			if err != nil {
				return
			}
			if n > 0 {
				f.Write(buf[:n])
			}
		}
	}()

	cmd.Wait()
	<-done
}
