// Command miniconsh runs the interactive shell over a plain TCP listener,
// one minipipe and one minishell.Shell per accepted connection.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"runtime"
	"time"

	"github.com/embedded-tools/minicon/internal/demo"
	log "github.com/embedded-tools/minicon/pkg/minilog"
	"github.com/embedded-tools/minicon/pkg/minipipe"
	"github.com/embedded-tools/minicon/pkg/minireg"
	"github.com/embedded-tools/minicon/pkg/minishell"
)

var (
	fLogLevel = flag.String("level", "info", "set log level: [debug, info, warn, error, fatal]")
	fLog      = flag.Bool("v", true, "log on stderr")
	fLogfile  = flag.String("logfile", "", "also log to file")
	fAddr     = flag.String("addr", ":6023", "address to listen on")
)

const motd = "minicon shell demo -- type `echo`, `uptime`, or `sh` (Ctrl-C to interrupt a running command)"

func logSetup() {
	level, err := log.ParseLevel(*fLogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	color := runtime.GOOS != "windows"
	if *fLog {
		log.AddLogger("stderr", os.Stderr, level, color)
	}
	if *fLogfile != "" {
		f, err := os.OpenFile(*fLogfile, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0660)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		log.AddLogger("file", f, level, false)
	}
}

func main() {
	flag.Parse()
	logSetup()

	reg := minireg.New()
	demo.Register(reg)

	ln, err := net.Listen("tcp", *fAddr)
	if err != nil {
		log.Fatal("listen: %v", err)
	}
	log.Info("listening on %s", *fAddr)

	for {
		conn, err := ln.Accept()
		if err != nil {
			log.Error("accept: %v", err)
			continue
		}
		go serve(conn, reg)
	}
}

// serve bridges one TCP connection to a fresh pipe and runs a shell over
// the pipe's far side, mirroring the reference firmware's "a transport
// constructs a pipe and spawns the shell" boundary.
func serve(conn net.Conn, reg *minireg.Registry) {
	defer conn.Close()

	transport, shellSide := minipipe.Alloc(4096, 1)

	// transport is this goroutine's to free: once the TCP connection dies,
	// freeing it is what makes shellSide observe Broken and unwinds sh.Run
	// below. Freeing it here rather than via a top-level defer matters
	// because defer would only fire after sh.Run returns -- which would
	// never happen without this.
	go func() {
		buf := make([]byte, 512)
		for {
			n, err := conn.Read(buf)
			if n > 0 {
				if transport.Send(buf[:n], 5*time.Second) == 0 {
					break
				}
			}
			if err != nil {
				break
			}
		}
		transport.Free()
	}()

	go func() {
		buf := make([]byte, 512)
		for {
			n := transport.Receive(buf, 200*time.Millisecond)
			if n > 0 {
				if _, err := conn.Write(buf[:n]); err != nil {
					return
				}
			}
			if transport.State() == minipipe.StateBroken {
				return
			}
		}
	}()

	sh := minishell.New(shellSide, reg)
	sh.Run(motd)
	shellSide.Free()
}
