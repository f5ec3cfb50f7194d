// Command miniconclient is a convenience console for talking to a
// cmd/miniconsh listener: it dials the address, edits commands locally
// with liner (history, basic line editing), and forwards each completed
// line to the remote shell, printing back whatever arrives in response.
//
// It is deliberately not a raw terminal forwarder -- the remote shell
// already does its own ANSI-aware line editing over the wire, so this
// client's job is only to assemble one line at a time and hand it over,
// the way miniclient.Attach dials a local daemon and drives it with liner.
package main

import (
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"github.com/peterh/liner"

	log "github.com/embedded-tools/minicon/pkg/minilog"
)

var (
	fAddr  = flag.String("addr", "localhost:6023", "miniconsh address to dial")
	fLevel = flag.String("level", "warn", "set log level: [debug, info, warn, error, fatal]")
)

const drainWindow = 150 * time.Millisecond

func main() {
	flag.Parse()

	level, err := log.ParseLevel(*fLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log.AddLogger("stderr", os.Stderr, level, true)

	conn, err := net.Dial("tcp", *fAddr)
	if err != nil {
		log.Fatal("dial %s: %v", *fAddr, err)
	}
	defer conn.Close()

	fmt.Printf("connected to %s\n", *fAddr)
	fmt.Println("use ^D or 'exit' to disconnect")

	// Drain and print whatever the remote has waiting (its motd and first
	// prompt) before we ever ask the user for input.
	drain(conn)

	input := liner.NewLiner()
	defer input.Close()
	input.SetCtrlCAborts(true)

	for {
		line, err := input.Prompt("miniconclient> ")
		if err == liner.ErrPromptAborted {
			continue
		} else if err == io.EOF {
			break
		} else if err != nil {
			log.Error("prompt: %v", err)
			break
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		input.AppendHistory(trimmed)

		if trimmed == "exit" {
			break
		}

		if _, err := conn.Write([]byte(trimmed + "\r")); err != nil {
			log.Error("write: %v", err)
			break
		}

		fmt.Print(drain(conn))
	}
}

// drain reads whatever the connection has to offer for a short window,
// long enough for the remote shell to finish redrawing after a command,
// and returns it unmodified for the caller to print.
func drain(conn net.Conn) string {
	var out strings.Builder
	buf := make([]byte, 512)
	for {
		conn.SetReadDeadline(time.Now().Add(drainWindow))
		n, err := conn.Read(buf)
		if n > 0 {
			out.Write(buf[:n])
		}
		if err != nil {
			break
		}
	}
	conn.SetReadDeadline(time.Time{})
	return out.String()
}
