// Command miniconmon is a scripted health check for a cmd/miniconsh
// listener: it dials over telnet, waits for the prompt, runs a small
// fixed script of commands, and exits non-zero if the expected output
// never shows up -- the same expect/sendln shape as the teacher's
// telnet_example, aimed at minicon's own prompt instead of a login banner.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ziutek/telnet"

	log "github.com/embedded-tools/minicon/pkg/minilog"
	"github.com/embedded-tools/minicon/pkg/minishell"
)

var (
	fAddr    = flag.String("addr", "127.0.0.1:6023", "miniconsh address to dial")
	fTimeout = flag.Duration("timeout", 5*time.Second, "per-step read/write deadline")
)

func checkErr(step string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "miniconmon: %s: %v\n", step, err)
		os.Exit(1)
	}
}

func expect(t *telnet.Conn, d ...string) {
	checkErr("read deadline", t.SetReadDeadline(time.Now().Add(*fTimeout)))
	checkErr("expect "+fmt.Sprint(d), t.SkipUntil(d...))
}

func sendln(t *telnet.Conn, s string) {
	checkErr("write deadline", t.SetWriteDeadline(time.Now().Add(*fTimeout)))
	buf := append([]byte(s), '\r')
	_, err := t.Write(buf)
	checkErr("write "+s, err)
}

func main() {
	flag.Parse()
	log.AddLogger("stderr", os.Stderr, log.WARN, true)

	t, err := telnet.Dial("tcp", *fAddr)
	checkErr("dial", err)
	defer t.Close()
	t.SetUnixWriteMode(true)

	expect(t, minishell.Prompt)

	sendln(t, "echo alive")
	expect(t, "alive")
	expect(t, minishell.Prompt)

	sendln(t, "uptime")
	expect(t, "up ")
	expect(t, minishell.Prompt)

	fmt.Println("ok")
}
