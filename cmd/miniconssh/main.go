// Command miniconssh exposes the shell over SSH instead of bare TCP: each
// accepted channel is bridged to its own pipe and shell exactly like
// cmd/miniconsh bridges a net.Conn, so the embedded ANSI line editor (not
// golang.org/x/crypto/ssh/terminal's own line reader) is what the far end
// actually types against.
package main

import (
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/embedded-tools/minicon/internal/demo"
	log "github.com/embedded-tools/minicon/pkg/minilog"
	"github.com/embedded-tools/minicon/pkg/minipipe"
	"github.com/embedded-tools/minicon/pkg/minireg"
	"github.com/embedded-tools/minicon/pkg/minishell"
)

var (
	fAddr     = flag.String("addr", ":2222", "address to listen on")
	fUser     = flag.String("user", "minicon", "accepted SSH username")
	fPass     = flag.String("pass", "minicon", "accepted SSH password")
	fHostKey  = flag.String("hostkey", "", "PEM-encoded private host key (generated in memory if empty)")
	fLogLevel = flag.String("level", "info", "set log level: [debug, info, warn, error, fatal]")
)

const motd = "minicon shell over ssh -- type `echo`, `uptime`, or `sh` (Ctrl-C to interrupt a running command)"

func main() {
	flag.Parse()

	level, err := log.ParseLevel(*fLogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log.AddLogger("stderr", os.Stderr, level, true)

	config := &ssh.ServerConfig{
		PasswordCallback: func(conn ssh.ConnMetadata, password []byte) (*ssh.Permissions, error) {
			if conn.User() == *fUser && string(password) == *fPass {
				return &ssh.Permissions{}, nil
			}
			return nil, errors.New("invalid user/password")
		},
	}

	signer, err := hostSigner(*fHostKey)
	if err != nil {
		log.Fatal("host key: %v", err)
	}
	config.AddHostKey(signer)

	reg := minireg.New()
	demo.Register(reg)

	listener, err := net.Listen("tcp", *fAddr)
	if err != nil {
		log.Fatal("listen: %v", err)
	}
	log.Info("listening on %s", *fAddr)

	for {
		conn, err := listener.Accept()
		if err != nil {
			log.Error("accept: %v", err)
			continue
		}
		go handleConn(conn, config, reg)
	}
}

// hostSigner loads the configured PEM host key, or mints a throwaway
// 2048-bit RSA key for the life of this process when none is given --
// fine for a demo listener, not for anything that needs a stable
// fingerprint across restarts.
func hostSigner(pemPath string) (ssh.Signer, error) {
	if pemPath != "" {
		b, err := os.ReadFile(pemPath)
		if err != nil {
			return nil, err
		}
		return ssh.ParsePrivateKey(b)
	}

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}
	return ssh.NewSignerFromKey(key)
}

func handleConn(conn net.Conn, config *ssh.ServerConfig, reg *minireg.Registry) {
	sconn, chans, reqs, err := ssh.NewServerConn(conn, config)
	if err != nil {
		log.Error("handshake: %v", err)
		conn.Close()
		return
	}
	log.Info("ssh: %s authenticated from %s", sconn.User(), sconn.RemoteAddr())

	go ssh.DiscardRequests(reqs)

	for newChannel := range chans {
		go handleChannel(newChannel, reg)
	}
}

func handleChannel(newChannel ssh.NewChannel, reg *minireg.Registry) {
	if newChannel.ChannelType() != "session" {
		newChannel.Reject(ssh.UnknownChannelType, "unknown channel type")
		return
	}

	channel, requests, err := newChannel.Accept()
	if err != nil {
		log.Error("accept channel: %v", err)
		return
	}

	go func(in <-chan *ssh.Request) {
		for req := range in {
			ok := req.Type == "shell" || req.Type == "pty-req"
			req.Reply(ok, nil)
		}
	}(requests)

	transport, shellSide := minipipe.Alloc(4096, 1)

	go func() {
		buf := make([]byte, 512)
		for {
			n, err := channel.Read(buf)
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
				if _, err := channel.Write(buf[:n]); err != nil {
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
	channel.Close()
}
