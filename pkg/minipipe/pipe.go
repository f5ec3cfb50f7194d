// Package minipipe implements the bidirectional, weldable byte pipe that
// carries a shell's stdin/stdout between a transport thread and the
// interactive shell (or a spawned command) on the other end.
//
// A pipe is two independently owned PipeSides, named Alice and Bob by
// convention only -- both can send and receive. Welding fuses the Alice
// end of one chain to the Bob end of another, eliminating the thread that
// would otherwise have to copy bytes between them.
package minipipe

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/embedded-tools/minicon/internal/ringbuf"
	log "github.com/embedded-tools/minicon/pkg/minilog"
)

// Role identifies which end of a pipe a side plays. Joint means the side
// has been absorbed into the interior of a weld chain and is inert.
type Role int

const (
	RoleAlice Role = iota
	RoleBob
	RoleJoint
)

func (r Role) String() string {
	switch r {
	case RoleAlice:
		return "alice"
	case RoleBob:
		return "bob"
	case RoleJoint:
		return "joint"
	default:
		return "unknown"
	}
}

// State is the per-side observation of pipe health.
type State int

const (
	StateOpen State = iota
	StateBroken
	StateJoint
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateBroken:
		return "broken"
	case StateJoint:
		return "joint"
	default:
		return "unknown"
	}
}

// Settings configures one direction's receive buffer: how much it can hold
// and how full it must get before the reader's event-loop link is poked.
type Settings struct {
	Capacity int
	Trigger  int
}

var (
	nextChainIDCounter uint64
	nextSideIDCounter   uint64
)

func nextChainID() uint64 { return atomic.AddUint64(&nextChainIDCounter, 1) }
func nextSideID() int     { return int(atomic.AddUint64(&nextSideIDCounter, 1)) }

// chain is the shared innards of one or more welded pipes: exactly two
// ring buffers regardless of how many sides have been fused into it, plus
// the bookkeeping needed to identify the two still-exterior sides and to
// lock the whole thing down during a weld.
type chain struct {
	mu sync.Mutex
	id uint64

	sides   map[int]*PipeSide
	aliceID int
	bobID   int

	aToB *ringbuf.Ring // bytes sent by the exterior Alice, read by the exterior Bob
	bToA *ringbuf.Ring // bytes sent by the exterior Bob, read by the exterior Alice

	weldable bool

	// per-direction settings remembered from birth, for a future unweld to
	// restore (see Unweld).
	aliceSettings Settings
	bobSettings   Settings
}

// PipeSide is one independently owned end of a pipe or weld chain.
type PipeSide struct {
	mu   sync.Mutex
	id   int
	role Role
	c    *chain

	link *Link
}

// Alloc creates a pipe with equal capacity and trigger level in both
// directions, welding-capable.
func Alloc(capacity, trigger int) (alice, bob *PipeSide) {
	s := Settings{Capacity: capacity, Trigger: trigger}
	return AllocEx(true, s, s)
}

// AllocEx creates a pipe with independent per-direction receive settings
// and an explicit choice of whether the pipe supports welding. Non-weldable
// pipes are built with the same per-side bookkeeping; the flag only makes
// Weld reject them with ErrWeldNotCapable.
func AllocEx(weldable bool, aliceRecv, bobRecv Settings) (alice, bob *PipeSide) {
	c := &chain{
		id:            nextChainID(),
		sides:         make(map[int]*PipeSide, 2),
		weldable:      weldable,
		aliceSettings: aliceRecv,
		bobSettings:   bobRecv,
	}

	// Alice receives what Bob sends, sized per Alice's own receive settings.
	c.bToA = ringbuf.New(aliceRecv.Capacity, aliceRecv.Trigger)
	// Bob receives what Alice sends, sized per Bob's own receive settings.
	c.aToB = ringbuf.New(bobRecv.Capacity, bobRecv.Trigger)

	alice = &PipeSide{id: nextSideID(), role: RoleAlice, c: c}
	bob = &PipeSide{id: nextSideID(), role: RoleBob, c: c}
	alice.link = &Link{side: alice}
	bob.link = &Link{side: bob}

	c.sides[alice.id] = alice
	c.sides[bob.id] = bob
	c.aliceID = alice.id
	c.bobID = bob.id

	rewireNotifications(c)

	return alice, bob
}

// rewireNotifications points each ring's fill/drain callbacks at the
// current exterior sides' event-loop links. Must be called with c.mu held
// (callers are AllocEx, before anyone else can see c, and weld, which
// holds every side's and chain's mutex already).
func rewireNotifications(c *chain) {
	alice := c.sides[c.aliceID]
	bob := c.sides[c.bobID]

	c.aToB.OnFilled(func() { bob.link.fireIn() })
	c.aToB.OnDrained(func() { alice.link.fireOut() })
	c.bToA.OnFilled(func() { alice.link.fireIn() })
	c.bToA.OnDrained(func() { bob.link.fireOut() })
}

func (s *PipeSide) snapshot() (Role, *chain) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.role, s.c
}

// Role reports which end of the pipe this side plays.
func (s *PipeSide) Role() Role {
	role, _ := s.snapshot()
	return role
}

// State reports whether the peer is still present.
func (s *PipeSide) State() State {
	role, c := s.snapshot()
	if role == RoleJoint {
		return StateJoint
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch role {
	case RoleAlice:
		if c.bobID == 0 {
			return StateBroken
		}
	case RoleBob:
		if c.aliceID == 0 {
			return StateBroken
		}
	}
	return StateOpen
}

// Link returns this side's event-loop integration point.
func (s *PipeSide) Link() *Link {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.link
}

func (s *PipeSide) sendRing() (Role, *ringbuf.Ring) {
	role, c := s.snapshot()
	if role == RoleJoint {
		return role, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if role == RoleAlice {
		return role, c.aToB
	}
	return role, c.bToA
}

func (s *PipeSide) recvRing() (Role, *ringbuf.Ring) {
	role, c := s.snapshot()
	if role == RoleJoint {
		return role, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if role == RoleAlice {
		return role, c.bToA
	}
	return role, c.aToB
}

// Send enqueues up to len(p) bytes, blocking up to timeout. Returns the
// count actually enqueued; 0 if this side is Joint or the timeout expires
// with no room. Sends on a Broken side are absorbed (the data just sits in
// a buffer with nobody left to read it) rather than rejected.
func (s *PipeSide) Send(p []byte, timeout time.Duration) int {
	_, ring := s.sendRing()
	if ring == nil {
		return 0
	}
	return ring.Send(p, timeout)
}

// Receive dequeues up to len(p) bytes, blocking up to timeout. Returns 0 on
// a Joint side, or on a timeout with nothing to read. A Broken side still
// yields any bytes that were buffered before the peer went away.
func (s *PipeSide) Receive(p []byte, timeout time.Duration) int {
	_, ring := s.recvRing()
	if ring == nil {
		return 0
	}
	return ring.Receive(p, timeout)
}

// Peek copies up to len(p) buffered-but-unread bytes without consuming
// them. Used by should-stop style polling that needs to look at the next
// byte without committing to reading it.
func (s *PipeSide) Peek(p []byte) int {
	_, ring := s.recvRing()
	if ring == nil {
		return 0
	}
	return ring.Peek(p)
}

func (s *PipeSide) BytesAvailable() int {
	_, ring := s.recvRing()
	if ring == nil {
		return 0
	}
	return ring.BytesAvailable()
}

func (s *PipeSide) SpacesAvailable() int {
	_, ring := s.sendRing()
	if ring == nil {
		return 0
	}
	return ring.SpacesAvailable()
}

// Stdio returns this side as an io.Reader/io.Writer pair, the Go stand-in
// for install-as-stdio: Go has no per-goroutine stdin/stdout to rebind, so
// callers thread the pair through explicitly instead (see minishell, which
// hands it to every command worker).
func (s *PipeSide) Stdio() (ReaderSide, WriterSide) {
	return ReaderSide{s}, WriterSide{s}
}

// ReaderSide adapts a PipeSide to io.Reader, blocking indefinitely (until
// data arrives or the pipe breaks) the way a blocking stdin read would.
type ReaderSide struct{ side *PipeSide }

func (r ReaderSide) Read(p []byte) (int, error) {
	for {
		n := r.side.Receive(p, readBlockPoll)
		if n > 0 {
			return n, nil
		}
		if st := r.side.State(); st == StateBroken || st == StateJoint {
			return 0, ErrBroken
		}
	}
}

// WriterSide adapts a PipeSide to io.Writer.
type WriterSide struct{ side *PipeSide }

func (w WriterSide) Write(p []byte) (int, error) {
	total := 0
	for total < len(p) {
		n := w.side.Send(p[total:], writeBlockTimeout)
		if n == 0 {
			return total, ErrBroken
		}
		total += n
	}
	return total, nil
}

const (
	readBlockPoll     = 200 * time.Millisecond
	writeBlockTimeout = 5 * time.Second
)

// ErrBroken is returned by the io.Reader/io.Writer adapters once the pipe
// has gone broken or the side they wrap has become Joint.
var ErrBroken = errBroken{}

type errBroken struct{}

func (errBroken) Error() string { return "minipipe: pipe is broken" }

// Free drops this side. If the peer is still present, it observes the
// pipe transition to Broken; if the peer had already been freed, the
// underlying buffers are released. Freeing a Joint side is a programmer
// error (it is meaningless: the side is already inert interior plumbing)
// and aborts the process, matching the fail-fast policy for invariant
// violations elsewhere in minipipe.
func (s *PipeSide) Free() {
	s.mu.Lock()
	role := s.role
	c := s.c
	s.mu.Unlock()

	if role == RoleJoint {
		log.Fatal("minipipe: Free called on a joint side (id=%d)", s.id)
		return
	}

	c.mu.Lock()
	var peerGone bool
	switch role {
	case RoleAlice:
		peerGone = c.bobID == 0
		c.aliceID = 0
	case RoleBob:
		peerGone = c.aliceID == 0
		c.bobID = 0
	}
	delete(c.sides, s.id)
	c.mu.Unlock()

	if peerGone {
		c.aToB.Close()
		c.bToA.Close()
	}
}
