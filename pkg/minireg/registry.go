// Package minireg implements the shell's command registry: a
// mutex-guarded, insertion-ordered mapping from normalized command name to
// handler record.
package minireg

import (
	"strings"
	"sync"

	"github.com/embedded-tools/minicon/pkg/minipipe"
)

// Flags are per-command execution hints the shell loop consults before and
// while running a callback.
type Flags int

const (
	// ParallelUnsafe means only one such command may run at a time across
	// the whole process; the shell takes a global application lock before
	// spawning its worker and refuses to run it if that lock is held.
	ParallelUnsafe Flags = 1 << iota
	// InsomniaSafe means the command may run even while the device would
	// otherwise be asleep/idle-suspended.
	InsomniaSafe
	// DetachedStdio means the worker does NOT get the pipe rebound as its
	// stdio; it is handed raw access instead (used by commands that want a
	// different transport, e.g. a child process's own pipes).
	DetachedStdio
)

// Callback is a registered command's handler: it receives the pipe side
// its stdio should route through (unless DetachedStdio is set, in which
// case it is free to ignore it and manage its own I/O), the submitted
// line with the command name and one separating space stripped, and
// whatever opaque context value was passed to Add.
type Callback func(side *minipipe.PipeSide, args string, ctx interface{})

// Entry is a registry record, returned by value from Get so that callers
// never hold a reference into the registry's internals.
type Entry struct {
	Name     string
	Flags    Flags
	Callback Callback
	Context  interface{}
}

// Registry is a mutex-guarded, insertion-ordered mapping from normalized
// command name to Entry. The zero value is ready to use.
type Registry struct {
	mu      sync.Mutex
	byName  map[string]int
	entries []Entry
}

// New returns an empty, ready-to-use Registry.
func New() *Registry {
	return &Registry{byName: make(map[string]int)}
}

// normalize trims leading/trailing whitespace and collapses every interior
// run of whitespace to a single underscore. Lookup is exact match on this
// normalized form; normalization happens only on Add, never on lookup.
func normalize(name string) string {
	fields := strings.Fields(name)
	return strings.Join(fields, "_")
}

// Add inserts or overwrites the entry for name. Overwriting an existing
// name keeps its original position in enumeration order.
func (r *Registry) Add(name string, flags Flags, cb Callback, ctx interface{}) {
	n := normalize(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	e := Entry{Name: n, Flags: flags, Callback: cb, Context: ctx}
	if i, ok := r.byName[n]; ok {
		r.entries[i] = e
		return
	}
	r.byName[n] = len(r.entries)
	r.entries = append(r.entries, e)
}

// Remove erases the entry for name, if any.
func (r *Registry) Remove(name string) {
	n := normalize(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.byName[n]
	if !ok {
		return
	}

	r.entries = append(r.entries[:i], r.entries[i+1:]...)
	delete(r.byName, n)
	for name, idx := range r.byName {
		if idx > i {
			r.byName[name] = idx - 1
		}
	}
}

// Get copies out the entry for name, if present. normalization is NOT
// applied here: callers must pass the already-normalized form (the shell
// loop normalizes once, at the point it parses the submitted line).
func (r *Registry) Get(name string) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.byName[name]
	if !ok {
		return Entry{}, false
	}
	return r.entries[i], true
}

// Lock acquires the registry mutex so a caller (e.g. a help command) can
// enumerate the whole mapping atomically. The mutex is non-recursive and
// must never be held across callback execution.
func (r *Registry) Lock() { r.mu.Lock() }

// Unlock releases the mutex taken by Lock.
func (r *Registry) Unlock() { r.mu.Unlock() }

// Enumerate returns a borrow of the underlying ordered entries, valid only
// while the registry is locked via Lock.
func (r *Registry) Enumerate() []Entry {
	return r.entries
}
