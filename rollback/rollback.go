// Package rollback implements the compensation log: every successful
// mutation of kernel or process state pushes an action that undoes it,
// and termination (or a failure mid-setup) drains the log in reverse.
package rollback

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Fn undoes a single forward mutation. It must tolerate the state being
// already absent.
type Fn func() error

type entry struct {
	name string
	fn   Fn
}

// Log is an append-only (during setup) LIFO stack of compensations.
// It is owned by the running process and never persisted.
type Log struct {
	mu      sync.Mutex
	entries []entry
}

func New() *Log {
	return &Log{}
}

// Push records a compensation for a mutation that just succeeded.
func (l *Log) Push(name string, fn Fn) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry{name: name, fn: fn})
	log.Trace().Str("compensation", name).Int("depth", len(l.entries)).Msg("registered compensation")
}

// Len returns the number of pending compensations.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Drain executes all compensations in reverse order and empties the log.
// Compensation failures are logged, never propagated: the process is
// already in teardown and every remaining compensation must still run.
// It returns the number of compensations executed.
func (l *Log) Drain() int {
	l.mu.Lock()
	entries := l.entries
	l.entries = nil
	l.mu.Unlock()

	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		log.Debug().Str("compensation", e.name).Msg("rolling back")
		if err := e.fn(); err != nil {
			log.Warn().Err(err).Str("compensation", e.name).Msg("compensation failed")
		}
	}
	return len(entries)
}
