// Package keylock provides per-key mutual exclusion with a bounded lock table.
//
// # Overview
//
// A Table hands out one lock per distinct key value. Two callers with equal keys
// contend for the same lock; callers with different keys never block each other.
// Entries are reference counted and removed as soon as no goroutine holds or waits
// for them, so the table only ever contains keys that are currently in use.
//
// # Usage
//
//	locks := keylock.New()
//	unlock := locks.Lock("alice01")
//	defer unlock()
//	// check-then-insert for "alice01" is exclusive within this process
//
// The table is process local. Deployments with several instances sharing one
// store must rely on a unique constraint in the store for correctness; the table
// only avoids wasted duplicate-insert round trips inside one instance.
package keylock

import (
	"context"
	"sync"
)

type entry struct {
	// sem is a one-slot semaphore so waiters can give up on context cancellation
	sem  chan struct{}
	refs int
}

// Table is a set of per-key locks
type Table struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// New creates an empty lock table
func New() *Table {
	return &Table{entries: make(map[string]*entry)}
}

// acquire registers interest in key and returns its entry
func (t *Table) acquire(key string) *entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[key]
	if !ok {
		e = &entry{sem: make(chan struct{}, 1)}
		t.entries[key] = e
	}
	e.refs++
	return e
}

// release drops interest in key and removes the entry when unused
func (t *Table) release(key string, e *entry) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e.refs--
	if e.refs == 0 {
		delete(t.entries, key)
	}
}

// Lock blocks until the lock for key is held and returns the function that releases it.
// The returned function is safe to call more than once.
func (t *Table) Lock(key string) func() {
	e := t.acquire(key)
	e.sem <- struct{}{}
	return t.unlocker(key, e)
}

// LockContext is like Lock but gives up when ctx is done while waiting
func (t *Table) LockContext(ctx context.Context, key string) (func(), error) {
	e := t.acquire(key)
	select {
	case e.sem <- struct{}{}:
		return t.unlocker(key, e), nil
	case <-ctx.Done():
		t.release(key, e)
		return nil, ctx.Err()
	}
}

// TryLock acquires the lock for key only if it is free
func (t *Table) TryLock(key string) (func(), bool) {
	e := t.acquire(key)
	select {
	case e.sem <- struct{}{}:
		return t.unlocker(key, e), true
	default:
		t.release(key, e)
		return nil, false
	}
}

func (t *Table) unlocker(key string, e *entry) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.sem
			t.release(key, e)
		})
	}
}

// Len returns the number of keys currently held or awaited
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
