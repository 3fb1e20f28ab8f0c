// Package lock provides per-key exclusive locking. The approval service
// holds a ticket-scoped lock across a whole submit-action unit of work so
// chain advancement, the fresh load-count read, and assignment are observed
// as one serialized step.
package lock

import (
	"context"
	"sync"
)

// Keyed grants exclusive access per key. Acquire blocks until the lock is
// held or ctx is done; the returned release function must be called exactly
// once.
type Keyed interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// KeyedMutex is an in-process Keyed implementation.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	ch   chan struct{}
	refs int
}

// NewKeyedMutex builds an empty keyed mutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*entry)}
}

// Acquire takes the lock for key, waiting for the current holder if needed.
func (m *KeyedMutex) Acquire(ctx context.Context, key string) (func(), error) {
	m.mu.Lock()
	e, ok := m.locks[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		m.locks[key] = e
	}
	e.refs++
	m.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		m.put(key, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			<-e.ch
			m.put(key, e)
		})
	}
	return release, nil
}

func (m *KeyedMutex) put(key string, e *entry) {
	m.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(m.locks, key)
	}
	m.mu.Unlock()
}
