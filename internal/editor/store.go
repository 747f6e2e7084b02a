package editor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

type storeEntry struct {
	mu       sync.Mutex
	session  *Session
	lastUsed atomic.Int64 // unix nanoseconds
}

// StoreOption customises a Store.
type StoreOption func(*Store)

// WithMaxSessions caps the number of open sessions. Add fails with
// ErrTooManySessions once the cap is reached. Zero means no cap.
func WithMaxSessions(n int) StoreOption {
	return func(st *Store) { st.maxSessions = n }
}

// WithIdleTimeout makes Sweep cancel sessions that have not been used for d.
// Zero disables expiry.
func WithIdleTimeout(d time.Duration) StoreOption {
	return func(st *Store) { st.idleTimeout = d }
}

// withClock replaces time.Now in tests.
func withClock(now func() time.Time) StoreOption {
	return func(st *Store) { st.now = now }
}

// Store keeps open sessions by id for transports that address them across
// requests.
//
// Store is safe for concurrent use. Calls on the same session are serialised,
// so a Session is never touched by two goroutines at once. Sessions that end
// (Save or Cancel) inside With are dropped from the store, and sessions left
// idle longer than the idle timeout are cancelled by Sweep.
type Store struct {
	mu          sync.RWMutex
	entries     map[string]*storeEntry
	onRemove    []func(*Session)
	maxSessions int
	idleTimeout time.Duration
	now         func() time.Time
}

// NewStore creates an empty store.
func NewStore(opts ...StoreOption) *Store {
	st := &Store{
		entries: make(map[string]*storeEntry),
		now:     time.Now,
	}
	for _, o := range opts {
		o(st)
	}
	return st
}

// OnRemove registers fn to be called after a session leaves the store for
// any reason: saved, cancelled, expired or removed.
func (st *Store) OnRemove(fn func(*Session)) {
	st.mu.Lock()
	st.onRemove = append(st.onRemove, fn)
	st.mu.Unlock()
}

// Add registers s under its id and returns the id.
func (st *Store) Add(s *Session) (string, error) {
	e := &storeEntry{session: s}
	e.lastUsed.Store(st.now().UnixNano())

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.maxSessions > 0 && len(st.entries) >= st.maxSessions {
		return "", ErrTooManySessions
	}
	st.entries[s.ID()] = e
	return s.ID(), nil
}

// With runs fn on the session with the given id while holding that session's
// lock. It returns ErrSessionNotFound for unknown ids.
func (st *Store) With(id string, fn func(*Session) error) error {
	st.mu.RLock()
	e, ok := st.entries[id]
	st.mu.RUnlock()
	if !ok {
		return ErrSessionNotFound
	}
	e.lastUsed.Store(st.now().UnixNano())

	e.mu.Lock()
	defer e.mu.Unlock()

	// Ended by another caller while we waited for the lock.
	if e.session.Closed() {
		st.remove(id, e)
		return ErrSessionClosed
	}

	err := fn(e.session)
	e.lastUsed.Store(st.now().UnixNano())
	if e.session.Closed() {
		st.remove(id, e)
	}
	return err
}

func (st *Store) remove(id string, e *storeEntry) {
	st.mu.Lock()
	removed := st.entries[id] == e
	if removed {
		delete(st.entries, id)
	}
	listeners := st.onRemove
	st.mu.Unlock()

	if removed {
		for _, fn := range listeners {
			fn(e.session)
		}
	}
}

// Remove drops a session without ending it. It reports whether the id was
// present.
func (st *Store) Remove(id string) bool {
	st.mu.RLock()
	e, ok := st.entries[id]
	st.mu.RUnlock()
	if !ok {
		return false
	}
	st.remove(id, e)
	return true
}

// Sweep cancels and drops every session idle for longer than the idle
// timeout. It returns the number of sessions removed.
func (st *Store) Sweep(ctx context.Context) int {
	if st.idleTimeout <= 0 {
		return 0
	}
	cutoff := st.now().Add(-st.idleTimeout).UnixNano()

	st.mu.RLock()
	var idle []string
	for id, e := range st.entries {
		if e.lastUsed.Load() < cutoff {
			idle = append(idle, id)
		}
	}
	st.mu.RUnlock()

	n := 0
	for _, id := range idle {
		st.mu.RLock()
		e, ok := st.entries[id]
		st.mu.RUnlock()
		if !ok {
			continue
		}

		e.mu.Lock()
		// Used again since the scan.
		if e.lastUsed.Load() >= cutoff {
			e.mu.Unlock()
			continue
		}
		e.session.Cancel(ctx)
		e.mu.Unlock()

		st.remove(id, e)
		n++
		log.Ctx(ctx).Info().Str("session", id).Dur("idle_timeout", st.idleTimeout).Msg("idle session expired")
	}
	return n
}

// Run sweeps idle sessions periodically until ctx is cancelled. It returns
// immediately when no idle timeout is set.
func (st *Store) Run(ctx context.Context) {
	if st.idleTimeout <= 0 {
		return
	}
	interval := st.idleTimeout / 4
	if interval < time.Second {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st.Sweep(ctx)
		}
	}
}

// IDs lists the ids of open sessions in no particular order.
func (st *Store) IDs() []string {
	st.mu.RLock()
	defer st.mu.RUnlock()
	ids := make([]string, 0, len(st.entries))
	for id := range st.entries {
		ids = append(ids, id)
	}
	return ids
}

// Len returns the number of open sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.entries)
}
