// Package session holds the process-wide authentication state: the access
// token, the authenticated principal, and the readiness flags that gate
// navigation during startup. The store exposes atomic transitions only; no
// partial mutation is ever externally visible.
package session

import (
	"sync"
)

// Snapshot is a consistent read of the session state. All fields were
// written under the same mutation, so readers never observe a state that
// mixes pre- and post-update values.
type Snapshot struct {
	AccessToken         string
	Principal           *Principal
	IsAuthenticated     bool
	IsInitialized       bool
	InitializationError string
}

// Store is the process-wide credential store. It is a pure state container
// with no I/O. Mutations are synchronous and atomic; consumers subscribe to
// changes rather than polling.
//
// Invariants: IsAuthenticated implies both AccessToken and Principal are
// set. IsInitialized flips false→true exactly once per process lifetime and
// never reverts.
type Store struct {
	mu sync.RWMutex

	accessToken   string
	principal     *Principal
	authenticated bool
	initialized   bool
	initError     string

	initDone chan struct{} // closed exactly once by SetInitialized
	subs     map[int]chan Snapshot
	nextSub  int
}

// NewStore creates an empty store: unauthenticated, uninitialized.
func NewStore() *Store {
	return &Store{
		initDone: make(chan struct{}),
		subs:     make(map[int]chan Snapshot),
	}
}

// SetAuthenticatedUser installs a freshly authenticated identity in one
// step: token, principal, authenticated flag, and a cleared initialization
// error.
func (s *Store) SetAuthenticatedUser(principal *Principal, accessToken string) {
	s.mu.Lock()
	s.accessToken = accessToken
	s.principal = principal
	s.authenticated = true
	s.initError = ""
	s.notifyLocked()
	s.mu.Unlock()
}

// SetAccessToken replaces only the access token, keeping the current
// principal. Used by the refresh coordinator after a successful renewal.
func (s *Store) SetAccessToken(accessToken string) {
	s.mu.Lock()
	s.accessToken = accessToken
	s.notifyLocked()
	s.mu.Unlock()
}

// ClearAuth resets token, principal, and the authenticated flag. The
// initialized flag is left untouched: readiness never reverts.
func (s *Store) ClearAuth() {
	s.mu.Lock()
	s.accessToken = ""
	s.principal = nil
	s.authenticated = false
	s.initError = ""
	s.notifyLocked()
	s.mu.Unlock()
}

// SetInitialized marks the one-time startup sequence complete. Subsequent
// calls are no-ops; the Initialized channel is closed exactly once.
func (s *Store) SetInitialized() {
	s.mu.Lock()
	if !s.initialized {
		s.initialized = true
		close(s.initDone)
		s.notifyLocked()
	}
	s.mu.Unlock()
}

// SetInitializationError records a user-facing startup failure message.
// An empty message clears it. Only service failures set this; an expected
// "not logged in" outcome leaves it empty.
func (s *Store) SetInitializationError(msg string) {
	s.mu.Lock()
	s.initError = msg
	s.notifyLocked()
	s.mu.Unlock()
}

// Snapshot returns a consistent copy of the session state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// AccessToken returns the current token, or "" when absent. Callers acting
// across a suspension point must re-read rather than cache the value.
func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// Principal returns the current authenticated identity, or nil.
func (s *Store) Principal() *Principal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.principal
}

// IsAuthenticated reports whether a principal and token are installed.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticated
}

// IsInitialized reports whether the startup sequence has completed.
func (s *Store) IsInitialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

// Initialized returns a channel closed once the startup sequence completes.
// Consumers wait on it instead of polling; a transient unauthenticated
// state observed before it closes means nothing.
func (s *Store) Initialized() <-chan struct{} {
	return s.initDone
}

// Subscribe registers for change notifications. Each mutation delivers the
// post-mutation snapshot; slow subscribers see coalesced updates, always
// ending with the latest state. The returned cancel func releases the
// subscription.
func (s *Store) Subscribe() (<-chan Snapshot, func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	ch := make(chan Snapshot, 1)
	s.subs[id] = ch
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		AccessToken:         s.accessToken,
		Principal:           s.principal,
		IsAuthenticated:     s.authenticated,
		IsInitialized:       s.initialized,
		InitializationError: s.initError,
	}
}

// notifyLocked pushes the current snapshot to all subscribers, replacing
// any undelivered older snapshot. Requires s.mu held.
func (s *Store) notifyLocked() {
	snap := s.snapshotLocked()
	for _, ch := range s.subs {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}
