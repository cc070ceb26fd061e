package session

import (
	"context"
	"log"
	"sync"

	"github.com/uzbek-talim/talim/storage"
)

// DefaultStorageKey is the durable storage key holding the whole session.
const DefaultStorageKey = "uzbek-talim-auth"

// Store is the single authoritative holder of the client session. Every
// mutation updates the in-memory state and writes the durable snapshot in
// the same call, so durable storage always reflects the latest state through
// one code path rather than a persistence side effect.
//
// Mutations are serialized by an internal mutex; consumers read via
// [Store.Snapshot] and observe changes via [Store.Watch]. No component other
// than the Store writes the session's storage key.
type Store struct {
	mu       sync.Mutex
	backend  storage.Backend
	key      string
	state    Snapshot
	watchers []func(Snapshot)
}

// NewStore creates a Store bound to backend under key (empty key uses
// [DefaultStorageKey]) and loads whatever durable snapshot exists. A missing
// or corrupt snapshot yields the all-empty state; either way the session
// starts with IsLoading true until the bootstrapper resolves it.
func NewStore(ctx context.Context, backend storage.Backend, key string) *Store {
	if key == "" {
		key = DefaultStorageKey
	}

	s := &Store{
		backend: backend,
		key:     key,
		state:   Snapshot{IsLoading: true},
	}

	data, err := backend.Get(ctx, key)
	if err != nil {
		return s
	}
	snap, err := Decode(data)
	if err != nil {
		// Corrupt snapshots are discarded, not surfaced.
		_ = backend.Delete(ctx, key)
		return s
	}
	s.state = snap

	return s
}

// Snapshot returns a copy of the current session state. The returned
// Identity is a copy; mutating it does not affect the Store.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneSnapshot(s.state)
}

// Watch registers fn to be called with a snapshot copy after every state
// transition. The returned function removes the watcher. Watchers run
// synchronously in mutation order on the mutating goroutine.
func (s *Store) Watch(fn func(Snapshot)) func() {
	s.mu.Lock()
	s.watchers = append(s.watchers, fn)
	index := len(s.watchers) - 1
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if index < len(s.watchers) {
			s.watchers[index] = nil
		}
	}
}

// SetIdentity replaces the identity and re-derives the authenticated flag.
func (s *Store) SetIdentity(ctx context.Context, identity *Identity) {
	s.mutate(ctx, func(state *Snapshot) {
		state.Identity = cloneIdentity(identity)
		state.IsAuthenticated = identity != nil
	})
}

// SetAccessToken replaces the access token. Tokens are opaque; no validation
// is performed.
func (s *Store) SetAccessToken(ctx context.Context, token string) {
	s.mutate(ctx, func(state *Snapshot) {
		state.AccessToken = token
	})
}

// SetRefreshToken replaces the refresh token.
func (s *Store) SetRefreshToken(ctx context.Context, token string) {
	s.mutate(ctx, func(state *Snapshot) {
		state.RefreshToken = token
	})
}

// Login atomically installs identity and both tokens as one observable
// transition: no watcher or snapshot can see tokens without the identity or
// the reverse. It also clears the loading flag.
func (s *Store) Login(ctx context.Context, identity *Identity, accessToken, refreshToken string) {
	s.mutate(ctx, func(state *Snapshot) {
		state.Identity = cloneIdentity(identity)
		state.AccessToken = accessToken
		state.RefreshToken = refreshToken
		state.IsAuthenticated = identity != nil
		state.IsLoading = false
	})
}

// Logout atomically clears the identity and both tokens. It is idempotent:
// logging out an empty session is a no-op transition to the same state.
// In-flight requests carrying the old token will fail authorization, which
// is expected and not an error of this component.
func (s *Store) Logout(ctx context.Context) {
	s.mutate(ctx, func(state *Snapshot) {
		state.Identity = nil
		state.AccessToken = ""
		state.RefreshToken = ""
		state.IsAuthenticated = false
	})
}

// SetLoading updates only the loading flag. The flag is never persisted.
func (s *Store) SetLoading(ctx context.Context, loading bool) {
	s.mutate(ctx, func(state *Snapshot) {
		state.IsLoading = loading
	})
}

// AccessToken returns the current access token. It satisfies the gateway's
// token source without exposing the rest of the state.
func (s *Store) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.AccessToken
}

func (s *Store) mutate(ctx context.Context, apply func(*Snapshot)) {
	s.mu.Lock()

	apply(&s.state)
	s.persistLocked(ctx)

	snap := cloneSnapshot(s.state)
	watchers := make([]func(Snapshot), len(s.watchers))
	copy(watchers, s.watchers)

	s.mu.Unlock()

	for _, fn := range watchers {
		if fn != nil {
			fn(snap)
		}
	}
}

func (s *Store) persistLocked(ctx context.Context) {
	data, err := Encode(s.state)
	if err != nil {
		log.Print("talim: session snapshot encode failed")
		return
	}
	// Persistence is write-through but best-effort: a storage outage must not
	// block the in-memory transition.
	if err := s.backend.Set(ctx, s.key, data); err != nil {
		log.Print("talim: session snapshot persist failed")
	}
}

func cloneSnapshot(snap Snapshot) Snapshot {
	out := snap
	out.Identity = cloneIdentity(snap.Identity)
	return out
}

func cloneIdentity(identity *Identity) *Identity {
	if identity == nil {
		return nil
	}
	copied := *identity
	return &copied
}
