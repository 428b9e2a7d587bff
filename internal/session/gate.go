package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gabrielpoca/journal/internal/common"
	"github.com/gabrielpoca/journal/internal/logging"
	"github.com/gabrielpoca/journal/internal/store"
)

// State is the gate's user-visible phase.
type State int

const (
	// StateLoading is the initial phase while the persisted password is read.
	StateLoading State = iota
	// StateNeedsPassword means no usable password exists; WrongPassword
	// distinguishes "never set" from "rejected".
	StateNeedsPassword
	// StateReady means the store is open and usable.
	StateReady
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateNeedsPassword:
		return "needs-password"
	case StateReady:
		return "ready"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// OpenFunc opens the local store with the given password.
type OpenFunc func(ctx context.Context, password []byte) (*store.Store, error)

// SyncFunc establishes replication for an open store and session.
type SyncFunc func(ctx context.Context, st *store.Store, sess Session) error

// Gate is the password-gated store initialization state machine. It owns the
// open store while in StateReady and triggers replication exactly once per
// (store, user) pair.
type Gate struct {
	mu            sync.Mutex
	state         State
	wrongPassword bool
	store         *store.Store
	session       *Session
	syncedPairs   map[string]struct{}

	keystore  *Keystore
	open      OpenFunc
	startSync SyncFunc
	log       logging.Logger
}

// NewGate builds a gate in StateLoading. Call Init to run the initial
// transition.
func NewGate(ks *Keystore, open OpenFunc, startSync SyncFunc, log logging.Logger) *Gate {
	return &Gate{
		state:       StateLoading,
		keystore:    ks,
		open:        open,
		startSync:   startSync,
		log:         log,
		syncedPairs: make(map[string]struct{}),
	}
}

// State returns the current phase and, for StateNeedsPassword, whether the
// last attempt was rejected.
func (g *Gate) State() (State, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state, g.wrongPassword
}

// Store returns the open store, nil unless StateReady.
func (g *Gate) Store() *store.Store {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.store
}

// Init reads the persisted password and attempts to open the store. With no
// password the gate lands in NeedsPassword(false); a rejected password lands
// in NeedsPassword(true); any other open failure is fatal and propagates.
func (g *Gate) Init(ctx context.Context) error {
	password := g.keystore.Password()
	if password == "" {
		g.setNeedsPassword(false)
		return nil
	}
	return g.tryOpen(ctx, []byte(password))
}

// SubmitPassword persists the password and attempts to open the store. An
// empty password transitions straight to NeedsPassword(false) without an
// open attempt.
func (g *Gate) SubmitPassword(ctx context.Context, password string) error {
	if err := g.keystore.SetPassword(password); err != nil {
		return err
	}
	if password == "" {
		g.setNeedsPassword(false)
		return nil
	}
	return g.tryOpen(ctx, []byte(password))
}

func (g *Gate) tryOpen(ctx context.Context, password []byte) error {
	st, err := g.open(ctx, password)
	if errors.Is(err, common.ErrWrongPassword) {
		g.log.Warn(ctx, "store rejected encryption password")
		g.setNeedsPassword(true)
		return nil
	}
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	g.mu.Lock()
	prev := g.store
	g.state = StateReady
	g.wrongPassword = false
	g.store = st
	g.mu.Unlock()

	g.closeReplaced(ctx, prev)
	g.maybeStartSync(ctx)
	return nil
}

func (g *Gate) setNeedsPassword(wrong bool) {
	g.mu.Lock()
	prev := g.store
	g.state = StateNeedsPassword
	g.wrongPassword = wrong
	g.store = nil
	g.mu.Unlock()

	g.closeReplaced(context.Background(), prev)
}

// closeReplaced releases a store handle the gate no longer owns, so
// re-submitting a password never leaks the previous sqlite handle or its
// live subscriptions.
func (g *Gate) closeReplaced(ctx context.Context, prev *store.Store) {
	if prev == nil {
		return
	}
	if err := prev.Close(); err != nil {
		g.log.Warn(ctx, "failed to close replaced store", "error", err)
	}
}

// SetSession records the authenticated user. Whenever the gate is Ready and
// a session is present, replication starts exactly once per (store, user)
// pair; re-entering Ready with the same pair does not start a second one.
func (g *Gate) SetSession(ctx context.Context, sess Session) {
	g.mu.Lock()
	g.session = &sess
	g.mu.Unlock()

	g.maybeStartSync(ctx)
}

func (g *Gate) maybeStartSync(ctx context.Context) {
	g.mu.Lock()
	if g.state != StateReady || g.session == nil || g.startSync == nil {
		g.mu.Unlock()
		return
	}
	st := g.store
	sess := *g.session
	key := st.Path() + "|" + sess.Key()
	if _, done := g.syncedPairs[key]; done {
		g.mu.Unlock()
		return
	}
	g.syncedPairs[key] = struct{}{}
	g.mu.Unlock()

	if err := g.startSync(ctx, st, sess); err != nil {
		// setup failures surface in logs and allow a later retry
		g.log.Error(ctx, "failed to start sync", "user", sess.Name, "error", err)
		g.mu.Lock()
		delete(g.syncedPairs, key)
		g.mu.Unlock()
	}
}

// Close releases the store if open and resets the gate to NeedsPassword.
func (g *Gate) Close() error {
	g.mu.Lock()
	st := g.store
	g.store = nil
	g.state = StateNeedsPassword
	g.wrongPassword = false
	g.mu.Unlock()

	if st != nil {
		return st.Close()
	}
	return nil
}
