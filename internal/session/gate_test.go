package session

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/gabrielpoca/journal/internal/logging"
	"github.com/gabrielpoca/journal/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeGarbage(path string) error {
	return os.WriteFile(path, []byte("{not json"), 0o600)
}

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))
}

// testOpen opens a real store under dir so the gate exercises the actual
// wrong-password behavior.
func testOpen(dir string) OpenFunc {
	return func(ctx context.Context, password []byte) (*store.Store, error) {
		return store.Open(ctx, store.Options{Path: filepath.Join(dir, "journal.db")}, password)
	}
}

func newTestGate(t *testing.T, dir string, syncFn SyncFunc) *Gate {
	t.Helper()
	ks, err := LoadKeystore(dir)
	require.NoError(t, err)
	g := NewGate(ks, testOpen(dir), syncFn, testLogger())
	t.Cleanup(func() { _ = g.Close() })
	return g
}

func TestGate_InitWithoutPassword(t *testing.T) {
	g := newTestGate(t, t.TempDir(), nil)

	require.NoError(t, g.Init(context.Background()))

	state, wrong := g.State()
	assert.Equal(t, StateNeedsPassword, state)
	assert.False(t, wrong)
	assert.Nil(t, g.Store())
}

func TestGate_InitWithPersistedPassword(t *testing.T) {
	dir := t.TempDir()
	ks, err := LoadKeystore(dir)
	require.NoError(t, err)
	require.NoError(t, ks.SetPassword("pw"))

	g := newTestGate(t, dir, nil)
	require.NoError(t, g.Init(context.Background()))

	state, _ := g.State()
	assert.Equal(t, StateReady, state)
	assert.NotNil(t, g.Store())
}

func TestGate_SubmitPassword_OpensStore(t *testing.T) {
	g := newTestGate(t, t.TempDir(), nil)
	ctx := context.Background()

	require.NoError(t, g.Init(ctx))
	require.NoError(t, g.SubmitPassword(ctx, "pw"))

	state, _ := g.State()
	assert.Equal(t, StateReady, state)
}

func TestGate_SubmitEmptyPassword_NoOpenAttempt(t *testing.T) {
	dir := t.TempDir()
	calls := 0
	open := func(ctx context.Context, password []byte) (*store.Store, error) {
		calls++
		return testOpen(dir)(ctx, password)
	}

	ks, err := LoadKeystore(dir)
	require.NoError(t, err)
	g := NewGate(ks, open, nil, testLogger())
	t.Cleanup(func() { _ = g.Close() })

	require.NoError(t, g.SubmitPassword(context.Background(), ""))

	state, wrong := g.State()
	assert.Equal(t, StateNeedsPassword, state)
	assert.False(t, wrong)
	assert.Zero(t, calls, "empty password must not attempt an open")
}

func TestGate_WrongPassword(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	// seed the store under the correct password
	st, err := testOpen(dir)(ctx, []byte("correct"))
	require.NoError(t, err)
	require.NoError(t, st.Close())

	g := newTestGate(t, dir, nil)
	require.NoError(t, g.SubmitPassword(ctx, "incorrect"))

	state, wrong := g.State()
	assert.Equal(t, StateNeedsPassword, state)
	assert.True(t, wrong, "rejected password must be distinguishable")
	assert.Nil(t, g.Store())

	// recovering with the right password works
	require.NoError(t, g.SubmitPassword(ctx, "correct"))
	state, wrong = g.State()
	assert.Equal(t, StateReady, state)
	assert.False(t, wrong)
}

func TestGate_ResubmitClosesPreviousStore(t *testing.T) {
	g := newTestGate(t, t.TempDir(), nil)
	ctx := context.Background()

	require.NoError(t, g.SubmitPassword(ctx, "pw"))
	first := g.Store()
	require.NotNil(t, first)

	require.NoError(t, g.SubmitPassword(ctx, "pw"))
	second := g.Store()
	require.NotNil(t, second)
	require.NotSame(t, first, second)

	_, err := first.Entries(ctx)
	assert.Error(t, err, "the replaced store must be closed")

	_, err = second.Entries(ctx)
	assert.NoError(t, err, "the current store stays usable")

	// leaving Ready releases the handle too
	require.NoError(t, g.SubmitPassword(ctx, ""))
	_, err = second.Entries(ctx)
	assert.Error(t, err)
}

func TestGate_FatalOpenErrorPropagates(t *testing.T) {
	boom := errors.New("disk on fire")
	open := func(ctx context.Context, password []byte) (*store.Store, error) {
		return nil, boom
	}

	ks, err := LoadKeystore(t.TempDir())
	require.NoError(t, err)
	g := NewGate(ks, open, nil, testLogger())

	err = g.SubmitPassword(context.Background(), "pw")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestGate_StartsSyncOncePerPair(t *testing.T) {
	var syncCalls atomic.Int32
	syncFn := func(ctx context.Context, st *store.Store, sess Session) error {
		syncCalls.Add(1)
		return nil
	}

	g := newTestGate(t, t.TempDir(), syncFn)
	ctx := context.Background()

	require.NoError(t, g.SubmitPassword(ctx, "pw"))

	sess := Session{Name: "alice", Token: "tok"}
	g.SetSession(ctx, sess)
	assert.Equal(t, int32(1), syncCalls.Load())

	// same (store, user) pair: no second replication
	g.SetSession(ctx, sess)
	assert.Equal(t, int32(1), syncCalls.Load())

	// a different user does start again
	g.SetSession(ctx, Session{Name: "bob", Token: "tok2"})
	assert.Equal(t, int32(2), syncCalls.Load())
}

func TestGate_SessionBeforeReady_SyncsOnceOpened(t *testing.T) {
	var syncCalls atomic.Int32
	syncFn := func(ctx context.Context, st *store.Store, sess Session) error {
		syncCalls.Add(1)
		return nil
	}

	g := newTestGate(t, t.TempDir(), syncFn)
	ctx := context.Background()

	g.SetSession(ctx, Session{Name: "alice", Token: "tok"})
	assert.Zero(t, syncCalls.Load(), "no sync before the store is ready")

	require.NoError(t, g.SubmitPassword(ctx, "pw"))
	assert.Equal(t, int32(1), syncCalls.Load(), "sync fires when both store and session exist")
}

func TestGate_SyncFailureAllowsRetry(t *testing.T) {
	var syncCalls atomic.Int32
	syncFn := func(ctx context.Context, st *store.Store, sess Session) error {
		if syncCalls.Add(1) == 1 {
			return errors.New("network down")
		}
		return nil
	}

	g := newTestGate(t, t.TempDir(), syncFn)
	ctx := context.Background()

	require.NoError(t, g.SubmitPassword(ctx, "pw"))
	sess := Session{Name: "alice", Token: "tok"}

	g.SetSession(ctx, sess)
	assert.Equal(t, int32(1), syncCalls.Load())

	// the failed pair is not recorded, a later session change retries
	g.SetSession(ctx, sess)
	assert.Equal(t, int32(2), syncCalls.Load())
}
