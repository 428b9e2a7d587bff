package cli

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/gabrielpoca/journal/internal/config"
	"github.com/gabrielpoca/journal/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubInput replaces the interactive seams with queued responses.
func stubInput(t *testing.T, password string, texts ...string) {
	t.Helper()

	origPassword := getPassword
	origText := getSimpleText
	t.Cleanup(func() {
		getPassword = origPassword
		getSimpleText = origText
	})

	getPassword = func(io.Writer) ([]byte, error) {
		return []byte(password), nil
	}
	getSimpleText = func(*bufio.Reader, string, io.Writer) (string, error) {
		if len(texts) == 0 {
			return "", io.EOF
		}
		next := texts[0]
		texts = texts[1:]
		return next, nil
	}
}

func newTestApp(t *testing.T) *App {
	t.Helper()

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.DataDir = t.TempDir()

	app, err := NewApp(cfg, logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil))))
	require.NoError(t, err)
	t.Cleanup(func() {
		app.coord.Stop()
		_ = app.gate.Close()
	})

	require.NoError(t, app.gate.Init(context.Background()))
	return app
}

func TestApp_CommandsRequireUnlock(t *testing.T) {
	app := newTestApp(t)

	assert.False(t, app.isUnlocked())
	assert.ErrorIs(t, app.List(context.Background()), errLocked)
	assert.ErrorIs(t, app.Settings(context.Background()), errLocked)
}

func TestApp_UnlockAddShow(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	stubInput(t, "pw", "2024-05-06")
	app.reader = bufio.NewReader(strings.NewReader("dear diary\n\n"))

	require.NoError(t, app.Unlock(ctx))
	require.True(t, app.isUnlocked())

	require.NoError(t, app.Add(ctx))

	st, err := app.store()
	require.NoError(t, err)
	entries, err := st.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "2024-05-06", entries[0].Date)
	assert.Equal(t, "dear diary", entries[0].Body)

	// show resolves the freshly created id
	stubInput(t, "pw", entries[0].ID)
	assert.NoError(t, app.Show(ctx))
}

func TestApp_SetAndSettings(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	stubInput(t, "pw", "theme", "dark")
	require.NoError(t, app.Unlock(ctx))
	require.NoError(t, app.Set(ctx))

	st, err := app.store()
	require.NoError(t, err)
	v, err := st.SettingByID(ctx, "theme")
	require.NoError(t, err)
	assert.Equal(t, "dark", v.Value)
}

func TestApp_UnlockPersistsPassword(t *testing.T) {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.DataDir = t.TempDir()
	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	app, err := NewApp(cfg, log)
	require.NoError(t, err)
	require.NoError(t, app.gate.Init(context.Background()))

	stubInput(t, "pw")
	require.NoError(t, app.Unlock(context.Background()))
	require.NoError(t, app.gate.Close())
	app.coord.Stop()

	// a fresh app over the same data dir unlocks during Init
	app2, err := NewApp(cfg, log)
	require.NoError(t, err)
	t.Cleanup(func() {
		app2.coord.Stop()
		_ = app2.gate.Close()
	})

	require.NoError(t, app2.gate.Init(context.Background()))
	assert.True(t, app2.isUnlocked())
}
