package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gabrielpoca/journal/internal/config"
	"github.com/gabrielpoca/journal/internal/filex"
	"github.com/gabrielpoca/journal/internal/legacy"
	"github.com/gabrielpoca/journal/internal/logging"
	"github.com/gabrielpoca/journal/internal/replication"
	"github.com/gabrielpoca/journal/internal/session"
	"github.com/gabrielpoca/journal/internal/store"
)

// StoreFileName is the sqlite database inside the data directory.
const StoreFileName = "journal.db"

// App wires the journal client together: configuration, the keystore, the
// password gate over the local store, and the replication coordinator.
type App struct {
	config   *config.Config
	dataDir  string
	keystore *session.Keystore
	gate     *session.Gate
	coord    *replication.Coordinator
	log      logging.Logger
	reader   *bufio.Reader
}

// NewApp resolves the data directory and builds the app. The store itself is
// not opened here; the gate does that once a password is available.
func NewApp(cfg *config.Config, log logging.Logger) (*App, error) {
	dataDir := cfg.DataDir
	var err error
	if dataDir == "" {
		dataDir, err = filex.DefaultDataDir()
	} else {
		dataDir, err = filex.EnsureDir(dataDir)
	}
	if err != nil {
		return nil, err
	}

	ks, err := session.LoadKeystore(dataDir)
	if err != nil {
		return nil, err
	}

	coord := replication.NewCoordinator(replication.Options{
		BaseURL:         cfg.RemoteBaseURL,
		LongpollTimeout: cfg.LongpollTimeout,
		PushInterval:    cfg.PushInterval,
		Logger:          log,
	})

	open := func(ctx context.Context, password []byte) (*store.Store, error) {
		return store.Open(ctx, store.Options{
			Path:   filepath.Join(dataDir, StoreFileName),
			Logger: log,
		}, password)
	}

	gate := session.NewGate(ks, open, coord.StartSync, log)

	return &App{
		config:   cfg,
		dataDir:  dataDir,
		keystore: ks,
		gate:     gate,
		coord:    coord,
		log:      log,
		reader:   bufio.NewReader(os.Stdin),
	}, nil
}

// Run initializes the gate from the persisted password and hands control to
// the REPL. Replication and the store are torn down on exit.
func (a *App) Run(ctx context.Context) error {
	defer a.coord.Stop()
	defer func() { _ = a.gate.Close() }()

	if err := a.gate.Init(ctx); err != nil {
		return err
	}
	a.importLegacy(ctx)

	fmt.Println("Journal CLI (type 'help' for commands)")
	runREPL(ctx, a, a.status, bufio.NewScanner(os.Stdin))
	return nil
}

func (a *App) isUnlocked() bool {
	state, _ := a.gate.State()
	return state == session.StateReady
}

func (a *App) status() string {
	state, wrong := a.gate.State()
	if state == session.StateNeedsPassword && wrong {
		return "wrong password"
	}
	return state.String()
}

// importLegacy runs the one-time entry import once the store is open. A
// failure is logged and retried on the next unlock; the completion flag only
// moves forward on success.
func (a *App) importLegacy(ctx context.Context) {
	st := a.gate.Store()
	if st == nil {
		return
	}
	export := filepath.Join(a.dataDir, legacy.ExportFileName)
	if err := legacy.RunOnce(ctx, a.keystore, st, export, a.log); err != nil {
		a.log.Error(ctx, "legacy import failed", "error", err)
	}
}
