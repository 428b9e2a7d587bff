package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/gabrielpoca/journal/internal/common"
	"github.com/gabrielpoca/journal/internal/session"
	"github.com/gabrielpoca/journal/internal/store"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

var errLocked = errors.New("store is locked, use 'unlock' first")

// Unlock prompts for the encryption password and hands it to the gate. The
// password is persisted on the device, so the next start unlocks without a
// prompt. A rejected password keeps the gate locked and says so.
func (a *App) Unlock(ctx context.Context) error {
	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeBytes(password)

	if err := a.gate.SubmitPassword(ctx, string(password)); err != nil {
		fmt.Println(err.Error())
		return err
	}

	state, wrong := a.gate.State()
	switch {
	case wrong:
		fmt.Println("Wrong password.")
	case state == session.StateReady:
		fmt.Println("Unlocked!")
		a.importLegacy(ctx)
	}
	return nil
}

// store returns the open store or errLocked.
func (a *App) store() (*store.Store, error) {
	st := a.gate.Store()
	if st == nil {
		return nil, errLocked
	}
	return st, nil
}
