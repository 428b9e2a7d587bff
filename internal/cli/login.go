package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gabrielpoca/journal/internal/session"
)

// Login prompts for the sync server credentials and records the session.
// When the store is already unlocked this starts replication against the
// user's remote database; otherwise replication starts on the next unlock.
func (a *App) Login(ctx context.Context) error {
	name, err := getSimpleText(a.reader, "Enter username", os.Stdout)
	if err != nil {
		return err
	}
	token, err := getSimpleText(a.reader, "Enter access token", os.Stdout)
	if err != nil {
		return err
	}

	sess := session.Session{Name: name, Token: token}
	if exp, err := sess.TokenExpiry(); err == nil && time.Until(exp) < time.Hour {
		fmt.Printf("Warning: token expires at %s\n", exp.Format(time.RFC3339))
	}

	a.gate.SetSession(ctx, sess)
	fmt.Printf("Logged in as %s\n", name)
	return nil
}
