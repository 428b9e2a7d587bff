package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/gabrielpoca/journal/internal/models"
)

// Set prompts for a setting key and value and writes it. Settings replicate
// like entries, so a value set here follows the user to other devices.
func (a *App) Set(ctx context.Context) error {
	st, err := a.store()
	if err != nil {
		fmt.Println(err.Error())
		return err
	}

	id, err := getSimpleText(a.reader, "Setting key", os.Stdout)
	if err != nil {
		return err
	}
	value, err := getSimpleText(a.reader, "Value", os.Stdout)
	if err != nil {
		return err
	}

	if err := st.UpsertSetting(ctx, &models.Setting{ID: id, Value: value}); err != nil {
		fmt.Println(err.Error())
		return err
	}

	fmt.Println("Saved.")
	return nil
}

// Settings prints all settings, one per line.
func (a *App) Settings(ctx context.Context) error {
	st, err := a.store()
	if err != nil {
		fmt.Println(err.Error())
		return err
	}

	settings, err := st.Settings(ctx)
	if err != nil {
		fmt.Println(err.Error())
		return err
	}

	for _, v := range settings {
		fmt.Printf("%s = %s\n", v.ID, v.Value)
	}
	return nil
}
