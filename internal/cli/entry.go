package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gabrielpoca/journal/internal/common"
	"github.com/gabrielpoca/journal/internal/models"
)

// Add prompts for a date and body and writes a new journal entry. An empty
// date means today; free-form dates are normalized on the way in.
func (a *App) Add(ctx context.Context) error {
	st, err := a.store()
	if err != nil {
		fmt.Println(err.Error())
		return err
	}

	date, err := getSimpleText(a.reader, "Date (empty for today)", os.Stdout)
	if err != nil {
		return err
	}
	if date == "" {
		date = time.Now().Format(models.DateLayout)
	}

	body, err := GetMultiline(a.reader, "Entry text", os.Stdout)
	if err != nil {
		return err
	}

	entry := &models.JournalEntry{Date: date, Body: body}
	if err := st.UpsertEntry(ctx, entry); err != nil {
		fmt.Println(err.Error())
		return err
	}

	fmt.Printf("Saved %s (%s)\n", entry.ID, entry.Date)
	return nil
}

// List prints all entries, newest date first, one line per entry.
func (a *App) List(ctx context.Context) error {
	st, err := a.store()
	if err != nil {
		fmt.Println(err.Error())
		return err
	}

	entries, err := st.Entries(ctx)
	if err != nil {
		fmt.Println(err.Error())
		return err
	}

	for _, e := range entries {
		fmt.Printf("%s  %s  %s\n", e.Date, e.ID, firstLine(e.Body))
	}
	return nil
}

// Show prompts for an entry id and prints the full entry.
func (a *App) Show(ctx context.Context) error {
	st, err := a.store()
	if err != nil {
		fmt.Println(err.Error())
		return err
	}

	id, err := getSimpleText(a.reader, "Entry id", os.Stdout)
	if err != nil {
		return err
	}

	entry, err := st.EntryByID(ctx, id)
	if errors.Is(err, common.ErrNotFound) {
		fmt.Println("No such entry.")
		return nil
	}
	if err != nil {
		fmt.Println(err.Error())
		return err
	}

	fmt.Printf("%s (%s)\n", entry.ID, entry.Date)
	if entry.Latitude != nil && entry.Longitude != nil {
		fmt.Printf("at %.5f,%.5f\n", *entry.Latitude, *entry.Longitude)
	}
	fmt.Println(entry.Body)
	return nil
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	const max = 60
	if len(line) > max {
		return line[:max] + "..."
	}
	return line
}
