// Package models defines the document types persisted by the local store
// and replicated to the remote database.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Model type discriminators. Both collections share one replication feed on
// the remote side; the discriminator is what the filter views select on.
const (
	ModelTypeJournalEntry = "journalEntry"
	ModelTypeSetting      = "setting"
)

// DateLayout is the only representation a journal entry date is ever
// persisted in.
const DateLayout = "2006-01-02"

// JournalEntry is a single journal entry. Body holds plaintext in memory;
// it is sealed by the store's encryption boundary before touching disk or
// the wire.
type JournalEntry struct {
	ID        string   `json:"id"`
	Date      string   `json:"date"`
	Body      string   `json:"body"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	ModelType string   `json:"modelType"`
}

// dateLayouts are the representations writers have historically supplied.
// Normalization reduces all of them to DateLayout.
var dateLayouts = []string{
	DateLayout,
	time.RFC3339,
	"2006-01-02T15:04:05.999Z0700",
	"2006/01/02",
	"2006/1/2",
	"2006-1-2",
	"2006.01.02",
	"Jan 2, 2006",
}

// NormalizeDate reformats any parseable date representation to DateLayout.
// Values that already match the layout are returned unchanged; values no
// layout can parse are returned as-is rather than destroyed.
func NormalizeDate(s string) string {
	if _, err := time.Parse(DateLayout, s); err == nil {
		return s
	}
	for _, layout := range dateLayouts[1:] {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(DateLayout)
		}
	}
	return s
}

// Normalize enforces the entry invariants on both creation and update paths:
// a missing id gets a fresh UUID, the date is reduced to DateLayout, and the
// discriminator is pinned.
func (e *JournalEntry) Normalize() {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.Date = NormalizeDate(e.Date)
	e.ModelType = ModelTypeJournalEntry
}
