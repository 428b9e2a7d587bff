// Package common defines shared constants and sentinel errors used across
// the journal data layer. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Store errors.
	ErrWrongPassword = errors.New("wrong encryption password")
	ErrNotFound      = errors.New("not found")
	// ErrInvalidDocument marks a document that can never be stored (e.g. no
	// id). Replication skips such documents instead of retrying them.
	ErrInvalidDocument = errors.New("invalid document")

	// Migration errors. A missing or non-contiguous migration step is a
	// deployment bug, fatal at collection-setup time.
	ErrMigrationConfig = errors.New("invalid migration configuration")

	// Replication errors. View setup is best-effort and only logged;
	// ErrReplication is surfaced when replication cannot be established.
	ErrRemoteViewSetup = errors.New("remote view setup failed")
	ErrReplication     = errors.New("replication failed")

	// Session errors.
	ErrInvalidToken = errors.New("invalid session token")
)
