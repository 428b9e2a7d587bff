// Package cli implements the interactive journal client: a small REPL over
// the password gate, the local store, and replication.
//
// The REPL mirrors the gate's state machine. While the store is locked only
// "unlock" is available; once a password is accepted the entry and settings
// commands appear, and "login" attaches a sync-server session so replication
// can start.
package cli
