// Package session keeps the in-memory table of Code Maze play sessions.
//
// Each Session owns one engine sequencer for the level being played. IDs are
// four hex characters drawn from crypto/rand and are matched
// case-insensitively, so "A1B2" and "a1b2" name the same session.
//
// The Manager is safe for concurrent use. Sessions that have not been touched
// for longer than the configured TTL are reaped by RunCleanup, which closes
// their sequencer so pending animation timers stop. Nothing is written to
// disk; a restart starts from an empty table.
package session
