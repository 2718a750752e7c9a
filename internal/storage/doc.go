// Package storage persists the rift schedule.
//
// Two drivers are available behind the same Store interface:
//   - "file":   a JSON array of "YYYY-MM-DD HH:MM" strings, rewritten
//     wholesale after every mutation
//   - "sqlite": a single-table database for deployments that already
//     ship sqlite
//
// The in-memory schedule stays authoritative: a failed Save is surfaced to
// the caller but never rolls back the mutation that triggered it.
package storage
