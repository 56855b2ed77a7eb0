// Package jobs persists book generation jobs and their artifacts in SQLite.
//
// A job moves through a closed status machine; transitions outside the table
// are rejected so concurrent writers cannot push a record into a nonsense
// state. Artifact rows are append-only: re-running a stage adds new rows for
// the same deterministic keys and readers take the latest row per page.
package jobs
