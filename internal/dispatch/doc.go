// Package dispatch is the task-queue transport between pipeline phases.
//
// Tasks are rows in SQLite; workers poll and claim them with a
// compare-and-swap so two workers never run the same task. Enqueue prefers
// the caller's queue hint and falls back to the default queue rather than
// losing work when the preferred enqueue path fails.
package dispatch
