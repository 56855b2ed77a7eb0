// Package worker runs the polling loop that drains the task queue.
//
// A worker claims one task at a time, hands it to the pipeline, and settles
// the outcome: completed, requeued for retry, or permanently failed when the
// error is one no retry can fix. A file lock keeps a host to a single worker
// process so two instances never split the queue.
package worker
