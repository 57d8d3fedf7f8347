// Package scheduler runs the classify-and-move pipeline over a worker pool.
//
// # Sizing
//
// A configured worker count is used as-is, capped at the pool maximum. With
// no configured count the base size derives from the file total (one worker
// per thirty files, clamped between two and the maximum). Auto-sized pools
// may grow while every live worker sits in the content phase at once, one
// worker per growth decision, up to four above the base; fixed pools never
// grow.
//
// # Per-task Flow
//
// Each task resolves its subject through the decision cascade, stores the
// result in the pool's path-keyed cache, and hands the cached label to the
// mover. Cached paths skip classification entirely. Failures and panics are
// isolated per task: the file stays in the source directory, the journal
// records the error, and the run continues.
//
// # Draining
//
// Cancelling the run context stops new tasks from starting; in-flight tasks
// finish, queued tasks are recorded as skipped, and the journal run closes
// as aborted.
package scheduler
