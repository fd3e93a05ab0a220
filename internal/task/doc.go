// Package task runs per-employee generation work in the background.
//
// A TaskRunner drives a fixed pool of workers over a bounded in-memory queue.
// Task records live in the database, so the queue holds only what this
// process is about to run; anything undispatched at shutdown stays queued in
// the store and is picked up again on the next start. PersonalizationTask is
// the one task type: it generates and stores one employee's course.
package task
