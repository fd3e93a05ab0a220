// Package events decouples job orchestration from task execution.
//
// The orchestrator emits a TaskRequestEvent for each task it wants run; the
// task package registers a handler that turns the event into an executable
// task and submits it to the worker pool. Neither side imports the other.
//
// The primary components are:
//   - TaskRequestEvent: a typed request carrying a JSON payload
//   - EventHandler: implemented by consumers of a given event type
//   - EventEmitter: implemented by InMemoryEventEmitter, which routes events by type
package events
