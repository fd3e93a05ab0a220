// Package service contains the application use cases: creating bulk
// generation jobs, dispatching their tasks, aggregating job outcomes and
// answering status and regeneration requests.
//
// Services depend on the store interfaces and the event emitter, never on a
// concrete database or transport. Errors returned to callers wrap one of the
// sentinels in errors.go so the API layer can map them to status codes.
package service
