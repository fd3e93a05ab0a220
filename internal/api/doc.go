// Package api handles incoming HTTP requests, routing, request validation,
// and response formatting. It adapts the generation job and content
// services to JSON endpoints under /api.
//
// Every response carries a boolean "success" field; errors are mapped to
// status codes by MapErrorToStatusCode and never expose internal detail.
package api
