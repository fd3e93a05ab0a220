// Package store declares the persistence ports of the generation pipeline:
// jobs and their per-employee tasks, generated course content, and the
// read-only employee directory, document library and course catalog.
//
// Implementations live in internal/platform/postgres and, for tests,
// internal/mocks. Stores report missing or conflicting records with the
// sentinel errors in errors.go; callers match them with errors.Is.
package store
