// Package postgres provides PostgreSQL-specific implementations for the data
// storage interfaces defined in the internal/store package: generation jobs
// and tasks, generated content, and the read-only employee directory,
// document store and course catalog. It also embeds the goose schema
// migrations and maps driver errors onto store sentinels.
package postgres
