package postgres

import "embed"

// MigrationsDir is the directory inside Migrations that holds the goose files.
const MigrationsDir = "migrations"

// Migrations holds the SQL schema migrations, applied with goose.
//
//go:embed migrations/*.sql
var Migrations embed.FS
