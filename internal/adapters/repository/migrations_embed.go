package repository

import (
	"embed"
	"io/fs"
)

//go:embed migrations/*.up.sql
var embeddedMigrations embed.FS

// migrationsFS returns the filesystem holding the schema migrations.
func migrationsFS() fs.FS {
	return embeddedMigrations
}
