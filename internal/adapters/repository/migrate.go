package repository

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/srvwb/core/pkg/logger"
)

// sqlMigrator executes embedded .up.sql migration files in lexical order.
// The schema uses IF NOT EXISTS statements throughout, so reapplying on
// every startup is safe without a version table.
type sqlMigrator struct {
	db     *sql.DB
	fsys   fs.FS
	dir    string
	logger logger.Logger
}

func newSQLMigrator(db *sql.DB, fsys fs.FS, dir string, log logger.Logger) *sqlMigrator {
	return &sqlMigrator{db: db, fsys: fsys, dir: dir, logger: log}
}

// Up executes all *.up.sql files found under the migrator's directory.
func (m *sqlMigrator) Up(ctx context.Context) error {
	entries, err := fs.ReadDir(m.fsys, m.dir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	applied := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".up.sql") {
			continue
		}

		name := entry.Name()
		contents, err := fs.ReadFile(m.fsys, path.Join(m.dir, name))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		statements := splitSQLStatements(string(contents))
		if len(statements) == 0 {
			m.logger.Info(ctx, "skipping empty migration", logger.String("file", name))
			continue
		}

		for i, stmt := range statements {
			if _, err := m.db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("exec %s [%d]: %w", name, i+1, err)
			}
		}
		applied++
		m.logger.Info(ctx, "migration applied", logger.String("file", name))
	}

	if applied == 0 {
		m.logger.Info(ctx, "no migrations to run")
	}
	return nil
}

// splitSQLStatements splits a migration file into individual statements.
// Statements in the embedded migrations do not contain literal semicolons.
func splitSQLStatements(sqlText string) []string {
	raw := strings.Split(sqlText, ";")
	out := make([]string, 0, len(raw))
	for _, stmt := range raw {
		trimmed := strings.TrimSpace(stmt)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
