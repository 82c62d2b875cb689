package auth

import (
	"context"
	"embed"
	"io/fs"
	"sort"

	"github.com/uptrace/bun"
)

//go:embed data/sql/migrations
var migrationsFS embed.FS

// GetMigrationsFS returns the migration files for this package
func GetMigrationsFS() embed.FS {
	return migrationsFS
}

// RunMigrations applies the embedded schema files in lexical order. Files are
// timestamp prefixed, so lexical order is chronological order.
func RunMigrations(ctx context.Context, db *bun.DB) error {
	entries, err := fs.ReadDir(migrationsFS, "data/sql/migrations")
	if err != nil {
		return err
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		script, err := fs.ReadFile(migrationsFS, "data/sql/migrations/"+name)
		if err != nil {
			return err
		}

		if _, err := db.ExecContext(ctx, string(script)); err != nil {
			return err
		}
	}

	return nil
}
