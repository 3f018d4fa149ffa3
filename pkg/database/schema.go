package database

import (
	"context"
	"fmt"
	"io/fs"
	"sort"

	schemasql "github.com/DextroByt/Sentinel-AI/pkg/database/sql"
	"github.com/DextroByt/Sentinel-AI/pkg/logging"
)

// ApplySchema executes the embedded schema files against the connection.
// Statements are idempotent (CREATE IF NOT EXISTS) so this runs on every
// startup.
func ApplySchema(ctx context.Context, db PostgresConn, logger logging.Logger) error {
	entries, err := fs.Glob(schemasql.Content, "schema/*.sql")
	if err != nil {
		return fmt.Errorf("list schema files: %w", err)
	}
	sort.Strings(entries)
	for _, name := range entries {
		raw, err := schemasql.Content.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read schema file %s: %w", name, err)
		}
		if _, err := db.ExecContext(ctx, string(raw)); err != nil {
			return fmt.Errorf("apply schema file %s: %w", name, err)
		}
		logger.WithField("file", name).Debug("Applied schema file")
	}
	return nil
}
