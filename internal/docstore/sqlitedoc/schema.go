package sqlitedoc

import (
	"context"
	_ "embed"
	"fmt"
)

//go:embed schema.sql
var schemaSQL string

const schemaVersion = 1

func (s *Store) initSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	var version int
	err := s.db.QueryRowContext(ctx, `SELECT version FROM schema_version LIMIT 1`).Scan(&version)
	if err != nil {
		if _, insErr := s.db.ExecContext(ctx, `INSERT INTO schema_version (version) VALUES (?)`, schemaVersion); insErr != nil {
			return fmt.Errorf("record schema version: %w", insErr)
		}
		return nil
	}
	if version != schemaVersion {
		return fmt.Errorf("unsupported schema version %d (expected %d)", version, schemaVersion)
	}
	return nil
}
