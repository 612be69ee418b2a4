package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS video_uploads (
        id           TEXT PRIMARY KEY,
        filename     TEXT NOT NULL DEFAULT '',
        content_type TEXT NOT NULL DEFAULT '',
        size_bytes   BIGINT NOT NULL DEFAULT 0,
        provider     TEXT NOT NULL,
        subject      TEXT NOT NULL DEFAULT '',
        status       TEXT NOT NULL CHECK (status IN ('pending', 'completed', 'failed')),
        secure_url   TEXT,
        public_id    TEXT,
        error        TEXT,
        created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
        updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
    )`,
	`ALTER TABLE video_uploads ADD COLUMN IF NOT EXISTS subject TEXT NOT NULL DEFAULT ''`,
	`CREATE INDEX IF NOT EXISTS video_uploads_status_idx ON video_uploads (status, created_at DESC)`,
}

// EnsureSchema aplica o schema do ledger de uploads de forma idempotente.
func EnsureSchema(ctx context.Context, db Beginner) error {
	return WithTx(ctx, db, func(ctx context.Context, tx pgx.Tx) error {
		for i, stmt := range schema {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("schema[%d]: %w", i, err)
			}
		}
		return nil
	})
}
