package persistence

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// ledgerSchema holds the takeaway statistics tables: one row per request
// plus daily aggregates per destination queue.
var ledgerSchema = []string{
	`CREATE TABLE IF NOT EXISTS takeaway_requests (
        id BIGSERIAL PRIMARY KEY,
        code_prefix TEXT NOT NULL,
        code_no INT NOT NULL,
        request_time TIMESTAMPTZ NOT NULL,
        language TEXT,
        selected_lib TEXT NOT NULL,
        rs_lib TEXT,
        user_group TEXT,
        with_isbn BOOLEAN NOT NULL DEFAULT FALSE,
        isbn_count INT NOT NULL DEFAULT 0,
        isbn_libs TEXT[],
        UNIQUE (code_prefix, code_no)
    )`,
	`CREATE TABLE IF NOT EXISTS takeaway_daily (
        request_date DATE NOT NULL,
        selected_lib TEXT NOT NULL,
        request_count INT NOT NULL DEFAULT 0,
        isbn_count INT NOT NULL DEFAULT 0,
        PRIMARY KEY (request_date, selected_lib)
    )`,
}

// RunMigrations creates the ledger tables when missing.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) error {
	if pool == nil {
		return nil
	}
	for _, statement := range ledgerSchema {
		if _, err := pool.Exec(ctx, statement); err != nil {
			return err
		}
	}
	logger.Info("ledger schema up to date")
	return nil
}
