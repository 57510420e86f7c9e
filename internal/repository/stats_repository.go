package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RequestRecord is one takeaway request to be recorded in the ledger.
type RequestRecord struct {
	CodePrefix       string
	RequestTime      time.Time
	Language         string
	SelectedQueue    string
	RSLibrary        string
	UserGroup        string
	HasISBN          bool
	ISBNCount        int
	MatchedLibraries []string
}

// DailyStat is one day's aggregate for a destination queue.
type DailyStat struct {
	Date         string
	Queue        string
	RequestCount int
	ISBNCount    int
}

// StatsRepository is the takeaway statistics ledger. It is an injectable
// sink: the decision logic never depends on it.
type StatsRepository interface {
	// RecordRequest stores one request and returns its human-readable
	// code, "<day-of-month>-<sequence>" with the sequence scoped to the
	// prefix.
	RecordRequest(ctx context.Context, record RequestRecord) (string, error)
	// DailyStats returns the aggregates for one date.
	DailyStats(ctx context.Context, date time.Time) ([]DailyStat, error)
}

type statsRepository struct {
	pool *pgxpool.Pool
}

// NewStatsRepository instantiates the ledger over a pgx pool.
func NewStatsRepository(pool *pgxpool.Pool) StatsRepository {
	return &statsRepository{pool: pool}
}

func (r *statsRepository) RecordRequest(ctx context.Context, record RequestRecord) (string, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var codeNo int
	const seqQuery = `
        SELECT COALESCE(MAX(code_no), 0) + 1 FROM takeaway_requests WHERE code_prefix = $1`
	if err := tx.QueryRow(ctx, seqQuery, record.CodePrefix).Scan(&codeNo); err != nil {
		return "", err
	}

	const insertQuery = `
        INSERT INTO takeaway_requests
            (code_prefix, code_no, request_time, language, selected_lib, rs_lib, user_group, with_isbn, isbn_count, isbn_libs)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`
	if _, err := tx.Exec(ctx, insertQuery,
		record.CodePrefix,
		codeNo,
		record.RequestTime,
		record.Language,
		record.SelectedQueue,
		record.RSLibrary,
		record.UserGroup,
		record.HasISBN,
		record.ISBNCount,
		record.MatchedLibraries,
	); err != nil {
		return "", err
	}

	const upsertQuery = `
        INSERT INTO takeaway_daily (request_date, selected_lib, request_count, isbn_count)
        VALUES (CURRENT_DATE, $1, 1, $2)
        ON CONFLICT (request_date, selected_lib)
        DO UPDATE SET request_count = takeaway_daily.request_count + 1,
                      isbn_count = takeaway_daily.isbn_count + $2`
	if _, err := tx.Exec(ctx, upsertQuery, record.SelectedQueue, record.ISBNCount); err != nil {
		return "", err
	}

	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%03d", record.CodePrefix, codeNo), nil
}

func (r *statsRepository) DailyStats(ctx context.Context, date time.Time) ([]DailyStat, error) {
	const query = `
        SELECT request_date::text, selected_lib, request_count, isbn_count
        FROM takeaway_daily
        WHERE request_date = $1
        ORDER BY selected_lib`
	rows, err := r.pool.Query(ctx, query, date.Format("2006-01-02"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []DailyStat
	for rows.Next() {
		var stat DailyStat
		if err := rows.Scan(&stat.Date, &stat.Queue, &stat.RequestCount, &stat.ISBNCount); err != nil {
			return nil, err
		}
		stats = append(stats, stat)
	}
	return stats, rows.Err()
}
