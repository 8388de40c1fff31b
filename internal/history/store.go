// Package history keeps a DuckDB-backed log of settled conversions.
package history

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/excel-to-json/backend/internal/models"
	"github.com/marcboeker/go-duckdb"
)

// DefaultRecentLimit is used when Recent is called without a positive limit.
const DefaultRecentLimit = 20

// Store records conversion attempts in a conversions table.
type Store struct {
	db     *sql.DB
	dbPath string
}

// Open opens or creates the history database at dbPath.
func Open(dbPath string) (*Store, error) {
	fmt.Printf("[History] Opening database at: %s\n", dbPath)

	connector, err := duckdb.NewConnector(dbPath, func(execer driver.ExecerContext) error {
		pragmas := []string{
			"PRAGMA memory_limit='256MB'",
			"PRAGMA threads=2",
			"PRAGMA enable_progress_bar=false",
		}
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				fmt.Printf("[History] Pragma error: %v\n", err)
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create DuckDB connector: %w", err)
	}

	db := sql.OpenDB(connector)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS conversions (
			id           VARCHAR PRIMARY KEY,
			session_id   VARCHAR NOT NULL,
			file_name    VARCHAR NOT NULL,
			origin       VARCHAR NOT NULL,
			state        VARCHAR NOT NULL,
			error_msg    VARCHAR,
			duration_ms  BIGINT NOT NULL,
			result_bytes BIGINT NOT NULL,
			created_at   BIGINT NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &Store{db: db, dbPath: dbPath}, nil
}

// Record inserts one settled conversion.
func (s *Store) Record(ctx context.Context, rec models.ConversionRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversions
			(id, session_id, file_name, origin, state, error_msg, duration_ms, result_bytes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.SessionID, rec.FileName, string(rec.Origin), string(rec.State),
		rec.Error, rec.DurationMs, rec.ResultBytes, rec.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("recording conversion %s: %w", rec.ID, err)
	}
	return nil
}

// Recent returns the latest records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]models.ConversionRecord, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	query := fmt.Sprintf(`
		SELECT id, session_id, file_name, origin, state, error_msg, duration_ms, result_bytes, created_at
		FROM conversions
		ORDER BY created_at DESC, id
		LIMIT %d`, limit)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying conversions: %w", err)
	}
	defer rows.Close()

	records := make([]models.ConversionRecord, 0, limit)
	for rows.Next() {
		var (
			rec       models.ConversionRecord
			origin    string
			state     string
			errText   sql.NullString
			createdAt int64
		)
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.FileName, &origin, &state,
			&errText, &rec.DurationMs, &rec.ResultBytes, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning conversion: %w", err)
		}
		rec.Origin = models.Origin(origin)
		rec.State = models.RequestState(state)
		rec.Error = errText.String
		rec.CreatedAt = time.UnixMilli(createdAt).UTC()
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Count returns the number of recorded conversions and how many of them failed.
func (s *Store) Count(ctx context.Context) (total, failed int, err error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE state = ?)
		FROM conversions`, string(models.RequestStateFailed))
	if err := row.Scan(&total, &failed); err != nil {
		return 0, 0, fmt.Errorf("counting conversions: %w", err)
	}
	return total, failed, nil
}

// Close closes the database. The file is kept.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
