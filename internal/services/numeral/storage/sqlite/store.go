// Package sqlite provides a SQLite-backed conversion storage implementation.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	sqlitemigrate "github.com/louisbranch/numeral.space/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/numeral.space/internal/services/numeral/storage"
	"github.com/louisbranch/numeral.space/internal/services/numeral/storage/sqlite/migrations"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// Store persists conversions in SQLite. First-write-wins is enforced by
// the unique constraints on both the arabic and roman columns: the insert
// handles the arabic conflict inline with ON CONFLICT DO NOTHING, and the
// roman-side unique violation is caught and treated as a successful no-op.
// SQLite cannot target two alternative conflict columns in one statement,
// hence the two layers.
type Store struct {
	sqlDB *sql.DB
	clock func() time.Time
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite conversion store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// SQLite allows a single writer; one connection keeps concurrent
	// saves queued in-process instead of failing with SQLITE_BUSY.
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, clock: time.Now}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// SaveConversion inserts one bidirectional record. First write wins: a
// conflict on either the arabic or the roman column leaves the existing
// record untouched and returns nil. Any other constraint violation
// propagates; it indicates corrupt data, not a lost race.
func (s *Store) SaveConversion(ctx context.Context, conversion storage.Conversion) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if conversion.Arabic <= 0 {
		return fmt.Errorf("arabic value must be greater than zero")
	}
	roman := strings.TrimSpace(conversion.Roman)
	if roman == "" {
		return fmt.Errorf("roman value is required")
	}
	createdAt := conversion.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = s.clock().UTC()
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO conversions (arabic, roman, created_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(arabic) DO NOTHING`,
		conversion.Arabic,
		roman,
		toMillis(createdAt),
	)
	if err != nil {
		if isRomanUniqueViolation(err) {
			return nil
		}
		return fmt.Errorf("save conversion: %w", err)
	}
	return nil
}

// FindByArabic returns the conversion mapped to an Arabic value.
func (s *Store) FindByArabic(ctx context.Context, arabic int) (storage.Conversion, error) {
	if err := ctx.Err(); err != nil {
		return storage.Conversion{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Conversion{}, fmt.Errorf("storage is not configured")
	}
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT arabic, roman, created_at FROM conversions WHERE arabic = ?`,
		arabic,
	)
	return scanConversion(row, "find by arabic")
}

// FindByRoman returns the conversion mapped to a Roman numeral.
func (s *Store) FindByRoman(ctx context.Context, roman string) (storage.Conversion, error) {
	if err := ctx.Err(); err != nil {
		return storage.Conversion{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Conversion{}, fmt.Errorf("storage is not configured")
	}
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT arabic, roman, created_at FROM conversions WHERE roman = ?`,
		strings.TrimSpace(roman),
	)
	return scanConversion(row, "find by roman")
}

// ListConversions returns one offset/limit window ordered ascending by
// Arabic value. The count and the page run as two independent queries, so
// Total and Conversions can disagree momentarily under concurrent
// inserts.
func (s *Store) ListConversions(ctx context.Context, limit, offset int) (storage.ConversionPage, error) {
	if err := ctx.Err(); err != nil {
		return storage.ConversionPage{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.ConversionPage{}, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		return storage.ConversionPage{}, fmt.Errorf("limit must be greater than zero")
	}
	if offset < 0 {
		return storage.ConversionPage{}, fmt.Errorf("offset must not be negative")
	}

	page := storage.ConversionPage{
		Conversions: make([]storage.Conversion, 0, limit),
		Limit:       limit,
		Offset:      offset,
	}

	row := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM conversions`)
	if err := row.Scan(&page.Total); err != nil {
		return storage.ConversionPage{}, fmt.Errorf("count conversions: %w", err)
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT arabic, roman, created_at
		   FROM conversions
		  ORDER BY arabic ASC
		  LIMIT ? OFFSET ?`,
		limit,
		offset,
	)
	if err != nil {
		return storage.ConversionPage{}, fmt.Errorf("list conversions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var conversion storage.Conversion
		var createdAt int64
		if err := rows.Scan(&conversion.Arabic, &conversion.Roman, &createdAt); err != nil {
			return storage.ConversionPage{}, fmt.Errorf("list conversions: %w", err)
		}
		conversion.CreatedAt = fromMillis(createdAt)
		page.Conversions = append(page.Conversions, conversion)
	}
	if err := rows.Err(); err != nil {
		return storage.ConversionPage{}, fmt.Errorf("list conversions: %w", err)
	}
	return page, nil
}

// ClearConversions removes every record and returns how many were removed.
func (s *Store) ClearConversions(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM conversions`)
	if err != nil {
		return 0, fmt.Errorf("clear conversions: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clear conversions: %w", err)
	}
	return removed, nil
}

// HealthCheck pings the database.
func (s *Store) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if err := s.sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping sqlite db: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversion(row rowScanner, op string) (storage.Conversion, error) {
	var conversion storage.Conversion
	var createdAt int64
	err := row.Scan(&conversion.Arabic, &conversion.Roman, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Conversion{}, storage.ErrNotFound
		}
		return storage.Conversion{}, fmt.Errorf("%s: %w", op, err)
	}
	conversion.CreatedAt = fromMillis(createdAt)
	return conversion, nil
}

// isRomanUniqueViolation reports whether err is the unique violation on
// the roman column specifically. The arabic conflict is absorbed by the
// ON CONFLICT clause, so this is the only constraint error SaveConversion
// may swallow; anything else is a genuine integrity problem.
func isRomanUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
		default:
			return false
		}
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "unique constraint failed") &&
		strings.Contains(message, "conversions.roman")
}

var _ storage.ConversionStore = (*Store)(nil)
