// Package sqlite provides the SQLite-backed currency store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"sync"

	apperrors "github.com/ithrek/syncadapter-currencies/internal/platform/errors"
	sqlitemigrate "github.com/ithrek/syncadapter-currencies/internal/platform/storage/sqlitemigrate"
	"github.com/ithrek/syncadapter-currencies/internal/services/currency/storage"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

const currencyColumns = `_id, name, abbreviation, value, id_backend, is_read`

// Store persists currencies in SQLite. It owns one database handle between
// Open and Close.
type Store struct {
	mu    sync.RWMutex
	sqlDB *sql.DB
	path  string
}

// Open opens (creating if needed) a SQLite currency database and ensures
// its schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	if dir := filepath.Dir(cleanPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeStorageUnavailable, "create storage dir", err)
		}
	}

	dsn := cleanPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorageUnavailable, "open sqlite db", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, apperrors.Wrap(apperrors.CodeStorageUnavailable, "ping sqlite db", err)
	}
	if err := EnsureSchema(context.Background(), sqlDB); err != nil {
		_ = sqlDB.Close()
		// Schema failures on open mean the file cannot be written either.
		return nil, apperrors.Wrap(apperrors.CodeStorageUnavailable, "open currency store", err)
	}
	return &Store{sqlDB: sqlDB, path: cleanPath}, nil
}

// Close releases the SQLite handle. Calling Close more than once is a no-op.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sqlDB == nil {
		return nil
	}
	err := s.sqlDB.Close()
	s.sqlDB = nil
	return err
}

// Path returns the database file path.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Ping verifies the handle is open and the engine answers.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.handle()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return classifyError("ping currency store", err)
	}
	return nil
}

// SchemaVersion returns the applied schema version.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	sqlDB, err := s.handle()
	if err != nil {
		return 0, err
	}
	version, err := sqlitemigrate.SchemaVersion(ctx, sqlDB)
	if err != nil {
		return 0, classifyError("schema version", err)
	}
	return version, nil
}

// InsertCurrency inserts one currency using its caller-supplied id and
// returns the new row id. is_read keeps its column default.
func (s *Store) InsertCurrency(ctx context.Context, currency storage.Currency) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	sqlDB, err := s.handle()
	if err != nil {
		return 0, err
	}

	res, err := sqlDB.ExecContext(
		ctx,
		`INSERT INTO currency (_id, name, abbreviation, value, id_backend) VALUES (?, ?, ?, ?, ?)`,
		currency.ID,
		currency.Name,
		currency.Abbreviation,
		currency.Value,
		currency.BackendID,
	)
	if err != nil {
		return 0, classifyError(fmt.Sprintf("insert currency %d", currency.ID), err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return currency.ID, nil
	}
	return id, nil
}

// DeleteCurrency removes the currency with id and returns the number of
// removed rows. A missing id yields 0.
func (s *Store) DeleteCurrency(ctx context.Context, id int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	sqlDB, err := s.handle()
	if err != nil {
		return 0, err
	}

	res, err := sqlDB.ExecContext(ctx, `DELETE FROM currency WHERE _id = ?`, id)
	if err != nil {
		return 0, classifyError(fmt.Sprintf("delete currency %d", id), err)
	}
	return rowsAffected(fmt.Sprintf("delete currency %d", id), res)
}

// ListCurrencies returns a lazy sequence over every currency in storage
// order. Each range over the sequence runs a fresh query; a failure is
// yielded once as the final element.
func (s *Store) ListCurrencies(ctx context.Context) iter.Seq2[storage.Currency, error] {
	return func(yield func(storage.Currency, error) bool) {
		if err := ctx.Err(); err != nil {
			yield(storage.Currency{}, err)
			return
		}
		sqlDB, err := s.handle()
		if err != nil {
			yield(storage.Currency{}, err)
			return
		}

		rows, err := sqlDB.QueryContext(ctx, `SELECT `+currencyColumns+` FROM currency`)
		if err != nil {
			yield(storage.Currency{}, classifyError("list currencies", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			currency, err := scanCurrency(rows)
			if err != nil {
				yield(storage.Currency{}, classifyError("list currencies", err))
				return
			}
			if !yield(currency, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(storage.Currency{}, classifyError("list currencies", err))
		}
	}
}

// GetCurrency returns the currency with id.
func (s *Store) GetCurrency(ctx context.Context, id int64) (storage.Currency, bool, error) {
	return s.queryOne(
		ctx,
		fmt.Sprintf("get currency %d", id),
		`SELECT `+currencyColumns+` FROM currency WHERE _id = ?`,
		id,
	)
}

// GetLastUnsyncedCurrency returns the pending currency (backend id 0) with
// the highest local id.
func (s *Store) GetLastUnsyncedCurrency(ctx context.Context) (storage.Currency, bool, error) {
	return s.queryOne(
		ctx,
		"get last unsynced currency",
		`SELECT `+currencyColumns+` FROM currency WHERE id_backend = ? ORDER BY _id DESC LIMIT 1`,
		storage.BackendPending,
	)
}

// AcknowledgeUnsyncedCurrencies flips every pending currency to the
// acknowledged sentinel and returns how many rows changed.
func (s *Store) AcknowledgeUnsyncedCurrencies(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	sqlDB, err := s.handle()
	if err != nil {
		return 0, err
	}

	res, err := sqlDB.ExecContext(
		ctx,
		`UPDATE currency SET id_backend = ? WHERE id_backend = ?`,
		storage.BackendAcknowledged,
		storage.BackendPending,
	)
	if err != nil {
		return 0, classifyError("acknowledge unsynced currencies", err)
	}
	return rowsAffected("acknowledge unsynced currencies", res)
}

// GetMostRecentSyncedCurrency returns the currency with the highest backend
// id across all rows. Ties resolve to the highest local id.
func (s *Store) GetMostRecentSyncedCurrency(ctx context.Context) (storage.Currency, bool, error) {
	return s.queryOne(
		ctx,
		"get most recent synced currency",
		`SELECT `+currencyColumns+` FROM currency ORDER BY id_backend DESC, _id DESC LIMIT 1`,
	)
}

// UpdateCurrency overwrites every mutable column of the currency with id and
// returns the number of updated rows.
func (s *Store) UpdateCurrency(ctx context.Context, id int64, currency storage.Currency) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	sqlDB, err := s.handle()
	if err != nil {
		return 0, err
	}

	res, err := sqlDB.ExecContext(
		ctx,
		`UPDATE currency
		    SET name = ?, abbreviation = ?, value = ?, id_backend = ?, is_read = ?
		  WHERE _id = ?`,
		currency.Name,
		currency.Abbreviation,
		currency.Value,
		currency.BackendID,
		boolToInt(currency.IsRead),
		id,
	)
	if err != nil {
		return 0, classifyError(fmt.Sprintf("update currency %d", id), err)
	}
	return rowsAffected(fmt.Sprintf("update currency %d", id), res)
}

func (s *Store) handle() (*sql.DB, error) {
	if s == nil {
		return nil, apperrors.New(apperrors.CodeStorageUnavailable, "currency store is not configured")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.sqlDB == nil {
		return nil, apperrors.New(apperrors.CodeStorageUnavailable, "currency store is closed")
	}
	return s.sqlDB, nil
}

func (s *Store) queryOne(ctx context.Context, op string, query string, args ...any) (storage.Currency, bool, error) {
	if err := ctx.Err(); err != nil {
		return storage.Currency{}, false, err
	}
	sqlDB, err := s.handle()
	if err != nil {
		return storage.Currency{}, false, err
	}

	currency, err := scanCurrency(sqlDB.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Currency{}, false, nil
		}
		return storage.Currency{}, false, classifyError(op, err)
	}
	return currency, true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanCurrency maps one row of currencyColumns. NULL columns from older
// files read as zero values.
func scanCurrency(row rowScanner) (storage.Currency, error) {
	var (
		currency     storage.Currency
		name         sql.NullString
		abbreviation sql.NullString
		value        sql.NullFloat64
		backendID    sql.NullInt64
		isRead       sql.NullInt64
	)
	if err := row.Scan(&currency.ID, &name, &abbreviation, &value, &backendID, &isRead); err != nil {
		return storage.Currency{}, err
	}
	currency.Name = name.String
	currency.Abbreviation = abbreviation.String
	currency.Value = value.Float64
	currency.BackendID = backendID.Int64
	currency.IsRead = isRead.Int64 != 0
	return currency, nil
}

func rowsAffected(op string, res sql.Result) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, classifyError(op, err)
	}
	return n, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

// classifyError maps engine errors onto the storage error kinds. Context
// errors pass through so callers can tell cancellation from failure.
func classifyError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	if isConstraintViolation(err) {
		return apperrors.Wrap(apperrors.CodeConstraintViolation, op, err)
	}
	return apperrors.Wrap(apperrors.CodeStorageUnavailable, op, err)
}

func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()&0xff == sqlite3lib.SQLITE_CONSTRAINT
	}
	return strings.Contains(strings.ToLower(err.Error()), "constraint failed")
}

var _ storage.CurrencyStore = (*Store)(nil)
