package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	apperrors "github.com/ithrek/syncadapter-currencies/internal/platform/errors"
	sqlitemigrate "github.com/ithrek/syncadapter-currencies/internal/platform/storage/sqlitemigrate"
	"github.com/ithrek/syncadapter-currencies/internal/services/currency/storage/sqlite/migrations"
)

// SchemaError reports that the currency schema could not be created or versioned.
// It matches storage.ErrSchema with errors.Is.
type SchemaError struct {
	// Migration is the failing migration file, empty when the failure was not
	// tied to one file (bookkeeping table, version stamp).
	Migration string
	Err       error
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	if e.Migration == "" {
		return fmt.Sprintf("ensure currency schema: %v", e.Err)
	}
	return fmt.Sprintf("ensure currency schema (%s): %v", e.Migration, e.Err)
}

// Unwrap returns the underlying cause.
func (e *SchemaError) Unwrap() error {
	return e.Err
}

// Is matches any schema-failure domain error.
func (e *SchemaError) Is(target error) bool {
	t, ok := target.(*apperrors.Error)
	return ok && t.Code == apperrors.CodeSchemaFailed
}

// EnsureSchema creates the currency table and its indexes when absent.
// It is idempotent and accepts tables created by earlier clients.
func EnsureSchema(ctx context.Context, sqlDB *sql.DB) error {
	if err := sqlitemigrate.ApplyMigrations(ctx, sqlDB, migrations.FS, ""); err != nil {
		schemaErr := &SchemaError{Err: err}
		var migrationErr *sqlitemigrate.MigrationError
		if errors.As(err, &migrationErr) {
			schemaErr.Migration = migrationErr.File
			schemaErr.Err = migrationErr.Err
		}
		return schemaErr
	}
	return nil
}
