// Package storage defines persistence contracts for the synchronized currency list.
package storage

import (
	"context"
	"iter"

	apperrors "github.com/ithrek/syncadapter-currencies/internal/platform/errors"
)

var (
	// ErrStorageUnavailable indicates the engine is closed, unreadable or failed I/O.
	ErrStorageUnavailable = apperrors.New(apperrors.CodeStorageUnavailable, "storage unavailable")
	// ErrConstraintViolation indicates the engine rejected a write, e.g. a duplicate id.
	ErrConstraintViolation = apperrors.New(apperrors.CodeConstraintViolation, "constraint violation")
	// ErrSchema indicates the currency table could not be created or versioned.
	ErrSchema = apperrors.New(apperrors.CodeSchemaFailed, "schema unavailable")
)

// Backend id sentinels. Any positive value is a backend-assigned id.
const (
	// BackendPending marks a row received locally but not yet assigned by the backend.
	BackendPending int64 = 0
	// BackendAcknowledged marks a pending row whose status was bulk-cleared.
	BackendAcknowledged int64 = -1
)

// SyncState classifies a currency by its backend id.
type SyncState int

const (
	SyncStateUnknown SyncState = iota
	SyncStatePending
	SyncStateAcknowledged
	SyncStateSynced
)

// String returns the lower-case state name.
func (s SyncState) String() string {
	switch s {
	case SyncStatePending:
		return "pending"
	case SyncStateAcknowledged:
		return "acknowledged"
	case SyncStateSynced:
		return "synced"
	default:
		return "unknown"
	}
}

// Currency is one row of the currency table. ID is supplied by the caller.
type Currency struct {
	ID           int64
	BackendID    int64
	Name         string
	Abbreviation string
	Value        float64
	IsRead       bool
}

// SyncState reports the currency's position in the pending/acknowledged/synced cycle.
func (c Currency) SyncState() SyncState {
	switch {
	case c.BackendID == BackendPending:
		return SyncStatePending
	case c.BackendID == BackendAcknowledged:
		return SyncStateAcknowledged
	case c.BackendID > 0:
		return SyncStateSynced
	default:
		return SyncStateUnknown
	}
}

// CurrencyStore persists currency records keyed by caller-supplied ids.
//
// Single-row lookups report a missing row with found=false and a nil error.
type CurrencyStore interface {
	InsertCurrency(ctx context.Context, currency Currency) (int64, error)
	DeleteCurrency(ctx context.Context, id int64) (int64, error)
	ListCurrencies(ctx context.Context) iter.Seq2[Currency, error]
	GetCurrency(ctx context.Context, id int64) (Currency, bool, error)
	GetLastUnsyncedCurrency(ctx context.Context) (Currency, bool, error)
	AcknowledgeUnsyncedCurrencies(ctx context.Context) (int64, error)
	GetMostRecentSyncedCurrency(ctx context.Context) (Currency, bool, error)
	UpdateCurrency(ctx context.Context, id int64, currency Currency) (int64, error)
}
