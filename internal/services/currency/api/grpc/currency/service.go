package currency

import (
	"context"
	"errors"
	"strconv"

	apperrors "github.com/ithrek/syncadapter-currencies/internal/platform/errors"
	"github.com/ithrek/syncadapter-currencies/internal/services/currency/storage"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const defaultLocale = "en-US"

// Service exposes currency.v1 gRPC operations.
//
// Ids travel as Struct numbers, so rows whose id or backend id lies beyond
// ±2^53 are refused with codes.OutOfRange instead of being rounded.
type Service struct {
	store storage.CurrencyStore
}

// NewService creates a currency service backed by currency storage.
func NewService(store storage.CurrencyStore) *Service {
	return &Service{store: store}
}

var _ CurrencyServiceServer = (*Service)(nil)

// InsertCurrency stores one fully-populated currency and returns its id.
func (s *Service) InsertCurrency(ctx context.Context, in *structpb.Struct) (*wrapperspb.Int64Value, error) {
	if in == nil {
		return nil, status.Error(codes.InvalidArgument, "insert currency request is required")
	}
	if err := s.ready(); err != nil {
		return nil, err
	}
	record, err := CurrencyFromStruct(in, insertFields...)
	if err != nil {
		return nil, toStatus("insert currency", err)
	}
	id, err := s.store.InsertCurrency(ctx, record)
	if err != nil {
		return nil, toStatus("insert currency", err)
	}
	return wrapperspb.Int64(id), nil
}

// DeleteCurrency removes the currency with the given id and returns the removed row count.
func (s *Service) DeleteCurrency(ctx context.Context, in *wrapperspb.Int64Value) (*wrapperspb.Int64Value, error) {
	if in == nil {
		return nil, status.Error(codes.InvalidArgument, "currency id is required")
	}
	if err := s.ready(); err != nil {
		return nil, err
	}
	removed, err := s.store.DeleteCurrency(ctx, in.GetValue())
	if err != nil {
		return nil, toStatus("delete currency", err)
	}
	return wrapperspb.Int64(removed), nil
}

// ListCurrencies streams every stored currency.
func (s *Service) ListCurrencies(_ *emptypb.Empty, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	if err := s.ready(); err != nil {
		return err
	}
	for record, err := range s.store.ListCurrencies(stream.Context()) {
		if err != nil {
			return toStatus("list currencies", err)
		}
		out, err := encodeCurrency("list currencies", record)
		if err != nil {
			return err
		}
		if err := stream.Send(out); err != nil {
			return err
		}
	}
	return nil
}

// GetCurrency returns the currency with the given id.
func (s *Service) GetCurrency(ctx context.Context, in *wrapperspb.Int64Value) (*structpb.Struct, error) {
	if in == nil {
		return nil, status.Error(codes.InvalidArgument, "currency id is required")
	}
	if err := s.ready(); err != nil {
		return nil, err
	}
	record, found, err := s.store.GetCurrency(ctx, in.GetValue())
	if err != nil {
		return nil, toStatus("get currency", err)
	}
	if !found {
		return nil, toStatus("get currency", apperrors.WithMetadata(apperrors.CodeNotFound, "currency not found", map[string]string{
			"id": strconv.FormatInt(in.GetValue(), 10),
		}))
	}
	return encodeCurrency("get currency", record)
}

// GetLastUnsyncedCurrency returns the newest currency still awaiting a backend id.
func (s *Service) GetLastUnsyncedCurrency(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	record, found, err := s.store.GetLastUnsyncedCurrency(ctx)
	if err != nil {
		return nil, toStatus("get last unsynced currency", err)
	}
	if !found {
		return nil, toStatus("get last unsynced currency", apperrors.New(apperrors.CodeNotFound, "no unsynced currency"))
	}
	return encodeCurrency("get last unsynced currency", record)
}

// AcknowledgeUnsyncedCurrencies marks every pending currency as acknowledged.
func (s *Service) AcknowledgeUnsyncedCurrencies(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.Int64Value, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	changed, err := s.store.AcknowledgeUnsyncedCurrencies(ctx)
	if err != nil {
		return nil, toStatus("acknowledge unsynced currencies", err)
	}
	return wrapperspb.Int64(changed), nil
}

// GetMostRecentSyncedCurrency returns the currency with the largest backend id.
func (s *Service) GetMostRecentSyncedCurrency(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	record, found, err := s.store.GetMostRecentSyncedCurrency(ctx)
	if err != nil {
		return nil, toStatus("get most recent synced currency", err)
	}
	if !found {
		return nil, toStatus("get most recent synced currency", apperrors.New(apperrors.CodeNotFound, "no currency stored"))
	}
	return encodeCurrency("get most recent synced currency", record)
}

// UpdateCurrency overwrites the row with the given id and returns the changed row count.
func (s *Service) UpdateCurrency(ctx context.Context, in *structpb.Struct) (*wrapperspb.Int64Value, error) {
	if in == nil {
		return nil, status.Error(codes.InvalidArgument, "update currency request is required")
	}
	if err := s.ready(); err != nil {
		return nil, err
	}
	id, record, err := decodeUpdateRequest(in)
	if err != nil {
		return nil, toStatus("update currency", err)
	}
	changed, err := s.store.UpdateCurrency(ctx, id, record)
	if err != nil {
		return nil, toStatus("update currency", err)
	}
	return wrapperspb.Int64(changed), nil
}

func encodeCurrency(op string, record storage.Currency) (*structpb.Struct, error) {
	if err := CheckRepresentable(record); err != nil {
		return nil, toStatus(op, err)
	}
	return CurrencyToStruct(record), nil
}

func (s *Service) ready() error {
	if s == nil || s.store == nil {
		return status.Error(codes.Internal, "currency store is not configured")
	}
	return nil
}

// toStatus maps storage and domain errors onto gRPC statuses.
func toStatus(op string, err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return status.Errorf(codes.Canceled, "%s: %v", op, err)
	case errors.Is(err, context.DeadlineExceeded):
		return status.Errorf(codes.DeadlineExceeded, "%s: %v", op, err)
	}
	var domainErr *apperrors.Error
	if errors.As(err, &domainErr) {
		return domainErr.ToGRPCStatus(defaultLocale, userMessage(domainErr.Code))
	}
	return status.Errorf(codes.Internal, "%s: %v", op, err)
}

func userMessage(code apperrors.Code) string {
	switch code {
	case apperrors.CodeInvalidArgument:
		return "The currency request is malformed."
	case apperrors.CodeOutOfRange:
		return "The currency id is too large to transmit."
	case apperrors.CodeNotFound:
		return "Currency not found."
	case apperrors.CodeConstraintViolation:
		return "A currency with this id already exists."
	case apperrors.CodeStorageUnavailable:
		return "Currency storage is unavailable."
	case apperrors.CodeSchemaFailed:
		return "Currency storage is not initialized."
	default:
		return "An unexpected error occurred."
	}
}
