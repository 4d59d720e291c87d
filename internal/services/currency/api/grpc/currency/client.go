package currency

import (
	"context"
	"errors"
	"io"
	"iter"

	"github.com/ithrek/syncadapter-currencies/internal/services/currency/storage"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Client calls currency.v1.CurrencyService and mirrors the store's method set.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps a client connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

var _ storage.CurrencyStore = (*Client)(nil)

// InsertCurrency inserts a currency and returns its id.
func (c *Client) InsertCurrency(ctx context.Context, currency storage.Currency) (int64, error) {
	if err := CheckRepresentable(currency); err != nil {
		return 0, err
	}
	out := new(wrapperspb.Int64Value)
	if err := c.cc.Invoke(ctx, InsertCurrencyFullMethod, CurrencyToStruct(currency), out); err != nil {
		return 0, err
	}
	return out.GetValue(), nil
}

// DeleteCurrency deletes a currency and returns the removed row count.
func (c *Client) DeleteCurrency(ctx context.Context, id int64) (int64, error) {
	out := new(wrapperspb.Int64Value)
	if err := c.cc.Invoke(ctx, DeleteCurrencyFullMethod, wrapperspb.Int64(id), out); err != nil {
		return 0, err
	}
	return out.GetValue(), nil
}

// ListCurrencies streams every currency. Breaking out of the loop cancels the stream.
func (c *Client) ListCurrencies(ctx context.Context) iter.Seq2[storage.Currency, error] {
	return func(yield func(storage.Currency, error) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		stream, err := c.cc.NewStream(ctx, &CurrencyService_ServiceDesc.Streams[0], ListCurrenciesFullMethod)
		if err != nil {
			yield(storage.Currency{}, err)
			return
		}
		x := &grpc.GenericClientStream[emptypb.Empty, structpb.Struct]{ClientStream: stream}
		if err := x.ClientStream.SendMsg(&emptypb.Empty{}); err != nil {
			yield(storage.Currency{}, err)
			return
		}
		if err := x.ClientStream.CloseSend(); err != nil {
			yield(storage.Currency{}, err)
			return
		}
		for {
			msg, err := x.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(storage.Currency{}, err)
				return
			}
			record, err := CurrencyFromStruct(msg, responseFields...)
			if !yield(record, err) || err != nil {
				return
			}
		}
	}
}

// GetCurrency returns the currency with id; found is false on codes.NotFound.
func (c *Client) GetCurrency(ctx context.Context, id int64) (storage.Currency, bool, error) {
	return c.getOne(ctx, GetCurrencyFullMethod, wrapperspb.Int64(id))
}

// GetLastUnsyncedCurrency returns the newest pending currency.
func (c *Client) GetLastUnsyncedCurrency(ctx context.Context) (storage.Currency, bool, error) {
	return c.getOne(ctx, GetLastUnsyncedCurrencyFullMethod, &emptypb.Empty{})
}

// AcknowledgeUnsyncedCurrencies acknowledges every pending currency.
func (c *Client) AcknowledgeUnsyncedCurrencies(ctx context.Context) (int64, error) {
	out := new(wrapperspb.Int64Value)
	if err := c.cc.Invoke(ctx, AcknowledgeUnsyncedCurrenciesFullMethod, &emptypb.Empty{}, out); err != nil {
		return 0, err
	}
	return out.GetValue(), nil
}

// GetMostRecentSyncedCurrency returns the currency with the largest backend id.
func (c *Client) GetMostRecentSyncedCurrency(ctx context.Context) (storage.Currency, bool, error) {
	return c.getOne(ctx, GetMostRecentSyncedCurrencyFullMethod, &emptypb.Empty{})
}

// UpdateCurrency overwrites the currency with id and returns the changed row count.
func (c *Client) UpdateCurrency(ctx context.Context, id int64, currency storage.Currency) (int64, error) {
	currency.ID = id
	if err := CheckRepresentable(currency); err != nil {
		return 0, err
	}
	out := new(wrapperspb.Int64Value)
	if err := c.cc.Invoke(ctx, UpdateCurrencyFullMethod, UpdateRequest(id, currency), out); err != nil {
		return 0, err
	}
	return out.GetValue(), nil
}

func (c *Client) getOne(ctx context.Context, method string, in any) (storage.Currency, bool, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out); err != nil {
		if status.Code(err) == codes.NotFound {
			return storage.Currency{}, false, nil
		}
		return storage.Currency{}, false, err
	}
	record, err := CurrencyFromStruct(out, responseFields...)
	if err != nil {
		return storage.Currency{}, false, err
	}
	return record, true, nil
}
