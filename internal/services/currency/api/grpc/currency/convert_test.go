package currency

import (
	"errors"
	"math"
	"testing"

	apperrors "github.com/ithrek/syncadapter-currencies/internal/platform/errors"
	"github.com/ithrek/syncadapter-currencies/internal/services/currency/storage"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestCurrencyStructRoundTrip(t *testing.T) {
	t.Parallel()

	want := storage.Currency{ID: 9, BackendID: -1, Name: "Yen", Abbreviation: "JPY", Value: 0.0067, IsRead: true}
	got, err := CurrencyFromStruct(CurrencyToStruct(want), responseFields...)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != want {
		t.Fatalf("currency = %+v, want %+v", got, want)
	}
}

func TestCurrencyFromStruct_OptionalFieldsDefault(t *testing.T) {
	t.Parallel()

	in := &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldID: structpb.NewNumberValue(4),
	}}
	got, err := CurrencyFromStruct(in)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != (storage.Currency{ID: 4}) {
		t.Fatalf("currency = %+v, want only id set", got)
	}
}

func TestCurrencyFromStruct_RejectsOutOfRangeIDs(t *testing.T) {
	t.Parallel()

	for _, value := range []float64{math.NaN(), math.Inf(1), 1 << 60, 2.5} {
		in := &structpb.Struct{Fields: map[string]*structpb.Value{
			fieldID: structpb.NewNumberValue(value),
		}}
		_, err := CurrencyFromStruct(in)
		if !errors.Is(err, apperrors.New(apperrors.CodeInvalidArgument, "")) {
			t.Fatalf("id %v: err = %v, want invalid argument", value, err)
		}
	}
}

func TestCheckRepresentable(t *testing.T) {
	outOfRange := apperrors.New(apperrors.CodeOutOfRange, "")
	cases := []struct {
		name     string
		currency storage.Currency
		wantErr  bool
	}{
		{name: "pending", currency: storage.Currency{ID: 1, BackendID: storage.BackendPending}},
		{name: "upper bound", currency: storage.Currency{ID: 1 << 53, BackendID: -(1 << 53)}},
		{name: "id too large", currency: storage.Currency{ID: 1<<53 + 1}, wantErr: true},
		{name: "backend id too small", currency: storage.Currency{BackendID: -(1 << 53) - 1}, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckRepresentable(tc.currency)
			if tc.wantErr {
				if !errors.Is(err, outOfRange) {
					t.Fatalf("err = %v, want out of range", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("check: %v", err)
			}
		})
	}
}

func TestCurrencyFromStruct_Nil(t *testing.T) {
	t.Parallel()

	_, err := CurrencyFromStruct(nil)
	if !errors.Is(err, apperrors.New(apperrors.CodeInvalidArgument, "")) {
		t.Fatalf("err = %v, want invalid argument", err)
	}
}

func TestDecodeUpdateRequest(t *testing.T) {
	t.Parallel()

	id, got, err := decodeUpdateRequest(UpdateRequest(5, storage.Currency{BackendID: 3, Name: "Euro", Abbreviation: "EUR", Value: 1.1}))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if id != 5 {
		t.Fatalf("id = %d, want 5", id)
	}
	want := storage.Currency{ID: 5, BackendID: 3, Name: "Euro", Abbreviation: "EUR", Value: 1.1}
	if got != want {
		t.Fatalf("currency = %+v, want %+v", got, want)
	}
}
