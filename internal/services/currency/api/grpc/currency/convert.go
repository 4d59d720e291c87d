package currency

import (
	"fmt"
	"math"
	"strconv"

	apperrors "github.com/ithrek/syncadapter-currencies/internal/platform/errors"
	"github.com/ithrek/syncadapter-currencies/internal/services/currency/storage"
	"google.golang.org/protobuf/types/known/structpb"
)

// Struct field names, matching the currency table columns.
const (
	fieldID           = "id"
	fieldBackendID    = "id_backend"
	fieldName         = "name"
	fieldAbbreviation = "abbreviation"
	fieldValue        = "value"
	fieldIsRead       = "is_read"
	fieldCurrency     = "currency"
)

// Largest integer a float64 (and so a Struct number) holds exactly.
const maxExactInt = 1 << 53

var (
	insertFields   = []string{fieldID, fieldBackendID, fieldName, fieldAbbreviation, fieldValue}
	updateFields   = []string{fieldBackendID, fieldName, fieldAbbreviation, fieldValue, fieldIsRead}
	responseFields = []string{fieldID, fieldBackendID, fieldName, fieldAbbreviation, fieldValue, fieldIsRead}
)

// CheckRepresentable reports an OutOfRange error when an id of currency does
// not fit a Struct number exactly.
func CheckRepresentable(currency storage.Currency) error {
	if err := checkIntRange(fieldID, currency.ID); err != nil {
		return err
	}
	return checkIntRange(fieldBackendID, currency.BackendID)
}

func checkIntRange(name string, value int64) error {
	if value > maxExactInt || value < -maxExactInt {
		return apperrors.WithMetadata(apperrors.CodeOutOfRange, fmt.Sprintf("%s %d exceeds the exact range of a Struct number", name, value), map[string]string{
			name: strconv.FormatInt(value, 10),
		})
	}
	return nil
}

// CurrencyToStruct encodes a currency as a protobuf Struct. Ids beyond
// ±2^53 lose precision; callers check with CheckRepresentable first.
func CurrencyToStruct(currency storage.Currency) *structpb.Struct {
	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			fieldID:           structpb.NewNumberValue(float64(currency.ID)),
			fieldBackendID:    structpb.NewNumberValue(float64(currency.BackendID)),
			fieldName:         structpb.NewStringValue(currency.Name),
			fieldAbbreviation: structpb.NewStringValue(currency.Abbreviation),
			fieldValue:        structpb.NewNumberValue(currency.Value),
			fieldIsRead:       structpb.NewBoolValue(currency.IsRead),
		},
	}
}

// UpdateRequest encodes the id + full record pair sent to UpdateCurrency.
func UpdateRequest(id int64, currency storage.Currency) *structpb.Struct {
	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			fieldID:       structpb.NewNumberValue(float64(id)),
			fieldCurrency: structpb.NewStructValue(CurrencyToStruct(currency)),
		},
	}
}

// CurrencyFromStruct decodes a currency, requiring the named fields to be present.
// Absent optional fields decode to zero values.
func CurrencyFromStruct(in *structpb.Struct, required ...string) (storage.Currency, error) {
	if in == nil {
		return storage.Currency{}, invalidArgument("currency is required")
	}
	fields := in.GetFields()
	for _, name := range required {
		if _, ok := fields[name]; !ok {
			return storage.Currency{}, invalidArgument(fmt.Sprintf("%s is required", name))
		}
	}

	var (
		currency storage.Currency
		err      error
	)
	if currency.ID, err = intField(fields, fieldID); err != nil {
		return storage.Currency{}, err
	}
	if currency.BackendID, err = intField(fields, fieldBackendID); err != nil {
		return storage.Currency{}, err
	}
	if currency.Name, err = stringField(fields, fieldName); err != nil {
		return storage.Currency{}, err
	}
	if currency.Abbreviation, err = stringField(fields, fieldAbbreviation); err != nil {
		return storage.Currency{}, err
	}
	if currency.Value, err = numberField(fields, fieldValue); err != nil {
		return storage.Currency{}, err
	}
	if currency.IsRead, err = boolField(fields, fieldIsRead); err != nil {
		return storage.Currency{}, err
	}
	return currency, nil
}

func decodeUpdateRequest(in *structpb.Struct) (int64, storage.Currency, error) {
	if in == nil {
		return 0, storage.Currency{}, invalidArgument("update currency request is required")
	}
	fields := in.GetFields()
	if _, ok := fields[fieldID]; !ok {
		return 0, storage.Currency{}, invalidArgument("id is required")
	}
	id, err := intField(fields, fieldID)
	if err != nil {
		return 0, storage.Currency{}, err
	}
	record := fields[fieldCurrency].GetStructValue()
	if record == nil {
		return 0, storage.Currency{}, invalidArgument("currency is required")
	}
	currency, err := CurrencyFromStruct(record, updateFields...)
	if err != nil {
		return 0, storage.Currency{}, err
	}
	currency.ID = id
	return id, currency, nil
}

func intField(fields map[string]*structpb.Value, name string) (int64, error) {
	value, err := numberField(fields, name)
	if err != nil {
		return 0, err
	}
	if value != math.Trunc(value) || math.Abs(value) > maxExactInt {
		return 0, invalidArgument(fmt.Sprintf("%s must be an integer", name))
	}
	return int64(value), nil
}

func numberField(fields map[string]*structpb.Value, name string) (float64, error) {
	value, ok := fields[name]
	if !ok {
		return 0, nil
	}
	number, ok := value.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, invalidArgument(fmt.Sprintf("%s must be a number", name))
	}
	return number.NumberValue, nil
}

func stringField(fields map[string]*structpb.Value, name string) (string, error) {
	value, ok := fields[name]
	if !ok {
		return "", nil
	}
	text, ok := value.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", invalidArgument(fmt.Sprintf("%s must be a string", name))
	}
	return text.StringValue, nil
}

func boolField(fields map[string]*structpb.Value, name string) (bool, error) {
	value, ok := fields[name]
	if !ok {
		return false, nil
	}
	flag, ok := value.GetKind().(*structpb.Value_BoolValue)
	if !ok {
		return false, invalidArgument(fmt.Sprintf("%s must be a bool", name))
	}
	return flag.BoolValue, nil
}

func invalidArgument(message string) *apperrors.Error {
	return apperrors.New(apperrors.CodeInvalidArgument, message)
}
