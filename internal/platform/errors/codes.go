// Package errors provides structured, code-carrying errors shared by the
// currency store and its gRPC surface.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Input errors
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeOutOfRange      Code = "OUT_OF_RANGE"

	// Storage errors
	CodeNotFound            Code = "NOT_FOUND"
	CodeStorageUnavailable  Code = "STORAGE_UNAVAILABLE"
	CodeConstraintViolation Code = "CONSTRAINT_VIOLATION"
	CodeSchemaFailed        Code = "SCHEMA_FAILED"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	case CodeInvalidArgument:
		return codes.InvalidArgument
	case CodeOutOfRange:
		return codes.OutOfRange
	case CodeNotFound:
		return codes.NotFound
	case CodeConstraintViolation:
		return codes.AlreadyExists
	case CodeStorageUnavailable:
		return codes.Unavailable
	case CodeSchemaFailed:
		return codes.FailedPrecondition
	default:
		return codes.Internal
	}
}
