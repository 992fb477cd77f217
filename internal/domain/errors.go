package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrDecode signals bytes that are not a decodable raster image.
	ErrDecode = errors.New("image decode failed")
	// ErrInvalidMetadata signals metadata that violates its invariants (e.g. zero area).
	ErrInvalidMetadata = errors.New("invalid metadata")
	// ErrInvalidParams signals an out-of-range or malformed conversion parameter.
	ErrInvalidParams = errors.New("invalid params")
	// ErrClassifierFailure signals an error returned by the semantic classifier.
	ErrClassifierFailure = errors.New("classifier failure")
	// ErrClassifierUnavailable signals that the classifier is temporarily not accepting calls.
	ErrClassifierUnavailable = errors.New("classifier unavailable")
	// ErrClassifierQuotaExceeded signals an exhausted paid classifier call budget.
	ErrClassifierQuotaExceeded = errors.New("classifier quota exceeded")
	// ErrConversionFailed signals a failed external conversion pipeline.
	ErrConversionFailed = errors.New("conversion failed")
)

// ParamError wraps ErrInvalidParams with the offending field.
type ParamError struct {
	Field  string
	Reason string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrInvalidParams.Error(), e.Field, e.Reason)
}

func (e *ParamError) Unwrap() error { return ErrInvalidParams }

// NewParamError creates an invalid parameter error for a field.
func NewParamError(field, format string, args ...any) error {
	return &ParamError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
