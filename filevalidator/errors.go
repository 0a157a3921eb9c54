package filevalidator

import (
	"errors"
	"fmt"
)

// Reason is the machine-readable cause of a rejection. The set is closed;
// boundary layers map each reason to user-facing text.
type Reason string

const (
	ReasonSizeExceeded        Reason = "size_exceeded"
	ReasonDisallowedExtension Reason = "disallowed_extension"
	ReasonInvalidImageContent Reason = "invalid_image_content"
	ReasonInvalidPDFContent   Reason = "invalid_pdf_content"
	ReasonUnreadableFile      Reason = "unreadable_file"

	// ReasonUnsupportedKind is returned when a pipeline has no policy for the
	// requested kind. It signals a wiring mistake, not bad input.
	ReasonUnsupportedKind Reason = "unsupported_kind"

	// ReasonCanceled is returned when the caller's context ended before the
	// content check ran.
	ReasonCanceled Reason = "canceled"
)

// Sentinel errors, one per reason, for use with errors.Is.
var (
	ErrSizeExceeded        = errors.New("file size exceeds the limit")
	ErrDisallowedExtension = errors.New("file extension is not allowed")
	ErrInvalidImageContent = errors.New("invalid image content")
	ErrInvalidPDFContent   = errors.New("invalid pdf content")
	ErrUnreadableFile      = errors.New("file could not be read")
	ErrUnsupportedKind     = errors.New("unsupported asset kind")
	ErrCanceled            = errors.New("validation canceled")

	// ErrFormatNotAllowed is the cause attached to content rejections where
	// the format was recognized but is not approved by the policy.
	ErrFormatNotAllowed = errors.New("content format not allowed")
)

var reasonErrors = map[Reason]error{
	ReasonSizeExceeded:        ErrSizeExceeded,
	ReasonDisallowedExtension: ErrDisallowedExtension,
	ReasonInvalidImageContent: ErrInvalidImageContent,
	ReasonInvalidPDFContent:   ErrInvalidPDFContent,
	ReasonUnreadableFile:      ErrUnreadableFile,
	ReasonUnsupportedKind:     ErrUnsupportedKind,
	ReasonCanceled:            ErrCanceled,
}

// Reasons returns the rejection reasons a real upload can produce, in check order.
func Reasons() []Reason {
	return []Reason{
		ReasonSizeExceeded,
		ReasonDisallowedExtension,
		ReasonInvalidImageContent,
		ReasonInvalidPDFContent,
		ReasonUnreadableFile,
	}
}

// ValidationError describes why a candidate was rejected.
// Message never contains bytes from the candidate itself.
type ValidationError struct {
	// Kind is the asset kind the candidate was validated as.
	Kind AssetKind

	// Reason is the stable rejection cause.
	Reason Reason

	// Message is a short English description for logs.
	Message string

	// Err is an optional underlying cause (context errors, I/O faults).
	Err error

	// Limit is the size ceiling that was exceeded, set for size rejections.
	Limit int64
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("%s: %s", e.Reason, e.Message)
	}
	return fmt.Sprintf("%s rejected (%s): %s", e.Kind, e.Reason, e.Message)
}

// Unwrap exposes the reason sentinel and the underlying cause.
func (e *ValidationError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if sentinel, ok := reasonErrors[e.Reason]; ok {
		errs = append(errs, sentinel)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// NewValidationError creates a new ValidationError
func NewValidationError(kind AssetKind, reason Reason, message string) *ValidationError {
	return &ValidationError{
		Kind:    kind,
		Reason:  reason,
		Message: message,
	}
}

func wrapValidationError(kind AssetKind, reason Reason, message string, cause error) *ValidationError {
	return &ValidationError{
		Kind:    kind,
		Reason:  reason,
		Message: message,
		Err:     cause,
	}
}

// IsValidationError checks if an error is a ValidationError
func IsValidationError(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}

// ReasonOf returns the rejection reason carried by err, or "" if err is not a
// ValidationError.
func ReasonOf(err error) Reason {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Reason
	}
	return ""
}
