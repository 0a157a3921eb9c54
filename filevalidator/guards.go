package filevalidator

import (
	"fmt"
	"strings"

	"github.com/docker/go-units"
)

// CheckSize rejects sizes above the policy ceiling. The ceiling is inclusive.
// A negative size means the upload length is unknown and is rejected as
// unreadable.
func CheckSize(size int64, p Policy) error {
	if size < 0 {
		return NewValidationError(p.Kind, ReasonUnreadableFile, "file size is unknown")
	}
	if size <= p.MaxBytes {
		return nil
	}
	err := NewValidationError(p.Kind, ReasonSizeExceeded,
		fmt.Sprintf("file size %s exceeds the %s limit",
			units.BytesSize(float64(size)), units.BytesSize(float64(p.MaxBytes))))
	err.Limit = p.MaxBytes
	return err
}

// CheckExtension rejects filenames whose extension is missing or not in the
// policy allow-list. Matching is case-insensitive.
func CheckExtension(filename string, p Policy) error {
	ext := Extension(filename)
	if ext == "" {
		return NewValidationError(p.Kind, ReasonDisallowedExtension, "file has no extension")
	}
	if !p.AllowsExtension(ext) {
		return NewValidationError(p.Kind, ReasonDisallowedExtension,
			fmt.Sprintf("extension .%s is not allowed (allowed: %s)", ext, strings.Join(p.AllowedExtensions, ", ")))
	}
	return nil
}
