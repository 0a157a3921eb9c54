package filevalidator

import (
	"errors"
	"fmt"
	"time"

	"github.com/docker/go-units"
)

// Outcome is the verdict of one pipeline run: accepted when Reason is empty,
// rejected otherwise.
type Outcome struct {
	Kind AssetKind

	// Reason is empty on acceptance.
	Reason Reason

	// Format is the sniffed content format on acceptance (e.g. "png").
	Format string

	// Detail is a short English description of the rejection for logs.
	Detail string

	err error
}

// Accepted reports whether the candidate passed every check.
func (o Outcome) Accepted() bool {
	return o.Reason == ""
}

// Err returns nil on acceptance and a *ValidationError otherwise.
func (o Outcome) Err() error {
	if o.Accepted() {
		return nil
	}
	if o.err != nil {
		return o.err
	}
	return NewValidationError(o.Kind, o.Reason, o.Detail)
}

func (o Outcome) String() string {
	if o.Accepted() {
		return fmt.Sprintf("%s accepted (%s)", o.Kind, o.Format)
	}
	return fmt.Sprintf("%s rejected: %s", o.Kind, o.Reason)
}

func accepted(kind AssetKind, format string) Outcome {
	return Outcome{Kind: kind, Format: format}
}

func rejected(kind AssetKind, err error) Outcome {
	var ve *ValidationError
	if !errors.As(err, &ve) {
		ve = wrapValidationError(kind, ReasonUnreadableFile, "content check failed", err)
	}
	if ve.Kind == "" {
		ve.Kind = kind
	}
	return Outcome{Kind: kind, Reason: ve.Reason, Detail: ve.Message, err: ve}
}

// ValidationResult contains detailed information about a validation attempt
type ValidationResult struct {
	// Outcome is the same verdict Validate returns.
	Outcome Outcome

	// Filename is the name of the validated file
	Filename string

	// Size is the file size in bytes
	Size int64

	// DetectedMIME is the MIME type of the sniffed format, empty on rejection
	DetectedMIME string

	// DeclaredMIME is the MIME type implied by the file extension
	DeclaredMIME string

	// Duration is how long validation took
	Duration time.Duration

	// Checks contains details about each validation check performed
	Checks []CheckResult
}

// CheckResult represents the result of a single validation check
type CheckResult struct {
	Name    string        // "size", "extension" or "content"
	Passed  bool          // whether this check passed
	Message string        // human-readable result
	Took    time.Duration // how long this check took
}

// Valid reports whether the candidate was accepted.
func (r *ValidationResult) Valid() bool {
	return r.Outcome.Accepted()
}

// Error returns the rejection error, nil if valid
func (r *ValidationResult) Error() error {
	return r.Outcome.Err()
}

// Summary returns a human-readable summary of the validation
func (r *ValidationResult) Summary() string {
	if r.Valid() {
		return fmt.Sprintf("✓ %s (%s, %s) validated in %v",
			r.Filename,
			r.DetectedMIME,
			units.BytesSize(float64(r.Size)),
			r.Duration.Round(time.Microsecond),
		)
	}

	return fmt.Sprintf("✗ %s failed (%s): %s",
		r.Filename,
		r.Outcome.Reason,
		r.Outcome.Detail,
	)
}

// FailedChecks returns only the checks that failed
func (r *ValidationResult) FailedChecks() []CheckResult {
	var failed []CheckResult
	for _, check := range r.Checks {
		if !check.Passed {
			failed = append(failed, check)
		}
	}
	return failed
}

// PassedChecks returns only the checks that passed
func (r *ValidationResult) PassedChecks() []CheckResult {
	var passed []CheckResult
	for _, check := range r.Checks {
		if check.Passed {
			passed = append(passed, check)
		}
	}
	return passed
}

// ResultBuilder helps construct ValidationResult
type ResultBuilder struct {
	result    ValidationResult
	startTime time.Time
}

// NewResultBuilder creates a new result builder
func NewResultBuilder(filename string, size int64) *ResultBuilder {
	return &ResultBuilder{
		result: ValidationResult{
			Filename:     filename,
			Size:         size,
			DeclaredMIME: declaredMIME(filename),
			Checks:       make([]CheckResult, 0, 3),
		},
		startTime: time.Now(),
	}
}

func declaredMIME(filename string) string {
	if format := FormatForExtension(Extension(filename)); format != "" {
		return MIMETypeForFormat(format)
	}
	return ""
}

// AddCheck adds a check result
func (b *ResultBuilder) AddCheck(name string, passed bool, message string, took time.Duration) *ResultBuilder {
	b.result.Checks = append(b.result.Checks, CheckResult{
		Name:    name,
		Passed:  passed,
		Message: message,
		Took:    took,
	})
	return b
}

// Build finalizes the result with the pipeline verdict.
func (b *ResultBuilder) Build(outcome Outcome) *ValidationResult {
	b.result.Outcome = outcome
	if outcome.Accepted() {
		b.result.DetectedMIME = MIMETypeForFormat(outcome.Format)
	}
	b.result.Duration = time.Since(b.startTime)
	return &b.result
}
