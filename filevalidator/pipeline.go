package filevalidator

import (
	"context"
	"fmt"
	"time"
)

// Pipeline runs the size, extension and content checks for an asset kind in
// that order and stops at the first failure. A Pipeline is read-only after
// construction and safe for concurrent use.
type Pipeline struct {
	policies PolicySet
	sniffers *SnifferRegistry
}

// New creates a pipeline from a policy set and a sniffer registry.
func New(policies PolicySet, sniffers *SnifferRegistry) *Pipeline {
	if sniffers == nil {
		sniffers = DefaultRegistry()
	}
	return &Pipeline{
		policies: policies,
		sniffers: sniffers,
	}
}

// NewDefault creates a pipeline with the thumbnail and PDF policies and the
// default sniffers.
func NewDefault() *Pipeline {
	return New(DefaultPolicies(), DefaultRegistry())
}

// Policy returns a copy of the policy applied to kind.
func (p *Pipeline) Policy(kind AssetKind) (Policy, bool) {
	return p.policies.Get(kind)
}

// Validate checks c as an asset of the given kind. It never writes anywhere
// and leaves c.Reader at offset 0.
func (p *Pipeline) Validate(c Candidate, kind AssetKind) Outcome {
	return p.run(context.Background(), c, kind, nil)
}

// ValidateContext is Validate with cancellation. A context that is done before
// the content check starts yields a ReasonCanceled outcome.
func (p *Pipeline) ValidateContext(ctx context.Context, c Candidate, kind AssetKind) Outcome {
	return p.run(ctx, c, kind, nil)
}

// Check is Validate reduced to an error.
func (p *Pipeline) Check(c Candidate, kind AssetKind) error {
	return p.Validate(c, kind).Err()
}

// Inspect runs the same checks as Validate and records a per-check trace.
func (p *Pipeline) Inspect(c Candidate, kind AssetKind) *ValidationResult {
	rb := NewResultBuilder(c.Filename, c.Size)
	outcome := p.run(context.Background(), c, kind, rb)
	return rb.Build(outcome)
}

func (p *Pipeline) run(ctx context.Context, c Candidate, kind AssetKind, rb *ResultBuilder) Outcome {
	policy, ok := p.policies.lookup(kind)
	if !ok {
		return rejected(kind, NewValidationError(kind, ReasonUnsupportedKind,
			fmt.Sprintf("no policy for asset kind %q", kind)))
	}
	sniffer, ok := p.sniffers.Get(kind)
	if !ok {
		return rejected(kind, NewValidationError(kind, ReasonUnsupportedKind,
			fmt.Sprintf("no content sniffer for asset kind %q", kind)))
	}

	if err := ctx.Err(); err != nil {
		return rejected(kind, wrapValidationError(kind, ReasonCanceled, "validation canceled", err))
	}

	start := time.Now()
	if err := CheckSize(c.Size, policy); err != nil {
		trace(rb, "size", err, start)
		return rejected(kind, err)
	}
	trace(rb, "size", nil, start)

	start = time.Now()
	if err := CheckExtension(c.Filename, policy); err != nil {
		trace(rb, "extension", err, start)
		return rejected(kind, err)
	}
	trace(rb, "extension", nil, start)

	if c.Reader == nil {
		return rejected(kind, NewValidationError(kind, ReasonUnreadableFile, "candidate has no content stream"))
	}
	if err := ctx.Err(); err != nil {
		return rejected(kind, wrapValidationError(kind, ReasonCanceled, "validation canceled", err))
	}

	start = time.Now()
	format, err := sniffer.Sniff(c, policy)
	if err == nil && !policy.AllowsFormat(format) {
		err = wrapValidationError(kind, contentReason(kind),
			fmt.Sprintf("content format %q is not allowed", format), ErrFormatNotAllowed)
	}
	// Custom sniffers may leave the stream anywhere.
	if rerr := c.Rewind(); rerr != nil && err == nil {
		err = wrapValidationError(kind, ReasonUnreadableFile, "failed to rewind candidate", rerr)
	}
	trace(rb, "content", err, start)
	if err != nil {
		return rejected(kind, err)
	}

	return accepted(kind, format)
}

func contentReason(kind AssetKind) Reason {
	if kind == KindPDF {
		return ReasonInvalidPDFContent
	}
	return ReasonInvalidImageContent
}

func trace(rb *ResultBuilder, name string, err error, start time.Time) {
	if rb == nil {
		return
	}
	if err != nil {
		rb.AddCheck(name, false, err.Error(), time.Since(start))
		return
	}
	rb.AddCheck(name, true, name+" check passed", time.Since(start))
}
