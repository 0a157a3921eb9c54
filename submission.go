package assetguard

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/gobeaver/assetguard/filevalidator"
	"golang.org/x/sync/errgroup"
)

// Submission is the set of attachments saved together with one record.
// A nil candidate means the attachment was not provided.
type Submission struct {
	Thumbnail *filevalidator.Candidate
	PDF       *filevalidator.Candidate
}

// SubmissionResult holds the assets stored for a submission. Fields are nil
// for attachments that were not provided.
type SubmissionResult struct {
	Thumbnail *Asset
	PDF       *Asset
}

// References returns the stored references keyed by kind.
func (r *SubmissionResult) References() map[filevalidator.AssetKind]string {
	refs := make(map[filevalidator.AssetKind]string, 2)
	if r.Thumbnail != nil {
		refs[filevalidator.KindThumbnail] = r.Thumbnail.Reference
	}
	if r.PDF != nil {
		refs[filevalidator.KindPDF] = r.PDF.Reference
	}
	return refs
}

// SubmissionError reports every rejected attachment of a submission.
type SubmissionError struct {
	Rejections map[filevalidator.AssetKind]error
}

// Error implements the error interface
func (e *SubmissionError) Error() string {
	kinds := make([]string, 0, len(e.Rejections))
	for k := range e.Rejections {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)

	parts := make([]string, 0, len(kinds))
	for _, k := range kinds {
		parts = append(parts, e.Rejections[filevalidator.AssetKind(k)].Error())
	}
	return "submission rejected: " + strings.Join(parts, "; ")
}

// Unwrap returns the individual rejections for errors.Is and errors.As.
func (e *SubmissionError) Unwrap() []error {
	errs := make([]error, 0, len(e.Rejections))
	for _, err := range e.Rejections {
		errs = append(errs, err)
	}
	return errs
}

// Rejection returns the rejection of one kind, or nil.
func (e *SubmissionError) Rejection(kind filevalidator.AssetKind) error {
	return e.Rejections[kind]
}

type submissionItem struct {
	kind      filevalidator.AssetKind
	candidate filevalidator.Candidate
	outcome   filevalidator.Outcome
}

// IngestSubmission validates every provided attachment and stores them only
// if all are accepted. Rejections are collected into one *SubmissionError.
// If a later write fails, assets already stored for the submission are
// removed again.
func (g *Ingestor) IngestSubmission(ctx context.Context, s Submission) (*SubmissionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var items []*submissionItem
	if s.Thumbnail != nil {
		items = append(items, &submissionItem{kind: filevalidator.KindThumbnail, candidate: *s.Thumbnail})
	}
	if s.PDF != nil {
		items = append(items, &submissionItem{kind: filevalidator.KindPDF, candidate: *s.PDF})
	}

	result := &SubmissionResult{}
	if len(items) == 0 {
		return result, nil
	}

	// Each item owns its own reader; validation never fails the group.
	var eg errgroup.Group
	for _, item := range items {
		eg.Go(func() error {
			item.outcome = g.pipeline.ValidateContext(ctx, item.candidate, item.kind)
			return nil
		})
	}
	_ = eg.Wait()

	rejections := make(map[filevalidator.AssetKind]error)
	for _, item := range items {
		if !item.outcome.Accepted() {
			g.logRejection(item.candidate, item.outcome)
			rejections[item.kind] = item.outcome.Err()
		}
	}
	if len(rejections) > 0 {
		return nil, &SubmissionError{Rejections: rejections}
	}

	var stored []*Asset
	for _, item := range items {
		asset, err := g.store(ctx, item.candidate, item.outcome)
		if err != nil {
			g.rollback(ctx, stored)
			return nil, fmt.Errorf("failed to store submission: %w", err)
		}
		stored = append(stored, asset)

		switch item.kind {
		case filevalidator.KindThumbnail:
			result.Thumbnail = asset
		case filevalidator.KindPDF:
			result.PDF = asset
		}
	}

	return result, nil
}

func (g *Ingestor) rollback(ctx context.Context, stored []*Asset) {
	ctx = context.WithoutCancel(ctx)
	for _, asset := range stored {
		if err := g.fs.Delete(ctx, asset.Reference); err != nil && !IsNotExist(err) {
			g.logger.Error("failed to roll back stored asset", "reference", asset.Reference, "error", err)
			continue
		}
		g.logger.Info("rolled back stored asset", "reference", asset.Reference)
	}
}
