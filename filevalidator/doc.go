// Package filevalidator decides whether an uploaded thumbnail image or PDF
// document may be stored.
//
// Every candidate runs through three checks for its [AssetKind], in order,
// stopping at the first failure:
//
//  1. size: the byte length must not exceed the policy ceiling
//  2. extension: the filename suffix must be in the policy allow-list
//  3. content: the bytes themselves must sniff as an approved format
//
// The content check is authoritative. A PNG named photo.jpg passes the
// extension check and is then rejected because its bytes disagree with its
// name.
//
// # Policies
//
//	| Kind      | Max size | Extensions               | Content                  |
//	|-----------|----------|--------------------------|--------------------------|
//	| thumbnail | 5 MiB    | jpg jpeg png webp gif    | decodes as jpeg/png/webp/gif |
//	| pdf       | 20 MiB   | pdf                      | starts with %PDF-        |
//
// # Quick Start
//
//	pipeline := filevalidator.NewDefault()
//
//	c, closer, err := filevalidator.CandidateFromFileHeader(fileHeader)
//	if err != nil {
//	    return err
//	}
//	defer closer.Close()
//
//	outcome := pipeline.Validate(c, filevalidator.KindThumbnail)
//	if !outcome.Accepted() {
//	    msg := filevalidator.ErrorMessage(language.Korean, outcome.Err())
//	    // render msg to the user
//	}
//
// The candidate reader is left at offset 0, so the same stream can be handed
// to storage afterwards.
//
// # Errors
//
// Rejections are *[ValidationError] values carrying a stable [Reason]. They
// also match the sentinel errors:
//
//	if errors.Is(err, filevalidator.ErrSizeExceeded) {
//	    // too large
//	}
//
// Messages never contain bytes from the upload.
//
// # Diagnostics
//
// [Pipeline.Inspect] returns the same verdict as Validate together with a
// per-check trace:
//
//	result := pipeline.Inspect(c, filevalidator.KindPDF)
//	fmt.Println(result.Summary())
//	// ✓ report.pdf (application/pdf, 1.2MiB) validated in 18µs
//
// # Thread Safety
//
// Pipelines, policy sets and sniffer registries are read-only after
// construction and safe for concurrent use. Candidates are not.
package filevalidator
