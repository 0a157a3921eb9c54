// Package assetguard validates uploaded project attachments and stores the
// accepted ones.
//
// A project record carries two optional attachments: a thumbnail image and a
// PDF document. Before either is written, the [filevalidator] pipeline checks
// its size, its extension and its actual content. Only accepted uploads reach
// storage, under a server-generated name:
//
//	projects/thumbnails/<uuid>.<ext>
//	projects/pdfs/<uuid>.pdf
//
// The returned reference is the string a record keeps.
//
// # Storage Backends
//
// Storage goes through the [FileSystem] interface. Drivers register themselves
// when imported:
//
//   - Local filesystem (github.com/gobeaver/assetguard/driver/local)
//   - In-memory (github.com/gobeaver/assetguard/driver/memory)
//   - Amazon S3 (github.com/gobeaver/assetguard/driver/s3)
//   - Google Cloud Storage (github.com/gobeaver/assetguard/driver/gcs)
//   - Azure Blob Storage (github.com/gobeaver/assetguard/driver/azure)
//   - SFTP (github.com/gobeaver/assetguard/driver/sftp)
//
// # Basic Usage
//
//	import _ "github.com/gobeaver/assetguard/driver/local"
//
//	guard, err := assetguard.New(&assetguard.Config{
//	    Driver:        "local",
//	    LocalBasePath: "./media",
//	    RootPrefix:    "projects",
//	})
//
//	c, closer, err := filevalidator.CandidateFromFileHeader(fileHeader)
//	if err != nil {
//	    return err
//	}
//	defer closer.Close()
//
//	asset, err := guard.Ingest(ctx, c, filevalidator.KindThumbnail)
//	if filevalidator.IsValidationError(err) {
//	    // 4xx: tell the client why, nothing was stored
//	}
//	record.Thumbnail = asset.Reference
//
// # Submissions
//
// [Ingestor.IngestSubmission] handles both attachments of one record. Every
// attachment is validated first; if any is rejected nothing is stored and all
// rejections are reported in one [SubmissionError]:
//
//	result, err := guard.IngestSubmission(ctx, assetguard.Submission{
//	    Thumbnail: &thumb,
//	    PDF:       &doc,
//	})
//	var se *assetguard.SubmissionError
//	if errors.As(err, &se) {
//	    for kind, rejection := range se.Rejections {
//	        fmt.Println(kind, filevalidator.ReasonOf(rejection))
//	    }
//	}
//
// # Housekeeping
//
// Replaced attachments and abandoned saves leave files no record points to.
// [Housekeeper] lists and prunes them:
//
//	removed, err := guard.Housekeeper().Prune(ctx, filevalidator.KindPDF, referenced, 24*time.Hour)
//
// # Configuration
//
// Settings load from environment variables with the ASSETGUARD_ prefix
// (BEAVER_ASSETGUARD_ by default, see [WithPrefix]):
//
//	guard, err := assetguard.NewFromEnv()
//
// Size ceilings accept human readable values such as 2MiB and may only lower
// the built-in 5 MiB thumbnail and 20 MiB PDF limits.
package assetguard
