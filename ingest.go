package assetguard

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/gobeaver/assetguard/filevalidator"
	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Metadata keys written alongside every stored asset.
const (
	MetaChecksum          = "checksum"
	MetaChecksumAlgorithm = "checksum-algorithm"
	MetaFormat            = "format"
	MetaOriginalName      = "original-name"
	MetaPageCount         = "page-count"
)

// DefaultRootPrefix is the directory stored assets live under.
const DefaultRootPrefix = "projects"

var kindDirs = map[filevalidator.AssetKind]string{
	filevalidator.KindThumbnail: "thumbnails",
	filevalidator.KindPDF:       "pdfs",
}

// Asset is a validated and stored upload.
type Asset struct {
	// Reference is the storage path, e.g. projects/thumbnails/<uuid>.png.
	// Records keep this string.
	Reference string

	Kind        filevalidator.AssetKind
	Format      string
	ContentType string
	Size        int64

	Checksum          string
	ChecksumAlgorithm ChecksumAlgorithm

	// PageCount is the number of pages of a PDF, 0 when unknown.
	PageCount int

	// OriginalName is the client-supplied filename.
	OriginalName string
}

// Ingestor validates uploads and writes accepted ones to a FileSystem.
// Nothing is written for a rejected candidate.
type Ingestor struct {
	fs           FileSystem
	pipeline     *filevalidator.Pipeline
	root         string
	logger       *slog.Logger
	checksum     ChecksumAlgorithm
	pdfPages     bool
	cacheControl string
}

// IngestorOption configures an Ingestor.
type IngestorOption func(*Ingestor)

// WithRootPrefix sets the directory assets are stored under.
func WithRootPrefix(root string) IngestorOption {
	return func(g *Ingestor) {
		g.root = strings.Trim(root, "/")
	}
}

// WithPipeline replaces the default validation pipeline.
func WithPipeline(p *filevalidator.Pipeline) IngestorOption {
	return func(g *Ingestor) {
		if p != nil {
			g.pipeline = p
		}
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *slog.Logger) IngestorOption {
	return func(g *Ingestor) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithChecksumAlgorithm sets the algorithm used for Asset.Checksum.
func WithChecksumAlgorithm(algorithm ChecksumAlgorithm) IngestorOption {
	return func(g *Ingestor) {
		g.checksum = algorithm
	}
}

// WithPDFPageCount enables or disables page counting for accepted PDFs.
func WithPDFPageCount(enabled bool) IngestorOption {
	return func(g *Ingestor) {
		g.pdfPages = enabled
	}
}

// WithDefaultCacheControl sets the Cache-Control value of stored assets.
func WithDefaultCacheControl(cacheControl string) IngestorOption {
	return func(g *Ingestor) {
		g.cacheControl = cacheControl
	}
}

// NewIngestor creates an Ingestor over fs.
func NewIngestor(fs FileSystem, opts ...IngestorOption) *Ingestor {
	g := &Ingestor{
		fs:       fs,
		pipeline: filevalidator.NewDefault(),
		root:     DefaultRootPrefix,
		logger:   slog.New(slog.DiscardHandler),
		checksum: ChecksumXXHash,
		pdfPages: true,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With("component", "ingest")
	return g
}

// FileSystem returns the underlying storage.
func (g *Ingestor) FileSystem() FileSystem {
	return g.fs
}

// Pipeline returns the validation pipeline.
func (g *Ingestor) Pipeline() *filevalidator.Pipeline {
	return g.pipeline
}

// RootPrefix returns the directory assets are stored under.
func (g *Ingestor) RootPrefix() string {
	return g.root
}

// Validate runs the validation pipeline without storing anything.
func (g *Ingestor) Validate(ctx context.Context, c filevalidator.Candidate, kind filevalidator.AssetKind) filevalidator.Outcome {
	return g.pipeline.ValidateContext(ctx, c, kind)
}

// Ingest validates c as kind and stores it when accepted.
// Rejections are returned as *filevalidator.ValidationError; the store is not
// touched. A context cancelled at any point before the write aborts it.
func (g *Ingestor) Ingest(ctx context.Context, c filevalidator.Candidate, kind filevalidator.AssetKind) (*Asset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	outcome := g.pipeline.ValidateContext(ctx, c, kind)
	if !outcome.Accepted() {
		g.logRejection(c, outcome)
		return nil, outcome.Err()
	}

	return g.store(ctx, c, outcome)
}

func (g *Ingestor) logRejection(c filevalidator.Candidate, outcome filevalidator.Outcome) {
	g.logger.Info("upload rejected",
		"kind", outcome.Kind,
		"reason", outcome.Reason,
		"filename", c.Filename,
		"size", c.Size,
		"detail", outcome.Detail,
	)
}

// store writes a candidate the pipeline has accepted.
func (g *Ingestor) store(ctx context.Context, c filevalidator.Candidate, outcome filevalidator.Outcome) (*Asset, error) {
	kind := outcome.Kind
	dir, ok := kindDirs[kind]
	if !ok {
		return nil, fmt.Errorf("%w: no storage directory for kind %s", ErrNotSupported, kind)
	}

	sum, err := g.checksumCandidate(c, kind)
	if err != nil {
		return nil, err
	}

	asset := &Asset{
		Kind:              kind,
		Format:            outcome.Format,
		ContentType:       filevalidator.MIMETypeForFormat(outcome.Format),
		Size:              c.Size,
		Checksum:          sum,
		ChecksumAlgorithm: g.checksum,
		OriginalName:      c.Filename,
	}

	metadata := map[string]string{
		MetaChecksum:          sum,
		MetaChecksumAlgorithm: string(g.checksum),
		MetaFormat:            outcome.Format,
		MetaOriginalName:      url.QueryEscape(path.Base(strings.ReplaceAll(c.Filename, "\\", "/"))),
	}

	if kind == filevalidator.KindPDF && g.pdfPages {
		pages, err := pdfPageCount(c.Reader)
		if err != nil {
			g.logger.Warn("failed to extract pdf page count", "filename", c.Filename, "error", err)
		} else {
			asset.PageCount = pages
			metadata[MetaPageCount] = strconv.Itoa(pages)
		}
	}

	if err := c.Rewind(); err != nil {
		return nil, fmt.Errorf("failed to rewind candidate: %w", err)
	}

	// Last chance to honor cancellation; nothing has been written yet.
	if err := ctx.Err(); err != nil {
		g.logger.Info("upload abandoned before storage", "kind", kind, "filename", c.Filename, "error", err)
		return nil, err
	}

	asset.Reference = path.Join(g.root, dir, uuid.NewString()+"."+filevalidator.Extension(c.Filename))

	opts := []Option{
		WithContentType(asset.ContentType),
		WithMetadata(metadata),
	}
	if g.cacheControl != "" {
		opts = append(opts, WithCacheControl(g.cacheControl))
	}

	if _, err := g.fs.Write(ctx, asset.Reference, io.LimitReader(c.Reader, c.Size), opts...); err != nil {
		g.logger.Error("failed to store asset", "kind", kind, "reference", asset.Reference, "error", err)
		return nil, fmt.Errorf("failed to store %s: %w", kind, err)
	}

	g.logger.Info("asset stored",
		"kind", kind,
		"reference", asset.Reference,
		"size", asset.Size,
		"checksum", asset.Checksum,
	)

	return asset, nil
}

// checksumCandidate hashes the candidate and confirms it holds exactly the
// number of bytes the size check saw.
func (g *Ingestor) checksumCandidate(c filevalidator.Candidate, kind filevalidator.AssetKind) (string, error) {
	h, err := NewHasher(g.checksum)
	if err != nil {
		return "", err
	}
	if err := c.Rewind(); err != nil {
		return "", fmt.Errorf("failed to rewind candidate: %w", err)
	}

	n, err := io.Copy(h, io.LimitReader(c.Reader, c.Size+1))
	if err != nil {
		return "", filevalidator.NewValidationError(kind, filevalidator.ReasonUnreadableFile, "failed to read upload for checksum")
	}
	if n != c.Size {
		return "", filevalidator.NewValidationError(kind, filevalidator.ReasonUnreadableFile,
			fmt.Sprintf("upload holds %d bytes but declared %d", n, c.Size))
	}

	if err := c.Rewind(); err != nil {
		return "", fmt.Errorf("failed to rewind candidate: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// pdfPageCount reads the page tree of an accepted PDF. The signature check
// alone decides acceptance, so failures here are not rejections.
func pdfPageCount(rs io.ReadSeeker) (pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parser panic: %v", r)
		}
	}()
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}
	return api.PageCount(rs, model.NewDefaultConfiguration())
}

// owns reports whether ref is a clean path under the ingestor's root.
func (g *Ingestor) owns(ref string) bool {
	if ref == "" || strings.Contains(ref, "..") || path.Clean(ref) != ref {
		return false
	}
	return strings.HasPrefix(ref, g.root+"/")
}

// Open returns a reader for a stored asset.
func (g *Ingestor) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	if !g.owns(ref) {
		return nil, NewPathError("open", ref, ErrNotAllowed)
	}
	return g.fs.Read(ctx, ref)
}

// Stat returns metadata of a stored asset.
func (g *Ingestor) Stat(ctx context.Context, ref string) (*FileInfo, error) {
	if !g.owns(ref) {
		return nil, NewPathError("stat", ref, ErrNotAllowed)
	}
	return g.fs.Stat(ctx, ref)
}

// Remove deletes a stored asset. References outside the root prefix are
// refused with ErrNotAllowed.
func (g *Ingestor) Remove(ctx context.Context, ref string) error {
	if !g.owns(ref) {
		return NewPathError("remove", ref, ErrNotAllowed)
	}
	if err := g.fs.Delete(ctx, ref); err != nil {
		return err
	}
	g.logger.Info("asset removed", "reference", ref)
	return nil
}

// Replace ingests c and then removes oldRef. If c is rejected the old asset
// is kept. Failing to remove the old asset is logged, not returned, since the
// new asset is already stored.
func (g *Ingestor) Replace(ctx context.Context, oldRef string, c filevalidator.Candidate, kind filevalidator.AssetKind) (*Asset, error) {
	asset, err := g.Ingest(ctx, c, kind)
	if err != nil {
		return nil, err
	}
	if oldRef == "" || oldRef == asset.Reference {
		return asset, nil
	}
	if err := g.Remove(context.WithoutCancel(ctx), oldRef); err != nil && !IsNotExist(err) {
		g.logger.Warn("failed to remove replaced asset", "reference", oldRef, "error", err)
	}
	return asset, nil
}

// Verify reports whether the stored bytes of asset still match its checksum.
func (g *Ingestor) Verify(ctx context.Context, asset *Asset) (bool, error) {
	if !g.owns(asset.Reference) {
		return false, NewPathError("verify", asset.Reference, ErrNotAllowed)
	}
	return VerifyChecksum(ctx, g.fs, asset.Reference, asset.Checksum, asset.ChecksumAlgorithm)
}
