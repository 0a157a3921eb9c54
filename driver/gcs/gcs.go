package gcs

import (
	"context"
	"errors"
	"io"
	"maps"
	"net/http"
	"path"
	"sort"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/gobeaver/assetguard"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
)

// Adapter provides a Google Cloud Storage implementation of assetguard.FileSystem
type Adapter struct {
	client *storage.Client
	bucket string
	prefix string
}

// AdapterOption is a function that configures GCS Adapter
type AdapterOption func(*Adapter)

// WithPrefix sets the prefix for GCS objects
func WithPrefix(prefix string) AdapterOption {
	return func(a *Adapter) {
		a.prefix = strings.Trim(prefix, "/")
	}
}

// New creates a new GCS filesystem adapter
func New(client *storage.Client, bucket string, options ...AdapterOption) *Adapter {
	adapter := &Adapter{
		client: client,
		bucket: bucket,
	}

	// Apply options
	for _, option := range options {
		option(adapter)
	}

	return adapter
}

func (a *Adapter) object(filePath string) *storage.ObjectHandle {
	return a.client.Bucket(a.bucket).Object(objectKey(a.prefix, filePath))
}

// Write implements assetguard.FileWriter. Without the overwrite option the
// upload is conditional on the object not existing, so concurrent writers
// cannot replace each other's objects.
func (a *Adapter) Write(ctx context.Context, filePath string, content io.Reader, options ...assetguard.Option) (*assetguard.WriteResult, error) {
	if filePath == "" || strings.Contains(filePath, "..") {
		return nil, assetguard.NewPathError("write", filePath, assetguard.ErrNotAllowed)
	}

	opts := assetguard.ApplyOptions(options...)

	obj := a.object(filePath)
	if !opts.Overwrite {
		obj = obj.If(storage.Conditions{DoesNotExist: true})
	}

	// Cancelling ctx aborts the upload; nothing is committed until Close
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()

	writer := obj.NewWriter(wctx)
	writer.ContentType = opts.ContentType
	writer.CacheControl = opts.CacheControl
	if len(opts.Metadata) > 0 {
		writer.Metadata = maps.Clone(opts.Metadata)
	}

	written, err := io.Copy(writer, content)
	if err != nil {
		cancel()
		writer.Close()
		return nil, mapGCSError("write", filePath, err)
	}

	if err := writer.Close(); err != nil {
		return nil, mapGCSError("write", filePath, err)
	}

	var etag string
	if attrs := writer.Attrs(); attrs != nil {
		etag = attrs.Etag
	}

	return &assetguard.WriteResult{
		BytesWritten: written,
		ETag:         etag,
	}, nil
}

// Read implements assetguard.FileReader
func (a *Adapter) Read(ctx context.Context, filePath string) (io.ReadCloser, error) {
	reader, err := a.object(filePath).NewReader(ctx)
	if err != nil {
		return nil, mapGCSError("read", filePath, err)
	}
	return reader, nil
}

// ReadAll implements assetguard.FileReader
func (a *Adapter) ReadAll(ctx context.Context, filePath string) ([]byte, error) {
	rc, err := a.Read(ctx, filePath)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return io.ReadAll(rc)
}

// Delete implements assetguard.FileWriter
func (a *Adapter) Delete(ctx context.Context, filePath string) error {
	if err := a.object(filePath).Delete(ctx); err != nil {
		return mapGCSError("delete", filePath, err)
	}
	return nil
}

// FileExists implements assetguard.FileReader
func (a *Adapter) FileExists(ctx context.Context, filePath string) (bool, error) {
	_, err := a.object(filePath).Attrs(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return false, nil
		}
		return false, mapGCSError("fileexists", filePath, err)
	}
	return true, nil
}

// Stat implements assetguard.FileReader
func (a *Adapter) Stat(ctx context.Context, filePath string) (*assetguard.FileInfo, error) {
	attrs, err := a.object(filePath).Attrs(ctx)
	if err != nil {
		return nil, mapGCSError("stat", filePath, err)
	}

	return &assetguard.FileInfo{
		Name:        path.Base(filePath),
		Path:        strings.TrimPrefix(filePath, "/"),
		Size:        attrs.Size,
		ModTime:     attrs.Updated,
		ContentType: attrs.ContentType,
		Metadata:    maps.Clone(attrs.Metadata),
	}, nil
}

// List implements assetguard.FileReader
func (a *Adapter) List(ctx context.Context, prefix string) ([]assetguard.FileInfo, error) {
	listPrefix := objectKey(a.prefix, prefix)
	if listPrefix != "" {
		listPrefix += "/"
	}

	query := &storage.Query{Prefix: listPrefix}
	if err := query.SetAttrSelection([]string{"Name", "Size", "Updated", "ContentType"}); err != nil {
		return nil, mapGCSError("list", prefix, err)
	}

	var files []assetguard.FileInfo
	it := a.client.Bucket(a.bucket).Objects(ctx, query)
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, mapGCSError("list", prefix, err)
		}

		// Skip directory placeholders
		if strings.HasSuffix(attrs.Name, "/") {
			continue
		}

		relPath := relativeKey(a.prefix, attrs.Name)
		files = append(files, assetguard.FileInfo{
			Name:        path.Base(relPath),
			Path:        relPath,
			Size:        attrs.Size,
			ModTime:     attrs.Updated,
			ContentType: attrs.ContentType,
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Path < files[j].Path
	})

	return files, nil
}

func objectKey(prefix, filePath string) string {
	return path.Join(prefix, strings.TrimPrefix(filePath, "/"))
}

func relativeKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return strings.TrimPrefix(key, prefix+"/")
}

// mapGCSError maps GCS errors to assetguard errors
func mapGCSError(op, filePath string, err error) error {
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return assetguard.NewPathError(op, filePath, assetguard.ErrNotExist)
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusPreconditionFailed:
			return assetguard.NewPathError(op, filePath, assetguard.ErrExist)
		case http.StatusForbidden, http.StatusUnauthorized:
			return assetguard.NewPathError(op, filePath, errors.Join(assetguard.ErrPermission, err))
		}
	}

	return assetguard.NewPathError(op, filePath, err)
}

// Ensure Adapter implements interfaces
var _ assetguard.FileSystem = (*Adapter)(nil)
