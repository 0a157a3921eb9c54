package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"maps"
	"path"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gobeaver/assetguard"
)

// Client is the subset of *s3.Client the adapter uses.
type Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Adapter provides an S3 implementation of assetguard.FileSystem
type Adapter struct {
	client Client
	bucket string
	prefix string
}

// AdapterOption is a function that configures Adapter
type AdapterOption func(*Adapter)

// WithPrefix sets the prefix for S3 objects
func WithPrefix(prefix string) AdapterOption {
	return func(a *Adapter) {
		a.prefix = strings.Trim(prefix, "/")
	}
}

// New creates a new S3 filesystem adapter
func New(client Client, bucket string, options ...AdapterOption) *Adapter {
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

func (a *Adapter) key(filePath string) string {
	return path.Join(a.prefix, strings.TrimPrefix(filePath, "/"))
}

func (a *Adapter) relPath(key string) string {
	if a.prefix == "" {
		return key
	}
	return strings.TrimPrefix(key, a.prefix+"/")
}

// Write implements assetguard.FileWriter
func (a *Adapter) Write(ctx context.Context, filePath string, content io.Reader, options ...assetguard.Option) (*assetguard.WriteResult, error) {
	if filePath == "" || strings.Contains(filePath, "..") {
		return nil, assetguard.NewPathError("write", filePath, assetguard.ErrNotAllowed)
	}

	opts := assetguard.ApplyOptions(options...)
	key := a.key(filePath)

	if !opts.Overwrite {
		exists, err := a.FileExists(ctx, filePath)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, assetguard.NewPathError("write", filePath, assetguard.ErrExist)
		}
	}

	// PutObject needs a known length; uploads are bounded by the
	// validation ceilings, so buffering is acceptable.
	var body io.ReadSeeker
	var contentLength int64
	switch r := content.(type) {
	case *bytes.Reader:
		contentLength = int64(r.Len())
		body = r
	case *strings.Reader:
		contentLength = int64(r.Len())
		body = r
	default:
		data, err := io.ReadAll(content)
		if err != nil {
			return nil, assetguard.NewPathError("write", filePath, err)
		}
		contentLength = int64(len(data))
		body = bytes.NewReader(data)
	}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(contentLength),
	}

	if opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
	}

	if opts.CacheControl != "" {
		input.CacheControl = aws.String(opts.CacheControl)
	}

	if len(opts.Metadata) > 0 {
		input.Metadata = maps.Clone(opts.Metadata)
	}

	result, err := a.client.PutObject(ctx, input)
	if err != nil {
		return nil, mapS3Error("write", filePath, err)
	}

	return &assetguard.WriteResult{
		BytesWritten: contentLength,
		ETag:         aws.ToString(result.ETag),
	}, nil
}

// Read implements assetguard.FileReader
func (a *Adapter) Read(ctx context.Context, filePath string) (io.ReadCloser, error) {
	resp, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(a.key(filePath)),
	})
	if err != nil {
		return nil, mapS3Error("read", filePath, err)
	}

	return resp.Body, nil
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

// Delete implements assetguard.FileWriter. S3 reports success for keys that
// do not exist, so deleting a missing object is not an error.
func (a *Adapter) Delete(ctx context.Context, filePath string) error {
	_, err := a.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(a.key(filePath)),
	})
	if err != nil {
		return mapS3Error("delete", filePath, err)
	}
	return nil
}

// FileExists implements assetguard.FileReader
func (a *Adapter) FileExists(ctx context.Context, filePath string) (bool, error) {
	_, err := a.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(a.key(filePath)),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, mapS3Error("fileexists", filePath, err)
	}

	return true, nil
}

// Stat implements assetguard.FileReader
func (a *Adapter) Stat(ctx context.Context, filePath string) (*assetguard.FileInfo, error) {
	resp, err := a.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(a.key(filePath)),
	})
	if err != nil {
		return nil, mapS3Error("stat", filePath, err)
	}

	return &assetguard.FileInfo{
		Name:        path.Base(filePath),
		Path:        strings.TrimPrefix(filePath, "/"),
		Size:        aws.ToInt64(resp.ContentLength),
		ModTime:     aws.ToTime(resp.LastModified),
		ContentType: aws.ToString(resp.ContentType),
		Metadata:    maps.Clone(resp.Metadata),
	}, nil
}

// List implements assetguard.FileReader
func (a *Adapter) List(ctx context.Context, prefix string) ([]assetguard.FileInfo, error) {
	listPrefix := a.key(prefix)
	if listPrefix != "" {
		listPrefix += "/"
	}

	var files []assetguard.FileInfo

	paginator := s3.NewListObjectsV2Paginator(a.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(a.bucket),
		Prefix: aws.String(listPrefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, mapS3Error("list", prefix, err)
		}

		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			// Skip directory markers
			if strings.HasSuffix(key, "/") {
				continue
			}

			relPath := a.relPath(key)
			files = append(files, assetguard.FileInfo{
				Name:    path.Base(relPath),
				Path:    relPath,
				Size:    aws.ToInt64(obj.Size),
				ModTime: aws.ToTime(obj.LastModified),
			})
		}
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Path < files[j].Path
	})

	return files, nil
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &nsk) || errors.As(err, &notFound)
}

// mapS3Error maps S3 errors to assetguard errors
func mapS3Error(op, filePath string, err error) error {
	if isNotFound(err) {
		return assetguard.NewPathError(op, filePath, assetguard.ErrNotExist)
	}
	return assetguard.NewPathError(op, filePath, err)
}

// Ensure Adapter implements interfaces
var _ assetguard.FileSystem = (*Adapter)(nil)
