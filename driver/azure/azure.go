package azure

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path"
	"sort"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
	"github.com/gobeaver/assetguard"
)

// Adapter provides an Azure Blob Storage implementation of assetguard.FileSystem
type Adapter struct {
	client        *azblob.Client
	containerName string
	prefix        string
}

// AdapterOption is a function that configures Azure Adapter
type AdapterOption func(*Adapter)

// WithPrefix sets the prefix for Azure blobs
func WithPrefix(prefix string) AdapterOption {
	return func(a *Adapter) {
		a.prefix = strings.Trim(prefix, "/")
	}
}

// New creates a new Azure Blob Storage filesystem adapter
func New(client *azblob.Client, containerName string, options ...AdapterOption) *Adapter {
	adapter := &Adapter{
		client:        client,
		containerName: containerName,
	}

	// Apply options
	for _, option := range options {
		option(adapter)
	}

	return adapter
}

func (a *Adapter) blobName(filePath string) string {
	return path.Join(a.prefix, strings.TrimPrefix(filePath, "/"))
}

func (a *Adapter) blobClient(filePath string) *blob.Client {
	return a.client.ServiceClient().NewContainerClient(a.containerName).NewBlobClient(a.blobName(filePath))
}

// Write implements assetguard.FileWriter. Without the overwrite option the
// upload carries If-None-Match: * so an existing blob is never replaced.
func (a *Adapter) Write(ctx context.Context, filePath string, content io.Reader, options ...assetguard.Option) (*assetguard.WriteResult, error) {
	if filePath == "" || strings.Contains(filePath, "..") {
		return nil, assetguard.NewPathError("write", filePath, assetguard.ErrNotAllowed)
	}

	opts := assetguard.ApplyOptions(options...)

	// UploadBuffer needs the whole body; uploads are bounded by the
	// validation ceilings.
	data, err := io.ReadAll(content)
	if err != nil {
		return nil, assetguard.NewPathError("write", filePath, err)
	}

	uploadOpts := &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{},
		Metadata:    toAzureMetadata(opts.Metadata),
	}
	if opts.ContentType != "" {
		uploadOpts.HTTPHeaders.BlobContentType = &opts.ContentType
	}
	if opts.CacheControl != "" {
		uploadOpts.HTTPHeaders.BlobCacheControl = &opts.CacheControl
	}
	if !opts.Overwrite {
		etagAny := azcore.ETagAny
		uploadOpts.AccessConditions = &blob.AccessConditions{
			ModifiedAccessConditions: &blob.ModifiedAccessConditions{IfNoneMatch: &etagAny},
		}
	}

	resp, err := a.client.UploadBuffer(ctx, a.containerName, a.blobName(filePath), data, uploadOpts)
	if err != nil {
		return nil, mapAzureError("write", filePath, err)
	}

	var etag string
	if resp.ETag != nil {
		etag = string(*resp.ETag)
	}

	return &assetguard.WriteResult{
		BytesWritten: int64(len(data)),
		ETag:         etag,
	}, nil
}

// Read implements assetguard.FileReader
func (a *Adapter) Read(ctx context.Context, filePath string) (io.ReadCloser, error) {
	resp, err := a.client.DownloadStream(ctx, a.containerName, a.blobName(filePath), nil)
	if err != nil {
		return nil, mapAzureError("read", filePath, err)
	}

	return resp.Body, nil
}

// ReadAll reads the entire file and returns its contents as a byte slice
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
	_, err := a.client.DeleteBlob(ctx, a.containerName, a.blobName(filePath), nil)
	if err != nil {
		return mapAzureError("delete", filePath, err)
	}

	return nil
}

// FileExists implements assetguard.FileReader
func (a *Adapter) FileExists(ctx context.Context, filePath string) (bool, error) {
	_, err := a.blobClient(filePath).GetProperties(ctx, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return false, nil
		}
		return false, mapAzureError("fileexists", filePath, err)
	}
	return true, nil
}

// Stat implements assetguard.FileReader
func (a *Adapter) Stat(ctx context.Context, filePath string) (*assetguard.FileInfo, error) {
	props, err := a.blobClient(filePath).GetProperties(ctx, nil)
	if err != nil {
		return nil, mapAzureError("stat", filePath, err)
	}

	info := &assetguard.FileInfo{
		Name:     path.Base(filePath),
		Path:     strings.TrimPrefix(filePath, "/"),
		Metadata: fromAzureMetadata(props.Metadata),
	}
	if props.ContentLength != nil {
		info.Size = *props.ContentLength
	}
	if props.LastModified != nil {
		info.ModTime = *props.LastModified
	}
	if props.ContentType != nil {
		info.ContentType = *props.ContentType
	}

	return info, nil
}

// List implements assetguard.FileReader
func (a *Adapter) List(ctx context.Context, prefix string) ([]assetguard.FileInfo, error) {
	listPrefix := a.blobName(prefix)
	if listPrefix != "" {
		listPrefix += "/"
	}

	pager := a.client.NewListBlobsFlatPager(a.containerName, &container.ListBlobsFlatOptions{
		Prefix: &listPrefix,
	})

	var files []assetguard.FileInfo
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, mapAzureError("list", prefix, err)
		}

		for _, item := range resp.Segment.BlobItems {
			if item.Name == nil || strings.HasSuffix(*item.Name, "/") {
				continue
			}

			relPath := *item.Name
			if a.prefix != "" {
				relPath = strings.TrimPrefix(relPath, a.prefix+"/")
			}

			info := assetguard.FileInfo{
				Name: path.Base(relPath),
				Path: relPath,
			}
			if p := item.Properties; p != nil {
				if p.ContentLength != nil {
					info.Size = *p.ContentLength
				}
				if p.LastModified != nil {
					info.ModTime = *p.LastModified
				}
				if p.ContentType != nil {
					info.ContentType = *p.ContentType
				}
			}
			files = append(files, info)
		}
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Path < files[j].Path
	})

	return files, nil
}

func toAzureMetadata(m map[string]string) map[string]*string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]*string, len(m))
	for k, v := range m {
		out[azureMetadataKey(k)] = &v
	}
	return out
}

func fromAzureMetadata(m map[string]*string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		if v != nil {
			out[strings.ReplaceAll(strings.ToLower(k), "_", "-")] = *v
		}
	}
	return out
}

// azureMetadataKey turns a key into a C# identifier, which Azure requires
// for metadata names. Dashes become underscores.
func azureMetadataKey(k string) string {
	return strings.ReplaceAll(k, "-", "_")
}

// mapAzureError maps Azure errors to assetguard errors
func mapAzureError(op, filePath string, err error) error {
	if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
		return assetguard.NewPathError(op, filePath, assetguard.ErrNotExist)
	}

	if bloberror.HasCode(err, bloberror.BlobAlreadyExists, bloberror.ConditionNotMet) {
		return assetguard.NewPathError(op, filePath, assetguard.ErrExist)
	}

	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.StatusCode {
		case http.StatusNotFound:
			return assetguard.NewPathError(op, filePath, assetguard.ErrNotExist)
		case http.StatusConflict, http.StatusPreconditionFailed:
			return assetguard.NewPathError(op, filePath, assetguard.ErrExist)
		case http.StatusForbidden:
			return assetguard.NewPathError(op, filePath, assetguard.ErrPermission)
		}
	}

	return assetguard.NewPathError(op, filePath, err)
}

// Ensure Adapter implements interfaces
var _ assetguard.FileSystem = (*Adapter)(nil)
