package memory

import (
	"bytes"
	"context"
	"io"
	"maps"
	"mime"
	"net/http"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gobeaver/assetguard"
)

// memoryFile represents a file stored in memory
type memoryFile struct {
	content      []byte
	contentType  string
	cacheControl string
	metadata     map[string]string
	modTime      time.Time
}

// Adapter provides an in-memory implementation of assetguard.FileSystem
// Useful for testing and development
type Adapter struct {
	mu      sync.RWMutex
	files   map[string]*memoryFile
	maxSize int64 // Maximum total storage size (0 = unlimited)
	size    int64 // Current total size
}

// Config holds configuration for the memory adapter
type Config struct {
	// MaxSize is the maximum total storage size in bytes (0 = unlimited)
	MaxSize int64
}

// New creates a new in-memory filesystem adapter
func New(cfg ...Config) *Adapter {
	var maxSize int64
	if len(cfg) > 0 {
		maxSize = cfg[0].MaxSize
	}

	return &Adapter{
		files:   make(map[string]*memoryFile),
		maxSize: maxSize,
	}
}

// Write implements assetguard.FileWriter
func (a *Adapter) Write(ctx context.Context, p string, content io.Reader, options ...assetguard.Option) (*assetguard.WriteResult, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	p = normalizePath(p)

	// Validate path
	if !isValidPath(p) {
		return nil, &assetguard.PathError{
			Op:   "write",
			Path: p,
			Err:  assetguard.ErrNotAllowed,
		}
	}

	// Read content into memory
	data, err := io.ReadAll(content)
	if err != nil {
		return nil, &assetguard.PathError{
			Op:   "write",
			Path: p,
			Err:  err,
		}
	}

	opts := assetguard.ApplyOptions(options...)

	a.mu.Lock()
	defer a.mu.Unlock()

	// Check if file exists and overwrite is not allowed
	newSize := a.size + int64(len(data))
	if existing, exists := a.files[p]; exists {
		if !opts.Overwrite {
			return nil, &assetguard.PathError{
				Op:   "write",
				Path: p,
				Err:  assetguard.ErrExist,
			}
		}
		newSize -= int64(len(existing.content))
	}

	// Check max size limit
	if a.maxSize > 0 && newSize > a.maxSize {
		return nil, &assetguard.PathError{
			Op:   "write",
			Path: p,
			Err:  assetguard.ErrInvalidSize,
		}
	}

	// Determine content type
	contentType := opts.ContentType
	if contentType == "" {
		contentType = detectContentType(p, data)
	}

	a.files[p] = &memoryFile{
		content:      data,
		contentType:  contentType,
		cacheControl: opts.CacheControl,
		metadata:     maps.Clone(opts.Metadata),
		modTime:      time.Now(),
	}
	a.size = newSize

	return &assetguard.WriteResult{BytesWritten: int64(len(data))}, nil
}

// Read implements assetguard.FileReader
func (a *Adapter) Read(ctx context.Context, p string) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	p = normalizePath(p)

	a.mu.RLock()
	defer a.mu.RUnlock()

	file, exists := a.files[p]
	if !exists {
		return nil, &assetguard.PathError{
			Op:   "read",
			Path: p,
			Err:  assetguard.ErrNotExist,
		}
	}

	// Stored slices are never mutated, so readers can share them
	return io.NopCloser(bytes.NewReader(file.content)), nil
}

// ReadAll implements assetguard.FileReader
func (a *Adapter) ReadAll(ctx context.Context, p string) ([]byte, error) {
	rc, err := a.Read(ctx, p)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Delete implements assetguard.FileWriter
func (a *Adapter) Delete(ctx context.Context, p string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	p = normalizePath(p)

	a.mu.Lock()
	defer a.mu.Unlock()

	file, exists := a.files[p]
	if !exists {
		return &assetguard.PathError{
			Op:   "delete",
			Path: p,
			Err:  assetguard.ErrNotExist,
		}
	}

	a.size -= int64(len(file.content))
	delete(a.files, p)

	return nil
}

// FileExists implements assetguard.FileReader
func (a *Adapter) FileExists(ctx context.Context, p string) (bool, error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}

	p = normalizePath(p)

	a.mu.RLock()
	defer a.mu.RUnlock()

	_, exists := a.files[p]
	return exists, nil
}

// Stat implements assetguard.FileReader
func (a *Adapter) Stat(ctx context.Context, p string) (*assetguard.FileInfo, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	p = normalizePath(p)

	a.mu.RLock()
	defer a.mu.RUnlock()

	file, exists := a.files[p]
	if !exists {
		return nil, &assetguard.PathError{
			Op:   "stat",
			Path: p,
			Err:  assetguard.ErrNotExist,
		}
	}

	info := fileInfo(p, file)
	return &info, nil
}

// List implements assetguard.FileReader
func (a *Adapter) List(ctx context.Context, prefix string) ([]assetguard.FileInfo, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	prefix = normalizePath(prefix)
	prefixWithSlash := ""
	if prefix != "" {
		prefixWithSlash = prefix + "/"
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	var files []assetguard.FileInfo
	for filePath, file := range a.files {
		if strings.HasPrefix(filePath, prefixWithSlash) {
			files = append(files, fileInfo(filePath, file))
		}
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Path < files[j].Path
	})

	return files, nil
}

// Checksum implements assetguard.CanChecksum for in-memory files.
func (a *Adapter) Checksum(ctx context.Context, p string, algorithm assetguard.ChecksumAlgorithm) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	p = normalizePath(p)

	a.mu.RLock()
	defer a.mu.RUnlock()

	file, exists := a.files[p]
	if !exists {
		return "", &assetguard.PathError{Op: "checksum", Path: p, Err: assetguard.ErrNotExist}
	}

	checksum, err := assetguard.CalculateChecksum(bytes.NewReader(file.content), algorithm)
	if err != nil {
		return "", &assetguard.PathError{Op: "checksum", Path: p, Err: err}
	}

	return checksum, nil
}

// CacheControl returns the Cache-Control value a file was written with.
func (a *Adapter) CacheControl(p string) string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if file, ok := a.files[normalizePath(p)]; ok {
		return file.cacheControl
	}
	return ""
}

// Clear removes all files from the memory filesystem
// Useful for testing cleanup
func (a *Adapter) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.files = make(map[string]*memoryFile)
	a.size = 0
}

// Size returns the current total size of all stored files
func (a *Adapter) Size() int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.size
}

// FileCount returns the number of files stored
func (a *Adapter) FileCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.files)
}

// Touch sets the modification time of a file. Tests use it to age files.
func (a *Adapter) Touch(p string, modTime time.Time) error {
	p = normalizePath(p)

	a.mu.Lock()
	defer a.mu.Unlock()

	file, exists := a.files[p]
	if !exists {
		return &assetguard.PathError{Op: "touch", Path: p, Err: assetguard.ErrNotExist}
	}
	file.modTime = modTime
	return nil
}

func fileInfo(p string, file *memoryFile) assetguard.FileInfo {
	return assetguard.FileInfo{
		Name:        path.Base(p),
		Path:        p,
		Size:        int64(len(file.content)),
		ModTime:     file.modTime,
		ContentType: file.contentType,
		Metadata:    maps.Clone(file.metadata),
	}
}

// normalizePath normalizes a file path
func normalizePath(p string) string {
	p = strings.TrimPrefix(p, "/")
	if p == "" || p == "." {
		return ""
	}
	return path.Clean(p)
}

// isValidPath checks if a path is valid (no directory traversal)
func isValidPath(p string) bool {
	return p != "" && !strings.Contains(p, "..")
}

// detectContentType determines the content type of a file
func detectContentType(p string, data []byte) string {
	// Try extension first
	if ext := path.Ext(p); ext != "" {
		if contentType := mime.TypeByExtension(ext); contentType != "" {
			return contentType
		}
	}

	// Fall back to content detection
	if len(data) > 0 {
		return http.DetectContentType(data)
	}

	return "application/octet-stream"
}

// Ensure Adapter implements interfaces
var (
	_ assetguard.FileSystem  = (*Adapter)(nil)
	_ assetguard.FileReader  = (*Adapter)(nil)
	_ assetguard.FileWriter  = (*Adapter)(nil)
	_ assetguard.CanChecksum = (*Adapter)(nil)
)
