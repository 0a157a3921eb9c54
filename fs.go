package assetguard

import (
	"context"
	"io"
	"time"
)

// FileInfo represents stored object metadata
type FileInfo struct {
	Name        string
	Path        string
	Size        int64
	ModTime     time.Time
	ContentType string
	Metadata    map[string]string
}

// WriteResult describes a completed write.
type WriteResult struct {
	// BytesWritten is the number of bytes persisted.
	BytesWritten int64

	// ETag is the backend's version tag, if it has one.
	ETag string
}

// ============================================================================
// Core Interfaces (Interface Segregation)
// ============================================================================

// FileReader provides read-only access to an asset store.
// Use this type in function signatures to enforce read-only at compile time.
type FileReader interface {
	// Read returns a stream for reading file content.
	Read(ctx context.Context, path string) (io.ReadCloser, error)

	// ReadAll reads entire file into memory. Use for small files only.
	ReadAll(ctx context.Context, path string) ([]byte, error)

	// FileExists checks if a file exists at path.
	FileExists(ctx context.Context, path string) (bool, error)

	// Stat returns file metadata.
	Stat(ctx context.Context, path string) (*FileInfo, error)

	// List returns every file under prefix, recursively, sorted by path.
	// Paths are relative to the store root. A prefix with no files yields
	// an empty list, not an error.
	List(ctx context.Context, prefix string) ([]FileInfo, error)
}

// FileWriter provides write operations.
type FileWriter interface {
	// Write writes content from reader to path.
	// The reader is consumed to EOF; callers position it beforehand.
	Write(ctx context.Context, path string, r io.Reader, opts ...Option) (*WriteResult, error)

	// Delete removes a file.
	Delete(ctx context.Context, path string) error
}

// FileSystem is the storage sink validated assets are written to.
type FileSystem interface {
	FileReader
	FileWriter
}

// ============================================================================
// Checksum Interface
// ============================================================================

// ChecksumAlgorithm represents a supported checksum algorithm
type ChecksumAlgorithm string

const (
	// ChecksumSHA256 is the SHA-256 hash algorithm (256-bit)
	ChecksumSHA256 ChecksumAlgorithm = "sha256"
	// ChecksumCRC32 is the CRC32 checksum (32-bit, fastest, for integrity only)
	ChecksumCRC32 ChecksumAlgorithm = "crc32"
	// ChecksumXXHash is the xxHash algorithm (64-bit, extremely fast)
	ChecksumXXHash ChecksumAlgorithm = "xxhash"
)

// CanChecksum indicates the filesystem can hash a stored file without
// streaming it back to the caller.
//
// Example:
//
//	if cs, ok := fs.(CanChecksum); ok {
//	    sum, err := cs.Checksum(ctx, asset.Reference, assetguard.ChecksumXXHash)
//	}
type CanChecksum interface {
	// Checksum returns the hex-encoded checksum of the file at path.
	Checksum(ctx context.Context, path string, algorithm ChecksumAlgorithm) (string, error)
}
