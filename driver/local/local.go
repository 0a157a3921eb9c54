package local

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobeaver/assetguard"
)

// tempPrefix marks in-flight writes; List skips them.
const tempPrefix = ".upload-"

// Adapter provides a local filesystem implementation of assetguard.FileSystem.
// Content type and metadata options are not persisted; Stat derives the
// content type from the file itself.
type Adapter struct {
	root string
}

// New creates a new local filesystem adapter
func New(root string) (*Adapter, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	// Ensure the root directory exists
	if err := os.MkdirAll(absRoot, 0755); err != nil {
		return nil, err
	}

	return &Adapter{
		root: absRoot,
	}, nil
}

// Root returns the absolute base directory.
func (a *Adapter) Root() string {
	return a.root
}

// resolve maps a store path to an absolute path under root.
func (a *Adapter) resolve(op, path string) (string, error) {
	fullPath := filepath.Join(a.root, filepath.Clean(filepath.FromSlash(path)))
	if !isPathUnderRoot(a.root, fullPath) || fullPath == a.root {
		return "", &assetguard.PathError{
			Op:   op,
			Path: path,
			Err:  assetguard.ErrNotAllowed,
		}
	}
	return fullPath, nil
}

// Write implements assetguard.FileWriter. Content lands in a temporary file
// next to the target and is renamed into place once fully written, so readers
// never observe a partial file.
func (a *Adapter) Write(ctx context.Context, path string, content io.Reader, options ...assetguard.Option) (*assetguard.WriteResult, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
		// Continue
	}

	fullPath, err := a.resolve("write", path)
	if err != nil {
		return nil, err
	}

	opts := assetguard.ApplyOptions(options...)

	if !opts.Overwrite {
		if _, err := os.Stat(fullPath); err == nil {
			return nil, &assetguard.PathError{
				Op:   "write",
				Path: path,
				Err:  assetguard.ErrExist,
			}
		}
	}

	// Ensure the directory exists
	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, &assetguard.PathError{
			Op:   "write",
			Path: path,
			Err:  err,
		}
	}

	tmp, err := os.CreateTemp(dir, tempPrefix+"*")
	if err != nil {
		return nil, &assetguard.PathError{
			Op:   "write",
			Path: path,
			Err:  err,
		}
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	n, err := io.Copy(tmp, &ctxReader{ctx: ctx, r: content})
	if err != nil {
		return nil, &assetguard.PathError{
			Op:   "write",
			Path: path,
			Err:  err,
		}
	}

	if err := tmp.Close(); err != nil {
		return nil, &assetguard.PathError{
			Op:   "write",
			Path: path,
			Err:  err,
		}
	}

	if err := os.Chmod(tmpName, 0644); err != nil {
		return nil, &assetguard.PathError{
			Op:   "write",
			Path: path,
			Err:  err,
		}
	}

	if err := os.Rename(tmpName, fullPath); err != nil {
		return nil, &assetguard.PathError{
			Op:   "write",
			Path: path,
			Err:  err,
		}
	}
	committed = true

	return &assetguard.WriteResult{BytesWritten: n}, nil
}

// ctxReader stops a copy once the context is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// Read implements assetguard.FileReader
func (a *Adapter) Read(ctx context.Context, path string) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
		// Continue
	}

	fullPath, err := a.resolve("read", path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &assetguard.PathError{
				Op:   "read",
				Path: path,
				Err:  assetguard.ErrNotExist,
			}
		}
		return nil, &assetguard.PathError{
			Op:   "read",
			Path: path,
			Err:  err,
		}
	}

	return f, nil
}

// ReadAll implements assetguard.FileReader
func (a *Adapter) ReadAll(ctx context.Context, path string) ([]byte, error) {
	rc, err := a.Read(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return io.ReadAll(rc)
}

// Delete implements assetguard.FileWriter
func (a *Adapter) Delete(ctx context.Context, path string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		// Continue
	}

	fullPath, err := a.resolve("delete", path)
	if err != nil {
		return err
	}

	info, err := os.Stat(fullPath)
	if err == nil && info.IsDir() {
		return &assetguard.PathError{
			Op:   "delete",
			Path: path,
			Err:  assetguard.ErrNotAllowed,
		}
	}

	if err := os.Remove(fullPath); err != nil {
		if os.IsNotExist(err) {
			return &assetguard.PathError{
				Op:   "delete",
				Path: path,
				Err:  assetguard.ErrNotExist,
			}
		}
		return &assetguard.PathError{
			Op:   "delete",
			Path: path,
			Err:  err,
		}
	}

	return nil
}

// FileExists implements assetguard.FileReader
func (a *Adapter) FileExists(ctx context.Context, path string) (bool, error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
		// Continue
	}

	fullPath, err := a.resolve("fileexists", path)
	if err != nil {
		return false, err
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, &assetguard.PathError{
			Op:   "fileexists",
			Path: path,
			Err:  err,
		}
	}

	// Return true only if it's a file (not a directory)
	return !info.IsDir(), nil
}

// Stat implements assetguard.FileReader
func (a *Adapter) Stat(ctx context.Context, path string) (*assetguard.FileInfo, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
		// Continue
	}

	fullPath, err := a.resolve("stat", path)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(fullPath)
	if err != nil || info.IsDir() {
		if err == nil || os.IsNotExist(err) {
			return nil, &assetguard.PathError{
				Op:   "stat",
				Path: path,
				Err:  assetguard.ErrNotExist,
			}
		}
		return nil, &assetguard.PathError{
			Op:   "stat",
			Path: path,
			Err:  err,
		}
	}

	return &assetguard.FileInfo{
		Name:        info.Name(),
		Path:        a.relPath(fullPath),
		Size:        info.Size(),
		ModTime:     info.ModTime(),
		ContentType: getContentType(fullPath),
	}, nil
}

// List implements assetguard.FileReader
func (a *Adapter) List(ctx context.Context, prefix string) ([]assetguard.FileInfo, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
		// Continue
	}

	fullPath := a.root
	if strings.Trim(prefix, "/") != "" {
		var err error
		if fullPath, err = a.resolve("list", prefix); err != nil {
			return nil, err
		}
	}

	var files []assetguard.FileInfo
	err := filepath.WalkDir(fullPath, func(walkPath string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}

		// Check context cancellation
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if d.IsDir() || strings.HasPrefix(d.Name(), tempPrefix) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}

		files = append(files, assetguard.FileInfo{
			Name:        info.Name(),
			Path:        a.relPath(walkPath),
			Size:        info.Size(),
			ModTime:     info.ModTime(),
			ContentType: contentTypeByExtension(walkPath),
		})
		return nil
	})
	if err != nil {
		return nil, &assetguard.PathError{
			Op:   "list",
			Path: prefix,
			Err:  err,
		}
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Path < files[j].Path
	})

	return files, nil
}

// Checksum implements assetguard.CanChecksum for local files.
func (a *Adapter) Checksum(ctx context.Context, path string, algorithm assetguard.ChecksumAlgorithm) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	fullPath, err := a.resolve("checksum", path)
	if err != nil {
		return "", err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", &assetguard.PathError{Op: "checksum", Path: path, Err: assetguard.ErrNotExist}
		}
		return "", &assetguard.PathError{Op: "checksum", Path: path, Err: err}
	}
	defer file.Close()

	checksum, err := assetguard.CalculateChecksum(file, algorithm)
	if err != nil {
		return "", &assetguard.PathError{Op: "checksum", Path: path, Err: err}
	}

	return checksum, nil
}

func (a *Adapter) relPath(fullPath string) string {
	rel, err := filepath.Rel(a.root, fullPath)
	if err != nil {
		return fullPath
	}
	return filepath.ToSlash(rel)
}

// isPathUnderRoot checks if a path is under a given root directory
func isPathUnderRoot(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}

	return !filepath.IsAbs(rel) && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func contentTypeByExtension(path string) string {
	if ext := filepath.Ext(path); ext != "" {
		return mime.TypeByExtension(ext)
	}
	return ""
}

// getContentType tries to determine the content type of a file
func getContentType(path string) string {
	if contentType := contentTypeByExtension(path); contentType != "" {
		return contentType
	}

	// Try to determine content type by reading file header
	file, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer file.Close()

	// Read a small slice of the file to detect content type
	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil && !errors.Is(err, io.EOF) {
		return ""
	}

	return http.DetectContentType(buffer[:n])
}

// Ensure Adapter implements interfaces
var (
	_ assetguard.FileSystem  = (*Adapter)(nil)
	_ assetguard.CanChecksum = (*Adapter)(nil)
)
