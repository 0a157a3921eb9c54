package sftp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/gobeaver/assetguard"
	"github.com/google/uuid"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// tempPrefix marks in-flight uploads; List skips them.
const tempPrefix = ".upload-"

// Adapter provides an SFTP implementation of assetguard.FileSystem
type Adapter struct {
	mu       sync.Mutex
	client   *sftp.Client
	sshConn  *ssh.Client
	basePath string
	config   Config
}

// Config holds SFTP connection configuration
type Config struct {
	Host       string
	Port       int
	Username   string
	Password   string
	PrivateKey []byte // PEM encoded private key
	BasePath   string

	// KnownHostsFile verifies the server key. Empty accepts any key.
	KnownHostsFile string
}

// AdapterOption is a function that configures SFTP Adapter
type AdapterOption func(*Adapter)

// WithBasePath sets the base path for SFTP operations
func WithBasePath(basePath string) AdapterOption {
	return func(a *Adapter) {
		a.basePath = basePath
	}
}

// New creates a new SFTP filesystem adapter and connects to the server.
func New(cfg Config, options ...AdapterOption) (*Adapter, error) {
	adapter := &Adapter{
		config:   cfg,
		basePath: cfg.BasePath,
	}

	// Apply options
	for _, option := range options {
		option(adapter)
	}
	adapter.basePath = path.Clean("/" + adapter.basePath)

	adapter.mu.Lock()
	defer adapter.mu.Unlock()
	if err := adapter.connect(); err != nil {
		return nil, err
	}

	return adapter, nil
}

func (c Config) sshConfig() (*ssh.ClientConfig, error) {
	sshConfig := &ssh.ClientConfig{
		User:            c.Username,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	}

	if c.KnownHostsFile != "" {
		callback, err := knownhosts.New(c.KnownHostsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load known hosts: %w", err)
		}
		sshConfig.HostKeyCallback = callback
	}

	if len(c.PrivateKey) > 0 {
		signer, err := ssh.ParsePrivateKey(c.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
		sshConfig.Auth = append(sshConfig.Auth, ssh.PublicKeys(signer))
	}

	if c.Password != "" {
		sshConfig.Auth = append(sshConfig.Auth, ssh.Password(c.Password))
	}

	if len(sshConfig.Auth) == 0 {
		return nil, fmt.Errorf("no authentication method provided")
	}

	return sshConfig, nil
}

// connect establishes SSH and SFTP connections. Callers hold a.mu.
func (a *Adapter) connect() error {
	sshConfig, err := a.config.sshConfig()
	if err != nil {
		return err
	}

	port := a.config.Port
	if port == 0 {
		port = 22
	}

	addr := fmt.Sprintf("%s:%d", a.config.Host, port)
	sshConn, err := ssh.Dial("tcp", addr, sshConfig)
	if err != nil {
		return fmt.Errorf("failed to connect to SSH: %w", err)
	}

	sftpClient, err := sftp.NewClient(sshConn)
	if err != nil {
		sshConn.Close()
		return fmt.Errorf("failed to create SFTP client: %w", err)
	}

	a.sshConn = sshConn
	a.client = sftpClient

	return nil
}

// Close closes the SFTP and SSH connections
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closeLocked()
}

func (a *Adapter) closeLocked() error {
	var errs []error

	if a.client != nil {
		if err := a.client.Close(); err != nil {
			errs = append(errs, err)
		}
		a.client = nil
	}

	if a.sshConn != nil {
		if err := a.sshConn.Close(); err != nil {
			errs = append(errs, err)
		}
		a.sshConn = nil
	}

	return errors.Join(errs...)
}

// conn returns a live client, reconnecting if the session was lost.
func (a *Adapter) conn() (*sftp.Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.client != nil {
		if _, err := a.client.Getwd(); err == nil {
			return a.client, nil
		}
		_ = a.closeLocked()
	}

	if err := a.connect(); err != nil {
		return nil, err
	}
	return a.client, nil
}

// fullPath returns the remote path for a store path, or false if it would
// escape the base path.
func (a *Adapter) fullPath(relativePath string) (string, bool) {
	if relativePath == "" || strings.Contains(relativePath, "..") {
		return "", false
	}
	full := path.Join(a.basePath, relativePath)
	if full == a.basePath {
		return "", false
	}
	return full, true
}

func (a *Adapter) relPath(fullPath string) string {
	return strings.TrimPrefix(strings.TrimPrefix(fullPath, a.basePath), "/")
}

// Write implements assetguard.FileWriter. The upload goes to a temporary
// file that is renamed into place once complete.
func (a *Adapter) Write(ctx context.Context, filePath string, content io.Reader, options ...assetguard.Option) (*assetguard.WriteResult, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	fullPath, ok := a.fullPath(filePath)
	if !ok {
		return nil, assetguard.NewPathError("write", filePath, assetguard.ErrNotAllowed)
	}

	client, err := a.conn()
	if err != nil {
		return nil, assetguard.NewPathError("write", filePath, err)
	}

	opts := assetguard.ApplyOptions(options...)

	if !opts.Overwrite {
		_, err := client.Stat(fullPath)
		if err == nil {
			return nil, assetguard.NewPathError("write", filePath, assetguard.ErrExist)
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, mapSFTPError("write", filePath, err)
		}
	}

	dir := path.Dir(fullPath)
	if err := client.MkdirAll(dir); err != nil {
		return nil, mapSFTPError("write", filePath, err)
	}

	tmpPath := path.Join(dir, tempPrefix+uuid.NewString())
	file, err := client.Create(tmpPath)
	if err != nil {
		return nil, mapSFTPError("write", filePath, err)
	}

	written, err := io.Copy(file, content)
	closeErr := file.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		_ = client.Remove(tmpPath)
		return nil, mapSFTPError("write", filePath, err)
	}

	if err := client.PosixRename(tmpPath, fullPath); err != nil {
		_ = client.Remove(tmpPath)
		return nil, mapSFTPError("write", filePath, err)
	}

	return &assetguard.WriteResult{BytesWritten: written}, nil
}

// Read implements assetguard.FileReader
func (a *Adapter) Read(ctx context.Context, filePath string) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	fullPath, ok := a.fullPath(filePath)
	if !ok {
		return nil, assetguard.NewPathError("read", filePath, assetguard.ErrNotAllowed)
	}

	client, err := a.conn()
	if err != nil {
		return nil, assetguard.NewPathError("read", filePath, err)
	}

	file, err := client.Open(fullPath)
	if err != nil {
		return nil, mapSFTPError("read", filePath, err)
	}

	return file, nil
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
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	fullPath, ok := a.fullPath(filePath)
	if !ok {
		return assetguard.NewPathError("delete", filePath, assetguard.ErrNotAllowed)
	}

	client, err := a.conn()
	if err != nil {
		return assetguard.NewPathError("delete", filePath, err)
	}

	if err := client.Remove(fullPath); err != nil {
		return mapSFTPError("delete", filePath, err)
	}

	return nil
}

// FileExists implements assetguard.FileReader
func (a *Adapter) FileExists(ctx context.Context, filePath string) (bool, error) {
	info, err := a.stat(ctx, "fileexists", filePath)
	if err != nil {
		if assetguard.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return !info.IsDir(), nil
}

// Stat implements assetguard.FileReader
func (a *Adapter) Stat(ctx context.Context, filePath string) (*assetguard.FileInfo, error) {
	info, err := a.stat(ctx, "stat", filePath)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, assetguard.NewPathError("stat", filePath, assetguard.ErrNotExist)
	}

	return &assetguard.FileInfo{
		Name:        info.Name(),
		Path:        strings.TrimPrefix(path.Clean(filePath), "/"),
		Size:        info.Size(),
		ModTime:     info.ModTime(),
		ContentType: detectContentType(info.Name()),
	}, nil
}

func (a *Adapter) stat(ctx context.Context, op, filePath string) (os.FileInfo, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	fullPath, ok := a.fullPath(filePath)
	if !ok {
		return nil, assetguard.NewPathError(op, filePath, assetguard.ErrNotAllowed)
	}

	client, err := a.conn()
	if err != nil {
		return nil, assetguard.NewPathError(op, filePath, err)
	}

	info, err := client.Stat(fullPath)
	if err != nil {
		return nil, mapSFTPError(op, filePath, err)
	}
	return info, nil
}

// List implements assetguard.FileReader
func (a *Adapter) List(ctx context.Context, prefix string) ([]assetguard.FileInfo, error) {
	root := a.basePath
	if strings.Trim(prefix, "/") != "" {
		var ok bool
		if root, ok = a.fullPath(prefix); !ok {
			return nil, assetguard.NewPathError("list", prefix, assetguard.ErrNotAllowed)
		}
	}

	client, err := a.conn()
	if err != nil {
		return nil, assetguard.NewPathError("list", prefix, err)
	}

	var files []assetguard.FileInfo
	walker := client.Walk(root)
	for walker.Step() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := walker.Err(); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, mapSFTPError("list", prefix, err)
		}

		info := walker.Stat()
		if info.IsDir() || strings.HasPrefix(info.Name(), tempPrefix) {
			continue
		}

		files = append(files, assetguard.FileInfo{
			Name:        info.Name(),
			Path:        a.relPath(walker.Path()),
			Size:        info.Size(),
			ModTime:     info.ModTime(),
			ContentType: detectContentType(info.Name()),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Path < files[j].Path
	})

	return files, nil
}

func detectContentType(name string) string {
	if ext := path.Ext(name); ext != "" {
		return mime.TypeByExtension(ext)
	}
	return ""
}

// mapSFTPError maps SFTP errors to assetguard errors
func mapSFTPError(op, filePath string, err error) error {
	var statusErr *sftp.StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.FxCode() {
		case sftp.ErrSSHFxNoSuchFile:
			return assetguard.NewPathError(op, filePath, assetguard.ErrNotExist)
		case sftp.ErrSSHFxPermissionDenied:
			return assetguard.NewPathError(op, filePath, assetguard.ErrPermission)
		}
	}

	if errors.Is(err, fs.ErrNotExist) {
		return assetguard.NewPathError(op, filePath, assetguard.ErrNotExist)
	}

	if errors.Is(err, fs.ErrPermission) {
		return assetguard.NewPathError(op, filePath, assetguard.ErrPermission)
	}

	return assetguard.NewPathError(op, filePath, err)
}

// Ensure Adapter implements interfaces
var _ assetguard.FileSystem = (*Adapter)(nil)
