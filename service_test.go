package assetguard_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gobeaver/assetguard"
	_ "github.com/gobeaver/assetguard/driver/local"
	"github.com/gobeaver/assetguard/driver/memory"
	"github.com/gobeaver/assetguard/filevalidator"
)

func baseConfig() assetguard.Config {
	return assetguard.Config{
		Driver:            "memory",
		RootPrefix:        "projects",
		ThumbnailMaxSize:  "5MiB",
		PDFMaxSize:        "20MiB",
		ImageMaxPixels:    40000000,
		ImageFullDecode:   true,
		ExtractPDFPages:   true,
		ChecksumAlgorithm: "xxhash",
		LogLevel:          "error",
		LogFormat:         "text",
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name   string
		mod    func(*assetguard.Config)
		errMsg string
	}{
		{
			name: "memory driver",
			mod:  func(c *assetguard.Config) {},
		},
		{
			name: "memory driver with capacity",
			mod:  func(c *assetguard.Config) { c.MemoryMaxSize = "64MiB" },
		},
		{
			name:   "invalid memory capacity",
			mod:    func(c *assetguard.Config) { c.MemoryMaxSize = "plenty" },
			errMsg: "failed to create driver",
		},
		{
			name:   "unregistered driver",
			mod:    func(c *assetguard.Config) { c.Driver = "ftp" },
			errMsg: "driver ftp not registered",
		},
		{
			name:   "invalid log level",
			mod:    func(c *assetguard.Config) { c.LogLevel = "loud" },
			errMsg: "invalid config",
		},
		{
			name:   "thumbnail ceiling raised",
			mod:    func(c *assetguard.Config) { c.ThumbnailMaxSize = "50MiB" },
			errMsg: "invalid config",
		},
		{
			name:   "root prefix escaping the store",
			mod:    func(c *assetguard.Config) { c.RootPrefix = "../etc" },
			errMsg: "invalid root prefix",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig()
			tt.mod(&cfg)

			g, err := assetguard.New(&cfg)
			if tt.errMsg != "" {
				if err == nil || !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("New() error = %v, want error containing %q", err, tt.errMsg)
				}
				return
			}
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if _, ok := g.FileSystem().(*memory.Adapter); !ok {
				t.Errorf("FileSystem() = %T, want *memory.Adapter", g.FileSystem())
			}
		})
	}
}

func TestNewAppliesConfig(t *testing.T) {
	ctx := context.Background()
	cfg := baseConfig()
	cfg.RootPrefix = "tenants/acme"
	cfg.PDFMaxSize = "1k"
	cfg.ExtractPDFPages = false
	cfg.ChecksumAlgorithm = "sha256"
	cfg.DefaultCacheControl = "no-store"

	g, err := assetguard.New(&cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	asset, err := g.Ingest(ctx, filevalidator.CandidateFromBytes(pdfDocument(1), "a.pdf"), filevalidator.KindPDF)
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if !strings.HasPrefix(asset.Reference, "tenants/acme/pdfs/") {
		t.Errorf("Reference = %q", asset.Reference)
	}
	if asset.ChecksumAlgorithm != assetguard.ChecksumSHA256 || asset.PageCount != 0 {
		t.Errorf("unexpected asset: %+v", asset)
	}
	if got := g.FileSystem().(*memory.Adapter).CacheControl(asset.Reference); got != "no-store" {
		t.Errorf("CacheControl = %q", got)
	}

	big := append(pdfDocument(1), make([]byte, 2048)...)
	_, err = g.Ingest(ctx, filevalidator.CandidateFromBytes(big, "b.pdf"), filevalidator.KindPDF)
	if filevalidator.ReasonOf(err) != filevalidator.ReasonSizeExceeded {
		t.Errorf("expected size_exceeded, got %v", err)
	}
}

func TestNewLocalDriver(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	cfg := baseConfig()
	cfg.Driver = "local"
	cfg.LocalBasePath = dir

	g, err := assetguard.New(&cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	asset, err := g.Ingest(ctx, filevalidator.CandidateFromBytes(pngBytes(t, 8, 8), "cover.png"), filevalidator.KindThumbnail)
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(asset.Reference))); err != nil {
		t.Errorf("stored file missing on disk: %v", err)
	}

	ok, err := g.Verify(ctx, asset)
	if err != nil || !ok {
		t.Errorf("Verify() = %v, %v", ok, err)
	}
}

func TestGlobalInstance(t *testing.T) {
	assetguard.Reset()
	t.Cleanup(assetguard.Reset)

	t.Setenv("BEAVER_ASSETGUARD_DRIVER", "memory")
	t.Setenv("BEAVER_ASSETGUARD_LOG_LEVEL", "error")

	g1, err := assetguard.Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}
	g2, err := assetguard.Default()
	if err != nil || g1 != g2 {
		t.Errorf("Default() returned a different instance: %p, %p, %v", g1, g2, err)
	}

	assetguard.Reset()
	cfg := baseConfig()
	cfg.RootPrefix = "explicit"
	if err := assetguard.Init(&cfg); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	g3, err := assetguard.Default()
	if err != nil {
		t.Fatal(err)
	}
	if g3.RootPrefix() != "explicit" {
		t.Errorf("RootPrefix() = %q, want explicit", g3.RootPrefix())
	}

	// Init is a no-op once the global instance exists.
	other := baseConfig()
	other.RootPrefix = "ignored"
	if err := assetguard.Init(&other); err != nil {
		t.Fatal(err)
	}
	if g, _ := assetguard.Default(); g.RootPrefix() != "explicit" {
		t.Errorf("RootPrefix() = %q after second Init", g.RootPrefix())
	}
}

func TestGlobalInstanceError(t *testing.T) {
	assetguard.Reset()
	t.Cleanup(assetguard.Reset)

	cfg := baseConfig()
	cfg.Driver = "ftp"
	if err := assetguard.Init(&cfg); err == nil {
		t.Fatal("expected Init() error")
	}
	if _, err := assetguard.Default(); err == nil {
		t.Error("expected Default() to report the init error")
	}
}

func TestNewFromEnv(t *testing.T) {
	t.Setenv("BEAVER_ASSETGUARD_DRIVER", "memory")
	t.Setenv("BEAVER_ASSETGUARD_ROOT_PREFIX", "uploads")
	t.Setenv("BEAVER_ASSETGUARD_LOG_LEVEL", "error")

	g, err := assetguard.NewFromEnv()
	if err != nil {
		t.Fatalf("NewFromEnv() error = %v", err)
	}
	if g.RootPrefix() != "uploads" {
		t.Errorf("RootPrefix() = %q", g.RootPrefix())
	}
}

func TestBuilder(t *testing.T) {
	t.Setenv("APP_ASSETGUARD_DRIVER", "memory")
	t.Setenv("APP_ASSETGUARD_ROOT_PREFIX", "app")
	t.Setenv("APP_ASSETGUARD_LOG_LEVEL", "error")

	g, err := assetguard.WithPrefix("APP_").New()
	if err != nil {
		t.Fatalf("Builder.New() error = %v", err)
	}
	if g.RootPrefix() != "app" {
		t.Errorf("RootPrefix() = %q, want app", g.RootPrefix())
	}
	if _, ok := g.FileSystem().(*memory.Adapter); !ok {
		t.Errorf("FileSystem() = %T", g.FileSystem())
	}
}

func TestDriversRegistered(t *testing.T) {
	drivers := assetguard.Drivers()
	for _, name := range []string{"local", "memory"} {
		found := false
		for _, d := range drivers {
			found = found || d == name
		}
		if !found {
			t.Errorf("Drivers() = %v, missing %s", drivers, name)
		}
	}
	_, err := assetguard.CreateDriver(&assetguard.Config{Driver: "gcs-typo"})
	if err == nil || errors.Is(err, assetguard.ErrNotExist) {
		t.Errorf("CreateDriver() error = %v", err)
	}
}
