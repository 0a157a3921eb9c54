package assetguard

import (
	"fmt"
	"sync"

	"github.com/gobeaver/beaver-kit/config"
)

// Global instance
var (
	defaultIngestor *Ingestor
	defaultOnce     sync.Once
	defaultErr      error
)

// Builder provides a way to create Ingestor instances with custom prefixes
type Builder struct {
	prefix string
}

// WithPrefix creates a new Builder with the specified prefix
func WithPrefix(prefix string) *Builder {
	return &Builder{prefix: prefix}
}

// Init initializes the global Ingestor instance using the builder's prefix
func (b *Builder) Init() error {
	cfg := &Config{}
	if err := config.Load(cfg, config.LoadOptions{Prefix: b.prefix}); err != nil {
		return err
	}
	return Init(cfg)
}

// New creates a new Ingestor instance using the builder's prefix
func (b *Builder) New() (*Ingestor, error) {
	cfg := &Config{}
	if err := config.Load(cfg, config.LoadOptions{Prefix: b.prefix}); err != nil {
		return nil, err
	}
	return New(cfg)
}

// Init initializes the global ingestor instance
func Init(configs ...*Config) error {
	defaultOnce.Do(func() {
		var cfg *Config
		if len(configs) > 0 {
			cfg = configs[0]
		} else {
			cfg, defaultErr = GetConfig()
			if defaultErr != nil {
				return
			}
		}

		defaultIngestor, defaultErr = New(cfg)
	})

	return defaultErr
}

// New creates an Ingestor from config: storage driver, validation pipeline
// and logger. The driver package must be imported so it can register itself.
func New(cfg *Config) (*Ingestor, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger, err := NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	pipeline, err := cfg.Pipeline()
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	fs, err := CreateDriver(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create driver: %w", err)
	}

	opts := []IngestorOption{
		WithRootPrefix(cfg.RootPrefix),
		WithPipeline(pipeline),
		WithLogger(logger.With("driver", cfg.Driver)),
		WithChecksumAlgorithm(ChecksumAlgorithm(cfg.ChecksumAlgorithm)),
		WithPDFPageCount(cfg.ExtractPDFPages),
	}
	if cfg.DefaultCacheControl != "" {
		opts = append(opts, WithDefaultCacheControl(cfg.DefaultCacheControl))
	}

	return NewIngestor(fs, opts...), nil
}

// Default returns the global instance, initializing if needed with error handling
func Default() (*Ingestor, error) {
	if defaultIngestor == nil {
		if err := Init(); err != nil {
			return nil, err
		}
	}
	return defaultIngestor, nil
}

// NewFromEnv creates instance from environment variables (convenience constructor)
func NewFromEnv() (*Ingestor, error) {
	cfg, err := GetConfig()
	if err != nil {
		return nil, err
	}
	return New(cfg)
}

// Reset clears the global instance (for testing)
func Reset() {
	defaultIngestor = nil
	defaultOnce = sync.Once{}
	defaultErr = nil
}
