package assetguard

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/docker/go-units"
	"github.com/gobeaver/assetguard/filevalidator"
	"github.com/gobeaver/beaver-kit/config"
)

type Config struct {
	// Storage driver to use (local, memory, s3, gcs, azure, sftp)
	Driver string `env:"ASSETGUARD_DRIVER,default:local"`

	// Local driver configuration
	LocalBasePath string `env:"ASSETGUARD_LOCAL_BASE_PATH,default:./media"`

	// Memory driver configuration, total capacity (e.g. 64MiB, empty = unlimited)
	MemoryMaxSize string `env:"ASSETGUARD_MEMORY_MAX_SIZE"`

	// S3 driver configuration
	S3Region          string `env:"ASSETGUARD_S3_REGION,default:us-east-1"`
	S3Bucket          string `env:"ASSETGUARD_S3_BUCKET"`
	S3Prefix          string `env:"ASSETGUARD_S3_PREFIX"`
	S3Endpoint        string `env:"ASSETGUARD_S3_ENDPOINT"`
	S3AccessKeyID     string `env:"ASSETGUARD_S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"ASSETGUARD_S3_SECRET_ACCESS_KEY"`
	S3ForcePathStyle  bool   `env:"ASSETGUARD_S3_FORCE_PATH_STYLE,default:false"`

	// GCS (Google Cloud Storage) driver configuration
	GCSBucket          string `env:"ASSETGUARD_GCS_BUCKET"`
	GCSPrefix          string `env:"ASSETGUARD_GCS_PREFIX"`
	GCSCredentialsFile string `env:"ASSETGUARD_GCS_CREDENTIALS_FILE"` // Path to service account JSON

	// Azure Blob Storage driver configuration
	AzureAccountName   string `env:"ASSETGUARD_AZURE_ACCOUNT_NAME"`
	AzureAccountKey    string `env:"ASSETGUARD_AZURE_ACCOUNT_KEY"`
	AzureContainerName string `env:"ASSETGUARD_AZURE_CONTAINER_NAME"`
	AzurePrefix        string `env:"ASSETGUARD_AZURE_PREFIX"`
	AzureEndpoint      string `env:"ASSETGUARD_AZURE_ENDPOINT"` // Optional custom endpoint

	// SFTP driver configuration
	SFTPHost       string `env:"ASSETGUARD_SFTP_HOST"`
	SFTPPort       int    `env:"ASSETGUARD_SFTP_PORT,default:22"`
	SFTPUsername   string `env:"ASSETGUARD_SFTP_USERNAME"`
	SFTPPassword   string `env:"ASSETGUARD_SFTP_PASSWORD"`
	SFTPPrivateKey string `env:"ASSETGUARD_SFTP_PRIVATE_KEY"` // Path to private key file
	SFTPBasePath   string `env:"ASSETGUARD_SFTP_BASE_PATH"`
	SFTPKnownHosts string `env:"ASSETGUARD_SFTP_KNOWN_HOSTS"` // Path to known_hosts file, empty skips host key checks

	// Layout of stored assets: <root>/thumbnails/..., <root>/pdfs/...
	RootPrefix string `env:"ASSETGUARD_ROOT_PREFIX,default:projects"`

	// Upload ceilings, human readable in binary units (e.g. 2MiB, 512k).
	// They may only lower the built-in 5MiB / 20MiB limits.
	ThumbnailMaxSize string `env:"ASSETGUARD_THUMBNAIL_MAX_SIZE,default:5MiB"`
	PDFMaxSize       string `env:"ASSETGUARD_PDF_MAX_SIZE,default:20MiB"`

	// Image sniffing
	ImageMaxPixels  int64 `env:"ASSETGUARD_IMAGE_MAX_PIXELS,default:40000000"`
	ImageFullDecode bool  `env:"ASSETGUARD_FULL_DECODE,default:true"`

	// Record the page count of accepted PDFs in their metadata
	ExtractPDFPages bool `env:"ASSETGUARD_EXTRACT_PDF_PAGES,default:true"`

	// Stored object defaults
	ChecksumAlgorithm   string `env:"ASSETGUARD_CHECKSUM_ALGORITHM,default:xxhash"`
	DefaultCacheControl string `env:"ASSETGUARD_DEFAULT_CACHE_CONTROL"`

	// Logging
	LogLevel  string `env:"ASSETGUARD_LOG_LEVEL,default:info"`
	LogFormat string `env:"ASSETGUARD_LOG_FORMAT,default:text"`
}

// GetConfig returns config loaded from environment
func GetConfig() (*Config, error) {
	cfg := &Config{}
	if err := config.Load(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Policies builds the policy set described by the config.
func (c *Config) Policies() (filevalidator.PolicySet, error) {
	thumb, err := tightenedPolicy(filevalidator.ThumbnailPolicy(), c.ThumbnailMaxSize)
	if err != nil {
		return filevalidator.PolicySet{}, fmt.Errorf("thumbnail max size: %w", err)
	}
	doc, err := tightenedPolicy(filevalidator.PDFPolicy(), c.PDFMaxSize)
	if err != nil {
		return filevalidator.PolicySet{}, fmt.Errorf("pdf max size: %w", err)
	}
	return filevalidator.NewPolicySet(thumb, doc), nil
}

func tightenedPolicy(p filevalidator.Policy, size string) (filevalidator.Policy, error) {
	if strings.TrimSpace(size) == "" {
		return p, nil
	}
	n, err := units.RAMInBytes(size)
	if err != nil {
		return p, err
	}
	if n <= 0 {
		return p, fmt.Errorf("%q must be positive", size)
	}
	if n > p.MaxBytes {
		return p, fmt.Errorf("%q exceeds the %s ceiling", size, units.BytesSize(float64(p.MaxBytes)))
	}
	return p.WithMaxBytes(n), nil
}

// Pipeline builds the validation pipeline described by the config.
func (c *Config) Pipeline() (*filevalidator.Pipeline, error) {
	policies, err := c.Policies()
	if err != nil {
		return nil, err
	}
	if c.ImageMaxPixels < 0 {
		return nil, errors.New("image max pixels must not be negative")
	}
	sniffer := &filevalidator.ImageSniffer{
		MaxPixels:  c.ImageMaxPixels,
		HeaderOnly: !c.ImageFullDecode,
	}
	registry := filevalidator.DefaultRegistry().With(filevalidator.KindThumbnail, sniffer)
	return filevalidator.New(policies, registry), nil
}

// validateConfig checks configuration validity
func validateConfig(cfg *Config) error {
	if cfg.Driver == "" {
		return errors.New("driver is required")
	}

	switch cfg.Driver {
	case "local":
		if cfg.LocalBasePath == "" {
			return errors.New("local base path is required for local driver")
		}
	case "s3":
		if cfg.S3Bucket == "" {
			return errors.New("S3 bucket is required for S3 driver")
		}
		// Access keys can be provided via IAM roles, so not always required
	case "gcs":
		if cfg.GCSBucket == "" {
			return errors.New("GCS bucket is required for GCS driver")
		}
	case "azure":
		if cfg.AzureAccountName == "" || cfg.AzureContainerName == "" {
			return errors.New("Azure account name and container are required for Azure driver")
		}
	case "sftp":
		if cfg.SFTPHost == "" || cfg.SFTPUsername == "" {
			return errors.New("SFTP host and username are required for SFTP driver")
		}
	}

	if err := validateRootPrefix(cfg.RootPrefix); err != nil {
		return err
	}

	if _, err := NewHasher(ChecksumAlgorithm(cfg.ChecksumAlgorithm)); err != nil {
		return err
	}

	return nil
}

func validateRootPrefix(root string) error {
	if root == "" {
		return errors.New("root prefix is required")
	}
	if strings.Contains(root, "..") || path.Clean("/"+root) != "/"+strings.Trim(root, "/") {
		return fmt.Errorf("%w: invalid root prefix %q", ErrInvalidName, root)
	}
	return nil
}
