package sftp

import (
	"fmt"
	"os"

	"github.com/gobeaver/assetguard"
)

func init() {
	assetguard.RegisterDriver("sftp", func(cfg *assetguard.Config) (assetguard.FileSystem, error) {
		if cfg.SFTPHost == "" {
			return nil, fmt.Errorf("SFTP host is required")
		}

		sftpConfig := Config{
			Host:           cfg.SFTPHost,
			Port:           cfg.SFTPPort,
			Username:       cfg.SFTPUsername,
			Password:       cfg.SFTPPassword,
			BasePath:       cfg.SFTPBasePath,
			KnownHostsFile: cfg.SFTPKnownHosts,
		}

		// Load private key if specified
		if cfg.SFTPPrivateKey != "" {
			keyData, err := os.ReadFile(cfg.SFTPPrivateKey)
			if err != nil {
				return nil, fmt.Errorf("failed to read private key: %w", err)
			}
			sftpConfig.PrivateKey = keyData
		}

		return New(sftpConfig)
	})
}
