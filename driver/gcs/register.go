package gcs

import (
	"context"

	"cloud.google.com/go/storage"
	"github.com/gobeaver/assetguard"
	"google.golang.org/api/option"
)

func init() {
	assetguard.RegisterDriver("gcs", func(cfg *assetguard.Config) (assetguard.FileSystem, error) {
		ctx := context.Background()

		// Without a credentials file the client uses GOOGLE_APPLICATION_CREDENTIALS
		// or the default credentials
		var clientOpts []option.ClientOption
		if cfg.GCSCredentialsFile != "" {
			clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.GCSCredentialsFile))
		}

		client, err := storage.NewClient(ctx, clientOpts...)
		if err != nil {
			return nil, err
		}

		var options []AdapterOption
		if cfg.GCSPrefix != "" {
			options = append(options, WithPrefix(cfg.GCSPrefix))
		}

		return New(client, cfg.GCSBucket, options...), nil
	})
}
