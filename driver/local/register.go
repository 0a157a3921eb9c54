package local

import "github.com/gobeaver/assetguard"

func init() {
	assetguard.RegisterDriver("local", func(cfg *assetguard.Config) (assetguard.FileSystem, error) {
		return New(cfg.LocalBasePath)
	})
}
