package memory

import (
	"fmt"

	"github.com/docker/go-units"
	"github.com/gobeaver/assetguard"
)

func init() {
	assetguard.RegisterDriver("memory", func(cfg *assetguard.Config) (assetguard.FileSystem, error) {
		if cfg.MemoryMaxSize == "" {
			return New(), nil
		}
		maxSize, err := units.RAMInBytes(cfg.MemoryMaxSize)
		if err != nil {
			return nil, fmt.Errorf("invalid memory max size: %w", err)
		}
		return New(Config{MaxSize: maxSize}), nil
	})
}
