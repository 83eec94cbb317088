package blob

import (
	"context"
	"fmt"

	"deskcore/internal/config"
	"deskcore/internal/infra/blob/fs"
	"deskcore/internal/infra/blob/memory"
	"deskcore/internal/infra/blob/s3"
)

// Open returns the blob store selected by cfg.Driver. The inline driver keeps
// images as data URLs inside records and has no store; Open returns nil, nil
// for it.
func Open(ctx context.Context, cfg config.BlobConfig) (Store, error) {
	switch cfg.Driver {
	case config.BlobInline:
		return nil, nil
	case config.BlobFS:
		return fs.New(cfg.Dir)
	case config.BlobMemory:
		return memory.New(), nil
	case config.BlobS3:
		return s3.New(ctx, s3.Config{
			Region:          cfg.Region,
			Bucket:          cfg.Bucket,
			Endpoint:        cfg.Endpoint,
			AccessKeyID:     cfg.AccessKey,
			SecretAccessKey: cfg.SecretKey,
			PathStyle:       cfg.PathStyle,
		})
	default:
		return nil, fmt.Errorf("unknown blob driver %s", cfg.Driver)
	}
}

// NewMemory returns an in-memory Store.
func NewMemory() Store { return memory.New() }
