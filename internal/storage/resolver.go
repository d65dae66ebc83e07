// Package storage resolves logical audio/text keys to something the browser
// can play: a relative path in local mode, a time-limited presigned URL in
// S3 mode. The mode is a static configuration switch evaluated once at
// process start.
package storage

import (
	"context"
	"fmt"

	"listencheck.org/internal/config"
)

// Resolver maps storage keys to URLs and text content.
type Resolver interface {
	// AudioURL returns a URL the client can stream the clip from.
	AudioURL(ctx context.Context, key string) (string, error)
	// TextURL returns a URL for a separately stored transcript text object.
	TextURL(ctx context.Context, key string) (string, error)
	// TextContent reads a text object. The second return value is false,
	// with a nil error, when the object does not exist; callers degrade
	// gracefully instead of failing.
	TextContent(ctx context.Context, key string) (string, bool, error)
}

// FromConfig builds the resolver for the configured storage mode.
func FromConfig(ctx context.Context, cfg *config.Config) (Resolver, error) {
	switch cfg.StorageType {
	case config.StorageLocal:
		return NewLocal(cfg.LocalTranscriptsPath), nil
	case config.StorageS3, config.StorageLocalStack:
		return NewS3(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.StorageType)
	}
}
