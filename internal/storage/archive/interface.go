// Package archive stores full backtest results as JSON documents on the
// local filesystem or an S3-compatible bucket.
package archive

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/newthinker/strata/internal/core"
)

// Storage defines the interface for archive backends
type Storage interface {
	// Write stores data at the given path
	Write(ctx context.Context, path string, data []byte) error

	// Read retrieves data from the given path. Missing paths are ErrNotFound.
	Read(ctx context.Context, path string) ([]byte, error)

	// List returns all paths matching the prefix
	List(ctx context.Context, prefix string) ([]string, error)

	Delete(ctx context.Context, path string) error
	Exists(ctx context.Context, path string) (bool, error)
}

// Config selects and configures a backend
type Config struct {
	Type string   `mapstructure:"type"` // "localfs" or "s3"
	Path string   `mapstructure:"path"`
	S3   S3Config `mapstructure:"s3"`
}

// Open builds the backend named by cfg.Type
func Open(cfg Config) (Storage, error) {
	switch cfg.Type {
	case "", "localfs":
		if cfg.Path == "" {
			return nil, core.Errorf(core.ErrConfigMissing, "archive path required for localfs")
		}
		return NewLocalFS(cfg.Path)
	case "s3":
		if cfg.S3.Bucket == "" {
			return nil, core.Errorf(core.ErrConfigMissing, "archive bucket required for s3")
		}
		return NewS3(cfg.S3)
	default:
		return nil, core.Errorf(core.ErrConfigInvalid, "unknown archive type %q", cfg.Type)
	}
}

// PutJSON encodes v and writes it at path
func PutJSON(ctx context.Context, s Storage, path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return s.Write(ctx, path, data)
}

// GetJSON reads path and decodes it into v
func GetJSON(ctx context.Context, s Storage, path string, v any) error {
	data, err := s.Read(ctx, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}
