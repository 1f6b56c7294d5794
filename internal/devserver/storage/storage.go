// Package storage keeps file content for the development server.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/my-own-web-services/mows-sub001/internal/devserver/config"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("object not found")

// Store persists file content by key.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// New selects the backend named by cfg.Storage.Backend.
func New(ctx context.Context, cfg *config.Config, db *gorm.DB) (Store, error) {
	switch cfg.Storage.Backend {
	case "database", "":
		return NewDatabaseStore(db), nil
	case "minio":
		client, err := NewMinIOClient(cfg.MinIO)
		if err != nil {
			return nil, err
		}
		if err := client.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Storage.Backend)
	}
}
