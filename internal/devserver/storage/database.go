package storage

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/my-own-web-services/mows-sub001/internal/devserver/models"
	"github.com/my-own-web-services/mows-sub001/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DatabaseStore keeps content as blobs next to the metadata.
type DatabaseStore struct {
	db *gorm.DB
}

func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	return &DatabaseStore{db: db}
}

func (s *DatabaseStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	blob := models.Blob{Path: key, Data: data}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&blob).Error
	if err != nil {
		logger.Error("blob_put_failed", err, map[string]interface{}{
			"key":  key,
			"size": size,
		})
	}
	return err
}

func (s *DatabaseStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	var blob models.Blob
	if err := s.db.WithContext(ctx).First(&blob, "path = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		logger.Error("blob_get_failed", err, map[string]interface{}{"key": key})
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(blob.Data)), nil
}

func (s *DatabaseStore) Delete(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Delete(&models.Blob{}, "path = ?", key).Error
}
