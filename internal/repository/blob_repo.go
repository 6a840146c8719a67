package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"unisync/backend/internal/model"
	pkgerrors "unisync/backend/pkg/errors"
)

// BlobRepository 键值 Blob 持久化端口
// 键不存在时 Get 返回 pkgerrors.ErrBlobNotFound
type BlobRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
}

type gormBlobRepo struct {
	db *gorm.DB
}

// NewGormBlobRepo 基于 kv_blobs 表的实现（PostgreSQL / SQLite 共用）
func NewGormBlobRepo(db *gorm.DB) BlobRepository {
	return &gormBlobRepo{db: db}
}

func (r *gormBlobRepo) Get(ctx context.Context, key string) ([]byte, error) {
	var blob model.KVBlob
	err := r.db.WithContext(ctx).
		Where("blob_key = ?", key).
		First(&blob).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ErrBlobNotFound
		}
		return nil, err
	}
	return blob.Value, nil
}

func (r *gormBlobRepo) Put(ctx context.Context, key string, value []byte) error {
	blob := model.KVBlob{Key: key, Value: value, UpdatedAt: time.Now()}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "blob_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&blob).Error
}
