package repository

import (
	"context"

	"github.com/patrickmn/go-cache"

	pkgerrors "unisync/backend/pkg/errors"
)

type memoryBlobRepo struct {
	cache *cache.Cache
}

// NewMemoryBlobRepo 进程内存储（go-cache，永不过期）
// 适用于本地试用与测试：进程退出即丢失
func NewMemoryBlobRepo() BlobRepository {
	return &memoryBlobRepo{cache: cache.New(cache.NoExpiration, 0)}
}

func (r *memoryBlobRepo) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := r.cache.Get(key)
	if !ok {
		return nil, pkgerrors.ErrBlobNotFound
	}
	stored := v.([]byte)
	out := make([]byte, len(stored))
	copy(out, stored)
	return out, nil
}

func (r *memoryBlobRepo) Put(_ context.Context, key string, value []byte) error {
	stored := make([]byte, len(value))
	copy(stored, value)
	r.cache.Set(key, stored, cache.NoExpiration)
	return nil
}
