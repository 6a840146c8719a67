package repository

import (
	"context"

	"unisync/backend/pkg/objectstore"
	"unisync/backend/pkg/redis"
)

// ── Redis ──

type redisBlobRepo struct {
	client *redis.Client
}

// NewRedisBlobRepo 基于 Redis 字符串键的实现
func NewRedisBlobRepo(client *redis.Client) BlobRepository {
	return &redisBlobRepo{client: client}
}

func (r *redisBlobRepo) Get(ctx context.Context, key string) ([]byte, error) {
	return r.client.GetBlob(ctx, key)
}

func (r *redisBlobRepo) Put(ctx context.Context, key string, value []byte) error {
	return r.client.SetBlob(ctx, key, value)
}

// ── MinIO ──

type objectBlobRepo struct {
	client *objectstore.Client
}

// NewObjectBlobRepo 基于对象存储的实现：每个键一个对象
func NewObjectBlobRepo(client *objectstore.Client) BlobRepository {
	return &objectBlobRepo{client: client}
}

func (r *objectBlobRepo) Get(ctx context.Context, key string) ([]byte, error) {
	return r.client.Get(ctx, key)
}

func (r *objectBlobRepo) Put(ctx context.Context, key string, value []byte) error {
	return r.client.Put(ctx, key, value)
}
