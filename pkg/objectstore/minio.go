package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"unisync/backend/config"
	pkgerrors "unisync/backend/pkg/errors"
)

const blobContentType = "application/json"

// Client MinIO 对象存储封装：每个存储键对应桶内一个对象
type Client struct {
	client *minio.Client
	bucket string
	logger *zap.Logger
}

// NewClient 创建 MinIO 客户端，桶不存在时自动创建
func NewClient(ctx context.Context, cfg *config.MinIOConfig, logger *zap.Logger) (*Client, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("创建 MinIO 客户端失败: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("检查桶失败: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("创建桶失败: %w", err)
		}
		logger.Info("已创建存储桶", zap.String("bucket", cfg.Bucket))
	}

	logger.Info("MinIO 连接成功", zap.String("endpoint", cfg.Endpoint), zap.String("bucket", cfg.Bucket))

	return &Client{client: client, bucket: cfg.Bucket, logger: logger}, nil
}

// Get 下载对象内容；对象不存在时返回 ErrBlobNotFound
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	if _, err := c.client.StatObject(ctx, c.bucket, objectName(key), minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, pkgerrors.ErrBlobNotFound
		}
		return nil, fmt.Errorf("查询对象失败: %w", err)
	}

	object, err := c.client.GetObject(ctx, c.bucket, objectName(key), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("获取对象失败: %w", err)
	}
	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		return nil, fmt.Errorf("读取对象失败: %w", err)
	}
	return data, nil
}

// Put 上传（覆盖）对象
func (c *Client) Put(ctx context.Context, key string, value []byte) error {
	_, err := c.client.PutObject(ctx, c.bucket, objectName(key), bytes.NewReader(value), int64(len(value)), minio.PutObjectOptions{
		ContentType: blobContentType,
	})
	if err != nil {
		return fmt.Errorf("上传对象失败: %w", err)
	}
	return nil
}

func objectName(key string) string {
	return "state/" + key + ".json"
}
