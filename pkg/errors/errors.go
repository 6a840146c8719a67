package errors

import "errors"

// ErrBlobNotFound 存储中不存在该键（调用方应回退到默认值）
var ErrBlobNotFound = errors.New("存储键不存在")

// ErrStorageUnavailable 存储后端不可用：配额耗尽、连接断开等
var ErrStorageUnavailable = errors.New("存储暂不可用，数据仅保存在内存中")
