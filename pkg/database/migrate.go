package database

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MigrationsTable kv_blobs 的迁移版本表
const MigrationsTable = "kv_schema_migrations"

//go:embed migrations/*.sql
var migrationsFS embed.FS

// blobMigrations 内嵌的 kv_blobs 迁移源
func blobMigrations() (source.Driver, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("加载迁移文件失败: %w", err)
	}
	return src, nil
}

// RunMigrations 在 Postgres 上建立 kv_blobs 表，返回当前迁移版本
// dirty 状态视为失败，需人工修复后再启动
func RunMigrations(db *gorm.DB, logger *zap.Logger) (uint, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return 0, fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	src, err := blobMigrations()
	if err != nil {
		return 0, err
	}

	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{MigrationsTable: MigrationsTable})
	if err != nil {
		return 0, fmt.Errorf("创建迁移驱动失败: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return 0, fmt.Errorf("初始化迁移实例失败: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("执行迁移失败: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return 0, fmt.Errorf("读取迁移版本失败: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("迁移版本 %d 处于 dirty 状态", version)
	}
	logger.Info("kv_blobs 迁移完成", zap.Uint("version", version), zap.String("table", MigrationsTable))
	return version, nil
}
