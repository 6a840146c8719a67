package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"unisync/backend/config"
	"unisync/backend/internal/api/handler"
	"unisync/backend/internal/api/router"
	"unisync/backend/internal/model"
	"unisync/backend/internal/repository"
	"unisync/backend/internal/service"
	"unisync/backend/pkg/database"
	applogger "unisync/backend/pkg/logger"
	"unisync/backend/pkg/objectstore"
	"unisync/backend/pkg/redis"
)

func main() {
	// 0. .env 注入环境变量（文件不存在时忽略）
	_ = godotenv.Load()

	// 1. 加载配置
	cfg, err := config.Load(os.Getenv("UNISYNC_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("storage_driver", cfg.Storage.Driver),
		zap.String("log_level", cfg.Log.Level),
	)

	// 3. 连接 Redis（可选：仅 redis 驱动必需，其余情况连接失败时导入接口不限流）
	var rdb *redis.Client
	rdb, err = redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		if cfg.Storage.Driver == config.StorageDriverRedis {
			logger.Fatal("Redis 连接失败", zap.Error(err))
		}
		logger.Warn("Redis 连接失败，导入接口限流将不可用", zap.Error(err))
		rdb = nil
	}

	// 4. 选择持久化驱动
	blobs, db := openBlobStore(cfg, rdb, logger)

	// 5. 依赖注入: Repository → Workspace → Service → Handler
	repo := repository.NewRepository(blobs, repository.Options{
		KeyPrefix: cfg.Storage.KeyPrefix,
		DefaultSettings: model.TimetableSettings{
			StartTime:       cfg.Schedule.StartTime,
			EndTime:         cfg.Schedule.EndTime,
			IntervalMinutes: cfg.Schedule.IntervalMinutes,
		},
		MaxSlots: cfg.Schedule.MaxSlots,
	}, logger)

	loadCtx, loadCancel := context.WithTimeout(context.Background(), 15*time.Second)
	persister := service.NewPersister(repo.State, cfg.Storage.SaveDebounce, logger)
	ws := service.LoadWorkspace(loadCtx, repo.State, persister, logger)
	loadCancel()

	svc := service.NewService(cfg, ws, logger)
	h := handler.NewHandler(svc)

	// 6. 初始化路由
	gin.SetMode(gin.ReleaseMode)
	engine := router.Setup(cfg, h, rdb, logger)

	// 7. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // ICS URL 导入需要等待远端响应
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 8. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	// 写入防抖中尚未落盘的变更
	if !ws.Flush(ctx) {
		logger.Error("关闭前写入工作区失败，最近的修改可能丢失")
	}

	// 关闭数据库连接
	if db != nil {
		if sqlDB, _ := db.DB(); sqlDB != nil {
			sqlDB.Close()
		}
	}

	// 关闭 Redis 连接
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}

// openBlobStore 按 storage.driver 创建 Blob 仓储
// 返回的 *gorm.DB 仅在 postgres / sqlite 驱动下非空，用于关闭连接
func openBlobStore(cfg *config.Config, rdb *redis.Client, logger *zap.Logger) (repository.BlobRepository, *gorm.DB) {
	switch cfg.Storage.Driver {
	case config.StorageDriverPostgres:
		db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
		if err != nil {
			logger.Fatal("数据库连接失败", zap.Error(err))
		}
		if _, err := database.RunMigrations(db, logger); err != nil {
			logger.Fatal("数据库迁移失败", zap.Error(err))
		}
		return repository.NewGormBlobRepo(db), db

	case config.StorageDriverSQLite:
		db, err := database.NewSQLite(&cfg.SQLite, cfg.Log.Level, logger)
		if err != nil {
			logger.Fatal("SQLite 初始化失败", zap.Error(err))
		}
		return repository.NewGormBlobRepo(db), db

	case config.StorageDriverRedis:
		return repository.NewRedisBlobRepo(rdb), nil

	case config.StorageDriverMinIO:
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		client, err := objectstore.NewClient(ctx, &cfg.MinIO, logger)
		if err != nil {
			logger.Fatal("对象存储连接失败", zap.Error(err))
		}
		return repository.NewObjectBlobRepo(client), nil

	default:
		logger.Warn("使用内存存储，进程退出后数据不会保留")
		return repository.NewMemoryBlobRepo(), nil
	}
}
