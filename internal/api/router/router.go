package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"unisync/backend/config"
	"unisync/backend/internal/api/handler"
	"unisync/backend/internal/api/middleware"
	"unisync/backend/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
// rdb 可为 nil，此时导入接口不限流
func Setup(cfg *config.Config, h *handler.Handler, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.BodyLimitBytes))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	importLimit := middleware.RateLimit(rdb, cfg.Import.RateLimit, cfg.Import.RateWindow)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 课程模块
		courses := v1.Group("/courses")
		{
			courses.GET("", h.Course.ListCourses)
			courses.POST("", h.Course.CreateCourse)
			courses.DELETE("", h.Course.ClearCourses)
			courses.POST("/import", importLimit, h.Course.ImportCourses)
			courses.GET("/:id", h.Course.GetCourse)
			courses.DELETE("/:id", h.Course.DeleteCourse)
		}

		// 课表模块
		timetable := v1.Group("/timetable")
		{
			timetable.GET("", h.Timetable.GetTimetable)
			timetable.DELETE("", h.Timetable.ClearTimetable)
			timetable.GET("/slots", h.Timetable.GetSlots)
			timetable.GET("/credits", h.Timetable.GetCredits)
			timetable.PUT("/slots/:key", h.Timetable.AssignCourse)
			timetable.DELETE("/slots/:key/:course_id", h.Timetable.UnassignCourse)
			timetable.POST("/move", h.Timetable.MoveCourse)
			timetable.DELETE("/courses/:course_id", h.Timetable.UnassignEverywhere)
			timetable.POST("/import", importLimit, h.Timetable.ImportTimetable)
			timetable.POST("/import/ics", importLimit, h.Timetable.ImportICS)
		}

		// 网格设置
		settings := v1.Group("/settings")
		{
			settings.GET("", h.Settings.GetSettings)
			settings.PUT("", h.Settings.UpdateSettings)
		}

		// 导出模块
		export := v1.Group("/export")
		{
			export.GET("/xlsx", h.Export.ExportXLSX)
			export.GET("/ics", h.Export.ExportICS)
			export.GET("/json", h.Export.ExportJSON)
		}
	}

	return r
}
