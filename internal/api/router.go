// internal/api/router.go
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Corphon/PaperCastMCP/internal/config"
	"github.com/Corphon/PaperCastMCP/internal/di"
	"github.com/Corphon/PaperCastMCP/internal/services"
	"github.com/Corphon/PaperCastMCP/internal/storage"
)

// SetupRouter 配置HTTP路由
func SetupRouter(cfg *config.Config) (*gin.Engine, error) {
	// 获取依赖注入容器
	container := di.GetContainer()

	// 只从容器获取服务，不再创建新实例
	scriptService, ok := container.Get("script").(*services.ScriptService)
	if !ok {
		return nil, fmt.Errorf("脚本服务未正确初始化")
	}

	paperService, ok := container.Get("paper").(*services.PaperService)
	if !ok {
		return nil, fmt.Errorf("论文服务未正确初始化")
	}

	progressService, ok := container.Get("progress").(*services.ProgressService)
	if !ok {
		return nil, fmt.Errorf("进度服务未正确初始化")
	}

	scriptStore, ok := container.Get("script_store").(*storage.ScriptStore)
	if !ok {
		return nil, fmt.Errorf("脚本存储未正确初始化")
	}

	handler := NewHandler(scriptService, paperService, progressService, scriptStore)

	if !cfg.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	r := gin.Default()

	// 启用CORS
	r.Use(corsMiddleware())

	// HTTPS重定向（生产环境）
	if !cfg.DebugMode {
		r.Use(func(c *gin.Context) {
			if c.Request.Header.Get("X-Forwarded-Proto") != "https" &&
				c.Request.Header.Get("X-Forwarded-Proto") != "" {
				c.Redirect(http.StatusPermanentRedirect,
					"https://"+c.Request.Host+c.Request.URL.Path)
				return
			}
			c.Next()
		})
	}

	// ===============================
	// WebSocket 支持
	// ===============================
	r.GET("/ws/progress/:taskID", handler.ProgressWebSocketHandler)

	// ===============================
	// API路由
	// ===============================
	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/health", handler.HealthCheckHandler)

		// 脚本生成与查询
		apiGroup.POST("/scripts", GenerationRateLimit(), handler.GenerateScriptHandler)
		apiGroup.GET("/scripts", RateLimitByIP(120, time.Minute), handler.ListScriptsHandler)
		apiGroup.GET("/scripts/:id", RateLimitByIP(120, time.Minute), handler.GetScriptHandler)
		apiGroup.DELETE("/scripts/:id", RateLimitByIP(60, time.Minute), handler.DeleteScriptHandler)

		// 进度查询
		apiGroup.GET("/progress/:taskID", handler.GetProgressHandler)
	}

	// 未匹配路由统一返回404
	r.NoRoute(func(c *gin.Context) {
		handler.Response.NotFound(c, "接口不存在: "+c.Request.URL.Path)
	})

	return r, nil
}
