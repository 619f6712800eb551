package api

import (
	"Mnemo_1.0/internal/config"

	"github.com/gin-gonic/gin"
)

// SetupRouter 配置和返回一个 Gin 引擎实例。
func SetupRouter(h *Handler, mwCfg *config.MiddlewareConfig) *gin.Engine {
	// 使用默认中间件 (logger, recovery) 创建一个 Gin 引擎。
	r := gin.Default()

	if mwCfg != nil {
		for _, mw := range BuildMiddlewares(mwCfg) {
			r.Use(mw)
		}
	}

	// 使用 v1 版本对 API 进行分组
	apiV1 := r.Group("/api/v1")
	{
		memories := apiV1.Group("/memories")
		{
			memories.POST("", h.AddMemory)
			memories.GET("", h.ListMemories)
			memories.GET("/search", h.SearchMemory)
			memories.GET("/history", h.History)
		}
	}

	return r
}
