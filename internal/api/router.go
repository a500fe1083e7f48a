package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/guttosm/foliopulse/internal/middleware"
)

// NewRouter creates a Gin engine with all query routes configured.
//
// Health and readiness endpoints are registered separately in
// app.InitializeApp so they bypass the rate limiter.
func NewRouter(handler *Handler) *gin.Engine {
	router := gin.New()

	router.Use(
		middleware.RequestID(),
		middleware.RequestLogger(),
		middleware.Recovery(),
		middleware.RateLimiter(),
	)

	// Per-request timeout; imports run outside the HTTP surface, so ten
	// seconds covers every read path comfortably.
	router.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/sessions/active", handler.GetActiveSession)
		v1.GET("/sessions/:id", handler.GetSession)
		v1.GET("/snapshots", handler.ListSnapshots)
	}

	return router
}
