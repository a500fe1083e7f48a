package api

import "github.com/gin-gonic/gin"

// HealthHandler provides liveness and readiness endpoints.
//
//   - /healthz: basic liveness probe (always 200).
//   - /readyz: readiness probe, depends on database connectivity.
type HealthHandler struct {
	dbPing func() error
}

// NewHealthHandler constructs a HealthHandler; dbPing is typically
// (*sql.DB).Ping.
func NewHealthHandler(dbPing func() error) *HealthHandler {
	return &HealthHandler{dbPing: dbPing}
}

// Register mounts the health endpoints on the router.
func (h *HealthHandler) Register(r *gin.Engine) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	r.GET("/readyz", func(c *gin.Context) {
		if h.dbPing != nil && h.dbPing() != nil {
			c.JSON(503, gin.H{"status": "degraded"})
			return
		}
		c.JSON(200, gin.H{"status": "ready"})
	})
}
