package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const readinessTimeout = 5 * time.Second

func registerHealthRoutes(router *gin.Engine, deps Dependencies) {
	router.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/health/ready", readiness(deps))
}

// readiness verifies both stores this service cannot serve without: the
// posts/assets database and the bucket holding the stored objects. A bucket
// that exists but was deleted out from under the service reports degraded
// rather than failing on the first upload.
func readiness(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
		defer cancel()

		if err := deps.DB.Ping(ctx); err != nil {
			degraded(c, "postgres", err)
			return
		}

		bucket := deps.Config.MinIO.Bucket
		exists, err := deps.ObjectStore.BucketExists(ctx, bucket)
		if err != nil {
			degraded(c, "object_store", err)
			return
		}
		if !exists {
			degraded(c, "object_store", fmt.Errorf("assets bucket %q missing", bucket))
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

func degraded(c *gin.Context, component string, err error) {
	c.JSON(http.StatusServiceUnavailable, gin.H{
		"status":    "degraded",
		"component": component,
		"error":     err.Error(),
	})
}
