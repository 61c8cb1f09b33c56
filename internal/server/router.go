package server

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"

	"github.com/vectorthoughts/blog-api/internal/asset"
	"github.com/vectorthoughts/blog-api/internal/config"
	"github.com/vectorthoughts/blog-api/internal/identity"
	"github.com/vectorthoughts/blog-api/internal/metrics"
	"github.com/vectorthoughts/blog-api/internal/post"
)

// Dependencies groups the services required by the HTTP router.
type Dependencies struct {
	Config          config.Config
	DB              *pgxpool.Pool
	ObjectStore     *minio.Client
	IdentityService *identity.Service
	PostService     *post.Service
	AssetService    *asset.Service
}

// NewRouter builds a Gin engine with foundational middleware and routes.
func NewRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     deps.Config.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	registerHealthRoutes(router, deps)
	metrics.Register(router, deps.Config.Metrics.PrometheusPath)

	api := router.Group("/api", RateLimiterMiddleware(RateLimiterConfig{
		RequestsPerSecond: deps.Config.RateLimit.RequestsPerSecond,
		Burst:             deps.Config.RateLimit.Burst,
	}))

	public := api.Group("/public")
	if deps.PostService != nil {
		post.RegisterPublicRoutes(public, deps.PostService)
	}

	if deps.IdentityService != nil {
		admin := api.Group("/")
		admin.Use(identity.AdminMiddleware(deps.IdentityService))

		if deps.PostService != nil {
			post.RegisterAdminRoutes(admin, deps.PostService)
		}
		if deps.AssetService != nil {
			asset.RegisterRoutes(api, admin, deps.AssetService)
		}
	}

	return router
}
