package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/vectorthoughts/blog-api/internal/asset"
	"github.com/vectorthoughts/blog-api/internal/config"
	"github.com/vectorthoughts/blog-api/internal/identity"
	"github.com/vectorthoughts/blog-api/internal/imaging"
	"github.com/vectorthoughts/blog-api/internal/logger"
	"github.com/vectorthoughts/blog-api/internal/post"
	"github.com/vectorthoughts/blog-api/internal/server"
	"github.com/vectorthoughts/blog-api/internal/storage"
)

func main() {
	_ = godotenv.Load()

	logg, err := logger.Init()
	if err != nil {
		panic("init logger: " + err.Error())
	}
	defer logg.Sync()

	cfg, err := config.Load()
	if err != nil {
		logg.Fatal("load config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := storage.RunMigrations(cfg.Postgres); err != nil {
		logg.Fatal("run migrations", zap.Error(err))
	}

	dbPool, err := storage.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logg.Fatal("connect postgres", zap.Error(err))
	}
	defer dbPool.Close()

	minioClient, err := storage.NewObjectStore(ctx, cfg.MinIO)
	if err != nil {
		logg.Fatal("connect object store", zap.Error(err))
	}

	identityService, err := identity.NewService(cfg.Identity)
	if err != nil {
		logg.Fatal("configure identity", zap.Error(err))
	}

	compressPool := imaging.NewPool(cfg.Upload.Workers, logg)
	compressPool.Start()
	defer compressPool.Close()

	postRepo := post.NewRepository(dbPool)
	postService := post.NewService(postRepo)

	assetRepo := asset.NewRepository(dbPool)
	assetStore := asset.NewMinIOStore(minioClient, cfg.MinIO.Bucket)
	assetService := asset.NewService(assetRepo, assetStore, compressPool, postRepo, cfg.Upload, logg)

	router := server.NewRouter(server.Dependencies{
		Config:          cfg,
		DB:              dbPool,
		ObjectStore:     minioClient,
		IdentityService: identityService,
		PostService:     postService,
		AssetService:    assetService,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logg.Info("blog API listening", zap.String("address", cfg.Server.Address()))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logg.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logg.Info("shutting down gracefully")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logg.Error("shutdown error", zap.Error(err))
	}
}
