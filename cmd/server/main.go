package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/AnshRaj112/wellsync/internal/config"
	"github.com/AnshRaj112/wellsync/internal/database"
	"github.com/AnshRaj112/wellsync/internal/handlers"
	"github.com/AnshRaj112/wellsync/internal/middleware"
	"github.com/AnshRaj112/wellsync/internal/routes"
	"github.com/AnshRaj112/wellsync/internal/services"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found")
	}
	cfg := config.Load()
	if !cfg.IsProduction() {
		log.SetLevel(logrus.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := services.SyncOptions{Logger: log}
	var rateLimit func(http.Handler) http.Handler

	if cfg.InMemory() {
		store := services.NewMemoryStore()
		opts.Sheets = store
		opts.Logins = store
		opts.Feed = services.NewLoginFeed(nil, log)
		log.Warn("STORAGE=memory: data is lost on restart")
	} else {
		pg, err := database.ConnectPostgres(cfg.PostgresURI, log)
		if err != nil {
			log.WithError(err).Fatal("Failed to connect to PostgreSQL")
		}
		defer pg.Close()
		opts.Logins = services.NewPostgresLoginLogs(pg)

		rdb, err := database.ConnectRedis(cfg.RedisURI, log)
		if err != nil {
			log.WithError(err).Fatal("Failed to connect to Redis")
		}
		defer rdb.Close()
		opts.Cache = services.NewRedisCache(rdb, cfg.SnapshotTTL)
		opts.Feed = services.NewLoginFeed(rdb, log)
		opts.Feed.Start(ctx)
		rateLimit = middleware.RedisRateLimit(rdb, log)

		mongoClient, db, err := database.ConnectMongo(cfg.MongoURI, cfg.MongoDatabase, log)
		if err != nil {
			log.WithError(err).Fatal("Failed to connect to MongoDB")
		}
		defer database.DisconnectMongo(mongoClient)

		mongoStore := services.NewMongoStore(db)
		if err := mongoStore.EnsureIndexes(ctx); err != nil {
			log.WithError(err).Warn("failed to ensure MongoDB indexes")
		} else {
			log.Info("MongoDB indexes ensured")
		}
		opts.Sheets = mongoStore
	}

	if cfg.HasCloudinary() {
		cld, err := services.NewCloudinaryService(cfg.CloudinaryName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
		if err != nil {
			log.WithError(err).Warn("Cloudinary unavailable, avatars are stored inline")
		} else {
			opts.Avatars = cld
			log.Info("Cloudinary avatar uploads enabled")
		}
	} else {
		log.Info("Cloudinary credentials not found, avatars are stored inline")
	}

	if cfg.AdminKeyHash == "" {
		log.Warn("ADMIN_KEY_HASH not set: admin pulls and the login feed are disabled (generate one with `wellsync admin hash-key`)")
	}

	syncHandler := handlers.NewSyncHandler(services.NewSyncService(opts), cfg.AdminKeyHash, log)

	routerOpts := routes.Options{AllowedOrigins: cfg.AllowedOrigins, RateLimit: rateLimit}
	if cfg.IsProduction() {
		global, admin := middleware.GlobalRateLimiter(), middleware.AdminRateLimiter()
		go global.Cleanup(ctx)
		go admin.Cleanup(ctx)
		routerOpts.Security = middleware.ProductionSecurity(cfg.AllowedHost, global, admin)
		log.Info("Production security enabled (security headers, host check, per-IP + admin rate limiting)")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           routes.NewRouter(syncHandler, routerOpts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.WithField("port", cfg.Port).Info("wellsync sync server running")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("Failed to start server")
	}
}
