package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"edunet/auth"
	"edunet/config"
	"edunet/database"
	"edunet/database/memory"
	"edunet/handlers"
	"edunet/logger"
	"edunet/media"
	"edunet/middleware"
	"edunet/presence"
	"edunet/push"
	"edunet/routes"
	"edunet/services"
	"edunet/websocket"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if err := logger.Init(!cfg.Release()); err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Log

	log.Info("starting edunet backend", zap.String("store", cfg.Store), zap.String("mode", cfg.GinMode))

	if cfg.Release() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	ctx := context.Background()

	// ===== STORAGE =====
	var (
		store       *database.Store
		mongoClient *mongo.Client
	)
	switch cfg.Store {
	case "memory":
		store = memory.New()
		log.Warn("using in-memory store, data is lost on restart")
	default:
		mongoClient, err = database.Connect(ctx, cfg.MongoURI)
		if err != nil {
			log.Fatal("failed to connect to mongodb", zap.Error(err))
		}
		db := mongoClient.Database(cfg.MongoDatabase)
		if err := database.EnsureIndexes(ctx, db); err != nil {
			log.Fatal("failed to create indexes", zap.Error(err))
		}
		store = database.NewStore(db)
		log.Info("mongodb connected", zap.String("database", cfg.MongoDatabase))
	}

	// ===== PRESENCE =====
	var (
		tracker presence.Tracker = presence.NewMemory()
		rdb     *redis.Client
	)
	if cfg.RedisAddr != "" {
		rdb, err = presence.Open(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Fatal("failed to connect to redis", zap.Error(err))
		}
		tracker = presence.NewRedis(rdb)
		log.Info("redis presence enabled", zap.String("addr", cfg.RedisAddr))
	}

	// ===== INTEGRATIONS =====
	uploader, err := media.New(cfg.CloudinaryURL)
	if err != nil {
		log.Fatal("invalid media configuration", zap.Error(err))
	}
	pusher := push.New(store.Subscriptions, cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, cfg.VAPIDSubject)
	google := auth.NewGoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)
	if google == nil {
		log.Info("google sign-in disabled")
	}
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL())

	// ===== SERVICES + WEBSOCKET =====
	hub := websocket.NewHub(tokens, tracker)
	svc := services.New(services.Deps{
		Store:    store,
		Tokens:   tokens,
		Google:   google,
		Presence: tracker,
		Media:    uploader,
		Push:     pusher,
		Events:   hub,
	})
	hub.Bind(svc)
	go hub.Start()

	limiter := middleware.NewIPRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	sweepDone := make(chan struct{})
	go func() {
		t := time.NewTicker(time.Minute)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				limiter.Sweep(3 * time.Minute)
			case <-sweepDone:
				return
			}
		}
	}()

	// ===== ROUTER =====
	router := routes.SetupRouter(routes.Options{
		Handler: handlers.New(svc),
		Tokens:  tokens,
		Hub:     hub,
		Limiter: limiter,
		Origins: cfg.Origins(),
		Roles:   svc.Accounts.Role,
	})

	// ===== SERVER CONFIG =====
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	// ===== GRACEFUL SHUTDOWN =====
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("forced shutdown", zap.Error(err))
	}
	close(sweepDone)
	hub.Close()
	if err := database.Disconnect(mongoClient); err != nil {
		log.Error("mongodb disconnect", zap.Error(err))
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			log.Error("redis close", zap.Error(err))
		}
	}

	log.Info("server stopped gracefully")
}
