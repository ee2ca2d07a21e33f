package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/campuslink/campuslink/internal/account"
	"github.com/campuslink/campuslink/internal/api"
	"github.com/campuslink/campuslink/internal/auth"
	"github.com/campuslink/campuslink/internal/db"
	"github.com/campuslink/campuslink/internal/mailer"
	"github.com/campuslink/campuslink/internal/media"
	"github.com/campuslink/campuslink/internal/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("config: no .env file loaded: %v", err)
	}

	cfg, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("config: failed to load: %v", err)
	}

	logger := utils.MustNewLogger(cfg.Logging)
	defer logger.Sync()

	ctx := context.Background()

	store, err := db.NewMongo(ctx, cfg.Mongo)
	if err != nil {
		logger.Fatal("mongo: failed to connect", zap.Error(err))
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			logger.Warn("mongo: close error", zap.Error(err))
		}
	}()

	if err := store.EnsureIndexes(ctx); err != nil {
		logger.Fatal("mongo: ensure indexes", zap.Error(err))
	}

	mediaStore, err := media.NewS3Store(ctx, cfg.S3)
	if err != nil {
		logger.Fatal("media: failed to initialise store", zap.Error(err))
	}

	userRepo := db.NewUserRepo(store)
	postRepo := db.NewPostRepo(store)

	creds := auth.NewService(userRepo)
	tokens, err := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		logger.Fatal("auth: failed to initialise token issuer", zap.Error(err))
	}
	reset := auth.NewResetFlow(creds, mailer.NewSMTP(cfg.SMTP), cfg.Reset.TokenTTL, cfg.Reset.URLBase)
	accounts := account.NewCoordinator(creds, postRepo, mediaStore, logger.Named("account"))

	router := setupRouter(creds, tokens, reset, accounts, postRepo, logger)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server crashed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
	}

	logger.Info("server stopped cleanly")
}

func setupRouter(creds *auth.Service, tokens *auth.TokenIssuer, reset *auth.ResetFlow, accounts *account.Coordinator, posts api.PostReader, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	api.NewHandler(creds, tokens, reset, accounts, posts, logger.Named("api")).RegisterRoutes(router)

	return router
}
