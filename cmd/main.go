package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"homefront-backend/internal/config"
	"homefront-backend/internal/geocode"
	"homefront-backend/internal/handler"
	"homefront-backend/internal/ingest"
	"homefront-backend/internal/middleware"
	"homefront-backend/internal/notify"
	"homefront-backend/internal/objstore"
	"homefront-backend/internal/service"
	"homefront-backend/internal/webhook"
	"homefront-backend/pkg/logger"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "./configs/config.yaml", "path to config file")
	flag.Parse()

	// Load .env if present without overriding already-set variables.
	if envMap, err := godotenv.Read(); err == nil {
		for k, v := range envMap {
			if os.Getenv(k) == "" {
				os.Setenv(k, v)
			}
		}
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	objects, err := newObjectStore(cfg)
	if err != nil {
		log.Fatalf("Failed to init object store: %v", err)
	}

	store := service.NewStorage()
	defer store.Close()

	replies := webhook.NewClient(cfg.Chat)
	ingestor := ingest.NewClient(cfg.Backend)
	notifier := notify.NewNotifier(cfg.Notify)
	geocoder := geocode.NewClient(cfg.Geocode)

	chatService := service.NewChatService(store, replies, ingestor, objects)
	chatService.StartMaintenance(cfg.Session, cfg.Storage.BackupInterval)
	leadService := service.NewLeadService(store, ingestor, notifier)

	chatHandler := handler.NewChatHandler(chatService)
	formsHandler := handler.NewFormsHandler(leadService, geocoder)

	router := setupRouter(cfg, chatHandler, formsHandler)

	server := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go func() {
		logger.Infof("Server listening on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Server shutting down...")
	if err := server.Close(); err != nil {
		logger.Errorf("Server shutdown failed: %v", err)
	}
	logger.Info("Server stopped")
}

func newObjectStore(cfg *config.Config) (objstore.Store, error) {
	if cfg.Uploads.Type == "s3" {
		return objstore.NewS3Store(context.Background(), cfg.Uploads)
	}
	return objstore.NewLocalStore(cfg.Uploads.LocalDir)
}

func setupRouter(cfg *config.Config, chatHandler *handler.ChatHandler, formsHandler *handler.FormsHandler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.RateLimit(cfg.RateLimit))

	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    cfg.CORS.ExposedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           time.Duration(cfg.CORS.MaxAge) * time.Second,
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Unix(),
		})
	})

	if cfg.Uploads.Type != "s3" && cfg.Uploads.LocalDir != "" {
		// Local previews resolve through this route; S3 uses presigned URLs.
		router.Static("/uploads", cfg.Uploads.LocalDir)
	}

	api := router.Group("/api")
	{
		chat := api.Group("/chat")
		{
			chat.POST("/session", chatHandler.EnsureSession)
			chat.GET("/sessions", chatHandler.ListSessions)
			chat.GET("/session/:session_id", chatHandler.GetSession)
			chat.POST("/message", chatHandler.SendMessage)
			chat.POST("/reset", chatHandler.ResetSession)
			chat.POST("/photos", chatHandler.AttachPhotos)
			chat.DELETE("/photos/:session_id/:index", chatHandler.RemovePendingPhoto)
			chat.PUT("/contact", chatHandler.UpdateContact)
			chat.POST("/jobs", chatHandler.AddJobItem)
			chat.POST("/jobs/remove", chatHandler.RemoveJobItem)
		}

		api.POST("/leads/submit", formsHandler.SubmitLead)
		api.POST("/forms/contact", formsHandler.SubmitContactForm)
		api.POST("/forms/booking", formsHandler.SubmitBookingForm)
		api.GET("/address/suggest", formsHandler.SuggestAddress)
	}

	return router
}
