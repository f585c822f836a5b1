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

	"inkwell/config"
	"inkwell/database"
	"inkwell/handlers"
	"inkwell/notify"
	"inkwell/routes"
	"inkwell/services"
	"inkwell/storage"
	"inkwell/websocket"
)

func main() {
	log.Println("Starting Inkwell API...")

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using process environment")
	}

	cfg := config.Load()
	if cfg.JWTSecret == "" || cfg.MongoURI == "" || cfg.CloudinaryURL == "" {
		log.Fatal("JWT_SECRET, MONGODB_URI and CLOUDINARY_URL must be set")
	}

	log.Println("Connecting to MongoDB...")
	var dbErr error
	for i := 1; i <= 3; i++ {
		if err := database.Connect(); err != nil {
			dbErr = err
			log.Printf("MongoDB connection attempt %d failed: %v", i, err)
			time.Sleep(2 * time.Second)
			continue
		}
		dbErr = nil
		break
	}
	if dbErr != nil {
		log.Fatal("Failed to connect to MongoDB: ", dbErr)
	}
	defer database.Disconnect()

	store, err := storage.NewCloudinaryStore(cfg.CloudinaryURL)
	if err != nil {
		log.Fatal("Failed to configure Cloudinary: ", err)
	}

	gin.SetMode(cfg.GinMode)

	wsManager := websocket.NewManager()
	go wsManager.Start()

	notifier := notify.New(database.Subscriptions, cfg.VapidPublicKey, cfg.VapidPrivateKey, cfg.VapidSubscriber)

	postRepo := database.NewPostRepo(database.Posts)
	assetSvc := services.NewAssetService(store, wsManager)
	postSvc := services.NewPostService(postRepo, assetSvc, wsManager, notifier)

	router := routes.SetupRouter(
		handlers.NewPostHandler(postSvc, assetSvc, postRepo),
		handlers.NewPushHandler(notifier),
		wsManager,
	)

	router.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "Inkwell API running"})
	})
	router.GET("/health", func(c *gin.Context) {
		c.String(200, "OK")
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server running on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server error: ", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Println("Forced shutdown: ", err)
	}

	log.Println("Server stopped")
}
