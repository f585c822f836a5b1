package routes

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"inkwell/handlers"
	"inkwell/middleware"
	"inkwell/websocket"
)

func SetupRouter(posts *handlers.PostHandler, push *handlers.PushHandler, ws *websocket.Manager) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://localhost:5173", "http://127.0.0.1:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	limiter := middleware.NewIPRateLimiter(120, time.Minute)
	api := router.Group("/api")
	api.Use(middleware.RateLimit(limiter))

	// Public routes
	api.POST("/signup", handlers.Signup)
	api.POST("/login", handlers.Login)
	api.GET("/vapid-public-key", push.GetVapidPublicKey)

	// Protected routes
	protected := api.Group("")
	protected.Use(middleware.JWTAuthMiddleware())

	// Form lifecycle
	protected.POST("/posts/session", posts.OpenFormSession)
	protected.GET("/posts/slug", posts.PreviewSlug)
	protected.GET("/posts/session/:session/status", posts.SessionStatus)
	protected.GET("/posts/preview", posts.PreviewImage)

	// Posts
	protected.POST("/posts", posts.CreatePost)
	protected.PUT("/posts/:id", posts.UpdatePost)
	protected.GET("/posts/:id", posts.GetPost)
	protected.GET("/posts/slug/:slug", posts.GetPostBySlug)
	protected.GET("/my/posts", posts.GetMyPosts)

	// Push subscriptions
	protected.POST("/subscribe", push.Subscribe)

	// Submission status feed
	router.GET("/ws", middleware.JWTAuthMiddleware(), func(c *gin.Context) {
		websocket.Handler(ws, c.GetString("userId"))(c.Writer, c.Request)
	})

	router.NoRoute(func(c *gin.Context) {
		if len(c.Request.URL.Path) >= 4 && c.Request.URL.Path[:4] == "/api" {
			c.JSON(404, gin.H{
				"error": "Endpoint not found",
				"path":  c.Request.URL.Path,
			})
			return
		}
		c.Next()
	})

	return router
}
