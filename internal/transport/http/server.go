package http

import (
	stdhttp "net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatdir/internal/auth"
	"github.com/vovakirdan/chatdir/internal/config"
	"github.com/vovakirdan/chatdir/internal/service/chats"
	"github.com/vovakirdan/chatdir/internal/service/messages"
	"github.com/vovakirdan/chatdir/internal/service/users"
)

// Services bundles the application services the router exposes.
type Services struct {
	Auth     *auth.Service
	Users    *users.Service
	Chats    *chats.Service
	Messages *messages.Service
}

// NewServer builds the HTTP server with all API routes.
func NewServer(svc Services, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           NewRouter(svc, cfg, logger),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

// NewRouter builds the gin engine.
func NewRouter(svc Services, cfg *config.Config, logger *zerolog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())
	router.Use(LoggerMiddleware(logger))

	if len(cfg.CORS.AllowOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowOrigins,
			AllowMethods:     []string{"GET", "POST", "PATCH", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", HeaderRequestID},
			ExposeHeaders:    []string{"Content-Length", "Content-Type", HeaderRequestID},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/health", healthHandler)

	userHandlers := NewUserHandlers(svc.Users, logger)
	chatHandlers := NewChatHandlers(svc.Chats, logger)
	messageHandlers := NewMessageHandlers(svc.Messages, logger)

	api := router.Group("/api")
	api.Use(AuthMiddleware(svc.Auth, logger))

	api.GET("/users/search", userHandlers.FindUsers)
	api.GET("/users/me", userHandlers.GetMe)
	api.GET("/users/:id", userHandlers.GetUser)
	api.PATCH("/users/avatar", userHandlers.UpdateAvatar)
	api.PATCH("/users/username", userHandlers.UpdateUsername)

	api.POST("/chats", chatHandlers.CreateChat)
	api.GET("/chats/:id", chatHandlers.GetChat)
	api.GET("/chats/:id/messages", messageHandlers.ListMessages)
	api.POST("/chats/:id/messages", messageHandlers.SendMessage)

	api.POST("/messages/:id/like", messageHandlers.LikeMessage)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(stdhttp.StatusNotFound, ErrorResponse{Error: "endpoint not found"})
	})

	return router
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
