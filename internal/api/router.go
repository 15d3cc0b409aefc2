package api

import (
	"time"

	"nutrichat/backend/internal/service"
	"nutrichat/backend/pkg/config"
	apperrors "nutrichat/backend/pkg/errors"
	"nutrichat/backend/pkg/health"
	"nutrichat/backend/pkg/jwt"
	"nutrichat/backend/pkg/logger"
	"nutrichat/backend/pkg/middleware"
	"nutrichat/backend/pkg/validator"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RouterDeps collects everything the HTTP surface needs
type RouterDeps struct {
	Config        *config.Config
	Logger        *logger.Logger
	JWTService    *jwt.Service
	Users         *service.UserService
	Conversations *service.ConversationService
	Chat          *service.ChatService
	Health        *health.Checker
}

// NewRouter assembles the Gin engine with all middleware and routes
func NewRouter(deps RouterDeps) (*gin.Engine, error) {
	engine := gin.New()

	engine.Use(middleware.RequestID())
	engine.Use(logger.Middleware(deps.Logger))
	engine.Use(apperrors.RecoveryWithLogger())
	engine.Use(apperrors.ErrorHandler())

	engine.Use(cors.New(cors.Config{
		AllowOrigins:     deps.Config.Security.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	if deps.Config.Validation.SchemaPath != "" {
		v, err := validator.NewOpenAPIValidator(deps.Config.Validation.SchemaPath)
		if err != nil {
			return nil, err
		}
		engine.Use(v.Middleware())
	}

	authHandler := NewAuthHandler(deps.Users, deps.Logger)
	conversationHandler := NewConversationHandler(deps.Conversations, deps.Logger)
	chatHandler := NewChatHandler(deps.Chat, deps.Logger)

	engine.GET("/health", deps.Health.Handler())

	engine.POST("/create-user", authHandler.CreateUser)
	engine.POST("/refresh-token", authHandler.RefreshToken)

	authed := engine.Group("/", AuthRequired(deps.JWTService))
	{
		authed.POST("/create-conversation", conversationHandler.Create)
		authed.GET("/conversations", conversationHandler.List)

		// Generation is the expensive path, so it gets its own limiter keyed
		// by authenticated user
		limiter := middleware.NewRateLimiter(deps.Logger, middleware.RateLimiterOptions{
			Limit:          rate.Limit(deps.Config.Security.RateLimit),
			Burst:          deps.Config.Security.RateLimitBurst,
			ExpiryDuration: time.Hour,
			KeyFunc: func(c *gin.Context) string {
				if username, ok := c.Get("username"); ok {
					return username.(string)
				}
				return c.ClientIP()
			},
		})
		authed.POST("/message", limiter.Middleware(), chatHandler.SendMessage)
	}

	return engine, nil
}
