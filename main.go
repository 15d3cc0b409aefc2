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

	"nutrichat/backend/internal/api"
	"nutrichat/backend/internal/models"
	"nutrichat/backend/internal/service"
	"nutrichat/backend/pkg/cache"
	"nutrichat/backend/pkg/config"
	"nutrichat/backend/pkg/health"
	"nutrichat/backend/pkg/jwt"
	"nutrichat/backend/pkg/logger"
	"nutrichat/backend/pkg/resilience"
	"nutrichat/backend/pkg/secrets"
	"nutrichat/backend/rag"
	"nutrichat/backend/shared/observability"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.New()

	log := logger.New(logger.Config{
		Level: cfg.Logging.Level,
		JSON:  cfg.Logging.Format == "json",
	})
	logger.SetGlobal(log)

	if cfg.Server.Env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	// Secrets come from Vault when configured, environment otherwise
	secretManager, err := secrets.NewVaultManager(log)
	if err != nil {
		log.Error("failed to initialize secrets manager", "error", err.Error())
		os.Exit(1)
	}
	jwtSecret := secretManager.GetSecretWithDefault(ctx, "secret_key", cfg.JWT.Secret)
	if jwtSecret == "" {
		log.Error("SECRET_KEY is not configured")
		os.Exit(1)
	}
	openAIToken := secretManager.GetSecretWithDefault(ctx, "openai_api_key", os.Getenv("OPENAI_API_KEY"))

	// Observability
	shutdownTracing := observability.SetupTracing("nutrichat-backend")
	defer shutdownTracing()
	observability.SetupPrometheusMetrics(":2112")

	// Database
	db, err := config.NewDB()
	if err != nil {
		log.Error("failed to set up database", "error", err.Error())
		os.Exit(1)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Conversation{}, &models.Message{}); err != nil {
		log.Error("failed to run migrations", "error", err.Error())
		os.Exit(1)
	}

	// Cache
	var store cache.Store
	var redisStore *cache.Redis
	if cfg.Cache.Enabled {
		if cfg.Cache.RedisURL != "" {
			redisStore = cache.NewRedis(cfg.Cache.RedisURL)
			store = redisStore
		} else {
			store = cache.NewMemory(10 * time.Minute)
		}
	}

	// RAG pipeline: embeddings + Chroma + reranker + chat completion,
	// constructed once and injected
	ragStore, err := rag.NewStore(rag.Config{
		ChromaURL:      cfg.RAG.ChromaURL,
		Namespace:      cfg.RAG.Namespace,
		EmbeddingModel: cfg.RAG.EmbeddingModel,
		ChatModel:      cfg.RAG.ChatModel,
		OpenAIToken:    openAIToken,
	})
	if err != nil {
		log.Error("failed to initialize RAG pipeline", "error", err.Error())
		os.Exit(1)
	}
	retriever := rag.NewRetriever(ragStore.Vector, ragStore.LLM, cfg.RAG.TopK, cfg.RAG.Rerank, log)
	pipeline := rag.NewPipeline(ragStore.LLM, retriever, log)

	// Services
	jwtService := jwt.NewService(jwtSecret, cfg.JWT.Expiry)
	userService := service.NewUserService(db, jwtService)
	conversationService := service.NewConversationService(db, store, cfg.Cache.TTL)

	breaker := resilience.New(resilience.DefaultConfig("generation"), log)
	chatConfig := service.DefaultChatConfig()
	chatConfig.Timeout = cfg.RAG.Timeout
	chatConfig.MaxRetries = cfg.RAG.MaxRetries
	chatService := service.NewChatService(db, conversationService, pipeline, breaker, chatConfig, log)

	// Health checks
	checker := health.NewChecker()
	checker.RegisterCheck("database", func() error {
		return config.TestConnection(db)
	})
	if redisStore != nil {
		checker.RegisterCheck("redis", func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return redisStore.Ping(pingCtx)
		})
	}
	checker.RegisterCheck("generation", func() error {
		if breaker.GetState() == resilience.StateOpen {
			return fmt.Errorf("generation circuit is open")
		}
		return nil
	})

	engine, err := api.NewRouter(api.RouterDeps{
		Config:        cfg,
		Logger:        log,
		JWTService:    jwtService,
		Users:         userService,
		Conversations: conversationService,
		Chat:          chatService,
		Health:        checker,
	})
	if err != nil {
		log.Error("failed to assemble router", "error", err.Error())
		os.Exit(1)
	}

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
		// Generation can take tens of seconds, so the write timeout must
		// exceed the turn deadline
		WriteTimeout: cfg.RAG.Timeout + cfg.Server.Timeout,
	}

	go func() {
		log.Info("server listening", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err.Error())
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shut down server", "error", err.Error())
		os.Exit(1)
	}

	log.Info("server shutdown complete")
}
