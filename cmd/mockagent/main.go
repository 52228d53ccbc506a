package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"support-chat/internal/config"
	apihttp "support-chat/internal/http"
	"support-chat/internal/logging"
	"support-chat/internal/repository"
	"support-chat/internal/service"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadServerConfig()
	if err != nil {
		panic(err)
	}

	logger, err := logging.New(cfg.LogLevel, false)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	conversations := repository.NewMemoryConversationRepository(cfg.ConversationTTL)
	var limiter service.TurnLimiter
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed, using in-memory conversations", zap.Error(err))
			_ = redisClient.Close()
		} else {
			conversations = repository.NewRedisConversationRepository(redisClient, cfg.ConversationTTL)
			limiter = service.NewRedisTurnLimiter(redisClient, cfg.TurnWindow, cfg.TurnsPerWindow)
			defer redisClient.Close()
		}
		cancel()
	}

	chatHandler := apihttp.NewChatHandler(logger, conversations, limiter, cfg.StreamDelay)
	router := apihttp.NewRouter(logger, chatHandler)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting mock agent backend", zap.String("port", cfg.HTTPPort))

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}
