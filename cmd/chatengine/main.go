package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/docavailable/chat-engine/internal/api"
	"github.com/docavailable/chat-engine/internal/auth"
	"github.com/docavailable/chat-engine/internal/chat"
	"github.com/docavailable/chat-engine/internal/config"
	"github.com/docavailable/chat-engine/internal/events"
	"github.com/docavailable/chat-engine/internal/kafka"
	"github.com/docavailable/chat-engine/internal/kvstore"
	"github.com/docavailable/chat-engine/internal/logger"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	zlog, err := logger.New(logger.Config{Development: cfg.App.Env == "development"})
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer zlog.Sync()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		zlog.Fatalf("redis ping: %v", err)
	}

	engine := chat.New(
		kvstore.NewRedis(rdb),
		zlog,
		chat.WithMessageTTL(cfg.Chat.MessageTTL),
		chat.WithMaxMessages(cfg.Chat.MaxMessages),
		chat.WithTypingTTL(cfg.Chat.TypingTTL),
	)

	var pub *events.Publisher
	if cfg.NATS.URL != "" {
		pub, err = events.NewPublisher(cfg.NATS.URL)
		if err != nil {
			zlog.Fatalf("nats connect: %v", err)
		}
		defer pub.Close()
	}

	producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	defer producer.Close()

	jv, err := auth.NewJWTValidator(cfg.JWT.Secret)
	if err != nil {
		zlog.Fatalf("jwt validator: %v", err)
	}

	handlers := api.NewHandlers(engine, pub, producer, zlog)
	app := api.NewServer(jv, handlers)

	go func() {
		if err := app.Listen(":" + cfg.App.PortString()); err != nil {
			zlog.Fatalf("server listen: %v", err)
		}
	}()
	zlog.Infof("chat-engine started on :%s (env=%s)", cfg.App.PortString(), cfg.App.Env)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutCtx, cancelShut := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShut()
	_ = app.ShutdownWithContext(shutCtx)
	zlog.Info("chat-engine stopped")
}
