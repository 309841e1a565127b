package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type App struct {
	Env  string `yaml:"env"`
	Port int    `yaml:"port"`
}

func (a *App) PortString() string { return fmt.Sprintf("%d", a.Port) }

type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type Kafka struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type NATS struct {
	URL string `yaml:"url"`
}

type JWT struct {
	Secret string `yaml:"secret"`
}

type Chat struct {
	MessageTTL  time.Duration `yaml:"message_ttl"`
	MaxMessages int           `yaml:"max_messages"`
	TypingTTL   time.Duration `yaml:"typing_ttl"`
}

type Config struct {
	App   App   `yaml:"app"`
	Redis Redis `yaml:"redis"`
	Kafka Kafka `yaml:"kafka"`
	NATS  NATS  `yaml:"nats"`
	JWT   JWT   `yaml:"jwt"`
	Chat  Chat  `yaml:"chat"`
}

func Load() (*Config, error) {
	cfg := &Config{
		App: App{Env: "development", Port: 8084},
		Chat: Chat{
			MessageTTL:  time.Hour,
			MaxMessages: 1000,
			TypingTTL:   30 * time.Second,
		},
		Kafka: Kafka{Topic: "chat.message.stored"},
	}

	if _, err := os.Stat("config.yaml"); err == nil {
		b, _ := os.ReadFile("config.yaml")
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, err
		}
	}

	_ = godotenv.Load()
	overrideFromEnv(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func overrideFromEnv(cfg *Config) {
	if v := os.Getenv("APP_ENV"); v != "" {
		cfg.App.Env = v
	}
	if v := os.Getenv("SERVICE_PORT"); v != "" {
		n, _ := strconv.Atoi(v)
		cfg.App.Port = n
	}

	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		n, _ := strconv.Atoi(v)
		cfg.Redis.DB = n
	}

	if v := os.Getenv("KAFKA_BROKER"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		cfg.Kafka.Topic = v
	}

	if v := os.Getenv("NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}

	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.JWT.Secret = v
	}

	if v := os.Getenv("CHAT_MESSAGE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Chat.MessageTTL = d
		}
	}
	if v := os.Getenv("CHAT_MAX_MESSAGES"); v != "" {
		n, _ := strconv.Atoi(v)
		cfg.Chat.MaxMessages = n
	}
}

func validate(cfg *Config) error {
	if cfg.App.Port == 0 {
		return errors.New("app.port missing or invalid")
	}
	if cfg.Redis.Addr == "" {
		return errors.New("redis.addr missing")
	}
	if cfg.JWT.Secret == "" {
		return errors.New("jwt.secret missing")
	}
	if cfg.Chat.MaxMessages <= 0 {
		return errors.New("chat.max_messages must be positive")
	}
	if cfg.Chat.MessageTTL <= 0 {
		return errors.New("chat.message_ttl must be positive")
	}
	return nil
}
