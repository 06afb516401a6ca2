package redis

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds Redis connection settings.
type Config struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// LoadConfigFromEnv reads Redis settings from the environment.
func LoadConfigFromEnv() *Config {
	db := 0
	if raw := os.Getenv("REDIS_DB"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			db = parsed
		}
	}

	host := os.Getenv("REDIS_HOST")
	if host == "" {
		host = "localhost"
	}
	port := os.Getenv("REDIS_PORT")
	if port == "" {
		port = "6379"
	}

	return &Config{
		Host:     host,
		Port:     port,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       db,
	}
}

// ErrKeyNotExist is returned when a key does not exist.
var ErrKeyNotExist = redis.Nil

// ServiceInterface is the subset of Redis operations the gateway uses.
type ServiceInterface interface {
	GetValue(ctx context.Context, key string) (string, error)
	SetValue(ctx context.Context, key string, value string, ttl time.Duration) error
	DelValue(ctx context.Context, key string) error
}

// Service wraps a go-redis client.
type Service struct {
	client *redis.Client
}

// NewService connects to Redis and verifies the connection with a ping.
func NewService(cfg *Config) (*Service, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Service{client: client}, nil
}

// GetValue gets a value from Redis by key.
func (r *Service) GetValue(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		return "", err
	}
	return val, nil
}

// SetValue sets a value in Redis with TTL.
func (r *Service) SetValue(ctx context.Context, key string, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

// DelValue deletes a value from Redis by key.
func (r *Service) DelValue(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}
