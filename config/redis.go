package config

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
)

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// NewRedisClient connects to the summary cache. Returns nil when no host is
// configured; callers treat a nil client as cache disabled.
func NewRedisClient(config RedisConfig) *redis.Client {
	if config.Host == "" {
		log.Println("REDIS_HOST not set, summary cache disabled")
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", config.Host, config.Port),
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     10,
		MinIdleConns: 5,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx := context.Background()
	pong, err := rdb.Ping(ctx).Result()
	if err != nil {
		log.Printf("Failed to connect to Redis, summary cache disabled: %v", err)
		return nil
	}
	log.Printf("Redis connected: %s", pong)

	return rdb
}
