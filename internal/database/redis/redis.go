package redis

import (
	"Mnemo_1.0/internal/config"
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/go-redis/redis/v8"
)

var (
	instance *RedisClient
	once     sync.Once
	initErr  error
)

// RedisClient 包含了 Redis 客户端实例。
type RedisClient struct {
	Client *redis.Client // Redis 客户端实例。
}

// GetClient 使用单例模式创建并返回一个 Redis 客户端实例。
func GetClient(ctx context.Context, cfg *config.RedisConfig) (*RedisClient, error) {
	once.Do(func() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Address,
			Password: cfg.Password,
			DB:       cfg.DB,
		})

		if err := rdb.Ping(ctx).Err(); err != nil {
			initErr = fmt.Errorf("无法连接到 Redis: %w", err)
			return
		}

		log.Println("✅ 成功连接到 Redis!")
		instance = &RedisClient{Client: rdb}
	})
	return instance, initErr
}

// Close 安全地关闭与 Redis 的连接。
func (c *RedisClient) Close() {
	if c.Client != nil {
		if err := c.Client.Close(); err != nil {
			log.Printf("⚠️ 关闭 Redis 连接时出错: %v", err)
			return
		}
		log.Println("ℹ️ 已安全关闭 Redis 连接。")
	}
}

// HealthCheck 检查 Redis 连接的健康状况。
func (c *RedisClient) HealthCheck(ctx context.Context) error {
	if c.Client == nil {
		return fmt.Errorf("Redis client is nil")
	}
	if err := c.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("Redis health check failed: %w", err)
	}
	return nil
}
