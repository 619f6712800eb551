package mongo

import (
	"Mnemo_1.0/internal/config"
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

var (
	instance *MongoClient
	once     sync.Once
	initErr  error
)

// MongoClient 包含了 MongoDB 客户端实例和数据库句柄。
type MongoClient struct {
	Client   *mongo.Client   // MongoDB 客户端实例。
	Database *mongo.Database // 默认数据库句柄。
}

// GetClient 使用单例模式创建并返回一个 MongoDB 客户端实例。
func GetClient(ctx context.Context, cfg *config.MongoConfig) (*MongoClient, error) {
	once.Do(func() {
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		uri := fmt.Sprintf("mongodb://%s", cfg.Address)
		if cfg.Username != "" {
			uri = fmt.Sprintf("mongodb://%s:%s@%s", cfg.Username, cfg.Password, cfg.Address)
		}

		client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
		if err != nil {
			initErr = fmt.Errorf("无法连接到 MongoDB: %w", err)
			return
		}

		if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
			initErr = fmt.Errorf("无法 Ping 通 MongoDB: %w", err)
			return
		}

		log.Println("✅ 成功连接到 MongoDB!")
		instance = &MongoClient{
			Client:   client,
			Database: client.Database(cfg.Database),
		}
	})
	return instance, initErr
}

// Close 安全地断开与 MongoDB 的连接。
func (c *MongoClient) Close(ctx context.Context) {
	if c.Client != nil {
		if err := c.Client.Disconnect(ctx); err != nil {
			log.Printf("⚠️ 关闭 MongoDB 连接时出错: %v", err)
			return
		}
		log.Println("ℹ️ 已安全关闭 MongoDB 连接。")
	}
}

// HealthCheck 检查 MongoDB 连接的健康状况。
func (c *MongoClient) HealthCheck(ctx context.Context) error {
	if c.Client == nil {
		return fmt.Errorf("MongoDB client is nil")
	}
	if err := c.Client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("MongoDB health check failed: %w", err)
	}
	return nil
}

// Collection 返回默认数据库下指定名称的集合。
func (c *MongoClient) Collection(name string) *mongo.Collection {
	return c.Database.Collection(name)
}
