package neo4j

import (
	"Mnemo_1.0/internal/config"
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

var (
	instance *Neo4jClient
	once     sync.Once
	initErr  error
)

// Neo4jClient 包含了 Neo4j 驱动实例。
type Neo4jClient struct {
	Driver   neo4j.DriverWithContext // Neo4j 驱动实例。
	Database string                  // 会话使用的数据库名称。
}

// GetClient 使用单例模式创建并返回一个 Neo4j 客户端实例。
func GetClient(ctx context.Context, cfg *config.Neo4jConfig) (*Neo4jClient, error) {
	once.Do(func() {
		driver, err := neo4j.NewDriverWithContext(cfg.Uri, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
		if err != nil {
			initErr = fmt.Errorf("无法创建 Neo4j 驱动: %w", err)
			return
		}

		if err := driver.VerifyConnectivity(ctx); err != nil {
			initErr = fmt.Errorf("无法连接到 Neo4j: %w", err)
			return
		}

		log.Println("✅ 成功连接到 Neo4j!")
		instance = &Neo4jClient{Driver: driver, Database: cfg.Database}
	})
	return instance, initErr
}

// Close 安全地关闭与 Neo4j 的连接。
func (c *Neo4jClient) Close(ctx context.Context) {
	if c.Driver != nil {
		if err := c.Driver.Close(ctx); err != nil {
			log.Printf("⚠️ 关闭 Neo4j 连接时出错: %v", err)
			return
		}
		log.Println("ℹ️ 已安全关闭 Neo4j 连接。")
	}
}

// HealthCheck 检查 Neo4j 连接的健康状况。
func (c *Neo4jClient) HealthCheck(ctx context.Context) error {
	if c.Driver == nil {
		return fmt.Errorf("Neo4j driver is nil")
	}
	if err := c.Driver.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("Neo4j health check failed: %w", err)
	}
	return nil
}

// RunCypherQuery 执行一条写 Cypher 语句并返回全部记录。
func (c *Neo4jClient) RunCypherQuery(ctx context.Context, query string, params map[string]any) ([]*neo4j.Record, error) {
	result, err := neo4j.ExecuteQuery(ctx, c.Driver, query, params,
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(c.Database))
	if err != nil {
		return nil, fmt.Errorf("执行 Cypher 写入失败: %w", err)
	}
	return result.Records, nil
}

// ReadCypherQuery 执行一条只读 Cypher 语句并返回全部记录。
func (c *Neo4jClient) ReadCypherQuery(ctx context.Context, query string, params map[string]any) ([]*neo4j.Record, error) {
	result, err := neo4j.ExecuteQuery(ctx, c.Driver, query, params,
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(c.Database),
		neo4j.ExecuteQueryWithReadersRouting())
	if err != nil {
		return nil, fmt.Errorf("执行 Cypher 查询失败: %w", err)
	}
	return result.Records, nil
}
