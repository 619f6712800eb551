package milvus

import (
	"Mnemo_1.0/internal/config"
	"Mnemo_1.0/internal/models"
	"context"
	"fmt"
	"log"
	"strconv"
	"sync"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

var (
	instance *MilvusClient
	once     sync.Once
	initErr  error
)

// 事实集合的固定字段。记忆引擎只有这一种记录形状，Schema 在代码中定义，
// 维度等参数来自配置。
const (
	FieldID         = "memory_id"
	FieldUserID     = "user_id"
	FieldContent    = "content"
	FieldSourceTurn = "source_turn"
	FieldCreatedAt  = "created_at"
	FieldUpdatedAt  = "updated_at"
	FieldEmbedding  = "embedding"
)

// ScalarFields 是检索时输出的非向量字段列表。
var ScalarFields = []string{FieldID, FieldUserID, FieldContent, FieldSourceTurn, FieldCreatedAt, FieldUpdatedAt}

// MilvusClient 包含了 Milvus 客户端实例和相关配置。
type MilvusClient struct {
	Client client.Client        // Milvus 客户端实例。
	Config *config.MilvusConfig // Milvus 配置。
}

// GetClient 使用单例模式创建并返回一个 Milvus 客户端实例。
func GetClient(ctx context.Context, cfg *config.MilvusConfig) (*MilvusClient, error) {
	once.Do(func() {
		c, err := client.NewClient(ctx, client.Config{Address: cfg.Address})
		if err != nil {
			initErr = fmt.Errorf("无法连接到 Milvus: %w", err)
			return
		}
		log.Println("✅ 成功连接到 Milvus!")
		instance = &MilvusClient{Client: c, Config: cfg}
	})
	return instance, initErr
}

// Close 安全地关闭与 Milvus 的连接。
func (c *MilvusClient) Close() {
	if c.Client != nil {
		c.Client.Close()
		log.Println("ℹ️ 已安全关闭 Milvus 连接。")
	}
}

// HealthCheck 检查 Milvus 连接的健康状况。
func (c *MilvusClient) HealthCheck(ctx context.Context) error {
	if c.Client == nil {
		return fmt.Errorf("Milvus client is nil")
	}
	if _, err := c.Client.ListCollections(ctx); err != nil {
		return fmt.Errorf("Milvus health check failed: %w", err)
	}
	return nil
}

// EnsureCollection 确保事实集合存在并加载。
// 如果集合已存在，会校验向量字段的维度与配置一致：维度不匹配属于致命的
// 配置错误，必须在启动时失败，而不是在第一次写入时。
func (c *MilvusClient) EnsureCollection(ctx context.Context) error {
	collName := c.Config.Collection
	exists, err := c.Client.HasCollection(ctx, collName)
	if err != nil {
		return fmt.Errorf("检查集合是否存在时出错: %w", err)
	}

	if exists {
		desc, err := c.Client.DescribeCollection(ctx, collName)
		if err != nil {
			return fmt.Errorf("无法获取集合 '%s' 的描述: %w", collName, err)
		}
		for _, field := range desc.Schema.Fields {
			if field.Name != FieldEmbedding {
				continue
			}
			dimStr, ok := field.TypeParams[entity.TypeParamDim]
			if !ok {
				return fmt.Errorf("集合 '%s' 的向量字段缺少维度参数", collName)
			}
			dim, err := strconv.Atoi(dimStr)
			if err != nil {
				return fmt.Errorf("无法读取向量字段维度: %w", err)
			}
			if dim != c.Config.Dim {
				return fmt.Errorf("集合 '%s' 的向量维度为 %d, 配置为 %d: %w",
					collName, dim, c.Config.Dim, models.ErrDimensionMismatch)
			}
		}
	} else {
		schema := entity.NewSchema().
			WithName(collName).
			WithDescription("owner-scoped memory facts").
			WithField(entity.NewField().WithName(FieldID).WithDataType(entity.FieldTypeVarChar).WithMaxLength(64).WithIsPrimaryKey(true)).
			WithField(entity.NewField().WithName(FieldUserID).WithDataType(entity.FieldTypeVarChar).WithMaxLength(256)).
			WithField(entity.NewField().WithName(FieldContent).WithDataType(entity.FieldTypeVarChar).WithMaxLength(8192)).
			WithField(entity.NewField().WithName(FieldSourceTurn).WithDataType(entity.FieldTypeVarChar).WithMaxLength(64)).
			WithField(entity.NewField().WithName(FieldCreatedAt).WithDataType(entity.FieldTypeInt64)).
			WithField(entity.NewField().WithName(FieldUpdatedAt).WithDataType(entity.FieldTypeInt64)).
			WithField(entity.NewField().WithName(FieldEmbedding).WithDataType(entity.FieldTypeFloatVector).WithDim(int64(c.Config.Dim)))

		if err := c.Client.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
			return fmt.Errorf("创建集合失败: %w", err)
		}

		idx, err := c.buildIndexFromConfig()
		if err != nil {
			return err
		}
		if err := c.Client.CreateIndex(ctx, collName, FieldEmbedding, idx, false); err != nil {
			return fmt.Errorf("为字段 '%s' 创建索引失败: %w", FieldEmbedding, err)
		}
	}

	if err := c.Client.LoadCollection(ctx, collName, false); err != nil {
		return fmt.Errorf("加载 Milvus 集合 '%s' 失败: %w", collName, err)
	}

	return nil
}

// Search 执行向量相似度搜索，结果按相似度排序。
func (c *MilvusClient) Search(ctx context.Context, vector []float32, topK int, expr string) ([]client.SearchResult, error) {
	sp, err := c.buildSearchParam()
	if err != nil {
		return nil, err
	}

	results, err := c.Client.Search(
		ctx,
		c.Config.Collection,
		nil,
		expr,
		ScalarFields,
		[]entity.Vector{entity.FloatVector(vector)},
		FieldEmbedding,
		entity.MetricType(c.Config.MetricType),
		topK,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("Milvus 搜索失败: %w", err)
	}
	return results, nil
}

// Upsert 按主键写入或替换一条记录。
func (c *MilvusClient) Upsert(ctx context.Context, columns ...entity.Column) error {
	if _, err := c.Client.Upsert(ctx, c.Config.Collection, "", columns...); err != nil {
		return fmt.Errorf("failed to upsert data into Milvus: %w", err)
	}
	return nil
}

// Delete 按过滤表达式删除记录。
func (c *MilvusClient) Delete(ctx context.Context, expr string) error {
	if err := c.Client.Delete(ctx, c.Config.Collection, "", expr); err != nil {
		return fmt.Errorf("failed to delete data from Milvus: %w", err)
	}
	return nil
}

// QueryAll 按过滤表达式读取所有匹配记录的标量字段。
func (c *MilvusClient) QueryAll(ctx context.Context, expr string) (client.ResultSet, error) {
	rs, err := c.Client.Query(ctx, c.Config.Collection, nil, expr, ScalarFields)
	if err != nil {
		return nil, fmt.Errorf("Milvus 查询失败: %w", err)
	}
	return rs, nil
}

// Flush 手动触发一次刷新操作，将内存中的数据写入磁盘。
func (c *MilvusClient) Flush(ctx context.Context) error {
	if err := c.Client.Flush(ctx, c.Config.Collection, false); err != nil {
		return fmt.Errorf("刷新集合 '%s' 失败: %w", c.Config.Collection, err)
	}
	return nil
}

// buildIndexFromConfig 从配置构建索引实体。
func (c *MilvusClient) buildIndexFromConfig() (entity.Index, error) {
	metricType := entity.MetricType(c.Config.MetricType)
	nlist := c.Config.Nlist
	if nlist <= 0 {
		nlist = 128
	}

	switch c.Config.IndexType {
	case "IVF_FLAT":
		return entity.NewIndexIvfFlat(metricType, nlist)
	case "HNSW":
		return entity.NewIndexHNSW(metricType, 8, 96)
	case "AUTOINDEX", "":
		return entity.NewIndexAUTOINDEX(metricType)
	default:
		return nil, fmt.Errorf("不支持的索引类型: %s", c.Config.IndexType)
	}
}

// buildSearchParam 构建与索引类型匹配的搜索参数。
func (c *MilvusClient) buildSearchParam() (entity.SearchParam, error) {
	switch c.Config.IndexType {
	case "IVF_FLAT":
		return entity.NewIndexIvfFlatSearchParam(10)
	case "HNSW":
		return entity.NewIndexHNSWSearchParam(64)
	case "AUTOINDEX", "":
		return entity.NewIndexAUTOINDEXSearchParam(1)
	default:
		return nil, fmt.Errorf("不支持的索引类型: %s", c.Config.IndexType)
	}
}
