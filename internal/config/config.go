package config

import (
	"fmt"
	"gopkg.in/yaml.v3"
	"os"
)

// MilvusConfig 定义了 Milvus 向量数据库的连接和集合配置。
type MilvusConfig struct {
	Address    string `yaml:"address"`    // Milvus 服务地址
	Collection string `yaml:"collection"` // 集合名称
	Dim        int    `yaml:"dim"`        // 向量维度，必须与 Embedding 模型一致
	MetricType string `yaml:"metricType"` // 相似度度量类型 (例如: "COSINE", "L2", "IP")
	IndexType  string `yaml:"indexType"`  // 索引类型 (例如: "HNSW", "IVF_FLAT", "AUTOINDEX")
	Nlist      int    `yaml:"nlist"`      // IVF 索引的 nlist 参数
}

// Neo4jConfig 定义了 Neo4j 图数据库的连接配置。
type Neo4jConfig struct {
	Uri      string `yaml:"uri"`      // Neo4j 数据库URI (例如: "bolt://localhost:7687")
	Username string `yaml:"username"` // 用户名
	Password string `yaml:"password"` // 密码
	Database string `yaml:"database"` // 数据库名称
}

// RedisConfig 定义了 Redis 数据库的连接配置。
type RedisConfig struct {
	Address  string `yaml:"address"`  // Redis 服务器地址 (例如: "localhost:6379")
	Password string `yaml:"password"` // Redis 密码
	DB       int    `yaml:"db"`       // Redis 数据库编号
}

// MongoConfig 定义了 MongoDB 数据库的连接配置。
type MongoConfig struct {
	Address  string `yaml:"address"`  // MongoDB 服务器地址
	Username string `yaml:"username"` // 用户名
	Password string `yaml:"password"` // 密码
	Database string `yaml:"database"` // 数据库名称
}

// KafkaConfig 定义了 Kafka 消息队列的连接配置。
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"` // Kafka Broker 地址列表
	Topic   string   `yaml:"topic"`   // 对话回合事件主题
	GroupID string   `yaml:"groupID"` // 消费者组ID
}

// DatabaseConfigs 包含所有数据库的配置。
type DatabaseConfigs struct {
	Milvus  MilvusConfig `yaml:"milvus"`  // Milvus 向量数据库配置
	Neo4j   Neo4jConfig  `yaml:"neo4j"`   // Neo4j 图数据库配置
	Redis   RedisConfig  `yaml:"redis"`   // Redis 数据库配置
	MongoDB MongoConfig  `yaml:"mongodb"` // MongoDB 数据库配置
	Kafka   KafkaConfig  `yaml:"kafka"`   // Kafka 消息队列配置
}

// GeminiConfig 包含了 Gemini 模型的配置。
type GeminiConfig struct {
	APIKey string `yaml:"apiKey"` // Gemini API 密钥
	Model  string `yaml:"model"`  // Gemini 模型名称
}

// OpenAIConfig 包含了 OpenAI 模型的配置。
type OpenAIConfig struct {
	APIKey  string `yaml:"apiKey"`  // OpenAI API 密钥
	Model   string `yaml:"model"`   // OpenAI 模型名称
	BaseURL string `yaml:"baseURL"` // 服务基础 URL (可选)
}

// OllamaConfig 包含了 Ollama 模型的配置。
type OllamaConfig struct {
	Model   string `yaml:"model"`   // Ollama 模型名称
	BaseURL string `yaml:"baseURL"` // Ollama 服务地址
}

// LLMConfig 包含了不同LLM提供商的配置。
type LLMConfig struct {
	Provider string       `yaml:"provider"` // LLM提供商 (例如: "gemini", "openai", "ollama")
	Gemini   GeminiConfig `yaml:"gemini"`   // Gemini 模型配置
	OpenAI   OpenAIConfig `yaml:"openai"`   // OpenAI 模型配置
	Ollama   OllamaConfig `yaml:"ollama"`   // Ollama 模型配置
}

// EmbeddingConfig 包含了不同Embedding提供商的配置。
type EmbeddingConfig struct {
	Provider string       `yaml:"provider"` // Embedding提供商 (例如: "gemini", "openai", "ollama")
	Dim      int          `yaml:"dim"`      // 嵌入向量的维度
	Gemini   GeminiConfig `yaml:"gemini"`   // Gemini 模型配置
	OpenAI   OpenAIConfig `yaml:"openai"`   // OpenAI 模型配置
	Ollama   OllamaConfig `yaml:"ollama"`   // Ollama 模型配置
}

// EngineConfig 包含了记忆引擎的可调策略参数。
type EngineConfig struct {
	TopK                int      `yaml:"topK"`                // 协调时向量检索的候选数量
	SimilarityFloor     float64  `yaml:"similarityFloor"`     // 相似度下限，低于此值视为无匹配
	GraphHops           int      `yaml:"graphHops"`           // 图邻域遍历的最大跳数
	GraphExpandK        int      `yaml:"graphExpandK"`        // 每条邻域关系反查事实的数量
	WindowSize          int      `yaml:"windowSize"`          // 抽取时携带的最近回合数
	JudgmentTimeout     string   `yaml:"judgmentTimeout"`     // 判定步骤的超时时间 (例如: "10s")
	ReflexivePredicates []string `yaml:"reflexivePredicates"` // 允许主宾相同的谓词列表
}

// ServerConfig 定义了 HTTP 服务的监听配置。
type ServerConfig struct {
	Address string `yaml:"address"` // 监听地址 (例如: ":8086")
}

// RateLimiterConfig 定义了限流器的配置。
type RateLimiterConfig struct {
	Enabled  bool    `yaml:"enabled"`
	Rate     float64 `yaml:"rate"`     // 每秒补充的令牌数
	Capacity int     `yaml:"capacity"` // 令牌桶容量
}

// CircuitBreakerConfig 定义了熔断器的配置。
type CircuitBreakerConfig struct {
	Enabled          bool   `yaml:"enabled"`
	FailureThreshold uint32 `yaml:"failureThreshold"`
	SuccessThreshold uint32 `yaml:"successThreshold"`
	Timeout          string `yaml:"timeout"` // 例如: "30s"
}

// MiddlewareConfig 包含所有中间件的配置。
type MiddlewareConfig struct {
	RateLimiter    RateLimiterConfig    `yaml:"rateLimiter"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuitBreaker"`
}

// AppInfo 对应 'app' 部分，包含应用程序的基本信息。
type AppInfo struct {
	Name        string `yaml:"name"`        // 应用程序名称
	Version     string `yaml:"version"`     // 应用程序版本
	Environment string `yaml:"environment"` // 运行环境 (例如: "development", "production")
}

// LoggerConfig 定义了日志记录器的配置。
type LoggerConfig struct {
	Level string `yaml:"level"` // 日志级别 (例如: "info", "debug", "warn", "error")
}

// AppConfig 是整个 YAML 文件的根结构，包含了应用程序的所有配置。
type AppConfig struct {
	App        AppInfo          `yaml:"app"`        // 应用程序信息
	Logger     LoggerConfig     `yaml:"logger"`     // 日志记录器配置
	Server     ServerConfig     `yaml:"server"`     // HTTP 服务配置
	LLM        LLMConfig        `yaml:"llm"`        // LLM 配置部分
	Embedding  EmbeddingConfig  `yaml:"embedding"`  // Embedding 配置部分
	Databases  DatabaseConfigs  `yaml:"databases"`  // 数据库配置
	Engine     EngineConfig     `yaml:"engine"`     // 记忆引擎策略配置
	Middleware MiddlewareConfig `yaml:"middleware"` // 中间件配置
}

// LoadConfig 函数从指定路径加载并解析 YAML 配置文件。
//
// 参数:
//
//	path: YAML 配置文件的路径。
//
// 返回值:
//
//	*AppConfig: 解析后的应用程序配置结构体。
//	error: 如果文件读取或解析失败，则返回错误。
func LoadConfig(path string) (*AppConfig, error) {
	// 读取 YAML 文件内容。
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("无法读取 YAML 文件 '%s': %w", path, err)
	}
	var cfg AppConfig
	// 将 YAML 内容解析到 cfg 结构体中。
	if err := yaml.Unmarshal(yamlFile, &cfg); err != nil {
		return nil, fmt.Errorf("解析 YAML 文件失败: %w", err)
	}
	cfg.Engine.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults 为未设置的引擎参数填入默认值。
// 这些都是策略常量而非硬编码：测试和部署可以覆盖它们。
func (e *EngineConfig) ApplyDefaults() {
	if e.TopK <= 0 {
		e.TopK = 5
	}
	if e.SimilarityFloor <= 0 {
		e.SimilarityFloor = 0.7
	}
	if e.GraphHops <= 0 {
		e.GraphHops = 2
	}
	if e.GraphExpandK <= 0 {
		e.GraphExpandK = 2
	}
	if e.WindowSize <= 0 {
		e.WindowSize = 6
	}
	if e.JudgmentTimeout == "" {
		e.JudgmentTimeout = "10s"
	}
}
