package llm

import (
	"Mnemo_1.0/internal/models"
	"context"
	"fmt"
)

// LLM 定义了所有大型语言模型客户端必须实现的通用接口。
// 记忆引擎只依赖这一能力：给定提示，返回文本（通常是 JSON）。
type LLM interface {
	GenerateContent(ctx context.Context, req *models.GenerateContentRequest) (*models.GenerateContentResponse, error)
}

// NewLLM 是一个工厂函数，根据提供商创建并返回一个实现了 LLM 接口的客户端。
//
// 参数:
//
//	provider: LLM 提供商 (例如: "gemini", "openai", "ollama")。
//	model: 要使用的模型名称。
//	apiKey: 模型的 API 密钥。
//	baseURL: 模型的服务基础 URL (可选，某些提供商可能不需要)。
func NewLLM(provider, model, apiKey, baseURL string) (LLM, error) {
	switch provider {
	case "gemini":
		return NewGemini(context.Background(), model, apiKey)
	case "openai":
		return NewOpenAI(model, apiKey, baseURL)
	case "ollama":
		return NewOllama(model, baseURL)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}
}
