package embedding

import (
	"fmt"
)

// NewEmdModel 根据指定的提供商、模型、API 密钥和基础 URL 创建并返回一个新的 Embedding 模型实例。
//
// 参数:
//
//	provider: Embedding 模型的提供商 (例如: "gemini", "openai", "ollama")。
//	model: 要使用的模型名称。
//	apiKey: 模型的 API 密钥。
//	baseURL: 模型的服务基础 URL (可选，某些提供商可能不需要)。
func NewEmdModel(provider, model, apiKey, baseURL string) (Embedding, error) {
	switch provider {
	case "gemini":
		return NewGoogleModel(model, apiKey)
	case "openai":
		return NewOpenAIModel(apiKey, model, baseURL)
	case "ollama":
		return NewOllamaModel(model, baseURL)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}
