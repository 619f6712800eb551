package llm

import (
	"Mnemo_1.0/internal/models"
	"context"
	"fmt"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Gemini 是一个实现了 LLM 接口的结构体，用于与 Gemini API 交互。
type Gemini struct {
	model *genai.GenerativeModel // Gemini 生成模型实例。
}

// NewGemini 创建一个新的 Gemini 客户端。
//
// 参数:
//
//	ctx: 上下文，用于控制客户端的生命周期。
//	model: 要使用的 Gemini 模型名称。
//	apiKey: Gemini API 密钥。
func NewGemini(ctx context.Context, model, apiKey string) (*Gemini, error) {
	// 使用 API 密钥创建 GenAI 客户端。
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	generativeModel := client.GenerativeModel(model)
	// 抽取与判定提示都要求 JSON 输出。
	generativeModel.ResponseMIMEType = "application/json"

	return &Gemini{model: generativeModel}, nil
}

// GenerateContent 向 Gemini API 发送请求并返回响应。
func (g *Gemini) GenerateContent(ctx context.Context, req *models.GenerateContentRequest) (*models.GenerateContentResponse, error) {
	parts := toGenaiParts(req.Content)
	if len(parts) == 0 {
		return nil, fmt.Errorf("empty request content")
	}

	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, err
	}

	return fromGenaiResponse(resp), nil
}

// toGenaiParts 将内部内容格式转换为 GenAI 部分。
func toGenaiParts(contents []models.Content) []genai.Part {
	var parts []genai.Part
	for _, c := range contents {
		for _, p := range c.Parts {
			if p != nil && p.Text != "" {
				parts = append(parts, genai.Text(p.Text))
			}
		}
	}
	return parts
}

// fromGenaiResponse 将 GenAI 响应转换为内部响应格式。
// 被安全策略拦截的响应没有候选内容，转换结果为空文本。
func fromGenaiResponse(resp *genai.GenerateContentResponse) *models.GenerateContentResponse {
	out := &models.GenerateContentResponse{CreateTime: time.Now()}
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		content := models.Content{Role: models.SpeakerModel}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				content.Parts = append(content.Parts, &models.Part{Text: string(text)})
			}
		}
		out.Content = append(out.Content, content)
	}
	return out
}
