package llm

import (
	"Mnemo_1.0/internal/models"
	"context"
	"fmt"
	"time"

	openai "github.com/meguminnnnnnnnn/go-openai"
)

// OpenAI 是一个用于 OpenAI API 的 LLM 客户端。
type OpenAI struct {
	client *openai.Client // OpenAI 客户端实例。
	model  string         // 要使用的模型名称。
}

// NewOpenAI 创建一个新的 OpenAI 客户端。
func NewOpenAI(model, apiKey, baseURL string) (*OpenAI, error) {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &OpenAI{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}, nil
}

// GenerateContent 使用 OpenAI API 生成内容。
func (o *OpenAI) GenerateContent(ctx context.Context, req *models.GenerateContentRequest) (*models.GenerateContentResponse, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    o.model,
		Messages: toOpenAIMessages(req.Content),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion: %w", err)
	}

	out := &models.GenerateContentResponse{CreateTime: time.Now(), ModelVersion: resp.Model}
	for _, choice := range resp.Choices {
		out.Content = append(out.Content, models.Content{
			Role:  models.SpeakerModel,
			Parts: []*models.Part{{Text: choice.Message.Content}},
		})
	}
	return out, nil
}

// toOpenAIMessages 将内部内容格式转换为 OpenAI 消息列表。
func toOpenAIMessages(contents []models.Content) []openai.ChatCompletionMessage {
	var messages []openai.ChatCompletionMessage
	for _, c := range contents {
		role := openai.ChatMessageRoleUser
		if c.Role == models.SpeakerModel || c.Role == models.SpeakerAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		for _, p := range c.Parts {
			if p != nil && p.Text != "" {
				messages = append(messages, openai.ChatCompletionMessage{
					Role:    role,
					Content: p.Text,
				})
			}
		}
	}
	return messages
}
