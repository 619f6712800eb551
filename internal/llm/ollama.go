package llm

import (
	"Mnemo_1.0/internal/models"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	olla "github.com/ollama/ollama/api"
)

// Ollama 是一个用于本地 Ollama 服务的 LLM 客户端。
type Ollama struct {
	client *olla.Client // Ollama 客户端实例。
	model  string       // 要使用的模型名称。
}

// NewOllama 创建一个新的 Ollama 客户端。
func NewOllama(model, baseURL string) (*Ollama, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama base URL: %w", err)
	}
	return &Ollama{
		client: olla.NewClient(u, &http.Client{Timeout: 120 * time.Second}),
		model:  model,
	}, nil
}

// GenerateContent 使用 Ollama API 生成内容。
func (o *Ollama) GenerateContent(ctx context.Context, req *models.GenerateContentRequest) (*models.GenerateContentResponse, error) {
	stream := false
	chatReq := &olla.ChatRequest{
		Model:  o.model,
		Stream: &stream,
		Format: []byte(`"json"`),
	}
	for _, c := range req.Content {
		role := "user"
		if c.Role == models.SpeakerModel || c.Role == models.SpeakerAssistant {
			role = "assistant"
		}
		for _, p := range c.Parts {
			if p != nil && p.Text != "" {
				chatReq.Messages = append(chatReq.Messages, olla.Message{Role: role, Content: p.Text})
			}
		}
	}

	var sb strings.Builder
	err := o.client.Chat(ctx, chatReq, func(resp olla.ChatResponse) error {
		sb.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ollama chat failed: %w", err)
	}

	return &models.GenerateContentResponse{
		Content: []models.Content{
			{
				Role:  models.SpeakerModel,
				Parts: []*models.Part{{Text: sb.String()}},
			},
		},
		CreateTime: time.Now(),
	}, nil
}
