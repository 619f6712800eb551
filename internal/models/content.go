package models

import "time"

// Content 包含了构成单个消息的多个部分。
type Content struct {
	// 可选。构成单个消息的部分列表。
	Parts []*Part `json:"parts,omitempty"`
	// 可选。内容的生产者。必须是 'user' 或 'model'。
	Role SpeakerRole `json:"role,omitempty"`
}

// Part 定义了消息的单个部分。记忆引擎只使用文本部分。
type Part struct {
	Text string `json:"text,omitempty"`
}

// GenerateContentRequest 定义了生成内容的请求结构。
type GenerateContentRequest struct {
	Content []Content `json:"content,omitempty"` // 请求的内容列表。
}

// GenerateContentResponse 定义了生成内容的响应结构。
type GenerateContentResponse struct {
	Content      []Content `json:"content,omitempty"`      // 响应的内容列表。
	CreateTime   time.Time `json:"createTime,omitempty"`   // 响应创建时间。
	ModelVersion string    `json:"modelVersion,omitempty"` // 模型版本。
}

// Text collects the text parts of the first content block. Convenience for
// callers that expect a single textual answer.
func (r *GenerateContentResponse) Text() string {
	if r == nil || len(r.Content) == 0 {
		return ""
	}
	var out string
	for _, p := range r.Content[0].Parts {
		if p != nil {
			out += p.Text
		}
	}
	return out
}

// TextRequest builds a single-part user request from a prompt string.
func TextRequest(prompt string) *GenerateContentRequest {
	return &GenerateContentRequest{
		Content: []Content{
			{
				Role:  SpeakerUser,
				Parts: []*Part{{Text: prompt}},
			},
		},
	}
}
