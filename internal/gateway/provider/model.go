package provider

import "context"

// ChatPayload 单次对话请求载体。
type ChatPayload struct {
	System     string
	User       string
	ExpectJSON bool
	MaxTokens  int
}

// ModelProvider 聊天模型的最小抽象：一问一答，返回原始文本。
type ModelProvider interface {
	ID() string
	Call(ctx context.Context, payload ChatPayload) (string, error)
}
