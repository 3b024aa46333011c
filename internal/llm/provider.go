package llm

import "context"

// 消息角色。
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message 表示与 LLM 对话中的一条消息。
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider 定义一次性（非流式）补全的 LLM 后端接口。
type Provider interface {
	// Complete 发送对话消息并返回第一条候选回复的原文。
	Complete(ctx context.Context, apiKey string, messages []Message) (string, error)
}
