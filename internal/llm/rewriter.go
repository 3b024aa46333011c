package llm

import (
	"context"
	"strings"

	"github.com/iabetor/readaloud/internal/errs"
	"github.com/iabetor/readaloud/internal/logger"
	"github.com/iabetor/readaloud/internal/settings"
)

// Rewriter 把选中文本改写成适合朗读的口语。
type Rewriter struct {
	provider Provider
}

// NewRewriter 创建改写器。
func NewRewriter(p Provider) *Rewriter {
	return &Rewriter{provider: p}
}

// Rewrite 以 prompt 作为 system 消息、text 作为 user 消息请求一次补全。
// prompt 为空时使用默认的朗读指令；apiKey 缺失或为占位值时不发请求。
func (r *Rewriter) Rewrite(ctx context.Context, text, apiKey, prompt string) (string, error) {
	if settings.IsUnset(apiKey) {
		return "", errs.New(errs.OriginConfiguration, "OpenAI API key is not set")
	}
	if strings.TrimSpace(prompt) == "" {
		prompt = settings.DefaultPrompt
	}

	messages := []Message{
		{Role: RoleSystem, Content: prompt},
		{Role: RoleUser, Content: text},
	}

	out, err := r.provider.Complete(ctx, apiKey, messages)
	if err != nil {
		logger.Warnf("[llm] 改写失败: %v", err)
		return "", err
	}
	logger.Infof("[llm] 改写完成: %d → %d 字符", len([]rune(text)), len([]rune(out)))
	return out, nil
}
