package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jmespath/go-jmespath"

	"github.com/iabetor/readaloud/internal/errs"
	"github.com/iabetor/readaloud/internal/logger"
)

// DefaultAPIURL 是 OpenAI 官方 chat completions 接口。
const DefaultAPIURL = "https://api.openai.com/v1/chat/completions"

// 固定的采样参数。
const (
	temperature      = 0.3
	topP             = 1
	presencePenalty  = 0.5
	frequencyPenalty = 0.5
)

var (
	contentExpr = jmespath.MustCompile("choices[0].message.content")
	errorExpr   = jmespath.MustCompile("error")
	errMsgExpr  = jmespath.MustCompile("error.message")
)

// OpenAIProvider 与 OpenAI 兼容的 chat completions 接口通信（非流式）。
type OpenAIProvider struct {
	apiURL     string
	model      string
	maxTokens  int
	httpClient *http.Client
}

// NewOpenAIProvider 创建一个新的 OpenAI 兼容 LLM 提供者。
// apiURL 为完整的 completions 地址，为空时使用 DefaultAPIURL。
func NewOpenAIProvider(apiURL, model string, maxTokens int, timeout time.Duration) *OpenAIProvider {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OpenAIProvider{
		apiURL:    apiURL,
		model:     model,
		maxTokens: maxTokens,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// completionRequest 是发送到 chat completions 接口的 JSON 请求体。
type completionRequest struct {
	Model            string    `json:"model"`
	Messages         []Message `json:"messages"`
	MaxTokens        int       `json:"max_tokens"`
	Temperature      float64   `json:"temperature"`
	TopP             float64   `json:"top_p"`
	PresencePenalty  float64   `json:"presence_penalty"`
	FrequencyPenalty float64   `json:"frequency_penalty"`
	Stream           bool      `json:"stream"`
	Stop             []string  `json:"stop"`
	N                int       `json:"n"`
}

// Complete 向补全接口发送对话，返回 choices[0].message.content（不做裁剪）。
func (p *OpenAIProvider) Complete(ctx context.Context, apiKey string, messages []Message) (string, error) {
	reqBody := completionRequest{
		Model:            p.model,
		Messages:         messages,
		MaxTokens:        p.maxTokens,
		Temperature:      temperature,
		TopP:             topP,
		PresencePenalty:  presencePenalty,
		FrequencyPenalty: frequencyPenalty,
		Stream:           false,
		Stop:             nil,
		N:                1,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("[llm] 序列化请求体失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", errs.Wrap(errs.OriginConfiguration, "invalid completion url "+p.apiURL, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	start := time.Now()
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", errs.Wrap(errs.OriginNetwork, p.networkMessage(), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errs.Wrap(errs.OriginNetwork, p.networkMessage(), err)
	}
	logger.Debugf("[llm] 补全返回 %d（%d 字节，耗时 %v）", resp.StatusCode, len(body), time.Since(start))

	doc, err := decodeDocument(body)
	if err != nil {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			// 没有结构化错误体（例如代理返回的 HTML）
			return "", errs.Wrap(errs.OriginNetwork, p.networkMessage(), fmt.Errorf("status %d", resp.StatusCode))
		}
		return "", errs.Wrap(errs.OriginParse, "unreadable completion response", err)
	}

	if raw, _ := errorExpr.Search(doc); raw != nil {
		msg, _ := errMsgExpr.Search(doc)
		text, ok := msg.(string)
		if !ok || text == "" {
			text = fmt.Sprintf("completion request failed with status %d", resp.StatusCode)
		}
		return "", errs.New(errs.OriginService, text).WithRaw(raw)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", errs.Newf(errs.OriginService, "completion request failed with status %d", resp.StatusCode)
	}

	content, _ := contentExpr.Search(doc)
	text, ok := content.(string)
	if !ok {
		return "", errs.New(errs.OriginParse, "completion response has no choices[0].message.content").WithRaw(doc)
	}
	return text, nil
}

func (p *OpenAIProvider) networkMessage() string {
	if p.apiURL == DefaultAPIURL {
		return "Issue calling the OpenAI API at " + p.apiURL
	}
	return "Issue calling specified url: " + p.apiURL
}

// decodeDocument 解析响应体。整体不是合法 JSON 时，
// 依次尝试第一个 JSON 文档和 SSE 风格的 "data:" 行。
func decodeDocument(body []byte) (any, error) {
	var doc any
	err := json.Unmarshal(body, &doc)
	if err == nil {
		return doc, nil
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		var first any
		if json.NewDecoder(bytes.NewReader(trimmed)).Decode(&first) == nil {
			logger.Warnf("[llm] 响应体含多余内容，使用第一个 JSON 文档")
			return first, nil
		}
	}

	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), len(body)+1)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" || data == "[DONE]" {
			continue
		}
		var framed any
		if json.Unmarshal([]byte(data), &framed) == nil {
			logger.Warnf("[llm] 响应为 SSE 格式，使用第一个 data 文档")
			return framed, nil
		}
	}

	return nil, err
}
