package tts

import (
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
	"github.com/iabetor/readaloud/internal/settings"
)

// DefaultElevenLabsBaseURL ElevenLabs API 地址。
const DefaultElevenLabsBaseURL = "https://api.elevenlabs.io/v1"

var (
	detailExpr    = jmespath.MustCompile("detail")
	detailMsgExpr = jmespath.MustCompile("detail.message")
)

// ElevenLabsEngine 调用 ElevenLabs text-to-speech 接口，返回 MP3。
// 不重试。
type ElevenLabsEngine struct {
	baseURL    string
	httpClient *http.Client
}

// NewElevenLabsEngine 创建 ElevenLabs 引擎。
func NewElevenLabsEngine(baseURL string, timeout time.Duration) *ElevenLabsEngine {
	if baseURL == "" {
		baseURL = DefaultElevenLabsBaseURL
	}
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &ElevenLabsEngine{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Name 返回引擎名称。
func (e *ElevenLabsEngine) Name() string { return "elevenlabs" }

// RequiresAPIKey ElevenLabs 需要 xi-api-key。
func (e *ElevenLabsEngine) RequiresAPIKey() bool { return true }

type elevenLabsRequest struct {
	Text          string                  `json:"text"`
	VoiceSettings elevenLabsVoiceSettings `json:"voice_settings"`
}

type elevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// Synthesize 发送一次 POST <base>/text-to-speech/{voiceId}，返回完整的音频字节。
func (e *ElevenLabsEngine) Synthesize(ctx context.Context, req Request, apiKey string) ([]byte, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, errs.New(errs.OriginConfiguration, "nothing to synthesize: text is empty")
	}
	if settings.IsUnset(apiKey) {
		return nil, errs.New(errs.OriginConfiguration, "ElevenLabs API key is not set")
	}
	if req.VoiceID == "" {
		return nil, errs.New(errs.OriginConfiguration, "ElevenLabs voice id is not set")
	}

	bodyBytes, err := json.Marshal(elevenLabsRequest{
		Text: req.Text,
		VoiceSettings: elevenLabsVoiceSettings{
			Stability:       req.Stability,
			SimilarityBoost: req.SimilarityBoost,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("[tts] 序列化请求体失败: %w", err)
	}

	endpoint := fmt.Sprintf("%s/text-to-speech/%s", e.baseURL, req.VoiceID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, errs.Wrap(errs.OriginConfiguration, "invalid synthesis url "+endpoint, err)
	}
	httpReq.Header.Set("xi-api-key", apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "audio/mpeg")

	logger.Infof("[tts] elevenlabs: 正在合成 %d 个字符，音色=%s", len([]rune(req.Text)), req.VoiceID)

	start := time.Now()
	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return nil, errs.Wrap(errs.OriginNetwork, "Issue calling ElevenLabs at "+endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Wrap(errs.OriginNetwork, "reading ElevenLabs response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, elevenLabsError(endpoint, resp.StatusCode, data)
	}
	if err := validateAudio(e.Name(), data); err != nil {
		return nil, err
	}

	logger.Infof("[tts] elevenlabs: 收到 %d 字节 MP3 数据，耗时 %v", len(data), time.Since(start))
	return data, nil
}

// elevenLabsError 把 {"detail":{"status","message"}} 或 {"detail":"..."} 转成 service 错误。
func elevenLabsError(endpoint string, status int, body []byte) error {
	msg := fmt.Sprintf("speech synthesis failed with status %d", status)

	var doc any
	if json.Unmarshal(body, &doc) != nil {
		return errs.Newf(errs.OriginService, "%s at %s", msg, endpoint)
	}

	detail, _ := detailExpr.Search(doc)
	if s, ok := detail.(string); ok && s != "" {
		msg = s
	} else if m, _ := detailMsgExpr.Search(doc); m != nil {
		if s, ok := m.(string); ok && s != "" {
			msg = s
		}
	}
	return errs.New(errs.OriginService, msg).WithRaw(doc)
}
