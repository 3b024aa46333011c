package tts

import (
	"context"
	"fmt"
	"time"

	"github.com/h2non/filetype"

	"github.com/iabetor/readaloud/internal/config"
	"github.com/iabetor/readaloud/internal/errs"
)

// 合成时使用的默认音色参数。
const (
	DefaultStability       = 0.0
	DefaultSimilarityBoost = 0.0
)

// Request 是一次合成请求，在一次调用内不可变。
type Request struct {
	Text            string
	VoiceID         string
	Stability       float64
	SimilarityBoost float64
}

// NewRequest 按默认音色参数创建合成请求。
func NewRequest(text, voiceID string) Request {
	return Request{
		Text:            text,
		VoiceID:         voiceID,
		Stability:       DefaultStability,
		SimilarityBoost: DefaultSimilarityBoost,
	}
}

// Engine 定义语音合成后端接口。
type Engine interface {
	// Name 返回引擎名称，用于日志和指标。
	Name() string
	// RequiresAPIKey 表示是否需要设置表单中的合成 API key。
	RequiresAPIKey() bool
	// Synthesize 将文本转换为完整的 MP3 音频。
	Synthesize(ctx context.Context, req Request, apiKey string) ([]byte, error)
}

// NewEngine 根据配置创建 TTS 引擎。
func NewEngine(cfg config.TTSConfig) (Engine, error) {
	switch cfg.Engine {
	case "", "elevenlabs":
		return NewElevenLabsEngine(cfg.ElevenLabs.BaseURL,
			time.Duration(cfg.ElevenLabs.TimeoutSeconds)*time.Second), nil
	case "edge":
		return NewEdgeEngine(cfg.Edge.Voice), nil
	case "tencent":
		engine, err := NewTencentEngine(TencentConfig{
			SecretID:  cfg.Tencent.SecretID,
			SecretKey: cfg.Tencent.SecretKey,
			VoiceType: cfg.Tencent.VoiceType,
			Region:    cfg.Tencent.Region,
		})
		if err != nil {
			return nil, err
		}
		return engine, nil
	default:
		return nil, errs.Newf(errs.OriginConfiguration, "unknown tts engine %q", cfg.Engine)
	}
}

// validateAudio 确认返回的字节是可识别的音频，避免把错误页当成音频归档。
func validateAudio(engine string, data []byte) error {
	if len(data) == 0 {
		return errs.Newf(errs.OriginService, "%s returned an empty audio body", engine)
	}
	if !filetype.IsAudio(data) && !isMPEGFrame(data) {
		kind, _ := filetype.Match(data)
		return errs.Newf(errs.OriginService, "%s returned non-audio content (%s)", engine, describeKind(kind.MIME.Value))
	}
	return nil
}

// isMPEGFrame 检查 MPEG 音频帧头：11 位帧同步，版本与层不为保留值。
// 覆盖 MPEG-1、MPEG-2 和 MPEG-2.5（例如 24kHz、16kHz 的 MP3 以 FF F3 开头）。
func isMPEGFrame(data []byte) bool {
	if len(data) < 2 || data[0] != 0xFF || data[1]&0xE0 != 0xE0 {
		return false
	}
	version := (data[1] >> 3) & 0x03
	layer := (data[1] >> 1) & 0x03
	return version != 0x01 && layer != 0x00
}

func describeKind(mime string) string {
	if mime == "" {
		return "unknown type"
	}
	return fmt.Sprintf("type %s", mime)
}
