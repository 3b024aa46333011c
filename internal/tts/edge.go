package tts

import (
	"bytes"
	"context"
	"strings"

	"github.com/pp-group/edge-tts-go/biz/service/tts/edge"

	"github.com/iabetor/readaloud/internal/errs"
	"github.com/iabetor/readaloud/internal/logger"
)

// EdgeEngine 使用微软 Edge TTS 合成语音，不需要 API key。
type EdgeEngine struct {
	voice string
}

// NewEdgeEngine 创建指定语音的 Edge TTS 引擎。
func NewEdgeEngine(voice string) *EdgeEngine {
	return &EdgeEngine{voice: voice}
}

// Name 返回引擎名称。
func (e *EdgeEngine) Name() string { return "edge" }

// RequiresAPIKey Edge TTS 免密钥。
func (e *EdgeEngine) RequiresAPIKey() bool { return false }

// Synthesize 收集 edge-tts 流中的全部 MP3 块。
// req.VoiceID 非空时覆盖配置中的语音。
func (e *EdgeEngine) Synthesize(ctx context.Context, req Request, _ string) ([]byte, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, errs.New(errs.OriginConfiguration, "nothing to synthesize: text is empty")
	}
	voice := e.voice
	if req.VoiceID != "" {
		voice = req.VoiceID
	}

	logger.Infof("[tts] edge-tts: 正在合成 %d 个字符，语音=%s", len([]rune(req.Text)), voice)

	comm, err := edge.NewCommunicate(req.Text, edge.WithVoice(voice))
	if err != nil {
		return nil, errs.Wrap(errs.OriginConfiguration, "edge-tts setup failed", err)
	}

	ch, err := comm.Stream()
	if err != nil {
		return nil, errs.Wrap(errs.OriginNetwork, "edge-tts stream failed", err)
	}

	var mp3Buf bytes.Buffer
	for msg := range ch {
		select {
		case <-ctx.Done():
			return nil, errs.Wrap(errs.OriginNetwork, "edge-tts cancelled", ctx.Err())
		default:
		}
		// type=="audio" 的条目包含音频数据
		if msgType, ok := msg["type"].(string); ok && msgType == "audio" {
			if data, ok := msg["data"].([]byte); ok {
				mp3Buf.Write(data)
			}
		}
	}

	data := mp3Buf.Bytes()
	if err := validateAudio(e.Name(), data); err != nil {
		return nil, err
	}

	logger.Infof("[tts] edge-tts: 收到 %d 字节 MP3 数据", len(data))
	return data, nil
}
