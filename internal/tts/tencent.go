package tts

import (
	"context"
	"encoding/base64"
	"strings"

	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/profile"
	tts "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/tts/v20190823"

	"github.com/iabetor/readaloud/internal/errs"
	"github.com/iabetor/readaloud/internal/logger"
)

// TencentEngine 使用腾讯云 TTS 合成语音，凭据来自应用配置而不是设置表单。
type TencentEngine struct {
	client    *tts.Client
	voiceType int64
}

// TencentConfig 腾讯云 TTS 配置。
type TencentConfig struct {
	SecretID  string
	SecretKey string
	VoiceType int64
	Region    string
}

// NewTencentEngine 创建腾讯云 TTS 引擎。
func NewTencentEngine(cfg TencentConfig) (*TencentEngine, error) {
	if cfg.SecretID == "" || cfg.SecretKey == "" {
		return nil, errs.New(errs.OriginConfiguration, "tencent tts requires secret_id and secret_key")
	}

	if cfg.VoiceType == 0 {
		cfg.VoiceType = 101001
	}
	if cfg.Region == "" {
		cfg.Region = "ap-guangzhou"
	}

	credential := common.NewCredential(cfg.SecretID, cfg.SecretKey)
	cpf := profile.NewClientProfile()
	cpf.HttpProfile.Endpoint = "tts.tencentcloudapi.com"

	client, err := tts.NewClient(credential, cfg.Region, cpf)
	if err != nil {
		return nil, errs.Wrap(errs.OriginConfiguration, "create tencent tts client", err)
	}

	logger.Infof("[tts] 腾讯云 TTS 引擎已初始化 (voice=%d, region=%s)", cfg.VoiceType, cfg.Region)

	return &TencentEngine{
		client:    client,
		voiceType: cfg.VoiceType,
	}, nil
}

// Name 返回引擎名称。
func (e *TencentEngine) Name() string { return "tencent" }

// RequiresAPIKey 腾讯云凭据在应用配置中。
func (e *TencentEngine) RequiresAPIKey() bool { return false }

// Synthesize 调用 TextToVoice 并解码 Base64 MP3。
func (e *TencentEngine) Synthesize(ctx context.Context, req Request, _ string) ([]byte, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, errs.New(errs.OriginConfiguration, "nothing to synthesize: text is empty")
	}

	logger.Infof("[tts] 腾讯云 TTS: 正在合成 %d 个字符，音色=%d", len([]rune(req.Text)), e.voiceType)

	request := tts.NewTextToVoiceRequest()
	request.Text = common.StringPtr(req.Text)
	request.SessionId = common.StringPtr("readaloud")
	request.VoiceType = common.Int64Ptr(e.voiceType)
	request.Codec = common.StringPtr("mp3")
	request.Speed = common.Float64Ptr(0)
	request.Volume = common.Float64Ptr(5.0)

	response, err := e.client.TextToVoiceWithContext(ctx, request)
	if err != nil {
		return nil, errs.Wrap(errs.OriginService, "tencent tts request failed", err)
	}

	if response.Response == nil || response.Response.Audio == nil {
		return nil, errs.New(errs.OriginParse, "tencent tts returned no audio")
	}

	data, err := base64.StdEncoding.DecodeString(*response.Response.Audio)
	if err != nil {
		return nil, errs.Wrap(errs.OriginParse, "decode tencent tts audio", err)
	}
	if err := validateAudio(e.Name(), data); err != nil {
		return nil, err
	}

	logger.Infof("[tts] 腾讯云 TTS: 收到 %d 字节 MP3 数据", len(data))
	return data, nil
}
