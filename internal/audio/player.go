package audio

import (
	"context"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/iabetor/readaloud/internal/logger"
)

// Player 使用 malgo (miniaudio) 通过默认输出设备播放句柄。
type Player struct {
	ctx      *malgo.AllocatedContext
	channels uint32
	gain     float32
	mu       sync.Mutex
	closed   bool
}

// NewPlayer 创建播放器。channels 为 1 时把立体声混为单声道；
// gain 为音量系数（1 为原始音量）。
func NewPlayer(channels int, gain float32) (*Player, error) {
	if channels != 1 {
		channels = 2
	}
	if gain < 0 {
		gain = 0
	}

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("初始化播放上下文失败: %w", err)
	}

	return &Player{
		ctx:      ctx,
		channels: uint32(channels),
		gain:     gain,
	}, nil
}

// PlayHandle 解码并播放句柄，阻塞直到播放完成或 ctx 被取消。
func (p *Player) PlayHandle(ctx context.Context, h *Handle) error {
	pcm, sampleRate, err := h.Decode()
	if err != nil {
		return err
	}
	if p.channels == 1 {
		pcm = DownmixStereo(pcm)
	}
	return p.Play(ctx, ScalePCM(pcm, p.gain), sampleRate)
}

// Play 播放 signed 16-bit 小端 PCM（声道数与播放器一致）。
func (p *Player) Play(ctx context.Context, pcmBytes []byte, sampleRate int) error {
	if len(pcmBytes) == 0 {
		return nil
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return fmt.Errorf("播放器已关闭")
	}
	p.mu.Unlock()

	pos := 0
	done := make(chan struct{})

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = p.channels
	deviceConfig.SampleRate = uint32(sampleRate)
	deviceConfig.PeriodSizeInFrames = 1024
	deviceConfig.Periods = 2

	callbacks := malgo.DeviceCallbacks{
		Data: func(outputSamples, inputSamples []byte, frameCount uint32) {
			bytesNeeded := int(frameCount) * int(p.channels) * 2
			if pos >= len(pcmBytes) {
				for i := range outputSamples[:bytesNeeded] {
					outputSamples[i] = 0
				}
				select {
				case done <- struct{}{}:
				default:
				}
				return
			}

			end := pos + bytesNeeded
			if end > len(pcmBytes) {
				end = len(pcmBytes)
			}
			copy(outputSamples, pcmBytes[pos:end])
			for i := end - pos; i < bytesNeeded; i++ {
				outputSamples[i] = 0
			}
			pos = end
		},
	}

	device, err := malgo.InitDevice(p.ctx.Context, deviceConfig, callbacks)
	if err != nil {
		return fmt.Errorf("初始化播放设备失败: %w", err)
	}
	defer device.Uninit()

	if err := device.Start(); err != nil {
		return fmt.Errorf("启动播放设备失败: %w", err)
	}
	defer device.Stop()

	select {
	case <-ctx.Done():
		logger.Info("[audio] 播放被取消")
		return ctx.Err()
	case <-done:
		logger.Info("[audio] 播放完成")
		return nil
	}
}

// Close 释放所有资源。
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true

	if p.ctx != nil {
		_ = p.ctx.Uninit()
		p.ctx.Free()
		p.ctx = nil
	}
}
