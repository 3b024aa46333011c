package audio

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"time"

	"github.com/hajimehoshi/go-mp3"

	"github.com/iabetor/readaloud/internal/logger"
)

// MIMEType 播放句柄的内容类型。
const MIMEType = "audio/mpeg"

// Handle 是可以交给调用方挂载和播放的音频。
type Handle struct {
	Data     []byte
	MIMEType string
	AutoPlay bool
	Controls bool
	// 探测结果，探测失败时为零值。
	SampleRate int
	Duration   time.Duration
}

// Present 把 MP3 字节包装成自动播放、带控制条的句柄。永不失败。
func Present(data []byte) *Handle {
	h := &Handle{
		Data:     data,
		MIMEType: MIMEType,
		AutoPlay: true,
		Controls: true,
	}
	if rate, dur, err := probe(data); err != nil {
		logger.Debugf("[audio] MP3 探测失败: %v", err)
	} else {
		h.SampleRate = rate
		h.Duration = dur
	}
	return h
}

// Reader 返回音频字节的只读流。
func (h *Handle) Reader() io.Reader {
	return bytes.NewReader(h.Data)
}

// DataURI 返回可直接放进 <audio src> 的 data: URI。
func (h *Handle) DataURI() string {
	return "data:" + h.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(h.Data)
}

// Decode 把句柄中的 MP3 解码为立体声 signed 16-bit 小端 PCM。
func (h *Handle) Decode() ([]byte, int, error) {
	decoder, err := mp3.NewDecoder(bytes.NewReader(h.Data))
	if err != nil {
		return nil, 0, fmt.Errorf("MP3 解码失败: %w", err)
	}
	pcm, err := io.ReadAll(decoder)
	if err != nil {
		return nil, 0, fmt.Errorf("读取 PCM 数据失败: %w", err)
	}
	return pcm, decoder.SampleRate(), nil
}

// probe 读取采样率和时长，不解码整段音频。
func probe(data []byte) (int, time.Duration, error) {
	if len(data) == 0 {
		return 0, 0, fmt.Errorf("空音频")
	}
	decoder, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return 0, 0, err
	}
	rate := decoder.SampleRate()
	if rate <= 0 {
		return 0, 0, fmt.Errorf("无效采样率 %d", rate)
	}
	// Length 是解码后的字节数：立体声 16-bit，每帧 4 字节
	frames := decoder.Length() / 4
	dur := time.Duration(frames) * time.Second / time.Duration(rate)
	return rate, dur, nil
}
