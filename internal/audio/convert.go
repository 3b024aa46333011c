package audio

import (
	"math"
)

// pcmToSamples 把 signed 16-bit 小端 PCM 转换为 [-1.0, 1.0] 的 float32 样本。
func pcmToSamples(b []byte) []float32 {
	n := len(b) / 2
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		s := int16(b[2*i]) | int16(b[2*i+1])<<8
		out[i] = float32(s) / math.MaxInt16
	}
	return out
}

// samplesToPCM 把 float32 样本钳位后转换回 16-bit 小端 PCM。
func samplesToPCM(in []float32) []byte {
	out := make([]byte, len(in)*2)
	for i, s := range in {
		if s > 1.0 {
			s = 1.0
		} else if s < -1.0 {
			s = -1.0
		}
		v := int16(s * math.MaxInt16)
		out[2*i] = byte(v)
		out[2*i+1] = byte(v >> 8)
	}
	return out
}

// ScalePCM 按增益缩放 16-bit PCM，gain 为 1 时原样返回。
func ScalePCM(pcm []byte, gain float32) []byte {
	if gain == 1 {
		return pcm
	}
	samples := pcmToSamples(pcm)
	for i := range samples {
		samples[i] *= gain
	}
	return samplesToPCM(samples)
}

// DownmixStereo 把交错的立体声 16-bit PCM 混为单声道，左右声道取平均。
// 不完整的尾部帧被丢弃。
func DownmixStereo(pcm []byte) []byte {
	const bytesPerFrame = 4
	frames := len(pcm) / bytesPerFrame
	out := make([]byte, frames*2)
	for i := 0; i < frames; i++ {
		off := i * bytesPerFrame
		left := int32(int16(pcm[off]) | int16(pcm[off+1])<<8)
		right := int32(int16(pcm[off+2]) | int16(pcm[off+3])<<8)
		mono := int16((left + right) / 2)
		out[2*i] = byte(mono)
		out[2*i+1] = byte(mono >> 8)
	}
	return out
}
