package audio

import (
	"math"
	"testing"
)

func pcm(samples ...int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		out[2*i] = byte(s)
		out[2*i+1] = byte(s >> 8)
	}
	return out
}

func samples(b []byte) []int16 {
	out := make([]int16, len(b)/2)
	for i := range out {
		out[i] = int16(b[2*i]) | int16(b[2*i+1])<<8
	}
	return out
}

func TestPCMToSamples_LittleEndian(t *testing.T) {
	// 0x0102 小端为 {0x02, 0x01}
	out := pcmToSamples([]byte{0x02, 0x01})
	want := float32(0x0102) / math.MaxInt16
	if len(out) != 1 || out[0] != want {
		t.Fatalf("expected %f, got %v", want, out)
	}
}

func TestSamplesToPCM_Clamp(t *testing.T) {
	out := samples(samplesToPCM([]float32{1.5, -1.5, 0}))
	if out[0] != math.MaxInt16 {
		t.Errorf("expected %d (clamped to 1.0), got %d", math.MaxInt16, out[0])
	}
	if out[1] != -math.MaxInt16 {
		t.Errorf("expected %d (clamped to -1.0), got %d", -math.MaxInt16, out[1])
	}
	if out[2] != 0 {
		t.Errorf("expected 0, got %d", out[2])
	}
}

func TestScalePCM(t *testing.T) {
	in := pcm(0, 1000, -1000, math.MaxInt16)

	same := ScalePCM(in, 1)
	if &same[0] != &in[0] {
		t.Error("gain 1 should return the input unchanged")
	}

	half := samples(ScalePCM(in, 0.5))
	if half[0] != 0 {
		t.Errorf("half[0] = %d, want 0", half[0])
	}
	if half[1] < 495 || half[1] > 505 {
		t.Errorf("half[1] = %d, want ~500", half[1])
	}
	if half[2] > -495 || half[2] < -505 {
		t.Errorf("half[2] = %d, want ~-500", half[2])
	}

	silent := samples(ScalePCM(in, 0))
	for i, s := range silent {
		if s != 0 {
			t.Errorf("silent[%d] = %d, want 0", i, s)
		}
	}
}

func TestDownmixStereo(t *testing.T) {
	in := pcm(100, 300, -200, -400, math.MaxInt16, math.MaxInt16)
	// 追加一个不完整帧
	in = append(in, 0x01, 0x02)

	out := samples(DownmixStereo(in))
	want := []int16{200, -300, math.MaxInt16}
	if len(out) != len(want) {
		t.Fatalf("got %d frames, want %d", len(out), len(want))
	}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("frame %d: got %d, want %d", i, out[i], want[i])
		}
	}
}
