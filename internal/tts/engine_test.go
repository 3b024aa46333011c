package tts

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/iabetor/readaloud/internal/errs"
)

// frameBody 返回以给定两字节帧头开头的伪 MP3 数据。
func frameBody(b0, b1 byte) []byte {
	body := make([]byte, 404)
	body[0], body[1], body[2] = b0, b1, 0x90
	return body
}

func TestValidateAudio(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		wantErr bool
	}{
		{"id3 tag", fakeMP3, false},
		{"mpeg1 layer3", frameBody(0xFF, 0xFB), false},
		{"mpeg1 layer3 crc", frameBody(0xFF, 0xFA), false},
		{"mpeg2 layer3 (24kHz edge)", frameBody(0xFF, 0xF3), false},
		{"mpeg2 layer3 crc", frameBody(0xFF, 0xF2), false},
		{"mpeg2.5 layer3", frameBody(0xFF, 0xE3), false},
		{"reserved version", frameBody(0xFF, 0xEB), true},
		{"reserved layer", frameBody(0xFF, 0xE1), true},
		{"empty", nil, true},
		{"single byte", []byte{0xFF}, true},
		{"html", []byte("<html><body>maintenance</body></html>"), true},
		{"json", []byte(`{"detail":"quota exceeded"}`), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateAudio("test", tt.data)
			if tt.wantErr {
				if !errs.Is(err, errs.OriginService) {
					t.Errorf("expected service error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("validateAudio() = %v", err)
			}
		})
	}
}

func TestElevenLabs_AcceptsMPEG2Frames(t *testing.T) {
	body := frameBody(0xFF, 0xF3)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write(body)
	}))
	defer server.Close()

	data, err := NewElevenLabsEngine(server.URL, time.Second).
		Synthesize(context.Background(), NewRequest("hi", "v"), "xi-key")
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if len(data) != len(body) {
		t.Errorf("got %d bytes, want %d", len(data), len(body))
	}
}
