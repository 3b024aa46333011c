package tts

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/iabetor/readaloud/internal/config"
	"github.com/iabetor/readaloud/internal/errs"
)

// fakeMP3 以 ID3 头开头，足以被识别为 MP3。
var fakeMP3 = append([]byte("ID3\x04\x00\x00\x00\x00\x00\x00"), make([]byte, 64)...)

func TestElevenLabs_Synthesize(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/v1/text-to-speech/TxGEqnHWrfWFTfGW9XjX" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("xi-api-key") != "xi-key" {
			t.Errorf("unexpected xi-api-key: %q", r.Header.Get("xi-api-key"))
		}
		data, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(data, &gotBody); err != nil {
			t.Errorf("invalid body: %v", err)
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write(fakeMP3)
	}))
	defer server.Close()

	engine := NewElevenLabsEngine(server.URL+"/v1/", 5*time.Second)
	data, err := engine.Synthesize(context.Background(), NewRequest("Hello world", config.DefaultVoiceID), "xi-key")
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if len(data) != len(fakeMP3) {
		t.Errorf("got %d bytes, want %d", len(data), len(fakeMP3))
	}

	if gotBody["text"] != "Hello world" {
		t.Errorf("text = %v", gotBody["text"])
	}
	vs, _ := gotBody["voice_settings"].(map[string]any)
	if vs["stability"] != float64(0) || vs["similarity_boost"] != float64(0) {
		t.Errorf("voice_settings = %v", gotBody["voice_settings"])
	}
}

func TestElevenLabs_Validation(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer server.Close()

	engine := NewElevenLabsEngine(server.URL, time.Second)
	tests := []struct {
		name   string
		req    Request
		apiKey string
	}{
		{"empty text", NewRequest("", "v"), "xi-key"},
		{"whitespace text", NewRequest("  \n", "v"), "xi-key"},
		{"placeholder key", NewRequest("hi", "v"), "default"},
		{"empty key", NewRequest("hi", "v"), ""},
		{"no voice", NewRequest("hi", ""), "xi-key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.Synthesize(context.Background(), tt.req, tt.apiKey)
			if !errs.Is(err, errs.OriginConfiguration) {
				t.Errorf("expected configuration error, got %v", err)
			}
		})
	}
	if calls != 0 {
		t.Errorf("server called %d times, want 0", calls)
	}
}

func TestElevenLabs_ErrorResponses(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"detail object", http.StatusUnauthorized, `{"detail":{"status":"invalid_api_key","message":"Invalid API key"}}`, "Invalid API key"},
		{"detail string", http.StatusNotFound, `{"detail":"voice not found"}`, "voice not found"},
		{"non json", http.StatusInternalServerError, `oops`, "status 500"},
		{"validation list", http.StatusUnprocessableEntity, `{"detail":[{"msg":"field required"}]}`, "status 422"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer server.Close()

			_, err := NewElevenLabsEngine(server.URL, time.Second).
				Synthesize(context.Background(), NewRequest("hi", "v"), "xi-key")
			if !errs.Is(err, errs.OriginService) {
				t.Fatalf("expected service error, got %v", err)
			}
			if !strings.Contains(errs.MessageOf(err), tt.wantMsg) {
				t.Errorf("message = %q, want to contain %q", errs.MessageOf(err), tt.wantMsg)
			}
		})
	}
}

func TestElevenLabs_NonAudioBody(t *testing.T) {
	tests := []struct {
		name string
		body []byte
	}{
		{"empty", nil},
		{"html", []byte("<html><body>maintenance</body></html>")},
		{"png", []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write(tt.body)
			}))
			defer server.Close()

			_, err := NewElevenLabsEngine(server.URL, time.Second).
				Synthesize(context.Background(), NewRequest("hi", "v"), "xi-key")
			if !errs.Is(err, errs.OriginService) {
				t.Errorf("expected service error, got %v", err)
			}
		})
	}
}

func TestElevenLabs_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewElevenLabsEngine(url, time.Second).
		Synthesize(context.Background(), NewRequest("hi", "v"), "xi-key")
	if !errs.Is(err, errs.OriginNetwork) {
		t.Errorf("expected network error, got %v", err)
	}
}

func TestNewEngine(t *testing.T) {
	tests := []struct {
		engine   string
		wantName string
		wantKey  bool
		wantErr  bool
	}{
		{"", "elevenlabs", true, false},
		{"elevenlabs", "elevenlabs", true, false},
		{"edge", "edge", false, false},
		{"tencent", "", false, true}, // 缺少凭据
		{"festival", "", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.engine, func(t *testing.T) {
			e, err := NewEngine(config.TTSConfig{Engine: tt.engine})
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if !errs.Is(err, errs.OriginConfiguration) {
					t.Errorf("expected configuration error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewEngine failed: %v", err)
			}
			if e.Name() != tt.wantName || e.RequiresAPIKey() != tt.wantKey {
				t.Errorf("got %s/%v", e.Name(), e.RequiresAPIKey())
			}
		})
	}
}

func TestElevenLabs_NonJSONErrorMentionsEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, "<html>bad gateway</html>")
	}))
	defer server.Close()

	_, err := NewElevenLabsEngine(server.URL, time.Second).
		Synthesize(context.Background(), NewRequest("hi", "voice-1"), "xi-key")
	if !errs.Is(err, errs.OriginService) {
		t.Fatalf("expected service error, got %v", err)
	}
	want := server.URL + "/text-to-speech/voice-1"
	if !strings.Contains(errs.MessageOf(err), want) || !strings.Contains(errs.MessageOf(err), "status 502") {
		t.Errorf("message = %q, want endpoint %q and status", errs.MessageOf(err), want)
	}
}
