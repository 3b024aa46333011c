package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSetDefaults_EmptyConfig(t *testing.T) {
	cfg := &Config{DataDir: "/data"}
	setDefaults(cfg)

	checks := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"LLM.APIURL", cfg.LLM.APIURL, DefaultCompletionURL},
		{"LLM.Model", cfg.LLM.Model, "gpt-3.5-turbo"},
		{"LLM.MaxTokens", cfg.LLM.MaxTokens, 250},
		{"LLM.TimeoutSeconds", cfg.LLM.TimeoutSeconds, 60},
		{"TTS.Engine", cfg.TTS.Engine, "elevenlabs"},
		{"TTS.ElevenLabs.BaseURL", cfg.TTS.ElevenLabs.BaseURL, "https://api.elevenlabs.io/v1"},
		{"TTS.ElevenLabs.VoiceID", cfg.TTS.ElevenLabs.VoiceID, DefaultVoiceID},
		{"Archive.Backend", cfg.Archive.Backend, "vault"},
		{"Archive.Folder", cfg.Archive.Folder, "eleven-labs-audio"},
		{"Archive.VaultDir", cfg.Archive.VaultDir, filepath.Join("/data", "vault")},
		{"Settings.Backend", cfg.Settings.Backend, "json"},
		{"Settings.Path", cfg.Settings.Path, filepath.Join("/data", "data.json")},
		{"Log.Level", cfg.Log.Level, "info"},
		{"Server.Addr", cfg.Server.Addr, "127.0.0.1:7788"},
	}

	for _, c := range checks {
		switch want := c.want.(type) {
		case int:
			if c.got.(int) != want {
				t.Errorf("%s: got %v, want %v", c.name, c.got, want)
			}
		case string:
			if c.got.(string) != want {
				t.Errorf("%s: got %v, want %v", c.name, c.got, want)
			}
		}
	}
}

func TestSetDefaults_DoesNotOverride(t *testing.T) {
	cfg := &Config{
		DataDir: "/data",
		LLM:     LLMConfig{APIURL: "http://localhost:8080/v1/chat/completions", Model: "gpt-4o-mini", MaxTokens: 400},
		TTS:     TTSConfig{Engine: "edge", ElevenLabs: ElevenLabsConfig{VoiceID: "custom-voice"}},
		Archive: ArchiveConfig{Backend: "nats", Folder: "spoken"},
		Log:     LogConfig{Level: "debug"},
	}
	setDefaults(cfg)

	if cfg.LLM.APIURL != "http://localhost:8080/v1/chat/completions" {
		t.Errorf("LLM.APIURL should not be overridden: got %s", cfg.LLM.APIURL)
	}
	if cfg.LLM.Model != "gpt-4o-mini" {
		t.Errorf("LLM.Model should not be overridden: got %s", cfg.LLM.Model)
	}
	if cfg.LLM.MaxTokens != 400 {
		t.Errorf("LLM.MaxTokens should not be overridden: got %d", cfg.LLM.MaxTokens)
	}
	if cfg.TTS.Engine != "edge" {
		t.Errorf("TTS.Engine should not be overridden: got %s", cfg.TTS.Engine)
	}
	if cfg.TTS.ElevenLabs.VoiceID != "custom-voice" {
		t.Errorf("VoiceID should not be overridden: got %s", cfg.TTS.ElevenLabs.VoiceID)
	}
	if cfg.Archive.Backend != "nats" || cfg.Archive.Folder != "spoken" {
		t.Errorf("Archive should not be overridden: got %+v", cfg.Archive)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level should not be overridden: got %s", cfg.Log.Level)
	}
}

func TestSetDefaults_SQLiteSettingsPath(t *testing.T) {
	cfg := &Config{DataDir: "/data", Settings: SettingsConfig{Backend: "sqlite"}}
	setDefaults(cfg)

	want := filepath.Join("/data", "readaloud.db")
	if cfg.Settings.Path != want {
		t.Errorf("Settings.Path: got %q, want %q", cfg.Settings.Path, want)
	}
	if cfg.DatabasePath() != want {
		t.Errorf("DatabasePath should share the settings db: got %q", cfg.DatabasePath())
	}
}

func TestLoad_ValidYAML(t *testing.T) {
	yamlContent := `
data_dir: /tmp/readaloud-test
llm:
  api_url: https://api.example.com/v1/chat/completions
  model: gpt-4
  max_tokens: 200
tts:
  engine: tencent
  tencent:
    secret_id: "  sid  "
    secret_key: skey
    voice_type: 1001
archive:
  backend: nats
  folder: audio-out
  index: true
log:
  level: debug
`
	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "readaloud.yaml")
	if err := os.WriteFile(tmpFile, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}

	cfg, err := Load(tmpFile)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.LLM.APIURL != "https://api.example.com/v1/chat/completions" {
		t.Errorf("LLM.APIURL: got %q", cfg.LLM.APIURL)
	}
	if cfg.LLM.MaxTokens != 200 {
		t.Errorf("LLM.MaxTokens: got %d, want 200", cfg.LLM.MaxTokens)
	}
	if cfg.TTS.Engine != "tencent" {
		t.Errorf("TTS.Engine: got %q, want tencent", cfg.TTS.Engine)
	}
	if cfg.TTS.Tencent.SecretID != "sid" {
		t.Errorf("Tencent.SecretID should be trimmed, got %q", cfg.TTS.Tencent.SecretID)
	}
	if cfg.TTS.Tencent.VoiceType != 1001 {
		t.Errorf("Tencent.VoiceType: got %d", cfg.TTS.Tencent.VoiceType)
	}
	if !cfg.Archive.Index || cfg.Archive.Backend != "nats" || cfg.Archive.Folder != "audio-out" {
		t.Errorf("Archive: got %+v", cfg.Archive)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level: got %q, want debug", cfg.Log.Level)
	}
	// 未设置的字段应使用默认值
	if cfg.TTS.ElevenLabs.VoiceID != DefaultVoiceID {
		t.Errorf("VoiceID should default, got %q", cfg.TTS.ElevenLabs.VoiceID)
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_NATS_HOST", "nats.internal")

	yamlContent := `
archive:
  nats:
    url: "nats://${TEST_NATS_HOST}:4222"
`
	tmpFile := filepath.Join(t.TempDir(), "readaloud.yaml")
	if err := os.WriteFile(tmpFile, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}

	cfg, err := Load(tmpFile)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Archive.NATS.URL != "nats://nats.internal:4222" {
		t.Errorf("expected env var expansion, got %q", cfg.Archive.NATS.URL)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("READALOUD_TTS_ENGINE", "edge")
	t.Setenv("READALOUD_ELEVENLABS_VOICE_ID", "voice-from-env")

	yamlContent := `
tts:
  engine: elevenlabs
`
	tmpFile := filepath.Join(t.TempDir(), "readaloud.yaml")
	if err := os.WriteFile(tmpFile, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}

	cfg, err := Load(tmpFile)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.TTS.Engine != "edge" {
		t.Errorf("env should override file: got %q", cfg.TTS.Engine)
	}
	if cfg.TTS.ElevenLabs.VoiceID != "voice-from-env" {
		t.Errorf("env should set VoiceID: got %q", cfg.TTS.ElevenLabs.VoiceID)
	}
}

func TestLoad_FileNotFoundUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("missing file should not be an error: %v", err)
	}
	if cfg.TTS.Engine != "elevenlabs" {
		t.Errorf("expected defaults, got engine %q", cfg.TTS.Engine)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "readaloud.yaml")
	if err := os.WriteFile(tmpFile, []byte("llm: [unclosed"), 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}

	if _, err := Load(tmpFile); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}
