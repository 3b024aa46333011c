package main

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/iabetor/readaloud/internal/pipeline"
)

var fakeMP3 = append([]byte("ID3\x04\x00\x00\x00\x00\x00\x00"), make([]byte, 64)...)

func writeConfig(t *testing.T, extra string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "readaloud.yaml")
	body := fmt.Sprintf("data_dir: %s\narchive:\n  index: true\n%s", filepath.Join(dir, "data"), extra)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(""))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestSettingsSetAndShow(t *testing.T) {
	cfg := writeConfig(t, "")

	out, _, err := execute(t, "--config", cfg, "settings", "set", "elevenLabsAPIKey", "xi-secret-1234")
	if err != nil {
		t.Fatalf("settings set: %v", err)
	}
	if !strings.Contains(out, "elevenLabsAPIKey = ********1234") {
		t.Errorf("set output = %q", out)
	}

	out, _, err = execute(t, "--config", cfg, "settings", "show")
	if err != nil {
		t.Fatalf("settings show: %v", err)
	}
	if strings.Contains(out, "xi-secret-1234") {
		t.Errorf("show leaked secret:\n%s", out)
	}
	if !strings.Contains(out, "naturalSounding") {
		t.Errorf("show output missing field:\n%s", out)
	}

	out, _, err = execute(t, "--config", cfg, "settings", "show", "--reveal")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "xi-secret-1234") {
		t.Errorf("--reveal output:\n%s", out)
	}
}

func TestSettingsSet_Invalid(t *testing.T) {
	cfg := writeConfig(t, "")

	if _, _, err := execute(t, "--config", cfg, "settings", "set", "colour", "red"); err == nil {
		t.Error("expected error for unknown field")
	}
	if _, _, err := execute(t, "--config", cfg, "settings", "set", "naturalSounding", "maybe"); err == nil {
		t.Error("expected error for invalid bool")
	}
}

func TestSpeak_EmptySelection(t *testing.T) {
	cfg := writeConfig(t, "")

	_, stderr, err := execute(t, "--config", cfg, "speak", "   ")
	if !errors.Is(err, errSilent) {
		t.Fatalf("err = %v, want errSilent", err)
	}
	if !strings.HasPrefix(stderr, pipeline.NoticePrefix) {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestSpeak_FileAndArgs(t *testing.T) {
	cfg := writeConfig(t, "")
	if _, _, err := execute(t, "--config", cfg, "speak", "--file", "note.md", "hello"); err == nil {
		t.Error("expected error when --file and text are both given")
	}
}

func TestSpeak_ArchivesAndIndexes(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write(fakeMP3)
	}))
	defer srv.Close()

	cfg := writeConfig(t, fmt.Sprintf("tts:\n  engine: elevenlabs\n  elevenlabs:\n    base_url: %s\n    voice_id: voice-1\n", srv.URL))
	if _, _, err := execute(t, "--config", cfg, "settings", "set", "elevenLabsAPIKey", "xi-secret-1234"); err != nil {
		t.Fatal(err)
	}

	outPath := filepath.Join(t.TempDir(), "copy.mp3")
	out, stderr, err := execute(t, "--config", cfg, "speak", "--output", outPath, "Hello", "world")
	if err != nil {
		t.Fatalf("speak: %v (stderr %q)", err, stderr)
	}
	if gotPath != "/text-to-speech/voice-1" {
		t.Errorf("request path = %q", gotPath)
	}
	if !strings.Contains(out, "已归档: eleven-labs-audio/") {
		t.Errorf("speak output = %q", out)
	}
	saved, err := os.ReadFile(outPath)
	if err != nil || !bytes.Equal(saved, fakeMP3) {
		t.Errorf("saved copy = %d bytes, err %v", len(saved), err)
	}

	out, _, err = execute(t, "--config", cfg, "archive", "list")
	if err != nil {
		t.Fatalf("archive list: %v", err)
	}
	if !strings.Contains(out, "vault") || !strings.Contains(out, ".mp3") {
		t.Errorf("archive list output:\n%s", out)
	}
}

func TestArchiveList_Empty(t *testing.T) {
	cfg := writeConfig(t, "")
	out, _, err := execute(t, "--config", cfg, "archive", "list")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "暂无归档记录") {
		t.Errorf("output = %q", out)
	}
}
