package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config 是 readaloud 的顶层配置结构。
// 用户可在设置表单中修改的凭据与开关不在这里，见 internal/settings。
type Config struct {
	DataDir  string         `yaml:"data_dir" env:"READALOUD_DATA_DIR"`
	LLM      LLMConfig      `yaml:"llm"`
	TTS      TTSConfig      `yaml:"tts"`
	Archive  ArchiveConfig  `yaml:"archive"`
	Settings SettingsConfig `yaml:"settings"`
	Log      LogConfig      `yaml:"log"`
	Server   ServerConfig   `yaml:"server"`
}

// LLMConfig 文本改写（chat completions）配置。
type LLMConfig struct {
	APIURL         string `yaml:"api_url" env:"READALOUD_LLM_API_URL"`
	Model          string `yaml:"model" env:"READALOUD_LLM_MODEL"`
	MaxTokens      int    `yaml:"max_tokens"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// TTSConfig 语音合成配置。
type TTSConfig struct {
	// Engine 可选 elevenlabs、edge、tencent。
	Engine     string           `yaml:"engine" env:"READALOUD_TTS_ENGINE"`
	ElevenLabs ElevenLabsConfig `yaml:"elevenlabs"`
	Edge       EdgeConfig       `yaml:"edge"`
	Tencent    TencentConfig    `yaml:"tencent"`
}

// ElevenLabsConfig ElevenLabs TTS 配置。
type ElevenLabsConfig struct {
	BaseURL        string `yaml:"base_url" env:"READALOUD_ELEVENLABS_BASE_URL"`
	VoiceID        string `yaml:"voice_id" env:"READALOUD_ELEVENLABS_VOICE_ID"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// EdgeConfig Edge TTS 配置。
type EdgeConfig struct {
	Voice string `yaml:"voice"`
}

// TencentConfig 腾讯云 TTS 配置。
type TencentConfig struct {
	SecretID  string `yaml:"secret_id" env:"READALOUD_TENCENT_SECRET_ID"`
	SecretKey string `yaml:"secret_key" env:"READALOUD_TENCENT_SECRET_KEY"`
	VoiceType int64  `yaml:"voice_type"`
	Region    string `yaml:"region"`
}

// ArchiveConfig 音频归档配置。
type ArchiveConfig struct {
	Backend  string     `yaml:"backend" env:"READALOUD_ARCHIVE_BACKEND"` // vault 或 nats
	Folder   string     `yaml:"folder"`
	VaultDir string     `yaml:"vault_dir" env:"READALOUD_VAULT_DIR"` // 为空时使用 DataDir/vault
	NATS     NATSConfig `yaml:"nats"`
	Index    bool       `yaml:"index"` // 在 SQLite 中记录每个归档文件
}

// NATSConfig NATS 对象存储连接配置。
type NATSConfig struct {
	URL string `yaml:"url" env:"READALOUD_NATS_URL"`
}

// SettingsConfig 插件设置的持久化方式。
type SettingsConfig struct {
	// Backend 可选 json、sqlite。
	Backend string `yaml:"backend" env:"READALOUD_SETTINGS_BACKEND"`
	// Path 为空时使用 DataDir/data.json。
	Path string `yaml:"path"`
}

// LogConfig 日志配置。
type LogConfig struct {
	Level      string `yaml:"level" env:"READALOUD_LOG_LEVEL"`
	File       string `yaml:"file"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
}

// ServerConfig 本地 HTTP 桥接服务配置。
type ServerConfig struct {
	Addr string `yaml:"addr" env:"READALOUD_SERVER_ADDR"`
}

// Load 读取 YAML 配置文件并返回 Config。
// 支持 ${VAR_NAME} 形式的环境变量展开；文件不存在时全部使用默认值；
// READALOUD_* 环境变量最后覆盖文件中的值。
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		expanded := os.Expand(string(data), func(key string) string {
			return os.Getenv(key)
		})
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("解析配置文件 %s 失败: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
		// 使用默认值
	default:
		return nil, fmt.Errorf("读取配置文件 %s 失败: %w", path, err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("解析环境变量失败: %w", err)
	}

	setDefaults(cfg)
	return cfg, nil
}

// setDefaults 为未设置的配置项填充默认值。
func setDefaults(cfg *Config) {
	if cfg.DataDir == "" {
		home, _ := os.UserHomeDir()
		if home != "" {
			cfg.DataDir = filepath.Join(home, ".readaloud")
		} else {
			cfg.DataDir = "./.readaloud-data"
		}
	} else if strings.HasPrefix(cfg.DataDir, "~/") {
		home, _ := os.UserHomeDir()
		if home != "" {
			cfg.DataDir = home + cfg.DataDir[1:]
		}
	}

	if cfg.LLM.APIURL == "" {
		cfg.LLM.APIURL = DefaultCompletionURL
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "gpt-3.5-turbo"
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = 250
	}
	if cfg.LLM.TimeoutSeconds == 0 {
		cfg.LLM.TimeoutSeconds = 60
	}

	if cfg.TTS.Engine == "" {
		cfg.TTS.Engine = "elevenlabs"
	}
	if cfg.TTS.ElevenLabs.BaseURL == "" {
		cfg.TTS.ElevenLabs.BaseURL = "https://api.elevenlabs.io/v1"
	}
	if cfg.TTS.ElevenLabs.VoiceID == "" {
		cfg.TTS.ElevenLabs.VoiceID = DefaultVoiceID
	}
	if cfg.TTS.ElevenLabs.TimeoutSeconds == 0 {
		cfg.TTS.ElevenLabs.TimeoutSeconds = 90
	}
	if cfg.TTS.Edge.Voice == "" {
		cfg.TTS.Edge.Voice = "en-US-GuyNeural"
	}

	if cfg.Archive.Backend == "" {
		cfg.Archive.Backend = "vault"
	}
	if cfg.Archive.Folder == "" {
		cfg.Archive.Folder = DefaultArchiveFolder
	}
	if cfg.Archive.VaultDir == "" {
		cfg.Archive.VaultDir = filepath.Join(cfg.DataDir, "vault")
	}
	if cfg.Archive.NATS.URL == "" {
		cfg.Archive.NATS.URL = "nats://127.0.0.1:4222"
	}

	if cfg.Settings.Backend == "" {
		cfg.Settings.Backend = "json"
	}
	if cfg.Settings.Path == "" {
		switch cfg.Settings.Backend {
		case "sqlite":
			cfg.Settings.Path = filepath.Join(cfg.DataDir, "readaloud.db")
		default:
			cfg.Settings.Path = filepath.Join(cfg.DataDir, "data.json")
		}
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = "127.0.0.1:7788"
	}

	cfg.TTS.Tencent.SecretID = strings.TrimSpace(cfg.TTS.Tencent.SecretID)
	cfg.TTS.Tencent.SecretKey = strings.TrimSpace(cfg.TTS.Tencent.SecretKey)
}

const (
	// DefaultCompletionURL 默认的 chat completions 接口。
	DefaultCompletionURL = "https://api.openai.com/v1/chat/completions"
	// DefaultVoiceID ElevenLabs 默认音色（Josh）。
	DefaultVoiceID = "TxGEqnHWrfWFTfGW9XjX"
	// DefaultArchiveFolder 归档目录名。
	DefaultArchiveFolder = "eleven-labs-audio"
)

// DatabasePath 返回 SQLite 数据库文件路径（归档索引与 sqlite 设置后端共用）。
func (c *Config) DatabasePath() string {
	if c.Settings.Backend == "sqlite" {
		return c.Settings.Path
	}
	return filepath.Join(c.DataDir, "readaloud.db")
}
