// Package settings 管理用户在设置表单中维护的凭据、开关和提示词。
//
// 持久化格式是扁平的 key/value 对象，键名与 Settings 的 JSON 标签完全一致；
// 缺失或损坏的字段回退到 DefaultSettings，未知键被忽略。
package settings

import (
	"strconv"
	"strings"

	"github.com/iabetor/readaloud/internal/errs"
)

// 持久化键名。
const (
	KeyElevenLabsAPIKey = "elevenLabsAPIKey"
	KeyOpenAIAPIKey     = "openaiAPIKey"
	KeyNaturalSounding  = "naturalSounding"
	KeyPrompt           = "prompt"
)

// PlaceholderKey 是未填写凭据时的默认值。
const PlaceholderKey = "default"

// DefaultPrompt 是改写文本时默认的 system 指令。
const DefaultPrompt = "Convert the following text to natural sounding spoken text, similar to a human voice."

// Settings 是插件设置。任何时候四个字段都有值。
type Settings struct {
	ElevenLabsAPIKey string `json:"elevenLabsAPIKey"`
	OpenAIAPIKey     string `json:"openaiAPIKey"`
	NaturalSounding  bool   `json:"naturalSounding"`
	Prompt           string `json:"prompt"`
}

// DefaultSettings 返回默认设置。
func DefaultSettings() Settings {
	return Settings{
		ElevenLabsAPIKey: PlaceholderKey,
		OpenAIAPIKey:     PlaceholderKey,
		NaturalSounding:  false,
		Prompt:           DefaultPrompt,
	}
}

// IsUnset 判断凭据是否缺失或仍为占位值。
func IsUnset(key string) bool {
	k := strings.TrimSpace(key)
	return k == "" || k == PlaceholderKey
}

// FieldKind 表单控件类型。
type FieldKind string

const (
	FieldText   FieldKind = "text"
	FieldToggle FieldKind = "toggle"
)

// Field 描述设置表单中的一项。
type Field struct {
	Key         string    `json:"key"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Kind        FieldKind `json:"kind"`
	Secret      bool      `json:"secret"`
	Placeholder string    `json:"placeholder,omitempty"`
}

var fields = []Field{
	{Key: KeyElevenLabsAPIKey, Name: "ElevenLabs API key", Description: "Used for speech synthesis", Kind: FieldText, Secret: true, Placeholder: "Enter your secret"},
	{Key: KeyOpenAIAPIKey, Name: "OpenAI API key", Description: "Used to rewrite text before synthesis", Kind: FieldText, Secret: true, Placeholder: "Enter your secret"},
	{Key: KeyPrompt, Name: "Prompt", Description: "System prompt for the rewrite step", Kind: FieldText, Placeholder: "Enter your prompt"},
	{Key: KeyNaturalSounding, Name: "Natural sounding", Description: "Rewrite the selection into natural spoken text first", Kind: FieldToggle},
}

// Fields 返回设置表单的字段描述（按展示顺序）。
func Fields() []Field {
	out := make([]Field, len(fields))
	copy(out, fields)
	return out
}

// LookupField 按键名查找字段。
func LookupField(key string) (Field, bool) {
	for _, f := range fields {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

// Value 以字符串形式返回字段值，secret 字段会被遮盖。
func (s Settings) Value(key string, reveal bool) string {
	var v string
	switch key {
	case KeyElevenLabsAPIKey:
		v = s.ElevenLabsAPIKey
	case KeyOpenAIAPIKey:
		v = s.OpenAIAPIKey
	case KeyPrompt:
		v = s.Prompt
	case KeyNaturalSounding:
		return strconv.FormatBool(s.NaturalSounding)
	default:
		return ""
	}
	if f, ok := LookupField(key); ok && f.Secret && !reveal {
		return Mask(v)
	}
	return v
}

// With 返回修改了单个字段的副本。
func (s Settings) With(key, value string) (Settings, error) {
	switch key {
	case KeyElevenLabsAPIKey:
		s.ElevenLabsAPIKey = value
	case KeyOpenAIAPIKey:
		s.OpenAIAPIKey = value
	case KeyPrompt:
		s.Prompt = value
	case KeyNaturalSounding:
		b, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return s, errs.Newf(errs.OriginConfiguration, "invalid value %q for %s, expected true or false", value, key)
		}
		s.NaturalSounding = b
	default:
		return s, errs.Newf(errs.OriginConfiguration, "unknown setting %q", key)
	}
	return s, nil
}

// Mask 遮盖凭据，只保留末尾 4 位。占位值原样返回。
func Mask(secret string) string {
	if IsUnset(secret) {
		return secret
	}
	if len(secret) <= 4 {
		return strings.Repeat("*", len(secret))
	}
	return strings.Repeat("*", 8) + secret[len(secret)-4:]
}
