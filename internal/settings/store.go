package settings

import (
	"encoding/json"
	"sync"

	"github.com/iabetor/readaloud/internal/errs"
	"github.com/iabetor/readaloud/internal/logger"
)

// Persister 是宿主提供的 key/value 持久化。
// LoadData 在没有任何数据时返回空 map 和 nil。
type Persister interface {
	LoadData() (map[string]json.RawMessage, error)
	SaveData(data map[string]json.RawMessage) error
}

// Store 持有当前设置，负责合并默认值与保存。
type Store struct {
	mu        sync.RWMutex
	persister Persister
	current   Settings
}

// NewStore 创建设置存储并立即加载一次。
func NewStore(p Persister) *Store {
	s := &Store{persister: p}
	s.current = s.Load()
	return s
}

// Load 将持久化数据合并到默认值之上，永不失败。
// 读取失败或整体损坏视为无数据；单个字段类型不对时该字段回退默认值。
func (s *Store) Load() Settings {
	merged := DefaultSettings()

	data, err := s.persister.LoadData()
	if err != nil {
		logger.Warnf("[settings] 读取设置失败（使用默认值）: %v", err)
		data = nil
	}

	mergeField(data, KeyElevenLabsAPIKey, &merged.ElevenLabsAPIKey)
	mergeField(data, KeyOpenAIAPIKey, &merged.OpenAIAPIKey)
	mergeField(data, KeyNaturalSounding, &merged.NaturalSounding)
	mergeField(data, KeyPrompt, &merged.Prompt)

	s.mu.Lock()
	s.current = merged
	s.mu.Unlock()
	return merged
}

func mergeField[T any](data map[string]json.RawMessage, key string, dst *T) {
	raw, ok := data[key]
	if !ok {
		return
	}
	// null 不覆盖默认值
	var v *T
	if err := json.Unmarshal(raw, &v); err != nil {
		logger.Warnf("[settings] 字段 %s 格式错误（使用默认值）: %v", key, err)
		return
	}
	if v != nil {
		*dst = *v
	}
}

// Current 返回当前设置的快照。
func (s *Store) Current() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Save 持久化全部字段。写入失败返回 filesystem 错误，内存中的设置不变。
func (s *Store) Save(settings Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(settings)
}

func (s *Store) saveLocked(settings Settings) error {
	data, err := encode(settings)
	if err != nil {
		return errs.Wrap(errs.OriginFilesystem, "encode settings", err)
	}
	if err := s.persister.SaveData(data); err != nil {
		return errs.Wrap(errs.OriginFilesystem, "save settings", err)
	}
	s.current = settings
	return nil
}

// Set 修改单个字段并立即保存（对应设置表单的 onChange）。
func (s *Store) Set(key, value string) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.current.With(key, value)
	if err != nil {
		return s.current, err
	}
	if err := s.saveLocked(next); err != nil {
		return s.current, err
	}
	logger.Infof("[settings] 已更新 %s", key)
	return next, nil
}

func encode(settings Settings) (map[string]json.RawMessage, error) {
	values := map[string]any{
		KeyElevenLabsAPIKey: settings.ElevenLabsAPIKey,
		KeyOpenAIAPIKey:     settings.OpenAIAPIKey,
		KeyNaturalSounding:  settings.NaturalSounding,
		KeyPrompt:           settings.Prompt,
	}
	out := make(map[string]json.RawMessage, len(values))
	for k, v := range values {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		out[k] = raw
	}
	return out, nil
}
