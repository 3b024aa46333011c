package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/iabetor/readaloud/internal/database"
)

// FilePersister 把设置保存为一个 JSON 文件（插件的 data.json）。
type FilePersister struct {
	path string
}

// NewFilePersister 创建基于 JSON 文件的持久化。
func NewFilePersister(path string) *FilePersister {
	return &FilePersister{path: path}
}

// LoadData 读取 JSON 文件；文件不存在时返回空数据。
func (p *FilePersister) LoadData() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]json.RawMessage{}, nil
		}
		return nil, err
	}

	var out map[string]json.RawMessage
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("解析 %s 失败: %w", p.path, err)
	}
	return out, nil
}

// SaveData 覆盖写入 JSON 文件。
func (p *FilePersister) SaveData(data map[string]json.RawMessage) error {
	if err := os.MkdirAll(filepath.Dir(p.path), 0755); err != nil {
		return fmt.Errorf("创建设置目录失败: %w", err)
	}
	encoded, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p.path, encoded, 0600)
}

// SQLitePersister 把设置保存在 plugin_data 表中，每个字段一行。
type SQLitePersister struct {
	db *database.DB
}

// NewSQLitePersister 创建基于 SQLite 的持久化。
func NewSQLitePersister(db *database.DB) *SQLitePersister {
	return &SQLitePersister{db: db}
}

// LoadData 读取所有键值。
func (p *SQLitePersister) LoadData() (map[string]json.RawMessage, error) {
	rows, err := p.db.Query("SELECT key, value FROM plugin_data")
	if err != nil {
		return nil, fmt.Errorf("查询设置失败: %w", err)
	}
	defer rows.Close()

	out := make(map[string]json.RawMessage)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("读取设置行失败: %w", err)
		}
		out[key] = json.RawMessage(value)
	}
	return out, rows.Err()
}

// SaveData 在一个事务中 upsert 所有键值。已有的未知键保留不动。
func (p *SQLitePersister) SaveData(data map[string]json.RawMessage) error {
	tx, err := p.db.Begin()
	if err != nil {
		return fmt.Errorf("开启事务失败: %w", err)
	}

	for key, value := range data {
		_, err := tx.Exec(`INSERT INTO plugin_data (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
			key, string(value))
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("保存设置 %s 失败: %w", key, err)
		}
	}

	return tx.Commit()
}
