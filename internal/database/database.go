package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/iabetor/readaloud/internal/logger"
	_ "modernc.org/sqlite"
)

// DB 是统一的 SQLite 数据库连接。
// 插件设置（sqlite 后端）与归档索引共用同一个数据库文件。
type DB struct {
	*sql.DB
	path string
}

// Open 打开或创建数据库并执行迁移。
func Open(dbPath string) (*DB, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("数据库路径不能为空")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("创建数据库目录失败: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}

	// WAL 模式允许 serve 模式下并发读
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("设置 WAL 模式失败: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("设置 busy_timeout 失败: %w", err)
	}

	d := &DB{DB: db, path: dbPath}
	if err := d.Migrate(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debugf("[database] 数据库已打开: %s", dbPath)
	return d, nil
}

// Path 返回数据库文件路径。
func (db *DB) Path() string {
	return db.path
}

// Migrate 创建所有表和索引，可重复执行。
func (db *DB) Migrate() error {
	migrations := []string{
		// 插件设置：扁平 key/value，value 为 JSON 编码
		`CREATE TABLE IF NOT EXISTS plugin_data (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		// 归档索引
		`CREATE TABLE IF NOT EXISTS audio_archive (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			path TEXT NOT NULL UNIQUE,
			backend TEXT NOT NULL,
			size INTEGER NOT NULL DEFAULT 0,
			mime_type TEXT NOT NULL DEFAULT 'audio/mpeg',
			invocation_id TEXT DEFAULT '',
			created_at_ms INTEGER NOT NULL
		)`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("数据库迁移失败: %w", err)
		}
	}

	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_audio_archive_created ON audio_archive(created_at_ms)`); err != nil {
		logger.Warnf("[database] 创建索引失败: %v", err)
	}

	return nil
}

// Close 关闭数据库连接。
func (db *DB) Close() error {
	if db.DB != nil {
		return db.DB.Close()
	}
	return nil
}
