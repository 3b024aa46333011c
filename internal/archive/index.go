package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/iabetor/readaloud/internal/database"
)

// Entry 是索引中的一条归档记录。
type Entry struct {
	ID           int64
	Path         string
	Backend      string
	Size         int64
	MIMEType     string
	InvocationID string
	CreatedAt    time.Time
}

// Index 在 audio_archive 表中记录归档文件。
type Index struct {
	db *database.DB
}

// NewIndex 创建归档索引。
func NewIndex(db *database.DB) *Index {
	return &Index{db: db}
}

// Record 记录一次归档。同一路径再次写入时覆盖旧记录。
func (i *Index) Record(ctx context.Context, a *Artifact, invocationID string) error {
	_, err := i.db.ExecContext(ctx,
		`INSERT INTO audio_archive (path, backend, size, mime_type, invocation_id, created_at_ms)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET backend = excluded.backend, size = excluded.size,
			mime_type = excluded.mime_type, invocation_id = excluded.invocation_id,
			created_at_ms = excluded.created_at_ms`,
		a.Path, a.Backend, len(a.Data), a.MIMEType, invocationID, a.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("记录归档 %s 失败: %w", a.Path, err)
	}
	return nil
}

// List 按创建时间倒序返回最多 limit 条记录（limit<=0 表示全部）。
func (i *Index) List(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT id, path, backend, size, mime_type, invocation_id, created_at_ms
		FROM audio_archive ORDER BY created_at_ms DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := i.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("查询归档索引失败: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var createdMs int64
		if err := rows.Scan(&e.ID, &e.Path, &e.Backend, &e.Size, &e.MIMEType, &e.InvocationID, &createdMs); err != nil {
			return nil, fmt.Errorf("读取归档记录失败: %w", err)
		}
		e.CreatedAt = time.UnixMilli(createdMs)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
