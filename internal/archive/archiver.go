package archive

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/iabetor/readaloud/internal/errs"
	"github.com/iabetor/readaloud/internal/logger"
)

// MIMEType 所有归档音频的类型。
const MIMEType = "audio/mpeg"

// Artifact 是一次已归档的音频。
type Artifact struct {
	Data      []byte
	MIMEType  string
	CreatedAt time.Time
	// Path 形如 "<folder>/<CreatedAt 毫秒时间戳>.mp3"。
	Path    string
	Backend string
}

// Archiver 把音频写入固定目录，文件名为当前毫秒时间戳。
// 同一毫秒内的两次归档会互相覆盖。
type Archiver struct {
	store  ContentStore
	folder string
	index  *Index
	now    func() time.Time
}

// Option 配置 Archiver。
type Option func(*Archiver)

// WithIndex 在 SQLite 中记录每次归档。
func WithIndex(idx *Index) Option {
	return func(a *Archiver) { a.index = idx }
}

// WithClock 替换时间来源。
func WithClock(now func() time.Time) Option {
	return func(a *Archiver) { a.now = now }
}

// NewArchiver 创建归档器。
func NewArchiver(store ContentStore, folder string, opts ...Option) *Archiver {
	a := &Archiver{store: store, folder: folder, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Folder 返回归档目录。
func (a *Archiver) Folder() string { return a.folder }

// Archive 确保目录存在后写入音频。任何写入失败都返回 filesystem 错误，不重试。
func (a *Archiver) Archive(ctx context.Context, data []byte) (*Artifact, error) {
	if err := a.store.CreateFolder(ctx, a.folder); err != nil && !errors.Is(err, ErrFolderExists) {
		return nil, errs.Wrap(errs.OriginFilesystem, "could not create folder "+a.folder, err)
	}

	created := a.now()
	path := KeyFor(a.folder, created)
	if err := a.store.Write(ctx, path, data); err != nil {
		return nil, errs.Wrap(errs.OriginFilesystem, "could not write "+path, err)
	}

	artifact := &Artifact{
		Data:      data,
		MIMEType:  MIMEType,
		CreatedAt: created,
		Path:      path,
		Backend:   a.store.Name(),
	}
	logger.Infof("[archive] 已保存 %s（%d 字节，后端 %s）", path, len(data), artifact.Backend)

	if a.index != nil {
		if err := a.index.Record(ctx, artifact, InvocationID(ctx)); err != nil {
			logger.Warnf("[archive] 写入索引失败: %v", err)
		}
	}
	return artifact, nil
}

// KeyFor 返回 t 对应的归档路径。
func KeyFor(folder string, t time.Time) string {
	return folder + "/" + strconv.FormatInt(t.UnixMilli(), 10) + ".mp3"
}

type invocationKey struct{}

// WithInvocationID 把调用 id 放入 ctx，归档索引会记录它。
func WithInvocationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, invocationKey{}, id)
}

// InvocationID 取出 ctx 中的调用 id。
func InvocationID(ctx context.Context) string {
	id, _ := ctx.Value(invocationKey{}).(string)
	return id
}
