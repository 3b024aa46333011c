// Package archive 把合成出来的音频保存到内容存储中，按创建时间命名。
package archive

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrFolderExists 表示目录（或 bucket）已存在。调用方视其为成功。
var ErrFolderExists = errors.New("folder already exists")

// ContentStore 是宿主提供的内容存储（笔记库目录、对象存储等）。
// path 统一使用 "/" 分隔，形如 "<folder>/<name>"。
type ContentStore interface {
	// Name 返回后端名称，写入索引。
	Name() string
	// CreateFolder 创建目录；已存在时返回 ErrFolderExists。
	CreateFolder(ctx context.Context, folder string) error
	// Write 以二进制写入（覆盖）一个文件。
	Write(ctx context.Context, path string, data []byte) error
	// Read 读取一个文件。
	Read(ctx context.Context, path string) ([]byte, error)
}

// VaultStore 把笔记库映射到本地目录。
type VaultStore struct {
	root string
}

// NewVaultStore 创建以 root 为根的本地存储。
func NewVaultStore(root string) *VaultStore {
	return &VaultStore{root: root}
}

// Name 返回后端名称。
func (v *VaultStore) Name() string { return "vault" }

// Root 返回笔记库根目录。
func (v *VaultStore) Root() string { return v.root }

// CreateFolder 在笔记库下创建一级目录。
func (v *VaultStore) CreateFolder(_ context.Context, folder string) error {
	if err := os.MkdirAll(v.root, 0755); err != nil {
		return fmt.Errorf("创建笔记库目录失败: %w", err)
	}
	dir, err := v.resolve(folder)
	if err != nil {
		return err
	}
	if err := os.Mkdir(dir, 0755); err != nil {
		if os.IsExist(err) {
			return ErrFolderExists
		}
		return err
	}
	return nil
}

// Write 写入文件（覆盖已存在的同名文件）。
func (v *VaultStore) Write(_ context.Context, path string, data []byte) error {
	full, err := v.resolve(path)
	if err != nil {
		return err
	}
	return os.WriteFile(full, data, 0644)
}

// Read 读取文件。
func (v *VaultStore) Read(_ context.Context, path string) ([]byte, error) {
	full, err := v.resolve(path)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(full)
}

// resolve 把库内路径转换为磁盘路径，拒绝逃出根目录的路径。
func (v *VaultStore) resolve(path string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(path))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("路径 %q 不在笔记库内", path)
	}
	return filepath.Join(v.root, clean), nil
}
