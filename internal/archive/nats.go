package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/iabetor/readaloud/internal/logger"
)

// NATSStore 使用 JetStream 对象存储，每个目录对应一个 bucket。
type NATSStore struct {
	conn    *nats.Conn // 由 DialNATS 创建时负责关闭
	js      nats.JetStreamContext
	mu      sync.Mutex
	buckets map[string]nats.ObjectStore
}

// NewNATSStore 基于已有的 JetStream 上下文创建存储。
func NewNATSStore(js nats.JetStreamContext) *NATSStore {
	return &NATSStore{js: js, buckets: make(map[string]nats.ObjectStore)}
}

// DialNATS 连接 NATS 服务器并创建存储，Close 时断开连接。
func DialNATS(url string) (*NATSStore, error) {
	nc, err := nats.Connect(url, nats.Name("readaloud"))
	if err != nil {
		return nil, fmt.Errorf("连接 NATS %s 失败: %w", url, err)
	}
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("获取 JetStream 上下文失败: %w", err)
	}
	s := NewNATSStore(js)
	s.conn = nc
	logger.Infof("[archive] 已连接 NATS: %s", url)
	return s, nil
}

// Name 返回后端名称。
func (n *NATSStore) Name() string { return "nats" }

// CreateFolder 创建 bucket；已存在时绑定并返回 ErrFolderExists。
func (n *NATSStore) CreateFolder(_ context.Context, folder string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, ok := n.buckets[folder]; ok {
		return ErrFolderExists
	}

	store, err := n.js.CreateObjectStore(&nats.ObjectStoreConfig{
		Bucket:      folder,
		Description: fmt.Sprintf("Archived audio for %s.", folder),
		Storage:     nats.FileStorage,
		Replicas:    1,
	})
	if err == nil {
		n.buckets[folder] = store
		return nil
	}
	if !errors.Is(err, jetstream.ErrBucketExists) && !errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
		return fmt.Errorf("创建 bucket %s 失败: %w", folder, err)
	}

	store, err = n.js.ObjectStore(folder)
	if err != nil {
		return fmt.Errorf("绑定 bucket %s 失败: %w", folder, err)
	}
	n.buckets[folder] = store
	return ErrFolderExists
}

// Write 把对象写入 path 所在目录对应的 bucket。
func (n *NATSStore) Write(_ context.Context, path string, data []byte) error {
	store, name, err := n.locate(path)
	if err != nil {
		return err
	}
	_, err = store.Put(&nats.ObjectMeta{Name: name}, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("写入对象 %s 失败: %w", path, err)
	}
	return nil
}

// Read 读取对象。
func (n *NATSStore) Read(_ context.Context, path string) ([]byte, error) {
	store, name, err := n.locate(path)
	if err != nil {
		return nil, err
	}
	obj, err := store.Get(name)
	if err != nil {
		return nil, fmt.Errorf("读取对象 %s 失败: %w", path, err)
	}

	data, readErr := io.ReadAll(obj)
	closeErr := obj.Close()
	if readErr != nil {
		return nil, fmt.Errorf("读取对象 %s 失败: %w", path, readErr)
	}
	if closeErr != nil {
		return data, fmt.Errorf("关闭对象 %s 失败: %w", path, closeErr)
	}
	return data, nil
}

// Close 断开由 DialNATS 建立的连接。
func (n *NATSStore) Close() {
	if n.conn != nil {
		n.conn.Close()
	}
}

func (n *NATSStore) locate(path string) (nats.ObjectStore, string, error) {
	folder, name, ok := strings.Cut(path, "/")
	if !ok || folder == "" || name == "" {
		return nil, "", fmt.Errorf("对象路径 %q 缺少目录", path)
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	store, ok := n.buckets[folder]
	if !ok {
		var err error
		store, err = n.js.ObjectStore(folder)
		if err != nil {
			return nil, "", fmt.Errorf("bucket %s 不可用: %w", folder, err)
		}
		n.buckets[folder] = store
	}
	return store, name, nil
}
