// Package host 提供命令行环境下的宿主实现：文本来源和提示输出。
package host

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/iabetor/readaloud/internal/errs"
	"github.com/iabetor/readaloud/internal/logger"
)

// maxInputBytes 限制从文件或标准输入读取的文本大小。
const maxInputBytes = 1 << 20

// ArgsSource 把命令行参数拼接为选中文本。
type ArgsSource struct {
	Args []string
}

// Selection 返回以空格连接的参数。
func (s ArgsSource) Selection(context.Context) (string, error) {
	return strings.Join(s.Args, " "), nil
}

// FileSource 读取一个文件作为选中文本。
type FileSource struct {
	Path string
}

// Selection 读取文件内容。
func (s FileSource) Selection(context.Context) (string, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return "", errs.Wrap(errs.OriginFilesystem, "could not read "+s.Path, err)
	}
	defer f.Close()
	return readLimited(f, s.Path)
}

// ReaderSource 从任意 Reader（通常是标准输入）读取选中文本。
type ReaderSource struct {
	R io.Reader
}

// Selection 读取全部输入。
func (s ReaderSource) Selection(context.Context) (string, error) {
	return readLimited(s.R, "stdin")
}

func readLimited(r io.Reader, name string) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxInputBytes+1))
	if err != nil {
		return "", errs.Wrap(errs.OriginFilesystem, "could not read "+name, err)
	}
	if len(data) > maxInputBytes {
		return "", errs.Newf(errs.OriginConfiguration, "%s is larger than %d bytes", name, maxInputBytes)
	}
	return string(data), nil
}

// WriterNotifier 把提示写到终端（通常是 stderr），同时记日志。
type WriterNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterNotifier 创建提示输出。
func NewWriterNotifier(w io.Writer) *WriterNotifier {
	return &WriterNotifier{w: w}
}

// Notify 输出一行提示。
func (n *WriterNotifier) Notify(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintln(n.w, msg)
	logger.Debugf("[host] notice: %s", msg)
}

// CollectingNotifier 收集提示，供 HTTP 桥接把它们放进响应。
type CollectingNotifier struct {
	mu   sync.Mutex
	msgs []string
}

// Notify 记录一条提示。
func (n *CollectingNotifier) Notify(msg string) {
	n.mu.Lock()
	n.msgs = append(n.msgs, msg)
	n.mu.Unlock()
	logger.Infof("[host] notice: %s", msg)
}

// Messages 返回已收集提示的副本。
func (n *CollectingNotifier) Messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.msgs))
	copy(out, n.msgs)
	return out
}
