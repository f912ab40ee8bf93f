package server

import (
	"github.com/hongjun500/mcpd-go/internal/content"
	"github.com/hongjun500/mcpd-go/internal/protocol"
)

// ResourceProvider 资源读写的协作者接口
type ResourceProvider interface {
	Get(path string) (*content.Content, error)
	Set(path string, c *content.Content) error
}

// MemoryResources 进程内的路径→值存储，作为缺省 ResourceProvider。
// 只在 pump 协程访问。
type MemoryResources struct {
	values map[string]*content.Content
}

func NewMemoryResources() *MemoryResources {
	return &MemoryResources{values: make(map[string]*content.Content)}
}

func (r *MemoryResources) Get(path string) (*content.Content, error) {
	c, ok := r.values[path]
	if !ok {
		return nil, protocol.NewError(protocol.CodeNotFound, "no resource at %q", path)
	}
	return c, nil
}

func (r *MemoryResources) Set(path string, c *content.Content) error {
	r.values[path] = c
	return nil
}
