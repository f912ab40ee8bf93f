package script

import (
	"errors"
	"fmt"
	"sync"
)

// MemoryEngine 纯 Go 的解释器替身：模块函数由宿主注册。
// 用于没有真实解释器的宿主以及测试。
type MemoryEngine struct {
	mu      sync.Mutex
	modules map[string]map[string]func(paramsJSON string) (string, error)
	natives map[string]func(paramsJSON string) (string, error)
	sources map[string]string
}

func NewMemoryEngine() *MemoryEngine {
	return &MemoryEngine{
		modules: make(map[string]map[string]func(string) (string, error)),
		natives: make(map[string]func(string) (string, error)),
		sources: make(map[string]string),
	}
}

func (e *MemoryEngine) Init() error    { return nil }
func (e *MemoryEngine) Cleanup() error { return nil }

// CreateModule 记录源码；重复创建同名模块幂等
func (e *MemoryEngine) CreateModule(name, source string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if old, ok := e.sources[name]; ok && old != source {
		return fmt.Errorf("module %s already exists with different source", name)
	}
	e.sources[name] = source
	if _, ok := e.modules[name]; !ok {
		e.modules[name] = make(map[string]func(string) (string, error))
	}
	return nil
}

func (e *MemoryEngine) DeleteModule(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.modules, name)
	delete(e.sources, name)
	return nil
}

// Bind 给模块挂一个函数实现（宿主侧替代脚本定义）
func (e *MemoryEngine) Bind(module, function string, fn func(paramsJSON string) (string, error)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.modules[module]; !ok {
		e.modules[module] = make(map[string]func(string) (string, error))
	}
	e.modules[module][function] = fn
}

func (e *MemoryEngine) Eval(script string) (string, error) {
	return "", errors.New("memory engine cannot eval source")
}

func (e *MemoryEngine) Call(module, function, paramsJSON string) (string, error) {
	e.mu.Lock()
	fns, ok := e.modules[module]
	var fn func(string) (string, error)
	if ok {
		fn = fns[function]
	}
	e.mu.Unlock()
	if fn == nil {
		return "", fmt.Errorf("no function %s in module %s", function, module)
	}
	return fn(paramsJSON)
}

func (e *MemoryEngine) RegisterNative(name string, fn func(paramsJSON string) (string, error)) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.natives[name] = fn
	return nil
}
