// Package driver 定义设备驱动协作者的注册与调用面。驱动内部
// （传感器、执行器、继电器……）不属于核心，核心只固定接口。
package driver

import (
	"github.com/hongjun500/mcpd-go/internal/protocol"
	"github.com/hongjun500/mcpd-go/internal/tool"
	"github.com/hongjun500/mcpd-go/pkg/logger"
)

var log = logger.M("DRIVER")

// Driver 具体驱动需要实现的能力集
type Driver interface {
	ID() string
	TypeID() string
	ConfigSchema() string // 初始化配置的 JSON-schema

	Initialize(configJSON []byte) error
	Deinitialize() error
	Read() ([]byte, error)
	Write(data []byte) error
	Control(cmd string, argsJSON []byte) ([]byte, error)
	GetStatus() ([]byte, error)
}

// Manager 驱动注册表，上限 maxDrivers
type Manager struct {
	maxDrivers  int
	byID        map[string]Driver
	initialized map[string]bool
}

func NewManager(maxDrivers int) *Manager {
	return &Manager{
		maxDrivers:  maxDrivers,
		byID:        make(map[string]Driver),
		initialized: make(map[string]bool),
	}
}

// Register 注册驱动；同 ID 重复注册拒绝
func (m *Manager) Register(d Driver) error {
	if _, ok := m.byID[d.ID()]; ok {
		return protocol.NewError(protocol.CodeAlreadyRegistered, "driver %q already registered", d.ID())
	}
	if m.maxDrivers > 0 && len(m.byID) >= m.maxDrivers {
		return protocol.NewError(protocol.CodeOOM, "driver limit %d reached", m.maxDrivers)
	}
	m.byID[d.ID()] = d
	log.Debugf("driver %s registered type=%s", d.ID(), d.TypeID())
	return nil
}

// Unregister 注销；已初始化的先去初始化
func (m *Manager) Unregister(id string) error {
	d, ok := m.byID[id]
	if !ok {
		return protocol.NewError(protocol.CodeNotFound, "driver %q not registered", id)
	}
	if m.initialized[id] {
		if err := d.Deinitialize(); err != nil {
			log.Warnf("deinitialize driver %s: %v", id, err)
		}
	}
	delete(m.byID, id)
	delete(m.initialized, id)
	return nil
}

func (m *Manager) Find(id string) (Driver, bool) {
	d, ok := m.byID[id]
	return d, ok
}

// GetByType 同类型驱动集合
func (m *Manager) GetByType(typeID string) []Driver {
	var out []Driver
	for _, d := range m.byID {
		if d.TypeID() == typeID {
			out = append(out, d)
		}
	}
	return out
}

// Initialize 校验配置并初始化驱动；配置不符合其声明 schema → bad_config
func (m *Manager) Initialize(id string, configJSON []byte) error {
	d, ok := m.byID[id]
	if !ok {
		return protocol.NewError(protocol.CodeNotFound, "driver %q not registered", id)
	}
	defs, err := tool.ParamsFromSchema(d.ConfigSchema())
	if err != nil {
		return protocol.NewError(protocol.CodeBadConfig, "driver %q declares a bad schema: %v", id, err)
	}
	if _, err := tool.ParseParams(defs, configJSON); err != nil {
		return protocol.NewError(protocol.CodeBadConfig, "config for driver %q: %v", id, err)
	}
	if err := d.Initialize(configJSON); err != nil {
		return protocol.NewError(protocol.CodeExecutionError, "initialize driver %q: %v", id, err)
	}
	m.initialized[id] = true
	return nil
}

// Deinitialize 去初始化
func (m *Manager) Deinitialize(id string) error {
	d, ok := m.byID[id]
	if !ok {
		return protocol.NewError(protocol.CodeNotFound, "driver %q not registered", id)
	}
	if err := d.Deinitialize(); err != nil {
		return err
	}
	m.initialized[id] = false
	return nil
}

func (m *Manager) Count() int { return len(m.byID) }
