package event

import (
	"github.com/hongjun500/mcpd-go/internal/content"
	"github.com/hongjun500/mcpd-go/internal/observe"
	"github.com/hongjun500/mcpd-go/internal/protocol"
	"github.com/hongjun500/mcpd-go/pkg/logger"
)

var log = logger.M("EVENTS")

// 内置事件类型
const (
	TypeLog       = "log"
	TypeLogConfig = "log_config"
)

// Sender 把一帧投递给指定会话；由 server 注入
type Sender func(sessionID string, m *protocol.Message) error

// Relay 可选的事件外发通道（如 Redis stream），尽力而为
type Relay interface {
	Publish(eventType string, payload []byte) error
}

// Bridge 事件与日志的扇出桥。订阅索引只在 pump 协程读写。
type Bridge struct {
	factory *protocol.Factory
	sender  Sender
	relay   Relay

	byType map[string]map[string]struct{} // eventType -> sessionID 集合
	logCfg LogConfig
}

func NewBridge(factory *protocol.Factory, sender Sender) *Bridge {
	return &Bridge{
		factory: factory,
		sender:  sender,
		byType:  make(map[string]map[string]struct{}),
		logCfg:  DefaultLogConfig(),
	}
}

// SetRelay 安装外发通道
func (b *Bridge) SetRelay(r Relay) { b.relay = r }

// LogConfig 当前日志配置（pump 协程内可读写）
func (b *Bridge) LogConfig() *LogConfig { return &b.logCfg }

// Subscribe 登记 (session, eventType)，集合语义
func (b *Bridge) Subscribe(sessionID, eventType string) {
	set, ok := b.byType[eventType]
	if !ok {
		set = make(map[string]struct{})
		b.byType[eventType] = set
	}
	set[sessionID] = struct{}{}
}

// Unsubscribe 移除登记
func (b *Bridge) Unsubscribe(sessionID, eventType string) {
	if set, ok := b.byType[eventType]; ok {
		delete(set, sessionID)
		if len(set) == 0 {
			delete(b.byType, eventType)
		}
	}
}

// DropSession 会话关闭时回收其全部订阅
func (b *Bridge) DropSession(sessionID string) {
	for t, set := range b.byType {
		delete(set, sessionID)
		if len(set) == 0 {
			delete(b.byType, t)
		}
	}
}

// Subscribers 某事件类型的订阅者数
func (b *Bridge) Subscribers(eventType string) int {
	return len(b.byType[eventType])
}

// Broadcast 向事件类型的每个订阅者各写一帧 EVENT_DATA。
// 单个会话投递失败只记日志，不摘订阅（关闭会话的订阅由 DropSession 回收）。
func (b *Bridge) Broadcast(eventType string, c *content.Content, originOpID string) {
	for sessionID := range b.byType[eventType] {
		m := b.factory.EventData(sessionID, originOpID, eventType, c)
		if err := b.sender(sessionID, m); err != nil {
			log.Warnf("event %s to session %s: %v", eventType, sessionID, err)
			continue
		}
		observe.IncEventFanOut()
	}
	if b.relay != nil {
		if raw, err := c.JSON(); err == nil {
			if err := b.relay.Publish(eventType, raw); err != nil {
				log.Warnf("relay event %s: %v", eventType, err)
			}
		}
	}
}

// HandleLogRecord 内部日志记录经过过滤后以 "log" 事件扇出
func (b *Bridge) HandleLogRecord(rec logger.Record) {
	if !b.logCfg.Accepts(rec) {
		return
	}
	bld := content.NewObject().
		SetInt("level", int64(rec.Level)).
		SetString("message", rec.Message).
		SetBool("includeTimestamp", b.logCfg.IncludeTimestamp).
		SetBool("includeLevelName", b.logCfg.IncludeLevelName).
		SetBool("includeModuleName", b.logCfg.IncludeModuleName)
	if b.logCfg.IncludeLevelName {
		bld.SetString("levelName", rec.Level.Name())
	}
	if b.logCfg.IncludeModuleName {
		bld.SetString("module", rec.Module)
	}
	if b.logCfg.IncludeTimestamp {
		bld.SetInt("timestamp", rec.TimestampMs)
	}
	c, err := bld.Build()
	if err != nil {
		return
	}
	b.Broadcast(TypeLog, c, "")
}

// EmitConfig 配置变化后广播 log_config 快照，让订阅方保持同步
func (b *Bridge) EmitConfig() {
	b.Broadcast(TypeLogConfig, b.logCfg.Snapshot(), "")
}
