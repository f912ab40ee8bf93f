package session

import (
	"github.com/google/uuid"

	"github.com/hongjun500/mcpd-go/internal/common"
	"github.com/hongjun500/mcpd-go/internal/observe"
	"github.com/hongjun500/mcpd-go/internal/protocol"
	"github.com/hongjun500/mcpd-go/internal/transport"
	"github.com/hongjun500/mcpd-go/pkg/logger"
)

var log = logger.M("SESSION")

// Limits 会话管理的资源上限与超时
type Limits struct {
	MaxSessions      int
	MaxOpsPerSession int
	SessionTimeoutMs int64 // 空闲超时
	CloseGraceMs     int64 // CLOSING→CLOSED 的宽限
}

// Manager 会话表。只在 pump 协程访问，无锁。
type Manager struct {
	limits Limits
	clock  common.Clock
	byID   map[string]*Session
	byConn map[string]*Session // key: conn.ID()
}

func NewManager(limits Limits, clock common.Clock) *Manager {
	if limits.CloseGraceMs <= 0 {
		limits.CloseGraceMs = 1000
	}
	return &Manager{
		limits: limits,
		clock:  clock,
		byID:   make(map[string]*Session),
		byConn: make(map[string]*Session),
	}
}

// Open 为连接分配新会话；触达 maxSessions 时拒绝
func (m *Manager) Open(conn transport.Conn) (*Session, error) {
	if m.limits.MaxSessions > 0 && len(m.byID) >= m.limits.MaxSessions {
		return nil, protocol.NewError(protocol.CodeTooManySessions,
			"session limit %d reached", m.limits.MaxSessions)
	}
	s := newSession(uuid.New().String(), conn, m.limits.MaxOpsPerSession, m.clock.NowMs())
	m.byID[s.ID] = s
	m.byConn[conn.ID()] = s
	observe.AddSessions(1)
	log.Infof("session %s opened on %s (%s)", s.ID, conn.Kind(), conn.RemoteAddr())
	return s, nil
}

func (m *Manager) Get(id string) (*Session, bool) {
	s, ok := m.byID[id]
	return s, ok
}

// ByConn 按连接找会话（一个连接至多一条会话）
func (m *Manager) ByConn(connID string) (*Session, bool) {
	s, ok := m.byConn[connID]
	return s, ok
}

// Count 当前会话数
func (m *Manager) Count() int { return len(m.byID) }

// Remove 将会话移出表并标记 CLOSED；订阅清理由事件桥完成
func (m *Manager) Remove(s *Session) {
	if _, ok := m.byID[s.ID]; !ok {
		return
	}
	s.Advance(StateClosed, m.clock.NowMs())
	delete(m.byID, s.ID)
	delete(m.byConn, s.Conn.ID())
	observe.AddSessions(-1)
	log.Infof("session %s closed", s.ID)
}

// SweepResult 一次超时扫描的产物
type SweepResult struct {
	ExpiredOps   map[*Session][]*Operation // 超过 deadline 的在途操作
	IdleSessions []*Session                // 刚超过空闲时限的 ACTIVE 会话
	DeadSessions []*Session                // 宽限期已过的 CLOSING 会话
}

// Sweep 扫描全部会话的操作截止与空闲超时
func (m *Manager) Sweep() SweepResult {
	now := m.clock.NowMs()
	res := SweepResult{ExpiredOps: make(map[*Session][]*Operation)}
	for _, s := range m.byID {
		if ops := s.expiredOps(now); len(ops) > 0 {
			res.ExpiredOps[s] = ops
		}
		switch s.State() {
		case StateActive:
			if m.limits.SessionTimeoutMs > 0 && now-s.LastActivityMs > m.limits.SessionTimeoutMs {
				res.IdleSessions = append(res.IdleSessions, s)
			}
		case StateClosing:
			if now-s.ClosingSinceMs > m.limits.CloseGraceMs {
				res.DeadSessions = append(res.DeadSessions, s)
			}
		}
	}
	return res
}

// All 会话快照，只读用途
func (m *Manager) All() []*Session {
	out := make([]*Session, 0, len(m.byID))
	for _, s := range m.byID {
		out = append(out, s)
	}
	return out
}
