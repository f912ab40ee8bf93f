package session

import (
	"fmt"

	"github.com/hongjun500/mcpd-go/internal/protocol"
	"github.com/hongjun500/mcpd-go/internal/transport"
)

// State 会话状态，只允许单调前进 Active→Closing→Closed
type State int

const (
	StateActive State = iota
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "ACTIVE"
	case StateClosing:
		return "CLOSING"
	default:
		return "CLOSED"
	}
}

// Operation 一次请求/应答交换的记录
type Operation struct {
	ID         string
	Kind       protocol.Kind
	MessageID  string // 触发方的 messageId
	ToolName   string
	StartedMs  int64
	DeadlineMs int64 // 0 表示无截止
}

// Session 一个对端一条会话。除 Send 外的全部字段只在 pump 协程访问，
// 因此不加锁（见并发模型）。
type Session struct {
	ID   string
	Conn transport.Conn

	state          State
	ops            map[string]*Operation
	subs           map[string]struct{}
	nextOp         uint64
	maxOps         int
	LastActivityMs int64
	ClosingSinceMs int64
	ParseErrors    int // 连续解析失败计数，成功一帧即清零
}

func newSession(id string, conn transport.Conn, maxOps int, nowMs int64) *Session {
	return &Session{
		ID:             id,
		Conn:           conn,
		state:          StateActive,
		ops:            make(map[string]*Operation),
		subs:           make(map[string]struct{}),
		maxOps:         maxOps,
		LastActivityMs: nowMs,
	}
}

func (s *Session) State() State { return s.state }

// Advance 单调推进状态，回退被忽略
func (s *Session) Advance(to State, nowMs int64) {
	if to <= s.state {
		return
	}
	s.state = to
	if to == StateClosing {
		s.ClosingSinceMs = nowMs
	}
}

// Touch 记录会话活动时间
func (s *Session) Touch(nowMs int64) { s.LastActivityMs = nowMs }

// Send 编码并写出一帧；CLOSED 会话不再发出任何出站帧
func (s *Session) Send(m *protocol.Message) error {
	if s.state == StateClosed {
		return protocol.NewError(protocol.CodeSessionClosed, "session %s is closed", s.ID)
	}
	frame, err := protocol.EncodeBytes(m)
	if err != nil {
		return err
	}
	return s.Conn.WriteFrame(frame)
}

// BeginOperation 创建操作记录。客户端可以提议 ID，但服务端的 ID 才是权威：
// 提议未被占用时沿用，否则分配新 ID。
func (s *Session) BeginOperation(kind protocol.Kind, proposed, messageID, toolName string, nowMs, deadlineMs int64) (*Operation, error) {
	if len(s.ops) >= s.maxOps {
		return nil, protocol.NewError(protocol.CodeTooManyOperations,
			"session %s already has %d open operations", s.ID, len(s.ops))
	}
	id := proposed
	if id == "" {
		s.nextOp++
		id = fmt.Sprintf("op-%d", s.nextOp)
	} else if _, taken := s.ops[id]; taken {
		s.nextOp++
		id = fmt.Sprintf("op-%d", s.nextOp)
	}
	op := &Operation{
		ID:         id,
		Kind:       kind,
		MessageID:  messageID,
		ToolName:   toolName,
		StartedMs:  nowMs,
		DeadlineMs: deadlineMs,
	}
	s.ops[id] = op
	return op, nil
}

// Operation 查找在途操作
func (s *Session) Operation(id string) (*Operation, bool) {
	op, ok := s.ops[id]
	return op, ok
}

// EndOperation 终结应答入队后销毁操作记录
func (s *Session) EndOperation(id string) { delete(s.ops, id) }

// OpenOperations 当前在途操作数
func (s *Session) OpenOperations() int { return len(s.ops) }

// expiredOps 收集截止时间已过的操作
func (s *Session) expiredOps(nowMs int64) []*Operation {
	var out []*Operation
	for _, op := range s.ops {
		if op.DeadlineMs > 0 && nowMs > op.DeadlineMs {
			out = append(out, op)
		}
	}
	return out
}

// Subscribe 订阅事件类型，集合语义
func (s *Session) Subscribe(eventType string)   { s.subs[eventType] = struct{}{} }
func (s *Session) Unsubscribe(eventType string) { delete(s.subs, eventType) }

func (s *Session) Subscribed(eventType string) bool {
	_, ok := s.subs[eventType]
	return ok
}

// Subscriptions 返回订阅快照
func (s *Session) Subscriptions() []string {
	out := make([]string, 0, len(s.subs))
	for t := range s.subs {
		out = append(out, t)
	}
	return out
}
