package server

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/hongjun500/mcpd-go/internal/common"
	"github.com/hongjun500/mcpd-go/internal/config"
	"github.com/hongjun500/mcpd-go/internal/content"
	"github.com/hongjun500/mcpd-go/internal/driver"
	"github.com/hongjun500/mcpd-go/internal/event"
	"github.com/hongjun500/mcpd-go/internal/observe"
	"github.com/hongjun500/mcpd-go/internal/protocol"
	"github.com/hongjun500/mcpd-go/internal/session"
	"github.com/hongjun500/mcpd-go/internal/tool"
	"github.com/hongjun500/mcpd-go/internal/transport"
	"github.com/hongjun500/mcpd-go/pkg/logger"
)

var log = logger.M("SERVER")

// inboundFrame 读协程投递给 pump 的一帧（或帧级错误）
type inboundFrame struct {
	conn  transport.Conn
	frame []byte
	err   error
}

type connEvent struct {
	conn transport.Conn
	open bool
	err  error
}

// completion 延迟完成的工具结果
type completion struct {
	sessionID   string
	operationID string
	success     bool
	resultJSON  string
	errMsg      string
}

// publishReq 外部生产者要求广播的事件
type publishReq struct {
	eventType  string
	c          *content.Content
	originOpID string
}

// ContentHandler CONTENT_REQUEST 的应用回调
type ContentHandler func(sessionID string, c *content.Content) (*content.Content, error)

// Server 把编解码、会话管理、工具注册表和事件桥粘合为一个控制面。
// 所有可变状态只在 Run 启动的 pump 协程上访问；
// 对外的注入点（CompleteOperation、PublishEvent、日志旁路）都经由通道。
type Server struct {
	cfg     *config.Config
	clock   common.Clock
	factory *protocol.Factory

	sessions  *session.Manager
	registry  *tool.Registry
	bridge    *event.Bridge
	drivers   *driver.Manager
	resources ResourceProvider

	contentHandler ContentHandler

	dispatch map[protocol.Kind]func(*connCtx, *protocol.Message)

	inbound     chan inboundFrame
	connEvents  chan connEvent
	completions chan completion
	publishes   chan publishReq
	logRecords  chan logger.Record

	// 没有会话的连接的瞬态状态（解析错误预算）
	connParseErrs map[string]int

	transports []transport.Transport
	tickEvery  time.Duration

	running      atomic.Bool
	startedMs    int64
	sessionCount atomic.Int64
}

// New 组装服务器。clock 传 nil 用系统时钟。
func New(cfg *config.Config, clock common.Clock) *Server {
	if clock == nil {
		clock = common.SystemClock()
	}
	s := &Server{
		cfg:           cfg,
		clock:         clock,
		factory:       protocol.NewFactory(cfg.Server.DeviceName, cfg.Server.Version, cfg.Server.DeviceID),
		resources:     NewMemoryResources(),
		drivers:       driver.NewManager(cfg.Server.MaxDrivers),
		inbound:       make(chan inboundFrame, 256),
		connEvents:    make(chan connEvent, 64),
		completions:   make(chan completion, 64),
		publishes:     make(chan publishReq, 256),
		logRecords:    make(chan logger.Record, 256),
		connParseErrs: make(map[string]int),
		tickEvery:     50 * time.Millisecond,
	}
	s.sessions = session.NewManager(session.Limits{
		MaxSessions:      cfg.Server.MaxSessions,
		MaxOpsPerSession: cfg.Server.MaxOperationsPerSession,
		SessionTimeoutMs: cfg.Server.SessionTimeoutMs,
		CloseGraceMs:     cfg.Server.CloseGraceMs,
	}, clock)
	s.registry = tool.NewRegistry(cfg.Server.MaxTools, cfg.Server.InitialOpenAccess, clock)
	s.bridge = event.NewBridge(s.factory, s.sendToSession)
	s.dispatch = s.buildDispatch()
	s.registerBuiltins()

	// 内部日志旁路进 pump；满则丢，日志路径绝不阻塞
	logger.SetSink(func(rec logger.Record) {
		select {
		case s.logRecords <- rec:
		default:
		}
	})
	return s
}

// Registry 供宿主在启动前注册原生工具
func (s *Server) Registry() *tool.Registry { return s.registry }

// Drivers 驱动协作者注册表
func (s *Server) Drivers() *driver.Manager { return s.drivers }

// Bridge 事件桥（安装 relay 等）
func (s *Server) Bridge() *event.Bridge { return s.bridge }

// SetResources 替换缺省的内存资源提供者
func (s *Server) SetResources(p ResourceProvider) { s.resources = p }

// SetContentHandler 安装 CONTENT_REQUEST 回调
func (s *Server) SetContentHandler(h ContentHandler) { s.contentHandler = h }

// AddTransport 挂载一个传输；Run 时逐个启动
func (s *Server) AddTransport(t transport.Transport) { s.transports = append(s.transports, t) }

// ---- transport.Gateway ----

func (s *Server) OnConnOpen(c transport.Conn) {
	s.connEvents <- connEvent{conn: c, open: true}
}

func (s *Server) OnFrame(c transport.Conn, frame []byte, err error) {
	s.inbound <- inboundFrame{conn: c, frame: frame, err: err}
}

func (s *Server) OnConnClose(c transport.Conn, err error) {
	s.connEvents <- connEvent{conn: c, open: false, err: err}
}

// ---- 注入点（任意协程可调） ----

// CompleteOperation 延迟完成：结果在下一个 pump 周期投递。
// 操作已超时被回收时完成被静默丢弃。
func (s *Server) CompleteOperation(sessionID, operationID string, success bool, resultJSON string, errMsg string) {
	s.completions <- completion{
		sessionID:   sessionID,
		operationID: operationID,
		success:     success,
		resultJSON:  resultJSON,
		errMsg:      errMsg,
	}
}

// PublishEvent 外部生产者广播一个带类型的事件
func (s *Server) PublishEvent(eventType string, c *content.Content) {
	s.publishes <- publishReq{eventType: eventType, c: c}
}

// ---- pump ----

// Run 启动全部传输并运行中央 pump，阻塞到 ctx 结束
func (s *Server) Run(ctx context.Context) error {
	s.startedMs = s.clock.NowMs()
	s.running.Store(true)
	defer s.running.Store(false)

	opt := transport.Options{MaxFrameSize: s.cfg.Server.MaxContentSize}
	for _, t := range s.transports {
		t := t
		go func() {
			if err := t.Start(ctx, s, opt); err != nil && ctx.Err() == nil {
				log.Errorf("transport %s exited: %v", t.Kind(), err)
			}
		}()
	}

	ticker := time.NewTicker(s.tickEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-s.connEvents:
			s.handleConnEvent(ev)
		case in := <-s.inbound:
			s.handleInbound(in)
		case c := <-s.completions:
			s.handleCompletion(c)
		case p := <-s.publishes:
			s.bridge.Broadcast(p.eventType, p.c, p.originOpID)
		case rec := <-s.logRecords:
			// 桥自身的诊断不回灌，避免扇出失败与日志互相喂养
			if rec.Module != "EVENTS" {
				s.bridge.HandleLogRecord(rec)
			}
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Server) handleConnEvent(ev connEvent) {
	if ev.open {
		log.Debugf("conn %s open (%s %s)", ev.conn.ID(), ev.conn.Kind(), ev.conn.RemoteAddr())
		return
	}
	delete(s.connParseErrs, ev.conn.ID())
	if sess, ok := s.sessions.ByConn(ev.conn.ID()); ok {
		s.finalizeSession(sess)
	}
}

// finalizeSession 对端消失或宽限期结束后的彻底回收
func (s *Server) finalizeSession(sess *session.Session) {
	s.bridge.DropSession(sess.ID)
	s.sessions.Remove(sess)
	s.sessionCount.Store(int64(s.sessions.Count()))
	_ = sess.Conn.Close()
}

// sweep 截止时间与空闲超时扫描
func (s *Server) sweep() {
	res := s.sessions.Sweep()
	for sess, ops := range res.ExpiredOps {
		for _, op := range ops {
			log.Warnf("operation %s on session %s timed out", op.ID, sess.ID)
			observe.IncToolExecution(tool.StatusTimeout.String())
			s.sendToolResultMsg(sess, op, tool.Fail(tool.StatusTimeout, "operation deadline exceeded"))
			sess.EndOperation(op.ID)
		}
	}
	now := s.clock.NowMs()
	for _, sess := range res.IdleSessions {
		log.Infof("session %s idle, closing", sess.ID)
		_ = sess.Send(s.factory.Goodbye(sess.ID, protocol.CodeTimeout))
		sess.Advance(session.StateClosing, now)
	}
	for _, sess := range res.DeadSessions {
		s.finalizeSession(sess)
	}
}

func (s *Server) handleCompletion(c completion) {
	sess, ok := s.sessions.Get(c.sessionID)
	if !ok {
		return // 会话已不在，丢弃
	}
	op, ok := sess.Operation(c.operationID)
	if !ok {
		return // 已超时回收，静默丢弃
	}
	res := tool.Ok(c.resultJSON)
	if !c.success {
		res = tool.Fail(tool.StatusExecutionError, c.errMsg)
	}
	observe.IncToolExecution(res.Status.String())
	s.sendToolResultMsg(sess, op, res)
	sess.EndOperation(op.ID)
}

// ---- 出站辅助 ----

func (s *Server) sendToConn(c transport.Conn, m *protocol.Message) {
	frame, err := protocol.EncodeBytes(m)
	if err != nil {
		log.Errorf("encode %s: %v", m.Kind, err)
		return
	}
	if err := c.WriteFrame(frame); err != nil {
		log.Warnf("write %s to conn %s: %v", m.Kind, c.ID(), err)
	}
}

// sendToSession 事件桥注入的投递函数
func (s *Server) sendToSession(sessionID string, m *protocol.Message) error {
	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		return protocol.NewError(protocol.CodeNoSession, "session %s not found", sessionID)
	}
	return sess.Send(m)
}

func (s *Server) sendError(c transport.Conn, sess *session.Session, correlate *protocol.Message, code, msg string) {
	sessionID, opID, mid := "", "", ""
	if sess != nil {
		sessionID = sess.ID
	}
	if correlate != nil {
		opID = correlate.OperationID
		mid = correlate.MessageID
	}
	s.sendToConn(c, s.factory.Error(sessionID, opID, mid, code, msg))
}

func (s *Server) sendToolResultMsg(sess *session.Session, op *session.Operation, res tool.Result) {
	body, err := content.FromJSON([]byte(res.JSON))
	if err != nil {
		body, _ = content.FromJSON([]byte("{}"))
	}
	m := s.factory.ToolResult(sess.ID, op.ID, op.ToolName, body, res.Status.Code(), res.Err)
	if err := sess.Send(m); err != nil {
		log.Warnf("tool result to session %s: %v", sess.ID, err)
	}
}

// ---- 状态快照 ----

// StatusJSON /status 端点的 JSON 快照；任意协程可调
func (s *Server) StatusJSON() []byte {
	uptime := int64(0)
	if s.startedMs > 0 {
		uptime = s.clock.NowMs() - s.startedMs
	}
	snap := map[string]any{
		"running":  s.running.Load(),
		"sessions": s.sessionCount.Load(),
		"uptimeMs": uptime,
		"bytesIn":  observe.BytesIn(),
		"bytesOut": observe.BytesOut(),
	}
	raw, _ := json.Marshal(snap)
	return raw
}
