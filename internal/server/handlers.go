package server

import (
	"time"

	"github.com/hongjun500/mcpd-go/internal/content"
	"github.com/hongjun500/mcpd-go/internal/observe"
	"github.com/hongjun500/mcpd-go/internal/protocol"
	"github.com/hongjun500/mcpd-go/internal/session"
	"github.com/hongjun500/mcpd-go/internal/tool"
	"github.com/hongjun500/mcpd-go/internal/transport"
)

// serverCapabilities WELCOME 公布的能力集合
var serverCapabilities = []string{"tools", "events", "resources", "content", "logging"}

// connCtx 一帧的处理上下文：hello 之前 sess 为 nil
type connCtx struct {
	conn transport.Conn
	sess *session.Session
}

func (s *Server) buildDispatch() map[protocol.Kind]func(*connCtx, *protocol.Message) {
	return map[protocol.Kind]func(*connCtx, *protocol.Message){
		protocol.KindHello:            s.handleHello,
		protocol.KindToolInvoke:       s.handleToolInvoke,
		protocol.KindEventSubscribe:   s.handleEventSubscribe,
		protocol.KindEventUnsubscribe: s.handleEventUnsubscribe,
		protocol.KindResourceGet:      s.handleResourceGet,
		protocol.KindResourceSet:      s.handleResourceSet,
		protocol.KindContentRequest:   s.handleContentRequest,
		protocol.KindPing:             s.handlePing,
		protocol.KindGoodbye:          s.handleGoodbye,
	}
}

// handleInbound 解码并分发一帧。解析失败计入预算，
// 预算耗尽时回 GOODBYE 并切断连接。
func (s *Server) handleInbound(in inboundFrame) {
	sess, _ := s.sessions.ByConn(in.conn.ID())

	err := in.err
	var m *protocol.Message
	if err == nil {
		m, err = protocol.Decode(in.frame, s.cfg.Server.MaxContentSize)
	}
	if err != nil {
		observe.IncParseError()
		code := protocol.CodeOf(err)
		s.sendError(in.conn, sess, nil, code, err.Error())
		if code == protocol.CodeBadFrame && s.bumpParseErrors(in.conn, sess) {
			log.Warnf("conn %s exhausted parse error budget, dropping", in.conn.ID())
			s.sendToConn(in.conn, s.factory.Goodbye(sessionIDOf(sess), protocol.CodeBadFrame))
			if sess != nil {
				// 经 CLOSING 走宽限期，让在途出站帧有机会写完
				sess.Advance(session.StateClosing, s.clock.NowMs())
			} else {
				c := in.conn
				time.AfterFunc(50*time.Millisecond, func() { _ = c.Close() })
			}
		}
		return
	}
	observe.IncMessage(string(m.Kind))

	ctx := &connCtx{conn: in.conn, sess: sess}
	if sess != nil {
		sess.Touch(s.clock.NowMs())
		sess.ParseErrors = 0
	} else {
		delete(s.connParseErrs, in.conn.ID())
	}
	if m.Kind != protocol.KindHello && m.Kind.SessionBound() && sess == nil {
		s.sendError(in.conn, nil, m, protocol.CodeNoSession, "say hello first")
		return
	}

	h, ok := s.dispatch[m.Kind]
	if !ok {
		// 方向不对的类型（welcome、tool_result 等由服务器发出）
		s.sendError(in.conn, sess, m, protocol.CodeBadFrame, "unexpected kind "+string(m.Kind))
		return
	}
	h(ctx, m)
}

// bumpParseErrors 递增解析错误计数，越线返回 true
func (s *Server) bumpParseErrors(c transport.Conn, sess *session.Session) bool {
	budget := s.cfg.Server.ParseErrorBudget
	if sess != nil {
		sess.ParseErrors++
		return sess.ParseErrors >= budget
	}
	s.connParseErrs[c.ID()]++
	return s.connParseErrs[c.ID()] >= budget
}

func sessionIDOf(sess *session.Session) string {
	if sess == nil {
		return ""
	}
	return sess.ID
}

// ---- 各类型 ----

func (s *Server) handleHello(ctx *connCtx, m *protocol.Message) {
	if ctx.sess != nil {
		// 重复 hello 只回显既有会话，不开新的
		s.sendToConn(ctx.conn, s.factory.Welcome(ctx.sess.ID, serverCapabilities))
		return
	}
	sess, err := s.sessions.Open(ctx.conn)
	if err != nil {
		s.sendError(ctx.conn, nil, m, protocol.CodeOf(err), err.Error())
		return
	}
	s.sessionCount.Store(int64(s.sessions.Count()))
	delete(s.connParseErrs, ctx.conn.ID())
	log.Infof("session %s opened on %s conn %s", sess.ID, ctx.conn.Kind(), ctx.conn.ID())
	s.sendToConn(ctx.conn, s.factory.Welcome(sess.ID, serverCapabilities))
}

func (s *Server) handleToolInvoke(ctx *connCtx, m *protocol.Message) {
	sess := ctx.sess
	paramsJSON := []byte("{}")
	if m.Content != nil {
		switch m.Content.Type() {
		case content.TypeJSON:
			raw, err := m.Content.JSON()
			if err != nil {
				s.sendError(ctx.conn, sess, m, protocol.CodeInvalidParameters, err.Error())
				return
			}
			paramsJSON = raw
		case content.TypeText:
			// 文本负载折叠为 {"text": ...} 单参数包；
			// 声明了参数定义的工具由注册表照常校验
			text, err := m.Content.Text()
			if err != nil {
				s.sendError(ctx.conn, sess, m, protocol.CodeBadFrame, err.Error())
				return
			}
			bag, err := content.NewObject().SetString("text", text).Build()
			if err != nil {
				s.sendError(ctx.conn, sess, m, protocol.CodeInvalidParameters, err.Error())
				return
			}
			paramsJSON, _ = bag.JSON()
		default:
			s.sendError(ctx.conn, sess, m, protocol.CodeInvalidParameters, "tool parameters must be text or json content")
			return
		}
	}

	now := s.clock.NowMs()
	deadline := int64(0)
	if s.cfg.Server.OperationTimeoutMs > 0 {
		deadline = now + s.cfg.Server.OperationTimeoutMs
	}
	op, err := sess.BeginOperation(m.Kind, m.OperationID, m.MessageID, m.ToolName, now, deadline)
	if err != nil {
		s.sendError(ctx.conn, sess, m, protocol.CodeOf(err), err.Error())
		return
	}

	inv := &tool.Invocation{SessionID: sess.ID, OperationID: op.ID}
	res, deferred := s.registry.Execute(inv, m.ToolName, paramsJSON)
	if deferred {
		return // 结果由 CompleteOperation 注入
	}
	s.sendToolResultMsg(sess, op, res)
	sess.EndOperation(op.ID)
}

func (s *Server) handleEventSubscribe(ctx *connCtx, m *protocol.Message) {
	if m.EventType == "" {
		s.sendError(ctx.conn, ctx.sess, m, protocol.CodeBadFrame, "missing eventType")
		return
	}
	ctx.sess.Subscribe(m.EventType)
	s.bridge.Subscribe(ctx.sess.ID, m.EventType)
	ack := content.NewObject().
		SetString("status", "subscribed").
		SetString("eventType", m.EventType).
		MustBuild()
	_ = ctx.sess.Send(s.factory.EventData(ctx.sess.ID, m.OperationID, m.EventType, ack))
}

func (s *Server) handleEventUnsubscribe(ctx *connCtx, m *protocol.Message) {
	if m.EventType == "" {
		s.sendError(ctx.conn, ctx.sess, m, protocol.CodeBadFrame, "missing eventType")
		return
	}
	ctx.sess.Unsubscribe(m.EventType)
	s.bridge.Unsubscribe(ctx.sess.ID, m.EventType)
}

func (s *Server) handleResourceGet(ctx *connCtx, m *protocol.Message) {
	c, err := s.resources.Get(m.ResourcePath)
	if err != nil {
		s.sendError(ctx.conn, ctx.sess, m, protocol.CodeOf(err), err.Error())
		return
	}
	_ = ctx.sess.Send(s.factory.ResourceData(ctx.sess.ID, m.OperationID, m.ResourcePath, c))
}

func (s *Server) handleResourceSet(ctx *connCtx, m *protocol.Message) {
	if m.Content == nil {
		s.sendError(ctx.conn, ctx.sess, m, protocol.CodeBadFrame, "missing content")
		return
	}
	if err := s.resources.Set(m.ResourcePath, m.Content); err != nil {
		s.sendError(ctx.conn, ctx.sess, m, protocol.CodeOf(err), err.Error())
		return
	}
	_ = ctx.sess.Send(s.factory.ResourceData(ctx.sess.ID, m.OperationID, m.ResourcePath, m.Content))
}

func (s *Server) handleContentRequest(ctx *connCtx, m *protocol.Message) {
	if s.contentHandler == nil {
		s.sendError(ctx.conn, ctx.sess, m, protocol.CodeNotFound, "no content handler installed")
		return
	}
	reply, err := s.contentHandler(ctx.sess.ID, m.Content)
	if err != nil {
		s.sendError(ctx.conn, ctx.sess, m, protocol.CodeOf(err), err.Error())
		return
	}
	_ = ctx.sess.Send(s.factory.ContentResponse(ctx.sess.ID, m.OperationID, reply))
}

func (s *Server) handlePing(ctx *connCtx, m *protocol.Message) {
	// ping 不要求会话，hello 之前也可探活
	if ctx.sess == nil {
		s.sendToConn(ctx.conn, s.factory.Pong("", m.MessageID))
		return
	}
	_ = ctx.sess.Send(s.factory.Pong(ctx.sess.ID, m.MessageID))
}

func (s *Server) handleGoodbye(ctx *connCtx, m *protocol.Message) {
	sess := ctx.sess
	log.Infof("session %s said goodbye", sess.ID)
	_ = sess.Send(s.factory.Goodbye(sess.ID, ""))
	sess.Advance(session.StateClosing, s.clock.NowMs())
}
