package protocol

import (
	"github.com/hongjun500/mcpd-go/internal/content"
)

// Kind 表示协议支持的消息类型（线上形式为小写下划线）
type Kind string

const (
	KindHello            Kind = "hello"
	KindWelcome          Kind = "welcome"
	KindError            Kind = "error"
	KindContentRequest   Kind = "content_request"
	KindContentResponse  Kind = "content_response"
	KindToolInvoke       Kind = "tool_invoke"
	KindToolResult       Kind = "tool_result"
	KindEventSubscribe   Kind = "event_subscribe"
	KindEventUnsubscribe Kind = "event_unsubscribe"
	KindEventData        Kind = "event_data"
	KindResourceGet      Kind = "resource_get"
	KindResourceSet      Kind = "resource_set"
	KindResourceData     Kind = "resource_data"
	KindGoodbye          Kind = "goodbye"
	KindPing             Kind = "ping"
	KindPong             Kind = "pong"
)

var knownKinds = map[Kind]struct{}{
	KindHello: {}, KindWelcome: {}, KindError: {},
	KindContentRequest: {}, KindContentResponse: {},
	KindToolInvoke: {}, KindToolResult: {},
	KindEventSubscribe: {}, KindEventUnsubscribe: {}, KindEventData: {},
	KindResourceGet: {}, KindResourceSet: {}, KindResourceData: {},
	KindGoodbye: {}, KindPing: {}, KindPong: {},
}

// Known 判断消息类型是否为协议定义的类型
func (k Kind) Known() bool {
	_, ok := knownKinds[k]
	return ok
}

// Message 一帧一条的协议消息。字段序保持稳定：
// 元信息在前，按类型的专有字段在后。
type Message struct {
	Kind        Kind   `json:"kind"`
	MessageID   string `json:"messageId"`
	SessionID   string `json:"sessionId,omitempty"`
	OperationID string `json:"operationId,omitempty"`

	// ---- 按类型的专有字段 ----
	ToolName     string `json:"toolName,omitempty"`
	EventType    string `json:"eventType,omitempty"`
	ResourcePath string `json:"resourcePath,omitempty"`
	ErrorCode    string `json:"errorCode,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	Success      *bool  `json:"success,omitempty"`

	Content *content.Content `json:"content,omitempty"`
}

// Validate 校验消息是否良构：类型已知、messageId 非空、
// 且该类型要求的专有字段全部存在
func (m *Message) Validate() error {
	if !m.Kind.Known() {
		return &Error{Code: CodeUnknownKind, Message: "unknown message kind: " + string(m.Kind)}
	}
	if m.MessageID == "" {
		return &Error{Code: CodeBadFrame, Message: "missing messageId"}
	}
	switch m.Kind {
	case KindToolInvoke:
		if m.ToolName == "" {
			return &Error{Code: CodeBadFrame, Message: "tool_invoke requires toolName"}
		}
	case KindEventSubscribe, KindEventUnsubscribe, KindEventData:
		if m.EventType == "" {
			return &Error{Code: CodeBadFrame, Message: string(m.Kind) + " requires eventType"}
		}
	case KindResourceGet, KindResourceData:
		if m.ResourcePath == "" {
			return &Error{Code: CodeBadFrame, Message: string(m.Kind) + " requires resourcePath"}
		}
	case KindResourceSet:
		if m.ResourcePath == "" {
			return &Error{Code: CodeBadFrame, Message: "resource_set requires resourcePath"}
		}
		if m.Content == nil {
			return &Error{Code: CodeBadFrame, Message: "resource_set requires content"}
		}
	case KindError:
		if m.ErrorCode == "" {
			return &Error{Code: CodeBadFrame, Message: "error requires errorCode"}
		}
	}
	return nil
}

// SessionBound 该类型消息是否必须携带 sessionId
func (k Kind) SessionBound() bool {
	switch k {
	case KindHello, KindPing, KindPong:
		return false
	}
	return true
}
