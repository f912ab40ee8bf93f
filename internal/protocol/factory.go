package protocol

import (
	"github.com/google/uuid"

	"github.com/hongjun500/mcpd-go/internal/content"
)

// Factory 统一服务端出站消息的创建逻辑
type Factory struct {
	deviceName string
	version    string
	deviceID   string
}

// NewFactory 创建消息工厂，携带服务器身份信息
func NewFactory(deviceName, version, deviceID string) *Factory {
	return &Factory{deviceName: deviceName, version: version, deviceID: deviceID}
}

func newMid() string { return uuid.New().String() }

// Welcome 回应 HELLO：回显分配的 sessionId 并公布服务器身份与能力
func (f *Factory) Welcome(sessionID string, capabilities []string) *Message {
	info := content.NewObject().
		SetString("deviceName", f.deviceName).
		SetString("version", f.version).
		SetString("deviceId", f.deviceID)
	caps := content.NewArray()
	for _, c := range capabilities {
		caps.AppendString(c)
	}
	body, _ := caps.Build()
	if body != nil {
		raw, _ := body.JSON()
		info.SetRaw("capabilities", raw)
	}
	c, _ := info.Build()
	return &Message{
		Kind:      KindWelcome,
		MessageID: newMid(),
		SessionID: sessionID,
		Content:   c,
	}
}

// Error 构造 ERROR 帧；correlate 为触发方的 messageId，可为空
func (f *Factory) Error(sessionID, operationID, correlate, code, errMsg string) *Message {
	mid := correlate
	if mid == "" {
		mid = newMid()
	}
	return &Message{
		Kind:         KindError,
		MessageID:    mid,
		SessionID:    sessionID,
		OperationID:  operationID,
		ErrorCode:    code,
		ErrorMessage: errMsg,
	}
}

// ToolResult 工具执行结果。成功时 errCode 为空。
func (f *Factory) ToolResult(sessionID, operationID, toolName string, c *content.Content, errCode, errMsg string) *Message {
	ok := errCode == ""
	return &Message{
		Kind:         KindToolResult,
		MessageID:    newMid(),
		SessionID:    sessionID,
		OperationID:  operationID,
		ToolName:     toolName,
		Success:      &ok,
		ErrorCode:    errCode,
		ErrorMessage: errMsg,
		Content:      c,
	}
}

// EventData 推送事件；operationID 携带事件来源操作时填写
func (f *Factory) EventData(sessionID, operationID, eventType string, c *content.Content) *Message {
	return &Message{
		Kind:        KindEventData,
		MessageID:   newMid(),
		SessionID:   sessionID,
		OperationID: operationID,
		EventType:   eventType,
		Content:     c,
	}
}

// ResourceData 资源读写的应答
func (f *Factory) ResourceData(sessionID, operationID, path string, c *content.Content) *Message {
	return &Message{
		Kind:         KindResourceData,
		MessageID:    newMid(),
		SessionID:    sessionID,
		OperationID:  operationID,
		ResourcePath: path,
		Content:      c,
	}
}

// ContentResponse 应用层内容请求的应答
func (f *Factory) ContentResponse(sessionID, operationID string, c *content.Content) *Message {
	return &Message{
		Kind:        KindContentResponse,
		MessageID:   newMid(),
		SessionID:   sessionID,
		OperationID: operationID,
		Content:     c,
	}
}

// Pong 回显 PING 的 messageId
func (f *Factory) Pong(sessionID, messageID string) *Message {
	return &Message{
		Kind:      KindPong,
		MessageID: messageID,
		SessionID: sessionID,
	}
}

// Goodbye 服务端主动关闭会话时发出
func (f *Factory) Goodbye(sessionID, reason string) *Message {
	m := &Message{
		Kind:      KindGoodbye,
		MessageID: newMid(),
		SessionID: sessionID,
	}
	if reason != "" {
		m.ErrorCode = reason
	}
	return m
}
