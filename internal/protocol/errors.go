package protocol

import "fmt"

// 协议错误码，线上形式为稳定短字符串
const (
	// ---- 协议 ----
	CodeUnknownKind   = "unknown_kind"
	CodeBadFrame      = "bad_frame"
	CodeFrameTooLarge = "frame_too_large"
	CodeNoSession     = "no_session"
	CodeSessionClosed = "session_closed"

	// ---- 资源上限 ----
	CodeTooManySessions   = "too_many_sessions"
	CodeTooManyOperations = "too_many_operations"
	CodeTooManyTools      = "too_many_tools"
	CodeOOM               = "oom"

	// ---- 策略 ----
	CodeAccessDenied = "access_denied"
	CodeAuthRequired = "auth_required"

	// ---- 工具 ----
	CodeNotFound          = "not_found"
	CodeAlreadyRegistered = "already_registered"
	CodeBadSchema         = "bad_schema"
	CodeInvalidParameters = "invalid_parameters"
	CodeExecutionError    = "execution_error"
	CodeTimeout           = "timeout"
	CodeBadConfig         = "bad_config"

	// ---- 传输 ----
	CodeTransportClosed  = "transport_closed"
	CodeTransportError   = "transport_error"
	CodeTransportTimeout = "transport_timeout"
)

// Error 携带稳定错误码的协议错误
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewError 构造协议错误
func NewError(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf 提取错误码；非协议错误归为 execution_error
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	if pe, ok := err.(*Error); ok {
		return pe.Code
	}
	return CodeExecutionError
}
