package tool

import "github.com/hongjun500/mcpd-go/internal/protocol"

// Status 工具执行结果状态
type Status int

const (
	StatusSuccess Status = iota
	StatusNotFound
	StatusInvalidParameters
	StatusExecutionError
	StatusTimeout
	StatusAccessDenied
)

// Code 映射到稳定错误码；成功为空串
func (s Status) Code() string {
	switch s {
	case StatusSuccess:
		return ""
	case StatusNotFound:
		return protocol.CodeNotFound
	case StatusInvalidParameters:
		return protocol.CodeInvalidParameters
	case StatusTimeout:
		return protocol.CodeTimeout
	case StatusAccessDenied:
		return protocol.CodeAccessDenied
	default:
		return protocol.CodeExecutionError
	}
}

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "SUCCESS"
	case StatusNotFound:
		return "NOT_FOUND"
	case StatusInvalidParameters:
		return "INVALID_PARAMETERS"
	case StatusTimeout:
		return "TIMEOUT"
	case StatusAccessDenied:
		return "ACCESS_DENIED"
	default:
		return "EXECUTION_ERROR"
	}
}

// Result 工具执行结果。成功且无负载时 JSON 为 "{}"。
type Result struct {
	Status Status
	JSON   string
	Err    string // 失败时的人类可读信息
}

// Ok 成功结果；resultJSON 为空时归一为 "{}"
func Ok(resultJSON string) Result {
	if resultJSON == "" {
		resultJSON = "{}"
	}
	return Result{Status: StatusSuccess, JSON: resultJSON}
}

// Fail 失败结果
func Fail(status Status, errMsg string) Result {
	return Result{Status: status, JSON: "{}", Err: errMsg}
}

// FailCode 按协议错误码折算失败状态
func FailCode(code, errMsg string) Result {
	return Fail(statusFromCode(code), errMsg)
}

func statusFromCode(code string) Status {
	switch code {
	case protocol.CodeNotFound:
		return StatusNotFound
	case protocol.CodeInvalidParameters, protocol.CodeBadSchema:
		return StatusInvalidParameters
	case protocol.CodeTimeout:
		return StatusTimeout
	case protocol.CodeAccessDenied, protocol.CodeAuthRequired:
		return StatusAccessDenied
	}
	return StatusExecutionError
}
