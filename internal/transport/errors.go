package transport

import (
	"errors"
	"io"
	"net"
)

// 传输层错误；关闭与超时必须可区分
var (
	ErrConnClosed  = errors.New("transport: connection closed")
	ErrConnTimeout = errors.New("transport: i/o timeout")
	ErrQueueFull   = errors.New("transport: outbound queue full")
)

// classifyErr 把底层 I/O 错误归一为关闭/超时哨兵，其余原样返回
func classifyErr(err error) error {
	if err == nil {
		return nil
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return ErrConnTimeout
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) || errors.Is(err, net.ErrClosed) {
		return ErrConnClosed
	}
	return err
}
