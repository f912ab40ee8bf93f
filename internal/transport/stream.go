package transport

import (
	"context"
	"io"
	"sync/atomic"
)

// StreamTransport 将外部注入的双工字节流（蓝牙 RFCOMM、测试管道等）
// 作为单对端传输接入
type StreamTransport struct {
	RWC   io.ReadWriteCloser
	Media Kind   // 介质标签，默认 stream
	Label string // 对端标识，用于日志与 RemoteAddr

	status atomic.Uint32
}

func (t *StreamTransport) Kind() Kind {
	if t.Media != "" {
		return t.Media
	}
	return KindStream
}

func (t *StreamTransport) Status() Status { return Status(t.status.Load()) }

// Start 为注入流服务，流断开即返回
func (t *StreamTransport) Start(ctx context.Context, gw Gateway, opt Options) error {
	opt = opt.withDefaults()
	t.status.Store(uint32(StatusConnected))
	c := newStreamConn(t.RWC, t.Kind(), t.Label, opt)
	go func() {
		<-ctx.Done()
		_ = c.Close()
	}()
	c.serve(gw, opt)
	t.status.Store(0)
	return nil
}
