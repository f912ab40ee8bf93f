package transport

import (
	"context"
	"net"
	"sync/atomic"
)

// TCPTransport 以太网口上的 TCP 传输。
// Mode 取 dhcp/static/auto，地址获取属于宿主网络栈，这里仅记录。
type TCPTransport struct {
	Addr        string
	MaxConns    int
	MDNS        bool
	MDNSService string

	status atomic.Uint32
	conns  atomic.Int64
}

func (t *TCPTransport) Kind() Kind     { return KindTCP }
func (t *TCPTransport) Status() Status { return Status(t.status.Load()) }

// Start 监听并为每个连接启动独立的读写循环，阻塞到 ctx 结束
func (t *TCPTransport) Start(ctx context.Context, gw Gateway, opt Options) error {
	opt = opt.withDefaults()
	ln, err := net.Listen("tcp", t.Addr)
	if err != nil {
		t.status.Store(uint32(StatusError))
		return err
	}
	t.status.Store(uint32(StatusListening | StatusConnected))
	connLog.Infof("tcp listen on %s", t.Addr)
	if t.MDNS {
		// mDNS 响应器属于宿主集成，核心只公布服务名
		connLog.Infof("mdns advertisement enabled: %s", t.MDNSService)
	}

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		nc, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			connLog.Warnf("tcp accept: %v", err)
			continue
		}
		if t.MaxConns > 0 && t.conns.Load() >= int64(t.MaxConns) {
			connLog.Warnf("tcp connection limit reached, rejecting %s", nc.RemoteAddr())
			_ = nc.Close()
			continue
		}
		t.conns.Add(1)
		c := newStreamConn(nc, KindTCP, nc.RemoteAddr().String(), opt)
		go func() {
			defer t.conns.Add(-1)
			c.serve(gw, opt)
		}()
	}
}
