package transport

import (
	"bufio"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/hongjun500/mcpd-go/internal/observe"
	"github.com/hongjun500/mcpd-go/internal/protocol"
	"github.com/hongjun500/mcpd-go/pkg/logger"
)

var connLog = logger.M("TRANSPORT")

// streamConn 把任意 io.ReadWriteCloser 包装为换行分帧的 Conn，
// TCP、串口、USB-CDC、蓝牙注入流共用这一实现
type streamConn struct {
	id     string
	remote string
	kind   Kind

	rwc io.ReadWriteCloser
	out chan []byte

	status    atomic.Uint32
	closed    chan struct{}
	closeOnce sync.Once
}

func newStreamConn(rwc io.ReadWriteCloser, kind Kind, remote string, opt Options) *streamConn {
	c := &streamConn{
		id:     uuid.New().String(),
		remote: remote,
		kind:   kind,
		rwc:    rwc,
		out:    make(chan []byte, opt.OutBuffer),
		closed: make(chan struct{}),
	}
	c.status.Store(uint32(StatusConnected))
	return c
}

func (c *streamConn) ID() string         { return c.id }
func (c *streamConn) RemoteAddr() string { return c.remote }
func (c *streamConn) Kind() Kind         { return c.kind }
func (c *streamConn) Status() Status     { return Status(c.status.Load()) }

func (c *streamConn) setBit(b Status)   { c.status.Store(c.status.Load() | uint32(b)) }
func (c *streamConn) clearBit(b Status) { c.status.Store(c.status.Load() &^ uint32(b)) }

// WriteFrame 非阻塞入队；队列满则丢弃并计数（对端持续背压时的自保策略）
func (c *streamConn) WriteFrame(frame []byte) error {
	select {
	case <-c.closed:
		return ErrConnClosed
	default:
	}
	select {
	case c.out <- frame:
		return nil
	default:
		observe.IncDropped()
		return ErrQueueFull
	}
}

func (c *streamConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		c.clearBit(StatusConnected)
		err = c.rwc.Close()
	})
	return err
}

// deadlineConn 支持读写截止时间的底层连接（net.Conn 等）；
// 串口等不支持的介质按无超时处理
type deadlineConn interface {
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
}

// serve 启动读写循环并阻塞到连接结束；由各 Transport 在独立协程调用
func (c *streamConn) serve(gw Gateway, opt Options) {
	gw.OnConnOpen(c)
	dc, hasDeadline := c.rwc.(deadlineConn)

	// 写协程：串行写出，保证帧间不交错
	go func() {
		for {
			select {
			case frame := <-c.out:
				if hasDeadline && opt.WriteTimeout > 0 {
					_ = dc.SetWriteDeadline(time.Now().Add(opt.WriteTimeout))
				}
				if _, err := c.rwc.Write(frame); err != nil {
					c.setBit(StatusError)
					connLog.Warnf("write failed on %s conn %s: %v", c.kind, c.id, classifyErr(err))
					_ = c.Close()
					return
				}
				observe.AddBytesOut(len(frame))
				c.setBit(StatusActivity)
			case <-c.closed:
				return
			}
		}
	}()

	// 读循环：一次一帧，超限帧只上报错误、连接保持
	r := bufio.NewReaderSize(c.rwc, 4096)
	for {
		if hasDeadline && opt.ReadTimeout > 0 {
			_ = dc.SetReadDeadline(time.Now().Add(opt.ReadTimeout))
		}
		frame, err := protocol.ReadFrame(r, opt.MaxFrameSize)
		if err == protocol.ErrFrameTooLarge {
			gw.OnFrame(c, nil, err)
			continue
		}
		if err != nil {
			_ = c.Close()
			gw.OnConnClose(c, classifyErr(err))
			return
		}
		observe.AddBytesIn(len(frame))
		c.setBit(StatusActivity)
		gw.OnFrame(c, frame, nil)
	}
}
