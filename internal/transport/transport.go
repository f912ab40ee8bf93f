package transport

import (
	"context"
)

// Kind 标识具体传输介质
type Kind string

const (
	KindTCP       Kind = "tcp"
	KindWebSocket Kind = "websocket"
	KindSerial    Kind = "serial"
	KindUSB       Kind = "usb"
	KindBluetooth Kind = "bluetooth"
	KindStream    Kind = "stream"
)

// Status 传输状态位
type Status uint32

const (
	StatusConnected Status = 1 << iota
	StatusError
	StatusActivity // 最近一次读写以来有数据流动
	StatusListening
)

func (s Status) Connected() bool { return s&StatusConnected != 0 }
func (s Status) Error() bool     { return s&StatusError != 0 }

// Conn 一个已连接对端的双工帧通道。
// WriteFrame 进入出站队列并由独立写协程按 FIFO 写出，
// 单帧写出是全有或全无：底层部分写入会被内部重试或上报为错误。
type Conn interface {
	ID() string
	RemoteAddr() string
	Kind() Kind
	WriteFrame(frame []byte) error
	Close() error
	Status() Status
}

// Gateway 传输层与协议层的边界。
// OnFrame 的 err 仅在帧级错误（如超限）时非空，此时 frame 为 nil，连接保持。
type Gateway interface {
	OnConnOpen(c Conn)
	OnFrame(c Conn, frame []byte, err error)
	OnConnClose(c Conn, err error)
}

// Transport 统一的传输层接口，负责特定介质的连接建立与生命周期
type Transport interface {
	Kind() Kind
	Start(ctx context.Context, gw Gateway, opt Options) error
	Status() Status
}
