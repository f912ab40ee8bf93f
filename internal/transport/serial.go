package transport

import (
	"context"
	"sync/atomic"

	"go.bug.st/serial"
)

// SerialConfig 串口/USB-CDC 参数
type SerialConfig struct {
	Device   string // 设备路径，如 /dev/ttyUSB0
	Baud     int
	DataBits int
	StopBits int    // 1 或 2
	Parity   string // none|odd|even
}

// SerialTransport UART/USB-CDC 传输，单对端。
// USB-CDC 设备在宿主侧同样呈现为串口，用 Media 区分计数与日志。
type SerialTransport struct {
	Config SerialConfig
	Media  Kind // KindSerial 或 KindUSB

	status atomic.Uint32
}

func (t *SerialTransport) Kind() Kind {
	if t.Media != "" {
		return t.Media
	}
	return KindSerial
}

func (t *SerialTransport) Status() Status { return Status(t.status.Load()) }

// Start 打开串口并服务，端口关闭即返回
func (t *SerialTransport) Start(ctx context.Context, gw Gateway, opt Options) error {
	opt = opt.withDefaults()
	mode := &serial.Mode{
		BaudRate: t.Config.Baud,
		DataBits: t.Config.DataBits,
	}
	if mode.BaudRate == 0 {
		mode.BaudRate = 115200
	}
	if mode.DataBits == 0 {
		mode.DataBits = 8
	}
	switch t.Config.StopBits {
	case 2:
		mode.StopBits = serial.TwoStopBits
	default:
		mode.StopBits = serial.OneStopBit
	}
	switch t.Config.Parity {
	case "odd":
		mode.Parity = serial.OddParity
	case "even":
		mode.Parity = serial.EvenParity
	default:
		mode.Parity = serial.NoParity
	}

	port, err := serial.Open(t.Config.Device, mode)
	if err != nil {
		t.status.Store(uint32(StatusError))
		return err
	}
	t.status.Store(uint32(StatusConnected))
	connLog.Infof("%s open %s baud=%d", t.Kind(), t.Config.Device, mode.BaudRate)

	c := newStreamConn(port, t.Kind(), t.Config.Device, opt)
	go func() {
		<-ctx.Done()
		_ = c.Close()
	}()
	c.serve(gw, opt)
	t.status.Store(0)
	return nil
}
