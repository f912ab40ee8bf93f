package transport

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/hongjun500/mcpd-go/internal/observe"
	"github.com/hongjun500/mcpd-go/internal/protocol"
)

// wsConn 一条 WebSocket 连接；消息边界即帧边界，无需换行分帧
type wsConn struct {
	id     string
	conn   *websocket.Conn
	out    chan []byte
	status atomic.Uint32

	closed    chan struct{}
	closeOnce sync.Once
}

func (w *wsConn) ID() string         { return w.id }
func (w *wsConn) RemoteAddr() string { return w.conn.RemoteAddr().String() }
func (w *wsConn) Kind() Kind         { return KindWebSocket }
func (w *wsConn) Status() Status     { return Status(w.status.Load()) }

func (w *wsConn) WriteFrame(frame []byte) error {
	select {
	case <-w.closed:
		return ErrConnClosed
	default:
	}
	select {
	case w.out <- frame:
		return nil
	default:
		observe.IncDropped()
		return ErrQueueFull
	}
}

func (w *wsConn) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.closed)
		w.status.Store(0)
		err = w.conn.Close()
	})
	return err
}

// WebSocketTransport 网关类宿主上的 WebSocket 传输
type WebSocketTransport struct {
	Addr string
	Path string // 默认 /mcp

	status atomic.Uint32
}

func (t *WebSocketTransport) Kind() Kind     { return KindWebSocket }
func (t *WebSocketTransport) Status() Status { return Status(t.status.Load()) }

func (t *WebSocketTransport) Start(ctx context.Context, gw Gateway, opt Options) error {
	opt = opt.withDefaults()
	if t.Path == "" {
		t.Path = "/mcp"
	}
	mux := http.NewServeMux()
	mux.HandleFunc(t.Path, func(w http.ResponseWriter, r *http.Request) {
		t.handleConnection(w, r, gw, opt)
	})

	connLog.Infof("websocket listen on %s path=%s", t.Addr, t.Path)
	t.status.Store(uint32(StatusListening | StatusConnected))

	server := &http.Server{Addr: t.Addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
	return server.ListenAndServe()
}

func (t *WebSocketTransport) handleConnection(w http.ResponseWriter, r *http.Request, gw Gateway, opt Options) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	c := &wsConn{
		id:     uuid.New().String(),
		conn:   conn,
		out:    make(chan []byte, opt.OutBuffer),
		closed: make(chan struct{}),
	}
	c.status.Store(uint32(StatusConnected))
	gw.OnConnOpen(c)

	// 写协程
	go func() {
		for {
			select {
			case frame := <-c.out:
				if opt.WriteTimeout > 0 {
					_ = conn.SetWriteDeadline(time.Now().Add(opt.WriteTimeout))
				}
				if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
					c.status.Store(uint32(StatusError))
					connLog.Warnf("ws write to %s: %v", c.id, err)
					_ = c.Close()
					return
				}
				observe.AddBytesOut(len(frame))
			case <-c.closed:
				return
			}
		}
	}()

	// 心跳保活
	readDeadline := 60 * time.Second
	if opt.ReadTimeout > 0 {
		readDeadline = opt.ReadTimeout
	}
	_ = conn.SetReadDeadline(time.Now().Add(readDeadline))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readDeadline))
	})
	ticker := time.NewTicker(30 * time.Second)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				_ = conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second))
			case <-c.closed:
				return
			}
		}
	}()

	// 读循环
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			_ = c.Close()
			gw.OnConnClose(c, err)
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		if opt.MaxFrameSize > 0 && len(data) > opt.MaxFrameSize {
			gw.OnFrame(c, nil, protocol.ErrFrameTooLarge)
			continue
		}
		observe.AddBytesIn(len(data))
		gw.OnFrame(c, data, nil)
	}
}
