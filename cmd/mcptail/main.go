package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"unicode/utf8"

	"github.com/hongjun500/mcpd-go/internal/bus/redisstream"
)

// mcptail 挂在 Redis 事件流上打印设备外发的事件，审计联调用
func main() {
	var (
		addr   = flag.String("addr", "localhost:6379", "redis address")
		db     = flag.Int("db", 0, "redis database")
		stream = flag.String("stream", "mcpd:events", "stream key")
	)
	flag.Parse()

	bus := redisstream.New(*addr, *db, *stream)
	defer bus.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := bus.Consume(ctx, func(ctx context.Context, e *redisstream.Event) error {
		fmt.Printf("Event:\n")
		fmt.Printf("  type: %s\n", e.Type)
		fmt.Printf("  when: %s\n", e.When.Format("15:04:05.000"))
		if len(e.Payload) == 0 {
			fmt.Printf("  payload: <empty>\n")
		} else if utf8.Valid(e.Payload) {
			fmt.Printf("  payload: %s\n", string(e.Payload))
		} else {
			fmt.Printf("  payload: <%d bytes>\n", len(e.Payload))
		}
		return nil
	})
	if err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "consume error: %v\n", err)
		os.Exit(1)
	}
}
