// Package redisstream 把广播事件镜像到 Redis stream，
// 供网关级宿主上的外部消费者使用。投递尽力而为，不提供跨节点有序性。
package redisstream

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

type Bus struct {
	cli    *redis.Client
	stream string
}

// Event 外发形态的一条事件
type Event struct {
	Type    string          `json:"type"`
	When    time.Time       `json:"when"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func New(addr string, db int, stream string) *Bus {
	cli := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	return &Bus{cli: cli, stream: stream}
}

// Publish 实现 event.Relay；写入失败由调用方记日志
func (b *Bus) Publish(eventType string, payload []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	raw, _ := json.Marshal(&Event{Type: eventType, When: time.Now(), Payload: payload})
	return b.cli.XAdd(ctx, &redis.XAddArgs{
		Stream: b.stream,
		Values: map[string]any{"data": raw},
	}).Err()
}

// Consume 阻塞消费事件流；ctx 取消即返回。外部进程侧的对账/审计用。
func (b *Bus) Consume(ctx context.Context, handler func(ctx context.Context, e *Event) error) error {
	lastID := "$"
	for {
		res, err := b.cli.XRead(ctx, &redis.XReadArgs{
			Streams: []string{b.stream, lastID},
			Count:   100,
			Block:   5 * time.Second,
		}).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// 瞬时错误继续
			continue
		}
		for _, str := range res {
			for _, xmsg := range str.Messages {
				lastID = xmsg.ID
				raw, _ := xmsg.Values["data"].(string)
				var e Event
				if err := json.Unmarshal([]byte(raw), &e); err == nil {
					_ = handler(ctx, &e)
				}
			}
		}
	}
}

func (b *Bus) Close() error { return b.cli.Close() }
