package transport

import "time"

// Options 各传输共享的配置
type Options struct {
	OutBuffer    int           // 出站队列长度，默认 256
	ReadTimeout  time.Duration // 单次读截止；0 关闭
	WriteTimeout time.Duration // 单次写截止；0 关闭
	MaxFrameSize int           // 单帧上限（字节），默认 1MB
}

func (o Options) withDefaults() Options {
	if o.OutBuffer <= 0 {
		o.OutBuffer = 256
	}
	if o.MaxFrameSize <= 0 {
		o.MaxFrameSize = 1 << 20
	}
	return o
}
