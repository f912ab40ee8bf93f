package logger

import (
	"fmt"
	"time"
)

func sprintf(format string, args ...any) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}

func nowMs() int64 { return time.Now().UnixMilli() }
