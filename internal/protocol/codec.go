package protocol

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"
)

// 帧格式：一条消息一帧，换行符结尾的 UTF-8 JSON 对象。
// 数据报类传输自带记录边界时可直接用 Decode。

var (
	// ErrFrameTooLarge 超出 maxContentSize 的帧，未分配帧体即返回
	ErrFrameTooLarge = &Error{Code: CodeFrameTooLarge, Message: "frame exceeds max content size"}
	// ErrBadFrame 帧不是合法 JSON 对象
	ErrBadFrame = &Error{Code: CodeBadFrame, Message: "malformed frame"}
)

// Encode 将消息编码为一帧并写入 w，写入视作全有或全无
func Encode(w io.Writer, m *Message) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return err
	}
	raw = append(raw, '\n')
	if _, err := w.Write(raw); err != nil {
		return err
	}
	return nil
}

// EncodeBytes 编码为单帧字节（含结尾换行）
func EncodeBytes(m *Message) ([]byte, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return append(raw, '\n'), nil
}

// Decode 解析一帧。超限、坏 JSON、未知类型分别映射到对应错误码。
func Decode(frame []byte, maxSize int) (*Message, error) {
	frame = bytes.TrimSpace(frame)
	if maxSize > 0 && len(frame) > maxSize {
		return nil, ErrFrameTooLarge
	}
	if len(frame) == 0 || frame[0] != '{' {
		return nil, ErrBadFrame
	}
	var m Message
	if err := json.Unmarshal(frame, &m); err != nil {
		return nil, ErrBadFrame
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// ReadFrame 从流式传输读取一帧（到换行符为止）。
// 超过 maxSize 的帧不缓存帧体：丢弃剩余字节直到帧边界并返回 ErrFrameTooLarge。
func ReadFrame(r *bufio.Reader, maxSize int) ([]byte, error) {
	var buf []byte
	for {
		chunk, err := r.ReadSlice('\n')
		if maxSize > 0 && len(buf)+len(chunk) > maxSize+1 {
			// 丢弃直到行尾，不再积累
			if errors.Is(err, bufio.ErrBufferFull) {
				if discardErr := discardLine(r); discardErr != nil {
					return nil, discardErr
				}
			}
			return nil, ErrFrameTooLarge
		}
		buf = append(buf, chunk...)
		if err == nil {
			return buf, nil
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if errors.Is(err, io.EOF) && len(buf) > 0 {
			return buf, nil
		}
		return nil, err
	}
}

func discardLine(r *bufio.Reader) error {
	for {
		_, err := r.ReadSlice('\n')
		if err == nil {
			return nil
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return err
	}
}
