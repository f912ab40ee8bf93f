package content

import (
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"
)

// Type 负载类型
type Type string

const (
	TypeText    Type = "text"
	TypeJSON    Type = "json"
	TypeBinary  Type = "binary"
	TypeImage   Type = "image"
	TypeAudio   Type = "audio"
	TypeVideo   Type = "video"
	TypeUnknown Type = "unknown"
)

// DefaultMediaType 每种类型的默认 media-type，保证 mediaType 永不为空
func DefaultMediaType(t Type) string {
	switch t {
	case TypeText:
		return "text/plain"
	case TypeJSON:
		return "application/json"
	case TypeImage:
		return "image/png"
	case TypeAudio:
		return "audio/wav"
	case TypeVideo:
		return "video/mp4"
	default:
		return "application/octet-stream"
	}
}

var (
	ErrNotText    = errors.New("content: bytes are not valid text")
	ErrNotJSON    = errors.New("content: payload is not json")
	ErrTypeAccess = errors.New("content: type-mismatched access")
)

// Content 统一负载容器。构造时拷贝调用方缓冲区并持有副本，
// 之后对外只读；size>0 时 bytes 一定非空。
type Content struct {
	typ       Type
	mediaType string
	bytes     []byte
}

// FromText 从文本构造
func FromText(s string) *Content {
	return &Content{typ: TypeText, mediaType: DefaultMediaType(TypeText), bytes: []byte(s)}
}

// FromJSON 从 JSON 字节构造，非法 JSON 返回错误
func FromJSON(raw []byte) (*Content, error) {
	if !json.Valid(raw) {
		return nil, ErrNotJSON
	}
	b := make([]byte, len(raw))
	copy(b, raw)
	return &Content{typ: TypeJSON, mediaType: DefaultMediaType(TypeJSON), bytes: b}, nil
}

// FromBinary 从二进制构造；mediaType 为空时使用默认值
func FromBinary(data []byte, mediaType string) *Content {
	if mediaType == "" {
		mediaType = DefaultMediaType(TypeBinary)
	}
	b := make([]byte, len(data))
	copy(b, data)
	return &Content{typ: TypeBinary, mediaType: mediaType, bytes: b}
}

// FromMedia 按给定媒体类型构造 image/audio/video 等负载
func FromMedia(t Type, data []byte, mediaType string) *Content {
	if mediaType == "" {
		mediaType = DefaultMediaType(t)
	}
	b := make([]byte, len(data))
	copy(b, data)
	return &Content{typ: t, mediaType: mediaType, bytes: b}
}

func (c *Content) Type() Type        { return c.typ }
func (c *Content) MediaType() string { return c.mediaType }
func (c *Content) Size() int         { return len(c.bytes) }

// Bytes 返回内部字节的副本，保持容器不可变
func (c *Content) Bytes() []byte {
	out := make([]byte, len(c.bytes))
	copy(out, c.bytes)
	return out
}

// Text 以字符串读取；二进制类负载拒绝按文本解释
func (c *Content) Text() (string, error) {
	switch c.typ {
	case TypeText, TypeJSON:
		if !utf8.Valid(c.bytes) {
			return "", ErrNotText
		}
		return string(c.bytes), nil
	default:
		return "", fmt.Errorf("%w: %s as text", ErrTypeAccess, c.typ)
	}
}

// JSON 返回原始 JSON 字节（仅 json 类型）
func (c *Content) JSON() ([]byte, error) {
	if c.typ != TypeJSON {
		return nil, fmt.Errorf("%w: %s as json", ErrTypeAccess, c.typ)
	}
	return c.Bytes(), nil
}

// Equal 文本/JSON 比较字节，二进制比较字节和 mediaType
func (c *Content) Equal(o *Content) bool {
	if c == nil || o == nil {
		return c == o
	}
	if c.typ != o.typ || len(c.bytes) != len(o.bytes) {
		return false
	}
	for i := range c.bytes {
		if c.bytes[i] != o.bytes[i] {
			return false
		}
	}
	switch c.typ {
	case TypeText, TypeJSON:
		return true
	default:
		return c.mediaType == o.mediaType
	}
}

// wire 为线上 JSON 表示：文本与 JSON 内联，二进制走 base64（encoding/json 自动处理 []byte）
type wire struct {
	Type      Type            `json:"type"`
	MediaType string          `json:"mediaType"`
	Text      string          `json:"text,omitempty"`
	JSON      json.RawMessage `json:"json,omitempty"`
	Data      []byte          `json:"data,omitempty"`
}

func (c *Content) MarshalJSON() ([]byte, error) {
	w := wire{Type: c.typ, MediaType: c.mediaType}
	switch c.typ {
	case TypeText:
		w.Text = string(c.bytes)
	case TypeJSON:
		w.JSON = json.RawMessage(c.bytes)
	default:
		w.Data = c.bytes
	}
	return json.Marshal(w)
}

func (c *Content) UnmarshalJSON(raw []byte) error {
	var w wire
	if err := json.Unmarshal(raw, &w); err != nil {
		return err
	}
	if w.Type == "" {
		// 对端省略 type 时按出现的负载字段推断
		switch {
		case w.Text != "":
			w.Type = TypeText
		case len(w.JSON) > 0:
			w.Type = TypeJSON
		case len(w.Data) > 0:
			w.Type = TypeBinary
		default:
			w.Type = TypeUnknown
		}
	}
	c.typ = w.Type
	if w.MediaType != "" {
		c.mediaType = w.MediaType
	} else {
		c.mediaType = DefaultMediaType(w.Type)
	}
	switch w.Type {
	case TypeText:
		c.bytes = []byte(w.Text)
	case TypeJSON:
		if len(w.JSON) > 0 && !json.Valid(w.JSON) {
			return ErrNotJSON
		}
		c.bytes = []byte(w.JSON)
	default:
		c.bytes = w.Data
	}
	return nil
}
