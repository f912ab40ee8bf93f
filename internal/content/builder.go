package content

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Builder 增量拼装 JSON 负载，避免手工拼接 JSON 字符串
type Builder struct {
	raw []byte
	err error
}

// NewObject 以空对象开始
func NewObject() *Builder { return &Builder{raw: []byte("{}")} }

// NewArray 以空数组开始
func NewArray() *Builder { return &Builder{raw: []byte("[]")} }

func (b *Builder) set(key string, v any) *Builder {
	if b.err != nil {
		return b
	}
	b.raw, b.err = sjson.SetBytes(b.raw, key, v)
	return b
}

func (b *Builder) SetString(key, v string) *Builder { return b.set(key, v) }
func (b *Builder) SetBool(key string, v bool) *Builder { return b.set(key, v) }
func (b *Builder) SetInt(key string, v int64) *Builder { return b.set(key, v) }
func (b *Builder) SetNumber(key string, v float64) *Builder { return b.set(key, v) }

// SetRaw 以原始 JSON 片段赋值
func (b *Builder) SetRaw(key string, rawJSON []byte) *Builder {
	if b.err != nil {
		return b
	}
	if !json.Valid(rawJSON) {
		b.err = ErrNotJSON
		return b
	}
	b.raw, b.err = sjson.SetRawBytes(b.raw, key, rawJSON)
	return b
}

// SetObject 嵌入另一个 JSON 类型的 Content
func (b *Builder) SetObject(key string, c *Content) *Builder {
	if b.err != nil {
		return b
	}
	raw, err := c.JSON()
	if err != nil {
		b.err = err
		return b
	}
	return b.SetRaw(key, raw)
}

// AppendString 追加到数组末尾（key 为数组路径，根数组用 "-1" 直接追加）
func (b *Builder) AppendString(v string) *Builder { return b.set("-1", v) }

// Build 产出不可变的 JSON Content
func (b *Builder) Build() (*Content, error) {
	if b.err != nil {
		return nil, b.err
	}
	return FromJSON(b.raw)
}

// MustBuild 仅用于程序内部常量形态的负载
func (b *Builder) MustBuild() *Content {
	c, err := b.Build()
	if err != nil {
		panic(err)
	}
	return c
}

// ---- 类型安全的取值器 ----

// GetString 按 gjson 路径取字符串，值存在但不是字符串时报类型错误
func (c *Content) GetString(path string) (string, error) {
	r, err := c.get(path)
	if err != nil {
		return "", err
	}
	if r.Type != gjson.String {
		return "", fmt.Errorf("%w: %s is not a string", ErrTypeAccess, path)
	}
	return r.Str, nil
}

func (c *Content) GetBool(path string) (bool, error) {
	r, err := c.get(path)
	if err != nil {
		return false, err
	}
	if !r.IsBool() {
		return false, fmt.Errorf("%w: %s is not a bool", ErrTypeAccess, path)
	}
	return r.Bool(), nil
}

func (c *Content) GetNumber(path string) (float64, error) {
	r, err := c.get(path)
	if err != nil {
		return 0, err
	}
	if r.Type != gjson.Number {
		return 0, fmt.Errorf("%w: %s is not a number", ErrTypeAccess, path)
	}
	return r.Num, nil
}

// GetRaw 返回路径下的原始 JSON 片段
func (c *Content) GetRaw(path string) ([]byte, error) {
	r, err := c.get(path)
	if err != nil {
		return nil, err
	}
	return []byte(r.Raw), nil
}

// Has 判断路径是否存在
func (c *Content) Has(path string) bool {
	if c.typ != TypeJSON {
		return false
	}
	return gjson.GetBytes(c.bytes, path).Exists()
}

func (c *Content) get(path string) (gjson.Result, error) {
	if c.typ != TypeJSON {
		return gjson.Result{}, fmt.Errorf("%w: %s content has no fields", ErrTypeAccess, c.typ)
	}
	r := gjson.GetBytes(c.bytes, path)
	if !r.Exists() {
		return gjson.Result{}, fmt.Errorf("content: no value at %q", path)
	}
	return r, nil
}
