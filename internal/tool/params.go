package tool

import (
	"encoding/json"
	"math"

	"github.com/hongjun500/mcpd-go/internal/protocol"
)

// ParamType 参数类型
type ParamType string

const (
	ParamBool   ParamType = "bool"
	ParamInt    ParamType = "int"
	ParamFloat  ParamType = "float"
	ParamString ParamType = "string"
	ParamObject ParamType = "object"
	ParamArray  ParamType = "array"
)

// ParamDef 工具作者声明的参数定义
type ParamDef struct {
	Name     string    `json:"name"`
	Type     ParamType `json:"type"`
	Required bool      `json:"required"`
	Default  any       `json:"default,omitempty"`
}

// Params 解析校验之后的参数包。缺省值已代入。
type Params struct {
	values map[string]any
}

// ParseParams 按声明校验入站参数 JSON：
// 缺必填 → invalid_parameters；缺可选有缺省 → 代入缺省；
// 类型不匹配 → invalid_parameters，允许 int→float 放宽、禁止收窄。
func ParseParams(defs []ParamDef, paramsJSON []byte) (*Params, error) {
	values := make(map[string]any)
	if len(paramsJSON) > 0 {
		if err := json.Unmarshal(paramsJSON, &values); err != nil {
			return nil, protocol.NewError(protocol.CodeInvalidParameters, "params is not a json object: %v", err)
		}
	}
	for _, def := range defs {
		v, present := values[def.Name]
		if !present {
			if def.Required {
				return nil, protocol.NewError(protocol.CodeInvalidParameters,
					"missing required parameter %q", def.Name)
			}
			if def.Default != nil {
				values[def.Name] = def.Default
			}
			continue
		}
		coerced, ok := coerce(def.Type, v)
		if !ok {
			return nil, protocol.NewError(protocol.CodeInvalidParameters,
				"parameter %q is not a %s", def.Name, def.Type)
		}
		values[def.Name] = coerced
	}
	return &Params{values: values}, nil
}

// coerce 校验并归一化一个 JSON 值到声明类型
func coerce(t ParamType, v any) (any, bool) {
	switch t {
	case ParamBool:
		b, ok := v.(bool)
		return b, ok
	case ParamInt:
		f, ok := v.(float64)
		if !ok || math.Trunc(f) != f {
			return nil, false // float→int 收窄不允许
		}
		return int64(f), true
	case ParamFloat:
		switch n := v.(type) {
		case float64:
			return n, true
		case int64: // 已归一的整数放宽为浮点
			return float64(n), true
		}
		return nil, false
	case ParamString:
		s, ok := v.(string)
		return s, ok
	case ParamObject:
		o, ok := v.(map[string]any)
		return o, ok
	case ParamArray:
		a, ok := v.([]any)
		return a, ok
	}
	return nil, false
}

func (p *Params) Has(name string) bool {
	_, ok := p.values[name]
	return ok
}

func (p *Params) Bool(name string) bool {
	b, _ := p.values[name].(bool)
	return b
}

func (p *Params) Int(name string) int64 {
	switch v := p.values[name].(type) {
	case int64:
		return v
	case float64:
		return int64(v)
	}
	return 0
}

func (p *Params) Float(name string) float64 {
	switch v := p.values[name].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	}
	return 0
}

func (p *Params) String(name string) string {
	s, _ := p.values[name].(string)
	return s
}

func (p *Params) Object(name string) map[string]any {
	o, _ := p.values[name].(map[string]any)
	return o
}

func (p *Params) Array(name string) []any {
	a, _ := p.values[name].([]any)
	return a
}

// JSON 规范化后的参数对象（缺省值已代入），供脚本/组合工具转发
func (p *Params) JSON() []byte {
	raw, err := json.Marshal(p.values)
	if err != nil {
		return []byte("{}")
	}
	return raw
}
