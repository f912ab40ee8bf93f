package tool

import (
	"encoding/json"
	"strings"
	"unicode"

	"github.com/tidwall/gjson"

	"github.com/hongjun500/mcpd-go/internal/protocol"
)

// Kind 工具体的种类
type Kind string

const (
	KindNative    Kind = "native"
	KindComposite Kind = "composite"
	KindScript    Kind = "script"
	KindBytecode  Kind = "bytecode"
)

// Step 组合工具的一步：先用模板展开参数，再调子工具，结果绑定到 Bind
type Step struct {
	ToolName       string `json:"toolName"`
	ParamsTemplate string `json:"paramsTemplate"`
	Bind           string `json:"resultBinding"`
}

// Definition 注册表中的一个工具
type Definition struct {
	Name        string
	Description string
	Schema      string // JSON-schema 字符串
	Kind        Kind
	Params      []ParamDef

	// ---- 按种类的实现体 ----
	Native NativeFunc
	Steps  []Step
	Script string // script/bytecode 的源码或编译产物（base64）

	IsDynamic  bool
	Persistent bool
	CreatedMs  int64
}

// NativeFunc 原生工具体：拿到解析后的参数包与调用句柄，
// 返回内联结果；也可以 inv.Defer() 之后经 completeOperation 异步完成
type NativeFunc func(inv *Invocation) Result

// Invocation 一次工具调用的上下文
type Invocation struct {
	SessionID   string
	OperationID string
	Params      *Params

	deferred bool
}

// Defer 声明延迟完成：调用方保留操作记录，结果由后续 pump 周期投递
func (inv *Invocation) Defer()         { inv.deferred = true }
func (inv *Invocation) Deferred() bool { return inv.deferred }

// ValidName 工具名：全局唯一、可打印、不含空白；mcp.* 前缀保留给内置工具
func ValidName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if unicode.IsSpace(r) || !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}

// equal 判断两个定义语义相同（幂等注册的依据）
func (d *Definition) equal(o *Definition) bool {
	if d.Name != o.Name || d.Description != o.Description ||
		d.Schema != o.Schema || d.Kind != o.Kind || d.Script != o.Script {
		return false
	}
	if len(d.Steps) != len(o.Steps) {
		return false
	}
	for i := range d.Steps {
		if d.Steps[i] != o.Steps[i] {
			return false
		}
	}
	return true
}

// ParseDefinition 解析动态注册的 JSON 定义。内嵌 schema 必须是可解析的
// JSON-schema 对象，否则 bad_schema。
func ParseDefinition(raw []byte, nowMs int64) (*Definition, error) {
	var reg struct {
		Name        string          `json:"name"`
		Description string          `json:"description"`
		Schema      json.RawMessage `json:"schema"`
		Kind        Kind            `json:"kind"`
		Steps       []Step          `json:"steps"`
		Script      string          `json:"script"`
		Persistent  bool            `json:"persistent"`
	}
	if err := json.Unmarshal(raw, &reg); err != nil {
		return nil, protocol.NewError(protocol.CodeInvalidParameters, "bad registration object: %v", err)
	}
	if !ValidName(reg.Name) {
		return nil, protocol.NewError(protocol.CodeInvalidParameters, "invalid tool name %q", reg.Name)
	}
	if strings.HasPrefix(reg.Name, "mcp.") {
		return nil, protocol.NewError(protocol.CodeAccessDenied, "the mcp.* namespace is reserved")
	}

	// schema 既可以是内联对象也可以是字符串形式
	schema := string(reg.Schema)
	if len(reg.Schema) > 0 && reg.Schema[0] == '"' {
		if err := json.Unmarshal(reg.Schema, &schema); err != nil {
			return nil, protocol.NewError(protocol.CodeBadSchema, "schema is not a string: %v", err)
		}
	}
	params, err := ParamsFromSchema(schema)
	if err != nil {
		return nil, err
	}

	def := &Definition{
		Name:        reg.Name,
		Description: reg.Description,
		Schema:      schema,
		Kind:        reg.Kind,
		Params:      params,
		Steps:       reg.Steps,
		Script:      reg.Script,
		IsDynamic:   true,
		Persistent:  reg.Persistent,
		CreatedMs:   nowMs,
	}
	switch reg.Kind {
	case KindComposite:
		if len(reg.Steps) == 0 {
			return nil, protocol.NewError(protocol.CodeInvalidParameters, "composite tool needs steps")
		}
	case KindScript, KindBytecode:
		if reg.Script == "" {
			return nil, protocol.NewError(protocol.CodeInvalidParameters, "%s tool needs a script body", reg.Kind)
		}
	case KindNative:
		return nil, protocol.NewError(protocol.CodeInvalidParameters, "native tools cannot be registered dynamically")
	default:
		return nil, protocol.NewError(protocol.CodeInvalidParameters, "unknown tool kind %q", reg.Kind)
	}
	return def, nil
}

// ParamsFromSchema 从 JSON-schema 提取参数定义。
// 只认 object 顶层的 properties/required/default。
func ParamsFromSchema(schema string) ([]ParamDef, error) {
	if strings.TrimSpace(schema) == "" {
		return nil, nil
	}
	if !gjson.Valid(schema) {
		return nil, protocol.NewError(protocol.CodeBadSchema, "schema is not valid json")
	}
	root := gjson.Parse(schema)
	if !root.IsObject() {
		return nil, protocol.NewError(protocol.CodeBadSchema, "schema must be a json object")
	}
	if t := root.Get("type"); t.Exists() && t.String() != "object" {
		return nil, protocol.NewError(protocol.CodeBadSchema, "top-level schema type must be object, got %s", t.String())
	}

	required := make(map[string]bool)
	for _, r := range root.Get("required").Array() {
		required[r.String()] = true
	}

	var defs []ParamDef
	var badType string
	root.Get("properties").ForEach(func(key, prop gjson.Result) bool {
		pt, ok := paramType(prop.Get("type").String())
		if !ok {
			badType = prop.Get("type").String()
			return false
		}
		def := ParamDef{Name: key.String(), Type: pt, Required: required[key.String()]}
		if dv := prop.Get("default"); dv.Exists() {
			def.Default = dv.Value()
		}
		defs = append(defs, def)
		return true
	})
	if badType != "" {
		return nil, protocol.NewError(protocol.CodeBadSchema, "unsupported parameter type %q", badType)
	}
	return defs, nil
}

func paramType(s string) (ParamType, bool) {
	switch s {
	case "boolean":
		return ParamBool, true
	case "integer":
		return ParamInt, true
	case "number":
		return ParamFloat, true
	case "string", "": // 缺省按字符串
		return ParamString, true
	case "object":
		return ParamObject, true
	case "array":
		return ParamArray, true
	}
	return "", false
}
