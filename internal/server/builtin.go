package server

import (
	"encoding/json"
	"fmt"

	"github.com/hongjun500/mcpd-go/internal/event"
	"github.com/hongjun500/mcpd-go/internal/protocol"
	"github.com/hongjun500/mcpd-go/internal/tool"
)

const registerToolSchema = `{
  "type": "object",
  "properties": {
    "name":        {"type": "string"},
    "description": {"type": "string"},
    "schema":      {"type": "object"},
    "kind":        {"type": "string", "default": "composite"},
    "steps":       {"type": "array"},
    "script":      {"type": "string"},
    "persistent":  {"type": "boolean", "default": false}
  },
  "required": ["name"]
}`

const nameOnlySchema = `{
  "type": "object",
  "properties": {"name": {"type": "string"}},
  "required": ["name"]
}`

const addSchema = `{
  "type": "object",
  "properties": {
    "a": {"type": "number"},
    "b": {"type": "number"}
  },
  "required": ["a", "b"]
}`

// registerBuiltins 安装 mcp.* 命名空间与出厂示例工具
func (s *Server) registerBuiltins() {
	reg := s.registry
	must := func(def *tool.Definition) {
		if err := reg.Register(def); err != nil {
			log.Errorf("builtin %s: %v", def.Name, err)
		}
	}

	must(event.LoggingTool(s.bridge))
	must(s.registerToolDef())
	must(s.unregisterToolDef())
	must(s.listToolsDef())
	must(echoDef())
	must(addDef())
}

// mcp.registerTool 动态注册 composite/script 工具
func (s *Server) registerToolDef() *tool.Definition {
	params, _ := tool.ParamsFromSchema(registerToolSchema)
	return &tool.Definition{
		Name:        "mcp.registerTool",
		Description: "Register a composite or script tool at runtime",
		Schema:      registerToolSchema,
		Kind:        tool.KindNative,
		Params:      params,
		Native: func(inv *tool.Invocation) tool.Result {
			def, err := tool.ParseDefinition(inv.Params.JSON(), s.clock.NowMs())
			if err != nil {
				return failFrom(err)
			}
			if err := s.registry.Register(def); err != nil {
				return failFrom(err)
			}
			if def.Persistent {
				if err := s.registry.Save(def.Name); err != nil {
					log.Warnf("persist tool %s: %v", def.Name, err)
				}
			}
			return tool.Ok(fmt.Sprintf(`{"registered":%q}`, def.Name))
		},
	}
}

// mcp.unregisterTool 注销动态工具；内置与原生工具拒绝
func (s *Server) unregisterToolDef() *tool.Definition {
	params, _ := tool.ParamsFromSchema(nameOnlySchema)
	return &tool.Definition{
		Name:        "mcp.unregisterTool",
		Description: "Remove a dynamically registered tool",
		Schema:      nameOnlySchema,
		Kind:        tool.KindNative,
		Params:      params,
		Native: func(inv *tool.Invocation) tool.Result {
			name := inv.Params.String("name")
			def, ok := s.registry.Find(name)
			if !ok {
				return tool.Fail(tool.StatusNotFound, "no tool named "+name)
			}
			if !def.IsDynamic {
				return tool.Fail(tool.StatusAccessDenied, "cannot unregister built-in tool "+name)
			}
			if err := s.registry.Unregister(name); err != nil {
				return failFrom(err)
			}
			return tool.Ok(fmt.Sprintf(`{"unregistered":%q}`, name))
		},
	}
}

// mcp.listTools 枚举已注册工具
func (s *Server) listToolsDef() *tool.Definition {
	return &tool.Definition{
		Name:        "mcp.listTools",
		Description: "List registered tools",
		Kind:        tool.KindNative,
		Native: func(inv *tool.Invocation) tool.Result {
			type entry struct {
				Name        string `json:"name"`
				Description string `json:"description,omitempty"`
				Kind        string `json:"kind"`
				Dynamic     bool   `json:"dynamic"`
			}
			defs := s.registry.List()
			out := make([]entry, 0, len(defs))
			for _, d := range defs {
				out = append(out, entry{
					Name:        d.Name,
					Description: d.Description,
					Kind:        string(d.Kind),
					Dynamic:     d.IsDynamic,
				})
			}
			raw, err := json.Marshal(map[string]any{"tools": out, "count": len(out)})
			if err != nil {
				return tool.Fail(tool.StatusExecutionError, err.Error())
			}
			return tool.Ok(string(raw))
		},
	}
}

// echo 参数原样返回，用于链路自检
func echoDef() *tool.Definition {
	return &tool.Definition{
		Name:        "echo",
		Description: "Return the given parameters unchanged",
		Kind:        tool.KindNative,
		Native: func(inv *tool.Invocation) tool.Result {
			return tool.Ok(string(inv.Params.JSON()))
		},
	}
}

// add 两数之和，组合工具常见的子步骤
func addDef() *tool.Definition {
	params, _ := tool.ParamsFromSchema(addSchema)
	return &tool.Definition{
		Name:        "add",
		Description: "Add two numbers",
		Schema:      addSchema,
		Kind:        tool.KindNative,
		Params:      params,
		Native: func(inv *tool.Invocation) tool.Result {
			sum := inv.Params.Float("a") + inv.Params.Float("b")
			raw, _ := json.Marshal(map[string]float64{"result": sum})
			return tool.Ok(string(raw))
		},
	}
}

// failFrom 把协议错误折叠成工具结果
func failFrom(err error) tool.Result {
	return tool.FailCode(protocol.CodeOf(err), err.Error())
}
