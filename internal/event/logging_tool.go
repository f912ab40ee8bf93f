package event

import (
	"errors"

	"github.com/hongjun500/mcpd-go/internal/tool"
	"github.com/hongjun500/mcpd-go/pkg/logger"
)

const loggingSchema = `{
  "type": "object",
  "properties": {
    "action": {"type": "string"},
    "config": {"type": "object"},
    "level": {"type": "string"},
    "moduleName": {"type": "string"}
  },
  "required": ["action"]
}`

// LoggingTool 内置工具 mcp.logging：运行期重塑日志行为。
// 每次变更后都广播一条 log_config 事件。
func LoggingTool(b *Bridge) *tool.Definition {
	params, _ := tool.ParamsFromSchema(loggingSchema)
	return &tool.Definition{
		Name:        "mcp.logging",
		Description: "Inspect and reshape runtime logging configuration",
		Schema:      loggingSchema,
		Kind:        tool.KindNative,
		Params:      params,
		Native:      func(inv *tool.Invocation) tool.Result { return b.runLoggingAction(inv) },
	}
}

func (b *Bridge) runLoggingAction(inv *tool.Invocation) tool.Result {
	cfg := &b.logCfg
	mutated := true

	switch action := inv.Params.String("action"); action {
	case "getConfig":
		snap := cfg.Snapshot()
		raw, _ := snap.JSON()
		return tool.Ok(`{"success":true,"config":` + string(raw) + `}`)

	case "setConfig":
		if err := applyConfig(cfg, inv.Params.Object("config")); err != nil {
			return tool.Fail(tool.StatusInvalidParameters, err.Error())
		}

	case "enableLogging":
		cfg.Enabled = true
	case "disableLogging":
		cfg.Enabled = false

	case "setLevel":
		lv, ok := logger.ParseLevel(inv.Params.String("level"))
		if !ok {
			return tool.Fail(tool.StatusInvalidParameters, "unknown level "+inv.Params.String("level"))
		}
		cfg.MaxLevel = lv

	case "addModule":
		name := inv.Params.String("moduleName")
		if name == "" {
			return tool.Fail(tool.StatusInvalidParameters, "moduleName required")
		}
		cfg.AllowedModules[name] = struct{}{}
	case "removeModule":
		delete(cfg.AllowedModules, inv.Params.String("moduleName"))
	case "clearModules":
		cfg.AllowedModules = make(map[string]struct{})

	case "enableModuleFilter":
		cfg.FilterByModule = true
	case "disableModuleFilter":
		cfg.FilterByModule = false

	default:
		return tool.Fail(tool.StatusInvalidParameters, "unknown action "+action)
	}

	if mutated {
		b.EmitConfig()
	}
	return tool.Ok(`{"success":true}`)
}

// applyConfig 应用 setConfig 的整体快照；未给出的字段保持不变
func applyConfig(cfg *LogConfig, obj map[string]any) error {
	if obj == nil {
		return errMissingConfig
	}
	if v, ok := obj["enabled"].(bool); ok {
		cfg.Enabled = v
	}
	if v, ok := obj["maxLevelName"].(string); ok {
		if lv, valid := logger.ParseLevel(v); valid {
			cfg.MaxLevel = lv
		}
	} else if v, ok := obj["maxLevel"].(float64); ok {
		cfg.MaxLevel = logger.Level(int(v))
	}
	if v, ok := obj["includeTimestamp"].(bool); ok {
		cfg.IncludeTimestamp = v
	}
	if v, ok := obj["includeLevelName"].(bool); ok {
		cfg.IncludeLevelName = v
	}
	if v, ok := obj["includeModuleName"].(bool); ok {
		cfg.IncludeModuleName = v
	}
	if v, ok := obj["filterByModule"].(bool); ok {
		cfg.FilterByModule = v
	}
	if v, ok := obj["outputs"].([]any); ok {
		names := make([]string, 0, len(v))
		for _, n := range v {
			if s, ok := n.(string); ok {
				names = append(names, s)
			}
		}
		cfg.Outputs = parseOutputs(names)
	}
	if v, ok := obj["allowedModules"].([]any); ok {
		cfg.AllowedModules = make(map[string]struct{}, len(v))
		for _, n := range v {
			if s, ok := n.(string); ok {
				cfg.AllowedModules[s] = struct{}{}
			}
		}
	}
	return nil
}

var errMissingConfig = errors.New("setConfig requires a config object")
