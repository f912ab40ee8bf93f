package event

import (
	"sort"

	"github.com/hongjun500/mcpd-go/internal/content"
	"github.com/hongjun500/mcpd-go/pkg/logger"
)

// Output 日志输出目标位图
type Output uint8

const (
	OutputConsole Output = 1 << iota
	OutputSerial
	OutputFile
	OutputMemoryRing
	OutputCustom
	OutputMCPEvent
)

var outputNames = []struct {
	bit  Output
	name string
}{
	{OutputConsole, "console"},
	{OutputSerial, "serial"},
	{OutputFile, "file"},
	{OutputMemoryRing, "memory"},
	{OutputCustom, "custom"},
	{OutputMCPEvent, "mcp"},
}

// LogConfig 运行期可变的日志配置
type LogConfig struct {
	Enabled           bool
	MaxLevel          logger.Level
	Outputs           Output
	IncludeTimestamp  bool
	IncludeLevelName  bool
	IncludeModuleName bool
	FilterByModule    bool
	AllowedModules    map[string]struct{}
}

// DefaultLogConfig 启动缺省：INFO 级、控制台加 MCP 事件输出、模块过滤关闭
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Enabled:           true,
		MaxLevel:          logger.LevelInfo,
		Outputs:           OutputConsole | OutputMCPEvent,
		IncludeTimestamp:  true,
		IncludeLevelName:  true,
		IncludeModuleName: true,
		AllowedModules:    make(map[string]struct{}),
	}
}

// Accepts 判断一条记录是否通过过滤。模块过滤是精确字符串匹配。
func (c *LogConfig) Accepts(rec logger.Record) bool {
	if !c.Enabled || c.Outputs&OutputMCPEvent == 0 {
		return false
	}
	if rec.Level == logger.LevelNone || rec.Level > c.MaxLevel {
		return false
	}
	if c.FilterByModule {
		if _, ok := c.AllowedModules[rec.Module]; !ok {
			return false
		}
	}
	return true
}

// Snapshot 当前配置的 JSON 形态，用于 getConfig 与 log_config 事件
func (c *LogConfig) Snapshot() *content.Content {
	var outputs []string
	for _, o := range outputNames {
		if c.Outputs&o.bit != 0 {
			outputs = append(outputs, o.name)
		}
	}
	modules := make([]string, 0, len(c.AllowedModules))
	for m := range c.AllowedModules {
		modules = append(modules, m)
	}
	sort.Strings(modules)

	b := content.NewObject().
		SetBool("enabled", c.Enabled).
		SetInt("maxLevel", int64(c.MaxLevel)).
		SetString("maxLevelName", c.MaxLevel.Name()).
		SetBool("includeTimestamp", c.IncludeTimestamp).
		SetBool("includeLevelName", c.IncludeLevelName).
		SetBool("includeModuleName", c.IncludeModuleName).
		SetBool("filterByModule", c.FilterByModule)
	for _, o := range outputs {
		b.SetRaw("outputs.-1", []byte(`"`+o+`"`))
	}
	for _, m := range modules {
		b.SetRaw("allowedModules.-1", []byte(`"`+m+`"`))
	}
	return b.MustBuild()
}

func parseOutputs(names []string) Output {
	var out Output
	for _, n := range names {
		for _, o := range outputNames {
			if o.name == n {
				out |= o.bit
			}
		}
	}
	return out
}
