package tool

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// executeComposite 顺序执行各步：模板展开 → 子工具调用 → 结果绑定。
// 任一步失败立即中止并带出第一个失败步的信息，不做回滚。
// 最终结果为最后一步的结果 JSON。
func (r *Registry) executeComposite(inv *Invocation, def *Definition, depth int) Result {
	if depth >= maxCompositeDepth {
		return Fail(StatusExecutionError, "composite nesting too deep")
	}

	// 外层参数作为起始作用域，绑定名 params
	bindings := map[string]string{"params": string(inv.Params.JSON())}

	last := "{}"
	for i, step := range def.Steps {
		expanded, err := expandTemplate(step.ParamsTemplate, bindings)
		if err != nil {
			return Fail(StatusExecutionError,
				fmt.Sprintf("step %d (%s): %v", i, step.ToolName, err))
		}
		sub := &Invocation{SessionID: inv.SessionID, OperationID: inv.OperationID}
		res, deferred := r.execute(sub, step.ToolName, expanded, depth+1)
		if deferred {
			return Fail(StatusExecutionError,
				fmt.Sprintf("step %d (%s): deferred completion is not allowed inside composite tools", i, step.ToolName))
		}
		if res.Status != StatusSuccess {
			return Fail(StatusExecutionError,
				fmt.Sprintf("step %d (%s): %s", i, step.ToolName, res.Err))
		}
		if step.Bind != "" {
			bindings[step.Bind] = res.JSON
		}
		last = res.JSON
	}
	return Ok(last)
}

// expandTemplate 展开参数模板。模板本身是 JSON；其中任何以 '$' 开头的
// 字符串值被解释为 $bind 或 $bind.path 形式的引用，替换为此前步骤
// 结果中的对应值（保持原始 JSON 类型）。"$$" 转义字面 '$'。
func expandTemplate(template string, bindings map[string]string) ([]byte, error) {
	if strings.TrimSpace(template) == "" {
		return []byte("{}"), nil
	}
	var node any
	if err := json.Unmarshal([]byte(template), &node); err != nil {
		return nil, fmt.Errorf("params template is not json: %w", err)
	}
	out, err := expandNode(node, bindings)
	if err != nil {
		return nil, err
	}
	return json.Marshal(out)
}

func expandNode(node any, bindings map[string]string) (any, error) {
	switch v := node.(type) {
	case string:
		return expandString(v, bindings)
	case map[string]any:
		for k, child := range v {
			expanded, err := expandNode(child, bindings)
			if err != nil {
				return nil, err
			}
			v[k] = expanded
		}
		return v, nil
	case []any:
		for i, child := range v {
			expanded, err := expandNode(child, bindings)
			if err != nil {
				return nil, err
			}
			v[i] = expanded
		}
		return v, nil
	default:
		return node, nil
	}
}

func expandString(s string, bindings map[string]string) (any, error) {
	if strings.HasPrefix(s, "$$") {
		return s[1:], nil
	}
	if !strings.HasPrefix(s, "$") || len(s) < 2 {
		return s, nil
	}
	ref := s[1:]
	bind, path, _ := strings.Cut(ref, ".")
	scope, ok := bindings[bind]
	if !ok {
		return nil, fmt.Errorf("unknown binding %q", bind)
	}
	if path == "" {
		// 整个步骤结果
		var whole any
		if err := json.Unmarshal([]byte(scope), &whole); err != nil {
			return nil, fmt.Errorf("binding %q holds invalid json", bind)
		}
		return whole, nil
	}
	res := gjson.Get(scope, path)
	if !res.Exists() {
		return nil, fmt.Errorf("binding %q has no value at %q", bind, path)
	}
	return res.Value(), nil
}
