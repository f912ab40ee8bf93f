package tool

// executeScript 把调用转交嵌入式解释器。脚本工具体的 init/deinit/
// read/write/control/getStatus 映射为模块内同名函数；工具调用本身
// 走模块的 call 入口（函数名取参数 action，缺省 call）。
func (r *Registry) executeScript(inv *Invocation, def *Definition) Result {
	if r.engine == nil {
		return Fail(StatusExecutionError, "no script engine installed")
	}
	if err := r.engine.CreateModule(def.Name, def.Script); err != nil {
		return Fail(StatusExecutionError, "create module: "+err.Error())
	}
	fn := "call"
	if inv.Params.Has("action") {
		if a := inv.Params.String("action"); a != "" {
			fn = a
		}
	}
	out, err := r.engine.Call(def.Name, fn, string(inv.Params.JSON()))
	if err != nil {
		return Fail(StatusExecutionError, err.Error())
	}
	return Ok(out)
}
