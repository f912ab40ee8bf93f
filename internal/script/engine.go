// Package script 定义嵌入式解释器的协作者接口。核心不关心解释器实现，
// 只要求下面的能力集；解释器错误一律以 execution_error 浮出。
package script

// Engine 嵌入式脚本/字节码解释器
type Engine interface {
	Init() error
	Cleanup() error

	// CreateModule 以给定源码建立命名模块，DeleteModule 释放
	CreateModule(name, source string) error
	DeleteModule(name string) error

	// Eval 求值一段脚本，返回结果 JSON
	Eval(script string) (resultJSON string, err error)

	// Call 调用模块内函数，参数与返回值都是 JSON
	Call(module, function, paramsJSON string) (resultJSON string, err error)

	// RegisterNative 把宿主函数暴露给脚本侧
	RegisterNative(name string, fn func(paramsJSON string) (string, error)) error
}
