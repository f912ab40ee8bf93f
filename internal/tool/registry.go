package tool

import (
	"github.com/hongjun500/mcpd-go/internal/common"
	"github.com/hongjun500/mcpd-go/internal/observe"
	"github.com/hongjun500/mcpd-go/internal/protocol"
	"github.com/hongjun500/mcpd-go/internal/script"
	"github.com/hongjun500/mcpd-go/pkg/logger"
)

var log = logger.M("TOOLS")

// Authorizer 可插拔的授权钩子；返回 false 则 ACCESS_DENIED
type Authorizer func(sessionID, toolName string) bool

// Store 持久化后端（外部协作者），只有 Persistent 工具参与
type Store interface {
	Save(def *Definition) error
	Load(name string) (*Definition, error)
	LoadAll() ([]*Definition, error)
	Delete(name string) error
}

const maxCompositeDepth = 8

// Registry 名字到工具定义的映射，至多 maxTools 个。
// 注册/执行都发生在 pump 协程，无锁。
type Registry struct {
	maxTools   int
	openAccess bool
	defs       map[string]*Definition
	authorizer Authorizer
	store      Store
	engine     script.Engine
	clock      common.Clock
}

func NewRegistry(maxTools int, openAccess bool, clock common.Clock) *Registry {
	return &Registry{
		maxTools:   maxTools,
		openAccess: openAccess,
		defs:       make(map[string]*Definition),
		clock:      clock,
	}
}

// SetAuthorizer 安装显式授权策略，替代 initialOpenAccess 的缺省行为
func (r *Registry) SetAuthorizer(a Authorizer) { r.authorizer = a }

// SetStore 安装持久化后端
func (r *Registry) SetStore(s Store) { r.store = s }

// SetEngine 安装脚本解释器
func (r *Registry) SetEngine(e script.Engine) { r.engine = e }

// Register 注册工具。相同定义幂等；同名不同定义拒绝；超上限拒绝。
func (r *Registry) Register(def *Definition) error {
	if !ValidName(def.Name) {
		return protocol.NewError(protocol.CodeInvalidParameters, "invalid tool name %q", def.Name)
	}
	if existing, ok := r.defs[def.Name]; ok {
		if existing.equal(def) {
			return nil
		}
		return protocol.NewError(protocol.CodeAlreadyRegistered,
			"tool %q already registered with a different definition", def.Name)
	}
	if r.maxTools > 0 && len(r.defs) >= r.maxTools {
		return protocol.NewError(protocol.CodeTooManyTools, "tool limit %d reached", r.maxTools)
	}
	if def.CreatedMs == 0 {
		def.CreatedMs = r.clock.NowMs()
	}
	r.defs[def.Name] = def
	log.Debugf("registered tool %s kind=%s dynamic=%v", def.Name, def.Kind, def.IsDynamic)
	return nil
}

// Unregister 注销工具；持久化副本一并删除
func (r *Registry) Unregister(name string) error {
	def, ok := r.defs[name]
	if !ok {
		return protocol.NewError(protocol.CodeNotFound, "tool %q not registered", name)
	}
	delete(r.defs, name)
	if def.Persistent && r.store != nil {
		if err := r.store.Delete(name); err != nil {
			log.Warnf("delete persisted tool %s: %v", name, err)
		}
	}
	return nil
}

// Find 查找定义
func (r *Registry) Find(name string) (*Definition, bool) {
	def, ok := r.defs[name]
	return def, ok
}

// List 已注册工具名（无序）
func (r *Registry) List() []*Definition {
	out := make([]*Definition, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, d)
	}
	return out
}

func (r *Registry) Count() int { return len(r.defs) }

// Execute 查找、授权、解析参数并按种类分发。
// deferred 为 true 时结果无效，完成经 completeOperation 投递。
func (r *Registry) Execute(inv *Invocation, name string, paramsJSON []byte) (res Result, deferred bool) {
	res, deferred = r.execute(inv, name, paramsJSON, 0)
	// 延迟调用的结果尚不存在，等 completeOperation 或超时落定再计数
	if !deferred {
		observe.IncToolExecution(res.Status.String())
	}
	return res, deferred
}

func (r *Registry) execute(inv *Invocation, name string, paramsJSON []byte, depth int) (Result, bool) {
	def, ok := r.defs[name]
	if !ok {
		return Fail(StatusNotFound, "no tool named "+name), false
	}
	if !r.authorized(inv.SessionID, name) {
		return Fail(StatusAccessDenied, "access to "+name+" denied"), false
	}
	params, err := ParseParams(def.Params, paramsJSON)
	if err != nil {
		return Fail(statusFromCode(protocol.CodeOf(err)), err.Error()), false
	}
	inv.Params = params

	switch def.Kind {
	case KindNative:
		res := def.Native(inv)
		if inv.Deferred() {
			return Result{}, true
		}
		return res, false
	case KindComposite:
		return r.executeComposite(inv, def, depth), false
	case KindScript, KindBytecode:
		return r.executeScript(inv, def), false
	}
	return Fail(StatusExecutionError, "tool has no executable body"), false
}

func (r *Registry) authorized(sessionID, toolName string) bool {
	if r.authorizer != nil {
		return r.authorizer(sessionID, toolName)
	}
	return r.openAccess
}

// ---- 持久化钩子（注册表只对 Persistent 工具调用） ----

// Save 持久化单个工具
func (r *Registry) Save(name string) error {
	def, ok := r.defs[name]
	if !ok {
		return protocol.NewError(protocol.CodeNotFound, "tool %q not registered", name)
	}
	if !def.Persistent || r.store == nil {
		return nil
	}
	return r.store.Save(def)
}

// Load 从外部存储恢复单个工具
func (r *Registry) Load(name string) error {
	if r.store == nil {
		return nil
	}
	def, err := r.store.Load(name)
	if err != nil {
		return err
	}
	return r.Register(def)
}

// LoadAll 启动时恢复全部持久化工具；单个失败只记日志
func (r *Registry) LoadAll() int {
	if r.store == nil {
		return 0
	}
	defs, err := r.store.LoadAll()
	if err != nil {
		log.Warnf("load persisted tools: %v", err)
		return 0
	}
	n := 0
	for _, def := range defs {
		if err := r.Register(def); err != nil {
			log.Warnf("restore tool %s: %v", def.Name, err)
			continue
		}
		n++
	}
	if n > 0 {
		log.Infof("restored %d persisted tools", n)
	}
	return n
}
