package script

import (
	"bytes"
	"context"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/vk/logicrouter/internal/config"
	"github.com/vk/logicrouter/internal/ctxlog"
	"github.com/vk/logicrouter/internal/registry"
	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
)

const defaultLuaPoolSize = 4

// luaLibs are the only standard libraries opened in a script state.
var luaLibs = []struct {
	name string
	open lua.LGFunction
}{
	{lua.BaseLibName, lua.OpenBase},
	{lua.TabLibName, lua.OpenTable},
	{lua.StringLibName, lua.OpenString},
	{lua.MathLibName, lua.OpenMath},
}

// luaDisabledGlobals are base library functions removed from every state.
var luaDisabledGlobals = []string{"dofile", "loadfile", "require", "module"}

// LuaRuntime runs Lua scripts on gopher-lua. A script either returns its
// entry point from the chunk or defines it as a global function.
type LuaRuntime struct {
	PoolSize int
}

// NewLuaRuntime creates a Lua runtime with the default pool size.
func NewLuaRuntime() *LuaRuntime {
	return &LuaRuntime{PoolSize: defaultLuaPoolSize}
}

// Language implements Runtime.
func (r *LuaRuntime) Language() config.Language {
	return config.LanguageLua
}

// Load implements Runtime.
func (r *LuaRuntime) Load(ctx context.Context, def *config.LogicDefinition) (registry.Handler, error) {
	logger := ctxlog.FromContext(ctx)

	src, err := os.ReadFile(def.Source)
	if err != nil {
		return nil, newResolutionError(def, errors.Wrap(err, "could not read script"))
	}
	chunk, err := parse.Parse(bytes.NewReader(src), def.Source)
	if err != nil {
		return nil, newResolutionError(def, errors.Wrap(err, "could not parse script"))
	}
	proto, err := lua.Compile(chunk, def.Source)
	if err != nil {
		return nil, newResolutionError(def, errors.Wrap(err, "could not compile script"))
	}

	probe, entry, err := resolveLua(proto, def.Name)
	if err != nil {
		return nil, newResolutionError(def, err)
	}
	if entry == "" {
		logger.Debug("Lua entry point selected.", "name", def.Name, "function", "<returned>")
	} else {
		logger.Debug("Lua entry point selected.", "name", def.Name, "function", entry)
	}

	size := r.PoolSize
	if size <= 0 {
		size = defaultLuaPoolSize
	}
	pool := newStatePool(size, func() (*luaVM, error) {
		return instantiate(proto, entry)
	})
	pool.put(probe)
	return &luaHandler{name: def.Name, pool: pool}, nil
}

// luaVM is a Lua state with the script loaded and its entry point at hand.
type luaVM struct {
	L  *lua.LState
	fn *lua.LFunction
}

func newLuaState() (*lua.LState, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range luaLibs {
		if err := L.CallByParam(lua.P{Fn: L.NewFunction(lib.open), NRet: 0, Protect: true}, lua.LString(lib.name)); err != nil {
			L.Close()
			return nil, errors.Wrapf(err, "could not open lua library %q", lib.name)
		}
	}
	// Scripts must not reach the file system through the base library.
	for _, name := range luaDisabledGlobals {
		L.SetGlobal(name, lua.LNil)
	}
	L.SetGlobal("null", markersOf(L).null)
	return L, nil
}

// run executes the chunk and returns its first return value.
func run(L *lua.LState, proto *lua.FunctionProto) (lua.LValue, error) {
	L.Push(L.NewFunctionFromProto(proto))
	if err := L.PCall(0, 1, nil); err != nil {
		return nil, errors.Wrap(err, "script execution failed")
	}
	ret := L.Get(-1)
	L.Pop(1)
	return ret, nil
}

// resolveLua executes the chunk on a fresh state and determines the entry
// point. An empty entry name means the chunk returned its entry point.
func resolveLua(proto *lua.FunctionProto, name string) (*luaVM, string, error) {
	L, err := newLuaState()
	if err != nil {
		return nil, "", err
	}
	baseline := globalNames(L)

	ret, err := run(L, proto)
	if err != nil {
		L.Close()
		return nil, "", err
	}
	if fn, ok := ret.(*lua.LFunction); ok {
		return &luaVM{L: L, fn: fn}, "", nil
	}

	var candidates []string
	L.G.Global.ForEach(func(k, v lua.LValue) {
		key, ok := k.(lua.LString)
		if !ok || v.Type() != lua.LTFunction {
			return
		}
		n := string(key)
		if _, builtin := baseline[n]; builtin || strings.HasPrefix(n, "__") {
			return
		}
		candidates = append(candidates, n)
	})

	entry, err := selectEntryPoint(name, candidates)
	if err != nil {
		L.Close()
		return nil, "", err
	}
	return &luaVM{L: L, fn: L.GetGlobal(entry).(*lua.LFunction)}, entry, nil
}

// instantiate builds another state for a script whose entry point is known.
func instantiate(proto *lua.FunctionProto, entry string) (*luaVM, error) {
	L, err := newLuaState()
	if err != nil {
		return nil, err
	}
	ret, err := run(L, proto)
	if err != nil {
		L.Close()
		return nil, err
	}

	var fn *lua.LFunction
	if entry == "" {
		fn, _ = ret.(*lua.LFunction)
	} else {
		fn, _ = L.GetGlobal(entry).(*lua.LFunction)
	}
	if fn == nil {
		L.Close()
		return nil, errors.Errorf("entry point %q vanished on re-execution", entry)
	}
	return &luaVM{L: L, fn: fn}, nil
}

func globalNames(L *lua.LState) map[string]struct{} {
	names := make(map[string]struct{})
	L.G.Global.ForEach(func(k, _ lua.LValue) {
		if key, ok := k.(lua.LString); ok {
			names[string(key)] = struct{}{}
		}
	})
	return names
}

// statePool keeps up to a fixed number of idle states. States are not safe
// for concurrent use, so every call borrows one exclusively.
type statePool struct {
	idle  chan *luaVM
	newVM func() (*luaVM, error)
}

func newStatePool(size int, newVM func() (*luaVM, error)) *statePool {
	return &statePool{idle: make(chan *luaVM, size), newVM: newVM}
}

func (p *statePool) get() (*luaVM, error) {
	select {
	case vm := <-p.idle:
		return vm, nil
	default:
		return p.newVM()
	}
}

func (p *statePool) put(vm *luaVM) {
	select {
	case p.idle <- vm:
	default:
		vm.L.Close()
	}
}

func (p *statePool) close() {
	for {
		select {
		case vm := <-p.idle:
			vm.L.Close()
		default:
			return
		}
	}
}

// luaHandler calls a Lua entry point with the request body converted to
// Lua values.
type luaHandler struct {
	name string
	pool *statePool
}

// Handle implements registry.Handler.
func (h *luaHandler) Handle(ctx context.Context, input any) (any, error) {
	vm, err := h.pool.get()
	if err != nil {
		return nil, err
	}

	vm.L.SetContext(ctx)
	arg, err := toLua(vm.L, input)
	if err != nil {
		vm.L.RemoveContext()
		h.pool.put(vm)
		return nil, &registry.InputError{Err: err}
	}
	err = vm.L.CallByParam(lua.P{Fn: vm.fn, NRet: 1, Protect: true}, arg)
	vm.L.RemoveContext()
	if err != nil {
		// A failed call may leave the state inconsistent; drop it.
		vm.L.Close()
		return nil, errors.Wrapf(err, "lua handler %s failed", h.name)
	}

	ret := vm.L.Get(-1)
	vm.L.Pop(1)
	out, err := fromLua(vm.L, ret)
	h.pool.put(vm)
	if err != nil {
		return nil, errors.Wrapf(err, "lua handler %s returned an unsupported value", h.name)
	}
	return out, nil
}

// Close releases the idle Lua states.
func (h *luaHandler) Close() error {
	h.pool.close()
	return nil
}
