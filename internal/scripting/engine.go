package scripting

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"path"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/tatianab/storyworld/internal/world"
)

const entityType = "entity"

// Engine wraps a single gopher-lua VM that defines entity kinds.
// Single-goroutine access only (game loop).
type Engine struct {
	vm    *lua.LState
	world *world.World
	log   *zap.Logger

	handles map[world.Handle]*lua.LUserData
	kinds   []string
	text    func(string) (string, error)
}

// NewEngine creates a Lua VM bound to w and installs the kind API.
func NewEngine(w *world.World, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{
		vm:      vm,
		world:   w,
		log:     log,
		handles: make(map[world.Handle]*lua.LUserData),
	}
	e.installAPI()
	w.OnDestroy(func(h world.Handle) { delete(e.handles, h) })
	return e
}

func (e *Engine) Close() { e.vm.Close() }

// SetText installs the resolver behind text(key).
func (e *Engine) SetText(fn func(string) (string, error)) { e.text = fn }

// Kinds lists the kinds registered from Lua, in definition order.
func (e *Engine) Kinds() []string { return e.kinds }

// LoadFS runs every .lua file in dir. A missing dir is not an error.
func (e *Engine) LoadFS(fsys fs.FS, dir string) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".lua" {
			continue
		}
		p := path.Join(dir, entry.Name())
		src, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		if err := e.DoString(p, string(src)); err != nil {
			return err
		}
		e.log.Debug("loaded lua script", zap.String("file", p))
	}
	return nil
}

// DoString runs a chunk of Lua under the given chunk name.
func (e *Engine) DoString(name, src string) error {
	fn, err := e.vm.Load(bytes.NewBufferString(src), name)
	if err != nil {
		return fmt.Errorf("load %s: %w", name, err)
	}
	e.vm.Push(fn)
	if err := e.vm.PCall(0, 0, nil); err != nil {
		return fmt.Errorf("run %s: %w", name, err)
	}
	return nil
}

// push converts h to its Lua userdata. Dead or zero handles become nil. The
// same handle always maps to the same userdata so == works in scripts.
func (e *Engine) push(h world.Handle) lua.LValue {
	if h.IsZero() || !e.world.Alive(h) {
		return lua.LNil
	}
	if ud, ok := e.handles[h]; ok {
		return ud
	}
	ud := e.vm.NewUserData()
	ud.Value = h
	e.vm.SetMetatable(ud, e.vm.GetTypeMetatable(entityType))
	e.handles[h] = ud
	return ud
}

func (e *Engine) checkEntity(L *lua.LState, n int) world.Handle {
	ud := L.CheckUserData(n)
	h, ok := ud.Value.(world.Handle)
	if !ok {
		L.ArgError(n, "entity expected")
	}
	return h
}

// optEntity accepts nil as the zero handle.
func (e *Engine) optEntity(L *lua.LState, n int) world.Handle {
	if L.Get(n) == lua.LNil {
		return 0
	}
	return e.checkEntity(L, n)
}

// call runs fn protected and returns nret results in order.
func (e *Engine) call(fn *lua.LFunction, nret int, args ...lua.LValue) ([]lua.LValue, error) {
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    nret,
		Protect: true,
	}, args...); err != nil {
		return nil, err
	}
	out := make([]lua.LValue, nret)
	for i := nret - 1; i >= 0; i-- {
		out[i] = e.vm.Get(-1)
		e.vm.Pop(1)
	}
	return out, nil
}

// predicate calls a consent or event hook. Script errors count as false.
func (e *Engine) predicate(kind, hook string, fn *lua.LFunction, args ...lua.LValue) bool {
	out, err := e.call(fn, 1, args...)
	if err != nil {
		e.log.Error("lua hook failed", zap.String("kind", kind), zap.String("hook", hook), zap.Error(err))
		return false
	}
	return lua.LVAsBool(out[0])
}

func (e *Engine) invoke(kind, hook string, fn *lua.LFunction, args ...lua.LValue) {
	if _, err := e.call(fn, 0, args...); err != nil {
		e.log.Error("lua hook failed", zap.String("kind", kind), zap.String("hook", hook), zap.Error(err))
	}
}
