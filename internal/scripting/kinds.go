package scripting

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/tatianab/storyworld/internal/models"
	"github.com/tatianab/storyworld/internal/world"
)

// luaKind implements kind{...}:
//
//	kind{
//	  name = "village", base = "place",
//	  states = { ["dialogue triggered"] = 0 },
//	  on_transfer = function(self, subject, from, to) ... end,
//	}
//
// Hooks left out are inherited from the base kind.
func (e *Engine) luaKind(L *lua.LState) int {
	spec := L.CheckTable(1)
	name := lua.LVAsString(spec.RawGetString("name"))
	if name == "" {
		L.ArgError(1, "kind needs a name")
		return 0
	}
	baseName := world.KindEntity
	if v := spec.RawGetString("base"); v != lua.LNil {
		baseName = lua.LVAsString(v)
	}
	base, ok := e.world.Kinds().Lookup(baseName)
	if !ok {
		L.RaiseError("kind %s: unknown base kind %q", name, baseName)
		return 0
	}

	b := *base
	if v, ok := spec.RawGetString("immovable").(lua.LBool); ok {
		b.Immovable = bool(v)
	}
	if v := spec.RawGetString("gender"); v != lua.LNil {
		g, err := world.ParseGender(lua.LVAsString(v))
		if err != nil {
			L.RaiseError("kind %s: %v", name, err)
			return 0
		}
		b.Gender = g
	}
	states := map[string]int{}
	if t, ok := spec.RawGetString("states").(*lua.LTable); ok {
		t.ForEach(func(k, v lua.LValue) {
			states[lua.LVAsString(k)] = int(lua.LVAsNumber(v))
		})
	}

	e.bindHooks(name, &b, spec, states)

	if err := e.world.Kinds().Register(name, b); err != nil {
		L.RaiseError("%v", err)
		return 0
	}
	e.kinds = append(e.kinds, name)
	e.log.Debug("registered lua kind", zap.String("kind", name), zap.String("base", baseName))
	return 0
}

func hook(spec *lua.LTable, name string) *lua.LFunction {
	fn, _ := spec.RawGetString(name).(*lua.LFunction)
	return fn
}

func (e *Engine) bindHooks(kind string, b *world.Behavior, spec *lua.LTable, states map[string]int) {
	baseInit := b.Init
	if fn := hook(spec, "init"); fn != nil || len(states) > 0 {
		b.Init = func(w *world.World, self world.Handle) {
			if baseInit != nil {
				baseInit(w, self)
			}
			for k, v := range states {
				w.SetState(self, k, v)
			}
			if fn != nil {
				e.invoke(kind, "init", fn, e.push(self))
			}
		}
	}

	if fn := hook(spec, "can_move"); fn != nil {
		b.CanMove = func(w *world.World, self, target world.Handle) bool {
			return e.predicate(kind, "can_move", fn, e.push(self), e.push(target))
		}
	}
	if fn := hook(spec, "can_release"); fn != nil {
		b.CanRelease = func(w *world.World, self, subject, target world.Handle) bool {
			return e.predicate(kind, "can_release", fn, e.push(self), e.push(subject), e.push(target))
		}
	}
	if fn := hook(spec, "can_receive"); fn != nil {
		b.CanReceive = func(w *world.World, self, subject world.Handle) bool {
			return e.predicate(kind, "can_receive", fn, e.push(self), e.push(subject))
		}
	}
	if fn := hook(spec, "on_transfer"); fn != nil {
		b.OnTransfer = func(w *world.World, self world.Handle, ev world.TransferEvent) {
			e.invoke(kind, "on_transfer", fn, e.push(self), e.push(ev.Subject), e.push(ev.From), e.push(ev.To))
		}
	}
	if fn := hook(spec, "on_talk"); fn != nil {
		b.OnTalk = func(w *world.World, self, speaker world.Handle) bool {
			return e.predicate(kind, "on_talk", fn, e.push(self), e.push(speaker))
		}
	}
	if fn := hook(spec, "on_use"); fn != nil {
		b.OnUse = func(w *world.World, self, user, other world.Handle) bool {
			return e.predicate(kind, "on_use", fn, e.push(self), e.push(user), e.push(other))
		}
	}
	if fn := hook(spec, "on_launch"); fn != nil {
		b.OnLaunch = func(w *world.World, self world.Handle) {
			e.invoke(kind, "on_launch", fn, e.push(self))
		}
	}

	if fn := hook(spec, "save"); fn != nil {
		b.Save = func(w *world.World, self world.Handle, rec *models.EntityRecord) {
			out, err := e.call(fn, 1, e.push(self))
			if err != nil {
				e.log.Error("lua hook failed", zap.String("kind", kind), zap.String("hook", "save"), zap.Error(err))
				return
			}
			t, ok := out[0].(*lua.LTable)
			if !ok {
				return
			}
			t.ForEach(func(k, v lua.LValue) {
				if rec.Extra == nil {
					rec.Extra = make(map[string]string)
				}
				rec.Extra[lua.LVAsString(k)] = lua.LVAsString(v)
			})
		}
	}
	if fn := hook(spec, "load"); fn != nil {
		b.Load = func(w *world.World, self world.Handle, rec *models.EntityRecord) error {
			extra := e.vm.NewTable()
			for k, v := range rec.Extra {
				extra.RawSetString(k, lua.LString(v))
			}
			if _, err := e.call(fn, 0, e.push(self), extra); err != nil {
				return fmt.Errorf("kind %s load: %w", kind, err)
			}
			return nil
		}
	}
}
