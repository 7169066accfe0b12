package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/tatianab/storyworld/internal/world"
)

func (e *Engine) installAPI() {
	L := e.vm

	methods := map[string]lua.LGFunction{
		"name":            e.luaName,
		"kind":            e.luaKindOf,
		"state":           e.luaState,
		"set_state":       e.luaSetState,
		"remove_state":    e.luaRemoveState,
		"parent":          e.luaParent,
		"location":        e.luaLocation,
		"children":        e.luaChildren,
		"find":            e.luaFindIn,
		"is_player":       e.luaIsPlayer,
		"is_place":        e.luaIsPlace,
		"alive":           e.luaAlive,
		"description":     e.luaDescription,
		"set_description": e.luaSetDescription,
	}
	mt := L.NewTypeMetatable(entityType)
	L.SetField(mt, "__index", L.SetFuncs(L.NewTable(), methods))
	L.SetField(mt, "__tostring", L.NewFunction(e.luaName))

	globals := map[string]lua.LGFunction{
		"kind":       e.luaKind,
		"find":       e.luaFind,
		"transfer":   e.luaTransfer,
		"say":        e.luaSay,
		"play_scene": e.luaPlayScene,
		"spawn":      e.luaSpawn,
		"destroy":    e.luaDestroy,
		"connect":    e.luaConnect,
		"log":        e.luaLog,
		"text":       e.luaText,

		"default_release": e.luaDefaultRelease,
		// entity methods double as globals taking the entity first
		"state":     e.luaState,
		"set_state": e.luaSetState,
		"is_player": e.luaIsPlayer,
		"location":  e.luaLocation,
	}
	for name, fn := range globals {
		L.SetGlobal(name, L.NewFunction(fn))
	}
}

// find(name) searches the whole world.
func (e *Engine) luaFind(L *lua.LState) int {
	h, ok := e.world.Find(L.CheckString(1))
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(e.push(h))
	return 1
}

// entity:find(name) searches the entity's subtree.
func (e *Engine) luaFindIn(L *lua.LState) int {
	root := e.checkEntity(L, 1)
	h, ok := e.world.FindByName(root, L.CheckString(2), true)
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(e.push(h))
	return 1
}

// transfer(subject, target) where a nil target drops subject into the void.
func (e *Engine) luaTransfer(L *lua.LState) int {
	subject := e.checkEntity(L, 1)
	target := e.optEntity(L, 2)
	L.Push(lua.LBool(e.world.Transfer(subject, target)))
	return 1
}

func (e *Engine) luaSay(L *lua.LState) int {
	e.world.Say(e.checkEntity(L, 1), L.CheckString(2))
	return 0
}

// play_scene(name, player) raises when the scene cannot start; the world
// keeps the error for the game loop.
func (e *Engine) luaPlayScene(L *lua.LState) int {
	name := L.CheckString(1)
	player := e.checkEntity(L, 2)
	if err := e.world.PlayScene(name, player); err != nil {
		L.RaiseError("play_scene: %v", err)
	}
	return 0
}

// spawn(kind, target [, name]) creates an entity and transfers it into target.
// It returns nil and destroys the new entity when the transfer is refused.
func (e *Engine) luaSpawn(L *lua.LState) int {
	kind := L.CheckString(1)
	target := e.checkEntity(L, 2)
	name := L.OptString(3, "")
	h, err := e.world.CreateDetached(kind)
	if err != nil {
		L.RaiseError("spawn: %v", err)
		return 0
	}
	if name != "" {
		e.world.SetName(h, name)
	}
	if !e.world.Transfer(h, target) {
		e.world.Destroy(h)
		L.Push(lua.LNil)
		return 1
	}
	L.Push(e.push(h))
	return 1
}

func (e *Engine) luaDestroy(L *lua.LState) int {
	e.world.Destroy(e.checkEntity(L, 1))
	return 0
}

func (e *Engine) luaConnect(L *lua.LState) int {
	if err := e.world.Connect(e.checkEntity(L, 1), e.checkEntity(L, 2)); err != nil {
		L.RaiseError("connect: %v", err)
	}
	return 0
}

// text(key) resolves a resource string; without a resolver the key comes back.
func (e *Engine) luaText(L *lua.LState) int {
	key := L.CheckString(1)
	if e.text == nil {
		L.Push(lua.LString(key))
		return 1
	}
	s, err := e.text(key)
	if err != nil {
		L.RaiseError("text: %v", err)
		return 0
	}
	L.Push(lua.LString(s))
	return 1
}

// default_release(parent, subject, target) lets can_release hooks fall back
// to the built-in parent policy.
func (e *Engine) luaDefaultRelease(L *lua.LState) int {
	ok := world.DefaultRelease(e.world, e.checkEntity(L, 1), e.checkEntity(L, 2), e.optEntity(L, 3))
	L.Push(lua.LBool(ok))
	return 1
}

func (e *Engine) luaLog(L *lua.LState) int {
	e.log.Info("lua", zap.String("msg", L.CheckString(1)))
	return 0
}

func (e *Engine) luaName(L *lua.LState) int {
	L.Push(lua.LString(e.world.Name(e.checkEntity(L, 1))))
	return 1
}

func (e *Engine) luaKindOf(L *lua.LState) int {
	ent, ok := e.world.Get(e.checkEntity(L, 1))
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LString(ent.Kind))
	return 1
}

// state(entity, key) returns nil for unset keys.
func (e *Engine) luaState(L *lua.LState) int {
	v, ok := e.world.State(e.checkEntity(L, 1), L.CheckString(2))
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LNumber(v))
	return 1
}

func (e *Engine) luaSetState(L *lua.LState) int {
	e.world.SetState(e.checkEntity(L, 1), L.CheckString(2), L.CheckInt(3))
	return 0
}

func (e *Engine) luaRemoveState(L *lua.LState) int {
	e.world.RemoveState(e.checkEntity(L, 1), L.CheckString(2))
	return 0
}

func (e *Engine) luaParent(L *lua.LState) int {
	L.Push(e.push(e.world.Parent(e.checkEntity(L, 1))))
	return 1
}

func (e *Engine) luaLocation(L *lua.LState) int {
	place, ok := e.world.Location(e.checkEntity(L, 1))
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(e.push(place))
	return 1
}

func (e *Engine) luaChildren(L *lua.LState) int {
	t := L.NewTable()
	for _, c := range e.world.Children(e.checkEntity(L, 1)) {
		t.Append(e.push(c))
	}
	L.Push(t)
	return 1
}

func (e *Engine) luaIsPlayer(L *lua.LState) int {
	L.Push(lua.LBool(e.world.IsPlayer(e.optEntity(L, 1))))
	return 1
}

func (e *Engine) luaIsPlace(L *lua.LState) int {
	L.Push(lua.LBool(e.world.IsPlace(e.checkEntity(L, 1))))
	return 1
}

func (e *Engine) luaAlive(L *lua.LState) int {
	L.Push(lua.LBool(e.world.Alive(e.checkEntity(L, 1))))
	return 1
}

func (e *Engine) luaDescription(L *lua.LState) int {
	ent, ok := e.world.Get(e.checkEntity(L, 1))
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LString(ent.Description))
	return 1
}

func (e *Engine) luaSetDescription(L *lua.LState) int {
	if ent, ok := e.world.Get(e.checkEntity(L, 1)); ok {
		ent.Description = L.CheckString(2)
	}
	return 0
}

