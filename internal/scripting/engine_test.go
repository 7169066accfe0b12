package scripting

import (
	"fmt"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap/zaptest"

	"github.com/tatianab/storyworld/internal/models"
	"github.com/tatianab/storyworld/internal/world"
)

type fixture struct {
	e   *Engine
	w   *world.World
	hut world.Handle
	yrd world.Handle
	ivy world.Handle
}

// newFixture builds Hut -> Yard with Ivy in the Hut and runs src.
func newFixture(t *testing.T, src string) *fixture {
	t.Helper()
	w := world.New(world.NewKinds(), zaptest.NewLogger(t))
	e := NewEngine(w, zaptest.NewLogger(t))
	t.Cleanup(e.Close)
	if src != "" {
		require.NoError(t, e.DoString(t.Name(), src))
	}
	f := &fixture{e: e, w: w}
	f.hut = f.create(t, world.KindPlace, w.Root(), "Hut")
	f.yrd = f.create(t, world.KindPlace, w.Root(), "Yard")
	f.ivy = f.create(t, world.KindPlayer, f.hut, "Ivy")
	require.NoError(t, w.Connect(f.hut, f.yrd))
	return f
}

func (f *fixture) create(t *testing.T, kind string, parent world.Handle, name string) world.Handle {
	t.Helper()
	h, err := f.w.Create(kind, parent)
	require.NoError(t, err)
	f.w.SetName(h, name)
	return h
}

func (f *fixture) global(name string) lua.LValue {
	return f.e.vm.GetGlobal(name)
}

type sceneLog struct{ played []string }

func (s *sceneLog) PlayScene(name string, player world.Handle) error {
	s.played = append(s.played, name)
	return nil
}

type textLog struct{ lines []string }

func (o *textLog) ShowText(_ world.Handle, text string) { o.lines = append(o.lines, text) }

func TestKindDefinition(t *testing.T) {
	f := newFixture(t, `
kind{
  name = "well", base = "place", gender = "m",
  states = { water = 3 },
  init = function(self) self:set_description(text("game.well")) end,
}
kind{ name = "anvil", immovable = true }
`)
	f.e.SetText(func(key string) (string, error) { return "deep " + key, nil })
	assert.Equal(t, []string{"well", "anvil"}, f.e.Kinds())

	b, ok := f.w.Kinds().Lookup("well")
	require.True(t, ok)
	assert.True(t, b.Place)
	assert.Equal(t, world.Masculine, b.Gender)

	well := f.create(t, "well", f.w.Root(), "Well")
	assert.True(t, f.w.IsPlace(well))
	v, ok := f.w.State(well, "water")
	require.True(t, ok)
	assert.Equal(t, 3, v)
	e, _ := f.w.Get(well)
	assert.Equal(t, "deep game.well", e.Description)

	anvil := f.create(t, "anvil", f.hut, "Anvil")
	assert.False(t, f.w.Transfer(anvil, f.ivy))
}

func TestKindErrors(t *testing.T) {
	f := newFixture(t, "")
	cases := map[string]string{
		"no name":      `kind{ base = "place" }`,
		"unknown base": `kind{ name = "x", base = "dragon" }`,
		"bad gender":   `kind{ name = "y", gender = "q" }`,
		"duplicate":    `kind{ name = "place" }`,
		"syntax":       `kind{`,
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, f.e.DoString(name, src))
		})
	}
	assert.Empty(t, f.e.Kinds())
}

func TestConsentHooks(t *testing.T) {
	f := newFixture(t, `
kind{
  name = "chest", base = "static",
  states = { lid = 0 },
  can_receive = function(self, subject) return self:state("lid") == 1 end,
}
kind{
  name = "cursed",
  can_move = function(self, target) error("cursed") end,
}
kind{
  name = "jealous", base = "place",
  can_release = function(self, subject, target)
    if subject:name() == "Ring" then return false end
    return default_release(self, subject, target)
  end,
}
`)
	chest := f.create(t, "chest", f.hut, "Chest")
	coin := f.create(t, world.KindEntity, f.hut, "Coin")
	assert.False(t, f.w.Transfer(coin, chest))
	f.w.SetState(chest, "lid", 1)
	assert.True(t, f.w.Transfer(coin, chest))

	skull := f.create(t, "cursed", f.hut, "Skull")
	assert.False(t, f.w.Transfer(skull, f.ivy), "script errors refuse")

	den := f.create(t, "jealous", f.w.Root(), "Den")
	ring := f.create(t, world.KindEntity, den, "Ring")
	cup := f.create(t, world.KindEntity, den, "Cup")
	assert.False(t, f.w.Transfer(ring, f.hut))
	assert.False(t, f.w.Transfer(cup, f.hut), "default policy: Hut is not reachable from Den")
	require.NoError(t, f.w.Connect(den, f.hut))
	assert.True(t, f.w.Transfer(cup, f.hut))
}

func TestTransferHook(t *testing.T) {
	f := newFixture(t, `
moves = {}
kind{
  name = "yard", base = "place",
  on_transfer = function(self, subject, from, to)
    if to == self and is_player(subject) then
      table.insert(moves, subject:name() .. " from " .. from:name())
      self:set_state("entered", (self:state("entered") or 0) + 1)
    end
  end,
}
`)
	yard := f.create(t, "yard", f.w.Root(), "Back Yard")
	require.NoError(t, f.w.Connect(f.hut, yard))
	require.True(t, f.w.Transfer(f.ivy, yard))

	v, _ := f.w.State(yard, "entered")
	assert.Equal(t, 1, v)
	moves := f.global("moves").(*lua.LTable)
	assert.Equal(t, "Ivy from Hut", moves.RawGetInt(1).String())
}

func TestInteractionHooks(t *testing.T) {
	f := newFixture(t, `
kind{
  name = "jam",
  on_use = function(self, user, other)
    say(user, "eaten")
    destroy(self)
    return true
  end,
}
kind{
  name = "baker", base = "static",
  on_talk = function(self, speaker)
    play_scene("baker/hello", speaker)
    say(speaker, "welcome")
    return true
  end,
}
launched = 0
kind{ name = "bell", on_launch = function(self) launched = launched + 1 end }
`)
	out := &textLog{}
	f.w.SetOutput(out)
	jam := f.create(t, "jam", f.ivy, "Jam")
	f.create(t, "baker", f.hut, "Baker")
	f.create(t, "bell", f.hut, "Bell")

	assert.True(t, f.w.Use(f.ivy, jam, 0))
	assert.False(t, f.w.Alive(jam))

	// without a scene player the hook stops at play_scene
	assert.False(t, f.w.TalkTo(f.ivy, "Baker"))
	assert.Equal(t, []string{"eaten"}, out.lines)
	assert.ErrorIs(t, f.w.TakeErr(), world.ErrNoScenePlayer)
	assert.NoError(t, f.w.TakeErr())

	scenes := &sceneLog{}
	f.w.SetScenePlayer(scenes)
	assert.True(t, f.w.TalkTo(f.ivy, "Baker"))
	assert.Equal(t, []string{"baker/hello"}, scenes.played)
	assert.Equal(t, []string{"eaten", "welcome"}, out.lines)
	assert.NoError(t, f.w.TakeErr())

	f.w.Launch()
	assert.Equal(t, lua.LNumber(1), f.global("launched"))
}

type brokenScenes struct{ err error }

func (b brokenScenes) PlayScene(string, world.Handle) error { return b.err }

func TestSceneFailureInTransferHook(t *testing.T) {
	f := newFixture(t, `
kind{
  name = "pond", base = "place",
  on_transfer = function(self, subject, from, to)
    if to == self then
      play_scene("pond/dragon", subject)
      set_state(self, "reached", 1)
    end
  end,
}
`)
	pond := f.create(t, "pond", f.w.Root(), "Pond")
	require.NoError(t, f.w.Connect(f.hut, pond))
	f.w.SetScenePlayer(brokenScenes{err: fmt.Errorf("spawn %q: %w", "dragon", world.ErrUnknownKind)})

	// the move itself stands; the hook is cut short and its error kept
	assert.True(t, f.w.Transfer(f.ivy, pond))
	assert.Equal(t, pond, f.w.Parent(f.ivy))
	_, ok := f.w.State(pond, "reached")
	assert.False(t, ok)
	err := f.w.TakeErr()
	assert.ErrorIs(t, err, world.ErrUnknownKind)
	assert.Contains(t, err.Error(), "dragon")
}

func TestSaveAndLoadHooks(t *testing.T) {
	f := newFixture(t, `
kind{
  name = "lantern",
  save = function(self) return { wick = "long", lit = self:state("lit") } end,
  load = function(self, extra)
    if extra.wick == nil then error("no wick") end
    self:set_state("wick " .. extra.wick, 1)
  end,
}
`)
	lantern := f.create(t, "lantern", f.hut, "Lantern")
	f.w.SetState(lantern, "lit", 1)
	rec := f.w.Encode(lantern)
	assert.Equal(t, map[string]string{"wick": "long", "lit": "1"}, rec.Extra)

	h, err := f.w.Decode(f.yrd, &rec, nil)
	require.NoError(t, err)
	v, ok := f.w.State(h, "wick long")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	_, err = f.w.Decode(f.yrd, &models.EntityRecord{Kind: "lantern", Name: "Dud"}, nil)
	assert.ErrorContains(t, err, "no wick")
}

func TestWorldAPI(t *testing.T) {
	f := newFixture(t, `kind{ name = "shut", base = "static", can_receive = function() return false end }`)
	f.create(t, world.KindEntity, f.ivy, "Key")
	f.create(t, "shut", f.hut, "Chest")
	require.NoError(t, f.e.DoString("api", `
hut = find("Hut")
ivy = find("Ivy")
key = hut:find("Key")
where = key:location():name()
owner = key:parent():name()
nobody = find("Nobody")
count = #hut:children()
kind_of = find("Chest"):kind()
shown = tostring(ivy)
moved = transfer(ivy, find("Yard"))
refused = transfer(find("Chest"), ivy)
coin = spawn("entity", ivy, "Coin")
lost = spawn("entity", find("Chest"))
`))

	assert.Equal(t, "Hut", f.global("where").String())
	assert.Equal(t, "Ivy", f.global("owner").String())
	assert.Equal(t, lua.LNil, f.global("nobody"))
	assert.Equal(t, lua.LNumber(2), f.global("count"))
	assert.Equal(t, "shut", f.global("kind_of").String())
	assert.Equal(t, "Ivy", f.global("shown").String())
	assert.Equal(t, lua.LTrue, f.global("moved"))
	assert.Equal(t, lua.LFalse, f.global("refused"))
	assert.Equal(t, f.yrd, f.w.Parent(f.ivy))

	coin, ok := f.w.Find("Coin")
	require.True(t, ok)
	assert.Equal(t, f.ivy, f.w.Parent(coin))
	assert.Equal(t, lua.LNil, f.global("lost"))

	// the same entity is always the same userdata
	require.NoError(t, f.e.DoString("identity", `same = find("Ivy") == ivy`))
	assert.Equal(t, lua.LTrue, f.global("same"))

	require.NoError(t, f.e.DoString("void", `transfer(find("Coin"), nil)`))
	assert.False(t, f.w.Alive(coin))
}

func TestTextWithoutResolver(t *testing.T) {
	f := newFixture(t, `label = text("game.key")`)
	assert.Equal(t, "game.key", f.global("label").String())
}

func TestLoadFS(t *testing.T) {
	f := newFixture(t, "")
	fsys := fstest.MapFS{
		"kinds/a.lua":     {Data: []byte(`kind{ name = "apple" }`)},
		"kinds/b.lua":     {Data: []byte(`kind{ name = "basket", base = "static" }`)},
		"kinds/notes.txt": {Data: []byte("not lua")},
	}
	require.NoError(t, f.e.LoadFS(fsys, "kinds"))
	assert.Equal(t, []string{"apple", "basket"}, f.e.Kinds())
	assert.NoError(t, f.e.LoadFS(fsys, "missing"))

	fsys["broken/c.lua"] = &fstest.MapFile{Data: []byte(`kind{ name = `)}
	assert.Error(t, f.e.LoadFS(fsys, "broken"))
}
