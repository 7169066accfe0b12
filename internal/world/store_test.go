package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreate(t *testing.T) {
	s := NewStore(NewKinds())

	_, err := s.Create("dragon", s.Root())
	require.ErrorIs(t, err, ErrUnknownKind)

	_, err = s.Create(KindEntity, Handle(12345))
	require.ErrorIs(t, err, ErrInvalidParent)

	h, err := s.Create(KindPlace, s.Root())
	require.NoError(t, err)
	assert.Equal(t, s.Root(), s.Parent(h))
	assert.Equal(t, []Handle{h}, s.Children(s.Root()))
	assert.Equal(t, KindPlace, s.Name(h), "entities start out named after their kind")

	e, ok := s.Get(h)
	require.True(t, ok)
	assert.True(t, e.IsPlace())
}

func TestHandlesAreGenerational(t *testing.T) {
	s := NewStore(NewKinds())
	a, err := s.Create(KindEntity, s.Root())
	require.NoError(t, err)
	s.Destroy(a)
	require.False(t, s.Alive(a))

	b, err := s.Create(KindEntity, s.Root())
	require.NoError(t, err)
	assert.Equal(t, a.Index(), b.Index(), "slot is reused")
	assert.NotEqual(t, a, b)
	assert.False(t, s.Alive(a), "stale handle must not resolve to the new entity")
	assert.True(t, s.Alive(b))
}

func TestFindByName(t *testing.T) {
	s := NewStore(NewKinds())
	hut, _ := s.Create(KindPlace, s.Root())
	s.SetName(hut, "Hut")
	chest, _ := s.Create(KindEntity, hut)
	s.SetName(chest, "Chest")
	coin, _ := s.Create(KindEntity, chest)
	s.SetName(coin, "Coin")

	h, ok := s.FindByName(hut, "Chest", false)
	require.True(t, ok)
	assert.Equal(t, chest, h)

	_, ok = s.FindByName(hut, "Coin", false)
	assert.False(t, ok, "non-recursive lookup stays at direct children")

	h, ok = s.FindByName(hut, "Coin", true)
	require.True(t, ok)
	assert.Equal(t, coin, h)

	h, ok = s.Find("Coin")
	require.True(t, ok)
	assert.Equal(t, coin, h)

	_, ok = s.Find("Nothing")
	assert.False(t, ok)
}

func TestFindByNameFirstInInsertionOrder(t *testing.T) {
	s := NewStore(NewKinds())
	a, _ := s.Create(KindEntity, s.Root())
	b, _ := s.Create(KindEntity, s.Root())
	s.SetName(b, "Twin")
	s.SetName(a, "Twin")

	h, ok := s.FindByName(s.Root(), "Twin", false)
	require.True(t, ok)
	assert.Equal(t, a, h)

	s.Destroy(a)
	h, ok = s.FindByName(s.Root(), "Twin", false)
	require.True(t, ok)
	assert.Equal(t, b, h)
}

func TestSetNameReindexes(t *testing.T) {
	s := NewStore(NewKinds())
	h, _ := s.Create(KindEntity, s.Root())
	s.SetName(h, "Old")
	s.SetName(h, "New")

	_, ok := s.Find("Old")
	assert.False(t, ok)
	found, ok := s.Find("New")
	require.True(t, ok)
	assert.Equal(t, h, found)
}

func TestDestroySubtree(t *testing.T) {
	s := NewStore(NewKinds())
	var destroyed []Handle
	s.OnDestroy(func(h Handle) { destroyed = append(destroyed, h) })

	hut, _ := s.Create(KindPlace, s.Root())
	chest, _ := s.Create(KindEntity, hut)
	coin, _ := s.Create(KindEntity, chest)

	s.Destroy(chest)
	assert.False(t, s.Alive(chest))
	assert.False(t, s.Alive(coin))
	assert.True(t, s.Alive(hut))
	assert.Empty(t, s.Children(hut))
	assert.ElementsMatch(t, []Handle{chest, coin}, destroyed)

	s.Destroy(chest)
	assert.Len(t, destroyed, 2, "destroying twice is a no-op")

	s.Destroy(s.Root())
	assert.True(t, s.Alive(s.Root()))
}

func TestLocationAndAncestors(t *testing.T) {
	s := NewStore(NewKinds())
	hut, _ := s.Create(KindPlace, s.Root())
	ivy, _ := s.Create(KindPlayer, hut)
	bag, _ := s.Create(KindEntity, ivy)

	loc, ok := s.Location(bag)
	require.True(t, ok)
	assert.Equal(t, hut, loc)

	loc, ok = s.Location(hut)
	require.True(t, ok)
	assert.Equal(t, hut, loc)

	_, ok = s.Location(s.Root())
	assert.False(t, ok)

	assert.True(t, s.IsAncestor(hut, bag))
	assert.True(t, s.IsAncestor(s.Root(), bag))
	assert.False(t, s.IsAncestor(bag, hut))
}

func TestStates(t *testing.T) {
	s := NewStore(NewKinds())
	h, _ := s.Create(KindEntity, s.Root())

	_, ok := s.State(h, "lit")
	assert.False(t, ok)
	s.SetState(h, "lit", 1)
	v, ok := s.State(h, "lit")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	s.RemoveState(h, "lit")
	_, ok = s.State(h, "lit")
	assert.False(t, ok)
}

func TestWalkPrunes(t *testing.T) {
	s := NewStore(NewKinds())
	a, _ := s.Create(KindPlace, s.Root())
	b, _ := s.Create(KindEntity, a)
	_, _ = s.Create(KindEntity, b)
	c, _ := s.Create(KindPlace, s.Root())

	var seen []Handle
	s.Walk(s.Root(), func(h Handle, e *Entity) bool {
		seen = append(seen, h)
		return h != b
	})
	assert.Equal(t, []Handle{s.Root(), a, b, c}, seen)
}
