package world

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidParent = errors.New("invalid parent")
	ErrUnknownKind   = errors.New("unknown entity kind")
)

// Handle encodes a 32-bit slot index in the lower bits and a 32-bit generation
// in the upper bits. Generations start at 1, so the zero Handle never refers to
// a live entity and doubles as "no parent" / the void.
type Handle uint64

func newHandle(index, generation uint32) Handle {
	return Handle(uint64(generation)<<32 | uint64(index))
}

func (h Handle) Index() uint32      { return uint32(h) }
func (h Handle) Generation() uint32 { return uint32(h >> 32) }
func (h Handle) IsZero() bool       { return h == 0 }

// Entity is a node of the ownership tree. Topology (name, parent, children,
// connections) is only changed through the Store so the name index stays valid.
type Entity struct {
	Kind        string
	Description string
	Gender      Gender
	Immovable   bool
	States      map[string]int

	handle   Handle
	name     string
	place    bool
	parent   Handle
	children []Handle
	names    map[string][]Handle

	connections []Handle
	declared    []string
}

func (e *Entity) Handle() Handle   { return e.handle }
func (e *Entity) Name() string     { return e.name }
func (e *Entity) Parent() Handle   { return e.parent }
func (e *Entity) IsPlace() bool    { return e.place }
func (e *Entity) NumChildren() int { return len(e.children) }

type slot struct {
	generation uint32
	entity     *Entity
}

// Store is the entity arena. It owns every entity and the single rooted tree
// they form; detached entities (no parent, not the root) may exist briefly
// while being spawned.
type Store struct {
	kinds     *Kinds
	slots     []slot
	free      []uint32
	root      Handle
	destroyed []func(Handle)
}

// NewStore creates an arena holding only the world root.
func NewStore(kinds *Kinds) *Store {
	s := &Store{
		kinds: kinds,
		slots: make([]slot, 0, 256),
	}
	root, err := s.allocate(KindWorld)
	if err != nil {
		panic(fmt.Sprintf("world kind missing from kind table: %v", err))
	}
	s.root = root
	s.slots[root.Index()].entity.name = KindWorld
	return s
}

func (s *Store) Root() Handle  { return s.root }
func (s *Store) Kinds() *Kinds { return s.kinds }

// OnDestroy registers fn to be called once for every entity discarded by Destroy.
func (s *Store) OnDestroy(fn func(Handle)) {
	s.destroyed = append(s.destroyed, fn)
}

func (s *Store) Alive(h Handle) bool {
	_, ok := s.Get(h)
	return ok
}

func (s *Store) Get(h Handle) (*Entity, bool) {
	if h.IsZero() {
		return nil, false
	}
	idx := h.Index()
	if int(idx) >= len(s.slots) {
		return nil, false
	}
	sl := s.slots[idx]
	if sl.entity == nil || sl.generation != h.Generation() {
		return nil, false
	}
	return sl.entity, true
}

func (s *Store) allocate(kind string) (Handle, error) {
	b, ok := s.kinds.Lookup(kind)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	var idx uint32
	if n := len(s.free); n > 0 {
		idx = s.free[n-1]
		s.free = s.free[:n-1]
	} else {
		idx = uint32(len(s.slots))
		s.slots = append(s.slots, slot{})
	}
	s.slots[idx].generation++
	h := newHandle(idx, s.slots[idx].generation)

	e := &Entity{
		Kind:      kind,
		Gender:    b.Gender,
		Immovable: b.Immovable,
		States:    make(map[string]int),
		handle:    h,
		name:      kind,
		place:     b.Place,
	}
	if b.Place {
		e.States[StateVisited] = 0
	}
	s.slots[idx].entity = e
	return h, nil
}

// Create allocates an entity of the given kind and attaches it under parent.
func (s *Store) Create(kind string, parent Handle) (Handle, error) {
	if !s.Alive(parent) {
		return 0, fmt.Errorf("create %s: %w", kind, ErrInvalidParent)
	}
	h, err := s.allocate(kind)
	if err != nil {
		return 0, err
	}
	s.attach(h, parent)
	return h, nil
}

// CreateDetached allocates an entity with no parent. It is invisible to lookups
// until it is transferred somewhere.
func (s *Store) CreateDetached(kind string) (Handle, error) {
	return s.allocate(kind)
}

// Destroy detaches h and discards it together with every entity it still owns.
func (s *Store) Destroy(h Handle) {
	e, ok := s.Get(h)
	if !ok || h == s.root {
		return
	}
	s.detach(e)

	var doomed []Handle
	var collect func(Handle)
	collect = func(c Handle) {
		ce, ok := s.Get(c)
		if !ok {
			return
		}
		for _, gc := range ce.children {
			collect(gc)
		}
		doomed = append(doomed, c)
	}
	collect(h)

	for _, d := range doomed {
		idx := d.Index()
		s.slots[idx].entity = nil
		s.free = append(s.free, idx)
	}
	for _, d := range doomed {
		for _, fn := range s.destroyed {
			fn(d)
		}
	}
}

// FindByName looks name up among the direct children of root or, when
// recursive, depth-first through its whole subtree in child insertion order.
func (s *Store) FindByName(root Handle, name string, recursive bool) (Handle, bool) {
	e, ok := s.Get(root)
	if !ok {
		return 0, false
	}
	switch hs := e.names[name]; len(hs) {
	case 0:
	case 1:
		return hs[0], true
	default:
		// renames can leave the index out of insertion order
		for _, c := range e.children {
			if ce, ok := s.Get(c); ok && ce.name == name {
				return c, true
			}
		}
	}
	if !recursive {
		return 0, false
	}
	for _, c := range e.children {
		if h, ok := s.FindByName(c, name, true); ok {
			return h, true
		}
	}
	return 0, false
}

// Find searches the whole world tree.
func (s *Store) Find(name string) (Handle, bool) {
	return s.FindByName(s.root, name, true)
}

func (s *Store) Name(h Handle) string {
	if e, ok := s.Get(h); ok {
		return e.name
	}
	return ""
}

func (s *Store) SetName(h Handle, name string) {
	e, ok := s.Get(h)
	if !ok || e.name == name {
		return
	}
	if p, ok := s.Get(e.parent); ok {
		p.unindex(e)
		e.name = name
		p.index(e)
		return
	}
	e.name = name
}

func (s *Store) Parent(h Handle) Handle {
	if e, ok := s.Get(h); ok {
		return e.parent
	}
	return 0
}

// Children returns a copy of h's children in insertion order.
func (s *Store) Children(h Handle) []Handle {
	e, ok := s.Get(h)
	if !ok || len(e.children) == 0 {
		return nil
	}
	out := make([]Handle, len(e.children))
	copy(out, e.children)
	return out
}

func (s *Store) isChild(parent, h Handle) bool {
	p, ok := s.Get(parent)
	if !ok {
		return false
	}
	for _, c := range p.children {
		if c == h {
			return true
		}
	}
	return false
}

// IsAncestor reports whether anc appears on the parent chain of h.
func (s *Store) IsAncestor(anc, h Handle) bool {
	for cur := s.Parent(h); !cur.IsZero(); cur = s.Parent(cur) {
		if cur == anc {
			return true
		}
	}
	return false
}

// Location returns the nearest place among h and its ancestors.
func (s *Store) Location(h Handle) (Handle, bool) {
	for cur := h; !cur.IsZero(); cur = s.Parent(cur) {
		if e, ok := s.Get(cur); ok && e.place {
			return cur, true
		}
	}
	return 0, false
}

// Walk visits h and its subtree depth-first. Returning false from fn prunes the
// entity's children.
func (s *Store) Walk(h Handle, fn func(Handle, *Entity) bool) {
	e, ok := s.Get(h)
	if !ok {
		return
	}
	if !fn(h, e) {
		return
	}
	for _, c := range s.Children(h) {
		s.Walk(c, fn)
	}
}

func (s *Store) State(h Handle, key string) (int, bool) {
	e, ok := s.Get(h)
	if !ok {
		return 0, false
	}
	v, ok := e.States[key]
	return v, ok
}

func (s *Store) SetState(h Handle, key string, value int) {
	if e, ok := s.Get(h); ok {
		e.States[key] = value
	}
}

func (s *Store) RemoveState(h Handle, key string) {
	if e, ok := s.Get(h); ok {
		delete(e.States, key)
	}
}

func (s *Store) attach(h, parent Handle) {
	e, _ := s.Get(h)
	p, ok := s.Get(parent)
	if !ok {
		e.parent = 0
		return
	}
	e.parent = parent
	p.children = append(p.children, h)
	p.index(e)
}

func (s *Store) detach(e *Entity) {
	p, ok := s.Get(e.parent)
	e.parent = 0
	if !ok {
		return
	}
	for i, c := range p.children {
		if c == e.handle {
			p.children = append(p.children[:i], p.children[i+1:]...)
			break
		}
	}
	p.unindex(e)
}

// reparent moves h under newParent without any consent checks. A zero
// newParent leaves h detached. Only World.Transfer may call it.
func (s *Store) reparent(h, newParent Handle) {
	e, ok := s.Get(h)
	if !ok {
		return
	}
	s.detach(e)
	if !newParent.IsZero() {
		s.attach(h, newParent)
	}
}

func (e *Entity) index(child *Entity) {
	if e.names == nil {
		e.names = make(map[string][]Handle)
	}
	e.names[child.name] = append(e.names[child.name], child.handle)
}

func (e *Entity) unindex(child *Entity) {
	hs := e.names[child.name]
	for i, h := range hs {
		if h == child.handle {
			hs = append(hs[:i], hs[i+1:]...)
			break
		}
	}
	if len(hs) == 0 {
		delete(e.names, child.name)
		return
	}
	e.names[child.name] = hs
}
