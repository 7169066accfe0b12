package world

import (
	"errors"
	"fmt"
)

var (
	ErrNotPlace             = errors.New("not a place")
	ErrNotConnected         = errors.New("places are not connected")
	ErrUnresolvedConnection = errors.New("unresolved connection")
)

// Connect adds b to a's adjacency list. Connections are one-directional; call
// it twice for a two-way passage.
func (w *World) Connect(a, b Handle) error {
	ea, ok := w.Get(a)
	if !ok || !ea.place {
		return fmt.Errorf("connect %s: %w", w.Name(a), ErrNotPlace)
	}
	if !w.IsPlace(b) {
		return fmt.Errorf("connect %s to %s: %w", ea.name, w.Name(b), ErrNotPlace)
	}
	for _, c := range ea.connections {
		if c == b {
			return nil
		}
	}
	ea.connections = append(ea.connections, b)
	return nil
}

// Disconnect removes the connection from a to the place called name.
func (w *World) Disconnect(a Handle, name string) error {
	ea, ok := w.Get(a)
	if !ok || !ea.place {
		return fmt.Errorf("disconnect %s: %w", w.Name(a), ErrNotPlace)
	}
	for i, c := range ea.connections {
		if w.Name(c) == name {
			ea.connections = append(ea.connections[:i], ea.connections[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("disconnect %s from %s: %w", ea.name, name, ErrNotConnected)
}

// Connections returns the live places a connects to, in connection order.
func (w *World) Connections(a Handle) []Handle {
	ea, ok := w.Get(a)
	if !ok {
		return nil
	}
	out := make([]Handle, 0, len(ea.connections))
	for _, c := range ea.connections {
		if w.Alive(c) {
			out = append(out, c)
		}
	}
	return out
}

// Declare records neighbour names for a later BuildDeclaredConnections.
func (w *World) Declare(place Handle, names ...string) {
	if e, ok := w.Get(place); ok {
		e.declared = append(e.declared, names...)
	}
}

func (w *World) Declared(place Handle) []string {
	e, ok := w.Get(place)
	if !ok {
		return nil
	}
	return append([]string(nil), e.declared...)
}

// BuildDeclaredConnections resolves place's declared neighbour names among its
// siblings and connects to them. It stops at the first name that does not
// resolve to a sibling place; connections made before that point are kept.
func (w *World) BuildDeclaredConnections(place Handle) error {
	e, ok := w.Get(place)
	if !ok || !e.place {
		return fmt.Errorf("build connections of %s: %w", w.Name(place), ErrNotPlace)
	}
	for _, name := range e.declared {
		other, ok := w.FindByName(e.parent, name, false)
		if !ok || !w.IsPlace(other) {
			return fmt.Errorf("%s -> %s: %w", e.name, name, ErrUnresolvedConnection)
		}
		if err := w.Connect(place, other); err != nil {
			return err
		}
	}
	return nil
}

// BuildAllConnections builds the declared connections of every place in the
// tree, depth-first, stopping at the first error.
func (w *World) BuildAllConnections() error {
	var err error
	w.Walk(w.Root(), func(h Handle, e *Entity) bool {
		if err != nil {
			return false
		}
		if e.place {
			err = w.BuildDeclaredConnections(h)
		}
		return err == nil
	})
	return err
}

// Reachable reports whether to can be reached from from by following
// connections. from itself only counts when a path leads back to it.
func (w *World) Reachable(from, to Handle) bool {
	if !w.IsPlace(from) {
		return false
	}
	visited := map[Handle]bool{from: true}
	queue := []Handle{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range w.Connections(cur) {
			if next == to {
				return true
			}
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}
	return false
}
