package engine

import (
	"strings"

	"github.com/tatianab/storyworld/internal/world"
)

const (
	keyInventoryList = "core.entity.inventory_list."
	keyExitList      = "core.place.exit_list."
)

// Describe renders what the player sees when looking at h: its description,
// what it holds and, for places, where one can go from there.
func (g *Game) Describe(h world.Handle) string {
	e, ok := g.World.Get(h)
	if !ok {
		return ""
	}
	desc := g.decode(e.Description)
	if e.IsPlace() {
		var parts []string
		if inv := g.InventoryList(h, false); inv != "" {
			parts = append(parts, inv)
		}
		parts = append(parts, g.ExitList(h))
		return desc + "\n" + strings.Join(parts, ". ") + "."
	}
	if inv := g.InventoryList(h, false); inv != "" {
		return desc + " " + inv + "."
	}
	return desc
}

// InventoryList renders the children of h as a sentence fragment. The player
// is left out when describing its own location. With emptyNote an empty
// inventory is still mentioned.
func (g *Game) InventoryList(h world.Handle, emptyNote bool) string {
	e, ok := g.World.Get(h)
	if !ok {
		return ""
	}
	var names []string
	for _, c := range g.World.Children(h) {
		if c == g.player {
			continue
		}
		names = append(names, g.World.Name(c))
	}

	pronoun := g.str(keyInventoryList + pronounKey(e.Gender))
	if len(names) == 0 {
		if emptyNote {
			return pronoun + " " + g.str(keyInventoryList+"empty_entity")
		}
		return ""
	}
	var b strings.Builder
	if e.IsPlace() {
		b.WriteString(g.str(keyInventoryList + "place_beginning"))
	} else {
		b.WriteString(pronoun + " " + g.str(keyInventoryList+"entity_beginning"))
	}
	g.joinNames(&b, names, keyInventoryList)
	return b.String()
}

// ExitList renders the places connected to place.
func (g *Game) ExitList(place world.Handle) string {
	conns := g.World.Connections(place)
	if len(conns) == 0 {
		return g.str(keyExitList + "no_exits")
	}
	names := make([]string, len(conns))
	for i, c := range conns {
		names[i] = g.World.Name(c)
	}
	var b strings.Builder
	b.WriteString(g.str(keyExitList + "beginning"))
	g.joinNames(&b, names, keyExitList)
	return b.String()
}

// joinNames writes "a, b and c" using the separators under prefix.
func (g *Game) joinNames(b *strings.Builder, names []string, prefix string) {
	for i, n := range names {
		switch {
		case i == 0:
		case i == len(names)-1:
			b.WriteString(g.str(prefix + "last_separator"))
		default:
			b.WriteString(g.str(prefix + "normal_separator"))
		}
		b.WriteString(n)
	}
}

func pronounKey(gender world.Gender) string {
	switch gender {
	case world.Masculine:
		return "masculine_pronoun"
	case world.Feminine:
		return "feminine_pronoun"
	default:
		return "neuter_pronoun"
	}
}
