package world

import (
	"errors"
	"fmt"
	"sort"

	"github.com/tatianab/storyworld/internal/models"
)

// Built-in kinds every kind table carries.
const (
	KindWorld  = "world"
	KindEntity = "entity"
	KindStatic = "static"
	KindPlace  = "place"
	KindPlayer = "player"
)

// StateVisited counts how often a player entered a place.
const StateVisited = "visited"

var (
	ErrDuplicateKind = errors.New("kind already registered")
	ErrBadGender     = errors.New("unknown grammatical gender")
)

// Gender is the grammatical gender used by text generation. The world model
// never interprets it.
type Gender int

const (
	Neuter Gender = iota
	Masculine
	Feminine
)

func (g Gender) String() string {
	switch g {
	case Masculine:
		return "m"
	case Feminine:
		return "f"
	default:
		return "n"
	}
}

// ParseGender accepts the save-file codes m, f and n. Empty means neuter.
func ParseGender(s string) (Gender, error) {
	switch s {
	case "m":
		return Masculine, nil
	case "f":
		return Feminine, nil
	case "n", "":
		return Neuter, nil
	}
	return Neuter, fmt.Errorf("%w: %q", ErrBadGender, s)
}

// TransferEvent describes a completed transfer. To is zero when the subject
// was dropped into the void.
type TransferEvent struct {
	Subject Handle
	From    Handle
	To      Handle
}

// Behavior is the per-kind dispatch table. Nil hooks fall back to the default
// policy of the corresponding operation.
type Behavior struct {
	Place     bool
	Immovable bool
	Player    bool
	Gender    Gender

	// Init runs right after an entity of this kind is created, before it is
	// visible to anything else. Use it for default states.
	Init func(w *World, self Handle)

	CanMove    func(w *World, self, target Handle) bool
	CanRelease func(w *World, self, subject, target Handle) bool
	CanReceive func(w *World, self, subject Handle) bool
	OnTransfer func(w *World, self Handle, ev TransferEvent)

	// OnTalk and OnUse report whether the interaction did anything.
	OnTalk   func(w *World, self, speaker Handle) bool
	OnUse    func(w *World, self, user, other Handle) bool
	OnLaunch func(w *World, self Handle)

	Save func(w *World, self Handle, rec *models.EntityRecord)
	Load func(w *World, self Handle, rec *models.EntityRecord) error
}

// Kinds maps kind names to behaviours.
type Kinds struct {
	byName map[string]*Behavior
}

// NewKinds returns a table holding the built-in kinds.
func NewKinds() *Kinds {
	k := &Kinds{byName: make(map[string]*Behavior)}
	k.byName[KindWorld] = &Behavior{Immovable: true}
	k.byName[KindEntity] = &Behavior{}
	k.byName[KindStatic] = &Behavior{Immovable: true}
	k.byName[KindPlace] = &Behavior{Place: true}
	k.byName[KindPlayer] = &Behavior{Player: true}
	return k
}

func (k *Kinds) Register(name string, b Behavior) error {
	if _, ok := k.byName[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateKind, name)
	}
	k.byName[name] = &b
	return nil
}

func (k *Kinds) Lookup(name string) (*Behavior, bool) {
	b, ok := k.byName[name]
	return b, ok
}

func (k *Kinds) Names() []string {
	names := make([]string, 0, len(k.byName))
	for n := range k.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
