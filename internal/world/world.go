package world

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

var ErrNoScenePlayer = errors.New("no scene player attached")

// ScenePlayer starts a named scene for a player. The scene package provides it;
// kinds reach it through World.PlayScene.
type ScenePlayer interface {
	PlayScene(name string, player Handle) error
}

// Output receives player-facing lines emitted by kind hooks.
type Output interface {
	ShowText(player Handle, text string)
}

// World ties the entity arena to the kind table and runs the transfer protocol.
// It is not safe for concurrent use; everything runs on the game loop.
type World struct {
	*Store

	log       *zap.Logger
	listeners []func(TransferEvent)
	moving    map[Handle]bool
	scenes    ScenePlayer
	out       Output
	failed    []error
}

func New(kinds *Kinds, log *zap.Logger) *World {
	if kinds == nil {
		kinds = NewKinds()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &World{
		Store:  NewStore(kinds),
		log:    log,
		moving: make(map[Handle]bool),
	}
}

func (w *World) Logger() *zap.Logger { return w.log }

// Create allocates an entity of kind under parent and runs the kind's Init hook.
func (w *World) Create(kind string, parent Handle) (Handle, error) {
	h, err := w.Store.Create(kind, parent)
	if err != nil {
		return 0, err
	}
	w.initEntity(h)
	return h, nil
}

// CreateDetached allocates an entity of kind with no parent. Spawning code
// transfers it into place afterwards.
func (w *World) CreateDetached(kind string) (Handle, error) {
	h, err := w.Store.CreateDetached(kind)
	if err != nil {
		return 0, err
	}
	w.initEntity(h)
	return h, nil
}

func (w *World) initEntity(h Handle) {
	if b := w.Behavior(h); b != nil && b.Init != nil {
		b.Init(w, h)
	}
}

// Behavior returns the kind behaviour of h, or nil when h is not alive.
func (w *World) Behavior(h Handle) *Behavior {
	e, ok := w.Get(h)
	if !ok {
		return nil
	}
	b, _ := w.Kinds().Lookup(e.Kind)
	return b
}

func (w *World) IsPlace(h Handle) bool {
	e, ok := w.Get(h)
	return ok && e.place
}

func (w *World) IsPlayer(h Handle) bool {
	b := w.Behavior(h)
	return b != nil && b.Player
}

// OnTransfer registers fn to run after every successful transfer, once the
// tree-wide broadcast has finished.
func (w *World) OnTransfer(fn func(TransferEvent)) {
	w.listeners = append(w.listeners, fn)
}

func (w *World) SetScenePlayer(p ScenePlayer) { w.scenes = p }
func (w *World) SetOutput(o Output)           { w.out = o }

// PlayScene starts the named scene for player. A scene that cannot start is
// a broken world: the error is returned and also held until TakeErr, so it
// reaches the game loop even when a kind hook swallows it.
func (w *World) PlayScene(name string, player Handle) error {
	err := fmt.Errorf("play %q: %w", name, ErrNoScenePlayer)
	if w.scenes != nil {
		err = w.scenes.PlayScene(name, player)
	}
	if err != nil {
		w.failed = append(w.failed, err)
	}
	return err
}

// TakeErr returns the fatal errors raised inside hooks since the last call,
// joined, and clears them.
func (w *World) TakeErr() error {
	err := errors.Join(w.failed...)
	w.failed = nil
	return err
}

// Say shows text to player if an output is attached.
func (w *World) Say(player Handle, text string) {
	if w.out != nil {
		w.out.ShowText(player, text)
	}
}

// TalkTo lets speaker talk to the entity called name at speaker's location.
// It reports false when nobody by that name is there or the entity has
// nothing to say.
func (w *World) TalkTo(speaker Handle, name string) bool {
	place, ok := w.Location(speaker)
	if !ok {
		return false
	}
	target := place
	if w.Name(place) != name {
		if target, ok = w.FindByName(place, name, true); !ok {
			return false
		}
	}
	b := w.Behavior(target)
	if b == nil || b.OnTalk == nil {
		return false
	}
	return b.OnTalk(w, target, speaker)
}

// Use applies item, optionally together with other, on behalf of user.
func (w *World) Use(user, item, other Handle) bool {
	b := w.Behavior(item)
	if b == nil || b.OnUse == nil {
		return false
	}
	return b.OnUse(w, item, user, other)
}

// Launch runs every entity's OnLaunch hook depth-first. Call it once the world
// is restored and its connections are built.
func (w *World) Launch() {
	w.Walk(w.Root(), func(h Handle, e *Entity) bool {
		if b := w.Behavior(h); b != nil && b.OnLaunch != nil {
			b.OnLaunch(w, h)
		}
		return true
	})
}
