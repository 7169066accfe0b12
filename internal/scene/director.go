package scene

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tatianab/storyworld/internal/world"
)

var (
	ErrUnknownScene = errors.New("unknown scene")
	ErrNoPlayer     = errors.New("player does not exist")
)

// Director starts runners and routes choices to them. Runners of a player
// that is destroyed are abandoned along with their pending wake-ups.
type Director struct {
	world   *world.World
	sched   *Scheduler
	surface Surface
	library *Library
	log     *zap.Logger
	decode  world.NameDecoder

	runners []*Runner
}

// NewDirector wires a director into w: it becomes w's scene player and
// watches w for destroyed players.
func NewDirector(w *world.World, sched *Scheduler, surface Surface, lib *Library, log *zap.Logger) *Director {
	if log == nil {
		log = zap.NewNop()
	}
	if lib == nil {
		lib = NewLibrary()
	}
	d := &Director{
		world:   w,
		sched:   sched,
		surface: surface,
		library: lib,
		log:     log,
	}
	w.SetScenePlayer(d)
	w.OnDestroy(d.entityDestroyed)
	return d
}

// SetNameDecoder makes entity names in steps go through decode before they
// are looked up, so scripts can name entities by resource reference.
func (d *Director) SetNameDecoder(decode world.NameDecoder) { d.decode = decode }

func (d *Director) Library() *Library     { return d.library }
func (d *Director) Scheduler() *Scheduler { return d.sched }

// PlayScene starts the library scene called name for player.
func (d *Director) PlayScene(name string, player world.Handle) error {
	g, ok := d.library.Get(name)
	if !ok {
		return fmt.Errorf("play %q: %w", name, ErrUnknownScene)
	}
	_, err := d.Play(g, player)
	return err
}

// Play starts g for player and runs it up to its first suspension point.
func (d *Director) Play(g *Graph, player world.Handle) (*Runner, error) {
	if !d.world.Alive(player) {
		return nil, fmt.Errorf("play %s: %w", g.Name, ErrNoPlayer)
	}
	r := &Runner{
		ID:     uuid.New(),
		graph:  g,
		player: player,
		d:      d,
		cursor: g.Entry,
	}
	d.runners = append(d.runners, r)
	d.log.Debug("scene started",
		zap.String("scene", g.Name),
		zap.String("runner", r.ID.String()),
		zap.String("player", d.world.Name(player)))
	if err := r.run(); err != nil {
		d.log.Error("scene failed", zap.String("scene", g.Name), zap.Error(err))
		return r, err
	}
	return r, nil
}

// Choose resolves the oldest pending choice of player.
func (d *Director) Choose(player world.Handle, option int) error {
	for _, r := range d.runners {
		if r.player == player && r.state == Choosing {
			return r.Choose(option)
		}
	}
	return ErrNoPendingChoice
}

// PendingChoice returns the labels of player's oldest pending choice.
func (d *Director) PendingChoice(player world.Handle) ([]string, bool) {
	for _, r := range d.runners {
		if r.player == player && r.state == Choosing {
			return r.Choices(), true
		}
	}
	return nil, false
}

// Active returns the live runners of player.
func (d *Director) Active(player world.Handle) []*Runner {
	var out []*Runner
	for _, r := range d.runners {
		if r.player == player {
			out = append(out, r)
		}
	}
	return out
}

// Busy reports whether any scene is playing for player.
func (d *Director) Busy(player world.Handle) bool {
	return len(d.Active(player)) > 0
}

func (d *Director) name(raw string) string {
	if d.decode == nil {
		return raw
	}
	s, err := d.decode(raw)
	if err != nil {
		d.log.Warn("undecodable entity name", zap.String("name", raw), zap.Error(err))
		return raw
	}
	return s
}

// find looks an entity up anywhere in the world by its decoded name.
func (d *Director) find(raw string) (world.Handle, bool) {
	return d.world.Find(d.name(raw))
}

func (d *Director) release(r *Runner) {
	for i, x := range d.runners {
		if x == r {
			d.runners = append(d.runners[:i], d.runners[i+1:]...)
			break
		}
	}
	d.log.Debug("scene released",
		zap.String("scene", r.graph.Name),
		zap.String("runner", r.ID.String()),
		zap.Stringer("state", r.state))
}

func (d *Director) entityDestroyed(h world.Handle) {
	for _, r := range d.Active(h) {
		r.abandon()
	}
	if n := d.sched.CancelOwner(h); n > 0 {
		d.log.Debug("cancelled wake-ups of destroyed entity", zap.Int("count", n))
	}
}
