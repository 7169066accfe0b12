// Package engine runs one game session: it restores the world, routes player
// commands to world operations and drives scenes off the scheduler clock.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"go.uber.org/zap"

	"github.com/tatianab/storyworld/internal/config"
	"github.com/tatianab/storyworld/internal/models"
	"github.com/tatianab/storyworld/internal/resources"
	"github.com/tatianab/storyworld/internal/scene"
	"github.com/tatianab/storyworld/internal/scripting"
	"github.com/tatianab/storyworld/internal/world"
)

var (
	ErrNoPlayer = errors.New("world has no player")
	ErrBusy     = errors.New("a scene is playing")
)

// Options collects what a Game is built from.
type Options struct {
	Config   *config.Config
	Content  fs.FS
	Store    models.Store // nil disables saving
	Narrator Narrator     // nil falls back to the invalid-command message
	Log      *zap.Logger
	Now      time.Time
	// NewGame ignores the save slot and starts from the bundled world file.
	NewGame bool
}

// Game is a running session.
type Game struct {
	World      *world.World
	Scheduler  *scene.Scheduler
	Director   *scene.Director
	Strings    *resources.Table
	Transcript *Transcript

	cfg      *config.Config
	log      *zap.Logger
	store    models.Store
	narrator Narrator
	lua      *scripting.Engine
	parser   *parser
	player   world.Handle
}

// New loads strings, kinds and scenes from opts.Content, then restores the
// world from the configured save slot or, failing that, the world file.
func New(ctx context.Context, opts Options) (*Game, error) {
	cfg := opts.Config
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	table, err := resources.Load(opts.Content, ".", cfg.Game.Language)
	if err != nil {
		return nil, fmt.Errorf("load strings: %w", err)
	}
	log.Info("string table loaded", zap.Stringer("language", table.Language))

	w := world.New(world.NewKinds(), log.Named("world"))
	transcript := NewTranscript(table, log)
	w.SetOutput(transcript)

	lua := scripting.NewEngine(w, log.Named("lua"))
	lua.SetText(table.Lookup)
	if err := lua.LoadFS(opts.Content, "kinds"); err != nil {
		lua.Close()
		return nil, fmt.Errorf("load kinds: %w", err)
	}

	lib, err := scene.LoadLibrary(opts.Content, "scenes")
	if err != nil {
		lua.Close()
		return nil, fmt.Errorf("load scenes: %w", err)
	}
	sched := scene.NewScheduler(now)
	director := scene.NewDirector(w, sched, transcript, lib, log.Named("scene"))
	director.SetNameDecoder(table.Decode)

	p, err := newParser(table)
	if err != nil {
		lua.Close()
		return nil, err
	}

	g := &Game{
		World:      w,
		Scheduler:  sched,
		Director:   director,
		Strings:    table,
		Transcript: transcript,
		cfg:        cfg,
		log:        log,
		store:      opts.Store,
		narrator:   opts.Narrator,
		lua:        lua,
		parser:     p,
	}
	if err := g.restore(ctx, opts); err != nil {
		lua.Close()
		return nil, err
	}
	return g, nil
}

func (g *Game) restore(ctx context.Context, opts Options) error {
	sf, err := g.loadSave(ctx, opts)
	if err != nil {
		return err
	}
	if err := g.World.Restore(sf, g.Strings.Decode); err != nil {
		return err
	}
	player, ok := g.findPlayer()
	if !ok {
		return fmt.Errorf("%w named %q", ErrNoPlayer, g.cfg.Game.Player)
	}
	g.player = player
	return nil
}

func (g *Game) loadSave(ctx context.Context, opts Options) (*models.SaveFile, error) {
	if g.store != nil && !opts.NewGame {
		sf, err := g.store.Load(ctx, g.cfg.Game.Slot)
		if err == nil {
			g.log.Info("restoring save", zap.String("slot", g.cfg.Game.Slot))
			return sf, nil
		}
		if !errors.Is(err, models.ErrNoSave) {
			return nil, err
		}
	}
	data, err := fs.ReadFile(opts.Content, g.cfg.Game.WorldFile)
	if err != nil {
		return nil, fmt.Errorf("read world file: %w", err)
	}
	g.log.Info("starting from world file", zap.String("file", g.cfg.Game.WorldFile))
	return models.ParseWorld(data)
}

// findPlayer prefers the configured name and falls back to the first player
// entity in the tree.
func (g *Game) findPlayer() (world.Handle, bool) {
	if h, ok := g.World.Find(g.cfg.Game.Player); ok && g.World.IsPlayer(h) {
		return h, true
	}
	var found world.Handle
	g.World.Walk(g.World.Root(), func(h world.Handle, _ *world.Entity) bool {
		if found.IsZero() && g.World.IsPlayer(h) {
			found = h
		}
		return found.IsZero()
	})
	return found, !found.IsZero()
}

func (g *Game) Close() {
	g.lua.Close()
}

func (g *Game) Player() world.Handle { return g.player }

// Start launches the world and shows the player where they are.
func (g *Game) Start() {
	g.World.Launch()
	if place, ok := g.World.Location(g.player); ok {
		g.Transcript.ShowText(g.player, g.Describe(place))
	}
}

// Tick advances the scene clock. Failures of due scene steps and of the hooks
// they set off are returned together.
func (g *Game) Tick(now time.Time) error {
	err := g.Scheduler.Advance(now)
	return errors.Join(err, g.World.TakeErr())
}

// Busy reports whether a scene currently owns the player's input.
func (g *Game) Busy() bool {
	return g.Director.Busy(g.player)
}

// PendingChoice returns the decoded labels the player currently has to pick
// from.
func (g *Game) PendingChoice() ([]string, bool) {
	labels, ok := g.Director.PendingChoice(g.player)
	if !ok {
		return nil, false
	}
	out := make([]string, len(labels))
	for i, l := range labels {
		out[i] = g.decode(l)
	}
	return out, true
}

func (g *Game) Choose(option int) error {
	return g.Director.Choose(g.player, option)
}

// Alive reports whether the player still exists. Scenes may destroy it.
func (g *Game) Alive() bool {
	return g.World.Alive(g.player)
}

// LocationName is the name of the player's place, or "" if it has none.
func (g *Game) LocationName() string {
	place, ok := g.World.Location(g.player)
	if !ok {
		return ""
	}
	return g.World.Name(place)
}

// Inventory lists the names of what the player carries.
func (g *Game) Inventory() []string {
	var names []string
	for _, c := range g.World.Children(g.player) {
		names = append(names, g.World.Name(c))
	}
	return names
}

// Exits lists the places connected to the player's place.
func (g *Game) Exits() []string {
	place, ok := g.World.Location(g.player)
	if !ok {
		return nil
	}
	var names []string
	for _, c := range g.World.Connections(place) {
		names = append(names, g.World.Name(c))
	}
	return names
}

// Save writes the world to the configured slot.
func (g *Game) Save(ctx context.Context) error {
	if g.store == nil || !g.cfg.Game.SaveEnabled {
		return nil
	}
	if err := g.store.Save(ctx, g.cfg.Game.Slot, g.World.Snapshot()); err != nil {
		return fmt.Errorf("save %s: %w", g.cfg.Game.Slot, err)
	}
	g.log.Info("world saved", zap.String("slot", g.cfg.Game.Slot))
	return nil
}

func (g *Game) str(key string) string {
	return g.Strings.MustLookup(key)
}

func (g *Game) decode(text string) string {
	s, err := g.Strings.Decode(text)
	if err != nil {
		g.log.Warn("undecodable text", zap.String("text", text), zap.Error(err))
		return text
	}
	return s
}
