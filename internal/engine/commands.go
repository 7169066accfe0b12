package engine

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/tatianab/storyworld/internal/resources"
	"github.com/tatianab/storyworld/internal/world"
)

type verb int

const (
	verbLook verb = iota
	verbWalk
	verbTake
	verbDrop
	verbUse
	verbTalk
	verbInventory
	verbSave
)

// verbKeys is also the matching order.
var verbKeys = []struct {
	verb verb
	key  string
}{
	{verbLook, "look"},
	{verbWalk, "walk"},
	{verbTake, "take"},
	{verbDrop, "drop"},
	{verbUse, "use"},
	{verbTalk, "talk"},
	{verbInventory, "inventory"},
	{verbSave, "save"},
}

const (
	msgInvalidCommand     = "${core.parser.invalid_command}"
	msgInvalidTarget      = "${core.parser.invalid_target}"
	msgInvalidCombination = "${core.parser.use.invalid_combination}"
	msgBusy               = "${core.parser.busy}"
	msgTaken              = "${core.parser.take.done}"
	msgDropped            = "${core.parser.drop.done}"
	msgSaved              = "${core.parser.save.done}"
	msgSaveDisabled       = "${core.parser.save.disabled}"
)

type pattern struct {
	verb  verb
	words []string
}

type parser struct {
	ignore           map[string]bool
	patterns         []pattern
	keywordPlace     string
	keywordInventory string
	separator        string
}

type command struct {
	verb verb
	args []string
}

func (c command) arg() string { return strings.Join(c.args, " ") }

func newParser(t *resources.Table) (*parser, error) {
	p := &parser{ignore: map[string]bool{}}
	ignore, err := t.List("core.parser.ignore_words")
	if err != nil {
		return nil, err
	}
	for _, w := range ignore {
		p.ignore[strings.ToLower(w)] = true
	}
	for _, vk := range verbKeys {
		forms, err := t.List("core.parser.commands." + vk.key)
		if err != nil {
			return nil, err
		}
		for _, f := range forms {
			p.patterns = append(p.patterns, pattern{verb: vk.verb, words: strings.Fields(f)})
		}
	}
	if p.keywordPlace, err = t.Lookup("core.parser.look.keyword_place"); err != nil {
		return nil, err
	}
	if p.keywordInventory, err = t.Lookup("core.parser.look.keyword_inventory"); err != nil {
		return nil, err
	}
	if p.separator, err = t.Lookup("core.parser.use.separator"); err != nil {
		return nil, err
	}
	return p, nil
}

// parse drops ignored words and matches the leading words against the verb
// forms in order. Verbs match case-insensitively; arguments keep their case
// because entity names are case-sensitive.
func (p *parser) parse(line string) (command, bool) {
	var words []string
	for _, w := range strings.Fields(line) {
		if !p.ignore[strings.ToLower(w)] {
			words = append(words, w)
		}
	}
	if len(words) == 0 {
		return command{}, false
	}
	for _, pat := range p.patterns {
		if len(pat.words) > len(words) {
			continue
		}
		matches := true
		for i, w := range pat.words {
			if !strings.EqualFold(words[i], w) {
				matches = false
				break
			}
		}
		if matches {
			return command{verb: pat.verb, args: words[len(pat.words):]}, true
		}
	}
	return command{}, false
}

// Execute runs one line of player input. While a choice is pending a number
// picks an option; while any other scene step is pending input is refused.
// Only structural failures are returned, including those raised inside kind
// hooks; everything the player did wrong is answered in the transcript.
func (g *Game) Execute(ctx context.Context, line string) error {
	err := g.execute(ctx, line)
	return errors.Join(err, g.World.TakeErr())
}

func (g *Game) execute(ctx context.Context, line string) error {
	if !g.Alive() {
		return ErrNoPlayer
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	if labels, ok := g.PendingChoice(); ok {
		n, err := strconv.Atoi(line)
		if err != nil || n < 1 || n > len(labels) {
			g.say(msgBusy)
			return nil
		}
		return g.Choose(n - 1)
	}
	if g.Busy() {
		g.say(msgBusy)
		return nil
	}

	cmd, ok := g.parser.parse(line)
	if !ok {
		return g.improvise(ctx, line)
	}
	g.log.Debug("command", zap.String("line", line), zap.Int("verb", int(cmd.verb)))

	switch cmd.verb {
	case verbLook:
		g.look(cmd.arg())
	case verbWalk:
		g.walk(cmd.arg())
	case verbTake:
		g.take(cmd.arg())
	case verbDrop:
		g.drop(cmd.arg())
	case verbUse:
		g.use(cmd.args)
	case verbTalk:
		if !g.World.TalkTo(g.player, cmd.arg()) {
			g.say(msgInvalidTarget)
		}
	case verbInventory:
		g.say(g.InventoryList(g.player, true) + ".")
	case verbSave:
		if g.store == nil || !g.cfg.Game.SaveEnabled {
			g.say(msgSaveDisabled)
			return nil
		}
		if err := g.Save(ctx); err != nil {
			return err
		}
		g.say(msgSaved)
		return nil
	}

	// a world a hook failed in is not saved
	if err := g.World.TakeErr(); err != nil {
		return err
	}
	if g.Alive() {
		return g.Save(ctx)
	}
	return nil
}

func (g *Game) say(text string) {
	g.Transcript.ShowText(g.player, text)
}

func (g *Game) look(target string) {
	place, ok := g.World.Location(g.player)
	if !ok {
		g.say(msgInvalidTarget)
		return
	}
	switch {
	case target == "" || target == g.parser.keywordPlace || target == g.World.Name(place):
		g.say(g.Describe(place))
	case target == g.parser.keywordInventory:
		g.say(g.InventoryList(g.player, true) + ".")
	default:
		h, ok := g.World.FindByName(place, target, true)
		if !ok {
			g.say(msgInvalidTarget)
			return
		}
		g.say(g.Describe(h))
	}
}

// walk moves the player to a place next to its current one. Whether the
// place can be reached is the transfer protocol's call.
func (g *Game) walk(target string) {
	place, ok := g.World.Location(g.player)
	if !ok {
		g.say(msgInvalidTarget)
		return
	}
	dest, ok := g.World.FindByName(g.World.Parent(place), target, false)
	if !ok || !g.World.IsPlace(dest) || dest == place {
		g.say(msgInvalidTarget)
		return
	}
	if !g.World.Transfer(g.player, dest) {
		g.say(msgInvalidTarget)
		return
	}
	if g.World.Alive(g.player) && g.World.Parent(g.player) == dest && !g.Busy() {
		g.say(g.Describe(dest))
	}
}

func (g *Game) take(target string) {
	place, ok := g.World.Location(g.player)
	if !ok {
		g.say(msgInvalidTarget)
		return
	}
	item, ok := g.World.FindByName(place, target, true)
	if !ok || item == g.player || g.World.IsAncestor(g.player, item) || g.World.IsPlace(item) {
		g.say(msgInvalidTarget)
		return
	}
	if !g.World.Transfer(item, g.player) {
		g.say(msgInvalidTarget)
		return
	}
	g.say(msgTaken)
}

func (g *Game) drop(target string) {
	place, ok := g.World.Location(g.player)
	if !ok {
		g.say(msgInvalidTarget)
		return
	}
	item, ok := g.World.FindByName(g.player, target, false)
	if !ok || !g.World.Transfer(item, place) {
		g.say(msgInvalidTarget)
		return
	}
	g.say(msgDropped)
}

// use handles "use A" and "use A <separator> B".
func (g *Game) use(args []string) {
	place, ok := g.World.Location(g.player)
	if !ok || len(args) == 0 {
		g.say(msgInvalidTarget)
		return
	}
	nameA, nameB := strings.Join(args, " "), ""
	for i, w := range args {
		if strings.EqualFold(w, g.parser.separator) {
			nameA, nameB = strings.Join(args[:i], " "), strings.Join(args[i+1:], " ")
			break
		}
	}

	var other world.Handle
	if nameB != "" {
		if other, ok = g.World.FindByName(place, nameB, true); !ok {
			g.say(msgInvalidTarget)
			return
		}
	}
	item, ok := g.World.FindByName(place, nameA, true)
	if !ok {
		g.say(msgInvalidTarget)
		return
	}
	if !g.World.Use(g.player, item, other) {
		g.say(msgInvalidCombination)
	}
}

// improvise hands an unknown command to the narrator, if there is one.
func (g *Game) improvise(ctx context.Context, line string) error {
	if g.narrator == nil {
		g.say(msgInvalidCommand)
		return nil
	}
	s := Scene{
		Language:  g.Strings.Language.String(),
		Command:   line,
		Inventory: g.Inventory(),
		Exits:     g.Exits(),
	}
	if place, ok := g.World.Location(g.player); ok {
		s.Place = g.World.Name(place)
		s.Description = g.Describe(place)
	}
	reply, err := g.narrator.Narrate(ctx, s)
	if err != nil {
		g.log.Warn("narrator failed", zap.Error(err))
		g.say(msgInvalidCommand)
		return nil
	}
	g.say(reply)
	return nil
}

