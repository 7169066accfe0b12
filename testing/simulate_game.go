package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/tatianab/storyworld/internal/config"
	"github.com/tatianab/storyworld/internal/content"
	"github.com/tatianab/storyworld/internal/engine"
)

// step is how far the simulated clock moves while a scene is waiting.
const step = 100 * time.Millisecond

// maxWait bounds how long one command may keep a scene busy.
const maxWait = time.Minute

var walkthrough = []string{
	"look",
	"take Lamp",
	"go Village",
	"go Harbour Road",
	"go Harbour",
	"go Village",
	"go Yard",
	"take Strange Coil",
	"go Village",
	"talk to Gerrit",
	"inventory",
	"use Jam",
	"go Harbour Road",
	"go Harbour",
	"look around",
}

func main() {
	lang := flag.String("lang", "en", "language of the string table")
	commands := flag.String("commands", "", "semicolon separated commands to play instead of the walkthrough")
	flag.Parse()

	ctx := context.Background()
	cfg, err := config.LoadConfig("")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg.Game.Language = *lang
	cfg.Game.SaveEnabled = false
	cfg.Narrator.Enabled = false

	now := time.Date(2017, 6, 1, 12, 0, 0, 0, time.UTC)
	game, err := engine.New(ctx, engine.Options{
		Config:  cfg,
		Content: content.FS,
		Now:     now,
		NewGame: true,
	})
	if err != nil {
		log.Fatalf("Failed to create game: %v", err)
	}
	defer game.Close()

	plan := walkthrough
	if *commands != "" {
		plan = strings.Split(*commands, ";")
	}

	game.Start()
	printEvents(game)

	for turn, cmd := range plan {
		fmt.Printf("--- Turn %d ---\n> %s\n", turn+1, cmd)
		if err := game.Execute(ctx, cmd); err != nil {
			fmt.Printf("Error processing turn: %v\n", err)
			break
		}
		printEvents(game)
		now = settle(game, now)
		if !game.Alive() {
			fmt.Println("Game Ended: the player is gone.")
			break
		}
	}
}

// settle advances the clock until no scene is waiting, always taking the
// first option of any choice.
func settle(game *engine.Game, now time.Time) time.Time {
	deadline := now.Add(maxWait)
	for game.Busy() && now.Before(deadline) {
		if labels, ok := game.PendingChoice(); ok {
			fmt.Printf("(choosing %q)\n", labels[0])
			if err := game.Choose(0); err != nil {
				fmt.Printf("Error choosing: %v\n", err)
				return now
			}
			printEvents(game)
			continue
		}
		now = now.Add(step)
		if err := game.Tick(now); err != nil {
			fmt.Printf("Error advancing scenes: %v\n", err)
			return now
		}
		printEvents(game)
	}
	return now
}

func printEvents(game *engine.Game) {
	for _, ev := range game.Transcript.Drain() {
		switch ev.Kind {
		case engine.EventText:
			fmt.Println(ev.Text)
		case engine.EventChoices:
			for i, c := range ev.Choices {
				fmt.Printf("  %d) %s\n", i+1, c)
			}
		}
	}
}
