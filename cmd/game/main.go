package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"os"

	"go.uber.org/zap"

	"github.com/tatianab/storyworld/internal/config"
	"github.com/tatianab/storyworld/internal/content"
	"github.com/tatianab/storyworld/internal/engine"
	"github.com/tatianab/storyworld/internal/logging"
	"github.com/tatianab/storyworld/internal/models"
	"github.com/tatianab/storyworld/internal/tui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to a toml config file")
	newGame := flag.Bool("new", false, "start from the world file instead of the save slot")
	noSave := flag.Bool("n", false, "do not write saves")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *noSave {
		cfg.Game.SaveEnabled = false
	}

	log, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	var contentFS fs.FS = content.FS
	if cfg.Game.ContentDir != "" {
		contentFS = os.DirFS(cfg.Game.ContentDir)
	}

	store, closeStore, err := openStore(ctx, cfg.Storage, log)
	if err != nil {
		return err
	}
	defer closeStore()

	opts := engine.Options{
		Config:  cfg,
		Content: contentFS,
		Store:   store,
		Log:     log,
		NewGame: *newGame,
	}
	if cfg.Narrator.Enabled {
		narrator, err := engine.NewGeminiNarrator(ctx, cfg.Narrator)
		if err != nil {
			return fmt.Errorf("create narrator: %w", err)
		}
		defer narrator.Close()
		opts.Narrator = narrator
	}

	game, err := engine.New(ctx, opts)
	if err != nil {
		return err
	}
	defer game.Close()

	if err := tui.Run(game, cfg.Game.TickRate); err != nil {
		return fmt.Errorf("run TUI: %w", err)
	}
	return nil
}

func openStore(ctx context.Context, cfg config.StorageConfig, log *zap.Logger) (models.Store, func(), error) {
	switch cfg.Driver {
	case "postgres":
		pg, err := models.NewPostgresStore(ctx, cfg, log.Named("saves"))
		if err != nil {
			return nil, nil, fmt.Errorf("open save database: %w", err)
		}
		return pg, pg.Close, nil
	default:
		return models.NewFileStore(cfg.SaveDir), func() {}, nil
	}
}
