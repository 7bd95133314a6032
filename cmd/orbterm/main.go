// Command orbterm plays Orbline in the terminal against the local save slot.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gdamore/tcell/v2"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/orbline/assets"
	"github.com/robalobadob/orbline/internal/config"
	"github.com/robalobadob/orbline/internal/game"
	"github.com/robalobadob/orbline/internal/palette"
	"github.com/robalobadob/orbline/internal/sfx"
	"github.com/robalobadob/orbline/internal/store"
	"github.com/robalobadob/orbline/internal/term"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "orbterm: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// The screen owns the terminal; logs go to a file next to the database.
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return err
	}
	logFile, err := os.OpenFile(filepath.Join(filepath.Dir(cfg.DBPath), "orbterm.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer logFile.Close()
	log.Logger = zerolog.New(logFile).With().Timestamp().Logger()
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	pal, err := palette.Load(cfg.PaletteFile)
	if err != nil {
		return err
	}
	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := store.Migrate(db, assets.Migrations()); err != nil {
		return err
	}

	g, err := game.New(cfg.Rules, pal, term.SeedNow(),
		game.WithID(term.LocalSave),
		game.WithLogger(log.Logger.With().Str("component", "game").Logger()),
	)
	if err != nil {
		return err
	}

	var player *sfx.Player
	if cfg.Sound {
		player = sfx.NewPlayer(sfx.Config{SampleRate: sfx.DefaultConfig().SampleRate, Volume: cfg.SFXVolume})
		if err := player.Init(); err != nil {
			log.Warn().Err(err).Msg("audio unavailable, playing silently")
			player = nil
		} else {
			defer player.Close()
		}
	}

	scr, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := scr.Init(); err != nil {
		return err
	}
	defer scr.Fini()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("db", cfg.DBPath).Bool("sound", player != nil).Msg("starting orbterm")
	return term.New(g, scr, store.NewSQLiteStore(db), player).Run(ctx)
}
