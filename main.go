package main

import (
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/orbline/assets"
	"github.com/robalobadob/orbline/internal/config"
	"github.com/robalobadob/orbline/internal/httpserver"
	"github.com/robalobadob/orbline/internal/palette"
	"github.com/robalobadob/orbline/internal/store"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	pal, err := palette.Load(cfg.PaletteFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load palette")
	}

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("db", cfg.DBPath).Msg("failed to open database")
	}
	defer db.Close()
	if err := store.Migrate(db, assets.Migrations()); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	srv := httpserver.New(cfg, pal, store.NewSQLiteStore(db), db)
	log.Info().Str("port", cfg.Port).Str("topology", string(cfg.Rules.Topology)).Msg("starting orbline server")
	if err := srv.Start(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}
