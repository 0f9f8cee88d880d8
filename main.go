package main

import (
	"context"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/semduel/internal/game"
	"github.com/robalobadob/semduel/internal/history"
	"github.com/robalobadob/semduel/internal/httpserver"
	"github.com/robalobadob/semduel/internal/similarity"
	"github.com/robalobadob/semduel/internal/ws"
)

func main() {
	_ = godotenv.Load()
	if lvl, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info")); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	db, err := openDB(getEnv("DB_PATH", "./data/semduel.db"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open round archive")
	}
	hist := history.NewStore(db)
	if err := hist.Init(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("failed to init round archive schema")
	}

	scorer := similarity.New(getEnv("SIMILARITY_URL", "http://localhost:5001"))
	hub := ws.NewHub(splitCSV(os.Getenv("WS_ORIGINS")), os.Getenv("RESET_TOKEN"))
	coord := game.NewCoordinator(game.NewRegistry(), scorer, hub, hist)
	hub.Bind(coord)

	srv := httpserver.New(hub, coord, hist)
	port := getEnv("PORT", "5180")
	log.Info().Str("port", port).Msg("starting semduel server")
	if err := srv.Start(":" + port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
