package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jdvries/woordle/assets"
	"github.com/jdvries/woordle/internal/httpserver"
	"github.com/jdvries/woordle/internal/words"
)

func main() {
	_ = godotenv.Load()
	if lvl, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info")); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	db, err := openDB(getEnv("DB_PATH", "./data/app.db"))
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	if err := migrate(db); err != nil {
		log.Fatal().Err(err).Msg("apply migrations")
	}

	// Word lists come from the static host produced by the build pipeline,
	// or from the embedded defaults when none is configured.
	var src words.Source
	if base := os.Getenv("WORDLISTS_BASE_URL"); base != "" {
		src = words.NewHTTPSource(base)
		log.Info().Str("baseUrl", base).Msg("using remote word lists")
	} else {
		src = &words.FSSource{FS: assets.Wordlists()}
		log.Info().Msg("using embedded word lists")
	}

	srv := httpserver.New(db, src)
	port := getEnv("PORT", "5175")
	log.Info().Str("port", port).Msg("starting woordle server")
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
