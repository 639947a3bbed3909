package main

import (
	"net/http"
	"os"

	"card-clash/internal/config"
	"card-clash/internal/db"
	"card-clash/internal/server"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if err := config.LoadDotEnv(".env"); err != nil {
		log.Warn().Err(err).Msg("failed to load .env")
	}
	cfg := config.Load()

	var conn *gorm.DB
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		opened, err := db.Open(dsn)
		if err != nil {
			log.Fatal().Err(err).Msg("database connection failed")
		}
		if err := db.Configure(opened, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns,
			cfg.DBConnMaxLifetimeSeconds, cfg.DBConnMaxIdleTimeSeconds); err != nil {
			log.Fatal().Err(err).Msg("database pool configuration failed")
		}
		if err := db.Migrate(opened); err != nil {
			log.Fatal().Err(err).Msg("database migration failed")
		}
		conn = opened
	} else {
		log.Warn().Msg("DATABASE_URL not set, running without persistence")
	}

	addr := ":8080"
	if env := os.Getenv("PORT"); env != "" {
		addr = ":" + env
	}

	srv := server.New(conn, cfg)
	log.Info().Str("addr", addr).Msg("card-clash server listening")
	if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}
