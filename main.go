package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"safr-server/confs"
	"safr-server/db"
	"safr-server/logging"
	"safr-server/server"

	"github.com/gin-gonic/gin"
)

func main() {
	// load config
	if err := confs.LoadEnvFile(); err != nil {
		logging.Fatal().Err(err).Msg("Error loading .env")
	}
	cfg, err := confs.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Error loading config")
	}

	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if cfg.Log.Level != "debug" && cfg.Log.Level != "trace" {
		gin.SetMode(gin.ReleaseMode)
	}
	logging.Info().Str("config", cfg.String()).Msg("configuration loaded")

	// connect to database Postgres
	database, err := db.Connect(cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to connect to DB")
	}
	defer database.Close()

	srv, err := server.NewServer(cfg, database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to build server")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// run server
	if err := srv.Start(ctx); err != nil {
		logging.Error().Err(err).Msg("server stopped with error")
		os.Exit(1)
	}
}
