package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"yellowpages-backend/config"
	"yellowpages-backend/database"
	"yellowpages-backend/logger"
	"yellowpages-backend/routes"
	"yellowpages-backend/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	logger.Init(cfg.LogLevel, cfg.Env)

	// ---- Database
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("database connect")
	}
	if err := database.Migrate(db); err != nil {
		if !cfg.FallbackEnabled {
			log.Fatal().Err(err).Msg("database migrate")
		}
		// keep serving; the store switches to demo data on first failure
		log.Error().Err(err).Msg("database migrate failed, continuing with fallback enabled")
	}

	vendors := store.NewVendorStore(database.NewVendorCollection(db), store.Options{
		FallbackEnabled: cfg.FallbackEnabled,
		FallbackOnEmpty: cfg.FallbackOnEmpty,
		Timeout:         cfg.DBTimeout,
	})

	// ---- Fiber app with global error handler, limits and routes
	app := routes.NewApp(routes.Deps{
		DB:             db,
		Store:          vendors,
		AdminJWTSecret: cfg.AdminJWTSecret,
		DBTimeout:      cfg.DBTimeout,
	}, routes.AppConfig{
		BodyLimit:       cfg.BodyLimitBytes,
		AllowedOrigins:  cfg.AllowedOrigins,
		RateLimitMax:    cfg.RateLimitMax,
		RateLimitWindow: cfg.RateLimitWindow,
	})

	// ---- Graceful shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Info().Msg("shutting down")
		if err := app.ShutdownWithTimeout(cfg.ShutdownTimeout); err != nil {
			log.Error().Err(err).Msg("shutdown")
		}
	}()

	// ---- Start
	log.Info().Str("port", cfg.Port).Bool("fallback_enabled", cfg.FallbackEnabled).Msg("API server starting")
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("listen")
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info().Msg("server stopped")
}
