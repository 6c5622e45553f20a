package main

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/iliyamo/hr-records-api/internal/auth"
	"github.com/iliyamo/hr-records-api/internal/config"
	"github.com/iliyamo/hr-records-api/internal/database"
	"github.com/iliyamo/hr-records-api/internal/handler"
	"github.com/iliyamo/hr-records-api/internal/metrics"
	"github.com/iliyamo/hr-records-api/internal/middleware"
	"github.com/iliyamo/hr-records-api/internal/queue"
	"github.com/iliyamo/hr-records-api/internal/repository"
	"github.com/iliyamo/hr-records-api/internal/router"
	"github.com/iliyamo/hr-records-api/internal/service"
)

func main() {
	_ = godotenv.Load() // optional .env for local development
	cfg := config.Load()

	log := zerolog.New(os.Stdout).With().Timestamp().Str("service", "hr-records-api").Logger()
	if cfg.Env == "dev" {
		log = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer db.Close()

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	employees := repository.NewEmployeeRepo(db)

	issuer := auth.NewIssuer(cfg.JWTSecret, time.Duration(cfg.AccessTTLMin)*time.Minute)
	sessions := auth.NewSessionManager(users, tokens, issuer,
		time.Duration(cfg.RefreshTTLDays)*24*time.Hour, log)

	metrics.Init()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn().Msg("redis unavailable, rate limiting disabled")
	}

	go func() {
		if err := queue.StartAuditConsumer(); err != nil {
			log.Error().Err(err).Msg("audit consumer stopped")
		}
	}()

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(log))
	e.Use(metrics.Instrument())

	router.Register(e, router.Deps{
		Auth:      handler.NewAuthHandler(sessions, users, tokens, log),
		Employees: handler.NewEmployeeHandler(employees, service.PublishEmployeeChanged, log),
		Issuer:    issuer,
		Redis:     rdb,
		Log:       log,
	})

	addr := ":" + cfg.Port
	log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("listening")
	if err := e.Start(addr); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
