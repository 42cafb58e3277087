package main

import (
	"context"
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"autom8/api"
	"autom8/config"
	"autom8/dashboard"
	"autom8/gateway"
	"autom8/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}
	logger := log.StandardLogger()

	store, err := storage.New(cfg.StorageConnectionString, storage.Tables{
		Team:        cfg.TeamTable,
		Projects:    cfg.ProjectsTable,
		Tasks:       cfg.TasksTable,
		EventsQueue: cfg.EventsQueue,
	})
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	redisOpts, err := cfg.RedisOptions()
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	rc := redis.NewClient(redisOpts)
	cache := storage.NewCache(store, rc, cfg.CacheTTL)
	deduper := api.NewRedisDeduper(rc, cfg.DeduperTTL)

	var gen dashboard.Generator
	if cfg.GeminiAPIKey != "" {
		g, err := gateway.NewGemini(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GenerationTimeout)
		if err != nil {
			log.Fatalf("gemini: %v", err)
		}
		gen = g
	} else {
		log.Warn("GEMINI_API_KEY not set; serving mock task generation")
		gen = gateway.NewStatic(cfg.MockGenerationDelay)
	}

	dash := dashboard.New(gen, cache, cache, dashboard.Options{
		Events:          cache,
		Logger:          logger,
		SaveConcurrency: cfg.SaveConcurrency,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := dash.RefreshRoster(ctx); err != nil {
		log.WithError(err).Warn("initial roster load failed; assignments stay Unassigned until the next refresh")
	}
	cancel()

	var jwks *keyfunc.JWKS
	if !cfg.Auth.Disabled && cfg.Auth.LocalMode == "" {
		jwksURL := fmt.Sprintf("https://%s/.well-known/jwks.json", cfg.Auth.Domain)
		jwks, err = keyfunc.Get(jwksURL, keyfunc.Options{
			RefreshInterval:   time.Hour,
			RefreshUnknownKID: true,
			RefreshErrorHandler: func(err error) {
				log.WithError(err).Warn("jwks refresh failed")
			},
		})
		if err != nil {
			log.Fatalf("jwks: %v", err)
		}
	}
	auth := api.NewAuth(cfg.Auth, jwks)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, "Idempotency-Key"},
		AllowMethods: []string{echo.GET, echo.POST, echo.PATCH, echo.DELETE, echo.OPTIONS},
	}))

	api.Register(e, dash, auth, deduper, logger, api.Options{
		StreamInterval: cfg.StreamInterval,
		Metrics:        true,
	})

	e.Logger.Fatal(e.Start(cfg.ListenAddr))
}
