package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-chi/chi/v5"

	authservice "summit/internal/authority/service"
	"summit/internal/conference"
	"summit/internal/conference/handler"
	"summit/internal/conference/metrics"
	"summit/internal/directory"
	"summit/internal/kvstore"
	"summit/internal/platform/config"
	"summit/internal/platform/httpserver"
	"summit/internal/platform/logger"
	platformredis "summit/internal/platform/redis"
	"summit/internal/roster"
	schedservice "summit/internal/schedule/service"
)

// main wires high-level dependencies and keeps the server lifecycle
// small. Business logic lives in the internal services packages.
func main() {
	log := logger.New()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Error("load config", "error", err)
		os.Exit(1)
	}
	conf, err := config.LoadConference(cfg.ConferenceFile)
	if err != nil {
		log.Error("load conference descriptor", "error", err)
		os.Exit(1)
	}

	store, closeStore, err := openStore(cfg, log)
	if err != nil {
		log.Error("open persisted store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	ctx := context.Background()
	client := directory.NewHTTPClient(cfg.DirectoryBaseURL, cfg.DirectoryTimeout, log)
	rosterCache := roster.NewCache(client, store, conf.CountryCodes, log)

	authorities, err := authservice.NewRegistry(ctx, store, conf.Positions, log)
	if err != nil {
		log.Error("init authority registry", "error", err)
		os.Exit(1)
	}
	schedules, err := schedservice.NewLedger(ctx, store, conf.Dates, conf.MinSeparation(), log)
	if err != nil {
		log.Error("init schedule ledger", "error", err)
		os.Exit(1)
	}

	controller := conference.NewController(rosterCache, authorities, schedules, log, metrics.New())

	router := chi.NewRouter()
	handler.New(controller, log).Register(router)

	srv := httpserver.New(cfg.Addr, router)
	log.Info("starting summit", "addr", cfg.Addr, "store", cfg.StoreBackend)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}

// openStore selects the persisted store backend. The returned closer is
// a no-op for backends without resources to release.
func openStore(cfg config.Server, log *slog.Logger) (kvstore.Store, func(), error) {
	switch cfg.StoreBackend {
	case "memory":
		return kvstore.NewMemory(), func() {}, nil

	case "badger":
		store, err := kvstore.OpenBadger(cfg.BadgerPath)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {
			if err := store.Close(); err != nil {
				log.Warn("close badger", "error", err)
			}
		}, nil

	case "redis":
		client, err := platformredis.New(cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		if client == nil {
			return nil, nil, errors.New("redis backend selected but SUMMIT_REDIS_URL is empty")
		}
		return kvstore.NewRedis(client.Client), func() {
			if err := client.Close(); err != nil {
				log.Warn("close redis", "error", err)
			}
		}, nil

	case "postgres":
		store, err := kvstore.OpenPostgres(context.Background(), cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {
			if err := store.Close(); err != nil {
				log.Warn("close postgres", "error", err)
			}
		}, nil

	default:
		return nil, nil, errors.New("unknown store backend: " + cfg.StoreBackend)
	}
}
