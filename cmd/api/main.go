package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"listencheck.org/internal/audit"
	"listencheck.org/internal/auth"
	"listencheck.org/internal/config"
	"listencheck.org/internal/httpapi"
	"listencheck.org/internal/importer"
	"listencheck.org/internal/mailer"
	"listencheck.org/internal/obs"
	"listencheck.org/internal/review"
	"listencheck.org/internal/storage"
	"listencheck.org/internal/store/pg"
)

var (
	version = "0.3.0"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()

	// Postgres when a DSN is configured; in-memory stores otherwise so the
	// service runs standalone in development.
	var (
		authStore   auth.Store
		reviewStore review.Store
		activity    audit.Store
		ready       httpapi.ReadyProbe
	)
	if cfg.DatabaseDSN != "" {
		store, err := pg.Open(cfg.DatabaseDSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		defer store.Close()
		authStore = store
		reviewStore = store
		activity = store.Activity()
		ready = httpapi.ReadyProbe{DB: store.DB()}
	} else {
		obs.Logger().Warn("DATABASE_URL not set, using in-memory stores")
		authStore = auth.NewInMemory()
		reviewStore = review.NewInMemory()
		activity = audit.NewInMemory()
	}

	authSvc := auth.NewService(authStore)
	if _, err := authSvc.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.Fatalf("seed admin: %v", err)
	}

	resolver, err := storage.FromConfig(ctx, cfg)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	api := httpapi.New(httpapi.Options{
		Auth:     authSvc,
		Review:   review.NewService(reviewStore),
		Activity: activity,
		Resolver: resolver,
		Mailer:   mailer.FromConfig(cfg),
		Importer: importer.New(reviewStore.Transcripts(), resolver, cfg.TranscriptsJSONLKey, cfg.TranscriptsBasePath),
		Cookies:  auth.NewCookieCodec(cfg.SessionSecret, cfg.Production),
		Ready:    ready,
		Version:  version,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	obs.Logger().Info("starting listencheck-api", "version", version, "addr", srv.Addr, "storage", cfg.StorageType)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	obs.Logger().Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(shutdownCtx)
	obs.Logger().Info("stopped")
}
