package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"corkboard/internal/app"
	"corkboard/internal/blob"
	"corkboard/internal/config"
	"corkboard/internal/realtime"
	"corkboard/internal/search"
	"corkboard/internal/session"
	"corkboard/internal/store"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		log.Fatalf("migrations: %v", err)
	}

	st := store.NewPostgresStore(db)
	hub := realtime.NewHub()
	service := app.New(cfg, st, hub)

	if cfg.RedisURL != "" {
		sessions, err := session.NewRedisStore(cfg.RedisURL, st)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer sessions.Close()
		service.UseSessionStore(sessions)
		log.Printf("refresh sessions: redis")
	} else {
		log.Printf("refresh sessions: postgres")
	}

	if cfg.MeiliURL != "" {
		meili := search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
		defer meili.Close()
		searchSvc := search.NewService(meili, search.NewPgSearch(db))
		searchSvc.ReindexAllFromPG(ctx)
		service.UseSearch(searchSvc)
		log.Printf("card search: meilisearch (%s)", cfg.MeiliURL)
	} else {
		log.Printf("card search: postgres")
	}

	if cfg.MinioEndpoint != "" {
		blobs, err := blob.New(ctx, blob.Options{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			log.Fatalf("minio: %v", err)
		}
		service.UseBlobStore(blobs)
		log.Printf("attachments: minio (%s/%s)", cfg.MinioEndpoint, cfg.MinioBucket)
	} else {
		log.Printf("attachments: disabled")
	}

	socket := realtime.NewSocketHandler(hub, service, cfg.SocketOrigins)
	httpServer := app.NewHTTPServer(service, socket, cfg.CORSOrigin)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Printf("listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serve: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
