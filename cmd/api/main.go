package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"

	"github.com/gravadigital/campus-awards-api/internal/config"
	"github.com/gravadigital/campus-awards-api/internal/domain/participant"
	"github.com/gravadigital/campus-awards-api/internal/events"
	"github.com/gravadigital/campus-awards-api/internal/logger"
	"github.com/gravadigital/campus-awards-api/internal/server"
	"github.com/gravadigital/campus-awards-api/internal/services"
	"github.com/gravadigital/campus-awards-api/internal/storage"
	"github.com/gravadigital/campus-awards-api/internal/storage/photos"
	"github.com/gravadigital/campus-awards-api/internal/storage/postgres"
	"github.com/gravadigital/campus-awards-api/internal/storage/repository"
)

func main() {
	cfg := config.Load()

	logger.Initialize(cfg.Log.Level)
	l := logger.Get()

	if err := cfg.Validate(); err != nil {
		l.Fatal("Invalid configuration", "error", err)
	}

	storageType, err := storage.ValidateStorageType(cfg.Storage.Type)
	if err != nil {
		l.Fatal("Invalid storage type", "error", err)
	}

	store, err := storage.NewFactory(storageType).CreateStore(context.Background(), cfg)
	if err != nil {
		l.Fatal("Failed to open document store", "error", err)
	}
	repos := repository.NewContainer(store)

	opts := services.Options{
		Policy: participant.NewPolicy(cfg.Auth.AllowedDomains, cfg.Auth.AdminEmails),
	}

	if cfg.PhotosEnabled() {
		photoStore, err := photos.NewMinioStore(cfg)
		if err != nil {
			l.Fatal("Failed to configure photo storage", "error", err)
		}
		if err := photoStore.EnsureBucket(context.Background()); err != nil {
			l.Fatal("Failed to prepare photo bucket", "error", err)
		}
		opts.Photos = photoStore
	} else {
		l.Warn("Photo storage is not configured, uploads are disabled")
	}

	var publisher *events.KafkaPublisher
	if cfg.Events.Enabled {
		publisher, err = events.NewKafkaPublisher(cfg)
		if err != nil {
			l.Fatal("Failed to connect vote event publisher", "error", err)
		}
		opts.Publisher = publisher
	}

	svc := services.New(repos, opts)
	srv := server.New(cfg, svc, repos.Health)

	go func() {
		if err := srv.Start(); err != nil {
			l.Fatal("HTTP server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	l.Info("Shutdown signal received", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Stop(ctx); err != nil {
		l.Error("Server forced to shut down", "error", err)
	}
	shutdown(l, repos, publisher)
	l.Info("Server exited")
}

func shutdown(l *log.Logger, repos *repository.Container, publisher *events.KafkaPublisher) {
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			l.Error("Failed to close vote event publisher", "error", err)
		}
	}
	if pg, ok := repos.Store().(*postgres.Store); ok {
		st := pg.Stats()
		l.Info("Database pool at shutdown", "open", st.Open, "in_use", st.InUse, "idle", st.Idle, "wait_duration", st.WaitDuration)
	}
	if err := repos.Close(); err != nil {
		l.Error("Failed to close document store", "error", err)
	}
}
