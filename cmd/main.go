package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/Dosada05/tournament-engine/brackets"
	"github.com/Dosada05/tournament-engine/config"
	"github.com/Dosada05/tournament-engine/db"
	"github.com/Dosada05/tournament-engine/events"
	"github.com/Dosada05/tournament-engine/handlers"
	"github.com/Dosada05/tournament-engine/repositories"
	"github.com/Dosada05/tournament-engine/routes"
	"github.com/Dosada05/tournament-engine/scheduler"
	"github.com/Dosada05/tournament-engine/services"
	"github.com/Dosada05/tournament-engine/storage"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("engine stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	database, err := db.Connect(cfg.DatabaseURL, 10*time.Second)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := db.MigrateUp(database, "file://migrations"); err != nil {
		return err
	}

	store := repositories.NewPostgresStore(database)

	var uploader storage.FileUploader
	if cfg.R2AccountID != "" {
		uploader, err = storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			return err
		}
	} else {
		logger.Warn("object storage not configured, logo uploads disabled")
	}

	bus, err := events.NewBus(logger)
	if err != nil {
		return err
	}
	defer bus.Close()

	engine := brackets.NewEngine(store, logger)
	gameScheduler := scheduler.NewScheduler(store, bus, logger)

	registrationService := services.NewRegistrationService(store, logger)
	progressionService := services.NewProgressionService(store, engine, gameScheduler, bus, logger)
	tournamentService := services.NewTournamentService(store, engine, gameScheduler, registrationService, uploader, logger)

	hub := brackets.NewHub(logger)
	go hub.Run()

	// Bracket updates drive both the websocket fan-out and the
	// finished-tournament check.
	bus.Handle("bracket_updated_push", events.TopicBracketUpdated, func(ctx context.Context, payload []byte) error {
		var update events.BracketUpdated
		if err := json.Unmarshal(payload, &update); err != nil {
			return fmt.Errorf("failed to decode bracket update: %w", err)
		}
		hub.BroadcastToRoom(strconv.Itoa(update.TournamentID), brackets.PushMessage{
			Type:    "BRACKET_UPDATED",
			Payload: update,
			RoomID:  strconv.Itoa(update.TournamentID),
		})
		return tournamentService.HandleBracketUpdated(ctx, update)
	})
	bus.Handle("game_ready_push", events.TopicGameReady, func(ctx context.Context, payload []byte) error {
		var ready events.GameReady
		if err := json.Unmarshal(payload, &ready); err != nil {
			return fmt.Errorf("failed to decode game ready: %w", err)
		}
		hub.BroadcastToRoom(strconv.Itoa(ready.TournamentID), brackets.PushMessage{
			Type:    "GAME_READY",
			Payload: ready,
			RoomID:  strconv.Itoa(ready.TournamentID),
		})
		return nil
	})

	router := routes.InitRoutes(routes.Handlers{
		Tournaments:   handlers.NewTournamentHandler(tournamentService),
		Registrations: handlers.NewRegistrationHandler(registrationService),
		Matches:       handlers.NewMatchHandler(progressionService),
		WebSocket:     handlers.NewWebSocketHandler(hub, logger),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := bus.Run(ctx); err != nil {
			logger.Error("event bus stopped", slog.Any("error", err))
		}
	}()
	<-bus.Running()

	go gameScheduler.RunDispatchLoop(ctx, time.Duration(cfg.SweepIntervalSeconds)*time.Second)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", slog.Int("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
