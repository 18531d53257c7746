package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"timetracker/internal/config"
	"timetracker/internal/hooks"
	router "timetracker/internal/http"
	"timetracker/internal/http/handlers"
	"timetracker/internal/service"
	"timetracker/internal/store/memory"
	"timetracker/internal/store/sqlite"
	"timetracker/internal/tasks"
)

func main() {
	cfg := config.New()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()

	var timerStore service.TimerStore
	if cfg.DBPath != "" {
		sqliteStore, err := sqlite.Open(cfg.DBPath)
		if err != nil {
			log.Fatal().Err(err).Str("db_path", cfg.DBPath).Msg("opening store failed")
		}
		timerStore = sqliteStore
		log.Info().Str("db_path", cfg.DBPath).Msg("using sqlite store")
	} else {
		timerStore = memory.New()
		log.Info().Msg("using in-memory store")
	}

	directory := tasks.NewDirectory()

	svc, err := service.New(timerStore, directory,
		service.WithLogger(log.With().Str("component", "timer_service").Logger()))
	if err != nil {
		log.Fatal().Err(err).Msg("service initiation failed")
	}

	hook := hooks.New(cfg.HookQueueSize, svc,
		log.With().Str("component", "task_deletion_hook").Logger())
	hook.Start(cfg.HookWorkers)
	directory.OnDelete(hook.Enqueue)

	handler := handlers.New(svc, directory)

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router.New(handler),
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	<-stop
	log.Info().Msg("shut down signal received...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server shutdown failed")
	}
	if err := hook.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("hook shutdown failed")
	}

	log.Info().Msg("shut down gracefully")
}
