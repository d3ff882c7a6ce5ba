package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/afero"

	"kinoshka/api"
	"kinoshka/config"
	"kinoshka/handlers"
	"kinoshka/internal/kvstore"
	"kinoshka/internal/logging"
	"kinoshka/services/browse"
	"kinoshka/services/metadata"
	"kinoshka/services/scheduler"
	"kinoshka/services/userstate"
	"kinoshka/utils"
)

const (
	cachePruneInterval   = time.Hour
	storeCompactInterval = 6 * time.Hour
)

func main() {
	configPath := flag.String("config", "", "path to the YAML config file (default $"+config.PathEnvVar+")")
	portOverride := flag.Int("port", 0, "override server port from config")
	flag.Parse()

	cfgManager := config.NewManager(*configPath)
	settings, err := cfgManager.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load settings: %v\n", err)
		os.Exit(1)
	}
	if *portOverride > 0 {
		settings.Server.Port = *portOverride
	}

	if err := logging.Init(logging.Config{
		Level:      settings.Log.Level,
		Format:     settings.Log.Format,
		Caller:     settings.Log.Caller,
		File:       settings.Log.File,
		MaxSize:    settings.Log.MaxSize,
		MaxBackups: settings.Log.MaxBackups,
		MaxAge:     settings.Log.MaxAge,
		Compress:   settings.Log.Compress,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "warning: file logging disabled: %v\n", err)
	}
	defer logging.Close()

	log := logging.Component("main")
	log.Info().
		Str("config", cfgManager.Path()).
		Str("storage", settings.Storage.Backend).
		Msg("kinoshka backend starting")

	store, err := kvstore.Open(settings.Storage.Backend, settings.Storage.Directory)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open state store")
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error().Err(err).Msg("state store close failed")
		}
	}()

	userState, err := userstate.NewService(store)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init user state")
	}

	if settings.Metadata.APIKey == "" {
		log.Warn().Msg("metadata.api_key is not set; catalog requests will fail with 401")
	}
	client, err := metadata.NewClient(metadata.ClientConfig{
		APIKey:            settings.Metadata.APIKey,
		BaseURL:           settings.Metadata.BaseURL,
		Timeout:           settings.Metadata.Timeout(),
		RequestsPerSecond: settings.Metadata.RequestsPerSecond,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init catalog client")
	}
	catalog := metadata.NewService(client, settings.Metadata.CacheTTL(), time.Now)

	controller := browse.NewController(catalog, userState)

	tasks, err := newScheduler(catalog, store)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to register maintenance tasks")
	}

	r := utils.NewRouter(handlers.RequestLogger)
	api.Register(r, api.Handlers{
		Library:     handlers.NewLibraryHandler(userState, time.Local),
		Films:       handlers.NewFilmsHandler(catalog, userState),
		Metadata:    handlers.NewMetadataHandler(catalog, userState),
		Preferences: handlers.NewPreferencesHandler(userState),
		Backup:      handlers.NewBackupHandler(userState),
		Home:        handlers.NewHomeHandler(controller, catalog),
		Posters:     handlers.NewPosterHandler(afero.NewOsFs(), filepath.Join(settings.Storage.Directory, "posters"), nil),
		Tasks:       handlers.NewScheduledTasksHandler(tasks),
	})

	srv := &http.Server{
		Addr:         settings.Server.Addr(),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tasks.Start(ctx)

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server error")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received, cleaning up")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}
	tasks.Stop(shutdownCtx)
	log.Info().Msg("shutdown complete")
}

// newScheduler registers the background maintenance: expired catalog
// responses are pruned hourly and backends that support it are compacted.
func newScheduler(catalog *metadata.Service, store kvstore.Store) (*scheduler.Service, error) {
	tasks := scheduler.NewService()
	err := tasks.Register(scheduler.Task{
		ID:       "catalog-cache-prune",
		Name:     "Prune expired catalog responses",
		Interval: cachePruneInterval,
		Run: func(context.Context) (int, error) {
			return catalog.PruneCache(), nil
		},
	})
	if err != nil {
		return nil, err
	}
	if c, ok := store.(kvstore.Compactor); ok {
		err = tasks.Register(scheduler.Task{
			ID:       "state-store-compact",
			Name:     "Compact the state store",
			Interval: storeCompactInterval,
			Run: func(context.Context) (int, error) {
				return c.Compact()
			},
		})
		if err != nil {
			return nil, err
		}
	}
	return tasks, nil
}
