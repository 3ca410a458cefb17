package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/taskdeck/taskdeck-sync/internal/adapter"
	"github.com/taskdeck/taskdeck-sync/internal/config"
	"github.com/taskdeck/taskdeck-sync/internal/crypto"
	"github.com/taskdeck/taskdeck-sync/internal/logger"
	"github.com/taskdeck/taskdeck-sync/internal/service"
	"github.com/taskdeck/taskdeck-sync/internal/store"
	"github.com/taskdeck/taskdeck-sync/models"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	printBuildInfo()

	cfg, err := config.GetConfig()
	if err != nil {
		logger.NewLogger("tasksyncd").Fatal().Err(err).Msg("error getting configs")
	}

	log := logger.NewFileLogger("tasksyncd", cfg.App.LogPath)

	remote, err := adapter.NewHTTPRemoteStore(cfg.Adapter, log)
	if err != nil {
		log.Fatal().Err(err).Msg("create remote store adapter")
	}

	storages, err := store.NewStorages(cfg.Storage, log)
	if err != nil {
		log.Fatal().Err(err).Msg("create local storage")
	}

	// The passphrase never touches the config file: payloads must stay
	// unreadable to anyone who can read the disk but not the passphrase.
	passphrase := os.Getenv("TASKDECK_PASSPHRASE")
	if passphrase == "" {
		log.Fatal().Msg("TASKDECK_PASSPHRASE is not set")
	}
	cipher, err := crypto.NewCipherServiceFromPassphrase(passphrase, []byte(cfg.App.UserID))
	if err != nil {
		log.Fatal().Err(err).Msg("derive installation key")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	services, err := service.NewServices(ctx, storages, remote, cipher, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("create services")
	}

	services.Background.Start(ctx)

	// Catch-up cycle: mutations queued while the daemon was down should not
	// wait a full interval.
	result := services.Coordinator.RequestSync(ctx, models.TriggerAuto)
	log.Info().Str("status", string(result.Status)).Msg("startup sync")

	<-ctx.Done()

	services.Background.Stop()
	log.Info().Msg("tasksyncd stopped")
}

func printBuildInfo() {
	if buildVersion == "" {
		buildVersion = "N/A"
	}
	if buildDate == "" {
		buildDate = "N/A"
	}
	if buildCommit == "" {
		buildCommit = "N/A"
	}

	fmt.Printf("Build version: %s\n", buildVersion)
	fmt.Printf("Build date: %s\n", buildDate)
	fmt.Printf("Build commit: %s\n", buildCommit)
}
