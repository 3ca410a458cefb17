package store

import (
	"context"
	"fmt"

	"github.com/taskdeck/taskdeck-sync/internal/config"
	"github.com/taskdeck/taskdeck-sync/internal/logger"
)

// Storages groups all local repositories into a single value that can be
// passed around the service layer.
type Storages struct {
	// Tasks is the SQLite-backed repository holding the authoritative local
	// copy of each task record.
	Tasks TaskRepository
	// Queue is the durable outbox of pending mutations.
	Queue QueueRepository
	// Config is the single persisted sync-config record.
	Config ConfigRepository
}

// NewStorages initialises the local storage layer using the supplied
// configuration and logger. It performs the following steps:
//  1. Opens an SQLite connection to the file path specified in cfg.DB.DSN,
//     creating the database file if it does not yet exist.
//  2. Runs pending schema migrations via [DB.Migrate].
//  3. Constructs and returns a [Storages] value wired to fresh repositories
//     sharing the one connection.
//
// Returns an error if the database connection cannot be established or if
// migration fails.
func NewStorages(cfg config.Storage, logger *logger.Logger) (*Storages, error) {
	logger.Info().Msg("creating new storages...")

	db, err := NewConnectSQLite(context.Background(), cfg.DB, logger)
	if err != nil {
		return nil, fmt.Errorf("sqlite connection error: %w", err)
	}

	if err := db.Migrate(); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return &Storages{
		Tasks:  NewTaskRepository(db, logger),
		Queue:  NewQueueRepository(db, logger),
		Config: NewConfigRepository(db, logger),
	}, nil
}
