package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/whatwhere/eventbot/internal/database"
)

// RegisterTasks returns the registry of scheduled tasks, keyed by the names
// used in the scheduler configuration.
func RegisterTasks(store database.Store, retention time.Duration, log *slog.Logger) map[string]TaskFunc {
	return map[string]TaskFunc{
		"sql_maintenance": newSQLMaintenanceTask(store, log),
		"message_purge":   newMessagePurgeTask(store, retention, log),
	}
}

func newSQLMaintenanceTask(store database.Store, log *slog.Logger) TaskFunc {
	log = log.With("task", "sql_maintenance")

	return func(ctx context.Context) error {
		if err := store.RunSQLMaintenance(ctx); err != nil {
			return fmt.Errorf("sql maintenance: %w", err)
		}
		log.InfoContext(ctx, "sql maintenance completed")
		return nil
	}
}

func newMessagePurgeTask(store database.Store, retention time.Duration, log *slog.Logger) TaskFunc {
	log = log.With("task", "message_purge")

	return func(ctx context.Context) error {
		if retention <= 0 {
			return nil
		}
		cutoff := time.Now().UTC().Add(-retention)
		purged, err := store.PurgeMessagesBefore(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("message purge: %w", err)
		}
		log.InfoContext(ctx, "message purge completed", "purged", purged, "cutoff", cutoff)
		return nil
	}
}
