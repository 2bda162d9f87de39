package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func newTestStore(t *testing.T) Store {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { CloseDB(db) })
	return NewStore(db, nil)
}

func TestSaveAndPurgeMessages(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if err := store.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}

	for _, text := range []string{"find jazz tonight", "what about tomorrow"} {
		err := store.SaveMessage(ctx, &Message{UserID: 42, Text: text, Action: "where-is-party"})
		if err != nil {
			t.Fatalf("save message: %v", err)
		}
	}

	// Messages were just written; a cutoff in the past removes nothing.
	purged, err := store.PurgeMessagesBefore(ctx, time.Now().UTC().Add(-time.Hour))
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if purged != 0 {
		t.Errorf("purged %d messages with past cutoff, want 0", purged)
	}

	purged, err = store.PurgeMessagesBefore(ctx, time.Now().UTC().Add(time.Hour))
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if purged != 2 {
		t.Errorf("purged %d messages, want 2", purged)
	}
}

func TestRunSQLMaintenance(t *testing.T) {
	store := newTestStore(t)
	if err := store.RunSQLMaintenance(context.Background()); err != nil {
		t.Fatalf("maintenance: %v", err)
	}
}
