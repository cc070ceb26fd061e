package attempt

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/uzbek-talim/talim/storage"
)

func TestRecordStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewRecordStore(storage.NewMemory())

	rec := Record{
		TestID:          42,
		StartedAt:       time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
		DurationMinutes: 30,
	}
	if err := store.Save(ctx, rec); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := store.Load(ctx, 42)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !loaded.StartedAt.Equal(rec.StartedAt) || loaded.DurationMinutes != 30 {
		t.Fatalf("record mangled: %+v", loaded)
	}
	if !loaded.Deadline().Equal(rec.StartedAt.Add(30 * time.Minute)) {
		t.Fatalf("bad deadline %v", loaded.Deadline())
	}
}

func TestRecordStoreScopesPerTest(t *testing.T) {
	ctx := context.Background()
	store := NewRecordStore(storage.NewMemory())

	if err := store.Save(ctx, Record{TestID: 1, StartedAt: time.Now(), DurationMinutes: 5}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := store.Load(ctx, 2); !errors.Is(err, ErrNoRecord) {
		t.Fatalf("record leaked across tests: %v", err)
	}
}

func TestRecordStoreClearsCorruptRecord(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemory()
	store := NewRecordStore(backend)

	if err := backend.Set(ctx, recordKey(9), []byte("{broken")); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if _, err := store.Load(ctx, 9); !errors.Is(err, ErrNoRecord) {
		t.Fatalf("corrupt record should read as absent: %v", err)
	}
	if _, err := backend.Get(ctx, recordKey(9)); !errors.Is(err, storage.ErrNotFound) {
		t.Fatal("corrupt record should be removed")
	}
}

func TestRecordRemainingClampsAtZero(t *testing.T) {
	rec := Record{StartedAt: time.Now().Add(-time.Hour), DurationMinutes: 2}
	if got := rec.Remaining(time.Now()); got != 0 {
		t.Fatalf("remaining should clamp at zero, got %v", got)
	}
}
