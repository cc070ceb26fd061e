package attempt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/uzbek-talim/talim/storage"
)

// ErrNoRecord is returned when no timer record exists for a test.
var ErrNoRecord = errors.New("attempt: no timer record")

// recordKeyPrefix namespaces timer records per test in durable storage.
const recordKeyPrefix = "test_session_"

// Record is the durable timer anchor for one attempt. Only the start instant
// and the allotted duration are stored; remaining time is always recomputed
// from the wall clock, never counted down, so reloads and clock pauses
// cannot stretch an attempt.
type Record struct {
	TestID          int       `json:"test_id"`
	StartedAt       time.Time `json:"started_at"`
	DurationMinutes int       `json:"duration_minutes"`
}

// Deadline is the instant the attempt expires.
func (r Record) Deadline() time.Time {
	return r.StartedAt.Add(time.Duration(r.DurationMinutes) * time.Minute)
}

// Remaining is the time left at now, clamped at zero.
func (r Record) Remaining(now time.Time) time.Duration {
	left := r.Deadline().Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

// RecordStore persists timer records, one per test, under its own keyspace.
type RecordStore struct {
	backend storage.Backend
}

// NewRecordStore wraps backend with the attempt keyspace.
func NewRecordStore(backend storage.Backend) *RecordStore {
	return &RecordStore{backend: backend}
}

func recordKey(testID int) string {
	return recordKeyPrefix + strconv.Itoa(testID)
}

// Load returns the record for testID, or ErrNoRecord. A corrupt record is
// treated as absent and cleared, so a damaged timer can never revive an
// attempt with a bogus deadline.
func (s *RecordStore) Load(ctx context.Context, testID int) (Record, error) {
	data, err := s.backend.Get(ctx, recordKey(testID))
	if errors.Is(err, storage.ErrNotFound) {
		return Record{}, ErrNoRecord
	}
	if err != nil {
		return Record{}, fmt.Errorf("attempt: loading record: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil || rec.StartedAt.IsZero() || rec.DurationMinutes <= 0 {
		_ = s.backend.Delete(ctx, recordKey(testID))
		return Record{}, ErrNoRecord
	}
	rec.TestID = testID
	return rec, nil
}

// Save writes the record for its test.
func (s *RecordStore) Save(ctx context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("attempt: encoding record: %v", err)
	}
	if err := s.backend.Set(ctx, recordKey(rec.TestID), data); err != nil {
		return fmt.Errorf("attempt: saving record: %w", err)
	}
	return nil
}

// Clear removes the record for testID. Clearing an absent record is a no-op.
func (s *RecordStore) Clear(ctx context.Context, testID int) error {
	if err := s.backend.Delete(ctx, recordKey(testID)); err != nil {
		return fmt.Errorf("attempt: clearing record: %w", err)
	}
	return nil
}
