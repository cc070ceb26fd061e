package attempt

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/uzbek-talim/talim/storage"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type submitRecorder struct {
	mu      sync.Mutex
	calls   int
	answers map[int][]int
	err     error
}

func (r *submitRecorder) fn(_ context.Context, _ int, answers map[int][]int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.answers = answers
	return r.err
}

func (r *submitRecorder) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func seedRecord(t *testing.T, backend storage.Backend, rec Record) {
	t.Helper()
	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal record: %v", err)
	}
	if err := backend.Set(context.Background(), recordKey(rec.TestID), data); err != nil {
		t.Fatalf("seed record: %v", err)
	}
}

func newTestSession(t *testing.T, backend storage.Backend, clock *fakeClock, submit SubmitFunc) *Session {
	t.Helper()
	s, err := NewSession(Config{
		TestID:          7,
		DurationMinutes: 2,
		Records:         NewRecordStore(backend),
		Submit:          submit,
		Clock:           clock.Now,
		TickInterval:    time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	return s
}

func TestStartAnchorsDeadlineAndPersists(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemory()
	clock := newFakeClock()
	rec := &submitRecorder{}
	s := newTestSession(t, backend, clock, rec.fn)

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if s.State() != Running {
		t.Fatalf("expected Running, got %v", s.State())
	}
	if got := s.Remaining(); got != 2*time.Minute {
		t.Fatalf("fresh attempt remaining = %v", got)
	}

	stored, err := NewRecordStore(backend).Load(ctx, 7)
	if err != nil {
		t.Fatalf("record not persisted: %v", err)
	}
	if !stored.StartedAt.Equal(clock.Now()) || stored.DurationMinutes != 2 {
		t.Fatalf("bad record: %+v", stored)
	}

	if err := s.Start(ctx); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("second Start should fail, got %v", err)
	}
}

func TestStartRequiresServerAck(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemory()
	clock := newFakeClock()
	rec := &submitRecorder{}

	ackErr := errors.New("start rejected")
	s, err := NewSession(Config{
		TestID:          7,
		DurationMinutes: 2,
		Records:         NewRecordStore(backend),
		Submit:          rec.fn,
		Start:           func(context.Context, int) error { return ackErr },
		Clock:           clock.Now,
	})
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}

	if err := s.Start(ctx); !errors.Is(err, ackErr) {
		t.Fatalf("expected ack error, got %v", err)
	}
	if s.State() != NotStarted {
		t.Fatalf("failed ack must leave NotStarted, got %v", s.State())
	}
	if _, err := NewRecordStore(backend).Load(ctx, 7); !errors.Is(err, ErrNoRecord) {
		t.Fatal("no record should be persisted after a failed ack")
	}
}

func TestResumeContinuesFromStoredDeadline(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemory()
	clock := newFakeClock()
	rec := &submitRecorder{}

	seedRecord(t, backend, Record{
		TestID:          7,
		StartedAt:       clock.Now().Add(-100 * time.Second),
		DurationMinutes: 2,
	})

	s := newTestSession(t, backend, clock, rec.fn)
	if err := s.Resume(ctx); err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	if s.State() != Running {
		t.Fatalf("expected Running, got %v", s.State())
	}
	if got := s.Remaining(); got != 20*time.Second {
		t.Fatalf("remaining = %v, want 20s", got)
	}

	clock.Advance(5 * time.Second)
	if got := s.Remaining(); got != 15*time.Second {
		t.Fatalf("remaining after 5s = %v, want 15s", got)
	}
}

func TestResumeExpiredRecordSubmitsExactlyOnce(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemory()
	clock := newFakeClock()
	rec := &submitRecorder{}

	seedRecord(t, backend, Record{
		TestID:          7,
		StartedAt:       clock.Now().Add(-10 * time.Minute),
		DurationMinutes: 2,
	})

	s := newTestSession(t, backend, clock, rec.fn)
	if err := s.Resume(ctx); err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	if s.State() != Expired {
		t.Fatalf("expected Expired, got %v", s.State())
	}
	if rec.callCount() != 1 {
		t.Fatalf("submit ran %d times", rec.callCount())
	}
	if _, err := NewRecordStore(backend).Load(ctx, 7); !errors.Is(err, ErrNoRecord) {
		t.Fatal("record must be cleared after auto-submit")
	}

	// Later manual submits are no-ops.
	if err := s.Submit(ctx); err != nil {
		t.Fatalf("post-expiry Submit should be a no-op: %v", err)
	}
	if rec.callCount() != 1 {
		t.Fatalf("no-op submit delivered again: %d calls", rec.callCount())
	}
}

func TestResumeWithoutRecordStartsFresh(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	rec := &submitRecorder{}
	s := newTestSession(t, storage.NewMemory(), clock, rec.fn)

	if err := s.Resume(ctx); err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	if s.State() != Running || s.Remaining() != 2*time.Minute {
		t.Fatalf("fresh resume: state=%v remaining=%v", s.State(), s.Remaining())
	}
}

func TestSubmitDeliversAnswersAndClearsRecord(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemory()
	clock := newFakeClock()
	rec := &submitRecorder{}
	s := newTestSession(t, backend, clock, rec.fn)

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := s.SetAnswer(1, 11); err != nil {
		t.Fatalf("SetAnswer failed: %v", err)
	}
	if err := s.SetAnswer(1, 12); err != nil {
		t.Fatalf("SetAnswer replace failed: %v", err)
	}
	if err := s.SetAnswer(2, 21, 22); err != nil {
		t.Fatalf("multi-select SetAnswer failed: %v", err)
	}
	if got := s.Unanswered(5); got != 3 {
		t.Fatalf("Unanswered = %d, want 3", got)
	}

	if err := s.Submit(ctx); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if s.State() != Submitted {
		t.Fatalf("expected Submitted, got %v", s.State())
	}
	if len(rec.answers) != 2 {
		t.Fatalf("delivered answers %v", rec.answers)
	}
	if got := rec.answers[1]; len(got) != 1 || got[0] != 12 {
		t.Fatalf("replaced selection mangled: %v", rec.answers)
	}
	if got := rec.answers[2]; len(got) != 2 || got[0] != 21 || got[1] != 22 {
		t.Fatalf("multi-selection mangled: %v", rec.answers)
	}
	if _, err := NewRecordStore(backend).Load(ctx, 7); !errors.Is(err, ErrNoRecord) {
		t.Fatal("record must be cleared after submit")
	}

	if err := s.SetAnswer(3, 31); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("answers after submit should be rejected, got %v", err)
	}
}

func TestSubmitIdempotentAfterTerminal(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	rec := &submitRecorder{}
	s := newTestSession(t, storage.NewMemory(), clock, rec.fn)

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := s.Submit(ctx); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if err := s.Submit(ctx); err != nil {
		t.Fatalf("second Submit should be a no-op: %v", err)
	}
	if rec.callCount() != 1 {
		t.Fatalf("submit ran %d times", rec.callCount())
	}
}

func TestSubmitInFlightSuppressesSecondDelivery(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()

	var calls int
	var s *Session
	submit := func(context.Context, int, map[int][]int) error {
		calls++
		// A racing submit while delivery is in flight must be a no-op.
		if err := s.Submit(ctx); err != nil {
			t.Errorf("racing Submit errored: %v", err)
		}
		return nil
	}

	s = newTestSession(t, storage.NewMemory(), clock, submit)
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := s.Submit(ctx); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if calls != 1 {
		t.Fatalf("delivery ran %d times", calls)
	}
}

func TestSubmitFailureAllowsRetry(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemory()
	clock := newFakeClock()
	rec := &submitRecorder{err: errors.New("backend down")}
	s := newTestSession(t, backend, clock, rec.fn)

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := s.Submit(ctx); err == nil {
		t.Fatal("expected delivery failure")
	}
	if s.State() != Submitting {
		t.Fatalf("failed delivery must stay Submitting, got %v", s.State())
	}
	if _, err := NewRecordStore(backend).Load(ctx, 7); err != nil {
		t.Fatalf("record must survive a failed delivery: %v", err)
	}

	rec.mu.Lock()
	rec.err = nil
	rec.mu.Unlock()

	if err := s.Submit(ctx); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if s.State() != Submitted {
		t.Fatalf("expected Submitted after retry, got %v", s.State())
	}
	if rec.callCount() != 2 {
		t.Fatalf("expected 2 deliveries, got %d", rec.callCount())
	}
}

func TestCountdownExpiresAndDelivers(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	rec := &submitRecorder{}
	s := newTestSession(t, storage.NewMemory(), clock, rec.fn)

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := s.SetAnswer(1, 11); err != nil {
		t.Fatalf("SetAnswer failed: %v", err)
	}

	// Jump past the deadline; the next tick must expire the attempt and
	// deliver whatever answers exist without confirmation.
	clock.Advance(3 * time.Minute)

	var lastTick time.Duration = -1
	if err := s.Countdown(ctx, func(left time.Duration) { lastTick = left }); err != nil {
		t.Fatalf("Countdown failed: %v", err)
	}
	if s.State() != Expired {
		t.Fatalf("expected Expired, got %v", s.State())
	}
	if rec.callCount() != 1 {
		t.Fatalf("submit ran %d times", rec.callCount())
	}
	if got := rec.answers[1]; len(got) != 1 || got[0] != 11 {
		t.Fatalf("answers not delivered on timeout: %v", rec.answers)
	}
	if lastTick != 0 {
		t.Fatalf("final tick should report zero, got %v", lastTick)
	}
}

func TestCountdownStopsOnCancel(t *testing.T) {
	clock := newFakeClock()
	rec := &submitRecorder{}
	s := newTestSession(t, storage.NewMemory(), clock, rec.fn)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Countdown(ctx, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if s.State() != Running {
		t.Fatalf("cancel must not end the attempt, got %v", s.State())
	}
}

func TestCancelAbandonsWithoutDelivery(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemory()
	clock := newFakeClock()
	rec := &submitRecorder{}
	s := newTestSession(t, backend, clock, rec.fn)

	if err := s.Cancel(ctx); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("cancel before start should fail, got %v", err)
	}

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := s.SetAnswer(1, 2); err != nil {
		t.Fatalf("SetAnswer failed: %v", err)
	}

	if err := s.Cancel(ctx); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if s.State() != NotStarted {
		t.Fatalf("expected NotStarted, got %v", s.State())
	}
	if rec.callCount() != 0 {
		t.Fatal("cancel must not deliver answers")
	}
	if _, err := NewRecordStore(backend).Load(ctx, 7); !errors.Is(err, ErrNoRecord) {
		t.Fatalf("record should be cleared, got %v", err)
	}

	// A canceled attempt can start over with a full allotment.
	clock.Advance(30 * time.Second)
	if err := s.Start(ctx); err != nil {
		t.Fatalf("restart failed: %v", err)
	}
	if got := s.Remaining(); got != 2*time.Minute {
		t.Fatalf("restarted attempt remaining = %v", got)
	}
	if len(s.Answers()) != 0 {
		t.Fatal("restart must not carry old answers")
	}
}
