// Package attempt runs a timed test attempt: a durable deadline, answer
// collection, and a submission that reaches the backend exactly once no
// matter how the attempt ends.
package attempt

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

var (
	// ErrAlreadyStarted is returned when Start or Resume is called on an
	// attempt that already left NotStarted.
	ErrAlreadyStarted = errors.New("attempt: already started")
	// ErrNotRunning is returned for operations that need a running attempt.
	ErrNotRunning = errors.New("attempt: not running")
)

// State is the lifecycle phase of an attempt.
type State int

const (
	// NotStarted means no timer is anchored yet.
	NotStarted State = iota
	// Running means the clock is ticking and answers are accepted.
	Running
	// Submitting means delivery is in flight or awaiting a retry after a
	// failed delivery. No further answer changes are accepted.
	Submitting
	// Submitted is the terminal state of a manually delivered attempt.
	Submitted
	// Expired is the terminal state of an attempt that ran out of time. Its
	// answers were delivered unconditionally on the way here.
	Expired
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case Running:
		return "running"
	case Submitting:
		return "submitting"
	case Submitted:
		return "submitted"
	case Expired:
		return "expired"
	default:
		return "unknown"
	}
}

// Terminal reports whether the attempt can no longer change.
func (s State) Terminal() bool {
	return s == Submitted || s == Expired
}

// StartFunc acknowledges the start of an attempt with the backend. The
// server decides whether this is a fresh start or a retry.
type StartFunc func(ctx context.Context, testID int) error

// SubmitFunc delivers the collected answers: the selected option IDs keyed
// by question ID. The session guarantees at most one in-flight invocation
// per attempt, and none at all after one succeeds.
type SubmitFunc func(ctx context.Context, testID int, answers map[int][]int) error

// Config assembles a Session.
type Config struct {
	TestID          int
	DurationMinutes int
	Records         *RecordStore
	Submit          SubmitFunc

	// Start, when set, is called before the timer is anchored on a fresh
	// start. Nil means the caller already acknowledged the start.
	Start StartFunc

	// Clock overrides the wall clock. Nil means time.Now.
	Clock func() time.Time
	// TickInterval overrides the countdown resolution. Zero means one second.
	TickInterval time.Duration
}

// Session is one attempt at one test. All methods are safe for concurrent
// use; the countdown goroutine and user-driven calls share the instance.
type Session struct {
	mu       sync.Mutex
	testID   int
	duration time.Duration
	records  *RecordStore
	start    StartFunc
	submit   SubmitFunc
	clock    func() time.Time
	tick     time.Duration

	state     State
	startedAt time.Time
	answers   map[int][]int

	// inFlight suppresses a second delivery while one is running; outcome is
	// the terminal state this attempt is headed for once delivery succeeds.
	inFlight bool
	outcome  State
}

// NewSession builds a Session in the NotStarted state. Call Start for a
// fresh attempt or Resume to pick up a persisted one.
func NewSession(cfg Config) (*Session, error) {
	if cfg.TestID <= 0 {
		return nil, errors.New("attempt: test ID is required")
	}
	if cfg.DurationMinutes <= 0 {
		return nil, errors.New("attempt: duration must be positive")
	}
	if cfg.Records == nil {
		return nil, errors.New("attempt: record store is required")
	}
	if cfg.Submit == nil {
		return nil, errors.New("attempt: submit function is required")
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	tick := cfg.TickInterval
	if tick <= 0 {
		tick = time.Second
	}

	return &Session{
		testID:   cfg.TestID,
		duration: time.Duration(cfg.DurationMinutes) * time.Minute,
		records:  cfg.Records,
		start:    cfg.Start,
		submit:   cfg.Submit,
		clock:    clock,
		tick:     tick,
		answers:  make(map[int][]int),
	}, nil
}

// State returns the current lifecycle phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start begins a fresh attempt: it acknowledges the start with the backend,
// anchors the deadline at the current instant, and persists the timer record
// before any answer is taken. A failed acknowledgment leaves the attempt in
// NotStarted.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startLocked(ctx)
}

func (s *Session) startLocked(ctx context.Context) error {
	if s.state != NotStarted {
		return ErrAlreadyStarted
	}

	if s.start != nil {
		if err := s.start(ctx, s.testID); err != nil {
			return err
		}
	}

	now := s.clock()
	rec := Record{
		TestID:          s.testID,
		StartedAt:       now,
		DurationMinutes: int(s.duration / time.Minute),
	}
	if err := s.records.Save(ctx, rec); err != nil {
		return err
	}

	s.startedAt = now
	s.state = Running
	return nil
}

// Resume continues a persisted attempt. With no record it behaves like
// Start. With a live record the original deadline stands: the remaining time
// is what is left of it, never a fresh allotment. With an already-expired
// record the answers are delivered immediately, exactly once, and the
// attempt lands in Expired without ever running a countdown.
func (s *Session) Resume(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != NotStarted {
		return ErrAlreadyStarted
	}

	rec, err := s.records.Load(ctx, s.testID)
	if errors.Is(err, ErrNoRecord) {
		return s.startLocked(ctx)
	}
	if err != nil {
		return err
	}

	s.startedAt = rec.StartedAt
	s.duration = time.Duration(rec.DurationMinutes) * time.Minute

	if rec.Remaining(s.clock()) <= 0 {
		return s.deliverLocked(ctx, Expired)
	}

	s.state = Running
	return nil
}

// Deadline returns the expiry instant. Zero before the attempt starts.
func (s *Session) Deadline() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startedAt.IsZero() {
		return time.Time{}
	}
	return s.startedAt.Add(s.duration)
}

// Remaining recomputes the time left from the anchored deadline and the
// wall clock. It is zero before the attempt starts and once it leaves
// Running.
func (s *Session) Remaining() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Running {
		return 0
	}
	left := s.startedAt.Add(s.duration).Sub(s.clock())
	if left < 0 {
		return 0
	}
	return left
}

// SetAnswer records the selected options for a question, replacing any
// earlier selection; single-choice questions pass one option. Passing no
// options clears the question. Answers are only accepted while the attempt
// runs.
func (s *Session) SetAnswer(questionID int, optionIDs ...int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Running {
		return ErrNotRunning
	}
	if len(optionIDs) == 0 {
		delete(s.answers, questionID)
		return nil
	}
	selected := make([]int, len(optionIDs))
	copy(selected, optionIDs)
	s.answers[questionID] = selected
	return nil
}

// Answers returns a copy of the current selections keyed by question ID.
func (s *Session) Answers() map[int][]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyAnswers(s.answers)
}

// Unanswered returns how many of totalQuestions lack a selection. Callers
// confirm with the user before a manual submit when it is non-zero; the
// timeout path never asks.
func (s *Session) Unanswered(totalQuestions int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	left := totalQuestions - len(s.answers)
	if left < 0 {
		return 0
	}
	return left
}

// Submit delivers the attempt. While a delivery is in flight, or after the
// attempt reached a terminal state, calling it again is a no-op returning
// nil, so a timeout racing a manual submit cannot deliver twice. After a
// failed delivery the attempt stays in Submitting and Submit retries it.
func (s *Session) Submit(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.state.Terminal() || s.inFlight:
		return nil
	case s.state == Submitting:
		// Retrying a failed delivery; keep the outcome it was headed for.
		return s.deliverLocked(ctx, s.outcome)
	case s.state != Running:
		return ErrNotRunning
	}
	return s.deliverLocked(ctx, Submitted)
}

// Cancel abandons a running attempt without delivering anything: the timer
// record is cleared and the session returns to NotStarted. Nothing is sent
// to the backend, so the server-side attempt stays open on its own terms.
func (s *Session) Cancel(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Running {
		return ErrNotRunning
	}
	if err := s.records.Clear(ctx, s.testID); err != nil {
		return err
	}

	s.state = NotStarted
	s.startedAt = time.Time{}
	s.answers = make(map[int][]int)
	return nil
}

// Countdown drives the timer until the attempt ends or ctx is canceled.
// Each tick recomputes the remaining time from the deadline, so a stalled
// scheduler loses ticks, never time. onTick may be nil. When the deadline
// passes, whatever answers exist are delivered unconditionally and
// Countdown returns.
func (s *Session) Countdown(ctx context.Context, onTick func(remaining time.Duration)) error {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		s.mu.Lock()
		if s.state != Running {
			s.mu.Unlock()
			return nil
		}
		left := s.startedAt.Add(s.duration).Sub(s.clock())
		if left <= 0 {
			err := s.deliverLocked(ctx, Expired)
			s.mu.Unlock()
			if onTick != nil {
				onTick(0)
			}
			return err
		}
		s.mu.Unlock()

		if onTick != nil {
			onTick(left)
		}
	}
}

// deliverLocked runs one delivery toward the given terminal state. On
// success the timer record is cleared and the terminal state is installed;
// on failure the attempt stays in Submitting with its record intact so a
// retry (or a reload) can deliver again. Called with s.mu held; the lock is
// dropped around the network call and held again on return.
func (s *Session) deliverLocked(ctx context.Context, terminal State) error {
	s.state = Submitting
	s.outcome = terminal
	s.inFlight = true
	answers := copyAnswers(s.answers)
	s.mu.Unlock()

	err := s.submit(ctx, s.testID, answers)

	s.mu.Lock()
	s.inFlight = false
	if err != nil {
		return err
	}
	s.state = terminal

	if err := s.records.Clear(ctx, s.testID); err != nil {
		log.Print("talim: clearing attempt record failed")
	}
	return nil
}

func copyAnswers(answers map[int][]int) map[int][]int {
	out := make(map[int][]int, len(answers))
	for questionID, optionIDs := range answers {
		selected := make([]int, len(optionIDs))
		copy(selected, optionIDs)
		out[questionID] = selected
	}
	return out
}
