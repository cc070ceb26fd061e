package talim

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// AuditEvent records one observable action of the client: an auth
// transition, a navigation denial, an attempt lifecycle step.
type AuditEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType string            `json:"event_type"`
	UserID    string            `json:"user_id,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// AuditSink consumes batches of audit events. The pipeline coalesces
// queued events and hands each batch to Write from its flush goroutine,
// so a sink sees batches sequentially; implementations still must be safe
// for concurrent use because Close and tests may drive them directly.
type AuditSink interface {
	Write(ctx context.Context, events []AuditEvent)
}

// NoOpSink discards every batch.
type NoOpSink struct{}

// Write implements AuditSink.
func (NoOpSink) Write(context.Context, []AuditEvent) {}

// ChannelSink forwards events to a buffered channel for in-process
// consumers. A lagging consumer loses the rest of the batch rather than
// stalling the pipeline.
type ChannelSink struct {
	events chan AuditEvent
}

// NewChannelSink builds a ChannelSink with the given buffer.
func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		events: make(chan AuditEvent, buffer),
	}
}

// Write implements AuditSink.
func (s *ChannelSink) Write(_ context.Context, events []AuditEvent) {
	for _, event := range events {
		select {
		case s.events <- event:
		default:
			return
		}
	}
}

// Events exposes the delivered events.
func (s *ChannelSink) Events() <-chan AuditEvent {
	return s.events
}

// JSONWriterSink writes one JSON line per event. A batch is encoded in
// full before touching the writer, so its lines land contiguously even
// when the writer is shared.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

// NewJSONWriterSink builds a JSONWriterSink over w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

// Write implements AuditSink.
func (s *JSONWriterSink) Write(_ context.Context, events []AuditEvent) {
	if s == nil || s.writer == nil || len(events) == 0 {
		return
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, event := range events {
		if err := enc.Encode(event); err != nil {
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = s.writer.Write(buf.Bytes())
}
