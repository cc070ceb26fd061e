package talim

import (
	"context"
	"sync"
)

// auditPipeline queues emitted events and flushes them to the sink in
// batches from a single goroutine. Emit never blocks: when the queue is
// full the pipeline sheds load instead, evicting the oldest queued event
// by default or discarding the incoming one under DropIfFull.
type auditPipeline struct {
	sink     AuditSink
	capacity int
	dropNew  bool

	mu      sync.Mutex
	queue   []AuditEvent
	dropped uint64
	closed  bool

	wake chan struct{}
	done chan struct{}
	wg   sync.WaitGroup
}

func newAuditPipeline(cfg AuditConfig, sink AuditSink) *auditPipeline {
	if !cfg.Enabled {
		return nil
	}
	capacity := cfg.BufferSize
	if capacity <= 0 {
		capacity = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	p := &auditPipeline{
		sink:     sink,
		capacity: capacity,
		dropNew:  cfg.DropIfFull,
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}

	p.wg.Add(1)
	go p.flushLoop()

	return p
}

func (p *auditPipeline) flushLoop() {
	defer p.wg.Done()

	for {
		select {
		case <-p.wake:
			p.flush()
		case <-p.done:
			p.flush()
			return
		}
	}
}

// flush swaps the queue out under the lock and writes the batch without
// holding it, so emitters never wait on the sink.
func (p *auditPipeline) flush() {
	p.mu.Lock()
	batch := p.queue
	p.queue = nil
	p.mu.Unlock()

	if len(batch) == 0 {
		return
	}
	p.sink.Write(context.Background(), batch)
}

// Emit queues an event for delivery and returns immediately. A full
// queue sheds one event per the configured policy; every shed event is
// counted in Dropped.
func (p *auditPipeline) Emit(event AuditEvent) {
	if p == nil {
		return
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	if len(p.queue) >= p.capacity {
		p.dropped++
		if p.dropNew {
			p.mu.Unlock()
			return
		}
		p.queue = p.queue[1:]
	}
	p.queue = append(p.queue, event)
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Close flushes whatever is queued and stops the flush goroutine. Later
// Emit calls are discarded without counting as drops.
func (p *auditPipeline) Close() {
	if p == nil {
		return
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	close(p.done)
	p.wg.Wait()
}

// Dropped reports how many events were shed under backpressure.
func (p *auditPipeline) Dropped() uint64 {
	if p == nil {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dropped
}
