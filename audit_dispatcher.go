package goSession

import (
	"context"
	"sync"
	"sync/atomic"
)

// auditDispatcher hands events to a sink on a single worker goroutine so a
// slow sink never sits on a request path. A nil dispatcher discards
// everything.
//
// Emit holds the read lock while queueing and Close takes the write lock
// before closing the queue, so no send can race the close.
type auditDispatcher struct {
	sink       AuditSink
	dropIfFull bool
	onDrop     func(total uint64)

	mu     sync.RWMutex
	closed bool
	queue  chan AuditEvent

	dropped atomic.Uint64
	stopped chan struct{}
}

// newAuditDispatcher starts the worker. onDrop, when set, runs on the
// emitting goroutine with the running drop total.
func newAuditDispatcher(cfg AuditConfig, sink AuditSink, onDrop func(total uint64)) *auditDispatcher {
	if !cfg.Enabled {
		return nil
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	size := cfg.BufferSize
	if size <= 0 {
		size = 1
	}

	d := &auditDispatcher{
		sink:       sink,
		dropIfFull: cfg.DropIfFull,
		onDrop:     onDrop,
		queue:      make(chan AuditEvent, size),
		stopped:    make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *auditDispatcher) run() {
	defer close(d.stopped)
	for event := range d.queue {
		d.sink.Emit(context.Background(), event)
	}
}

// Emit queues event. With DropIfFull a full queue drops it at once;
// otherwise Emit waits for room and drops only when ctx ends first.
func (d *auditDispatcher) Emit(ctx context.Context, event AuditEvent) {
	if d == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}

	if d.dropIfFull {
		select {
		case d.queue <- event:
		default:
			d.drop()
		}
		return
	}

	select {
	case d.queue <- event:
	case <-ctx.Done():
		d.drop()
	}
}

func (d *auditDispatcher) drop() {
	total := d.dropped.Add(1)
	if d.onDrop != nil {
		d.onDrop(total)
	}
}

// Close stops accepting events and returns once every queued event reached
// the sink. Later calls only wait.
func (d *auditDispatcher) Close() {
	if d == nil {
		return
	}
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	<-d.stopped
}

func (d *auditDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
