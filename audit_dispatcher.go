package authcore

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// auditDispatcher decouples the login path from sink latency: events are
// queued to a single consumer goroutine that drains into the configured
// sink. With DropIfFull, backpressure sheds events instead of blocking.
//
// Sink calls receive the dispatcher's lifecycle context. At Close the
// context is cancelled after DrainTimeout, so a stalled sink cannot hang
// shutdown; events still queued at the deadline count as dropped.
type auditDispatcher struct {
	cfg       AuditConfig
	sink      AuditSink
	ch        chan AuditEvent
	done      chan struct{}
	stopped   chan struct{}
	lifeCtx   context.Context
	lifeStop  context.CancelFunc
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

const defaultDrainTimeout = 5 * time.Second

func newAuditDispatcher(cfg AuditConfig, sink AuditSink) *auditDispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = defaultDrainTimeout
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	lifeCtx, lifeStop := context.WithCancel(context.Background())
	d := &auditDispatcher{
		cfg:      cfg,
		sink:     sink,
		ch:       make(chan AuditEvent, cfg.BufferSize),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
		lifeCtx:  lifeCtx,
		lifeStop: lifeStop,
	}

	go d.run()

	return d
}

func (d *auditDispatcher) run() {
	defer close(d.stopped)

	for {
		select {
		case event := <-d.ch:
			d.deliver(event)
		case <-d.done:
			d.drain()
			return
		}
	}
}

// drain flushes events queued before Close. It stops as soon as the
// lifecycle context is cancelled by the drain deadline, counting whatever
// remains as dropped.
func (d *auditDispatcher) drain() {
	for {
		if d.lifeCtx.Err() != nil {
			d.dropped.Add(uint64(len(d.ch)))
			return
		}
		select {
		case event := <-d.ch:
			d.deliver(event)
		default:
			return
		}
	}
}

// deliver hands one event to the sink, or counts it as dropped once the
// lifecycle context has been cancelled.
func (d *auditDispatcher) deliver(event AuditEvent) {
	if d.lifeCtx.Err() != nil {
		d.dropped.Add(1)
		return
	}
	d.sink.Emit(d.lifeCtx, event)
}

func (d *auditDispatcher) Emit(ctx context.Context, event AuditEvent) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.cfg.DropIfFull {
		select {
		case d.ch <- event:
		case <-d.done:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.ch <- event:
	case <-ctx.Done():
	case <-d.done:
	}
}

func (d *auditDispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)

		deadline := time.AfterFunc(d.cfg.DrainTimeout, d.lifeStop)
		close(d.done)
		<-d.stopped
		deadline.Stop()
		d.lifeStop()
	})
}

// Dropped reports events shed under backpressure plus events abandoned at
// the Close drain deadline.
func (d *auditDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
