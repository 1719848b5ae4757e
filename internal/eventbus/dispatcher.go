// Package eventbus delivers committed domain events to registered
// listeners, synchronously or on a bounded worker pool.
package eventbus

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/go-corebank/corebank/internal/domain"
	"github.com/go-corebank/corebank/internal/monitoring"
)

// Listener consumes domain events. Delivery is at-least-once; listeners
// deduplicate on the event ID if they need exactly-once effects. A listener
// error is logged and counted, never propagated to the publisher.
type Listener interface {
	Handle(ctx context.Context, event domain.Event) error
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(ctx context.Context, event domain.Event) error

// Handle implements Listener.
func (f ListenerFunc) Handle(ctx context.Context, event domain.Event) error {
	return f(ctx, event)
}

// Config sizes the async worker pool.
type Config struct {
	// CoreWorkers run for the dispatcher lifetime.
	CoreWorkers int
	// MaxWorkers bounds core plus on-demand workers spawned when the
	// queue backs up.
	MaxWorkers int
	// QueueSize is the pending task capacity. When the queue is full and
	// no extra worker can be spawned the task is rejected and counted as
	// a failed event.
	QueueSize int
}

func (c Config) withDefaults() Config {
	if c.CoreWorkers <= 0 {
		c.CoreWorkers = 2
	}
	if c.MaxWorkers <= 0 {
		c.MaxWorkers = 5
	}
	if c.MaxWorkers < c.CoreWorkers {
		c.MaxWorkers = c.CoreWorkers
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 100
	}

	return c
}

// Dispatcher publishes domain events to registered listeners. Asynchronous
// publication never blocks the caller and never reports delivery outcomes
// back: a delivery fault must not fail the business operation that raised
// the event.
type Dispatcher struct {
	cfg     Config
	metrics *monitoring.Metrics
	logger  zerolog.Logger

	mu        sync.RWMutex
	listeners []Listener

	tasks  chan domain.Event
	extra  int // live on-demand workers, guarded by mu
	wg     sync.WaitGroup
	closed chan struct{}
}

// New starts a Dispatcher with cfg.CoreWorkers background workers.
func New(cfg Config, m *monitoring.Metrics, logger zerolog.Logger) *Dispatcher {
	cfg = cfg.withDefaults()

	d := &Dispatcher{
		cfg:     cfg,
		metrics: m,
		logger:  logger,
		tasks:   make(chan domain.Event, cfg.QueueSize),
		closed:  make(chan struct{}),
	}

	for i := 0; i < cfg.CoreWorkers; i++ {
		d.wg.Add(1)
		go d.coreWorker()
	}

	return d
}

// Subscribe registers a listener for all subsequently published events.
func (d *Dispatcher) Subscribe(l Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.listeners = append(d.listeners, l)
}

// Publish delivers event to every listener before returning.
func (d *Dispatcher) Publish(ctx context.Context, event domain.Event) {
	d.metrics.EventPublished(event.EventType())
	d.deliver(ctx, event)
}

// PublishBatch delivers events in order to every listener before returning.
func (d *Dispatcher) PublishBatch(ctx context.Context, events []domain.Event) {
	for _, event := range events {
		d.Publish(ctx, event)
	}
}

// PublishAsync enqueues event for background delivery and returns
// immediately. A full queue rejects the event: it is logged and counted as
// failed rather than blocking the caller.
func (d *Dispatcher) PublishAsync(event domain.Event) {
	d.metrics.EventPublished(event.EventType())

	select {
	case <-d.closed:
		d.metrics.EventFailed(event.EventType())
		return
	default:
	}

	select {
	case d.tasks <- event:
		return
	default:
	}

	if d.spawnExtraWorker() {
		select {
		case d.tasks <- event:
			return
		default:
		}
	}

	d.metrics.EventFailed(event.EventType())
	d.logger.Error().
		Str("event_id", event.EventID()).
		Str("event_type", event.EventType()).
		Msg("event queue full, delivery rejected")
}

// PublishBatchAsync enqueues events in order for background delivery.
func (d *Dispatcher) PublishBatchAsync(events []domain.Event) {
	for _, event := range events {
		d.PublishAsync(event)
	}
}

// Close stops accepting async work and waits for queued deliveries.
func (d *Dispatcher) Close() {
	close(d.closed)
	close(d.tasks)
	d.wg.Wait()
}

func (d *Dispatcher) coreWorker() {
	defer d.wg.Done()

	for event := range d.tasks {
		d.deliver(d.logger.WithContext(context.Background()), event)
	}
}

// spawnExtraWorker starts an on-demand worker that drains the queue and
// exits when it runs dry. Returns false once the pool is at MaxWorkers.
func (d *Dispatcher) spawnExtraWorker() bool {
	d.mu.Lock()
	if d.extra >= d.cfg.MaxWorkers-d.cfg.CoreWorkers {
		d.mu.Unlock()
		return false
	}
	d.extra++
	d.mu.Unlock()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			d.mu.Lock()
			d.extra--
			d.mu.Unlock()
		}()

		for {
			select {
			case event, ok := <-d.tasks:
				if !ok {
					return
				}
				d.deliver(d.logger.WithContext(context.Background()), event)
			default:
				return
			}
		}
	}()

	return true
}

func (d *Dispatcher) deliver(ctx context.Context, event domain.Event) {
	d.mu.RLock()
	listeners := make([]Listener, len(d.listeners))
	copy(listeners, d.listeners)
	d.mu.RUnlock()

	for _, l := range listeners {
		start := time.Now()

		if err := l.Handle(ctx, event); err != nil {
			d.metrics.EventFailed(event.EventType())
			zerolog.Ctx(ctx).Error().Err(err).
				Str("event_id", event.EventID()).
				Str("event_type", event.EventType()).
				Msg("event delivery failed")

			continue
		}

		d.metrics.EventProcessed(event.EventType())
		d.metrics.ObserveEventProcessing(event.EventType(), time.Since(start))
	}
}
