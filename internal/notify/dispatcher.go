package notify

import (
	"context"
	"sync"
	"time"

	"storefront-orders/internal/logger"

	"go.uber.org/zap"
)

type DispatcherOptions struct {
	Workers     int
	QueueSize   int
	SendTimeout time.Duration
	Recorder    Recorder
}

type job struct {
	requestID string
	msg       OrderConfirmation
}

// Dispatcher queues confirmations and sends them from background workers.
// Delivery is at most once: failures are logged and never retried.
type Dispatcher struct {
	notifier Notifier
	opts     DispatcherOptions

	mu     sync.RWMutex
	closed bool
	queue  chan job
	wg     sync.WaitGroup
}

func NewDispatcher(n Notifier, opts DispatcherOptions) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 100
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = 10 * time.Second
	}

	return &Dispatcher{
		notifier: n,
		opts:     opts,
		queue:    make(chan job, opts.QueueSize),
	}
}

// Enqueue hands msg to the workers without waiting for delivery. It
// returns false when the message was dropped.
func (d *Dispatcher) Enqueue(ctx context.Context, msg OrderConfirmation) bool {
	log := logger.FromCtx(ctx).With(zap.Uint("order_id", msg.OrderID))

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		log.Warn("notification dropped: dispatcher closed")
		d.record(OutcomeDropped)
		return false
	}

	select {
	case d.queue <- job{requestID: logger.RequestIDFrom(ctx), msg: msg}:
		return true
	default:
		log.Warn("notification dropped: queue full", zap.Int("queue_size", d.opts.QueueSize))
		d.record(OutcomeDropped)
		return false
	}
}

// Run starts the workers and blocks until ctx ends, then drains the queue.
func (d *Dispatcher) Run(ctx context.Context) error {
	for i := 0; i < d.opts.Workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}

	<-ctx.Done()
	d.Close()
	return nil
}

// Close stops accepting work and waits for queued messages to be sent.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()

	for j := range d.queue {
		d.send(id, j)
	}
}

func (d *Dispatcher) send(workerID int, j job) {
	ctx := logger.WithRequestID(context.Background(), j.requestID)
	ctx, cancel := context.WithTimeout(ctx, d.opts.SendTimeout)
	defer cancel()

	log := logger.FromCtx(ctx).With(
		zap.Int("worker", workerID),
		zap.Uint("order_id", j.msg.OrderID),
		zap.String("event_id", j.msg.EventID),
	)

	if err := d.notifier.SendOrderConfirmation(ctx, j.msg); err != nil {
		log.Error("order confirmation failed", zap.Error(err))
		d.record(OutcomeFailed)
		return
	}

	log.Info("order confirmation sent")
	d.record(OutcomeSent)
}

func (d *Dispatcher) record(outcome string) {
	if d.opts.Recorder != nil {
		d.opts.Recorder.NotificationResult(outcome)
	}
}
