package tracking

import (
	"context"
	"errors"
	"sync"
	"time"

	"storefront-orders/internal/logger"
	"storefront-orders/internal/order"

	"go.uber.org/zap"
)

const DefaultPollInterval = 5 * time.Second

// State is a snapshot of what the poller currently knows.
type State struct {
	View       *View
	HasError   bool
	Error      string
	Terminal   bool
	Polls      int
	LastPolled time.Time
}

type PollerOptions struct {
	Interval time.Duration
	// StopOnDelivered ends polling once delivered is observed.
	StopOnDelivered bool
	OnUpdate        func(State)
	Now             func() time.Time
}

type Poller struct {
	fetcher Fetcher
	orderID uint
	opts    PollerOptions

	mu    sync.RWMutex
	state State
}

func NewPoller(f Fetcher, orderID uint, opts PollerOptions) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = DefaultPollInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Poller{fetcher: f, orderID: orderID, opts: opts}
}

// Run polls immediately and then on every tick until ctx ends, the order
// turns out not to exist, or delivery is observed with StopOnDelivered.
// It returns ErrNotFound in the second case and nil otherwise.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.opts.Interval)
	defer ticker.Stop()

	for {
		if stop, err := p.Poll(ctx); stop {
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Poll performs a single fetch and reports whether polling should stop.
func (p *Poller) Poll(ctx context.Context) (bool, error) {
	log := logger.FromCtx(ctx).With(zap.Uint("order_id", p.orderID))

	v, err := p.fetcher.FetchOrder(ctx, p.orderID)
	now := p.opts.Now()

	p.mu.Lock()
	p.state.Polls++
	p.state.LastPolled = now

	var stop bool
	var result error
	switch {
	case errors.Is(err, ErrNotFound):
		p.state.Terminal = true
		p.state.HasError = true
		p.state.Error = ErrNotFound.Error()
		stop, result = true, ErrNotFound
	case err != nil:
		if ctx.Err() != nil {
			p.mu.Unlock()
			return true, nil
		}
		// Keep the last good view; the next tick retries.
		p.state.HasError = true
		p.state.Error = err.Error()
		log.Warn("tracking poll failed", zap.Error(err))
	default:
		derived := Derive(*v, now)
		p.state.View = &derived
		p.state.HasError = false
		p.state.Error = ""
		if p.opts.StopOnDelivered && derived.Status == order.StatusDelivered {
			p.state.Terminal = true
			stop = true
		}
	}
	snapshot := p.snapshotLocked()
	p.mu.Unlock()

	if p.opts.OnUpdate != nil {
		p.opts.OnUpdate(snapshot)
	}
	return stop, result
}

func (p *Poller) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshotLocked()
}

// DismissError clears the error banner without touching the view.
func (p *Poller) DismissError() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.HasError = false
	p.state.Error = ""
}

func (p *Poller) snapshotLocked() State {
	s := p.state
	if s.View != nil {
		v := *s.View
		s.View = &v
	}
	return s
}
