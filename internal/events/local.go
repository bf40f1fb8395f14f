package events

import (
	"context"
	"sync"
)

const subscriberBuffer = 8

// LocalBroker fans events out to subscribers in this process only. It is
// used when no Redis address is configured.
type LocalBroker struct {
	mu   sync.Mutex
	subs map[uint]map[chan StatusChanged]struct{}
}

func NewLocalBroker() *LocalBroker {
	return &LocalBroker{subs: make(map[uint]map[chan StatusChanged]struct{})}
}

// PublishStatusChanged never blocks; a subscriber whose buffer is full
// misses the event and picks up the state on its next read.
func (b *LocalBroker) PublishStatusChanged(_ context.Context, evt StatusChanged) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subs[evt.OrderID] {
		select {
		case ch <- evt:
		default:
		}
	}
	return nil
}

func (b *LocalBroker) SubscribeStatus(ctx context.Context, orderID uint) (<-chan StatusChanged, func(), error) {
	ch := make(chan StatusChanged, subscriberBuffer)

	b.mu.Lock()
	if b.subs[orderID] == nil {
		b.subs[orderID] = make(map[chan StatusChanged]struct{})
	}
	b.subs[orderID][ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[orderID], ch)
			if len(b.subs[orderID]) == 0 {
				delete(b.subs, orderID)
			}
			b.mu.Unlock()
			close(ch)
		})
	}

	stop := context.AfterFunc(ctx, unsubscribe)

	return ch, func() {
		stop()
		unsubscribe()
	}, nil
}

func (b *LocalBroker) subscriberCount(orderID uint) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[orderID])
}
