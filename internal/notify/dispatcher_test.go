package notify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"storefront-orders/internal/logger"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeNotifier struct {
	mu    sync.Mutex
	sent  []OrderConfirmation
	reqID []string
	err   error
	block chan struct{}
}

func (f *fakeNotifier) SendOrderConfirmation(ctx context.Context, msg OrderConfirmation) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	f.reqID = append(f.reqID, logger.RequestIDFrom(ctx))
	return f.err
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakeRecorder struct {
	mu       sync.Mutex
	outcomes map[string]int
}

func (r *fakeRecorder) NotificationResult(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.outcomes == nil {
		r.outcomes = map[string]int{}
	}
	r.outcomes[outcome]++
}

func (r *fakeRecorder) get(outcome string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.outcomes[outcome]
}

func TestDispatcher_DeliversAndDrainsOnShutdown(t *testing.T) {
	n := &fakeNotifier{}
	rec := &fakeRecorder{}
	d := NewDispatcher(n, DispatcherOptions{Workers: 2, QueueSize: 10, Recorder: rec})

	ctx := logger.WithRequestID(context.Background(), "req-1")
	for i := 1; i <= 5; i++ {
		require.True(t, d.Enqueue(ctx, OrderConfirmation{OrderID: uint(i)}))
	}

	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(runCtx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not stop")
	}

	assert.Equal(t, 5, n.count())
	assert.Equal(t, 5, rec.get(OutcomeSent))
	assert.Equal(t, "req-1", n.reqID[0])
}

func TestDispatcher_DropsWhenQueueFull(t *testing.T) {
	core, observed := observer.New(zapcore.WarnLevel)
	defer logger.Replace(zap.New(core))()

	rec := &fakeRecorder{}
	d := NewDispatcher(&fakeNotifier{}, DispatcherOptions{Workers: 1, QueueSize: 1, Recorder: rec})

	assert.True(t, d.Enqueue(context.Background(), OrderConfirmation{OrderID: 1}))
	assert.False(t, d.Enqueue(context.Background(), OrderConfirmation{OrderID: 2}))

	assert.Equal(t, 1, rec.get(OutcomeDropped))
	assert.Equal(t, 1, observed.FilterMessage("notification dropped: queue full").Len())
	d.Close()
}

func TestDispatcher_EnqueueAfterClose(t *testing.T) {
	d := NewDispatcher(&fakeNotifier{}, DispatcherOptions{})
	d.Close()
	d.Close()

	assert.False(t, d.Enqueue(context.Background(), OrderConfirmation{OrderID: 1}))
}

func TestDispatcher_FailureIsLoggedNotRetried(t *testing.T) {
	core, observed := observer.New(zapcore.ErrorLevel)
	defer logger.Replace(zap.New(core))()

	n := &fakeNotifier{err: errors.New("smtp down")}
	rec := &fakeRecorder{}
	d := NewDispatcher(n, DispatcherOptions{Workers: 1, Recorder: rec})

	require.True(t, d.Enqueue(context.Background(), OrderConfirmation{OrderID: 9}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, d.Run(ctx))

	assert.Equal(t, 1, n.count())
	assert.Equal(t, 1, rec.get(OutcomeFailed))
	logs := observed.FilterMessage("order confirmation failed").All()
	require.Len(t, logs, 1)
	assert.EqualValues(t, 9, logs[0].ContextMap()["order_id"])
}

func TestDispatcher_EnqueueDoesNotWaitForDelivery(t *testing.T) {
	n := &fakeNotifier{block: make(chan struct{})}
	d := NewDispatcher(n, DispatcherOptions{Workers: 1, QueueSize: 4})

	ctx, cancel := context.WithCancel(context.Background())
	go d.Run(ctx)

	start := time.Now()
	for i := 0; i < 3; i++ {
		d.Enqueue(context.Background(), OrderConfirmation{OrderID: uint(i)})
	}
	assert.Less(t, time.Since(start), 500*time.Millisecond)

	close(n.block)
	cancel()
}

func TestMailNotifier(t *testing.T) {
	t.Run("Posts confirmation", func(t *testing.T) {
		var gotAuth, gotPath string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			gotPath = r.URL.Path
			w.WriteHeader(http.StatusAccepted)
		}))
		defer srv.Close()

		m := NewMailNotifier(srv.URL+"/", "key-123", "orders@shop.io")
		err := m.SendOrderConfirmation(context.Background(), OrderConfirmation{
			OrderID: 7,
			Email:   "buyer@shop.io",
			Items:   []Item{{ProductID: 1, Quantity: 2, Price: 100}},
			Total:   200,
		})

		require.NoError(t, err)
		assert.Equal(t, "Bearer key-123", gotAuth)
		assert.Equal(t, "/send", gotPath)
	})

	t.Run("Service error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "quota exceeded", http.StatusTooManyRequests)
		}))
		defer srv.Close()

		err := NewMailNotifier(srv.URL, "", "x@y").SendOrderConfirmation(context.Background(), OrderConfirmation{OrderID: 1, Email: "a@b"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "429")
	})

	t.Run("Missing recipient", func(t *testing.T) {
		err := NewMailNotifier("http://127.0.0.1:1", "", "x@y").SendOrderConfirmation(context.Background(), OrderConfirmation{OrderID: 1})
		assert.Error(t, err)
	})
}

func TestConfirmationText(t *testing.T) {
	text := confirmationText(OrderConfirmation{
		OrderID:       12,
		Status:        "processing",
		Total:         200,
		PaymentMethod: "cod",
		Items:         []Item{{ProductID: 3, Quantity: 2, Price: 100}},
		Delivery:      Delivery{FullName: "Ana", City: "Lisbon"},
	})

	assert.Contains(t, text, "Hi Ana")
	assert.Contains(t, text, "order #12")
	assert.Contains(t, text, "Total: 200.00")
	assert.Contains(t, text, "x2")
}

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return w.err
}

func (w *fakeWriter) Close() error { return nil }

func TestKafkaNotifier(t *testing.T) {
	w := &fakeWriter{}
	k := &KafkaNotifier{writer: w}

	err := k.SendOrderConfirmation(context.Background(), OrderConfirmation{EventID: "evt-1", OrderID: 42})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "42", string(w.msgs[0].Key))
	assert.Contains(t, string(w.msgs[0].Value), `"type":"order.confirmation"`)
	assert.Contains(t, string(w.msgs[0].Value), `"event_id":"evt-1"`)

	w.err = errors.New("broker unavailable")
	assert.Error(t, k.SendOrderConfirmation(context.Background(), OrderConfirmation{OrderID: 43}))
}

func TestParseBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, ParseBrokers(" a:9092, ,b:9092 "))
	assert.Empty(t, ParseBrokers(""))
}

func TestLogNotifier(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	defer logger.Replace(zap.New(core))()

	require.NoError(t, LogNotifier{}.SendOrderConfirmation(context.Background(), OrderConfirmation{OrderID: 5}))
	assert.Equal(t, 1, observed.Len())
}
