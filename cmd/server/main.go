package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront-orders/internal/config"
	"storefront-orders/internal/db"
	"storefront-orders/internal/events"
	"storefront-orders/internal/logger"
	"storefront-orders/internal/metrics"
	"storefront-orders/internal/middleware"
	"storefront-orders/internal/notify"
	"storefront-orders/internal/order"
	"storefront-orders/internal/tracking"
	"storefront-orders/internal/utils"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

var (
	initDBFunc      = db.InitDB
	startServerFunc = func(srv *http.Server) error { return srv.ListenAndServe() }
)

func main() {
	if err := run(); err != nil {
		logger.L().Fatal("server exited", zap.Error(err))
	}
}

func run() error {
	cfg := config.LoadConfig()
	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	database := initDBFunc(cfg)
	defer database.Close()

	app, err := newServer(cfg, database)
	if err != nil {
		return err
	}
	defer app.close()

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           app.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		logger.L().Info("order service listening", zap.String("addr", srv.Addr))
		if err := startServerFunc(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
		defer done()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error { return app.dispatcher.Run(gctx) })
	g.Go(func() error { return app.limiter.Cleanup(gctx) })

	err = g.Wait()
	logger.L().Info("order service stopped")
	return err
}

type server struct {
	handler    http.Handler
	dispatcher *notify.Dispatcher
	limiter    *middleware.RateLimiter
	closers    []func() error
}

func (s *server) close() {
	for _, c := range s.closers {
		if err := c(); err != nil {
			logger.L().Warn("close failed", zap.Error(err))
		}
	}
}

func newServer(cfg *config.Config, database *sql.DB) (*server, error) {
	s := &server{limiter: middleware.NewRateLimiter()}
	m := metrics.New()

	notifier := newNotifier(cfg, s)
	s.dispatcher = notify.NewDispatcher(notifier, notify.DispatcherOptions{
		Workers:   cfg.NotifyWorkers,
		QueueSize: cfg.NotifyQueueSize,
		Recorder:  m,
	})

	broker, err := newBroker(cfg, s)
	if err != nil {
		return nil, err
	}

	orderSvc := order.NewService(order.NewRepository(database), s.dispatcher, broker, order.Options{
		StrictStatus: cfg.StrictOrderStatus,
		Observer:     m,
	})

	s.handler = setupRouter(cfg, database, m, s.limiter,
		order.NewHandler(orderSvc),
		tracking.NewHandler(orderSvc, broker),
	)
	return s, nil
}

func newNotifier(cfg *config.Config, s *server) notify.Notifier {
	log := logger.L()
	switch {
	case cfg.KafkaBrokers != "":
		k := notify.NewKafkaNotifier(cfg.KafkaBrokers, cfg.KafkaTopic)
		s.closers = append(s.closers, k.Close)
		log.Info("order confirmations via kafka", zap.String("topic", cfg.KafkaTopic))
		return k
	case cfg.MailAPIURL != "":
		log.Info("order confirmations via mail api", zap.String("url", cfg.MailAPIURL))
		return notify.NewMailNotifier(cfg.MailAPIURL, cfg.MailAPIKey, cfg.MailFrom)
	default:
		log.Warn("no mail transport configured; order confirmations are only logged")
		return notify.LogNotifier{}
	}
}

func newBroker(cfg *config.Config, s *server) (events.Broker, error) {
	if cfg.RedisAddr == "" {
		return events.NewLocalBroker(), nil
	}

	b, err := events.NewRedisBroker(cfg.RedisAddr)
	if err != nil {
		return nil, fmt.Errorf("redis broker: %w", err)
	}
	s.closers = append(s.closers, b.Close)
	return b, nil
}

func setupRouter(
	cfg *config.Config,
	database *sql.DB,
	m *metrics.Metrics,
	limiter *middleware.RateLimiter,
	orders *order.Handler,
	track *tracking.Handler,
) http.Handler {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	r := chi.NewRouter()

	r.Use(logger.RequestIDMiddleware)
	r.Use(logger.LoggingMiddleware)
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(m.Middleware)
	r.Use(middleware.Authenticate(cfg.JWTSecret))
	r.Use(limiter.Middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := database.PingContext(ctx); err != nil {
			logger.FromCtx(r.Context()).Error("health check failed", zap.Error(err))
			utils.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "DOWN"})
			return
		}
		utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "OK"})
	})
	r.Method(http.MethodGet, "/metrics", m.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(chimw.Timeout(timeout))

			r.Post("/orders", orders.PlaceOrder)
			r.With(middleware.RequireUser).Get("/orders/mine", orders.ListMyOrders)
			r.Get("/orders/{id}", orders.GetOrder)
			r.Patch("/orders/{id}/status", orders.UpdateStatus)
			r.Get("/orders/{id}/track", track.GetTracking)

			r.With(middleware.RequireAdmin(cfg.AdminEmails)).Get("/admin/orders", orders.ListOrders)
		})

		// Long-lived; outside the request timeout.
		r.Get("/orders/{id}/stream", track.Stream)
	})

	return r
}
