// Command track follows one order's delivery progress from the terminal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"storefront-orders/internal/config"
	"storefront-orders/internal/logger"
	"storefront-orders/internal/tracking"

	"go.uber.org/zap"
)

type options struct {
	server          string
	orderID         uint
	interval        time.Duration
	invoicePath     string
	token           string
	once            bool
	stopOnDelivered bool
}

func main() {
	cfg := config.LoadConfig()
	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	opts, err := parseFlags(os.Args[1:], cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fetcher := tracking.NewHTTPFetcher(opts.server, 10*time.Second).WithToken(opts.token)
	if err := run(ctx, fetcher, opts, os.Stdout); err != nil {
		logger.L().Error("tracking stopped", zap.Error(err))
		os.Exit(1)
	}
}

func parseFlags(args []string, cfg *config.Config) (options, error) {
	var (
		opts    options
		orderID uint64
	)

	fs := flag.NewFlagSet("track", flag.ContinueOnError)
	fs.StringVar(&opts.server, "server", "http://localhost:"+cfg.AppPort, "order API base URL")
	fs.Uint64Var(&orderID, "order", 0, "order id to follow (required)")
	fs.DurationVar(&opts.interval, "interval", cfg.TrackingPollInterval, "poll interval")
	fs.StringVar(&opts.invoicePath, "invoice", "", "write a plain-text invoice to this file")
	fs.StringVar(&opts.token, "token", os.Getenv("TRACK_TOKEN"), "bearer token")
	fs.BoolVar(&opts.once, "once", false, "poll a single time and exit")
	fs.BoolVar(&opts.stopOnDelivered, "stop-on-delivered", true, "exit once the order is delivered")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if orderID == 0 {
		return opts, errors.New("-order is required")
	}
	opts.orderID = uint(orderID)
	return opts, nil
}

func run(ctx context.Context, f tracking.Fetcher, opts options, out io.Writer) error {
	poller := tracking.NewPoller(f, opts.orderID, tracking.PollerOptions{
		Interval:        opts.interval,
		StopOnDelivered: opts.stopOnDelivered,
		OnUpdate: func(s tracking.State) {
			printState(out, s)
			if s.View != nil && !s.HasError && opts.invoicePath != "" {
				if err := writeInvoice(opts.invoicePath, *s.View); err != nil {
					logger.L().Warn("invoice not written", zap.Error(err))
				}
			}
		},
	})

	if opts.once {
		_, err := poller.Poll(ctx)
		if err == nil && poller.State().HasError {
			err = errors.New(poller.State().Error)
		}
		return err
	}
	return poller.Run(ctx)
}

func printState(out io.Writer, s tracking.State) {
	if s.HasError {
		fmt.Fprintf(out, "[%s] ! %s\n", s.LastPolled.Format(time.TimeOnly), s.Error)
	}
	if s.View == nil {
		return
	}

	v := s.View
	filled := v.Progress / 10
	bar := strings.Repeat("#", filled) + strings.Repeat(".", 10-filled)
	fmt.Fprintf(out, "[%s] order %d  [%s] %3d%%  %-16s  %-16s  ETA %s\n",
		s.LastPolled.Format(time.TimeOnly),
		v.OrderID,
		bar,
		v.Progress,
		v.Status,
		v.Location,
		v.EstimatedDelivery.Format("2006-01-02"),
	)
}

func writeInvoice(path string, v tracking.View) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := tracking.RenderInvoice(f, v); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
