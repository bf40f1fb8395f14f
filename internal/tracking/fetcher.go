package tracking

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"storefront-orders/internal/order"

	"github.com/go-resty/resty/v2"
)

var ErrNotFound = errors.New("order not found")

type Fetcher interface {
	FetchOrder(ctx context.Context, orderID uint) (*order.View, error)
}

// HTTPFetcher reads orders from the order API.
type HTTPFetcher struct {
	client *resty.Client
}

type apiError struct {
	Message string `json:"message"`
}

func NewHTTPFetcher(baseURL string, timeout time.Duration) *HTTPFetcher {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &HTTPFetcher{client: client}
}

// WithToken authenticates requests with a bearer token.
func (f *HTTPFetcher) WithToken(token string) *HTTPFetcher {
	if token != "" {
		f.client.SetAuthToken(token)
	}
	return f
}

func (f *HTTPFetcher) FetchOrder(ctx context.Context, orderID uint) (*order.View, error) {
	var (
		view   order.View
		apiErr apiError
	)

	resp, err := f.client.R().
		SetContext(ctx).
		SetPathParam("id", fmt.Sprint(orderID)).
		SetResult(&view).
		SetError(&apiErr).
		Get("/api/orders/{id}")
	if err != nil {
		return nil, fmt.Errorf("fetch order %d: %w", orderID, err)
	}

	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.IsError():
		msg := apiErr.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode())
		}
		return nil, fmt.Errorf("fetch order %d: %d %s", orderID, resp.StatusCode(), msg)
	}

	return &view, nil
}
