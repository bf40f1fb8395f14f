package tracking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"storefront-orders/internal/events"
	"storefront-orders/internal/logger"
	"storefront-orders/internal/order"
	"storefront-orders/internal/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const heartbeatInterval = 15 * time.Second

// OrderSource is the read side of the order service.
type OrderSource interface {
	GetOrder(ctx context.Context, orderID uint) (*order.Order, error)
}

type Handler struct {
	orders OrderSource
	sub    events.Subscriber
	now    func() time.Time
}

func NewHandler(orders OrderSource, sub events.Subscriber) *Handler {
	return &Handler{orders: orders, sub: sub, now: time.Now}
}

func (h *Handler) GetTracking(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}

	view, err := h.derive(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, view)
}

// Stream pushes the tracking view as server-sent events: once on connect
// and again after every status change of the order.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	log := logger.FromCtx(ctx).With(zap.Uint("order_id", id))

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.WriteJSONError(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	// Subscribe first so no change slips in between the read and the stream.
	updates, cancel, err := h.sub.SubscribeStatus(ctx, id)
	if err != nil {
		log.Error("status subscription failed", zap.Error(err))
		utils.WriteJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	defer cancel()

	view, err := h.derive(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, "tracking", view); err != nil {
		return
	}
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case evt, open := <-updates:
			if !open {
				return
			}
			view, err := h.derive(ctx, evt.OrderID)
			if err != nil {
				log.Warn("tracking refresh failed", zap.Error(err))
				continue
			}
			if err := writeEvent(w, "tracking", view); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (h *Handler) derive(ctx context.Context, id uint) (View, error) {
	o, err := h.orders.GetOrder(ctx, id)
	if err != nil {
		return View{}, err
	}
	return Derive(*order.ToView(o), h.now()), nil
}

func writeEvent(w http.ResponseWriter, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
	return err
}

func orderID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, err := utils.ToUint(chi.URLParam(r, "id"))
	if err != nil || id == 0 {
		utils.WriteJSONError(w, "invalid order id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, order.ErrOrderNotFound) {
		utils.WriteJSONError(w, order.ErrOrderNotFound.Error(), http.StatusNotFound)
		return
	}
	logger.FromCtx(r.Context()).Error("tracking request failed", zap.Error(err))
	utils.WriteJSONError(w, "internal server error", http.StatusInternalServerError)
}
