package order

import (
	"encoding/json"
	"errors"
	"net/http"

	"storefront-orders/internal/logger"
	"storefront-orders/internal/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var input PlaceOrderInput
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.WriteJSONError(w, ErrInvalidInput.Error(), http.StatusBadRequest)
		return
	}

	// A signed-in caller can only order for themselves.
	if id, ok := utils.GetUserIDFromContext(r.Context()); ok {
		if input.UserID != 0 && input.UserID != id {
			utils.WriteJSONError(w, ErrUserMismatch.Error(), http.StatusForbidden)
			return
		}
		input.UserID = id
	}
	input.Email = utils.GetUserEmailFromContext(r.Context())

	order, err := h.svc.PlaceOrder(r.Context(), input)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	utils.WriteJSON(w, http.StatusCreated, map[string]any{
		"message": "Order placed successfully",
		"orderId": order.ID,
	})
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	order, err := h.svc.GetOrder(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, ToView(order))
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	var req statusRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSONError(w, ErrInvalidStatus.Error(), http.StatusBadRequest)
		return
	}

	status, err := h.svc.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]any{
		"message": "Order status updated",
		"orderId": id,
		"status":  status,
	})
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.ListOrders(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, ToViews(orders))
}

func (h *Handler) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.WriteJSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	orders, err := h.svc.ListOrdersByUser(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, ToViews(orders))
}

func orderIDParam(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, err := utils.ToUint(chi.URLParam(r, "id"))
	if err != nil || id == 0 {
		utils.WriteJSONError(w, "invalid order id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidStatus):
		utils.WriteJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrOrderNotFound):
		utils.WriteJSONError(w, ErrOrderNotFound.Error(), http.StatusNotFound)
	default:
		// Storage detail stays in the log.
		logger.FromCtx(r.Context()).Error("order request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		utils.WriteJSONError(w, "internal server error", http.StatusInternalServerError)
	}
}
