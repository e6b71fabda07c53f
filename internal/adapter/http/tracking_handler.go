package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/YelzhanWeb/tableorder/internal/adapter/logger"
	"github.com/YelzhanWeb/tableorder/internal/interfaces"
)

type TrackingHandler struct {
	service interfaces.TrackingService
	logger  logger.Logger
}

func NewTrackingHandler(service interfaces.TrackingService, logger logger.Logger) *TrackingHandler {
	return &TrackingHandler{
		service: service,
		logger:  logger,
	}
}

type StatusResponse struct {
	OrderID       string    `json:"order_id"`
	TableID       string    `json:"table_id"`
	CurrentStatus string    `json:"current_status"`
	Items         []string  `json:"items"`
	Settled       bool      `json:"settled"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type HistoryEntry struct {
	Scope          string    `json:"scope"`
	ItemIndex      *int      `json:"item_index,omitempty"`
	PreviousStatus string    `json:"previous_status"`
	NewStatus      string    `json:"new_status"`
	Timestamp      time.Time `json:"timestamp"`
}

func (h *TrackingHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListOrders(r.Context())
	if err != nil {
		h.logger.Error("list_orders_failed", "Failed to list orders", logger.RequestID(r.Context()), nil, err)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ordersResponse(orders))
}

func (h *TrackingHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderResponse(order))
}

func (h *TrackingHandler) GetOrderStatus(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.GetOrderStatus(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := StatusResponse{
		OrderID:       result.OrderID,
		TableID:       result.TableID,
		CurrentStatus: string(result.CurrentStatus),
		Items:         make([]string, len(result.Items)),
		Settled:       result.Settled,
		UpdatedAt:     result.UpdatedAt,
	}
	for i, s := range result.Items {
		resp.Items[i] = string(s)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *TrackingHandler) GetOrderHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.service.GetOrderHistory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := make([]HistoryEntry, len(history))
	for i, log := range history {
		resp[i] = HistoryEntry{
			Scope:          string(log.Scope),
			ItemIndex:      log.ItemIndex,
			PreviousStatus: log.PreviousStatus,
			NewStatus:      log.NewStatus,
			Timestamp:      log.ChangedAt,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *TrackingHandler) TableOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.TableOrders(r.Context(), chi.URLParam(r, "tableID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ordersResponse(orders))
}
