package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/YelzhanWeb/tableorder/internal/adapter/logger"
	"github.com/YelzhanWeb/tableorder/internal/domain"
	"github.com/YelzhanWeb/tableorder/internal/interfaces"
)

type OrderHandler struct {
	service interfaces.OrderService
	logger  logger.Logger
}

func NewOrderHandler(service interfaces.OrderService, logger logger.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		logger:  logger,
	}
}

type PlaceOrderRequest struct {
	TableID string             `json:"table_id"`
	Note    string             `json:"note"`
	Items   []OrderItemRequest `json:"items"`
}

type OrderItemRequest struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Note     string `json:"note"`
}

type StatusRequest struct {
	Status string `json:"status"`
}

func (h *OrderHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cmd := interfaces.PlaceOrderCommand{
		TableID: strings.TrimSpace(req.TableID),
		Note:    req.Note,
		Items:   make([]interfaces.PlaceOrderItemCommand, len(req.Items)),
	}
	for i, item := range req.Items {
		cmd.Items[i] = interfaces.PlaceOrderItemCommand{
			Name:     strings.TrimSpace(item.Name),
			Quantity: item.Quantity,
			Note:     item.Note,
		}
	}

	order, err := h.service.PlaceOrder(r.Context(), cmd)
	if err != nil {
		h.logger.Error("order_placement_failed", "Failed to place order", logger.RequestID(r.Context()), nil, err)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, orderResponse(order))
}

func (h *OrderHandler) TransitionOrder(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.service.TransitionOrder(r.Context(), chi.URLParam(r, "id"), domain.OrderStatus(req.Status))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, orderResponse(order))
}

func (h *OrderHandler) TransitionItem(w http.ResponseWriter, r *http.Request) {
	index, ok := itemIndex(w, r)
	if !ok {
		return
	}

	var req StatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.service.TransitionItem(r.Context(), chi.URLParam(r, "id"), index, domain.ItemStatus(req.Status))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, orderResponse(order))
}

func itemIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "item index must be an integer")
		return 0, false
	}
	return index, true
}
