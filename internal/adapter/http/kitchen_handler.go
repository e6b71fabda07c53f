package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/YelzhanWeb/tableorder/internal/adapter/logger"
	"github.com/YelzhanWeb/tableorder/internal/domain"
	"github.com/YelzhanWeb/tableorder/internal/interfaces"
)

type KitchenHandler struct {
	service interfaces.KitchenService
	logger  logger.Logger
}

func NewKitchenHandler(service interfaces.KitchenService, logger logger.Logger) *KitchenHandler {
	return &KitchenHandler{
		service: service,
		logger:  logger,
	}
}

func (h *KitchenHandler) Queue(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.Queue(r.Context())
	if err != nil {
		h.logger.Error("kitchen_queue_failed", "Failed to build kitchen queue", logger.RequestID(r.Context()), nil, err)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ordersResponse(orders))
}

// ItemAction handles start, ready and reject on one item.
func (h *KitchenHandler) ItemAction(w http.ResponseWriter, r *http.Request) {
	var act func(ctx context.Context, orderID string, itemIndex int) (*domain.Order, error)
	switch chi.URLParam(r, "action") {
	case "start":
		act = h.service.StartItem
	case "ready":
		act = h.service.ReadyItem
	case "reject":
		act = h.service.RejectItem
	default:
		writeError(w, http.StatusNotFound, "unknown kitchen action")
		return
	}

	index, ok := itemIndex(w, r)
	if !ok {
		return
	}

	order, err := act(r.Context(), chi.URLParam(r, "id"), index)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderResponse(order))
}
