package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/YelzhanWeb/tableorder/internal/domain"
)

type ErrorResponse struct {
	Error           string `json:"error"`
	CurrentStatus   string `json:"current_status,omitempty"`
	AttemptedStatus string `json:"attempted_status,omitempty"`
	Scope           string `json:"scope,omitempty"`
	Reason          string `json:"reason,omitempty"`
}

type OrderItemResponse struct {
	Index    int    `json:"index"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Status   string `json:"status"`
	Note     string `json:"note,omitempty"`
}

type OrderResponse struct {
	OrderID   string              `json:"order_id"`
	TableID   string              `json:"table_id"`
	Status    string              `json:"status"`
	Note      string              `json:"note,omitempty"`
	Items     []OrderItemResponse `json:"items"`
	Settled   bool                `json:"settled"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

func orderResponse(o *domain.Order) OrderResponse {
	resp := OrderResponse{
		OrderID:   o.ID,
		TableID:   o.TableID,
		Status:    string(o.Status),
		Note:      o.Note,
		Items:     make([]OrderItemResponse, len(o.Items)),
		Settled:   o.Settled(),
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
	for i, item := range o.Items {
		resp.Items[i] = OrderItemResponse{
			Index:    i,
			Name:     item.Name,
			Quantity: item.Quantity,
			Status:   string(item.Status),
			Note:     item.Note,
		}
	}
	return resp
}

func ordersResponse(orders []*domain.Order) []OrderResponse {
	out := make([]OrderResponse, len(orders))
	for i, o := range orders {
		out[i] = orderResponse(o)
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeDomainError maps core errors onto status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	var terr *domain.TransitionError
	switch {
	case errors.As(err, &terr):
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error:           terr.Err.Error(),
			CurrentStatus:   terr.Current,
			AttemptedStatus: terr.Attempted,
			Scope:           string(terr.Scope),
			Reason:          terr.Reason,
		})
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, domain.ErrInvalidOrder),
		errors.Is(err, domain.ErrItemIndex),
		errors.Is(err, domain.ErrUnknownAudience):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
