package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/YelzhanWeb/tableorder/internal/adapter/logger"
)

type Handlers struct {
	Orders   *OrderHandler
	Tracking *TrackingHandler
	Kitchen  *KitchenHandler
	Stream   *StreamHandler
}

func NewRouter(h Handlers, log logger.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware(log))
	r.Use(RecoveryMiddleware(log))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.Orders.PlaceOrder)
		r.Get("/", h.Tracking.ListOrders)
		r.Get("/{id}", h.Tracking.GetOrder)
		r.Get("/{id}/status", h.Tracking.GetOrderStatus)
		r.Get("/{id}/history", h.Tracking.GetOrderHistory)
		r.Post("/{id}/status", h.Orders.TransitionOrder)
		r.Post("/{id}/items/{index}/status", h.Orders.TransitionItem)
	})

	r.Get("/tables/{tableID}/orders", h.Tracking.TableOrders)

	r.Route("/kitchen", func(r chi.Router) {
		r.Get("/queue", h.Kitchen.Queue)
		r.Post("/orders/{id}/items/{index}/{action}", h.Kitchen.ItemAction)
	})

	r.Method(http.MethodGet, "/channels/{role}/events", h.Stream)

	return r
}
