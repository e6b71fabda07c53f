package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/YelzhanWeb/tableorder/internal/adapter/logger"
	"github.com/YelzhanWeb/tableorder/internal/domain"
	"github.com/YelzhanWeb/tableorder/internal/interfaces"
)

// StreamHandler relays one audience channel to the client as Server-Sent
// Events. Each connection is its own subscriber.
type StreamHandler struct {
	subscriber interfaces.ChannelSubscriber
	logger     logger.Logger
	keepalive  time.Duration
}

func NewStreamHandler(subscriber interfaces.ChannelSubscriber, logger logger.Logger) *StreamHandler {
	return &StreamHandler{
		subscriber: subscriber,
		logger:     logger,
		keepalive:  30 * time.Second,
	}
}

func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	audience, err := domain.ParseAudience(chi.URLParam(r, "role"), r.URL.Query().Get("table_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	channel := domain.ChannelFor(audience)
	subscriberID := uuid.NewString()
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	events := make(chan []byte, 64)
	subscribed := make(chan error, 1)
	go func() {
		subscribed <- h.subscriber.Subscribe(ctx, channel, func(ctx context.Context, body []byte) error {
			select {
			case events <- body:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, ": connected %s\n\n", channel)
	fmt.Fprintf(w, "retry: 2000\n\n")
	flusher.Flush()

	h.logger.Info("sse_connected", "SSE subscriber connected", logger.RequestID(r.Context()), map[string]interface{}{
		"subscriber_id": subscriberID,
		"channel":       channel,
	})

	ticker := time.NewTicker(h.keepalive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("sse_disconnected", "SSE subscriber disconnected", logger.RequestID(r.Context()), map[string]interface{}{
				"subscriber_id": subscriberID,
			})
			return

		case err := <-subscribed:
			if err != nil {
				h.logger.Error("sse_subscribe_failed", "Channel subscription ended", logger.RequestID(r.Context()), map[string]interface{}{
					"subscriber_id": subscriberID,
					"channel":       channel,
				}, err)
			}
			return

		case <-ticker.C:
			fmt.Fprintf(w, ": keepalive\n\n")
			flusher.Flush()

		case body := <-events:
			// JSON bodies carry no raw newlines, so one data line is enough.
			fmt.Fprintf(w, "event: order\n")
			fmt.Fprintf(w, "data: %s\n\n", body)
			flusher.Flush()
		}
	}
}
