package amqp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/YelzhanWeb/tableorder/internal/adapter/logger"
	"github.com/YelzhanWeb/tableorder/internal/interfaces"
)

// ChangeHandler turns change notices from the feed into detection passes.
type ChangeHandler struct {
	detector interfaces.ChangeNotifier
	logger   logger.Logger
}

func NewChangeHandler(detector interfaces.ChangeNotifier, logger logger.Logger) *ChangeHandler {
	return &ChangeHandler{
		detector: detector,
		logger:   logger,
	}
}

func (h *ChangeHandler) HandleChange(ctx context.Context, body []byte) error {
	var notice interfaces.ChangeNotice
	if err := json.Unmarshal(body, &notice); err != nil {
		h.logger.Error("message_parse_failed", "Failed to parse change notice", "", nil, err)
		return err
	}

	if err := h.detector.NotifyChange(ctx, notice.OrderID); err != nil {
		return fmt.Errorf("failed to run detection for %s: %w", notice.OrderID, err)
	}
	return nil
}
