package handlers

import (
	"sync"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/brand-agent/backend/internal/storage/models"
	"github.com/brand-agent/backend/pkg/logger"
)

// AlertHub fans out alert events to connected websocket clients. A
// client subscribed with a brand filter only receives that brand's
// alerts; an unfiltered client receives everything.
type AlertHub struct {
	mu          sync.Mutex
	subscribers map[*websocket.Conn]*subscription
}

type subscription struct {
	brandID string
	events  chan models.Alert
}

func NewAlertHub() *AlertHub {
	return &AlertHub{
		subscribers: make(map[*websocket.Conn]*subscription),
	}
}

// Broadcast delivers an alert to every matching subscriber. Slow
// clients are skipped rather than blocking the caller.
func (h *AlertHub) Broadcast(alert models.Alert) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, sub := range h.subscribers {
		if sub.brandID != "" && sub.brandID != alert.BrandID {
			continue
		}
		select {
		case sub.events <- alert:
		default:
			logger.Warn("Dropping alert for slow websocket client",
				zap.String("alert_id", alert.ID))
		}
	}
}

func (h *AlertHub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

func (h *AlertHub) subscribe(c *websocket.Conn, brandID string) *subscription {
	sub := &subscription{
		brandID: brandID,
		events:  make(chan models.Alert, 64),
	}

	h.mu.Lock()
	h.subscribers[c] = sub
	h.mu.Unlock()
	return sub
}

func (h *AlertHub) unsubscribe(c *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sub, ok := h.subscribers[c]; ok {
		close(sub.events)
		delete(h.subscribers, c)
	}
}

func (h *AlertHub) HandleConnection(c *websocket.Conn) {
	brandID := c.Query("brand_id")
	logger.Info("WebSocket alert stream opened", zap.String("brand_id", brandID))

	sub := h.subscribe(c, brandID)
	done := make(chan struct{})

	// Reader goroutine only exists to notice the client going away.
	go func() {
		defer close(done)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	defer func() {
		h.unsubscribe(c)
		c.Close()
		logger.Info("WebSocket alert stream closed", zap.String("brand_id", brandID))
	}()

	for {
		select {
		case <-done:
			return
		case alert, ok := <-sub.events:
			if !ok {
				return
			}
			msg := map[string]interface{}{
				"type":  "alert",
				"alert": alert,
			}
			if err := c.WriteJSON(msg); err != nil {
				logger.Error("Failed to write alert to websocket", zap.Error(err))
				return
			}
		}
	}
}
