package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/brand-agent/backend/internal/alerts"
	"github.com/brand-agent/backend/internal/storage/sqlite"
	"github.com/brand-agent/backend/pkg/logger"
)

type AlertsHandler struct {
	engine *alerts.Engine
	db     *sqlite.Client
}

func NewAlertsHandler(engine *alerts.Engine, db *sqlite.Client) *AlertsHandler {
	return &AlertsHandler{
		engine: engine,
		db:     db,
	}
}

func (h *AlertsHandler) GetActiveAlerts(c *fiber.Ctx) error {
	brandID := c.Query("brand_id")
	if brandID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "brand_id is required",
		})
	}

	return c.JSON(fiber.Map{
		"brand_id": brandID,
		"alerts":   h.engine.Active(brandID),
	})
}

func (h *AlertsHandler) GetAlertHistory(c *fiber.Ctx) error {
	brandID := c.Query("brand_id")
	if brandID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "brand_id is required",
		})
	}

	return c.JSON(fiber.Map{
		"brand_id": brandID,
		"history":  h.engine.History(brandID),
	})
}

func (h *AlertsHandler) AcknowledgeAlert(c *fiber.Ctx) error {
	alertID := c.Params("id")

	var req struct {
		AcknowledgedBy string `json:"acknowledged_by"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.AcknowledgedBy == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "acknowledged_by is required",
		})
	}

	if err := h.engine.Acknowledge(alertID, req.AcknowledgedBy); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Alert not found",
		})
	}

	if err := h.db.AcknowledgeAlert(alertID, req.AcknowledgedBy); err != nil {
		logger.Warn("Failed to persist acknowledgement", zap.Error(err))
	}

	return c.JSON(fiber.Map{
		"alert_id":        alertID,
		"acknowledged_by": req.AcknowledgedBy,
	})
}

func (h *AlertsHandler) ResolveAlert(c *fiber.Ctx) error {
	alertID := c.Params("id")

	var req struct {
		ResolvedBy string `json:"resolved_by"`
		Resolution string `json:"resolution"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.ResolvedBy == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "resolved_by is required",
		})
	}

	if err := h.engine.Resolve(alertID, req.ResolvedBy, req.Resolution); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Alert not found",
		})
	}

	if err := h.db.ResolveAlert(alertID, req.ResolvedBy, req.Resolution); err != nil {
		logger.Warn("Failed to persist resolution", zap.Error(err))
	}

	return c.JSON(fiber.Map{
		"alert_id":    alertID,
		"resolved_by": req.ResolvedBy,
	})
}

func (h *AlertsHandler) GetStatistics(c *fiber.Ctx) error {
	return c.JSON(h.engine.Statistics())
}
