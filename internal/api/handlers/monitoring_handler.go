package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/brand-agent/backend/internal/monitor"
	"github.com/brand-agent/backend/internal/storage/models"
	"github.com/brand-agent/backend/internal/storage/sqlite"
	"github.com/brand-agent/backend/pkg/logger"
)

// ReportCache serves the latest cached report for a brand and the
// aggregate cycle counters.
type ReportCache interface {
	GetReport(ctx context.Context, brandID string) (*models.WorkflowReport, bool, error)
	GetCounter(ctx context.Context, name string) (int64, error)
}

type MonitoringHandler struct {
	service *monitor.Service
	db      *sqlite.Client
	cache   ReportCache
}

func NewMonitoringHandler(service *monitor.Service, db *sqlite.Client, cache ReportCache) *MonitoringHandler {
	return &MonitoringHandler{
		service: service,
		db:      db,
		cache:   cache,
	}
}

func (h *MonitoringHandler) StartMonitoring(c *fiber.Ctx) error {
	var req struct {
		BrandID   string   `json:"brand_id"`
		Platforms []string `json:"platforms"`
		Keywords  []string `json:"keywords"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.BrandID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "brand_id is required",
		})
	}
	if len(req.Platforms) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "At least one platform is required",
		})
	}

	brand, err := h.db.GetBrand(req.BrandID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Brand not found",
		})
	}

	keywords := req.Keywords
	if len(keywords) == 0 {
		keywords = append([]string{brand.Name}, brand.Keywords...)
	}

	if err := h.service.Start(*brand, req.Platforms, keywords); err != nil {
		if errors.Is(err, monitor.ErrAlreadyMonitoring) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "Brand is already being monitored",
			})
		}
		logger.Error("Failed to start monitoring", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to start monitoring",
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"brand_id":  brand.ID,
		"platforms": req.Platforms,
		"status":    "monitoring",
	})
}

// brandIDFrom resolves the target brand from the path parameter or,
// for the body-addressed routes, from the JSON payload.
func brandIDFrom(c *fiber.Ctx) string {
	if id := c.Params("id"); id != "" {
		return id
	}
	var req struct {
		BrandID string `json:"brand_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return ""
	}
	return req.BrandID
}

func (h *MonitoringHandler) StopMonitoring(c *fiber.Ctx) error {
	brandID := brandIDFrom(c)
	if brandID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "brand_id is required",
		})
	}

	if err := h.service.Stop(brandID); err != nil {
		if errors.Is(err, monitor.ErrNotMonitored) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Brand is not being monitored",
			})
		}
		logger.Error("Failed to stop monitoring", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to stop monitoring",
		})
	}

	return c.JSON(fiber.Map{
		"brand_id": brandID,
		"status":   "stopped",
	})
}

func (h *MonitoringHandler) GetStatus(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"brands": h.service.Status(),
	})
}

func (h *MonitoringHandler) GetHealth(c *fiber.Ctx) error {
	statuses := h.service.Status()

	healthy := 0
	for _, status := range statuses {
		if status.Running && status.LastError == "" {
			healthy++
		}
	}

	payload := fiber.Map{
		"monitored_brands": len(statuses),
		"healthy_brands":   healthy,
		"status":           "ok",
	}
	if h.cache != nil {
		if total, err := h.cache.GetCounter(c.Context(), "workflow_runs"); err == nil {
			payload["workflow_runs"] = total
		}
	}

	return c.JSON(payload)
}

func (h *MonitoringHandler) GetBrandStatus(c *fiber.Ctx) error {
	brandID := c.Params("id")

	status, ok := h.service.StatusFor(brandID)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Brand is not being monitored",
		})
	}

	return c.JSON(status)
}

func (h *MonitoringHandler) TriggerCycle(c *fiber.Ctx) error {
	brandID := brandIDFrom(c)
	if brandID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "brand_id is required",
		})
	}

	report, err := h.service.Trigger(c.Context(), brandID)
	if err != nil {
		if errors.Is(err, monitor.ErrNotMonitored) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Brand is not being monitored",
			})
		}
		logger.Error("Failed to trigger monitoring cycle", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to trigger monitoring cycle",
		})
	}

	return c.JSON(report)
}

func (h *MonitoringHandler) GetReports(c *fiber.Ctx) error {
	brandID := c.Params("id")
	limit := c.QueryInt("limit", 10)

	payload := fiber.Map{"brand_id": brandID}
	if h.cache != nil {
		if latest, ok, err := h.cache.GetReport(c.Context(), brandID); err == nil && ok {
			payload["latest"] = latest
		}
	}

	reports, err := h.db.GetWorkflowRuns(brandID, limit)
	if err != nil {
		logger.Error("Failed to get workflow runs", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get reports",
		})
	}
	payload["reports"] = reports

	return c.JSON(payload)
}
