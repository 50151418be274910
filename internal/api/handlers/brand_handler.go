package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/brand-agent/backend/internal/storage/models"
	"github.com/brand-agent/backend/internal/storage/sqlite"
	"github.com/brand-agent/backend/pkg/logger"
)

// BrandCache drops cached state for a brand when it is removed.
type BrandCache interface {
	InvalidateBrandCache(ctx context.Context, brandID string) error
}

type BrandHandler struct {
	db    *sqlite.Client
	cache BrandCache
}

func NewBrandHandler(db *sqlite.Client, cache BrandCache) *BrandHandler {
	return &BrandHandler{
		db:    db,
		cache: cache,
	}
}

func (h *BrandHandler) CreateBrand(c *fiber.Ctx) error {
	var req struct {
		Name     string   `json:"name"`
		Keywords []string `json:"keywords"`
		Industry string   `json:"industry"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Brand name is required",
		})
	}

	brand := &models.Brand{
		ID:       uuid.NewString(),
		Name:     req.Name,
		Keywords: req.Keywords,
		Industry: req.Industry,
	}

	if err := h.db.InsertBrand(brand); err != nil {
		logger.Error("Failed to create brand", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create brand",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":       brand.ID,
		"name":     brand.Name,
		"keywords": brand.Keywords,
		"industry": brand.Industry,
	})
}

func (h *BrandHandler) ListBrands(c *fiber.Ctx) error {
	brands, err := h.db.ListBrands()
	if err != nil {
		logger.Error("Failed to list brands", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list brands",
		})
	}

	return c.JSON(fiber.Map{
		"brands": brands,
	})
}

func (h *BrandHandler) GetBrand(c *fiber.Ctx) error {
	brandID := c.Params("id")

	brand, err := h.db.GetBrand(brandID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Brand not found",
		})
	}

	return c.JSON(brand)
}

func (h *BrandHandler) DeleteBrand(c *fiber.Ctx) error {
	brandID := c.Params("id")

	if err := h.db.DeleteBrand(brandID); err != nil {
		logger.Error("Failed to delete brand", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete brand",
		})
	}

	if h.cache != nil {
		if err := h.cache.InvalidateBrandCache(c.Context(), brandID); err != nil {
			logger.Warn("Failed to invalidate brand cache", zap.Error(err))
		}
	}

	return c.JSON(fiber.Map{
		"deleted": brandID,
	})
}
