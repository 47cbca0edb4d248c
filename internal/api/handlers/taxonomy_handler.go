package handlers

import (
	"strconv"

	"payme-bot/internal/dto"
	"payme-bot/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// TaxonomyHandler serves the active category tree for keyboard rendering.
type TaxonomyHandler struct {
	taxonomy service.TaxonomyStore
	users    *service.UserService
	logger   *zap.Logger
}

func NewTaxonomyHandler(taxonomy service.TaxonomyStore, users *service.UserService, logger *zap.Logger) *TaxonomyHandler {
	return &TaxonomyHandler{
		taxonomy: taxonomy,
		users:    users,
		logger:   logger,
	}
}

func (h *TaxonomyHandler) ListCategories(c *fiber.Ctx) error {
	if _, err := resolveUser(c, h.users); err != nil {
		return err
	}

	categories, err := h.taxonomy.ListActiveCategories(c.Context())
	if err != nil {
		h.logger.Error("Failed to list categories", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list categories",
		})
	}
	return c.JSON(fiber.Map{"categories": dto.ToCategoryResponses(categories)})
}

func (h *TaxonomyHandler) ListSubcategories(c *fiber.Ctx) error {
	if _, err := resolveUser(c, h.users); err != nil {
		return err
	}

	categoryID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid category id",
		})
	}

	subcategories, err := h.taxonomy.ListActiveSubcategories(c.Context(), categoryID)
	if err != nil {
		h.logger.Error("Failed to list subcategories", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list subcategories",
		})
	}
	return c.JSON(fiber.Map{"subcategories": dto.ToSubcategoryResponses(subcategories)})
}
