package handlers

import (
	"errors"

	"payme-bot/internal/dto"
	"payme-bot/internal/models"
	"payme-bot/internal/repository"
	"payme-bot/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var triggers = map[string]models.Trigger{
	"amount_confirmed":     models.TriggerAmountConfirmed,
	"amount_rejected":      models.TriggerAmountRejected,
	"amount_edited":        models.TriggerAmountEdited,
	"category_selected":    models.TriggerCategorySelected,
	"subcategory_selected": models.TriggerSubcategorySelected,
	"payment_selected":     models.TriggerPaymentSelected,
	"back":                 models.TriggerBack,
	"cancel":               models.TriggerCancel,
	"retry":                models.TriggerRetry,
}

// TriggerHandler applies user decisions to an expense record.
type TriggerHandler struct {
	classify *service.ClassifyService
	capture  *service.CaptureService
	users    *service.UserService
	logger   *zap.Logger
}

func NewTriggerHandler(classify *service.ClassifyService, capture *service.CaptureService, users *service.UserService, logger *zap.Logger) *TriggerHandler {
	return &TriggerHandler{
		classify: classify,
		capture:  capture,
		users:    users,
		logger:   logger,
	}
}

// ApplyTrigger advances one record through the classification dialog.
// Retry cancels the record and re-runs extraction on the original text,
// so the response may hold several fresh records.
func (h *TriggerHandler) ApplyTrigger(c *fiber.Ctx) error {
	user, err := resolveUser(c, h.users)
	if err != nil {
		return err
	}

	expenseID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid expense id",
		})
	}

	var req dto.TriggerRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	trigger, ok := triggers[req.Trigger]
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown trigger",
		})
	}

	input := service.TriggerInput{
		Trigger:       trigger,
		Amount:        req.Amount,
		CategoryID:    req.CategoryID,
		SubcategoryID: req.SubcategoryID,
	}
	if req.PaymentType != nil {
		payment := models.PaymentType(*req.PaymentType)
		input.Payment = &payment
	}

	outcome, err := h.classify.Apply(c.Context(), expenseID, input)
	if err != nil {
		return h.triggerError(c, err)
	}

	if trigger == models.TriggerRetry && outcome.Expense.SourceText != nil {
		return h.recapture(c, user.ID, *outcome.Expense.SourceText)
	}

	return c.JSON(dto.CaptureResponse{
		Records: []dto.StepResponse{dto.ToStepResponse(outcome)},
	})
}

func (h *TriggerHandler) recapture(c *fiber.Ctx, userID uuid.UUID, text string) error {
	results, err := h.capture.CaptureText(c.Context(), userID, text)
	if err != nil {
		h.logger.Error("Failed to re-run extraction", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to re-run extraction",
		})
	}
	return c.JSON(toCaptureResponse(results))
}

func (h *TriggerHandler) triggerError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, repository.ErrExpenseNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Expense not found",
		})
	case errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrMissingSelection),
		errors.Is(err, service.ErrTaxonomyMismatch):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": err.Error(),
		})
	case errors.Is(err, service.ErrConfirmNotSaved):
		h.logger.Error("Confirmed expense was not persisted", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Expense was classified but could not be saved, please retry",
		})
	default:
		h.logger.Error("Failed to apply trigger", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to apply trigger",
		})
	}
}
