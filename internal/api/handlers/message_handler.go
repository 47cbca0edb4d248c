package handlers

import (
	"mime/multipart"

	"payme-bot/internal/dto"
	"payme-bot/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MessageHandler accepts chat messages forwarded by the gateway and turns
// them into expense records.
type MessageHandler struct {
	capture *service.CaptureService
	users   *service.UserService
	logger  *zap.Logger
}

func NewMessageHandler(capture *service.CaptureService, users *service.UserService, logger *zap.Logger) *MessageHandler {
	return &MessageHandler{
		capture: capture,
		users:   users,
		logger:  logger,
	}
}

// HandleMessage routes one message by its kind. Text arrives as JSON;
// voice, photo and document arrive as multipart with a "file" field.
func (h *MessageHandler) HandleMessage(c *fiber.Ctx) error {
	user, err := resolveUser(c, h.users)
	if err != nil {
		return err
	}

	kind := c.FormValue("kind")
	if kind == "" {
		var req dto.MessageRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}
		kind = req.Kind
		if kind == "text" {
			return h.handleText(c, user.ID, req.Text)
		}
	}

	switch kind {
	case "text":
		return h.handleText(c, user.ID, c.FormValue("text"))
	case "voice", "photo", "document":
		return h.handleFile(c, user.ID, kind)
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown message kind",
		})
	}
}

func (h *MessageHandler) handleText(c *fiber.Ctx, userID uuid.UUID, text string) error {
	if text == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Text is required",
		})
	}

	results, err := h.capture.CaptureText(c.Context(), userID, text)
	if err != nil {
		h.logger.Error("Failed to capture text message", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to process message",
		})
	}
	return c.Status(fiber.StatusCreated).JSON(toCaptureResponse(results))
}

func (h *MessageHandler) handleFile(c *fiber.Ctx, userID uuid.UUID, kind string) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "File is required",
		})
	}

	path, err := h.saveUpload(fileHeader)
	if err != nil {
		h.logger.Error("Failed to save uploaded file", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to save file",
		})
	}

	var results []*service.CaptureResult
	switch kind {
	case "voice":
		results, err = h.capture.CaptureVoice(c.Context(), userID, path)
	case "photo":
		var result *service.CaptureResult
		result, err = h.capture.CapturePhoto(c.Context(), userID, path, fileHeader.Filename)
		if result != nil {
			results = []*service.CaptureResult{result}
		}
	case "document":
		mimeHint := fileHeader.Header.Get("Content-Type")
		var result *service.CaptureResult
		result, err = h.capture.CaptureDocument(c.Context(), userID, path, fileHeader.Filename, mimeHint)
		if result != nil {
			results = []*service.CaptureResult{result}
		}
	}
	if err != nil {
		h.logger.Error("Failed to capture file message",
			zap.String("kind", kind),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to process message",
		})
	}
	return c.Status(fiber.StatusCreated).JSON(toCaptureResponse(results))
}

func (h *MessageHandler) saveUpload(fileHeader *multipart.FileHeader) (string, error) {
	src, err := fileHeader.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()
	return h.capture.SaveFile(src, fileHeader.Filename)
}

func toCaptureResponse(results []*service.CaptureResult) dto.CaptureResponse {
	records := make([]dto.StepResponse, 0, len(results))
	for _, result := range results {
		records = append(records, dto.StepResponse{
			Expense: dto.ToExpenseResponse(result.Expense),
			Prompt:  string(result.Prompt),
		})
	}
	return dto.CaptureResponse{Records: records}
}
