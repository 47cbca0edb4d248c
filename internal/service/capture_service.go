package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"payme-bot/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type candidateExtractor interface {
	ExtractMany(ctx context.Context, text string) []models.Candidate
	ExtractOne(ctx context.Context, text string) (*models.Candidate, bool)
}

type mediaExtractor interface {
	FromImage(ctx context.Context, filePath string) (*models.Candidate, bool)
	FromDocument(ctx context.Context, filePath, mimeHint string) (*models.Candidate, bool)
}

type transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// CaptureResult is one freshly created record plus the prompt the caller
// should present for it.
type CaptureResult struct {
	Expense *models.Expense
	Prompt  Prompt
}

// CaptureService turns raw inputs into persisted expense records. Text runs
// through an ordered chain of extraction strategies; the first one that
// yields candidates wins, and the final fallback always produces a single
// empty record so no input is ever silently dropped.
type CaptureService struct {
	extractor candidateExtractor
	media     mediaExtractor
	speech    transcriber
	expenses  ExpenseStore
	uploadDir string
	logger    *zap.Logger
}

func NewCaptureService(extractor candidateExtractor, media mediaExtractor, speech transcriber, expenses ExpenseStore, uploadDir string, logger *zap.Logger) *CaptureService {
	return &CaptureService{
		extractor: extractor,
		media:     media,
		speech:    speech,
		expenses:  expenses,
		uploadDir: uploadDir,
		logger:    logger,
	}
}

// extractCandidates runs the strategy chain over free text.
func (s *CaptureService) extractCandidates(ctx context.Context, text string) []models.Candidate {
	strategies := []func(context.Context, string) []models.Candidate{
		s.extractor.ExtractMany,
		func(ctx context.Context, text string) []models.Candidate {
			if candidate, ok := s.extractor.ExtractOne(ctx, text); ok {
				return []models.Candidate{*candidate}
			}
			return nil
		},
		func(context.Context, string) []models.Candidate {
			return []models.Candidate{{Currency: models.DefaultCurrency}}
		},
	}

	for _, strategy := range strategies {
		if candidates := strategy(ctx, text); len(candidates) > 0 {
			return candidates
		}
	}
	return nil
}

// CaptureText creates one record per extracted candidate. A message like
// "coffee 4.50, taxi 12" yields two independent records.
func (s *CaptureService) CaptureText(ctx context.Context, userID uuid.UUID, text string) ([]*CaptureResult, error) {
	candidates := s.extractCandidates(ctx, text)

	results := make([]*CaptureResult, 0, len(candidates))
	for _, candidate := range candidates {
		expense := s.newExpense(userID, models.InputText, candidate)
		expense.SourceText = &text
		if err := s.expenses.Create(ctx, expense); err != nil {
			return nil, fmt.Errorf("failed to create expense: %w", err)
		}
		results = append(results, &CaptureResult{Expense: expense, Prompt: initialPrompt(expense)})
	}

	s.logger.Info("Captured text input",
		zap.String("user_id", userID.String()),
		zap.Int("records", len(results)),
	)
	return results, nil
}

// CaptureVoice transcribes the audio and feeds the transcript through the
// text chain. Transcription failure is the one capture error reported to
// the user instead of producing an empty record.
func (s *CaptureService) CaptureVoice(ctx context.Context, userID uuid.UUID, audioPath string) ([]*CaptureResult, error) {
	transcript, err := s.speech.Transcribe(ctx, audioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to transcribe voice message: %w", err)
	}

	candidates := s.extractCandidates(ctx, transcript)

	results := make([]*CaptureResult, 0, len(candidates))
	for _, candidate := range candidates {
		expense := s.newExpense(userID, models.InputVoice, candidate)
		expense.SourceText = &transcript
		expense.FilePath = &audioPath
		if err := s.expenses.Create(ctx, expense); err != nil {
			return nil, fmt.Errorf("failed to create expense: %w", err)
		}
		results = append(results, &CaptureResult{Expense: expense, Prompt: initialPrompt(expense)})
	}
	return results, nil
}

// CapturePhoto runs vision extraction over a receipt photo. Receipts imply a
// bank payment, so the payment type is pre-assigned and the payment step is
// skipped later.
func (s *CaptureService) CapturePhoto(ctx context.Context, userID uuid.UUID, filePath, fileName string) (*CaptureResult, error) {
	candidate, ok := s.media.FromImage(ctx, filePath)
	if !ok {
		candidate = &models.Candidate{Currency: models.DefaultCurrency}
	}
	return s.createFileExpense(ctx, userID, models.InputPhoto, *candidate, filePath, fileName)
}

// CaptureDocument handles PDFs and image attachments the same way as photos.
func (s *CaptureService) CaptureDocument(ctx context.Context, userID uuid.UUID, filePath, fileName, mimeHint string) (*CaptureResult, error) {
	candidate, ok := s.media.FromDocument(ctx, filePath, mimeHint)
	if !ok {
		candidate = &models.Candidate{Currency: models.DefaultCurrency}
	}
	return s.createFileExpense(ctx, userID, models.InputDocument, *candidate, filePath, fileName)
}

func (s *CaptureService) createFileExpense(ctx context.Context, userID uuid.UUID, kind models.InputKind, candidate models.Candidate, filePath, fileName string) (*CaptureResult, error) {
	expense := s.newExpense(userID, kind, candidate)
	expense.FilePath = &filePath
	expense.FileName = &fileName

	bank := models.PaymentBank
	expense.PaymentType = &bank

	if err := s.expenses.Create(ctx, expense); err != nil {
		return nil, fmt.Errorf("failed to create expense: %w", err)
	}
	return &CaptureResult{Expense: expense, Prompt: initialPrompt(expense)}, nil
}

func (s *CaptureService) newExpense(userID uuid.UUID, kind models.InputKind, candidate models.Candidate) *models.Expense {
	state := models.StatePending
	if candidate.Amount == nil {
		// Nothing to confirm; go straight to classification.
		state = models.StateAwaitingCategory
	}

	currency := candidate.Currency
	if currency == "" {
		currency = models.DefaultCurrency
	}

	now := time.Now().UTC()
	return &models.Expense{
		ID:              uuid.New(),
		UserID:          userID,
		InputKind:       kind,
		Amount:          candidate.Amount,
		Currency:        currency,
		Description:     candidate.Description,
		State:           state,
		RequiresPayment: kind.RequiresPaymentStep(),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func initialPrompt(expense *models.Expense) Prompt {
	if expense.State == models.StatePending {
		return PromptConfirmAmount
	}
	return PromptChooseCategory
}

// SaveFile stores an uploaded file under the configured upload directory
// with a collision-free name and returns the saved path.
func (s *CaptureService) SaveFile(reader io.Reader, fileName string) (string, error) {
	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	path := filepath.Join(s.uploadDir, uuid.New().String()+filepath.Ext(fileName))
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, reader); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return path, nil
}
