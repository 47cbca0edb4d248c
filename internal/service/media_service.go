package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"payme-bot/internal/models"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"
)

// PDF text extraction is bounded: receipts and invoices carry their totals
// up front, so only the first pages matter.
const (
	pdfMaxPages = 5
	pdfMaxChars = 3000
)

type fileAnalyzer interface {
	AnalyzeFile(ctx context.Context, filePath, prompt string) (string, error)
}

type singleExtractor interface {
	ExtractOne(ctx context.Context, text string) (*models.Candidate, bool)
}

// MediaService normalizes photos and documents into at most one expense
// candidate. Images go through the vision API; PDFs are reduced to text and
// delegated to the single-candidate extractor. Unreadable or unsupported
// inputs yield "nothing found", never an error.
type MediaService struct {
	vision    fileAnalyzer
	extractor singleExtractor
	pdfText   func(path string) (string, error)
	timeout   time.Duration
	logger    *zap.Logger
}

func NewMediaService(vision fileAnalyzer, extractor singleExtractor, timeout time.Duration, logger *zap.Logger) *MediaService {
	return &MediaService{
		vision:    vision,
		extractor: extractor,
		pdfText:   extractPDFText,
		timeout:   timeout,
		logger:    logger,
	}
}

const imagePrompt = `Проанализируй изображение (чек, счёт, квитанция).
Верни JSON:
- amount: итоговая сумма (Total/Итого)
- currency: валюта (EUR/USD/RUB)
- description: краткое описание услуги/товара (2-4 слова, например "Кофе", "Продукты", "Такси")

Пример: {"amount": 25.50, "currency": "EUR", "description": "Кофе и выпечка"}
Если не найдено: {"amount": null, "currency": null, "description": null}`

// FromImage extracts a single candidate from a photographed receipt.
func (s *MediaService) FromImage(ctx context.Context, filePath string) (*models.Candidate, bool) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	content, err := s.vision.AnalyzeFile(ctx, filePath, imagePrompt)
	if err != nil {
		s.logger.Warn("Image extraction failed", zap.String("file", filePath), zap.Error(err))
		return nil, false
	}

	candidate, ok := parseCandidateObject(content)
	if !ok {
		s.logger.Info("No expense found in image", zap.String("file", filePath))
		return nil, false
	}
	if candidate.Currency == "" {
		candidate.Currency = models.DefaultCurrency
	}

	return candidate, true
}

// FromDocument routes a document by mime type: images to the vision path,
// PDFs to text extraction plus the single-candidate extractor. Anything
// else is "nothing found".
func (s *MediaService) FromDocument(ctx context.Context, filePath, mimeHint string) (*models.Candidate, bool) {
	switch {
	case strings.HasPrefix(mimeHint, "image/"):
		return s.FromImage(ctx, filePath)
	case mimeHint == "application/pdf" || strings.HasSuffix(strings.ToLower(filePath), ".pdf"):
		return s.fromPDF(ctx, filePath)
	default:
		s.logger.Info("Unsupported document type", zap.String("file", filePath), zap.String("mime", mimeHint))
		return nil, false
	}
}

func (s *MediaService) fromPDF(ctx context.Context, filePath string) (*models.Candidate, bool) {
	text, err := s.pdfText(filePath)
	if err != nil {
		s.logger.Warn("PDF text extraction failed", zap.String("file", filePath), zap.Error(err))
		return nil, false
	}
	if strings.TrimSpace(text) == "" {
		s.logger.Info("No text in PDF", zap.String("file", filePath))
		return nil, false
	}
	if len(text) > pdfMaxChars {
		text = text[:pdfMaxChars]
	}

	return s.extractor.ExtractOne(ctx, text)
}

// extractPDFText pulls text from the first pages of a PDF using go-fitz.
func extractPDFText(pdfPath string) (string, error) {
	doc, err := fitz.New(pdfPath)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	pages := doc.NumPage()
	if pages > pdfMaxPages {
		pages = pdfMaxPages
	}

	var builder strings.Builder
	for i := 0; i < pages; i++ {
		pageText, err := doc.Text(i)
		if err != nil {
			continue
		}
		if pageText != "" {
			builder.WriteString(pageText)
			builder.WriteString("\n")
		}
	}

	return strings.TrimSpace(builder.String()), nil
}

// ImageMimeFromExt maps a file extension to the mime hint used for document
// routing. Unknown extensions return an empty string.
func ImageMimeFromExt(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".pdf":
		return "application/pdf"
	default:
		return ""
	}
}
