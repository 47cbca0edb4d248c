package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"payme-bot/internal/models"

	"go.uber.org/zap"
)

// textGenerator is the narrow slice of the LLM client the extractor needs;
// tests substitute a canned implementation.
type textGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ExtractService turns free-form text into expense candidates. It is a pure
// function over the text-generation service: no state, a single best-effort
// call per request, and any service failure degrades to "no candidates".
type ExtractService struct {
	llm     textGenerator
	timeout time.Duration
	logger  *zap.Logger
}

func NewExtractService(llm textGenerator, timeout time.Duration, logger *zap.Logger) *ExtractService {
	return &ExtractService{
		llm:     llm,
		timeout: timeout,
		logger:  logger,
	}
}

const extractManyPrompt = `Извлеки ВСЕ расходы из текста. Верни JSON массив.

Каждый расход:
- amount: число (сумма)
- currency: валюта (EUR, USD, RUB, по умолчанию EUR)
- description: краткое описание (1-3 слова)
- payment_method: способ оплаты (cash/card/transfer, null если не указано)

Примеры:
"бензин 50 евро и обед 30" -> [{"amount": 50, "currency": "EUR", "description": "Бензин", "payment_method": null}, {"amount": 30, "currency": "EUR", "description": "Обед", "payment_method": null}]
"окно 200 евро 100 евро работа оплачено кэшем" -> [{"amount": 200, "currency": "EUR", "description": "Окно", "payment_method": "cash"}, {"amount": 100, "currency": "EUR", "description": "Работа", "payment_method": "cash"}]
"заплатил картой за такси 15€" -> [{"amount": 15, "currency": "EUR", "description": "Такси", "payment_method": "card"}]

ВАЖНО: Если несколько сумм - верни несколько объектов!
Если нет расходов: []

Текст: `

const extractOnePrompt = `Извлеки информацию о расходе из текста. Верни JSON:
- amount: число (сумма без валюты)
- currency: валюта (EUR, USD, RUB, по умолчанию EUR)
- description: краткое описание услуги/товара (2-4 слова)

Примеры:
"счёт за телефон 24 евро" -> {"amount": 24, "currency": "EUR", "description": "Телефон"}
"бензин 50€" -> {"amount": 50, "currency": "EUR", "description": "Бензин"}
"чай 15" -> {"amount": 15, "currency": "EUR", "description": "Чай"}

Если нет данных: {"amount": null, "currency": null, "description": null}

Текст: `

// candidatePayload mirrors the JSON shape the extraction prompts request.
type candidatePayload struct {
	Amount        *float64 `json:"amount"`
	Currency      *string  `json:"currency"`
	Description   *string  `json:"description"`
	PaymentMethod *string  `json:"payment_method"`
}

// ExtractMany extracts every distinct expense mention from the text, one
// candidate per mention. An unavailable or misbehaving service yields an
// empty slice; callers treat that as a normal outcome.
func (s *ExtractService) ExtractMany(ctx context.Context, text string) []models.Candidate {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	content, err := s.llm.Generate(ctx, extractManyPrompt+text)
	if err != nil {
		s.logger.Warn("Multi-expense extraction failed", zap.Error(err))
		return nil
	}

	raw, ok := firstJSONArray(content)
	if !ok {
		s.logger.Warn("No JSON array in extraction response", zap.Int("content_length", len(content)))
		return nil
	}

	var payloads []candidatePayload
	if err := json.Unmarshal([]byte(raw), &payloads); err != nil {
		s.logger.Warn("Malformed extraction response", zap.Error(err))
		return nil
	}

	var candidates []models.Candidate
	for _, p := range payloads {
		// Amount-less items are dropped here; the single-candidate fallback
		// handles the description-only case.
		if p.Amount == nil || *p.Amount < 0 {
			continue
		}
		candidates = append(candidates, p.toCandidate())
	}

	s.logger.Info("Expenses extracted", zap.Int("count", len(candidates)))
	return candidates
}

// ExtractOne extracts a single candidate, used as a fallback when the
// multi-candidate path finds nothing. The returned candidate may carry a
// description without an amount; the second return value is false only when
// nothing at all was found.
func (s *ExtractService) ExtractOne(ctx context.Context, text string) (*models.Candidate, bool) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	content, err := s.llm.Generate(ctx, extractOnePrompt+text)
	if err != nil {
		s.logger.Warn("Single-expense extraction failed", zap.Error(err))
		return nil, false
	}

	return parseCandidateObject(content)
}

// parseCandidateObject pulls the first well-formed JSON object out of model
// output that may be wrapped in prose or markdown fences.
func parseCandidateObject(content string) (*models.Candidate, bool) {
	raw, ok := firstJSONObject(content)
	if !ok {
		return nil, false
	}

	var p candidatePayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, false
	}
	if p.Amount != nil && *p.Amount < 0 {
		p.Amount = nil
	}
	if p.Amount == nil && p.Description == nil {
		return nil, false
	}

	c := p.toCandidate()
	return &c, true
}

func (p candidatePayload) toCandidate() models.Candidate {
	c := models.Candidate{
		Amount:      p.Amount,
		Currency:    models.DefaultCurrency,
		Description: p.Description,
	}
	if p.Currency != nil && *p.Currency != "" {
		c.Currency = strings.ToUpper(*p.Currency)
	}
	if p.PaymentMethod != nil {
		switch models.PaymentHint(strings.ToLower(*p.PaymentMethod)) {
		case models.HintCash:
			h := models.HintCash
			c.PaymentHint = &h
		case models.HintCard:
			h := models.HintCard
			c.PaymentHint = &h
		case models.HintTransfer:
			h := models.HintTransfer
			c.PaymentHint = &h
		}
	}
	return c
}

// firstJSONArray returns the substring between the first "[" and the last
// "]", with markdown fences stripped first if present.
func firstJSONArray(content string) (string, bool) {
	content = stripFences(content)
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start == -1 || end == -1 || end < start {
		return "", false
	}
	return content[start : end+1], true
}

// firstJSONObject returns the substring between the first "{" and its
// matching closing "}".
func firstJSONObject(content string) (string, bool) {
	content = stripFences(content)
	start := strings.Index(content, "{")
	if start == -1 {
		return "", false
	}
	depth := 0
	for i := start; i < len(content); i++ {
		switch content[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return content[start : i+1], true
			}
		}
	}
	return "", false
}

// stripFences removes ```json ... ``` wrappers the model sometimes adds
// despite instructions.
func stripFences(content string) string {
	s := strings.TrimSpace(content)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if idx := strings.Index(s, "\n"); idx != -1 {
		s = s[idx+1:]
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}
