package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"payme-bot/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrTaxonomyMismatch marks a subcategory whose parent is not the
	// record's assigned category, or an inactive taxonomy entry.
	ErrTaxonomyMismatch = errors.New("subcategory does not belong to the selected category")
	// ErrMissingSelection marks a trigger whose required payload is absent.
	ErrMissingSelection = errors.New("trigger payload is missing")
	// ErrConfirmNotSaved marks the one failure that must reach the user: the
	// record was classified but the confirmed state could not be persisted.
	ErrConfirmNotSaved = errors.New("failed to save confirmed expense")
)

// ExpenseStore is the persistence boundary the classifier depends on.
type ExpenseStore interface {
	Create(ctx context.Context, e *models.Expense) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Expense, error)
	Update(ctx context.Context, e *models.Expense) error
}

// TaxonomyStore serves active categories and subcategories in display order.
type TaxonomyStore interface {
	ListActiveCategories(ctx context.Context) ([]*models.Category, error)
	ListActiveSubcategories(ctx context.Context, categoryID int64) ([]*models.Subcategory, error)
	GetCategory(ctx context.Context, id int64) (*models.Category, error)
	GetSubcategory(ctx context.Context, id int64) (*models.Subcategory, error)
}

// Archiver uploads a record's source file on confirmation. An empty URL
// means the archive attempt failed; confirmation proceeds regardless.
type Archiver interface {
	Archive(ctx context.Context, localPath, categoryCode, subcategoryCode string, recordID uuid.UUID) string
}

// Prompt tells the caller what to offer the user next.
type Prompt string

const (
	PromptConfirmAmount     Prompt = "confirm_amount"
	PromptChooseCategory    Prompt = "choose_category"
	PromptChooseSubcategory Prompt = "choose_subcategory"
	PromptChoosePayment     Prompt = "choose_payment"
	PromptSaved             Prompt = "saved"
	PromptCancelled         Prompt = "cancelled"
)

// TriggerInput is one user decision plus its payload.
type TriggerInput struct {
	Trigger       models.Trigger
	Amount        *float64
	CategoryID    *int64
	SubcategoryID *int64
	Payment       *models.PaymentType
}

// Outcome is the result of applying a trigger: the updated record and the
// choices to present next.
type Outcome struct {
	Expense       *models.Expense
	Prompt        Prompt
	Categories    []*models.Category
	Subcategories []*models.Subcategory
	ArchiveURL    *string
}

// ClassifyService drives one expense record through the classification
// dialog. Each Apply call reads the persisted record, decides a single
// transition and writes it back; the machine itself holds no state.
type ClassifyService struct {
	expenses ExpenseStore
	taxonomy TaxonomyStore
	archiver Archiver
	logger   *zap.Logger
}

func NewClassifyService(expenses ExpenseStore, taxonomy TaxonomyStore, archiver Archiver, logger *zap.Logger) *ClassifyService {
	return &ClassifyService{
		expenses: expenses,
		taxonomy: taxonomy,
		archiver: archiver,
		logger:   logger,
	}
}

// Apply processes one trigger against one record.
func (s *ClassifyService) Apply(ctx context.Context, expenseID uuid.UUID, in TriggerInput) (*Outcome, error) {
	expense, err := s.expenses.GetByID(ctx, expenseID)
	if err != nil {
		return nil, fmt.Errorf("expense not found: %w", err)
	}

	next, err := transition(expense.State, in.Trigger, expense.RequiresPayment)
	if err != nil {
		return nil, fmt.Errorf("%w: state=%s trigger=%s", err, expense.State, in.Trigger)
	}

	if err := s.applyPayload(ctx, expense, in); err != nil {
		return nil, err
	}

	wasTerminal := expense.State.Terminal()
	confirming := next == models.StateConfirmed && expense.State != models.StateConfirmed

	if confirming {
		// A record can never be confirmed without a full classification.
		if expense.CategoryID == nil || expense.SubcategoryID == nil || expense.PaymentType == nil {
			return nil, fmt.Errorf("%w: classification incomplete", ErrInvalidTransition)
		}
		now := time.Now().UTC()
		expense.ConfirmedAt = &now
	}

	expense.State = next

	if confirming && expense.FilePath != nil {
		s.archiveFile(ctx, expense)
	}

	// Idempotent cancel on a terminal record changes nothing; skip the write.
	if !(wasTerminal && in.Trigger == models.TriggerCancel) {
		if err := s.expenses.Update(ctx, expense); err != nil {
			if confirming {
				// The one failure that must be surfaced: a classified record
				// we could not persist as confirmed.
				return nil, fmt.Errorf("%w: %v", ErrConfirmNotSaved, err)
			}
			return nil, fmt.Errorf("failed to save expense: %w", err)
		}
	}

	return s.buildOutcome(ctx, expense)
}

// applyPayload validates the trigger payload and mutates the record fields
// the trigger owns. Rejections leave the record untouched.
func (s *ClassifyService) applyPayload(ctx context.Context, expense *models.Expense, in TriggerInput) error {
	switch in.Trigger {
	case models.TriggerAmountRejected:
		// Rejecting the extracted amount nulls it rather than re-running
		// extraction; the user classifies without an amount.
		expense.Amount = nil

	case models.TriggerAmountEdited:
		if in.Amount != nil && *in.Amount < 0 {
			return fmt.Errorf("%w: amount must not be negative", ErrMissingSelection)
		}
		expense.Amount = in.Amount

	case models.TriggerCategorySelected:
		if in.CategoryID == nil {
			return fmt.Errorf("%w: category id", ErrMissingSelection)
		}
		category, err := s.taxonomy.GetCategory(ctx, *in.CategoryID)
		if err != nil || !category.IsActive {
			return fmt.Errorf("%w: unknown category %d", ErrTaxonomyMismatch, *in.CategoryID)
		}
		expense.CategoryID = &category.ID
		// Re-selecting a category invalidates any earlier subcategory pick.
		expense.SubcategoryID = nil

	case models.TriggerSubcategorySelected:
		if in.SubcategoryID == nil {
			return fmt.Errorf("%w: subcategory id", ErrMissingSelection)
		}
		if expense.CategoryID == nil {
			return fmt.Errorf("%w: no category assigned", ErrTaxonomyMismatch)
		}
		subcategory, err := s.taxonomy.GetSubcategory(ctx, *in.SubcategoryID)
		if err != nil || !subcategory.IsActive || subcategory.CategoryID != *expense.CategoryID {
			return fmt.Errorf("%w: subcategory %d", ErrTaxonomyMismatch, *in.SubcategoryID)
		}
		expense.SubcategoryID = &subcategory.ID

	case models.TriggerPaymentSelected:
		if in.Payment == nil || (*in.Payment != models.PaymentCash && *in.Payment != models.PaymentBank) {
			return fmt.Errorf("%w: payment type", ErrMissingSelection)
		}
		expense.PaymentType = in.Payment
	}

	return nil
}

// archiveFile uploads the captured file on confirmation. Best-effort: a
// failed archive leaves ArchiveURL null while the record stays confirmed.
func (s *ClassifyService) archiveFile(ctx context.Context, expense *models.Expense) {
	categoryCode := "UNCATEGORIZED"
	subcategoryCode := ""
	if expense.CategoryID != nil {
		if category, err := s.taxonomy.GetCategory(ctx, *expense.CategoryID); err == nil {
			categoryCode = category.Code
		}
	}
	if expense.SubcategoryID != nil {
		if subcategory, err := s.taxonomy.GetSubcategory(ctx, *expense.SubcategoryID); err == nil {
			subcategoryCode = subcategory.Code
		}
	}

	url := s.archiver.Archive(ctx, *expense.FilePath, categoryCode, subcategoryCode, expense.ID)
	if url == "" {
		s.logger.Warn("Archive upload failed, record stays confirmed without URL",
			zap.String("expense_id", expense.ID.String()),
		)
		return
	}
	expense.ArchiveURL = &url
}

// buildOutcome loads the choices matching the record's new state.
func (s *ClassifyService) buildOutcome(ctx context.Context, expense *models.Expense) (*Outcome, error) {
	out := &Outcome{Expense: expense, ArchiveURL: expense.ArchiveURL}

	switch expense.State {
	case models.StatePending:
		out.Prompt = PromptConfirmAmount
	case models.StateAwaitingCategory:
		out.Prompt = PromptChooseCategory
		categories, err := s.taxonomy.ListActiveCategories(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list categories: %w", err)
		}
		out.Categories = categories
	case models.StateAwaitingSubcategory:
		out.Prompt = PromptChooseSubcategory
		subcategories, err := s.taxonomy.ListActiveSubcategories(ctx, *expense.CategoryID)
		if err != nil {
			return nil, fmt.Errorf("failed to list subcategories: %w", err)
		}
		out.Subcategories = subcategories
	case models.StateAwaitingPayment:
		out.Prompt = PromptChoosePayment
	case models.StateConfirmed:
		out.Prompt = PromptSaved
	case models.StateCancelled:
		out.Prompt = PromptCancelled
	}

	return out, nil
}
