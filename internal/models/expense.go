package models

import (
	"time"

	"github.com/google/uuid"
)

type InputKind string

const (
	InputText     InputKind = "text"
	InputVoice    InputKind = "voice"
	InputPhoto    InputKind = "photo"
	InputDocument InputKind = "document"
)

// RequiresPaymentStep reports whether records of this kind go through the
// payment selection step. Photos and documents are assumed pre-paid by bank,
// so payment is assigned at creation and the step is skipped.
func (k InputKind) RequiresPaymentStep() bool {
	return k == InputText || k == InputVoice
}

type PaymentType string

const (
	PaymentCash PaymentType = "CASH"
	PaymentBank PaymentType = "BANK"
)

// ExpenseState is the position of a record in the classification dialog.
// Pending, the three awaiting states and the two terminal states together
// drive the whole flow; Status() collapses them to the persisted lifecycle
// view (pending/confirmed/cancelled).
type ExpenseState string

const (
	StatePending             ExpenseState = "pending"
	StateAwaitingCategory    ExpenseState = "awaiting_category"
	StateAwaitingSubcategory ExpenseState = "awaiting_subcategory"
	StateAwaitingPayment     ExpenseState = "awaiting_payment"
	StateConfirmed           ExpenseState = "confirmed"
	StateCancelled           ExpenseState = "cancelled"
)

func (s ExpenseState) Terminal() bool {
	return s == StateConfirmed || s == StateCancelled
}

type ExpenseStatus string

const (
	StatusPending   ExpenseStatus = "pending"
	StatusConfirmed ExpenseStatus = "confirmed"
	StatusCancelled ExpenseStatus = "cancelled"
)

// Trigger is a discrete user decision event advancing the dialog.
type Trigger string

const (
	TriggerAmountConfirmed     Trigger = "amount_confirmed"
	TriggerAmountRejected      Trigger = "amount_rejected"
	TriggerAmountEdited        Trigger = "amount_edited"
	TriggerCategorySelected    Trigger = "category_selected"
	TriggerSubcategorySelected Trigger = "subcategory_selected"
	TriggerPaymentSelected     Trigger = "payment_selected"
	TriggerBack                Trigger = "back"
	TriggerCancel              Trigger = "cancel"
	TriggerRetry               Trigger = "retry"
)

type Expense struct {
	ID              uuid.UUID    `db:"id"`
	UserID          uuid.UUID    `db:"user_id"`
	InputKind       InputKind    `db:"input_kind"`
	SourceText      *string      `db:"source_text"`
	FilePath        *string      `db:"file_path"`
	FileName        *string      `db:"file_name"`
	Amount          *float64     `db:"amount"`
	Currency        string       `db:"currency"`
	Description     *string      `db:"description"`
	CategoryID      *int64       `db:"category_id"`
	SubcategoryID   *int64       `db:"subcategory_id"`
	PaymentType     *PaymentType `db:"payment_type"`
	ArchiveURL      *string      `db:"archive_url"`
	State           ExpenseState `db:"state"`
	RequiresPayment bool         `db:"requires_payment"`
	CreatedAt       time.Time    `db:"created_at"`
	UpdatedAt       time.Time    `db:"updated_at"`
	ConfirmedAt     *time.Time   `db:"confirmed_at"`
}

func (e *Expense) Status() ExpenseStatus {
	switch e.State {
	case StateConfirmed:
		return StatusConfirmed
	case StateCancelled:
		return StatusCancelled
	default:
		return StatusPending
	}
}
