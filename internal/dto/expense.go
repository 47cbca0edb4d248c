package dto

import (
	"time"

	"payme-bot/internal/models"
	"payme-bot/internal/service"
)

// MessageRequest is one incoming chat message forwarded by the gateway.
// Exactly one input kind is expected per request; file-bearing kinds are
// sent as multipart with this struct in the "payload" field instead.
type MessageRequest struct {
	Kind string `json:"kind"`
	Text string `json:"text,omitempty"`
}

type TriggerRequest struct {
	Trigger       string   `json:"trigger"`
	Amount        *float64 `json:"amount,omitempty"`
	CategoryID    *int64   `json:"category_id,omitempty"`
	SubcategoryID *int64   `json:"subcategory_id,omitempty"`
	PaymentType   *string  `json:"payment_type,omitempty"`
}

type ExpenseResponse struct {
	ID            string     `json:"id"`
	InputKind     string     `json:"input_kind"`
	Amount        *float64   `json:"amount"`
	Currency      string     `json:"currency"`
	Description   *string    `json:"description"`
	CategoryID    *int64     `json:"category_id"`
	SubcategoryID *int64     `json:"subcategory_id"`
	PaymentType   *string    `json:"payment_type"`
	ArchiveURL    *string    `json:"archive_url"`
	State         string     `json:"state"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	ConfirmedAt   *time.Time `json:"confirmed_at"`
}

type CategoryResponse struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

type SubcategoryResponse struct {
	ID         int64  `json:"id"`
	CategoryID int64  `json:"category_id"`
	Code       string `json:"code"`
	Name       string `json:"name"`
}

// StepResponse is one record plus what to ask the user next.
type StepResponse struct {
	Expense       ExpenseResponse       `json:"expense"`
	Prompt        string                `json:"prompt"`
	Categories    []CategoryResponse    `json:"categories,omitempty"`
	Subcategories []SubcategoryResponse `json:"subcategories,omitempty"`
}

type CaptureResponse struct {
	Records []StepResponse `json:"records"`
}

type UserResponse struct {
	ID        string  `json:"id"`
	ChatID    int64   `json:"chat_id"`
	Username  *string `json:"username"`
	FirstName *string `json:"first_name"`
	IsActive  bool    `json:"is_active"`
}

type SetActiveRequest struct {
	Active bool `json:"active"`
}

func ToExpenseResponse(e *models.Expense) ExpenseResponse {
	var payment *string
	if e.PaymentType != nil {
		value := string(*e.PaymentType)
		payment = &value
	}
	return ExpenseResponse{
		ID:            e.ID.String(),
		InputKind:     string(e.InputKind),
		Amount:        e.Amount,
		Currency:      e.Currency,
		Description:   e.Description,
		CategoryID:    e.CategoryID,
		SubcategoryID: e.SubcategoryID,
		PaymentType:   payment,
		ArchiveURL:    e.ArchiveURL,
		State:         string(e.State),
		Status:        string(e.Status()),
		CreatedAt:     e.CreatedAt,
		ConfirmedAt:   e.ConfirmedAt,
	}
}

func ToCategoryResponses(categories []*models.Category) []CategoryResponse {
	out := make([]CategoryResponse, 0, len(categories))
	for _, c := range categories {
		out = append(out, CategoryResponse{ID: c.ID, Code: c.Code, Name: c.Name})
	}
	return out
}

func ToSubcategoryResponses(subcategories []*models.Subcategory) []SubcategoryResponse {
	out := make([]SubcategoryResponse, 0, len(subcategories))
	for _, s := range subcategories {
		out = append(out, SubcategoryResponse{ID: s.ID, CategoryID: s.CategoryID, Code: s.Code, Name: s.Name})
	}
	return out
}

func ToStepResponse(out *service.Outcome) StepResponse {
	return StepResponse{
		Expense:       ToExpenseResponse(out.Expense),
		Prompt:        string(out.Prompt),
		Categories:    ToCategoryResponses(out.Categories),
		Subcategories: ToSubcategoryResponses(out.Subcategories),
	}
}

func ToUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:        u.ID.String(),
		ChatID:    u.ChatID,
		Username:  u.Username,
		FirstName: u.FirstName,
		IsActive:  u.IsActive,
	}
}
