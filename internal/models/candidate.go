package models

// DefaultCurrency is the home currency assumed when extraction does not name one.
const DefaultCurrency = "EUR"

type PaymentHint string

const (
	HintCash     PaymentHint = "cash"
	HintCard     PaymentHint = "card"
	HintTransfer PaymentHint = "transfer"
)

// Candidate is a transient, unpersisted guess at one expense produced by
// extraction. It has no identity; each candidate is consumed immediately
// into a pending Expense.
type Candidate struct {
	Amount      *float64
	Currency    string
	Description *string
	PaymentHint *PaymentHint
}
