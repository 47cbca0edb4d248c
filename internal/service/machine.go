package service

import (
	"errors"

	"payme-bot/internal/models"
)

// ErrInvalidTransition marks a trigger that is not legal for the record's
// current state. The record is left unchanged and the caller tells the user
// to pick again.
var ErrInvalidTransition = errors.New("invalid transition for current state")

// transition is the full classification dialog as a pure function of
// (state, trigger, requiresPayment). It decides the next state only; field
// mutations and side effects belong to ClassifyService.
//
//	pending -> awaiting_category -> awaiting_subcategory -> [awaiting_payment ->] confirmed
//	any non-terminal state -> cancelled
func transition(state models.ExpenseState, trigger models.Trigger, requiresPayment bool) (models.ExpenseState, error) {
	// Cancel is legal everywhere and idempotent on terminal states.
	if trigger == models.TriggerCancel {
		if state.Terminal() {
			return state, nil
		}
		return models.StateCancelled, nil
	}

	switch state {
	case models.StatePending:
		switch trigger {
		case models.TriggerAmountConfirmed, models.TriggerAmountRejected, models.TriggerAmountEdited:
			return models.StateAwaitingCategory, nil
		case models.TriggerRetry:
			// Retry cancels the fresh capture so the user can resubmit.
			return models.StateCancelled, nil
		}

	case models.StateAwaitingCategory:
		if trigger == models.TriggerCategorySelected {
			return models.StateAwaitingSubcategory, nil
		}

	case models.StateAwaitingSubcategory:
		switch trigger {
		case models.TriggerCategorySelected:
			// Re-entrant: picking a category again restarts subcategory
			// selection.
			return models.StateAwaitingSubcategory, nil
		case models.TriggerSubcategorySelected:
			if requiresPayment {
				return models.StateAwaitingPayment, nil
			}
			return models.StateConfirmed, nil
		case models.TriggerBack:
			return models.StateAwaitingCategory, nil
		}

	case models.StateAwaitingPayment:
		switch trigger {
		case models.TriggerPaymentSelected:
			return models.StateConfirmed, nil
		case models.TriggerBack:
			return models.StateAwaitingSubcategory, nil
		}
	}

	return state, ErrInvalidTransition
}
