package service

import (
	"testing"

	"payme-bot/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransitionHappyPathWithPayment(t *testing.T) {
	state := models.StatePending

	state, err := transition(state, models.TriggerAmountConfirmed, true)
	require.NoError(t, err)
	assert.Equal(t, models.StateAwaitingCategory, state)

	state, err = transition(state, models.TriggerCategorySelected, true)
	require.NoError(t, err)
	assert.Equal(t, models.StateAwaitingSubcategory, state)

	state, err = transition(state, models.TriggerSubcategorySelected, true)
	require.NoError(t, err)
	assert.Equal(t, models.StateAwaitingPayment, state)

	state, err = transition(state, models.TriggerPaymentSelected, true)
	require.NoError(t, err)
	assert.Equal(t, models.StateConfirmed, state)
}

func TestTransitionSkipsPaymentForFileInputs(t *testing.T) {
	state, err := transition(models.StateAwaitingSubcategory, models.TriggerSubcategorySelected, false)
	require.NoError(t, err)
	assert.Equal(t, models.StateConfirmed, state)
}

func TestTransitionAmountRejectedStillClassifies(t *testing.T) {
	state, err := transition(models.StatePending, models.TriggerAmountRejected, true)
	require.NoError(t, err)
	assert.Equal(t, models.StateAwaitingCategory, state)

	state, err = transition(models.StatePending, models.TriggerAmountEdited, true)
	require.NoError(t, err)
	assert.Equal(t, models.StateAwaitingCategory, state)
}

func TestTransitionBack(t *testing.T) {
	state, err := transition(models.StateAwaitingSubcategory, models.TriggerBack, true)
	require.NoError(t, err)
	assert.Equal(t, models.StateAwaitingCategory, state)

	state, err = transition(models.StateAwaitingPayment, models.TriggerBack, true)
	require.NoError(t, err)
	assert.Equal(t, models.StateAwaitingSubcategory, state)
}

func TestTransitionCategoryReselect(t *testing.T) {
	state, err := transition(models.StateAwaitingSubcategory, models.TriggerCategorySelected, true)
	require.NoError(t, err)
	assert.Equal(t, models.StateAwaitingSubcategory, state)
}

func TestTransitionRetryOnlyFromPending(t *testing.T) {
	state, err := transition(models.StatePending, models.TriggerRetry, true)
	require.NoError(t, err)
	assert.Equal(t, models.StateCancelled, state)

	_, err = transition(models.StateAwaitingCategory, models.TriggerRetry, true)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestTransitionCancelFromEveryState(t *testing.T) {
	for _, from := range []models.ExpenseState{
		models.StatePending,
		models.StateAwaitingCategory,
		models.StateAwaitingSubcategory,
		models.StateAwaitingPayment,
	} {
		state, err := transition(from, models.TriggerCancel, true)
		require.NoError(t, err, "cancel from %s", from)
		assert.Equal(t, models.StateCancelled, state)
	}
}

func TestTransitionCancelIdempotentOnTerminal(t *testing.T) {
	state, err := transition(models.StateCancelled, models.TriggerCancel, true)
	require.NoError(t, err)
	assert.Equal(t, models.StateCancelled, state)

	state, err = transition(models.StateConfirmed, models.TriggerCancel, true)
	require.NoError(t, err)
	assert.Equal(t, models.StateConfirmed, state)
}

func TestTransitionRejectsIllegalTriggers(t *testing.T) {
	cases := []struct {
		state   models.ExpenseState
		trigger models.Trigger
	}{
		{models.StatePending, models.TriggerCategorySelected},
		{models.StatePending, models.TriggerPaymentSelected},
		{models.StateAwaitingCategory, models.TriggerSubcategorySelected},
		{models.StateAwaitingCategory, models.TriggerBack},
		{models.StateAwaitingSubcategory, models.TriggerPaymentSelected},
		{models.StateAwaitingPayment, models.TriggerCategorySelected},
		{models.StateConfirmed, models.TriggerCategorySelected},
		{models.StateCancelled, models.TriggerAmountConfirmed},
	}

	for _, tc := range cases {
		state, err := transition(tc.state, tc.trigger, true)
		assert.ErrorIs(t, err, ErrInvalidTransition, "%s + %s", tc.state, tc.trigger)
		assert.Equal(t, tc.state, state, "state must not move on rejection")
	}
}
