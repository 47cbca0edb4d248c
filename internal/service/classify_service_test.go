package service

import (
	"context"
	"errors"
	"testing"

	"payme-bot/internal/models"
	"payme-bot/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeExpenseStore struct {
	expenses  map[uuid.UUID]*models.Expense
	updateErr error
	updates   int
}

func newFakeExpenseStore() *fakeExpenseStore {
	return &fakeExpenseStore{expenses: make(map[uuid.UUID]*models.Expense)}
}

func (f *fakeExpenseStore) Create(ctx context.Context, e *models.Expense) error {
	copied := *e
	f.expenses[e.ID] = &copied
	return nil
}

func (f *fakeExpenseStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Expense, error) {
	e, ok := f.expenses[id]
	if !ok {
		return nil, repository.ErrExpenseNotFound
	}
	copied := *e
	return &copied, nil
}

func (f *fakeExpenseStore) Update(ctx context.Context, e *models.Expense) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates++
	copied := *e
	f.expenses[e.ID] = &copied
	return nil
}

type fakeTaxonomy struct {
	categories    map[int64]*models.Category
	subcategories map[int64]*models.Subcategory
}

func newFakeTaxonomy() *fakeTaxonomy {
	return &fakeTaxonomy{
		categories: map[int64]*models.Category{
			1: {ID: 1, Name: "JVK Pro Service", Code: "JVK", IsActive: true, OrderNum: 1},
			2: {ID: 2, Name: "HQ Local", Code: "HQ", IsActive: true, OrderNum: 2},
			3: {ID: 3, Name: "Old", Code: "OLD", IsActive: false, OrderNum: 3},
		},
		subcategories: map[int64]*models.Subcategory{
			10: {ID: 10, CategoryID: 1, Name: "Аренда", Code: "JVK_RENT", IsActive: true, OrderNum: 1},
			11: {ID: 11, CategoryID: 1, Name: "Зарплата", Code: "JVK_SALARY", IsActive: true, OrderNum: 2},
			20: {ID: 20, CategoryID: 2, Name: "Оборудование", Code: "HQ_EQUIPMENT", IsActive: true, OrderNum: 1},
		},
	}
}

func (f *fakeTaxonomy) ListActiveCategories(ctx context.Context) ([]*models.Category, error) {
	var out []*models.Category
	for _, c := range f.categories {
		if c.IsActive {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeTaxonomy) ListActiveSubcategories(ctx context.Context, categoryID int64) ([]*models.Subcategory, error) {
	var out []*models.Subcategory
	for _, s := range f.subcategories {
		if s.IsActive && s.CategoryID == categoryID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeTaxonomy) GetCategory(ctx context.Context, id int64) (*models.Category, error) {
	c, ok := f.categories[id]
	if !ok {
		return nil, errors.New("category not found")
	}
	return c, nil
}

func (f *fakeTaxonomy) GetSubcategory(ctx context.Context, id int64) (*models.Subcategory, error) {
	s, ok := f.subcategories[id]
	if !ok {
		return nil, errors.New("subcategory not found")
	}
	return s, nil
}

type fakeArchiver struct {
	url   string
	calls int
	path  string
}

func (f *fakeArchiver) Archive(ctx context.Context, localPath, categoryCode, subcategoryCode string, recordID uuid.UUID) string {
	f.calls++
	f.path = localPath
	return f.url
}

func int64Ptr(v int64) *int64       { return &v }
func float64Ptr(v float64) *float64 { return &v }
func strPtr(v string) *string       { return &v }

func newClassifyFixture(t *testing.T) (*ClassifyService, *fakeExpenseStore, *fakeArchiver) {
	t.Helper()
	store := newFakeExpenseStore()
	archiver := &fakeArchiver{url: "https://dropbox.test/s/abc"}
	return NewClassifyService(store, newFakeTaxonomy(), archiver, zap.NewNop()), store, archiver
}

func seedExpense(store *fakeExpenseStore, mutate func(*models.Expense)) *models.Expense {
	e := &models.Expense{
		ID:              uuid.New(),
		UserID:          uuid.New(),
		InputKind:       models.InputText,
		Amount:          float64Ptr(42.5),
		Currency:        "EUR",
		State:           models.StatePending,
		RequiresPayment: true,
	}
	if mutate != nil {
		mutate(e)
	}
	store.expenses[e.ID] = e
	return e
}

func TestApplyFullTextFlow(t *testing.T) {
	svc, store, _ := newClassifyFixture(t)
	e := seedExpense(store, nil)
	ctx := context.Background()

	out, err := svc.Apply(ctx, e.ID, TriggerInput{Trigger: models.TriggerAmountConfirmed})
	require.NoError(t, err)
	assert.Equal(t, PromptChooseCategory, out.Prompt)
	assert.NotEmpty(t, out.Categories)

	out, err = svc.Apply(ctx, e.ID, TriggerInput{Trigger: models.TriggerCategorySelected, CategoryID: int64Ptr(1)})
	require.NoError(t, err)
	assert.Equal(t, PromptChooseSubcategory, out.Prompt)
	assert.NotEmpty(t, out.Subcategories)

	out, err = svc.Apply(ctx, e.ID, TriggerInput{Trigger: models.TriggerSubcategorySelected, SubcategoryID: int64Ptr(10)})
	require.NoError(t, err)
	assert.Equal(t, PromptChoosePayment, out.Prompt)

	cash := models.PaymentCash
	out, err = svc.Apply(ctx, e.ID, TriggerInput{Trigger: models.TriggerPaymentSelected, Payment: &cash})
	require.NoError(t, err)
	assert.Equal(t, PromptSaved, out.Prompt)
	assert.Equal(t, models.StateConfirmed, out.Expense.State)
	assert.NotNil(t, out.Expense.ConfirmedAt)
	assert.Equal(t, models.StatusConfirmed, out.Expense.Status())
}

func TestApplyRejectedAmountIsCleared(t *testing.T) {
	svc, store, _ := newClassifyFixture(t)
	e := seedExpense(store, nil)

	out, err := svc.Apply(context.Background(), e.ID, TriggerInput{Trigger: models.TriggerAmountRejected})
	require.NoError(t, err)
	assert.Nil(t, out.Expense.Amount)
	assert.Equal(t, models.StateAwaitingCategory, out.Expense.State)
}

func TestApplyEditedAmountOverwrites(t *testing.T) {
	svc, store, _ := newClassifyFixture(t)
	e := seedExpense(store, nil)

	out, err := svc.Apply(context.Background(), e.ID, TriggerInput{Trigger: models.TriggerAmountEdited, Amount: float64Ptr(17.8)})
	require.NoError(t, err)
	require.NotNil(t, out.Expense.Amount)
	assert.Equal(t, 17.8, *out.Expense.Amount)
	assert.Equal(t, models.StateAwaitingCategory, out.Expense.State)
}

func TestApplyEditedAmountRejectsNegative(t *testing.T) {
	svc, store, _ := newClassifyFixture(t)
	e := seedExpense(store, nil)

	_, err := svc.Apply(context.Background(), e.ID, TriggerInput{Trigger: models.TriggerAmountEdited, Amount: float64Ptr(-1)})
	assert.ErrorIs(t, err, ErrMissingSelection)
}

func TestApplyReselectingCategoryClearsSubcategory(t *testing.T) {
	svc, store, _ := newClassifyFixture(t)
	e := seedExpense(store, func(e *models.Expense) {
		e.State = models.StateAwaitingSubcategory
		e.CategoryID = int64Ptr(1)
		e.SubcategoryID = int64Ptr(10)
	})

	out, err := svc.Apply(context.Background(), e.ID, TriggerInput{Trigger: models.TriggerCategorySelected, CategoryID: int64Ptr(2)})
	require.NoError(t, err)
	assert.Equal(t, int64(2), *out.Expense.CategoryID)
	assert.Nil(t, out.Expense.SubcategoryID)
}

func TestApplyRejectsSubcategoryFromOtherCategory(t *testing.T) {
	svc, store, _ := newClassifyFixture(t)
	e := seedExpense(store, func(e *models.Expense) {
		e.State = models.StateAwaitingSubcategory
		e.CategoryID = int64Ptr(2)
	})

	// Subcategory 10 belongs to category 1; after switching to category 2 the
	// stale pick must be rejected.
	_, err := svc.Apply(context.Background(), e.ID, TriggerInput{Trigger: models.TriggerSubcategorySelected, SubcategoryID: int64Ptr(10)})
	assert.ErrorIs(t, err, ErrTaxonomyMismatch)

	stored, _ := store.GetByID(context.Background(), e.ID)
	assert.Equal(t, models.StateAwaitingSubcategory, stored.State)
	assert.Nil(t, stored.SubcategoryID)
}

func TestApplyRejectsInactiveCategory(t *testing.T) {
	svc, store, _ := newClassifyFixture(t)
	e := seedExpense(store, func(e *models.Expense) { e.State = models.StateAwaitingCategory })

	_, err := svc.Apply(context.Background(), e.ID, TriggerInput{Trigger: models.TriggerCategorySelected, CategoryID: int64Ptr(3)})
	assert.ErrorIs(t, err, ErrTaxonomyMismatch)
}

func TestApplyRejectsMissingPayload(t *testing.T) {
	svc, store, _ := newClassifyFixture(t)
	e := seedExpense(store, func(e *models.Expense) { e.State = models.StateAwaitingCategory })

	_, err := svc.Apply(context.Background(), e.ID, TriggerInput{Trigger: models.TriggerCategorySelected})
	assert.ErrorIs(t, err, ErrMissingSelection)
}

func TestApplyInvalidTriggerLeavesRecordUntouched(t *testing.T) {
	svc, store, _ := newClassifyFixture(t)
	e := seedExpense(store, nil)

	cash := models.PaymentCash
	_, err := svc.Apply(context.Background(), e.ID, TriggerInput{Trigger: models.TriggerPaymentSelected, Payment: &cash})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	stored, _ := store.GetByID(context.Background(), e.ID)
	assert.Equal(t, models.StatePending, stored.State)
	assert.Nil(t, stored.PaymentType)
}

func TestApplyFileRecordSkipsPaymentAndArchives(t *testing.T) {
	svc, store, archiver := newClassifyFixture(t)
	bank := models.PaymentBank
	e := seedExpense(store, func(e *models.Expense) {
		e.InputKind = models.InputPhoto
		e.State = models.StateAwaitingSubcategory
		e.CategoryID = int64Ptr(1)
		e.PaymentType = &bank
		e.RequiresPayment = false
		e.FilePath = strPtr("/tmp/receipt.jpg")
	})

	out, err := svc.Apply(context.Background(), e.ID, TriggerInput{Trigger: models.TriggerSubcategorySelected, SubcategoryID: int64Ptr(10)})
	require.NoError(t, err)
	assert.Equal(t, models.StateConfirmed, out.Expense.State)
	assert.Equal(t, 1, archiver.calls)
	assert.Equal(t, "/tmp/receipt.jpg", archiver.path)
	require.NotNil(t, out.Expense.ArchiveURL)
	assert.Equal(t, "https://dropbox.test/s/abc", *out.Expense.ArchiveURL)
}

func TestApplyArchiveFailureDoesNotBlockConfirmation(t *testing.T) {
	svc, store, archiver := newClassifyFixture(t)
	archiver.url = ""
	bank := models.PaymentBank
	e := seedExpense(store, func(e *models.Expense) {
		e.InputKind = models.InputDocument
		e.State = models.StateAwaitingSubcategory
		e.CategoryID = int64Ptr(1)
		e.PaymentType = &bank
		e.RequiresPayment = false
		e.FilePath = strPtr("/tmp/invoice.pdf")
	})

	out, err := svc.Apply(context.Background(), e.ID, TriggerInput{Trigger: models.TriggerSubcategorySelected, SubcategoryID: int64Ptr(10)})
	require.NoError(t, err)
	assert.Equal(t, models.StateConfirmed, out.Expense.State)
	assert.Nil(t, out.Expense.ArchiveURL)
}

func TestApplyTextRecordNeverArchives(t *testing.T) {
	svc, store, archiver := newClassifyFixture(t)
	e := seedExpense(store, func(e *models.Expense) {
		e.State = models.StateAwaitingPayment
		e.CategoryID = int64Ptr(1)
		e.SubcategoryID = int64Ptr(10)
	})

	cash := models.PaymentCash
	_, err := svc.Apply(context.Background(), e.ID, TriggerInput{Trigger: models.TriggerPaymentSelected, Payment: &cash})
	require.NoError(t, err)
	assert.Zero(t, archiver.calls)
}

func TestApplyConfirmPersistenceFailureSurfaced(t *testing.T) {
	svc, store, _ := newClassifyFixture(t)
	store.updateErr = errors.New("connection reset")
	e := seedExpense(store, func(e *models.Expense) {
		e.State = models.StateAwaitingPayment
		e.CategoryID = int64Ptr(1)
		e.SubcategoryID = int64Ptr(10)
	})

	cash := models.PaymentCash
	_, err := svc.Apply(context.Background(), e.ID, TriggerInput{Trigger: models.TriggerPaymentSelected, Payment: &cash})
	assert.ErrorIs(t, err, ErrConfirmNotSaved)
}

func TestApplyCancelIdempotentSkipsWrite(t *testing.T) {
	svc, store, _ := newClassifyFixture(t)
	e := seedExpense(store, nil)
	ctx := context.Background()

	out, err := svc.Apply(ctx, e.ID, TriggerInput{Trigger: models.TriggerCancel})
	require.NoError(t, err)
	assert.Equal(t, models.StateCancelled, out.Expense.State)
	writesAfterCancel := store.updates

	out, err = svc.Apply(ctx, e.ID, TriggerInput{Trigger: models.TriggerCancel})
	require.NoError(t, err)
	assert.Equal(t, models.StateCancelled, out.Expense.State)
	assert.Equal(t, PromptCancelled, out.Prompt)
	assert.Equal(t, writesAfterCancel, store.updates)
}

func TestApplyUnknownExpense(t *testing.T) {
	svc, _, _ := newClassifyFixture(t)

	_, err := svc.Apply(context.Background(), uuid.New(), TriggerInput{Trigger: models.TriggerCancel})
	assert.ErrorIs(t, err, repository.ErrExpenseNotFound)
}
