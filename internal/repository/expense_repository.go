package repository

import (
	"context"
	"errors"

	"payme-bot/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var ErrExpenseNotFound = errors.New("expense not found")

const expenseColumns = "id, user_id, input_kind, source_text, file_path, file_name, " +
	"amount, currency, description, category_id, subcategory_id, payment_type, " +
	"archive_url, state, requires_payment, created_at, updated_at, confirmed_at"

type ExpenseRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewExpenseRepository(db *pgxpool.Pool, logger *zap.Logger) *ExpenseRepository {
	return &ExpenseRepository{
		db:     db,
		logger: logger,
	}
}

func (r *ExpenseRepository) Create(ctx context.Context, e *models.Expense) error {
	query := squirrel.Insert("payme_expenses").
		Columns("id", "user_id", "input_kind", "source_text", "file_path", "file_name",
			"amount", "currency", "description", "category_id", "subcategory_id", "payment_type",
			"archive_url", "state", "requires_payment", "created_at", "updated_at", "confirmed_at").
		Values(e.ID, e.UserID, e.InputKind, e.SourceText, e.FilePath, e.FileName,
			e.Amount, e.Currency, e.Description, e.CategoryID, e.SubcategoryID, e.PaymentType,
			e.ArchiveURL, e.State, e.RequiresPayment, e.CreatedAt, e.UpdatedAt, e.ConfirmedAt).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

func (r *ExpenseRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Expense, error) {
	query := squirrel.Select(expenseColumns).
		From("payme_expenses").
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	var e models.Expense
	err = r.db.QueryRow(ctx, sql, args...).Scan(
		&e.ID, &e.UserID, &e.InputKind, &e.SourceText, &e.FilePath, &e.FileName,
		&e.Amount, &e.Currency, &e.Description, &e.CategoryID, &e.SubcategoryID, &e.PaymentType,
		&e.ArchiveURL, &e.State, &e.RequiresPayment, &e.CreatedAt, &e.UpdatedAt, &e.ConfirmedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExpenseNotFound
		}
		return nil, err
	}

	return &e, nil
}

func (r *ExpenseRepository) Update(ctx context.Context, e *models.Expense) error {
	query := squirrel.Update("payme_expenses").
		Set("amount", e.Amount).
		Set("currency", e.Currency).
		Set("description", e.Description).
		Set("category_id", e.CategoryID).
		Set("subcategory_id", e.SubcategoryID).
		Set("payment_type", e.PaymentType).
		Set("archive_url", e.ArchiveURL).
		Set("state", e.State).
		Set("updated_at", squirrel.Expr("NOW()")).
		Set("confirmed_at", e.ConfirmedAt).
		Where(squirrel.Eq{"id": e.ID}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

func (r *ExpenseRepository) ListByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Expense, error) {
	query := squirrel.Select(expenseColumns).
		From("payme_expenses").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expenses []*models.Expense
	for rows.Next() {
		var e models.Expense
		if err := rows.Scan(
			&e.ID, &e.UserID, &e.InputKind, &e.SourceText, &e.FilePath, &e.FileName,
			&e.Amount, &e.Currency, &e.Description, &e.CategoryID, &e.SubcategoryID, &e.PaymentType,
			&e.ArchiveURL, &e.State, &e.RequiresPayment, &e.CreatedAt, &e.UpdatedAt, &e.ConfirmedAt,
		); err != nil {
			return nil, err
		}
		expenses = append(expenses, &e)
	}

	return expenses, nil
}
