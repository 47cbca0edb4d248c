package repository

import (
	"context"

	"payme-bot/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type TaxonomyRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewTaxonomyRepository(db *pgxpool.Pool, logger *zap.Logger) *TaxonomyRepository {
	return &TaxonomyRepository{
		db:     db,
		logger: logger,
	}
}

func (r *TaxonomyRepository) ListActiveCategories(ctx context.Context) ([]*models.Category, error) {
	query := squirrel.Select("id", "name", "code", "description", "is_active", "order_num").
		From("payme_categories").
		Where(squirrel.Eq{"is_active": true}).
		OrderBy("order_num ASC").
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

	var categories []*models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Code, &c.Description, &c.IsActive, &c.OrderNum); err != nil {
			return nil, err
		}
		categories = append(categories, &c)
	}

	return categories, nil
}

func (r *TaxonomyRepository) ListActiveSubcategories(ctx context.Context, categoryID int64) ([]*models.Subcategory, error) {
	query := squirrel.Select("id", "category_id", "name", "code", "description", "is_active", "order_num").
		From("payme_subcategories").
		Where(squirrel.Eq{"category_id": categoryID, "is_active": true}).
		OrderBy("order_num ASC").
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

	var subcategories []*models.Subcategory
	for rows.Next() {
		var s models.Subcategory
		if err := rows.Scan(&s.ID, &s.CategoryID, &s.Name, &s.Code, &s.Description, &s.IsActive, &s.OrderNum); err != nil {
			return nil, err
		}
		subcategories = append(subcategories, &s)
	}

	return subcategories, nil
}

func (r *TaxonomyRepository) GetCategory(ctx context.Context, id int64) (*models.Category, error) {
	query := squirrel.Select("id", "name", "code", "description", "is_active", "order_num").
		From("payme_categories").
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	var c models.Category
	err = r.db.QueryRow(ctx, sql, args...).Scan(&c.ID, &c.Name, &c.Code, &c.Description, &c.IsActive, &c.OrderNum)
	if err != nil {
		return nil, err
	}

	return &c, nil
}

func (r *TaxonomyRepository) GetSubcategory(ctx context.Context, id int64) (*models.Subcategory, error) {
	query := squirrel.Select("id", "category_id", "name", "code", "description", "is_active", "order_num").
		From("payme_subcategories").
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	var s models.Subcategory
	err = r.db.QueryRow(ctx, sql, args...).Scan(&s.ID, &s.CategoryID, &s.Name, &s.Code, &s.Description, &s.IsActive, &s.OrderNum)
	if err != nil {
		return nil, err
	}

	return &s, nil
}
