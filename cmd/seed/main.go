package main

import (
	"context"
	"log"

	"payme-bot/pkg/config"
	"payme-bot/pkg/logger"
	"payme-bot/pkg/postgres"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS payme_users (
		id UUID PRIMARY KEY,
		chat_id BIGINT NOT NULL UNIQUE,
		username TEXT,
		first_name TEXT,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		is_admin BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS payme_categories (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		code TEXT NOT NULL UNIQUE,
		description TEXT,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		order_num INT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS payme_subcategories (
		id BIGSERIAL PRIMARY KEY,
		category_id BIGINT NOT NULL REFERENCES payme_categories(id),
		name TEXT NOT NULL,
		code TEXT NOT NULL UNIQUE,
		description TEXT,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		order_num INT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS payme_expenses (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES payme_users(id),
		input_kind TEXT NOT NULL,
		source_text TEXT,
		file_path TEXT,
		file_name TEXT,
		amount DOUBLE PRECISION,
		currency TEXT NOT NULL DEFAULT 'EUR',
		description TEXT,
		category_id BIGINT REFERENCES payme_categories(id),
		subcategory_id BIGINT REFERENCES payme_subcategories(id),
		payment_type TEXT,
		archive_url TEXT,
		state TEXT NOT NULL,
		requires_payment BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		confirmed_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_payme_expenses_user_created
		ON payme_expenses (user_id, created_at DESC)`,
}

type seedSubcategory struct {
	Name     string
	Code     string
	OrderNum int
}

type seedCategory struct {
	Name          string
	Code          string
	Description   string
	OrderNum      int
	Subcategories []seedSubcategory
}

var categories = []seedCategory{
	{
		Name:        "JVK Pro Service",
		Code:        "JVK",
		Description: "JVK Pro Service expenses",
		OrderNum:    1,
		Subcategories: []seedSubcategory{
			{"Аренда", "JVK_RENT", 1},
			{"Зарплата", "JVK_SALARY", 2},
			{"Электричество", "JVK_ELECTRIC", 3},
			{"Обслуживание", "JVK_MAINTENANCE", 4},
		},
	},
	{
		Name:        "HQ Local",
		Code:        "HQ",
		Description: "HQ Local expenses",
		OrderNum:    2,
		Subcategories: []seedSubcategory{
			{"Аренда", "HQ_RENT", 1},
			{"Оборудование", "HQ_EQUIPMENT", 2},
			{"Детали", "HQ_PARTS", 3},
			{"Покупки", "HQ_PURCHASES", 4},
			{"Другое", "HQ_OTHER", 5},
		},
	},
	{
		Name:        "Callout (Выезды)",
		Code:        "CALLOUT",
		Description: "Mobile/Field service expenses",
		OrderNum:    3,
		Subcategories: []seedSubcategory{
			{"Зарплата", "CALL_SALARY", 1},
			{"Топливо", "CALL_FUEL", 2},
			{"Страховка", "CALL_INSURANCE", 3},
			{"Ремонт", "CALL_REPAIR", 4},
		},
	},
	{
		Name:        "File Service",
		Code:        "FS",
		Description: "File Service expenses",
		OrderNum:    4,
		Subcategories: []seedSubcategory{
			{"Подписки", "FS_SUBSCRIPTIONS", 1},
			{"Зарплата", "FS_SALARY", 2},
			{"Другие расходы", "FS_OTHER", 3},
		},
	},
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logger.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	appLogger := logger.Get()

	// Connect to database
	ctx := context.Background()
	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	appLogger.Info("Creating schema")
	for _, ddl := range schema {
		if _, err := db.Exec(ctx, ddl); err != nil {
			appLogger.Fatal("Failed to create schema", zap.Error(err))
		}
	}

	appLogger.Info("Seeding categories")
	for _, category := range categories {
		if err := seedOne(ctx, db, category); err != nil {
			appLogger.Fatal("Failed to seed category",
				zap.String("code", category.Code),
				zap.Error(err),
			)
		}
	}

	appLogger.Info("Seeding completed")
}

// seedOne inserts a category with its subcategories, skipping codes that
// already exist so the seeder is safe to re-run.
func seedOne(ctx context.Context, db *pgxpool.Pool, category seedCategory) error {
	var exists bool
	err := db.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM payme_categories WHERE code = $1)", category.Code,
	).Scan(&exists)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	insertCategory := squirrel.Insert("payme_categories").
		Columns("name", "code", "description", "is_active", "order_num").
		Values(category.Name, category.Code, category.Description, true, category.OrderNum).
		Suffix("RETURNING id").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := insertCategory.ToSql()
	if err != nil {
		return err
	}

	var categoryID int64
	if err := db.QueryRow(ctx, sql, args...).Scan(&categoryID); err != nil {
		return err
	}

	for _, sub := range category.Subcategories {
		insertSub := squirrel.Insert("payme_subcategories").
			Columns("category_id", "name", "code", "description", "is_active", "order_num").
			Values(categoryID, sub.Name, sub.Code, nil, true, sub.OrderNum).
			PlaceholderFormat(squirrel.Dollar)

		sql, args, err := insertSub.ToSql()
		if err != nil {
			return err
		}
		if _, err := db.Exec(ctx, sql, args...); err != nil {
			return err
		}
	}
	return nil
}
