package models

// Category and Subcategory are reference data owned by the store. Codes are
// stable keys used for archive folder paths; order_num drives display order.

type Category struct {
	ID          int64   `db:"id"`
	Name        string  `db:"name"`
	Code        string  `db:"code"`
	Description *string `db:"description"`
	IsActive    bool    `db:"is_active"`
	OrderNum    int     `db:"order_num"`
}

type Subcategory struct {
	ID          int64   `db:"id"`
	CategoryID  int64   `db:"category_id"`
	Name        string  `db:"name"`
	Code        string  `db:"code"`
	Description *string `db:"description"`
	IsActive    bool    `db:"is_active"`
	OrderNum    int     `db:"order_num"`
}
