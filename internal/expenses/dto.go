package expenses

import "time"

// CreateExpenseRequest is the payload for creating an expense.
type CreateExpenseRequest struct {
	CategoryID  *int64    `json:"category_id"`
	Description string    `json:"description" validate:"required,max=255"`
	Amount      float64   `json:"amount" validate:"required,gt=0"`
	ExpenseDate time.Time `json:"expense_date" validate:"required"`
	Notes       *string   `json:"notes"`
}

// UpdateExpenseRequest carries a partial expense update.
type UpdateExpenseRequest struct {
	CategoryID  *int64     `json:"category_id"`
	Description *string    `json:"description" validate:"omitempty,max=255"`
	Amount      *float64   `json:"amount" validate:"omitempty,gt=0"`
	ExpenseDate *time.Time `json:"expense_date"`
	Notes       *string    `json:"notes"`
}

// ListExpensesRequest filters the expense listing.
type ListExpensesRequest struct {
	AccountID  int64
	CategoryID *int64
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}

// CategoryRequest is the payload for creating or renaming a category.
type CategoryRequest struct {
	Name  string  `json:"name" validate:"required,max=100"`
	Color *string `json:"color" validate:"omitempty,hexcolor"`
}
