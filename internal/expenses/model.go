package expenses

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category groups expenses for reporting.
type Category struct {
	ID        int64     `json:"id"`
	AccountID int64     `json:"-"`
	Name      string    `json:"name"`
	Color     *string   `json:"color,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Expense is a business cost entry (gasto).
type Expense struct {
	ID          int64           `json:"id"`
	AccountID   int64           `json:"-"`
	CategoryID  *int64          `json:"category_id,omitempty"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	ExpenseDate time.Time       `json:"expense_date"`
	Notes       *string         `json:"notes,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
