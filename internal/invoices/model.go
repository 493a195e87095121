package invoices

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus is the billing state of an invoice.
type InvoiceStatus string

const (
	StatusDraft InvoiceStatus = "draft"
	StatusSent  InvoiceStatus = "sent"
	StatusPaid  InvoiceStatus = "paid"
)

// Valid reports whether the status is a known value.
func (s InvoiceStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusSent, StatusPaid:
		return true
	}
	return false
}

// Invoice is a billing document (factura).
type Invoice struct {
	ID        int64           `json:"id"`
	AccountID int64           `json:"-"`
	Number    string          `json:"number"`
	ClientID  int64           `json:"client_id"`
	IssueDate time.Time       `json:"issue_date"`
	DueDate   *time.Time      `json:"due_date,omitempty"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Tax       decimal.Decimal `json:"tax"`
	Total     decimal.Decimal `json:"total"`
	Status    InvoiceStatus   `json:"status"`
	Notes     *string         `json:"notes,omitempty"`
	Lines     []InvoiceLine   `json:"lines"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// InvoiceLine is one priced concept on an invoice.
type InvoiceLine struct {
	ID        int64           `json:"id"`
	InvoiceID int64           `json:"-"`
	Concept   string          `json:"concept"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
	LineOrder int             `json:"line_order"`
}
