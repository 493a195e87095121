package invoices

import (
	"time"

	"github.com/shopspring/decimal"
)

// LineInput carries one line item in a create/update request.
type LineInput struct {
	Concept   string  `json:"concept" validate:"required"`
	Quantity  float64 `json:"quantity" validate:"required,gt=0"`
	UnitPrice float64 `json:"unit_price" validate:"required,gte=0"`
}

// CreateInvoiceRequest carries fields for a new invoice.
type CreateInvoiceRequest struct {
	ClientID  int64       `json:"client_id" validate:"required"`
	IssueDate time.Time   `json:"issue_date" validate:"required"`
	DueDate   *time.Time  `json:"due_date"`
	Notes     *string     `json:"notes"`
	Lines     []LineInput `json:"lines" validate:"required,min=1,dive"`
}

// UpdateInvoiceRequest carries a partial invoice update. When Lines is
// non-nil the full line set is replaced and totals are recomputed.
type UpdateInvoiceRequest struct {
	ClientID  *int64       `json:"client_id"`
	IssueDate *time.Time   `json:"issue_date"`
	DueDate   *time.Time   `json:"due_date"`
	Notes     *string      `json:"notes"`
	Lines     *[]LineInput `json:"lines" validate:"omitempty,min=1,dive"`
}

// SourceLine is a priced line copied verbatim from another document.
type SourceLine struct {
	Concept   string
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
	LineTotal decimal.Decimal
}

// SourceInvoiceInput creates an invoice whose totals were already computed
// by the source document (quote conversion). Totals are copied verbatim,
// never recomputed, so the invoice matches the accepted quote exactly.
type SourceInvoiceInput struct {
	ClientID  int64
	IssueDate time.Time
	Subtotal  decimal.Decimal
	Tax       decimal.Decimal
	Total     decimal.Decimal
	Notes     *string
	Lines     []SourceLine
}

// ListInvoicesRequest filters the invoice listing.
type ListInvoicesRequest struct {
	AccountID int64
	ClientID  *int64
	Status    *InvoiceStatus
	DateFrom  *time.Time
	DateTo    *time.Time
	Limit     int
	Offset    int
}
