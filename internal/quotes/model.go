package quotes

import (
	"time"

	"github.com/shopspring/decimal"
)

// QuoteStatus is the lifecycle state of a quote.
type QuoteStatus string

const (
	StatusPending  QuoteStatus = "pending"
	StatusAccepted QuoteStatus = "accepted"
	StatusRejected QuoteStatus = "rejected"
	StatusExpired  QuoteStatus = "expired"
)

// Valid reports whether the status is a known value.
func (s QuoteStatus) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRejected, StatusExpired:
		return true
	}
	return false
}

// Quote is a priced proposal (presupuesto) convertible to an invoice.
type Quote struct {
	ID         int64           `json:"id"`
	AccountID  int64           `json:"-"`
	Number     string          `json:"number"`
	ClientID   int64           `json:"client_id"`
	IssueDate  time.Time       `json:"issue_date"`
	ValidUntil time.Time       `json:"valid_until"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	Tax        decimal.Decimal `json:"tax"`
	Total      decimal.Decimal `json:"total"`
	Status     QuoteStatus     `json:"status"`
	Notes      *string         `json:"notes,omitempty"`
	InvoiceID  *int64          `json:"invoice_id,omitempty"`
	Lines      []QuoteLine     `json:"lines"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// QuoteLine is one priced concept on a quote.
type QuoteLine struct {
	ID        int64           `json:"id"`
	QuoteID   int64           `json:"-"`
	Concept   string          `json:"concept"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
	LineOrder int             `json:"line_order"`
}
