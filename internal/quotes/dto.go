package quotes

import "time"

// LineInput carries one line item in a create/update request.
type LineInput struct {
	Concept   string  `json:"concept" validate:"required"`
	Quantity  float64 `json:"quantity" validate:"required,gt=0"`
	UnitPrice float64 `json:"unit_price" validate:"required,gte=0"`
}

// CreateQuoteRequest carries fields for a new quote.
type CreateQuoteRequest struct {
	ClientID   int64       `json:"client_id" validate:"required"`
	IssueDate  time.Time   `json:"issue_date" validate:"required"`
	ValidUntil time.Time   `json:"valid_until" validate:"required"`
	Notes      *string     `json:"notes"`
	Lines      []LineInput `json:"lines" validate:"required,min=1,dive"`
}

// UpdateQuoteRequest carries a partial quote update. When Lines is non-nil
// the full line set is replaced and totals are recomputed.
type UpdateQuoteRequest struct {
	ClientID   *int64       `json:"client_id"`
	IssueDate  *time.Time   `json:"issue_date"`
	ValidUntil *time.Time   `json:"valid_until"`
	Notes      *string      `json:"notes"`
	Lines      *[]LineInput `json:"lines" validate:"omitempty,min=1,dive"`
}

// ListQuotesRequest filters the quote listing.
type ListQuotesRequest struct {
	AccountID int64
	ClientID  *int64
	Status    *QuoteStatus
	DateFrom  *time.Time
	DateTo    *time.Time
	Limit     int
	Offset    int
}
