package clients

import "time"

// Client is a customer of the cleaning business.
type Client struct {
	ID           int64     `json:"id"`
	AccountID    int64     `json:"-"`
	Name         string    `json:"name"`
	Email        *string   `json:"email,omitempty"`
	Phone        *string   `json:"phone,omitempty"`
	Address      *string   `json:"address,omitempty"`
	City         *string   `json:"city,omitempty"`
	PostalCode   *string   `json:"postal_code,omitempty"`
	TaxID        *string   `json:"tax_id,omitempty"`
	BillingNotes *string   `json:"billing_notes,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
