package clients

// CreateClientRequest carries fields for a new client.
type CreateClientRequest struct {
	Name         string  `json:"name" validate:"required"`
	Email        *string `json:"email" validate:"omitempty,email"`
	Phone        *string `json:"phone"`
	Address      *string `json:"address"`
	City         *string `json:"city"`
	PostalCode   *string `json:"postal_code"`
	TaxID        *string `json:"tax_id"`
	BillingNotes *string `json:"billing_notes"`
}

// UpdateClientRequest carries a partial client update. Nil fields are untouched.
type UpdateClientRequest struct {
	Name         *string `json:"name"`
	Email        *string `json:"email" validate:"omitempty,email"`
	Phone        *string `json:"phone"`
	Address      *string `json:"address"`
	City         *string `json:"city"`
	PostalCode   *string `json:"postal_code"`
	TaxID        *string `json:"tax_id"`
	BillingNotes *string `json:"billing_notes"`
}

// ListClientsRequest filters the client listing.
type ListClientsRequest struct {
	AccountID int64
	Search    string
	Limit     int
	Offset    int
}
