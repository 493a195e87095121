package credentials

import "time"

// ProviderGoogle is the only calendar provider supported today.
const ProviderGoogle = "google"

// Credential is a stored OAuth grant. Token fields hold the encrypted
// "iv:payload" form, never plaintext.
type Credential struct {
	ID           int64     `json:"id"`
	AccountID    int64     `json:"account_id"`
	Provider     string    `json:"provider"`
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	TokenType    string    `json:"-"`
	Scope        string    `json:"scope,omitempty"`
	Expiry       time.Time `json:"expiry"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
