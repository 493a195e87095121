package clients

import (
	"context"
	"errors"
	"fmt"
)

// ErrHasInvoices blocks deletion of a client still referenced by invoices.
var ErrHasInvoices = errors.New("client has invoices and cannot be deleted")

// Service wraps client business rules.
type Service struct {
	repo Repository
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, accountID int64, req CreateClientRequest) (*Client, error) {
	id, err := s.repo.Create(ctx, Client{
		AccountID:    accountID,
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		Address:      req.Address,
		City:         req.City,
		PostalCode:   req.PostalCode,
		TaxID:        req.TaxID,
		BillingNotes: req.BillingNotes,
	})
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	return s.repo.Get(ctx, accountID, id)
}

func (s *Service) Update(ctx context.Context, accountID, id int64, req UpdateClientRequest) (*Client, error) {
	updates := make(map[string]any)
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.Address != nil {
		updates["address"] = *req.Address
	}
	if req.City != nil {
		updates["city"] = *req.City
	}
	if req.PostalCode != nil {
		updates["postal_code"] = *req.PostalCode
	}
	if req.TaxID != nil {
		updates["tax_id"] = *req.TaxID
	}
	if req.BillingNotes != nil {
		updates["billing_notes"] = *req.BillingNotes
	}
	if len(updates) > 0 {
		if err := s.repo.Update(ctx, accountID, id, updates); err != nil {
			return nil, fmt.Errorf("update client: %w", err)
		}
	}
	return s.repo.Get(ctx, accountID, id)
}

// Delete removes a client. Deletion is forbidden while any invoice still
// references the client.
func (s *Service) Delete(ctx context.Context, accountID, id int64) error {
	refs, err := s.repo.CountInvoiceRefs(ctx, accountID, id)
	if err != nil {
		return fmt.Errorf("count invoice refs: %w", err)
	}
	if refs > 0 {
		return ErrHasInvoices
	}
	return s.repo.Delete(ctx, accountID, id)
}

func (s *Service) Get(ctx context.Context, accountID, id int64) (*Client, error) {
	return s.repo.Get(ctx, accountID, id)
}

func (s *Service) List(ctx context.Context, req ListClientsRequest) ([]Client, int, error) {
	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 50
	}
	return s.repo.List(ctx, req)
}
