package invoices

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/limpio-app/limpio/internal/clients"
	"github.com/limpio-app/limpio/internal/shared"
)

// ErrInvalidStatus indicates an unknown invoice status value.
var ErrInvalidStatus = errors.New("invalid invoice status")

// Service wraps invoice business rules.
type Service struct {
	repo       Repository
	clientRepo clients.Repository
	taxRate    decimal.Decimal
}

// NewService constructs a new Service. taxRatePercent is the fixed IVA
// percentage applied to every document.
func NewService(repo Repository, clientRepo clients.Repository, taxRatePercent float64) *Service {
	return &Service{
		repo:       repo,
		clientRepo: clientRepo,
		taxRate:    decimal.NewFromFloat(taxRatePercent),
	}
}

// TaxRate exposes the configured rate for sibling engines.
func (s *Service) TaxRate() decimal.Decimal {
	return s.taxRate
}

func (s *Service) computeLines(inputs []LineInput) (lines []InvoiceLine, subtotal decimal.Decimal) {
	subtotal = decimal.Zero
	for i, in := range inputs {
		quantity := decimal.NewFromFloat(in.Quantity)
		unitPrice := decimal.NewFromFloat(in.UnitPrice)
		lineTotal := shared.LineTotal(quantity, unitPrice)
		subtotal = subtotal.Add(lineTotal)
		lines = append(lines, InvoiceLine{
			Concept:   in.Concept,
			Quantity:  quantity,
			UnitPrice: unitPrice,
			LineTotal: lineTotal,
			LineOrder: i + 1,
		})
	}
	return lines, subtotal
}

// Create allocates the next invoice number, computes totals and persists the
// invoice with its lines as one transaction.
func (s *Service) Create(ctx context.Context, accountID int64, req CreateInvoiceRequest) (*Invoice, error) {
	if _, err := s.clientRepo.Get(ctx, accountID, req.ClientID); err != nil {
		return nil, fmt.Errorf("verify client: %w", err)
	}

	number, err := s.repo.NextNumber(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("generate invoice number: %w", err)
	}

	lines, subtotal := s.computeLines(req.Lines)
	tax := shared.TaxAmount(subtotal, s.taxRate)

	inv := Invoice{
		AccountID: accountID,
		Number:    number,
		ClientID:  req.ClientID,
		IssueDate: req.IssueDate,
		DueDate:   req.DueDate,
		Subtotal:  subtotal,
		Tax:       tax,
		Total:     subtotal.Add(tax),
		Status:    StatusDraft,
		Notes:     req.Notes,
	}

	var invoiceID int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		id, err := repo.Create(ctx, inv)
		if err != nil {
			return fmt.Errorf("create invoice: %w", err)
		}
		invoiceID = id
		for _, line := range lines {
			line.InvoiceID = invoiceID
			if err := repo.InsertLine(ctx, line); err != nil {
				return fmt.Errorf("insert invoice line: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.repo.Get(ctx, accountID, invoiceID)
}

// CreateFromSource persists an invoice whose totals and lines come verbatim
// from an already-priced source document, such as an accepted quote.
func (s *Service) CreateFromSource(ctx context.Context, accountID int64, input SourceInvoiceInput) (*Invoice, error) {
	number, err := s.repo.NextNumber(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("generate invoice number: %w", err)
	}

	inv := Invoice{
		AccountID: accountID,
		Number:    number,
		ClientID:  input.ClientID,
		IssueDate: input.IssueDate,
		Subtotal:  input.Subtotal,
		Tax:       input.Tax,
		Total:     input.Total,
		Status:    StatusDraft,
		Notes:     input.Notes,
	}

	var invoiceID int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		id, err := repo.Create(ctx, inv)
		if err != nil {
			return fmt.Errorf("create invoice: %w", err)
		}
		invoiceID = id
		for i, src := range input.Lines {
			line := InvoiceLine{
				InvoiceID: invoiceID,
				Concept:   src.Concept,
				Quantity:  src.Quantity,
				UnitPrice: src.UnitPrice,
				LineTotal: src.LineTotal,
				LineOrder: i + 1,
			}
			if err := repo.InsertLine(ctx, line); err != nil {
				return fmt.Errorf("insert invoice line: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.repo.Get(ctx, accountID, invoiceID)
}

// Update applies a partial header update. When lines are supplied the whole
// line set is replaced and totals are recomputed in the same transaction.
func (s *Service) Update(ctx context.Context, accountID, id int64, req UpdateInvoiceRequest) (*Invoice, error) {
	if _, err := s.repo.Get(ctx, accountID, id); err != nil {
		return nil, err
	}

	if req.ClientID != nil {
		if _, err := s.clientRepo.Get(ctx, accountID, *req.ClientID); err != nil {
			return nil, fmt.Errorf("verify client: %w", err)
		}
	}

	updates := make(map[string]any)
	if req.ClientID != nil {
		updates["client_id"] = *req.ClientID
	}
	if req.IssueDate != nil {
		updates["issue_date"] = *req.IssueDate
	}
	if req.DueDate != nil {
		updates["due_date"] = *req.DueDate
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}

	var lines []InvoiceLine
	if req.Lines != nil {
		var subtotal decimal.Decimal
		lines, subtotal = s.computeLines(*req.Lines)
		tax := shared.TaxAmount(subtotal, s.taxRate)
		updates["subtotal"] = subtotal.String()
		updates["tax"] = tax.String()
		updates["total"] = subtotal.Add(tax).String()
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if len(updates) > 0 {
			if err := repo.Update(ctx, accountID, id, updates); err != nil {
				return err
			}
		}
		if req.Lines != nil {
			if err := repo.DeleteLines(ctx, id); err != nil {
				return err
			}
			for _, line := range lines {
				line.InvoiceID = id
				if err := repo.InsertLine(ctx, line); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update invoice: %w", err)
	}

	return s.repo.Get(ctx, accountID, id)
}

// SetStatus moves the invoice between draft, sent and paid. All transitions
// are explicit user actions and none are irreversible at this layer.
func (s *Service) SetStatus(ctx context.Context, accountID, id int64, status InvoiceStatus) (*Invoice, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	if _, err := s.repo.Get(ctx, accountID, id); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, accountID, id, status); err != nil {
		return nil, fmt.Errorf("set invoice status: %w", err)
	}
	return s.repo.Get(ctx, accountID, id)
}

func (s *Service) Delete(ctx context.Context, accountID, id int64) error {
	return s.repo.Delete(ctx, accountID, id)
}

func (s *Service) Get(ctx context.Context, accountID, id int64) (*Invoice, error) {
	return s.repo.Get(ctx, accountID, id)
}

func (s *Service) List(ctx context.Context, req ListInvoicesRequest) ([]Invoice, int, error) {
	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 50
	}
	return s.repo.List(ctx, req)
}
