package quotes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/limpio-app/limpio/internal/clients"
	"github.com/limpio-app/limpio/internal/invoices"
	"github.com/limpio-app/limpio/internal/shared"
)

var (
	// ErrForbidden blocks edits and deletes in statuses that do not allow them.
	ErrForbidden = errors.New("operation not allowed in current quote status")
	// ErrAlreadyConverted blocks converting a quote twice.
	ErrAlreadyConverted = errors.New("quote already converted to an invoice")
	// ErrRejected blocks converting a rejected quote.
	ErrRejected = errors.New("rejected quote cannot be converted")
	// ErrInvalidTransition blocks status changes outside the transition table.
	ErrInvalidTransition = errors.New("invalid quote status transition")
)

// InvoiceEngine is the slice of the invoice service used during conversion.
type InvoiceEngine interface {
	CreateFromSource(ctx context.Context, accountID int64, input invoices.SourceInvoiceInput) (*invoices.Invoice, error)
}

// Service is the quote side of the document engine.
type Service struct {
	logger       *slog.Logger
	repo         Repository
	clientRepo   clients.Repository
	invoicer     InvoiceEngine
	taxRate      decimal.Decimal
	validityDays int
	now          func() time.Time
}

// NewService constructs a new Service.
func NewService(logger *slog.Logger, repo Repository, clientRepo clients.Repository, invoicer InvoiceEngine, taxRatePercent float64, validityDays int) *Service {
	return &Service{
		logger:       logger,
		repo:         repo,
		clientRepo:   clientRepo,
		invoicer:     invoicer,
		taxRate:      decimal.NewFromFloat(taxRatePercent),
		validityDays: validityDays,
		now:          time.Now,
	}
}

func (s *Service) computeLines(inputs []LineInput) (lines []QuoteLine, subtotal decimal.Decimal) {
	subtotal = decimal.Zero
	for i, in := range inputs {
		quantity := decimal.NewFromFloat(in.Quantity)
		unitPrice := decimal.NewFromFloat(in.UnitPrice)
		lineTotal := shared.LineTotal(quantity, unitPrice)
		subtotal = subtotal.Add(lineTotal)
		lines = append(lines, QuoteLine{
			Concept:   in.Concept,
			Quantity:  quantity,
			UnitPrice: unitPrice,
			LineTotal: lineTotal,
			LineOrder: i + 1,
		})
	}
	return lines, subtotal
}

// Create allocates the next quote number, computes totals and persists the
// quote with its lines as one transaction.
func (s *Service) Create(ctx context.Context, accountID int64, req CreateQuoteRequest) (*Quote, error) {
	if req.ValidUntil.Before(req.IssueDate) {
		return nil, errors.New("valid_until must be after issue_date")
	}
	if _, err := s.clientRepo.Get(ctx, accountID, req.ClientID); err != nil {
		return nil, fmt.Errorf("verify client: %w", err)
	}

	number, err := s.repo.NextNumber(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("generate quote number: %w", err)
	}

	lines, subtotal := s.computeLines(req.Lines)
	tax := shared.TaxAmount(subtotal, s.taxRate)

	quote := Quote{
		AccountID:  accountID,
		Number:     number,
		ClientID:   req.ClientID,
		IssueDate:  req.IssueDate,
		ValidUntil: req.ValidUntil,
		Subtotal:   subtotal,
		Tax:        tax,
		Total:      subtotal.Add(tax),
		Status:     StatusPending,
		Notes:      req.Notes,
	}

	var quoteID int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		id, err := repo.Create(ctx, quote)
		if err != nil {
			return fmt.Errorf("create quote: %w", err)
		}
		quoteID = id
		for _, line := range lines {
			line.QuoteID = quoteID
			if err := repo.InsertLine(ctx, line); err != nil {
				return fmt.Errorf("insert quote line: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.repo.Get(ctx, accountID, quoteID)
}

// Update applies a partial update. Editing is permitted only while the quote
// is pending or expired; accepted and rejected quotes are frozen.
func (s *Service) Update(ctx context.Context, accountID, id int64, req UpdateQuoteRequest) (*Quote, error) {
	existing, err := s.repo.Get(ctx, accountID, id)
	if err != nil {
		return nil, err
	}
	if existing.Status == StatusAccepted || existing.Status == StatusRejected {
		return nil, fmt.Errorf("%w: quote is %s", ErrForbidden, existing.Status)
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
	if req.ValidUntil != nil {
		updates["valid_until"] = *req.ValidUntil
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}

	var lines []QuoteLine
	if req.Lines != nil {
		var subtotal decimal.Decimal
		lines, subtotal = s.computeLines(*req.Lines)
		tax := shared.TaxAmount(subtotal, s.taxRate)
		updates["subtotal"] = subtotal.String()
		updates["tax"] = tax.String()
		updates["total"] = subtotal.Add(tax).String()
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
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
				line.QuoteID = id
				if err := repo.InsertLine(ctx, line); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update quote: %w", err)
	}

	return s.repo.Get(ctx, accountID, id)
}

// SetStatus applies the quote transition table: a pending quote can be
// rejected or expired. Acceptance only happens through Convert, and
// rejected/expired quotes are terminal apart from Duplicate.
func (s *Service) SetStatus(ctx context.Context, accountID, id int64, status QuoteStatus) (*Quote, error) {
	if !status.Valid() {
		return nil, ErrInvalidTransition
	}
	existing, err := s.repo.Get(ctx, accountID, id)
	if err != nil {
		return nil, err
	}
	allowed := existing.Status == StatusPending && (status == StatusRejected || status == StatusExpired)
	if !allowed {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, existing.Status, status)
	}
	if err := s.repo.UpdateStatus(ctx, accountID, id, status); err != nil {
		return nil, fmt.Errorf("set quote status: %w", err)
	}
	return s.repo.Get(ctx, accountID, id)
}

// Convert turns a pending (or expired) quote into a draft invoice carrying
// identical totals and lines, then marks the quote accepted with a link to
// the new invoice. If the quote-side update fails after the invoice exists,
// the conversion still reports success: the invoice is real, and the
// inconsistent quote is logged for manual reconciliation.
func (s *Service) Convert(ctx context.Context, accountID, id int64) (*Quote, *invoices.Invoice, error) {
	existing, err := s.repo.Get(ctx, accountID, id)
	if err != nil {
		return nil, nil, err
	}
	switch existing.Status {
	case StatusAccepted:
		return nil, nil, ErrAlreadyConverted
	case StatusRejected:
		return nil, nil, ErrRejected
	}

	srcLines := make([]invoices.SourceLine, 0, len(existing.Lines))
	for _, l := range existing.Lines {
		srcLines = append(srcLines, invoices.SourceLine{
			Concept:   l.Concept,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			LineTotal: l.LineTotal,
		})
	}

	invoice, err := s.invoicer.CreateFromSource(ctx, accountID, invoices.SourceInvoiceInput{
		ClientID:  existing.ClientID,
		IssueDate: s.now(),
		Subtotal:  existing.Subtotal,
		Tax:       existing.Tax,
		Total:     existing.Total,
		Notes:     existing.Notes,
		Lines:     srcLines,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create invoice from quote: %w", err)
	}

	if err := s.repo.LinkInvoice(ctx, accountID, id, invoice.ID); err != nil {
		s.logger.Error("quote accepted but link update failed, needs manual reconciliation",
			slog.Int64("quote_id", id),
			slog.Int64("invoice_id", invoice.ID),
			slog.Any("error", err))
		return existing, invoice, nil
	}

	updated, err := s.repo.Get(ctx, accountID, id)
	if err != nil {
		return existing, invoice, nil
	}
	return updated, invoice, nil
}

// Duplicate clones a quote into a fresh pending one: new number, today's
// issue date, recomputed validity window and a note referencing the source.
// The original, including its invoice link, is left untouched.
func (s *Service) Duplicate(ctx context.Context, accountID, id int64) (*Quote, error) {
	existing, err := s.repo.Get(ctx, accountID, id)
	if err != nil {
		return nil, err
	}

	number, err := s.repo.NextNumber(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("generate quote number: %w", err)
	}

	today := s.now()
	note := fmt.Sprintf("Duplicado del presupuesto %s", existing.Number)
	clone := Quote{
		AccountID:  accountID,
		Number:     number,
		ClientID:   existing.ClientID,
		IssueDate:  today,
		ValidUntil: today.AddDate(0, 0, s.validityDays),
		Subtotal:   existing.Subtotal,
		Tax:        existing.Tax,
		Total:      existing.Total,
		Status:     StatusPending,
		Notes:      &note,
	}

	var cloneID int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		newID, err := repo.Create(ctx, clone)
		if err != nil {
			return fmt.Errorf("create duplicate: %w", err)
		}
		cloneID = newID
		for _, l := range existing.Lines {
			line := QuoteLine{
				QuoteID:   cloneID,
				Concept:   l.Concept,
				Quantity:  l.Quantity,
				UnitPrice: l.UnitPrice,
				LineTotal: l.LineTotal,
				LineOrder: l.LineOrder,
			}
			if err := repo.InsertLine(ctx, line); err != nil {
				return fmt.Errorf("insert duplicate line: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.repo.Get(ctx, accountID, cloneID)
}

// Delete removes a quote. Accepted quotes cannot be deleted.
func (s *Service) Delete(ctx context.Context, accountID, id int64) error {
	existing, err := s.repo.Get(ctx, accountID, id)
	if err != nil {
		return err
	}
	if existing.Status == StatusAccepted {
		return fmt.Errorf("%w: quote is accepted", ErrForbidden)
	}
	return s.repo.Delete(ctx, accountID, id)
}

func (s *Service) Get(ctx context.Context, accountID, id int64) (*Quote, error) {
	return s.repo.Get(ctx, accountID, id)
}

func (s *Service) List(ctx context.Context, req ListQuotesRequest) ([]Quote, int, error) {
	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 50
	}
	return s.repo.List(ctx, req)
}

// ExpireOverdue is the nightly sweep behind the pending→expired transition.
func (s *Service) ExpireOverdue(ctx context.Context) (int64, error) {
	return s.repo.ExpireOverdue(ctx, s.now())
}
