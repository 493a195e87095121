package scheduling

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
	// ErrAlreadyInvoiced blocks completing a job that already produced an invoice.
	ErrAlreadyInvoiced = errors.New("job already invoiced")
	// ErrEndBeforeStart rejects time ranges that do not move forward.
	ErrEndBeforeStart = errors.New("end must be after start")
	// ErrInvalidPattern rejects unknown recurrence patterns.
	ErrInvalidPattern = errors.New("invalid recurrence pattern")
)

// Syncer pushes jobs to and removes them from the external calendar.
// Calendar sync is always secondary to local data integrity: the scheduler
// records push failures as warnings and never fails a mutation over them.
type Syncer interface {
	PushJob(ctx context.Context, accountID, jobID int64) error
	RemoveJobEvent(ctx context.Context, accountID, jobID int64) error
}

// InvoiceCreator is the slice of the invoice engine used on job completion.
// The source-document path keeps the agreed price in decimals end to end.
type InvoiceCreator interface {
	TaxRate() decimal.Decimal
	CreateFromSource(ctx context.Context, accountID int64, input invoices.SourceInvoiceInput) (*invoices.Invoice, error)
}

// Service manages scheduled jobs and their completion-triggers-invoice behavior.
type Service struct {
	logger     *slog.Logger
	repo       Repository
	clientRepo clients.Repository
	invoicer   InvoiceCreator
	syncer     Syncer
	now        func() time.Time
}

// NewService constructs a new Service. The calendar syncer is attached
// afterwards via SetSyncer because the bridge itself reads jobs through
// this package.
func NewService(logger *slog.Logger, repo Repository, clientRepo clients.Repository, invoicer InvoiceCreator) *Service {
	return &Service{
		logger:     logger,
		repo:       repo,
		clientRepo: clientRepo,
		invoicer:   invoicer,
		now:        time.Now,
	}
}

// SetSyncer wires the calendar bridge in.
func (s *Service) SetSyncer(syncer Syncer) {
	s.syncer = syncer
}

// pushBestEffort pushes one job to the calendar without ever failing the
// caller. The outcome is returned as an optional warning.
func (s *Service) pushBestEffort(ctx context.Context, accountID, jobID int64) *SyncWarning {
	if s.syncer == nil {
		return nil
	}
	if err := s.syncer.PushJob(ctx, accountID, jobID); err != nil {
		s.logger.Warn("calendar push failed",
			slog.Int64("job_id", jobID),
			slog.Any("error", err))
		return &SyncWarning{JobID: jobID, Message: err.Error()}
	}
	return nil
}

// Create persists a job and best-effort pushes it to the calendar.
func (s *Service) Create(ctx context.Context, accountID int64, req CreateJobRequest) (*Job, *SyncWarning, error) {
	if !req.EndAt.After(req.StartAt) {
		return nil, nil, ErrEndBeforeStart
	}
	if !req.ServiceType.Valid() {
		return nil, nil, fmt.Errorf("unknown service type %q", req.ServiceType)
	}
	if _, err := s.clientRepo.Get(ctx, accountID, req.ClientID); err != nil {
		return nil, nil, fmt.Errorf("verify client: %w", err)
	}

	job := Job{
		AccountID:   accountID,
		ClientID:    req.ClientID,
		Title:       req.Title,
		Description: req.Description,
		ServiceType: req.ServiceType,
		Status:      StatusPending,
		StartAt:     req.StartAt,
		EndAt:       req.EndAt,
		Address:     req.Address,
	}
	if req.Price != nil {
		p := decimal.NewFromFloat(*req.Price)
		job.Price = &p
	}

	id, err := s.repo.Create(ctx, job)
	if err != nil {
		return nil, nil, fmt.Errorf("create job: %w", err)
	}

	warning := s.pushBestEffort(ctx, accountID, id)

	created, err := s.repo.Get(ctx, accountID, id)
	if err != nil {
		return nil, warning, err
	}
	return created, warning, nil
}

// Update applies a partial update, re-validating the time range against the
// merged result, then best-effort re-pushes the job.
func (s *Service) Update(ctx context.Context, accountID, id int64, req UpdateJobRequest) (*Job, *SyncWarning, error) {
	existing, err := s.repo.Get(ctx, accountID, id)
	if err != nil {
		return nil, nil, err
	}

	start := existing.StartAt
	end := existing.EndAt
	if req.StartAt != nil {
		start = *req.StartAt
	}
	if req.EndAt != nil {
		end = *req.EndAt
	}
	if !end.After(start) {
		return nil, nil, ErrEndBeforeStart
	}

	if req.ClientID != nil {
		if _, err := s.clientRepo.Get(ctx, accountID, *req.ClientID); err != nil {
			return nil, nil, fmt.Errorf("verify client: %w", err)
		}
	}
	if req.ServiceType != nil && !req.ServiceType.Valid() {
		return nil, nil, fmt.Errorf("unknown service type %q", *req.ServiceType)
	}
	if req.Status != nil && !req.Status.Valid() {
		return nil, nil, fmt.Errorf("unknown job status %q", *req.Status)
	}

	updates := make(map[string]any)
	if req.ClientID != nil {
		updates["client_id"] = *req.ClientID
	}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.ServiceType != nil {
		updates["service_type"] = *req.ServiceType
	}
	if req.Status != nil {
		updates["status"] = *req.Status
	}
	if req.StartAt != nil {
		updates["start_at"] = *req.StartAt
	}
	if req.EndAt != nil {
		updates["end_at"] = *req.EndAt
	}
	if req.Address != nil {
		updates["address"] = *req.Address
	}
	if req.Price != nil {
		updates["price"] = decimal.NewFromFloat(*req.Price).String()
	}

	if len(updates) > 0 {
		if err := s.repo.Update(ctx, accountID, id, updates); err != nil {
			return nil, nil, fmt.Errorf("update job: %w", err)
		}
	}

	warning := s.pushBestEffort(ctx, accountID, id)

	updated, err := s.repo.Get(ctx, accountID, id)
	if err != nil {
		return nil, warning, err
	}
	return updated, warning, nil
}

// Delete removes the external event best-effort first, then always deletes
// the local row. A failed or impossible external delete never blocks it.
func (s *Service) Delete(ctx context.Context, accountID, id int64) error {
	if _, err := s.repo.Get(ctx, accountID, id); err != nil {
		return err
	}
	if s.syncer != nil {
		if err := s.syncer.RemoveJobEvent(ctx, accountID, id); err != nil {
			s.logger.Warn("external event delete failed, deleting local job anyway",
				slog.Int64("job_id", id),
				slog.Any("error", err))
		}
	}
	return s.repo.Delete(ctx, accountID, id)
}

// Complete marks the job completed, creates its invoice (one line: the job
// title at the agreed price, or zero) and links it. A job that already has
// an invoice cannot be completed again; no writes happen in that case.
func (s *Service) Complete(ctx context.Context, accountID, id int64) (*invoices.Invoice, *SyncWarning, error) {
	job, err := s.repo.Get(ctx, accountID, id)
	if err != nil {
		return nil, nil, err
	}
	if job.InvoiceID != nil {
		return nil, nil, ErrAlreadyInvoiced
	}

	price := decimal.Zero
	if job.Price != nil {
		price = *job.Price
	}
	one := decimal.NewFromInt(1)
	subtotal := shared.LineTotal(one, price)
	tax := shared.TaxAmount(subtotal, s.invoicer.TaxRate())

	invoice, err := s.invoicer.CreateFromSource(ctx, accountID, invoices.SourceInvoiceInput{
		ClientID:  job.ClientID,
		IssueDate: s.now(),
		Subtotal:  subtotal,
		Tax:       tax,
		Total:     subtotal.Add(tax),
		Lines: []invoices.SourceLine{{
			Concept:   job.Title,
			Quantity:  one,
			UnitPrice: price,
			LineTotal: subtotal,
		}},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create invoice for job: %w", err)
	}

	if err := s.repo.Complete(ctx, accountID, id, invoice.ID); err != nil {
		return nil, nil, fmt.Errorf("mark job completed: %w", err)
	}

	warning := s.pushBestEffort(ctx, accountID, id)
	return invoice, warning, nil
}

// CreateRecurring produces occurrences of a base job shifted by the pattern
// interval. Monthly recurrence follows real calendar months. Each occurrence
// is pushed to the calendar independently and its outcome reported.
func (s *Service) CreateRecurring(ctx context.Context, accountID, baseID int64, occurrences int, pattern RecurrencePattern) ([]OccurrenceResult, error) {
	if occurrences < 1 {
		return nil, errors.New("occurrences must be at least 1")
	}
	if !pattern.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPattern, pattern)
	}

	base, err := s.repo.Get(ctx, accountID, baseID)
	if err != nil {
		return nil, err
	}

	results := make([]OccurrenceResult, 0, occurrences)
	for i := 1; i <= occurrences; i++ {
		var start, end time.Time
		switch pattern {
		case RecurWeekly:
			start = base.StartAt.AddDate(0, 0, 7*i)
			end = base.EndAt.AddDate(0, 0, 7*i)
		case RecurBiweekly:
			start = base.StartAt.AddDate(0, 0, 14*i)
			end = base.EndAt.AddDate(0, 0, 14*i)
		case RecurMonthly:
			start = base.StartAt.AddDate(0, i, 0)
			end = base.EndAt.AddDate(0, i, 0)
		}

		p := pattern
		job := Job{
			AccountID:         accountID,
			ClientID:          base.ClientID,
			Title:             base.Title,
			Description:       base.Description,
			ServiceType:       base.ServiceType,
			Status:            StatusPending,
			StartAt:           start,
			EndAt:             end,
			Address:           base.Address,
			Price:             base.Price,
			IsRecurring:       true,
			RecurrencePattern: &p,
			ParentJobID:       &base.ID,
		}

		id, err := s.repo.Create(ctx, job)
		if err != nil {
			return results, fmt.Errorf("create occurrence %d: %w", i, err)
		}

		warning := s.pushBestEffort(ctx, accountID, id)
		created, err := s.repo.Get(ctx, accountID, id)
		if err != nil {
			return results, err
		}
		results = append(results, OccurrenceResult{Job: created, SyncWarning: warning})
	}

	return results, nil
}

func (s *Service) Get(ctx context.Context, accountID, id int64) (*Job, error) {
	return s.repo.Get(ctx, accountID, id)
}

func (s *Service) List(ctx context.Context, req ListJobsRequest) ([]Job, int, error) {
	if req.Limit <= 0 || req.Limit > 200 {
		req.Limit = 100
	}
	return s.repo.List(ctx, req)
}
