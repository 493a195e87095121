package scheduling

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/limpio-app/limpio/internal/clients"
	"github.com/limpio-app/limpio/internal/invoices"
	_ "github.com/limpio-app/limpio/internal/testing/guard"
)

type memoryRepo struct {
	jobs   map[int64]*Job
	nextID int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{jobs: map[int64]*Job{}}
}

func (m *memoryRepo) Get(_ context.Context, accountID, id int64) (*Job, error) {
	j, ok := m.jobs[id]
	if !ok || j.AccountID != accountID {
		return nil, ErrNotFound
	}
	out := *j
	return &out, nil
}

func (m *memoryRepo) List(_ context.Context, req ListJobsRequest) ([]Job, int, error) {
	var out []Job
	for _, j := range m.jobs {
		if j.AccountID == req.AccountID {
			out = append(out, *j)
		}
	}
	return out, len(out), nil
}

func (m *memoryRepo) ListActive(_ context.Context, accountID int64) ([]Job, error) {
	var out []Job
	for _, j := range m.jobs {
		if j.AccountID == accountID && j.Status != StatusCancelled && j.Status != StatusCompleted {
			out = append(out, *j)
		}
	}
	return out, nil
}

func (m *memoryRepo) Create(_ context.Context, j Job) (int64, error) {
	m.nextID++
	j.ID = m.nextID
	m.jobs[j.ID] = &j
	return j.ID, nil
}

func (m *memoryRepo) Update(_ context.Context, accountID, id int64, updates map[string]any) error {
	j, ok := m.jobs[id]
	if !ok || j.AccountID != accountID {
		return ErrNotFound
	}
	if v, ok := updates["title"]; ok {
		j.Title = v.(string)
	}
	if v, ok := updates["status"]; ok {
		j.Status = v.(JobStatus)
	}
	if v, ok := updates["start_at"]; ok {
		j.StartAt = v.(time.Time)
	}
	if v, ok := updates["end_at"]; ok {
		j.EndAt = v.(time.Time)
	}
	return nil
}

func (m *memoryRepo) Complete(_ context.Context, accountID, id, invoiceID int64) error {
	j, ok := m.jobs[id]
	if !ok || j.AccountID != accountID {
		return ErrNotFound
	}
	j.Status = StatusCompleted
	j.InvoiceID = &invoiceID
	return nil
}

func (m *memoryRepo) Delete(_ context.Context, accountID, id int64) error {
	j, ok := m.jobs[id]
	if !ok || j.AccountID != accountID {
		return ErrNotFound
	}
	delete(m.jobs, id)
	return nil
}

type memoryClientRepo struct{}

func (memoryClientRepo) Get(_ context.Context, _, id int64) (*clients.Client, error) {
	if id != 1 {
		return nil, clients.ErrNotFound
	}
	return &clients.Client{ID: id, Name: "Cliente"}, nil
}

func (memoryClientRepo) List(context.Context, clients.ListClientsRequest) ([]clients.Client, int, error) {
	return nil, 0, nil
}
func (memoryClientRepo) Create(context.Context, clients.Client) (int64, error) { return 0, nil }
func (memoryClientRepo) Update(context.Context, int64, int64, map[string]any) error {
	return nil
}
func (memoryClientRepo) Delete(context.Context, int64, int64) error { return nil }
func (memoryClientRepo) CountInvoiceRefs(context.Context, int64, int64) (int, error) {
	return 0, nil
}
func (memoryClientRepo) First(context.Context, int64) (*clients.Client, error) {
	return nil, clients.ErrNotFound
}

type stubInvoicer struct {
	reqs []invoices.SourceInvoiceInput
	err  error
}

func (s *stubInvoicer) TaxRate() decimal.Decimal {
	return decimal.NewFromInt(21)
}

func (s *stubInvoicer) CreateFromSource(_ context.Context, _ int64, input invoices.SourceInvoiceInput) (*invoices.Invoice, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.reqs = append(s.reqs, input)
	return &invoices.Invoice{ID: int64(500 + len(s.reqs)), Number: "F-0001", ClientID: input.ClientID}, nil
}

type stubSyncer struct {
	pushed    []int64
	removed   []int64
	pushErr   error
	removeErr error
}

func (s *stubSyncer) PushJob(_ context.Context, _ int64, jobID int64) error {
	if s.pushErr != nil {
		return s.pushErr
	}
	s.pushed = append(s.pushed, jobID)
	return nil
}

func (s *stubSyncer) RemoveJobEvent(_ context.Context, _ int64, jobID int64) error {
	if s.removeErr != nil {
		return s.removeErr
	}
	s.removed = append(s.removed, jobID)
	return nil
}

func baseRequest() CreateJobRequest {
	price := 85.0
	return CreateJobRequest{
		ClientID:    1,
		Title:       "Limpieza de oficina",
		ServiceType: ServiceOffice,
		StartAt:     time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		EndAt:       time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC),
		Price:       &price,
	}
}

func TestCreateValidatesTimeRange(t *testing.T) {
	svc := NewService(slog.Default(), newMemoryRepo(), memoryClientRepo{}, &stubInvoicer{})

	req := baseRequest()
	req.EndAt = req.StartAt
	_, _, err := svc.Create(context.Background(), 1, req)
	require.ErrorIs(t, err, ErrEndBeforeStart)

	req.EndAt = req.StartAt.Add(-time.Hour)
	_, _, err = svc.Create(context.Background(), 1, req)
	require.ErrorIs(t, err, ErrEndBeforeStart)
}

func TestCreatePushesToCalendar(t *testing.T) {
	repo := newMemoryRepo()
	syncer := &stubSyncer{}
	svc := NewService(slog.Default(), repo, memoryClientRepo{}, &stubInvoicer{})
	svc.SetSyncer(syncer)

	job, warning, err := svc.Create(context.Background(), 1, baseRequest())
	require.NoError(t, err)
	require.Nil(t, warning)
	require.Equal(t, StatusPending, job.Status)
	require.Equal(t, []int64{job.ID}, syncer.pushed)
}

func TestCreateSurvivesPushFailure(t *testing.T) {
	repo := newMemoryRepo()
	syncer := &stubSyncer{pushErr: errors.New("calendar unavailable")}
	svc := NewService(slog.Default(), repo, memoryClientRepo{}, &stubInvoicer{})
	svc.SetSyncer(syncer)

	job, warning, err := svc.Create(context.Background(), 1, baseRequest())
	require.NoError(t, err)
	require.NotNil(t, job)
	require.NotNil(t, warning)
	require.Equal(t, job.ID, warning.JobID)
	require.Contains(t, warning.Message, "calendar unavailable")
}

func TestCompleteCreatesSingleLineInvoice(t *testing.T) {
	repo := newMemoryRepo()
	invoicer := &stubInvoicer{}
	svc := NewService(slog.Default(), repo, memoryClientRepo{}, invoicer)
	svc.now = func() time.Time { return time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC) }

	job, _, err := svc.Create(context.Background(), 1, baseRequest())
	require.NoError(t, err)

	invoice, _, err := svc.Complete(context.Background(), 1, job.ID)
	require.NoError(t, err)
	require.NotNil(t, invoice)
	require.Len(t, invoicer.reqs, 1)
	input := invoicer.reqs[0]
	require.Len(t, input.Lines, 1)
	require.Equal(t, "Limpieza de oficina", input.Lines[0].Concept)
	require.True(t, input.Lines[0].Quantity.Equal(decimal.NewFromInt(1)))
	require.True(t, input.Lines[0].UnitPrice.Equal(decimal.NewFromFloat(85)))
	require.True(t, input.Subtotal.Equal(decimal.NewFromFloat(85)))
	require.True(t, input.Tax.Equal(decimal.NewFromFloat(17.85)))
	require.True(t, input.Total.Equal(decimal.NewFromFloat(102.85)))

	done, err := svc.Get(context.Background(), 1, job.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, done.Status)
	require.NotNil(t, done.InvoiceID)
	require.Equal(t, invoice.ID, *done.InvoiceID)
}

func TestCompleteWithoutPriceBillsZero(t *testing.T) {
	repo := newMemoryRepo()
	invoicer := &stubInvoicer{}
	svc := NewService(slog.Default(), repo, memoryClientRepo{}, invoicer)

	req := baseRequest()
	req.Price = nil
	job, _, err := svc.Create(context.Background(), 1, req)
	require.NoError(t, err)

	_, _, err = svc.Complete(context.Background(), 1, job.ID)
	require.NoError(t, err)
	require.True(t, invoicer.reqs[0].Lines[0].UnitPrice.IsZero())
	require.True(t, invoicer.reqs[0].Total.IsZero())
}

func TestCompleteTwiceFailsWithoutWrites(t *testing.T) {
	repo := newMemoryRepo()
	invoicer := &stubInvoicer{}
	svc := NewService(slog.Default(), repo, memoryClientRepo{}, invoicer)

	job, _, err := svc.Create(context.Background(), 1, baseRequest())
	require.NoError(t, err)
	_, _, err = svc.Complete(context.Background(), 1, job.ID)
	require.NoError(t, err)

	_, _, err = svc.Complete(context.Background(), 1, job.ID)
	require.ErrorIs(t, err, ErrAlreadyInvoiced)
	require.Len(t, invoicer.reqs, 1)
}

func TestCompleteInvoiceFailureLeavesJobUntouched(t *testing.T) {
	repo := newMemoryRepo()
	invoicer := &stubInvoicer{err: errors.New("sequence exhausted")}
	svc := NewService(slog.Default(), repo, memoryClientRepo{}, invoicer)

	job, _, err := svc.Create(context.Background(), 1, baseRequest())
	require.NoError(t, err)

	_, _, err = svc.Complete(context.Background(), 1, job.ID)
	require.Error(t, err)

	got, err := svc.Get(context.Background(), 1, job.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPending, got.Status)
	require.Nil(t, got.InvoiceID)
}

func TestUpdateMergedRangeValidation(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(slog.Default(), repo, memoryClientRepo{}, &stubInvoicer{})

	job, _, err := svc.Create(context.Background(), 1, baseRequest())
	require.NoError(t, err)

	// Moving the start past the existing end must fail even though
	// the request alone looks harmless.
	badStart := job.EndAt.Add(time.Hour)
	_, _, err = svc.Update(context.Background(), 1, job.ID, UpdateJobRequest{StartAt: &badStart})
	require.ErrorIs(t, err, ErrEndBeforeStart)

	newStart := job.StartAt.Add(30 * time.Minute)
	updated, _, err := svc.Update(context.Background(), 1, job.ID, UpdateJobRequest{StartAt: &newStart})
	require.NoError(t, err)
	require.Equal(t, newStart, updated.StartAt)
}

func TestDeleteRemovesEventBestEffort(t *testing.T) {
	repo := newMemoryRepo()
	syncer := &stubSyncer{removeErr: errors.New("event gone")}
	svc := NewService(slog.Default(), repo, memoryClientRepo{}, &stubInvoicer{})
	svc.SetSyncer(syncer)

	job, _, err := svc.Create(context.Background(), 1, baseRequest())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), 1, job.ID))
	_, err = svc.Get(context.Background(), 1, job.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCreateRecurringOffsets(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(slog.Default(), repo, memoryClientRepo{}, &stubInvoicer{})

	req := baseRequest()
	req.StartAt = time.Date(2026, 1, 31, 9, 0, 0, 0, time.UTC)
	req.EndAt = time.Date(2026, 1, 31, 11, 0, 0, 0, time.UTC)
	base, _, err := svc.Create(context.Background(), 1, req)
	require.NoError(t, err)

	weekly, err := svc.CreateRecurring(context.Background(), 1, base.ID, 2, RecurWeekly)
	require.NoError(t, err)
	require.Len(t, weekly, 2)
	require.Equal(t, base.StartAt.AddDate(0, 0, 7), weekly[0].Job.StartAt)
	require.Equal(t, base.StartAt.AddDate(0, 0, 14), weekly[1].Job.StartAt)
	require.True(t, weekly[0].Job.IsRecurring)
	require.NotNil(t, weekly[0].Job.ParentJobID)
	require.Equal(t, base.ID, *weekly[0].Job.ParentJobID)
	require.Equal(t, RecurWeekly, *weekly[0].Job.RecurrencePattern)

	// Jan 31 + 1 calendar month normalizes to Mar 3 in a non-leap year.
	monthly, err := svc.CreateRecurring(context.Background(), 1, base.ID, 1, RecurMonthly)
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC), monthly[0].Job.StartAt)
	require.Equal(t, time.Date(2026, 3, 3, 11, 0, 0, 0, time.UTC), monthly[0].Job.EndAt)
}

func TestCreateRecurringInvalidPattern(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(slog.Default(), repo, memoryClientRepo{}, &stubInvoicer{})

	base, _, err := svc.Create(context.Background(), 1, baseRequest())
	require.NoError(t, err)

	_, err = svc.CreateRecurring(context.Background(), 1, base.ID, 3, RecurrencePattern("daily"))
	require.ErrorIs(t, err, ErrInvalidPattern)
}

func TestCreateRecurringCopiesPrice(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(slog.Default(), repo, memoryClientRepo{}, &stubInvoicer{})

	base, _, err := svc.Create(context.Background(), 1, baseRequest())
	require.NoError(t, err)

	results, err := svc.CreateRecurring(context.Background(), 1, base.ID, 1, RecurBiweekly)
	require.NoError(t, err)
	require.NotNil(t, results[0].Job.Price)
	require.True(t, results[0].Job.Price.Equal(decimal.NewFromFloat(85)))
}
