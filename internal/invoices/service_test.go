package invoices

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/limpio-app/limpio/internal/clients"
	_ "github.com/limpio-app/limpio/internal/testing/guard"
)

type memoryRepo struct {
	invoices map[int64]*Invoice
	lines    map[int64][]InvoiceLine
	nextID   int64
	seq      int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{invoices: map[int64]*Invoice{}, lines: map[int64][]InvoiceLine{}}
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, m)
}

func (m *memoryRepo) Get(_ context.Context, accountID, id int64) (*Invoice, error) {
	inv, ok := m.invoices[id]
	if !ok || inv.AccountID != accountID {
		return nil, ErrNotFound
	}
	out := *inv
	out.Lines = append([]InvoiceLine(nil), m.lines[id]...)
	return &out, nil
}

func (m *memoryRepo) List(_ context.Context, req ListInvoicesRequest) ([]Invoice, int, error) {
	var out []Invoice
	for _, inv := range m.invoices {
		if inv.AccountID == req.AccountID {
			out = append(out, *inv)
		}
	}
	return out, len(out), nil
}

func (m *memoryRepo) Create(_ context.Context, inv Invoice) (int64, error) {
	m.nextID++
	inv.ID = m.nextID
	m.invoices[inv.ID] = &inv
	return inv.ID, nil
}

func (m *memoryRepo) Update(_ context.Context, accountID, id int64, updates map[string]any) error {
	inv, ok := m.invoices[id]
	if !ok || inv.AccountID != accountID {
		return ErrNotFound
	}
	if v, ok := updates["notes"]; ok {
		s := v.(string)
		inv.Notes = &s
	}
	if v, ok := updates["subtotal"]; ok {
		inv.Subtotal = decimal.RequireFromString(v.(string))
	}
	if v, ok := updates["tax"]; ok {
		inv.Tax = decimal.RequireFromString(v.(string))
	}
	if v, ok := updates["total"]; ok {
		inv.Total = decimal.RequireFromString(v.(string))
	}
	if v, ok := updates["due_date"]; ok {
		d := v.(time.Time)
		inv.DueDate = &d
	}
	return nil
}

func (m *memoryRepo) InsertLine(_ context.Context, line InvoiceLine) error {
	m.lines[line.InvoiceID] = append(m.lines[line.InvoiceID], line)
	return nil
}

func (m *memoryRepo) DeleteLines(_ context.Context, invoiceID int64) error {
	delete(m.lines, invoiceID)
	return nil
}

func (m *memoryRepo) UpdateStatus(_ context.Context, accountID, id int64, status InvoiceStatus) error {
	inv, ok := m.invoices[id]
	if !ok || inv.AccountID != accountID {
		return ErrNotFound
	}
	inv.Status = status
	return nil
}

func (m *memoryRepo) Delete(_ context.Context, accountID, id int64) error {
	inv, ok := m.invoices[id]
	if !ok || inv.AccountID != accountID {
		return ErrNotFound
	}
	delete(m.invoices, id)
	delete(m.lines, id)
	return nil
}

func (m *memoryRepo) NextNumber(_ context.Context, _ int64) (string, error) {
	m.seq++
	return fmt.Sprintf("F-%04d", m.seq), nil
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

func issueDate() time.Time {
	return time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
}

func TestCreateNumbersSequentially(t *testing.T) {
	svc := NewService(newMemoryRepo(), memoryClientRepo{}, 21)

	req := CreateInvoiceRequest{
		ClientID:  1,
		IssueDate: issueDate(),
		Lines:     []LineInput{{Concept: "Limpieza mensual", Quantity: 1, UnitPrice: 120}},
	}

	first, err := svc.Create(context.Background(), 1, req)
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), 1, req)
	require.NoError(t, err)

	require.Equal(t, "F-0001", first.Number)
	require.Equal(t, "F-0002", second.Number)
	require.Equal(t, StatusDraft, first.Status)
	require.True(t, first.Subtotal.Equal(decimal.RequireFromString("120.00")), first.Subtotal.String())
	require.True(t, first.Tax.Equal(decimal.RequireFromString("25.20")), first.Tax.String())
	require.True(t, first.Total.Equal(decimal.RequireFromString("145.20")), first.Total.String())
}

func TestCreateRoundsPerLine(t *testing.T) {
	svc := NewService(newMemoryRepo(), memoryClientRepo{}, 21)

	inv, err := svc.Create(context.Background(), 1, CreateInvoiceRequest{
		ClientID:  1,
		IssueDate: issueDate(),
		Lines: []LineInput{
			{Concept: "Horas extra", Quantity: 3, UnitPrice: 0.335},
			{Concept: "Material", Quantity: 1, UnitPrice: 0.335},
		},
	})
	require.NoError(t, err)

	// Each line rounds before summing: 1.01 + 0.34, not round(1.34).
	require.True(t, inv.Lines[0].LineTotal.Equal(decimal.RequireFromString("1.01")))
	require.True(t, inv.Lines[1].LineTotal.Equal(decimal.RequireFromString("0.34")))
	require.True(t, inv.Subtotal.Equal(decimal.RequireFromString("1.35")), inv.Subtotal.String())
}

func TestCreateFromSourceCopiesVerbatim(t *testing.T) {
	svc := NewService(newMemoryRepo(), memoryClientRepo{}, 21)

	notes := "del presupuesto P-0007"
	inv, err := svc.CreateFromSource(context.Background(), 1, SourceInvoiceInput{
		ClientID:  1,
		IssueDate: issueDate(),
		Subtotal:  decimal.RequireFromString("25.56"),
		Tax:       decimal.RequireFromString("5.37"),
		Total:     decimal.RequireFromString("30.93"),
		Notes:     &notes,
		Lines: []SourceLine{{
			Concept:   "Limpieza general",
			Quantity:  decimal.NewFromInt(2),
			UnitPrice: decimal.RequireFromString("10.00"),
			LineTotal: decimal.RequireFromString("20.00"),
		}},
	})
	require.NoError(t, err)

	require.Equal(t, "F-0001", inv.Number)
	require.Equal(t, StatusDraft, inv.Status)
	require.True(t, inv.Subtotal.Equal(decimal.RequireFromString("25.56")))
	require.True(t, inv.Tax.Equal(decimal.RequireFromString("5.37")))
	require.True(t, inv.Total.Equal(decimal.RequireFromString("30.93")))
	require.Len(t, inv.Lines, 1)
	require.Equal(t, 1, inv.Lines[0].LineOrder)
}

func TestUpdateReplacesLines(t *testing.T) {
	svc := NewService(newMemoryRepo(), memoryClientRepo{}, 21)

	inv, err := svc.Create(context.Background(), 1, CreateInvoiceRequest{
		ClientID:  1,
		IssueDate: issueDate(),
		Lines:     []LineInput{{Concept: "Limpieza", Quantity: 1, UnitPrice: 100}},
	})
	require.NoError(t, err)

	lines := []LineInput{
		{Concept: "Limpieza", Quantity: 1, UnitPrice: 100},
		{Concept: "Cristales", Quantity: 2, UnitPrice: 25},
	}
	updated, err := svc.Update(context.Background(), 1, inv.ID, UpdateInvoiceRequest{Lines: &lines})
	require.NoError(t, err)
	require.Len(t, updated.Lines, 2)
	require.True(t, updated.Subtotal.Equal(decimal.RequireFromString("150.00")), updated.Subtotal.String())
	require.True(t, updated.Total.Equal(decimal.RequireFromString("181.50")), updated.Total.String())
}

func TestSetStatus(t *testing.T) {
	svc := NewService(newMemoryRepo(), memoryClientRepo{}, 21)

	inv, err := svc.Create(context.Background(), 1, CreateInvoiceRequest{
		ClientID:  1,
		IssueDate: issueDate(),
		Lines:     []LineInput{{Concept: "Limpieza", Quantity: 1, UnitPrice: 50}},
	})
	require.NoError(t, err)

	sent, err := svc.SetStatus(context.Background(), 1, inv.ID, StatusSent)
	require.NoError(t, err)
	require.Equal(t, StatusSent, sent.Status)

	paid, err := svc.SetStatus(context.Background(), 1, inv.ID, StatusPaid)
	require.NoError(t, err)
	require.Equal(t, StatusPaid, paid.Status)

	// Paid can be walked back to sent after a bank error.
	back, err := svc.SetStatus(context.Background(), 1, inv.ID, StatusSent)
	require.NoError(t, err)
	require.Equal(t, StatusSent, back.Status)

	_, err = svc.SetStatus(context.Background(), 1, inv.ID, InvoiceStatus("void"))
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestCreateUnknownClient(t *testing.T) {
	svc := NewService(newMemoryRepo(), memoryClientRepo{}, 21)

	_, err := svc.Create(context.Background(), 1, CreateInvoiceRequest{
		ClientID:  42,
		IssueDate: issueDate(),
		Lines:     []LineInput{{Concept: "Limpieza", Quantity: 1, UnitPrice: 50}},
	})
	require.ErrorIs(t, err, clients.ErrNotFound)
}

func TestAccountScoping(t *testing.T) {
	svc := NewService(newMemoryRepo(), memoryClientRepo{}, 21)

	inv, err := svc.Create(context.Background(), 1, CreateInvoiceRequest{
		ClientID:  1,
		IssueDate: issueDate(),
		Lines:     []LineInput{{Concept: "Limpieza", Quantity: 1, UnitPrice: 50}},
	})
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), 2, inv.ID)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, svc.Delete(context.Background(), 2, inv.ID), ErrNotFound)
}
