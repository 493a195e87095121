package expenses

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	_ "github.com/limpio-app/limpio/internal/testing/guard"
)

type memoryRepo struct {
	expenses   map[int64]*Expense
	categories map[int64]*Category
	nextID     int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{expenses: map[int64]*Expense{}, categories: map[int64]*Category{}}
}

func (m *memoryRepo) Get(_ context.Context, accountID, id int64) (*Expense, error) {
	e, ok := m.expenses[id]
	if !ok || e.AccountID != accountID {
		return nil, ErrNotFound
	}
	out := *e
	return &out, nil
}

func (m *memoryRepo) List(_ context.Context, req ListExpensesRequest) ([]Expense, int, error) {
	var out []Expense
	for _, e := range m.expenses {
		if e.AccountID != req.AccountID {
			continue
		}
		if req.CategoryID != nil && (e.CategoryID == nil || *e.CategoryID != *req.CategoryID) {
			continue
		}
		out = append(out, *e)
	}
	return out, len(out), nil
}

func (m *memoryRepo) Create(_ context.Context, e Expense) (int64, error) {
	m.nextID++
	e.ID = m.nextID
	m.expenses[e.ID] = &e
	return e.ID, nil
}

func (m *memoryRepo) Update(_ context.Context, accountID, id int64, updates map[string]any) error {
	e, ok := m.expenses[id]
	if !ok || e.AccountID != accountID {
		return ErrNotFound
	}
	if v, ok := updates["description"]; ok {
		e.Description = v.(string)
	}
	if v, ok := updates["amount"]; ok {
		e.Amount = decimal.RequireFromString(v.(string))
	}
	if v, ok := updates["category_id"]; ok {
		id := v.(int64)
		e.CategoryID = &id
	}
	return nil
}

func (m *memoryRepo) Delete(_ context.Context, accountID, id int64) error {
	e, ok := m.expenses[id]
	if !ok || e.AccountID != accountID {
		return ErrNotFound
	}
	delete(m.expenses, id)
	return nil
}

func (m *memoryRepo) ListCategories(_ context.Context, accountID int64) ([]Category, error) {
	var out []Category
	for _, c := range m.categories {
		if c.AccountID == accountID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *memoryRepo) CreateCategory(_ context.Context, c Category) (int64, error) {
	m.nextID++
	c.ID = m.nextID
	m.categories[c.ID] = &c
	return c.ID, nil
}

func (m *memoryRepo) UpdateCategory(_ context.Context, accountID, id int64, name string, color *string) error {
	c, ok := m.categories[id]
	if !ok || c.AccountID != accountID {
		return ErrCategoryNotFound
	}
	c.Name = name
	c.Color = color
	return nil
}

func (m *memoryRepo) DeleteCategory(_ context.Context, accountID, id int64) error {
	c, ok := m.categories[id]
	if !ok || c.AccountID != accountID {
		return ErrCategoryNotFound
	}
	for _, e := range m.expenses {
		if e.CategoryID != nil && *e.CategoryID == id {
			e.CategoryID = nil
		}
	}
	delete(m.categories, id)
	return nil
}

func expenseDate() time.Time {
	return time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
}

func TestCreateRoundsAmount(t *testing.T) {
	svc := NewService(slog.Default(), newMemoryRepo())

	e, err := svc.Create(context.Background(), 1, CreateExpenseRequest{
		Description: "Productos de limpieza",
		Amount:      34.555,
		ExpenseDate: expenseDate(),
	})
	require.NoError(t, err)
	require.True(t, e.Amount.Equal(decimal.RequireFromString("34.56")), e.Amount.String())
}

func TestUpdateAmount(t *testing.T) {
	svc := NewService(slog.Default(), newMemoryRepo())

	e, err := svc.Create(context.Background(), 1, CreateExpenseRequest{
		Description: "Gasolina",
		Amount:      40,
		ExpenseDate: expenseDate(),
	})
	require.NoError(t, err)

	amount := 45.994
	updated, err := svc.Update(context.Background(), 1, e.ID, UpdateExpenseRequest{Amount: &amount})
	require.NoError(t, err)
	require.True(t, updated.Amount.Equal(decimal.RequireFromString("45.99")), updated.Amount.String())
	require.Equal(t, "Gasolina", updated.Description)
}

func TestDeleteCategoryDetachesExpenses(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(slog.Default(), repo)

	catID, err := svc.CreateCategory(context.Background(), 1, CategoryRequest{Name: "Material"})
	require.NoError(t, err)

	e, err := svc.Create(context.Background(), 1, CreateExpenseRequest{
		CategoryID:  &catID,
		Description: "Fregonas",
		Amount:      12.50,
		ExpenseDate: expenseDate(),
	})
	require.NoError(t, err)
	require.NotNil(t, e.CategoryID)

	require.NoError(t, svc.DeleteCategory(context.Background(), 1, catID))

	// The expense survives without a category.
	got, err := svc.Get(context.Background(), 1, e.ID)
	require.NoError(t, err)
	require.Nil(t, got.CategoryID)

	cats, err := svc.ListCategories(context.Background(), 1)
	require.NoError(t, err)
	require.Empty(t, cats)
}

func TestListFiltersByCategory(t *testing.T) {
	svc := NewService(slog.Default(), newMemoryRepo())

	catID, err := svc.CreateCategory(context.Background(), 1, CategoryRequest{Name: "Material"})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), 1, CreateExpenseRequest{
		CategoryID:  &catID,
		Description: "Fregonas",
		Amount:      12.50,
		ExpenseDate: expenseDate(),
	})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), 1, CreateExpenseRequest{
		Description: "Gasolina",
		Amount:      40,
		ExpenseDate: expenseDate(),
	})
	require.NoError(t, err)

	list, total, err := svc.List(context.Background(), ListExpensesRequest{AccountID: 1, CategoryID: &catID})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, "Fregonas", list[0].Description)
}

func TestAccountScoping(t *testing.T) {
	svc := NewService(slog.Default(), newMemoryRepo())

	e, err := svc.Create(context.Background(), 1, CreateExpenseRequest{
		Description: "Gasolina",
		Amount:      40,
		ExpenseDate: expenseDate(),
	})
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), 2, e.ID)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, svc.Delete(context.Background(), 2, e.ID), ErrNotFound)
}
