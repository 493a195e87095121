package expenses

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"
)

// Service implements expense and category operations.
type Service struct {
	logger *slog.Logger
	repo   Repository
}

// NewService constructs an expense Service.
func NewService(logger *slog.Logger, repo Repository) *Service {
	return &Service{logger: logger, repo: repo}
}

func (s *Service) Get(ctx context.Context, accountID, id int64) (*Expense, error) {
	return s.repo.Get(ctx, accountID, id)
}

func (s *Service) List(ctx context.Context, req ListExpensesRequest) ([]Expense, int, error) {
	return s.repo.List(ctx, req)
}

func (s *Service) Create(ctx context.Context, accountID int64, req CreateExpenseRequest) (*Expense, error) {
	e := Expense{
		AccountID:   accountID,
		CategoryID:  req.CategoryID,
		Description: req.Description,
		Amount:      decimal.NewFromFloat(req.Amount).Round(2),
		ExpenseDate: req.ExpenseDate,
		Notes:       req.Notes,
	}
	id, err := s.repo.Create(ctx, e)
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, accountID, id)
}

func (s *Service) Update(ctx context.Context, accountID, id int64, req UpdateExpenseRequest) (*Expense, error) {
	updates := map[string]any{}
	if req.CategoryID != nil {
		updates["category_id"] = *req.CategoryID
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Amount != nil {
		updates["amount"] = decimal.NewFromFloat(*req.Amount).Round(2).String()
	}
	if req.ExpenseDate != nil {
		updates["expense_date"] = *req.ExpenseDate
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}
	if err := s.repo.Update(ctx, accountID, id, updates); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, accountID, id)
}

func (s *Service) Delete(ctx context.Context, accountID, id int64) error {
	return s.repo.Delete(ctx, accountID, id)
}

func (s *Service) ListCategories(ctx context.Context, accountID int64) ([]Category, error) {
	return s.repo.ListCategories(ctx, accountID)
}

func (s *Service) CreateCategory(ctx context.Context, accountID int64, req CategoryRequest) (int64, error) {
	return s.repo.CreateCategory(ctx, Category{AccountID: accountID, Name: req.Name, Color: req.Color})
}

func (s *Service) UpdateCategory(ctx context.Context, accountID, id int64, req CategoryRequest) error {
	return s.repo.UpdateCategory(ctx, accountID, id, req.Name, req.Color)
}

func (s *Service) DeleteCategory(ctx context.Context, accountID, id int64) error {
	return s.repo.DeleteCategory(ctx, accountID, id)
}
