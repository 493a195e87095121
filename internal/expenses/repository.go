package expenses

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/limpio-app/limpio/internal/platform/db"
)

var (
	// ErrNotFound indicates an expense that does not exist or belongs to another account.
	ErrNotFound = errors.New("expense not found")
	// ErrCategoryNotFound indicates a missing category.
	ErrCategoryNotFound = errors.New("category not found")
)

// Repository provides expense and category persistence, scoped by account id.
type Repository interface {
	Get(ctx context.Context, accountID, id int64) (*Expense, error)
	List(ctx context.Context, req ListExpensesRequest) ([]Expense, int, error)
	Create(ctx context.Context, e Expense) (int64, error)
	Update(ctx context.Context, accountID, id int64, updates map[string]any) error
	Delete(ctx context.Context, accountID, id int64) error

	ListCategories(ctx context.Context, accountID int64) ([]Category, error)
	CreateCategory(ctx context.Context, c Category) (int64, error)
	UpdateCategory(ctx context.Context, accountID, id int64, name string, color *string) error
	DeleteCategory(ctx context.Context, accountID, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a pgx-backed expense repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const expenseColumns = `id, account_id, category_id, description, amount, expense_date, notes, created_at, updated_at`

func (r *repository) Get(ctx context.Context, accountID, id int64) (*Expense, error) {
	row := r.pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT %s FROM expenses WHERE account_id = $1 AND id = $2
	`, expenseColumns), accountID, id)
	return scanExpense(row)
}

func (r *repository) List(ctx context.Context, req ListExpensesRequest) ([]Expense, int, error) {
	conditions := []string{"account_id = $1"}
	args := []any{req.AccountID}
	argPos := 2

	if req.CategoryID != nil {
		conditions = append(conditions, fmt.Sprintf("category_id = $%d", argPos))
		args = append(args, *req.CategoryID)
		argPos++
	}
	if req.From != nil {
		conditions = append(conditions, fmt.Sprintf("expense_date >= $%d", argPos))
		args = append(args, *req.From)
		argPos++
	}
	if req.To != nil {
		conditions = append(conditions, fmt.Sprintf("expense_date <= $%d", argPos))
		args = append(args, *req.To)
		argPos++
	}
	where := "WHERE " + strings.Join(conditions, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM expenses "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count expenses: %w", err)
	}

	limit := req.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	query := fmt.Sprintf(`
		SELECT %s FROM expenses %s
		ORDER BY expense_date DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, expenseColumns, where, argPos, argPos+1)
	args = append(args, limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *e)
	}
	return out, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, e Expense) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO expenses (account_id, category_id, description, amount, expense_date, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING id
	`, e.AccountID, e.CategoryID, e.Description, db.Numeric(e.Amount), e.ExpenseDate, e.Notes).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create expense: %w", err)
	}
	return id, nil
}

func (r *repository) Update(ctx context.Context, accountID, id int64, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	set := make([]string, 0, len(updates)+1)
	args := []any{accountID, id}
	argPos := 3
	for col, val := range updates {
		set = append(set, fmt.Sprintf("%s = $%d", col, argPos))
		args = append(args, val)
		argPos++
	}
	set = append(set, "updated_at = NOW()")

	tag, err := r.pool.Exec(ctx, fmt.Sprintf(`
		UPDATE expenses SET %s WHERE account_id = $1 AND id = $2
	`, strings.Join(set, ", ")), args...)
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, accountID, id int64) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM expenses WHERE account_id = $1 AND id = $2
	`, accountID, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) ListCategories(ctx context.Context, accountID int64) ([]Category, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, account_id, name, color, created_at
		FROM expense_categories WHERE account_id = $1 ORDER BY name
	`, accountID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.AccountID, &c.Name, &c.Color, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *repository) CreateCategory(ctx context.Context, c Category) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO expense_categories (account_id, name, color, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id
	`, c.AccountID, c.Name, c.Color).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create category: %w", err)
	}
	return id, nil
}

func (r *repository) UpdateCategory(ctx context.Context, accountID, id int64, name string, color *string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE expense_categories SET name = $3, color = $4
		WHERE account_id = $1 AND id = $2
	`, accountID, id, name, color)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

func (r *repository) DeleteCategory(ctx context.Context, accountID, id int64) error {
	// Expenses keep their rows, the reference is cleared.
	_, err := r.pool.Exec(ctx, `
		UPDATE expenses SET category_id = NULL
		WHERE account_id = $1 AND category_id = $2
	`, accountID, id)
	if err != nil {
		return fmt.Errorf("detach expenses: %w", err)
	}
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM expense_categories WHERE account_id = $1 AND id = $2
	`, accountID, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

func scanExpense(row pgx.Row) (*Expense, error) {
	var (
		e      Expense
		amount pgtype.Numeric
	)
	err := row.Scan(&e.ID, &e.AccountID, &e.CategoryID, &e.Description, &amount,
		&e.ExpenseDate, &e.Notes, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan expense: %w", err)
	}
	e.Amount = db.Decimal(amount)
	return &e, nil
}
