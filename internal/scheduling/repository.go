package scheduling

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/limpio-app/limpio/internal/platform/db"
)

// ErrNotFound indicates a job that does not exist or belongs to another account.
var ErrNotFound = errors.New("job not found")

// Repository provides job persistence, scoped by account id.
type Repository interface {
	Get(ctx context.Context, accountID, id int64) (*Job, error)
	List(ctx context.Context, req ListJobsRequest) ([]Job, int, error)
	ListActive(ctx context.Context, accountID int64) ([]Job, error)
	Create(ctx context.Context, j Job) (int64, error)
	Update(ctx context.Context, accountID, id int64, updates map[string]any) error
	Complete(ctx context.Context, accountID, id, invoiceID int64) error
	Delete(ctx context.Context, accountID, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a pgx-backed job repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const jobColumns = `id, account_id, client_id, title, description, service_type, status, start_at, end_at, address, price, is_recurring, recurrence_pattern, parent_job_id, invoice_id, created_at, updated_at`

func (r *repository) Get(ctx context.Context, accountID, id int64) (*Job, error) {
	row := r.pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT %s FROM jobs WHERE account_id = $1 AND id = $2
	`, jobColumns), accountID, id)
	return scanJob(row)
}

func (r *repository) List(ctx context.Context, req ListJobsRequest) ([]Job, int, error) {
	conditions := []string{"account_id = $1"}
	args := []any{req.AccountID}
	argPos := 2

	if req.ClientID != nil {
		conditions = append(conditions, fmt.Sprintf("client_id = $%d", argPos))
		args = append(args, *req.ClientID)
		argPos++
	}
	if req.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argPos))
		args = append(args, *req.Status)
		argPos++
	}
	if req.From != nil {
		conditions = append(conditions, fmt.Sprintf("start_at >= $%d", argPos))
		args = append(args, *req.From)
		argPos++
	}
	if req.To != nil {
		conditions = append(conditions, fmt.Sprintf("start_at <= $%d", argPos))
		args = append(args, *req.To)
		argPos++
	}

	whereClause := "WHERE " + conditions[0]
	for i := 1; i < len(conditions); i++ {
		whereClause += " AND " + conditions[i]
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM jobs "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT %s FROM jobs %s
		ORDER BY start_at DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, jobColumns, whereClause, argPos, argPos+1)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *j)
	}
	return out, total, rows.Err()
}

// ListActive returns every non-cancelled job of the account, in start order.
// Used by the push-all phase of the two-way sync.
func (r *repository) ListActive(ctx context.Context, accountID int64) ([]Job, error) {
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
		SELECT %s FROM jobs WHERE account_id = $1 AND status <> $2 ORDER BY start_at, id
	`, jobColumns), accountID, StatusCancelled)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *j)
	}
	return out, rows.Err()
}

func (r *repository) Create(ctx context.Context, j Job) (int64, error) {
	var price *pgtype.Numeric
	if j.Price != nil {
		n := db.Numeric(*j.Price)
		price = &n
	}
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO jobs (account_id, client_id, title, description, service_type, status, start_at, end_at, address, price, is_recurring, recurrence_pattern, parent_job_id, invoice_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id
	`, j.AccountID, j.ClientID, j.Title, j.Description, j.ServiceType, j.Status,
		j.StartAt, j.EndAt, j.Address, price, j.IsRecurring, j.RecurrencePattern,
		j.ParentJobID, j.InvoiceID).Scan(&id)
	return id, err
}

func (r *repository) Update(ctx context.Context, accountID, id int64, updates map[string]any) error {
	query := "UPDATE jobs SET updated_at = NOW()"
	var args []any
	argPos := 1
	for _, col := range []string{"client_id", "title", "description", "service_type", "status", "start_at", "end_at", "address", "price"} {
		if v, ok := updates[col]; ok {
			query += fmt.Sprintf(", %s = $%d", col, argPos)
			args = append(args, v)
			argPos++
		}
	}
	query += fmt.Sprintf(" WHERE account_id = $%d AND id = $%d", argPos, argPos+1)
	args = append(args, accountID, id)

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Complete marks the job completed and links its invoice in one statement.
// The invoice link is written exactly once; completion of an already
// invoiced job is rejected upstream.
func (r *repository) Complete(ctx context.Context, accountID, id, invoiceID int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE jobs SET status = $1, invoice_id = $2, updated_at = NOW()
		WHERE account_id = $3 AND id = $4 AND invoice_id IS NULL
	`, StatusCompleted, invoiceID, accountID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, accountID, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM jobs WHERE account_id = $1 AND id = $2`, accountID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*Job, error) {
	var j Job
	var price pgtype.Numeric
	err := row.Scan(
		&j.ID, &j.AccountID, &j.ClientID, &j.Title, &j.Description, &j.ServiceType,
		&j.Status, &j.StartAt, &j.EndAt, &j.Address, &price, &j.IsRecurring,
		&j.RecurrencePattern, &j.ParentJobID, &j.InvoiceID, &j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if price.Valid {
		d := db.Decimal(price)
		j.Price = &d
	}
	return &j, nil
}
