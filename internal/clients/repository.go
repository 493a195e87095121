package clients

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates a client that does not exist or is owned by another account.
var ErrNotFound = errors.New("client not found")

// Repository provides client persistence, scoped by account id on every query.
type Repository interface {
	Get(ctx context.Context, accountID, id int64) (*Client, error)
	List(ctx context.Context, req ListClientsRequest) ([]Client, int, error)
	Create(ctx context.Context, c Client) (int64, error)
	Update(ctx context.Context, accountID, id int64, updates map[string]any) error
	Delete(ctx context.Context, accountID, id int64) error
	CountInvoiceRefs(ctx context.Context, accountID, id int64) (int, error)
	First(ctx context.Context, accountID int64) (*Client, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a pgx-backed client repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const clientColumns = `id, account_id, name, email, phone, address, city, postal_code, tax_id, billing_notes, created_at, updated_at`

func (r *repository) Get(ctx context.Context, accountID, id int64) (*Client, error) {
	row := r.pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT %s FROM clients WHERE account_id = $1 AND id = $2
	`, clientColumns), accountID, id)
	return scanClient(row)
}

// First returns the oldest client of the account, used as the default owner
// for imported calendar events.
func (r *repository) First(ctx context.Context, accountID int64) (*Client, error) {
	row := r.pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT %s FROM clients WHERE account_id = $1 ORDER BY id LIMIT 1
	`, clientColumns), accountID)
	return scanClient(row)
}

func (r *repository) List(ctx context.Context, req ListClientsRequest) ([]Client, int, error) {
	where := "WHERE account_id = $1"
	args := []any{req.AccountID}
	if req.Search != "" {
		where += " AND name ILIKE $2"
		args = append(args, "%"+req.Search+"%")
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM clients "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT %s FROM clients %s
		ORDER BY name, id
		LIMIT $%d OFFSET $%d
	`, clientColumns, where, len(args)+1, len(args)+2)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *c)
	}
	return out, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, c Client) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO clients (account_id, name, email, phone, address, city, postal_code, tax_id, billing_notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, c.AccountID, c.Name, c.Email, c.Phone, c.Address, c.City, c.PostalCode, c.TaxID, c.BillingNotes).Scan(&id)
	return id, err
}

func (r *repository) Update(ctx context.Context, accountID, id int64, updates map[string]any) error {
	query := "UPDATE clients SET updated_at = NOW()"
	var args []any
	argPos := 1
	for _, col := range []string{"name", "email", "phone", "address", "city", "postal_code", "tax_id", "billing_notes"} {
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

func (r *repository) Delete(ctx context.Context, accountID, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM clients WHERE account_id = $1 AND id = $2`, accountID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) CountInvoiceRefs(ctx context.Context, accountID, id int64) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM invoices WHERE account_id = $1 AND client_id = $2
	`, accountID, id).Scan(&n)
	return n, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClient(row rowScanner) (*Client, error) {
	var c Client
	err := row.Scan(
		&c.ID, &c.AccountID, &c.Name, &c.Email, &c.Phone, &c.Address,
		&c.City, &c.PostalCode, &c.TaxID, &c.BillingNotes, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}
