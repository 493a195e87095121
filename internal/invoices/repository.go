package invoices

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/limpio-app/limpio/internal/platform/db"
)

// ErrNotFound indicates an invoice that does not exist or belongs to another account.
var ErrNotFound = errors.New("invoice not found")

// Repository provides invoice persistence, scoped by account id.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, accountID, id int64) (*Invoice, error)
	List(ctx context.Context, req ListInvoicesRequest) ([]Invoice, int, error)
	Create(ctx context.Context, inv Invoice) (int64, error)
	Update(ctx context.Context, accountID, id int64, updates map[string]any) error
	InsertLine(ctx context.Context, line InvoiceLine) error
	DeleteLines(ctx context.Context, invoiceID int64) error
	UpdateStatus(ctx context.Context, accountID, id int64, status InvoiceStatus) error
	Delete(ctx context.Context, accountID, id int64) error
	NextNumber(ctx context.Context, accountID int64) (string, error)
}

type dbtx interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

type repository struct {
	db   dbtx
	pool *pgxpool.Pool
}

// NewRepository constructs a pgx-backed invoice repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

const invoiceColumns = `id, account_id, number, client_id, issue_date, due_date, subtotal, tax, total, status, notes, created_at, updated_at`

func (r *repository) Get(ctx context.Context, accountID, id int64) (*Invoice, error) {
	row := r.db.QueryRow(ctx, fmt.Sprintf(`
		SELECT %s FROM invoices WHERE account_id = $1 AND id = $2
	`, invoiceColumns), accountID, id)
	inv, err := scanInvoice(row)
	if err != nil {
		return nil, err
	}
	inv.Lines, err = r.lines(ctx, inv.ID)
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (r *repository) lines(ctx context.Context, invoiceID int64) ([]InvoiceLine, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, invoice_id, concept, quantity, unit_price, line_total, line_order
		FROM invoice_lines WHERE invoice_id = $1 ORDER BY line_order, id
	`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []InvoiceLine
	for rows.Next() {
		var l InvoiceLine
		var quantity, unitPrice, lineTotal pgtype.Numeric
		if err := rows.Scan(&l.ID, &l.InvoiceID, &l.Concept, &quantity, &unitPrice, &lineTotal, &l.LineOrder); err != nil {
			return nil, err
		}
		l.Quantity = db.Decimal(quantity)
		l.UnitPrice = db.Decimal(unitPrice)
		l.LineTotal = db.Decimal(lineTotal)
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (r *repository) List(ctx context.Context, req ListInvoicesRequest) ([]Invoice, int, error) {
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
	if req.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("issue_date >= $%d", argPos))
		args = append(args, *req.DateFrom)
		argPos++
	}
	if req.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("issue_date <= $%d", argPos))
		args = append(args, *req.DateTo)
		argPos++
	}

	whereClause := "WHERE " + conditions[0]
	for i := 1; i < len(conditions); i++ {
		whereClause += " AND " + conditions[i]
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM invoices "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT %s FROM invoices %s
		ORDER BY issue_date DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, invoiceColumns, whereClause, argPos, argPos+1)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *inv)
	}
	return out, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, inv Invoice) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO invoices (account_id, number, client_id, issue_date, due_date, subtotal, tax, total, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`, inv.AccountID, inv.Number, inv.ClientID, inv.IssueDate, inv.DueDate,
		db.Numeric(inv.Subtotal), db.Numeric(inv.Tax), db.Numeric(inv.Total),
		inv.Status, inv.Notes).Scan(&id)
	return id, err
}

func (r *repository) Update(ctx context.Context, accountID, id int64, updates map[string]any) error {
	query := "UPDATE invoices SET updated_at = NOW()"
	var args []any
	argPos := 1
	for _, col := range []string{"client_id", "issue_date", "due_date", "notes", "subtotal", "tax", "total"} {
		if v, ok := updates[col]; ok {
			query += fmt.Sprintf(", %s = $%d", col, argPos)
			args = append(args, v)
			argPos++
		}
	}
	query += fmt.Sprintf(" WHERE account_id = $%d AND id = $%d", argPos, argPos+1)
	args = append(args, accountID, id)

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) InsertLine(ctx context.Context, line InvoiceLine) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO invoice_lines (invoice_id, concept, quantity, unit_price, line_total, line_order)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, line.InvoiceID, line.Concept, db.Numeric(line.Quantity), db.Numeric(line.UnitPrice),
		db.Numeric(line.LineTotal), line.LineOrder)
	return err
}

func (r *repository) DeleteLines(ctx context.Context, invoiceID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM invoice_lines WHERE invoice_id = $1`, invoiceID)
	return err
}

func (r *repository) UpdateStatus(ctx context.Context, accountID, id int64, status InvoiceStatus) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE invoices SET status = $1, updated_at = NOW() WHERE account_id = $2 AND id = $3
	`, status, accountID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, accountID, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM invoices WHERE account_id = $1 AND id = $2`, accountID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// NextNumber allocates the next per-account invoice number. The counter is
// separate from the quote counter and equally monotonic.
func (r *repository) NextNumber(ctx context.Context, accountID int64) (string, error) {
	var seq int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO document_sequences (account_id, doc_type, seq)
		VALUES ($1, 'invoice', 1)
		ON CONFLICT (account_id, doc_type)
		DO UPDATE SET seq = document_sequences.seq + 1
		RETURNING seq
	`, accountID).Scan(&seq)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("F-%04d", seq), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvoice(row rowScanner) (*Invoice, error) {
	var inv Invoice
	var subtotal, tax, total pgtype.Numeric
	err := row.Scan(
		&inv.ID, &inv.AccountID, &inv.Number, &inv.ClientID, &inv.IssueDate, &inv.DueDate,
		&subtotal, &tax, &total, &inv.Status, &inv.Notes, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	inv.Subtotal = db.Decimal(subtotal)
	inv.Tax = db.Decimal(tax)
	inv.Total = db.Decimal(total)
	return &inv, nil
}
