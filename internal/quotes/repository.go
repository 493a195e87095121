package quotes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/limpio-app/limpio/internal/platform/db"
)

// ErrNotFound indicates a quote that does not exist or belongs to another account.
var ErrNotFound = errors.New("quote not found")

// Repository provides quote persistence, scoped by account id.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, accountID, id int64) (*Quote, error)
	List(ctx context.Context, req ListQuotesRequest) ([]Quote, int, error)
	Create(ctx context.Context, q Quote) (int64, error)
	Update(ctx context.Context, accountID, id int64, updates map[string]any) error
	InsertLine(ctx context.Context, line QuoteLine) error
	DeleteLines(ctx context.Context, quoteID int64) error
	UpdateStatus(ctx context.Context, accountID, id int64, status QuoteStatus) error
	LinkInvoice(ctx context.Context, accountID, id, invoiceID int64) error
	Delete(ctx context.Context, accountID, id int64) error
	NextNumber(ctx context.Context, accountID int64) (string, error)
	ExpireOverdue(ctx context.Context, asOf time.Time) (int64, error)
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

// NewRepository constructs a pgx-backed quote repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

const quoteColumns = `id, account_id, number, client_id, issue_date, valid_until, subtotal, tax, total, status, notes, invoice_id, created_at, updated_at`

func (r *repository) Get(ctx context.Context, accountID, id int64) (*Quote, error) {
	row := r.db.QueryRow(ctx, fmt.Sprintf(`
		SELECT %s FROM quotes WHERE account_id = $1 AND id = $2
	`, quoteColumns), accountID, id)
	q, err := scanQuote(row)
	if err != nil {
		return nil, err
	}
	q.Lines, err = r.lines(ctx, q.ID)
	if err != nil {
		return nil, err
	}
	return q, nil
}

func (r *repository) lines(ctx context.Context, quoteID int64) ([]QuoteLine, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, quote_id, concept, quantity, unit_price, line_total, line_order
		FROM quote_lines WHERE quote_id = $1 ORDER BY line_order, id
	`, quoteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []QuoteLine
	for rows.Next() {
		var l QuoteLine
		var quantity, unitPrice, lineTotal pgtype.Numeric
		if err := rows.Scan(&l.ID, &l.QuoteID, &l.Concept, &quantity, &unitPrice, &lineTotal, &l.LineOrder); err != nil {
			return nil, err
		}
		l.Quantity = db.Decimal(quantity)
		l.UnitPrice = db.Decimal(unitPrice)
		l.LineTotal = db.Decimal(lineTotal)
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (r *repository) List(ctx context.Context, req ListQuotesRequest) ([]Quote, int, error) {
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
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM quotes "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT %s FROM quotes %s
		ORDER BY issue_date DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, quoteColumns, whereClause, argPos, argPos+1)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Quote
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *q)
	}
	return out, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, q Quote) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO quotes (account_id, number, client_id, issue_date, valid_until, subtotal, tax, total, status, notes, invoice_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`, q.AccountID, q.Number, q.ClientID, q.IssueDate, q.ValidUntil,
		db.Numeric(q.Subtotal), db.Numeric(q.Tax), db.Numeric(q.Total),
		q.Status, q.Notes, q.InvoiceID).Scan(&id)
	return id, err
}

func (r *repository) Update(ctx context.Context, accountID, id int64, updates map[string]any) error {
	query := "UPDATE quotes SET updated_at = NOW()"
	var args []any
	argPos := 1
	for _, col := range []string{"client_id", "issue_date", "valid_until", "notes", "subtotal", "tax", "total"} {
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

func (r *repository) InsertLine(ctx context.Context, line QuoteLine) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO quote_lines (quote_id, concept, quantity, unit_price, line_total, line_order)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, line.QuoteID, line.Concept, db.Numeric(line.Quantity), db.Numeric(line.UnitPrice),
		db.Numeric(line.LineTotal), line.LineOrder)
	return err
}

func (r *repository) DeleteLines(ctx context.Context, quoteID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM quote_lines WHERE quote_id = $1`, quoteID)
	return err
}

func (r *repository) UpdateStatus(ctx context.Context, accountID, id int64, status QuoteStatus) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE quotes SET status = $1, updated_at = NOW() WHERE account_id = $2 AND id = $3
	`, status, accountID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) LinkInvoice(ctx context.Context, accountID, id, invoiceID int64) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE quotes SET status = $1, invoice_id = $2, updated_at = NOW()
		WHERE account_id = $3 AND id = $4
	`, StatusAccepted, invoiceID, accountID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, accountID, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM quotes WHERE account_id = $1 AND id = $2`, accountID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// NextNumber allocates the next per-account quote number from the atomic
// document counter. Numbers are monotonic and never reused, even when the
// surrounding create fails afterwards.
func (r *repository) NextNumber(ctx context.Context, accountID int64) (string, error) {
	var seq int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO document_sequences (account_id, doc_type, seq)
		VALUES ($1, 'quote', 1)
		ON CONFLICT (account_id, doc_type)
		DO UPDATE SET seq = document_sequences.seq + 1
		RETURNING seq
	`, accountID).Scan(&seq)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("P-%04d", seq), nil
}

// ExpireOverdue flips pending quotes past their validity date to expired,
// across all accounts. Used by the nightly sweep.
func (r *repository) ExpireOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE quotes SET status = $1, updated_at = NOW()
		WHERE status = $2 AND valid_until < $3
	`, StatusExpired, StatusPending, asOf)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuote(row rowScanner) (*Quote, error) {
	var q Quote
	var subtotal, tax, total pgtype.Numeric
	err := row.Scan(
		&q.ID, &q.AccountID, &q.Number, &q.ClientID, &q.IssueDate, &q.ValidUntil,
		&subtotal, &tax, &total, &q.Status, &q.Notes, &q.InvoiceID, &q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	q.Subtotal = db.Decimal(subtotal)
	q.Tax = db.Decimal(tax)
	q.Total = db.Decimal(total)
	return &q, nil
}
