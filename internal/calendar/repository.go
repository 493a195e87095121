package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrRecordNotFound indicates a missing job-to-event mapping.
var ErrRecordNotFound = errors.New("sync record not found")

// Repository persists job-to-event sync records.
type Repository interface {
	GetByJob(ctx context.Context, accountID, jobID int64) (*SyncRecord, error)
	GetByEvent(ctx context.Context, accountID int64, eventID string) (*SyncRecord, error)
	ListByAccount(ctx context.Context, accountID int64) ([]SyncRecord, error)
	Upsert(ctx context.Context, accountID, jobID int64, eventID string, syncedAt time.Time) error
	RecordError(ctx context.Context, accountID, jobID int64, message string) error
	TouchSynced(ctx context.Context, accountID, jobID int64, syncedAt time.Time) error
	DeleteByJob(ctx context.Context, accountID, jobID int64) error
	DeleteByAccount(ctx context.Context, accountID int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a pgx-backed sync record repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const recordColumns = `id, account_id, job_id, event_id, status, last_synced_at, last_error, created_at, updated_at`

func (r *repository) GetByJob(ctx context.Context, accountID, jobID int64) (*SyncRecord, error) {
	row := r.pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT %s FROM job_sync_records WHERE account_id = $1 AND job_id = $2
	`, recordColumns), accountID, jobID)
	return scanRecord(row)
}

func (r *repository) GetByEvent(ctx context.Context, accountID int64, eventID string) (*SyncRecord, error) {
	row := r.pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT %s FROM job_sync_records WHERE account_id = $1 AND event_id = $2
	`, recordColumns), accountID, eventID)
	return scanRecord(row)
}

func (r *repository) ListByAccount(ctx context.Context, accountID int64) ([]SyncRecord, error) {
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
		SELECT %s FROM job_sync_records WHERE account_id = $1 ORDER BY job_id
	`, recordColumns), accountID)
	if err != nil {
		return nil, fmt.Errorf("list sync records: %w", err)
	}
	defer rows.Close()

	var out []SyncRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func (r *repository) Upsert(ctx context.Context, accountID, jobID int64, eventID string, syncedAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO job_sync_records (account_id, job_id, event_id, status, last_synced_at, last_error, created_at, updated_at)
		VALUES ($1, $2, $3, 'synced', $4, NULL, NOW(), NOW())
		ON CONFLICT (account_id, job_id) DO UPDATE SET
			event_id = EXCLUDED.event_id,
			status = 'synced',
			last_synced_at = EXCLUDED.last_synced_at,
			last_error = NULL,
			updated_at = NOW()
	`, accountID, jobID, eventID, syncedAt)
	if err != nil {
		return fmt.Errorf("upsert sync record: %w", err)
	}
	return nil
}

func (r *repository) RecordError(ctx context.Context, accountID, jobID int64, message string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO job_sync_records (account_id, job_id, event_id, status, last_error, created_at, updated_at)
		VALUES ($1, $2, '', 'error', $3, NOW(), NOW())
		ON CONFLICT (account_id, job_id) DO UPDATE SET
			status = 'error',
			last_error = EXCLUDED.last_error,
			updated_at = NOW()
	`, accountID, jobID, message)
	if err != nil {
		return fmt.Errorf("record sync error: %w", err)
	}
	return nil
}

func (r *repository) TouchSynced(ctx context.Context, accountID, jobID int64, syncedAt time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE job_sync_records
		SET status = 'synced', last_synced_at = $3, last_error = NULL, updated_at = NOW()
		WHERE account_id = $1 AND job_id = $2
	`, accountID, jobID, syncedAt)
	if err != nil {
		return fmt.Errorf("touch sync record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (r *repository) DeleteByJob(ctx context.Context, accountID, jobID int64) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM job_sync_records WHERE account_id = $1 AND job_id = $2
	`, accountID, jobID)
	if err != nil {
		return fmt.Errorf("delete sync record: %w", err)
	}
	return nil
}

func (r *repository) DeleteByAccount(ctx context.Context, accountID int64) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM job_sync_records WHERE account_id = $1
	`, accountID)
	if err != nil {
		return fmt.Errorf("delete sync records: %w", err)
	}
	return nil
}

func scanRecord(row pgx.Row) (*SyncRecord, error) {
	var rec SyncRecord
	err := row.Scan(&rec.ID, &rec.AccountID, &rec.JobID, &rec.EventID, &rec.Status,
		&rec.LastSyncedAt, &rec.LastError, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan sync record: %w", err)
	}
	return &rec, nil
}
