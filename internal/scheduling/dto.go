package scheduling

import "time"

// CreateJobRequest carries fields for a new job.
type CreateJobRequest struct {
	ClientID    int64       `json:"client_id" validate:"required"`
	Title       string      `json:"title" validate:"required"`
	Description *string     `json:"description"`
	ServiceType ServiceType `json:"service_type" validate:"required"`
	StartAt     time.Time   `json:"start_at" validate:"required"`
	EndAt       time.Time   `json:"end_at" validate:"required"`
	Address     *string     `json:"address"`
	Price       *float64    `json:"price" validate:"omitempty,gte=0"`
}

// UpdateJobRequest carries a partial job update. Nil fields are untouched.
type UpdateJobRequest struct {
	ClientID    *int64       `json:"client_id"`
	Title       *string      `json:"title"`
	Description *string      `json:"description"`
	ServiceType *ServiceType `json:"service_type"`
	Status      *JobStatus   `json:"status"`
	StartAt     *time.Time   `json:"start_at"`
	EndAt       *time.Time   `json:"end_at"`
	Address     *string      `json:"address"`
	Price       *float64     `json:"price" validate:"omitempty,gte=0"`
}

// ListJobsRequest filters the job listing.
type ListJobsRequest struct {
	AccountID int64
	ClientID  *int64
	Status    *JobStatus
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}

// SyncWarning reports a failed best-effort calendar push. The primary
// operation succeeded regardless; the failure is also recorded on the
// job's sync record.
type SyncWarning struct {
	JobID   int64  `json:"job_id"`
	Message string `json:"message"`
}

// OccurrenceResult reports one job produced by CreateRecurring, with the
// outcome of its individual calendar push.
type OccurrenceResult struct {
	Job         *Job         `json:"job"`
	SyncWarning *SyncWarning `json:"sync_warning,omitempty"`
}
