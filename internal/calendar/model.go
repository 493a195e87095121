package calendar

import "time"

// Event is the provider-neutral view of a calendar event.
type Event struct {
	ID          string
	Summary     string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	AllDay      bool
	Cancelled   bool
	Updated     time.Time
	// JobID is the linked job carried in the event's private metadata,
	// zero when the event was not created by us.
	JobID int64
}

// SyncStatus is the state of a job-to-event mapping.
type SyncStatus string

const (
	SyncSynced  SyncStatus = "synced"
	SyncPending SyncStatus = "pending"
	SyncError   SyncStatus = "error"
)

// SyncRecord maps a job to its calendar event.
type SyncRecord struct {
	ID           int64      `json:"id"`
	AccountID    int64      `json:"-"`
	JobID        int64      `json:"job_id"`
	EventID      string     `json:"event_id"`
	Status       SyncStatus `json:"status"`
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
	LastError    *string    `json:"last_error,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// SyncReport aggregates the outcome of a sync run.
type SyncReport struct {
	Pushed     int `json:"pushed"`
	PushErrors int `json:"push_errors"`
	Updated    int `json:"updated"`
	Unchanged  int `json:"unchanged"`
	Imported   int `json:"imported"`
	Skipped    int `json:"skipped"`
}

// Sync windows. Pull looks at the recent past and near future, import
// reaches further ahead so upcoming bookings land as jobs.
const (
	pullWindowPastMonths   = 3
	pullWindowFutureMonths = 3

	importWindowPastMonths   = 3
	importWindowFutureMonths = 6
	importMaxEvents          = 250
)
