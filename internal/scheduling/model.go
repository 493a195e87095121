package scheduling

import (
	"time"

	"github.com/shopspring/decimal"
)

// JobStatus is the lifecycle state of a scheduled job.
type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusInProgress JobStatus = "in_progress"
	StatusCompleted  JobStatus = "completed"
	StatusCancelled  JobStatus = "cancelled"
)

// Valid reports whether the status is a known value.
func (s JobStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// ServiceType classifies the kind of cleaning work.
type ServiceType string

const (
	ServiceGeneral ServiceType = "general"
	ServiceDeep    ServiceType = "deep"
	ServiceWindows ServiceType = "windows"
	ServiceOffice  ServiceType = "office"
	ServiceOther   ServiceType = "other"
)

// Valid reports whether the service type is a known value.
func (s ServiceType) Valid() bool {
	switch s {
	case ServiceGeneral, ServiceDeep, ServiceWindows, ServiceOffice, ServiceOther:
		return true
	}
	return false
}

// RecurrencePattern names how recurring occurrences are spaced.
type RecurrencePattern string

const (
	RecurWeekly   RecurrencePattern = "weekly"
	RecurBiweekly RecurrencePattern = "biweekly"
	RecurMonthly  RecurrencePattern = "monthly"
)

// Valid reports whether the pattern is a known value.
func (p RecurrencePattern) Valid() bool {
	switch p {
	case RecurWeekly, RecurBiweekly, RecurMonthly:
		return true
	}
	return false
}

// Job is a scheduled service appointment (trabajo).
type Job struct {
	ID                int64              `json:"id"`
	AccountID         int64              `json:"-"`
	ClientID          int64              `json:"client_id"`
	Title             string             `json:"title"`
	Description       *string            `json:"description,omitempty"`
	ServiceType       ServiceType        `json:"service_type"`
	Status            JobStatus          `json:"status"`
	StartAt           time.Time          `json:"start_at"`
	EndAt             time.Time          `json:"end_at"`
	Address           *string            `json:"address,omitempty"`
	Price             *decimal.Decimal   `json:"price,omitempty"`
	IsRecurring       bool               `json:"is_recurring"`
	RecurrencePattern *RecurrencePattern `json:"recurrence_pattern,omitempty"`
	ParentJobID       *int64             `json:"parent_job_id,omitempty"`
	InvoiceID         *int64             `json:"invoice_id,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}
