package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/limpio-app/limpio/internal/jobs"
)

// TaskExpireQuotes marks pending quotes past their validity date as expired.
const TaskExpireQuotes = "quotes:expire_sweep"

// ExpireQuotesCronSpec runs the sweep every hour.
const ExpireQuotesCronSpec = "0 * * * *"

// NewExpireQuotesTask constructs the sweep task.
func NewExpireQuotesTask() *asynq.Task {
	return asynq.NewTask(TaskExpireQuotes, nil)
}

// QuoteExpirer is the slice of the quote service the sweep needs.
type QuoteExpirer interface {
	ExpireOverdue(ctx context.Context) (int64, error)
}

// ExpireQuotesJob runs the validity sweep.
type ExpireQuotesJob struct {
	Quotes  QuoteExpirer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewExpireQuotesJob initialises the sweep handler.
func NewExpireQuotesJob(quotes QuoteExpirer, logger *slog.Logger, metrics *jobmetrics.Metrics) *ExpireQuotesJob {
	return &ExpireQuotesJob{Quotes: quotes, Logger: logger, Metrics: metrics}
}

// Handle executes the sweep.
func (j *ExpireQuotesJob) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := j.Metrics.Track(TaskExpireQuotes)
	expired, err := j.Quotes.ExpireOverdue(ctx)
	if err != nil {
		j.Logger.Error("expire quotes sweep", slog.Any("error", err))
		return tracker.End(err)
	}
	if expired > 0 {
		j.Logger.Info("expire quotes sweep", slog.Int64("expired", expired))
		j.Metrics.AddExpiredQuotes(expired)
	}
	return tracker.End(nil)
}
