package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/limpio-app/limpio/internal/clients"
	"github.com/limpio-app/limpio/internal/credentials"
	"github.com/limpio-app/limpio/internal/scheduling"
)

// importedClientName is the auto-created default owner for imported
// events when the account has no clients yet.
const importedClientName = "Cliente importado"

// APIFactory opens a provider API bound to one account's credentials.
type APIFactory func(ctx context.Context, accountID int64) (API, error)

// Reconcile computes the partial job update implied by an external
// event change. External edits win over local state.
type Reconcile func(job *scheduling.Job, ev Event) map[string]any

// Bridge keeps jobs and the external calendar in step. It implements
// scheduling.Syncer for the push direction and runs pull and import
// passes on demand.
type Bridge struct {
	logger     *slog.Logger
	records    Repository
	jobs       scheduling.Repository
	clientRepo clients.Repository
	apiFor     APIFactory
	reconcile  Reconcile
	now        func() time.Time
}

// NewBridge constructs a Bridge.
func NewBridge(logger *slog.Logger, records Repository, jobs scheduling.Repository, clientRepo clients.Repository, apiFor APIFactory) *Bridge {
	return &Bridge{
		logger:     logger,
		records:    records,
		jobs:       jobs,
		clientRepo: clientRepo,
		apiFor:     apiFor,
		reconcile:  defaultReconcile,
		now:        time.Now,
	}
}

// NewGoogleFactory builds the production APIFactory from the vault.
func NewGoogleFactory(vault *credentials.Vault, calendarID string) APIFactory {
	return func(ctx context.Context, accountID int64) (API, error) {
		ts, err := vault.TokenSource(ctx, accountID, credentials.ProviderGoogle)
		if err != nil {
			return nil, err
		}
		return NewGoogleAPI(ctx, ts, calendarID)
	}
}

// PushJob mirrors the job to the calendar, updating the existing event
// when one is mapped and inserting a fresh one when it is gone.
func (b *Bridge) PushJob(ctx context.Context, accountID, jobID int64) error {
	api, err := b.apiFor(ctx, accountID)
	if err != nil {
		return err
	}
	job, err := b.jobs.Get(ctx, accountID, jobID)
	if err != nil {
		return err
	}

	ev := eventFromJob(job)

	rec, err := b.records.GetByJob(ctx, accountID, jobID)
	if err != nil && !errors.Is(err, ErrRecordNotFound) {
		return err
	}

	if rec != nil && rec.EventID != "" {
		ev.ID = rec.EventID
		err = api.Update(ctx, ev)
		if errors.Is(err, ErrEventNotFound) {
			// Event was removed on the calendar side, recreate it.
			ev.ID = ""
			var eventID string
			eventID, err = api.Insert(ctx, ev)
			if err == nil {
				return b.records.Upsert(ctx, accountID, jobID, eventID, b.now())
			}
		}
		if err != nil {
			b.recordPushError(ctx, accountID, jobID, err)
			return err
		}
		return b.records.Upsert(ctx, accountID, jobID, rec.EventID, b.now())
	}

	eventID, err := api.Insert(ctx, ev)
	if err != nil {
		b.recordPushError(ctx, accountID, jobID, err)
		return err
	}
	return b.records.Upsert(ctx, accountID, jobID, eventID, b.now())
}

// RemoveJobEvent deletes the mapped event. A missing credential,
// mapping, or event is not an error: the goal state is "no event".
func (b *Bridge) RemoveJobEvent(ctx context.Context, accountID, jobID int64) error {
	rec, err := b.records.GetByJob(ctx, accountID, jobID)
	if errors.Is(err, ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	api, err := b.apiFor(ctx, accountID)
	if errors.Is(err, credentials.ErrNoCredential) {
		return b.records.DeleteByJob(ctx, accountID, jobID)
	}
	if err != nil {
		return err
	}

	if rec.EventID != "" {
		if err := api.Delete(ctx, rec.EventID); err != nil && !errors.Is(err, ErrEventNotFound) {
			return err
		}
	}
	return b.records.DeleteByJob(ctx, accountID, jobID)
}

// PushAll pushes every non-cancelled job.
func (b *Bridge) PushAll(ctx context.Context, accountID int64) (SyncReport, error) {
	var report SyncReport
	jobs, err := b.jobs.ListActive(ctx, accountID)
	if err != nil {
		return report, err
	}
	for _, job := range jobs {
		if err := b.PushJob(ctx, accountID, job.ID); err != nil {
			report.PushErrors++
			b.logger.Warn("push job",
				slog.Int64("job_id", job.ID),
				slog.Any("error", err))
			continue
		}
		report.Pushed++
	}
	return report, nil
}

// PullUpdates applies external edits from the calendar back onto
// mapped jobs. Fields are compared one by one and the external side
// wins; events whose fields all match are counted unchanged.
func (b *Bridge) PullUpdates(ctx context.Context, accountID int64) (SyncReport, error) {
	var report SyncReport
	api, err := b.apiFor(ctx, accountID)
	if err != nil {
		return report, err
	}

	now := b.now()
	from := now.AddDate(0, -pullWindowPastMonths, 0)
	to := now.AddDate(0, pullWindowFutureMonths, 0)

	events, err := api.List(ctx, from, to, 0)
	if err != nil {
		return report, err
	}

	for _, ev := range events {
		jobID := ev.JobID
		if jobID == 0 {
			if rec, err := b.records.GetByEvent(ctx, accountID, ev.ID); err == nil {
				jobID = rec.JobID
			}
		}
		if jobID == 0 {
			continue
		}

		if _, err := b.records.GetByJob(ctx, accountID, jobID); err != nil {
			if errors.Is(err, ErrRecordNotFound) {
				continue
			}
			return report, err
		}

		job, err := b.jobs.Get(ctx, accountID, jobID)
		if errors.Is(err, scheduling.ErrNotFound) {
			continue
		}
		if err != nil {
			return report, err
		}

		var updates map[string]any
		if ev.Cancelled {
			if job.Status != scheduling.StatusCancelled {
				updates = map[string]any{"status": scheduling.StatusCancelled}
			}
		} else {
			updates = b.reconcile(job, ev)
		}
		if len(updates) > 0 {
			if err := b.jobs.Update(ctx, accountID, jobID, updates); err != nil {
				return report, err
			}
			report.Updated++
		} else {
			report.Unchanged++
		}
		if err := b.records.TouchSynced(ctx, accountID, jobID, now); err != nil {
			return report, err
		}
	}
	return report, nil
}

// Import turns unmapped timed events into pending jobs for the
// account's default client.
func (b *Bridge) Import(ctx context.Context, accountID int64) (SyncReport, error) {
	var report SyncReport
	api, err := b.apiFor(ctx, accountID)
	if err != nil {
		return report, err
	}

	now := b.now()
	from := now.AddDate(0, -importWindowPastMonths, 0)
	to := now.AddDate(0, importWindowFutureMonths, 0)

	events, err := api.List(ctx, from, to, importMaxEvents)
	if err != nil {
		return report, err
	}

	var defaultClientID int64
	for _, ev := range events {
		if ev.Cancelled || ev.AllDay || ev.Start.IsZero() || ev.End.IsZero() || ev.JobID != 0 {
			report.Skipped++
			continue
		}
		if _, err := b.records.GetByEvent(ctx, accountID, ev.ID); err == nil {
			report.Skipped++
			continue
		} else if !errors.Is(err, ErrRecordNotFound) {
			return report, err
		}

		if defaultClientID == 0 {
			defaultClientID, err = b.defaultClient(ctx, accountID)
			if err != nil {
				return report, err
			}
		}

		job := scheduling.Job{
			AccountID:   accountID,
			ClientID:    defaultClientID,
			Title:       ev.Summary,
			ServiceType: scheduling.ServiceOther,
			Status:      scheduling.StatusPending,
			StartAt:     ev.Start,
			EndAt:       ev.End,
		}
		if job.Title == "" {
			job.Title = "Evento importado"
		}
		if ev.Description != "" {
			desc := ev.Description
			job.Description = &desc
		}
		if ev.Location != "" {
			addr := ev.Location
			job.Address = &addr
		}

		jobID, err := b.jobs.Create(ctx, job)
		if err != nil {
			return report, err
		}
		if err := b.records.Upsert(ctx, accountID, jobID, ev.ID, now); err != nil {
			return report, err
		}

		// Stamp the event so later pulls recognize the link even if the
		// sync record is ever lost.
		ev.JobID = jobID
		if err := api.Update(ctx, ev); err != nil {
			b.logger.Warn("stamp imported event",
				slog.String("event_id", ev.ID),
				slog.Any("error", err))
		}
		report.Imported++
	}
	return report, nil
}

// TwoWaySync runs import, pull, and a full push as one pass.
func (b *Bridge) TwoWaySync(ctx context.Context, accountID int64) (SyncReport, error) {
	report, err := b.Import(ctx, accountID)
	if err != nil {
		return report, err
	}

	pulled, err := b.PullUpdates(ctx, accountID)
	if err != nil {
		return report, err
	}
	report.Updated += pulled.Updated
	report.Unchanged += pulled.Unchanged

	pushed, err := b.PushAll(ctx, accountID)
	if err != nil {
		return report, err
	}
	report.Pushed += pushed.Pushed
	report.PushErrors += pushed.PushErrors
	return report, nil
}

// Records lists the account's sync records, for inspection.
func (b *Bridge) Records(ctx context.Context, accountID int64) ([]SyncRecord, error) {
	return b.records.ListByAccount(ctx, accountID)
}

func (b *Bridge) defaultClient(ctx context.Context, accountID int64) (int64, error) {
	first, err := b.clientRepo.First(ctx, accountID)
	if err == nil {
		return first.ID, nil
	}
	if !errors.Is(err, clients.ErrNotFound) {
		return 0, err
	}
	id, err := b.clientRepo.Create(ctx, clients.Client{AccountID: accountID, Name: importedClientName})
	if err != nil {
		return 0, fmt.Errorf("create default client: %w", err)
	}
	return id, nil
}

func (b *Bridge) recordPushError(ctx context.Context, accountID, jobID int64, pushErr error) {
	if err := b.records.RecordError(ctx, accountID, jobID, pushErr.Error()); err != nil {
		b.logger.Error("record push error", slog.Any("error", err))
	}
}

func eventFromJob(job *scheduling.Job) Event {
	ev := Event{
		Summary: job.Title,
		Start:   job.StartAt,
		End:     job.EndAt,
		JobID:   job.ID,
	}
	if job.Description != nil {
		ev.Description = *job.Description
	}
	if job.Address != nil {
		ev.Location = *job.Address
	}
	return ev
}

func defaultReconcile(job *scheduling.Job, ev Event) map[string]any {
	updates := map[string]any{}
	if ev.Summary != "" && ev.Summary != job.Title {
		updates["title"] = ev.Summary
	}
	if !ev.Start.IsZero() && !ev.Start.Equal(job.StartAt) {
		updates["start_at"] = ev.Start
	}
	if !ev.End.IsZero() && !ev.End.Equal(job.EndAt) {
		updates["end_at"] = ev.End
	}
	current := ""
	if job.Description != nil {
		current = *job.Description
	}
	if ev.Description != current {
		updates["description"] = ev.Description
	}
	address := ""
	if job.Address != nil {
		address = *job.Address
	}
	if ev.Location != address {
		updates["address"] = ev.Location
	}
	return updates
}
