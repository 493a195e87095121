package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/limpio-app/limpio/internal/clients"
	"github.com/limpio-app/limpio/internal/scheduling"
	_ "github.com/limpio-app/limpio/internal/testing/guard"
)

type fakeAPI struct {
	events    map[string]Event
	nextID    int
	insertErr error
	updateErr error
	listErr   error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{events: map[string]Event{}}
}

func (f *fakeAPI) List(_ context.Context, from, to time.Time, max int64) ([]Event, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []Event
	for _, ev := range f.events {
		if ev.Start.Before(from) || ev.Start.After(to) {
			continue
		}
		out = append(out, ev)
		if max > 0 && int64(len(out)) == max {
			break
		}
	}
	return out, nil
}

func (f *fakeAPI) Insert(_ context.Context, ev Event) (string, error) {
	if f.insertErr != nil {
		return "", f.insertErr
	}
	f.nextID++
	ev.ID = fmt.Sprintf("ev-%d", f.nextID)
	f.events[ev.ID] = ev
	return ev.ID, nil
}

func (f *fakeAPI) Update(_ context.Context, ev Event) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.events[ev.ID]; !ok {
		return ErrEventNotFound
	}
	f.events[ev.ID] = ev
	return nil
}

func (f *fakeAPI) Delete(_ context.Context, eventID string) error {
	if _, ok := f.events[eventID]; !ok {
		return ErrEventNotFound
	}
	delete(f.events, eventID)
	return nil
}

type fakeRecordRepo struct {
	records map[int64]*SyncRecord
	nextID  int64
}

func newFakeRecordRepo() *fakeRecordRepo {
	return &fakeRecordRepo{records: map[int64]*SyncRecord{}}
}

func (f *fakeRecordRepo) GetByJob(_ context.Context, accountID, jobID int64) (*SyncRecord, error) {
	for _, r := range f.records {
		if r.AccountID == accountID && r.JobID == jobID {
			out := *r
			return &out, nil
		}
	}
	return nil, ErrRecordNotFound
}

func (f *fakeRecordRepo) GetByEvent(_ context.Context, accountID int64, eventID string) (*SyncRecord, error) {
	for _, r := range f.records {
		if r.AccountID == accountID && r.EventID == eventID {
			out := *r
			return &out, nil
		}
	}
	return nil, ErrRecordNotFound
}

func (f *fakeRecordRepo) ListByAccount(_ context.Context, accountID int64) ([]SyncRecord, error) {
	var out []SyncRecord
	for _, r := range f.records {
		if r.AccountID == accountID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeRecordRepo) Upsert(_ context.Context, accountID, jobID int64, eventID string, syncedAt time.Time) error {
	for _, r := range f.records {
		if r.AccountID == accountID && r.JobID == jobID {
			r.EventID = eventID
			r.Status = SyncSynced
			r.LastSyncedAt = &syncedAt
			r.LastError = nil
			return nil
		}
	}
	f.nextID++
	f.records[f.nextID] = &SyncRecord{
		ID:           f.nextID,
		AccountID:    accountID,
		JobID:        jobID,
		EventID:      eventID,
		Status:       SyncSynced,
		LastSyncedAt: &syncedAt,
	}
	return nil
}

func (f *fakeRecordRepo) RecordError(_ context.Context, accountID, jobID int64, message string) error {
	for _, r := range f.records {
		if r.AccountID == accountID && r.JobID == jobID {
			r.Status = SyncError
			r.LastError = &message
			return nil
		}
	}
	f.nextID++
	f.records[f.nextID] = &SyncRecord{
		ID:        f.nextID,
		AccountID: accountID,
		JobID:     jobID,
		Status:    SyncError,
		LastError: &message,
	}
	return nil
}

func (f *fakeRecordRepo) TouchSynced(_ context.Context, accountID, jobID int64, syncedAt time.Time) error {
	for _, r := range f.records {
		if r.AccountID == accountID && r.JobID == jobID {
			r.Status = SyncSynced
			r.LastSyncedAt = &syncedAt
			r.LastError = nil
			return nil
		}
	}
	return ErrRecordNotFound
}

func (f *fakeRecordRepo) DeleteByJob(_ context.Context, accountID, jobID int64) error {
	for id, r := range f.records {
		if r.AccountID == accountID && r.JobID == jobID {
			delete(f.records, id)
		}
	}
	return nil
}

func (f *fakeRecordRepo) DeleteByAccount(_ context.Context, accountID int64) error {
	for id, r := range f.records {
		if r.AccountID == accountID {
			delete(f.records, id)
		}
	}
	return nil
}

type fakeJobRepo struct {
	jobs   map[int64]*scheduling.Job
	nextID int64
}

func newFakeJobRepo() *fakeJobRepo {
	return &fakeJobRepo{jobs: map[int64]*scheduling.Job{}}
}

func (f *fakeJobRepo) Get(_ context.Context, accountID, id int64) (*scheduling.Job, error) {
	j, ok := f.jobs[id]
	if !ok || j.AccountID != accountID {
		return nil, scheduling.ErrNotFound
	}
	out := *j
	return &out, nil
}

func (f *fakeJobRepo) List(_ context.Context, req scheduling.ListJobsRequest) ([]scheduling.Job, int, error) {
	var out []scheduling.Job
	for _, j := range f.jobs {
		if j.AccountID == req.AccountID {
			out = append(out, *j)
		}
	}
	return out, len(out), nil
}

func (f *fakeJobRepo) ListActive(_ context.Context, accountID int64) ([]scheduling.Job, error) {
	var out []scheduling.Job
	for _, j := range f.jobs {
		if j.AccountID == accountID && j.Status != scheduling.StatusCancelled {
			out = append(out, *j)
		}
	}
	return out, nil
}

func (f *fakeJobRepo) Create(_ context.Context, j scheduling.Job) (int64, error) {
	f.nextID++
	j.ID = f.nextID
	f.jobs[j.ID] = &j
	return j.ID, nil
}

func (f *fakeJobRepo) Update(_ context.Context, accountID, id int64, updates map[string]any) error {
	j, ok := f.jobs[id]
	if !ok || j.AccountID != accountID {
		return scheduling.ErrNotFound
	}
	if v, ok := updates["title"]; ok {
		j.Title = v.(string)
	}
	if v, ok := updates["status"]; ok {
		j.Status = v.(scheduling.JobStatus)
	}
	if v, ok := updates["start_at"]; ok {
		j.StartAt = v.(time.Time)
	}
	if v, ok := updates["end_at"]; ok {
		j.EndAt = v.(time.Time)
	}
	if v, ok := updates["description"]; ok {
		s := v.(string)
		j.Description = &s
	}
	if v, ok := updates["address"]; ok {
		s := v.(string)
		j.Address = &s
	}
	return nil
}

func (f *fakeJobRepo) Complete(_ context.Context, accountID, id, invoiceID int64) error {
	j, ok := f.jobs[id]
	if !ok || j.AccountID != accountID {
		return scheduling.ErrNotFound
	}
	j.Status = scheduling.StatusCompleted
	j.InvoiceID = &invoiceID
	return nil
}

func (f *fakeJobRepo) Delete(_ context.Context, accountID, id int64) error {
	delete(f.jobs, id)
	return nil
}

type fakeClientRepo struct {
	clientList []clients.Client
	nextID     int64
}

func (f *fakeClientRepo) Get(_ context.Context, _, id int64) (*clients.Client, error) {
	for _, c := range f.clientList {
		if c.ID == id {
			out := c
			return &out, nil
		}
	}
	return nil, clients.ErrNotFound
}

func (f *fakeClientRepo) List(context.Context, clients.ListClientsRequest) ([]clients.Client, int, error) {
	return f.clientList, len(f.clientList), nil
}

func (f *fakeClientRepo) Create(_ context.Context, c clients.Client) (int64, error) {
	f.nextID++
	c.ID = f.nextID
	f.clientList = append(f.clientList, c)
	return c.ID, nil
}

func (f *fakeClientRepo) Update(context.Context, int64, int64, map[string]any) error { return nil }
func (f *fakeClientRepo) Delete(context.Context, int64, int64) error                 { return nil }
func (f *fakeClientRepo) CountInvoiceRefs(context.Context, int64, int64) (int, error) {
	return 0, nil
}

func (f *fakeClientRepo) First(_ context.Context, _ int64) (*clients.Client, error) {
	if len(f.clientList) == 0 {
		return nil, clients.ErrNotFound
	}
	out := f.clientList[0]
	return &out, nil
}

func testNow() time.Time {
	return time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
}

func newTestBridge(api *fakeAPI) (*Bridge, *fakeRecordRepo, *fakeJobRepo, *fakeClientRepo) {
	records := newFakeRecordRepo()
	jobs := newFakeJobRepo()
	clientRepo := &fakeClientRepo{}
	apiFor := func(context.Context, int64) (API, error) { return api, nil }
	b := NewBridge(slog.Default(), records, jobs, clientRepo, apiFor)
	b.now = testNow
	return b, records, jobs, clientRepo
}

func seedJob(jobs *fakeJobRepo, title string) int64 {
	id, _ := jobs.Create(context.Background(), scheduling.Job{
		AccountID:   1,
		ClientID:    1,
		Title:       title,
		ServiceType: scheduling.ServiceGeneral,
		Status:      scheduling.StatusPending,
		StartAt:     time.Date(2026, 3, 12, 9, 0, 0, 0, time.UTC),
		EndAt:       time.Date(2026, 3, 12, 11, 0, 0, 0, time.UTC),
	})
	return id
}

func TestPushJobInsertsAndRecords(t *testing.T) {
	api := newFakeAPI()
	b, records, jobs, _ := newTestBridge(api)
	jobID := seedJob(jobs, "Limpieza semanal")

	require.NoError(t, b.PushJob(context.Background(), 1, jobID))

	rec, err := records.GetByJob(context.Background(), 1, jobID)
	require.NoError(t, err)
	require.Equal(t, SyncSynced, rec.Status)
	require.NotEmpty(t, rec.EventID)

	ev := api.events[rec.EventID]
	require.Equal(t, "Limpieza semanal", ev.Summary)
	require.Equal(t, jobID, ev.JobID)
}

func TestPushJobRecreatesDeletedEvent(t *testing.T) {
	api := newFakeAPI()
	b, records, jobs, _ := newTestBridge(api)
	jobID := seedJob(jobs, "Limpieza semanal")

	require.NoError(t, b.PushJob(context.Background(), 1, jobID))
	first, err := records.GetByJob(context.Background(), 1, jobID)
	require.NoError(t, err)

	// The user deletes the event directly in the calendar.
	delete(api.events, first.EventID)

	require.NoError(t, b.PushJob(context.Background(), 1, jobID))
	second, err := records.GetByJob(context.Background(), 1, jobID)
	require.NoError(t, err)
	require.NotEqual(t, first.EventID, second.EventID)
	require.Contains(t, api.events, second.EventID)
}

func TestPushJobFailureMarksRecord(t *testing.T) {
	api := newFakeAPI()
	api.insertErr = errors.New("quota exceeded")
	b, records, jobs, _ := newTestBridge(api)
	jobID := seedJob(jobs, "Limpieza semanal")

	err := b.PushJob(context.Background(), 1, jobID)
	require.Error(t, err)

	rec, err := records.GetByJob(context.Background(), 1, jobID)
	require.NoError(t, err)
	require.Equal(t, SyncError, rec.Status)
	require.NotNil(t, rec.LastError)
	require.Contains(t, *rec.LastError, "quota exceeded")
}

func TestPushAllCountsErrors(t *testing.T) {
	api := newFakeAPI()
	b, _, jobs, _ := newTestBridge(api)
	seedJob(jobs, "Trabajo uno")
	seedJob(jobs, "Trabajo dos")

	report, err := b.PushAll(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 2, report.Pushed)
	require.Equal(t, 0, report.PushErrors)

	api.insertErr = errors.New("quota exceeded")
	seedJob(jobs, "Trabajo tres")
	report, err = b.PushAll(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 2, report.Pushed)
	require.Equal(t, 1, report.PushErrors)
}

func TestPushAllIncludesCompletedJobs(t *testing.T) {
	api := newFakeAPI()
	b, _, jobs, _ := newTestBridge(api)
	doneID := seedJob(jobs, "Limpieza terminada")
	jobs.jobs[doneID].Status = scheduling.StatusCompleted
	cancelledID := seedJob(jobs, "Limpieza anulada")
	jobs.jobs[cancelledID].Status = scheduling.StatusCancelled

	report, err := b.PushAll(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 1, report.Pushed)
	require.Equal(t, 0, report.PushErrors)
}

func TestPullCountsIdenticalEventsUnchanged(t *testing.T) {
	api := newFakeAPI()
	b, _, jobs, _ := newTestBridge(api)
	jobID := seedJob(jobs, "Limpieza semanal")
	require.NoError(t, b.PushJob(context.Background(), 1, jobID))

	report, err := b.PullUpdates(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 0, report.Updated)
	require.Equal(t, 1, report.Unchanged)

	job, err := jobs.Get(context.Background(), 1, jobID)
	require.NoError(t, err)
	require.Equal(t, "Limpieza semanal", job.Title)
}

func TestPullAppliesEditWithStaleUpdatedStamp(t *testing.T) {
	api := newFakeAPI()
	b, records, jobs, _ := newTestBridge(api)
	jobID := seedJob(jobs, "Limpieza semanal")
	require.NoError(t, b.PushJob(context.Background(), 1, jobID))

	rec, _ := records.GetByJob(context.Background(), 1, jobID)
	ev := api.events[rec.EventID]
	ev.Summary = "Titulo externo distinto"
	ev.Updated = testNow().Add(-time.Hour)
	api.events[rec.EventID] = ev

	report, err := b.PullUpdates(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 1, report.Updated)

	job, err := jobs.Get(context.Background(), 1, jobID)
	require.NoError(t, err)
	require.Equal(t, "Titulo externo distinto", job.Title)
}

func TestPullAppliesExternalEdits(t *testing.T) {
	api := newFakeAPI()
	b, records, jobs, _ := newTestBridge(api)
	jobID := seedJob(jobs, "Limpieza semanal")
	require.NoError(t, b.PushJob(context.Background(), 1, jobID))

	rec, _ := records.GetByJob(context.Background(), 1, jobID)
	ev := api.events[rec.EventID]
	ev.Summary = "Limpieza semanal (nuevo horario)"
	ev.Start = ev.Start.Add(2 * time.Hour)
	ev.End = ev.End.Add(2 * time.Hour)
	ev.Updated = testNow().Add(time.Minute)
	api.events[rec.EventID] = ev

	report, err := b.PullUpdates(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 1, report.Updated)

	job, err := jobs.Get(context.Background(), 1, jobID)
	require.NoError(t, err)
	require.Equal(t, "Limpieza semanal (nuevo horario)", job.Title)
	require.Equal(t, ev.Start, job.StartAt)
	require.Equal(t, ev.End, job.EndAt)
}

func TestPullCancelledEventCancelsJob(t *testing.T) {
	api := newFakeAPI()
	b, records, jobs, _ := newTestBridge(api)
	jobID := seedJob(jobs, "Limpieza semanal")
	require.NoError(t, b.PushJob(context.Background(), 1, jobID))

	rec, _ := records.GetByJob(context.Background(), 1, jobID)
	ev := api.events[rec.EventID]
	ev.Cancelled = true
	ev.Updated = testNow().Add(time.Minute)
	api.events[rec.EventID] = ev

	report, err := b.PullUpdates(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 1, report.Updated)

	job, err := jobs.Get(context.Background(), 1, jobID)
	require.NoError(t, err)
	require.Equal(t, scheduling.StatusCancelled, job.Status)
}

func TestImportCreatesJobsForUnmappedEvents(t *testing.T) {
	api := newFakeAPI()
	b, records, jobs, clientRepo := newTestBridge(api)

	api.events["ext-1"] = Event{
		ID:      "ext-1",
		Summary: "Visita piso calle Mayor",
		Start:   time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC),
		End:     time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC),
	}
	api.events["ext-allday"] = Event{
		ID:     "ext-allday",
		AllDay: true,
		Start:  time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC),
		End:    time.Date(2026, 3, 17, 0, 0, 0, 0, time.UTC),
	}

	report, err := b.Import(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 1, report.Imported)
	require.Equal(t, 1, report.Skipped)

	// No clients existed, so the default one was created.
	require.Len(t, clientRepo.clientList, 1)
	require.Equal(t, "Cliente importado", clientRepo.clientList[0].Name)

	rec, err := records.GetByEvent(context.Background(), 1, "ext-1")
	require.NoError(t, err)
	job, err := jobs.Get(context.Background(), 1, rec.JobID)
	require.NoError(t, err)
	require.Equal(t, "Visita piso calle Mayor", job.Title)
	require.Equal(t, scheduling.ServiceOther, job.ServiceType)
	require.Equal(t, scheduling.StatusPending, job.Status)

	// The event was stamped with the job id.
	require.Equal(t, job.ID, api.events["ext-1"].JobID)
}

func TestImportSkipsAlreadyMapped(t *testing.T) {
	api := newFakeAPI()
	b, _, jobs, clientRepo := newTestBridge(api)
	clientRepo.clientList = append(clientRepo.clientList, clients.Client{ID: 1, Name: "Cliente"})
	jobID := seedJob(jobs, "Limpieza semanal")

	require.NoError(t, b.PushJob(context.Background(), 1, jobID))

	report, err := b.Import(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 0, report.Imported)
	require.Equal(t, 1, report.Skipped)
}

func TestImportReusesFirstClient(t *testing.T) {
	api := newFakeAPI()
	b, _, jobs, clientRepo := newTestBridge(api)
	clientRepo.clientList = append(clientRepo.clientList, clients.Client{ID: 7, Name: "Comunidad Sol"})

	api.events["ext-2"] = Event{
		ID:    "ext-2",
		Start: time.Date(2026, 3, 20, 9, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 3, 20, 10, 0, 0, 0, time.UTC),
	}

	report, err := b.Import(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 1, report.Imported)
	require.Len(t, clientRepo.clientList, 1)

	var imported *scheduling.Job
	for _, j := range jobs.jobs {
		imported = j
	}
	require.NotNil(t, imported)
	require.Equal(t, int64(7), imported.ClientID)
	require.Equal(t, "Evento importado", imported.Title)
}

func TestRemoveJobEventToleratesMissing(t *testing.T) {
	api := newFakeAPI()
	b, records, jobs, _ := newTestBridge(api)
	jobID := seedJob(jobs, "Limpieza semanal")

	// No mapping at all.
	require.NoError(t, b.RemoveJobEvent(context.Background(), 1, jobID))

	require.NoError(t, b.PushJob(context.Background(), 1, jobID))
	rec, _ := records.GetByJob(context.Background(), 1, jobID)

	// Event already gone on the provider side.
	delete(api.events, rec.EventID)
	require.NoError(t, b.RemoveJobEvent(context.Background(), 1, jobID))
	_, err := records.GetByJob(context.Background(), 1, jobID)
	require.ErrorIs(t, err, ErrRecordNotFound)
}

func TestTwoWaySyncMergesReports(t *testing.T) {
	api := newFakeAPI()
	b, records, jobs, clientRepo := newTestBridge(api)
	clientRepo.clientList = append(clientRepo.clientList, clients.Client{ID: 1, Name: "Cliente"})

	jobID := seedJob(jobs, "Limpieza semanal")
	api.events["ext-3"] = Event{
		ID:      "ext-3",
		Summary: "Obra nueva",
		Start:   time.Date(2026, 3, 18, 8, 0, 0, 0, time.UTC),
		End:     time.Date(2026, 3, 18, 9, 0, 0, 0, time.UTC),
	}

	report, err := b.TwoWaySync(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 1, report.Imported)
	// The imported job matches its event field for field.
	require.Equal(t, 1, report.Unchanged)
	// The pre-existing job and the freshly imported one are both pushed.
	require.Equal(t, 2, report.Pushed)

	recs, err := records.ListByAccount(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	_, err = records.GetByJob(context.Background(), 1, jobID)
	require.NoError(t, err)
}
