package calendar

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// jobIDProperty is the private extended-property key that marks events
// managed by us and carries the owning job id.
const jobIDProperty = "limpioJobId"

// API is the slice of a calendar provider the bridge needs. An API
// value is bound to one account's credentials.
type API interface {
	List(ctx context.Context, from, to time.Time, max int64) ([]Event, error)
	Insert(ctx context.Context, ev Event) (string, error)
	Update(ctx context.Context, ev Event) error
	Delete(ctx context.Context, eventID string) error
}

// ErrEventNotFound indicates the provider no longer has the event.
var ErrEventNotFound = errors.New("calendar event not found")

type googleAPI struct {
	svc        *gcal.Service
	calendarID string
}

// NewGoogleAPI builds an API backed by Google Calendar using the given
// token source.
func NewGoogleAPI(ctx context.Context, ts oauth2.TokenSource, calendarID string) (API, error) {
	svc, err := gcal.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("init calendar service: %w", err)
	}
	return &googleAPI{svc: svc, calendarID: calendarID}, nil
}

func (g *googleAPI) List(ctx context.Context, from, to time.Time, max int64) ([]Event, error) {
	call := g.svc.Events.List(g.calendarID).
		Context(ctx).
		TimeMin(from.Format(time.RFC3339)).
		TimeMax(to.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		ShowDeleted(true)
	if max > 0 {
		call = call.MaxResults(max)
	}

	var out []Event
	err := call.Pages(ctx, func(page *gcal.Events) error {
		for _, item := range page.Items {
			out = append(out, fromGoogleEvent(item))
			if max > 0 && int64(len(out)) >= max {
				return errStopPaging
			}
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStopPaging) {
		return nil, fmt.Errorf("list events: %w", mapGoogleErr(err))
	}
	return out, nil
}

func (g *googleAPI) Insert(ctx context.Context, ev Event) (string, error) {
	created, err := g.svc.Events.Insert(g.calendarID, toGoogleEvent(ev)).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("insert event: %w", mapGoogleErr(err))
	}
	return created.Id, nil
}

func (g *googleAPI) Update(ctx context.Context, ev Event) error {
	_, err := g.svc.Events.Update(g.calendarID, ev.ID, toGoogleEvent(ev)).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update event: %w", mapGoogleErr(err))
	}
	return nil
}

func (g *googleAPI) Delete(ctx context.Context, eventID string) error {
	if err := g.svc.Events.Delete(g.calendarID, eventID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete event: %w", mapGoogleErr(err))
	}
	return nil
}

var errStopPaging = errors.New("stop paging")

func mapGoogleErr(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && (apiErr.Code == 404 || apiErr.Code == 410) {
		return ErrEventNotFound
	}
	return err
}

func toGoogleEvent(ev Event) *gcal.Event {
	out := &gcal.Event{
		Id:          ev.ID,
		Summary:     ev.Summary,
		Description: ev.Description,
		Location:    ev.Location,
		Start:       &gcal.EventDateTime{DateTime: ev.Start.Format(time.RFC3339)},
		End:         &gcal.EventDateTime{DateTime: ev.End.Format(time.RFC3339)},
	}
	if ev.JobID != 0 {
		out.ExtendedProperties = &gcal.EventExtendedProperties{
			Private: map[string]string{jobIDProperty: strconv.FormatInt(ev.JobID, 10)},
		}
	}
	return out
}

func fromGoogleEvent(item *gcal.Event) Event {
	ev := Event{
		ID:          item.Id,
		Summary:     item.Summary,
		Description: item.Description,
		Location:    item.Location,
		Cancelled:   item.Status == "cancelled",
	}
	if item.Updated != "" {
		ev.Updated, _ = time.Parse(time.RFC3339, item.Updated)
	}
	if item.ExtendedProperties != nil {
		if raw, ok := item.ExtendedProperties.Private[jobIDProperty]; ok {
			ev.JobID, _ = strconv.ParseInt(raw, 10, 64)
		}
	}
	if item.Start != nil {
		if item.Start.DateTime != "" {
			ev.Start, _ = time.Parse(time.RFC3339, item.Start.DateTime)
		} else if item.Start.Date != "" {
			ev.AllDay = true
		}
	}
	if item.End != nil && item.End.DateTime != "" {
		ev.End, _ = time.Parse(time.RFC3339, item.End.DateTime)
	}
	return ev
}
