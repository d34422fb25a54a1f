package calendar

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/schoolhub/core"
)

type Service struct {
	store core.Store
}

func NewService(store core.Store) *Service {
	return &Service{store: store}
}

// Query returns the events of the month, ordered by date.
func (svc *Service) Query(ctx context.Context, year int, month time.Month) ([]Event, error) {
	from, to := MonthBounds(year, month)
	q := core.Where(core.Gte("event_date", from), core.Lte("event_date", to)).
		OrderBy(core.Asc("event_date"), core.Asc("start_time"))
	var events []Event
	err := svc.store.Select(ctx, Table, q, &events)
	return events, errors.Wrap(err, "selecting events")
}

// Upcoming returns the next n events from today on.
func (svc *Service) Upcoming(ctx context.Context, n int) ([]Event, error) {
	q := core.Where(core.Gte("event_date", core.Today())).OrderBy(core.Asc("event_date"), core.Asc("start_time"))
	q.Limit = n
	var events []Event
	err := svc.store.Select(ctx, Table, q, &events)
	return events, errors.Wrap(err, "selecting upcoming events")
}

func (svc *Service) Get(ctx context.Context, id string) (Event, error) {
	var e Event
	err := svc.store.Get(ctx, Table, core.Where(core.Eq("id", id)), &e)
	return e, errors.Wrap(err, "getting event")
}

// Create adds an event on behalf of the acting user.
func (svc *Service) Create(ctx context.Context, data Form) (Event, error) {
	if err := data.Validate(); err != nil {
		return Event{}, err
	}
	e := Event{
		ID:          uuid.NewString(),
		Title:       data.Title,
		Description: core.NullString(data.Description),
		EventDate:   data.EventDate,
		StartTime:   core.NullString(data.StartTime),
		EndTime:     core.NullString(data.EndTime),
		EventType:   core.NullString(data.EventType),
		Location:    core.NullString(data.Location),
		CreatedBy:   core.NullString(core.UserID(ctx)),
		CreatedAt:   core.NowFunc().UTC(),
	}
	var created Event
	if err := svc.store.Insert(ctx, Table, e, &created); err != nil {
		return Event{}, errors.Wrap(err, "inserting event")
	}
	return created, nil
}

func (svc *Service) Update(ctx context.Context, id string, data Form) (Event, error) {
	if err := data.Validate(); err != nil {
		return Event{}, err
	}
	var e Event
	err := svc.store.Update(ctx, Table, []core.Filter{core.Eq("id", id)}, data.patch(), &e)
	return e, errors.Wrap(err, "updating event")
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	n, err := svc.store.Delete(ctx, Table, []core.Filter{core.Eq("id", id)})
	if err != nil {
		return errors.Wrap(err, "deleting event")
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}
