package calendar_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/schoolhub/core"
	"github.com/trezcool/schoolhub/core/calendar"
	"github.com/trezcool/schoolhub/storage/inmem"
)

func TestService(t *testing.T) {
	svc := calendar.NewService(inmem.Open())
	ctx := core.WithUserID(context.Background(), "admin-1")

	_, err := svc.Create(ctx, calendar.Form{Title: "Party", EventDate: "2026-01-18", EventType: "rave"})
	assert.Equal(t, map[string]string{"event_type": "event_type must be one of [academic sports cultural holiday]"}, core.FieldErrors(err))

	fair, err := svc.Create(ctx, calendar.Form{Title: "Science Fair", EventDate: "2026-01-18", StartTime: "09:00"})
	require.NoError(t, err)
	assert.Equal(t, calendar.TypeAcademic, fair.EventType.String)
	assert.Equal(t, "admin-1", fair.CreatedBy.String)

	for _, f := range []calendar.Form{
		{Title: "Sports Day", EventDate: "2026-01-25", EventType: "sports"},
		{Title: "New Year", EventDate: "2026-01-01", EventType: "holiday"},
		{Title: "Cultural Festival", EventDate: "2026-02-14", EventType: "cultural"},
	} {
		_, err := svc.Create(ctx, f)
		require.NoError(t, err)
	}

	january, err := svc.Query(ctx, 2026, time.January)
	require.NoError(t, err)
	if assert.Len(t, january, 3) {
		assert.Equal(t, "New Year", january[0].Title)
		assert.Equal(t, "Sports Day", january[2].Title)
	}

	form := calendar.FormOf(fair)
	form.Location = "Gym"
	updated, err := svc.Update(ctx, fair.ID, form)
	require.NoError(t, err)
	assert.Equal(t, "Gym", updated.Location.String)

	require.NoError(t, svc.Delete(ctx, fair.ID))
	assert.True(t, core.IsNotFound(svc.Delete(ctx, fair.ID)))
}

func TestService_Upcoming(t *testing.T) {
	svc := calendar.NewService(inmem.Open())
	ctx := context.Background()

	now := core.NowFunc()
	for i, days := range []int{-3, 5, 0, 30} {
		_, err := svc.Create(ctx, calendar.Form{
			Title:     []string{"past", "soon", "today", "later"}[i],
			EventDate: now.AddDate(0, 0, days).Format(core.DateLayout),
		})
		require.NoError(t, err)
	}

	events, err := svc.Upcoming(ctx, 2)
	require.NoError(t, err)
	if assert.Len(t, events, 2) {
		assert.Equal(t, "today", events[0].Title)
		assert.Equal(t, "soon", events[1].Title)
	}
}

func TestMonth(t *testing.T) {
	events := []calendar.Event{
		{ID: "1", Title: "Science Fair", EventDate: "2026-01-18"},
		{ID: "2", Title: "Sports Day", EventDate: "2026-01-25"},
		{ID: "3", Title: "Fair setup", EventDate: "2026-01-18"},
	}
	g := calendar.Month(2026, time.January, events)
	assert.Equal(t, "January 2026", g.Title())
	assert.Equal(t, 4, g.Blanks) // Thursday
	assert.Len(t, g.Days, 31)
	assert.Len(t, g.Days[17].Events, 2)
	assert.Equal(t, "2026-01-18", g.Days[17].Date)
	assert.Empty(t, g.Days[0].Events)
	assert.Equal(t, "2025-12", g.Prev())
	assert.Equal(t, "2026-02", g.Next())
	assert.Equal(t, "2026-01", g.Key())

	feb := calendar.Month(2028, time.February, nil)
	assert.Len(t, feb.Days, 29)
	assert.Equal(t, 2, feb.Blanks) // Tuesday

	year, month := calendar.ParseMonth("2026-03")
	assert.Equal(t, 2026, year)
	assert.Equal(t, time.March, month)

	from, to := calendar.MonthBounds(2026, time.February)
	assert.Equal(t, "2026-02-01", from)
	assert.Equal(t, "2026-02-28", to)
}
