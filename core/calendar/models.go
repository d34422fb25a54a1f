package calendar

import (
	"fmt"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/schoolhub/core"
)

const Table = "events"

const (
	TypeAcademic = "academic"
	TypeSports   = "sports"
	TypeCultural = "cultural"
	TypeHoliday  = "holiday"
)

var EventTypes = []string{TypeAcademic, TypeSports, TypeCultural, TypeHoliday}

// Event is a row of the events table.
type Event struct {
	ID          string      `db:"id" json:"id"`
	Title       string      `db:"title" json:"title"`
	Description null.String `db:"description" json:"description"`
	EventDate   string      `db:"event_date" json:"event_date"`
	StartTime   null.String `db:"start_time" json:"start_time"`
	EndTime     null.String `db:"end_time" json:"end_time"`
	EventType   null.String `db:"event_type" json:"event_type"`
	Location    null.String `db:"location" json:"location"`
	CreatedBy   null.String `db:"created_by" json:"created_by"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
}

// Form is the add/edit event form.
type Form struct {
	Title       string `form:"title" json:"title" validate:"notblank"`
	Description string `form:"description" json:"description"`
	EventDate   string `form:"event_date" json:"event_date" validate:"required,isodate"`
	StartTime   string `form:"start_time" json:"start_time"`
	EndTime     string `form:"end_time" json:"end_time"`
	EventType   string `form:"event_type" json:"event_type" validate:"omitempty,oneof=academic sports cultural holiday"`
	Location    string `form:"location" json:"location"`
}

func (f *Form) Validate() error {
	f.Title = core.CleanString(f.Title)
	f.Description = core.CleanString(f.Description)
	f.EventDate = core.CleanString(f.EventDate)
	f.StartTime = core.CleanString(f.StartTime)
	f.EndTime = core.CleanString(f.EndTime)
	f.EventType = core.CleanString(f.EventType, true)
	f.Location = core.CleanString(f.Location)
	if f.EventType == "" {
		f.EventType = TypeAcademic
	}
	return core.Validate.Struct(f)
}

func (f Form) patch() map[string]interface{} {
	return map[string]interface{}{
		"title":       f.Title,
		"description": core.NullString(f.Description),
		"event_date":  f.EventDate,
		"start_time":  core.NullString(f.StartTime),
		"end_time":    core.NullString(f.EndTime),
		"event_type":  core.NullString(f.EventType),
		"location":    core.NullString(f.Location),
	}
}

func FormOf(e Event) Form {
	return Form{
		Title:       e.Title,
		Description: e.Description.String,
		EventDate:   e.EventDate,
		StartTime:   e.StartTime.String,
		EndTime:     e.EndTime.String,
		EventType:   e.EventType.String,
		Location:    e.Location.String,
	}
}

// Day is a cell of the month grid.
type Day struct {
	Number int
	Date   string
	Today  bool
	Events []Event
}

// Grid is a month of the calendar page.
type Grid struct {
	Year  int
	Month time.Month
	// Blanks is the weekday of the 1st (Sunday = 0): the number of empty cells before it.
	Blanks int
	Days   []Day
}

func (g Grid) Title() string {
	return fmt.Sprintf("%s %d", g.Month, g.Year)
}

// Key is the YYYY-MM of the grid, as used in the page query string.
func (g Grid) Key() string {
	return fmt.Sprintf("%04d-%02d", g.Year, int(g.Month))
}

func (g Grid) Prev() string { return monthKey(g.Year, g.Month-1) }
func (g Grid) Next() string { return monthKey(g.Year, g.Month+1) }

// Weekdays are the column headers of the grid.
var Weekdays = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

func monthKey(year int, month time.Month) string {
	t := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return t.Format("2006-01")
}

// ParseMonth reads a YYYY-MM key, falling back to the current month.
func ParseMonth(key string) (int, time.Month) {
	if t, err := time.Parse("2006-01", key); err == nil {
		return t.Year(), t.Month()
	}
	now := core.NowFunc()
	return now.Year(), now.Month()
}

// MonthBounds returns the first and last dates (YYYY-MM-DD) of the month.
func MonthBounds(year int, month time.Month) (string, string) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return first.Format(core.DateLayout), last.Format(core.DateLayout)
}

// Month lays out the days of the month with their events, matched on YYYY-MM-DD.
func Month(year int, month time.Month, events []Event) Grid {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	daysIn := first.AddDate(0, 1, -1).Day()
	today := core.Today()

	perDay := make(map[string][]Event)
	for _, e := range events {
		perDay[e.EventDate] = append(perDay[e.EventDate], e)
	}

	g := Grid{Year: year, Month: month, Blanks: int(first.Weekday()), Days: make([]Day, 0, daysIn)}
	for d := 1; d <= daysIn; d++ {
		date := fmt.Sprintf("%04d-%02d-%02d", year, int(month), d)
		g.Days = append(g.Days, Day{Number: d, Date: date, Today: date == today, Events: perDay[date]})
	}
	return g
}
