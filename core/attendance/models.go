package attendance

import (
	"io"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/schoolhub/core"
	"github.com/trezcool/schoolhub/core/sheet"
)

const Table = "attendance"

const (
	StatusPresent = "present"
	StatusAbsent  = "absent"
	StatusLate    = "late"

	// StatusAll disables the status filter.
	StatusAll = "all"
)

var Statuses = []string{StatusPresent, StatusAbsent, StatusLate}

// Record is a row of the attendance table.
type Record struct {
	ID        string      `db:"id" json:"id"`
	StudentID string      `db:"student_id" json:"student_id"`
	ClassID   null.String `db:"class_id" json:"class_id"`
	Date      string      `db:"date" json:"date"`
	Status    string      `db:"status" json:"status"`
	Notes     null.String `db:"notes" json:"notes"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
}

// Mark is the roll-call form of a single student.
type Mark struct {
	StudentID string `form:"student_id" json:"student_id" validate:"required"`
	ClassID   string `form:"class_id" json:"class_id"`
	Date      string `form:"date" json:"date" validate:"required,isodate"`
	Status    string `form:"status" json:"status" validate:"required,oneof=present absent late"`
	Notes     string `form:"notes" json:"notes"`
}

func (m *Mark) Validate() error {
	m.StudentID = core.CleanString(m.StudentID)
	m.ClassID = core.CleanString(m.ClassID)
	m.Date = core.CleanString(m.Date)
	m.Status = core.CleanString(m.Status, true)
	m.Notes = core.CleanString(m.Notes)
	if m.Date == "" {
		m.Date = core.Today()
	}
	return core.Validate.Struct(m)
}

// Filter keeps the records whose student name contains search and whose status is status ("all" or "" for any).
// names maps student IDs to full names.
func Filter(records []Record, names map[string]string, search, status string) []Record {
	search = core.CleanString(search)
	filtered := make([]Record, 0, len(records))
	for _, r := range records {
		if status != "" && status != StatusAll && r.Status != status {
			continue
		}
		if !core.ContainsFold(names[r.StudentID], search) {
			continue
		}
		filtered = append(filtered, r)
	}
	return filtered
}

// Stats counts the records per status.
type Stats struct {
	Present int
	Absent  int
	Late    int
	Total   int
}

func StatsOf(records []Record) Stats {
	var s Stats
	for _, r := range records {
		switch r.Status {
		case StatusPresent:
			s.Present++
		case StatusAbsent:
			s.Absent++
		case StatusLate:
			s.Late++
		}
	}
	s.Total = len(records)
	return s
}

func (s Stats) PresentPercent() int { return core.Percent(s.Present, s.Total) }
func (s Stats) AbsentPercent() int  { return core.Percent(s.Absent, s.Total) }
func (s Stats) LatePercent() int    { return core.Percent(s.Late, s.Total) }

// RingDash is the filled length of the present-rate ring.
func (s Stats) RingDash() float64 {
	return core.RingDash(s.PresentPercent())
}

// Export writes the records as an XLSX workbook.
// names and grades map student IDs to full names and grade level names.
func Export(w io.Writer, records []Record, names, grades map[string]string) error {
	t := &sheet.Table{
		Name:   "Attendance",
		Header: []string{"Student", "Grade", "Date", "Status", "Notes"},
	}
	for _, r := range records {
		t.Append(names[r.StudentID], grades[r.StudentID], r.Date, r.Status, r.Notes.String)
	}
	return sheet.Write(w, t)
}
