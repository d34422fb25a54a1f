package record

import (
	"strings"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/schoolhub/core"
	"github.com/trezcool/schoolhub/core/gradelevel"
	"github.com/trezcool/schoolhub/core/student"
)

const Table = "records"

const (
	TypeTranscript  = "transcript"
	TypeReportCard  = "report_card"
	TypeCertificate = "certificate"

	StatusPending  = "pending"
	StatusComplete = "complete"
)

var Types = []string{TypeTranscript, TypeReportCard, TypeCertificate}

// Record is a row of the records table: an academic document requested for a student.
type Record struct {
	ID          string      `db:"id" json:"id"`
	StudentID   string      `db:"student_id" json:"student_id"`
	RecordType  string      `db:"record_type" json:"record_type"`
	Status      string      `db:"status" json:"status"`
	RequestedBy null.String `db:"requested_by" json:"requested_by"`
	CompletedAt null.Time   `db:"completed_at" json:"completed_at"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
}

func (r Record) IsComplete() bool { return r.Status == StatusComplete }

// Date is the day the record was requested.
func (r Record) Date() string {
	return r.CreatedAt.Format(core.DateLayout)
}

// Label is the display name of the record type ("report_card" -> "Report Card").
func Label(recordType string) string {
	words := strings.Split(recordType, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// Form is the new record request form.
type Form struct {
	StudentID  string `form:"student_id" json:"student_id" validate:"required"`
	RecordType string `form:"record_type" json:"record_type" validate:"required,oneof=transcript report_card certificate"`
}

func (f *Form) Validate() error {
	f.StudentID = core.CleanString(f.StudentID)
	f.RecordType = core.CleanString(f.RecordType, true)
	return core.Validate.Struct(f)
}

// Entry is a record joined with its student.
type Entry struct {
	Record
	StudentName string
	GradeName   string
}

func Entries(records []Record, students []student.Student, levels []gradelevel.GradeLevel) []Entry {
	byID := make(map[string]student.Student, len(students))
	for _, s := range students {
		byID[s.ID] = s
	}
	entries := make([]Entry, 0, len(records))
	for _, r := range records {
		e := Entry{Record: r, GradeName: "Unassigned"}
		if s, ok := byID[r.StudentID]; ok {
			e.StudentName = s.FullName()
			e.GradeName = gradelevel.Name(levels, s.GradeLevelID)
		}
		entries = append(entries, e)
	}
	return entries
}

// Filter keeps the entries whose student name or record type contains search, case-insensitively.
func Filter(entries []Entry, search string) []Entry {
	search = core.CleanString(search)
	if search == "" {
		return entries
	}
	filtered := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if core.ContainsFold(e.StudentName, search) || core.ContainsFold(e.RecordType, search) || core.ContainsFold(Label(e.RecordType), search) {
			filtered = append(filtered, e)
		}
	}
	return filtered
}
