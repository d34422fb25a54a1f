package record

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/schoolhub/core"
	"github.com/trezcool/schoolhub/core/attendance"
	"github.com/trezcool/schoolhub/core/grade"
	"github.com/trezcool/schoolhub/core/gradelevel"
	"github.com/trezcool/schoolhub/core/sheet"
	"github.com/trezcool/schoolhub/core/student"
)

type Service struct {
	store      core.Store
	students   *student.Service
	levels     *gradelevel.Service
	grades     *grade.Service
	attendance *attendance.Service
}

func NewService(store core.Store, students *student.Service, levels *gradelevel.Service, grades *grade.Service, attendanceSvc *attendance.Service) *Service {
	return &Service{store: store, students: students, levels: levels, grades: grades, attendance: attendanceSvc}
}

// Query returns every record, newest first, joined with the students.
func (svc *Service) Query(ctx context.Context) ([]Entry, error) {
	var records []Record
	if err := svc.store.Select(ctx, Table, core.Query{}.OrderBy(core.Desc("created_at")), &records); err != nil {
		return nil, errors.Wrap(err, "selecting records")
	}
	students, err := svc.students.Query(ctx)
	if err != nil {
		return nil, err
	}
	levels, err := svc.levels.Query(ctx)
	if err != nil {
		return nil, err
	}
	return Entries(records, students, levels), nil
}

func (svc *Service) Get(ctx context.Context, id string) (Record, error) {
	var r Record
	err := svc.store.Get(ctx, Table, core.Where(core.Eq("id", id)), &r)
	return r, errors.Wrap(err, "getting record")
}

// Request files a pending record for the student.
func (svc *Service) Request(ctx context.Context, data Form) (Record, error) {
	if err := data.Validate(); err != nil {
		return Record{}, err
	}
	if _, err := svc.students.Get(ctx, data.StudentID); err != nil {
		if core.IsNotFound(err) {
			return Record{}, core.NewValidationError(nil, core.FieldError{Field: "student_id", Error: "unknown student"})
		}
		return Record{}, err
	}

	r := Record{
		ID:          uuid.NewString(),
		StudentID:   data.StudentID,
		RecordType:  data.RecordType,
		Status:      StatusPending,
		RequestedBy: core.NullString(core.UserID(ctx)),
		CreatedAt:   core.NowFunc().UTC(),
	}
	var created Record
	if err := svc.store.Insert(ctx, Table, r, &created); err != nil {
		return Record{}, errors.Wrap(err, "inserting record")
	}
	return created, nil
}

// Document writes the XLSX document of record id to w and marks the record complete.
func (svc *Service) Document(ctx context.Context, id string, w io.Writer) (Record, error) {
	r, err := svc.Get(ctx, id)
	if err != nil {
		return r, err
	}
	s, err := svc.students.Get(ctx, r.StudentID)
	if err != nil {
		return r, err
	}
	levels, err := svc.levels.Query(ctx)
	if err != nil {
		return r, err
	}

	book := new(sheet.Book)
	info := book.Sheet(Label(r.RecordType), "Field", "Value")
	info.Append("Student", s.FullName())
	info.Append("Student ID", s.StudentID)
	info.Append("Grade", gradelevel.Name(levels, s.GradeLevelID))
	info.Append("Enrollment Date", s.EnrollmentDate)
	info.Append("Status", s.Status)
	info.Append("Issued", core.Today())

	if r.RecordType != TypeCertificate {
		if err := svc.academics(ctx, book, r.RecordType, s.ID); err != nil {
			return r, err
		}
	}
	if err := book.Write(w); err != nil {
		return r, err
	}

	if r.IsComplete() {
		return r, nil
	}
	patch := map[string]interface{}{
		"status":       StatusComplete,
		"completed_at": null.TimeFrom(core.NowFunc().UTC()),
	}
	var updated Record
	if err := svc.store.Update(ctx, Table, []core.Filter{core.Eq("id", r.ID)}, patch, &updated); err != nil {
		return r, errors.Wrap(err, "completing record")
	}
	return updated, nil
}

// academics adds the grade sheets: every quarter for a transcript, subject standings and attendance for a report card.
func (svc *Service) academics(ctx context.Context, book *sheet.Book, recordType, studentID string) error {
	grades, err := svc.grades.ForStudents(ctx, studentID)
	if err != nil {
		return err
	}
	subjects, err := svc.grades.Subjects(ctx)
	if err != nil {
		return err
	}
	names := make(map[string]string, len(subjects))
	for _, s := range subjects {
		names[s.ID] = s.Name
	}

	if recordType == TypeTranscript {
		t := book.Sheet("Grades", "Subject", "Quarter", "Score", "Letter", "Remarks")
		for _, g := range grades {
			var score interface{}
			if g.Score.Valid {
				score = g.Score.Float64
			}
			t.Append(names[g.SubjectID], g.Quarter, score, g.LetterOf(), g.Remarks.String)
		}
	} else {
		t := book.Sheet("Subjects", "Subject", "Percent", "Letter")
		for _, r := range grade.Results(grades, subjects) {
			t.Append(r.Subject, r.Percent, r.Letter)
		}
		records, err := svc.attendance.ForStudents(ctx, studentID)
		if err != nil {
			return err
		}
		stats := attendance.StatsOf(records)
		att := book.Sheet("Attendance", "Present", "Absent", "Late", "Total", "Attendance Rate (%)")
		att.Append(stats.Present, stats.Absent, stats.Late, stats.Total, stats.PresentPercent())
	}

	summary := book.Sheet("Summary", "Metric", "Value")
	summary.Append("GPA", grade.GPA(grades))
	return nil
}
