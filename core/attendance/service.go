package attendance

import (
	"context"

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

// Query returns the records of date (all dates when empty), optionally restricted to a class.
func (svc *Service) Query(ctx context.Context, date, classID string) ([]Record, error) {
	var filters []core.Filter
	if date != "" {
		filters = append(filters, core.Eq("date", date))
	}
	if classID != "" {
		filters = append(filters, core.Eq("class_id", classID))
	}
	var records []Record
	q := core.Where(filters...).OrderBy(core.Desc("date"), core.Asc("created_at"))
	err := svc.store.Select(ctx, Table, q, &records)
	return records, errors.Wrap(err, "selecting attendance")
}

// ForStudents returns the records of the given students.
func (svc *Service) ForStudents(ctx context.Context, studentIDs ...string) ([]Record, error) {
	if len(studentIDs) == 0 {
		return nil, nil
	}
	var records []Record
	q := core.Where(core.In("student_id", studentIDs)).OrderBy(core.Desc("date"))
	err := svc.store.Select(ctx, Table, q, &records)
	return records, errors.Wrap(err, "selecting student attendance")
}

// Mark records the status of a student on a date: the existing record of the student for that date
// and class is updated, otherwise a new one is inserted. Without a class, only the daily record
// (class_id null) is matched.
func (svc *Service) Mark(ctx context.Context, data Mark) (Record, error) {
	if err := data.Validate(); err != nil {
		return Record{}, err
	}

	filters := []core.Filter{core.Eq("student_id", data.StudentID), core.Eq("date", data.Date)}
	if data.ClassID != "" {
		filters = append(filters, core.Eq("class_id", data.ClassID))
	} else {
		filters = append(filters, core.Eq("class_id", nil))
	}
	patch := map[string]interface{}{
		"status": data.Status,
		"notes":  core.NullString(data.Notes),
	}
	var rec Record
	err := svc.store.Update(ctx, Table, filters, patch, &rec)
	if err == nil {
		return rec, nil
	}
	if !core.IsNotFound(err) {
		return Record{}, errors.Wrap(err, "updating attendance")
	}

	rec = Record{
		ID:        uuid.NewString(),
		StudentID: data.StudentID,
		ClassID:   core.NullString(data.ClassID),
		Date:      data.Date,
		Status:    data.Status,
		Notes:     core.NullString(data.Notes),
		CreatedAt: core.NowFunc().UTC(),
	}
	var created Record
	if err := svc.store.Insert(ctx, Table, rec, &created); err != nil {
		return Record{}, errors.Wrap(err, "inserting attendance")
	}
	return created, nil
}

// SetStatus changes the status of an existing record.
func (svc *Service) SetStatus(ctx context.Context, id, status string) (Record, error) {
	if err := core.Validate.Var(status, "required,oneof=present absent late"); err != nil {
		return Record{}, core.NewValidationError(nil, core.FieldError{Field: "status", Error: "invalid status"})
	}
	var rec Record
	err := svc.store.Update(ctx, Table, []core.Filter{core.Eq("id", id)}, map[string]interface{}{"status": status}, &rec)
	return rec, errors.Wrap(err, "updating attendance status")
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	n, err := svc.store.Delete(ctx, Table, []core.Filter{core.Eq("id", id)})
	if err != nil {
		return errors.Wrap(err, "deleting attendance")
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}
