package class

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/schoolhub/core"
	"github.com/trezcool/schoolhub/core/student"
)

var (
	ErrClassFull       = errors.New("class is at full capacity")
	ErrAlreadyEnrolled = errors.New("student is already enrolled in this class")
)

type Service struct {
	store core.Store
}

func NewService(store core.Store) *Service {
	return &Service{store: store}
}

// Query returns all classes ordered by name.
func (svc *Service) Query(ctx context.Context) ([]Class, error) {
	var classes []Class
	err := svc.store.Select(ctx, Table, core.Query{}.OrderBy(core.Asc("name")), &classes)
	return classes, errors.Wrap(err, "selecting classes")
}

// ByTeacher returns the classes taught by the given teacher row.
func (svc *Service) ByTeacher(ctx context.Context, teacherID string) ([]Class, error) {
	var classes []Class
	q := core.Where(core.Eq("teacher_id", teacherID)).OrderBy(core.Asc("name"))
	err := svc.store.Select(ctx, Table, q, &classes)
	return classes, errors.Wrap(err, "selecting classes by teacher")
}

func (svc *Service) Get(ctx context.Context, id string) (Class, error) {
	var c Class
	err := svc.store.Get(ctx, Table, core.Where(core.Eq("id", id)), &c)
	return c, errors.Wrap(err, "getting class")
}

func (svc *Service) Create(ctx context.Context, data Form) (Class, error) {
	if err := data.Validate(); err != nil {
		return Class{}, err
	}
	c := Class{
		ID:           uuid.NewString(),
		Name:         data.Name,
		GradeLevelID: core.NullString(data.GradeLevelID),
		TeacherID:    core.NullString(data.TeacherID),
		Room:         core.NullString(data.Room),
		Schedule:     core.NullString(data.Schedule),
		Capacity:     data.capacity(),
		CreatedAt:    core.NowFunc().UTC(),
	}
	var created Class
	if err := svc.store.Insert(ctx, Table, c, &created); err != nil {
		return Class{}, errors.Wrap(err, "inserting class")
	}
	return created, nil
}

func (svc *Service) Update(ctx context.Context, id string, data Form) (Class, error) {
	if err := data.Validate(); err != nil {
		return Class{}, err
	}
	var c Class
	err := svc.store.Update(ctx, Table, []core.Filter{core.Eq("id", id)}, data.patch(), &c)
	return c, errors.Wrap(err, "updating class")
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	if _, err := svc.store.Delete(ctx, EnrollmentTable, []core.Filter{core.Eq("class_id", id)}); err != nil {
		return errors.Wrap(err, "deleting class enrollments")
	}
	n, err := svc.store.Delete(ctx, Table, []core.Filter{core.Eq("id", id)})
	if err != nil {
		return errors.Wrap(err, "deleting class")
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// Enrollments returns every class_students row.
func (svc *Service) Enrollments(ctx context.Context) ([]Enrollment, error) {
	var enrollments []Enrollment
	err := svc.store.Select(ctx, EnrollmentTable, core.Query{}, &enrollments)
	return enrollments, errors.Wrap(err, "selecting enrollments")
}

// StudentEnrollments returns the enrollments of a student.
func (svc *Service) StudentEnrollments(ctx context.Context, studentID string) ([]Enrollment, error) {
	var enrollments []Enrollment
	err := svc.store.Select(ctx, EnrollmentTable, core.Where(core.Eq("student_id", studentID)), &enrollments)
	return enrollments, errors.Wrap(err, "selecting student enrollments")
}

// Roster returns the students enrolled in the class.
func (svc *Service) Roster(ctx context.Context, classID string) ([]student.Student, error) {
	var enrollments []Enrollment
	q := core.Where(core.Eq("class_id", classID)).OrderBy(core.Asc("enrolled_at"))
	if err := svc.store.Select(ctx, EnrollmentTable, q, &enrollments); err != nil {
		return nil, errors.Wrap(err, "selecting class enrollments")
	}
	if len(enrollments) == 0 {
		return nil, nil
	}
	ids := make([]string, 0, len(enrollments))
	for _, e := range enrollments {
		ids = append(ids, e.StudentID)
	}
	var students []student.Student
	q = core.Where(core.In("id", ids)).OrderBy(core.Asc("last_name"), core.Asc("first_name"))
	err := svc.store.Select(ctx, student.Table, q, &students)
	return students, errors.Wrap(err, "selecting roster")
}

// Enroll adds the student to the class, unless the class is full or the student already enrolled.
func (svc *Service) Enroll(ctx context.Context, classID, studentID string) (Enrollment, error) {
	c, err := svc.Get(ctx, classID)
	if err != nil {
		return Enrollment{}, err
	}

	var enrollments []Enrollment
	if err := svc.store.Select(ctx, EnrollmentTable, core.Where(core.Eq("class_id", classID)), &enrollments); err != nil {
		return Enrollment{}, errors.Wrap(err, "selecting class enrollments")
	}
	for _, e := range enrollments {
		if e.StudentID == studentID {
			return Enrollment{}, core.NewValidationError(ErrAlreadyEnrolled, core.FieldError{Field: "student_id", Error: ErrAlreadyEnrolled.Error()})
		}
	}
	if c.Capacity.Valid && len(enrollments) >= c.Capacity.Int {
		return Enrollment{}, core.NewValidationError(ErrClassFull, core.FieldError{Field: "student_id", Error: ErrClassFull.Error()})
	}

	e := Enrollment{
		ID:         uuid.NewString(),
		ClassID:    classID,
		StudentID:  studentID,
		EnrolledAt: core.NowFunc().UTC(),
	}
	var created Enrollment
	if err := svc.store.Insert(ctx, EnrollmentTable, e, &created); err != nil {
		return Enrollment{}, errors.Wrap(err, "inserting enrollment")
	}
	return created, nil
}

func (svc *Service) Unenroll(ctx context.Context, classID, studentID string) error {
	n, err := svc.store.Delete(ctx, EnrollmentTable, []core.Filter{core.Eq("class_id", classID), core.Eq("student_id", studentID)})
	if err != nil {
		return errors.Wrap(err, "deleting enrollment")
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}
