package student

import (
	"context"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/schoolhub/core"
	"github.com/trezcool/schoolhub/core/gradelevel"
	"github.com/trezcool/schoolhub/core/sheet"
)

type Service struct {
	store core.Store
}

func NewService(store core.Store) *Service {
	return &Service{store: store}
}

// Query returns all students, newest first.
func (svc *Service) Query(ctx context.Context) ([]Student, error) {
	var students []Student
	err := svc.store.Select(ctx, Table, core.Query{}.OrderBy(core.Desc("created_at")), &students)
	return students, errors.Wrap(err, "selecting students")
}

// Active returns the students with an active status.
func (svc *Service) Active(ctx context.Context) ([]Student, error) {
	var students []Student
	q := core.Where(core.Eq("status", StatusActive)).OrderBy(core.Asc("last_name"), core.Asc("first_name"))
	err := svc.store.Select(ctx, Table, q, &students)
	return students, errors.Wrap(err, "selecting active students")
}

// ByIDs returns the students with the given row IDs.
func (svc *Service) ByIDs(ctx context.Context, ids []string) ([]Student, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var students []Student
	q := core.Where(core.In("id", ids)).OrderBy(core.Asc("first_name"))
	err := svc.store.Select(ctx, Table, q, &students)
	return students, errors.Wrap(err, "selecting students by IDs")
}

func (svc *Service) Get(ctx context.Context, id string) (Student, error) {
	var s Student
	err := svc.store.Get(ctx, Table, core.Where(core.Eq("id", id)), &s)
	return s, errors.Wrap(err, "getting student")
}

// ForUser returns the student linked to the given auth user.
func (svc *Service) ForUser(ctx context.Context, userID string) (Student, error) {
	var s Student
	err := svc.store.Get(ctx, Table, core.Where(core.Eq("user_id", userID)), &s)
	return s, errors.Wrap(err, "getting student by user")
}

// Create enrolls a student with a generated student ID.
func (svc *Service) Create(ctx context.Context, data Form) (Student, error) {
	if err := data.Validate(); err != nil {
		return Student{}, err
	}
	now := core.NowFunc().UTC()
	s := Student{
		ID:             uuid.NewString(),
		StudentID:      core.NewCode(CodePrefix),
		FirstName:      data.FirstName,
		LastName:       data.LastName,
		Email:          core.NullString(data.Email),
		Phone:          core.NullString(data.Phone),
		DateOfBirth:    core.NullString(data.DateOfBirth),
		Gender:         core.NullString(data.Gender),
		GradeLevelID:   core.NullString(data.GradeLevelID),
		Address:        core.NullString(data.Address),
		ParentName:     core.NullString(data.ParentName),
		ParentPhone:    core.NullString(data.ParentPhone),
		ParentEmail:    core.NullString(data.ParentEmail),
		EnrollmentDate: now.Format(core.DateLayout),
		Status:         StatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if data.Status != "" {
		s.Status = data.Status
	}
	var created Student
	if err := svc.store.Insert(ctx, Table, s, &created); err != nil {
		return Student{}, errors.Wrap(err, "inserting student")
	}
	return created, nil
}

func (svc *Service) Update(ctx context.Context, id string, data Form) (Student, error) {
	if err := data.Validate(); err != nil {
		return Student{}, err
	}
	var s Student
	err := svc.store.Update(ctx, Table, []core.Filter{core.Eq("id", id)}, data.patch(), &s)
	return s, errors.Wrap(err, "updating student")
}

func (svc *Service) SetAvatar(ctx context.Context, id, url string) (Student, error) {
	patch := map[string]interface{}{"avatar_url": core.NullString(url), "updated_at": core.NowFunc().UTC()}
	var s Student
	err := svc.store.Update(ctx, Table, []core.Filter{core.Eq("id", id)}, patch, &s)
	return s, errors.Wrap(err, "setting student avatar")
}

// ByCode returns the student with the given student ID (STU-...).
func (svc *Service) ByCode(ctx context.Context, code string) (Student, error) {
	var s Student
	err := svc.store.Get(ctx, Table, core.Where(core.Eq("student_id", strings.ToUpper(core.CleanString(code)))), &s)
	return s, errors.Wrap(err, "getting student by code")
}

// LinkUser attaches the student record to a student account, for the student portal.
func (svc *Service) LinkUser(ctx context.Context, id, userID string) (Student, error) {
	patch := map[string]interface{}{"user_id": core.NullString(userID), "updated_at": core.NowFunc().UTC()}
	var s Student
	err := svc.store.Update(ctx, Table, []core.Filter{core.Eq("id", id)}, patch, &s)
	return s, errors.Wrap(err, "linking student account")
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	n, err := svc.store.Delete(ctx, Table, []core.Filter{core.Eq("id", id)})
	if err != nil {
		return errors.Wrap(err, "deleting student")
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// import columns
const (
	colFirstName = iota
	colLastName
	colEmail
	colGender
	colGradeLevel
	colParentName
	colParentEmail
)

// ImportHeader is the expected header row of an import workbook.
var ImportHeader = []string{"First Name", "Last Name", "Email", "Gender", "Grade Level", "Parent Name", "Parent Email"}

// Import enrolls the students listed in the first sheet of an XLSX workbook (header row skipped).
// Rows missing a name or failing validation are skipped; the number of enrolled students is returned.
func (svc *Service) Import(ctx context.Context, r io.Reader) (int, error) {
	rows, err := sheet.ReadFirst(r)
	if err != nil {
		return 0, core.NewValidationError(errors.Wrap(err, "invalid spreadsheet"))
	}

	var levels []gradelevel.GradeLevel
	if err := svc.store.Select(ctx, gradelevel.Table, core.Query{}, &levels); err != nil {
		return 0, errors.Wrap(err, "selecting grade levels")
	}
	levelIDs := make(map[string]string, len(levels))
	for _, gl := range levels {
		levelIDs[strings.ToLower(gl.Name)] = gl.ID
	}

	var imported int
	for i, row := range rows {
		if i == 0 {
			continue // header
		}
		data := Form{
			FirstName:    sheet.Cell(row, colFirstName),
			LastName:     sheet.Cell(row, colLastName),
			Email:        sheet.Cell(row, colEmail),
			Gender:       sheet.Cell(row, colGender),
			GradeLevelID: levelIDs[strings.ToLower(core.CleanString(sheet.Cell(row, colGradeLevel)))],
			ParentName:   sheet.Cell(row, colParentName),
			ParentEmail:  sheet.Cell(row, colParentEmail),
		}
		if core.CleanString(data.FirstName) == "" || core.CleanString(data.LastName) == "" {
			continue
		}
		if _, err := svc.Create(ctx, data); err != nil {
			if core.FieldErrors(err) != nil {
				continue
			}
			return imported, errors.Wrapf(err, "importing row %d", i+1)
		}
		imported++
	}
	return imported, nil
}

// Export writes the students as an XLSX workbook.
func Export(w io.Writer, students []Student, levels []gradelevel.GradeLevel) error {
	t := &sheet.Table{
		Name: "Students",
		Header: []string{
			"Student ID", "First Name", "Last Name", "Email", "Phone", "Gender", "Grade Level",
			"Parent Name", "Parent Phone", "Parent Email", "Enrollment Date", "Status",
		},
	}
	for _, s := range students {
		t.Append(
			s.StudentID, s.FirstName, s.LastName, s.Email.String, s.Phone.String, s.Gender.String,
			gradelevel.Name(levels, s.GradeLevelID), s.ParentName.String, s.ParentPhone.String,
			s.ParentEmail.String, s.EnrollmentDate, s.Status,
		)
	}
	return sheet.Write(w, t)
}
