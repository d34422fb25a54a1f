package grade

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/schoolhub/core"
	"github.com/trezcool/schoolhub/core/class"
)

type Service struct {
	store core.Store
}

func NewService(store core.Store) *Service {
	return &Service{store: store}
}

// Subjects returns the subjects ordered by name.
func (svc *Service) Subjects(ctx context.Context) ([]Subject, error) {
	var subjects []Subject
	err := svc.store.Select(ctx, SubjectsTable, core.Query{}.OrderBy(core.Asc("name")), &subjects)
	return subjects, errors.Wrap(err, "selecting subjects")
}

func (svc *Service) CreateSubject(ctx context.Context, data SubjectForm) (Subject, error) {
	if err := data.Validate(); err != nil {
		return Subject{}, err
	}
	s := Subject{
		ID:          uuid.NewString(),
		Name:        data.Name,
		Code:        core.NullString(data.Code),
		Description: core.NullString(data.Description),
		CreatedAt:   core.NowFunc().UTC(),
	}
	var created Subject
	if err := svc.store.Insert(ctx, SubjectsTable, s, &created); err != nil {
		return Subject{}, errors.Wrap(err, "inserting subject")
	}
	return created, nil
}

// Query returns every grade.
func (svc *Service) Query(ctx context.Context) ([]Grade, error) {
	var grades []Grade
	err := svc.store.Select(ctx, Table, core.Query{}.OrderBy(core.Asc("quarter")), &grades)
	return grades, errors.Wrap(err, "selecting grades")
}

// ForStudents returns the grades of the given students, by quarter.
func (svc *Service) ForStudents(ctx context.Context, studentIDs ...string) ([]Grade, error) {
	if len(studentIDs) == 0 {
		return nil, nil
	}
	var grades []Grade
	q := core.Where(core.In("student_id", studentIDs)).OrderBy(core.Asc("quarter"), core.Asc("created_at"))
	err := svc.store.Select(ctx, Table, q, &grades)
	return grades, errors.Wrap(err, "selecting student grades")
}

// Record saves the grade of a student for a subject and quarter, replacing the previous one.
// The letter is derived from the score when not given.
func (svc *Service) Record(ctx context.Context, data Form) (Grade, error) {
	if err := data.Validate(); err != nil {
		return Grade{}, err
	}

	var score null.Float64
	letter := data.GradeLetter
	if data.Score != nil {
		score = null.Float64From(*data.Score)
		if letter == "" {
			letter = Letter(*data.Score)
		}
	}
	if _, ok := Points(letter); !ok {
		return Grade{}, core.NewValidationError(nil, core.FieldError{Field: "grade_letter", Error: "invalid grade letter"})
	}

	now := core.NowFunc().UTC()
	filters := []core.Filter{
		core.Eq("student_id", data.StudentID),
		core.Eq("subject_id", data.SubjectID),
		core.Eq("quarter", data.Quarter),
	}
	patch := map[string]interface{}{
		"class_id":     core.NullString(data.ClassID),
		"score":        score,
		"grade_letter": null.StringFrom(letter),
		"remarks":      core.NullString(data.Remarks),
		"recorded_by":  core.NullString(core.UserID(ctx)),
		"updated_at":   now,
	}
	var g Grade
	err := svc.store.Update(ctx, Table, filters, patch, &g)
	if err == nil {
		return g, nil
	}
	if !core.IsNotFound(err) {
		return Grade{}, errors.Wrap(err, "updating grade")
	}

	g = Grade{
		ID:          uuid.NewString(),
		StudentID:   data.StudentID,
		SubjectID:   data.SubjectID,
		ClassID:     core.NullString(data.ClassID),
		Quarter:     data.Quarter,
		Score:       score,
		GradeLetter: null.StringFrom(letter),
		Remarks:     core.NullString(data.Remarks),
		RecordedBy:  core.NullString(core.UserID(ctx)),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	var created Grade
	if err := svc.store.Insert(ctx, Table, g, &created); err != nil {
		return Grade{}, errors.Wrap(err, "inserting grade")
	}
	return created, nil
}

// Assignments returns every assignment, by due date.
func (svc *Service) Assignments(ctx context.Context) ([]Assignment, error) {
	var assignments []Assignment
	err := svc.store.Select(ctx, AssignmentsTable, core.Query{}.OrderBy(core.Asc("due_date")), &assignments)
	return assignments, errors.Wrap(err, "selecting assignments")
}

func (svc *Service) CreateAssignment(ctx context.Context, data AssignmentForm) (Assignment, error) {
	if err := data.Validate(); err != nil {
		return Assignment{}, err
	}
	a := Assignment{
		ID:          uuid.NewString(),
		ClassID:     data.ClassID,
		SubjectID:   core.NullString(data.SubjectID),
		Title:       data.Title,
		Description: core.NullString(data.Description),
		DueDate:     data.DueDate,
		CreatedBy:   core.NullString(core.UserID(ctx)),
		CreatedAt:   core.NowFunc().UTC(),
	}
	if data.MaxScore != nil {
		a.MaxScore = null.IntFrom(*data.MaxScore)
	}
	var created Assignment
	if err := svc.store.Insert(ctx, AssignmentsTable, a, &created); err != nil {
		return Assignment{}, errors.Wrap(err, "inserting assignment")
	}
	return created, nil
}

// Submissions returns every submission.
func (svc *Service) Submissions(ctx context.Context) ([]Submission, error) {
	var subs []Submission
	err := svc.store.Select(ctx, SubmissionsTable, core.Query{}, &subs)
	return subs, errors.Wrap(err, "selecting submissions")
}

// ClassSubmissions returns the submissions to the assignments of the class.
func (svc *Service) ClassSubmissions(ctx context.Context, classID string) ([]Submission, error) {
	var assignments []Assignment
	if err := svc.store.Select(ctx, AssignmentsTable, core.Where(core.Eq("class_id", classID)), &assignments); err != nil {
		return nil, errors.Wrap(err, "selecting assignments")
	}
	if len(assignments) == 0 {
		return nil, nil
	}
	ids := make([]string, 0, len(assignments))
	for _, a := range assignments {
		ids = append(ids, a.ID)
	}
	var subs []Submission
	err := svc.store.Select(ctx, SubmissionsTable, core.Where(core.In("assignment_id", ids)), &subs)
	return subs, errors.Wrap(err, "selecting submissions")
}

// Homework returns the assignments of the classes the student is enrolled in, with the student's submission status.
func (svc *Service) Homework(ctx context.Context, studentID string) ([]Homework, error) {
	var enrollments []class.Enrollment
	if err := svc.store.Select(ctx, class.EnrollmentTable, core.Where(core.Eq("student_id", studentID)), &enrollments); err != nil {
		return nil, errors.Wrap(err, "selecting enrollments")
	}
	if len(enrollments) == 0 {
		return nil, nil
	}
	classIDs := make([]string, 0, len(enrollments))
	for _, e := range enrollments {
		classIDs = append(classIDs, e.ClassID)
	}

	var assignments []Assignment
	q := core.Where(core.In("class_id", classIDs)).OrderBy(core.Asc("due_date"))
	if err := svc.store.Select(ctx, AssignmentsTable, q, &assignments); err != nil {
		return nil, errors.Wrap(err, "selecting assignments")
	}
	var subs []Submission
	if err := svc.store.Select(ctx, SubmissionsTable, core.Where(core.Eq("student_id", studentID)), &subs); err != nil {
		return nil, errors.Wrap(err, "selecting submissions")
	}
	subjects, err := svc.Subjects(ctx)
	if err != nil {
		return nil, err
	}

	subjectNames := make(map[string]string, len(subjects))
	for _, s := range subjects {
		subjectNames[s.ID] = s.Name
	}
	perAssignment := make(map[string]Submission, len(subs))
	for _, s := range subs {
		perAssignment[s.AssignmentID] = s
	}

	homework := make([]Homework, 0, len(assignments))
	for _, a := range assignments {
		h := Homework{Assignment: a, Subject: subjectNames[a.SubjectID.String], Status: StatusPending}
		if s, ok := perAssignment[a.ID]; ok {
			h.Status = s.Status
			h.Score = s.Score
		}
		homework = append(homework, h)
	}
	return homework, nil
}

// Submit hands in the assignment for the student.
func (svc *Service) Submit(ctx context.Context, assignmentID, studentID string) (Submission, error) {
	if err := svc.store.Get(ctx, AssignmentsTable, core.Where(core.Eq("id", assignmentID)), new(Assignment)); err != nil {
		return Submission{}, errors.Wrap(err, "getting assignment")
	}

	now := null.TimeFrom(core.NowFunc().UTC())
	filters := []core.Filter{core.Eq("assignment_id", assignmentID), core.Eq("student_id", studentID)}
	var sub Submission
	err := svc.store.Update(ctx, SubmissionsTable, filters, map[string]interface{}{"status": StatusSubmitted, "submitted_at": now}, &sub)
	if err == nil {
		return sub, nil
	}
	if !core.IsNotFound(err) {
		return Submission{}, errors.Wrap(err, "updating submission")
	}

	sub = Submission{
		ID:           uuid.NewString(),
		AssignmentID: assignmentID,
		StudentID:    studentID,
		Status:       StatusSubmitted,
		SubmittedAt:  now,
	}
	var created Submission
	if err := svc.store.Insert(ctx, SubmissionsTable, sub, &created); err != nil {
		return Submission{}, errors.Wrap(err, "inserting submission")
	}
	return created, nil
}

// Grade scores a submission.
func (svc *Service) Grade(ctx context.Context, submissionID string, score float64, feedback string) (Submission, error) {
	if score < 0 {
		return Submission{}, core.NewValidationError(nil, core.FieldError{Field: "score", Error: "score must be 0 or greater"})
	}
	patch := map[string]interface{}{
		"status":   StatusGraded,
		"score":    null.Float64From(score),
		"feedback": core.NullString(feedback),
	}
	var sub Submission
	err := svc.store.Update(ctx, SubmissionsTable, []core.Filter{core.Eq("id", submissionID)}, patch, &sub)
	return sub, errors.Wrap(err, "grading submission")
}
