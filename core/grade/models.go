package grade

import (
	"math"
	"sort"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/schoolhub/core"
)

const (
	SubjectsTable    = "subjects"
	Table            = "grades"
	AssignmentsTable = "assignments"
	SubmissionsTable = "assignment_submissions"
)

// Submission statuses
const (
	StatusPending   = "pending"
	StatusSubmitted = "submitted"
	StatusGraded    = "graded"
)

var Quarters = []string{"Q1", "Q2", "Q3", "Q4"}

type Subject struct {
	ID          string      `db:"id" json:"id"`
	Name        string      `db:"name" json:"name"`
	Code        null.String `db:"code" json:"code"`
	Description null.String `db:"description" json:"description"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
}

type SubjectForm struct {
	Name        string `form:"name" json:"name" validate:"notblank"`
	Code        string `form:"code" json:"code"`
	Description string `form:"description" json:"description"`
}

func (f *SubjectForm) Validate() error {
	f.Name = core.CleanString(f.Name)
	f.Code = core.CleanString(f.Code)
	f.Description = core.CleanString(f.Description)
	return core.Validate.Struct(f)
}

// Grade is a row of the grades table.
type Grade struct {
	ID          string       `db:"id" json:"id"`
	StudentID   string       `db:"student_id" json:"student_id"`
	SubjectID   string       `db:"subject_id" json:"subject_id"`
	ClassID     null.String  `db:"class_id" json:"class_id"`
	Quarter     string       `db:"quarter" json:"quarter"`
	Score       null.Float64 `db:"score" json:"score"`
	GradeLetter null.String  `db:"grade_letter" json:"grade_letter"`
	Remarks     null.String  `db:"remarks" json:"remarks"`
	RecordedBy  null.String  `db:"recorded_by" json:"recorded_by"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at" json:"updated_at"`
}

// Form records the grade of a student for a subject and quarter.
type Form struct {
	StudentID   string   `form:"student_id" json:"student_id" validate:"required"`
	SubjectID   string   `form:"subject_id" json:"subject_id" validate:"required"`
	ClassID     string   `form:"class_id" json:"class_id"`
	Quarter     string   `form:"quarter" json:"quarter" validate:"required,oneof=Q1 Q2 Q3 Q4"`
	Score       *float64 `form:"score" json:"score" validate:"omitempty,min=0,max=100"`
	GradeLetter string   `form:"grade_letter" json:"grade_letter"`
	Remarks     string   `form:"remarks" json:"remarks"`
}

func (f *Form) Validate() error {
	f.StudentID = core.CleanString(f.StudentID)
	f.SubjectID = core.CleanString(f.SubjectID)
	f.ClassID = core.CleanString(f.ClassID)
	f.Quarter = core.CleanString(f.Quarter)
	f.GradeLetter = core.CleanString(f.GradeLetter)
	f.Remarks = core.CleanString(f.Remarks)
	if err := core.Validate.Struct(f); err != nil {
		return err
	}
	if f.Score == nil && f.GradeLetter == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "score", Error: "enter a score or a grade letter"})
	}
	return nil
}

// Letter converts a 0-100 score to a letter grade.
func Letter(score float64) string {
	switch {
	case score >= 97:
		return "A+"
	case score >= 93:
		return "A"
	case score >= 90:
		return "A-"
	case score >= 87:
		return "B+"
	case score >= 83:
		return "B"
	case score >= 80:
		return "B-"
	case score >= 77:
		return "C+"
	case score >= 73:
		return "C"
	case score >= 70:
		return "C-"
	case score >= 60:
		return "D"
	default:
		return "F"
	}
}

// Letters lists the letter grades from best to worst.
var Letters = []string{"A+", "A", "A-", "B+", "B", "B-", "C+", "C", "C-", "D", "F"}

var points = map[string]float64{
	"A+": 4.0, "A": 4.0, "A-": 3.7,
	"B+": 3.3, "B": 3.0, "B-": 2.7,
	"C+": 2.3, "C": 2.0, "C-": 1.7,
	"D": 1.0, "F": 0,
}

// Points is the 4.0 scale value of a letter grade.
func Points(letter string) (float64, bool) {
	p, ok := points[letter]
	return p, ok
}

// LetterOf returns the recorded letter of g, or the letter of its score.
func (g Grade) LetterOf() string {
	if g.GradeLetter.Valid && g.GradeLetter.String != "" {
		return g.GradeLetter.String
	}
	if g.Score.Valid {
		return Letter(g.Score.Float64)
	}
	return ""
}

// Average is the mean score of the scored grades, and false when none is scored.
func Average(grades []Grade) (float64, bool) {
	var sum float64
	var n int
	for _, g := range grades {
		if g.Score.Valid {
			sum += g.Score.Float64
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// GPA averages the grade points of the graded entries, rounded to one decimal.
func GPA(grades []Grade) float64 {
	var sum float64
	var n int
	for _, g := range grades {
		if p, ok := Points(g.LetterOf()); ok {
			sum += p
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return math.Round(sum/float64(n)*10) / 10
}

// SubjectResult is the standing of a student in a subject.
type SubjectResult struct {
	SubjectID string
	Subject   string
	Percent   int
	Letter    string
}

// Results groups the grades per subject: rounded average score and its letter, ordered by subject name.
func Results(grades []Grade, subjects []Subject) []SubjectResult {
	names := make(map[string]string, len(subjects))
	for _, s := range subjects {
		names[s.ID] = s.Name
	}
	perSubject := make(map[string][]Grade)
	for _, g := range grades {
		perSubject[g.SubjectID] = append(perSubject[g.SubjectID], g)
	}

	results := make([]SubjectResult, 0, len(perSubject))
	for id, gs := range perSubject {
		r := SubjectResult{SubjectID: id, Subject: names[id]}
		if avg, ok := Average(gs); ok {
			r.Percent = int(math.Round(avg))
			r.Letter = Letter(avg)
		} else {
			r.Letter = gs[len(gs)-1].LetterOf()
		}
		results = append(results, r)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Subject < results[j].Subject })
	return results
}

// Assignment is a row of the assignments table.
type Assignment struct {
	ID          string      `db:"id" json:"id"`
	ClassID     string      `db:"class_id" json:"class_id"`
	SubjectID   null.String `db:"subject_id" json:"subject_id"`
	Title       string      `db:"title" json:"title"`
	Description null.String `db:"description" json:"description"`
	DueDate     string      `db:"due_date" json:"due_date"`
	MaxScore    null.Int    `db:"max_score" json:"max_score"`
	CreatedBy   null.String `db:"created_by" json:"created_by"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
}

type AssignmentForm struct {
	ClassID     string `form:"class_id" json:"class_id" validate:"required"`
	SubjectID   string `form:"subject_id" json:"subject_id"`
	Title       string `form:"title" json:"title" validate:"notblank"`
	Description string `form:"description" json:"description"`
	DueDate     string `form:"due_date" json:"due_date" validate:"required,isodate"`
	MaxScore    *int   `form:"max_score" json:"max_score" validate:"omitempty,min=1"`
}

func (f *AssignmentForm) Validate() error {
	f.ClassID = core.CleanString(f.ClassID)
	f.SubjectID = core.CleanString(f.SubjectID)
	f.Title = core.CleanString(f.Title)
	f.Description = core.CleanString(f.Description)
	f.DueDate = core.CleanString(f.DueDate)
	return core.Validate.Struct(f)
}

// Submission is a row of the assignment_submissions table.
type Submission struct {
	ID           string       `db:"id" json:"id"`
	AssignmentID string       `db:"assignment_id" json:"assignment_id"`
	StudentID    string       `db:"student_id" json:"student_id"`
	Status       string       `db:"status" json:"status"`
	Score        null.Float64 `db:"score" json:"score"`
	Feedback     null.String  `db:"feedback" json:"feedback"`
	SubmittedAt  null.Time    `db:"submitted_at" json:"submitted_at"`
}

// Done reports whether the work was handed in.
func (s Submission) Done() bool {
	return s.Status == StatusSubmitted || s.Status == StatusGraded
}

// Homework is an assignment as seen by one student.
type Homework struct {
	Assignment
	Subject string
	Status  string
	Score   null.Float64
}

// IsLate reports whether pending homework is past due on day (YYYY-MM-DD).
func (h Homework) IsLate(day string) bool {
	return h.Status == StatusPending && h.DueDate < day
}

// CompletionRate is the share of submissions handed in.
func CompletionRate(subs []Submission) int {
	var done int
	for _, s := range subs {
		if s.Done() {
			done++
		}
	}
	return core.Percent(done, len(subs))
}

// Progress is the share of assignments past their due date on day.
func Progress(assignments []Assignment, day string) int {
	var past int
	for _, a := range assignments {
		if a.DueDate < day {
			past++
		}
	}
	return core.Percent(past, len(assignments))
}
