package class

import (
	"sort"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/schoolhub/core"
	"github.com/trezcool/schoolhub/core/gradelevel"
	"github.com/trezcool/schoolhub/core/teacher"
)

const (
	Table           = "classes"
	EnrollmentTable = "class_students"
)

// Class is a row of the classes table.
type Class struct {
	ID           string      `db:"id" json:"id"`
	Name         string      `db:"name" json:"name"`
	GradeLevelID null.String `db:"grade_level_id" json:"grade_level_id"`
	TeacherID    null.String `db:"teacher_id" json:"teacher_id"`
	Room         null.String `db:"room" json:"room"`
	Schedule     null.String `db:"schedule" json:"schedule"`
	Capacity     null.Int    `db:"capacity" json:"capacity"`
	CreatedAt    time.Time   `db:"created_at" json:"created_at"`
}

// Enrollment is a row of the class_students table.
type Enrollment struct {
	ID         string    `db:"id" json:"id"`
	ClassID    string    `db:"class_id" json:"class_id"`
	StudentID  string    `db:"student_id" json:"student_id"`
	EnrolledAt time.Time `db:"enrolled_at" json:"enrolled_at"`
}

// Form is the create/edit class form.
type Form struct {
	Name         string `form:"name" json:"name" validate:"notblank"`
	GradeLevelID string `form:"grade_level_id" json:"grade_level_id"`
	TeacherID    string `form:"teacher_id" json:"teacher_id"`
	Room         string `form:"room" json:"room"`
	Schedule     string `form:"schedule" json:"schedule"`
	Capacity     *int   `form:"capacity" json:"capacity" validate:"omitempty,min=1"`
}

func (f *Form) Validate() error {
	f.Name = core.CleanString(f.Name)
	f.GradeLevelID = core.CleanString(f.GradeLevelID)
	f.TeacherID = core.CleanString(f.TeacherID)
	f.Room = core.CleanString(f.Room)
	f.Schedule = core.CleanString(f.Schedule)
	return core.Validate.Struct(f)
}

func (f Form) capacity() null.Int {
	if f.Capacity == nil {
		return null.Int{}
	}
	return null.IntFrom(*f.Capacity)
}

func (f Form) patch() map[string]interface{} {
	return map[string]interface{}{
		"name":           f.Name,
		"grade_level_id": core.NullString(f.GradeLevelID),
		"teacher_id":     core.NullString(f.TeacherID),
		"room":           core.NullString(f.Room),
		"schedule":       core.NullString(f.Schedule),
		"capacity":       f.capacity(),
	}
}

// FormOf pre-fills the edit form of c.
func FormOf(c Class) Form {
	f := Form{
		Name:         c.Name,
		GradeLevelID: c.GradeLevelID.String,
		TeacherID:    c.TeacherID.String,
		Room:         c.Room.String,
		Schedule:     c.Schedule.String,
	}
	if c.Capacity.Valid {
		capacity := c.Capacity.Int
		f.Capacity = &capacity
	}
	return f
}

// Summary is a class joined with its teacher, grade level and head count.
type Summary struct {
	Class
	TeacherName  string
	GradeName    string
	StudentCount int
}

// IsFull reports whether the class reached its capacity.
func (s Summary) IsFull() bool {
	return s.Capacity.Valid && s.StudentCount >= s.Capacity.Int
}

// Summarize joins classes with teachers, grade levels and enrollments.
func Summarize(classes []Class, teachers []teacher.Teacher, levels []gradelevel.GradeLevel, enrollments []Enrollment) []Summary {
	teacherNames := teacher.Names(teachers)
	counts := make(map[string]int)
	for _, e := range enrollments {
		counts[e.ClassID]++
	}

	summaries := make([]Summary, 0, len(classes))
	for _, c := range classes {
		s := Summary{
			Class:        c,
			GradeName:    gradelevel.Name(levels, c.GradeLevelID),
			StudentCount: counts[c.ID],
		}
		if c.TeacherID.Valid {
			s.TeacherName = teacherNames[c.TeacherID.String]
		}
		summaries = append(summaries, s)
	}
	return summaries
}

// Filter keeps the classes whose name or teacher name contains search, case-insensitively.
func Filter(summaries []Summary, search string) []Summary {
	search = core.CleanString(search)
	if search == "" {
		return summaries
	}
	filtered := make([]Summary, 0, len(summaries))
	for _, s := range summaries {
		if core.ContainsFold(s.Name, search) || core.ContainsFold(s.TeacherName, search) {
			filtered = append(filtered, s)
		}
	}
	return filtered
}

// Rooms returns the distinct rooms used by classes, sorted.
func Rooms(classes []Class) []string {
	seen := make(map[string]bool)
	rooms := make([]string, 0)
	for _, c := range classes {
		if c.Room.Valid && c.Room.String != "" && !seen[c.Room.String] {
			seen[c.Room.String] = true
			rooms = append(rooms, c.Room.String)
		}
	}
	sort.Strings(rooms)
	return rooms
}
