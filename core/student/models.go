package student

import (
	"strings"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/schoolhub/core"
)

const (
	Table      = "students"
	CodePrefix = "STU"

	StatusActive = "active"
)

var (
	Genders  = []string{"male", "female", "other"}
	Statuses = []string{StatusActive, "inactive", "graduated", "transferred"}
)

// Student is a row of the students table.
type Student struct {
	ID             string      `db:"id" json:"id"`
	StudentID      string      `db:"student_id" json:"student_id"`
	FirstName      string      `db:"first_name" json:"first_name"`
	LastName       string      `db:"last_name" json:"last_name"`
	Email          null.String `db:"email" json:"email"`
	Phone          null.String `db:"phone" json:"phone"`
	DateOfBirth    null.String `db:"date_of_birth" json:"date_of_birth"`
	Gender         null.String `db:"gender" json:"gender"`
	GradeLevelID   null.String `db:"grade_level_id" json:"grade_level_id"`
	Address        null.String `db:"address" json:"address"`
	ParentName     null.String `db:"parent_name" json:"parent_name"`
	ParentPhone    null.String `db:"parent_phone" json:"parent_phone"`
	ParentEmail    null.String `db:"parent_email" json:"parent_email"`
	EnrollmentDate string      `db:"enrollment_date" json:"enrollment_date"`
	Status         string      `db:"status" json:"status"`
	AvatarURL      null.String `db:"avatar_url" json:"avatar_url"`
	UserID         null.String `db:"user_id" json:"user_id"`
	CreatedAt      time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at" json:"updated_at"`
}

func (s Student) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

func (s Student) Initials() string {
	var b strings.Builder
	for _, name := range []string{s.FirstName, s.LastName} {
		if r := []rune(name); len(r) > 0 {
			b.WriteRune(r[0])
		}
	}
	return strings.ToUpper(b.String())
}

func (s Student) IsActive() bool { return s.Status == StatusActive }

// Form is the enroll/edit student form. Blank optional fields are stored as NULL.
type Form struct {
	FirstName    string `form:"first_name" json:"first_name" validate:"notblank"`
	LastName     string `form:"last_name" json:"last_name" validate:"notblank"`
	Email        string `form:"email" json:"email" validate:"omitempty,email"`
	Phone        string `form:"phone" json:"phone"`
	DateOfBirth  string `form:"date_of_birth" json:"date_of_birth" validate:"omitempty,isodate"`
	Gender       string `form:"gender" json:"gender" validate:"omitempty,oneof=male female other"`
	GradeLevelID string `form:"grade_level_id" json:"grade_level_id"`
	Address      string `form:"address" json:"address"`
	ParentName   string `form:"parent_name" json:"parent_name"`
	ParentPhone  string `form:"parent_phone" json:"parent_phone"`
	ParentEmail  string `form:"parent_email" json:"parent_email" validate:"omitempty,email"`
	Status       string `form:"status" json:"status" validate:"omitempty,oneof=active inactive graduated transferred"`
}

func (f *Form) Validate() error {
	f.FirstName = core.CleanString(f.FirstName)
	f.LastName = core.CleanString(f.LastName)
	f.Email = core.CleanString(f.Email, true /* lower */)
	f.Phone = core.CleanString(f.Phone)
	f.DateOfBirth = core.CleanString(f.DateOfBirth)
	f.Gender = core.CleanString(f.Gender, true /* lower */)
	f.GradeLevelID = core.CleanString(f.GradeLevelID)
	f.Address = core.CleanString(f.Address)
	f.ParentName = core.CleanString(f.ParentName)
	f.ParentPhone = core.CleanString(f.ParentPhone)
	f.ParentEmail = core.CleanString(f.ParentEmail, true /* lower */)
	f.Status = core.CleanString(f.Status, true /* lower */)
	return core.Validate.Struct(f)
}

func (f Form) patch() map[string]interface{} {
	p := map[string]interface{}{
		"first_name":     f.FirstName,
		"last_name":      f.LastName,
		"email":          core.NullString(f.Email),
		"phone":          core.NullString(f.Phone),
		"date_of_birth":  core.NullString(f.DateOfBirth),
		"gender":         core.NullString(f.Gender),
		"grade_level_id": core.NullString(f.GradeLevelID),
		"address":        core.NullString(f.Address),
		"parent_name":    core.NullString(f.ParentName),
		"parent_phone":   core.NullString(f.ParentPhone),
		"parent_email":   core.NullString(f.ParentEmail),
		"updated_at":     core.NowFunc().UTC(),
	}
	if f.Status != "" {
		p["status"] = f.Status
	}
	return p
}

// FormOf pre-fills the edit form of s.
func FormOf(s Student) Form {
	return Form{
		FirstName:    s.FirstName,
		LastName:     s.LastName,
		Email:        s.Email.String,
		Phone:        s.Phone.String,
		DateOfBirth:  s.DateOfBirth.String,
		Gender:       s.Gender.String,
		GradeLevelID: s.GradeLevelID.String,
		Address:      s.Address.String,
		ParentName:   s.ParentName.String,
		ParentPhone:  s.ParentPhone.String,
		ParentEmail:  s.ParentEmail.String,
		Status:       s.Status,
	}
}

// Filter keeps the students whose full name, email or student ID contains search, case-insensitively.
func Filter(students []Student, search string) []Student {
	search = core.CleanString(search)
	if search == "" {
		return students
	}
	filtered := make([]Student, 0, len(students))
	for _, s := range students {
		if core.ContainsFold(s.FirstName+" "+s.LastName, search) ||
			core.ContainsFold(s.Email.String, search) ||
			core.ContainsFold(s.StudentID, search) {
			filtered = append(filtered, s)
		}
	}
	return filtered
}

// Names maps student row IDs to full names.
func Names(students []Student) map[string]string {
	names := make(map[string]string, len(students))
	for _, s := range students {
		names[s.ID] = s.FullName()
	}
	return names
}
