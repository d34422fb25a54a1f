package teacher

import (
	"strings"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/schoolhub/core"
)

const (
	Table      = "teachers"
	CodePrefix = "TCH"

	StatusActive = "active"
)

var Statuses = []string{StatusActive, "on_leave", "inactive"}

// Teacher is a row of the teachers table.
type Teacher struct {
	ID            string      `db:"id" json:"id"`
	TeacherID     string      `db:"teacher_id" json:"teacher_id"`
	FirstName     string      `db:"first_name" json:"first_name"`
	LastName      string      `db:"last_name" json:"last_name"`
	Email         string      `db:"email" json:"email"`
	Phone         null.String `db:"phone" json:"phone"`
	Subject       null.String `db:"subject" json:"subject"`
	Qualification null.String `db:"qualification" json:"qualification"`
	HireDate      string      `db:"hire_date" json:"hire_date"`
	Status        string      `db:"status" json:"status"`
	AvatarURL     null.String `db:"avatar_url" json:"avatar_url"`
	UserID        null.String `db:"user_id" json:"user_id"`
	CreatedAt     time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time   `db:"updated_at" json:"updated_at"`
}

func (t Teacher) FullName() string {
	return strings.TrimSpace(t.FirstName + " " + t.LastName)
}

func (t Teacher) Initials() string {
	var b strings.Builder
	for _, name := range []string{t.FirstName, t.LastName} {
		if r := []rune(name); len(r) > 0 {
			b.WriteRune(r[0])
		}
	}
	return strings.ToUpper(b.String())
}

func (t Teacher) IsActive() bool { return t.Status == StatusActive }

// Form is the add/edit teacher form.
type Form struct {
	FirstName     string `form:"first_name" json:"first_name" validate:"notblank"`
	LastName      string `form:"last_name" json:"last_name" validate:"notblank"`
	Email         string `form:"email" json:"email" validate:"required,email"`
	Phone         string `form:"phone" json:"phone"`
	Subject       string `form:"subject" json:"subject"`
	Qualification string `form:"qualification" json:"qualification"`
	HireDate      string `form:"hire_date" json:"hire_date" validate:"omitempty,isodate"`
	Status        string `form:"status" json:"status" validate:"omitempty,oneof=active on_leave inactive"`
}

func (f *Form) Validate() error {
	f.FirstName = core.CleanString(f.FirstName)
	f.LastName = core.CleanString(f.LastName)
	f.Email = core.CleanString(f.Email, true /* lower */)
	f.Phone = core.CleanString(f.Phone)
	f.Subject = core.CleanString(f.Subject)
	f.Qualification = core.CleanString(f.Qualification)
	f.HireDate = core.CleanString(f.HireDate)
	f.Status = core.CleanString(f.Status, true /* lower */)
	return core.Validate.Struct(f)
}

func (f Form) patch() map[string]interface{} {
	p := map[string]interface{}{
		"first_name":    f.FirstName,
		"last_name":     f.LastName,
		"email":         f.Email,
		"phone":         core.NullString(f.Phone),
		"subject":       core.NullString(f.Subject),
		"qualification": core.NullString(f.Qualification),
		"updated_at":    core.NowFunc().UTC(),
	}
	if f.HireDate != "" {
		p["hire_date"] = f.HireDate
	}
	if f.Status != "" {
		p["status"] = f.Status
	}
	return p
}

// FormOf pre-fills the edit form of t.
func FormOf(t Teacher) Form {
	return Form{
		FirstName:     t.FirstName,
		LastName:      t.LastName,
		Email:         t.Email,
		Phone:         t.Phone.String,
		Subject:       t.Subject.String,
		Qualification: t.Qualification.String,
		HireDate:      t.HireDate,
		Status:        t.Status,
	}
}

// Filter keeps the teachers whose full name, subject or email contains search, case-insensitively.
func Filter(teachers []Teacher, search string) []Teacher {
	search = core.CleanString(search)
	if search == "" {
		return teachers
	}
	filtered := make([]Teacher, 0, len(teachers))
	for _, t := range teachers {
		if core.ContainsFold(t.FirstName+" "+t.LastName, search) ||
			core.ContainsFold(t.Subject.String, search) ||
			core.ContainsFold(t.Email, search) {
			filtered = append(filtered, t)
		}
	}
	return filtered
}

// Names maps teacher row IDs to full names.
func Names(teachers []Teacher) map[string]string {
	names := make(map[string]string, len(teachers))
	for _, t := range teachers {
		names[t.ID] = t.FullName()
	}
	return names
}
