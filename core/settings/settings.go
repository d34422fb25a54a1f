// Package settings keeps the school-wide preferences edited on the settings page.
package settings

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/schoolhub/core"
)

const (
	Table = "school_settings"
	rowID = "default"
)

// Settings is the single row of the school_settings table.
type Settings struct {
	ID            string      `db:"id" json:"id"`
	SchoolName    string      `db:"school_name" json:"school_name"`
	Email         null.String `db:"email" json:"email"`
	Phone         null.String `db:"phone" json:"phone"`
	Address       null.String `db:"address" json:"address"`
	AcademicYear  null.String `db:"academic_year" json:"academic_year"`
	Notifications bool        `db:"notifications" json:"notifications"`
	EmailAlerts   bool        `db:"email_alerts" json:"email_alerts"`
	UpdatedAt     time.Time   `db:"updated_at" json:"updated_at"`
}

// Defaults are used until the settings are saved for the first time.
func Defaults() Settings {
	return Settings{
		ID:            rowID,
		SchoolName:    "Smart School Hub",
		Email:         null.StringFrom("admin@smartschool.edu"),
		Phone:         null.StringFrom("+1 234 567 8900"),
		Address:       null.StringFrom("123 Education Lane, Learning City"),
		AcademicYear:  null.StringFrom("2025-2026"),
		Notifications: true,
		EmailAlerts:   true,
	}
}

// Form is the settings page form.
type Form struct {
	SchoolName    string `form:"school_name" json:"school_name" validate:"notblank"`
	Email         string `form:"email" json:"email" validate:"omitempty,email"`
	Phone         string `form:"phone" json:"phone"`
	Address       string `form:"address" json:"address"`
	AcademicYear  string `form:"academic_year" json:"academic_year"`
	Notifications bool   `form:"notifications" json:"notifications"`
	EmailAlerts   bool   `form:"email_alerts" json:"email_alerts"`
}

func (f *Form) Validate() error {
	f.SchoolName = core.CleanString(f.SchoolName)
	f.Email = core.CleanString(f.Email, true)
	f.Phone = core.CleanString(f.Phone)
	f.Address = core.CleanString(f.Address)
	f.AcademicYear = core.CleanString(f.AcademicYear)
	return core.Validate.Struct(f)
}

func (f Form) patch() map[string]interface{} {
	return map[string]interface{}{
		"school_name":   f.SchoolName,
		"email":         core.NullString(f.Email),
		"phone":         core.NullString(f.Phone),
		"address":       core.NullString(f.Address),
		"academic_year": core.NullString(f.AcademicYear),
		"notifications": f.Notifications,
		"email_alerts":  f.EmailAlerts,
		"updated_at":    core.NowFunc().UTC(),
	}
}

func FormOf(s Settings) Form {
	return Form{
		SchoolName:    s.SchoolName,
		Email:         s.Email.String,
		Phone:         s.Phone.String,
		Address:       s.Address.String,
		AcademicYear:  s.AcademicYear.String,
		Notifications: s.Notifications,
		EmailAlerts:   s.EmailAlerts,
	}
}

type Service struct {
	store core.Store
}

func NewService(store core.Store) *Service {
	return &Service{store: store}
}

// Get returns the saved settings, or the defaults.
func (svc *Service) Get(ctx context.Context) (Settings, error) {
	var s Settings
	err := svc.store.Get(ctx, Table, core.Where(core.Eq("id", rowID)), &s)
	if core.IsNotFound(err) {
		return Defaults(), nil
	}
	return s, errors.Wrap(err, "getting settings")
}

// Save stores the settings, creating the row on first save.
func (svc *Service) Save(ctx context.Context, data Form) (Settings, error) {
	if err := data.Validate(); err != nil {
		return Settings{}, err
	}

	var s Settings
	err := svc.store.Update(ctx, Table, []core.Filter{core.Eq("id", rowID)}, data.patch(), &s)
	if err == nil || !core.IsNotFound(err) {
		return s, errors.Wrap(err, "updating settings")
	}

	s = Settings{
		ID:            rowID,
		SchoolName:    data.SchoolName,
		Email:         core.NullString(data.Email),
		Phone:         core.NullString(data.Phone),
		Address:       core.NullString(data.Address),
		AcademicYear:  core.NullString(data.AcademicYear),
		Notifications: data.Notifications,
		EmailAlerts:   data.EmailAlerts,
		UpdatedAt:     core.NowFunc().UTC(),
	}
	var created Settings
	if err := svc.store.Insert(ctx, Table, s, &created); err != nil {
		return Settings{}, errors.Wrap(err, "inserting settings")
	}
	return created, nil
}
