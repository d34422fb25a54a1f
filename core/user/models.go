package user

import (
	"strings"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/schoolhub/core"
)

// Tables
const (
	ProfilesTable  = "profiles"
	UserRolesTable = "user_roles"
)

// Roles (app_role)
const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
	RoleStudent = "student"
	RoleParent  = "parent"
)

var (
	AllRoles = []string{RoleAdmin, RoleTeacher, RoleStudent, RoleParent}

	Roles = []Role{
		{Name: "Administrator", Value: RoleAdmin},
		{Name: "Teacher", Value: RoleTeacher},
		{Name: "Student", Value: RoleStudent},
		{Name: "Parent", Value: RoleParent},
	}
)

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// IsRole reports whether role is one of AllRoles.
func IsRole(role string) bool {
	for _, r := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

// HomePath is where a user of the given role lands after signing in.
func HomePath(role string) string {
	switch role {
	case RoleStudent:
		return "/student-portal"
	case RoleParent:
		return "/parent-portal"
	default:
		return "/"
	}
}

// Account is the signed-in user.
type Account struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Role        string `json:"role"`
	AccessToken string `json:"-"`

	RefreshToken   string `json:"-"`
	TokenExpiresAt int64  `json:"-"` // 0 when the access token does not expire
}

// TokenExpired reports whether the backend access token expires within leeway of now.
func (a Account) TokenExpired(now time.Time, leeway time.Duration) bool {
	return a.TokenExpiresAt != 0 && !now.Add(leeway).Before(time.Unix(a.TokenExpiresAt, 0))
}

func (a Account) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// DisplayName falls back to the email when the account has no name.
func (a Account) DisplayName() string {
	if name := a.FullName(); name != "" {
		return name
	}
	return a.Email
}

func (a Account) HasRole(roles ...string) bool {
	for _, role := range roles {
		if a.Role == role {
			return true
		}
	}
	return false
}

func (a Account) IsAdmin() bool   { return a.Role == RoleAdmin }
func (a Account) IsTeacher() bool { return a.Role == RoleTeacher }
func (a Account) IsStudent() bool { return a.Role == RoleStudent }
func (a Account) IsParent() bool  { return a.Role == RoleParent }

// Profile is a row of the profiles table.
type Profile struct {
	ID        string      `db:"id" json:"id"`
	UserID    string      `db:"user_id" json:"user_id"`
	Email     string      `db:"email" json:"email"`
	FirstName string      `db:"first_name" json:"first_name"`
	LastName  string      `db:"last_name" json:"last_name"`
	Phone     null.String `db:"phone" json:"phone"`
	AvatarURL null.String `db:"avatar_url" json:"avatar_url"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt time.Time   `db:"updated_at" json:"updated_at"`
}

func (p Profile) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// UserRole is a row of the user_roles table.
type UserRole struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Role      string    `db:"role" json:"role"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Identity is what an Authenticator knows about a user.
type Identity struct {
	UserID      string
	Email       string
	AccessToken string
	// RefreshToken and ExpiresAt (unix seconds) are set by backends issuing short-lived access tokens.
	RefreshToken string
	ExpiresAt    int64
}

// SignIn contains the credentials of a user signing in.
type SignIn struct {
	Email    string `form:"email" json:"email" validate:"required,email"`
	Password string `form:"password" json:"password" validate:"required,pwdminlen"`
}

func (si *SignIn) Validate() error {
	si.Email = core.CleanString(si.Email, true /* lower */)
	return core.Validate.Struct(si)
}

// SignUp contains information needed to register a new user.
type SignUp struct {
	Email     string `form:"email" json:"email" validate:"required,email"`
	Password  string `form:"password" json:"password" validate:"required,pwdminlen"`
	FirstName string `form:"first_name" json:"first_name" validate:"notblank"`
	LastName  string `form:"last_name" json:"last_name" validate:"notblank"`
	Role      string `form:"role" json:"role" validate:"required,approle"`
}

func (su *SignUp) Validate() error {
	su.Email = core.CleanString(su.Email, true /* lower */)
	su.FirstName = core.CleanString(su.FirstName)
	su.LastName = core.CleanString(su.LastName)
	su.Role = core.CleanString(su.Role, true /* lower */)
	return core.Validate.Struct(su)
}
