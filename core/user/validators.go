package user

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/schoolhub/core"
)

var (
	appRoleTag  = "approle"
	appRoleText = "invalid role"

	// password policy
	pwdMinLen     = 6
	pwdMinLenTag  = "pwdminlen"
	pwdMinLenText = fmt.Sprintf("Password must be at least %d characters", pwdMinLen)

	pwdMaxSim      = .7
	pwdAttrSimTag  = "pwdtoosim"
	pwdAttrSimText = "password cannot be similar to your email"
)

func init() {
	_ = core.Validate.RegisterValidation(appRoleTag, appRoleValidation)
	core.RegisterCustomTranslation(appRoleTag, appRoleText)

	_ = core.Validate.RegisterValidation(pwdMinLenTag, pwdMinLenValidation)
	core.RegisterCustomTranslation(pwdMinLenTag, pwdMinLenText)

	core.Validate.RegisterStructValidation(signUpStructValidation, SignUp{})
	core.RegisterCustomTranslation(pwdAttrSimTag, pwdAttrSimText)
}

// Custom Validators

// appRoleValidation checks that the role is one of AllRoles
func appRoleValidation(fl validator.FieldLevel) bool {
	return IsRole(fl.Field().String())
}

func pwdMinLenValidation(fl validator.FieldLevel) bool {
	return len([]rune(fl.Field().String())) >= pwdMinLen
}

// signUpStructValidation rejects passwords too similar to the email (or its local part).
func signUpStructValidation(sl validator.StructLevel) {
	su, ok := sl.Current().Interface().(SignUp)
	if !ok || len([]rune(su.Password)) < pwdMinLen {
		return
	}
	getRatio := func(pass, usrAttr string) float64 {
		if usrAttr == "" {
			return 0
		}
		return difflib.NewMatcher(strings.Split(pass, ""), strings.Split(usrAttr, "")).QuickRatio()
	}
	pwd := strings.ToLower(su.Password)
	local := su.Email
	if i := strings.Index(local, "@"); i > 0 {
		local = local[:i]
	}
	if getRatio(pwd, su.Email) >= pwdMaxSim || getRatio(pwd, local) >= pwdMaxSim {
		sl.ReportError(su.Password, "password", "Password", pwdAttrSimTag, "")
	}
}
