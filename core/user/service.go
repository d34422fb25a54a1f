package user

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/schoolhub/core"
)

var (
	// errors
	ErrInvalidCredentials = errors.New("Invalid email or password. Please try again.")
	ErrAccountExists      = errors.New("This email is already registered. Please sign in instead.")
	ErrNotSupported       = errors.New("operation not supported by the backend")
	ErrNoRole             = errors.New("user has no role")
)

type (
	// Authenticator is the session API of the backend.
	Authenticator interface {
		// SignIn returns ErrInvalidCredentials when the email/password pair is unknown.
		SignIn(ctx context.Context, email, password string) (Identity, error)
		// SignUp returns ErrAccountExists when the email is already registered.
		// meta is attached to the backend user (first_name, last_name, role).
		SignUp(ctx context.Context, email, password string, meta map[string]string) (Identity, error)
		SignOut(ctx context.Context, accessToken string) error
		// ResetPassword sets a new password. Hosted backends return ErrNotSupported.
		ResetPassword(ctx context.Context, email, password string) error
		// Refresh exchanges a refresh token for a new access token.
		// Backends whose tokens do not expire return ErrNotSupported.
		Refresh(ctx context.Context, refreshToken string) (Identity, error)
	}

	Service struct {
		store core.Store
		auth  Authenticator
	}
)

func NewService(store core.Store, auth Authenticator) *Service {
	return &Service{store: store, auth: auth}
}

// SignIn authenticates the user and loads their role and profile.
func (svc *Service) SignIn(ctx context.Context, data SignIn) (Account, error) {
	if err := data.Validate(); err != nil {
		return Account{}, err
	}
	ident, err := svc.auth.SignIn(ctx, data.Email, data.Password)
	if err != nil {
		return Account{}, errors.Wrap(err, "signing in")
	}
	return svc.account(ctx, ident)
}

// SignUp registers the user and makes sure their profile and role rows exist.
func (svc *Service) SignUp(ctx context.Context, data SignUp) (Account, error) {
	if err := data.Validate(); err != nil {
		return Account{}, err
	}
	ident, err := svc.auth.SignUp(ctx, data.Email, data.Password, map[string]string{
		"first_name": data.FirstName,
		"last_name":  data.LastName,
		"role":       data.Role,
	})
	if err != nil {
		return Account{}, errors.Wrap(err, "signing up")
	}

	ctx = svc.actAs(ctx, ident)
	if err := svc.ensureProfile(ctx, ident, data.FirstName, data.LastName); err != nil {
		return Account{}, errors.Wrap(err, "ensuring profile")
	}
	if err := svc.ensureRole(ctx, ident.UserID, data.Role); err != nil {
		return Account{}, errors.Wrap(err, "ensuring role")
	}
	return Account{
		ID:          ident.UserID,
		Email:       ident.Email,
		FirstName:   data.FirstName,
		LastName:    data.LastName,
		Role:        data.Role,
		AccessToken: ident.AccessToken,

		RefreshToken:   ident.RefreshToken,
		TokenExpiresAt: ident.ExpiresAt,
	}, nil
}

// Refresh renews the backend session of acc. The rest of the account is kept as is.
func (svc *Service) Refresh(ctx context.Context, acc Account) (Account, error) {
	if acc.RefreshToken == "" {
		return Account{}, ErrInvalidCredentials
	}
	ident, err := svc.auth.Refresh(ctx, acc.RefreshToken)
	if err != nil {
		return Account{}, errors.Wrap(err, "refreshing session")
	}
	acc.AccessToken, acc.RefreshToken, acc.TokenExpiresAt = ident.AccessToken, ident.RefreshToken, ident.ExpiresAt
	return acc, nil
}

func (svc *Service) SignOut(ctx context.Context, acc Account) error {
	return errors.Wrap(svc.auth.SignOut(ctx, acc.AccessToken), "signing out")
}

// ResetPassword sets a new password for the account registered with email.
func (svc *Service) ResetPassword(ctx context.Context, email, password string) error {
	email = core.CleanString(email, true /* lower */)
	if err := core.Validate.Var(password, "required,pwdminlen"); err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "password", Error: pwdMinLenText})
	}
	return errors.Wrap(svc.auth.ResetPassword(ctx, email, password), "resetting password")
}

// Role returns the role of the user (get_user_role), or ErrNoRole.
func (svc *Service) Role(ctx context.Context, userID string) (string, error) {
	var ur UserRole
	q := core.Where(core.Eq("user_id", userID)).OrderBy(core.Asc("created_at"))
	if err := svc.store.Get(ctx, UserRolesTable, q, &ur); err != nil {
		if core.IsNotFound(err) {
			return "", ErrNoRole
		}
		return "", errors.Wrap(err, "getting user role")
	}
	return ur.Role, nil
}

// SetRole replaces the role of the user.
func (svc *Service) SetRole(ctx context.Context, userID, role string) error {
	if !IsRole(role) {
		return core.NewValidationError(nil, core.FieldError{Field: "role", Error: appRoleText})
	}
	if _, err := svc.store.Delete(ctx, UserRolesTable, []core.Filter{core.Eq("user_id", userID)}); err != nil {
		return errors.Wrap(err, "deleting user roles")
	}
	return svc.ensureRole(ctx, userID, role)
}

func (svc *Service) Profile(ctx context.Context, userID string) (Profile, error) {
	var p Profile
	err := svc.store.Get(ctx, ProfilesTable, core.Where(core.Eq("user_id", userID)), &p)
	return p, errors.Wrap(err, "getting profile")
}

// Profiles returns the profiles of the users having role, ordered by first name.
func (svc *Service) Profiles(ctx context.Context, role string) ([]Profile, error) {
	var roles []UserRole
	if err := svc.store.Select(ctx, UserRolesTable, core.Where(core.Eq("role", role)), &roles); err != nil {
		return nil, errors.Wrap(err, "selecting user roles")
	}
	if len(roles) == 0 {
		return nil, nil
	}
	ids := make([]string, 0, len(roles))
	for _, r := range roles {
		ids = append(ids, r.UserID)
	}
	var profiles []Profile
	q := core.Where(core.In("user_id", ids)).OrderBy(core.Asc("first_name"))
	if err := svc.store.Select(ctx, ProfilesTable, q, &profiles); err != nil {
		return nil, errors.Wrap(err, "selecting profiles")
	}
	return profiles, nil
}

func (svc *Service) account(ctx context.Context, ident Identity) (Account, error) {
	ctx = svc.actAs(ctx, ident)
	acc := Account{
		ID:             ident.UserID,
		Email:          ident.Email,
		AccessToken:    ident.AccessToken,
		RefreshToken:   ident.RefreshToken,
		TokenExpiresAt: ident.ExpiresAt,
	}

	role, err := svc.Role(ctx, ident.UserID)
	if err != nil && err != ErrNoRole {
		return Account{}, err
	}
	acc.Role = role

	p, err := svc.Profile(ctx, ident.UserID)
	switch {
	case err == nil:
		acc.FirstName = p.FirstName
		acc.LastName = p.LastName
	case !core.IsNotFound(err):
		return Account{}, err
	}
	return acc, nil
}

func (svc *Service) ensureProfile(ctx context.Context, ident Identity, firstName, lastName string) error {
	_, err := svc.Profile(ctx, ident.UserID)
	if err == nil || !core.IsNotFound(err) {
		return err
	}
	now := core.NowFunc().UTC()
	p := Profile{
		ID:        uuid.NewString(),
		UserID:    ident.UserID,
		Email:     ident.Email,
		FirstName: firstName,
		LastName:  lastName,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.store.Insert(ctx, ProfilesTable, p, nil)
}

func (svc *Service) ensureRole(ctx context.Context, userID, role string) error {
	q := core.Where(core.Eq("user_id", userID), core.Eq("role", role))
	err := svc.store.Get(ctx, UserRolesTable, q, new(UserRole))
	if err == nil || !core.IsNotFound(err) {
		return err
	}
	ur := UserRole{
		ID:        uuid.NewString(),
		UserID:    userID,
		Role:      role,
		CreatedAt: core.NowFunc().UTC().Truncate(time.Microsecond),
	}
	return svc.store.Insert(ctx, UserRolesTable, ur, nil)
}

func (svc *Service) actAs(ctx context.Context, ident Identity) context.Context {
	return core.WithUserID(core.WithAccessToken(ctx, ident.AccessToken), ident.UserID)
}
