package user_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/schoolhub/core"
	"github.com/trezcool/schoolhub/core/user"
	"github.com/trezcool/schoolhub/storage/inmem"
)

func setup() (*user.Service, *inmem.DB) {
	db := inmem.Open()
	return user.NewService(db, user.NewLocalAuthenticator(db)), db
}

func TestService_SignUp(t *testing.T) {
	svc, _ := setup()
	ctx := context.Background()

	acc, err := svc.SignUp(ctx, user.SignUp{
		Email:     "  Jane@School.test ",
		Password:  "hunter22",
		FirstName: "Jane",
		LastName:  "Doe",
		Role:      user.RoleTeacher,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, acc.ID)
	assert.Equal(t, "jane@school.test", acc.Email)
	assert.Equal(t, user.RoleTeacher, acc.Role)
	assert.Equal(t, "Jane Doe", acc.FullName())

	role, err := svc.Role(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, user.RoleTeacher, role)

	p, err := svc.Profile(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane", p.FirstName)

	_, err = svc.SignUp(ctx, user.SignUp{
		Email: "jane@school.test", Password: "another1", FirstName: "J", LastName: "D", Role: user.RoleAdmin,
	})
	assert.Equal(t, user.ErrAccountExists, errors.Cause(err))
}

func TestService_SignUp_validation(t *testing.T) {
	svc, _ := setup()
	ctx := context.Background()

	tests := []struct {
		name     string
		data     user.SignUp
		wantFlds map[string]string
	}{
		{
			name: "required fields",
			wantFlds: map[string]string{
				"email":      "this field is required",
				"password":   "this field is required",
				"first_name": "this field cannot be blank",
				"last_name":  "this field cannot be blank",
				"role":       "this field is required",
			},
		},
		{
			name: "invalid email and short password",
			data: user.SignUp{Email: "lol", Password: "abc", FirstName: "A", LastName: "B", Role: user.RoleParent},
			wantFlds: map[string]string{
				"email":    "Please enter a valid email address",
				"password": "Password must be at least 6 characters",
			},
		},
		{
			name:     "unknown role",
			data:     user.SignUp{Email: "a@b.test", Password: "s3cretpass", FirstName: "A", LastName: "B", Role: "janitor"},
			wantFlds: map[string]string{"role": "invalid role"},
		},
		{
			name:     "password too similar to email",
			data:     user.SignUp{Email: "johnny@b.test", Password: "johnny1", FirstName: "A", LastName: "B", Role: user.RoleParent},
			wantFlds: map[string]string{"password": "password cannot be similar to your email"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SignUp(ctx, tt.data)
			require.Error(t, err)
			assert.Equal(t, tt.wantFlds, core.FieldErrors(err))
		})
	}
}

func TestService_SignIn(t *testing.T) {
	svc, _ := setup()
	ctx := context.Background()

	created, err := svc.SignUp(ctx, user.SignUp{
		Email: "pa@school.test", Password: "parent-pass", FirstName: "Pat", LastName: "Ent", Role: user.RoleParent,
	})
	require.NoError(t, err)

	tests := []struct {
		name    string
		data    user.SignIn
		wantErr error
	}{
		{name: "unknown email", data: user.SignIn{Email: "lol@school.test", Password: "parent-pass"}, wantErr: user.ErrInvalidCredentials},
		{name: "wrong password", data: user.SignIn{Email: "pa@school.test", Password: "wrong-pass"}, wantErr: user.ErrInvalidCredentials},
		{name: "valid", data: user.SignIn{Email: "PA@school.test", Password: "parent-pass"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc, err := svc.SignIn(ctx, tt.data)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, errors.Cause(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, created.ID, acc.ID)
			assert.Equal(t, user.RoleParent, acc.Role)
			assert.Equal(t, "Pat", acc.FirstName)
			assert.Equal(t, "/parent-portal", user.HomePath(acc.Role))
		})
	}
}

func TestService_ResetPassword(t *testing.T) {
	svc, _ := setup()
	ctx := context.Background()

	_, err := svc.SignUp(ctx, user.SignUp{
		Email: "t@school.test", Password: "first-pass", FirstName: "T", LastName: "Ch", Role: user.RoleTeacher,
	})
	require.NoError(t, err)

	err = svc.ResetPassword(ctx, "t@school.test", "abc")
	assert.Equal(t, map[string]string{"password": "Password must be at least 6 characters"}, core.FieldErrors(err))

	require.NoError(t, svc.ResetPassword(ctx, "t@school.test", "second-pass"))
	_, err = svc.SignIn(ctx, user.SignIn{Email: "t@school.test", Password: "first-pass"})
	assert.Equal(t, user.ErrInvalidCredentials, errors.Cause(err))
	_, err = svc.SignIn(ctx, user.SignIn{Email: "t@school.test", Password: "second-pass"})
	assert.NoError(t, err)
}

func TestService_Profiles(t *testing.T) {
	svc, _ := setup()
	ctx := context.Background()

	for _, su := range []user.SignUp{
		{Email: "zoe@school.test", Password: "pass-word", FirstName: "Zoe", LastName: "Z", Role: user.RoleTeacher},
		{Email: "adam@school.test", Password: "pass-word", FirstName: "Adam", LastName: "A", Role: user.RoleTeacher},
		{Email: "boss@school.test", Password: "pass-word", FirstName: "Boss", LastName: "B", Role: user.RoleAdmin},
	} {
		_, err := svc.SignUp(ctx, su)
		require.NoError(t, err)
	}

	teachers, err := svc.Profiles(ctx, user.RoleTeacher)
	require.NoError(t, err)
	if assert.Len(t, teachers, 2) {
		assert.Equal(t, "Adam", teachers[0].FirstName)
		assert.Equal(t, "Zoe", teachers[1].FirstName)
	}

	parents, err := svc.Profiles(ctx, user.RoleParent)
	require.NoError(t, err)
	assert.Empty(t, parents)
}

func TestHomePath(t *testing.T) {
	assert.Equal(t, "/student-portal", user.HomePath(user.RoleStudent))
	assert.Equal(t, "/parent-portal", user.HomePath(user.RoleParent))
	assert.Equal(t, "/", user.HomePath(user.RoleTeacher))
	assert.Equal(t, "/", user.HomePath(user.RoleAdmin))
}
