package main

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/schoolhub/core"
	"github.com/trezcool/schoolhub/core/user"
)

type newUser struct {
	email, role         string
	firstName, lastName string
	password            string
	studentCode         string
}

// addUser creates an account with its profile and role.
// With a student code, a student account is linked to that record and a parent account to that child.
func (cli *commandLine) addUser(nu newUser) error {
	ctx := context.Background()

	email := core.CleanString(nu.email, true /* lower */)
	if nu.firstName == "" {
		nu.firstName = strings.SplitN(email, "@", 2)[0]
	}
	if nu.lastName == "" {
		nu.lastName = "-"
	}

	var studentID string
	if nu.studentCode != "" {
		st, err := cli.students.ByCode(ctx, nu.studentCode)
		if err != nil {
			return err
		}
		studentID = st.ID
	}

	acc, err := cli.users.SignUp(ctx, user.SignUp{
		Email:     email,
		Password:  nu.password,
		FirstName: nu.firstName,
		LastName:  nu.lastName,
		Role:      nu.role,
	})
	if err != nil {
		return err
	}

	if studentID != "" {
		switch acc.Role {
		case user.RoleStudent:
			if _, err := cli.students.LinkUser(ctx, studentID, acc.ID); err != nil {
				return err
			}
		case user.RoleParent:
			if _, err := cli.portal.LinkChild(ctx, acc.ID, studentID, ""); err != nil {
				return err
			}
		default:
			return errors.Errorf("cannot link a student to a %s account", acc.Role)
		}
	}
	cli.printf("%s account created for %s\n", acc.Role, acc.Email)
	return nil
}
