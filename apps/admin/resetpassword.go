package main

import (
	"context"
)

func (cli *commandLine) resetPassword(email, pwd string) error {
	if err := cli.users.ResetPassword(context.Background(), email, pwd); err != nil {
		return err
	}
	cli.printf("password updated\n")
	return nil
}
